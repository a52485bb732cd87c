package scheduler

import (
	"testing"
	"time"

	"github.com/richxcame/offerwall/internal/fraud"
)

func TestReportWorker_StartStop(t *testing.T) {
	worker := NewReportWorker(fraud.NewReporter(nil, nil), nil, time.Hour)
	worker.Start()

	done := make(chan struct{})
	go func() {
		worker.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop in time")
	}
}
