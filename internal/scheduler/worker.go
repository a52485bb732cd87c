// Package scheduler runs the gate's periodic background jobs.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/richxcame/offerwall/internal/fraud"
	"github.com/richxcame/offerwall/pkg/eventbus"
	"github.com/richxcame/offerwall/pkg/logger"
)

const workerSource = "fraudgate-scheduler"

// ReportWorker generates the periodic activity report. One report covers
// exactly the interval since the previous run, so windows tile without gaps.
type ReportWorker struct {
	reporter *fraud.Reporter
	bus      fraud.EventPublisher
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewReportWorker creates the worker. bus may be nil to disable publishing.
func NewReportWorker(reporter *fraud.Reporter, bus fraud.EventPublisher, interval time.Duration) *ReportWorker {
	return &ReportWorker{
		reporter: reporter,
		bus:      bus,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the ticker loop in its own goroutine
func (w *ReportWorker) Start() {
	logger.Info("report worker started", zap.Duration("interval", w.interval))
	go w.run()
}

// Stop signals the loop and waits for an in-flight run to finish
func (w *ReportWorker) Stop() {
	close(w.stop)
	<-w.done
	logger.Info("report worker stopped")
}

func (w *ReportWorker) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-w.stop:
			return
		case now := <-ticker.C:
			w.generate(last, now)
			last = now
		}
	}
}

func (w *ReportWorker) generate(start, end time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	report, err := w.reporter.Generate(ctx, start, end)
	if err != nil {
		logger.Error("scheduled report generation failed", zap.Error(err))
		return
	}

	logger.Info("activity report generated",
		zap.Time("start", report.Start),
		zap.Time("end", report.End),
		zap.Int("total_completions", report.TotalCompletions),
		zap.Int("total_failures", report.TotalFailures),
		zap.Int("suspicious_users", len(report.SuspiciousUsers)),
		zap.Int("flagged_users", len(report.FlaggedUsers)))

	if w.bus == nil {
		return
	}
	data := eventbus.ReportGeneratedData{
		Start:            report.Start,
		End:              report.End,
		TotalCompletions: report.TotalCompletions,
		TotalFailures:    report.TotalFailures,
		SuspiciousUsers:  len(report.SuspiciousUsers),
		FlaggedUsers:     len(report.FlaggedUsers),
	}
	ev, err := eventbus.NewEvent("report.generated", workerSource, data)
	if err != nil {
		return
	}
	if err := w.bus.Publish(ctx, eventbus.SubjectReportGenerated, ev); err != nil {
		logger.Warn("failed to publish report event", zap.Error(err))
	}
}
