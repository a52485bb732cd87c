package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/richxcame/offerwall/pkg/logger"
)

// ErrorTracking returns the sentry request middleware. Panics are captured
// with request context and re-raised so the recovery middleware above still
// turns them into a 500.
func ErrorTracking() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// ErrorReporter forwards server errors to sentry after the handler chain has
// run. Errors recorded on the gin context are captured individually; a 5xx
// response without a recorded error is captured as a message. Responses below
// 500 are never reported, a rejected or blocked event is the gate working.
func ErrorReporter() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < http.StatusInternalServerError {
			return
		}

		hub := sentrygin.GetHubFromContext(c)
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}

		hub.Scope().SetRequest(c.Request)
		hub.Scope().SetTag("http.method", c.Request.Method)
		hub.Scope().SetTag("http.status_code", strconv.Itoa(status))
		hub.Scope().SetTag("endpoint", c.Request.URL.Path)
		if correlationID := logger.CorrelationIDFromContext(c.Request.Context()); correlationID != "" {
			hub.Scope().SetTag("correlation_id", correlationID)
		}

		if len(c.Errors) == 0 {
			hub.CaptureMessage(fmt.Sprintf("HTTP %d: %s %s", status, c.Request.Method, c.Request.URL.Path))
			return
		}
		for _, ginErr := range c.Errors {
			hub.CaptureException(ginErr.Err)
		}
	}
}
