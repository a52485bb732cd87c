package fraud

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/richxcame/offerwall/pkg/common"
	"github.com/richxcame/offerwall/pkg/logger"
)

// Handler exposes the gate over HTTP
type Handler struct {
	service  *Service
	reporter *Reporter
}

func NewHandler(service *Service, reporter *Reporter) *Handler {
	return &Handler{service: service, reporter: reporter}
}

// RegisterRoutes mounts the fraud endpoints on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	fraud := rg.Group("/fraud")
	{
		fraud.POST("/check", h.Check)
		fraud.GET("/flags", h.ListFlags)
		fraud.GET("/flags/:user_id", h.GetFlag)
		fraud.DELETE("/flags/:user_id", h.ClearFlag)
		fraud.GET("/report", h.Report)
	}
}

// Check scores one completion event. The response always carries the full
// decision; callers act on the action field.
func (h *Handler) Check(c *gin.Context) {
	var event CompletionEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if event.IPAddress == "" {
		event.IPAddress = c.ClientIP()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	decision, err := h.service.CheckForFraud(c.Request.Context(), &event)
	if err != nil {
		_ = c.Error(err)
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			// A block whose flag write failed still returns the decision
			if decision != nil {
				c.JSON(appErr.Code, common.Response{
					Success: false,
					Data:    decision,
					Error:   &common.ErrorInfo{Code: appErr.Code, Message: appErr.Message},
				})
				return
			}
			common.AppErrorResponse(c, appErr)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "fraud check failed")
		return
	}

	common.SuccessResponse(c, decision)
}

// ListFlags returns live fraud flags, most recent first. Pagination is
// offset-based over the enumerated set; total reflects all live flags.
func (h *Handler) ListFlags(c *gin.Context) {
	flags, err := h.service.ListFlags(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list fraud flags")
		return
	}

	limit, offset := paginationParams(c)
	total := len(flags)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	common.SuccessResponseWithMeta(c, flags[offset:end], &common.Meta{
		Limit:  limit,
		Offset: offset,
		Total:  int64(total),
	})
}

func paginationParams(c *gin.Context) (limit, offset int) {
	limit = 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			offset = parsed
		}
	}
	return limit, offset
}

// GetFlag returns the live flag for one user, or 404 when none exists
func (h *Handler) GetFlag(c *gin.Context) {
	flagged, flag, err := h.service.IsFlagged(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.AppErrorResponse(c, appErr)
			return
		}
		_ = c.Error(err)
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to read fraud flag")
		return
	}
	if !flagged {
		common.ErrorResponse(c, http.StatusNotFound, "user is not flagged")
		return
	}
	common.SuccessResponse(c, flag)
}

// ClearFlag removes a user's flag ahead of its natural expiry
func (h *Handler) ClearFlag(c *gin.Context) {
	if err := h.service.ClearFlag(c.Request.Context(), c.Param("user_id")); err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.AppErrorResponse(c, appErr)
			return
		}
		_ = c.Error(err)
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to clear fraud flag")
		return
	}
	common.SuccessResponse(c, gin.H{"cleared": true})
}

// Report generates an on-demand activity report. Defaults to the trailing
// 24 hours; start and end accept RFC 3339 timestamps.
func (h *Handler) Report(c *gin.Context) {
	end := time.Now()
	start := end.Add(-24 * time.Hour)

	if raw := c.Query("start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "invalid start timestamp")
			return
		}
		start = parsed
	}
	if raw := c.Query("end"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "invalid end timestamp")
			return
		}
		end = parsed
	}
	if !start.Before(end) {
		common.ErrorResponse(c, http.StatusBadRequest, "start must be before end")
		return
	}

	report, err := h.reporter.Generate(c.Request.Context(), start, end)
	if err != nil {
		_ = c.Error(err)
		logger.ErrorContext(c.Request.Context(), "on-demand report generation failed", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to generate report")
		return
	}
	common.SuccessResponse(c, report)
}
