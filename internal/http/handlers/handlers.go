package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/acganger/staffing-backend/internal/db"
	"github.com/acganger/staffing-backend/internal/scheduler"
	"github.com/acganger/staffing-backend/internal/service"
	"github.com/acganger/staffing-backend/internal/wfm"
)

type Handler struct {
	Store     *db.Store
	Scheduler *scheduler.Scheduler
	Engine    *service.Engine
	WFM       *wfm.Syncer
	Validator *validator.Validate
	Logger    zerolog.Logger
	AdminKey  string
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Scheduler status
// @Description Whether the job loops are running, plus the last execution per job
// @Tags jobs
// @Produce json
// @Success 200 {object} scheduler.Status
// @Router /api/jobs/status [get]
func (h *Handler) JobsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.Scheduler.Status())
}

// @Summary Job execution metrics
// @Description Retained execution history per job, most recent last
// @Tags jobs
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/jobs/metrics [get]
func (h *Handler) JobsMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"metrics": h.Scheduler.Metrics()})
}

// @Summary Run a job now
// @Description Execute one scheduled job outside its schedule and return the metric
// @Tags jobs
// @Produce json
// @Param name path string true "job name"
// @Success 200 {object} models.JobExecutionMetric
// @Failure 404 {object} map[string]any
// @Router /api/jobs/{name}/run [post]
func (h *Handler) RunJob(c *gin.Context) {
	name := scheduler.JobName(c.Param("name"))
	metric, err := h.Scheduler.RunJobManually(name)
	if errors.Is(err, scheduler.ErrUnknownJob) {
		writeError(c, http.StatusNotFound, "UNKNOWN_JOB", "No such job", c.Param("name"))
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "JOB_FAILED", "Job execution failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, metric)
}

// @Summary Daily staffing analytics
// @Description Stored analytics record for one location and date
// @Tags analytics
// @Produce json
// @Param date query string true "date (YYYY-MM-DD)"
// @Param location_id query string true "location id"
// @Success 200 {object} models.AnalyticsRecord
// @Failure 404 {object} map[string]any
// @Router /api/analytics [get]
func (h *Handler) AnalyticsGet(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "date must be YYYY-MM-DD", nil)
		return
	}
	locationID := c.Query("location_id")
	if locationID == "" {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "location_id required", nil)
		return
	}

	record, err := h.Store.GetAnalytics(c.Request.Context(), date, locationID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "No analytics for that date and location", nil)
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load analytics", err.Error())
		return
	}
	c.JSON(http.StatusOK, record)
}

// @Summary Weekly staffing trend
// @Description Trend summary over the trailing seven days for one location
// @Tags analytics
// @Produce json
// @Param location_id query string true "location id"
// @Success 200 {object} service.TrendSummary
// @Router /api/analytics/trend [get]
func (h *Handler) AnalyticsTrend(c *gin.Context) {
	locationID := c.Query("location_id")
	if locationID == "" {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "location_id required", nil)
		return
	}

	summary, err := h.Engine.WeeklyTrend(c.Request.Context(), locationID, time.Now())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to analyze trend", err.Error())
		return
	}
	c.JSON(http.StatusOK, summary)
}

type pushRequest struct {
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	LocationID string `json:"location_id" validate:"required"`
}

// @Summary Push staff schedules
// @Description Publish cached staff schedules for a date out to the workforce system
// @Tags schedules
// @Accept json
// @Produce json
// @Success 200 {object} models.SyncResult
// @Failure 400 {object} map[string]any
// @Router /api/schedules/push [post]
func (h *Handler) SchedulesPush(c *gin.Context) {
	var req pushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Validation failed", err.Error())
		return
	}
	date, _ := time.Parse("2006-01-02", req.Date)

	result, err := h.WFM.PushSchedules(c.Request.Context(), date, req.LocationID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "PUSH_FAILED", "Schedule push failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Cancel a published shift
// @Tags schedules
// @Produce json
// @Param id path string true "roster id"
// @Success 200 {object} map[string]any
// @Router /api/schedules/roster/{id} [delete]
func (h *Handler) SchedulesCancel(c *gin.Context) {
	rosterID := c.Param("id")
	if err := h.WFM.CancelRoster(c.Request.Context(), rosterID); err != nil {
		writeError(c, http.StatusBadGateway, "CANCEL_FAILED", "Roster cancellation failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": rosterID})
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
