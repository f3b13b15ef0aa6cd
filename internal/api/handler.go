package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tmarsden/scanpulse/internal/domain/dto"
	"github.com/tmarsden/scanpulse/internal/service"
)

// defaultRangeDays bounds the aggregates query when no window is given.
const defaultRangeDays = 30

// Handler provides the HTTP handlers of the read-only scan API.
//
// Responsibilities:
//   - Validate incoming query parameters
//   - Call the query service
//   - Translate results into response DTOs with appropriate status codes
type Handler struct {
	svc service.ScanQueryService
}

// NewHandler constructs a Handler around the query service.
func NewHandler(svc service.ScanQueryService) *Handler {
	return &Handler{svc: svc}
}

// GetAggregates handles GET /api/v1/aggregates requests.
//
// GetAggregates godoc
// @Summary      Get aggregate metric history
// @Description  Returns one breadth metric's persisted values over a date range, ascending by date
// @Tags         aggregates
// @Produce      json
// @Param        metric  query     string  true   "Metric name" example(advance_decline)
// @Param        start   query     string  false  "Start date in YYYY-MM-DD (default: 30 days before end)" example(2025-05-01)
// @Param        end     query     string  false  "End date in YYYY-MM-DD (default: today)" example(2025-06-02)
// @Success      200     {object}  dto.AggregateRangeResponse  "Success"
// @Failure      400     {object}  dto.ErrorResponse           "Bad Request"
// @Failure      500     {object}  dto.ErrorResponse           "Internal Error"
// @Router       /api/v1/aggregates [get]
func (h *Handler) GetAggregates(c *gin.Context) {
	metric := strings.ToLower(strings.TrimSpace(c.Query("metric")))
	if metric == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("metric is required", nil))
		return
	}

	now := time.Now().UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if s := c.Query("end"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid end format, expected YYYY-MM-DD", err))
			return
		}
		end = parsed
	}

	start := end.AddDate(0, 0, -defaultRangeDays)
	if s := c.Query("start"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid start format, expected YYYY-MM-DD", err))
			return
		}
		start = parsed
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("end is before start", nil))
		return
	}

	rows, err := h.svc.MetricRange(c.Request.Context(), metric, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to read aggregate history", err))
		return
	}

	resp := dto.AggregateRangeResponse{
		Metric: metric,
		Start:  start,
		End:    end,
		Points: make([]dto.AggregatePoint, 0, len(rows)),
	}
	for _, row := range rows {
		resp.Points = append(resp.Points, dto.AggregatePoint{Date: row.Date, Value: row.Value})
	}

	c.JSON(http.StatusOK, resp)
}

// GetStorage handles GET /api/v1/storage requests.
//
// GetStorage godoc
// @Summary      Get storage usage
// @Description  Returns byte counts for the scan store, the options store file, and the task logs
// @Tags         storage
// @Produce      json
// @Success      200  {object}  dto.StorageUsageResponse  "Success"
// @Failure      500  {object}  dto.ErrorResponse         "Internal Error"
// @Router       /api/v1/storage [get]
func (h *Handler) GetStorage(c *gin.Context) {
	usage, err := h.svc.StorageUsage(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to snapshot storage usage", err))
		return
	}

	c.JSON(http.StatusOK, dto.StorageUsageResponse{
		ScanStoreBytes:    usage.ScanStoreBytes,
		OptionsStoreBytes: usage.OptionsStoreBytes,
		TaskLogBytes:      usage.TaskLogBytes,
		TotalBytes:        usage.TotalBytes,
	})
}
