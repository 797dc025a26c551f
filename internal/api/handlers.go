// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"bloodlink/internal/common/config"
	"bloodlink/internal/common/errors"
	"bloodlink/internal/common/logger"
	"bloodlink/internal/common/validation"
	"bloodlink/internal/models"
	"bloodlink/internal/queue"

	"github.com/labstack/echo/v4"
)

// notifyRequestSchema rejects structurally invalid submission bodies before
// the range checks run.
var notifyRequestSchema = validation.MustCompile(`{
	"type": "object",
	"properties": {
		"user_latitude":     {"type": "number"},
		"user_longitude":    {"type": "number"},
		"radius_km":         {"type": "integer"},
		"notification_type": {"type": "string", "enum": ["SMS", "EMAIL", "BOTH"]}
	},
	"additionalProperties": false
}`)

// JobGateway is the slice of the job store the API uses.
type JobGateway interface {
	CreateJob(ctx context.Context, job *models.NotificationJob) error
	GetJobForUser(ctx context.Context, id, userID string) (*models.NotificationJob, error)
}

// RateLimiter caps submissions per user.
type RateLimiter interface {
	Allow(ctx context.Context, userID string) (bool, error)
}

// HospitalLocator ranks partner hospitals around a point.
type HospitalLocator interface {
	Nearby(ctx context.Context, lat, lng float64, radiusKM int) ([]models.RankedHospital, error)
}

// StockSource supplies the blood stock snapshot.
type StockSource interface {
	Snapshot(ctx context.Context) (models.Stock, error)
}

// HospitalSearcher runs free-text directory search.
type HospitalSearcher interface {
	Search(ctx context.Context, query, city string) ([]models.Hospital, error)
}

// HealthCheck probes one backing dependency for the health endpoint.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler implements the API endpoints.
type Handler struct {
	jobs       JobGateway
	limiter    RateLimiter
	dispatcher queue.Dispatcher
	locator    HospitalLocator
	stock      StockSource
	search     HospitalSearcher
	cfg        config.NotificationConfig
	logger     logger.Logger
	checks     []HealthCheck
}

func NewHandler(
	jobs JobGateway,
	limiter RateLimiter,
	dispatcher queue.Dispatcher,
	locator HospitalLocator,
	stock StockSource,
	search HospitalSearcher,
	cfg config.NotificationConfig,
	log logger.Logger,
) *Handler {
	return &Handler{
		jobs:       jobs,
		limiter:    limiter,
		dispatcher: dispatcher,
		locator:    locator,
		stock:      stock,
		search:     search,
		cfg:        cfg,
		logger:     log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

type notifyRequest struct {
	UserLatitude     *float64 `json:"user_latitude"`
	UserLongitude    *float64 `json:"user_longitude"`
	RadiusKM         *int     `json:"radius_km"`
	NotificationType *string  `json:"notification_type"`
}

// NotifyHospitals accepts a notification job, rate limits it, persists it
// PENDING and hands it to the dispatcher. The job id returns immediately;
// delivery happens in the background.
func (h *Handler) NotifyHospitals(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Get("userID").(string)

	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return writeError(c, errors.NewInvalidJSONError(err.Error()))
	}
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	var req notifyRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return writeError(c, errors.NewInvalidJSONError(err.Error()))
	}
	if result := notifyRequestSchema.ValidateBytes(raw); !result.Valid {
		return writeError(c, errors.NewValidationError(errors.ErrCodeValidation, "Invalid request data"))
	}

	if req.UserLatitude == nil || req.UserLongitude == nil {
		return writeError(c, errors.NewValidationError(
			errors.ErrCodeMissingCoordinates, "Latitude and longitude are required"))
	}
	if stdErr := validateCoordinates(*req.UserLatitude, *req.UserLongitude); stdErr != nil {
		return writeError(c, stdErr)
	}

	radius := h.cfg.DefaultRadiusKM
	if req.RadiusKM != nil {
		radius = *req.RadiusKM
	}
	if radius < 1 || radius > 100 {
		return writeError(c, errors.NewValidationError(
			errors.ErrCodeInvalidRadius, "Radius must be between 1 and 100 km"))
	}

	notifType := models.NotifyBoth
	if req.NotificationType != nil {
		notifType = models.NotificationType(*req.NotificationType)
	}
	if !notifType.IsValid() {
		return writeError(c, errors.NewValidationError(
			errors.ErrCodeValidation, "notification_type must be SMS, EMAIL or BOTH"))
	}

	allowed, err := h.limiter.Allow(ctx, userID)
	if err != nil {
		h.logger.WithError(err).Error("rate limit check failed", map[string]interface{}{"userId": userID})
		return writeError(c, errors.NewExternalServiceError("rate limiter", err))
	}
	if !allowed {
		return writeError(c, errors.NewRateLimitError(
			h.cfg.RateLimit.MaxPerWindow, h.cfg.RateLimit.WindowSeconds))
	}

	job := &models.NotificationJob{
		UserID:           userID,
		UserLatitude:     *req.UserLatitude,
		UserLongitude:    *req.UserLongitude,
		RadiusKM:         radius,
		NotificationType: notifType,
		MaxRetries:       h.cfg.Retry.MaxRetries,
	}
	if err := h.jobs.CreateJob(ctx, job); err != nil {
		h.logger.WithError(err).Error("job creation failed", map[string]interface{}{"userId": userID})
		return writeError(c, errors.NewQueryExecutionFailedError("create_job", err))
	}

	if err := h.dispatcher.Enqueue(ctx, job.ID); err != nil {
		h.logger.WithError(err).Error("job enqueue failed", map[string]interface{}{"jobId": job.ID})
		return writeError(c, errors.NewExternalServiceError("dispatch queue", err))
	}

	// The sync dispatcher has already run the job inline; report its outcome
	// instead of a queue acknowledgement.
	if _, sync := h.dispatcher.(*queue.SyncDispatcher); sync {
		processed, err := h.jobs.GetJobForUser(ctx, job.ID, userID)
		if err == nil {
			status := "failed"
			if processed.Status == models.JobCompleted {
				status = "completed"
			}
			return c.JSON(http.StatusCreated, map[string]interface{}{
				"job_id":                  job.ID,
				"status":                  status,
				"message":                 "Notification processed",
				"processed_synchronously": true,
			})
		}
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"job_id":             job.ID,
		"status":             "queued",
		"message":            "Notification request queued successfully",
		"estimated_delivery": "2-5 minutes",
	})
}

// NotificationStatus returns one job scoped to its owner.
func (h *Handler) NotificationStatus(c echo.Context) error {
	userID := c.Get("userID").(string)
	jobID := c.Param("job_id")

	job, err := h.jobs.GetJobForUser(c.Request().Context(), jobID, userID)
	if err != nil {
		if stdErr, ok := errors.AsStandardError(err); ok {
			return writeError(c, stdErr)
		}
		return writeError(c, errors.NewQueryExecutionFailedError("get_job", err))
	}

	return c.JSON(http.StatusOK, job)
}

// NearbyHospitals returns partner hospitals within the requested radius,
// distance-sorted, with the current stock snapshot alongside.
func (h *Handler) NearbyHospitals(c echo.Context) error {
	ctx := c.Request().Context()

	latStr := c.QueryParam("lat")
	lngStr := c.QueryParam("lng")
	if latStr == "" || lngStr == "" {
		return writeError(c, errors.NewValidationError(
			errors.ErrCodeMissingCoordinates, "Latitude and longitude are required"))
	}

	lat, latErr := strconv.ParseFloat(latStr, 64)
	lng, lngErr := strconv.ParseFloat(lngStr, 64)
	if latErr != nil || lngErr != nil {
		return writeError(c, errors.NewValidationError(
			errors.ErrCodeInvalidCoordinates, "Invalid latitude or longitude format"))
	}
	if stdErr := validateCoordinates(lat, lng); stdErr != nil {
		return writeError(c, stdErr)
	}

	radius := h.cfg.DefaultRadiusKM
	if raw := c.QueryParam("radius_km"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return writeError(c, errors.NewValidationError(
				errors.ErrCodeInvalidRadius, "Radius must be an integer"))
		}
		radius = parsed
	}
	if radius < 1 || radius > 100 {
		return writeError(c, errors.NewValidationError(
			errors.ErrCodeInvalidRadius, "Radius must be between 1 and 100 km"))
	}

	hospitals, err := h.locator.Nearby(ctx, lat, lng, radius)
	if err != nil {
		h.logger.WithError(err).Error("nearby lookup failed", nil)
		return writeError(c, errors.NewQueryExecutionFailedError("nearby_hospitals", err))
	}

	stock, err := h.stock.Snapshot(ctx)
	if err != nil {
		h.logger.WithError(err).Error("stock snapshot failed", nil)
		return writeError(c, errors.NewQueryExecutionFailedError("stock_snapshot", err))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"hospitals":        hospitals,
		"total_found":      len(hospitals),
		"search_radius_km": radius,
		"user_coordinates": map[string]float64{"latitude": lat, "longitude": lng},
		"blood_stock":      stock,
		"last_updated":     time.Now().UTC().Format(time.RFC3339),
	})
}

// SearchHospitals runs free-text directory search.
func (h *Handler) SearchHospitals(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return writeError(c, errors.NewValidationError(
			errors.ErrCodeValidation, "Query parameter q is required"))
	}
	city := c.QueryParam("city")

	hospitals, err := h.search.Search(c.Request().Context(), query, city)
	if err != nil {
		h.logger.WithError(err).Error("hospital search failed", map[string]interface{}{"query": query})
		if stdErr, ok := errors.AsStandardError(err); ok {
			return writeError(c, stdErr)
		}
		return writeError(c, errors.NewSearchQueryFailedError(err))
	}
	if hospitals == nil {
		hospitals = []models.Hospital{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"hospitals":   hospitals,
		"total_found": len(hospitals),
		"query":       query,
	})
}

// BloodStockSummary reports stock levels grouped by blood type.
func (h *Handler) BloodStockSummary(c echo.Context) error {
	stock, err := h.stock.Snapshot(c.Request().Context())
	if err != nil {
		h.logger.WithError(err).Error("stock snapshot failed", nil)
		return writeError(c, errors.NewQueryExecutionFailedError("stock_snapshot", err))
	}

	stockData := make(map[string]interface{}, len(stock))
	total := 0
	for group, units := range stock {
		stockData[group] = map[string]interface{}{
			"units":     units,
			"available": units > 0,
			"status":    stockLevel(units),
		}
		total += units
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"blood_stock":       stockData,
		"total_units":       total,
		"blood_types_count": len(stockData),
		"last_updated":      time.Now().UTC().Format(time.RFC3339),
	})
}

// SetHealthChecks registers dependency probes for the health endpoint.
func (h *Handler) SetHealthChecks(checks ...HealthCheck) {
	h.checks = checks
}

// Health reports service liveness and the state of each backing dependency.
func (h *Handler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))

	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			deps[check.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[check.Name] = "ok"
	}

	body := map[string]interface{}{"status": "ok"}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if len(deps) > 0 {
		body["dependencies"] = deps
	}
	return c.JSON(status, body)
}

func validateCoordinates(lat, lng float64) *errors.StandardError {
	if lat < -90 || lat > 90 {
		return errors.NewValidationError(
			errors.ErrCodeInvalidLatitude, "Latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return errors.NewValidationError(
			errors.ErrCodeInvalidLongitude, "Longitude must be between -180 and 180")
	}
	return nil
}

func stockLevel(units int) string {
	switch {
	case units > 10:
		return "available"
	case units > 0:
		return "low"
	default:
		return "unavailable"
	}
}
