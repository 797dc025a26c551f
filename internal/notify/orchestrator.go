// internal/notify/orchestrator.go
package notify

import (
	"context"
	"fmt"
	"time"

	"bloodlink/internal/common/errors"
	"bloodlink/internal/common/logger"
	"bloodlink/internal/common/metrics"
	"bloodlink/internal/common/observability"
	"bloodlink/internal/models"
)

// JobRepository is the slice of the job store the orchestrator mutates.
type JobRepository interface {
	GetJob(ctx context.Context, id string) (*models.NotificationJob, error)
	SetProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, msg string) error
	IncrementRetry(ctx context.Context, id string) (int, error)
}

// HospitalLocator ranks partner hospitals around a point.
type HospitalLocator interface {
	Nearby(ctx context.Context, lat, lng float64, radiusKM int) ([]models.RankedHospital, error)
}

// StockSource supplies the current blood stock snapshot.
type StockSource interface {
	Snapshot(ctx context.Context) (models.Stock, error)
}

// UserSource resolves notification recipients.
type UserSource interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// ChannelSender delivers one rendered notification over one channel.
type ChannelSender interface {
	Send(ctx context.Context, p Payload) Outcome
}

// Scheduler re-enqueues a job after a backoff delay.
type Scheduler interface {
	Schedule(ctx context.Context, jobID string, delay time.Duration) error
}

// Orchestrator drives a notification job through its lifecycle: locate
// hospitals, snapshot stock, fan out to the requested channels, then settle
// the job. Unexpected failures retry with exponential backoff; an empty
// locator result and all-channels-failed are terminal.
type Orchestrator struct {
	jobs      JobRepository
	locator   HospitalLocator
	stock     StockSource
	users     UserSource
	sms       ChannelSender
	email     ChannelSender
	scheduler Scheduler

	maxHospitals int
	maxRetries   int
	baseDelay    time.Duration

	logger logger.Logger
	obs    *observability.Observability
}

type OrchestratorOptions struct {
	MaxHospitals int
	MaxRetries   int
	BaseDelay    time.Duration
}

func NewOrchestrator(
	jobs JobRepository,
	locator HospitalLocator,
	stock StockSource,
	users UserSource,
	sms, email ChannelSender,
	scheduler Scheduler,
	opts OrchestratorOptions,
	log logger.Logger,
	obs *observability.Observability,
) *Orchestrator {
	if opts.MaxHospitals < 1 {
		opts.MaxHospitals = 5
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Minute
	}
	return &Orchestrator{
		jobs:         jobs,
		locator:      locator,
		stock:        stock,
		users:        users,
		sms:          sms,
		email:        email,
		scheduler:    scheduler,
		maxHospitals: opts.MaxHospitals,
		maxRetries:   opts.MaxRetries,
		baseDelay:    opts.BaseDelay,
		logger:       log.WithFields(map[string]interface{}{"component": "orchestrator"}),
		obs:          obs,
	}
}

// Run processes one job to a terminal or scheduled state. It never returns an
// error: every failure path settles the job itself.
func (o *Orchestrator) Run(ctx context.Context, jobID string) {
	log := o.logger.WithFields(map[string]interface{}{"jobId": jobID})

	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		if stdErr, ok := errors.AsStandardError(err); ok && stdErr.Code == errors.ErrCodeJobNotFound {
			log.Error("job vanished before processing", nil)
			return
		}
		// The id is already off the queue; dropping it here would strand the
		// job in PENDING. Retry by id with the default budget.
		log.WithError(err).Error("job load failed", nil)
		o.retryOrFail(ctx, jobID, o.maxRetries, err, log)
		return
	}

	start := time.Now()

	if err := o.jobs.SetProcessing(ctx, jobID); err != nil {
		o.retryOrFail(ctx, job.ID, job.MaxRetries, err, log)
		return
	}

	hospitals, err := o.locator.Nearby(ctx, job.UserLatitude, job.UserLongitude, job.RadiusKM)
	if err != nil {
		o.retryOrFail(ctx, job.ID, job.MaxRetries, err, log)
		return
	}

	if len(hospitals) == 0 {
		o.settleFailed(ctx, job, "No hospitals found within specified radius", "no_hospitals_found", start, log)
		return
	}

	stock, err := o.stock.Snapshot(ctx)
	if err != nil {
		o.retryOrFail(ctx, job.ID, job.MaxRetries, err, log)
		return
	}

	user, err := o.users.GetUser(ctx, job.UserID)
	if err != nil {
		o.retryOrFail(ctx, job.ID, job.MaxRetries, err, log)
		return
	}

	payload := BuildPayload(user, hospitals, stock, job.RadiusKM, o.maxHospitals)

	smsDetail := "not requested"
	emailDetail := "not requested"
	success := false

	if job.NotificationType.WantsSMS() {
		out := o.sms.Send(ctx, payload)
		smsDetail = out.Detail
		recordChannel("sms", out)
		success = success || out.OK
	}
	if job.NotificationType.WantsEmail() {
		out := o.email.Send(ctx, payload)
		emailDetail = out.Detail
		recordChannel("email", out)
		success = success || out.OK
	}

	if !success {
		msg := fmt.Sprintf("All notifications failed. SMS: %s, Email: %s", smsDetail, emailDetail)
		o.settleFailed(ctx, job, msg, "all_channels_failed", start, log)
		return
	}

	if err := o.jobs.MarkCompleted(ctx, jobID); err != nil {
		log.WithError(err).Error("marking job completed failed", nil)
		return
	}

	metrics.NotificationJobsCompleted.Inc()
	metrics.NotificationJobDuration.Observe(time.Since(start).Seconds())
	if o.obs != nil {
		o.obs.RecordJobProcessed(ctx, "completed")
		o.obs.RecordJobDuration(ctx, time.Since(start), "completed")
	}
	log.Info("job completed", map[string]interface{}{
		"hospitalsFound": len(hospitals),
		"sms":            smsDetail,
		"email":          emailDetail,
	})
}

// settleFailed records a terminal failure. No retry: geography and channel
// configuration do not change on re-execution.
func (o *Orchestrator) settleFailed(ctx context.Context, job *models.NotificationJob, msg, reason string, start time.Time, log logger.Logger) {
	if err := o.jobs.MarkFailed(ctx, job.ID, msg); err != nil {
		log.WithError(err).Error("marking job failed failed", nil)
		return
	}
	metrics.NotificationJobsFailed.WithLabelValues(reason).Inc()
	metrics.NotificationJobDuration.Observe(time.Since(start).Seconds())
	if o.obs != nil {
		o.obs.RecordJobProcessed(ctx, "failed")
		o.obs.RecordJobDuration(ctx, time.Since(start), "failed")
	}
	log.Warn("job failed", map[string]interface{}{"reason": reason, "message": msg})
}

// retryOrFail handles an unexpected infrastructure error: bump the retry
// counter and reschedule with exponential backoff, or fail terminally once
// the budget is spent.
func (o *Orchestrator) retryOrFail(ctx context.Context, jobID string, maxRetries int, cause error, log logger.Logger) {
	count, err := o.jobs.IncrementRetry(ctx, jobID)
	if err != nil {
		log.WithError(err).Error("retry increment failed", nil)
		return
	}

	if count >= maxRetries {
		if err := o.jobs.MarkFailed(ctx, jobID, cause.Error()); err != nil {
			log.WithError(err).Error("marking job failed failed", nil)
			return
		}
		metrics.NotificationJobsFailed.WithLabelValues("retries_exhausted").Inc()
		if o.obs != nil {
			o.obs.RecordJobProcessed(ctx, "failed")
		}
		log.WithError(cause).Error("job failed after exhausting retries", map[string]interface{}{
			"retryCount": count,
		})
		return
	}

	delay := o.baseDelay * time.Duration(1<<uint(count))
	if err := o.scheduler.Schedule(ctx, jobID, delay); err != nil {
		log.WithError(err).Error("retry scheduling failed", nil)
		if err := o.jobs.MarkFailed(ctx, jobID, cause.Error()); err != nil {
			log.WithError(err).Error("marking job failed failed", nil)
		}
		return
	}

	metrics.NotificationJobRetries.Inc()
	log.WithError(cause).Warn("job scheduled for retry", map[string]interface{}{
		"retryCount": count,
		"delay":      delay.String(),
	})
}

func recordChannel(channel string, out Outcome) {
	outcome := "failed"
	if out.OK {
		outcome = "sent"
	}
	metrics.ChannelSendOutcomes.WithLabelValues(channel, outcome).Inc()
}
