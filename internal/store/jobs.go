// internal/store/jobs.go
package store

import (
	"context"
	"database/sql"
	"time"

	"bloodlink/internal/common/errors"
	"bloodlink/internal/models"

	"github.com/google/uuid"
)

const jobColumns = `id, user_id, user_latitude, user_longitude, radius_km,
	notification_type, status, retry_count, max_retries, error_message,
	created_at, updated_at, completed_at`

// JobStore persists notification jobs. The API creates jobs; every later
// mutation goes through the orchestrator.
type JobStore struct {
	db *sql.DB
}

func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{db: db}
}

// CreateJob inserts a new PENDING job, assigning its id and timestamps.
func (s *JobStore) CreateJob(ctx context.Context, job *models.NotificationJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = 3
	}
	job.Status = models.JobPending
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_jobs
			(id, user_id, user_latitude, user_longitude, radius_km,
			 notification_type, status, retry_count, max_retries, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		job.ID, job.UserID, job.UserLatitude, job.UserLongitude, job.RadiusKM,
		job.NotificationType, job.Status, job.RetryCount, job.MaxRetries,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("create_job", err)
	}
	return nil
}

// GetJob loads a job by id.
func (s *JobStore) GetJob(ctx context.Context, id string) (*models.NotificationJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM notification_jobs WHERE id = $1`, id)
	return scanJob(row, id)
}

// GetJobForUser loads a job by id scoped to its owner. Jobs belonging to
// other users read as not found.
func (s *JobStore) GetJobForUser(ctx context.Context, id, userID string) (*models.NotificationJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM notification_jobs WHERE id = $1 AND user_id = $2`, id, userID)
	return scanJob(row, id)
}

// SetProcessing marks a job as picked up by the orchestrator.
func (s *JobStore) SetProcessing(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, models.JobProcessing)
}

// MarkCompleted sets COMPLETED and the completion timestamp.
func (s *JobStore) MarkCompleted(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		UPDATE notification_jobs
		SET status = $2, completed_at = $3, updated_at = $3
		WHERE id = $1`,
		id, models.JobCompleted, now,
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("mark_completed", err)
	}
	return nil
}

// MarkFailed sets FAILED and stores the message verbatim.
func (s *JobStore) MarkFailed(ctx context.Context, id, msg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notification_jobs
		SET status = $2, error_message = $3, updated_at = $4
		WHERE id = $1`,
		id, models.JobFailed, msg, time.Now().UTC(),
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("mark_failed", err)
	}
	return nil
}

// IncrementRetry bumps the retry counter and returns the new count.
func (s *JobStore) IncrementRetry(ctx context.Context, id string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		UPDATE notification_jobs
		SET retry_count = retry_count + 1, updated_at = $2
		WHERE id = $1
		RETURNING retry_count`,
		id, time.Now().UTC(),
	).Scan(&count)
	if err != nil {
		return 0, errors.NewQueryExecutionFailedError("increment_retry", err)
	}
	return count, nil
}

func (s *JobStore) setStatus(ctx context.Context, id string, status models.JobStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notification_jobs
		SET status = $2, updated_at = $3
		WHERE id = $1`,
		id, status, time.Now().UTC(),
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("set_status", err)
	}
	return nil
}

func scanJob(row *sql.Row, id string) (*models.NotificationJob, error) {
	var job models.NotificationJob
	var errMsg sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&job.ID, &job.UserID, &job.UserLatitude, &job.UserLongitude, &job.RadiusKM,
		&job.NotificationType, &job.Status, &job.RetryCount, &job.MaxRetries,
		&errMsg, &job.CreatedAt, &job.UpdatedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewJobNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_job", err)
	}

	if errMsg.Valid {
		job.ErrorMessage = errMsg.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return &job, nil
}
