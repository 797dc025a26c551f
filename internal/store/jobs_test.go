package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/common/errors"
	"bloodlink/internal/models"
)

var jobRowColumns = []string{
	"id", "user_id", "user_latitude", "user_longitude", "radius_km",
	"notification_type", "status", "retry_count", "max_retries", "error_message",
	"created_at", "updated_at", "completed_at",
}

func TestJobStore_CreateJob_AssignsDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO notification_jobs`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewJobStore(db)
	job := &models.NotificationJob{
		UserID:           "user-1",
		UserLatitude:     19.0760,
		UserLongitude:    72.8777,
		RadiusKM:         10,
		NotificationType: models.NotifyBoth,
	}

	require.NoError(t, store.CreateJob(context.Background(), job))

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.JobPending, job.Status)
	assert.Equal(t, 3, job.MaxRetries)
	assert.False(t, job.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_GetJob_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM notification_jobs WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(jobRowColumns))

	store := NewJobStore(db)
	_, err = store.GetJob(context.Background(), "missing")

	require.Error(t, err)
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeJobNotFound, stdErr.Code)
}

func TestJobStore_GetJob_ScansNullableColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(jobRowColumns).AddRow(
		"job-1", "user-1", 19.0760, 72.8777, 10,
		"BOTH", "PENDING", 0, 3, nil,
		now, now, nil,
	)
	mock.ExpectQuery(`SELECT .+ FROM notification_jobs WHERE id = \$1`).
		WithArgs("job-1").
		WillReturnRows(rows)

	store := NewJobStore(db)
	job, err := store.GetJob(context.Background(), "job-1")

	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, models.JobPending, job.Status)
	assert.Empty(t, job.ErrorMessage)
	assert.Nil(t, job.CompletedAt)
}

func TestJobStore_GetJobForUser_ScopesToOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM notification_jobs WHERE id = \$1 AND user_id = \$2`).
		WithArgs("job-1", "other-user").
		WillReturnRows(sqlmock.NewRows(jobRowColumns))

	store := NewJobStore(db)
	_, err = store.GetJobForUser(context.Background(), "job-1", "other-user")

	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeJobNotFound, stdErr.Code)
}

func TestJobStore_MarkFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE notification_jobs`).
		WithArgs("job-1", string(models.JobFailed), "No hospitals found within specified radius", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewJobStore(db)
	err = store.MarkFailed(context.Background(), "job-1", "No hospitals found within specified radius")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_IncrementRetry_ReturnsNewCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`UPDATE notification_jobs`).
		WithArgs("job-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"retry_count"}).AddRow(2))

	store := NewJobStore(db)
	count, err := store.IncrementRetry(context.Background(), "job-1")

	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
