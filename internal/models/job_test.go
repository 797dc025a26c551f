package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotificationType_Validity(t *testing.T) {
	tests := []struct {
		value     NotificationType
		valid     bool
		wantSMS   bool
		wantEmail bool
	}{
		{NotifySMS, true, true, false},
		{NotifyEmail, true, false, true},
		{NotifyBoth, true, true, true},
		{NotificationType("PUSH"), false, false, false},
		{NotificationType(""), false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.value), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.value.IsValid())
			assert.Equal(t, tt.wantSMS, tt.value.WantsSMS())
			assert.Equal(t, tt.wantEmail, tt.value.WantsEmail())
		})
	}
}

func TestNotificationJob_CanRetry(t *testing.T) {
	job := &NotificationJob{MaxRetries: 3}

	assert.True(t, job.CanRetry())

	now := time.Now()
	job.IncrementRetry(now)
	job.IncrementRetry(now)
	assert.True(t, job.CanRetry())

	job.IncrementRetry(now)
	assert.False(t, job.CanRetry())
}

func TestNotificationJob_MarkCompleted(t *testing.T) {
	job := &NotificationJob{Status: JobProcessing}
	now := time.Now()

	job.MarkCompleted(now)

	assert.Equal(t, JobCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)
	assert.Equal(t, now, *job.CompletedAt)
	assert.Equal(t, now, job.UpdatedAt)
}

func TestNotificationJob_MarkFailed(t *testing.T) {
	job := &NotificationJob{Status: JobProcessing}
	now := time.Now()

	job.MarkFailed("No hospitals found within specified radius", now)

	assert.Equal(t, JobFailed, job.Status)
	assert.Equal(t, "No hospitals found within specified radius", job.ErrorMessage)
	assert.Nil(t, job.CompletedAt)
}

func TestStockStatusLabel(t *testing.T) {
	assert.Equal(t, "Available", StockStatusLabel(50))
	assert.Equal(t, "Available", StockStatusLabel(11))
	assert.Equal(t, "Low Stock", StockStatusLabel(10))
	assert.Equal(t, "Low Stock", StockStatusLabel(1))
	assert.Equal(t, "Unavailable", StockStatusLabel(0))
}
