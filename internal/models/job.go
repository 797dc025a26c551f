// internal/models/job.go
package models

import "time"

// NotificationType selects the delivery channels for a job.
type NotificationType string

const (
	NotifySMS   NotificationType = "SMS"
	NotifyEmail NotificationType = "EMAIL"
	NotifyBoth  NotificationType = "BOTH"
)

// IsValid reports whether t is a known notification type.
func (t NotificationType) IsValid() bool {
	switch t {
	case NotifySMS, NotifyEmail, NotifyBoth:
		return true
	}
	return false
}

// WantsSMS reports whether the SMS channel is requested.
func (t NotificationType) WantsSMS() bool {
	return t == NotifySMS || t == NotifyBoth
}

// WantsEmail reports whether the email channel is requested.
func (t NotificationType) WantsEmail() bool {
	return t == NotifyEmail || t == NotifyBoth
}

// JobStatus is the lifecycle state of a notification job.
type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

// NotificationJob is one user's request to be told about nearby hospitals.
// Created PENDING at submission; mutated only by the orchestrator afterwards.
type NotificationJob struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	UserLatitude     float64          `json:"user_latitude"`
	UserLongitude    float64          `json:"user_longitude"`
	RadiusKM         int              `json:"radius_km"`
	NotificationType NotificationType `json:"notification_type"`
	Status           JobStatus        `json:"status"`
	RetryCount       int              `json:"retry_count"`
	MaxRetries       int              `json:"max_retries"`
	ErrorMessage     string           `json:"error_message,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
}

// CanRetry reports whether the job has retry budget left.
func (j *NotificationJob) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// MarkCompleted transitions the job to COMPLETED and stamps completion time.
func (j *NotificationJob) MarkCompleted(now time.Time) {
	j.Status = JobCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkFailed transitions the job to FAILED and stores the message verbatim.
func (j *NotificationJob) MarkFailed(msg string, now time.Time) {
	j.Status = JobFailed
	j.ErrorMessage = msg
	j.UpdatedAt = now
}

// IncrementRetry bumps the retry counter.
func (j *NotificationJob) IncrementRetry(now time.Time) {
	j.RetryCount++
	j.UpdatedAt = now
}
