package notify

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"bloodlink/internal/common/errors"
	"bloodlink/internal/common/logger"
	"bloodlink/internal/models"
)

// ==========================
// Test Fakes
// ==========================

type fakeJobRepo struct {
	job        *models.NotificationJob
	getErr     error
	processing bool
	completed  bool
	failedMsg  string
	failed     bool
}

func (r *fakeJobRepo) GetJob(ctx context.Context, id string) (*models.NotificationJob, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	if r.job == nil || r.job.ID != id {
		return nil, errors.NewJobNotFoundError(id)
	}
	copied := *r.job
	return &copied, nil
}

func (r *fakeJobRepo) SetProcessing(ctx context.Context, id string) error {
	r.processing = true
	return nil
}

func (r *fakeJobRepo) MarkCompleted(ctx context.Context, id string) error {
	r.completed = true
	return nil
}

func (r *fakeJobRepo) MarkFailed(ctx context.Context, id, msg string) error {
	r.failed = true
	r.failedMsg = msg
	return nil
}

func (r *fakeJobRepo) IncrementRetry(ctx context.Context, id string) (int, error) {
	r.job.RetryCount++
	return r.job.RetryCount, nil
}

type fakeLocator struct {
	hospitals []models.RankedHospital
	err       error
}

func (l *fakeLocator) Nearby(ctx context.Context, lat, lng float64, radiusKM int) ([]models.RankedHospital, error) {
	return l.hospitals, l.err
}

type fakeStock struct {
	stock models.Stock
	err   error
}

func (s *fakeStock) Snapshot(ctx context.Context) (models.Stock, error) {
	return s.stock, s.err
}

type fakeUsers struct {
	user *models.User
	err  error
}

func (u *fakeUsers) GetUser(ctx context.Context, id string) (*models.User, error) {
	return u.user, u.err
}

type fakeSender struct {
	outcome Outcome
	called  bool
	payload Payload
}

func (s *fakeSender) Send(ctx context.Context, p Payload) Outcome {
	s.called = true
	s.payload = p
	return s.outcome
}

type fakeScheduler struct {
	jobID string
	delay time.Duration
	calls int
	err   error
}

func (s *fakeScheduler) Schedule(ctx context.Context, jobID string, delay time.Duration) error {
	s.calls++
	s.jobID = jobID
	s.delay = delay
	return s.err
}

// ==========================
// Test Fixture
// ==========================

type fixture struct {
	repo      *fakeJobRepo
	locator   *fakeLocator
	stock     *fakeStock
	users     *fakeUsers
	sms       *fakeSender
	email     *fakeSender
	scheduler *fakeScheduler
	orch      *Orchestrator
}

func rankedHospital(id, name string, distanceKM float64) models.RankedHospital {
	lat, lng := 19.0596, 72.8295
	return models.RankedHospital{
		Hospital: models.Hospital{
			ID: id, Name: name, City: "Mumbai",
			ContactPhone: "+912266001100",
			Latitude:     &lat, Longitude: &lng,
			IsPartner: true,
		},
		DistanceKM: distanceKM,
	}
}

func newFixture(t *testing.T, job *models.NotificationJob) *fixture {
	f := &fixture{
		repo: &fakeJobRepo{job: job},
		locator: &fakeLocator{hospitals: []models.RankedHospital{
			rankedHospital("h-1", "Bandra Clinic", 2.5),
		}},
		stock:     &fakeStock{stock: models.Stock{"A+": 50, "B+": 0}},
		users:     &fakeUsers{user: &models.User{ID: "user-1", Email: "user@example.com"}},
		sms:       &fakeSender{outcome: Outcome{OK: true, Detail: "SMS sent successfully (ID: msg-1)"}},
		email:     &fakeSender{outcome: Outcome{OK: true, Detail: "Email sent via SES (ID: msg-2)"}},
		scheduler: &fakeScheduler{},
	}
	f.orch = NewOrchestrator(
		f.repo, f.locator, f.stock, f.users, f.sms, f.email, f.scheduler,
		OrchestratorOptions{MaxHospitals: 5, BaseDelay: time.Minute},
		logger.NewZapAdapter(zaptest.NewLogger(t)), nil,
	)
	return f
}

func testJob(notifType models.NotificationType) *models.NotificationJob {
	return &models.NotificationJob{
		ID:               "job-1",
		UserID:           "user-1",
		UserLatitude:     19.0760,
		UserLongitude:    72.8777,
		RadiusKM:         10,
		NotificationType: notifType,
		Status:           models.JobPending,
		MaxRetries:       3,
	}
}

// ==========================
// Lifecycle Tests
// ==========================

func TestOrchestrator_Run_CompletesWhenChannelsSucceed(t *testing.T) {
	f := newFixture(t, testJob(models.NotifyBoth))

	f.orch.Run(context.Background(), "job-1")

	assert.True(t, f.repo.processing)
	assert.True(t, f.repo.completed)
	assert.False(t, f.repo.failed)
	assert.True(t, f.sms.called)
	assert.True(t, f.email.called)
	assert.Equal(t, 0, f.scheduler.calls)
}

func TestOrchestrator_Run_SMSOnlySkipsEmail(t *testing.T) {
	f := newFixture(t, testJob(models.NotifySMS))

	f.orch.Run(context.Background(), "job-1")

	assert.True(t, f.sms.called)
	assert.False(t, f.email.called)
	assert.True(t, f.repo.completed)
}

func TestOrchestrator_Run_PartialChannelFailureStillCompletes(t *testing.T) {
	f := newFixture(t, testJob(models.NotifyBoth))
	f.sms.outcome = Outcome{OK: false, Detail: "SMS service not configured"}

	f.orch.Run(context.Background(), "job-1")

	assert.True(t, f.repo.completed)
	assert.False(t, f.repo.failed)
}

func TestOrchestrator_Run_AllChannelsFailedIsTerminal(t *testing.T) {
	f := newFixture(t, testJob(models.NotifyBoth))
	f.sms.outcome = Outcome{OK: false, Detail: "User phone number not found"}
	f.email.outcome = Outcome{OK: false, Detail: "Email failed: connection refused"}

	f.orch.Run(context.Background(), "job-1")

	assert.True(t, f.repo.failed)
	assert.Equal(t,
		"All notifications failed. SMS: User phone number not found, Email: Email failed: connection refused",
		f.repo.failedMsg)
	// Terminal: channel outcomes do not trigger backoff retries.
	assert.Equal(t, 0, f.scheduler.calls)
}

func TestOrchestrator_Run_NoHospitalsIsTerminal(t *testing.T) {
	f := newFixture(t, testJob(models.NotifyBoth))
	f.locator.hospitals = nil

	f.orch.Run(context.Background(), "job-1")

	assert.True(t, f.repo.failed)
	assert.Equal(t, "No hospitals found within specified radius", f.repo.failedMsg)
	assert.False(t, f.sms.called)
	assert.False(t, f.email.called)
	assert.Equal(t, 0, f.scheduler.calls)
}

func TestOrchestrator_Run_JobNotFoundMutatesNothing(t *testing.T) {
	f := newFixture(t, testJob(models.NotifyBoth))

	f.orch.Run(context.Background(), "unknown-job")

	assert.False(t, f.repo.processing)
	assert.False(t, f.repo.completed)
	assert.False(t, f.repo.failed)
}

// ==========================
// Retry Tests
// ==========================

func TestOrchestrator_Run_UnexpectedErrorSchedulesBackoff(t *testing.T) {
	f := newFixture(t, testJob(models.NotifyBoth))
	f.locator.err = stderrors.New("connection reset")

	f.orch.Run(context.Background(), "job-1")

	require.Equal(t, 1, f.scheduler.calls)
	assert.Equal(t, "job-1", f.scheduler.jobID)
	// First retry: base delay doubled once.
	assert.Equal(t, 2*time.Minute, f.scheduler.delay)
	assert.False(t, f.repo.failed)
	assert.False(t, f.repo.completed)
}

func TestOrchestrator_Run_BackoffGrowsWithRetryCount(t *testing.T) {
	job := testJob(models.NotifyBoth)
	job.RetryCount = 1
	f := newFixture(t, job)
	f.stock.err = stderrors.New("timeout")

	f.orch.Run(context.Background(), "job-1")

	require.Equal(t, 1, f.scheduler.calls)
	assert.Equal(t, 4*time.Minute, f.scheduler.delay)
}

func TestOrchestrator_Run_RetriesExhaustedFailsTerminally(t *testing.T) {
	job := testJob(models.NotifyBoth)
	job.RetryCount = 2 // next increment reaches max_retries
	f := newFixture(t, job)
	f.users.err = stderrors.New("database gone")

	f.orch.Run(context.Background(), "job-1")

	assert.Equal(t, 0, f.scheduler.calls)
	assert.True(t, f.repo.failed)
	assert.Equal(t, "database gone", f.repo.failedMsg)
}

func TestOrchestrator_Run_TransientLoadErrorSchedulesRetry(t *testing.T) {
	f := newFixture(t, testJob(models.NotifyBoth))
	f.repo.getErr = stderrors.New("driver: bad connection")

	f.orch.Run(context.Background(), "job-1")

	// The id is off the queue already; a load failure must not lose the job.
	require.Equal(t, 1, f.scheduler.calls)
	assert.Equal(t, "job-1", f.scheduler.jobID)
	assert.Equal(t, 2*time.Minute, f.scheduler.delay)
	assert.False(t, f.repo.failed)
	assert.False(t, f.repo.completed)
}

func TestOrchestrator_Run_TransientLoadErrorExhaustsRetries(t *testing.T) {
	job := testJob(models.NotifyBoth)
	job.RetryCount = 2 // next increment reaches the default budget
	f := newFixture(t, job)
	f.repo.getErr = stderrors.New("driver: bad connection")

	f.orch.Run(context.Background(), "job-1")

	assert.Equal(t, 0, f.scheduler.calls)
	assert.True(t, f.repo.failed)
	assert.Equal(t, "driver: bad connection", f.repo.failedMsg)
}

func TestOrchestrator_Run_ScheduleFailureFailsJob(t *testing.T) {
	f := newFixture(t, testJob(models.NotifyBoth))
	f.locator.err = stderrors.New("connection reset")
	f.scheduler.err = stderrors.New("redis down")

	f.orch.Run(context.Background(), "job-1")

	assert.True(t, f.repo.failed)
}

// ==========================
// Payload Tests
// ==========================

func TestOrchestrator_Run_PayloadCapsHospitals(t *testing.T) {
	f := newFixture(t, testJob(models.NotifyEmail))
	f.locator.hospitals = []models.RankedHospital{
		rankedHospital("h-1", "One", 1),
		rankedHospital("h-2", "Two", 2),
		rankedHospital("h-3", "Three", 3),
		rankedHospital("h-4", "Four", 4),
		rankedHospital("h-5", "Five", 5),
		rankedHospital("h-6", "Six", 6),
		rankedHospital("h-7", "Seven", 7),
	}

	f.orch.Run(context.Background(), "job-1")

	require.True(t, f.email.called)
	assert.Len(t, f.email.payload.Hospitals, 5)
	assert.Equal(t, 7, f.email.payload.TotalHospitals)
	assert.Equal(t, 10, f.email.payload.SearchRadiusKM)
	assert.Equal(t, "user-1", f.email.payload.User.ID)
}
