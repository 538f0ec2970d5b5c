package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uikitstore/database"
	"uikitstore/models"
)

type recordingSender struct {
	digests [][]models.Payment
	err     error
}

func (r *recordingSender) SendPendingDigest(_ context.Context, pending []models.Payment) error {
	r.digests = append(r.digests, pending)
	return r.err
}

type failingLister struct{}

func (failingLister) ListPendingPayments(context.Context) ([]models.Payment, error) {
	return nil, errors.New("connection refused")
}

func TestDigestJob_SendsPendingOnly(t *testing.T) {
	ctx := context.Background()
	mem := database.NewMemoryStore()
	for i := 0; i < 3; i++ {
		require.NoError(t, mem.CreatePayment(ctx, &models.Payment{
			UserID:  "42",
			UIIDs:   []string{"ui-10001"},
			UIPrice: decimal.NewFromInt(25),
			Status:  models.PaymentPending,
		}))
	}
	pending, err := mem.ListPendingPayments(ctx)
	require.NoError(t, err)
	_, err = mem.SettlePayment(ctx, pending[0].ID, models.PaymentRejected)
	require.NoError(t, err)

	sender := &recordingSender{}
	job := NewDigestJob(mem, sender)
	require.NoError(t, job.Run(ctx))

	require.Len(t, sender.digests, 1)
	assert.Len(t, sender.digests[0], 2)
	for _, p := range sender.digests[0] {
		assert.Equal(t, models.PaymentPending, p.Status)
	}
}

func TestDigestJob_Errors(t *testing.T) {
	ctx := context.Background()

	err := NewDigestJob(failingLister{}, &recordingSender{}).Run(ctx)
	assert.ErrorContains(t, err, "list pending payments")

	sender := &recordingSender{err: errors.New("bot blocked")}
	err = NewDigestJob(database.NewMemoryStore(), sender).Run(ctx)
	assert.EqualError(t, err, "bot blocked")
}

type fakeEvictor struct {
	now     time.Time
	maxIdle time.Duration
}

func (f *fakeEvictor) EvictIdle(now time.Time, maxIdle time.Duration) int {
	f.now, f.maxIdle = now, maxIdle
	return 2
}

func TestEvictJob(t *testing.T) {
	evictor := &fakeEvictor{}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	job := NewEvictJob(evictor, 30*time.Minute)
	job.now = func() time.Time { return at }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, at, evictor.now)
	assert.Equal(t, 30*time.Minute, evictor.maxIdle)
	assert.Equal(t, "evict-sessions", job.Name())
}

type countingJob struct {
	runs    int
	err     error
	sawDeadline bool
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs++
	_, j.sawDeadline = ctx.Deadline()
	return j.err
}

func TestScheduler_Add(t *testing.T) {
	s := NewScheduler(time.Minute)
	job := &countingJob{}

	assert.NoError(t, s.Add("@every 6h", job))
	assert.NoError(t, s.Add("", job))
	assert.Len(t, s.cron.Entries(), 1)

	err := s.Add("not a schedule", job)
	assert.ErrorContains(t, err, "schedule job counting")
}

func TestScheduler_RunAppliesTimeout(t *testing.T) {
	s := NewScheduler(time.Minute)
	job := &countingJob{err: errors.New("boom")}

	s.run(job)
	assert.Equal(t, 1, job.runs)
	assert.True(t, job.sawDeadline)

	untimed := NewScheduler(0)
	untimed.run(job)
	assert.Equal(t, 2, job.runs)
	assert.False(t, job.sawDeadline)
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(time.Minute)
	require.NoError(t, s.Add("@every 1h", &countingJob{}))
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
