package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"uikitstore/logger"
	"uikitstore/models"
)

type PendingLister interface {
	ListPendingPayments(ctx context.Context) ([]models.Payment, error)
}

type DigestSender interface {
	SendPendingDigest(ctx context.Context, pending []models.Payment) error
}

// DigestJob reminds the admin group of payments still awaiting a decision.
type DigestJob struct {
	payments PendingLister
	sender   DigestSender
}

func NewDigestJob(payments PendingLister, sender DigestSender) *DigestJob {
	return &DigestJob{payments: payments, sender: sender}
}

func (j *DigestJob) Name() string { return "pending-digest" }

func (j *DigestJob) Run(ctx context.Context) error {
	pending, err := j.payments.ListPendingPayments(ctx)
	if err != nil {
		return fmt.Errorf("list pending payments: %w", err)
	}
	return j.sender.SendPendingDigest(ctx, pending)
}

type Evictor interface {
	EvictIdle(now time.Time, maxIdle time.Duration) int
}

// EvictJob drops in-memory sessions idle for longer than maxIdle. Their
// identity survives in the session store and is restored on the next request.
type EvictJob struct {
	sessions Evictor
	maxIdle  time.Duration
	now      func() time.Time
}

func NewEvictJob(sessions Evictor, maxIdle time.Duration) *EvictJob {
	return &EvictJob{sessions: sessions, maxIdle: maxIdle, now: time.Now}
}

func (j *EvictJob) Name() string { return "evict-sessions" }

func (j *EvictJob) Run(ctx context.Context) error {
	if n := j.sessions.EvictIdle(j.now(), j.maxIdle); n > 0 {
		logger.Info(ctx, "Evicted idle sessions", zap.Int("count", n))
	}
	return nil
}
