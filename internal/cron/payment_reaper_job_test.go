package cron

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubExpirer struct {
	expired  int
	err      error
	lastTTL  time.Duration
	lastSize int
}

func (s *stubExpirer) ExpirePendingOnline(ctx context.Context, ttl time.Duration, limit int) (int, error) {
	s.lastTTL = ttl
	s.lastSize = limit
	return s.expired, s.err
}

func TestPaymentReaperPassesConfiguredKnobs(t *testing.T) {
	expirer := &stubExpirer{expired: 3}
	job, err := NewPaymentReaperJob(PaymentReaperJobParams{
		Logger: cronTestLogger(),
		Orders: expirer,
		TTL:    6 * time.Hour,
		Batch:  25,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if expirer.lastTTL != 6*time.Hour {
		t.Fatalf("expected 6h ttl, got %s", expirer.lastTTL)
	}
	if expirer.lastSize != 25 {
		t.Fatalf("expected batch 25, got %d", expirer.lastSize)
	}
}

func TestPaymentReaperDefaults(t *testing.T) {
	expirer := &stubExpirer{}
	job, err := NewPaymentReaperJob(PaymentReaperJobParams{
		Logger: cronTestLogger(),
		Orders: expirer,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if expirer.lastTTL != defaultPendingOrderTTL {
		t.Fatalf("expected default ttl, got %s", expirer.lastTTL)
	}
	if expirer.lastSize != defaultReaperBatch {
		t.Fatalf("expected default batch, got %d", expirer.lastSize)
	}
}

func TestPaymentReaperPropagatesFailure(t *testing.T) {
	expirer := &stubExpirer{err: errors.New("db down")}
	job, err := NewPaymentReaperJob(PaymentReaperJobParams{
		Logger: cronTestLogger(),
		Orders: expirer,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected failure to propagate")
	}
}
