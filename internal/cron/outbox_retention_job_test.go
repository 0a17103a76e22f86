package cron

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRetentionRepo struct {
	deleted    int64
	lastCutoff time.Time
}

func (s *stubRetentionRepo) DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error) {
	s.lastCutoff = cutoff
	return s.deleted, nil
}

func TestOutboxRetentionCutoff(t *testing.T) {
	repo := &stubRetentionRepo{deleted: 12}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     cronTestLogger(),
		DB:         stubTxRunner{},
		Repository: repo,
		Retention:  7,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	before := time.Now().UTC()
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := before.Add(-7 * 24 * time.Hour)
	if repo.lastCutoff.Before(want.Add(-time.Minute)) || repo.lastCutoff.After(want.Add(time.Minute)) {
		t.Fatalf("expected cutoff near %s, got %s", want, repo.lastCutoff)
	}
}

func TestOutboxRetentionDefault(t *testing.T) {
	repo := &stubRetentionRepo{}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     cronTestLogger(),
		DB:         stubTxRunner{},
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := time.Now().UTC().Add(-outboxRetentionDays * 24 * time.Hour)
	if repo.lastCutoff.Before(want.Add(-time.Minute)) || repo.lastCutoff.After(want.Add(time.Minute)) {
		t.Fatalf("expected default retention cutoff, got %s", repo.lastCutoff)
	}
}
