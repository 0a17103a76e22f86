package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/urbankart/storefront-backend/pkg/logger"
)

const (
	defaultPendingOrderTTL = 24 * time.Hour
	defaultReaperBatch     = 100
)

type pendingOrderExpirer interface {
	ExpirePendingOnline(ctx context.Context, ttl time.Duration, limit int) (int, error)
}

// PaymentReaperJobParams configure the stale payment reaper.
type PaymentReaperJobParams struct {
	Logger *logger.Logger
	Orders pendingOrderExpirer
	TTL    time.Duration
	Batch  int
}

// NewPaymentReaperJob builds the cron job that cancels online orders whose
// payment never arrived within the TTL.
func NewPaymentReaperJob(params PaymentReaperJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultReaperBatch
	}
	return &paymentReaperJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		batch:  batch,
	}, nil
}

type paymentReaperJob struct {
	logg   *logger.Logger
	orders pendingOrderExpirer
	ttl    time.Duration
	batch  int
}

func (j *paymentReaperJob) Name() string { return "pending-payment-reaper" }

func (j *paymentReaperJob) Run(ctx context.Context) error {
	expired, err := j.orders.ExpirePendingOnline(ctx, j.ttl, j.batch)
	if err != nil {
		return fmt.Errorf("expire pending online orders: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"ttl_hours": j.ttl.Hours(),
		"expired":   expired,
	})
	j.logg.Info(logCtx, "pending payment reaper complete")
	return nil
}
