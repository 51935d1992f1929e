package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/gymdesk-backend/pkg/logger"
)

const subscriptionExpiryJobName = "subscription_expiry"

type lapsedSubscriptionExpirer interface {
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}

// SubscriptionExpiryJobParams configures the subscription expiry job.
type SubscriptionExpiryJobParams struct {
	Logger        *logger.Logger
	Subscriptions lapsedSubscriptionExpirer
	Now           func() time.Time
}

// NewSubscriptionExpiryJob builds the job that marks lapsed subscriptions
// expired, so they no longer feed license expiry at issuance.
func NewSubscriptionExpiryJob(params SubscriptionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &subscriptionExpiryJob{
		logg: params.Logger,
		subs: params.Subscriptions,
		now:  now,
	}, nil
}

type subscriptionExpiryJob struct {
	logg *logger.Logger
	subs lapsedSubscriptionExpirer
	now  func() time.Time
}

func (j *subscriptionExpiryJob) Name() string { return subscriptionExpiryJobName }

func (j *subscriptionExpiryJob) Run(ctx context.Context) error {
	expired, err := j.subs.ExpireLapsed(ctx, j.now())
	if err != nil {
		return fmt.Errorf("expire lapsed subscriptions: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "expired", expired), "lapsed subscriptions expired")
	return nil
}
