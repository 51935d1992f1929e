package cron

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/angelmondragon/gymdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gymdesk-backend/pkg/logger"
	"github.com/angelmondragon/gymdesk-backend/pkg/metrics"
)

const (
	licenseExpiryJobName       = "license_expiry_report"
	defaultExpiryWarningWindow = 14 * 24 * time.Hour
	defaultExpiryReportLimit   = 500
)

type expiringLicenseLister interface {
	ListLicensesExpiringBetween(ctx context.Context, from, to time.Time, limit int) ([]models.Gym, error)
}

// LicenseExpiryJobParams configures the license expiry report.
type LicenseExpiryJobParams struct {
	Logger  *logger.Logger
	Gyms    expiringLicenseLister
	Metrics *metrics.CronJobMetrics
	Window  time.Duration
	Limit   int
	Now     func() time.Time
}

// NewLicenseExpiryJob builds the job that warns about activated licenses
// nearing their expiry.
func NewLicenseExpiryJob(params LicenseExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Gyms == nil {
		return nil, fmt.Errorf("gym repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	window := params.Window
	if window <= 0 {
		window = defaultExpiryWarningWindow
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultExpiryReportLimit
	}
	return &licenseExpiryJob{
		logg:    params.Logger,
		gyms:    params.Gyms,
		metrics: params.Metrics,
		window:  window,
		limit:   limit,
		now:     now,
	}, nil
}

type licenseExpiryJob struct {
	logg    *logger.Logger
	gyms    expiringLicenseLister
	metrics *metrics.CronJobMetrics
	window  time.Duration
	limit   int
	now     func() time.Time
}

func (j *licenseExpiryJob) Name() string { return licenseExpiryJobName }

func (j *licenseExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	expiring, err := j.gyms.ListLicensesExpiringBetween(ctx, now, now.Add(j.window), j.limit)
	if err != nil {
		return fmt.Errorf("list expiring licenses: %w", err)
	}

	for _, gym := range expiring {
		if gym.LicenseKeyExpiresAt == nil {
			continue
		}
		left := gym.LicenseKeyExpiresAt.Sub(now)
		gymCtx := j.logg.WithGymID(ctx, gym.ID)
		gymCtx = j.logg.WithFields(gymCtx, map[string]any{
			"expires_at": gym.LicenseKeyExpiresAt.UTC().Format(time.RFC3339),
			"days_left":  int(math.Ceil(left.Hours() / 24)),
		})
		if gym.OwnerID != nil {
			gymCtx = j.logg.WithOwnerID(gymCtx, *gym.OwnerID)
		}
		j.logg.Warn(gymCtx, "license.expiring")
	}

	j.metrics.SetExpiringLicenses(len(expiring))
	j.logg.Info(j.logg.WithField(ctx, "expiring", len(expiring)), "license expiry report complete")
	return nil
}
