package workers

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/shopdesk-dev/shopdesk/internal/models"
)

// DefaultPurgeSchedule runs the refresh token purge once an hour
const DefaultPurgeSchedule = "@hourly"

// StartTokenPurge purges unusable refresh tokens on schedule. It runs once
// immediately. Stop the returned cron to end the schedule.
func StartTokenPurge(db *gorm.DB, schedule string, logger zerolog.Logger) (*cron.Cron, error) {
	if schedule == "" {
		schedule = DefaultPurgeSchedule
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		purgeAndLog(db, logger)
	}); err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}

	purgeAndLog(db, logger)
	c.Start()

	logger.Info().Str("schedule", schedule).Msg("Refresh token purge scheduled")
	return c, nil
}

func purgeAndLog(db *gorm.DB, logger zerolog.Logger) {
	removed, err := PurgeRefreshTokens(db, time.Now())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to purge refresh tokens")
		return
	}
	if removed > 0 {
		logger.Info().Int64("removed", removed).Msg("Purged refresh tokens")
		return
	}
	logger.Debug().Msg("No refresh tokens to purge")
}

// PurgeRefreshTokens deletes refresh tokens that expired or were revoked before now
func PurgeRefreshTokens(db *gorm.DB, now time.Time) (int64, error) {
	result := db.
		Where("expires_at < ?", now).
		Or("revoked_at IS NOT NULL AND revoked_at < ?", now).
		Delete(&models.RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete refresh tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}
