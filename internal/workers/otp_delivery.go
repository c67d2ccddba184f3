package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/shopdesk-dev/shopdesk/internal/tasks"
)

// Mailer sends one-time login codes
type Mailer interface {
	SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error
}

// LogMailer writes codes to the worker log instead of sending email
type LogMailer struct {
	Log zerolog.Logger
}

// SendOTP logs the code
func (m LogMailer) SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	m.Log.Info().
		Str("email", email).
		Str("code", code).
		Time("expires_at", expiresAt).
		Msg("One-time login code")
	return nil
}

// HandleDeliverOTP delivers the code of an otp:deliver task
func HandleDeliverOTP(ctx context.Context, t *asynq.Task, mailer Mailer, logger zerolog.Logger) error {
	payload, err := tasks.ParseOTPPayload(t)
	if err != nil {
		// A malformed payload will never succeed
		return fmt.Errorf("failed to parse payload: %v: %w", err, asynq.SkipRetry)
	}

	if !payload.ExpiresAt.IsZero() && time.Now().After(payload.ExpiresAt) {
		logger.Warn().
			Str("email", payload.Email).
			Time("expires_at", payload.ExpiresAt).
			Msg("Skipping delivery of expired code")
		return nil
	}

	if err := mailer.SendOTP(ctx, payload.Email, payload.Code, payload.ExpiresAt); err != nil {
		logger.Error().Err(err).Str("email", payload.Email).Msg("Failed to deliver code")
		return fmt.Errorf("failed to deliver code: %w", err)
	}

	logger.Info().Str("email", payload.Email).Msg("Code delivered")
	return nil
}
