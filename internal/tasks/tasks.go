package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	// One-time login code delivery
	TypeDeliverOTP = "otp:deliver"
)

// Queue names, in priority order
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// OTPPayload is the payload of an otp:deliver task
type OTPPayload struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewDeliverOTPTask creates a task that sends a one-time code to email.
// The task expires together with the code.
func NewDeliverOTPTask(email, code string, expiresAt time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(OTPPayload{
		Email:     email,
		Code:      code,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeDeliverOTP, payload,
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(3),
		asynq.Deadline(expiresAt),
	), nil
}

// ParseOTPPayload parses an otp:deliver payload from an Asynq task
func ParseOTPPayload(task *asynq.Task) (OTPPayload, error) {
	var payload OTPPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.Email == "" || payload.Code == "" {
		return payload, fmt.Errorf("otp payload is missing email or code")
	}
	return payload, nil
}
