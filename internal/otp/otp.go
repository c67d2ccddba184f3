// Package otp issues and verifies one-time login codes.
//
// Codes are six digits, kept in Redis as a bcrypt hash next to an attempt
// counter, and expire with the key TTL. A code is consumed by the first
// successful verification and discarded after MaxAttempts wrong guesses.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shopdesk-dev/shopdesk/internal/assert"
	"github.com/shopdesk-dev/shopdesk/internal/auth"
)

// MaxAttempts is the number of wrong codes tolerated before a code is dropped
const MaxAttempts = 5

const codeDigits = 6

var (
	// ErrCodeNotFound means no live code exists for the email
	ErrCodeNotFound = errors.New("no active code for this email")
	// ErrInvalidCode means the code did not match
	ErrInvalidCode = errors.New("invalid code")
	// ErrTooManyAttempts means the code was dropped after MaxAttempts failures
	ErrTooManyAttempts = errors.New("too many attempts, request a new code")
)

// Store keeps hashed codes in Redis
type Store struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewStore constructs a Redis-backed code store
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{client: client, ttl: ttl, prefix: "otp:code:"}
}

// TTL returns how long an issued code stays valid
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) key(email string) string {
	return s.prefix + NormalizeEmail(email)
}

// Issue generates a new code for email, replacing any previous one
func (s *Store) Issue(ctx context.Context, email string) (code string, expiresAt time.Time, err error) {
	code, err = GenerateCode()
	if err != nil {
		return "", time.Time{}, err
	}

	hash, err := auth.HashPassword(code)
	if err != nil {
		return "", time.Time{}, err
	}

	key := s.key(email)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "hash", hash, "attempts", 0)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to store code: %w", err)
	}

	return code, time.Now().Add(s.ttl), nil
}

// Verify checks code for email and consumes it on success
func (s *Store) Verify(ctx context.Context, email, code string) error {
	key := s.key(email)

	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to load code: %w", err)
	}
	hash, ok := fields["hash"]
	if !ok {
		return ErrCodeNotFound
	}

	attempts, _ := strconv.Atoi(fields["attempts"])
	if attempts >= MaxAttempts {
		s.client.Del(ctx, key)
		return ErrTooManyAttempts
	}

	if auth.VerifyPassword(code, hash) != nil {
		n, err := s.client.HIncrBy(ctx, key, "attempts", 1).Result()
		if err != nil {
			return fmt.Errorf("failed to record attempt: %w", err)
		}
		if n >= MaxAttempts {
			s.client.Del(ctx, key)
			return ErrTooManyAttempts
		}
		return ErrInvalidCode
	}

	// Only the caller that deletes the key gets to use the code.
	deleted, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to consume code: %w", err)
	}
	if deleted == 0 {
		return ErrCodeNotFound
	}
	return nil
}

// GenerateCode returns a uniformly random zero-padded six digit code
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	code := fmt.Sprintf("%0*d", codeDigits, n.Int64())
	assert.Length(code, codeDigits)
	return code, nil
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
