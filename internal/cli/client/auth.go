package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopdesk-dev/shopdesk/internal/session"
)

var _ session.API = (*Client)(nil)

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OTPRequest represents the one-time code request and verification bodies
type OTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp,omitempty"`
}

// RefreshRequest carries the refresh token for /refresh-token and /logout
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// DefaultStoreRequest represents the default store association body
type DefaultStoreRequest struct {
	StoreID string `json:"storeId"`
}

// Register creates a new account
func (c *Client) Register(ctx context.Context, email, username, password string) error {
	req := RegisterRequest{Email: email, Username: username, Password: password}
	return c.do(ctx, "register", http.MethodPost, "/register", req, nil)
}

// Login authenticates with email and password
func (c *Client) Login(ctx context.Context, email, password string) (*session.AuthResponse, error) {
	var resp session.AuthResponse
	req := LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, "login", http.MethodPost, "/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RequestOTP asks the server to send a one-time login code
func (c *Client) RequestOTP(ctx context.Context, email string) error {
	return c.do(ctx, "request OTP", http.MethodPost, "/request-otp", OTPRequest{Email: email}, nil)
}

// LoginOTP authenticates with a one-time login code
func (c *Client) LoginOTP(ctx context.Context, email, otp string) (*session.AuthResponse, error) {
	var resp session.AuthResponse
	req := OTPRequest{Email: email, OTP: otp}
	if err := c.do(ctx, "OTP login", http.MethodPost, "/login-otp", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefreshToken exchanges a refresh token for a new access token
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*session.RefreshResponse, error) {
	var resp session.RefreshResponse
	req := RefreshRequest{RefreshToken: refreshToken}
	if err := c.do(ctx, "token refresh", http.MethodPost, "/refresh-token", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout revokes refreshToken. With an empty token an empty body is sent.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.do(ctx, "logout", http.MethodPost, "/logout", RefreshRequest{RefreshToken: refreshToken}, nil)
}

// GetAccount fetches the account profile. Both a {"user": {...}} envelope and
// a bare user object are accepted.
func (c *Client) GetAccount(ctx context.Context, userID string) (*session.User, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/account/%s", url.PathEscape(userID))
	if err := c.do(ctx, "get account", http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	var envelope struct {
		User json.RawMessage `json:"user"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.User) > 0 && string(envelope.User) != "null" {
		raw = envelope.User
	}

	var user session.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	if user.ID == "" {
		return nil, session.ErrIncompleteAccount
	}
	return &user, nil
}

// SetDefaultStore associates a default store with the account
func (c *Client) SetDefaultStore(ctx context.Context, userID, storeID string) error {
	path := fmt.Sprintf("/account/%s/default-store", url.PathEscape(userID))
	return c.do(ctx, "set default store", http.MethodPost, path, DefaultStoreRequest{StoreID: storeID}, nil)
}
