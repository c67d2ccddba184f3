package session

import "context"

// AuthResponse is what the backend returns from password and OTP login
type AuthResponse struct {
	Token        string `json:"token"`
	User         *User  `json:"user"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// RefreshResponse is what the backend returns from the refresh endpoint.
// RefreshToken is only set by backends that rotate refresh tokens.
type RefreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// API is the subset of backend endpoints the Manager drives
type API interface {
	Register(ctx context.Context, email, username, password string) error
	Login(ctx context.Context, email, password string) (*AuthResponse, error)
	RequestOTP(ctx context.Context, email string) error
	LoginOTP(ctx context.Context, email, otp string) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*RefreshResponse, error)
	// Logout revokes refreshToken server-side. An empty token sends an empty revoke request.
	Logout(ctx context.Context, refreshToken string) error
	GetAccount(ctx context.Context, userID string) (*User, error)
	SetDefaultStore(ctx context.Context, userID, storeID string) error
}
