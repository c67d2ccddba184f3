// Package session owns the client-side authentication lifecycle: hydrating a
// session from durable storage, logging in, refreshing the access token,
// switching the default store and logging out.
//
// A Manager is the only writer of its session. Every mutating operation writes
// through to the Store before it updates memory, so a failed write leaves the
// in-memory session as it was. Operations do not hold locks across network
// calls: callers that overlap two operations on one Manager get their storage
// writes in undefined order.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// State is a point-in-time copy of a session
type State struct {
	AccessToken   string
	RefreshToken  string
	User          *User
	Hydrated      bool
	Authenticated bool
}

// Manager implements the session operations against an API and a Store
type Manager struct {
	api   API
	store Store
	log   zerolog.Logger

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	user         *User
	hydrated     bool

	subMu       sync.Mutex
	subscribers map[int]func(State)
	nextSubID   int
}

// NewManager creates a Manager. The session is empty until Initialize is called.
func NewManager(api API, store Store, log zerolog.Logger) *Manager {
	return &Manager{
		api:         api,
		store:       store,
		log:         log.With().Str("component", "session").Logger(),
		subscribers: make(map[int]func(State)),
	}
}

// Initialize hydrates the session from durable storage. A stored access token
// and user are trusted as-is; no network call is made. Hydration is marked
// complete whatever was found, and later calls are no-ops.
func (m *Manager) Initialize() {
	m.mu.RLock()
	done := m.hydrated
	m.mu.RUnlock()
	if done {
		return
	}

	token := m.read(KeyToken)
	rawUser := m.read(KeyUser)
	refreshToken := m.read(KeyRefreshToken)

	var user *User
	if token != "" && rawUser != "" {
		u, err := decodeUser(rawUser)
		if err != nil {
			m.log.Warn().Err(err).Msg("Ignoring corrupt stored user")
		} else {
			user = u
		}
	}

	m.mu.Lock()
	if user != nil {
		m.accessToken = token
		m.user = user
		m.refreshToken = refreshToken
	}
	m.hydrated = true
	m.mu.Unlock()

	m.log.Debug().Bool("authenticated", user != nil).Msg("Session hydrated")
	m.notify()
}

// Login authenticates with email and password. On failure the backend error is
// returned unchanged and the session is not modified.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	resp, err := m.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return m.establish(resp)
}

// LoginWithOTP authenticates with a one-time code previously requested with
// RequestOTP. Same contract as Login.
func (m *Manager) LoginWithOTP(ctx context.Context, email, otp string) error {
	resp, err := m.api.LoginOTP(ctx, email, otp)
	if err != nil {
		return err
	}
	return m.establish(resp)
}

// Register creates an account. It does not log in.
func (m *Manager) Register(ctx context.Context, email, username, password string) error {
	return m.api.Register(ctx, email, username, password)
}

// RequestOTP asks the backend to send a one-time code to email
func (m *Manager) RequestOTP(ctx context.Context, email string) error {
	return m.api.RequestOTP(ctx, email)
}

// RefreshAuth exchanges a refresh token for a new access token. The token is
// taken from explicitRefreshToken, then memory, then durable storage; if none
// is found ErrNoRefreshToken is returned without contacting the backend.
//
// When a user is cached the account is fetched again so claims tied to the new
// token (such as the default store) are reflected in the profile. A failure of
// that fetch is logged and ignored: the new access token is kept.
func (m *Manager) RefreshAuth(ctx context.Context, explicitRefreshToken string) error {
	refreshToken := m.resolveRefreshToken(explicitRefreshToken)
	if refreshToken == "" {
		return ErrNoRefreshToken
	}

	resp, err := m.api.RefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	if resp == nil || resp.Token == "" {
		return ErrIncompleteAuthResponse
	}

	if err := m.store.Set(KeyToken, resp.Token); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	if resp.RefreshToken != "" {
		if err := m.store.Set(KeyRefreshToken, resp.RefreshToken); err != nil {
			return fmt.Errorf("failed to save refresh token: %w", err)
		}
	}

	m.mu.Lock()
	m.accessToken = resp.Token
	if resp.RefreshToken != "" {
		m.refreshToken = resp.RefreshToken
	}
	var userID string
	if m.user != nil {
		userID = m.user.ID
	}
	m.mu.Unlock()
	m.notify()

	if userID == "" {
		return nil
	}

	user, err := m.api.GetAccount(ctx, userID)
	if err == nil && (user == nil || user.ID == "") {
		err = ErrIncompleteAccount
	}
	if err != nil {
		m.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to refresh account after token refresh")
		return nil
	}
	if err := m.saveUser(user); err != nil {
		m.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to save refreshed account")
		return nil
	}

	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
	m.notify()

	return nil
}

// Logout revokes the refresh token server-side on a best-effort basis and then
// clears the session from memory and durable storage. Backend and network
// failures never stop the local logout. Storage failures are returned after
// memory has been cleared.
func (m *Manager) Logout(ctx context.Context) error {
	refreshToken := m.resolveRefreshToken("")
	if err := m.api.Logout(ctx, refreshToken); err != nil {
		m.log.Debug().Err(err).Msg("Ignoring refresh token revoke failure")
	}

	m.mu.Lock()
	m.accessToken = ""
	m.refreshToken = ""
	m.user = nil
	m.mu.Unlock()
	m.notify()

	var errs []error
	for _, key := range Keys {
		if err := m.store.Delete(key); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// SetDefaultStore associates storeID with the user and then refreshes the
// session so the access token and cached user carry the new store. Errors from
// either step are returned; the refresh is skipped if the association fails.
func (m *Manager) SetDefaultStore(ctx context.Context, userID, storeID string) error {
	if err := m.api.SetDefaultStore(ctx, userID, storeID); err != nil {
		return err
	}
	return m.RefreshAuth(ctx, "")
}

// Snapshot returns a copy of the current session
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// IsAuthenticated reports whether an access token is held
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken != ""
}

// IsLoading reports whether Initialize has not completed yet
func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.hydrated
}

// User returns the cached user, or nil
func (m *Manager) User() *User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

// Subscribe registers fn to be called with the new state after every change.
// The returned function removes the subscription.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.subMu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subscribers, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) establish(resp *AuthResponse) error {
	if resp == nil || resp.Token == "" || resp.User == nil {
		return ErrIncompleteAuthResponse
	}

	if err := m.store.Set(KeyToken, resp.Token); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	if err := m.saveUser(resp.User); err != nil {
		return err
	}
	// A refresh token left over from an earlier session must not outlive it.
	if resp.RefreshToken != "" {
		if err := m.store.Set(KeyRefreshToken, resp.RefreshToken); err != nil {
			return fmt.Errorf("failed to save refresh token: %w", err)
		}
	} else if err := m.store.Delete(KeyRefreshToken); err != nil {
		return fmt.Errorf("failed to delete stale refresh token: %w", err)
	}

	m.mu.Lock()
	m.accessToken = resp.Token
	m.user = resp.User
	m.refreshToken = resp.RefreshToken
	m.mu.Unlock()

	m.log.Debug().Str("user_id", resp.User.ID).Bool("refresh_token", resp.RefreshToken != "").Msg("Session established")
	m.notify()
	return nil
}

func (m *Manager) saveUser(u *User) error {
	data, err := encodeUser(u)
	if err != nil {
		return err
	}
	if err := m.store.Set(KeyUser, data); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (m *Manager) resolveRefreshToken(explicit string) string {
	if explicit != "" {
		return explicit
	}
	m.mu.RLock()
	cached := m.refreshToken
	m.mu.RUnlock()
	if cached != "" {
		return cached
	}
	return m.read(KeyRefreshToken)
}

// read treats storage errors as a missing value.
func (m *Manager) read(key string) string {
	v, ok, err := m.store.Get(key)
	if err != nil {
		m.log.Warn().Err(err).Str("key", key).Msg("Failed to read session storage")
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

func (m *Manager) snapshotLocked() State {
	return State{
		AccessToken:   m.accessToken,
		RefreshToken:  m.refreshToken,
		User:          m.user,
		Hydrated:      m.hydrated,
		Authenticated: m.accessToken != "",
	}
}

func (m *Manager) notify() {
	state := m.Snapshot()

	m.subMu.Lock()
	fns := make([]func(State), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
