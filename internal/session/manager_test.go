package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI records calls and returns canned responses
type fakeAPI struct {
	loginResp   *AuthResponse
	loginErr    error
	otpResp     *AuthResponse
	otpErr      error
	refreshResp *RefreshResponse
	refreshErr  error
	account     *User
	accountErr  error
	logoutErr   error
	storeErr    error
	registerErr error

	calls         []string
	refreshTokens []string
	logoutTokens  []string
	storeCalls    [][2]string
}

func (f *fakeAPI) Register(ctx context.Context, email, username, password string) error {
	f.calls = append(f.calls, "register")
	return f.registerErr
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	f.calls = append(f.calls, "login")
	return f.loginResp, f.loginErr
}

func (f *fakeAPI) RequestOTP(ctx context.Context, email string) error {
	f.calls = append(f.calls, "request-otp")
	return nil
}

func (f *fakeAPI) LoginOTP(ctx context.Context, email, otp string) (*AuthResponse, error) {
	f.calls = append(f.calls, "login-otp")
	return f.otpResp, f.otpErr
}

func (f *fakeAPI) RefreshToken(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	f.calls = append(f.calls, "refresh-token")
	f.refreshTokens = append(f.refreshTokens, refreshToken)
	return f.refreshResp, f.refreshErr
}

func (f *fakeAPI) Logout(ctx context.Context, refreshToken string) error {
	f.calls = append(f.calls, "logout")
	f.logoutTokens = append(f.logoutTokens, refreshToken)
	return f.logoutErr
}

func (f *fakeAPI) GetAccount(ctx context.Context, userID string) (*User, error) {
	f.calls = append(f.calls, "account")
	return f.account, f.accountErr
}

func (f *fakeAPI) SetDefaultStore(ctx context.Context, userID, storeID string) error {
	f.calls = append(f.calls, "default-store")
	f.storeCalls = append(f.storeCalls, [2]string{userID, storeID})
	return f.storeErr
}

func mustUser(t *testing.T, payload string) *User {
	t.Helper()
	var u User
	require.NoError(t, json.Unmarshal([]byte(payload), &u))
	return &u
}

func storedUser(t *testing.T, store Store) map[string]any {
	t.Helper()
	raw, ok, err := store.Get(KeyUser)
	require.NoError(t, err)
	require.True(t, ok, "user should be stored")
	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &fields))
	return fields
}

func storedValue(t *testing.T, store Store, key string) (string, bool) {
	t.Helper()
	v, ok, err := store.Get(key)
	require.NoError(t, err)
	return v, ok
}

func newTestManager(api API, store Store) *Manager {
	m := NewManager(api, store, zerolog.Nop())
	m.Initialize()
	return m
}

func TestLogin_Success(t *testing.T) {
	api := &fakeAPI{loginResp: &AuthResponse{
		Token:        "T1",
		User:         mustUser(t, `{"id":"u1","email":"a@b.com","username":"ab"}`),
		RefreshToken: "R1",
	}}
	store := NewMemoryStore()
	m := newTestManager(api, store)

	require.NoError(t, m.Login(context.Background(), "a@b.com", "pw"))

	assert.True(t, m.IsAuthenticated())
	require.NotNil(t, m.User())
	assert.Equal(t, "u1", m.User().ID)

	token, _ := storedValue(t, store, KeyToken)
	assert.Equal(t, "T1", token)
	rt, _ := storedValue(t, store, KeyRefreshToken)
	assert.Equal(t, "R1", rt)
	assert.Equal(t, "a@b.com", storedUser(t, store)["email"])
	assert.Equal(t, "R1", m.Snapshot().RefreshToken)
}

func TestLogin_WithoutRefreshTokenClearsStaleOne(t *testing.T) {
	api := &fakeAPI{loginResp: &AuthResponse{Token: "T1", User: &User{ID: "u1"}}}
	store := NewMemoryStore()
	require.NoError(t, store.Set(KeyRefreshToken, "old"))
	m := newTestManager(api, store)

	require.NoError(t, m.Login(context.Background(), "a@b.com", "pw"))

	_, ok := storedValue(t, store, KeyRefreshToken)
	assert.False(t, ok)
	assert.Empty(t, m.Snapshot().RefreshToken)
}

func TestLogin_FailureLeavesSessionUntouched(t *testing.T) {
	backendErr := errors.New("invalid credentials")
	api := &fakeAPI{loginErr: backendErr}
	store := NewMemoryStore()
	m := newTestManager(api, store)

	err := m.Login(context.Background(), "a@b.com", "bad")
	require.ErrorIs(t, err, backendErr)
	assert.False(t, m.IsAuthenticated())
	assert.Nil(t, m.User())
	assert.Zero(t, store.Len())
}

func TestLogin_IncompleteResponse(t *testing.T) {
	api := &fakeAPI{loginResp: &AuthResponse{Token: "T1"}}
	store := NewMemoryStore()
	m := newTestManager(api, store)

	err := m.Login(context.Background(), "a@b.com", "pw")
	require.ErrorIs(t, err, ErrIncompleteAuthResponse)
	assert.False(t, m.IsAuthenticated())
	assert.Zero(t, store.Len())
}

func TestLoginWithOTP_Success(t *testing.T) {
	api := &fakeAPI{otpResp: &AuthResponse{Token: "T1", User: &User{ID: "u1", Email: "a@b.com"}, RefreshToken: "R1"}}
	store := NewMemoryStore()
	m := newTestManager(api, store)

	require.NoError(t, m.RequestOTP(context.Background(), "a@b.com"))
	require.NoError(t, m.LoginWithOTP(context.Background(), "a@b.com", "123456"))

	assert.Equal(t, []string{"request-otp", "login-otp"}, api.calls)
	assert.True(t, m.IsAuthenticated())
	token, _ := storedValue(t, store, KeyToken)
	assert.Equal(t, "T1", token)
}

func TestRegister_DoesNotMutateSession(t *testing.T) {
	api := &fakeAPI{}
	store := NewMemoryStore()
	m := newTestManager(api, store)

	require.NoError(t, m.Register(context.Background(), "a@b.com", "ab", "pw"))
	assert.False(t, m.IsAuthenticated())
	assert.Zero(t, store.Len())

	api.registerErr = errors.New("email taken")
	require.ErrorIs(t, m.Register(context.Background(), "a@b.com", "ab", "pw"), api.registerErr)
}

func TestLogout_AlwaysClears(t *testing.T) {
	tests := []struct {
		name      string
		logoutErr error
	}{
		{name: "revoke succeeds", logoutErr: nil},
		{name: "revoke times out", logoutErr: context.DeadlineExceeded},
		{name: "revoke rejected", logoutErr: errors.New("internal server error")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{
				loginResp: &AuthResponse{Token: "T1", User: &User{ID: "u1"}, RefreshToken: "R1"},
				logoutErr: tt.logoutErr,
			}
			store := NewMemoryStore()
			m := newTestManager(api, store)
			require.NoError(t, m.Login(context.Background(), "a@b.com", "pw"))

			require.NoError(t, m.Logout(context.Background()))

			assert.False(t, m.IsAuthenticated())
			assert.Nil(t, m.User())
			assert.Zero(t, store.Len())
			assert.Equal(t, []string{"R1"}, api.logoutTokens)
		})
	}
}

func TestLogout_WithoutRefreshTokenSendsEmptyRevoke(t *testing.T) {
	api := &fakeAPI{}
	m := newTestManager(api, NewMemoryStore())

	require.NoError(t, m.Logout(context.Background()))
	assert.Equal(t, []string{""}, api.logoutTokens)
}

func TestRefreshAuth_NoCredential(t *testing.T) {
	api := &fakeAPI{}
	m := newTestManager(api, NewMemoryStore())

	err := m.RefreshAuth(context.Background(), "")
	require.ErrorIs(t, err, ErrNoRefreshToken)
	assert.Empty(t, api.calls, "no network call expected")
}

func TestRefreshAuth_ResolutionOrder(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(KeyRefreshToken, "from-storage"))
	api := &fakeAPI{refreshResp: &RefreshResponse{Token: "T2"}}
	m := NewManager(api, store, zerolog.Nop())
	m.Initialize()

	require.NoError(t, m.RefreshAuth(context.Background(), ""))
	require.NoError(t, m.RefreshAuth(context.Background(), "explicit"))

	api.loginResp = &AuthResponse{Token: "T1", User: &User{ID: "u1"}, RefreshToken: "in-memory"}
	api.account = &User{ID: "u1"}
	require.NoError(t, m.Login(context.Background(), "a@b.com", "pw"))
	require.NoError(t, store.Set(KeyRefreshToken, "changed-under-us"))
	require.NoError(t, m.RefreshAuth(context.Background(), ""))

	assert.Equal(t, []string{"from-storage", "explicit", "in-memory"}, api.refreshTokens)
}

func TestRefreshAuth_AccountFetchFailureKeepsToken(t *testing.T) {
	api := &fakeAPI{
		loginResp:   &AuthResponse{Token: "T1", User: &User{ID: "u1", Email: "a@b.com"}, RefreshToken: "R1"},
		refreshResp: &RefreshResponse{Token: "T2"},
		accountErr:  errors.New("account service unavailable"),
	}
	store := NewMemoryStore()
	m := newTestManager(api, store)
	require.NoError(t, m.Login(context.Background(), "a@b.com", "pw"))

	require.NoError(t, m.RefreshAuth(context.Background(), ""))

	token, _ := storedValue(t, store, KeyToken)
	assert.Equal(t, "T2", token)
	assert.Equal(t, "T2", m.Snapshot().AccessToken)
	assert.Equal(t, "a@b.com", m.User().Email)
}

func TestRefreshAuth_EmptyAccountKeepsCachedUser(t *testing.T) {
	tests := []struct {
		name    string
		account *User
	}{
		{name: "nil user", account: nil},
		{name: "user without id", account: &User{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{
				loginResp:   &AuthResponse{Token: "T1", User: &User{ID: "u1", Email: "a@b.com"}, RefreshToken: "R1"},
				refreshResp: &RefreshResponse{Token: "T2"},
				account:     tt.account,
			}
			store := NewMemoryStore()
			m := newTestManager(api, store)
			require.NoError(t, m.Login(context.Background(), "a@b.com", "pw"))

			require.NoError(t, m.RefreshAuth(context.Background(), ""))

			assert.Equal(t, "T2", m.Snapshot().AccessToken)
			assert.Equal(t, "u1", m.User().ID)
			assert.Equal(t, "a@b.com", m.User().Email)
			assert.Equal(t, "u1", storedUser(t, store)["id"])
		})
	}
}

func TestRefreshAuth_TokenFailureLeavesSession(t *testing.T) {
	backendErr := errors.New("refresh token revoked")
	api := &fakeAPI{
		loginResp:  &AuthResponse{Token: "T1", User: &User{ID: "u1"}, RefreshToken: "R1"},
		refreshErr: backendErr,
	}
	store := NewMemoryStore()
	m := newTestManager(api, store)
	require.NoError(t, m.Login(context.Background(), "a@b.com", "pw"))

	err := m.RefreshAuth(context.Background(), "")
	require.ErrorIs(t, err, backendErr)

	assert.True(t, m.IsAuthenticated())
	token, _ := storedValue(t, store, KeyToken)
	assert.Equal(t, "T1", token)
	assert.NotContains(t, api.calls, "account")
}

func TestRefreshAuth_SkipsAccountWithoutUser(t *testing.T) {
	api := &fakeAPI{refreshResp: &RefreshResponse{Token: "T2"}}
	store := NewMemoryStore()
	m := newTestManager(api, store)

	require.NoError(t, m.RefreshAuth(context.Background(), "R1"))

	assert.Equal(t, []string{"refresh-token"}, api.calls)
	token, _ := storedValue(t, store, KeyToken)
	assert.Equal(t, "T2", token)
}

func TestRefreshAuth_StoresRotatedRefreshToken(t *testing.T) {
	api := &fakeAPI{refreshResp: &RefreshResponse{Token: "T2", RefreshToken: "R2"}}
	store := NewMemoryStore()
	m := newTestManager(api, store)

	require.NoError(t, m.RefreshAuth(context.Background(), "R1"))

	rt, _ := storedValue(t, store, KeyRefreshToken)
	assert.Equal(t, "R2", rt)
	assert.Equal(t, "R2", m.Snapshot().RefreshToken)
}

func TestSetDefaultStore_AssociationFailureSkipsRefresh(t *testing.T) {
	backendErr := errors.New("store not found")
	api := &fakeAPI{
		loginResp: &AuthResponse{Token: "T1", User: &User{ID: "u1"}, RefreshToken: "R1"},
		storeErr:  backendErr,
	}
	m := newTestManager(api, NewMemoryStore())
	require.NoError(t, m.Login(context.Background(), "a@b.com", "pw"))

	err := m.SetDefaultStore(context.Background(), "u1", "s9")
	require.ErrorIs(t, err, backendErr)
	assert.NotContains(t, api.calls, "refresh-token")
}

func TestSetDefaultStore_RefreshFailurePropagates(t *testing.T) {
	backendErr := errors.New("refresh rejected")
	api := &fakeAPI{
		loginResp:  &AuthResponse{Token: "T1", User: &User{ID: "u1"}, RefreshToken: "R1"},
		refreshErr: backendErr,
	}
	m := newTestManager(api, NewMemoryStore())
	require.NoError(t, m.Login(context.Background(), "a@b.com", "pw"))

	err := m.SetDefaultStore(context.Background(), "u1", "s9")
	require.ErrorIs(t, err, backendErr)
	assert.Equal(t, []string{"login", "default-store", "refresh-token"}, api.calls)
}

func TestSetDefaultStore_NoRefreshTokenPropagates(t *testing.T) {
	api := &fakeAPI{loginResp: &AuthResponse{Token: "T1", User: &User{ID: "u1"}}}
	m := newTestManager(api, NewMemoryStore())
	require.NoError(t, m.Login(context.Background(), "a@b.com", "pw"))

	err := m.SetDefaultStore(context.Background(), "u1", "s9")
	require.ErrorIs(t, err, ErrNoRefreshToken)
	assert.Equal(t, [][2]string{{"u1", "s9"}}, api.storeCalls)
}

func TestInitialize_RoundTrip(t *testing.T) {
	api := &fakeAPI{loginResp: &AuthResponse{
		Token:        "T1",
		User:         mustUser(t, `{"id":"u1","email":"a@b.com","username":"ab","roles":["admin"]}`),
		RefreshToken: "R1",
	}}
	store := NewMemoryStore()
	first := newTestManager(api, store)
	require.NoError(t, first.Login(context.Background(), "a@b.com", "pw"))

	offline := &fakeAPI{}
	second := NewManager(offline, store, zerolog.Nop())
	assert.True(t, second.IsLoading())
	second.Initialize()

	assert.False(t, second.IsLoading())
	assert.Empty(t, offline.calls)
	assert.Equal(t, first.IsAuthenticated(), second.IsAuthenticated())
	assert.Equal(t, first.User().ID, second.User().ID)
	assert.Equal(t, "R1", second.Snapshot().RefreshToken)

	roles, ok := second.User().Claim("roles")
	require.True(t, ok)
	assert.Equal(t, []any{"admin"}, roles)
}

func TestInitialize_EmptyOrPartialStorage(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{name: "empty", values: nil},
		{name: "token without user", values: map[string]string{KeyToken: "T1"}},
		{name: "user without token", values: map[string]string{KeyUser: `{"id":"u1"}`}},
		{name: "corrupt user", values: map[string]string{KeyToken: "T1", KeyUser: "{not json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			for k, v := range tt.values {
				require.NoError(t, store.Set(k, v))
			}
			m := NewManager(&fakeAPI{}, store, zerolog.Nop())
			m.Initialize()

			assert.False(t, m.IsLoading())
			assert.False(t, m.IsAuthenticated())
			assert.Nil(t, m.User())
		})
	}
}

func TestScenario_LoginThenRefreshPicksUpDefaultStore(t *testing.T) {
	api := &fakeAPI{
		loginResp: &AuthResponse{
			Token:        "T1",
			User:         mustUser(t, `{"id":"u1","email":"a@b.com"}`),
			RefreshToken: "R1",
		},
		refreshResp: &RefreshResponse{Token: "T2"},
		account:     mustUser(t, `{"id":"u1","defaultStoreId":"s9"}`),
	}
	store := NewMemoryStore()
	m := newTestManager(api, store)

	require.NoError(t, m.Login(context.Background(), "a@b.com", "pw"))
	token, _ := storedValue(t, store, KeyToken)
	rt, _ := storedValue(t, store, KeyRefreshToken)
	assert.Equal(t, "T1", token)
	assert.Equal(t, "R1", rt)
	assert.Equal(t, "u1", storedUser(t, store)["id"])

	require.NoError(t, m.RefreshAuth(context.Background(), ""))
	token, _ = storedValue(t, store, KeyToken)
	assert.Equal(t, "T2", token)
	assert.Equal(t, "s9", storedUser(t, store)["defaultStoreId"])
	assert.Equal(t, "s9", m.User().DefaultStoreID())
}

func TestSubscribe(t *testing.T) {
	api := &fakeAPI{loginResp: &AuthResponse{Token: "T1", User: &User{ID: "u1"}}}
	m := newTestManager(api, NewMemoryStore())

	var seen []bool
	unsubscribe := m.Subscribe(func(s State) {
		seen = append(seen, s.Authenticated)
	})

	require.NoError(t, m.Login(context.Background(), "a@b.com", "pw"))
	require.NoError(t, m.Logout(context.Background()))
	unsubscribe()
	require.NoError(t, m.Login(context.Background(), "a@b.com", "pw"))

	assert.Equal(t, []bool{true, false}, seen)
}

// failingStore rejects writes
type failingStore struct {
	*MemoryStore
}

func (s failingStore) Set(key, value string) error {
	return errors.New("keychain locked")
}

func (s failingStore) Delete(key string) error {
	return errors.New("keychain locked")
}

func TestLogin_StorageFailureLeavesMemoryUntouched(t *testing.T) {
	api := &fakeAPI{loginResp: &AuthResponse{Token: "T1", User: &User{ID: "u1"}}}
	m := newTestManager(api, failingStore{NewMemoryStore()})

	err := m.Login(context.Background(), "a@b.com", "pw")
	require.Error(t, err)
	assert.False(t, m.IsAuthenticated())
}

func TestLogout_StorageFailureStillClearsMemory(t *testing.T) {
	store := failingStore{NewMemoryStore()}
	require.NoError(t, store.MemoryStore.Set(KeyToken, "T1"))
	require.NoError(t, store.MemoryStore.Set(KeyUser, `{"id":"u1"}`))
	m := newTestManager(&fakeAPI{}, store)
	require.True(t, m.IsAuthenticated())

	err := m.Logout(context.Background())
	require.Error(t, err)
	assert.False(t, m.IsAuthenticated())
}
