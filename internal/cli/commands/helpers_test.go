package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shopdesk-dev/shopdesk/internal/cli/config"
	"github.com/shopdesk-dev/shopdesk/internal/cli/prompt"
	"github.com/shopdesk-dev/shopdesk/internal/session"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "secret123"
	testOTP      = "123456"
)

// mockBackend is an in-memory shopdesk API
type mockBackend struct {
	t      *testing.T
	server *httptest.Server

	mu            sync.Mutex
	requests      []string
	accessToken   string
	refreshToken  string
	defaultStore  string
	issued        int
	revoked       []string
	otpRequested  []string
	registered    []map[string]string
	records       map[string][]map[string]any
	deleted       []string
	uploaded      string
	lastQuery     string
	rotateRefresh bool
}

func newMockBackend(t *testing.T) *mockBackend {
	t.Helper()

	b := &mockBackend{
		t: t,
		records: map[string][]map[string]any{
			"/stores": {
				{"id": "s1", "name": "Main Street"},
				{"id": "s9", "name": "Harbour"},
			},
			"/stores/s9/products": {
				{"id": "p1", "name": "Milk", "price": 3.5, "quantity": float64(12)},
			},
			"/stores/s9/orders": {
				{"id": "o1", "storeId": "s9", "status": "cart"},
			},
			"/brands/store/s9":     {{"id": "b1", "name": "Acme"}},
			"/categories/store/s9": {},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", b.handleLogin)
	mux.HandleFunc("POST /login-otp", b.handleLoginOTP)
	mux.HandleFunc("POST /request-otp", b.handleRequestOTP)
	mux.HandleFunc("POST /register", b.handleRegister)
	mux.HandleFunc("POST /refresh-token", b.handleRefresh)
	mux.HandleFunc("POST /logout", b.handleLogout)
	mux.HandleFunc("GET /account/{id}", b.authed(b.handleGetAccount))
	mux.HandleFunc("POST /account/{id}/default-store", b.authed(b.handleDefaultStore))
	mux.HandleFunc("POST /upload", b.authed(b.handleUpload))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": "shopdesk"})
	})
	mux.HandleFunc("GET /", b.authed(b.handleList))
	mux.HandleFunc("POST /", b.authed(b.handleCreate))
	mux.HandleFunc("PATCH /", b.authed(b.handleUpdate))
	mux.HandleFunc("DELETE /", b.authed(b.handleDelete))

	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, r.Method+" "+r.URL.Path)
		b.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(b.server.Close)

	return b
}

func (b *mockBackend) URL() string { return b.server.URL }

func (b *mockBackend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

func (b *mockBackend) user() map[string]any {
	u := map[string]any{"id": "u1", "email": testEmail, "username": "ada", "name": "Ada"}
	if b.defaultStore != "" {
		u["defaultStoreId"] = b.defaultStore
	}
	return u
}

// issueTokenLocked signs a new access token carrying the default store
func (b *mockBackend) issueTokenLocked() string {
	b.issued++
	claims := jwt.MapClaims{
		"user_id":  "u1",
		"email":    testEmail,
		"store_id": b.defaultStore,
		"n":        b.issued,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		b.t.Fatalf("failed to sign token: %v", err)
	}
	b.accessToken = token
	return token
}

func (b *mockBackend) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		ok := b.accessToken != "" && r.Header.Get("Authorization") == "Bearer "+b.accessToken
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid token"})
			return
		}
		next(w, r)
	}
}

func (b *mockBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req["email"] != testEmail || req["password"] != testPassword {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid credentials"})
		return
	}
	b.writeAuth(w)
}

func (b *mockBackend) handleLoginOTP(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req["email"] != testEmail || req["otp"] != testOTP {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid or expired code"})
		return
	}
	b.writeAuth(w)
}

func (b *mockBackend) writeAuth(w http.ResponseWriter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshToken = "r1"
	writeJSON(w, http.StatusOK, map[string]any{
		"token":        b.issueTokenLocked(),
		"user":         b.user(),
		"refreshToken": b.refreshToken,
	})
}

func (b *mockBackend) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	_ = json.NewDecoder(r.Body).Decode(&req)
	b.mu.Lock()
	b.otpRequested = append(b.otpRequested, req["email"])
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "code sent"})
}

func (b *mockBackend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req["email"] == testEmail {
		writeJSON(w, http.StatusConflict, map[string]any{"error": "email already registered"})
		return
	}
	b.mu.Lock()
	b.registered = append(b.registered, req)
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"user": map[string]any{"id": "u2", "email": req["email"]}})
}

func (b *mockBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	if req["refreshToken"] == "" || req["refreshToken"] != b.refreshToken {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid refresh token"})
		return
	}

	resp := map[string]any{"token": b.issueTokenLocked()}
	if b.rotateRefresh {
		b.refreshToken = fmt.Sprintf("r%d", b.issued)
		resp["refreshToken"] = b.refreshToken
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *mockBackend) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	_ = json.NewDecoder(r.Body).Decode(&req)
	b.mu.Lock()
	b.revoked = append(b.revoked, req["refreshToken"])
	b.refreshToken = ""
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "logged out"})
}

func (b *mockBackend) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"user": b.user()})
}

func (b *mockBackend) handleDefaultStore(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	_ = json.NewDecoder(r.Body).Decode(&req)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.defaultStore = req["storeId"]
	writeJSON(w, http.StatusOK, map[string]any{"user": b.user()})
}

func (b *mockBackend) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "file is required"})
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(file)

	b.mu.Lock()
	b.uploaded = buf.String()
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"url":      "/uploads/" + header.Filename,
		"filename": header.Filename,
		"size":     buf.Len(),
	})
}

func (b *mockBackend) handleList(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastQuery = r.URL.RawQuery

	if rows, ok := b.records[r.URL.Path]; ok {
		writeJSON(w, http.StatusOK, rows)
		return
	}

	// item lookup: /<res>/<id>
	dir, id := filepath.Split(r.URL.Path)
	for _, row := range b.records[strings.TrimSuffix(dir, "/")] {
		if row["id"] == id {
			writeJSON(w, http.StatusOK, row)
			return
		}
	}

	if strings.Count(r.URL.Path, "/") == 1 {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
}

func (b *mockBackend) handleCreate(w http.ResponseWriter, r *http.Request) {
	var row map[string]any
	_ = json.NewDecoder(r.Body).Decode(&row)

	b.mu.Lock()
	defer b.mu.Unlock()
	row["id"] = fmt.Sprintf("new-%d", len(b.records[r.URL.Path])+1)
	b.records[r.URL.Path] = append(b.records[r.URL.Path], row)
	writeJSON(w, http.StatusCreated, row)
}

func (b *mockBackend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	_ = json.NewDecoder(r.Body).Decode(&patch)
	patch["id"] = filepath.Base(r.URL.Path)
	writeJSON(w, http.StatusOK, patch)
}

func (b *mockBackend) handleDelete(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.deleted = append(b.deleted, r.URL.Path)
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fakeConfirmer answers every confirmation with answer
type fakeConfirmer struct {
	answer bool
	asked  []string
}

func (f *fakeConfirmer) Confirm(label string) (bool, error) {
	f.asked = append(f.asked, label)
	return f.answer, nil
}

// fakeSelector picks the option with the given value
type fakeSelector struct {
	value string
}

func (f *fakeSelector) Select(label string, options []prompt.Option) (prompt.Option, error) {
	for _, o := range options {
		if o.Value == f.value {
			return o, nil
		}
	}
	return prompt.Option{}, fmt.Errorf("option %q not offered", f.value)
}

// testEnv is a project directory with one configured server and a session
// store that survives across command runs, like the keyring does
type testEnv struct {
	t         *testing.T
	backend   *mockBackend
	store     *session.MemoryStore
	confirmer *fakeConfirmer
	selector  *fakeSelector
}

func setupTestEnvironment(t *testing.T) *testEnv {
	t.Helper()

	backend := newMockBackend(t)

	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SHOPDESK_SERVER", "")
	t.Setenv("SHOPDESK_EMAIL", "")
	t.Setenv("SHOPDESK_PASSWORD", "")

	cfg := &config.Config{Servers: []config.Server{{URL: backend.URL(), Alias: "test"}}}
	if err := config.Save(filepath.Join(dir, config.ConfigFileName), cfg); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Chdir(dir)

	return &testEnv{
		t:         t,
		backend:   backend,
		store:     session.NewMemoryStore(),
		confirmer: &fakeConfirmer{},
		selector:  &fakeSelector{},
	}
}

// run executes one CLI invocation with a fresh App and returns its output
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()

	var out bytes.Buffer
	app := &App{
		Out: &out,
		Err: &out,
		StoreFactory: func(server string) (session.Store, error) {
			return e.store, nil
		},
		Confirmer: e.confirmer,
		Selector:  e.selector,
		Log:       zerolog.Nop(),
	}

	root := &cobra.Command{
		Use:           "shopdesk",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.Guard(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&app.ServerFlag, "server", "s", "", "")
	root.PersistentFlags().StringVarP(&app.OutputFlag, "output", "o", "", "")
	root.AddCommand(
		NewInitCmd(app),
		NewSelectServerCmd(app),
		NewRegisterCmd(app),
		NewLoginCmd(app),
		NewOTPCmd(app),
		NewLogoutCmd(app),
		NewRefreshCmd(app),
		NewStatusCmd(app),
		NewStoreCmd(app),
		NewUploadCmd(app),
		NewDashCmd(app),
		NewConfigCmd(app),
	)
	root.AddCommand(NewResourceCmds(app)...)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) login() {
	e.t.Helper()
	if _, err := e.run("login", "--email", testEmail, "--password", testPassword); err != nil {
		e.t.Fatalf("login failed: %v", err)
	}
}

func (e *testEnv) stored(key string) string {
	value, _, _ := e.store.Get(key)
	return value
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}
