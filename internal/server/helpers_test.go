package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shopdesk-dev/shopdesk/internal/config"
	"github.com/shopdesk-dev/shopdesk/internal/tasks"
)

const (
	testEmail    = "ada@example.com"
	testUsername = "ada"
	testPassword = "secret123"
)

// fakeEnqueuer records enqueued tasks instead of sending them to Redis
type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: fmt.Sprintf("task-%d", len(f.tasks)), Type: task.Type()}, nil
}

// lastCode returns the code of the most recent otp:deliver task
func (f *fakeEnqueuer) lastCode(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.tasks, "no task enqueued")
	payload, err := tasks.ParseOTPPayload(f.tasks[len(f.tasks)-1])
	require.NoError(t, err)
	return payload.Code
}

type testServer struct {
	*Server
	tasks *fakeEnqueuer
	mr    *miniredis.Miniredis
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{Addr: ":0", CORSOrigins: []string{"http://localhost:5173"}},
		Auth: config.AuthConfig{
			AccessTokenTTL:   15 * time.Minute,
			RefreshTokenTTL:  24 * time.Hour,
			OTPTTL:           10 * time.Minute,
			OTPRatePerMinute: 3,
		},
		Uploads: config.UploadsConfig{Dir: t.TempDir()},
	}
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	dsn := fmt.Sprintf("file:server-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	enqueuer := &fakeEnqueuer{}
	srv, err := NewWithDeps(testConfig(t), zerolog.Nop(), "test", db, redisClient, enqueuer)
	require.NoError(t, err)
	srv.closers = append(srv.closers, redisClient.Close)
	t.Cleanup(func() { _ = srv.Close() })

	return &testServer{Server: srv, tasks: enqueuer, mr: mr}
}

type response struct {
	Code int
	Body map[string]any
	List []map[string]any
	Raw  string
}

// do sends a JSON request through the router
func (ts *testServer) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)

	resp := response{Code: rec.Code, Raw: rec.Body.String()}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp.Body); err != nil {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp.List)
	}
	return resp
}

// registerAndLogin creates the test account and returns its tokens and ID
func (ts *testServer) registerAndLogin(t *testing.T) (token, refreshToken, userID string) {
	t.Helper()

	resp := ts.do(t, http.MethodPost, "/register", "", map[string]string{
		"email": testEmail, "username": testUsername, "password": testPassword, "name": "Ada Lovelace",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Raw)

	resp = ts.do(t, http.MethodPost, "/login", "", map[string]string{
		"email": testEmail, "password": testPassword,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Raw)

	user := resp.Body["user"].(map[string]any)
	return resp.Body["token"].(string), resp.Body["refreshToken"].(string), user["id"].(string)
}

func (ts *testServer) createStore(t *testing.T, token, name string) string {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/stores", token, map[string]any{"name": name})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Raw)
	return resp.Body["id"].(string)
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func serve(ts *testServer, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}
