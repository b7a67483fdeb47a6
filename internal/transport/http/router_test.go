package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-tasks-api/internal/application/auth"
	"github.com/go-tasks-api/internal/application/otp"
	"github.com/go-tasks-api/internal/application/task"
	"github.com/go-tasks-api/internal/config"
	jwtinfra "github.com/go-tasks-api/internal/infrastructure/jwt"
	"github.com/go-tasks-api/internal/infrastructure/memory"
	"github.com/go-tasks-api/internal/infrastructure/metrics"
	"github.com/go-tasks-api/internal/pkg/keylock"
	"github.com/go-tasks-api/internal/pkg/secret"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type captureNotifier struct {
	mu    sync.Mutex
	codes map[string]string
}

func (n *captureNotifier) SendCode(_ context.Context, email, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes[email] = code
	return nil
}

func (n *captureNotifier) last(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[email]
}

type testServer struct {
	handler  http.Handler
	notifier *captureNotifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	accounts := memory.NewAccountRepo()
	locks := keylock.New()
	codec := secret.New(bcrypt.MinCost, "pepper")
	notifier := &captureNotifier{codes: make(map[string]string)}
	rec := metrics.New()

	tasks := task.NewService(task.ServiceDeps{TaskRepo: memory.NewTaskRepo(), AccountRepo: accounts, Locks: locks})
	authSvc := auth.NewService(auth.ServiceDeps{
		AccountRepo: accounts,
		Ledger:      otp.NewLedger(memory.NewOTPRepo(), codec, 10*time.Minute),
		Codec:       codec,
		Issuer:      jwtinfra.NewHMACProvider([]byte("router-secret"), 7*24*time.Hour),
		Notifier:    notifier,
		Tasks:       tasks,
		Locks:       locks,
		Metrics:     rec,
		IOTimeout:   time.Second,
	})

	cfg := &config.Config{APIPrefix: "/api", AllowedOrigins: []string{"*"}}
	return &testServer{
		handler:  NewRouter(cfg, &Deps{Auth: authSvc, Tasks: tasks, Metrics: rec.Handler()}),
		notifier: notifier,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	var out map[string]interface{}
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	}
	return rr.Code, out
}

type creds struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

const (
	email    = "ana@example.com"
	password = "Abcdef1!"
)

func (s *testServer) registerAndVerify(t *testing.T) string {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/api/auth/register", "", creds{email, password})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, email, body["email"])
	assert.Equal(t, "Registration successful! OTP sent to your email.", body["message"])

	code, body = s.do(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]string{
		"email": email, "otp": s.notifier.last(email),
	})
	require.Equal(t, http.StatusOK, code, body)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, email, user["email"])
	assert.NotEmpty(t, user["id"])
	assert.NotContains(t, user, "password_hash")
	return body["token"].(string)
}

func TestRouter_AccountLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndVerify(t)

	code, body := s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, email, body["user"].(map[string]interface{})["email"])

	code, body = s.do(t, http.MethodPost, "/api/tasks", token, map[string]string{"title": "write report"})
	require.Equal(t, http.StatusCreated, code, body)
	taskID := body["task"].(map[string]interface{})["id"].(string)

	code, body = s.do(t, http.MethodPatch, "/api/tasks/"+taskID+"/toggle", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["task"].(map[string]interface{})["completed"])

	code, body = s.do(t, http.MethodGet, "/api/tasks", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])

	code, body = s.do(t, http.MethodDelete, "/api/auth/delete-account", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Account deleted successfully", body["message"])

	code, _ = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = s.do(t, http.MethodGet, "/api/tasks", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodPost, "/api/auth/register", "", creds{email, password})
	assert.Equal(t, http.StatusCreated, code)
}

func TestRouter_LoginFailuresLookAlike(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(t, http.MethodPost, "/api/auth/register", "", creds{email, password})
	require.Equal(t, http.StatusCreated, code)

	unverifiedCode, unverified := s.do(t, http.MethodPost, "/api/auth/login", "", creds{email, password})
	unknownCode, unknown := s.do(t, http.MethodPost, "/api/auth/login", "", creds{"nobody@example.com", password})

	_, _ = s.do(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]string{"email": email, "otp": s.notifier.last(email)})
	wrongCode, wrong := s.do(t, http.MethodPost, "/api/auth/login", "", creds{email, "Wrong123!"})

	for _, c := range []int{unverifiedCode, unknownCode, wrongCode} {
		assert.Equal(t, http.StatusUnauthorized, c)
	}
	assert.Equal(t, unknown, unverified)
	assert.Equal(t, unknown, wrong)
	assert.Equal(t, "Invalid email or password", unknown["message"])

	code, body := s.do(t, http.MethodPost, "/api/auth/login", "", creds{email, password})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Login successful!", body["message"])
	assert.NotEmpty(t, body["token"])
}

func TestRouter_PasswordReset(t *testing.T) {
	s := newTestServer(t)
	s.registerAndVerify(t)

	code, body := s.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": email})
	require.Equal(t, http.StatusOK, code, body)
	resetCode := s.notifier.last(email)

	reset := map[string]string{"token": resetCode, "password": "Newpass9#"}
	code, body = s.do(t, http.MethodPost, "/api/auth/reset-password", "", reset)
	require.Equal(t, http.StatusOK, code, body)

	code, body = s.do(t, http.MethodPost, "/api/auth/reset-password", "", reset)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid or expired reset code", body["message"])

	code, _ = s.do(t, http.MethodPost, "/api/auth/login", "", creds{email, password})
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = s.do(t, http.MethodPost, "/api/auth/login", "", creds{email, "Newpass9#"})
	assert.Equal(t, http.StatusOK, code)
}

func TestRouter_ErrorStatuses(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/api/auth/register", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid request body", body["message"])

	code, body = s.do(t, http.MethodPost, "/api/auth/register", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Email and password are required", body["message"])

	code, body = s.do(t, http.MethodPost, "/api/auth/resend-otp", "", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "User not found", body["message"])

	token := s.registerAndVerify(t)
	code, body = s.do(t, http.MethodPost, "/api/auth/resend-otp", "", map[string]string{"email": email})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "User already verified. Please login.", body["message"])

	code, body = s.do(t, http.MethodPost, "/api/auth/register", "", creds{email, password})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "User already exists. Please login.", body["message"])

	code, body = s.do(t, http.MethodDelete, "/api/auth/delete-account", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, false, body["success"])

	code, _ = s.do(t, http.MethodDelete, "/api/auth/delete-account", token+"x", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = s.do(t, http.MethodPut, "/api/tasks/missing", token, map[string]string{"title": "x"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Task not found", body["message"])
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])

	_, _ = s.do(t, http.MethodPost, "/api/auth/login", "", creds{"x@example.com", password})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `taskapp_auth_operations_total{op="login",result="invalid_credentials"} 1`)
}
