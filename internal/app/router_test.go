package app

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aspire-solar/billdesk/internal/attendance"
	"github.com/aspire-solar/billdesk/internal/auth"
	"github.com/aspire-solar/billdesk/internal/challans"
	"github.com/aspire-solar/billdesk/internal/clients"
	"github.com/aspire-solar/billdesk/internal/employees"
	"github.com/aspire-solar/billdesk/internal/invoice"
	"github.com/aspire-solar/billdesk/internal/ledger"
	"github.com/aspire-solar/billdesk/internal/observability"
	"github.com/aspire-solar/billdesk/internal/rbac"
	"github.com/aspire-solar/billdesk/internal/settings"
	"github.com/aspire-solar/billdesk/internal/shared"
	"github.com/aspire-solar/billdesk/internal/users"
	"github.com/aspire-solar/billdesk/jobs"
	_ "github.com/aspire-solar/billdesk/testing"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	files := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(files, "logo.png"), []byte("png"), 0o600))

	cfg := &Config{
		AppEnv:             "development",
		AppRequestTimeout:  5 * time.Second,
		RateLimitPerMinute: 1000,
		StoragePublicURL:   "/files",
		StorageMaxBytes:    1 << 20,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := shared.NewSessionManager(client, "billdesk_session", "session-secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	guard := rbac.Middleware{Logger: logger}

	return NewRouter(RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessions,
		CSRFManager:       csrf,
		RBACMiddleware:    guard,
		Metrics:           observability.NewMetrics(),
		AuthHandler:       auth.NewHandler(logger, nil, sessions, csrf),
		UsersHandler:      users.NewHandler(logger, nil, guard),
		SettingsHandler:   settings.NewHandler(logger, nil, guard, cfg.StorageMaxBytes),
		ClientsHandler:    clients.NewHandler(logger, nil, guard),
		InvoiceHandler:    invoice.NewHandler(logger, nil, guard),
		EmployeesHandler:  employees.NewHandler(logger, nil, guard, cfg.StorageMaxBytes),
		LedgerHandler:     ledger.NewHandler(logger, nil, nil, guard),
		AttendanceHandler: attendance.NewHandler(logger, nil, guard),
		ChallansHandler:   challans.NewHandler(logger, nil, guard, cfg.StorageMaxBytes),
		JobHandler:        jobs.NewHandler(nil, logger),
		Files:             http.FileServer(http.Dir(files)),
	})
}

func TestHealthzAndSecurityHeaders(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
}

func TestMetricsEndpointIsServed(t *testing.T) {
	router := newTestRouter(t)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "billdesk_http_requests_total")
}

func TestAnonymousRequestsAreRejected(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/clients/", "/invoices/", "/employees/", "/jobs/health", "/files/logo.png", "/auth/me"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestMutationsRequireCSRFHeader(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/clients/", strings.NewReader(`{"name":"Acme"}`)))
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), shared.CSRFHeader)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/csrf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.CSRFToken)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodPost, "/clients/", strings.NewReader(`{"name":"Acme"}`))
	for _, c := range cookies {
		req.AddCookie(c)
	}
	req.Header.Set(shared.CSRFHeader, "forged")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/clients/", strings.NewReader(`{"name":"Acme"}`))
	for _, c := range cookies {
		req.AddCookie(c)
	}
	req.Header.Set(shared.CSRFHeader, body.CSRFToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
