package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	jwttoken "mintgate/internal/jwt_token"
	"mintgate/internal/platform/config"
	id "mintgate/pkg/domain"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Owner = "owner"
	cfg.JWT.SigningKey = "test-key"
	cfg.Audit.Buffer = 0
	cfg.InitialQuotas = config.QuotasConfig{Total: 10, Whitelist: 4, Admin: 2}
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config) *app {
	t.Helper()
	a, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func bearer(t *testing.T, cfg config.Config, principal string) string {
	t.Helper()
	svc := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	token, err := svc.GenerateAccessToken(id.Principal(principal), time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouter(t *testing.T) {
	cfg := testConfig()
	a := newTestApp(t, cfg)

	call := func(method, path, authz, body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(method, path, strings.NewReader(body))
		if authz != "" {
			r.Header.Set("Authorization", authz)
		}
		w := httptest.NewRecorder()
		a.router.ServeHTTP(w, r)
		return w
	}

	t.Run("health", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, call(http.MethodGet, "/healthz", "", "").Code)
	})

	t.Run("seeded quotas are visible", func(t *testing.T) {
		w := call(http.MethodGet, "/v1/status", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"public":4`)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("mutations require a token", func(t *testing.T) {
		w := call(http.MethodPost, "/v1/admin/pause", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("owner token pauses and unpauses", func(t *testing.T) {
		w := call(http.MethodPost, "/v1/admin/pause", bearer(t, cfg, "owner"), "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.True(t, a.engine.Paused())

		w = call(http.MethodPost, "/v1/admin/unpause", bearer(t, cfg, "owner"), "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, a.engine.Paused())
	})

	t.Run("other principals are not owner", func(t *testing.T) {
		w := call(http.MethodPost, "/v1/admin/pause", bearer(t, cfg, "mallory"), "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("end to end mint", func(t *testing.T) {
		w := call(http.MethodPut, "/v1/admin/privileged/op", bearer(t, cfg, "owner"), `{"status":true}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		w = call(http.MethodPost, "/v1/mint/admin", bearer(t, cfg, "op"), `{"id":1,"name":"one","metadata_ref":"QmOne"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, int64(1), a.engine.Counters().AdminMinted)
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		w := call(http.MethodGet, "/metrics", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "mintgate_allocations_total")
	})
}

func TestMetricsAdminGuard(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("ops"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := testConfig()
	cfg.AdminTokenHash = string(hash)
	a := newTestApp(t, cfg)

	r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.Header.Set("X-Admin-Token", "ops")
	w = httptest.NewRecorder()
	a.router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewAppRejectsInvalidOwner(t *testing.T) {
	cfg := testConfig()
	cfg.Owner = "not valid"
	_, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorContains(t, err, "owner")
}

func TestTokenCommands(t *testing.T) {
	t.Setenv("MINTGATE_OWNER", "owner")
	t.Setenv("MINTGATE_JWT_SIGNING_KEY", "cli-key")

	t.Run("issue prints a verifiable token", func(t *testing.T) {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"token", "issue", "--principal", "alice", "--ttl", "5m"})
		require.NoError(t, cmd.Execute())

		cfg := config.Default()
		svc := jwttoken.NewJWTService("cli-key", cfg.JWT.Issuer, cfg.JWT.Audience)
		claims, err := svc.ValidateToken(strings.TrimSpace(out.String()))
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Principal)
	})

	t.Run("hash-admin prints a bcrypt hash", func(t *testing.T) {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"token", "hash-admin", "ops"})
		require.NoError(t, cmd.Execute())
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out.String())), []byte("ops")))
	})

	t.Run("issue requires a principal", func(t *testing.T) {
		cmd := newRootCmd()
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		cmd.SetArgs([]string{"token", "issue"})
		assert.Error(t, cmd.Execute())
	})
}

func TestProtectedRoutesAreRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Requests = 1
	a := newTestApp(t, cfg)
	token := bearer(t, cfg, "owner")

	send := func(method, path, body string) int {
		r := httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Authorization", token)
		if body != "" {
			r.Header.Set("Content-Type", "application/json")
		}
		w := httptest.NewRecorder()
		a.router.ServeHTTP(w, r)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, send(http.MethodPut, "/v1/admin/sale", `{"active":true}`))
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPut, "/v1/admin/sale", `{"active":false}`))

	t.Run("pause and unpause are never throttled", func(t *testing.T) {
		for range 3 {
			assert.Equal(t, http.StatusOK, send(http.MethodPost, "/v1/admin/pause", ""))
			assert.True(t, a.engine.Paused())
			assert.Equal(t, http.StatusOK, send(http.MethodPost, "/v1/admin/unpause", ""))
			assert.False(t, a.engine.Paused())
		}
	})

	r := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code, "queries are not limited")
}
