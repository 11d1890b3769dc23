// Package e2e drives the HTTP API end to end with godog scenarios.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"mintgate/internal/allocation"
	"mintgate/internal/allocation/handler"
	jwttoken "mintgate/internal/jwt_token"
	"mintgate/internal/ledger"
	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/audit/publisher"
	"mintgate/pkg/platform/audit/store/memory"
	"mintgate/pkg/platform/middleware/auth"
	"mintgate/pkg/platform/middleware/request"
)

const (
	// Owner is the principal the engine is created for.
	Owner = "owner"

	signingKey = "e2e-signing-key"
	issuer     = "mintgate"
	audience   = "mintgate-api"
)

// TestContext holds one scenario's server and the last response received.
type TestContext struct {
	server *httptest.Server
	jwt    *jwttoken.JWTService
	audit  *memory.InMemoryStore

	tokens       map[string]string
	lastResponse *http.Response
	lastBody     []byte
}

// NewTestContext starts a fresh server with an empty engine.
func NewTestContext() (*TestContext, error) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	audit := memory.NewInMemoryStore()
	pub := publisher.NewPublisher(audit, publisher.WithLogger(log))

	l := ledger.NewInMemoryLedger()
	engine, err := allocation.New(Owner, l,
		allocation.WithLogger(log),
		allocation.WithAuditPublisher(pub),
	)
	if err != nil {
		return nil, err
	}
	l.SetPauseGuard(engine)

	jwtService := jwttoken.NewJWTService(signingKey, issuer, audience)
	h := handler.New(engine, log)

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(log))
	h.RegisterPublic(r)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(jwttoken.NewJWTServiceAdapter(jwtService), nil, log))
		h.RegisterProtected(r)
		h.RegisterKillSwitch(r)
	})

	return &TestContext{
		server: httptest.NewServer(r),
		jwt:    jwtService,
		audit:  audit,
		tokens: make(map[string]string),
	}, nil
}

// Close stops the server.
func (tc *TestContext) Close() {
	tc.server.Close()
}

func (tc *TestContext) tokenFor(principal string) (string, error) {
	if token, ok := tc.tokens[principal]; ok {
		return token, nil
	}
	token, err := tc.jwt.GenerateAccessToken(id.Principal(principal), time.Hour)
	if err != nil {
		return "", err
	}
	tc.tokens[principal] = token
	return token, nil
}

// Do sends a request as principal; an empty principal sends no token.
func (tc *TestContext) Do(principal, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, tc.server.URL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if principal != "" {
		token, err := tc.tokenFor(principal)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := tc.server.Client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastResponse = resp
	return nil
}

// MustSucceed sends a request and fails unless it returns a 2xx status.
func (tc *TestContext) MustSucceed(principal, method, path string, body any) error {
	if err := tc.Do(principal, method, path, body); err != nil {
		return err
	}
	if tc.StatusCode()/100 != 2 {
		return fmt.Errorf("%s %s as %q: status %d: %s", method, path, principal, tc.StatusCode(), tc.lastBody)
	}
	return nil
}

// StatusCode returns the status of the last response.
func (tc *TestContext) StatusCode() int {
	if tc.lastResponse == nil {
		return 0
	}
	return tc.lastResponse.StatusCode
}

// Body returns the raw body of the last response.
func (tc *TestContext) Body() []byte {
	return tc.lastBody
}

// ErrorCode returns the "error" field of the last response.
func (tc *TestContext) ErrorCode() (string, error) {
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(tc.lastBody, &resp); err != nil {
		return "", fmt.Errorf("decode error response %q: %w", tc.lastBody, err)
	}
	return resp.Error, nil
}

// ResponseField walks a dotted path such as "quotas.public" through the last
// JSON response.
func (tc *TestContext) ResponseField(path string) (any, error) {
	var v any
	if err := json.Unmarshal(tc.lastBody, &v); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	for _, key := range strings.Split(path, ".") {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: not an object", path)
		}
		if v, ok = obj[key]; !ok {
			return nil, fmt.Errorf("%s: missing %q", path, key)
		}
	}
	return v, nil
}

// AuditActions lists the recorded audit actions in order.
func (tc *TestContext) AuditActions(ctx context.Context) ([]string, error) {
	events, err := tc.audit.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out, nil
}
