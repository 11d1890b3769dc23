package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"mintgate/internal/allocation"
	"mintgate/internal/ledger"
	"mintgate/pkg/testutil"
)

// =============================================================================
// Allocation Handler Test Suite
// =============================================================================
// Justification for handler tests: they pin the HTTP contract (status codes,
// error envelope, body validation, path parsing) on top of a real engine and
// in-memory ledger.

type HandlerSuite struct {
	suite.Suite
	engine *allocation.Engine
	router http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := ledger.NewInMemoryLedger()
	e, err := allocation.New("owner", l, allocation.WithLogger(logger))
	s.Require().NoError(err)
	l.SetPauseGuard(e)
	s.engine = e

	h := New(e, logger)
	r := chi.NewRouter()
	h.RegisterPublic(r)
	h.RegisterProtected(r)
	h.RegisterKillSwitch(r)
	s.router = r
}

func (s *HandlerSuite) do(method, path, principal string, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	req = testutil.WithPrincipal(req, principal)
	return testutil.DoRequest(s.router, req)
}

func (s *HandlerSuite) mustDo(method, path, principal string, body any, status int) {
	resp := s.do(method, path, principal, body)
	s.Require().Equal(status, resp.Code, resp.Body.String())
}

func (s *HandlerSuite) configure() {
	s.mustDo(http.MethodPut, "/v1/admin/quotas", "owner", map[string]int64{"total": 10, "whitelist": 4, "admin": 2}, http.StatusOK)
	s.mustDo(http.MethodPut, "/v1/admin/pre-approved/alice", "owner", map[string]bool{"status": true}, http.StatusOK)
	s.mustDo(http.MethodPut, "/v1/admin/privileged/operator", "owner", map[string]bool{"status": true}, http.StatusOK)
}

// =============================================================================
// Mint Endpoint Tests
// =============================================================================

func (s *HandlerSuite) TestMint() {
	s.configure()

	s.Run("whitelist mint returns the record", func() {
		resp := s.do(http.MethodPost, "/v1/mint/whitelist", "alice", map[string]any{"id": 1, "name": "Genesis", "metadata_ref": "QmOne"})
		testutil.AssertStatus(s.T(), resp, http.StatusCreated)
		rec := testutil.UnmarshalResponse[RecordResponse](s.T(), resp)
		s.Equal(uint64(1), rec.ID)
		s.Equal("whitelist", rec.Channel)
		s.Equal("alice", rec.Owner)
		s.Equal("QmOne", rec.MetadataRef)
	})

	s.Run("rejections map to statuses", func() {
		tests := []struct {
			name      string
			path      string
			principal string
			body      any
			status    int
			code      string
		}{
			{"not pre-approved", "/v1/mint/whitelist", "bob", map[string]any{"id": 2}, http.StatusForbidden, "not_pre_approved"},
			{"sale not active", "/v1/mint/public", "bob", map[string]any{"id": 2}, http.StatusConflict, "sale_not_active"},
			{"not privileged", "/v1/mint/admin", "bob", map[string]any{"id": 2}, http.StatusForbidden, "not_privileged"},
			{"duplicate identifier", "/v1/mint/admin", "operator", map[string]any{"id": 1}, http.StatusConflict, "duplicate_identifier"},
			{"unknown channel", "/v1/mint/vip", "bob", map[string]any{"id": 2}, http.StatusBadRequest, "invalid_input"},
			{"missing id", "/v1/mint/admin", "operator", map[string]any{"name": "x"}, http.StatusBadRequest, "validation_error"},
			{"unauthenticated", "/v1/mint/admin", "", map[string]any{"id": 2}, http.StatusUnauthorized, "unauthorized"},
		}
		for _, tt := range tests {
			s.Run(tt.name, func() {
				resp := s.do(http.MethodPost, tt.path, tt.principal, tt.body)
				testutil.AssertStatusAndError(s.T(), resp, tt.status, tt.code)
			})
		}
	})

	s.Run("paused engine answers 503", func() {
		s.mustDo(http.MethodPost, "/v1/admin/pause", "owner", nil, http.StatusOK)
		resp := s.do(http.MethodPost, "/v1/mint/whitelist", "alice", map[string]any{"id": 3})
		testutil.AssertStatusAndError(s.T(), resp, http.StatusServiceUnavailable, "system_paused")
	})
}

// =============================================================================
// Admin Endpoint Tests
// =============================================================================

func (s *HandlerSuite) TestAdmin() {
	s.Run("non-owner cannot change quotas", func() {
		resp := s.do(http.MethodPut, "/v1/admin/quotas", "alice", map[string]int64{"total": 1, "whitelist": 0, "admin": 0})
		testutil.AssertStatusAndError(s.T(), resp, http.StatusForbidden, "not_owner")
	})

	s.Run("quotas echo all four values", func() {
		resp := s.do(http.MethodPut, "/v1/admin/quotas", "owner", map[string]int64{"total": 10, "whitelist": 4, "admin": 2})
		testutil.AssertStatusOK(s.T(), resp)
		testutil.AssertJSONContains(s.T(), resp, "public", float64(4))
	})

	s.Run("quotas require every field", func() {
		resp := s.do(http.MethodPut, "/v1/admin/quotas", "owner", map[string]int64{"total": 10})
		testutil.AssertStatusAndError(s.T(), resp, http.StatusBadRequest, "validation_error")
	})

	s.Run("sale toggle returns status", func() {
		resp := s.do(http.MethodPut, "/v1/admin/sale", "owner", map[string]bool{"active": true})
		testutil.AssertStatusOK(s.T(), resp)
		st := testutil.UnmarshalResponse[StatusResponse](s.T(), resp)
		s.True(st.SaleActive)
		s.True(st.Channels["public"].Open)
		s.False(st.Channels["whitelist"].Open)
	})

	s.Run("metadata prefix", func() {
		s.mustDo(http.MethodPut, "/v1/admin/metadata-prefix", "owner", map[string]string{"prefix": "ipfs://"}, http.StatusNoContent)
		resp := s.do(http.MethodPut, "/v1/admin/metadata-prefix", "bob", map[string]string{"prefix": "x"})
		testutil.AssertStatusAndError(s.T(), resp, http.StatusForbidden, "not_privileged")
	})

	s.Run("invalid principal in path", func() {
		resp := s.do(http.MethodPut, "/v1/admin/privileged/%20", "owner", map[string]bool{"status": true})
		testutil.AssertStatusAndError(s.T(), resp, http.StatusBadRequest, "invalid_input")
	})

	s.Run("pause twice then unpause", func() {
		s.mustDo(http.MethodPost, "/v1/admin/pause", "owner", nil, http.StatusOK)
		resp := s.do(http.MethodPost, "/v1/admin/pause", "owner", nil)
		testutil.AssertJSONContains(s.T(), resp, "paused", true)
		resp = s.do(http.MethodPost, "/v1/admin/unpause", "owner", nil)
		testutil.AssertJSONContains(s.T(), resp, "paused", false)
		s.False(s.engine.Paused())
	})

	s.Run("unpause by non-owner", func() {
		resp := s.do(http.MethodPost, "/v1/admin/unpause", "alice", nil)
		testutil.AssertStatusAndError(s.T(), resp, http.StatusForbidden, "not_owner")
	})
}

// =============================================================================
// Query Endpoint Tests
// =============================================================================

func (s *HandlerSuite) TestQueries() {
	s.configure()
	s.mustDo(http.MethodPut, "/v1/admin/metadata-prefix", "owner", map[string]string{"prefix": "ipfs://"}, http.StatusNoContent)
	s.mustDo(http.MethodPost, "/v1/mint/admin", "operator", map[string]any{"id": 7, "metadata_ref": "QmSeven"}, http.StatusCreated)

	t := s.T()
	testutil.Given(t, "an allocated token", func(t *testing.T) {
		testutil.When(t, "its record is requested", func(t *testing.T) {
			resp := s.do(http.MethodGet, "/v1/tokens/7", "", nil)
			testutil.Then(t, "the record is returned without authentication", func(t *testing.T) {
				testutil.AssertStatusOK(t, resp)
				rec := testutil.UnmarshalResponse[RecordResponse](t, resp)
				assert.Equal(t, "operator", rec.Owner)
			})
		})
		testutil.When(t, "its uri is requested", func(t *testing.T) {
			resp := s.do(http.MethodGet, "/v1/tokens/7/uri", "", nil)
			testutil.Then(t, "the ledger resolves prefix and reference", func(t *testing.T) {
				testutil.AssertJSONContains(t, resp, "uri", "ipfs://QmSeven")
			})
		})
	})

	s.Run("unknown token", func() {
		resp := s.do(http.MethodGet, "/v1/tokens/99", "", nil)
		testutil.AssertStatusAndError(s.T(), resp, http.StatusNotFound, "unknown_identifier")
	})

	s.Run("malformed token id", func() {
		resp := s.do(http.MethodGet, "/v1/tokens/abc", "", nil)
		testutil.AssertStatusAndError(s.T(), resp, http.StatusBadRequest, "invalid_input")
	})

	s.Run("participant view", func() {
		resp := s.do(http.MethodGet, "/v1/participants/operator", "", nil)
		testutil.AssertStatusOK(s.T(), resp)
		p := testutil.UnmarshalResponse[ParticipantResponse](s.T(), resp)
		s.Equal(1, p.Minted)
		s.Equal(4, p.Remaining)
		s.True(p.Privileged)
		s.False(p.PreApproved)
	})

	s.Run("status snapshot", func() {
		resp := s.do(http.MethodGet, "/v1/status", "", nil)
		st := testutil.UnmarshalResponse[StatusResponse](s.T(), resp)
		s.Equal("owner", st.Owner)
		s.Equal(int64(1), st.Counters.AdminMinted)
		s.Equal(5, st.MaxPerParticipant)
		s.True(st.Channels["admin"].Open)
		s.Equal("ipfs://", st.BaseMetadataPrefix)
	})
}
