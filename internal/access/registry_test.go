package access

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"mintgate/internal/allocation/models"
	"mintgate/internal/ports/mocks"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/platform/audit"
)

// =============================================================================
// Access Registry Test Suite
// =============================================================================
// Justification for unit tests: the registry owns the authorization gate for
// every privileged operation. Tests pin the check order (owner before pause)
// and the exact audit payloads, which are invisible through the HTTP layer.

const owner = id.Principal("owner")

type RegistrySuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	mockPublisher *mocks.MockAuditPublisher
	paused        bool
	registry      *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockPublisher = mocks.NewMockAuditPublisher(s.ctrl)
	s.paused = false

	var err error
	s.registry, err = New(owner, func() bool { return s.paused },
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.mockPublisher),
	)
	s.Require().NoError(err)
}

func (s *RegistrySuite) TearDownTest() {
	s.ctrl.Finish()
}

// =============================================================================
// Constructor Tests (Invariant Enforcement)
// =============================================================================

func (s *RegistrySuite) TestNew() {
	s.Run("empty owner returns error", func() {
		_, err := New("", nil)
		s.Error(err)
		s.Contains(err.Error(), "owner is required")
	})

	s.Run("nil pause func means never paused", func() {
		r, err := New(owner, nil)
		s.Require().NoError(err)
		s.NoError(r.SetPrivileged(context.Background(), owner, "alice", true))
		s.True(r.IsPrivileged("alice"))
	})
}

// =============================================================================
// Lookup Tests
// =============================================================================

func (s *RegistrySuite) TestLookups() {
	s.Run("absent principal holds no role", func() {
		s.False(s.registry.IsPrivileged("nobody"))
		s.False(s.registry.IsPreApproved("nobody"))
	})

	s.Run("owner is not implicitly privileged", func() {
		s.True(s.registry.IsOwner(owner))
		s.False(s.registry.IsPrivileged(owner))
	})
}

// =============================================================================
// SetPrivileged Tests
// =============================================================================

func (s *RegistrySuite) TestSetPrivileged() {
	ctx := context.Background()

	s.Run("non-owner is rejected", func() {
		err := s.registry.SetPrivileged(ctx, "mallory", "mallory", true)
		s.ErrorIs(err, models.ErrNotOwner)
		s.False(s.registry.IsPrivileged("mallory"))
	})

	s.Run("owner check precedes pause check", func() {
		s.paused = true
		defer func() { s.paused = false }()

		s.ErrorIs(s.registry.SetPrivileged(ctx, "mallory", "alice", true), models.ErrNotOwner)
		s.ErrorIs(s.registry.SetPrivileged(ctx, owner, "alice", true), models.ErrSystemPaused)
		s.False(s.registry.IsPrivileged("alice"))
	})

	s.Run("empty principal is invalid input", func() {
		err := s.registry.SetPrivileged(ctx, owner, "", true)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("grant then revoke emits role_changed each time", func() {
		var events []audit.Event
		s.mockPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e audit.Event) error {
				events = append(events, e)
				return nil
			}).Times(2)

		s.Require().NoError(s.registry.SetPrivileged(ctx, owner, "alice", true))
		s.True(s.registry.IsPrivileged("alice"))
		s.Require().NoError(s.registry.SetPrivileged(ctx, owner, "alice", false))
		s.False(s.registry.IsPrivileged("alice"))

		s.Require().Len(events, 2)
		s.Equal(string(audit.EventRoleChanged), events[0].Action)
		s.Equal("alice", events[0].Attributes["principal"])
		s.Equal("true", events[0].Attributes["status"])
		s.Equal("false", events[1].Attributes["status"])
	})
}

// =============================================================================
// SetPreApproved Tests
// =============================================================================

func (s *RegistrySuite) TestSetPreApproved() {
	ctx := context.Background()

	s.Run("non-owner is rejected", func() {
		s.ErrorIs(s.registry.SetPreApproved(ctx, "alice", "alice", true), models.ErrNotOwner)
	})

	s.Run("paused rejects owner", func() {
		s.paused = true
		defer func() { s.paused = false }()
		s.ErrorIs(s.registry.SetPreApproved(ctx, owner, "alice", true), models.ErrSystemPaused)
	})

	s.Run("event carries caller principal and status", func() {
		s.mockPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e audit.Event) error {
				s.Equal(string(audit.EventWhitelistChanged), e.Action)
				s.Equal(owner, e.Actor)
				s.Equal("owner", e.Attributes["caller"])
				s.Equal("bob", e.Attributes["principal"])
				s.Equal("true", e.Attributes["status"])
				return nil
			})

		s.Require().NoError(s.registry.SetPreApproved(ctx, owner, "bob", true))
		s.True(s.registry.IsPreApproved("bob"))
		s.False(s.registry.IsPrivileged("bob"), "role sets are independent")
	})

	s.Run("listings are sorted", func() {
		s.mockPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
		s.Require().NoError(s.registry.SetPreApproved(ctx, owner, "zed", true))
		s.Require().NoError(s.registry.SetPreApproved(ctx, owner, "amy", true))
		s.Equal([]id.Principal{"amy", "bob", "zed"}, s.registry.PreApproved())
	})
}
