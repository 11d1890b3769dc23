//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	audit "mintgate/pkg/platform/audit"
	txcontext "mintgate/pkg/platform/tx"
	"mintgate/pkg/testutil/containers"
)

// =============================================================================
// Postgres Outbox Store Integration Suite
// =============================================================================
// Justification: the outbox relies on Postgres-only behavior (JSONB payloads,
// uuid[] arrays, FOR UPDATE SKIP LOCKED) that cannot be exercised in memory.

type OutboxStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Store
}

func TestOutboxStoreSuite(t *testing.T) {
	suite.Run(t, new(OutboxStoreSuite))
}

func (s *OutboxStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = New(s.pg.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *OutboxStoreSuite) TearDownSuite() {
	_ = s.pg.Close(context.Background())
}

func (s *OutboxStoreSuite) SetupTest() {
	_, err := s.pg.DB.Exec(`TRUNCATE audit_outbox`)
	s.Require().NoError(err)

	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	s.store.clock = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func event(action audit.AuditEvent, subject string) audit.Event {
	return audit.Event{
		Timestamp:  time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
		Actor:      "owner",
		Subject:    subject,
		Action:     string(action),
		Attributes: map[string]string{"status": "true"},
	}
}

func (s *OutboxStoreSuite) TestAppendAndList() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, event(audit.EventWhitelistChanged, "alice")))
	s.Require().NoError(s.store.Append(ctx, event(audit.EventRoleChanged, "bob")))
	s.Require().NoError(s.store.Append(ctx, event(audit.EventTokenAllocated, "alice")))

	s.Run("by subject oldest first", func() {
		events, err := s.store.ListBySubject(ctx, "alice")
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(string(audit.EventWhitelistChanged), events[0].Action)
		s.Equal(string(audit.EventTokenAllocated), events[1].Action)
		s.Equal("true", events[0].Attributes["status"])
	})

	s.Run("recent newest first", func() {
		events, err := s.store.ListRecent(ctx, 2)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(string(audit.EventTokenAllocated), events[0].Action)
		s.Equal(string(audit.EventRoleChanged), events[1].Action)
	})
}

func (s *OutboxStoreSuite) TestPendingAndMarkPublished() {
	ctx := context.Background()
	for _, subject := range []string{"1", "2", "3"} {
		s.Require().NoError(s.store.Append(ctx, event(audit.EventTokenAllocated, subject)))
	}

	var first []Entry
	s.Require().NoError(s.store.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		first, err = s.store.Pending(ctx, 2)
		if err != nil {
			return err
		}
		return s.store.MarkPublished(ctx, []uuid.UUID{first[0].ID, first[1].ID})
	}))
	s.Require().Len(first, 2)
	s.Equal("1", first[0].Subject)
	s.Equal(string(audit.EventTokenAllocated), first[0].EventType)

	rest, err := s.store.Pending(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(rest, 1)
	s.Equal("3", rest[0].Subject)
}

func (s *OutboxStoreSuite) TestAppendJoinsCallerTransaction() {
	ctx := context.Background()
	boom := errors.New("boom")

	err := txcontext.Run(ctx, s.pg.DB, func(ctx context.Context) error {
		if err := s.store.Append(ctx, event(audit.EventPaused, "")); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	pending, err := s.store.Pending(ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending, "rolled back append must not reach the outbox")
}
