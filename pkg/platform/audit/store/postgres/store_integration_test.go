//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "warden/pkg/domain"
	audit "warden/pkg/platform/audit"
	"warden/pkg/platform/audit/store/postgres"
	"warden/pkg/testutil/containers"
)

type AuditStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.Store
	ctx   context.Context
}

func TestAuditStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.pg.DB)
}

func (s *AuditStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.Require().NoError(s.pg.TruncateModuleTables(s.ctx))
}

func (s *AuditStoreSuite) TestRoundTripNewestFirst() {
	userID := id.NewUserID()
	tenantID := id.NewTenantID()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	s.Require().NoError(s.store.Append(s.ctx, audit.Event{
		Timestamp: base, Action: "login_succeeded", UserID: userID, Email: "a@example.com", RequestID: "req-1",
	}))
	s.Require().NoError(s.store.Append(s.ctx, audit.Event{
		Timestamp: base.Add(time.Minute), Action: "tenant_access_granted", UserID: userID, TenantID: &tenantID,
		Decision: "granted", Synthetic: true,
	}))
	s.Require().NoError(s.store.Append(s.ctx, audit.Event{Timestamp: base, Action: "login_succeeded", UserID: id.NewUserID()}))

	events, err := s.store.ListByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)

	s.Equal("tenant_access_granted", events[0].Action)
	s.Require().NotNil(events[0].TenantID)
	s.Equal(tenantID, *events[0].TenantID)
	s.True(events[0].Synthetic)
	s.Equal("granted", events[0].Decision)

	s.Equal("login_succeeded", events[1].Action)
	s.Nil(events[1].TenantID)
	s.Equal("req-1", events[1].RequestID)
	s.True(base.Equal(events[1].Timestamp))
}

func (s *AuditStoreSuite) TestAnonymousEventIsStoredWithoutUser() {
	s.Require().NoError(s.store.Append(s.ctx, audit.Event{Timestamp: time.Now(), Action: "login_failed", Email: "x@example.com"}))

	var n int
	s.Require().NoError(s.pg.DB.QueryRowContext(s.ctx, `SELECT count(*) FROM audit_events WHERE user_id IS NULL`).Scan(&n))
	s.Equal(1, n)
}
