package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// fakeSocket records everything written to it.
type fakeSocket struct {
	mu     sync.Mutex
	writes []LiveMessage
	closed bool
}

func (f *fakeSocket) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := v.(LiveMessage); ok {
		f.writes = append(f.writes, msg)
	}
	return nil
}

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSocket) messages() []LiveMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]LiveMessage, len(f.writes))
	copy(out, f.writes)
	return out
}

func (f *fakeSocket) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// stubRevocation marks select token ids as revoked.
type stubRevocation struct {
	revoked map[string]bool
}

func (s *stubRevocation) Revoke(_ context.Context, tokenID string, _ time.Duration) error {
	if s.revoked == nil {
		s.revoked = make(map[string]bool)
	}
	s.revoked[tokenID] = true
	return nil
}

func (s *stubRevocation) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	return s.revoked[tokenID], nil
}

func tenantIdentity(id string) Identity {
	return Identity{SubjectType: domain.SubjectTypeTenant, SubjectID: id, Name: "Tenant " + id}
}

func adminIdentity(id string) Identity {
	return Identity{SubjectType: domain.SubjectTypeStaff, SubjectID: id, Name: "Admin " + id, Role: domain.StaffRoleAdmin}
}

type RegistrySuite struct {
	suite.Suite
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.registry = NewRegistry(8, nil, nil)
}

func (s *RegistrySuite) TestHandshakeGroups() {
	s.Run("tenants join their notification channel", func() {
		conn := s.registry.Register(&fakeSocket{}, tenantIdentity("t1"))
		defer s.registry.Unregister(conn)

		groups := s.registry.Groups(conn)
		s.ElementsMatch([]string{NotifyTenant("t1")}, groups)
	})

	s.Run("admins additionally join the shared channels", func() {
		conn := s.registry.Register(&fakeSocket{}, adminIdentity("a1"))
		defer s.registry.Unregister(conn)

		groups := s.registry.Groups(conn)
		s.ElementsMatch([]string{NotifyStaff("a1"), NotifyAdmins, AdminDashboard}, groups)
	})
}

func (s *RegistrySuite) TestJoinIsIdempotent() {
	conn := s.registry.Register(&fakeSocket{}, tenantIdentity("t1"))
	defer s.registry.Unregister(conn)

	room := TicketRoom("ticket-1")
	s.registry.Join(conn, room)
	s.registry.Join(conn, room)

	members := s.registry.Members(room)
	s.Len(members, 1)
}

func (s *RegistrySuite) TestUnregisterRemovesAllMemberships() {
	socket := &fakeSocket{}
	conn := s.registry.Register(socket, tenantIdentity("t1"))
	s.registry.Join(conn, TicketRoom("ticket-1"))
	s.registry.Join(conn, TicketRoom("ticket-2"))

	s.registry.Unregister(conn)

	s.Empty(s.registry.Members(TicketRoom("ticket-1")))
	s.Empty(s.registry.Members(TicketRoom("ticket-2")))
	s.Empty(s.registry.Members(NotifyTenant("t1")))
	s.Zero(s.registry.ConnectionCount())
	s.Eventually(socket.isClosed, time.Second, 5*time.Millisecond)
}

func (s *RegistrySuite) TestLeave() {
	conn := s.registry.Register(&fakeSocket{}, tenantIdentity("t1"))
	defer s.registry.Unregister(conn)

	room := TicketRoom("ticket-1")
	s.registry.Join(conn, room)
	s.registry.Leave(conn, room)

	s.Empty(s.registry.Members(room))
	// leaving a group the connection is not in is a no-op
	s.registry.Leave(conn, room)
}

// A client that reconnects gets a fresh connection; replaying its room
// subscriptions restores delivery without duplicating memberships.
func (s *RegistrySuite) TestReconnectReplay() {
	room := TicketRoom("ticket-1")

	first := s.registry.Register(&fakeSocket{}, tenantIdentity("t1"))
	s.registry.Join(first, room)
	s.registry.Unregister(first)

	second := s.registry.Register(&fakeSocket{}, tenantIdentity("t1"))
	defer s.registry.Unregister(second)
	s.registry.Join(second, room)
	s.registry.Join(second, room)

	members := s.registry.Members(room)
	s.Require().Len(members, 1)
	s.Equal(second.ID, members[0].ID)
}

func (s *RegistrySuite) TestSweepRevoked() {
	revocation := &stubRevocation{}

	keep := s.registry.Register(&fakeSocket{}, Identity{
		SubjectType: domain.SubjectTypeTenant, SubjectID: "t1", TokenID: "token-live",
	})
	defer s.registry.Unregister(keep)

	dropSocket := &fakeSocket{}
	drop := s.registry.Register(dropSocket, Identity{
		SubjectType: domain.SubjectTypeTenant, SubjectID: "t2", TokenID: "token-revoked",
	})
	s.Require().NoError(revocation.Revoke(context.Background(), "token-revoked", time.Minute))

	s.registry.SweepRevoked(context.Background(), revocation)

	s.Equal(1, s.registry.ConnectionCount())
	s.Eventually(dropSocket.isClosed, time.Second, 5*time.Millisecond)
	s.NotEmpty(s.registry.Members(NotifyTenant("t1")))
	s.Empty(s.registry.Members(NotifyTenant("t2")))
	s.Empty(s.registry.Groups(drop))
}

// A dispatch working from a member snapshot may race a disconnect; pushing
// into an already-unregistered connection must drop the payload, not panic.
func (s *RegistrySuite) TestEnqueueAfterUnregisterIsDropped() {
	conn := s.registry.Register(&fakeSocket{}, tenantIdentity("t1"))
	room := TicketRoom("ticket-1")
	s.registry.Join(conn, room)

	snapshot := s.registry.Members(room)
	s.Require().Len(snapshot, 1)

	s.registry.Unregister(conn)

	s.NotPanics(func() {
		s.NoError(snapshot[0].Enqueue(LiveMessage{Kind: "ticket_created", EventID: "e1"}))
	})
	s.registry.Unregister(conn)
}
