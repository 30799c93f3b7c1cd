package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/observability"
)

// Registry tracks live connections and their group memberships. Shared by
// every connect/disconnect/join/leave and every dispatcher push, so all
// state lives behind one RWMutex; the hot path (resolving members) takes
// only the read lock.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	groups map[string]map[string]*Connection

	sendBuffer int
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewRegistry builds an empty registry.
func NewRegistry(sendBuffer int, logger *zap.Logger, metrics *observability.Metrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		conns:      make(map[string]*Connection),
		groups:     make(map[string]map[string]*Connection),
		sendBuffer: sendBuffer,
		logger:     logger,
		metrics:    metrics,
	}
}

// Register admits a connection and joins its handshake groups: the
// identity-scoped notification channel and, for admins, the dashboard.
// Ticket rooms are joined explicitly afterwards.
func (r *Registry) Register(socket Socket, identity Identity) *Connection {
	conn := newConnection(uuid.NewString(), identity, socket, r.sendBuffer)

	r.mu.Lock()
	r.conns[conn.ID] = conn
	for _, group := range identity.HandshakeGroups() {
		r.joinLocked(group, conn)
	}
	r.mu.Unlock()

	go conn.writePump()

	if r.metrics != nil {
		r.metrics.LiveConnections.Inc()
	}
	r.logger.Debug("connection registered",
		zap.String("conn_id", conn.ID),
		zap.String("subject", identity.SubjectID))
	return conn
}

// Unregister removes a connection and all of its memberships.
func (r *Registry) Unregister(conn *Connection) {
	r.mu.Lock()
	if _, ok := r.conns[conn.ID]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, conn.ID)
	for group, members := range r.groups {
		if _, ok := members[conn.ID]; ok {
			delete(members, conn.ID)
			if len(members) == 0 {
				delete(r.groups, group)
			}
		}
	}
	r.mu.Unlock()

	conn.close()
	if r.metrics != nil {
		r.metrics.LiveConnections.Dec()
	}
}

// Join adds the connection to a group. Idempotent: re-joining a group the
// connection is already in changes nothing, so a client replaying its room
// list after a reconnect never receives duplicates.
func (r *Registry) Join(conn *Connection, group string) {
	r.mu.Lock()
	r.joinLocked(group, conn)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.GroupJoins.Inc()
	}
}

// Leave removes the connection from a group immediately.
func (r *Registry) Leave(conn *Connection, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.groups[group]
	if !ok {
		return
	}
	delete(members, conn.ID)
	if len(members) == 0 {
		delete(r.groups, group)
	}
}

// Members returns a snapshot of the connections in a group.
func (r *Registry) Members(group string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.groups[group]
	if len(members) == 0 {
		return nil
	}
	result := make([]*Connection, 0, len(members))
	for _, conn := range members {
		result = append(result, conn)
	}
	return result
}

// Groups returns the group keys a connection currently belongs to.
func (r *Registry) Groups(conn *Connection) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []string
	for group, members := range r.groups {
		if _, ok := members[conn.ID]; ok {
			result = append(result, group)
		}
	}
	return result
}

// ConnectionCount returns the number of registered connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) joinLocked(group string, conn *Connection) {
	members, ok := r.groups[group]
	if !ok {
		members = make(map[string]*Connection)
		r.groups[group] = members
	}
	members[conn.ID] = conn
}

// SweepRevoked closes every connection whose credential has been revoked
// since its handshake. Invoked periodically when
// REALTIME_REVOCATION_RECHECK_SECONDS is set.
func (r *Registry) SweepRevoked(ctx context.Context, revocation auth.RevocationList) {
	r.mu.RLock()
	candidates := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		candidates = append(candidates, conn)
	}
	r.mu.RUnlock()

	for _, conn := range candidates {
		revoked, err := revocation.IsRevoked(ctx, conn.Identity.TokenID)
		if err != nil {
			r.logger.Warn("revocation check failed", zap.Error(err))
			continue
		}
		if revoked {
			r.logger.Info("closing connection with revoked credential",
				zap.String("conn_id", conn.ID),
				zap.String("subject", conn.Identity.SubjectID))
			r.Unregister(conn)
		}
	}
}

// RunRevocationSweeper blocks, sweeping at the given interval until ctx is
// cancelled.
func (r *Registry) RunRevocationSweeper(ctx context.Context, revocation auth.RevocationList, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.SweepRevoked(ctx, revocation)
		}
	}
}
