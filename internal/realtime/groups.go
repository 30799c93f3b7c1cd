package realtime

import "github.com/spec-kit/helpdesk/internal/domain"

// Channel group keys. A group is a named set of live connections that
// receive the same pushed payload.
const (
	// AdminDashboard receives recomputed dashboard stats.
	AdminDashboard = "admin-dashboard"
	// NotifyAdmins is the shared notification channel for all admins.
	NotifyAdmins = "notify:admins"
)

// TicketRoom returns the discussion-room key for a ticket.
func TicketRoom(ticketID string) string {
	return "ticket:" + ticketID
}

// NotifyTenant returns a tenant's private notification key.
func NotifyTenant(tenantID string) string {
	return "notify:tenant:" + tenantID
}

// NotifyStaff returns a staff member's private notification key.
func NotifyStaff(staffID string) string {
	return "notify:staff:" + staffID
}

// Identity is the authenticated subject behind a live connection. Derived
// server-side from the validated credential, never from client input.
type Identity struct {
	SubjectType domain.SubjectType
	SubjectID   string
	Name        string
	Role        domain.StaffRole
	TokenID     string
}

// NotificationKeys returns the recipient keys this identity reads
// notifications from. Admins also read the shared admin channel.
func (id Identity) NotificationKeys() []string {
	switch id.SubjectType {
	case domain.SubjectTypeTenant:
		return []string{NotifyTenant(id.SubjectID)}
	case domain.SubjectTypeStaff:
		keys := []string{NotifyStaff(id.SubjectID)}
		if id.Role == domain.StaffRoleAdmin {
			keys = append(keys, NotifyAdmins)
		}
		return keys
	}
	return nil
}

// HandshakeGroups returns the groups a connection joins implicitly at
// handshake: its notification keys, plus the dashboard for admins.
func (id Identity) HandshakeGroups() []string {
	groups := id.NotificationKeys()
	if id.SubjectType == domain.SubjectTypeStaff && id.Role == domain.StaffRoleAdmin {
		groups = append(groups, AdminDashboard)
	}
	return groups
}
