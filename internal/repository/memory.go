package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// Memory is an in-memory backing store implementing every repository
// interface. It serves two purposes: unit tests, and running the service
// without a POSTGRES_DSN. All views share one lock so the stats snapshot
// reads a consistent state.
type Memory struct {
	mu            sync.RWMutex
	tickets       map[string]domain.Ticket
	history       []domain.HistoryEntry
	comments      []domain.Comment
	notifications []domain.Notification
	tenants       map[string]domain.Tenant
	staff         map[string]domain.StaffMember
	assets        map[string]domain.Asset
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tickets: make(map[string]domain.Ticket),
		tenants: make(map[string]domain.Tenant),
		staff:   make(map[string]domain.StaffMember),
		assets:  make(map[string]domain.Asset),
	}
}

func (m *Memory) Tickets() TicketRepository             { return &memoryTickets{m} }
func (m *Memory) History() HistoryRepository            { return &memoryHistory{m} }
func (m *Memory) Comments() CommentRepository           { return &memoryComments{m} }
func (m *Memory) Notifications() NotificationRepository { return &memoryNotifications{m} }
func (m *Memory) Tenants() TenantRepository             { return &memoryTenants{m} }
func (m *Memory) Staff() StaffRepository                { return &memoryStaff{m} }
func (m *Memory) Assets() AssetRepository               { return &memoryAssets{m} }
func (m *Memory) Stats() StatsRepository                { return &memoryStats{m} }

type memoryTickets struct{ m *Memory }

func (r *memoryTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	now := time.Now()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.m.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memoryTickets) Update(_ context.Context, ticket *domain.Ticket) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.tickets[ticket.ID]
	if !ok || stored.DeletedAt != nil {
		return ErrNotFound
	}
	ticket.CreatedAt = stored.CreatedAt
	ticket.UpdatedAt = time.Now()
	r.m.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memoryTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	stored, ok := r.m.tickets[id]
	if !ok || stored.DeletedAt != nil {
		return nil, ErrNotFound
	}
	copied := stored
	return &copied, nil
}

func (r *memoryTickets) SoftDelete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.tickets[id]
	if !ok || stored.DeletedAt != nil {
		return ErrNotFound
	}
	now := time.Now()
	stored.DeletedAt = &now
	stored.UpdatedAt = now
	r.m.tickets[id] = stored
	return nil
}

func (r *memoryTickets) ListWithFilter(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var matched []domain.Ticket
	for _, ticket := range r.m.tickets {
		if ticket.DeletedAt != nil {
			continue
		}
		if filter.TenantID != nil && ticket.TenantID != *filter.TenantID {
			continue
		}
		if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
			continue
		}
		if filter.CreatedFrom != nil && ticket.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && ticket.CreatedAt.After(*filter.CreatedTo) {
			continue
		}
		if filter.SearchTerm != nil {
			term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
			if term != "" &&
				!strings.Contains(strings.ToLower(ticket.Title), term) &&
				!strings.Contains(strings.ToLower(ticket.Description), term) {
				continue
			}
		}
		matched = append(matched, ticket)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	return paginate(matched, filter.Limit, filter.Offset), nil
}

type memoryHistory struct{ m *Memory }

func (r *memoryHistory) Create(_ context.Context, entry *domain.HistoryEntry) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	r.m.history = append(r.m.history, *entry)
	return nil
}

func (r *memoryHistory) ListByTicket(_ context.Context, ticketID string, limit, offset int) ([]domain.HistoryEntry, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var matched []domain.HistoryEntry
	for _, entry := range r.m.history {
		if entry.TicketID == ticketID {
			matched = append(matched, entry)
		}
	}
	if limit <= 0 {
		limit = 100
	}
	return paginate(matched, limit, offset), nil
}

type memoryComments struct{ m *Memory }

func (r *memoryComments) Create(_ context.Context, comment *domain.Comment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	comment.ID = uuid.NewString()
	comment.CreatedAt = time.Now()
	r.m.comments = append(r.m.comments, *comment)
	return nil
}

func (r *memoryComments) ListByTicket(_ context.Context, ticketID string, limit, offset int) ([]domain.Comment, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var matched []domain.Comment
	for _, comment := range r.m.comments {
		if comment.TicketID == ticketID {
			matched = append(matched, comment)
		}
	}
	if limit <= 0 {
		limit = 100
	}
	return paginate(matched, limit, offset), nil
}

type memoryNotifications struct{ m *Memory }

func (r *memoryNotifications) Create(_ context.Context, notification *domain.Notification) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	notification.ID = uuid.NewString()
	notification.CreatedAt = time.Now()
	r.m.notifications = append(r.m.notifications, *notification)
	return nil
}

func (r *memoryNotifications) ListRecent(_ context.Context, recipientKeys []string, limit int) ([]domain.Notification, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	var matched []domain.Notification
	for _, n := range r.m.notifications {
		if containsKey(recipientKeys, n.RecipientKey) {
			matched = append(matched, n)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *memoryNotifications) MarkRead(_ context.Context, id string, recipientKeys []string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := range r.m.notifications {
		if r.m.notifications[i].ID == id && containsKey(recipientKeys, r.m.notifications[i].RecipientKey) {
			r.m.notifications[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}

func (r *memoryNotifications) Delete(_ context.Context, id string, recipientKeys []string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := range r.m.notifications {
		if r.m.notifications[i].ID == id && containsKey(recipientKeys, r.m.notifications[i].RecipientKey) {
			r.m.notifications = append(r.m.notifications[:i], r.m.notifications[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

type memoryTenants struct{ m *Memory }

func (r *memoryTenants) Create(_ context.Context, tenant *domain.Tenant) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	now := time.Now()
	tenant.ID = uuid.NewString()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	r.m.tenants[tenant.ID] = *tenant
	return nil
}

func (r *memoryTenants) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	stored, ok := r.m.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := stored
	return &copied, nil
}

func (r *memoryTenants) GetByEmail(_ context.Context, email string) (*domain.Tenant, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, tenant := range r.m.tenants {
		if tenant.Email == email {
			copied := tenant
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

type memoryStaff struct{ m *Memory }

func (r *memoryStaff) Create(_ context.Context, staff *domain.StaffMember) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	now := time.Now()
	staff.ID = uuid.NewString()
	staff.CreatedAt = now
	staff.UpdatedAt = now
	r.m.staff[staff.ID] = *staff
	return nil
}

func (r *memoryStaff) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	stored, ok := r.m.staff[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := stored
	return &copied, nil
}

func (r *memoryStaff) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, staff := range r.m.staff {
		if staff.Email == email {
			copied := staff
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryStaff) ListAdmins(_ context.Context) ([]domain.StaffMember, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var result []domain.StaffMember
	for _, staff := range r.m.staff {
		if staff.Role == domain.StaffRoleAdmin && staff.Active {
			result = append(result, staff)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

type memoryAssets struct{ m *Memory }

func (r *memoryAssets) Create(_ context.Context, asset *domain.Asset) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	asset.ID = uuid.NewString()
	asset.CreatedAt = time.Now()
	r.m.assets[asset.ID] = *asset
	return nil
}

func (r *memoryAssets) GetByID(_ context.Context, id string) (*domain.Asset, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	stored, ok := r.m.assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := stored
	return &copied, nil
}

func (r *memoryAssets) List(_ context.Context, limit, offset int) ([]domain.Asset, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	result := make([]domain.Asset, 0, len(r.m.assets))
	for _, asset := range r.m.assets {
		result = append(result, asset)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit <= 0 {
		limit = 50
	}
	return paginate(result, limit, offset), nil
}

type memoryStats struct{ m *Memory }

func (r *memoryStats) Snapshot(_ context.Context, topAssets int) (*domain.DashboardStats, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	if topAssets <= 0 {
		topAssets = 5
	}

	stats := &domain.DashboardStats{GeneratedAt: time.Now()}
	perAsset := make(map[string]int64)
	for _, ticket := range r.m.tickets {
		if ticket.DeletedAt != nil {
			continue
		}
		stats.TotalTickets++
		switch ticket.Status {
		case domain.TicketStatusOpen:
			stats.OpenTickets++
		case domain.TicketStatusProcessing:
			stats.ProcessingTickets++
		case domain.TicketStatusResolved:
			stats.ResolvedTickets++
		}
		if ticket.Priority == domain.TicketPriorityCritical {
			stats.CriticalTickets++
		}
		if ticket.AssetID != nil {
			perAsset[*ticket.AssetID]++
		}
	}
	stats.TotalTenants = int64(len(r.m.tenants))
	stats.TotalAssets = int64(len(r.m.assets))

	for assetID, count := range perAsset {
		asset, ok := r.m.assets[assetID]
		if !ok {
			continue
		}
		stats.TopAssets = append(stats.TopAssets, domain.AssetTicketCount{
			AssetID:     assetID,
			AssetName:   asset.Name,
			TicketCount: count,
		})
	}
	sort.Slice(stats.TopAssets, func(i, j int) bool {
		if stats.TopAssets[i].TicketCount != stats.TopAssets[j].TicketCount {
			return stats.TopAssets[i].TicketCount > stats.TopAssets[j].TicketCount
		}
		return stats.TopAssets[i].AssetName < stats.TopAssets[j].AssetName
	})
	if len(stats.TopAssets) > topAssets {
		stats.TopAssets = stats.TopAssets[:topAssets]
	}
	return stats, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, candidate := range list {
		if candidate == p {
			return true
		}
	}
	return false
}

func containsKey(keys []string, key string) bool {
	for _, candidate := range keys {
		if candidate == key {
			return true
		}
	}
	return false
}
