package domain

import "time"

// TenantStatus represents lifecycle states for a tenant account.
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "ACTIVE"
	TenantStatusSuspended TenantStatus = "SUSPENDED"
)

// Tenant is the customer account that owns tickets.
type Tenant struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Status       TenantStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
