package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AuthService issues and revokes access tokens for tenants and staff.
type AuthService struct {
	tenants    repository.TenantRepository
	staff      repository.StaffRepository
	tokens     *auth.TokenManager
	revocation auth.RevocationList
	cfg        config.AuthConfig
	logger     *zap.Logger
}

// LoginResult carries a freshly issued token.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
}

// NewAuthService constructs the service.
func NewAuthService(
	cfg config.AuthConfig,
	tenants repository.TenantRepository,
	staff repository.StaffRepository,
	tokens *auth.TokenManager,
	revocation auth.RevocationList,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		tenants:    tenants,
		staff:      staff,
		tokens:     tokens,
		revocation: revocation,
		cfg:        cfg,
		logger:     logger,
	}
}

// RegisterTenant creates a tenant account.
func (s *AuthService) RegisterTenant(ctx context.Context, name, email, password string) (*domain.Tenant, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || len(password) < 8 {
		return nil, apperrors.NewValidationError("name, email and a password of at least 8 characters required", nil)
	}
	if existing, err := s.tenants.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}
	hash, err := auth.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	tenant := &domain.Tenant{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.TenantStatusActive,
	}
	if err := s.tenants.Create(ctx, tenant); err != nil {
		return nil, apperrors.MapError(err)
	}
	return tenant, nil
}

// LoginTenant verifies tenant credentials and issues a token.
func (s *AuthService) LoginTenant(ctx context.Context, email, password string) (*domain.Tenant, *LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	tenant, err := s.tenants.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, invalidCredentials(err)
	}
	if tenant.Status != domain.TenantStatusActive {
		return nil, nil, apperrors.NewForbidden("account suspended")
	}
	if err := auth.ComparePassword(tenant.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}
	token, expiresAt, err := s.tokens.GenerateToken(tenant.ID, tenant.Name, domain.SubjectTypeTenant, nil)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	return tenant, &LoginResult{Token: token, ExpiresAt: expiresAt}, nil
}

// LoginStaff verifies staff credentials and issues a token carrying the
// staff role.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*domain.StaffMember, *LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	staff, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, invalidCredentials(err)
	}
	if !staff.Active {
		return nil, nil, apperrors.NewForbidden("account deactivated")
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}
	role := staff.Role
	token, expiresAt, err := s.tokens.GenerateToken(staff.ID, staff.Name, domain.SubjectTypeStaff, &role)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	return staff, &LoginResult{Token: token, ExpiresAt: expiresAt}, nil
}

// Logout revokes the presented token for the remainder of its lifetime.
// Live connections carrying the token are reaped at the next sweep, or
// rejected at the next handshake.
func (s *AuthService) Logout(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return apperrors.NewValidationError("token id missing", nil)
	}
	if err := s.revocation.Revoke(ctx, tokenID, s.tokens.TTL()); err != nil {
		s.logger.Error("failed to revoke token", zap.String("token_id", tokenID), zap.Error(err))
		return apperrors.NewInternalError(err)
	}
	return nil
}

func invalidCredentials(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	return apperrors.MapError(err)
}
