package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	SubjectType domain.SubjectType
	TokenID     string
	Tenant      *domain.Tenant
	Staff       *domain.StaffMember
}

// Name returns the display name of the caller.
func (p *Principal) Name() string {
	switch {
	case p.Tenant != nil:
		return p.Tenant.Name
	case p.Staff != nil:
		return p.Staff.Name
	}
	return ""
}

// ID returns the subject id of the caller.
func (p *Principal) ID() string {
	switch {
	case p.Tenant != nil:
		return p.Tenant.ID
	case p.Staff != nil:
		return p.Staff.ID
	}
	return ""
}

// IsAdmin reports whether the caller is an admin staff member.
func (p *Principal) IsAdmin() bool {
	return p.Staff != nil && p.Staff.Role == domain.StaffRoleAdmin
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens     *TokenManager
	revocation RevocationList
	tenants    repository.TenantRepository
	staff      repository.StaffRepository
	logger     *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, revocation RevocationList, tenants repository.TenantRepository, staff repository.StaffRepository, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, revocation: revocation, tenants: tenants, staff: staff, logger: logger}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	principal, err := m.Resolve(c, parts[1])
	if err != nil {
		return err
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// Resolve validates a raw token, checks the revocation list and loads the
// backing account. Shared between the HTTP middleware and the websocket
// handshake.
func (m *AuthMiddleware) Resolve(c *fiber.Ctx, rawToken string) (*Principal, error) {
	claims, err := m.tokens.ParseToken(rawToken)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}

	if m.revocation != nil {
		revoked, err := m.revocation.IsRevoked(c.Context(), claims.RegisteredClaims.ID)
		if err != nil {
			// Fail closed: a token that cannot be checked against the
			// revocation list is not admitted.
			m.logger.Warn("revocation check failed", zap.Error(err))
			return nil, apperrors.NewUnauthorized("credential verification unavailable")
		}
		if revoked {
			return nil, apperrors.NewUnauthorized("token revoked")
		}
	}

	principal := &Principal{SubjectType: claims.Subject, TokenID: claims.RegisteredClaims.ID}

	switch claims.Subject {
	case domain.SubjectTypeTenant:
		tenant, err := m.tenants.GetByID(c.Context(), claims.SubjectID)
		if err != nil {
			return nil, apperrors.NewUnauthorized("tenant not found")
		}
		principal.Tenant = tenant
	case domain.SubjectTypeStaff:
		staff, err := m.staff.GetByID(c.Context(), claims.SubjectID)
		if err != nil {
			return nil, apperrors.NewUnauthorized("staff not found")
		}
		principal.Staff = staff
	default:
		return nil, apperrors.NewUnauthorized("unknown subject")
	}

	return principal, nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
