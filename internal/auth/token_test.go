package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)

	role := domain.StaffRoleAdmin
	token, expiresAt, err := tm.GenerateToken("staff-1", "Ada Admin", domain.SubjectTypeStaff, &role)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", claims.SubjectID)
	assert.Equal(t, domain.SubjectTypeStaff, claims.Subject)
	assert.Equal(t, "Ada Admin", claims.Name)
	require.NotNil(t, claims.Role)
	assert.Equal(t, domain.StaffRoleAdmin, *claims.Role)
	assert.NotEmpty(t, claims.RegisteredClaims.ID)
}

func TestTokenUniqueIDs(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)

	first, _, err := tm.GenerateToken("tenant-1", "Acme", domain.SubjectTypeTenant, nil)
	require.NoError(t, err)
	second, _, err := tm.GenerateToken("tenant-1", "Acme", domain.SubjectTypeTenant, nil)
	require.NoError(t, err)

	firstClaims, err := tm.ParseToken(first)
	require.NoError(t, err)
	secondClaims, err := tm.ParseToken(second)
	require.NoError(t, err)

	assert.NotEqual(t, firstClaims.RegisteredClaims.ID, secondClaims.RegisteredClaims.ID)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	issuer := NewTokenManager("secret-a", 60)
	verifier := NewTokenManager("secret-b", 60)

	token, _, err := issuer.GenerateToken("tenant-1", "Acme", domain.SubjectTypeTenant, nil)
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.Error(t, err)
}

func TestMemoryRevocationList(t *testing.T) {
	ctx := context.Background()
	list := NewMemoryRevocationList()

	revoked, err := list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, list.Revoke(ctx, "jti-1", time.Minute))

	revoked, err = list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// an expired entry no longer counts as revoked
	require.NoError(t, list.Revoke(ctx, "jti-2", time.Nanosecond))
	time.Sleep(5 * time.Millisecond)
	revoked, err = list.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2-but-longer", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2-but-longer", hash)

	assert.NoError(t, ComparePassword(hash, "hunter2-but-longer"))
	assert.Error(t, ComparePassword(hash, "wrong-password"))
}
