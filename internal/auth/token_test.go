package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/marketplace-portal/internal/domain"
)

func TestGenerateAndParseToken(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	user := &domain.User{ID: 42, Role: domain.RoleServiceOwner}

	token, exp, err := tm.GenerateToken(user)
	require.NoError(t, err)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, domain.RoleServiceOwner, claims.Role)
	assert.Equal(t, "42", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestTokensAreUnique(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	user := &domain.User{ID: 1, Role: domain.RoleUser}

	a, _, err := tm.GenerateToken(user)
	require.NoError(t, err)
	b, _, err := tm.GenerateToken(user)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestRevokedTokenIsRejected(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	user := &domain.User{ID: 1, Role: domain.RoleUser}
	revoked, _, err := tm.GenerateToken(user)
	require.NoError(t, err)
	kept, _, err := tm.GenerateToken(user)
	require.NoError(t, err)

	claims, err := tm.ParseToken(revoked)
	require.NoError(t, err)
	tm.Revoke(claims)

	_, err = tm.ParseToken(revoked)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	_, err = tm.ParseToken(kept)
	assert.NoError(t, err)
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	issuer := NewTokenManager("one", 15)
	verifier := NewTokenManager("two", 15)
	token, _, err := issuer.GenerateToken(&domain.User{ID: 1})
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestHashPasswordClampsCost(t *testing.T) {
	hashed, err := HashPassword("pw-123456", 1)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hashed, "pw-123456"))
	assert.Error(t, ComparePassword(hashed, "other"))
}

func TestCanActFor(t *testing.T) {
	owner := &Principal{User: &domain.User{ID: 5, Role: domain.RoleServiceOwner}}
	admin := &Principal{User: &domain.User{ID: 1, Role: domain.RoleAdmin}}

	assert.True(t, CanActFor(owner, 5))
	assert.False(t, CanActFor(owner, 6))
	assert.True(t, CanActFor(admin, 6))
	assert.False(t, CanActFor(nil, 5))
}
