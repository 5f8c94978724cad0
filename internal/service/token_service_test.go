package service

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/judithshaven/storefront/internal/config"
	"github.com/judithshaven/storefront/internal/models"
)

func newTokenService(t *testing.T) *TokenService {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	return &TokenService{
		DB:            db,
		JWTSecret:     []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
	}
}

func TestSignAccessToken(t *testing.T) {
	ts := newTokenService(t)

	raw, exp, err := ts.SignAccessToken(42, "admin")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(AccessTTL), exp, 5*time.Second)

	var claims AccessClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(tk *jwt.Token) (interface{}, error) {
		return ts.JWTSecret, nil
	})
	require.NoError(t, err)
	require.True(t, tok.Valid)
	require.Equal(t, "42", claims.Subject)
	require.Equal(t, "admin", claims.Role)
}

func TestIssuePairPersistsRefreshRow(t *testing.T) {
	ts := newTokenService(t)

	access, refresh, err := ts.IssuePair(7, "user")
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	var row models.RefreshToken
	require.NoError(t, ts.DB.Where("token = ?", refresh).First(&row).Error)
	require.EqualValues(t, 7, row.UserID)
	require.NotEmpty(t, row.JTI)
	require.False(t, row.Revoked)
}

func TestValidateRefresh(t *testing.T) {
	ts := newTokenService(t)

	_, refresh, err := ts.IssuePair(7, "user")
	require.NoError(t, err)

	claims, err := ts.ValidateRefresh(refresh)
	require.NoError(t, err)
	require.Equal(t, "7", claims.Subject)
	require.Equal(t, "refresh", claims.Typ)

	// An access token is not accepted on the refresh path.
	access, _, err := ts.SignAccessToken(7, "user")
	require.NoError(t, err)
	_, err = ts.ValidateRefresh(access)
	require.Error(t, err)
}

func TestValidateRefreshRejectsRevoked(t *testing.T) {
	ts := newTokenService(t)

	_, refresh, err := ts.IssuePair(7, "user")
	require.NoError(t, err)
	require.NoError(t, ts.RevokeRefresh(refresh))

	_, err = ts.ValidateRefresh(refresh)
	require.ErrorContains(t, err, "revoked")
}

func TestValidateRefreshRejectsUnknownToken(t *testing.T) {
	ts := newTokenService(t)

	// Properly signed but never persisted.
	refresh, _, err := ts.SignRefreshToken(7, "user")
	require.NoError(t, err)

	_, err = ts.ValidateRefresh(refresh)
	require.ErrorContains(t, err, "not found")
}

func TestRotateTokenIsSingleUse(t *testing.T) {
	ts := newTokenService(t)

	_, refresh, err := ts.IssuePair(7, "user")
	require.NoError(t, err)

	access2, refresh2, claims, err := ts.RotateToken(refresh)
	require.NoError(t, err)
	require.NotEmpty(t, access2)
	require.NotEqual(t, refresh, refresh2)
	require.Equal(t, "7", claims.Subject)

	// The old row is revoked, so a second rotation with it fails.
	var old models.RefreshToken
	require.NoError(t, ts.DB.Where("token = ?", refresh).First(&old).Error)
	require.True(t, old.Revoked)

	_, _, _, err = ts.RotateToken(refresh)
	require.Error(t, err)

	// The replacement still works.
	_, err = ts.ValidateRefresh(refresh2)
	require.NoError(t, err)
}
