package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/judithshaven/storefront/internal/models"
)

const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour
)

type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	Role string `json:"role"`
	Typ  string `json:"typ"`
	jwt.RegisteredClaims
}

type TokenService struct {
	DB            *gorm.DB
	JWTSecret     []byte
	RefreshSecret []byte
}

func (t *TokenService) SignAccessToken(userID uint, role string) (string, time.Time, error) {
	exp := time.Now().Add(AccessTTL)
	claims := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(int(userID)),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(t.JWTSecret)
	return signed, exp, err
}

func (t *TokenService) SignRefreshToken(userID uint, role string) (string, time.Time, error) {
	exp := time.Now().Add(RefreshTTL)
	claims := RefreshClaims{
		Role: role,
		Typ:  "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(int(userID)),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.NewString(),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(t.RefreshSecret)
	return signed, exp, err
}

func (t *TokenService) SaveRefreshToken(raw string, userID uint, jti string, exp time.Time) error {
	row := models.RefreshToken{
		Token:     raw,
		JTI:       jti,
		UserID:    userID,
		ExpiresAt: exp.Unix(),
		Revoked:   false,
	}
	if err := t.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// IssuePair signs and persists a fresh access/refresh pair for the user.
func (t *TokenService) IssuePair(userID uint, role string) (access, refresh string, err error) {
	access, _, err = t.SignAccessToken(userID, role)
	if err != nil {
		return "", "", err
	}
	refresh, refreshExp, err := t.SignRefreshToken(userID, role)
	if err != nil {
		return "", "", err
	}

	claims, err := t.parseRefresh(refresh)
	if err != nil {
		return "", "", err
	}
	if err := t.SaveRefreshToken(refresh, userID, claims.ID, refreshExp); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (t *TokenService) parseRefresh(raw string) (*RefreshClaims, error) {
	var claims RefreshClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(tk *jwt.Token) (interface{}, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tk.Header["alg"])
		}
		return t.RefreshSecret, nil
	})
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}
	if claims.Typ != "refresh" {
		return nil, errors.New("not a refresh token")
	}
	return &claims, nil
}

// ValidateRefresh verifies the signature and the stored row (revocation,
// expiry).
func (t *TokenService) ValidateRefresh(raw string) (*RefreshClaims, error) {
	claims, err := t.parseRefresh(raw)
	if err != nil {
		return nil, err
	}

	var stored models.RefreshToken
	if err := t.DB.Where("token = ?", raw).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("refresh token not found")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if stored.Revoked {
		return nil, errors.New("refresh token revoked")
	}
	if time.Now().Unix() > stored.ExpiresAt {
		return nil, errors.New("refresh token expired")
	}

	return claims, nil
}

// RotateToken exchanges a valid refresh token for a new pair and revokes the
// old row, making every refresh token single-use.
func (t *TokenService) RotateToken(raw string) (string, string, *RefreshClaims, error) {
	claims, err := t.ValidateRefresh(raw)
	if err != nil {
		return "", "", nil, err
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return "", "", nil, fmt.Errorf("invalid subject: %w", err)
	}

	if err := t.RevokeRefresh(raw); err != nil {
		return "", "", nil, err
	}

	access, refresh, err := t.IssuePair(uint(userID), claims.Role)
	if err != nil {
		return "", "", nil, err
	}
	return access, refresh, claims, nil
}

func (t *TokenService) RevokeRefresh(raw string) error {
	if err := t.DB.Model(&models.RefreshToken{}).
		Where("token = ?", raw).
		Update("revoked", true).Error; err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
