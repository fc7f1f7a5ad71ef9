package security

import (
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("wrong token type for this endpoint")
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

const (
	RoleSuperAdmin = "superadmin"
	RoleSuperhost  = "superhost"
	// RoleGuard is carried by gate scanner devices.
	RoleGuard = "guard"
)

const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// UserClaims defines the standard claims for our application
type UserClaims struct {
	UserID int32     `json:"user_id"`
	Phone  string    `json:"phone,omitempty"`
	Type   TokenType `json:"type"`
	Roles  []string  `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

func (c *UserClaims) HasRole(roles ...string) bool {
	for _, r := range roles {
		if slices.Contains(c.Roles, r) {
			return true
		}
	}
	return false
}

type TokenManager interface {
	GenerateAccessToken(userID int32, phone string, roles []string) (string, error)
	GenerateRefreshToken(userID int32, phone string) (string, error)
	// GenerateDeviceToken issues a long lived access token for an unattended device.
	GenerateDeviceToken(device string, roles []string, ttl time.Duration) (string, error)
	ValidateToken(tokenString string) (*UserClaims, error)
}

type tokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) TokenManager {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &tokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (m *tokenManager) sign(claims UserClaims, subject, audience string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    "nikosoko-auth",
		Audience:  jwt.ClaimStrings{audience},
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) GenerateAccessToken(userID int32, phone string, roles []string) (string, error) {
	claims := UserClaims{
		UserID: userID,
		Phone:  phone,
		Type:   TokenTypeAccess,
		Roles:  roles,
	}
	return m.sign(claims, strconv.Itoa(int(userID)), "api-access", m.accessTTL)
}

func (m *tokenManager) GenerateRefreshToken(userID int32, phone string) (string, error) {
	claims := UserClaims{
		UserID: userID,
		Phone:  phone,
		Type:   TokenTypeRefresh,
	}
	return m.sign(claims, strconv.Itoa(int(userID)), "token-refresh", m.refreshTTL)
}

func (m *tokenManager) GenerateDeviceToken(device string, roles []string, ttl time.Duration) (string, error) {
	claims := UserClaims{
		Type:  TokenTypeAccess,
		Roles: roles,
	}
	return m.sign(claims, "device:"+device, "api-access", ttl)
}

func (m *tokenManager) ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
