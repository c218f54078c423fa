package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token verification errors. Expiry is reported distinctly so callers can
// return TOKEN_EXPIRED instead of a generic 401.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

const issuer = "electroshop"

// tokenUse values embedded in the claims. A refresh token presented where an
// access token is expected fails verification, and vice versa.
const (
	useAccess           = "access"
	useRefresh          = "refresh"
	useTwoFactorPending = "2fa_pending"
)

// Claims represents the JWT claims carried by every token: the principal ID,
// its kind (user or admin), and the intended use.
type Claims struct {
	PrincipalID int64  `json:"id"`
	Kind        string `json:"kind"`
	Use         string `json:"use"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies signed tokens. Access and refresh tokens
// are signed with different keys, so one can never pass for the other even
// if the use claim were forged.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	pendingExpiry time.Duration
}

// NewTokenManager creates a token manager with the given secrets and expiry
// durations. The pending expiry bounds the admin two-factor window.
func NewTokenManager(accessSecret, refreshSecret string, accessExpiry, refreshExpiry, pendingExpiry time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		pendingExpiry: pendingExpiry,
	}
}

// RefreshExpiry returns the configured refresh token lifetime.
func (m *TokenManager) RefreshExpiry() time.Duration {
	return m.refreshExpiry
}

func (m *TokenManager) sign(principalID int64, kind, use string, secret []byte, expiry time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		PrincipalID: principalID,
		Kind:        kind,
		Use:         use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(principalID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", use, err)
	}
	return signed, nil
}

// GenerateAccessToken creates a signed access token for the principal.
func (m *TokenManager) GenerateAccessToken(principalID int64, kind string) (string, error) {
	return m.sign(principalID, kind, useAccess, m.accessSecret, m.accessExpiry)
}

// GenerateRefreshToken creates a signed refresh token for the principal.
func (m *TokenManager) GenerateRefreshToken(principalID int64, kind string) (string, error) {
	return m.sign(principalID, kind, useRefresh, m.refreshSecret, m.refreshExpiry)
}

// GenerateTwoFactorPendingToken creates the short-lived token handed out when
// an admin with 2FA enabled passes the password check. It is only valid for
// completing second-factor verification.
func (m *TokenManager) GenerateTwoFactorPendingToken(adminID int64) (string, error) {
	return m.sign(adminID, "admin", useTwoFactorPending, m.accessSecret, m.pendingExpiry)
}

func (m *TokenManager) verify(tokenString, wantUse string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Use != wantUse {
		return nil, fmt.Errorf("%w: wrong token use %q", ErrTokenInvalid, claims.Use)
	}
	if claims.Kind == "" || claims.PrincipalID <= 0 {
		return nil, fmt.Errorf("%w: missing principal", ErrTokenInvalid)
	}

	return claims, nil
}

// VerifyAccessToken parses and validates an access token, returning its claims.
func (m *TokenManager) VerifyAccessToken(tokenString string) (*Claims, error) {
	return m.verify(tokenString, useAccess, m.accessSecret)
}

// VerifyRefreshToken parses and validates a refresh token, returning its claims.
func (m *TokenManager) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return m.verify(tokenString, useRefresh, m.refreshSecret)
}

// VerifyTwoFactorPendingToken parses and validates a two-factor pending token.
func (m *TokenManager) VerifyTwoFactorPendingToken(tokenString string) (*Claims, error) {
	return m.verify(tokenString, useTwoFactorPending, m.accessSecret)
}
