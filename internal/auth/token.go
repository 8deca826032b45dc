// ABOUTME: JWT verification for tenant API requests
// ABOUTME: Uses HS256 with the configured secret and requires user and tenant claims

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// Identity is who a verified token speaks for.
type Identity struct {
	UserID   string
	TenantID string
	Role     string
}

// TokenVerifier defines the interface for token verification
type TokenVerifier interface {
	Verify(tokenString string) (*Identity, error)
}

// JWTVerifier implements TokenVerifier using HS256 signed JWTs
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a new JWT verifier with the given secret
func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

// Verify validates the token and extracts the identity. The user comes from
// "sub" and the tenant from "tenant_id"; the camelCase "userId" and
// "tenantId" claims written by the dashboard's session service are accepted too.
func (v *JWTVerifier) Verify(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	id := &Identity{
		UserID:   firstClaim(claims, "sub", "userId"),
		TenantID: firstClaim(claims, "tenant_id", "tenantId"),
		Role:     firstClaim(claims, "role"),
	}
	if id.UserID == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	if id.TenantID == "" {
		return nil, fmt.Errorf("%w: tenant_id", ErrMissingClaim)
	}
	return id, nil
}

func firstClaim(claims jwt.MapClaims, names ...string) string {
	for _, name := range names {
		if s, ok := claims[name].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Generate creates a token for the identity. Issuance belongs to the
// dashboard; this is used by the CLI and tests.
func (v *JWTVerifier) Generate(id Identity, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":       id.UserID,
		"tenant_id": id.TenantID,
		"iat":       now.Unix(),
		"exp":       now.Add(expiresIn).Unix(),
	}
	if id.Role != "" {
		claims["role"] = id.Role
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
