// Package auth resolves the requesting member from a JWT.
package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/placelens/placelens/internal/report"
)

const (
	memberIDClaim     = "member_id"
	accessTokenCookie = "access_token"
)

// TokenService signs and verifies HS256 member tokens. Identification is
// best effort: a missing, expired, or malformed token resolves to the
// anonymous member rather than an error, and authorization stays with the
// handlers.
type TokenService struct {
	secret []byte
	method jwt.SigningMethod
}

// NewTokenService builds a TokenService around a shared HMAC secret.
func NewTokenService(secret string) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &TokenService{secret: []byte(secret), method: jwt.SigningMethodHS256}, nil
}

// Sign issues a token for the member with the given claims lifetime.
func (s *TokenService) Sign(memberID int64, claims jwt.MapClaims) (string, error) {
	if claims == nil {
		claims = jwt.MapClaims{}
	}
	claims[memberIDClaim] = memberID
	token := jwt.NewWithClaims(s.method, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// MemberID extracts the member id from a raw token. Any verification
// failure yields the anonymous member.
func (s *TokenService) MemberID(raw string) int64 {
	if raw == "" {
		return report.AnonymousMember
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != s.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return report.AnonymousMember
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return report.AnonymousMember
	}
	// Numeric JSON claims decode as float64.
	id, ok := claims[memberIDClaim].(float64)
	if !ok || id <= 0 {
		return report.AnonymousMember
	}
	return int64(id)
}

// FromRequest resolves the member id from the Authorization bearer header,
// falling back to the access_token cookie.
func (s *TokenService) FromRequest(r *http.Request) int64 {
	if header := r.Header.Get("Authorization"); header != "" {
		if raw, ok := strings.CutPrefix(header, "Bearer "); ok {
			return s.MemberID(raw)
		}
	}
	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		return s.MemberID(cookie.Value)
	}
	return report.AnonymousMember
}
