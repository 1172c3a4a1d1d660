package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xapps/user-management-service/internal/core/domain"
)

const rolesClaimSeparator = ","

// TokenService shapes JWT claims for the user directory. The sub claim
// carries the JSON-serialized public user summary, and roles travel as a
// single comma-joined string for wire compatibility.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the user. Expiration is issued-at plus the
// configured TTL, both in unix seconds.
func (s *TokenService) Issue(user domain.User, roles []domain.RoleName, now time.Time) (string, int64, error) {
	subject, err := json.Marshal(user)
	if err != nil {
		return "", 0, fmt.Errorf("encode subject: %w", err)
	}

	issuedAt := now.Unix()
	expiration := issuedAt + int64(s.ttl.Seconds())

	claims := jwt.MapClaims{
		"sub":   string(subject),
		"iat":   issuedAt,
		"exp":   expiration,
		"roles": joinRoles(roles),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", 0, fmt.Errorf("sign token: %w", err)
	}
	return token, expiration, nil
}

// Verify parses and validates a raw token. Signature, algorithm, and
// expiry failures all collapse to domain.ErrInvalidToken so callers
// cannot distinguish them.
func (s *TokenService) Verify(raw string) (*domain.Principal, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	subject, _ := claims["sub"].(string)
	var user domain.User
	if err := json.Unmarshal([]byte(subject), &user); err != nil {
		return nil, domain.ErrInvalidToken
	}

	principal := &domain.Principal{
		Subject: user,
		Roles:   splitRoles(claims["roles"]),
	}
	if iat, ok := claims["iat"].(float64); ok {
		principal.IssuedAt = time.Unix(int64(iat), 0).UTC()
	}
	if exp, ok := claims["exp"].(float64); ok {
		principal.ExpiresAt = time.Unix(int64(exp), 0).UTC()
	}
	return principal, nil
}

func joinRoles(roles []domain.RoleName) string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}
	return strings.Join(names, rolesClaimSeparator)
}

func splitRoles(claim any) []domain.RoleName {
	joined, _ := claim.(string)
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, rolesClaimSeparator)
	roles := make([]domain.RoleName, 0, len(parts))
	for _, p := range parts {
		roles = append(roles, domain.RoleName(p))
	}
	return roles
}
