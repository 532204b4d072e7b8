package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
)

var (
	errMissingToken = errors.New("missing token")
	errInvalidToken = errors.New("invalid token")
)

// TokenManager verifies bearer tokens issued by the identity service.
// Mint exists for local development and seeding only.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func (m *TokenManager) Mint(p model.Principal) (string, error) {
	now := time.Now()
	role := p.Role
	if role == "" {
		role = model.RoleUser
	}
	claims := Claims{
		Email: p.Email,
		Role:  string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			Subject:   p.UserID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ParseFromRequest reads "Authorization: Bearer <jwt>".
func (m *TokenManager) ParseFromRequest(r *http.Request) (model.Principal, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return model.Principal{}, errMissingToken
	}
	return m.Parse(strings.TrimSpace(hdr[7:]))
}

func (m *TokenManager) Parse(tok string) (model.Principal, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid || claims.Subject == "" {
		return model.Principal{}, errInvalidToken
	}
	role := model.Role(claims.Role)
	if role == "" {
		role = model.RoleUser
	}
	return model.Principal{
		UserID: claims.Subject,
		Email:  strings.ToLower(strings.TrimSpace(claims.Email)),
		Role:   role,
	}, nil
}
