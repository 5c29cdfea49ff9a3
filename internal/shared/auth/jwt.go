package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the caller context every authenticated operation runs under.
type Identity struct {
	UserID    string
	CompanyID string
	Role      string
}

// IsAdmin reports whether the caller may manage company settings.
func (i Identity) IsAdmin() bool {
	return strings.EqualFold(i.Role, "admin") || strings.EqualFold(i.Role, "owner")
}

// Claims is the JWT payload issued to company members.
type Claims struct {
	CompanyID string `json:"company_id"`
	Role      string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var (
	errMissingSecret = errors.New("jwt secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// Verifier signs and verifies HS256 bearer tokens.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier builds a Verifier. Production requires an explicit secret.
func NewVerifier(secret, env string) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		if env == "production" {
			return nil, fmt.Errorf("%w: JWT_SECRET required in production", errMissingSecret)
		}
		secret = "dev-secret"
	}
	return &Verifier{secret: []byte(secret), now: time.Now}, nil
}

// Sign issues a token for the identity valid for ttl (24h when zero).
func (v *Verifier) Sign(id Identity, ttl time.Duration) (string, error) {
	if id.UserID == "" || id.CompanyID == "" {
		return "", errors.New("user id and company id are required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := v.now().UTC()
	claims := Claims{
		CompanyID: id.CompanyID,
		Role:      id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify parses the token and returns the identity it carries.
func (v *Verifier) Verify(token string) (Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(v.now))
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.CompanyID == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.Subject, CompanyID: claims.CompanyID, Role: claims.Role}, nil
}
