// Package token issues and verifies bypass tokens: signed, time-boxed
// credentials proving a visitor's email passed allowlist verification.
// Validity is entirely self-contained; there is no server-side record
// and no revocation.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the fixed bypass token lifetime.
const DefaultTTL = 24 * time.Hour

// Verification failure reasons.
const (
	ReasonInvalid      = "invalid"
	ReasonExpired      = "expired"
	ReasonShopMismatch = "shop_mismatch"
)

// Claims is the signed bypass claim set. Timestamp is issuance time in
// epoch milliseconds, checked against the TTL independently of the
// registered exp claim.
type Claims struct {
	Shop      string `json:"shop"`
	Verified  bool   `json:"verified"`
	Timestamp int64  `json:"timestamp"`
	jwt.RegisteredClaims
}

// Status is the outcome of a verification.
type Status struct {
	Valid     bool
	Reason    string
	Shop      string
	ExpiresAt time.Time
	Remaining time.Duration
}

// Service signs and verifies bypass tokens with a process-wide secret.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates a token service. The secret is loaded from
// configuration at startup and never rotated at runtime.
func NewService(secret string) (*Service, error) {
	if secret == "" {
		return nil, errors.New("signing secret must not be empty")
	}
	return &Service{
		secret: []byte(secret),
		ttl:    DefaultTTL,
		now:    time.Now,
	}, nil
}

// Issue mints a signed bypass token for shop with the fixed TTL. The
// caller is responsible for having verified the visitor's email first.
func (s *Service) Issue(shop string) (string, error) {
	now := s.now()
	claims := &Claims{
		Shop:      shop,
		Verified:  true,
		Timestamp: now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature and expiry, then that the token was issued for
// shop, then that the embedded issuance timestamp is still within the
// TTL. The timestamp re-check is independent of the signature library's
// exp handling, guarding against clock skew between the two claims.
func (s *Service) Verify(tokenString, shop string) Status {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(func() time.Time { return s.now() }))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Status{Reason: ReasonExpired}
		}
		return Status{Reason: ReasonInvalid}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !claims.Verified {
		return Status{Reason: ReasonInvalid}
	}
	if claims.Shop != shop {
		return Status{Reason: ReasonShopMismatch, Shop: claims.Shop}
	}

	issued := time.UnixMilli(claims.Timestamp)
	expiresAt := issued.Add(s.ttl)
	if s.now().Sub(issued) > s.ttl {
		return Status{Reason: ReasonExpired, Shop: claims.Shop}
	}

	return Status{
		Valid:     true,
		Shop:      claims.Shop,
		ExpiresAt: expiresAt,
		Remaining: expiresAt.Sub(s.now()),
	}
}
