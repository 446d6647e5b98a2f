// Package auth turns a shared role secret into a signed session cookie.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the session cookie set by /login.
const CookieName = "wagebook_session"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

var (
	ErrInvalidSecret = errors.New("invalid secret")
	ErrNoSession     = errors.New("no valid session")
)

// Session is the authenticated caller. Only admins may write.
type Session struct {
	Role      Role
	ExpiresAt time.Time
}

func (s Session) CanWrite() bool { return s.Role == RoleAdmin }

type claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator checks role secrets and signs session tokens with HS256.
type Authenticator struct {
	admin   []byte
	viewer  []byte
	signKey []byte
	ttl     time.Duration
	now     func() time.Time
}

// New builds an Authenticator. An empty viewer secret disables the viewer
// role.
func New(adminSecret, viewerSecret, signingKey string, ttl time.Duration) (*Authenticator, error) {
	if adminSecret == "" {
		return nil, errors.New("admin secret is required")
	}
	if signingKey == "" {
		return nil, errors.New("signing key is required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Authenticator{
		admin:   []byte(adminSecret),
		viewer:  []byte(viewerSecret),
		signKey: []byte(signingKey),
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// Login matches secret against both role secrets in constant time.
func (a *Authenticator) Login(secret string) (Session, error) {
	s := []byte(secret)
	isAdmin := subtle.ConstantTimeCompare(s, a.admin) == 1
	isViewer := len(a.viewer) > 0 && subtle.ConstantTimeCompare(s, a.viewer) == 1

	exp := a.now().Add(a.ttl).Truncate(time.Second)
	switch {
	case isAdmin:
		return Session{Role: RoleAdmin, ExpiresAt: exp}, nil
	case isViewer:
		return Session{Role: RoleViewer, ExpiresAt: exp}, nil
	}
	return Session{}, ErrInvalidSecret
}

// Sign encodes s as a JWT.
func (a *Authenticator) Sign(s Session) (string, error) {
	now := a.now()
	c := &claims{
		Role: s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.signKey)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

// Parse verifies token and returns its session. Any failure is ErrNoSession.
func (a *Authenticator) Parse(token string) (Session, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return a.signKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return Session{}, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if c.Role != RoleAdmin && c.Role != RoleViewer {
		return Session{}, fmt.Errorf("%w: unknown role %q", ErrNoSession, c.Role)
	}
	return Session{Role: c.Role, ExpiresAt: c.ExpiresAt.Time}, nil
}

func (a *Authenticator) TTL() time.Duration { return a.ttl }

type sessionKey struct{}

func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
