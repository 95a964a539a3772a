// Package auth issues and verifies the bearer tokens that guard the HTTP API.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidCredentials is returned for a wrong username or password.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	// ErrInvalidToken is returned for a missing, malformed, expired or forged token.
	ErrInvalidToken = errors.New("invalid authentication credentials")
)

// TokenType is the OAuth2 token type of every issued token.
const TokenType = "bearer"

// User is an authenticated principal.
type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Token is the response body of the login endpoints.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Config configures a Service.
type Config struct {
	SecretKey    string
	Algorithm    string // HS256, HS384 or HS512
	TTL          time.Duration
	DemoUsername string
	DemoPassword string
}

// Service authenticates the configured demo user and signs HMAC JWTs.
type Service struct {
	key      []byte
	method   jwt.SigningMethod
	ttl      time.Duration
	username string
	password string
	now      func() time.Time
}

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// New creates a Service.
func New(cfg Config) (*Service, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("secret key is required")
	}
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive")
	}
	return &Service{
		key:      []byte(cfg.SecretKey),
		method:   method,
		ttl:      cfg.TTL,
		username: cfg.DemoUsername,
		password: cfg.DemoPassword,
		now:      time.Now,
	}, nil
}

// Authenticate checks username and password against the demo account.
func (s *Service) Authenticate(username, password string) (*User, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
	if s.username == "" || !userOK || !passOK {
		return nil, ErrInvalidCredentials
	}
	return &User{Username: username, Email: username + "@example.com"}, nil
}

// IssueToken signs a token for u.
func (s *Service) IssueToken(u *User) (Token, error) {
	now := s.now()
	tok := jwt.NewWithClaims(s.method, claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := tok.SignedString(s.key)
	if err != nil {
		return Token{}, fmt.Errorf("signing token: %w", err)
	}
	return Token{
		AccessToken: signed,
		TokenType:   TokenType,
		ExpiresIn:   int(s.ttl / time.Second),
	}, nil
}

// VerifyToken validates a signed token and returns its user.
func (s *Service) VerifyToken(token string) (*User, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	email := c.Email
	if email == "" {
		email = c.Subject + "@example.com"
	}
	return &User{Username: c.Subject, Email: email}, nil
}

type userKey struct{}

// WithUser returns a context carrying u.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the user stored by the middleware, if any.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userKey{}).(*User)
	return u, ok
}
