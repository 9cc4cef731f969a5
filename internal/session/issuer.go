package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

// Claims is the JWT payload of storefront tokens.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies HS256 tokens.
type Issuer struct {
	secret     []byte
	name       string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer creates an Issuer signing with secret.
func NewIssuer(secret, name string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		name:       name,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue mints an access and a refresh token for user.
func (i *Issuer) Issue(user User) (Session, error) {
	now := i.now()
	expiresAt := now.Add(i.accessTTL)

	access, err := i.sign(user, tokenAccess, now, expiresAt)
	if err != nil {
		return Session{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := i.sign(user, tokenRefresh, now, now.Add(i.refreshTTL))
	if err != nil {
		return Session{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return Session{
		UserID:       user.ID,
		Token:        access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt.UTC().Truncate(time.Second),
	}, nil
}

func (i *Issuer) sign(user User, tokenType string, now, expiresAt time.Time) (string, error) {
	claims := &Claims{
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
		Type:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    i.name,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify parses an access token.
// Returns ErrInvalidToken if the token is malformed, expired, or not an access token.
func (i *Issuer) Verify(token string) (*Claims, error) {
	return i.verify(token, tokenAccess)
}

// Refresh exchanges a refresh token for a new session. The user is rebuilt from the token claims.
// Returns ErrInvalidToken if the refresh token does not verify.
func (i *Issuer) Refresh(refreshToken string) (User, Session, error) {
	claims, err := i.verify(refreshToken, tokenRefresh)
	if err != nil {
		return User{}, Session{}, err
	}
	user := claims.User()
	session, err := i.Issue(user)
	if err != nil {
		return User{}, Session{}, err
	}
	return user, session, nil
}

func (i *Issuer) verify(token, expectedType string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.name),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != expectedType {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, expectedType, claims.Type)
	}
	return claims, nil
}

// User rebuilds the identity carried by the claims.
func (c *Claims) User() User {
	return User{ID: c.Subject, Email: c.Email, Name: c.Name, Role: c.Role}
}

// IsExpired reports whether err came from an expired token.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
