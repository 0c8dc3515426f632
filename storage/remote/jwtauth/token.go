// Package jwtauth issues and verifies the session tokens of the self-hosted remote backends.
package jwtauth

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/remote"
)

const (
	audience        = "authenticated"
	kindAccess      = "access"
	kindRefresh     = "refresh"
	refreshFactor   = 24 * 7
	tokenTypeBearer = "bearer"
)

var (
	NowFunc = time.Now // mockable

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Email    string                 `json:"email,omitempty"`
	Kind     string                 `json:"kind"`
	Metadata map[string]interface{} `json:"user_metadata,omitempty"`
}

type Issuer struct {
	issuer string
	secret []byte
	ttl    time.Duration
}

// NewIssuer returns an HS256 Issuer. Refresh tokens outlive access tokens 168 times (a week for a one-hour ttl).
func NewIssuer(issuer, secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{issuer: issuer, secret: []byte(secret), ttl: ttl}
}

// Issue signs a new access/refresh token pair for usr.
func (iss *Issuer) Issue(usr remote.User) (*remote.Session, error) {
	now := NowFunc()
	exp := now.Add(iss.ttl).Truncate(time.Second)

	access, err := iss.sign(usr, kindAccess, now, exp)
	if err != nil {
		return nil, err
	}
	refresh, err := iss.sign(usr, kindRefresh, now, now.Add(iss.ttl*refreshFactor))
	if err != nil {
		return nil, err
	}
	return &remote.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresAt:    exp,
		User:         usr,
	}, nil
}

func (iss *Issuer) sign(usr remote.User, kind string, iat, exp time.Time) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    iss.issuer,
			Subject:   usr.ID,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email:    usr.Email,
		Kind:     kind,
		Metadata: usr.Metadata,
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(iss.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// VerifyAccess checks an access token and returns its claims.
func (iss *Issuer) VerifyAccess(token string) (*Claims, error) {
	return iss.verify(token, kindAccess)
}

// VerifyRefresh checks a refresh token and returns its claims.
func (iss *Issuer) VerifyRefresh(token string) (*Claims, error) {
	return iss.verify(token, kindRefresh)
}

func (iss *Issuer) verify(token, kind string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims := new(Claims)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) { return iss.secret, nil })
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || !NowFunc().Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// User rebuilds the remote user carried by claims.
func (c *Claims) User() remote.User {
	return remote.User{ID: c.Subject, Email: c.Email, Metadata: c.Metadata}
}

// ExpiresAt returns the expiry of token without verifying its signature.
func ExpiresAt(token string) (time.Time, error) {
	claims := new(jwt.RegisteredClaims)
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, errors.Wrap(err, "parsing token")
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}
