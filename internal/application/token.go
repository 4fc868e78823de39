package application

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// tokenClaims is the JWT payload of both token types.
type tokenClaims struct {
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access and refresh tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	idGen      func() string
}

// NewTokenIssuer constructs an issuer. Non-positive TTLs fall back to 15
// minutes for access tokens and 7 days for refresh tokens.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration, idGenerator func() string, now func() time.Time) *TokenIssuer {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
		idGen:      idGenerator,
	}
}

// Issue signs a fresh token pair for the user.
func (t *TokenIssuer) Issue(userID, username string) (TokenPair, error) {
	if len(t.secret) == 0 {
		return TokenPair{}, fmt.Errorf("token secret is not configured")
	}
	now := t.now()

	access, accessExp, err := t.sign(userID, username, tokenTypeAccess, now, t.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := t.sign(userID, username, tokenTypeRefresh, now, t.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (t *TokenIssuer) sign(userID, username, tokenType string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	expires := now.Add(ttl)
	claims := tokenClaims{
		Username:  username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        t.idGen(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, expires, nil
}

// Parse verifies signature, expiry against the issuer clock and token type.
func (t *TokenIssuer) Parse(token, tokenType string) (tokenClaims, error) {
	var claims tokenClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		var vErr *jwt.ValidationError
		if errors.As(err, &vErr) {
			return tokenClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, vErr.Inner)
		}
		return tokenClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !claims.VerifyExpiresAt(t.now(), true) {
		return tokenClaims{}, fmt.Errorf("%w: token expired", ErrInvalidToken)
	}
	if claims.TokenType != tokenType {
		return tokenClaims{}, fmt.Errorf("%w: expected %s token", ErrInvalidToken, tokenType)
	}
	if claims.Subject == "" {
		return tokenClaims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
