package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)
	clock := func() time.Time { return now }
	issuer := NewTokenIssuer("secret", time.Minute, time.Hour, func() string { return "jti" }, clock)

	pair, err := issuer.Issue("user-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), pair.AccessExpiresAt)
	assert.Equal(t, now.Add(time.Hour), pair.RefreshExpiresAt)

	claims, err := issuer.Parse(pair.AccessToken, tokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "alice", claims.Username)

	_, err = issuer.Parse(pair.RefreshToken, tokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken, "refresh token used as access token")

	_, err = issuer.Parse(pair.AccessToken+"x", tokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenIssuer("other-secret", time.Minute, time.Hour, nil, clock)
	_, err = other.Parse(pair.AccessToken, tokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	now = now.Add(2 * time.Minute)
	_, err = issuer.Parse(pair.AccessToken, tokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")
	_, err = issuer.Parse(pair.RefreshToken, tokenTypeRefresh)
	assert.NoError(t, err)
}

func TestTokenIssuerRequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := NewTokenIssuer("", 0, 0, nil, nil).Issue("user-1", "alice")
	assert.Error(t, err)
}
