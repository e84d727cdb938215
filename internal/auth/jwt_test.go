package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/newsmeme/config"
)

func newManager() *TokenManager {
	return NewTokenManager(config.JWTConfig{Secret: "s3cret", Expire: time.Hour, Issuer: "newsmeme"})
}

func TestIssueAndParse(t *testing.T) {
	m := newManager()
	token, exp, err := m.Issue(42, "alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "alice", claims.Username)
}

func TestParseRejects(t *testing.T) {
	m := newManager()
	token, _, err := m.Issue(1, "alice")
	require.NoError(t, err)

	other := NewTokenManager(config.JWTConfig{Secret: "other", Expire: time.Hour, Issuer: "newsmeme"})
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := NewTokenManager(config.JWTConfig{Secret: "s3cret", Expire: time.Hour, Issuer: "someone"})
	_, err = wrongIssuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseExpired(t *testing.T) {
	m := newManager()
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := m.Issue(1, "alice")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
