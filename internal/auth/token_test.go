package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/duthaho/trello-clone-sub000/internal/domain"
)

func TestTokenManagerIssueAndParse(t *testing.T) {
	m := NewTokenManager("secret", "trello-clone", 30*time.Minute, time.Hour)

	pair, err := m.Issue(42, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotEmpty(t, pair.RefreshID)

	claims, err := m.Parse(pair.AccessToken, TokenAccess)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
	require.Equal(t, "alice", claims.Username)

	claims, err = m.Parse(pair.RefreshToken, TokenRefresh)
	require.NoError(t, err)
	require.Equal(t, pair.RefreshID, claims.ID)
}

func TestTokenManagerRejectsWrongType(t *testing.T) {
	m := NewTokenManager("secret", "trello-clone", time.Minute, time.Hour)
	pair, err := m.Issue(1, "bob")
	require.NoError(t, err)

	_, err = m.Parse(pair.AccessToken, TokenRefresh)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = m.Parse(pair.RefreshToken, TokenAccess)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestTokenManagerRejectsExpired(t *testing.T) {
	m := NewTokenManager("secret", "trello-clone", time.Minute, time.Hour)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }
	pair, err := m.Issue(1, "bob")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(pair.AccessToken, TokenAccess)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	require.ErrorContains(t, err, "expired")

	// refresh token lives longer
	_, err = m.Parse(pair.RefreshToken, TokenRefresh)
	require.NoError(t, err)
}

func TestTokenManagerRejectsForeignSignatureAndIssuer(t *testing.T) {
	m := NewTokenManager("secret", "trello-clone", time.Minute, time.Hour)
	other := NewTokenManager("other-secret", "trello-clone", time.Minute, time.Hour)
	pair, err := other.Issue(1, "mallory")
	require.NoError(t, err)
	_, err = m.Parse(pair.AccessToken, TokenAccess)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	foreign := NewTokenManager("secret", "someone-else", time.Minute, time.Hour)
	pair, err = foreign.Issue(1, "mallory")
	require.NoError(t, err)
	_, err = m.Parse(pair.AccessToken, TokenAccess)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = m.Parse("not-a-jwt", TokenAccess)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	require.True(t, CheckPassword(hash, "correct horse"))
	require.False(t, CheckPassword(hash, "battery staple"))
}
