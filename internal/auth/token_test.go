package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billable/timesheet-api/internal/auth"
	"github.com/billable/timesheet-api/internal/models"
)

func TestGenerateParseRoundTrip(t *testing.T) {
	tokens := auth.NewTokenManager("secret", "timesheet-api", time.Hour)
	user := models.User{ID: uuid.New(), Email: "worker@example.com"}

	signed, err := tokens.Generate(user)
	require.NoError(t, err)

	principal, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, user.Email, principal.Email)
}

func TestParseRejectsBadTokens(t *testing.T) {
	tokens := auth.NewTokenManager("secret", "timesheet-api", time.Hour)
	user := models.User{ID: uuid.New(), Email: "worker@example.com"}

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Parse("not.a.token")
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := auth.NewTokenManager("different-secret", "timesheet-api", time.Hour)
		signed, err := other.Generate(user)
		require.NoError(t, err)
		_, err = tokens.Parse(signed)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := auth.NewTokenManager("secret", "someone-else", time.Hour)
		signed, err := other.Generate(user)
		require.NoError(t, err)
		_, err = tokens.Parse(signed)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		expired := auth.NewTokenManager("secret", "timesheet-api", -time.Minute)
		signed, err := expired.Generate(user)
		require.NoError(t, err)
		_, err = tokens.Parse(signed)
		assert.Error(t, err)
	})

	t.Run("zero id round-trips", func(t *testing.T) {
		signed, err := tokens.Generate(models.User{ID: uuid.Nil, Email: "x@example.com"})
		require.NoError(t, err)
		principal, err := tokens.Parse(signed)
		require.NoError(t, err)
		assert.Equal(t, uuid.Nil, principal.UserID)
	})
}
