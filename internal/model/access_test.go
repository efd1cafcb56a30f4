package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseAccessLevel(t *testing.T) {
	t.Parallel()

	level, err := ParseAccessLevel(" Write ")
	require.NoError(t, err)
	require.Equal(t, AccessWrite, level)

	_, err = ParseAccessLevel("owner")
	require.Error(t, err)
}

func TestAccessLevelJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(AccessAdmin)
	require.NoError(t, err)
	require.JSONEq(t, `"admin"`, string(data))

	var level AccessLevel
	require.NoError(t, json.Unmarshal([]byte(`"read"`), &level))
	require.Equal(t, AccessRead, level)
}

func TestGrantActiveAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	grant := AccessGrant{Level: AccessWrite, ExpiresAt: now.Add(time.Hour)}

	require.True(t, grant.ActiveAt(now, AccessRead))
	require.True(t, grant.ActiveAt(now, AccessWrite))
	require.False(t, grant.ActiveAt(now, AccessAdmin))

	// Still valid at the expiry instant itself, gone one tick later.
	require.True(t, grant.ActiveAt(grant.ExpiresAt, AccessWrite))
	require.False(t, grant.ActiveAt(grant.ExpiresAt.Add(time.Nanosecond), AccessWrite))

	perpetual := AccessGrant{Level: AccessRead}
	require.True(t, perpetual.ActiveAt(now.Add(1000*time.Hour), AccessRead))
}
