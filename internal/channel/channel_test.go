package channel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestUserRoundTrip verifies naming and parsing are inverses.
func TestUserRoundTrip(t *testing.T) {
	t.Parallel()

	name := User(7)
	require.Equal(t, "user:7", name)
	require.True(t, IsUser(name))
	require.False(t, IsRoom(name))

	id, err := ParseUserID(name)
	require.NoError(t, err)
	require.Equal(t, int64(7), id)
}

// TestRoomRoundTrip verifies room channels parse back to their id.
func TestRoomRoundTrip(t *testing.T) {
	t.Parallel()

	name := Room(42)
	require.Equal(t, "room:42", name)
	require.True(t, IsRoom(name))

	id, err := ParseRoomID(name)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
}

// TestUsersFanOut preserves member order.
func TestUsersFanOut(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"user:1", "user:2", "user:3"}, Users([]int64{1, 2, 3}))
	require.Empty(t, Users(nil))
}

// TestParseRejectsForeignChannels covers wrong prefixes and junk ids.
func TestParseRejectsForeignChannels(t *testing.T) {
	t.Parallel()

	_, err := ParseUserID("room:7")
	require.Error(t, err)

	_, err = ParseUserID("user:abc")
	require.Error(t, err)

	_, err = ParseRoomID("user:7")
	require.Error(t, err)
}
