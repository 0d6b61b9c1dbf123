// Package channel maps subscriber identities to message bus channel names.
package channel

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	userPrefix = "user:"
	roomPrefix = "room:"
)

// User returns the personal channel for a member.
func User(memberID int64) string {
	return userPrefix + strconv.FormatInt(memberID, 10)
}

// Room returns the shared channel for a room.
func Room(roomID int64) string {
	return roomPrefix + strconv.FormatInt(roomID, 10)
}

// Users returns the personal channels for each member, in order.
func Users(memberIDs []int64) []string {
	channels := make([]string, len(memberIDs))
	for i, id := range memberIDs {
		channels[i] = User(id)
	}
	return channels
}

// ParseUserID extracts the member id from a user channel name.
func ParseUserID(name string) (int64, error) {
	return parseID(name, userPrefix)
}

// ParseRoomID extracts the room id from a room channel name.
func ParseRoomID(name string) (int64, error) {
	return parseID(name, roomPrefix)
}

// IsUser reports whether the channel addresses a single member.
func IsUser(name string) bool {
	return strings.HasPrefix(name, userPrefix)
}

// IsRoom reports whether the channel addresses a room.
func IsRoom(name string) bool {
	return strings.HasPrefix(name, roomPrefix)
}

func parseID(name, prefix string) (int64, error) {
	if !strings.HasPrefix(name, prefix) {
		return 0, fmt.Errorf("invalid channel format %q", name)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(name, prefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse id from channel %q: %w", name, err)
	}
	return id, nil
}
