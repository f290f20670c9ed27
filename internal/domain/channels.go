package domain

import "strings"

// Well-known channel names. Channels are not pre-declared; they exist as soon
// as a connection subscribes or an event targets them.
const (
	ChannelLower     = "lower"
	ChannelCountdown = "countdown"
	ChannelPoster    = "poster"
	ChannelSystem    = "system"
	ChannelQuiz      = "quiz"
	ChannelPresenter = "presenter"
)

const roomChannelPrefix = "room:"

// RoomChannel returns the hub channel name for a collaboration room.
func RoomChannel(roomID string) string {
	return roomChannelPrefix + roomID
}

// IsRoomChannel reports whether name belongs to the room channel family.
// The degenerate "room:" (empty room id) counts as a room channel.
func IsRoomChannel(name string) bool {
	return strings.HasPrefix(name, roomChannelPrefix)
}

// RoomIDFromChannel extracts the room id from a room channel name.
// Returns ("", false) for names outside the room family.
func RoomIDFromChannel(name string) (string, bool) {
	if !IsRoomChannel(name) {
		return "", false
	}
	return name[len(roomChannelPrefix):], true
}
