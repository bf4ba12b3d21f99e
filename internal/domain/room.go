// Package domain defines the core domain models for the chat service.
package domain

import "time"

// Role represents a member's role inside a room.
type Role string

const (
	RoleParticipant   Role = "participant"
	RoleAdministrator Role = "administrator"
)

// SystemAuthor is the reserved identity used for synthetic join/leave
// notices. It can never be claimed as a member name.
const SystemAuthor = "system"

// Room represents a named, persistent chat channel. Rooms are created by an
// explicit action and are never removed just because membership drops to
// zero; deletion is an administrative operation.
type Room struct {
	Code      string    `json:"code"`
	Topic     string    `json:"topic"`
	CreatedAt time.Time `json:"created_at"`
}

// Member represents a (name, role) pair currently joined to a room. The
// member list of a room contains each name at most once.
type Member struct {
	RoomCode      string     `json:"room_code"`
	Name          string     `json:"name"`
	Role          Role       `json:"role"`
	JoinedAt      time.Time  `json:"joined_at"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
}
