package domain

import "time"

// ChatMessage represents a single room chat event. Messages are append-only
// and immutable once recorded; synthetic join/leave notices are authored by
// SystemAuthor.
type ChatMessage struct {
	MessageID string    `json:"message_id"`
	RoomCode  string    `json:"room_code"`
	Author    string    `json:"author"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
