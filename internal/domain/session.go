package domain

import "time"

// EntryAuthor identifies who produced a session entry.
type EntryAuthor string

const (
	EntryAuthorUser      EntryAuthor = "user"
	EntryAuthorAssistant EntryAuthor = "assistant"
	// EntryAuthorSystem marks the header entry inserted when a session is
	// created. Header entries are excluded from context assembly.
	EntryAuthorSystem EntryAuthor = "system"
)

// Session represents one numbered assistant conversation owned by a user.
// Numbers are 1-based, allocated as max(existing)+1 and never reused. A
// session is independent of any room and outlives room visits.
type Session struct {
	Owner     string    `json:"owner"`
	Number    int       `json:"number"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionEntry represents a single entry in a session's ordered log.
// Excluding the header entry, entries strictly alternate user/assistant
// starting with user.
type SessionEntry struct {
	EntryID       string      `json:"entry_id"`
	Owner         string      `json:"owner"`
	SessionNumber int         `json:"session_number"`
	Author        EntryAuthor `json:"author"`
	Content       string      `json:"content"`
	CreatedAt     time.Time   `json:"created_at"`
}
