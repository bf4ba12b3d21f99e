package domain

import "time"

// Comment represents a single entry in a room's comment forest. Root
// comments have an empty ParentID; replies reference an existing comment in
// the same room. Comments are append-only; only the cached vote total
// mutates.
type Comment struct {
	CommentID string    `json:"comment_id"`
	RoomCode  string    `json:"room_code"`
	ParentID  string    `json:"parent_id,omitempty"`
	Author    string    `json:"author"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	VoteTotal int       `json:"vote_total"`
	CreatedAt time.Time `json:"created_at"`
}

// Vote represents a single vote row. At most one row exists per
// (comment, voter); Direction is +1 or -1.
type Vote struct {
	CommentID string `json:"comment_id"`
	Voter     string `json:"voter"`
	Direction int    `json:"direction"`
}

// Report represents an abuse report. At most one row exists per
// (comment, reporter).
type Report struct {
	CommentID string    `json:"comment_id"`
	Reporter  string    `json:"reporter"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentNode is a comment decorated with viewer-specific state and its
// replies, as returned by the tree projection. Siblings are ordered by
// insertion time.
type CommentNode struct {
	Comment
	ViewerVote     int            `json:"viewer_vote"`
	ViewerReported bool           `json:"viewer_reported"`
	Replies        []*CommentNode `json:"replies,omitempty"`
}
