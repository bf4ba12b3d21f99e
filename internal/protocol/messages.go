// Package protocol defines the WebSocket message protocol between clients and the chat server.
package protocol

import (
	"github.com/mhrkq/RumorChat/internal/domain"
)

// Message types from client to server
const (
	TypeJoin            = "join"
	TypeLeave           = "leave"
	TypeHeartbeat       = "heartbeat"
	TypeSendMessage     = "send_message"
	TypeSubmitComment   = "submit_comment"
	TypeVoteComment     = "vote_comment"
	TypeReportComment   = "report_comment"
	TypeCreateSession   = "create_session"
	TypePromptAssistant = "prompt_assistant"
)

// Message types from server to client
const (
	TypeJoined         = "joined"
	TypeMemberChanged  = "member_changed"
	TypeMessage        = "message"
	TypeCommentAdded   = "comment_added"
	TypeVoteUpdated    = "vote_updated"
	TypeSessionCreated = "session_created"
	TypeAssistantAck   = "assistant_ack"
	TypeAssistantReply = "assistant_reply"
	TypeError          = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type string `json:"type"`
	Ts   int64  `json:"ts,omitempty"`
}

// JoinMessage is sent by a client to enter a room.
type JoinMessage struct {
	BaseMessage
	Room string `json:"room"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// JoinedMessage confirms a join and carries the current room state.
type JoinedMessage struct {
	BaseMessage
	Room     string               `json:"room"`
	Topic    string               `json:"topic,omitempty"`
	Members  []domain.Member      `json:"members"`
	Messages []domain.ChatMessage `json:"messages"`
}

// MemberChangedMessage announces an arrival or departure to a room.
type MemberChangedMessage struct {
	BaseMessage
	Room    string          `json:"room"`
	Members []domain.Member `json:"members"`
}

// LeaveMessage is sent by a client to leave its room.
type LeaveMessage struct {
	BaseMessage
}

// HeartbeatMessage keeps a member's presence fresh.
type HeartbeatMessage struct {
	BaseMessage
}

// SendMessageMessage carries a chat message from a client.
type SendMessageMessage struct {
	BaseMessage
	Content string `json:"content"`
}

// MessageMessage delivers a chat message to room members.
type MessageMessage struct {
	BaseMessage
	Message domain.ChatMessage `json:"message"`
}

// SubmitCommentMessage attaches a comment to the room or another comment.
type SubmitCommentMessage struct {
	BaseMessage
	ParentID string `json:"parent_id,omitempty"`
	Content  string `json:"content"`
}

// CommentAddedMessage announces a new comment to room members.
type CommentAddedMessage struct {
	BaseMessage
	Comment domain.Comment `json:"comment"`
}

// VoteCommentMessage casts or toggles a vote on a comment.
type VoteCommentMessage struct {
	BaseMessage
	CommentID string `json:"comment_id"`
	Direction int    `json:"direction"`
}

// VoteUpdatedMessage announces a comment's new vote total. The copy sent to
// the voter also carries their resulting direction, 0 after a rescind.
type VoteUpdatedMessage struct {
	BaseMessage
	CommentID  string `json:"comment_id"`
	Total      int    `json:"total"`
	ViewerVote *int   `json:"viewer_vote,omitempty"`
}

// ReportCommentMessage flags a comment for moderation.
type ReportCommentMessage struct {
	BaseMessage
	CommentID string `json:"comment_id"`
	Reason    string `json:"reason,omitempty"`
}

// CreateSessionMessage opens a new numbered assistant session.
type CreateSessionMessage struct {
	BaseMessage
}

// SessionCreatedMessage confirms a new assistant session.
type SessionCreatedMessage struct {
	BaseMessage
	Number int `json:"number"`
}

// PromptAssistantMessage submits a prompt to an assistant session.
type PromptAssistantMessage struct {
	BaseMessage
	Session int    `json:"session"`
	Prompt  string `json:"prompt"`
}

// AssistantAckMessage acknowledges acceptance of a prompt for dispatch.
type AssistantAckMessage struct {
	BaseMessage
	Session int `json:"session"`
}

// AssistantReplyMessage delivers the assistant's reply to the prompt owner.
type AssistantReplyMessage struct {
	BaseMessage
	Session int    `json:"session"`
	Content string `json:"content"`
}

// ErrorMessage is sent by the server when an error occurs.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidMessage  = "invalid_message"
	ErrorCodeRoomNotFound    = "room_not_found"
	ErrorCodeDuplicateName   = "duplicate_name"
	ErrorCodeNotJoined       = "not_joined"
	ErrorCodeCommentNotFound = "comment_not_found"
	ErrorCodeInvalidParent   = "invalid_parent"
	ErrorCodeInvalidVote     = "invalid_vote"
	ErrorCodeSessionUnknown  = "session_unknown"
	ErrorCodeInternalError   = "internal_error"
)
