package domain

import "errors"

// Error taxonomy. NotFound, Conflict and InvalidReference conditions are
// reported synchronously to the caller; upstream assistant failures are
// converted into placeholder replies and never surface as errors.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrSessionNotFound = errors.New("session not found")

	ErrDuplicateName = errors.New("name already exists in the room")

	ErrInvalidParent = errors.New("parent comment does not exist in this room")
	ErrInvalidVote   = errors.New("vote direction must be +1 or -1")

	ErrPermissionDenied = errors.New("permission denied")
)
