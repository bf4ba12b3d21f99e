// Package store defines the storage interface and implementations.
package store

import (
	"context"
	"time"

	"github.com/mhrkq/RumorChat/internal/domain"
)

// Store defines the interface for data persistence. All mutation paths are
// safe for concurrent use; callers provide the per-room and per-comment
// serialization described in the service layer.
type Store interface {
	// Room operations
	CreateRoom(ctx context.Context, room *domain.Room) error
	GetRoom(ctx context.Context, code string) (*domain.Room, error)
	ListRooms(ctx context.Context) ([]domain.Room, error)
	DeleteRoom(ctx context.Context, code string) error

	// Member operations
	AddMember(ctx context.Context, member *domain.Member) error
	GetMember(ctx context.Context, roomCode, name string) (*domain.Member, error)
	ListMembers(ctx context.Context, roomCode string) ([]domain.Member, error)
	RemoveMember(ctx context.Context, roomCode, name string) (bool, error)
	UpdateHeartbeat(ctx context.Context, roomCode, name string, ts time.Time) error
	ListStaleMembers(ctx context.Context, heartbeatCutoff, graceCutoff time.Time) ([]domain.Member, error)

	// Message operations
	CreateMessage(ctx context.Context, msg *domain.ChatMessage) error
	ListMessages(ctx context.Context, roomCode string) ([]domain.ChatMessage, error)
	TailMessages(ctx context.Context, roomCode string, k int, excludeAuthors []string) ([]domain.ChatMessage, error)

	// Comment operations
	CreateComment(ctx context.Context, comment *domain.Comment) error
	GetComment(ctx context.Context, commentID string) (*domain.Comment, error)
	ApplyVote(ctx context.Context, v *domain.Vote) (newTotal, viewerVote int, err error)
	SumVotes(ctx context.Context, commentID string) (int, error)
	CreateReport(ctx context.Context, report *domain.Report) (bool, error)
	CommentTreeData(ctx context.Context, roomCode, viewer string) ([]domain.Comment, map[string]int, map[string]bool, error)

	// Assistant session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	MaxSessionNumber(ctx context.Context, owner string) (int, error)
	SessionExists(ctx context.Context, owner string, number int) (bool, error)
	ListSessionNumbers(ctx context.Context, owner string) ([]int, error)
	CreateSessionEntry(ctx context.Context, entry *domain.SessionEntry) error
	ListSessionEntries(ctx context.Context, owner string, number int) ([]domain.SessionEntry, error)

	// Lifecycle
	Close() error
}
