package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mhrkq/RumorChat/internal/domain"
	"github.com/mhrkq/RumorChat/internal/protocol"
)

// Join adds a member to a room. Joining a room the member already belongs
// to is a no-op; the second return reports whether the member was actually
// added. A fresh join records a synthetic arrival notice and, for a first
// time joiner, creates assistant session 1.
func (s *Service) Join(ctx context.Context, roomCode, name string, role domain.Role) ([]domain.Member, bool, error) {
	s.roomLocks.Lock(roomCode)
	defer s.roomLocks.Unlock(roomCode)

	room, err := s.store.GetRoom(ctx, roomCode)
	if err != nil {
		return nil, false, err
	}
	if room == nil {
		return nil, false, domain.ErrRoomNotFound
	}

	existing, err := s.store.GetMember(ctx, roomCode, name)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		members, err := s.store.ListMembers(ctx, roomCode)
		if err != nil {
			return nil, false, err
		}
		return members, false, nil
	}

	if role == "" {
		role = domain.RoleParticipant
	}
	member := &domain.Member{
		RoomCode: roomCode,
		Name:     name,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.store.AddMember(ctx, member); err != nil {
		return nil, false, err
	}

	if _, err := s.Append(ctx, roomCode, domain.SystemAuthor, domain.RoleParticipant, fmt.Sprintf("%s has joined the room", name)); err != nil {
		log.Printf("WARN: failed to record join notice for %s in %s: %v", name, roomCode, err)
	}

	if err := s.ensureFirstSession(ctx, name); err != nil {
		log.Printf("WARN: failed to ensure first session for %s: %v", name, err)
	}

	members, err := s.store.ListMembers(ctx, roomCode)
	if err != nil {
		return nil, false, err
	}

	s.broadcastToRoom(roomCode, &protocol.MemberChangedMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeMemberChanged, Ts: time.Now().UnixMilli()},
		Room:        roomCode,
		Members:     members,
	})

	return members, true, nil
}

// Leave removes a member from a room. Leaving a room the member is not in
// is a no-op.
func (s *Service) Leave(ctx context.Context, roomCode, name string) ([]domain.Member, error) {
	s.roomLocks.Lock(roomCode)
	defer s.roomLocks.Unlock(roomCode)

	return s.leaveLocked(ctx, roomCode, name)
}

// leaveLocked performs the leave. Caller holds the room lock.
func (s *Service) leaveLocked(ctx context.Context, roomCode, name string) ([]domain.Member, error) {
	removed, err := s.store.RemoveMember(ctx, roomCode, name)
	if err != nil {
		return nil, err
	}

	members, err := s.store.ListMembers(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if !removed {
		return members, nil
	}

	if _, err := s.Append(ctx, roomCode, domain.SystemAuthor, domain.RoleParticipant, fmt.Sprintf("%s has left the room", name)); err != nil {
		log.Printf("WARN: failed to record leave notice for %s in %s: %v", name, roomCode, err)
	}

	s.broadcastToRoom(roomCode, &protocol.MemberChangedMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeMemberChanged, Ts: time.Now().UnixMilli()},
		Room:        roomCode,
		Members:     members,
	})

	return members, nil
}

// Heartbeat refreshes a member's liveness timestamp.
func (s *Service) Heartbeat(ctx context.Context, roomCode, name string, now time.Time) error {
	return s.store.UpdateHeartbeat(ctx, roomCode, name, now.UTC())
}

// ListMembers returns the current membership of a room.
func (s *Service) ListMembers(ctx context.Context, roomCode string) ([]domain.Member, error) {
	room, err := s.store.GetRoom(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}
	return s.store.ListMembers(ctx, roomCode)
}
