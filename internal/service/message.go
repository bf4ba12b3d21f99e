package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mhrkq/RumorChat/internal/domain"
	"github.com/mhrkq/RumorChat/internal/metrics"
	"github.com/mhrkq/RumorChat/internal/protocol"
)

// Append records a chat message in a room's log and broadcasts it.
func (s *Service) Append(ctx context.Context, roomCode, author string, role domain.Role, content string) (*domain.ChatMessage, error) {
	room, err := s.store.GetRoom(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}

	msg := &domain.ChatMessage{
		MessageID: "msg_" + uuid.New().String()[:8],
		RoomCode:  roomCode,
		Author:    author,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	metrics.MessagesAppended.Inc()

	s.broadcastToRoom(roomCode, &protocol.MessageMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeMessage, Ts: time.Now().UnixMilli()},
		Message:     *msg,
	})

	return msg, nil
}

// All returns a room's full message history, oldest first.
func (s *Service) All(ctx context.Context, roomCode string) ([]domain.ChatMessage, error) {
	room, err := s.store.GetRoom(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}
	return s.store.ListMessages(ctx, roomCode)
}

// Tail returns the last k messages of a room, oldest first, skipping the
// given authors.
func (s *Service) Tail(ctx context.Context, roomCode string, k int, excludeAuthors []string) ([]domain.ChatMessage, error) {
	room, err := s.store.GetRoom(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}
	return s.store.TailMessages(ctx, roomCode, k, excludeAuthors)
}
