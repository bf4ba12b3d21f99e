package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/mhrkq/RumorChat/internal/domain"
)

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
const roomCodeLength = 4

// CreateRoom creates a room with a freshly generated unique code.
func (s *Service) CreateRoom(ctx context.Context, topic string) (*domain.Room, error) {
	for {
		code, err := generateRoomCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate room code: %w", err)
		}

		existing, err := s.store.GetRoom(ctx, code)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}

		room := &domain.Room{
			Code:      code,
			Topic:     topic,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.store.CreateRoom(ctx, room); err != nil {
			return nil, err
		}
		return room, nil
	}
}

// GetRoom fetches a room by code.
func (s *Service) GetRoom(ctx context.Context, code string) (*domain.Room, error) {
	room, err := s.store.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

// ListRooms returns all rooms.
func (s *Service) ListRooms(ctx context.Context) ([]domain.Room, error) {
	return s.store.ListRooms(ctx)
}

// DeleteRoom removes a room and its membership. The action is reserved for
// administrators; the decision comes from the policy engine.
func (s *Service) DeleteRoom(ctx context.Context, code, actorName string, actorRole domain.Role) error {
	if s.policyEngine != nil {
		decision, err := s.policyEngine.Evaluate(ctx, map[string]interface{}{
			"action": "room.delete",
			"room":   code,
			"actor":  actorName,
			"role":   string(actorRole),
		})
		if err != nil {
			return fmt.Errorf("policy evaluation failed: %w", err)
		}
		if decision != "allow" {
			return domain.ErrPermissionDenied
		}
	} else if actorRole != domain.RoleAdministrator {
		return domain.ErrPermissionDenied
	}

	s.roomLocks.Lock(code)
	defer s.roomLocks.Unlock(code)

	room, err := s.store.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	if room == nil {
		return domain.ErrRoomNotFound
	}

	return s.store.DeleteRoom(ctx, code)
}

func generateRoomCode() (string, error) {
	buf := make([]byte, roomCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomCodeAlphabet))))
		if err != nil {
			return "", err
		}
		buf[i] = roomCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
