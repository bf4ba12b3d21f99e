package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mhrkq/RumorChat/internal/domain"
)

// CreateSession opens a new numbered assistant session for owner. Numbers
// are 1-based, allocated as max(existing)+1 and never reused. A header
// marker entry is inserted at creation; it never enters context assembly.
func (s *Service) CreateSession(ctx context.Context, owner string) (int, error) {
	s.sessionLocks.Lock(owner)
	defer s.sessionLocks.Unlock(owner)

	return s.createSessionLocked(ctx, owner)
}

// createSessionLocked allocates the next session number. Caller holds the
// owner's session lock.
func (s *Service) createSessionLocked(ctx context.Context, owner string) (int, error) {
	n, err := s.store.MaxSessionNumber(ctx, owner)
	if err != nil {
		return 0, err
	}
	number := n + 1

	now := time.Now().UTC()
	if err := s.store.CreateSession(ctx, &domain.Session{
		Owner:     owner,
		Number:    number,
		CreatedAt: now,
	}); err != nil {
		return 0, err
	}

	header := &domain.SessionEntry{
		EntryID:       "ent_" + uuid.New().String()[:8],
		Owner:         owner,
		SessionNumber: number,
		Author:        domain.EntryAuthorSystem,
		Content:       fmt.Sprintf("Assistant session %d opened", number),
		CreatedAt:     now,
	}
	if err := s.store.CreateSessionEntry(ctx, header); err != nil {
		return 0, err
	}

	return number, nil
}

// ensureFirstSession creates session 1 for an owner with no sessions yet.
func (s *Service) ensureFirstSession(ctx context.Context, owner string) error {
	s.sessionLocks.Lock(owner)
	defer s.sessionLocks.Unlock(owner)

	n, err := s.store.MaxSessionNumber(ctx, owner)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = s.createSessionLocked(ctx, owner)
	return err
}

// ensureSessionLocked resolves a session number for a prompt. An unknown
// number is accepted only when it is the next number in sequence, in which
// case the session is created on first use. Caller holds the owner's
// session lock.
func (s *Service) ensureSessionLocked(ctx context.Context, owner string, number int) error {
	exists, err := s.store.SessionExists(ctx, owner, number)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	n, err := s.store.MaxSessionNumber(ctx, owner)
	if err != nil {
		return err
	}
	if number != n+1 {
		return domain.ErrSessionNotFound
	}

	created, err := s.createSessionLocked(ctx, owner)
	if err != nil {
		return err
	}
	if created != number {
		return domain.ErrSessionNotFound
	}
	return nil
}

// ListSessions returns the owner's session numbers in ascending order.
func (s *Service) ListSessions(ctx context.Context, owner string) ([]int, error) {
	return s.store.ListSessionNumbers(ctx, owner)
}

// ListSessionEntries returns a session's full entry log, header included.
func (s *Service) ListSessionEntries(ctx context.Context, owner string, number int) ([]domain.SessionEntry, error) {
	exists, err := s.store.SessionExists(ctx, owner, number)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrSessionNotFound
	}
	return s.store.ListSessionEntries(ctx, owner, number)
}

// BuildContext assembles the conversational context of a session: the
// entry log minus the header marker, in order. When the session holds at
// most one real entry there is no usable history and the result is empty;
// the dispatcher then falls back to the room transcript.
func (s *Service) BuildContext(ctx context.Context, owner string, number int) ([]domain.SessionEntry, error) {
	entries, err := s.store.ListSessionEntries(ctx, owner, number)
	if err != nil {
		return nil, err
	}

	real := make([]domain.SessionEntry, 0, len(entries))
	for _, e := range entries {
		if e.Author == domain.EntryAuthorSystem {
			continue
		}
		real = append(real, e)
	}
	if len(real) <= 1 {
		return nil, nil
	}
	return real, nil
}

// InFlightCount returns the number of prompts accepted for dispatch whose
// replies have not yet been recorded.
func (s *Service) InFlightCount() int {
	return int(s.inFlight.Load())
}

// recordSessionEntry appends one entry to a session log. Caller holds the
// lock serializing work on that session.
func (s *Service) recordSessionEntry(ctx context.Context, owner string, number int, author domain.EntryAuthor, content string) (*domain.SessionEntry, error) {
	entry := &domain.SessionEntry{
		EntryID:       "ent_" + uuid.New().String()[:8],
		Owner:         owner,
		SessionNumber: number,
		Author:        author,
		Content:       content,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.CreateSessionEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
