package service

import (
	"context"
	"log"
	"time"

	"github.com/mhrkq/RumorChat/internal/metrics"
)

// RunPresenceSweeper evicts members whose heartbeats went stale. One
// goroutine, ticker driven; sweeps never overlap.
func (s *Service) RunPresenceSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepInactive(ctx, time.Now())
		}
	}
}

// SweepInactive evicts every member whose last heartbeat is older than the
// heartbeat timeout, or who never sent one and is past the grace period.
// Each eviction behaves as a Leave, synthetic notice and broadcast included.
func (s *Service) SweepInactive(ctx context.Context, now time.Time) {
	sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	heartbeatCutoff := now.UTC().Add(-s.config.HeartbeatTimeout)
	graceCutoff := now.UTC().Add(-s.config.HeartbeatGrace)

	stale, err := s.store.ListStaleMembers(sweepCtx, heartbeatCutoff, graceCutoff)
	if err != nil {
		log.Printf("WARN: presence sweep failed: %v", err)
		return
	}

	for _, m := range stale {
		s.roomLocks.Lock(m.RoomCode)
		_, err := s.leaveLocked(sweepCtx, m.RoomCode, m.Name)
		s.roomLocks.Unlock(m.RoomCode)
		if err != nil {
			log.Printf("WARN: failed to evict %s from %s: %v", m.Name, m.RoomCode, err)
			continue
		}
		metrics.MembersEvicted.Inc()
		log.Printf("Evicted %s from %s after missed heartbeats", m.Name, m.RoomCode)
	}
}
