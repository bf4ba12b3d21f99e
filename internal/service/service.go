// Package service implements the chat service operations.
package service

import (
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/mhrkq/RumorChat/internal/adapter/llm"
	"github.com/mhrkq/RumorChat/internal/config"
	"github.com/mhrkq/RumorChat/internal/policy"
	"github.com/mhrkq/RumorChat/internal/store"
)

// Notifier delivers server events to connected clients. The websocket hub
// implements it; a nil Notifier disables delivery (REST-only and tests).
type Notifier interface {
	BroadcastJSONToRoom(room string, v interface{}) error
	SendJSONToUser(room, name string, v interface{}) error
}

type Service struct {
	store        store.Store
	llmClient    llm.Completer
	config       *config.Config
	policyEngine *policy.Engine
	notifier     Notifier

	roomLocks    *keyedMutex
	commentLocks *keyedMutex
	sessionLocks *keyedMutex

	inFlight     atomic.Int64
	dispatchPool *semaphore.Weighted
}

func New(st store.Store, llmClient llm.Completer, cfg *config.Config, policyEngine *policy.Engine, notifier Notifier) *Service {
	workers := cfg.DispatchWorkers
	if workers < 1 {
		workers = 1
	}
	return &Service{
		store:        st,
		llmClient:    llmClient,
		config:       cfg,
		policyEngine: policyEngine,
		notifier:     notifier,
		roomLocks:    newKeyedMutex(),
		commentLocks: newKeyedMutex(),
		sessionLocks: newKeyedMutex(),
		dispatchPool: semaphore.NewWeighted(int64(workers)),
	}
}

func (s *Service) broadcastToRoom(room string, v interface{}) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.BroadcastJSONToRoom(room, v)
}

func (s *Service) sendToUser(room, name string, v interface{}) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.SendJSONToUser(room, name, v)
}
