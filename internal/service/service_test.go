package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mhrkq/RumorChat/internal/adapter/llm"
	"github.com/mhrkq/RumorChat/internal/config"
	"github.com/mhrkq/RumorChat/internal/domain"
	"github.com/mhrkq/RumorChat/internal/policy"
	"github.com/mhrkq/RumorChat/tests/helpers"
)

func testConfig() *config.Config {
	return &config.Config{
		AssistantModel:       "test-model",
		AssistantTimeout:     2 * time.Second,
		AssistantMaxTokens:   100,
		AssistantTemperature: 0.7,
		DispatchWorkers:      2,
		HeartbeatTimeout:     2 * time.Minute,
		HeartbeatGrace:       2 * time.Minute,
		SweepInterval:        30 * time.Second,
	}
}

func newTestService(t *testing.T, completer llm.Completer) (*Service, *config.Config) {
	t.Helper()
	return newTestServiceWithNotifier(t, completer, nil)
}

func newTestServiceWithNotifier(t *testing.T, completer llm.Completer, n Notifier) (*Service, *config.Config) {
	t.Helper()
	db := helpers.NewTestSQLiteStore(t)

	cfg := testConfig()
	if completer == nil {
		completer = llm.NewMockClient()
	}

	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	return New(db, completer, cfg, policyEngine, n), cfg
}

// directEvent is one targeted delivery captured by recordingNotifier.
type directEvent struct {
	room    string
	name    string
	payload interface{}
}

// recordingNotifier captures deliveries for assertions.
type recordingNotifier struct {
	mu         sync.Mutex
	broadcasts []interface{}
	directs    []directEvent
}

func (r *recordingNotifier) BroadcastJSONToRoom(room string, v interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, v)
	return nil
}

func (r *recordingNotifier) SendJSONToUser(room, name string, v interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.directs = append(r.directs, directEvent{room: room, name: name, payload: v})
	return nil
}

func (r *recordingNotifier) lastDirect(t *testing.T) directEvent {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.directs) == 0 {
		t.Fatalf("no targeted deliveries recorded")
	}
	return r.directs[len(r.directs)-1]
}

func mustCreateRoom(t *testing.T, svc *Service) *domain.Room {
	t.Helper()
	room, err := svc.CreateRoom(context.Background(), "test topic")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	return room
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestCreateRoomGeneratesUniqueCodes(t *testing.T) {
	svc, _ := newTestService(t, nil)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		room := mustCreateRoom(t, svc)
		if len(room.Code) != 4 {
			t.Fatalf("expected 4-char code, got %q", room.Code)
		}
		for _, r := range room.Code {
			if r < 'A' || r > 'Z' {
				t.Fatalf("code %q not uppercase alphabetic", room.Code)
			}
		}
		if seen[room.Code] {
			t.Fatalf("duplicate code %q", room.Code)
		}
		seen[room.Code] = true
	}
}

func TestDeleteRoomRequiresAdministrator(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	room := mustCreateRoom(t, svc)

	err := svc.DeleteRoom(ctx, room.Code, "mallory", domain.RoleParticipant)
	if err != domain.ErrPermissionDenied {
		t.Fatalf("expected permission denied, got %v", err)
	}

	if err := svc.DeleteRoom(ctx, room.Code, "admin", domain.RoleAdministrator); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}

	if _, err := svc.GetRoom(ctx, room.Code); err != domain.ErrRoomNotFound {
		t.Fatalf("expected room gone, got %v", err)
	}
}
