package v1

import (
	"context"
	"testing"
	"time"

	"github.com/mhrkq/RumorChat/internal/adapter/llm"
	"github.com/mhrkq/RumorChat/internal/config"
	"github.com/mhrkq/RumorChat/internal/domain"
	"github.com/mhrkq/RumorChat/internal/policy"
	"github.com/mhrkq/RumorChat/internal/service"
	"github.com/mhrkq/RumorChat/tests/helpers"
)

func newTestHandler(t *testing.T) (*Handler, *service.Service) {
	t.Helper()
	db := helpers.NewTestSQLiteStore(t)

	cfg := &config.Config{
		AssistantModel:       "test-model",
		AssistantTimeout:     time.Second,
		AssistantMaxTokens:   100,
		AssistantTemperature: 0.7,
		DispatchWorkers:      2,
		HeartbeatTimeout:     2 * time.Minute,
		HeartbeatGrace:       2 * time.Minute,
		SweepInterval:        30 * time.Second,
	}

	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	svc := service.New(db, llm.NewMockClient(), cfg, policyEngine, nil)
	return NewHandler(svc), svc
}

func mustRoom(t *testing.T, svc *service.Service) *domain.Room {
	t.Helper()
	room, err := svc.CreateRoom(context.Background(), "test topic")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	return room
}
