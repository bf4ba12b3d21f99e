package policy

import (
	"context"
	"testing"
)

func TestDefaultPolicyRoomDelete(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	decision, err := engine.Evaluate(ctx, map[string]interface{}{
		"action": "room.delete",
		"role":   "participant",
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if decision != "deny" {
		t.Fatalf("expected deny for participant delete, got %q", decision)
	}

	decision, err = engine.Evaluate(ctx, map[string]interface{}{
		"action": "room.delete",
		"role":   "administrator",
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if decision != "allow" {
		t.Fatalf("expected allow for administrator delete, got %q", decision)
	}

	decision, err = engine.Evaluate(ctx, map[string]interface{}{
		"action": "message.append",
		"role":   "participant",
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if decision != "allow" {
		t.Fatalf("expected allow for ordinary action, got %q", decision)
	}
}
