package assistant

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/aquaguard/backend/internal/analysis/intent"
	"github.com/zhouzirui/aquaguard/backend/internal/model/knowledge"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), intent.MustNewMatcher(knowledge.Seed()), zap.NewNop())
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}
	return svc
}

func TestReplyReturnsAssistantMessage(t *testing.T) {
	svc := newTestService(t)

	msg, err := svc.Reply(context.Background(), "Is 0.3ppm lead legal in Kenya?")
	if err != nil {
		t.Fatalf("Reply err: %v", err)
	}
	if msg.Role != schema.Assistant {
		t.Fatalf("expected assistant role, got %s", msg.Role)
	}

	want := intent.MustNewMatcher(knowledge.Seed()).Resolve("Is 0.3ppm lead legal in Kenya?")
	if msg.Content != want {
		t.Fatalf("unexpected content %q", msg.Content)
	}
}

func TestRespondFallsBackForGibberish(t *testing.T) {
	svc := newTestService(t)

	got, err := svc.Respond(context.Background(), "random gibberish xyz")
	if err != nil {
		t.Fatalf("Respond err: %v", err)
	}
	if got != intent.FallbackResponse {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestNewServiceRequiresMatcher(t *testing.T) {
	if _, err := NewService(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error without matcher")
	}
}
