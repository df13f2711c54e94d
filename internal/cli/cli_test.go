package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/zhouzirui/aquaguard/backend/internal/analysis/intent"
	"github.com/zhouzirui/aquaguard/backend/internal/model/knowledge"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	formatFlag = "text"
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(args)
	err := RootCmd.Execute()
	return out.String(), err
}

func TestAskText(t *testing.T) {
	out, err := execute(t, "ask", "Is", "0.3", "ppm", "lead", "legal", "in", "Kenya?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if strings.TrimSpace(out) != knowledge.Seed()[0].Response {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestAskJSON(t *testing.T) {
	out, err := execute(t, "ask", "--format", "json", "hello", "there")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	var got answer
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Outcome != string(intent.Greeting) || got.Response != intent.GreetingResponse || got.EntryID != "" {
		t.Fatalf("unexpected answer %+v", got)
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	if _, err := execute(t, "ask"); err == nil {
		t.Fatal("expected error without arguments")
	}
}

func TestKBListsEntriesInOrder(t *testing.T) {
	out, err := execute(t, "kb")
	if err != nil {
		t.Fatalf("kb: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	seed := knowledge.Seed()
	if len(lines) != len(seed)+1 {
		t.Fatalf("expected header plus %d rows, got %d", len(seed), len(lines))
	}
	for i, e := range seed {
		if !strings.HasPrefix(lines[i+1], e.ID) {
			t.Fatalf("row %d: expected %s, got %q", i, e.ID, lines[i+1])
		}
	}
}

func TestRejectsUnknownFormat(t *testing.T) {
	if _, err := execute(t, "kb", "--format", "yaml"); err == nil {
		t.Fatal("expected format error")
	}
}

func TestTranscribeRequiresAudioFlag(t *testing.T) {
	if _, err := execute(t, "transcribe"); err == nil {
		t.Fatal("expected missing flag error")
	}
}
