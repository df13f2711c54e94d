package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusNotFound, "session not found")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"session not found"}` {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestRespondJSONEncodeFailureIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondJSON(rec, http.StatusOK, map[string]any{"stream": make(chan int)})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"internal server error"}` {
		t.Fatalf("unexpected body %s", got)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatal("missing json content type")
	}
}

func TestSendSSEEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	SetupSSEHeaders(rec)
	if err := SendSSEEvent(rec, rec, "message", map[string]string{"text": "hi"}); err != nil {
		t.Fatalf("SendSSEEvent: %v", err)
	}

	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatal("missing sse content type")
	}
	if got := rec.Body.String(); got != "event: message\ndata: {\"text\":\"hi\"}\n\n" {
		t.Fatalf("unexpected body %q", got)
	}
	if !rec.Flushed {
		t.Fatal("expected flush")
	}
}
