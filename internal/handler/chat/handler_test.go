package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/aquaguard/backend/internal/analysis/intent"
	chatmodel "github.com/zhouzirui/aquaguard/backend/internal/model/chat"
	"github.com/zhouzirui/aquaguard/backend/internal/model/knowledge"
	"github.com/zhouzirui/aquaguard/backend/internal/service/assistant"
	chatservice "github.com/zhouzirui/aquaguard/backend/internal/service/chat"
)

func setupRouter(t *testing.T) (*chi.Mux, *chatservice.Service) {
	t.Helper()
	assistantSvc, err := assistant.NewService(context.Background(), intent.MustNewMatcher(knowledge.Seed()), nil)
	if err != nil {
		t.Fatalf("assistant: %v", err)
	}
	chatSvc := chatservice.NewService(assistantSvc, nil)

	r := chi.NewRouter()
	New(chatSvc, nil).RegisterRoutes(r)
	return r, chatSvc
}

func postJSON(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateSession(t *testing.T) {
	r, _ := setupRouter(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/session", nil))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var session chatmodel.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil || session.ID == "" {
		t.Fatalf("expected session id, err=%v", err)
	}
}

func TestSubmitMessageReturnsReply(t *testing.T) {
	r, chatSvc := setupRouter(t)
	session, _ := chatSvc.CreateSession(context.Background())

	resp := postJSON(r, "/messages", map[string]string{
		"sessionId": session.ID,
		"text":      "Is 0.3 ppm lead legal in Kenya?",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var reply chatmodel.Message
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if reply.Sender != chatmodel.SenderAssistant || reply.Text != knowledge.Seed()[0].Response {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestSubmitMessageEmptyText(t *testing.T) {
	r, chatSvc := setupRouter(t)
	session, _ := chatSvc.CreateSession(context.Background())

	resp := postJSON(r, "/messages", map[string]string{"sessionId": session.ID, "text": "   "})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	transcript, _ := chatSvc.LoadTranscript(context.Background(), session.ID)
	if len(transcript) != 0 {
		t.Fatalf("empty input should not append messages, got %d", len(transcript))
	}
}

func TestSubmitMessageUnknownSession(t *testing.T) {
	r, _ := setupRouter(t)

	resp := postJSON(r, "/messages", map[string]string{"sessionId": "missing", "text": "hello"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSubmitMessageMissingSessionID(t *testing.T) {
	r, _ := setupRouter(t)

	resp := postJSON(r, "/messages", map[string]string{"text": "hello"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSubmitMessageInvalidBody(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewReader([]byte("{")))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestTranscriptInOrder(t *testing.T) {
	r, chatSvc := setupRouter(t)
	session, _ := chatSvc.CreateSession(context.Background())

	postJSON(r, "/messages", map[string]string{"sessionId": session.ID, "text": "hello there"})
	postJSON(r, "/messages", map[string]string{"sessionId": session.ID, "text": "thank you"})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/"+session.ID+"/transcript", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var messages []chatmodel.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []struct {
		sender chatmodel.Sender
		text   string
	}{
		{chatmodel.SenderUser, "hello there"},
		{chatmodel.SenderAssistant, intent.GreetingResponse},
		{chatmodel.SenderUser, "thank you"},
		{chatmodel.SenderAssistant, intent.ThanksResponse},
	}
	if len(messages) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(messages))
	}
	for i, w := range want {
		if messages[i].Sender != w.sender || messages[i].Text != w.text {
			t.Fatalf("message %d: got %s %q", i, messages[i].Sender, messages[i].Text)
		}
	}
}

func TestTranscriptUnknownSession(t *testing.T) {
	r, _ := setupRouter(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/missing/transcript", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
