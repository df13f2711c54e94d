package voice

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"testing"

	chatmodel "github.com/zhouzirui/aquaguard/backend/internal/model/chat"
	"github.com/zhouzirui/aquaguard/backend/internal/model/knowledge"
)

func multipartAudio(t *testing.T, sessionID string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if sessionID != "" {
		_ = w.WriteField("sessionId", sessionID)
	}
	part, err := w.CreateFormFile("audio", "question.wav")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = part.Write([]byte{1, 2, 3, 4})
	_ = w.Close()
	return &body, w.FormDataContentType()
}

func TestTranscribeUploadSubmitsTranscript(t *testing.T) {
	speechSvc := &fakeSpeech{available: true, text: "arsenic limit for wells"}
	env := newTestEnv(t, speechSvc)

	body, contentType := multipartAudio(t, env.session.ID)
	resp, err := http.Post(env.server.URL+"/voice/transcribe", contentType, body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload struct {
		Transcript string            `json:"transcript"`
		Reply      chatmodel.Message `json:"reply"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	arsenic, _ := knowledge.NewMemoryStore(knowledge.Seed()).FindByID("arsenic-limit")
	if payload.Transcript != "arsenic limit for wells" || payload.Reply.Text != arsenic.Response {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestTranscribeUploadValidation(t *testing.T) {
	env := newTestEnv(t, &fakeSpeech{available: true, text: "x"})

	body, contentType := multipartAudio(t, "")
	resp, err := http.Post(env.server.URL+"/voice/transcribe", contentType, body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing session: expected 400, got %d", resp.StatusCode)
	}

	body, contentType = multipartAudio(t, "missing")
	resp, err = http.Post(env.server.URL+"/voice/transcribe", contentType, body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown session: expected 404, got %d", resp.StatusCode)
	}
}

func TestTranscribeUploadSpeechUnavailable(t *testing.T) {
	env := newTestEnv(t, &fakeSpeech{available: false})

	body, contentType := multipartAudio(t, env.session.ID)
	resp, err := http.Post(env.server.URL+"/voice/transcribe", contentType, body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}
