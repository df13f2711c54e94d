package knowledge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/aquaguard/backend/internal/model/knowledge"
)

func setupRouter() *chi.Mux {
	r := chi.NewRouter()
	New(knowledge.NewMemoryStore(knowledge.Seed())).RegisterRoutes(r)
	return r
}

func TestListKnowledgePreservesOrder(t *testing.T) {
	resp := httptest.NewRecorder()
	setupRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/knowledge", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var entries []knowledge.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	seed := knowledge.Seed()
	if len(entries) != len(seed) {
		t.Fatalf("expected %d entries, got %d", len(seed), len(entries))
	}
	for i := range seed {
		if entries[i].ID != seed[i].ID {
			t.Fatalf("entry %d: expected %s, got %s", i, seed[i].ID, entries[i].ID)
		}
	}
}

func TestGetKnowledgeEntry(t *testing.T) {
	r := setupRouter()

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/knowledge/lead-kenya", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/knowledge/unknown", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
