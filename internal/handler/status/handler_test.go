package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestStatusReport(t *testing.T) {
	r := chi.NewRouter()
	New(Report{
		AIConfigured:       true,
		Provider:           "openrouter",
		Model:              "openai/gpt-4o-mini",
		PasswordConfigured: true,
		StorageBackend:     "file",
	}).RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/status", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if body["ai_configured"] != true || body["storage_backend"] != "file" || body["strict_reads"] != false {
		t.Fatalf("unexpected report %v", body)
	}
	if strings.Contains(resp.Body.String(), "$2") {
		t.Fatal("report must not leak hash material")
	}
}
