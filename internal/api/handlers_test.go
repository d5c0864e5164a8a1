package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/models"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/services"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/store"
)

type stubMeetingStore struct {
	groups map[string][]store.GroupEntry
}

func (s *stubMeetingStore) Create(context.Context, *models.Meeting) error { return nil }
func (s *stubMeetingStore) GetByID(context.Context, string) (*models.Meeting, error) {
	return nil, store.ErrMeetingNotFound
}
func (s *stubMeetingStore) UpdateSummary(context.Context, string, models.Summary) error { return nil }
func (s *stubMeetingStore) SetPriority(context.Context, string, string) error           { return nil }
func (s *stubMeetingStore) GroupsByPriority(context.Context, string) (map[string][]store.GroupEntry, error) {
	return s.groups, nil
}

type stubPreferenceStore struct {
	prefs map[string]*models.UserPreferences
}

func (s *stubPreferenceStore) Upsert(_ context.Context, p *models.UserPreferences) error {
	s.prefs[p.UserID] = p
	return nil
}
func (s *stubPreferenceStore) Get(_ context.Context, userID string) (*models.UserPreferences, error) {
	return s.prefs[userID], nil
}
func (s *stubPreferenceStore) Delete(_ context.Context, userID string) (int64, error) {
	if _, ok := s.prefs[userID]; !ok {
		return 0, nil
	}
	delete(s.prefs, userID)
	return 1, nil
}

type stubPersonStore struct{}

func (stubPersonStore) Create(context.Context, *models.Person) error { return nil }
func (stubPersonStore) GetByID(context.Context, string) (*models.Person, error) {
	return nil, store.ErrPersonNotFound
}
func (stubPersonStore) UpdateExtraction(context.Context, string, models.ExtractionOutput) error {
	return nil
}
func (stubPersonStore) UpdateCategorization(context.Context, string, models.Categorization) error {
	return nil
}

type stubMaintenance struct{}

func (stubMaintenance) ClearData(context.Context) (map[string]int64, error) {
	return map[string]int64{"people": 2, "meetings": 2, "tasks": 8}, nil
}

func newTestRouter(dbHealth func(ctx context.Context) error) (*gin.Engine, *stubPreferenceStore) {
	gin.SetMode(gin.TestMode)
	prefs := &stubPreferenceStore{prefs: make(map[string]*models.UserPreferences)}
	meetings := &stubMeetingStore{groups: map[string][]store.GroupEntry{
		"P0": {{Name: "Jane Smith", Company: "Acme Corp"}},
		"P1": {},
		"P2": {},
	}}
	if dbHealth == nil {
		dbHealth = func(ctx context.Context) error { return nil }
	}
	handler := NewAPI(nil, meetings, stubPersonStore{}, prefs, stubMaintenance{},
		services.NewOCRService(nil), services.NewPreferenceAnalysisService(nil), dbHealth)
	router := gin.New()
	RegisterRoutes(router, handler, nil)
	return router, prefs
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestDBHealthUnavailable(t *testing.T) {
	router, _ := newTestRouter(func(ctx context.Context) error {
		return errors.New("connection refused")
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health/db", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestGetGroups(t *testing.T) {
	router, _ := newTestRouter(nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/groups?user_id=u1", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Groups map[string][]store.GroupEntry `json:"groups"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Groups["P0"]) != 1 || body.Groups["P0"][0].Name != "Jane Smith" {
		t.Fatalf("unexpected groups payload: %+v", body.Groups)
	}
}

func TestOnboardingRoundTrip(t *testing.T) {
	router, prefs := newTestRouter(nil)

	payload := map[string]interface{}{
		"user_id":  "u1",
		"use_case": models.UseCaseSales,
		"intent":   "find design partners",
		"comments": "funding stage matters, ideally remote-friendly",
	}
	raw, _ := json.Marshal(payload)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/onboarding", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, want 200: %s", w.Code, w.Body.String())
	}
	saved := prefs.prefs["u1"]
	if saved == nil {
		t.Fatal("preferences not persisted")
	}
	if len(saved.ExtractedPreferences.ValueIndicators) == 0 {
		t.Fatalf("comment mining should run on save: %+v", saved.ExtractedPreferences)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/onboarding/u1", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/onboarding/nobody", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing onboarding status = %d, want 404", w.Code)
	}
}

func TestResetOnboarding(t *testing.T) {
	router, prefs := newTestRouter(nil)
	prefs.prefs["u1"] = &models.UserPreferences{UserID: "u1"}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/admin/reset-onboarding/u1", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if _, ok := prefs.prefs["u1"]; ok {
		t.Fatal("preferences should be deleted")
	}
}

func TestClearData(t *testing.T) {
	router, _ := newTestRouter(nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/admin/clear-data", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Deleted map[string]int64 `json:"deleted"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Deleted["tasks"] != 8 {
		t.Fatalf("unexpected deletion counts: %+v", body.Deleted)
	}
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/groups", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow-origin = %q", got)
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	router, _ := newTestRouter(nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unknown origin must not be allowed, got %q", got)
	}
}

func TestSubmitMeetingRequiresText(t *testing.T) {
	router, _ := newTestRouter(nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/meetings", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
