package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/crgstar/patto/app/database"
	"github.com/crgstar/patto/app/feed"
)

type stubUserRepo struct {
	users map[string]*database.User
}

var _ database.UserRepository = (*stubUserRepo)(nil)

func (s *stubUserRepo) GetByID(id string) (*database.User, error) {
	return s.users[id], nil
}

func (s *stubUserRepo) GetOrCreateByEmail(email string) (*database.User, error) {
	return nil, nil
}

type stubWidgetRepo struct {
	created   *database.Widget
	deleteErr error
}

var _ database.WidgetRepository = (*stubWidgetRepo)(nil)

func (s *stubWidgetRepo) Create(userID, kind, title string) (*database.Widget, error) {
	s.created = &database.Widget{ID: "widget-001", UserID: userID, Kind: kind, Title: title}
	return s.created, nil
}

func (s *stubWidgetRepo) GetOwned(userID, widgetID string) (*database.Widget, error) {
	return nil, nil
}

func (s *stubWidgetRepo) GetByTitle(userID, kind, title string) (*database.Widget, error) {
	return nil, nil
}

func (s *stubWidgetRepo) SoftDeleteWithBindings(userID, widgetID string) error {
	return s.deleteErr
}

func newTestServer(widgetRepo database.WidgetRepository) http.Handler {
	users := &stubUserRepo{users: map[string]*database.User{
		"user-1": {ID: "user-1", Email: "user@example.com"},
	}}
	// Engines without repositories are enough for the middleware and error
	// mapping paths exercised here; the engine logic itself is covered by
	// its own package tests.
	ingestor := feed.NewIngestor(nil, nil, widgetRepo, nil, nil, nil, 1)
	handler := NewHandler(users, widgetRepo, nil, ingestor, nil, nil)
	return NewServer(handler, "secret-key")
}

func doRequest(t *testing.T, server http.Handler, method, path string, headers map[string]string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func authHeaders() map[string]string {
	return map[string]string{
		"X-API-Key": "secret-key",
		"X-User-ID": "user-1",
	}
}

func TestHealthIsPublic(t *testing.T) {
	server := newTestServer(&stubWidgetRepo{})

	w := doRequest(t, server, "GET", "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	server := newTestServer(&stubWidgetRepo{})

	tests := []struct {
		name    string
		headers map[string]string
		status  int
	}{
		{"missing key", map[string]string{"X-User-ID": "user-1"}, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope", "X-User-ID": "user-1"}, http.StatusUnauthorized},
		{"header key", authHeaders(), http.StatusOK},
		{"bearer key", map[string]string{"Authorization": "Bearer secret-key", "X-User-ID": "user-1"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, server, "GET", "/api/sources", tt.headers, "")
			// The sources listing itself 500s with a nil repo, so only
			// the unauthorized cases assert an exact handler status.
			if tt.status == http.StatusUnauthorized && w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
			if tt.status == http.StatusOK && w.Code == http.StatusUnauthorized {
				t.Errorf("expected request to pass auth, got 401: %s", w.Body.String())
			}
		})
	}
}

func TestIdentifyUser(t *testing.T) {
	server := newTestServer(&stubWidgetRepo{})

	w := doRequest(t, server, "POST", "/api/widgets", map[string]string{"X-API-Key": "secret-key"}, `{"title":"Reading List"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without X-User-ID, got %d", w.Code)
	}

	w = doRequest(t, server, "POST", "/api/widgets", map[string]string{"X-API-Key": "secret-key", "X-User-ID": "user-999"}, `{"title":"Reading List"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for unknown user, got %d", w.Code)
	}
}

func TestCreateWidget(t *testing.T) {
	widgets := &stubWidgetRepo{}
	server := newTestServer(widgets)

	w := doRequest(t, server, "POST", "/api/widgets", authHeaders(), `{"title":"Reading List"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp["kind"] != "reader" {
		t.Errorf("expected default kind reader, got %v", resp["kind"])
	}
	if widgets.created == nil || widgets.created.UserID != "user-1" {
		t.Errorf("expected widget created for the identified user, got %+v", widgets.created)
	}
}

func TestDeleteWidgetNotFound(t *testing.T) {
	server := newTestServer(&stubWidgetRepo{deleteErr: database.ErrNotFound})

	w := doRequest(t, server, "DELETE", "/api/widgets/widget-999", authHeaders(), "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestDeleteWidget(t *testing.T) {
	server := newTestServer(&stubWidgetRepo{})

	w := doRequest(t, server, "DELETE", "/api/widgets/widget-001", authHeaders(), "")
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
}

func TestCreateSourceValidation(t *testing.T) {
	server := newTestServer(&stubWidgetRepo{})

	w := doRequest(t, server, "POST", "/api/sources", authHeaders(), `{"url":""}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Errors map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if got := resp.Errors["url"]; len(got) != 1 || got[0] != "can't be blank" {
		t.Errorf("unexpected validation detail: %v", resp.Errors)
	}
}

func TestCreateSourceMalformedBody(t *testing.T) {
	server := newTestServer(&stubWidgetRepo{})

	w := doRequest(t, server, "POST", "/api/sources", authHeaders(), `{`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
