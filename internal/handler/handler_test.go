package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"smart-reader/internal/domain"
	"smart-reader/internal/logging"
	"smart-reader/internal/middleware"
	"smart-reader/internal/repository"
	"smart-reader/internal/service"
	"smart-reader/internal/session"
	"smart-reader/pkg/jwt"
	"smart-reader/pkg/response"
)

const testSecret = "test-secret"

type noRemote struct{}

func (noRemote) ForUser(userID string) repository.RemoteProjectStore { return nil }

type countingMigration struct {
	mu    sync.Mutex
	calls int
}

func (m *countingMigration) MigrateGuestProjects(ctx context.Context, userID string) (*domain.MigrationReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return &domain.MigrationReport{}, nil
}

func (m *countingMigration) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type eventLog struct {
	mu     sync.Mutex
	events []domain.Event
}

func (e *eventLog) Notify(key string, event domain.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *eventLog) NotifyAll(event domain.Event) { e.Notify("*", event) }

func (e *eventLog) has(t domain.EventType) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range e.events {
		if ev.Type == t {
			return true
		}
	}
	return false
}

type testServer struct {
	router     *mux.Router
	events     *eventLog
	sessions   *session.Controller
	migrations *countingMigration
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := logging.Discard()

	local, err := repository.OpenLocalProjectRepository(filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	t.Cleanup(func() { local.Close() })

	events := &eventLog{}
	migrations := &countingMigration{}
	sessions := session.NewController(migrations, events, logger)
	projects := service.NewProjectService(local, noRemote{}, events, logger, service.ProjectServiceOptions{GuestLimit: 3})
	authService := service.NewAuthService(nil, nil, nil, testSecret, time.Minute, time.Hour)

	authHandler := NewAuthHandler(authService, nil, sessions, logger)
	projectHandler := NewProjectHandler(projects, sessions, events, logger)
	sessionHandler := NewSessionHandler(sessions, events)

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.SessionMiddleware(testSecret, sessions))
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")
	api.HandleFunc("/auth/google/login", authHandler.GoogleLogin).Methods("GET")
	api.HandleFunc("/session", sessionHandler.GetSession).Methods("GET")
	api.HandleFunc("/projects", projectHandler.ListProjects).Methods("GET")
	api.HandleFunc("/projects", projectHandler.CommitContent).Methods("POST")
	api.HandleFunc("/projects/{id}", projectHandler.GetProject).Methods("GET")
	api.HandleFunc("/projects/{id}", projectHandler.DeleteProject).Methods("DELETE")
	api.HandleFunc("/projects/{id}/rename", projectHandler.RenameProject).Methods("POST")
	api.HandleFunc("/projects/{id}/notes", projectHandler.AddNote).Methods("POST")
	api.HandleFunc("/projects/{id}/notes/check", projectHandler.CheckNote).Methods("GET")

	return &testServer{router: r, events: events, sessions: sessions, migrations: migrations}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, header http.Header) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp response.Response
	json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestAuthHandler_RegisterValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		body  map[string]string
		field string
		want  string
	}{
		{"missing email", map[string]string{"password": "secret1", "confirm": "secret1"}, "email", "Email is required"},
		{"bad email", map[string]string{"email": "reader", "password": "secret1", "confirm": "secret1"}, "email", "Invalid email format"},
		{"missing password", map[string]string{"email": "a@b.co", "confirm": "x"}, "password", "Password is required"},
		{"short password", map[string]string{"email": "a@b.co", "password": "12345", "confirm": "12345"}, "password", "Password must be at least 6 characters"},
		{"missing confirm", map[string]string{"email": "a@b.co", "password": "secret1"}, "confirm", "Please confirm password"},
		{"mismatch", map[string]string{"email": "a@b.co", "password": "secret1", "confirm": "secret2"}, "confirm", "Passwords do not match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := s.do(t, "POST", "/api/v1/auth/register", tt.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if got := resp.Fields[tt.field]; got != tt.want {
				t.Errorf("fields[%s] = %q, want %q", tt.field, got, tt.want)
			}
		})
	}
}

func TestAuthHandler_GoogleDisabled(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(t, "GET", "/api/v1/auth/google/login", nil, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestSessionMiddleware_RejectsBadToken(t *testing.T) {
	s := newTestServer(t)

	refresh, err := jwt.GenerateRefreshToken("u1", time.Hour, testSecret)
	if err != nil {
		t.Fatal(err)
	}

	for _, auth := range []string{"Bearer nope", "Token abc", "Bearer " + refresh} {
		rec, _ := s.do(t, "GET", "/api/v1/projects", nil, http.Header{"Authorization": {auth}})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Authorization %q: status = %d, want 401", auth, rec.Code)
		}
	}
}

func TestSessionMiddleware_TokenNeedsSignedInDevice(t *testing.T) {
	s := newTestServer(t)

	access, err := jwt.GenerateToken("u1", time.Hour, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	bearer := http.Header{"Authorization": {"Bearer " + access}}

	rec, _ := s.do(t, "GET", "/api/v1/projects", nil, bearer)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("token on a guest device: status = %d, want 401", rec.Code)
	}
	if s.migrations.count() != 0 {
		t.Errorf("migrations = %d, want 0", s.migrations.count())
	}
	if cur := s.sessions.Current(); !cur.IsGuest() {
		t.Errorf("device session = %+v, want guest", cur)
	}

	s.sessions.SignIn(context.Background(), &domain.User{ID: "u1", Email: "a@b.co"})
	if s.migrations.count() != 1 {
		t.Errorf("migrations after sign-in = %d, want 1", s.migrations.count())
	}
	rec, resp := s.do(t, "GET", "/api/v1/session", nil, bearer)
	if rec.Code != http.StatusOK || resp.Data.(map[string]interface{})["user_id"] != "u1" {
		t.Errorf("signed in: status = %d data = %v", rec.Code, resp.Data)
	}

	other, _ := jwt.GenerateToken("u2", time.Hour, testSecret)
	rec, _ = s.do(t, "GET", "/api/v1/projects", nil, http.Header{"Authorization": {"Bearer " + other}})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("token for another account: status = %d, want 401", rec.Code)
	}

	if rec, _ := s.do(t, "POST", "/api/v1/auth/logout", nil, bearer); rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
	rec, _ = s.do(t, "GET", "/api/v1/projects", nil, bearer)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("token after logout: status = %d, want 401", rec.Code)
	}
	rec, resp = s.do(t, "GET", "/api/v1/projects", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("guest after logout: status = %d: %s", rec.Code, resp.Error)
	}
}

func TestProjectHandler_GuestFlow(t *testing.T) {
	s := newTestServer(t)

	rec, resp := s.do(t, "POST", "/api/v1/projects", map[string]string{"content": "Hello world"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("commit status = %d: %s", rec.Code, resp.Error)
	}
	data := resp.Data.(map[string]interface{})
	id := data["id"].(string)
	if data["name"] != "Hello world" {
		t.Errorf("name = %v", data["name"])
	}
	if s.sessions.CurrentProject() != id {
		t.Error("committed project must become the open project")
	}

	rec, resp = s.do(t, "POST", "/api/v1/projects/"+id+"/notes", map[string]string{"en": "hello", "bn": "হ্যালো"}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add note status = %d: %s", rec.Code, resp.Error)
	}
	rec, _ = s.do(t, "POST", "/api/v1/projects/"+id+"/notes", map[string]string{"en": "Hello", "bn": "x"}, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("duplicate note status = %d, want 200", rec.Code)
	}

	_, resp = s.do(t, "GET", "/api/v1/projects/"+id+"/notes/check?en=hello", nil, nil)
	if status := resp.Data.(map[string]interface{}); status["added"] != true {
		t.Errorf("check = %v", status)
	}

	rec, resp = s.do(t, "POST", "/api/v1/projects/"+id+"/rename", map[string]string{"name": ""}, nil)
	if rec.Code != http.StatusOK || resp.Data.(map[string]interface{})["name"] != "Hello world" {
		t.Errorf("empty rename = %d %v", rec.Code, resp.Data)
	}

	for i := 0; i < 2; i++ {
		if rec, _ := s.do(t, "POST", "/api/v1/projects", map[string]string{"content": "more"}, nil); rec.Code != http.StatusOK {
			t.Fatalf("commit #%d status = %d", i+2, rec.Code)
		}
	}
	rec, resp = s.do(t, "POST", "/api/v1/projects", map[string]string{"content": "one too many"}, nil)
	if rec.Code != http.StatusForbidden || resp.Error != service.ErrGuestProjectLimit.Error() {
		t.Errorf("4th commit = %d %q, want 403", rec.Code, resp.Error)
	}

	_, resp = s.do(t, "GET", "/api/v1/projects", nil, nil)
	if list := resp.Data.([]interface{}); len(list) != 3 {
		t.Errorf("len(projects) = %d, want 3", len(list))
	}

	s.do(t, "GET", "/api/v1/projects/"+id, nil, nil)
	rec, _ = s.do(t, "DELETE", "/api/v1/projects/"+id, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if !s.events.has(domain.EventProjectReset) {
		t.Error("deleting the open project must reset clients")
	}
	if rec, _ := s.do(t, "GET", "/api/v1/projects/"+id, nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get deleted status = %d, want 404", rec.Code)
	}
}

func TestSessionHandler_GetSession(t *testing.T) {
	s := newTestServer(t)

	_, resp := s.do(t, "GET", "/api/v1/session", nil, nil)
	if mode := resp.Data.(map[string]interface{})["mode"]; mode != "guest" {
		t.Errorf("mode = %v, want guest", mode)
	}

	s.sessions.SignIn(context.Background(), &domain.User{ID: "u1", Email: "a@b.co"})
	_, resp = s.do(t, "GET", "/api/v1/session", nil, nil)
	data := resp.Data.(map[string]interface{})
	if data["mode"] != "authenticated" || data["email"] != "a@b.co" {
		t.Errorf("session = %v", data)
	}
}
