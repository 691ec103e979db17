package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/peres84/AdFlowEcomm/internal/pkg/logger"
	"github.com/peres84/AdFlowEcomm/internal/services"
)

type fakeUploads struct {
	removed []uuid.UUID
}

func (f *fakeUploads) Save(sessionID uuid.UUID, kind services.UploadKind, filename string, data []byte) (services.StoredUpload, error) {
	return services.StoredUpload{}, nil
}

func (f *fakeUploads) RemoveSessionFiles(sessionID uuid.UUID) {
	f.removed = append(f.removed, sessionID)
}

func newSessionRouter(t *testing.T) (*gin.Engine, services.SessionService, *fakeUploads) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessions := services.NewSessionService(logger.NewNop(), time.Minute)
	uploads := &fakeUploads{}
	h := NewSessionHandler(sessions, uploads)

	r := gin.New()
	r.POST("/api/session/create", h.Create)
	r.GET("/api/session/:id", h.Get)
	r.DELETE("/api/session/:id", h.Delete)
	r.POST("/api/session/cleanup", h.Cleanup)
	return r, sessions, uploads
}

func TestSessionCreateAndGet(t *testing.T) {
	r, _, _ := newSessionRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/session/create", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("create status: got=%d want=%d", rec.Code, http.StatusOK)
	}

	var created struct {
		Session struct {
			ID uuid.UUID `json:"session_id"`
		} `json:"session"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Session.ID == uuid.Nil {
		t.Fatal("expected a session id")
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session/"+created.Session.ID.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status: got=%d want=%d", rec.Code, http.StatusOK)
	}
}

func TestSessionGetUnknownReturnsNotFound(t *testing.T) {
	r, _, _ := newSessionRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session/"+uuid.NewString(), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got=%d want=%d", rec.Code, http.StatusNotFound)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session/not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed id status: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
}

func TestSessionDeleteRemovesFiles(t *testing.T) {
	r, sessions, uploads := newSessionRouter(t)
	sess := sessions.Create()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/session/"+sess.ID.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status: got=%d want=%d", rec.Code, http.StatusOK)
	}
	if len(uploads.removed) != 1 || uploads.removed[0] != sess.ID {
		t.Fatalf("expected upload cleanup for %s, got %v", sess.ID, uploads.removed)
	}
	if _, err := sessions.Get(sess.ID); err == nil {
		t.Fatal("expected session to be gone")
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/session/"+sess.ID.String(), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status: got=%d want=%d", rec.Code, http.StatusNotFound)
	}
}

func TestSessionCleanupReportsCounts(t *testing.T) {
	r, sessions, _ := newSessionRouter(t)
	sessions.Create()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/session/cleanup", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("cleanup status: got=%d want=%d", rec.Code, http.StatusOK)
	}

	var body struct {
		Removed int `json:"removed"`
		Active  int `json:"active"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode cleanup response: %v", err)
	}
	if body.Removed != 0 || body.Active != 1 {
		t.Fatalf("unexpected counts: removed=%d active=%d", body.Removed, body.Active)
	}
}
