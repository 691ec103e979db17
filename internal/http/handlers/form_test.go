package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/peres84/AdFlowEcomm/internal/pkg/logger"
	"github.com/peres84/AdFlowEcomm/internal/services"
)

func formBody(sessionID uuid.UUID) string {
	return `{
		"session_id": "` + sessionID.String() + `",
		"product_name": "AquaFlow Bottle",
		"category": "fitness",
		"target_audience": "gym goers",
		"main_benefit": "keeps drinks cold for 24h",
		"brand_colors": ["#0077ff"],
		"brand_tone": "energetic",
		"target_platform": "Instagram",
		"scene_description": "bright gym scenes"
	}`
}

func TestFormSubmitStoresBrief(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := services.NewSessionService(logger.NewNop(), time.Minute)
	sess := sessions.Create()

	r := gin.New()
	r.POST("/api/form/submit", NewFormHandler(sessions).Submit)

	req := httptest.NewRequest(http.MethodPost, "/api/form/submit", strings.NewReader(formBody(sess.ID)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d want=%d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	stored, err := sessions.Get(sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if stored.Form == nil || stored.Form.ProductName != "AquaFlow Bottle" {
		t.Fatalf("form not stored: %+v", stored.Form)
	}
}

func TestFormSubmitRejectsIncompleteBrief(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := services.NewSessionService(logger.NewNop(), time.Minute)
	sess := sessions.Create()

	r := gin.New()
	r.POST("/api/form/submit", NewFormHandler(sessions).Submit)

	body := `{"session_id": "` + sess.ID.String() + `", "product_name": "AquaFlow Bottle"}`
	req := httptest.NewRequest(http.MethodPost, "/api/form/submit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
}

func TestFormSubmitUnknownSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := services.NewSessionService(logger.NewNop(), time.Minute)

	r := gin.New()
	r.POST("/api/form/submit", NewFormHandler(sessions).Submit)

	req := httptest.NewRequest(http.MethodPost, "/api/form/submit", strings.NewReader(formBody(uuid.New())))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got=%d want=%d", rec.Code, http.StatusNotFound)
	}
}
