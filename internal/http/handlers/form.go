package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/peres84/AdFlowEcomm/internal/domain"
	"github.com/peres84/AdFlowEcomm/internal/http/response"
	"github.com/peres84/AdFlowEcomm/internal/services"
)

type FormHandler struct {
	sessions services.SessionService
}

func NewFormHandler(sessions services.SessionService) *FormHandler {
	return &FormHandler{sessions: sessions}
}

// POST /api/form/submit
func (h *FormHandler) Submit(c *gin.Context) {
	var req struct {
		SessionID uuid.UUID `json:"session_id"`
		domain.FormData
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := validateForm(&req.FormData); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_form", err)
		return
	}
	form := req.FormData
	sess, err := h.sessions.Update(req.SessionID, func(s *domain.Session) error {
		s.Form = &form
		return nil
	})
	if err != nil {
		response.RespondServiceError(c, "form_submit_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"session_id": sess.ID, "form": sess.Form})
}

func validateForm(f *domain.FormData) error {
	required := []struct {
		name, value string
	}{
		{"product_name", f.ProductName},
		{"category", f.Category},
		{"target_audience", f.TargetAudience},
		{"main_benefit", f.MainBenefit},
		{"brand_tone", f.BrandTone},
		{"target_platform", f.TargetPlatform},
		{"scene_description", f.SceneDescription},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%s is required", field.name)
		}
	}
	if len(f.BrandColors) == 0 {
		return fmt.Errorf("brand_colors must list at least one color")
	}
	return nil
}
