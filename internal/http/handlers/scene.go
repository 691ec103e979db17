package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/peres84/AdFlowEcomm/internal/http/response"
	"github.com/peres84/AdFlowEcomm/internal/services"
)

type SceneHandler struct {
	scenes services.SceneService
}

func NewSceneHandler(scenes services.SceneService) *SceneHandler {
	return &SceneHandler{scenes: scenes}
}

// POST /api/scenes/generate-descriptions
func (h *SceneHandler) GenerateDescriptions(c *gin.Context) {
	var req struct {
		SessionID      uuid.UUID         `json:"session_id"`
		SelectedImages map[string]string `json:"selected_images"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	descriptions, err := h.scenes.GenerateDescriptions(c.Request.Context(), req.SessionID, req.SelectedImages)
	if err != nil {
		response.RespondServiceError(c, "scene_generation_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"scenes": descriptions})
}

// POST /api/scenes/regenerate-description
func (h *SceneHandler) RegenerateDescription(c *gin.Context) {
	var req struct {
		SessionID uuid.UUID `json:"session_id"`
		Scenario  string    `json:"scenario"`
		Feedback  string    `json:"feedback"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	desc, err := h.scenes.RegenerateDescription(c.Request.Context(), req.SessionID, req.Scenario, req.Feedback)
	if err != nil {
		response.RespondServiceError(c, "scene_regeneration_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"scene": desc})
}
