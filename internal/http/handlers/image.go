package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/peres84/AdFlowEcomm/internal/http/response"
	"github.com/peres84/AdFlowEcomm/internal/pkg/logger"
	"github.com/peres84/AdFlowEcomm/internal/services"
)

type ImageHandler struct {
	log      *logger.Logger
	sessions services.SessionService
	scenes   services.SceneService
	images   services.ImageService
}

func NewImageHandler(log *logger.Logger, sessions services.SessionService, scenes services.SceneService, images services.ImageService) *ImageHandler {
	return &ImageHandler{
		log:      log.With("handler", "ImageHandler"),
		sessions: sessions,
		scenes:   scenes,
		images:   images,
	}
}

// POST /api/images/generate
func (h *ImageHandler) Generate(c *gin.Context) {
	var req struct {
		SessionID uuid.UUID `json:"session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	sess, err := h.sessions.Get(req.SessionID)
	if err != nil {
		response.RespondServiceError(c, "session_not_found", err)
		return
	}

	// Run the vision analysis once per uploaded product photo.
	if sess.ProductAnalysis == nil {
		if _, err := h.scenes.AnalyzeProduct(c.Request.Context(), req.SessionID); err != nil {
			response.RespondServiceError(c, "product_analysis_failed", err)
			return
		}
	}

	images, err := h.images.GenerateForSession(c.Request.Context(), req.SessionID)
	if err != nil {
		response.RespondServiceError(c, "image_generation_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"images": images})
}

// POST /api/images/regenerate
func (h *ImageHandler) Regenerate(c *gin.Context) {
	var req struct {
		SessionID     uuid.UUID `json:"session_id"`
		Scenario      string    `json:"scenario"`
		Modifications string    `json:"modifications"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	img, err := h.images.Regenerate(c.Request.Context(), req.SessionID, req.Scenario, req.Modifications)
	if err != nil {
		response.RespondServiceError(c, "image_regeneration_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"image": img})
}
