package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/peres84/AdFlowEcomm/internal/http/handlers"
	httpMW "github.com/peres84/AdFlowEcomm/internal/http/middleware"
)

type RouterConfig struct {
	SessionHandler *httpH.SessionHandler
	FormHandler    *httpH.FormHandler
	UploadHandler  *httpH.UploadHandler
	ImageHandler   *httpH.ImageHandler
	SceneHandler   *httpH.SceneHandler
	VideoHandler   *httpH.VideoHandler

	HealthHandler *httpH.HealthHandler

	// Directories served as static file trees, skipped when empty.
	UploadDir string
	OutputDir string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Generated assets
	if cfg.UploadDir != "" {
		r.Static("/uploads", cfg.UploadDir)
	}
	if cfg.OutputDir != "" {
		r.Static("/outputs", cfg.OutputDir)
	}

	api := r.Group("/api")
	{
		// Session lifecycle
		if cfg.SessionHandler != nil {
			api.POST("/session/create", cfg.SessionHandler.Create)
			api.GET("/session/:id", cfg.SessionHandler.Get)
			api.DELETE("/session/:id", cfg.SessionHandler.Delete)
			api.POST("/session/cleanup", cfg.SessionHandler.Cleanup)
		}

		// Marketing brief
		if cfg.FormHandler != nil {
			api.POST("/form/submit", cfg.FormHandler.Submit)
		}

		// Uploads
		if cfg.UploadHandler != nil {
			api.POST("/upload/product", cfg.UploadHandler.UploadProduct)
			api.POST("/upload/logo", cfg.UploadHandler.UploadLogo)
		}

		// Scenario stills
		if cfg.ImageHandler != nil {
			api.POST("/images/generate", cfg.ImageHandler.Generate)
			api.POST("/images/regenerate", cfg.ImageHandler.Regenerate)
		}

		// Scene descriptions
		if cfg.SceneHandler != nil {
			api.POST("/scenes/generate-descriptions", cfg.SceneHandler.GenerateDescriptions)
			api.POST("/scenes/regenerate-description", cfg.SceneHandler.RegenerateDescription)
		}

		// Scene videos + final merge
		if cfg.VideoHandler != nil {
			api.POST("/videos/generate-scenes", cfg.VideoHandler.GenerateScenes)
			api.GET("/videos/status/:job_id", cfg.VideoHandler.Status)
			api.POST("/videos/regenerate-scene", cfg.VideoHandler.RegenerateScene)
			api.POST("/videos/merge", cfg.VideoHandler.Merge)
		}
	}

	return r
}
