package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/peres84/AdFlowEcomm/internal/clients/openai"
	"github.com/peres84/AdFlowEcomm/internal/clients/runware"
	"github.com/peres84/AdFlowEcomm/internal/domain"
	apphttp "github.com/peres84/AdFlowEcomm/internal/http"
	httpH "github.com/peres84/AdFlowEcomm/internal/http/handlers"
	"github.com/peres84/AdFlowEcomm/internal/pkg/envutil"
	"github.com/peres84/AdFlowEcomm/internal/pkg/logger"
	"github.com/peres84/AdFlowEcomm/internal/platform/localmedia"
	"github.com/peres84/AdFlowEcomm/internal/services"
	"github.com/peres84/AdFlowEcomm/internal/videogen"
)

type Services struct {
	Sessions services.SessionService
	Uploads  services.UploadService
	Images   services.ImageService
	Scenes   services.SceneService
	Videos   services.VideoService
}

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Server   *apphttp.Server
	Services Services

	orchestrator *videogen.Orchestrator
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := envutil.GetEnv("LOG_MODE", "development", nil)
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	for _, dir := range []string{cfg.UploadDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Sync()
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	runwareClient, err := runware.NewClient(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init runware client: %w", err)
	}
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init openai client: %w", err)
	}

	media := localmedia.New(log)
	if err := media.AssertReady(context.Background()); err != nil {
		log.Warn("ffmpeg tooling not available, merge will fail", "error", err)
	}

	orchestrator := videogen.New(videogen.NewStore(), runwareClient, media, videogen.Config{
		Worker: videogen.WorkerConfig{
			PollInterval:   cfg.ScenePollEvery,
			MaxPollRetries: cfg.MaxPollRetries,
			SceneTimeout:   cfg.SceneTimeout,
			OutputDir:      cfg.OutputDir,
		},
		JobTTL:    cfg.JobTTL,
		OutputDir: cfg.OutputDir,
	}, log)

	sessions := services.NewSessionService(log, cfg.SessionTTL)
	uploads := services.NewUploadService(log, cfg.UploadDir, "/uploads")
	images := services.NewImageService(log, sessions, runwareClient)
	scenes := services.NewSceneService(log, sessions, openaiClient)
	videos := services.NewVideoService(log, sessions, orchestrator, "/outputs")

	// An expired or deleted session takes its running job and files with it.
	sessions.ExpireHook(func(s *domain.Session) {
		videos.DisposeSessionJob(s)
		uploads.RemoveSessionFiles(s.ID)
	})

	server := apphttp.NewServer(apphttp.RouterConfig{
		SessionHandler: httpH.NewSessionHandler(sessions, uploads),
		FormHandler:    httpH.NewFormHandler(sessions),
		UploadHandler:  httpH.NewUploadHandler(log, sessions, uploads),
		ImageHandler:   httpH.NewImageHandler(log, sessions, scenes, images),
		SceneHandler:   httpH.NewSceneHandler(scenes),
		VideoHandler:   httpH.NewVideoHandler(videos),
		HealthHandler:  httpH.NewHealthHandler(),
		UploadDir:      cfg.UploadDir,
		OutputDir:      cfg.OutputDir,
	})

	return &App{
		Log:    log,
		Cfg:    cfg,
		Server: server,
		Services: Services{
			Sessions: sessions,
			Uploads:  uploads,
			Images:   images,
			Scenes:   scenes,
			Videos:   videos,
		},
		orchestrator: orchestrator,
	}, nil
}

// Start launches the background sweepers. Safe to call once.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.orchestrator.StartSweeper(ctx)

	go func() {
		ticker := time.NewTicker(a.Cfg.SessionSweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := a.Services.Sessions.CleanupExpired(); n > 0 {
					a.Log.Info("Expired sessions removed", "count", n)
				}
			}
		}
	}()
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(":" + a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
