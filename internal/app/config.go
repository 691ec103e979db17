package app

import (
	"time"

	"github.com/peres84/AdFlowEcomm/internal/pkg/envutil"
	"github.com/peres84/AdFlowEcomm/internal/pkg/logger"
)

type Config struct {
	Port string

	UploadDir string
	OutputDir string

	SessionTTL   time.Duration
	SessionSweep time.Duration

	JobTTL         time.Duration
	ScenePollEvery time.Duration
	SceneTimeout   time.Duration
	MaxPollRetries int
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:           envutil.GetEnv("PORT", "8000", log),
		UploadDir:      envutil.GetEnv("UPLOAD_DIR", "uploads", log),
		OutputDir:      envutil.GetEnv("OUTPUT_DIR", "outputs", log),
		SessionTTL:     envutil.GetEnvAsDuration("SESSION_TTL", 30*time.Minute, log),
		SessionSweep:   envutil.GetEnvAsDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute, log),
		JobTTL:         envutil.GetEnvAsDuration("VIDEO_JOB_TTL", 2*time.Hour, log),
		ScenePollEvery: envutil.GetEnvAsDuration("SCENE_POLL_INTERVAL", 5*time.Second, log),
		SceneTimeout:   envutil.GetEnvAsDuration("SCENE_TIMEOUT", 10*time.Minute, log),
		MaxPollRetries: envutil.GetEnvAsInt("SCENE_MAX_POLL_RETRIES", 3, log),
	}
}
