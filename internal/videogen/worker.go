package videogen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/peres84/AdFlowEcomm/internal/pkg/logger"
)

// SceneRequest is everything the external provider needs for one clip.
type SceneRequest struct {
	SceneID  string
	Prompt   string
	Duration int
	Width    int
	Height   int
}

// ProviderStatus is the provider-reported state of a submitted task.
type ProviderStatus string

const (
	ProviderProcessing ProviderStatus = "processing"
	ProviderSucceeded  ProviderStatus = "succeeded"
	ProviderFailed     ProviderStatus = "failed"
)

// PollResult is one poll's view of a provider task.
type PollResult struct {
	Status       ProviderStatus
	ResultURL    string
	ErrorMessage string
}

// Provider is the single-clip generation vendor, reduced to the three calls
// the worker needs. The concrete client owns the vendor payload shapes.
type Provider interface {
	Submit(ctx context.Context, req SceneRequest) (taskID string, err error)
	Poll(ctx context.Context, taskID string) (PollResult, error)
	Download(ctx context.Context, url string, destPath string) error
}

// WorkerConfig is the explicit retry/timeout policy for one scene attempt.
type WorkerConfig struct {
	// PollInterval is the wait between provider status checks.
	PollInterval time.Duration
	// MaxPollRetries bounds consecutive poll-call failures before the scene
	// is failed. A successful poll resets the counter.
	MaxPollRetries int
	// SceneTimeout is the wall-clock budget from submission to artifact.
	SceneTimeout time.Duration
	// OutputDir receives downloaded artifacts.
	OutputDir string
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.MaxPollRetries <= 0 {
		c.MaxPollRetries = 3
	}
	if c.SceneTimeout <= 0 {
		c.SceneTimeout = 10 * time.Minute
	}
	if c.OutputDir == "" {
		c.OutputDir = "outputs"
	}
	return c
}

// sceneWorker drives exactly one scene attempt to a terminal state. It is the
// sole writer of its scene record while running; the orchestrator guarantees
// no second worker is spawned for the same scene until this one is terminal.
type sceneWorker struct {
	store    *Store
	provider Provider
	cfg      WorkerConfig
	log      *logger.Logger
}

func newSceneWorker(store *Store, provider Provider, cfg WorkerConfig, log *logger.Logger) *sceneWorker {
	return &sceneWorker{
		store:    store,
		provider: provider,
		cfg:      cfg.withDefaults(),
		log:      log.With("component", "SceneWorker"),
	}
}

// Run executes the submit -> poll -> download lifecycle for one scene and
// records the outcome in the store. It never returns an error: every failure
// is folded into the scene record, and a cancelled job leaves the record
// untouched because the whole job is being discarded anyway.
func (w *sceneWorker) Run(ctx context.Context, jobID uuid.UUID, req SceneRequest) {
	log := w.log.With("job_id", jobID, "scene_id", req.SceneID)

	if err := w.markGenerating(jobID, req.SceneID); err != nil {
		log.Warn("Scene start transition failed", "error", err)
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, w.cfg.SceneTimeout)
	defer cancel()

	taskID, err := w.provider.Submit(runCtx, req)
	if err != nil {
		w.finish(ctx, jobID, req.SceneID, "", w.classify(ctx, runCtx, err, "submit"))
		return
	}
	log.Info("Scene submitted", "task_id", taskID, "attempt_prompt_len", len(req.Prompt))

	result, detail := w.pollUntilTerminal(ctx, runCtx, taskID, log)
	if detail != nil {
		w.finish(ctx, jobID, req.SceneID, "", detail)
		return
	}

	dest := filepath.Join(w.cfg.OutputDir, fmt.Sprintf("%s_%s_%s.mp4", jobID, req.SceneID, uuid.NewString()[:8]))
	if err := os.MkdirAll(w.cfg.OutputDir, 0o755); err != nil {
		w.finish(ctx, jobID, req.SceneID, "", &ErrorDetail{
			Message:        fmt.Sprintf("create output dir: %v", err),
			Cause:          CauseInternal,
			RetryAdvisable: true,
		})
		return
	}
	if err := w.provider.Download(runCtx, result.ResultURL, dest); err != nil {
		w.finish(ctx, jobID, req.SceneID, "", w.classify(ctx, runCtx, err, "download"))
		return
	}

	w.finish(ctx, jobID, req.SceneID, dest, nil)
	log.Info("Scene completed", "artifact", dest)
}

// pollUntilTerminal waits out the provider. Transient poll failures are
// retried up to MaxPollRetries before the scene is failed; a provider-reported
// terminal error fails the scene immediately.
func (w *sceneWorker) pollUntilTerminal(ctx, runCtx context.Context, taskID string, log *logger.Logger) (PollResult, *ErrorDetail) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	pollFailures := 0
	for {
		// Cancellation is only honored between polls, never mid-download.
		select {
		case <-runCtx.Done():
			if ctx.Err() != nil {
				return PollResult{}, &ErrorDetail{} // job disposed; caller drops the write
			}
			return PollResult{}, &ErrorDetail{
				Message:        fmt.Sprintf("scene generation exceeded %s", w.cfg.SceneTimeout),
				Cause:          CauseTimeout,
				RetryAdvisable: true,
			}
		case <-ticker.C:
		}

		result, err := w.provider.Poll(runCtx, taskID)
		if err != nil {
			pollFailures++
			log.Warn("Poll failed", "task_id", taskID, "failures", pollFailures, "error", err)
			if pollFailures >= w.cfg.MaxPollRetries {
				return PollResult{}, w.classify(ctx, runCtx, err, "poll")
			}
			continue
		}
		pollFailures = 0

		switch result.Status {
		case ProviderSucceeded:
			if result.ResultURL == "" {
				return PollResult{}, &ErrorDetail{
					Message:        "provider reported success without a result url",
					Cause:          CauseProviderError,
					RetryAdvisable: true,
				}
			}
			return result, nil
		case ProviderFailed:
			msg := result.ErrorMessage
			if msg == "" {
				msg = "provider reported failure"
			}
			return PollResult{}, &ErrorDetail{
				Message:        msg,
				Cause:          CauseProviderError,
				RetryAdvisable: true,
			}
		case ProviderProcessing:
			// keep waiting
		default:
			return PollResult{}, &ErrorDetail{
				Message:        fmt.Sprintf("provider returned unknown status %q", result.Status),
				Cause:          CauseProviderError,
				RetryAdvisable: true,
			}
		}
	}
}

func (w *sceneWorker) markGenerating(jobID uuid.UUID, sceneID string) error {
	return w.store.UpdateScene(jobID, sceneID, func(rec *SceneRecord) error {
		rec.Status = SceneGenerating
		rec.Attempt++
		rec.ArtifactPath = ""
		rec.Error = nil
		return nil
	})
}

// finish writes the terminal state, unless the job was disposed while the
// worker ran (then the record is gone or about to be, and stays untouched).
func (w *sceneWorker) finish(ctx context.Context, jobID uuid.UUID, sceneID, artifactPath string, detail *ErrorDetail) {
	if ctx.Err() != nil {
		return
	}
	if detail != nil && detail.Message == "" {
		return // disposed mid-poll
	}
	err := w.store.UpdateScene(jobID, sceneID, func(rec *SceneRecord) error {
		if detail != nil {
			rec.Status = SceneFailed
			rec.Error = detail
			rec.ArtifactPath = ""
		} else {
			rec.Status = SceneCompleted
			rec.ArtifactPath = artifactPath
			rec.Error = nil
		}
		return nil
	})
	if err != nil {
		w.log.Warn("Scene outcome write dropped", "job_id", jobID, "scene_id", sceneID, "error", err)
	}
}

// classify maps a transport-level error to an ErrorDetail, distinguishing our
// own deadline from vendor/network trouble. A disposed job yields an empty
// detail that finish discards.
func (w *sceneWorker) classify(ctx, runCtx context.Context, err error, stage string) *ErrorDetail {
	if ctx.Err() != nil {
		return &ErrorDetail{}
	}
	if runCtx.Err() == context.DeadlineExceeded {
		return &ErrorDetail{
			Message:        fmt.Sprintf("scene generation exceeded %s during %s", w.cfg.SceneTimeout, stage),
			Cause:          CauseTimeout,
			RetryAdvisable: true,
		}
	}
	return &ErrorDetail{
		Message:        fmt.Sprintf("%s: %v", stage, err),
		Cause:          CauseNetworkError,
		RetryAdvisable: true,
	}
}
