package videogen

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/peres84/AdFlowEcomm/internal/pkg/errors"
	"github.com/peres84/AdFlowEcomm/internal/pkg/logger"
)

// Concatenator joins finished clips, in order, into one output file.
// localmedia.Tools is the production implementation.
type Concatenator interface {
	ConcatVideos(ctx context.Context, inputPaths []string, outputPath string) error
}

// Config tunes the orchestrator and the workers it spawns.
type Config struct {
	Worker WorkerConfig
	// JobTTL is how long a job survives after creation before the sweeper
	// evicts it. Zero disables sweeping.
	JobTTL time.Duration
	// OutputDir receives the final concatenated video.
	OutputDir string
}

// Status is the client-facing view of one job.
type Status struct {
	JobID     uuid.UUID     `json:"job_id"`
	Aggregate JobStatus     `json:"overall_status"`
	Scenes    []SceneRecord `json:"scenes"`
}

// Orchestrator fans a job out into one concurrent worker per scene, aggregates
// their outcomes, and joins the artifacts on finalize. It is the only
// component that spawns workers, which is what makes the single-writer rule
// per scene enforceable.
type Orchestrator struct {
	store    *Store
	provider Provider
	concat   Concatenator
	cfg      Config
	log      *logger.Logger

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
	inputs  map[uuid.UUID]map[string]SceneRequest
}

func New(store *Store, provider Provider, concat Concatenator, cfg Config, log *logger.Logger) *Orchestrator {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "outputs"
	}
	cfg.Worker = cfg.Worker.withDefaults()
	return &Orchestrator{
		store:    store,
		provider: provider,
		concat:   concat,
		cfg:      cfg,
		log:      log.With("component", "Orchestrator"),
		cancels:  make(map[uuid.UUID]context.CancelFunc),
		inputs:   make(map[uuid.UUID]map[string]SceneRequest),
	}
}

// StartJob creates a job and spawns one worker per scene, then returns
// immediately. Workers run on a job-scoped context detached from the request
// so an impatient HTTP client cannot kill the generation.
func (o *Orchestrator) StartJob(scenes []SceneRequest) (uuid.UUID, error) {
	if len(scenes) == 0 {
		return uuid.Nil, fmt.Errorf("%w: no scenes", pkgerrors.ErrInvalidInput)
	}
	sceneIDs := make([]string, 0, len(scenes))
	for _, sc := range scenes {
		sceneIDs = append(sceneIDs, sc.SceneID)
	}

	job, err := o.store.CreateJob(sceneIDs)
	if err != nil {
		return uuid.Nil, err
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	byScene := make(map[string]SceneRequest, len(scenes))
	for _, sc := range scenes {
		byScene[sc.SceneID] = sc
	}

	o.mu.Lock()
	o.cancels[job.ID] = cancel
	o.inputs[job.ID] = byScene
	o.mu.Unlock()

	o.log.Info("Job started", "job_id", job.ID, "scenes", len(scenes))
	for _, sc := range scenes {
		worker := newSceneWorker(o.store, o.provider, o.cfg.Worker, o.log)
		go worker.Run(jobCtx, job.ID, sc)
	}
	return job.ID, nil
}

// GetStatus reads the scene snapshots and derives the aggregate. It never
// fails because of a scene's content, only when the job itself is unknown.
func (o *Orchestrator) GetStatus(jobID uuid.UUID) (Status, error) {
	scenes, err := o.store.ListScenes(jobID)
	if err != nil {
		return Status{}, err
	}
	return Status{
		JobID:     jobID,
		Aggregate: Aggregate(scenes),
		Scenes:    scenes,
	}, nil
}

// GetJob exposes the full job snapshot, including the final artifact path.
func (o *Orchestrator) GetJob(jobID uuid.UUID) (Job, error) {
	return o.store.GetJob(jobID)
}

// RegenerateScene redoes exactly one scene. The target must be terminal: the
// claim back to pending happens atomically under the scene lock, so two
// racing regenerates (or a regenerate against a live worker) cannot both win.
// Sibling scenes are untouched. An empty newPrompt reuses the stored one.
func (o *Orchestrator) RegenerateScene(jobID uuid.UUID, sceneID string, newPrompt string) error {
	o.mu.Lock()
	byScene, ok := o.inputs[jobID]
	var req SceneRequest
	if ok {
		req, ok = byScene[sceneID]
	}
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("scene %q in job %s: %w", sceneID, jobID, pkgerrors.ErrNotFound)
	}

	err := o.store.UpdateScene(jobID, sceneID, func(rec *SceneRecord) error {
		if !rec.Status.Terminal() {
			return fmt.Errorf("scene %q is %s: %w", sceneID, rec.Status, pkgerrors.ErrConflict)
		}
		rec.Status = ScenePending
		rec.ArtifactPath = ""
		rec.Error = nil
		return nil
	})
	if err != nil {
		return err
	}

	if newPrompt != "" {
		req.Prompt = newPrompt
		o.mu.Lock()
		if m, ok := o.inputs[jobID]; ok {
			m[sceneID] = req
		}
		o.mu.Unlock()
	}

	o.mu.Lock()
	_, live := o.cancels[jobID]
	o.mu.Unlock()
	if !live {
		// Job context was torn down between the claim and here; the store
		// entry is gone too, so the claim wrote into a discarded record.
		return fmt.Errorf("job %s: %w", jobID, pkgerrors.ErrNotFound)
	}

	jobCtx := o.jobContext(jobID)
	worker := newSceneWorker(o.store, o.provider, o.cfg.Worker, o.log)
	o.log.Info("Scene regeneration started", "job_id", jobID, "scene_id", sceneID)
	go worker.Run(jobCtx, jobID, req)
	return nil
}

// Finalize requires strictly all-completed scenes, then concatenates the
// artifacts in job order. Scene records are not touched, so a concat failure
// can be retried after the operator sorts out the inputs.
func (o *Orchestrator) Finalize(ctx context.Context, jobID uuid.UUID) (string, error) {
	scenes, err := o.store.ListScenes(jobID)
	if err != nil {
		return "", err
	}
	paths := make([]string, 0, len(scenes))
	for _, sc := range scenes {
		if sc.Status != SceneCompleted {
			return "", fmt.Errorf("scene %q is %s: %w", sc.SceneID, sc.Status, pkgerrors.ErrNotReady)
		}
		paths = append(paths, sc.ArtifactPath)
	}

	outputPath := filepath.Join(o.cfg.OutputDir, fmt.Sprintf("%s_final_%s.mp4", jobID, uuid.NewString()[:8]))
	if err := o.concat.ConcatVideos(ctx, paths, outputPath); err != nil {
		return "", fmt.Errorf("concatenate job %s: %w", jobID, err)
	}
	if err := o.store.SetFinalArtifact(jobID, outputPath); err != nil {
		return "", err
	}
	o.log.Info("Job finalized", "job_id", jobID, "output", outputPath)
	return outputPath, nil
}

// DisposeJob evicts the job and asks in-flight workers to stand down. Workers
// notice between poll iterations; their records are being discarded with the
// job, so no further bookkeeping is needed. Idempotent.
func (o *Orchestrator) DisposeJob(jobID uuid.UUID) {
	o.mu.Lock()
	if cancel, ok := o.cancels[jobID]; ok {
		cancel()
		delete(o.cancels, jobID)
	}
	delete(o.inputs, jobID)
	o.mu.Unlock()
	o.store.EvictJob(jobID)
}

// StartSweeper evicts jobs older than JobTTL until ctx is cancelled.
func (o *Orchestrator) StartSweeper(ctx context.Context) {
	if o.cfg.JobTTL <= 0 {
		return
	}
	interval := o.cfg.JobTTL / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, id := range o.store.ExpiredJobIDs(o.cfg.JobTTL) {
					o.log.Info("Evicting expired job", "job_id", id)
					o.DisposeJob(id)
				}
			}
		}
	}()
}

// jobContext rebuilds a context wired to the job's cancel entry. Workers for
// regenerated scenes must die with the job just like the original ones.
func (o *Orchestrator) jobContext(jobID uuid.UUID) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	prev, ok := o.cancels[jobID]
	if !ok {
		o.mu.Unlock()
		cancel()
		return ctx
	}
	o.cancels[jobID] = func() {
		prev()
		cancel()
	}
	o.mu.Unlock()
	return ctx
}
