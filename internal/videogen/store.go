package videogen

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/peres84/AdFlowEcomm/internal/pkg/errors"
)

// SceneRecord is the mutable per-scene state. Exactly one of ArtifactPath and
// Error is populated once Status is terminal; an in-flight scene carries
// neither.
type SceneRecord struct {
	SceneID      string       `json:"scene_id"`
	Status       SceneStatus  `json:"status"`
	Attempt      int          `json:"attempt"`
	ArtifactPath string       `json:"artifact_path,omitempty"`
	Error        *ErrorDetail `json:"error,omitempty"`
	LastUpdated  time.Time    `json:"last_updated"`
}

// Job is a read-only snapshot of one generation job.
type Job struct {
	ID                uuid.UUID     `json:"id"`
	Scenes            []SceneRecord `json:"scenes"`
	CreatedAt         time.Time     `json:"created_at"`
	FinalArtifactPath string        `json:"final_artifact_path,omitempty"`
}

type sceneEntry struct {
	mu  sync.Mutex
	rec SceneRecord
}

type jobEntry struct {
	id        uuid.UUID
	createdAt time.Time

	// order is fixed at creation; only the scene records behind it mutate.
	order  []string
	scenes map[string]*sceneEntry

	finalMu   sync.Mutex
	finalPath string
}

// Store is the single source of truth for job and scene state. The top-level
// map is guarded by an RWMutex; each scene record carries its own lock so
// workers on sibling scenes never contend.
type Store struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*jobEntry
}

func NewStore() *Store {
	return &Store{jobs: make(map[uuid.UUID]*jobEntry)}
}

// CreateJob allocates a job with one pending record per scene id, in order.
func (s *Store) CreateJob(sceneIDs []string) (Job, error) {
	if len(sceneIDs) == 0 {
		return Job{}, fmt.Errorf("%w: no scenes", pkgerrors.ErrInvalidInput)
	}
	seen := make(map[string]bool, len(sceneIDs))
	for _, id := range sceneIDs {
		if id == "" {
			return Job{}, fmt.Errorf("%w: empty scene id", pkgerrors.ErrInvalidInput)
		}
		if seen[id] {
			return Job{}, fmt.Errorf("%w: duplicate scene id %q", pkgerrors.ErrInvalidInput, id)
		}
		seen[id] = true
	}

	now := time.Now().UTC()
	entry := &jobEntry{
		id:        uuid.New(),
		createdAt: now,
		order:     append([]string(nil), sceneIDs...),
		scenes:    make(map[string]*sceneEntry, len(sceneIDs)),
	}
	for _, id := range sceneIDs {
		entry.scenes[id] = &sceneEntry{rec: SceneRecord{
			SceneID:     id,
			Status:      ScenePending,
			LastUpdated: now,
		}}
	}

	s.mu.Lock()
	s.jobs[entry.id] = entry
	s.mu.Unlock()

	return s.snapshot(entry), nil
}

// GetJob returns a consistent snapshot of the whole job.
func (s *Store) GetJob(jobID uuid.UUID) (Job, error) {
	entry, err := s.entry(jobID)
	if err != nil {
		return Job{}, err
	}
	return s.snapshot(entry), nil
}

// ListScenes returns scene snapshots in creation order.
func (s *Store) ListScenes(jobID uuid.UUID) ([]SceneRecord, error) {
	entry, err := s.entry(jobID)
	if err != nil {
		return nil, err
	}
	return entry.listScenes(), nil
}

// UpdateScene applies an all-or-nothing mutation to exactly one scene record
// under that record's lock. If apply returns an error the record is left
// untouched. LastUpdated is stamped here so every transition carries it.
func (s *Store) UpdateScene(jobID uuid.UUID, sceneID string, apply func(rec *SceneRecord) error) error {
	entry, err := s.entry(jobID)
	if err != nil {
		return err
	}
	sc, ok := entry.scenes[sceneID]
	if !ok {
		return fmt.Errorf("scene %q: %w", sceneID, pkgerrors.ErrNotFound)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	next := sc.rec
	if err := apply(&next); err != nil {
		return err
	}
	next.SceneID = sceneID
	next.LastUpdated = time.Now().UTC()
	sc.rec = next
	return nil
}

// SetFinalArtifact records the concatenated output path on the job.
func (s *Store) SetFinalArtifact(jobID uuid.UUID, path string) error {
	entry, err := s.entry(jobID)
	if err != nil {
		return err
	}
	entry.finalMu.Lock()
	entry.finalPath = path
	entry.finalMu.Unlock()
	return nil
}

// EvictJob removes the whole job. Evicting an absent job is a no-op.
func (s *Store) EvictJob(jobID uuid.UUID) {
	s.mu.Lock()
	delete(s.jobs, jobID)
	s.mu.Unlock()
}

// ExpiredJobIDs lists jobs created before now-ttl, for the sweeper.
func (s *Store) ExpiredJobIDs(ttl time.Duration) []uuid.UUID {
	cutoff := time.Now().UTC().Add(-ttl)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []uuid.UUID
	for id, entry := range s.jobs {
		if entry.createdAt.Before(cutoff) {
			out = append(out, id)
		}
	}
	return out
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *Store) entry(jobID uuid.UUID) (*jobEntry, error) {
	s.mu.RLock()
	entry, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, pkgerrors.ErrNotFound)
	}
	return entry, nil
}

func (s *Store) snapshot(entry *jobEntry) Job {
	entry.finalMu.Lock()
	final := entry.finalPath
	entry.finalMu.Unlock()
	return Job{
		ID:                entry.id,
		Scenes:            entry.listScenes(),
		CreatedAt:         entry.createdAt,
		FinalArtifactPath: final,
	}
}

func (e *jobEntry) listScenes() []SceneRecord {
	out := make([]SceneRecord, 0, len(e.order))
	for _, id := range e.order {
		sc := e.scenes[id]
		sc.mu.Lock()
		out = append(out, sc.rec)
		sc.mu.Unlock()
	}
	return out
}
