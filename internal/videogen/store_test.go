package videogen

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/peres84/AdFlowEcomm/internal/pkg/errors"
)

func TestCreateJobValidation(t *testing.T) {
	store := NewStore()

	cases := []struct {
		name     string
		sceneIDs []string
	}{
		{name: "empty", sceneIDs: nil},
		{name: "duplicate", sceneIDs: []string{"hook", "problem", "hook"}},
		{name: "blank_id", sceneIDs: []string{"hook", ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := store.CreateJob(tc.sceneIDs); !errors.Is(err, pkgerrors.ErrInvalidInput) {
				t.Fatalf("CreateJob(%v) err=%v, want ErrInvalidInput", tc.sceneIDs, err)
			}
		})
	}
	if store.Count() != 0 {
		t.Fatalf("rejected jobs must leave no residual state, count=%d", store.Count())
	}
}

func TestCreateJobInitialState(t *testing.T) {
	store := NewStore()
	job, err := store.CreateJob([]string{"hook", "problem", "solution", "cta"})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if len(job.Scenes) != 4 {
		t.Fatalf("got %d scenes, want 4", len(job.Scenes))
	}
	for i, want := range []string{"hook", "problem", "solution", "cta"} {
		sc := job.Scenes[i]
		if sc.SceneID != want {
			t.Fatalf("scene[%d]=%q, want %q", i, sc.SceneID, want)
		}
		if sc.Status != ScenePending || sc.Attempt != 0 || sc.ArtifactPath != "" || sc.Error != nil {
			t.Fatalf("scene[%d] not a fresh pending record: %+v", i, sc)
		}
	}
}

func TestListScenesOrderPreserved(t *testing.T) {
	store := NewStore()
	order := []string{"cta", "hook", "solution", "problem"}
	job, err := store.CreateJob(order)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	// Complete scenes in reverse order; listing order must not change.
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		err := store.UpdateScene(job.ID, id, func(rec *SceneRecord) error {
			rec.Status = SceneCompleted
			rec.ArtifactPath = "outputs/" + id + ".mp4"
			return nil
		})
		if err != nil {
			t.Fatalf("UpdateScene(%s): %v", id, err)
		}
	}

	scenes, err := store.ListScenes(job.ID)
	if err != nil {
		t.Fatalf("ListScenes: %v", err)
	}
	for i, id := range order {
		if scenes[i].SceneID != id {
			t.Fatalf("scene[%d]=%q, want %q", i, scenes[i].SceneID, id)
		}
	}
}

func TestUpdateSceneAllOrNothing(t *testing.T) {
	store := NewStore()
	job, _ := store.CreateJob([]string{"hook"})

	boom := errors.New("boom")
	err := store.UpdateScene(job.ID, "hook", func(rec *SceneRecord) error {
		rec.Status = SceneCompleted
		rec.ArtifactPath = "half-written"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("UpdateScene err=%v, want boom", err)
	}

	scenes, _ := store.ListScenes(job.ID)
	if scenes[0].Status != ScenePending || scenes[0].ArtifactPath != "" {
		t.Fatalf("failed mutation leaked into record: %+v", scenes[0])
	}
}

func TestUpdateSceneUnknownTargets(t *testing.T) {
	store := NewStore()
	job, _ := store.CreateJob([]string{"hook"})

	if err := store.UpdateScene(uuid.New(), "hook", func(*SceneRecord) error { return nil }); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("unknown job err=%v, want ErrNotFound", err)
	}
	if err := store.UpdateScene(job.ID, "nope", func(*SceneRecord) error { return nil }); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("unknown scene err=%v, want ErrNotFound", err)
	}
}

func TestConcurrentSiblingUpdates(t *testing.T) {
	store := NewStore()
	ids := []string{"hook", "problem", "solution", "cta"}
	job, _ := store.CreateJob(ids)

	var wg sync.WaitGroup
	for _, id := range ids {
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_ = store.UpdateScene(job.ID, id, func(rec *SceneRecord) error {
					rec.Attempt++
					return nil
				})
			}(id)
		}
	}
	// Concurrent readers must always see a consistent snapshot.
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scenes, err := store.ListScenes(job.ID)
			if err != nil || len(scenes) != 4 {
				t.Errorf("ListScenes during writes: scenes=%d err=%v", len(scenes), err)
			}
		}()
	}
	wg.Wait()

	scenes, _ := store.ListScenes(job.ID)
	for _, sc := range scenes {
		if sc.Attempt != 50 {
			t.Fatalf("scene %s attempt=%d, want 50 (lost update)", sc.SceneID, sc.Attempt)
		}
	}
}

func TestEvictJobIdempotent(t *testing.T) {
	store := NewStore()
	job, _ := store.CreateJob([]string{"hook"})

	store.EvictJob(job.ID)
	if _, err := store.GetJob(job.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("GetJob after evict err=%v, want ErrNotFound", err)
	}
	store.EvictJob(job.ID) // second evict is a no-op
	if store.Count() != 0 {
		t.Fatalf("residual state after double evict, count=%d", store.Count())
	}
}

func TestExpiredJobIDs(t *testing.T) {
	store := NewStore()
	job, _ := store.CreateJob([]string{"hook"})

	if got := store.ExpiredJobIDs(time.Hour); len(got) != 0 {
		t.Fatalf("fresh job reported expired: %v", got)
	}
	got := store.ExpiredJobIDs(-time.Second)
	if len(got) != 1 || got[0] != job.ID {
		t.Fatalf("ExpiredJobIDs=%v, want [%s]", got, job.ID)
	}
}
