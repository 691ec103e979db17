package videogen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/peres84/AdFlowEcomm/internal/pkg/errors"
	"github.com/peres84/AdFlowEcomm/internal/pkg/logger"
)

// sceneScript tells the fake provider how one scene's lifecycle should play out.
type sceneScript struct {
	submitErr         error
	pollErrs          int  // consecutive poll-call failures before a real answer
	processingPolls   int  // polls reporting "processing" before the terminal one
	fail              bool // provider-reported terminal failure
	failMsg           string
	downloadErr       error
	foreverProcessing bool
}

type fakeProvider struct {
	mu      sync.Mutex
	scripts map[string]*sceneScript
	polls   map[string]int
	errs    map[string]int
	submits map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		scripts: make(map[string]*sceneScript),
		polls:   make(map[string]int),
		errs:    make(map[string]int),
		submits: make(map[string]int),
	}
}

func (f *fakeProvider) script(sceneID string, s sceneScript) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[sceneID] = &s
	f.polls[sceneID] = 0
	f.errs[sceneID] = 0
}

func (f *fakeProvider) Submit(_ context.Context, req SceneRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits[req.SceneID]++
	if s, ok := f.scripts[req.SceneID]; ok && s.submitErr != nil {
		return "", s.submitErr
	}
	return "task-" + req.SceneID, nil
}

func (f *fakeProvider) Poll(_ context.Context, taskID string) (PollResult, error) {
	sceneID := taskID[len("task-"):]
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.scripts[sceneID]
	if s == nil {
		s = &sceneScript{}
	}
	if s.foreverProcessing {
		return PollResult{Status: ProviderProcessing}, nil
	}
	if f.errs[sceneID] < s.pollErrs {
		f.errs[sceneID]++
		return PollResult{}, fmt.Errorf("connection reset")
	}
	if f.polls[sceneID] < s.processingPolls {
		f.polls[sceneID]++
		return PollResult{Status: ProviderProcessing}, nil
	}
	if s.fail {
		return PollResult{Status: ProviderFailed, ErrorMessage: s.failMsg}, nil
	}
	return PollResult{Status: ProviderSucceeded, ResultURL: "https://cdn.example.com/" + sceneID + ".mp4"}, nil
}

func (f *fakeProvider) Download(_ context.Context, url, destPath string) error {
	sceneID := filepath.Base(url)
	sceneID = sceneID[:len(sceneID)-len(".mp4")]
	f.mu.Lock()
	s := f.scripts[sceneID]
	f.mu.Unlock()
	if s != nil && s.downloadErr != nil {
		return s.downloadErr
	}
	return os.WriteFile(destPath, []byte("clip:"+sceneID), 0o644)
}

func (f *fakeProvider) submitCount(sceneID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits[sceneID]
}

type fakeConcat struct {
	mu     sync.Mutex
	calls  int
	inputs []string
	err    error
}

func (f *fakeConcat) ConcatVideos(_ context.Context, inputPaths []string, outputPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.inputs = append([]string(nil), inputPaths...)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outputPath, []byte("final"), 0o644)
}

func (f *fakeConcat) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestOrchestrator(t *testing.T, provider Provider, concat Concatenator) *Orchestrator {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		Worker: WorkerConfig{
			PollInterval:   time.Millisecond,
			MaxPollRetries: 3,
			SceneTimeout:   5 * time.Second,
			OutputDir:      dir,
		},
		OutputDir: dir,
	}
	return New(NewStore(), provider, concat, cfg, logger.NewNop())
}

func fourScenes() []SceneRequest {
	return []SceneRequest{
		{SceneID: "hook", Prompt: "d1", Duration: 7},
		{SceneID: "problem", Prompt: "d2", Duration: 7},
		{SceneID: "solution", Prompt: "d3", Duration: 10},
		{SceneID: "cta", Prompt: "d4", Duration: 6},
	}
}

func TestStartJobValidation(t *testing.T) {
	o := newTestOrchestrator(t, newFakeProvider(), &fakeConcat{})
	if _, err := o.StartJob(nil); !errors.Is(err, pkgerrors.ErrInvalidInput) {
		t.Fatalf("StartJob(nil) err=%v, want ErrInvalidInput", err)
	}
}

func TestStartJobImmediateStatus(t *testing.T) {
	provider := newFakeProvider()
	for _, id := range []string{"hook", "problem", "solution", "cta"} {
		provider.script(id, sceneScript{foreverProcessing: true})
	}
	o := newTestOrchestrator(t, provider, &fakeConcat{})

	jobID, err := o.StartJob(fourScenes())
	if err != nil {
		t.Fatalf("StartJob: %v", err)
	}
	st, err := o.GetStatus(jobID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if st.Aggregate != JobGenerating {
		t.Fatalf("aggregate=%s, want generating", st.Aggregate)
	}
	if len(st.Scenes) != 4 {
		t.Fatalf("got %d scenes, want 4", len(st.Scenes))
	}
	for _, sc := range st.Scenes {
		if sc.Status != ScenePending && sc.Status != SceneGenerating {
			t.Fatalf("scene %s status=%s immediately after start", sc.SceneID, sc.Status)
		}
	}
	o.DisposeJob(jobID)
}

func TestJobCompletesAllScenes(t *testing.T) {
	provider := newFakeProvider()
	o := newTestOrchestrator(t, provider, &fakeConcat{})

	jobID, err := o.StartJob(fourScenes())
	if err != nil {
		t.Fatalf("StartJob: %v", err)
	}
	st := awaitAggregate(t, o, jobID, JobCompleted)
	for _, sc := range st.Scenes {
		if sc.Status != SceneCompleted {
			t.Fatalf("scene %s status=%s, want completed", sc.SceneID, sc.Status)
		}
		if sc.ArtifactPath == "" || sc.Error != nil {
			t.Fatalf("completed scene %s must carry only an artifact: %+v", sc.SceneID, sc)
		}
		if sc.Attempt != 1 {
			t.Fatalf("scene %s attempt=%d, want 1", sc.SceneID, sc.Attempt)
		}
		if _, err := os.Stat(sc.ArtifactPath); err != nil {
			t.Fatalf("artifact missing on disk: %v", err)
		}
	}
}

func TestProviderFailureMarksSceneFailed(t *testing.T) {
	provider := newFakeProvider()
	provider.script("problem", sceneScript{fail: true, failMsg: "content policy rejection"})
	o := newTestOrchestrator(t, provider, &fakeConcat{})

	jobID, _ := o.StartJob(fourScenes())
	st := awaitAggregate(t, o, jobID, JobPartial)

	var failed *SceneRecord
	for i := range st.Scenes {
		if st.Scenes[i].SceneID == "problem" {
			failed = &st.Scenes[i]
		}
	}
	if failed == nil || failed.Status != SceneFailed {
		t.Fatalf("problem scene not failed: %+v", st.Scenes)
	}
	if failed.ArtifactPath != "" || failed.Error == nil {
		t.Fatalf("failed scene must carry only an error: %+v", failed)
	}
	if failed.Error.Cause != CauseProviderError || !failed.Error.RetryAdvisable {
		t.Fatalf("error detail=%+v, want retryable provider_error", failed.Error)
	}
	if failed.Error.Message != "content policy rejection" {
		t.Fatalf("provider message not surfaced: %q", failed.Error.Message)
	}
}

func TestRegenerateSingleScene(t *testing.T) {
	provider := newFakeProvider()
	provider.script("problem", sceneScript{fail: true, failMsg: "glitch"})
	o := newTestOrchestrator(t, provider, &fakeConcat{})

	jobID, _ := o.StartJob(fourScenes())
	before := awaitAggregate(t, o, jobID, JobPartial)

	siblings := make(map[string]SceneRecord)
	for _, sc := range before.Scenes {
		if sc.SceneID != "problem" {
			siblings[sc.SceneID] = sc
		}
	}

	// Second attempt succeeds.
	provider.script("problem", sceneScript{})
	if err := o.RegenerateScene(jobID, "problem", ""); err != nil {
		t.Fatalf("RegenerateScene: %v", err)
	}

	after := awaitAggregate(t, o, jobID, JobCompleted)
	for _, sc := range after.Scenes {
		if sc.SceneID == "problem" {
			if sc.Attempt != 2 {
				t.Fatalf("regenerated scene attempt=%d, want 2", sc.Attempt)
			}
			if sc.Status != SceneCompleted || sc.ArtifactPath == "" || sc.Error != nil {
				t.Fatalf("regenerated scene record: %+v", sc)
			}
			continue
		}
		prev := siblings[sc.SceneID]
		if sc.Attempt != prev.Attempt || sc.ArtifactPath != prev.ArtifactPath || sc.LastUpdated != prev.LastUpdated {
			t.Fatalf("sibling %s disturbed by regenerate: before=%+v after=%+v", sc.SceneID, prev, sc)
		}
	}
	if provider.submitCount("hook") != 1 {
		t.Fatalf("sibling resubmitted during regenerate")
	}
}

func TestRegenerateConflictWhileInFlight(t *testing.T) {
	provider := newFakeProvider()
	provider.script("hook", sceneScript{foreverProcessing: true})
	o := newTestOrchestrator(t, provider, &fakeConcat{})

	jobID, _ := o.StartJob([]SceneRequest{{SceneID: "hook", Prompt: "d1"}})
	awaitSceneStatus(t, o, jobID, "hook", SceneGenerating)

	before, _ := o.GetStatus(jobID)
	err := o.RegenerateScene(jobID, "hook", "new prompt")
	if !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("RegenerateScene on in-flight scene err=%v, want ErrConflict", err)
	}
	after, _ := o.GetStatus(jobID)
	if after.Scenes[0] != before.Scenes[0] {
		t.Fatalf("conflicting regenerate mutated state: before=%+v after=%+v", before.Scenes[0], after.Scenes[0])
	}
	o.DisposeJob(jobID)
}

func TestFinalizeNotReady(t *testing.T) {
	provider := newFakeProvider()
	provider.script("problem", sceneScript{fail: true})
	concat := &fakeConcat{}
	o := newTestOrchestrator(t, provider, concat)

	jobID, _ := o.StartJob(fourScenes())
	awaitAggregate(t, o, jobID, JobPartial)

	if _, err := o.Finalize(context.Background(), jobID); !errors.Is(err, pkgerrors.ErrNotReady) {
		t.Fatalf("Finalize err=%v, want ErrNotReady", err)
	}
	if concat.callCount() != 0 {
		t.Fatalf("concatenation invoked %d times on not-ready job", concat.callCount())
	}
}

func TestFinalizeConcatenatesInJobOrder(t *testing.T) {
	provider := newFakeProvider()
	concat := &fakeConcat{}
	o := newTestOrchestrator(t, provider, concat)

	jobID, _ := o.StartJob(fourScenes())
	st := awaitAggregate(t, o, jobID, JobCompleted)

	out, err := o.Finalize(context.Background(), jobID)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if out == "" {
		t.Fatalf("Finalize returned empty output path")
	}
	if concat.callCount() != 1 {
		t.Fatalf("concat calls=%d, want 1", concat.callCount())
	}
	want := make([]string, 0, 4)
	for _, sc := range st.Scenes {
		want = append(want, sc.ArtifactPath)
	}
	if len(concat.inputs) != 4 {
		t.Fatalf("concat inputs=%v", concat.inputs)
	}
	for i := range want {
		if concat.inputs[i] != want[i] {
			t.Fatalf("concat input[%d]=%q, want %q (job order)", i, concat.inputs[i], want[i])
		}
	}

	job, err := o.GetJob(jobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.FinalArtifactPath != out {
		t.Fatalf("final artifact not recorded on job: %q vs %q", job.FinalArtifactPath, out)
	}
}

func TestFinalizeConcatFailureLeavesScenes(t *testing.T) {
	provider := newFakeProvider()
	concat := &fakeConcat{err: errors.New("codec mismatch")}
	o := newTestOrchestrator(t, provider, concat)

	jobID, _ := o.StartJob(fourScenes())
	before := awaitAggregate(t, o, jobID, JobCompleted)

	if _, err := o.Finalize(context.Background(), jobID); err == nil {
		t.Fatalf("Finalize should surface concat failure")
	}
	after, _ := o.GetStatus(jobID)
	for i := range before.Scenes {
		if after.Scenes[i] != before.Scenes[i] {
			t.Fatalf("concat failure mutated scene %s", after.Scenes[i].SceneID)
		}
	}
}

func TestDisposeJob(t *testing.T) {
	provider := newFakeProvider()
	provider.script("hook", sceneScript{foreverProcessing: true})
	o := newTestOrchestrator(t, provider, &fakeConcat{})

	jobID, _ := o.StartJob([]SceneRequest{{SceneID: "hook", Prompt: "d1"}})
	awaitSceneStatus(t, o, jobID, "hook", SceneGenerating)

	o.DisposeJob(jobID)
	if _, err := o.GetStatus(jobID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("GetStatus after dispose err=%v, want ErrNotFound", err)
	}
	o.DisposeJob(jobID) // idempotent
	if o.store.Count() != 0 {
		t.Fatalf("residual jobs after dispose: %d", o.store.Count())
	}
	if err := o.RegenerateScene(jobID, "hook", ""); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("RegenerateScene after dispose err=%v, want ErrNotFound", err)
	}
}

// ---- helpers ----

func awaitAggregate(t *testing.T, o *Orchestrator, jobID uuid.UUID, want JobStatus) Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		st, err := o.GetStatus(jobID)
		if err != nil {
			t.Fatalf("GetStatus: %v", err)
		}
		if st.Aggregate == want {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("aggregate stuck at %s, want %s: %+v", st.Aggregate, want, st.Scenes)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func awaitSceneStatus(t *testing.T, o *Orchestrator, jobID uuid.UUID, sceneID string, want SceneStatus) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		st, err := o.GetStatus(jobID)
		if err != nil {
			t.Fatalf("GetStatus: %v", err)
		}
		for _, sc := range st.Scenes {
			if sc.SceneID == sceneID && sc.Status == want {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("scene %s never reached %s: %+v", sceneID, want, st.Scenes)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
