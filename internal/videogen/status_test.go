package videogen

import "testing"

func TestAggregate(t *testing.T) {
	cases := []struct {
		name     string
		statuses []SceneStatus
		want     JobStatus
	}{
		{
			name:     "all_pending",
			statuses: []SceneStatus{ScenePending, ScenePending},
			want:     JobGenerating,
		},
		{
			name:     "mixed_terminal_with_inflight",
			statuses: []SceneStatus{SceneCompleted, SceneFailed, SceneGenerating, SceneCompleted},
			want:     JobGenerating,
		},
		{
			name:     "pending_among_terminal",
			statuses: []SceneStatus{SceneCompleted, ScenePending, SceneCompleted, SceneCompleted},
			want:     JobGenerating,
		},
		{
			name:     "all_completed",
			statuses: []SceneStatus{SceneCompleted, SceneCompleted, SceneCompleted, SceneCompleted},
			want:     JobCompleted,
		},
		{
			name:     "mixed_terminal",
			statuses: []SceneStatus{SceneCompleted, SceneCompleted, SceneFailed, SceneCompleted},
			want:     JobPartial,
		},
		{
			name:     "all_failed",
			statuses: []SceneStatus{SceneFailed, SceneFailed},
			want:     JobFailed,
		},
		{
			name:     "single_completed",
			statuses: []SceneStatus{SceneCompleted},
			want:     JobCompleted,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scenes := make([]SceneRecord, len(tc.statuses))
			for i, st := range tc.statuses {
				scenes[i] = SceneRecord{SceneID: "s", Status: st}
			}
			if got := Aggregate(scenes); got != tc.want {
				t.Fatalf("Aggregate(%v)=%s, want %s", tc.statuses, got, tc.want)
			}
		})
	}
}

func TestSceneStatusTerminal(t *testing.T) {
	if ScenePending.Terminal() || SceneGenerating.Terminal() {
		t.Fatalf("pending/generating must not be terminal")
	}
	if !SceneCompleted.Terminal() || !SceneFailed.Terminal() {
		t.Fatalf("completed/failed must be terminal")
	}
}
