package videogen

// SceneStatus is the lifecycle state of one scene's generation attempt.
type SceneStatus string

const (
	ScenePending    SceneStatus = "pending"
	SceneGenerating SceneStatus = "generating"
	SceneCompleted  SceneStatus = "completed"
	SceneFailed     SceneStatus = "failed"
)

// Terminal reports whether no worker is (or should be) writing the scene.
func (s SceneStatus) Terminal() bool {
	return s == SceneCompleted || s == SceneFailed
}

// JobStatus is the aggregate of a job's scenes, derived at read time.
type JobStatus string

const (
	JobGenerating JobStatus = "generating"
	JobCompleted  JobStatus = "completed"
	JobPartial    JobStatus = "partial"
	JobFailed     JobStatus = "failed"
)

// FailureCause tags what kind of failure produced an ErrorDetail.
type FailureCause string

const (
	CauseProviderError FailureCause = "provider_error"
	CauseNetworkError  FailureCause = "network_error"
	CauseTimeout       FailureCause = "timeout"
	// CauseInternal marks faults on our side of the wire, such as a failed
	// write to the output directory.
	CauseInternal FailureCause = "internal_error"
)

// ErrorDetail is populated on a failed scene. All causes are presumed
// transient or operator-actionable, so RetryAdvisable is always true today;
// the field exists so a future cause can opt out.
type ErrorDetail struct {
	Message        string       `json:"message"`
	Cause          FailureCause `json:"cause"`
	RetryAdvisable bool         `json:"retry_advisable"`
}

// Aggregate derives the job-level status from a scene snapshot.
// Any in-flight scene wins; otherwise completed, failed, or a mix.
func Aggregate(scenes []SceneRecord) JobStatus {
	completed := 0
	failed := 0
	for _, sc := range scenes {
		switch sc.Status {
		case SceneCompleted:
			completed++
		case SceneFailed:
			failed++
		default:
			return JobGenerating
		}
	}
	switch {
	case failed == 0:
		return JobCompleted
	case completed == 0:
		return JobFailed
	default:
		return JobPartial
	}
}
