package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/peres84/AdFlowEcomm/internal/domain"
	pkgerrors "github.com/peres84/AdFlowEcomm/internal/pkg/errors"
	"github.com/peres84/AdFlowEcomm/internal/pkg/logger"
	"github.com/peres84/AdFlowEcomm/internal/prompts"
	"github.com/peres84/AdFlowEcomm/internal/videogen"
)

// VideoOrchestrator is the slice of the videogen orchestrator this service
// needs; satisfied by *videogen.Orchestrator.
type VideoOrchestrator interface {
	StartJob(scenes []videogen.SceneRequest) (uuid.UUID, error)
	GetStatus(jobID uuid.UUID) (videogen.Status, error)
	GetJob(jobID uuid.UUID) (videogen.Job, error)
	RegenerateScene(jobID uuid.UUID, sceneID string, newPrompt string) error
	Finalize(ctx context.Context, jobID uuid.UUID) (string, error)
	DisposeJob(jobID uuid.UUID)
}

// SceneStatusView is the per-scene slice of JobStatusView.
type SceneStatusView struct {
	Scenario string                `json:"scenario"`
	Status   videogen.SceneStatus  `json:"status"`
	Attempt  int                   `json:"attempt"`
	VideoURL string                `json:"video_url,omitempty"`
	Error    *videogen.ErrorDetail `json:"error,omitempty"`
}

// JobStatusView is the API shape of one generation job's progress.
type JobStatusView struct {
	JobID         uuid.UUID          `json:"job_id"`
	OverallStatus videogen.JobStatus `json:"overall_status"`
	Scenes        []SceneStatusView  `json:"scenes"`
	FinalVideoURL string             `json:"final_video_url,omitempty"`
}

// VideoService bridges sessions and the scene generation jobs: it turns the
// stored scene briefs into provider requests, mirrors job progress back onto
// the session, and assembles the final ad.
type VideoService interface {
	StartScenes(ctx context.Context, sessionID uuid.UUID) (uuid.UUID, error)
	Status(sessionID uuid.UUID, jobID uuid.UUID) (JobStatusView, error)
	RegenerateScene(ctx context.Context, sessionID uuid.UUID, scenario string) error
	Merge(ctx context.Context, sessionID uuid.UUID) (string, error)
	DisposeSessionJob(sess *domain.Session)
}

type videoService struct {
	log       *logger.Logger
	sessions  SessionService
	orch      VideoOrchestrator
	outputURL string
}

// NewVideoService maps artifact paths to public URLs under publicPath
// (e.g. "/outputs").
func NewVideoService(log *logger.Logger, sessions SessionService, orch VideoOrchestrator, publicPath string) VideoService {
	if publicPath == "" {
		publicPath = "/outputs"
	}
	return &videoService{
		log:       log.With("service", "VideoService"),
		sessions:  sessions,
		orch:      orch,
		outputURL: strings.TrimRight(publicPath, "/"),
	}
}

// StartScenes fans out one generation job over all four scene briefs. A
// session can only drive one job at a time; starting again disposes the
// previous job.
func (v *videoService) StartScenes(ctx context.Context, sessionID uuid.UUID) (uuid.UUID, error) {
	sess, err := v.sessions.Get(sessionID)
	if err != nil {
		return uuid.Nil, err
	}
	if len(sess.SceneDescriptions) == 0 {
		return uuid.Nil, fmt.Errorf("%w: no scene descriptions generated yet", pkgerrors.ErrInvalidInput)
	}
	for _, scenario := range domain.Scenarios {
		if sess.SceneDescriptionFor(scenario) == nil {
			return uuid.Nil, fmt.Errorf("%w: missing scene description for %q", pkgerrors.ErrInvalidInput, scenario)
		}
	}

	if sess.VideoJobID != uuid.Nil {
		v.orch.DisposeJob(sess.VideoJobID)
	}

	requests := make([]videogen.SceneRequest, 0, len(domain.Scenarios))
	for _, scenario := range domain.Scenarios {
		desc := sess.SceneDescriptionFor(scenario)
		requests = append(requests, videogen.SceneRequest{
			SceneID:  scenario,
			Prompt:   prompts.VideoPrompt(desc),
			Duration: desc.Duration,
			Width:    1920,
			Height:   1080,
		})
	}

	jobID, err := v.orch.StartJob(requests)
	if err != nil {
		return uuid.Nil, err
	}

	if _, err := v.sessions.Update(sessionID, func(sess *domain.Session) error {
		sess.VideoJobID = jobID
		sess.SceneVideos = nil
		sess.FinalVideoURL = ""
		return nil
	}); err != nil {
		v.orch.DisposeJob(jobID)
		return uuid.Nil, err
	}

	v.log.Info("Scene generation started", "session_id", sessionID, "job_id", jobID, "scenes", len(requests))
	return jobID, nil
}

// Status reports job progress and mirrors finished clips onto the session.
// jobID may be uuid.Nil to mean "the session's current job".
func (v *videoService) Status(sessionID uuid.UUID, jobID uuid.UUID) (JobStatusView, error) {
	var view JobStatusView

	sess, err := v.sessions.Get(sessionID)
	if err != nil {
		return view, err
	}
	if jobID == uuid.Nil {
		jobID = sess.VideoJobID
	}
	if jobID == uuid.Nil {
		return view, fmt.Errorf("%w: session has no video job", pkgerrors.ErrNotFound)
	}
	if sess.VideoJobID != uuid.Nil && jobID != sess.VideoJobID {
		return view, fmt.Errorf("%w: job %s does not belong to session", pkgerrors.ErrNotFound, jobID)
	}

	st, err := v.orch.GetStatus(jobID)
	if err != nil {
		return view, err
	}
	job, err := v.orch.GetJob(jobID)
	if err != nil {
		return view, err
	}

	view = JobStatusView{
		JobID:         jobID,
		OverallStatus: st.Aggregate,
		Scenes:        make([]SceneStatusView, 0, len(st.Scenes)),
	}
	var videos []domain.SceneVideo
	for _, sc := range st.Scenes {
		item := SceneStatusView{
			Scenario: sc.SceneID,
			Status:   sc.Status,
			Attempt:  sc.Attempt,
			Error:    sc.Error,
		}
		if sc.Status == videogen.SceneCompleted && sc.ArtifactPath != "" {
			item.VideoURL = v.artifactURL(sc.ArtifactPath)
			videos = append(videos, domain.SceneVideo{
				Scenario:  sc.SceneID,
				VideoURL:  item.VideoURL,
				Duration:  domain.SceneDurations[sc.SceneID],
				Status:    string(sc.Status),
				CreatedAt: sc.LastUpdated,
			})
		}
		view.Scenes = append(view.Scenes, item)
	}
	if job.FinalArtifactPath != "" {
		view.FinalVideoURL = v.artifactURL(job.FinalArtifactPath)
	}

	// Mirror the completed clips onto the session for later reads.
	if _, err := v.sessions.Update(sessionID, func(sess *domain.Session) error {
		sess.SceneVideos = videos
		if view.FinalVideoURL != "" {
			sess.FinalVideoURL = view.FinalVideoURL
		}
		return nil
	}); err != nil {
		return view, err
	}

	return view, nil
}

// RegenerateScene retries one scenario's clip using the session's current
// brief, so a revised description is picked up by the retry.
func (v *videoService) RegenerateScene(ctx context.Context, sessionID uuid.UUID, scenario string) error {
	if !domain.IsValidScenario(scenario) {
		return fmt.Errorf("%w: unknown scenario %q", pkgerrors.ErrInvalidInput, scenario)
	}

	sess, err := v.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	if sess.VideoJobID == uuid.Nil {
		return fmt.Errorf("%w: session has no video job", pkgerrors.ErrNotFound)
	}
	desc := sess.SceneDescriptionFor(scenario)
	if desc == nil {
		return fmt.Errorf("%w: no scene description for %q", pkgerrors.ErrNotFound, scenario)
	}

	if err := v.orch.RegenerateScene(sess.VideoJobID, scenario, prompts.VideoPrompt(desc)); err != nil {
		return err
	}
	v.log.Info("Scene regeneration started", "session_id", sessionID, "job_id", sess.VideoJobID, "scenario", scenario)
	return nil
}

// Merge concatenates the four finished clips in scenario order and stores the
// final video URL on the session.
func (v *videoService) Merge(ctx context.Context, sessionID uuid.UUID) (string, error) {
	sess, err := v.sessions.Get(sessionID)
	if err != nil {
		return "", err
	}
	if sess.VideoJobID == uuid.Nil {
		return "", fmt.Errorf("%w: session has no video job", pkgerrors.ErrNotFound)
	}

	path, err := v.orch.Finalize(ctx, sess.VideoJobID)
	if err != nil {
		return "", err
	}
	url := v.artifactURL(path)

	if _, err := v.sessions.Update(sessionID, func(sess *domain.Session) error {
		sess.FinalVideoURL = url
		now := time.Now()
		for i := range sess.SceneVideos {
			if sess.SceneVideos[i].CreatedAt.IsZero() {
				sess.SceneVideos[i].CreatedAt = now
			}
		}
		return nil
	}); err != nil {
		return "", err
	}

	v.log.Info("Final video assembled", "session_id", sessionID, "job_id", sess.VideoJobID, "url", url)
	return url, nil
}

// DisposeSessionJob cancels a session's job. Wired as the session expiry
// hook so abandoned sessions do not leak workers.
func (v *videoService) DisposeSessionJob(sess *domain.Session) {
	if sess == nil || sess.VideoJobID == uuid.Nil {
		return
	}
	v.orch.DisposeJob(sess.VideoJobID)
	v.log.Info("Session job disposed", "session_id", sess.ID, "job_id", sess.VideoJobID)
}

func (v *videoService) artifactURL(path string) string {
	return v.outputURL + "/" + filepath.Base(path)
}
