package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/peres84/AdFlowEcomm/internal/clients/openai"
	"github.com/peres84/AdFlowEcomm/internal/domain"
	pkgerrors "github.com/peres84/AdFlowEcomm/internal/pkg/errors"
	"github.com/peres84/AdFlowEcomm/internal/pkg/logger"
	"github.com/peres84/AdFlowEcomm/internal/prompts"
)

// SceneService owns the LLM half of the flow: reading the product photo,
// reading the chosen stills, and drafting or revising the per-scene briefs.
type SceneService interface {
	AnalyzeProduct(ctx context.Context, sessionID uuid.UUID) (*domain.ProductAnalysis, error)
	GenerateDescriptions(ctx context.Context, sessionID uuid.UUID, selectedImageIDs map[string]string) ([]domain.SceneDescription, error)
	RegenerateDescription(ctx context.Context, sessionID uuid.UUID, scenario string, feedback string) (*domain.SceneDescription, error)
}

type sceneService struct {
	log      *logger.Logger
	sessions SessionService
	ai       openai.Client
}

func NewSceneService(log *logger.Logger, sessions SessionService, ai openai.Client) SceneService {
	return &sceneService{
		log:      log.With("service", "SceneService"),
		sessions: sessions,
		ai:       ai,
	}
}

// AnalyzeProduct runs the vision read of the uploaded product photo and
// stores the structured result on the session.
func (s *sceneService) AnalyzeProduct(ctx context.Context, sessionID uuid.UUID) (*domain.ProductAnalysis, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.ProductImagePath == "" {
		return nil, fmt.Errorf("%w: no product image uploaded", pkgerrors.ErrInvalidInput)
	}

	dataURL, err := openai.DataURL(sess.ProductImagePath)
	if err != nil {
		return nil, err
	}

	obj, err := s.ai.GenerateJSONWithImages(ctx,
		"You are a product analyst describing items for advertising production.",
		prompts.ProductAnalysis(),
		[]openai.ImageInput{{ImageURL: dataURL}},
		"product_analysis",
		prompts.ProductAnalysisSchema(),
	)
	if err != nil {
		return nil, fmt.Errorf("analyze product image: %w", err)
	}

	analysis := &domain.ProductAnalysis{
		ProductType: stringField(obj, "product_type"),
		Description: stringField(obj, "description"),
		Colors:      stringSlice(obj, "colors"),
		Materials:   stringSlice(obj, "materials"),
		Style:       stringField(obj, "style"),
	}

	if _, err := s.sessions.Update(sessionID, func(sess *domain.Session) error {
		sess.ProductAnalysis = analysis
		return nil
	}); err != nil {
		return nil, err
	}

	s.log.Info("Product analyzed", "session_id", sessionID, "product_type", analysis.ProductType)
	return analysis, nil
}

// GenerateDescriptions analyzes the four chosen stills in parallel, then asks
// for all four scene briefs in one structured call.
func (s *sceneService) GenerateDescriptions(ctx context.Context, sessionID uuid.UUID, selectedImageIDs map[string]string) ([]domain.SceneDescription, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Form == nil || sess.ProductAnalysis == nil {
		return nil, fmt.Errorf("%w: form and product analysis required first", pkgerrors.ErrInvalidInput)
	}
	if len(sess.GeneratedImages) == 0 {
		return nil, fmt.Errorf("%w: no generated images to select from", pkgerrors.ErrInvalidInput)
	}

	// Resolve each scenario's chosen still; every scenario needs one.
	chosen := make(map[string]domain.GeneratedImage, len(domain.Scenarios))
	for _, scenario := range domain.Scenarios {
		id, ok := selectedImageIDs[scenario]
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("%w: no image selected for scenario %q", pkgerrors.ErrInvalidInput, scenario)
		}
		img, ok := findImage(sess.GeneratedImages, id)
		if !ok {
			return nil, fmt.Errorf("%w: image %s for scenario %q", pkgerrors.ErrNotFound, id, scenario)
		}
		if img.Scenario != scenario {
			return nil, fmt.Errorf("%w: image %s belongs to scenario %q, not %q", pkgerrors.ErrInvalidInput, id, img.Scenario, scenario)
		}
		chosen[scenario] = img
	}

	// Vision pass over the four stills, in parallel.
	analyses := make(map[string]string, len(chosen))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for scenario, img := range chosen {
		scenario, img := scenario, img
		g.Go(func() error {
			text, err := s.ai.GenerateTextWithImages(gctx,
				"You are a visual analyst preparing references for video production.",
				prompts.SelectedImageAnalysis(scenario),
				[]openai.ImageInput{{ImageURL: img.ImageURL}},
			)
			if err != nil {
				return fmt.Errorf("analyze %s image: %w", scenario, err)
			}
			mu.Lock()
			analyses[scenario] = text
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	obj, err := s.ai.GenerateJSON(ctx,
		prompts.SceneDescriptionSystem(),
		prompts.SceneDescriptions(sess.Form, sess.ProductAnalysis, analyses, sess.HasLogo()),
		"scene_descriptions",
		prompts.SceneDescriptionsSchema(),
	)
	if err != nil {
		return nil, fmt.Errorf("generate scene descriptions: %w", err)
	}

	descriptions, err := parseSceneDescriptions(obj, chosen)
	if err != nil {
		return nil, err
	}

	updated, err := s.sessions.Update(sessionID, func(sess *domain.Session) error {
		sess.SceneDescriptions = descriptions
		sess.SelectedImages = selectedImageIDs
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Scene descriptions generated", "session_id", sessionID, "count", len(descriptions))
	return updated.SceneDescriptions, nil
}

// RegenerateDescription revises a single scene brief with user feedback.
func (s *sceneService) RegenerateDescription(ctx context.Context, sessionID uuid.UUID, scenario string, feedback string) (*domain.SceneDescription, error) {
	if !domain.IsValidScenario(scenario) {
		return nil, fmt.Errorf("%w: unknown scenario %q", pkgerrors.ErrInvalidInput, scenario)
	}
	if strings.TrimSpace(feedback) == "" {
		return nil, fmt.Errorf("%w: feedback required", pkgerrors.ErrInvalidInput)
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	original := sess.SceneDescriptionFor(scenario)
	if original == nil {
		return nil, fmt.Errorf("%w: no scene description for scenario %q", pkgerrors.ErrNotFound, scenario)
	}
	if sess.Form == nil {
		return nil, fmt.Errorf("%w: form not submitted", pkgerrors.ErrInvalidInput)
	}

	obj, err := s.ai.GenerateJSON(ctx,
		prompts.SceneDescriptionSystem(),
		prompts.SceneRegeneration(original, feedback, sess.Form),
		"scene_revision",
		prompts.SceneRegenerationSchema(),
	)
	if err != nil {
		return nil, fmt.Errorf("regenerate %s description: %w", scenario, err)
	}

	revised := domain.SceneDescription{
		Scenario:          scenario,
		Duration:          domain.SceneDurations[scenario],
		VisualDescription: stringField(obj, "visual_description"),
		CameraWork:        stringField(obj, "camera_work"),
		Lighting:          stringField(obj, "lighting"),
		AudioDesign:       stringField(obj, "audio_design"),
		BackgroundMusic:   stringField(obj, "background_music"),
		SoundEffects:      stringField(obj, "sound_effects"),
		DialogNarration:   stringField(obj, "dialog_narration"),
		SelectedImageID:   original.SelectedImageID,
	}

	if _, err := s.sessions.Update(sessionID, func(sess *domain.Session) error {
		for i := range sess.SceneDescriptions {
			if sess.SceneDescriptions[i].Scenario == scenario {
				sess.SceneDescriptions[i] = revised
				return nil
			}
		}
		sess.SceneDescriptions = append(sess.SceneDescriptions, revised)
		return nil
	}); err != nil {
		return nil, err
	}

	s.log.Info("Scene description regenerated", "session_id", sessionID, "scenario", scenario)
	return &revised, nil
}

func parseSceneDescriptions(obj map[string]any, chosen map[string]domain.GeneratedImage) ([]domain.SceneDescription, error) {
	rawScenes, ok := obj["scenes"].([]any)
	if !ok || len(rawScenes) == 0 {
		return nil, fmt.Errorf("model returned no scenes")
	}

	byScenario := make(map[string]domain.SceneDescription, len(rawScenes))
	for _, raw := range rawScenes {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		scenario := stringField(m, "scenario")
		if !domain.IsValidScenario(scenario) {
			continue
		}
		desc := domain.SceneDescription{
			Scenario:          scenario,
			Duration:          domain.SceneDurations[scenario],
			VisualDescription: stringField(m, "visual_description"),
			CameraWork:        stringField(m, "camera_work"),
			Lighting:          stringField(m, "lighting"),
			AudioDesign:       stringField(m, "audio_design"),
			BackgroundMusic:   stringField(m, "background_music"),
			SoundEffects:      stringField(m, "sound_effects"),
			DialogNarration:   stringField(m, "dialog_narration"),
		}
		if img, ok := chosen[scenario]; ok {
			desc.SelectedImageID = img.ID.String()
		}
		byScenario[scenario] = desc
	}

	out := make([]domain.SceneDescription, 0, len(domain.Scenarios))
	for _, scenario := range domain.Scenarios {
		desc, ok := byScenario[scenario]
		if !ok {
			return nil, fmt.Errorf("model response missing scenario %q", scenario)
		}
		out = append(out, desc)
	}
	return out, nil
}

func findImage(images []domain.GeneratedImage, id string) (domain.GeneratedImage, bool) {
	for _, img := range images {
		if img.ID.String() == id {
			return img, true
		}
	}
	return domain.GeneratedImage{}, false
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func stringSlice(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
