package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/peres84/AdFlowEcomm/internal/clients/runware"
	"github.com/peres84/AdFlowEcomm/internal/domain"
	pkgerrors "github.com/peres84/AdFlowEcomm/internal/pkg/errors"
	"github.com/peres84/AdFlowEcomm/internal/pkg/logger"
	"github.com/peres84/AdFlowEcomm/internal/prompts"
)

// ImageService turns the brief plus product analysis into one candidate
// still per scenario, and regenerates singles on request.
type ImageService interface {
	GenerateForSession(ctx context.Context, sessionID uuid.UUID) ([]domain.GeneratedImage, error)
	Regenerate(ctx context.Context, sessionID uuid.UUID, scenario string, modifications string) (domain.GeneratedImage, error)
}

type imageService struct {
	log      *logger.Logger
	sessions SessionService
	runware  runware.Client
}

func NewImageService(log *logger.Logger, sessions SessionService, rw runware.Client) ImageService {
	return &imageService{
		log:      log.With("service", "ImageService"),
		sessions: sessions,
		runware:  rw,
	}
}

// GenerateForSession fans out one image request per scenario in parallel and
// stores the results on the session. A single failed scenario fails the call.
func (s *imageService) GenerateForSession(ctx context.Context, sessionID uuid.UUID) ([]domain.GeneratedImage, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Form == nil {
		return nil, fmt.Errorf("%w: form not submitted yet", pkgerrors.ErrInvalidInput)
	}
	if sess.ProductAnalysis == nil {
		return nil, fmt.Errorf("%w: product image not analyzed yet", pkgerrors.ErrInvalidInput)
	}

	hasLogo := sess.HasLogo()
	images := make([]domain.GeneratedImage, len(domain.Scenarios))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i, scenario := range domain.Scenarios {
		i, scenario := i, scenario
		g.Go(func() error {
			img, err := s.generateOne(gctx, scenario, sess.Form, sess.ProductAnalysis, hasLogo, "")
			if err != nil {
				return fmt.Errorf("scenario %s: %w", scenario, err)
			}
			mu.Lock()
			images[i] = img
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	updated, err := s.sessions.Update(sessionID, func(sess *domain.Session) error {
		sess.GeneratedImages = images
		sess.SelectedImages = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Images generated", "session_id", sessionID, "count", len(images))
	return updated.GeneratedImages, nil
}

// Regenerate produces a replacement still for one scenario, appending the
// user's modifications to the original prompt, and swaps it into the session.
func (s *imageService) Regenerate(ctx context.Context, sessionID uuid.UUID, scenario string, modifications string) (domain.GeneratedImage, error) {
	var out domain.GeneratedImage

	if !domain.IsValidScenario(scenario) {
		return out, fmt.Errorf("%w: unknown scenario %q", pkgerrors.ErrInvalidInput, scenario)
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return out, err
	}
	if sess.Form == nil || sess.ProductAnalysis == nil {
		return out, fmt.Errorf("%w: session has no form or product analysis", pkgerrors.ErrInvalidInput)
	}

	// Reuse the original prompt when the scenario was generated before.
	basePrompt := ""
	for _, img := range sess.GeneratedImages {
		if img.Scenario == scenario {
			basePrompt = img.Prompt
			break
		}
	}
	if basePrompt == "" {
		basePrompt = prompts.ImagePrompt(scenario, sess.Form, sess.ProductAnalysis, sess.HasLogo())
	}
	prompt := prompts.RegeneratedImagePrompt(basePrompt, modifications)

	img, err := s.generateWithPrompt(ctx, scenario, prompt, sess.HasLogo())
	if err != nil {
		return out, fmt.Errorf("scenario %s: %w", scenario, err)
	}
	img.UseCase = fmt.Sprintf("%s scene (regenerated)", titleCase(scenario))

	_, err = s.sessions.Update(sessionID, func(sess *domain.Session) error {
		replaced := false
		for i := range sess.GeneratedImages {
			if sess.GeneratedImages[i].Scenario == scenario {
				sess.GeneratedImages[i] = img
				replaced = true
				break
			}
		}
		if !replaced {
			sess.GeneratedImages = append(sess.GeneratedImages, img)
			sort.Slice(sess.GeneratedImages, func(a, b int) bool {
				return scenarioIndex(sess.GeneratedImages[a].Scenario) < scenarioIndex(sess.GeneratedImages[b].Scenario)
			})
		}
		if sess.SelectedImages != nil {
			delete(sess.SelectedImages, scenario)
		}
		return nil
	})
	if err != nil {
		return out, err
	}

	s.log.Info("Image regenerated", "session_id", sessionID, "scenario", scenario)
	return img, nil
}

func (s *imageService) generateOne(ctx context.Context, scenario string, form *domain.FormData, analysis *domain.ProductAnalysis, hasLogo bool, promptOverride string) (domain.GeneratedImage, error) {
	prompt := promptOverride
	if prompt == "" {
		prompt = prompts.ImagePrompt(scenario, form, analysis, hasLogo)
	}
	return s.generateWithPrompt(ctx, scenario, prompt, hasLogo)
}

func (s *imageService) generateWithPrompt(ctx context.Context, scenario, prompt string, hasLogo bool) (domain.GeneratedImage, error) {
	var out domain.GeneratedImage

	results, err := s.runware.GenerateImage(ctx, runware.ImageRequest{
		Prompt:        prompt,
		Width:         1024,
		Height:        1024,
		NumberResults: 1,
	})
	if err != nil {
		return out, err
	}

	out = domain.GeneratedImage{
		ID:        uuid.New(),
		Scenario:  scenario,
		UseCase:   fmt.Sprintf("%s scene", titleCase(scenario)),
		Prompt:    prompt,
		ImageURL:  results[0].URL,
		HasLogo:   hasLogo,
		CreatedAt: time.Now(),
	}
	return out, nil
}

func scenarioIndex(scenario string) int {
	for i, s := range domain.Scenarios {
		if s == scenario {
			return i
		}
	}
	return len(domain.Scenarios)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	if s == domain.ScenarioCTA {
		return "CTA"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
