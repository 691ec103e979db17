package domain

import (
	"time"

	"github.com/google/uuid"
)

// Scenario names the four narrative segments of the final ad, in assembly order.
const (
	ScenarioHook     = "hook"
	ScenarioProblem  = "problem"
	ScenarioSolution = "solution"
	ScenarioCTA      = "cta"
)

// Scenarios is the fixed assembly order of the final video.
var Scenarios = []string{ScenarioHook, ScenarioProblem, ScenarioSolution, ScenarioCTA}

// SceneDurations holds the per-scenario clip length in seconds (30s total).
var SceneDurations = map[string]int{
	ScenarioHook:     7,
	ScenarioProblem:  7,
	ScenarioSolution: 10,
	ScenarioCTA:      6,
}

func IsValidScenario(s string) bool {
	for _, v := range Scenarios {
		if v == s {
			return true
		}
	}
	return false
}

// FormData is the onboarding brief submitted by the user.
type FormData struct {
	ProductName      string   `json:"product_name"`
	Category         string   `json:"category"`
	TargetAudience   string   `json:"target_audience"`
	MainBenefit      string   `json:"main_benefit"`
	BrandColors      []string `json:"brand_colors"`
	BrandTone        string   `json:"brand_tone"`
	TargetPlatform   string   `json:"target_platform"`
	WebsiteURL       string   `json:"website_url,omitempty"`
	SceneDescription string   `json:"scene_description"`
}

// ProductAnalysis is the vision model's read of the uploaded product photo.
type ProductAnalysis struct {
	ProductType string   `json:"product_type"`
	Description string   `json:"description"`
	Colors      []string `json:"colors"`
	Materials   []string `json:"materials"`
	Style       string   `json:"style"`
}

// GeneratedImage is one still produced for a scenario.
type GeneratedImage struct {
	ID        uuid.UUID `json:"id"`
	Scenario  string    `json:"scenario"`
	UseCase   string    `json:"use_case"`
	Prompt    string    `json:"prompt"`
	ImageURL  string    `json:"image_url"`
	HasLogo   bool      `json:"has_logo"`
	CreatedAt time.Time `json:"created_at"`
}

// SceneDescription is the per-scene video/audio brief the LLM drafts.
type SceneDescription struct {
	Scenario          string `json:"scenario"`
	Duration          int    `json:"duration"`
	VisualDescription string `json:"visual_description"`
	CameraWork        string `json:"camera_work"`
	Lighting          string `json:"lighting"`
	AudioDesign       string `json:"audio_design"`
	BackgroundMusic   string `json:"background_music"`
	SoundEffects      string `json:"sound_effects"`
	DialogNarration   string `json:"dialog_narration"`
	SelectedImageID   string `json:"selected_image_id"`
}

// SceneVideo is one completed scene clip mirrored back onto the session.
type SceneVideo struct {
	Scenario  string    `json:"scenario"`
	VideoURL  string    `json:"video_url"`
	Duration  int       `json:"duration"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the whole user flow state, held in memory until it expires.
type Session struct {
	ID        uuid.UUID `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	Form *FormData `json:"form,omitempty"`

	ProductImagePath string `json:"product_image_path,omitempty"`
	ProductImageURL  string `json:"product_image_url,omitempty"`
	LogoImagePath    string `json:"logo_image_path,omitempty"`
	LogoImageURL     string `json:"logo_image_url,omitempty"`

	ProductAnalysis *ProductAnalysis `json:"product_analysis,omitempty"`

	GeneratedImages []GeneratedImage  `json:"generated_images,omitempty"`
	SelectedImages  map[string]string `json:"selected_images,omitempty"`

	SceneDescriptions []SceneDescription `json:"scene_descriptions,omitempty"`

	VideoJobID  uuid.UUID    `json:"video_job_id,omitempty"`
	SceneVideos []SceneVideo `json:"scene_videos,omitempty"`

	FinalVideoURL string `json:"final_video_url,omitempty"`
}

func (s *Session) HasLogo() bool {
	return s != nil && s.LogoImagePath != ""
}

// Clone returns a deep copy sharing no mutable state with the receiver.
// The session store hands out clones only, so callers may mutate slice
// elements in place without racing other holders of the same session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Form != nil {
		form := *s.Form
		form.BrandColors = append([]string(nil), s.Form.BrandColors...)
		out.Form = &form
	}
	if s.ProductAnalysis != nil {
		pa := *s.ProductAnalysis
		pa.Colors = append([]string(nil), s.ProductAnalysis.Colors...)
		pa.Materials = append([]string(nil), s.ProductAnalysis.Materials...)
		out.ProductAnalysis = &pa
	}
	out.GeneratedImages = append([]GeneratedImage(nil), s.GeneratedImages...)
	out.SceneDescriptions = append([]SceneDescription(nil), s.SceneDescriptions...)
	out.SceneVideos = append([]SceneVideo(nil), s.SceneVideos...)
	if s.SelectedImages != nil {
		out.SelectedImages = make(map[string]string, len(s.SelectedImages))
		for k, v := range s.SelectedImages {
			out.SelectedImages[k] = v
		}
	}
	return &out
}

// SceneDescriptionFor returns the stored description for a scenario, if any.
func (s *Session) SceneDescriptionFor(scenario string) *SceneDescription {
	if s == nil {
		return nil
	}
	for i := range s.SceneDescriptions {
		if s.SceneDescriptions[i].Scenario == scenario {
			return &s.SceneDescriptions[i]
		}
	}
	return nil
}
