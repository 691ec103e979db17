package prompts

import (
	"fmt"
	"strings"

	"github.com/peres84/AdFlowEcomm/internal/domain"
)

// SceneDescriptionSystem frames the model as the ad director for every
// scene-description call.
func SceneDescriptionSystem() string {
	return "You are a professional video director and copywriter specializing in high-converting product advertisements."
}

// SceneDescriptions asks for all four scene briefs in one structured call.
// selectedAnalyses maps scenario -> vision analysis of the chosen still.
func SceneDescriptions(form *domain.FormData, analysis *domain.ProductAnalysis, selectedAnalyses map[string]string, hasLogo bool) string {
	brandColors := joinOr(form.BrandColors, "brand colors")
	website := withDefault(form.WebsiteURL, "website")
	sceneDesc := withDefault(form.SceneDescription, "professional setting")
	brandTone := withDefault(form.BrandTone, "Professional")

	analysisFor := func(scenario string) string {
		if a := strings.TrimSpace(selectedAnalyses[scenario]); a != "" {
			return a
		}
		return "No analysis available"
	}

	logoStatus := "NO"
	logoNote := "No logo integration needed"
	logoEnding := ""
	if hasLogo {
		logoStatus = "YES"
		logoNote = "Logo should be prominently featured in appropriate scenes"
		logoEnding = "logo, "
	}

	return fmt.Sprintf(`Your task: Create 4 detailed scene descriptions for a 30-second product video.

These descriptions will be used to generate individual video scenes.

**PRODUCT INFORMATION:**
- Product Name: %s
- Product Type: %s
- Product Description: %s
- Main Benefit: %s
- Target Audience: %s
- Brand Tone: %s
- Brand Colors: %s
- Website: %s
- Target Platform: %s

**VISUAL STYLE & SCENE ATMOSPHERE:**
- Scene Description from User: %s
- All video scenes should follow this visual style and atmosphere
- Environment, mood, aesthetic consistency throughout video

**AVAILABLE VISUAL ASSETS:**
- Hook Image Analysis: %s
- Problem Image Analysis: %s
- Solution Image Analysis: %s
- CTA Image Analysis: %s

**LOGO:**
- Logo Provided: %s
- %s

**TASK:** Generate 4 complete scene descriptions, one per scenario.

Each scene must include:
1. Vivid visual sequence description
2. Camera work and transitions
3. Lighting and mood
4. Audio direction: Background music style
5. Sound effects descriptions
6. Dialog/Narration (REQUIRED): Clear, compelling spoken narrative that matches the scene
7. Music + Dialog balance specifications

**CRITICAL: ENGAGEMENT AUDIO**
- Every scene must have both background music AND dialog/narration
- Dialog/Narration should be natural, conversational, not robotic
- Music should match emotional tone of scene

**TIMING:**
- Scene 1 (hook): %d seconds - capture attention, create curiosity, stop the scroll
- Scene 2 (problem): %d seconds - identify pain point, create emotional connection
- Scene 3 (solution): %d seconds - demonstrate benefits, show transformation, build excitement
- Scene 4 (cta): %d seconds - drive immediate action, include the website %s, end on a memorable frame with the %sbrand
- Total: 30 seconds

**OVERALL GUIDELINES:**
- Emotional Arc: Curiosity -> Recognition -> Excitement -> Confidence
- Scene Consistency: Music and audio should match the scene description aesthetic (%s)
- Dialog Quality: Natural, conversational, not corporate or robotic
- Music Selection: Professional, matches brand tone (%s)
- Volume Clarity: Dialog always clear and audible over music and effects
- Platform Optimization: Optimized for %s viewing experience`,
		withDefault(form.ProductName, "product"),
		withDefault(analysis.ProductType, "product"),
		withDefault(analysis.Description, "product"),
		withDefault(form.MainBenefit, "solving problems"),
		withDefault(form.TargetAudience, "users"),
		brandTone,
		brandColors,
		website,
		withDefault(form.TargetPlatform, "social media"),
		sceneDesc,
		analysisFor(domain.ScenarioHook),
		analysisFor(domain.ScenarioProblem),
		analysisFor(domain.ScenarioSolution),
		analysisFor(domain.ScenarioCTA),
		logoStatus,
		logoNote,
		domain.SceneDurations[domain.ScenarioHook],
		domain.SceneDurations[domain.ScenarioProblem],
		domain.SceneDurations[domain.ScenarioSolution],
		domain.SceneDurations[domain.ScenarioCTA],
		website,
		logoEnding,
		sceneDesc,
		brandTone,
		withDefault(form.TargetPlatform, "social media"))
}

// SceneDescriptionsSchema is the strict json_schema for the four scene briefs.
func SceneDescriptionsSchema() map[string]any {
	sceneProps := map[string]any{
		"scenario":           map[string]any{"type": "string", "enum": domain.Scenarios},
		"duration":           map[string]any{"type": "integer"},
		"visual_description": map[string]any{"type": "string"},
		"camera_work":        map[string]any{"type": "string"},
		"lighting":           map[string]any{"type": "string"},
		"audio_design":       map[string]any{"type": "string"},
		"background_music":   map[string]any{"type": "string"},
		"sound_effects":      map[string]any{"type": "string"},
		"dialog_narration":   map[string]any{"type": "string"},
	}
	required := []string{
		"scenario", "duration", "visual_description", "camera_work", "lighting",
		"audio_design", "background_music", "sound_effects", "dialog_narration",
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"scenes": map[string]any{
				"type":     "array",
				"minItems": 4,
				"maxItems": 4,
				"items": map[string]any{
					"type":                 "object",
					"properties":           sceneProps,
					"required":             required,
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"scenes"},
		"additionalProperties": false,
	}
}

// SceneRegeneration asks the model to revise one scene brief with feedback.
func SceneRegeneration(original *domain.SceneDescription, feedback string, form *domain.FormData) string {
	duration := domain.SceneDurations[original.Scenario]
	if duration == 0 {
		duration = 7
	}

	return fmt.Sprintf(`You are a professional video director revising a scene description based on user feedback.

**ORIGINAL SCENE DESCRIPTION:**
Visual: %s
Camera: %s
Lighting: %s
Audio: %s
Background Music: %s
Sound Effects: %s
Dialog/Narration: %s

**USER FEEDBACK:**
%s

**SCENE CONTEXT:**
- Scenario: %s
- Duration: %d seconds
- Product: %s
- Brand Tone: %s
- Visual Style: %s

**TASK:**
Regenerate the scene description incorporating the user's feedback while maintaining:
1. Professional quality and engagement
2. Consistency with brand tone and visual style
3. Proper duration (%d seconds)
4. All required elements (visual description, camera work, lighting, audio design with music and dialog)`,
		original.VisualDescription,
		original.CameraWork,
		original.Lighting,
		original.AudioDesign,
		original.BackgroundMusic,
		original.SoundEffects,
		original.DialogNarration,
		strings.TrimSpace(feedback),
		strings.ToUpper(original.Scenario),
		duration,
		withDefault(form.ProductName, "product"),
		withDefault(form.BrandTone, "Professional"),
		withDefault(form.SceneDescription, "professional setting"),
		duration)
}

// SceneRegenerationSchema is the strict json_schema for one revised brief.
func SceneRegenerationSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"visual_description": map[string]any{"type": "string"},
			"camera_work":        map[string]any{"type": "string"},
			"lighting":           map[string]any{"type": "string"},
			"audio_design":       map[string]any{"type": "string"},
			"background_music":   map[string]any{"type": "string"},
			"sound_effects":      map[string]any{"type": "string"},
			"dialog_narration":   map[string]any{"type": "string"},
		},
		"required": []string{
			"visual_description", "camera_work", "lighting", "audio_design",
			"background_music", "sound_effects", "dialog_narration",
		},
		"additionalProperties": false,
	}
}

// VideoPrompt flattens a scene brief into the single prompt string handed to
// the video provider.
func VideoPrompt(scene *domain.SceneDescription) string {
	parts := make([]string, 0, 4)
	if v := strings.TrimSpace(scene.VisualDescription); v != "" {
		parts = append(parts, v)
	}
	if v := strings.TrimSpace(scene.CameraWork); v != "" {
		parts = append(parts, "Camera work: "+v)
	}
	if v := strings.TrimSpace(scene.Lighting); v != "" {
		parts = append(parts, "Lighting: "+v)
	}
	if v := strings.TrimSpace(scene.AudioDesign); v != "" {
		parts = append(parts, "Audio: "+v)
	}
	return strings.Join(parts, " ")
}
