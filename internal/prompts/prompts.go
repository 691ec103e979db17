package prompts

import (
	"fmt"
	"strings"

	"github.com/peres84/AdFlowEcomm/internal/domain"
)

// ProductAnalysis is the vision instruction for reading the uploaded product
// photo into structured fields.
func ProductAnalysis() string {
	return `Analyze this product image and provide a JSON response with:
{
  "product_type": "specific product type",
  "description": "detailed visual description",
  "colors": ["main colors"],
  "materials": ["materials visible"],
  "style": "visual style"
}`
}

// ProductAnalysisSchema is the strict json_schema matching ProductAnalysis.
func ProductAnalysisSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"product_type": map[string]any{"type": "string"},
			"description":  map[string]any{"type": "string"},
			"colors":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"materials":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"style":        map[string]any{"type": "string"},
		},
		"required":             []string{"product_type", "description", "colors", "materials", "style"},
		"additionalProperties": false,
	}
}

// SelectedImageAnalysis asks the vision model to describe one chosen still so
// the scene description can match its look.
func SelectedImageAnalysis(scenario string) string {
	return fmt.Sprintf(`Analyze this %s image and extract visual characteristics including:
- Composition and layout
- Colors and color palette
- Lighting style and direction
- Mood and atmosphere
- Objects and elements present
- Visual style and aesthetic
- Camera angle and perspective

Provide a detailed description that can be used to generate a video scene matching this visual style.`, scenario)
}

func joinOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}

// ImagePrompt builds the Runware image prompt for one scenario from the brief
// and the product analysis.
func ImagePrompt(scenario string, form *domain.FormData, analysis *domain.ProductAnalysis, hasLogo bool) string {
	productName := withDefault(form.ProductName, "product")
	productType := withDefault(analysis.ProductType, "product")
	productDesc := withDefault(analysis.Description, "product")
	sceneDesc := withDefault(form.SceneDescription, "professional setting")
	brandColors := joinOr(form.BrandColors, "brand colors")
	brandTone := withDefault(form.BrandTone, "Professional")
	platform := withDefault(form.TargetPlatform, "social media")

	switch scenario {
	case domain.ScenarioProblem:
		return problemImagePrompt(productName, productDesc, withDefault(form.MainBenefit, "solving problems"), sceneDesc, brandColors, brandTone, platform, hasLogo)
	case domain.ScenarioSolution:
		return solutionImagePrompt(productName, productType, productDesc, withDefault(form.TargetAudience, "users"), withDefault(form.MainBenefit, "solving problems"), sceneDesc, brandColors, brandTone, platform, hasLogo)
	case domain.ScenarioCTA:
		return ctaImagePrompt(productName, productType, productDesc, sceneDesc, brandColors, brandTone, platform, hasLogo)
	default:
		return hookImagePrompt(productName, productType, productDesc, sceneDesc, brandColors, brandTone, platform, hasLogo)
	}
}

func hookImagePrompt(productName, productType, productDesc, sceneDesc, brandColors, brandTone, platform string, hasLogo bool) string {
	logoInstruction := ""
	if hasLogo {
		logoInstruction = `
Seamlessly place the provided logo onto the product surface, aligned with perspective and curvature.
Make the branding look realistically printed or embossed with correct reflections, texture, and lighting.
`
	}

	return fmt.Sprintf(`Professional product photography featuring ONLY the %s.

Product to showcase: %s

IMPORTANT: Focus exclusively on THIS specific product - the %s.
Do not add other products, accessories, or unrelated items.
%s
Visual style: %s
Brand colors: Subtly integrate %s in the scene

The product is the sole hero - clearly visible, beautifully presented, nothing else competing for attention.
Clean composition focusing on the product's design and branding.
Commercial quality ready for %s.
%s tone.
Do not distort product shape or obscure details.`,
		productName, productDesc, productType, logoInstruction, sceneDesc, brandColors, platform, brandTone)
}

func problemImagePrompt(productName, productDesc, mainBenefit, sceneDesc, brandColors, brandTone, platform string, hasLogo bool) string {
	logoInstruction := ""
	if hasLogo {
		logoInstruction = `
The logo can appear subtly in the background or on related items, but should not be the focus.
`
	}

	return fmt.Sprintf(`Lifestyle scene showing the problem or pain point that %s solves.

Context: The problem being addressed is related to %s

SCENE COMPOSITION:
Show a realistic scenario where the problem is evident.
The scene should convey frustration, inconvenience, or the need for a solution.
Can show the product in context or the situation before the product is used.

Product details: %s
Visual style: %s
Brand colors: Subtly integrate %s in the scene
%s
Authentic %s tone with genuine emotions.
Professional lifestyle photography quality for %s.
The scene should make viewers recognize the problem and desire a solution.`,
		productName, mainBenefit, productDesc, sceneDesc, brandColors, logoInstruction, strings.ToLower(brandTone), platform)
}

func solutionImagePrompt(productName, productType, productDesc, targetAudience, mainBenefit, sceneDesc, brandColors, brandTone, platform string, hasLogo bool) string {
	environment := "real-world setting"
	lower := strings.ToLower(sceneDesc)
	switch {
	case strings.Contains(lower, "office"):
		environment = "office environment"
	case strings.Contains(lower, "home"):
		environment = "home environment"
	case strings.Contains(lower, "outdoor"):
		environment = "outdoor setting"
	}

	logoInstruction := ""
	logoVisibility := ""
	if hasLogo {
		logoInstruction = fmt.Sprintf(`
CRITICAL BRANDING REQUIREMENT:
Take the provided logo image and seamlessly place it onto the %s surface.
The logo MUST be clearly visible on the product, aligned with its perspective and curvature.
Make the logo look realistically printed or embossed with correct reflections, shadows, texture, and lighting.
The branding should appear as if it was professionally manufactured onto the product.
`, productType)
		logoVisibility = " with the logo prominently displayed"
	}

	return fmt.Sprintf(`Lifestyle scene showing a person using %s in real-world setting.
%s
SCENE COMPOSITION:
Show a real person (target audience: %s) relaxed and happy, doing other activities.
Person reading, relaxing, working, or enjoying free time.
The %s works effectively, demonstrating the benefit.

Product details: %s
Setting: %s
Benefit being demonstrated: %s

Visual style: %s
Brand colors: Subtly integrate %s in the scene

Authentic %s tone with genuine emotions.
The product should be clearly visible%s.
Professional lifestyle photography quality for %s.`,
		productName, logoInstruction, targetAudience, productType, productDesc, environment, mainBenefit,
		sceneDesc, brandColors, strings.ToLower(brandTone), logoVisibility, platform)
}

func ctaImagePrompt(productName, productType, productDesc, sceneDesc, brandColors, brandTone, platform string, hasLogo bool) string {
	logoInstruction := ""
	logoSize := ""
	branding := ""
	if hasLogo {
		logoInstruction = fmt.Sprintf(`
CRITICAL BRANDING REQUIREMENT - HIGHEST PRIORITY:
Take the provided logo image and place it PROMINENTLY and CLEARLY onto the %s surface.
The logo MUST be the most visible branding element, aligned perfectly with the product's perspective and curvature.
Make the logo look realistically printed or embossed with perfect reflections, shadows, texture, and lighting.
The branding should appear professionally manufactured, sharp, and crystal clear.
This is a marketing hero shot - the logo visibility is ESSENTIAL.
`, productType)
		logoSize = "The logo should be large enough to read clearly and positioned prominently.\n"
		branding = " with clear branding"
	}

	return fmt.Sprintf(`Hero product shot featuring ONLY the %s for call-to-action.
%s
PRODUCT FOCUS:
Show exclusively THIS product: %s
No other products, no accessories, no additional items.
Just the product as the sole focus.

Visual style: %s
Brand colors: Prominently integrate %s in the scene

Clean, impactful presentation with the product as the absolute hero.
%sPremium %s aesthetic.
Perfect for final frame of %s ad - drives viewers to take action.
Commercial quality, marketing-ready, professional product photography%s.`,
		productName, logoInstruction, productDesc, sceneDesc, brandColors, logoSize, strings.ToLower(brandTone), platform, branding)
}

// RegeneratedImagePrompt appends the user's modifications to a prior prompt.
func RegeneratedImagePrompt(originalPrompt, modifications string) string {
	modifications = strings.TrimSpace(modifications)
	if modifications == "" {
		return originalPrompt
	}
	return fmt.Sprintf("%s\n\nAdditional requirements: %s", originalPrompt, modifications)
}

func withDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
