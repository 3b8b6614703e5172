package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"anglestudio/internal/domain"
	"anglestudio/internal/providers/genai"
)

// OptimizedPrompt is the output of the prompt-optimization stage. Callers
// cannot tell an optimized prompt from a fallback one by type; DebugNotes is
// the only signal, kept for observability.
type OptimizedPrompt struct {
	ImagePrompt string
	ScenePrompt string
	DebugNotes  string
}

// Optimizer turns structured design choices into generation prompts.
type Optimizer interface {
	Optimize(ctx context.Context, inputs domain.DesignInputs, scene domain.SceneInputs) (*OptimizedPrompt, error)
}

const (
	optimizerProviderGemini = "gemini"
	optimizerProviderStatic = "static"

	optimizeTemperature = 0.6
)

// TextGenerator is the single text-generation call the optimizer depends on.
type TextGenerator interface {
	GenerateText(ctx context.Context, req genai.TextRequest) (string, error)
}

// GeminiOptimizer asks the text model to rewrite the structured choices into a
// polished generation prompt. Any failure, from transport errors to
// unparseable output, switches to the deterministic template; the optimizer
// itself never fails and never retries the remote call.
type GeminiOptimizer struct {
	client TextGenerator
}

func NewGeminiOptimizer(client TextGenerator) *GeminiOptimizer {
	return &GeminiOptimizer{client: client}
}

type optimizePayload struct {
	ImagePrompt string `json:"image_prompt"`
	ScenePrompt string `json:"scene_prompt"`
	Notes       string `json:"notes"`
}

func (o *GeminiOptimizer) Optimize(ctx context.Context, inputs domain.DesignInputs, scene domain.SceneInputs) (*OptimizedPrompt, error) {
	text, err := o.client.GenerateText(ctx, genai.TextRequest{
		Instruction:  buildOptimizeInstruction(inputs, scene),
		Temperature:  optimizeTemperature,
		ResponseJSON: true,
	})
	if err != nil {
		return fallbackWithReason(inputs, scene, "text_call_failed"), nil
	}

	payload, err := parseOptimizePayload(text)
	if err != nil {
		return fallbackWithReason(inputs, scene, "unparseable_response"), nil
	}

	notes := fmt.Sprintf("provider=%s", optimizerProviderGemini)
	if strings.TrimSpace(payload.Notes) != "" {
		notes += "; " + strings.TrimSpace(payload.Notes)
	}
	return &OptimizedPrompt{
		ImagePrompt: strings.TrimSpace(payload.ImagePrompt),
		ScenePrompt: strings.TrimSpace(payload.ScenePrompt),
		DebugNotes:  notes,
	}, nil
}

func buildOptimizeInstruction(inputs domain.DesignInputs, scene domain.SceneInputs) string {
	sb := &strings.Builder{}
	sb.WriteString("You are a professional product designer with 10+ years of experience ")
	sb.WriteString("writing prompts for image generation models. ")
	sb.WriteString("Respond strictly with JSON matching this schema: ")
	sb.WriteString(`{"image_prompt":string,"scene_prompt":string,"notes":string}`)
	sb.WriteString(". image_prompt must describe the product design itself; ")
	sb.WriteString("scene_prompt must describe presentation, environment and lighting. ")
	fmt.Fprintf(sb, "Design choices: category=%q, theme=%q, style=%q, colors=%q, material=%q, description=%q.",
		inputs.Category, inputs.Theme, inputs.Style, inputs.Color, inputs.Material, inputs.Description)
	if inputs.HasReference {
		sb.WriteString(" A reference image is attached to the generation call; mention following it.")
	}
	if inputs.HasLogo {
		sb.WriteString(" A brand logo image is attached; it must be placed prominently and unaltered.")
	}
	fmt.Fprintf(sb, " Scene choices: environment=%q, model=%q, lighting=%q.",
		scene.Environment, scene.ModelStyle, scene.Lighting)
	sb.WriteString(" Keep every color and material name from the choices verbatim; do not translate or substitute them.")
	return sb.String()
}

func parseOptimizePayload(raw string) (optimizePayload, error) {
	var payload optimizePayload
	fragment := firstJSONObject(raw)
	if fragment == "" {
		return payload, errors.New("no json object in response")
	}
	if err := json.Unmarshal([]byte(fragment), &payload); err != nil {
		return payload, err
	}
	if strings.TrimSpace(payload.ImagePrompt) == "" {
		return payload, errors.New("image_prompt missing")
	}
	return payload, nil
}

func fallbackWithReason(inputs domain.DesignInputs, scene domain.SceneInputs, reason string) *OptimizedPrompt {
	p := FallbackPrompt(inputs, scene)
	p.DebugNotes = fmt.Sprintf("provider=%s; fallback_reason=%s", optimizerProviderStatic, reason)
	return p
}

// FallbackPrompt builds a deterministic prompt pair straight from the design
// choices. It has no external dependency and cannot fail, which is what makes
// the optimization stage always transition forward.
func FallbackPrompt(inputs domain.DesignInputs, scene domain.SceneInputs) *OptimizedPrompt {
	c := cases.Title(language.Und)

	var img []string
	category := strings.TrimSpace(inputs.Category)
	if category == "" {
		category = "product"
	}
	img = append(img, fmt.Sprintf("A %s design", strings.ToLower(category)))
	if theme := strings.TrimSpace(inputs.Theme); theme != "" {
		img = append(img, fmt.Sprintf("with a %s theme", theme))
	}
	if style := strings.TrimSpace(inputs.Style); style != "" {
		img = append(img, fmt.Sprintf("rendered in %s style", style))
	}
	if colors := domain.SplitValues(inputs.Color); len(colors) > 0 {
		img = append(img, "using the colors "+strings.Join(colors, ", "))
	}
	if material := strings.TrimSpace(domain.EffectiveValue(inputs.Material)); material != "" {
		img = append(img, fmt.Sprintf("made of %s", c.String(material)))
	}
	if desc := strings.TrimSpace(inputs.Description); desc != "" {
		img = append(img, "Details: "+desc)
	}
	if inputs.HasReference {
		img = append(img, "Follow the attached reference image for the overall design direction")
	}
	if inputs.HasLogo {
		img = append(img, "Place the attached brand logo prominently without altering it")
	}

	var sc []string
	if env := strings.TrimSpace(scene.Environment); env != "" {
		sc = append(sc, fmt.Sprintf("Present the product in a %s environment", env))
	}
	if model := strings.TrimSpace(scene.ModelStyle); model != "" {
		sc = append(sc, fmt.Sprintf("shown with %s", model))
	}
	if light := strings.TrimSpace(scene.Lighting); light != "" {
		sc = append(sc, fmt.Sprintf("under %s lighting", light))
	}
	if len(sc) == 0 {
		sc = append(sc, "Present the product against a clean neutral studio background")
	}

	return &OptimizedPrompt{
		ImagePrompt: strings.Join(img, ", ") + ".",
		ScenePrompt: strings.Join(sc, ", ") + ".",
		DebugNotes:  "provider=" + optimizerProviderStatic,
	}
}

var _ Optimizer = (*GeminiOptimizer)(nil)
