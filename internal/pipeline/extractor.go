package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"anglestudio/internal/domain"
	"anglestudio/internal/providers/genai"
)

// Extractor produces a design specification from the canonical image. It never
// returns an error: extraction is the only stage that parses unstructured
// model output as structured data, so every failure mode collapses into the
// documented empty specification and the pipeline carries on with the
// canonical image as its only anchor.
type Extractor interface {
	Extract(ctx context.Context, canonical domain.ImagePayload, category string) domain.DesignSpec
}

const extractTemperature = 0.1

// VisionAnalyzer is the single vision call the extractor depends on.
type VisionAnalyzer interface {
	AnalyzeImage(ctx context.Context, req genai.VisionRequest) (string, error)
}

// GeminiSpecExtractor runs the vision-analysis call and parses the nine-field
// specification out of the response text.
type GeminiSpecExtractor struct {
	client VisionAnalyzer
	logger zerolog.Logger
}

func NewGeminiSpecExtractor(client VisionAnalyzer, logger zerolog.Logger) *GeminiSpecExtractor {
	return &GeminiSpecExtractor{client: client, logger: logger}
}

func (e *GeminiSpecExtractor) Extract(ctx context.Context, canonical domain.ImagePayload, category string) domain.DesignSpec {
	text, err := e.client.AnalyzeImage(ctx, genai.VisionRequest{
		Instruction: buildExtractionInstruction(category),
		Image:       genai.Blob{MIME: canonical.MIME, Data: canonical.Data},
		Temperature: extractTemperature,
	})
	if err != nil {
		e.logger.Warn().Err(err).Msg("pipeline: spec extraction call failed, using empty spec")
		return domain.EmptySpec()
	}

	spec, ok := parseSpec(text)
	if !ok {
		e.logger.Warn().Msg("pipeline: spec extraction response unparseable, using empty spec")
		return domain.EmptySpec()
	}
	return spec
}

func buildExtractionInstruction(category string) string {
	sb := &strings.Builder{}
	sb.WriteString("Analyze this product image and extract its complete design specification. ")
	if c := strings.TrimSpace(category); c != "" {
		sb.WriteString("The product is a ")
		sb.WriteString(c)
		sb.WriteString(". ")
	}
	sb.WriteString("Respond with exactly one JSON object and nothing else, matching this schema: ")
	sb.WriteString(`{"primary_colors":string[],"secondary_colors":string[],"patterns":string[],`)
	sb.WriteString(`"textures":string[],"materials":string[],"branding_elements":string[],`)
	sb.WriteString(`"decorative_elements":string[],"structural_features":string[],"overall_style":string}`)
	sb.WriteString(". Every field must be present; use an empty array when nothing applies. ")
	sb.WriteString("Each list entry is a short descriptor (2-6 words). ")
	sb.WriteString("Be exhaustive: every visible color, pattern, texture, material, logo or text, ")
	sb.WriteString("decorative element and structural feature must appear, because the description ")
	sb.WriteString("will be used to reproduce this exact object from other camera angles.")
	return sb.String()
}

// parseSpec is the strict output-contract parser: it isolates the first
// balanced JSON object in the text and decodes it as a specification. The
// boolean result is coerced to the empty default by the caller, never exposed.
func parseSpec(raw string) (domain.DesignSpec, bool) {
	fragment := firstJSONObject(raw)
	if fragment == "" {
		return domain.DesignSpec{}, false
	}
	var spec domain.DesignSpec
	if err := json.Unmarshal([]byte(fragment), &spec); err != nil {
		return domain.DesignSpec{}, false
	}
	spec.Normalize()
	if spec.OverallStyle == "" && spec.IsEmpty() {
		return domain.DesignSpec{}, false
	}
	return spec, true
}

// firstJSONObject returns the first balanced {...} substring of the text.
// Model responses routinely wrap the object in prose or markdown code fences;
// brace counting is string-literal aware so braces inside values do not
// unbalance the scan.
func firstJSONObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}

var _ Extractor = (*GeminiSpecExtractor)(nil)
