package pipeline

import (
	"context"

	"anglestudio/internal/domain"
	"anglestudio/internal/providers/genai"
)

// GenerateRequest describes one multimodal image-generation call: the
// instruction text as the leading part, followed by the images in order.
type GenerateRequest struct {
	Prompt      string
	Images      []domain.InputImage
	Temperature float32
}

// ImageGenerator is the single generation primitive shared by the canonical
// stage and every per-angle regeneration.
type ImageGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (domain.ImagePayload, error)
}

const (
	// canonicalTemperature leaves the first image room for creativity.
	canonicalTemperature = 0.7
	// angleTemperature is kept low: per-angle calls replicate, not invent.
	angleTemperature = 0.4
)

// ImageCaller is the Gemini call the generator depends on.
type ImageCaller interface {
	GenerateImage(ctx context.Context, req genai.ImageGenRequest) (genai.Blob, error)
}

// GeminiImageGenerator adapts the Gemini client to the pipeline's generation
// primitive. It returns exactly one image payload per successful call and
// never substitutes a placeholder; a response without an image part is an
// error carrying the upstream text.
type GeminiImageGenerator struct {
	client ImageCaller
}

func NewGeminiImageGenerator(client ImageCaller) *GeminiImageGenerator {
	return &GeminiImageGenerator{client: client}
}

func (g *GeminiImageGenerator) Generate(ctx context.Context, req GenerateRequest) (domain.ImagePayload, error) {
	blobs := make([]genai.Blob, 0, len(req.Images))
	for _, img := range req.Images {
		blobs = append(blobs, genai.Blob{MIME: img.MIME, Data: img.Data})
	}
	blob, err := g.client.GenerateImage(ctx, genai.ImageGenRequest{
		Prompt:      req.Prompt,
		Images:      blobs,
		Temperature: req.Temperature,
	})
	if err != nil {
		return domain.ImagePayload{}, err
	}
	return domain.ImagePayload{Data: blob.Data, MIME: blob.MIME}, nil
}

var _ ImageGenerator = (*GeminiImageGenerator)(nil)
