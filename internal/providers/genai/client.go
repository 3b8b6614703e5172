// Package genai provides a lightweight facade over the Gemini REST API for
// the three call kinds the generation pipeline needs: text generation,
// multimodal image generation, and vision analysis. It owns the wire structs
// and response plumbing so the pipeline components can stay focused on prompt
// semantics.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"anglestudio/internal/infra"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
	HTTPClient *http.Client
	Logger     *infra.Logger
	// CallsPerMinute caps outbound calls across all in-flight requests.
	// Zero disables the limiter.
	CallsPerMinute int
}

// Client is safe for concurrent use. It is constructed once at process start
// and shared read-only by every in-flight request.
type Client struct {
	apiKey     string
	baseURL    string
	textModel  string
	imageModel string
	httpClient *http.Client
	logger     *infra.Logger
	limiter    *rate.Limiter
}

// Blob is an image payload with its MIME type.
type Blob struct {
	MIME string
	Data []byte
}

// TextRequest describes a text-generation call.
type TextRequest struct {
	Instruction string
	Temperature float32
	// ResponseJSON asks the model for an application/json response body.
	ResponseJSON bool
}

// VisionRequest describes a single-image analysis call.
type VisionRequest struct {
	Instruction string
	Image       Blob
	Temperature float32
}

// ImageGenRequest describes a multimodal image-generation call. The prompt is
// the leading content part, followed by the images in order.
type ImageGenRequest struct {
	Prompt      string
	Images      []Blob
	Temperature float32
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      *float32 `json:"temperature,omitempty"`
	CandidateCount   int      `json:"candidateCount,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	textModel := opts.TextModel
	if textModel == "" {
		textModel = "gemini-2.5-flash"
	}
	imageModel := opts.ImageModel
	if imageModel == "" {
		imageModel = "gemini-2.5-flash-image-preview"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	var limiter *rate.Limiter
	if opts.CallsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(opts.CallsPerMinute)/60.0), opts.CallsPerMinute)
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		textModel:  textModel,
		imageModel: imageModel,
		httpClient: client,
		logger:     logger,
		limiter:    limiter,
	}, nil
}

// TextModel returns the configured text model identifier.
func (c *Client) TextModel() string { return c.textModel }

// ImageModel returns the configured image model identifier.
func (c *Client) ImageModel() string { return c.imageModel }

// GenerateText issues a single text-generation call and returns the first
// non-empty text part of the response.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.Instruction}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:    &req.Temperature,
			CandidateCount: 1,
		},
	}
	if req.ResponseJSON {
		payload.GenerationConfig.ResponseMimeType = "application/json"
	}

	var response geminiGenerateContentResponse
	if err := c.invoke(ctx, c.textModel, payload, &response); err != nil {
		return "", err
	}
	text := firstText(response)
	if text == "" {
		return "", fmt.Errorf("gemini: empty text response")
	}
	return text, nil
}

// AnalyzeImage issues a vision-analysis call: one instruction part followed by
// one image part. Returns the raw text of the response.
func (c *Client) AnalyzeImage(ctx context.Context, req VisionRequest) (string, error) {
	parts := []geminiPart{
		{Text: req.Instruction},
		{InlineData: &geminiInlineData{
			MimeType: defaultMIME(req.Image.MIME),
			Data:     base64.StdEncoding.EncodeToString(req.Image.Data),
		}},
	}
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:    &req.Temperature,
			CandidateCount: 1,
		},
	}

	var response geminiGenerateContentResponse
	if err := c.invoke(ctx, c.textModel, payload, &response); err != nil {
		return "", err
	}
	text := firstText(response)
	if text == "" {
		return "", fmt.Errorf("gemini: empty analysis response")
	}
	return text, nil
}

// GenerateImage issues one multimodal generation call and returns the first
// inline image part of the response. The absence of an image part is an error;
// the client never substitutes a placeholder.
func (c *Client) GenerateImage(ctx context.Context, req ImageGenRequest) (Blob, error) {
	parts := make([]geminiPart, 0, len(req.Images)+1)
	parts = append(parts, geminiPart{Text: req.Prompt})
	for _, img := range req.Images {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: defaultMIME(img.MIME),
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:    &req.Temperature,
			CandidateCount: 1,
		},
	}

	var response geminiGenerateContentResponse
	if err := c.invoke(ctx, c.imageModel, payload, &response); err != nil {
		return Blob{}, err
	}

	blob, ok := firstInlineImage(response)
	if !ok {
		reason := finishReason(response)
		if reason == "" {
			reason = "no image part in response"
		}
		return Blob{}, fmt.Errorf("gemini: %s", reason)
	}

	c.logger.Debug().
		Str("model", c.imageModel).
		Int("bytes", len(blob.Data)).
		Msg("genai: image generated")

	return blob, nil
}

func (c *Client) invoke(ctx context.Context, model string, payload any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		data, _ := io.ReadAll(resp.Body)
		if len(data) > 0 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func firstText(resp geminiGenerateContentResponse) string {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}

func firstInlineImage(resp geminiGenerateContentResponse) (Blob, bool) {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil || len(data) == 0 {
				continue
			}
			return Blob{MIME: defaultMIME(part.InlineData.MimeType), Data: data}, true
		}
	}
	return Blob{}, false
}

func finishReason(resp geminiGenerateContentResponse) string {
	for _, cand := range resp.Candidates {
		if cand.FinishReason != "" && cand.FinishReason != "STOP" {
			return "finish reason " + cand.FinishReason
		}
	}
	return ""
}

func defaultMIME(mime string) string {
	if strings.TrimSpace(mime) == "" {
		return "image/png"
	}
	return mime
}
