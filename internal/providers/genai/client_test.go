package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Options{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestGenerateImageExtractsFirstInlinePart(t *testing.T) {
	imageBytes := []byte{0x89, 0x50, 0x4e, 0x47}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req geminiGenerateContentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text == "" {
			t.Error("prompt must be the leading content part")
		}
		resp := geminiGenerateContentResponse{Candidates: []geminiCandidate{{
			Content: geminiContent{Parts: []geminiPart{
				{Text: "here you go"},
				{InlineData: &geminiInlineData{
					MimeType: "image/png",
					Data:     base64.StdEncoding.EncodeToString(imageBytes),
				}},
			}},
		}}}
		_ = json.NewEncoder(w).Encode(resp)
	})

	blob, err := client.GenerateImage(context.Background(), ImageGenRequest{Prompt: "a red slipper"})
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if blob.MIME != "image/png" || len(blob.Data) != len(imageBytes) {
		t.Fatalf("blob = {%s %d bytes}, want image/png %d bytes", blob.MIME, len(blob.Data), len(imageBytes))
	}
}

func TestGenerateImageFailsWithoutImagePart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		resp := geminiGenerateContentResponse{Candidates: []geminiCandidate{{
			Content:      geminiContent{Parts: []geminiPart{{Text: "cannot comply"}}},
			FinishReason: "SAFETY",
		}}}
		_ = json.NewEncoder(w).Encode(resp)
	})

	_, err := client.GenerateImage(context.Background(), ImageGenRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("expected error when response has no image part")
	}
	if !strings.Contains(err.Error(), "SAFETY") {
		t.Fatalf("error should carry the upstream finish reason, got %v", err)
	}
}

func TestGenerateImageSurfacesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 429, "message": "quota exhausted"},
		})
	})

	_, err := client.GenerateImage(context.Background(), ImageGenRequest{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "quota exhausted") {
		t.Fatalf("error should carry upstream message, got %v", err)
	}
}

func TestAnalyzeImageSendsInstructionThenImage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req geminiGenerateContentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		parts := req.Contents[0].Parts
		if len(parts) != 2 || parts[0].Text == "" || parts[1].InlineData == nil {
			t.Errorf("expected [text, image] parts, got %+v", parts)
		}
		resp := geminiGenerateContentResponse{Candidates: []geminiCandidate{{
			Content: geminiContent{Parts: []geminiPart{{Text: `{"overall_style":"minimal"}`}}},
		}}}
		_ = json.NewEncoder(w).Encode(resp)
	})

	text, err := client.AnalyzeImage(context.Background(), VisionRequest{
		Instruction: "describe",
		Image:       Blob{MIME: "image/png", Data: []byte{1, 2, 3}},
		Temperature: 0.1,
	})
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if !strings.Contains(text, "minimal") {
		t.Fatalf("text = %q", text)
	}
}

func TestGenerateTextEmptyResponseIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(geminiGenerateContentResponse{})
	})
	if _, err := client.GenerateText(context.Background(), TextRequest{Instruction: "hi"}); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatal("expected error when api key missing")
	}
}
