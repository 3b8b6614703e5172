package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"anglestudio/internal/domain"
)

type stubOptimizer struct {
	prompt *OptimizedPrompt
	err    error
	calls  int
}

func (s *stubOptimizer) Optimize(ctx context.Context, inputs domain.DesignInputs, scene domain.SceneInputs) (*OptimizedPrompt, error) {
	s.calls++
	return s.prompt, s.err
}

type stubExtractor struct {
	spec  domain.DesignSpec
	calls int
}

func (s *stubExtractor) Extract(ctx context.Context, canonical domain.ImagePayload, category string) domain.DesignSpec {
	s.calls++
	return s.spec
}

// scriptedGenerator returns canned payloads per call index and records every
// request it received.
type scriptedGenerator struct {
	payloads []domain.ImagePayload
	errs     []error
	requests []GenerateRequest
}

func (s *scriptedGenerator) Generate(ctx context.Context, req GenerateRequest) (domain.ImagePayload, error) {
	i := len(s.requests)
	s.requests = append(s.requests, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return domain.ImagePayload{}, s.errs[i]
	}
	if i < len(s.payloads) {
		return s.payloads[i], nil
	}
	return domain.ImagePayload{Data: []byte{byte(i + 1)}, MIME: "image/png"}, nil
}

func okPrompt() *OptimizedPrompt {
	return &OptimizedPrompt{ImagePrompt: "a slipper", ScenePrompt: "studio", DebugNotes: "provider=gemini"}
}

func newTestOrchestrator(opt Optimizer, gen ImageGenerator, ext Extractor) *Orchestrator {
	return NewOrchestrator(opt, gen, ext, 0, zerolog.Nop())
}

func TestRunHappyPathFourAngles(t *testing.T) {
	gen := &scriptedGenerator{}
	ext := &stubExtractor{spec: domain.DesignSpec{PrimaryColors: []string{"burgundy", "gold"}, OverallStyle: "cozy"}}
	o := newTestOrchestrator(&stubOptimizer{prompt: okPrompt()}, gen, ext)

	angles := []string{"top", "45-degree", "side", "bottom"}
	res, err := o.Run(context.Background(), Request{
		Inputs: domain.DesignInputs{Category: "slipper", Color: "burgundy+gold"},
		Angles: angles,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Angles) != 4 {
		t.Fatalf("got %d results, want 4", len(res.Angles))
	}
	for i, r := range res.Angles {
		if r.Angle != angles[i] {
			t.Fatalf("result %d angle = %q, want %q (request order must be preserved)", i, r.Angle, angles[i])
		}
		if r.Failed() || len(r.Image) == 0 {
			t.Fatalf("result %d unexpectedly failed: %+v", i, r)
		}
	}
	// canonical + three angles
	if len(gen.requests) != 4 {
		t.Fatalf("generator called %d times, want 4", len(gen.requests))
	}
	if ext.calls != 1 {
		t.Fatalf("extractor called %d times, want 1", ext.calls)
	}
}

func TestRunCanonicalFailureIsFatal(t *testing.T) {
	gen := &scriptedGenerator{errs: []error{errors.New("model overloaded")}}
	ext := &stubExtractor{}
	o := newTestOrchestrator(&stubOptimizer{prompt: okPrompt()}, gen, ext)

	res, err := o.Run(context.Background(), Request{
		Inputs: domain.DesignInputs{Category: "mug"},
		Angles: []string{"front", "side", "back"},
	})
	if res != nil {
		t.Fatalf("expected nil result, got %+v", res)
	}
	var genErr *domain.GenerationError
	if !errors.As(err, &genErr) || genErr.Stage != "canonical" {
		t.Fatalf("err = %v, want canonical GenerationError", err)
	}
	if len(gen.requests) != 1 {
		t.Fatalf("generator called %d times after canonical failure, want 1", len(gen.requests))
	}
	if ext.calls != 0 {
		t.Fatalf("extractor called %d times after canonical failure, want 0", ext.calls)
	}
}

func TestRunAngleFailureBecomesMarker(t *testing.T) {
	gen := &scriptedGenerator{errs: []error{nil, nil, errors.New("safety block"), nil}}
	o := newTestOrchestrator(&stubOptimizer{prompt: okPrompt()}, gen, &stubExtractor{spec: domain.EmptySpec()})

	res, err := o.Run(context.Background(), Request{
		Inputs: domain.DesignInputs{Category: "tote_bag"},
		Angles: []string{"front", "back", "side", "top"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Angles) != 4 {
		t.Fatalf("got %d results, want 4", len(res.Angles))
	}
	failed := res.Angles[2]
	if failed.Angle != "side" || !failed.Failed() {
		t.Fatalf("expected side angle failure marker, got %+v", failed)
	}
	if !strings.Contains(failed.FailureReason, "safety block") {
		t.Fatalf("FailureReason = %q, want upstream cause", failed.FailureReason)
	}
	for i, r := range []domain.AngleResult{res.Angles[0], res.Angles[1], res.Angles[3]} {
		if r.Failed() {
			t.Fatalf("result %d unexpectedly failed: %+v", i, r)
		}
	}
}

func TestRunOptimizerErrorIsAbsorbed(t *testing.T) {
	gen := &scriptedGenerator{}
	o := newTestOrchestrator(&stubOptimizer{err: errors.New("quota exhausted")}, gen, &stubExtractor{spec: domain.EmptySpec()})

	res, err := o.Run(context.Background(), Request{
		Inputs: domain.DesignInputs{Category: "slipper", Theme: "Holiday Season", Color: "burgundy+gold"},
		Angles: []string{"top", "side"},
	})
	if err != nil {
		t.Fatalf("Run must absorb optimizer failures, got %v", err)
	}
	if !strings.Contains(res.DebugNotes, "fallback_reason=optimizer_error") {
		t.Fatalf("DebugNotes = %q", res.DebugNotes)
	}
	canonical := gen.requests[0]
	for _, want := range []string{"burgundy", "gold", "Holiday Season"} {
		if !strings.Contains(canonical.Prompt, want) {
			t.Fatalf("canonical prompt missing %q:\n%s", want, canonical.Prompt)
		}
	}
}

func TestRunDeclaredColorsReachAnglePrompts(t *testing.T) {
	gen := &scriptedGenerator{}
	// Extraction degraded: the empty spec forces the declared choices to carry
	// the color anchors into every angle prompt.
	o := newTestOrchestrator(&stubOptimizer{prompt: okPrompt()}, gen, &stubExtractor{spec: domain.EmptySpec()})

	_, err := o.Run(context.Background(), Request{
		Inputs: domain.DesignInputs{Category: "slipper", Color: "custom:burgundy+gold", Material: "canvas"},
		Angles: []string{"top", "45-degree"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	anglePrompt := gen.requests[1].Prompt
	if !strings.Contains(anglePrompt, "- Primary colors: burgundy, gold") {
		t.Fatalf("angle prompt missing declared colors:\n%s", anglePrompt)
	}
	if !strings.Contains(anglePrompt, "- Materials: canvas") {
		t.Fatalf("angle prompt missing declared material:\n%s", anglePrompt)
	}
	if strings.Contains(anglePrompt, domain.EmptySpecStyle) {
		t.Fatal("extraction-failure sentinel leaked into an angle prompt")
	}
	// The seeded spec is non-empty, so the serialized block must be present
	// and sentinel-free too.
	if !strings.Contains(anglePrompt, `"primary_colors":["burgundy","gold"]`) {
		t.Fatalf("angle prompt missing serialized spec block:\n%s", anglePrompt)
	}
}

func TestRunCanonicalImageLeadsAngleCalls(t *testing.T) {
	canonical := domain.ImagePayload{Data: []byte("canonical-bytes"), MIME: "image/png"}
	gen := &scriptedGenerator{payloads: []domain.ImagePayload{canonical}}
	reference := domain.InputImage{Data: []byte("ref"), MIME: "image/jpeg", Role: domain.ImageRoleReference}
	o := newTestOrchestrator(&stubOptimizer{prompt: okPrompt()}, gen, &stubExtractor{spec: domain.EmptySpec()})

	_, err := o.Run(context.Background(), Request{
		Inputs: domain.DesignInputs{Category: "sneaker"},
		Images: []domain.InputImage{reference},
		Angles: []string{"side", "top"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	angleCall := gen.requests[1]
	if len(angleCall.Images) != 2 {
		t.Fatalf("angle call got %d images, want 2", len(angleCall.Images))
	}
	if string(angleCall.Images[0].Data) != "canonical-bytes" {
		t.Fatal("canonical image must lead the angle call's image list")
	}
	if angleCall.Images[1].Role != domain.ImageRoleReference {
		t.Fatal("original inputs must follow the canonical image")
	}
	if angleCall.Temperature != angleTemperature {
		t.Fatalf("angle temperature = %v, want %v", angleCall.Temperature, angleTemperature)
	}
	if gen.requests[0].Temperature != canonicalTemperature {
		t.Fatalf("canonical temperature = %v, want %v", gen.requests[0].Temperature, canonicalTemperature)
	}
}

func TestRunEmptyCanonicalSkipsExtraction(t *testing.T) {
	gen := &scriptedGenerator{payloads: []domain.ImagePayload{{Data: nil, MIME: "image/png"}}}
	ext := &stubExtractor{spec: domain.DesignSpec{PrimaryColors: []string{"should not appear"}}}
	o := newTestOrchestrator(&stubOptimizer{prompt: okPrompt()}, gen, ext)

	res, err := o.Run(context.Background(), Request{
		Inputs: domain.DesignInputs{Category: "mug"},
		Angles: []string{"front", "back"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ext.calls != 0 {
		t.Fatalf("extractor called %d times for an empty canonical payload, want 0", ext.calls)
	}
	if res.Spec.OverallStyle != domain.EmptySpecStyle {
		t.Fatalf("Spec.OverallStyle = %q, want sentinel", res.Spec.OverallStyle)
	}
}

func TestRunRejectsInvalidAngles(t *testing.T) {
	cases := [][]string{
		{"top"},
		{"top", "side", "front", "back", "bottom"},
		{"top", "Top"},
		{"top", " "},
		nil,
	}
	for i, angles := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			gen := &scriptedGenerator{}
			o := newTestOrchestrator(&stubOptimizer{prompt: okPrompt()}, gen, &stubExtractor{})
			_, err := o.Run(context.Background(), Request{Inputs: domain.DesignInputs{Category: "mug"}, Angles: angles})
			if !errors.Is(err, domain.ErrInvalidAngles) {
				t.Fatalf("angles %v: err = %v, want ErrInvalidAngles", angles, err)
			}
			if len(gen.requests) != 0 {
				t.Fatal("no generation call may happen before angle validation")
			}
		})
	}
}
