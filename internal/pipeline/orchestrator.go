// Package pipeline implements the multi-angle consistency generation chain:
// prompt optimization, canonical image generation, design specification
// extraction, and constrained per-angle regeneration. Each angle after the
// first depends on the canonical image, so every stage of one request runs
// sequentially; concurrency lives above the pipeline, one invocation per
// request with no shared mutable state.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"anglestudio/internal/catalog"
	"anglestudio/internal/domain"
)

// Request is the fixed input bundle handed to the pipeline by the boundary
// layer: resolved design choices, scene choices, uploaded images in
// template/reference/logo order, and the ordered angle labels. The first
// angle is the canonical one.
type Request struct {
	Inputs domain.DesignInputs
	Scene  domain.SceneInputs
	Images []domain.InputImage
	Angles []string
}

// Result is the output bundle: one AngleResult per requested angle, in
// request order, plus the extracted specification and the optimizer's debug
// notes for observability.
type Result struct {
	Angles     []domain.AngleResult
	Spec       domain.DesignSpec
	DebugNotes string
}

// Orchestrator sequences the pipeline stages and applies the per-stage
// failure policy: optimizer failures are absorbed, canonical failure is fatal
// for the request, extraction failure degrades to the empty specification,
// and per-angle failures become failure markers in the result set.
type Orchestrator struct {
	optimizer   Optimizer
	generator   ImageGenerator
	extractor   Extractor
	callTimeout time.Duration
	logger      zerolog.Logger
}

func NewOrchestrator(optimizer Optimizer, generator ImageGenerator, extractor Extractor, callTimeout time.Duration, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		optimizer:   optimizer,
		generator:   generator,
		extractor:   extractor,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// Run executes the full pipeline for one request. It returns an error only
// when the canonical image could not be produced; in every other case the
// result carries one entry per requested angle, success or failure marker.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if err := catalog.ValidateAngles(req.Angles); err != nil {
		return nil, err
	}

	prompts := o.optimizePrompt(ctx, req)

	canonicalAngle := req.Angles[0]
	canonical, err := o.generateCanonical(ctx, req, prompts, canonicalAngle)
	if err != nil {
		o.logger.Error().Err(err).Str("angle", canonicalAngle).Msg("pipeline: canonical generation failed")
		return nil, &domain.GenerationError{Stage: "canonical", Err: err}
	}

	results := make([]domain.AngleResult, 0, len(req.Angles))
	results = append(results, domain.AngleResult{
		Angle: canonicalAngle,
		Image: canonical.Data,
		MIME:  canonical.MIME,
	})

	spec := o.extractSpec(ctx, canonical, req.Inputs)

	for _, angle := range req.Angles[1:] {
		payload, err := o.generateAngle(ctx, req, canonical, spec, angle)
		if err != nil {
			o.logger.Warn().Err(err).Str("angle", angle).Msg("pipeline: angle generation failed, continuing")
			results = append(results, domain.AngleResult{
				Angle:         angle,
				FailureReason: err.Error(),
			})
			continue
		}
		results = append(results, domain.AngleResult{
			Angle: angle,
			Image: payload.Data,
			MIME:  payload.MIME,
		})
	}

	return &Result{Angles: results, Spec: spec, DebugNotes: prompts.DebugNotes}, nil
}

// optimizePrompt always transitions forward: a broken optimizer degrades to
// the deterministic template, same as the production optimizer does
// internally.
func (o *Orchestrator) optimizePrompt(ctx context.Context, req Request) *OptimizedPrompt {
	callCtx, cancel := o.stageContext(ctx)
	defer cancel()

	prompts, err := o.optimizer.Optimize(callCtx, req.Inputs, req.Scene)
	if err != nil || prompts == nil {
		o.logger.Warn().Err(err).Msg("pipeline: optimizer failed, using fallback prompt")
		prompts = FallbackPrompt(req.Inputs, req.Scene)
		prompts.DebugNotes += "; fallback_reason=optimizer_error"
	}
	return prompts
}

func (o *Orchestrator) generateCanonical(ctx context.Context, req Request, prompts *OptimizedPrompt, angle string) (domain.ImagePayload, error) {
	callCtx, cancel := o.stageContext(ctx)
	defer cancel()

	prompt := prompts.ImagePrompt
	if prompts.ScenePrompt != "" {
		prompt += "\n\n" + prompts.ScenePrompt
	}
	prompt += "\n\n" + CameraGuidance(angle)

	return o.generator.Generate(callCtx, GenerateRequest{
		Prompt:      prompt,
		Images:      req.Images,
		Temperature: canonicalTemperature,
	})
}

// extractSpec never fails the pipeline. An unusable canonical payload skips
// the vision call outright; either way the declared design choices backfill
// the color and material anchors when extraction yields nothing for them.
func (o *Orchestrator) extractSpec(ctx context.Context, canonical domain.ImagePayload, inputs domain.DesignInputs) domain.DesignSpec {
	var spec domain.DesignSpec
	if len(canonical.Data) == 0 {
		o.logger.Warn().Msg("pipeline: canonical image empty, skipping spec extraction")
		spec = domain.EmptySpec()
	} else {
		callCtx, cancel := o.stageContext(ctx)
		defer cancel()
		spec = o.extractor.Extract(callCtx, canonical, inputs.Category)
	}
	spec.Normalize()
	spec.SeedFromInputs(inputs)
	if spec.IsEmpty() {
		o.logger.Info().Msg("pipeline: proceeding with empty spec, canonical image is the only anchor")
	}
	return spec
}

func (o *Orchestrator) generateAngle(ctx context.Context, req Request, canonical domain.ImagePayload, spec domain.DesignSpec, angle string) (domain.ImagePayload, error) {
	callCtx, cancel := o.stageContext(ctx)
	defer cancel()

	// The canonical image leads so the model treats it as the visual anchor;
	// the original inputs follow as secondary context.
	images := make([]domain.InputImage, 0, len(req.Images)+1)
	images = append(images, domain.InputImage{Data: canonical.Data, MIME: canonical.MIME, Role: domain.ImageRoleTemplate})
	images = append(images, req.Images...)

	payload, err := o.generator.Generate(callCtx, GenerateRequest{
		Prompt:      buildAnglePrompt(spec, angle),
		Images:      images,
		Temperature: angleTemperature,
	})
	if err != nil {
		return domain.ImagePayload{}, &domain.GenerationError{Stage: "angle", Angle: angle, Err: err}
	}
	return payload, nil
}

// buildAnglePrompt concatenates the consistency block with the camera-view
// instruction and, when the spec carries data, its raw serialization as a
// second textual anchor. The extraction-failure sentinel is internal state,
// not a style; it must never reach the model, including through the
// serialized block when seeded inputs make the spec non-empty.
func buildAnglePrompt(spec domain.DesignSpec, angle string) string {
	prompt := BuildConsistencyInstruction(spec, angle) + "\n\n" + CameraGuidance(angle)
	if spec.OverallStyle == domain.EmptySpecStyle {
		spec.OverallStyle = ""
	}
	if !spec.IsEmpty() {
		if raw, err := json.Marshal(spec); err == nil {
			prompt += fmt.Sprintf("\n\nDesign specification (machine-readable):\n```json\n%s\n```", raw)
		}
	}
	return prompt
}

func (o *Orchestrator) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.callTimeout)
}
