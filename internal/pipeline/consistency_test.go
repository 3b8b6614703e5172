package pipeline

import (
	"strings"
	"testing"

	"anglestudio/internal/domain"
)

func TestConsistencyInstructionListsEveryAnchor(t *testing.T) {
	spec := domain.DesignSpec{
		PrimaryColors:      []string{"burgundy", "gold"},
		SecondaryColors:    []string{"cream"},
		Patterns:           []string{"snowflake motif"},
		Textures:           []string{"plush"},
		Materials:          []string{"canvas"},
		BrandingElements:   []string{"embroidered wordmark"},
		DecorativeElements: []string{"gold piping"},
		StructuralFeatures: []string{"rounded toe"},
		OverallStyle:       "cozy holiday",
	}
	got := BuildConsistencyInstruction(spec, "side")

	for _, want := range []string{
		"MUST USE",
		"- Primary colors: burgundy, gold",
		"- Secondary colors: cream",
		"- Patterns: snowflake motif",
		"- Materials: canvas",
		"- Branding elements: embroidered wordmark",
		"- Overall style: cozy holiday",
		"FORBIDDEN",
		"side viewpoint",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("instruction missing %q:\n%s", want, got)
		}
	}
}

func TestConsistencyInstructionOmitsEmptySections(t *testing.T) {
	got := BuildConsistencyInstruction(domain.EmptySpec(), "top")
	if strings.Contains(got, "MUST USE") {
		t.Fatalf("empty spec must omit the MUST USE block:\n%s", got)
	}
	if strings.Contains(got, domain.EmptySpecStyle) {
		t.Fatal("extraction-failure sentinel must never appear in a prompt")
	}
	if !strings.Contains(got, "FORBIDDEN") {
		t.Fatal("prohibitions apply even without extracted anchors")
	}
	if got == "" {
		t.Fatal("instruction must never be empty")
	}
}

func TestConsistencyInstructionDeterministic(t *testing.T) {
	spec := domain.DesignSpec{PrimaryColors: []string{"navy"}, OverallStyle: "minimal"}
	a := BuildConsistencyInstruction(spec, "45-degree")
	b := BuildConsistencyInstruction(spec, "45-degree")
	if a != b {
		t.Fatal("identical inputs must yield byte-identical instructions")
	}
}

func TestCameraGuidance(t *testing.T) {
	cases := []struct {
		angle string
		want  string
	}{
		{"top", "directly above"},
		{"Top", "directly above"},
		{"bottom", "underside"},
		{"side", "side profile"},
		{"45-degree", "45 degrees"},
		{"front", "front face"},
		{"back", "back of the object"},
		{"three-quarter-rear", `"three-quarter-rear" viewpoint`},
	}
	for _, tc := range cases {
		t.Run(tc.angle, func(t *testing.T) {
			got := CameraGuidance(tc.angle)
			if !strings.Contains(got, tc.want) {
				t.Fatalf("CameraGuidance(%q) = %q, want substring %q", tc.angle, got, tc.want)
			}
		})
	}
}
