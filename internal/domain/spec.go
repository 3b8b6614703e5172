package domain

// EmptySpecStyle is the overall style recorded when extraction fails or the
// canonical image is unusable. Downstream prompts treat it as "no textual
// anchor; rely on the canonical image alone".
const EmptySpecStyle = "Unable to extract design specification"

// DesignSpec is the structured specification extracted from the canonical
// image. Every field is always present; missing data is an empty list or
// string, never an absent field, so callers never branch on presence.
type DesignSpec struct {
	PrimaryColors      []string `json:"primary_colors"`
	SecondaryColors    []string `json:"secondary_colors"`
	Patterns           []string `json:"patterns"`
	Textures           []string `json:"textures"`
	Materials          []string `json:"materials"`
	BrandingElements   []string `json:"branding_elements"`
	DecorativeElements []string `json:"decorative_elements"`
	StructuralFeatures []string `json:"structural_features"`
	OverallStyle       string   `json:"overall_style"`
}

// EmptySpec returns the documented degraded-mode specification: all lists
// empty and the sentinel overall style.
func EmptySpec() DesignSpec {
	return DesignSpec{
		PrimaryColors:      []string{},
		SecondaryColors:    []string{},
		Patterns:           []string{},
		Textures:           []string{},
		Materials:          []string{},
		BrandingElements:   []string{},
		DecorativeElements: []string{},
		StructuralFeatures: []string{},
		OverallStyle:       EmptySpecStyle,
	}
}

// Normalize replaces nil slices with empty ones so a spec decoded from a
// partial JSON object still honours the every-field-present invariant.
func (s *DesignSpec) Normalize() {
	if s.PrimaryColors == nil {
		s.PrimaryColors = []string{}
	}
	if s.SecondaryColors == nil {
		s.SecondaryColors = []string{}
	}
	if s.Patterns == nil {
		s.Patterns = []string{}
	}
	if s.Textures == nil {
		s.Textures = []string{}
	}
	if s.Materials == nil {
		s.Materials = []string{}
	}
	if s.BrandingElements == nil {
		s.BrandingElements = []string{}
	}
	if s.DecorativeElements == nil {
		s.DecorativeElements = []string{}
	}
	if s.StructuralFeatures == nil {
		s.StructuralFeatures = []string{}
	}
}

// IsEmpty reports whether the spec carries no extracted data at all.
func (s DesignSpec) IsEmpty() bool {
	return len(s.PrimaryColors) == 0 &&
		len(s.SecondaryColors) == 0 &&
		len(s.Patterns) == 0 &&
		len(s.Textures) == 0 &&
		len(s.Materials) == 0 &&
		len(s.BrandingElements) == 0 &&
		len(s.DecorativeElements) == 0 &&
		len(s.StructuralFeatures) == 0 &&
		(s.OverallStyle == "" || s.OverallStyle == EmptySpecStyle)
}

// SeedFromInputs backfills color and material anchors from the declared
// design choices when extraction produced nothing for those fields. The
// declared values are the user's contract with the result, so they must reach
// the consistency prompt verbatim even when vision analysis degrades.
func (s *DesignSpec) SeedFromInputs(inputs DesignInputs) {
	if len(s.PrimaryColors) == 0 {
		if colors := SplitValues(inputs.Color); len(colors) > 0 {
			s.PrimaryColors = colors
		}
	}
	if len(s.Materials) == 0 {
		if materials := SplitValues(inputs.Material); len(materials) > 0 {
			s.Materials = materials
		}
	}
}
