// Package catalog defines the preset vocabulary for design requests: product
// categories with their camera angle sets, and the theme/style/color/material
// tokens the UI offers. It also resolves "custom:" tokens to their effective
// values so the pipeline only ever sees resolved inputs.
package catalog

import (
	"fmt"
	"strings"

	"anglestudio/internal/domain"
)

// NamedOption pairs a stable token with a display name.
type NamedOption struct {
	Key  string
	Name string
}

// Category describes a product category and its camera angle set. The first
// angle is always the canonical one.
type Category struct {
	Key    string
	Name   string
	Angles []string
}

const (
	// MinAngles and MaxAngles bound the per-request angle list.
	MinAngles = 2
	MaxAngles = 4
)

var categories = map[string]Category{
	"slipper":   {Key: "slipper", Name: "Slipper", Angles: []string{"top", "45-degree", "side", "bottom"}},
	"sneaker":   {Key: "sneaker", Name: "Sneaker", Angles: []string{"45-degree", "side", "top", "back"}},
	"mug":       {Key: "mug", Name: "Mug", Angles: []string{"front", "45-degree", "side"}},
	"tote_bag":  {Key: "tote_bag", Name: "Tote Bag", Angles: []string{"front", "back"}},
	"tshirt":    {Key: "tshirt", Name: "T-Shirt", Angles: []string{"front", "back"}},
	"phonecase": {Key: "phonecase", Name: "Phone Case", Angles: []string{"back", "45-degree", "side"}},
	"custom":    {Key: "custom", Name: "Custom Product", Angles: nil},
}

var categoryOrder = []string{"slipper", "sneaker", "mug", "tote_bag", "tshirt", "phonecase", "custom"}

var themes = []NamedOption{
	{Key: "holiday_season", Name: "Holiday Season"},
	{Key: "summer_beach", Name: "Summer Beach"},
	{Key: "minimal_modern", Name: "Minimal Modern"},
	{Key: "retro_vintage", Name: "Retro Vintage"},
	{Key: "nature_botanical", Name: "Nature Botanical"},
	{Key: "sports_energy", Name: "Sports Energy"},
}

var styles = []NamedOption{
	{Key: "photorealistic", Name: "Photorealistic"},
	{Key: "studio_product", Name: "Studio Product Shot"},
	{Key: "flat_illustration", Name: "Flat Illustration"},
	{Key: "watercolor", Name: "Watercolor"},
	{Key: "luxury_editorial", Name: "Luxury Editorial"},
}

var colors = []NamedOption{
	{Key: "white", Name: "White"},
	{Key: "black", Name: "Black"},
	{Key: "navy", Name: "Navy"},
	{Key: "forest_green", Name: "Forest Green"},
	{Key: "burgundy", Name: "Burgundy"},
	{Key: "pastel_pink", Name: "Pastel Pink"},
}

var materials = []NamedOption{
	{Key: "canvas", Name: "Canvas"},
	{Key: "leather", Name: "Leather"},
	{Key: "cotton", Name: "Cotton"},
	{Key: "ceramic", Name: "Ceramic"},
	{Key: "rubber", Name: "Rubber"},
	{Key: "wool_felt", Name: "Wool Felt"},
}

// Categories returns the ordered category list.
func Categories() []Category {
	out := make([]Category, 0, len(categoryOrder))
	for _, key := range categoryOrder {
		if c, ok := categories[key]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Themes returns the ordered theme presets.
func Themes() []NamedOption { return append([]NamedOption(nil), themes...) }

// Styles returns the ordered style presets.
func Styles() []NamedOption { return append([]NamedOption(nil), styles...) }

// Colors returns the ordered color presets.
func Colors() []NamedOption { return append([]NamedOption(nil), colors...) }

// Materials returns the ordered material presets.
func Materials() []NamedOption { return append([]NamedOption(nil), materials...) }

// CategoryByKey looks up a category.
func CategoryByKey(key string) (Category, bool) {
	c, ok := categories[strings.ToLower(strings.TrimSpace(key))]
	return c, ok
}

// DefaultAngles returns the category's angle set, or nil for categories with
// user-defined labels.
func DefaultAngles(categoryKey string) []string {
	if c, ok := CategoryByKey(categoryKey); ok {
		return append([]string(nil), c.Angles...)
	}
	return nil
}

// ValidateAngles enforces the 2-4 angle contract and rejects blank or
// duplicate labels. The first label is the canonical angle.
func ValidateAngles(angles []string) error {
	if len(angles) < MinAngles || len(angles) > MaxAngles {
		return fmt.Errorf("%w: need between %d and %d angles, got %d",
			domain.ErrInvalidAngles, MinAngles, MaxAngles, len(angles))
	}
	seen := make(map[string]struct{}, len(angles))
	for _, a := range angles {
		label := strings.TrimSpace(a)
		if label == "" {
			return fmt.Errorf("%w: blank angle label", domain.ErrInvalidAngles)
		}
		key := strings.ToLower(label)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate angle %q", domain.ErrInvalidAngles, label)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Resolve maps a field token to its effective value. Preset tokens resolve to
// their display names; "custom:" tokens resolve to the raw user value; an
// unknown bare token is rejected.
func Resolve(field string, options []NamedOption, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", nil
	}
	if strings.HasPrefix(token, domain.CustomPrefix) {
		value := domain.EffectiveValue(token)
		if value == "" {
			return "", fmt.Errorf("%w: custom %s value is empty", domain.ErrInvalidInputs, field)
		}
		return value, nil
	}
	key := strings.ToLower(token)
	for _, opt := range options {
		if opt.Key == key {
			return opt.Name, nil
		}
	}
	return "", fmt.Errorf("%w: unknown %s token %q", domain.ErrInvalidInputs, field, token)
}

// ResolveInputs resolves every token field of the inputs to effective values.
// The returned copy is what the pipeline receives; it never sees raw tokens
// except the color/material custom values, which keep their '+'-joined form so
// prompts can list each descriptor verbatim.
func ResolveInputs(in domain.DesignInputs) (domain.DesignInputs, error) {
	out := in
	if _, ok := CategoryByKey(in.Category); !ok {
		return out, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInputs, in.Category)
	}
	var err error
	if out.Theme, err = Resolve("theme", themes, in.Theme); err != nil {
		return out, err
	}
	if out.Style, err = Resolve("style", styles, in.Style); err != nil {
		return out, err
	}
	if out.Color, err = Resolve("color", colors, in.Color); err != nil {
		return out, err
	}
	if out.Material, err = Resolve("material", materials, in.Material); err != nil {
		return out, err
	}
	out.Description = strings.TrimSpace(in.Description)
	return out, nil
}
