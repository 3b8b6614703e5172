package handlers

import (
	"net/http"

	"anglestudio/internal/catalog"
)

type presetOption struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type presetCategory struct {
	Key    string   `json:"key"`
	Name   string   `json:"name"`
	Angles []string `json:"angles,omitempty"`
}

// Presets exposes the design vocabulary to clients: categories with their
// default angle sets, plus the theme, style, color and material presets.
func (a *App) Presets(w http.ResponseWriter, r *http.Request) {
	categories := make([]presetCategory, 0)
	for _, c := range catalog.Categories() {
		categories = append(categories, presetCategory{Key: c.Key, Name: c.Name, Angles: c.Angles})
	}
	a.json(w, http.StatusOK, map[string]any{
		"categories": categories,
		"themes":     namedOptions(catalog.Themes()),
		"styles":     namedOptions(catalog.Styles()),
		"colors":     namedOptions(catalog.Colors()),
		"materials":  namedOptions(catalog.Materials()),
		"min_angles": catalog.MinAngles,
		"max_angles": catalog.MaxAngles,
	})
}

func namedOptions(opts []catalog.NamedOption) []presetOption {
	out := make([]presetOption, 0, len(opts))
	for _, o := range opts {
		out = append(out, presetOption{Key: o.Key, Name: o.Name})
	}
	return out
}
