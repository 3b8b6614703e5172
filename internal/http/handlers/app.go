// Package handlers contains the HTTP handlers for the design generation API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"anglestudio/internal/infra"
	"anglestudio/internal/status"
	"anglestudio/internal/storage"
)

// App is the handler container: every handler hangs off it and shares the same
// dependencies.
type App struct {
	Config *infra.Config
	Jobs   *status.Store
	Store  *storage.FileStore
	Logger zerolog.Logger
}

func NewApp(cfg *infra.Config, jobs *status.Store, store *storage.FileStore, logger zerolog.Logger) *App {
	return &App{Config: cfg, Jobs: jobs, Store: store, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}
