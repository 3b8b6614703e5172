package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"anglestudio/internal/catalog"
	"anglestudio/internal/domain"
	"anglestudio/internal/middleware"
	"anglestudio/internal/storage"
	"anglestudio/pkg/zip"
)

const (
	maxUploadBytes = 8 << 20  // per file
	maxFormBytes   = 32 << 20 // whole multipart body
)

var uploadMIMEExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

type enqueueResponse struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Angles    []string  `json:"angles"`
	CreatedAt time.Time `json:"created_at"`
}

// DesignsCreate accepts a multipart design request, persists the uploads, and
// enqueues a generation job. The response is 202: generation happens in the
// worker, clients poll the status endpoint.
func (a *App) DesignsCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}

	inputs, err := catalog.ResolveInputs(domain.DesignInputs{
		Category:    r.FormValue("category"),
		Theme:       r.FormValue("theme"),
		Style:       r.FormValue("style"),
		Color:       r.FormValue("color"),
		Material:    r.FormValue("material"),
		Description: r.FormValue("description"),
	})
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_inputs", err.Error())
		return
	}

	angles := splitAngles(r.FormValue("angles"))
	if len(angles) == 0 {
		angles = catalog.DefaultAngles(inputs.Category)
	}
	if err := catalog.ValidateAngles(angles); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_angles", err.Error())
		return
	}

	// Uploads are persisted in the order the pipeline consumes them:
	// template, then reference, then logo.
	uploadGroup := uuid.NewString()
	uploads := make([]domain.UploadRef, 0, 3)
	for _, role := range []domain.ImageRole{domain.ImageRoleTemplate, domain.ImageRoleReference, domain.ImageRoleLogo} {
		ref, ok, err := a.saveUpload(r, uploadGroup, role)
		if err != nil {
			a.error(w, http.StatusBadRequest, "invalid_upload", err.Error())
			return
		}
		if ok {
			uploads = append(uploads, ref)
		}
	}
	for _, ref := range uploads {
		switch ref.Role {
		case domain.ImageRoleReference:
			inputs.HasReference = true
		case domain.ImageRoleLogo:
			inputs.HasLogo = true
		}
	}

	locale := middleware.LocaleFromContext(r.Context())
	payload := domain.JobPayload{
		Inputs: inputs,
		Scene: domain.SceneInputs{
			Environment: strings.TrimSpace(r.FormValue("environment")),
			ModelStyle:  strings.TrimSpace(r.FormValue("model_style")),
			Lighting:    strings.TrimSpace(r.FormValue("lighting")),
			Locale:      locale,
		},
		Uploads: uploads,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to encode job payload")
		return
	}

	jobID, createdAt, err := a.Jobs.Enqueue(r.Context(), payloadBytes, angles, locale)
	if err != nil {
		a.Logger.Error().Err(err).Msg("designs: enqueue failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue job")
		return
	}

	a.json(w, http.StatusAccepted, enqueueResponse{
		JobID:     jobID,
		Status:    string(domain.DesignJobQueued),
		Angles:    angles,
		CreatedAt: createdAt,
	})
}

// loadJob validates the id path parameter and fetches the job, writing the
// error response itself on failure. Validating the uuid up front keeps
// malformed ids from surfacing as Postgres cast errors.
func (a *App) loadJob(w http.ResponseWriter, r *http.Request) (domain.DesignJob, bool) {
	jobID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(jobID); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "job id must be a uuid")
		return domain.DesignJob{}, false
	}
	job, err := a.Jobs.Get(r.Context(), jobID)
	if errors.Is(err, domain.ErrNotFound) {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return domain.DesignJob{}, false
	}
	if err != nil {
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("designs: job lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return domain.DesignJob{}, false
	}
	return job, true
}

// DesignStatus returns the job's lifecycle record. Repeat polls are served
// from the status store's cache.
func (a *App) DesignStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := a.loadJob(w, r)
	if !ok {
		return
	}
	resp := map[string]any{
		"id":         job.ID,
		"status":     job.Status,
		"angles":     job.Angles,
		"locale":     job.Locale,
		"created_at": job.CreatedAt,
		"updated_at": job.UpdatedAt,
	}
	if job.ErrorMessage != "" {
		resp["error_message"] = job.ErrorMessage
	}
	a.json(w, http.StatusOK, resp)
}

// DesignAngles lists the generated angle records for a job, in request order.
// Failed angles appear with a fail_reason instead of a storage key.
func (a *App) DesignAngles(w http.ResponseWriter, r *http.Request) {
	job, ok := a.loadJob(w, r)
	if !ok {
		return
	}
	assets, err := a.Jobs.ListAssets(r.Context(), job.ID)
	if err != nil {
		a.Logger.Error().Err(err).Str("job_id", job.ID).Msg("designs: list angles failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load angles")
		return
	}
	items := make([]map[string]any, 0, len(assets))
	for _, asset := range assets {
		item := map[string]any{
			"id":         asset.ID,
			"angle":      asset.Angle,
			"created_at": asset.CreatedAt,
		}
		if asset.FailReason != "" {
			item["fail_reason"] = asset.FailReason
		} else {
			item["storage_key"] = asset.StorageKey
			item["mime"] = asset.MIME
			item["size_bytes"] = asset.SizeBytes
		}
		items = append(items, item)
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// DesignDownload bundles the job's successfully generated angle images into a
// zip archive. Failed angles are simply absent from the bundle.
func (a *App) DesignDownload(w http.ResponseWriter, r *http.Request) {
	job, ok := a.loadJob(w, r)
	if !ok {
		return
	}
	assets, err := a.Jobs.ListAssets(r.Context(), job.ID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load angles")
		return
	}

	var entries []zip.Entry
	for _, asset := range assets {
		if asset.FailReason != "" || asset.StorageKey == "" {
			continue
		}
		data, err := a.Store.Read(r.Context(), asset.StorageKey)
		if err != nil {
			a.Logger.Warn().Err(err).Str("job_id", job.ID).Str("angle", asset.Angle).Msg("designs: read angle image failed")
			continue
		}
		entries = append(entries, zip.Entry{
			Filename: fmt.Sprintf("%s%s", asset.Angle, extensionFor(asset.MIME)),
			Data:     data,
		})
	}
	if len(entries) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no generated images for this job")
		return
	}
	archive, err := zip.Archive(entries)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=design-%s.zip", job.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// saveUpload reads one named multipart file, validates its type and size, and
// writes it into storage. The boolean reports whether the field was present.
func (a *App) saveUpload(r *http.Request, group string, role domain.ImageRole) (domain.UploadRef, bool, error) {
	file, header, err := r.FormFile(string(role))
	if errors.Is(err, http.ErrMissingFile) {
		return domain.UploadRef{}, false, nil
	}
	if err != nil {
		return domain.UploadRef{}, false, fmt.Errorf("read %s upload: %w", role, err)
	}
	defer file.Close()

	mime := uploadMIME(header)
	ext, ok := uploadMIMEExtensions[mime]
	if !ok {
		return domain.UploadRef{}, false, fmt.Errorf("%s upload: unsupported type %q", role, mime)
	}
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return domain.UploadRef{}, false, fmt.Errorf("read %s upload: %w", role, err)
	}
	if len(data) == 0 {
		return domain.UploadRef{}, false, fmt.Errorf("%s upload is empty", role)
	}
	if len(data) > maxUploadBytes {
		return domain.UploadRef{}, false, fmt.Errorf("%s upload exceeds %d bytes", role, maxUploadBytes)
	}

	key, err := a.Store.Write(r.Context(), storage.UploadKey(group, string(role), ext), data)
	if err != nil {
		return domain.UploadRef{}, false, fmt.Errorf("persist %s upload: %w", role, err)
	}
	return domain.UploadRef{Role: role, Key: key, MIME: mime}, true, nil
}

func uploadMIME(header *multipart.FileHeader) string {
	mime := strings.TrimSpace(strings.ToLower(header.Header.Get("Content-Type")))
	if idx := strings.IndexByte(mime, ';'); idx > 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if mime == "image/jpg" {
		mime = "image/jpeg"
	}
	return mime
}

func splitAngles(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func extensionFor(mime string) string {
	if ext, ok := uploadMIMEExtensions[strings.ToLower(strings.TrimSpace(mime))]; ok {
		return ext
	}
	return ".png"
}
