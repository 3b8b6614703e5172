package domain

import (
	"strings"
	"time"
)

// ImageRole identifies the purpose of an uploaded input image.
type ImageRole string

const (
	ImageRoleTemplate  ImageRole = "template"
	ImageRoleReference ImageRole = "reference"
	ImageRoleLogo      ImageRole = "logo"
)

// InputImage is an uploaded image handed to the generation pipeline. Order
// matters when images are sent to the model: template, then reference, then
// logo.
type InputImage struct {
	Data []byte
	MIME string
	Role ImageRole
}

// ImagePayload is a generated image as returned by the model.
type ImagePayload struct {
	Data []byte
	MIME string
}

// CustomPrefix marks a user-supplied value instead of a preset token. Multiple
// values may be joined with '+', e.g. "custom:burgundy+gold".
const CustomPrefix = "custom:"

// DesignInputs captures the structured design choices for one request. Fields
// hold either a preset token or a "custom:" value; the catalog resolves both
// to effective display values before the pipeline sees them.
type DesignInputs struct {
	Category     string `json:"category"`
	Theme        string `json:"theme"`
	Style        string `json:"style"`
	Color        string `json:"color"`
	Material     string `json:"material"`
	Description  string `json:"description"`
	HasReference bool   `json:"has_reference"`
	HasLogo      bool   `json:"has_logo"`
}

// SceneInputs captures the optional scene and presentation choices.
type SceneInputs struct {
	Environment string `json:"environment"`
	ModelStyle  string `json:"model_style"`
	Lighting    string `json:"lighting"`
	Locale      string `json:"locale"`
}

// EffectiveValue strips the custom prefix when present and returns the value
// the prompts should carry verbatim.
func EffectiveValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, CustomPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(v, CustomPrefix))
	}
	return v
}

// SplitValues breaks a resolved field into its individual descriptors.
// "burgundy+gold" becomes ["burgundy", "gold"].
func SplitValues(v string) []string {
	v = EffectiveValue(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, "+")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// AngleResult pairs an angle label with either generated image bytes or a
// terminal failure reason. Exactly one of Image and FailureReason is set.
type AngleResult struct {
	Angle         string
	Image         []byte
	MIME          string
	FailureReason string
}

// Failed reports whether this angle carries a failure marker.
func (r AngleResult) Failed() bool {
	return r.FailureReason != ""
}

// DesignJobStatus enumerates design job lifecycle states.
type DesignJobStatus string

const (
	DesignJobQueued    DesignJobStatus = "QUEUED"
	DesignJobRunning   DesignJobStatus = "RUNNING"
	DesignJobSucceeded DesignJobStatus = "SUCCEEDED"
	DesignJobPartial   DesignJobStatus = "PARTIAL"
	DesignJobFailed    DesignJobStatus = "FAILED"
)

// DesignJob is the persisted lifecycle record for one multi-angle request.
type DesignJob struct {
	ID           string
	Status       DesignJobStatus
	InputsJSON   []byte
	Angles       []string
	Locale       string
	DebugNotes   string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AngleAsset is the persisted record of one generated angle image.
type AngleAsset struct {
	ID         string
	JobID      string
	Angle      string
	StorageKey string
	MIME       string
	SizeBytes  int64
	FailReason string
	CreatedAt  time.Time
}
