package domain

// UploadRef points at an uploaded input image persisted in storage. The API
// writes the bytes before enqueueing; the worker reads them back by key.
type UploadRef struct {
	Role ImageRole `json:"role"`
	Key  string    `json:"key"`
	MIME string    `json:"mime"`
}

// JobPayload is the JSON document stored in a design job's inputs column. It
// is the complete contract between the API and the worker: resolved design
// choices, scene choices, and references to the uploaded images.
type JobPayload struct {
	Inputs  DesignInputs `json:"inputs"`
	Scene   SceneInputs  `json:"scene"`
	Uploads []UploadRef  `json:"uploads,omitempty"`
}
