package models

import (
	"encoding/json"
	"time"
)

// Draft is an autosaved, not yet submitted form (e.g. a new product).
type Draft struct {
	Form    string          `json:"form"`
	Payload json.RawMessage `json:"payload"`
	Media   []string        `json:"media,omitempty"`
	SavedAt time.Time       `json:"savedAt"`
}

type SaveDraftRequest struct {
	Payload json.RawMessage `json:"payload" binding:"required"`
}

type MediaUploadRequest struct {
	Filename    string `json:"filename" binding:"required,max=255"`
	ContentType string `json:"contentType" binding:"required"`
}

// MediaUpload is a presigned PUT target for product media.
type MediaUpload struct {
	URL       string            `json:"url"`
	Key       string            `json:"key"`
	Headers   map[string]string `json:"headers,omitempty"`
	ExpiresIn int64             `json:"expiresIn"`
}
