package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// ImageRef describes one image served by the labeling API
type ImageRef struct {
	DisplayURL string `json:"displayUrl"`
	BlobPath   string `json:"blobPath"`
}

// ImageSet is the payload of GET /api/image-set
type ImageSet struct {
	MainImage *ImageRef           `json:"mainImage"`
	Choices   map[string]ImageRef `json:"choices"`
}

// ImagePair is the payload of GET /api/two-image-pair
type ImagePair struct {
	Images  []ImageRef `json:"images"`
	Options []string   `json:"options"`
}

// SingleLabel is posted to /api/submit-single-label
type SingleLabel struct {
	Username      string `json:"username"`
	MainImageBlob string `json:"mainImageBlob"`
	Choice        string `json:"choice"`
}

// PairLabel is posted to /api/submit-pair-label
type PairLabel struct {
	Username   string   `json:"username"`
	Choice     string   `json:"choice"`
	ImagePaths []string `json:"imagePaths"`
}

// SubmitResult is the decoded response of either submit endpoint.
// Correct is nil unless the backend sent a JSON boolean.
type SubmitResult struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Correct *bool  `json:"correct,omitempty"`
}

func (r *SubmitResult) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = SubmitResult{}
	if v, ok := raw["status"]; ok {
		_ = json.Unmarshal(v, &r.Status)
	}
	if v, ok := raw["message"]; ok {
		_ = json.Unmarshal(v, &r.Message)
	}
	if v, ok := raw["correct"]; ok {
		switch string(bytes.TrimSpace(v)) {
		case "true":
			t := true
			r.Correct = &t
		case "false":
			f := false
			r.Correct = &f
		}
	}
	return nil
}

// Identity is the signed-in user as reported by the identity provider
type Identity struct {
	Subject     string `json:"sub,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Label is the name sent upstream with every submission.
func (i *Identity) Label() string {
	if i == nil {
		return "anonymous"
	}
	if i.DisplayName != "" {
		return i.DisplayName
	}
	if i.Email != "" {
		return i.Email
	}
	return "anonymous"
}

// LabelRecord is one finalized submission as kept in the local journal
type LabelRecord struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"sessionId"`
	Mode      string    `json:"mode"` // "single" | "pair"
	Username  string    `json:"username"`
	BlobPaths []string  `json:"blobPaths"`
	Choice    string    `json:"choice"`
	Correct   *bool     `json:"correct,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
