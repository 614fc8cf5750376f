package task

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// EmbeddingPayload is the payload of a GenerateEmbedding job.
type EmbeddingPayload struct {
	ItemID  int64  `json:"item_id"  validate:"gt=0"`
	Content string `json:"content"  validate:"required"`
	BoardID int64  `json:"board_id" validate:"gt=0"`
}

// ImagePayload is the payload of a ProcessImage job.
type ImagePayload struct {
	ItemID   int64  `json:"item_id"   validate:"gt=0"`
	ImageURL string `json:"image_url" validate:"required,url"`
	BoardID  int64  `json:"board_id"  validate:"gt=0"`
}

// ClusterPayload is the payload of a ClusterBoard job.
type ClusterPayload struct {
	BoardID int64 `json:"board_id" validate:"gt=0"`
}

// decodePayload unmarshals and validates job.Payload into v. Failures are
// permanent: redelivering a malformed job cannot fix it.
func decodePayload(job *Job, v any) error {
	if err := json.Unmarshal(job.Payload, v); err != nil {
		return Permanent(fmt.Errorf("%w: %s: %v", ErrInvalidPayload, job.Type, err))
	}
	if err := validate.Struct(v); err != nil {
		return Permanent(fmt.Errorf("%w: %s: %v", ErrInvalidPayload, job.Type, err))
	}
	return nil
}

// validatePayload checks a payload before it is enqueued.
func validatePayload(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
