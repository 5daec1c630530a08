package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/grid-ingest/internal/parser"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrInvalidRequest is returned for fetch requests that cannot be run.
var ErrInvalidRequest = errors.New("invalid fetch request")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Request asks for one kind of data for one zone or exchange. At most one of
// TargetDatetime and the Start/End range is set; neither means "latest".
type Request struct {
	ID             string      `json:"id,omitempty"`
	Kind           parser.Kind `json:"kind" validate:"required"`
	Key            string      `json:"key" validate:"required"`
	TargetDatetime *time.Time  `json:"target_datetime,omitempty" validate:"excluded_with=Start End"`
	Start          *time.Time  `json:"start,omitempty" validate:"required_with=End"`
	End            *time.Time  `json:"end,omitempty" validate:"required_with=Start"`
}

// ParseRequest decodes and validates a fetch request. A missing id is filled
// with a random UUID.
func ParseRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	return req, nil
}

// Validate checks field presence, the kind and the datetime combination.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if _, err := parser.ParseKind(string(r.Kind)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if r.Start != nil && r.End.Before(*r.Start) {
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidRequest,
			r.End.Format(time.RFC3339), r.Start.Format(time.RFC3339))
	}
	return nil
}
