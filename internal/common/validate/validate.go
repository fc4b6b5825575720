package validate

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/frotalog/registro/internal/common/dto"
)

var v = validator.New()

// Struct runs the shared validator instance over tagged struct fields.
func Struct(s any) error {
	return v.Struct(s)
}

// PushRequest checks the structural shape of a push body before any database
// access: a non-empty changes map whose rows all carry a string id. It does
// not look at entity-specific fields; those are a per-row concern during the
// push transaction.
func PushRequest(req *dto.PushRequest) error {
	if err := v.Struct(req); err != nil {
		return err
	}
	if len(req.Changes) == 0 {
		return fmt.Errorf("changes must not be empty")
	}
	for table, tc := range req.Changes {
		for _, row := range tc.Created {
			if row.ID() == "" {
				return fmt.Errorf("table %s: created row without id", table)
			}
		}
		for _, row := range tc.Updated {
			if row.ID() == "" {
				return fmt.Errorf("table %s: updated row without id", table)
			}
		}
		for _, id := range tc.Deleted {
			if id == "" {
				return fmt.Errorf("table %s: empty deleted id", table)
			}
		}
	}
	return nil
}

// PullWatermark parses the lastPulledAt query parameter. An absent parameter
// means "first sync" and yields nil.
func PullWatermark(raw string) (*int64, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("lastPulledAt must be an integer: %w", err)
	}
	if ms < 0 {
		return nil, fmt.Errorf("lastPulledAt must not be negative")
	}
	return &ms, nil
}
