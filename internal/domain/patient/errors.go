package patient

import (
	"errors"
	"fmt"
)

var (
	// ErrPatientNotFound is returned when no record matches the given id.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrInvalidPatientID is returned when the supplied id is not a UUID.
	// Distinct from not-found so handlers can answer 400 instead of 404.
	ErrInvalidPatientID = errors.New("invalid patient id")

	// ErrDuplicateRecordID is returned when a create collides with an
	// existing external record id.
	ErrDuplicateRecordID = errors.New("record_id already exists")
)

// ValidationError reports the first field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
