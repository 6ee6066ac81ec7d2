package directory

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("not found")

// Directory names used in diagnostics.
const (
	SourceCloud = "cloud"
	SourceLocal = "local"
)

// NotFoundError means a principal is absent from one of the directories.
type NotFoundError struct {
	Source        string
	PrincipalName string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s directory: principal %q not found", e.Source, e.PrincipalName)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// WriteError is returned when the local directory rejects an attribute or
// manager-link write.
type WriteError struct {
	PrincipalName string
	DN            string
	Err           error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write to %s (%s) rejected: %v", e.DN, e.PrincipalName, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// MappingError reports a country text with no entry in the country table.
type MappingError struct {
	Country string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("unrecognized country %q", e.Country)
}

// CrossReferenceError is returned when pushing the immutable identifier to
// the cloud record fails.
type CrossReferenceError struct {
	PrincipalName string
	Err           error
}

func (e *CrossReferenceError) Error() string {
	return fmt.Sprintf("immutable id push for %s failed: %v", e.PrincipalName, e.Err)
}

func (e *CrossReferenceError) Unwrap() error { return e.Err }

// MissingInputError is returned when a required input record is absent.
type MissingInputError struct {
	Field string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing required input: %s", e.Field)
}
