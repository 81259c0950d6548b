// Package fiscalerror defines the error taxonomy shared by the classifier and
// the batch organizer.
package fiscalerror

import (
	"errors"
	"fmt"
)

// ErrEmptyContent marks a document that has no bytes to inspect.
var ErrEmptyContent = errors.New("empty content")

// PreconditionError is returned when a run cannot start at all.
// It is the only error that aborts a whole organize run.
type PreconditionError struct {
	Field  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed for %s: %s", e.Field, e.Reason)
}

// UnreadableDocumentError represents an empty or unparseable .xml/.txt document.
// The document is skipped and reported; the run continues.
type UnreadableDocumentError struct {
	Name   string
	Reason string
	Err    error
}

func (e *UnreadableDocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unreadable document '%s': %s: %v", e.Name, e.Reason, e.Err)
	}
	return fmt.Sprintf("unreadable document '%s': %s", e.Name, e.Reason)
}

func (e *UnreadableDocumentError) Unwrap() error {
	return e.Err
}

// ArchiveExpansionError represents a .zip upload that could not be opened.
// It is handled exactly like UnreadableDocumentError.
type ArchiveExpansionError struct {
	Name string
	Err  error
}

func (e *ArchiveExpansionError) Error() string {
	return fmt.Sprintf("failed to expand archive '%s': %v", e.Name, e.Err)
}

func (e *ArchiveExpansionError) Unwrap() error {
	return e.Err
}

// ClassificationError represents a failure inside one classification step.
// The classifier logs it and moves on to the next step.
type ClassificationError struct {
	Name     string
	Strategy string
	Err      error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification of %s failed in %s: %v", e.Name, e.Strategy, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// IsPrecondition reports whether err is (or wraps) a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// IsSkippable reports whether err only affects a single document.
func IsSkippable(err error) bool {
	var ue *UnreadableDocumentError
	var ae *ArchiveExpansionError
	return errors.As(err, &ue) || errors.As(err, &ae)
}
