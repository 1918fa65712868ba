package core

import "errors"

// Common errors.
var (
	// ErrCorruptDocument is returned when an existing lineage file cannot be
	// parsed. Save never overwrites such a file.
	ErrCorruptDocument  = errors.New("corrupt lineage document")
	ErrDocumentNotFound = errors.New("lineage document not found")
	ErrEmptyLineageID   = errors.New("lineage id cannot be empty")
	ErrUnknownKind      = errors.New("unknown event kind")
)
