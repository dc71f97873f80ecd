package domain

import "errors"

// Stage errors. Components wrap the underlying cause with one of these so
// front ends can decide how to present a failure with errors.Is.
var (
	ErrNoDocument    = errors.New("no document uploaded")
	ErrNoText        = errors.New("no text could be extracted from the document")
	ErrExtraction    = errors.New("error reading document")
	ErrIndexBuild    = errors.New("failed to build index")
	ErrNoIndex       = errors.New("no document processed yet")
	ErrEmptyQuestion = errors.New("question is empty")
	ErrRetrieval     = errors.New("failed to search index")
	ErrGeneration    = errors.New("failed to generate answer")
)

// IsWarning reports whether err is a user mistake rather than a failure.
func IsWarning(err error) bool {
	return errors.Is(err, ErrNoIndex) || errors.Is(err, ErrNoDocument) || errors.Is(err, ErrEmptyQuestion)
}
