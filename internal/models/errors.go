// ABOUTME: Error taxonomy for ingestion, external services, and quiz submission
// ABOUTME: Every error names the document, service, or field it concerns
package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyDocument is matched by EmptyDocumentError via errors.Is
var ErrEmptyDocument = errors.New("document is empty")

// EmptyDocumentError is returned when a document has no text after normalization
type EmptyDocumentError struct {
	Document string
}

func (e *EmptyDocumentError) Error() string {
	return fmt.Sprintf("document %q has no text after whitespace normalization", e.Document)
}

func (e *EmptyDocumentError) Is(target error) bool {
	return target == ErrEmptyDocument
}

// UnsupportedFormatError is returned for files the ingestion layer cannot read
type UnsupportedFormatError struct {
	Document string
	Format   string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("document %q: unsupported format %q", e.Document, e.Format)
}

// IngestionError scopes a failure to the one document that caused it
type IngestionError struct {
	Document string
	Err      error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("skipped document %q: %v", e.Document, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// ServiceReason distinguishes external-service failures
type ServiceReason string

const (
	ReasonUnavailable     ServiceReason = "unavailable"
	ReasonUnauthenticated ServiceReason = "unauthenticated"
	ReasonRateLimited     ServiceReason = "rate_limited"
	ReasonTimeout         ServiceReason = "timeout"
	ReasonBadResponse     ServiceReason = "bad_response"
)

// EmbeddingServiceError is returned when the embedding provider fails
type EmbeddingServiceError struct {
	Provider string
	Reason   ServiceReason
	Err      error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding service %s: %s: %v", e.Provider, e.Reason, e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error {
	return e.Err
}

// GenerationServiceError is returned when the generation provider fails
type GenerationServiceError struct {
	Provider string
	Reason   ServiceReason
	Err      error
}

func (e *GenerationServiceError) Error() string {
	return fmt.Sprintf("generation service %s: %s: %v", e.Provider, e.Reason, e.Err)
}

func (e *GenerationServiceError) Unwrap() error {
	return e.Err
}

// GenerationTimeoutError is returned when a generation call exceeds its bounded wait
type GenerationTimeoutError struct {
	Provider string
	Timeout  time.Duration
}

func (e *GenerationTimeoutError) Error() string {
	return fmt.Sprintf("generation service %s did not respond within %s", e.Provider, e.Timeout)
}

// IsRetryable reports whether an error is a transient rate-limit signal
func IsRetryable(err error) bool {
	var embErr *EmbeddingServiceError
	if errors.As(err, &embErr) {
		return embErr.Reason == ReasonRateLimited
	}
	var genErr *GenerationServiceError
	if errors.As(err, &genErr) {
		return genErr.Reason == ReasonRateLimited
	}
	return false
}

// InvalidRequestError rejects a malformed request before any work is done
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UnknownQuestionError is returned when submitted answers name a question not in the quiz
type UnknownQuestionError struct {
	QuizID     string
	QuestionID string
}

func (e *UnknownQuestionError) Error() string {
	return fmt.Sprintf("quiz %s has no question %q", e.QuizID, e.QuestionID)
}

// QuizNotFoundError is returned when a submission targets a quiz the session no longer holds
type QuizNotFoundError struct {
	QuizID string
}

func (e *QuizNotFoundError) Error() string {
	return fmt.Sprintf("quiz %q is not the session's current quiz", e.QuizID)
}
