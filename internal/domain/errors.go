package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Pipeline errors. Service errors carry an optional qualifier so callers
// can tell credential problems from transient ones.
var (
	// ErrInvalidConfiguration indicates bad chunking or retrieval parameters.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnreadableDocument indicates text extraction from the upload failed.
	ErrUnreadableDocument = errors.New("unreadable document")

	// ErrEmbeddingService indicates the embedding backend failed.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrGenerationService indicates the text-generation backend failed.
	ErrGenerationService = errors.New("generation service error")

	// ErrNotReady indicates a query arrived before ingestion completed.
	ErrNotReady = errors.New("session not ready")

	// ErrSessionNotFound indicates an unknown session identifier.
	ErrSessionNotFound = errors.New("session not found")

	// ErrAuthFailed qualifies a service error caused by bad credentials.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited qualifies a service error caused by rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

// WrapStatus attaches the base service error plus the qualifier implied by
// an HTTP status code, keeping the status text in the message.
func WrapStatus(base error, status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: %w", http.StatusText(status), errors.Join(base, ErrAuthFailed))
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", http.StatusText(status), errors.Join(base, ErrRateLimited))
	default:
		return fmt.Errorf("%s: %w", http.StatusText(status), base)
	}
}

// Transient reports whether a failed service call is worth retrying.
// Auth failures and local configuration problems are not.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrInvalidConfiguration) {
		return false
	}
	return errors.Is(err, ErrEmbeddingService) || errors.Is(err, ErrGenerationService)
}

// UserMessage maps an error to actionable guidance for the caller's UI.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthFailed):
		return "Authentication with the AI service failed. Check your API credentials."
	case errors.Is(err, ErrRateLimited):
		return "The AI service is rate limiting requests. Wait a moment and try again."
	case errors.Is(err, ErrInvalidConfiguration):
		return "The pipeline configuration is invalid. Check chunk size and overlap settings."
	case errors.Is(err, ErrUnreadableDocument):
		return "The document could not be read. Make sure it is a valid PDF or text file."
	case errors.Is(err, ErrEmbeddingService):
		return "The embedding service is unavailable. This is usually a transient network issue."
	case errors.Is(err, ErrGenerationService):
		return "The answer-generation service is unavailable. This is usually a transient network issue."
	case errors.Is(err, ErrNotReady):
		return "The document is still being indexed. Try again in a moment."
	case errors.Is(err, ErrSessionNotFound):
		return "No document is loaded for this session. Upload a document first."
	default:
		return err.Error()
	}
}
