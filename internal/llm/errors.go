package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrMissingAPIKey is returned when a hosted provider is configured
	// without a credential.
	ErrMissingAPIKey = errors.New("llm: missing API key")
	// ErrEmptyResponse is returned when the provider answers with no text.
	ErrEmptyResponse = errors.New("llm: empty response")
)

const maxErrorBody = 512

// HTTPError is a non-2xx answer from a provider. Body is kept for logs and
// never shown to the user.
type HTTPError struct {
	Provider string
	Status   int
	Body     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s HTTP %d: %s", e.Provider, e.Status, e.Body)
}

func newHTTPError(provider string, status int, body string) *HTTPError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &HTTPError{Provider: provider, Status: status, Body: body}
}

// Describe turns a generation failure into a short message fit for display.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return "Generation canceled."
	case errors.Is(err, context.DeadlineExceeded):
		return "The AI service took too long to respond. Try again."
	case errors.Is(err, ErrMissingAPIKey):
		return "Missing API key. Set it in the environment and try again."
	case errors.Is(err, ErrEmptyResponse):
		return "The AI service returned an empty response. Try again."
	case errors.As(err, &httpErr):
		switch {
		case httpErr.Status == 401 || httpErr.Status == 403:
			return "The AI service rejected the API key."
		case httpErr.Status == 429:
			return "The AI service is rate limiting requests. Wait a moment and try again."
		case httpErr.Status >= 500:
			return "The AI service is unavailable right now. Try again later."
		default:
			return fmt.Sprintf("The AI service rejected the request (HTTP %d).", httpErr.Status)
		}
	case errors.As(err, &netErr):
		return "Could not reach the AI service. Check your connection."
	default:
		return "Insight generation failed. Try again."
	}
}
