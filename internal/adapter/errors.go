package adapter

import (
	"errors"
	"fmt"

	"github.com/compresr/chat-adapter/internal/extract"
)

var (
	// ErrEmptyMessage rejects a request whose message is blank.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNoModel means neither the request nor the configuration names a model.
	ErrNoModel = errors.New("no model requested and none configured")
)

// TransportError is a network failure or a non-success HTTP status.
type TransportError struct {
	URL        string
	StatusCode int    // 0 when the request never got a response
	Body       string // truncated response body for non-success statuses
	Err        error  // underlying network error, if any
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s returned status %d: %s", e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("upstream %s request failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ExhaustedRetriesError is the final failure of an exchange. Last is the
// error from the final attempt: a *TransportError, an *extract.Error, or a
// context error when the caller gave up.
type ExhaustedRetriesError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("exchange failed after %d attempt(s): %v", e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Last }

// IsExtraction reports whether err came from reply extraction.
func IsExtraction(err error) bool {
	var xe *extract.Error
	return errors.As(err, &xe)
}
