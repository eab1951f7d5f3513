package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrFetchFailed matches every error a Source returns when it could not
// produce the workbook bytes.
var ErrFetchFailed = errors.New("sources: fetch failed")

type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

type FetchError struct {
	Source     string
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: fetch failed: %v", e.Source, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s: request failed (%s): %s", e.Source, e.Status, e.Body)
	default:
		return fmt.Sprintf("%s: request failed (%s)", e.Source, e.Status)
	}
}

func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

const maxErrorBody = 256

// Snippet trims an error response body to something printable.
func Snippet(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	return strings.ToValidUTF8(text, "")
}
