package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prts-dev/pipesync/internal/domain"
)

// ErrInvalidResponse is returned when the transport does not yield a classifiable
// HTTP response. The underlying transport error, if any, is wrapped alongside it.
var ErrInvalidResponse = errors.New("invalid response")

// HTTPError is returned for any status outside 200-299.
// The response body is not inspected.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("api error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap lets errors.Is(err, domain.ErrUnauthorized) match a 401.
func (e *HTTPError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return domain.ErrUnauthorized
	}
	return nil
}

// DecodingError is returned when the response body does not parse as the target type.
type DecodingError struct {
	Err error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decoding response: %v", e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status carried by err, or 0 if err is not an HTTPError.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
