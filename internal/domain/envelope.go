package domain

import "fmt"

// APIError is the error body of an APIResponse envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// APIResponse is the optional success/data/error envelope some endpoints use.
// The API client does not enforce it; callers decode into it when they expect one.
type APIResponse[T any] struct {
	Success bool      `json:"success"`
	Data    *T        `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// Result unwraps the envelope.
func (r APIResponse[T]) Result() (T, error) {
	var zero T
	if r.Error != nil {
		return zero, r.Error
	}
	if !r.Success {
		return zero, fmt.Errorf("request was not successful")
	}
	if r.Data == nil {
		return zero, fmt.Errorf("response carries no data")
	}
	return *r.Data, nil
}
