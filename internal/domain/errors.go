package domain

import "errors"

// ErrUnauthorized is matched by API errors carrying HTTP 401.
// Callers can check for it using errors.Is to trigger token refresh or re-auth.
var ErrUnauthorized = errors.New("unauthorized")
