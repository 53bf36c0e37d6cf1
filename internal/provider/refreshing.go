package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/prts-dev/pipesync/internal/domain"
)

// AuthExpiredError is returned when both the access token and refresh token are
// invalid, and interactive re-authentication is required.
type AuthExpiredError struct {
	Realm string
	Err   error
}

func (e *AuthExpiredError) Error() string {
	return fmt.Sprintf("%s session expired: re-authentication required", e.Realm)
}

func (e *AuthExpiredError) Unwrap() error { return e.Err }

// RefreshFunc obtains a new access token.
type RefreshFunc func(ctx context.Context) (string, error)

// Refresher transparently handles 401 errors by attempting a silent token
// refresh and retrying the call exactly once. If refresh fails, it returns
// AuthExpiredError.
type Refresher struct {
	realm       string
	refreshFn   RefreshFunc
	updateToken func(string)
}

// NewRefresher creates a Refresher.
// refreshFn is called on 401 to attempt a silent token refresh; returns new access token.
// updateToken is called after successful refresh to inject the new token into the client.
func NewRefresher(realm string, refreshFn RefreshFunc, updateToken func(string)) *Refresher {
	return &Refresher{
		realm:       realm,
		refreshFn:   refreshFn,
		updateToken: updateToken,
	}
}

func (r *Refresher) handleUnauthorized(ctx context.Context, retry func() error) error {
	newToken, refreshErr := r.refreshFn(ctx)
	if refreshErr != nil {
		return &AuthExpiredError{Realm: r.realm, Err: refreshErr}
	}
	r.updateToken(newToken)
	return retry()
}

// Call runs fn and, if it fails with domain.ErrUnauthorized, refreshes the
// token and runs it once more.
func Call[T any](ctx context.Context, r *Refresher, fn func(ctx context.Context) (T, error)) (T, error) {
	result, err := fn(ctx)
	if err != nil && errors.Is(err, domain.ErrUnauthorized) {
		var retryResult T
		retryErr := r.handleUnauthorized(ctx, func() error {
			var e error
			retryResult, e = fn(ctx)
			return e
		})
		if retryErr != nil {
			var zero T
			return zero, retryErr
		}
		return retryResult, nil
	}
	return result, err
}

// RefreshingSource wraps a PipelineSource with a Refresher.
type RefreshingSource struct {
	inner     domain.PipelineSource
	refresher *Refresher
}

// Ensure RefreshingSource implements PipelineSource.
var _ domain.PipelineSource = (*RefreshingSource)(nil)

// NewRefreshingSource creates a RefreshingSource.
func NewRefreshingSource(inner domain.PipelineSource, refresher *Refresher) *RefreshingSource {
	return &RefreshingSource{inner: inner, refresher: refresher}
}

func (rs *RefreshingSource) GetPipeline(ctx context.Context, id string) (domain.Pipeline, error) {
	return Call(ctx, rs.refresher, func(ctx context.Context) (domain.Pipeline, error) {
		return rs.inner.GetPipeline(ctx, id)
	})
}
