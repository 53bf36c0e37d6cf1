package provider_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prts-dev/pipesync/internal/domain"
	"github.com/prts-dev/pipesync/internal/provider"
)

// failOnceSource returns firstErr on the first GetPipeline call and resp afterwards.
type failOnceSource struct {
	calls    int
	firstErr error
	resp     domain.Pipeline
}

func (f *failOnceSource) GetPipeline(_ context.Context, _ string) (domain.Pipeline, error) {
	f.calls++
	if f.calls == 1 && f.firstErr != nil {
		return domain.Pipeline{}, f.firstErr
	}
	return f.resp, nil
}

// alwaysFailSource returns err on every call.
type alwaysFailSource struct {
	calls int
	err   error
}

func (a *alwaysFailSource) GetPipeline(_ context.Context, _ string) (domain.Pipeline, error) {
	a.calls++
	return domain.Pipeline{}, a.err
}

func noRefresh(_ context.Context) (string, error) { return "", nil }

func TestRefreshingSource_PassesThroughOnSuccess(t *testing.T) {
	inner := &failOnceSource{resp: domain.Pipeline{ID: "1"}}
	rs := provider.NewRefreshingSource(inner, provider.NewRefresher("api", noRefresh, func(string) {}))

	result, err := rs.GetPipeline(context.Background(), "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ID != "1" {
		t.Errorf("unexpected result: %v", result)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call, got %d", inner.calls)
	}
}

func TestRefreshingSource_PassesThroughNon401Errors(t *testing.T) {
	inner := &alwaysFailSource{err: fmt.Errorf("network timeout")}
	refreshCalled := false
	rs := provider.NewRefreshingSource(inner, provider.NewRefresher("api",
		func(context.Context) (string, error) {
			refreshCalled = true
			return "", nil
		},
		func(string) {},
	))

	_, err := rs.GetPipeline(context.Background(), "1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Error() != "network timeout" {
		t.Errorf("expected 'network timeout', got: %v", err)
	}
	if refreshCalled {
		t.Error("refresh must not run for non-401 errors")
	}
}

func TestRefreshingSource_RefreshesAndRetriesOn401(t *testing.T) {
	inner := &failOnceSource{
		firstErr: fmt.Errorf("api error: 401 Unauthorized: %w", domain.ErrUnauthorized),
		resp:     domain.Pipeline{ID: "refreshed"},
	}

	refreshCalled := false
	tokenUpdated := ""
	rs := provider.NewRefreshingSource(inner, provider.NewRefresher("api",
		func(context.Context) (string, error) {
			refreshCalled = true
			return "new-token", nil
		},
		func(token string) { tokenUpdated = token },
	))

	result, err := rs.GetPipeline(context.Background(), "refreshed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !refreshCalled {
		t.Error("expected refresh to be called")
	}
	if tokenUpdated != "new-token" {
		t.Errorf("expected token 'new-token', got '%s'", tokenUpdated)
	}
	if result.ID != "refreshed" {
		t.Errorf("expected refreshed pipeline, got: %v", result)
	}
	if inner.calls != 2 {
		t.Errorf("expected exactly 2 calls, got %d", inner.calls)
	}
}

func TestRefreshingSource_RetriesOnlyOnce(t *testing.T) {
	inner := &alwaysFailSource{err: fmt.Errorf("api error: %w", domain.ErrUnauthorized)}
	rs := provider.NewRefreshingSource(inner, provider.NewRefresher("api",
		func(context.Context) (string, error) { return "new-token", nil },
		func(string) {},
	))

	_, err := rs.GetPipeline(context.Background(), "1")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized after retry, got %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected exactly 2 calls, got %d", inner.calls)
	}
}

func TestRefreshingSource_ReturnsAuthExpiredWhenRefreshFails(t *testing.T) {
	inner := &alwaysFailSource{err: fmt.Errorf("api error: %w", domain.ErrUnauthorized)}
	rs := provider.NewRefreshingSource(inner, provider.NewRefresher("api",
		func(context.Context) (string, error) {
			return "", fmt.Errorf("refresh token revoked")
		},
		func(string) {},
	))

	_, err := rs.GetPipeline(context.Background(), "1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var authErr *provider.AuthExpiredError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthExpiredError, got: %T %v", err, err)
	}
	if authErr.Realm != "api" {
		t.Errorf("expected realm 'api', got '%s'", authErr.Realm)
	}
}

func TestCall_GenericRetry(t *testing.T) {
	calls := 0
	r := provider.NewRefresher("api",
		func(context.Context) (string, error) { return "t", nil },
		func(string) {},
	)
	got, err := provider.Call(context.Background(), r, func(context.Context) ([]string, error) {
		calls++
		if calls == 1 {
			return nil, domain.ErrUnauthorized
		}
		return []string{"a", "b"}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 items, got %d", len(got))
	}
}
