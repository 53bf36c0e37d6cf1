package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/prts-dev/pipesync/internal/domain"
)

// Ensure Client can feed the synchronizer directly.
var _ domain.PipelineSource = (*Client)(nil)

// GetPipelines returns all pipelines visible to the session.
func (c *Client) GetPipelines(ctx context.Context) ([]domain.Pipeline, error) {
	return Request[[]domain.Pipeline](ctx, c, http.MethodGet, "pipelines", nil)
}

// GetPipeline returns a single pipeline with its stages.
func (c *Client) GetPipeline(ctx context.Context, id string) (domain.Pipeline, error) {
	return Request[domain.Pipeline](ctx, c, http.MethodGet, "pipelines/"+url.PathEscape(id), nil)
}

// TriggerPipeline starts a new run of the pipeline.
func (c *Client) TriggerPipeline(ctx context.Context, id string) (domain.Pipeline, error) {
	return Request[domain.Pipeline](ctx, c, http.MethodPost, "pipelines/"+url.PathEscape(id)+"/trigger", nil)
}

// CancelPipeline cancels a running or pending pipeline.
func (c *Client) CancelPipeline(ctx context.Context, id string) (domain.Pipeline, error) {
	return Request[domain.Pipeline](ctx, c, http.MethodPost, "pipelines/"+url.PathEscape(id)+"/cancel", nil)
}

// RetryPipeline creates a new run from a failed or cancelled one.
func (c *Client) RetryPipeline(ctx context.Context, id string) (domain.Pipeline, error) {
	return Request[domain.Pipeline](ctx, c, http.MethodPost, "pipelines/"+url.PathEscape(id)+"/retry", nil)
}

// GetAlerts returns current alerts.
func (c *Client) GetAlerts(ctx context.Context) ([]domain.AlertItem, error) {
	return Request[[]domain.AlertItem](ctx, c, http.MethodGet, "alerts", nil)
}

// AcknowledgeAlert marks an alert acknowledged and returns the updated alert.
func (c *Client) AcknowledgeAlert(ctx context.Context, id string) (domain.AlertItem, error) {
	return Request[domain.AlertItem](ctx, c, http.MethodPost, "alerts/"+url.PathEscape(id)+"/acknowledge", nil)
}

// GetProjects returns all projects.
func (c *Client) GetProjects(ctx context.Context) ([]domain.Project, error) {
	return Request[[]domain.Project](ctx, c, http.MethodGet, "projects", nil)
}

// CreateProject creates a project and returns the server's copy.
func (c *Client) CreateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	return Request[domain.Project](ctx, c, http.MethodPost, "projects", p)
}

// GetMetrics returns the current platform metrics.
func (c *Client) GetMetrics(ctx context.Context) (domain.Metrics, error) {
	return Request[domain.Metrics](ctx, c, http.MethodGet, "monitoring/metrics", nil)
}

type pushTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// RegisterPushToken sends the device push token to the backend.
func (c *Client) RegisterPushToken(ctx context.Context, token, platform string) error {
	return c.Do(ctx, http.MethodPost, "push/register", pushTokenRequest{Token: token, Platform: platform}, &EmptyResponse{})
}
