package domain

import "context"

// PipelineSource is the port the synchronizer fetches snapshots through.
// The domain does not know whether it is backed by HTTP, a cache, or a fake.
type PipelineSource interface {
	GetPipeline(ctx context.Context, id string) (Pipeline, error)
}
