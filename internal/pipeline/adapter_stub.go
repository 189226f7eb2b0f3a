package pipeline

import (
	"context"
	"image"
)

// stubAdapter echoes the init image back, matching the behavior of the
// service's pre-model revisions. Used in tests and when no backend is
// configured with --stub.
type stubAdapter struct{}

// NewStubAdapter constructs an echo adapter.
func NewStubAdapter() Adapter { return stubAdapter{} }

func (stubAdapter) Probe(ctx context.Context) error { return nil }

func (stubAdapter) Generate(ctx context.Context, params GenerateParams) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return params.Init, nil
}

func (stubAdapter) Close() error { return nil }
