package pipeline

import (
	"context"
	"image"
)

// Adapter abstracts the inpainting model runtime. The production adapter
// talks to a Stable Diffusion server over HTTP; a stub adapter echoes the
// input image for tests and backendless operation.
type Adapter interface {
	// Probe verifies the runtime is reachable and the model is usable.
	// Called once at startup; a failure leaves the service degraded.
	Probe(ctx context.Context) error
	// Generate runs one inpainting pass and returns the output image.
	// Implementations must return when the context is canceled.
	Generate(ctx context.Context, params GenerateParams) (image.Image, error)
	// Close releases any resources associated with the adapter.
	Close() error
}

// GenerateParams captures the black-box inference inputs:
// generate(prompt, image, mask, steps, guidance_scale) -> image.
type GenerateParams struct {
	Prompt        string
	Init          image.Image
	Mask          image.Image
	Steps         int
	GuidanceScale float64
}
