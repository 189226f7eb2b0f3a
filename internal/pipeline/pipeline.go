// Package pipeline owns the inpainting model lifecycle and the
// request-to-inference policy: decode, fixed-size scaling, mask and prompt
// construction, the black-box generate call, and result encoding.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"inpaintd/internal/imaging"
	"inpaintd/pkg/types"
)

// State represents the lifecycle state of the pipeline.
type State string

const (
	StateLoading     State = "loading"
	StateReady       State = "ready"
	StateUnavailable State = "unavailable"
)

// inferenceSize is the fixed input resolution the model requires.
const inferenceSize = 512

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultModelID       = "runwayml/stable-diffusion-inpainting"
	DefaultSteps         = 25
	DefaultGuidanceScale = 7.5
)

// Config encapsulates all tunables for Pipeline construction. It is
// populated once at startup and never mutated afterwards.
type Config struct {
	ModelID        string
	CacheDir       string
	Steps          int
	GuidanceScale  float64
	LocalFilesOnly bool
	// BackendURL of the Stable Diffusion server. Empty selects the stub
	// adapter only when Stub is set; otherwise Load fails into the
	// unavailable state.
	BackendURL string
	Stub       bool
	// RequestTimeout bounds a single generate call (0 = context only).
	RequestTimeout time.Duration
}

// InpaintParams is one inpainting request after transport parsing.
type InpaintParams struct {
	ImageData        []byte
	ThemeDescription string
	ThemeColor       string
}

// Result is a completed inpainting pass. JPEG holds the encoded output at
// the original input dimensions; no partial output is ever returned.
type Result struct {
	JPEG       []byte
	PromptUsed string
	MaskType   string
	Width      int
	Height     int
}

// Pipeline is the process-wide model handle. State transitions happen only
// in Load and Close; Inpaint takes a read lock and runs unsynchronized
// beyond that — concurrency is bounded only by the backend itself.
type Pipeline struct {
	mu      sync.RWMutex
	state   State
	lastErr string
	adapter Adapter

	cfg       Config
	startTime time.Time
	inpaints  uint64
}

// New constructs a Pipeline from Config, applying package defaults for
// unset fields. The model is not loaded until Load is called.
func New(cfg Config) *Pipeline {
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultModelID
	}
	if cfg.Steps <= 0 {
		cfg.Steps = DefaultSteps
	}
	if cfg.GuidanceScale <= 0 {
		cfg.GuidanceScale = DefaultGuidanceScale
	}
	return &Pipeline{
		state:     StateLoading,
		cfg:       cfg,
		startTime: time.Now(),
	}
}

// NewWithAdapter constructs a Pipeline around an explicit adapter,
// bypassing backend selection. Used by tests and the stub mode.
func NewWithAdapter(cfg Config, a Adapter) *Pipeline {
	p := New(cfg)
	p.adapter = a
	return p
}

// Load attempts to bring the model online. On failure the pipeline enters
// the unavailable state and the service keeps serving non-inference
// endpoints; it never crashes the process.
func (p *Pipeline) Load(ctx context.Context) {
	adapter := p.adapter
	if adapter == nil {
		switch {
		case p.cfg.Stub:
			adapter = NewStubAdapter()
		case p.cfg.BackendURL != "":
			adapter = NewSDServerAdapter(SDServerOptions{
				BaseURL:        p.cfg.BackendURL,
				ModelID:        p.cfg.ModelID,
				LocalFilesOnly: p.cfg.LocalFilesOnly,
				RequestTimeout: p.cfg.RequestTimeout,
			})
		default:
			p.setUnavailable("no inference backend configured")
			return
		}
	}
	if err := adapter.Probe(ctx); err != nil {
		log.Error().Err(err).Str("model", p.cfg.ModelID).Msg("model load failed, serving degraded")
		_ = adapter.Close()
		p.setUnavailable(err.Error())
		return
	}
	p.mu.Lock()
	p.adapter = adapter
	p.state = StateReady
	p.lastErr = ""
	p.mu.Unlock()
	log.Info().Str("model", p.cfg.ModelID).Str("backend", p.backendLabel()).Msg("model ready")
}

func (p *Pipeline) setUnavailable(msg string) {
	p.mu.Lock()
	p.state = StateUnavailable
	p.lastErr = msg
	p.adapter = nil
	p.mu.Unlock()
}

// Ready reports whether the model is loaded and serving.
func (p *Pipeline) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state == StateReady && p.adapter != nil
}

// Inpaint runs the full request-to-inference policy for one request.
func (p *Pipeline) Inpaint(ctx context.Context, params InpaintParams) (Result, error) {
	p.mu.RLock()
	adapter := p.adapter
	state := p.state
	lastErr := p.lastErr
	p.mu.RUnlock()
	if state != StateReady || adapter == nil {
		if lastErr == "" {
			lastErr = "model not loaded"
		}
		return Result{}, ErrModelUnavailable(lastErr)
	}

	img, err := imaging.Decode(params.ImageData)
	if err != nil {
		inpaintFailures.WithLabelValues("invalid_image").Inc()
		return Result{}, ErrInvalidImage(err.Error())
	}
	origW := img.Bounds().Dx()
	origH := img.Bounds().Dy()

	// Fixed-size square input; aspect ratio is discarded by contract.
	resized := imaging.Resize(img, inferenceSize, inferenceSize)
	mask := imaging.CenterEllipseMask(inferenceSize, inferenceSize)
	prompt := BuildPrompt(params.ThemeDescription, params.ThemeColor)

	start := time.Now()
	out, err := adapter.Generate(ctx, GenerateParams{
		Prompt:        prompt,
		Init:          resized,
		Mask:          mask,
		Steps:         p.cfg.Steps,
		GuidanceScale: p.cfg.GuidanceScale,
	})
	inpaintDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		inpaintFailures.WithLabelValues("generate").Inc()
		p.mu.Lock()
		p.lastErr = err.Error()
		p.mu.Unlock()
		return Result{}, fmt.Errorf("inference failed: %w", err)
	}

	if origW != inferenceSize || origH != inferenceSize {
		out = imaging.Resize(out, origW, origH)
	}
	jpegBytes, err := imaging.EncodeJPEG(out)
	if err != nil {
		inpaintFailures.WithLabelValues("encode").Inc()
		return Result{}, fmt.Errorf("encode result: %w", err)
	}

	p.mu.Lock()
	p.inpaints++
	p.mu.Unlock()
	inpaintsTotal.Inc()

	return Result{
		JPEG:       jpegBytes,
		PromptUsed: prompt,
		MaskType:   imaging.MaskTypeCenterEllipse,
		Width:      origW,
		Height:     origH,
	}, nil
}

// Status builds a detailed status response for GET /status.
func (p *Pipeline) Status() types.StatusResponse {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return types.StatusResponse{
		State:          string(p.state),
		ModelID:        p.cfg.ModelID,
		BackendURL:     p.backendLabel(),
		Steps:          p.cfg.Steps,
		GuidanceScale:  p.cfg.GuidanceScale,
		LastError:      p.lastErr,
		UptimeSeconds:  int64(time.Since(p.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
		InpaintsTotal:  p.inpaints,
	}
}

func (p *Pipeline) backendLabel() string {
	if p.cfg.Stub {
		return "stub"
	}
	return p.cfg.BackendURL
}

// Close releases the model handle. Idempotent; safe during shutdown.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.adapter == nil {
		return nil
	}
	err := p.adapter.Close()
	p.adapter = nil
	p.state = StateUnavailable
	if p.lastErr == "" {
		p.lastErr = "closed"
	}
	return err
}
