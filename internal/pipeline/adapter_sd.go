package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"inpaintd/internal/imaging"
)

// sdServerAdapter implements Adapter by talking to a Stable Diffusion web
// API server (the /sdapi/v1 surface) over HTTP. The diffusion model itself
// is a black box behind that API.
type sdServerAdapter struct {
	baseURL        string
	modelID        string
	localFilesOnly bool
	reqTimeout     time.Duration
	connectTimeout time.Duration
	httpClient     *http.Client
}

// SDServerOptions configures the Stable Diffusion server adapter.
type SDServerOptions struct {
	BaseURL string
	// ModelID is passed to the backend as the checkpoint override.
	ModelID string
	// LocalFilesOnly asks the backend not to download missing weights.
	LocalFilesOnly bool
	// RequestTimeout bounds a single img2img call. Zero means no adapter
	// timeout beyond the caller's context.
	RequestTimeout time.Duration
	// ConnectTimeout bounds TCP connection establishment.
	ConnectTimeout time.Duration
}

// NewSDServerAdapter constructs a server-backed adapter.
func NewSDServerAdapter(opts SDServerOptions) Adapter {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Client timeout stays 0: deadlines travel on the request context so a
	// configured RequestTimeout and caller cancellation compose correctly.
	cli := &http.Client{Transport: tr, Timeout: 0}
	return &sdServerAdapter{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		modelID:        strings.TrimSpace(opts.ModelID),
		localFilesOnly: opts.LocalFilesOnly,
		reqTimeout:     opts.RequestTimeout,
		connectTimeout: opts.ConnectTimeout,
		httpClient:     cli,
	}
}

// img2imgRequest is the payload for POST /sdapi/v1/img2img in inpaint mode.
type img2imgRequest struct {
	InitImages        []string       `json:"init_images"`
	Mask              string         `json:"mask"`
	Prompt            string         `json:"prompt"`
	Steps             int            `json:"steps,omitempty"`
	CfgScale          float64        `json:"cfg_scale,omitempty"`
	Width             int            `json:"width,omitempty"`
	Height            int            `json:"height,omitempty"`
	DenoisingStrength float64        `json:"denoising_strength,omitempty"`
	InpaintingFill    int            `json:"inpainting_fill"`
	InpaintFullRes    bool           `json:"inpaint_full_res"`
	OverrideSettings  map[string]any `json:"override_settings,omitempty"`
}

type img2imgResponse struct {
	Images []string `json:"images"`
	Detail string   `json:"detail,omitempty"`
}

func (a *sdServerAdapter) Probe(ctx context.Context) error {
	if a.baseURL == "" {
		return errors.New("no backend URL configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/sdapi/v1/sd-models", nil)
	if err != nil {
		return err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("backend probe failed: %s: %s", resp.Status, string(b))
	}
	// With local-files-only the configured checkpoint must already be present
	// on the backend; overriding to a missing one would trigger a download.
	if a.localFilesOnly && a.modelID != "" {
		var models []struct {
			Title     string `json:"title"`
			ModelName string `json:"model_name"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
			return fmt.Errorf("decode model list: %w", err)
		}
		for _, m := range models {
			if m.Title == a.modelID || m.ModelName == a.modelID {
				return nil
			}
		}
		return fmt.Errorf("model %q not present on backend (local files only)", a.modelID)
	}
	return nil
}

func (a *sdServerAdapter) Generate(ctx context.Context, params GenerateParams) (image.Image, error) {
	if a.httpClient == nil {
		return nil, errors.New("sd server adapter not initialized")
	}
	if a.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.reqTimeout)
		defer cancel()
	}

	initB64, err := imaging.EncodeBase64JPEG(params.Init)
	if err != nil {
		return nil, err
	}
	maskB64, err := imaging.EncodeBase64JPEG(params.Mask)
	if err != nil {
		return nil, err
	}
	b := params.Init.Bounds()
	payload := img2imgRequest{
		InitImages:        []string{initB64},
		Mask:              maskB64,
		Prompt:            params.Prompt,
		Steps:             params.Steps,
		CfgScale:          params.GuidanceScale,
		Width:             b.Dx(),
		Height:            b.Dy(),
		DenoisingStrength: 0.75,
		InpaintingFill:    1, // original content under the mask seeds the sampler
		InpaintFullRes:    false,
	}
	if a.modelID != "" {
		payload.OverrideSettings = map[string]any{"sd_model_checkpoint": a.modelID}
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/sdapi/v1/img2img", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("img2img request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("sd server http error: %s: %s", resp.Status, string(b))
	}
	var out img2imgResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode img2img response: %w", err)
	}
	if len(out.Images) == 0 {
		if out.Detail != "" {
			return nil, fmt.Errorf("sd server returned no images: %s", out.Detail)
		}
		return nil, errors.New("sd server returned no images")
	}
	raw, err := imaging.DecodeBase64(out.Images[0])
	if err != nil {
		return nil, fmt.Errorf("decode result payload: %w", err)
	}
	img, err := imaging.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode result image: %w", err)
	}
	if len(out.Images) > 1 {
		log.Debug().Int("extra", len(out.Images)-1).Msg("sd server returned extra images, keeping first")
	}
	return img, nil
}

func (a *sdServerAdapter) Close() error {
	a.httpClient.CloseIdleConnections()
	return nil
}
