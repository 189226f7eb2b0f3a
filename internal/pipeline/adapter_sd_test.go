package pipeline

import (
	"context"
	"encoding/json"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inpaintd/internal/imaging"
)

func sdTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestSDAdapterProbe(t *testing.T) {
	srv := sdTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sdapi/v1/sd-models" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"title":"sd-inpaint [abc123]","model_name":"sd-inpaint"}]`))
	})
	a := NewSDServerAdapter(SDServerOptions{BaseURL: srv.URL})
	if err := a.Probe(context.Background()); err != nil {
		t.Fatalf("probe: %v", err)
	}
}

func TestSDAdapterProbeLocalFilesOnly(t *testing.T) {
	srv := sdTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"title":"other [def]","model_name":"other"}]`))
	})
	a := NewSDServerAdapter(SDServerOptions{BaseURL: srv.URL, ModelID: "sd-inpaint", LocalFilesOnly: true})
	if err := a.Probe(context.Background()); err == nil {
		t.Fatalf("expected probe failure for missing local model")
	}
	b := NewSDServerAdapter(SDServerOptions{BaseURL: srv.URL, ModelID: "other", LocalFilesOnly: true})
	if err := b.Probe(context.Background()); err != nil {
		t.Fatalf("probe: %v", err)
	}
}

func TestSDAdapterProbeUnreachable(t *testing.T) {
	a := NewSDServerAdapter(SDServerOptions{
		BaseURL:        "http://127.0.0.1:1", // nothing listens here
		ConnectTimeout: 100 * time.Millisecond,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Probe(ctx); err == nil {
		t.Fatalf("expected probe failure")
	}
}

func TestSDAdapterGenerate(t *testing.T) {
	var got img2imgRequest
	result, err := imaging.EncodeBase64JPEG(imaging.Gradient(512, 512))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	srv := sdTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sdapi/v1/img2img" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(img2imgResponse{Images: []string{result}})
	})
	a := NewSDServerAdapter(SDServerOptions{BaseURL: srv.URL, ModelID: "sd-inpaint"})
	init := imaging.Resize(image.NewRGBA(image.Rect(0, 0, 64, 64)), 512, 512)
	out, err := a.Generate(context.Background(), GenerateParams{
		Prompt:        "a pond with blue color, high quality, detailed",
		Init:          init,
		Mask:          imaging.CenterEllipseMask(512, 512),
		Steps:         25,
		GuidanceScale: 7.5,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.Bounds().Dx() != 512 || out.Bounds().Dy() != 512 {
		t.Fatalf("out bounds=%v", out.Bounds())
	}
	if got.Prompt != "a pond with blue color, high quality, detailed" {
		t.Fatalf("prompt=%q", got.Prompt)
	}
	if got.Steps != 25 || got.CfgScale != 7.5 {
		t.Fatalf("steps=%d cfg=%v", got.Steps, got.CfgScale)
	}
	if len(got.InitImages) != 1 || got.InitImages[0] == "" || got.Mask == "" {
		t.Fatalf("init/mask payload missing")
	}
	if got.Width != 512 || got.Height != 512 {
		t.Fatalf("payload dims %dx%d", got.Width, got.Height)
	}
	if got.OverrideSettings["sd_model_checkpoint"] != "sd-inpaint" {
		t.Fatalf("override_settings=%v", got.OverrideSettings)
	}
}

func TestSDAdapterGenerateBackendError(t *testing.T) {
	srv := sdTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"out of memory"}`, http.StatusInternalServerError)
	})
	a := NewSDServerAdapter(SDServerOptions{BaseURL: srv.URL})
	_, err := a.Generate(context.Background(), GenerateParams{
		Init: image.NewRGBA(image.Rect(0, 0, 8, 8)),
		Mask: imaging.CenterEllipseMask(8, 8),
	})
	if err == nil {
		t.Fatalf("expected error from 500 backend")
	}
}

func TestSDAdapterGenerateNoImages(t *testing.T) {
	srv := sdTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"images":[],"detail":"nothing generated"}`))
	})
	a := NewSDServerAdapter(SDServerOptions{BaseURL: srv.URL})
	_, err := a.Generate(context.Background(), GenerateParams{
		Init: image.NewRGBA(image.Rect(0, 0, 8, 8)),
		Mask: imaging.CenterEllipseMask(8, 8),
	})
	if err == nil {
		t.Fatalf("expected error for empty images")
	}
}

func TestSDAdapterGenerateContextCanceled(t *testing.T) {
	srv := sdTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can observe the
		// client disconnect and cancel the request context.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	})
	a := NewSDServerAdapter(SDServerOptions{BaseURL: srv.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := a.Generate(ctx, GenerateParams{
		Init: image.NewRGBA(image.Rect(0, 0, 8, 8)),
		Mask: imaging.CenterEllipseMask(8, 8),
	})
	if err == nil {
		t.Fatalf("expected context error")
	}
}
