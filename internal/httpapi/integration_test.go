package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/jpeg"
	"net/http"
	"testing"

	"inpaintd/internal/pipeline"
	"inpaintd/pkg/types"
)

// End-to-end over the real pipeline with the echo adapter: a non-square
// upload comes back as a base64 JPEG with the original dimensions.
func TestInpaintEndToEndStub(t *testing.T) {
	p := pipeline.New(pipeline.Config{Stub: true})
	p.Load(context.Background())
	t.Cleanup(func() { _ = p.Close() })
	r := NewMux(p)

	w := postInpaint(t, r, pngBytes(t, 321, 123), map[string]string{
		"theme_description": "a quiet dock at dawn",
		"theme_color":       "amber",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body types.InpaintResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(body.Image)
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("response is not a JPEG: %v", err)
	}
	if img.Bounds().Dx() != 321 || img.Bounds().Dy() != 123 {
		t.Fatalf("dims %v, want 321x123", img.Bounds())
	}
	if body.Width != 321 || body.Height != 123 {
		t.Fatalf("declared dims %dx%d", body.Width, body.Height)
	}
	if body.PromptUsed != "a quiet dock at dawn with amber color, high quality, detailed" {
		t.Fatalf("prompt=%q", body.PromptUsed)
	}
}

// A degraded pipeline answers 503 on every inpaint and reports it at /.
func TestEndToEndDegraded(t *testing.T) {
	p := pipeline.New(pipeline.Config{}) // no backend configured
	p.Load(context.Background())
	r := NewMux(p)

	for i := 0; i < 3; i++ {
		w := postInpaint(t, r, pngBytes(t, 16, 16), themeFields)
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("status=%d, want 503", w.Code)
		}
	}
	w := postInpaint(t, r, []byte("not an image"), themeFields)
	// model check precedes decode, so even garbage gets the 503 while degraded
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
}

// Garbage bytes on a ready pipeline yield 400, never 500 or a crash.
func TestEndToEndInvalidImage(t *testing.T) {
	p := pipeline.New(pipeline.Config{Stub: true})
	p.Load(context.Background())
	t.Cleanup(func() { _ = p.Close() })
	r := NewMux(p)

	for _, payload := range [][]byte{{}, []byte("zzzz")} {
		w := postInpaint(t, r, payload, themeFields)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("payload %q: status=%d, want 400", payload, w.Code)
		}
	}
}
