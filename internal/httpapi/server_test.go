package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"inpaintd/internal/pipeline"
	"inpaintd/pkg/types"
)

type mockService struct {
	ready  bool
	res    pipeline.Result
	err    error
	status types.StatusResponse
	last   pipeline.InpaintParams
}

func (m *mockService) Inpaint(ctx context.Context, p pipeline.InpaintParams) (pipeline.Result, error) {
	m.last = p
	if m.err != nil {
		return pipeline.Result{}, m.err
	}
	return m.res, nil
}
func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, image []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if image != nil {
		fw, err := mw.CreateFormFile("image", "upload.png")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		if _, err := fw.Write(image); err != nil {
			t.Fatalf("write image: %v", err)
		}
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func postInpaint(t *testing.T, h http.Handler, image []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, image, fields)
	req := httptest.NewRequest(http.MethodPost, "/inpaint/", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

var themeFields = map[string]string{"theme_description": "forest landscape", "theme_color": "green"}

func TestRootOnline(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.RootResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Message != "BlueprintAI Inpainting API" || body.Status != "online" {
		t.Fatalf("body=%+v", body)
	}
	if _, ok := body.Endpoints["POST /inpaint/"]; !ok {
		t.Fatalf("endpoints missing inpaint: %v", body.Endpoints)
	}
}

func TestRootDegraded(t *testing.T) {
	r := NewMux(&mockService{ready: false})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	var body types.RootResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Status != "degraded (model unavailable)" {
		t.Fatalf("status=%q", body.Status)
	}
}

func TestInpaintSuccess(t *testing.T) {
	svc := &mockService{ready: true, res: pipeline.Result{
		JPEG:       []byte{0xff, 0xd8, 0xff},
		PromptUsed: "forest landscape with green color, high quality, detailed",
		MaskType:   "center_ellipse",
		Width:      20,
		Height:     10,
	}}
	w := postInpaint(t, NewMux(svc), pngBytes(t, 20, 10), themeFields)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body types.InpaintResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(body.Image)
	if err != nil {
		t.Fatalf("image should be base64: %v", err)
	}
	if !bytes.Equal(raw, svc.res.JPEG) {
		t.Fatalf("payload mismatch")
	}
	if body.PromptUsed != svc.res.PromptUsed || body.MaskType != "center_ellipse" {
		t.Fatalf("body=%+v", body)
	}
	if svc.last.ThemeDescription != "forest landscape" || svc.last.ThemeColor != "green" {
		t.Fatalf("params=%+v", svc.last)
	}
}

func TestInpaintMissingImage(t *testing.T) {
	w := postInpaint(t, NewMux(&mockService{ready: true}), nil, themeFields)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestInpaintMissingFields(t *testing.T) {
	w := postInpaint(t, NewMux(&mockService{ready: true}), pngBytes(t, 4, 4), map[string]string{"theme_description": "x"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestInpaintInvalidImageMaps400(t *testing.T) {
	svc := &mockService{ready: true, err: pipeline.ErrInvalidImage("image: unknown format")}
	w := postInpaint(t, NewMux(svc), []byte("garbage"), themeFields)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Code != 400 || body.Error == "" {
		t.Fatalf("body=%+v", body)
	}
}

func TestInpaintUnavailableMaps503(t *testing.T) {
	svc := &mockService{err: pipeline.ErrModelUnavailable("startup load failed")}
	w := postInpaint(t, NewMux(svc), pngBytes(t, 4, 4), themeFields)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestInpaintGenericErrorMaps500(t *testing.T) {
	svc := &mockService{ready: true, err: errors.New("inference failed: boom")}
	w := postInpaint(t, NewMux(svc), pngBytes(t, 4, 4), themeFields)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestInpaintBodyTooLarge(t *testing.T) {
	SetMaxBodyBytes(1 << 10)
	defer SetMaxBodyBytes(0)
	big := make([]byte, 4<<10)
	w := postInpaint(t, NewMux(&mockService{ready: true}), big, themeFields)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func predictBody(t *testing.T, data []string) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(types.PredictRequest{Data: data})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewBuffer(b)
}

func postPredict(t *testing.T, h http.Handler, body *bytes.Buffer) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/predict", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPredictSuccess(t *testing.T) {
	svc := &mockService{ready: true, res: pipeline.Result{JPEG: []byte{1, 2, 3}}}
	img := base64.StdEncoding.EncodeToString(pngBytes(t, 8, 8))
	w := postPredict(t, NewMux(svc), predictBody(t, []string{img, "desc", "blue"}))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.PredictResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Error != "" || len(body.Data) != 1 {
		t.Fatalf("body=%+v", body)
	}
	if svc.last.ThemeDescription != "desc" || svc.last.ThemeColor != "blue" {
		t.Fatalf("params=%+v", svc.last)
	}
}

// Every predict failure mode returns HTTP 200; the error key in the body is
// the only failure signal.
func TestPredictAlways200(t *testing.T) {
	img := base64.StdEncoding.EncodeToString(pngBytes(t, 8, 8))
	cases := []struct {
		name string
		svc  *mockService
		body *bytes.Buffer
	}{
		{"bad json", &mockService{ready: true}, bytes.NewBufferString("not-json")},
		{"short data", &mockService{ready: true}, predictBody(t, []string{img})},
		{"bad base64", &mockService{ready: true}, predictBody(t, []string{"!!!", "d", "c"})},
		{"model unavailable", &mockService{err: pipeline.ErrModelUnavailable("load failed")}, predictBody(t, []string{img, "d", "c"})},
		{"processing failure", &mockService{ready: true, err: errors.New("boom")}, predictBody(t, []string{img, "d", "c"})},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := postPredict(t, NewMux(c.svc), c.body)
			if w.Code != http.StatusOK {
				t.Fatalf("status=%d, want 200 always", w.Code)
			}
			var body types.PredictResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("json: %v", err)
			}
			if body.Error == "" {
				t.Fatalf("expected error key, body=%s", w.Body.String())
			}
			if len(body.Data) != 0 {
				t.Fatalf("failure must not carry data: %+v", body)
			}
		})
	}
}

func TestTestImage(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test-image", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.TestImageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(body.Image)
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("jpeg: %v", err)
	}
	if img.Bounds().Dx() != body.Width || img.Bounds().Dy() != body.Height {
		t.Fatalf("dims mismatch: %v vs %dx%d", img.Bounds(), body.Width, body.Height)
	}
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{State: "ready", ModelID: "m"}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.State != "ready" || body.ModelID != "m" {
		t.Fatalf("body=%+v", body)
	}
}

func TestHealthz(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyzDegraded(t *testing.T) {
	r := NewMux(&mockService{ready: false})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unavailable") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestCORSHeadersWhenEnabled(t *testing.T) {
	SetCORSOptions(true, []string{"*"}, []string{"GET", "POST", "OPTIONS"}, []string{"Content-Type"})
	defer SetCORSOptions(false, nil, nil, nil)
	r := NewMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://example.com")
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("expected CORS header to be set")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected nosniff header")
	}
}
