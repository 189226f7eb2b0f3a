// Package ctl implements the inpaintctl command: a small HTTP client for
// driving an inpaintd server from the command line.
package ctl

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"inpaintd/pkg/types"
)

// Client talks to an inpaintd server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		// Inference can take minutes on CPU; the generous timeout is the
		// request ceiling, individual calls can still be canceled via ctx.
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: %s: %s", path, resp.Status, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Inpaint uploads an image file with the theme fields and returns the
// server's response.
func (c *Client) Inpaint(ctx context.Context, imagePath, description, color string) (types.InpaintResponse, error) {
	var out types.InpaintResponse
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return out, err
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", filepath.Base(imagePath))
	if err != nil {
		return out, err
	}
	if _, err := fw.Write(data); err != nil {
		return out, err
	}
	if err := mw.WriteField("theme_description", description); err != nil {
		return out, err
	}
	if err := mw.WriteField("theme_color", color); err != nil {
		return out, err
	}
	if err := mw.Close(); err != nil {
		return out, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/inpaint/", &buf)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var apiErr types.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return out, fmt.Errorf("inpaint failed (%d): %s", apiErr.Code, apiErr.Error)
		}
		return out, fmt.Errorf("inpaint failed: %s", resp.Status)
	}
	err = json.NewDecoder(resp.Body).Decode(&out)
	return out, err
}

// Predict submits the image through the array-encoded endpoint. A non-empty
// Error field in the response is the only failure signal there.
func (c *Client) Predict(ctx context.Context, imagePath, description, color string) (types.PredictResponse, error) {
	var out types.PredictResponse
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return out, err
	}
	body, err := json.Marshal(types.PredictRequest{Data: []string{
		base64.StdEncoding.EncodeToString(data), description, color,
	}})
	if err != nil {
		return out, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/predict", bytes.NewReader(body))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, err
	}
	if out.Error != "" {
		return out, fmt.Errorf("predict failed: %s", out.Error)
	}
	return out, nil
}

// Status fetches GET /status.
func (c *Client) Status(ctx context.Context) (types.StatusResponse, error) {
	var out types.StatusResponse
	err := c.getJSON(ctx, "/status", &out)
	return out, err
}

// Root fetches the service metadata from GET /.
func (c *Client) Root(ctx context.Context) (types.RootResponse, error) {
	var out types.RootResponse
	err := c.getJSON(ctx, "/", &out)
	return out, err
}

// TestImage fetches the synthetic gradient from GET /test-image.
func (c *Client) TestImage(ctx context.Context) (types.TestImageResponse, error) {
	var out types.TestImageResponse
	err := c.getJSON(ctx, "/test-image", &out)
	return out, err
}

// SaveBase64Image decodes a base64 payload and writes it to path.
func SaveBase64Image(b64, path string) error {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return fmt.Errorf("decode image payload: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}
