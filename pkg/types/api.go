package types

// InpaintResponse is returned by POST /inpaint/ on success.
type InpaintResponse struct {
	// Base64-encoded JPEG of the inpainted image.
	Image string `json:"image"`
	// Exact prompt string sent to the model.
	// example: forest landscape with green color, high quality, detailed
	PromptUsed string `json:"prompt_used" example:"forest landscape with green color, high quality, detailed"`
	// Mask geometry applied during inpainting.
	// example: center_ellipse
	MaskType string `json:"mask_type" example:"center_ellipse"`
	// Width of the returned image in pixels (matches the uploaded image).
	// example: 1024
	Width int `json:"width" example:"1024"`
	// Height of the returned image in pixels (matches the uploaded image).
	// example: 768
	Height int `json:"height" example:"768"`
}

// PredictRequest is the positional payload accepted by POST /api/predict.
// Data holds [image_b64, theme_description, theme_color, ...]; extra
// elements are ignored.
type PredictRequest struct {
	Data []string `json:"data"`
}

// PredictResponse is always returned with HTTP 200 by POST /api/predict.
// On failure Data is empty and Error carries the detail; the caller platform
// does not surface non-200 responses gracefully, so errors ride in the body.
type PredictResponse struct {
	// Base64-encoded JPEG results (single element on success).
	Data []string `json:"data,omitempty"`
	// Wall-clock processing time in seconds.
	// example: 3.21
	Duration float64 `json:"duration,omitempty" example:"3.21"`
	// Error detail; present only on failure.
	// example: invalid image: image: unknown format
	Error string `json:"error,omitempty" example:"invalid image: image: unknown format"`
}

// RootResponse is the service metadata returned by GET /.
type RootResponse struct {
	// Service banner.
	// example: BlueprintAI Inpainting API
	Message string `json:"message" example:"BlueprintAI Inpainting API"`
	// Route descriptions keyed by "METHOD /path".
	Endpoints map[string]string `json:"endpoints"`
	// Overall service status: "online" or "degraded (model unavailable)".
	// example: online
	Status string `json:"status" example:"online"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Pipeline lifecycle state (loading, ready, unavailable).
	// example: ready
	State string `json:"state" example:"ready"`
	// Configured model identifier.
	// example: runwayml/stable-diffusion-inpainting
	ModelID string `json:"model_id" example:"runwayml/stable-diffusion-inpainting"`
	// Inference backend base URL ("stub" when running backendless).
	BackendURL string `json:"backend_url,omitempty"`
	// Configured denoising step count.
	// example: 25
	Steps int `json:"steps" example:"25"`
	// Configured guidance scale.
	// example: 7.5
	GuidanceScale float64 `json:"guidance_scale" example:"7.5"`
	// Last load/inference error observed (if any).
	LastError string `json:"last_error,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Total inpaint requests served since start.
	// example: 42
	InpaintsTotal uint64 `json:"inpaints_total" example:"42"`
}

// TestImageResponse is returned by GET /test-image.
type TestImageResponse struct {
	// Base64-encoded JPEG of a synthetic gradient.
	Image string `json:"image"`
	// example: 512
	Width int `json:"width" example:"512"`
	// example: 512
	Height int `json:"height" example:"512"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid image: empty upload
	Error string `json:"error" example:"invalid image: empty upload"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
