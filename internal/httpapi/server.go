package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inpaintd/internal/imaging"
	"inpaintd/internal/pipeline"
	"inpaintd/pkg/types"
)

// serviceName is the banner returned by GET /.
const serviceName = "BlueprintAI Inpainting API"

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Inpaint(ctx context.Context, params pipeline.InpaintParams) (pipeline.Result, error)
	Status() types.StatusResponse
	Ready() bool
}

// NewMux builds the router with all endpoints registered.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(MetricsMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		status := "online"
		if !svc.Ready() {
			status = "degraded (model unavailable)"
		}
		writeJSON(w, http.StatusOK, types.RootResponse{
			Message: serviceName,
			Endpoints: map[string]string{
				"POST /inpaint/":    "Submit an image for inpainting with specified theme",
				"POST /api/predict": "Array-encoded inpainting for platform clients",
				"GET /test-image":   "Synthetic gradient image as base64",
				"GET /status":       "Pipeline state and configuration",
				"GET /healthz":      "Liveness probe",
				"GET /readyz":       "Readiness probe",
				"GET /metrics":      "Prometheus metrics",
			},
			Status: status,
		})
	})

	inpaint := inpaintHandler(svc)
	r.Post("/inpaint/", inpaint)
	r.Post("/inpaint", inpaint) // trailing-slash tolerance for clients

	r.Post("/api/predict", predictHandler(svc))

	r.Get("/test-image", func(w http.ResponseWriter, r *http.Request) {
		const side = 512
		b64, err := imaging.EncodeBase64JPEG(imaging.Gradient(side, side))
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode test image")
			return
		}
		writeJSON(w, http.StatusOK, types.TestImageResponse{Image: b64, Width: side, Height: side})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("unavailable"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	if debugRoutes {
		mountDebugRoutes(r)
	}

	MountSwagger(r)

	return r
}

// inpaintHandler serves the primary multipart endpoint.
//
// @Summary      Inpaint the center region of an uploaded image
// @Accept       multipart/form-data
// @Produce      json
// @Param        image formData file true "Image to inpaint"
// @Param        theme_description formData string true "Theme description"
// @Param        theme_color formData string true "Theme color"
// @Success      200 {object} types.InpaintResponse
// @Failure      400 {object} types.ErrorResponse
// @Failure      503 {object} types.ErrorResponse
// @Router       /inpaint/ [post]
func inpaintHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
			return
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "image file is required")
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "failed to read image upload")
			return
		}
		if !r.PostForm.Has("theme_description") || !r.PostForm.Has("theme_color") {
			writeJSONError(w, http.StatusBadRequest, "theme_description and theme_color are required")
			return
		}
		params := pipeline.InpaintParams{
			ImageData:        data,
			ThemeDescription: r.PostFormValue("theme_description"),
			ThemeColor:       r.PostFormValue("theme_color"),
		}

		lvl := requestLogLevel(r)
		start := time.Now()
		if lvl >= LevelInfo && zlog != nil {
			z := zlog.Info().Str("path", r.URL.Path).Int("bytes", len(data))
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Msg("inpaint start")
		}

		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		res, err := svc.Inpaint(ctx, params)
		if err != nil {
			// If context was canceled (client disconnect), just return.
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			status := statusForError(err)
			writeJSONError(w, status, err.Error())
			if lvl >= LevelInfo && zlog != nil {
				z := zlog.Info().Int("status", status).Dur("dur", time.Since(start))
				if rid := middleware.GetReqID(r.Context()); rid != "" {
					z = z.Str("request_id", rid)
				}
				z.Err(err).Msg("inpaint end")
			}
			return
		}
		writeJSON(w, http.StatusOK, types.InpaintResponse{
			Image:      base64.StdEncoding.EncodeToString(res.JPEG),
			PromptUsed: res.PromptUsed,
			MaskType:   res.MaskType,
			Width:      res.Width,
			Height:     res.Height,
		})
		if lvl >= LevelInfo && zlog != nil {
			z := zlog.Info().Int("status", 200).Dur("dur", time.Since(start))
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Msg("inpaint end")
		}
	}
}

// predictHandler serves the array-encoded compatibility endpoint. The caller
// platform cannot handle non-200 responses, so every failure is delivered as
// HTTP 200 with an error field in the body.
//
// @Summary      Array-encoded inpainting (platform compatibility)
// @Accept       json
// @Produce      json
// @Param        request body types.PredictRequest true "Positional payload [image_b64, theme_description, theme_color]"
// @Success      200 {object} types.PredictResponse
// @Router       /api/predict [post]
func predictHandler(svc Service) http.HandlerFunc {
	fail := func(w http.ResponseWriter, msg string) {
		writeJSON(w, http.StatusOK, types.PredictResponse{Error: msg})
	}
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.PredictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			fail(w, "invalid JSON body: "+err.Error())
			return
		}
		if len(req.Data) < 3 {
			fail(w, "data must contain [image_b64, theme_description, theme_color]")
			return
		}
		raw, err := imaging.DecodeBase64(req.Data[0])
		if err != nil {
			fail(w, err.Error())
			return
		}
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		start := time.Now()
		res, err := svc.Inpaint(ctx, pipeline.InpaintParams{
			ImageData:        raw,
			ThemeDescription: req.Data[1],
			ThemeColor:       req.Data[2],
		})
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			fail(w, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, types.PredictResponse{
			Data:     []string{base64.StdEncoding.EncodeToString(res.JPEG)},
			Duration: time.Since(start).Seconds(),
		})
	}
}
