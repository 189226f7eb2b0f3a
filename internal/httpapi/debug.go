package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Diagnostic scaffolding for platform-integration debugging. None of this
// carries a functional contract; it is mounted only with --debug-routes.

func mountDebugRoutes(r chi.Router) {
	r.Get("/debug", func(w http.ResponseWriter, req *http.Request) {
		headers := map[string]string{}
		for k := range req.Header {
			headers[k] = req.Header.Get(k)
		}
		var routes []string
		_ = chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			routes = append(routes, method+" "+route)
			return nil
		})
		writeJSON(w, http.StatusOK, map[string]any{
			"method":      req.Method,
			"path":        req.URL.Path,
			"remote_addr": req.RemoteAddr,
			"headers":     headers,
			"routes":      routes,
		})
	})

	r.Post("/test", func(w http.ResponseWriter, req *http.Request) {
		req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
		body, err := io.ReadAll(req.Body)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"error": err.Error()})
			return
		}
		var payload any
		if err := json.Unmarshal(body, &payload); err != nil {
			payload = string(body)
		}
		writeJSON(w, http.StatusOK, map[string]any{"echo": payload})
	})

	// Catch-all: echo whatever arrived on an unmatched path or method.
	echo := func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":        "diagnostic echo: route not registered",
			"method":         req.Method,
			"path":           req.URL.Path,
			"query":          req.URL.RawQuery,
			"content_length": req.ContentLength,
		})
	}
	r.NotFound(echo)
	r.MethodNotAllowed(echo)
}
