package httpapi

// maxBodyBytes controls the maximum allowed request body size. The default
// is sized for base64 raster uploads rather than plain JSON.
var maxBodyBytes int64 = 24 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 24 << 20
		return
	}
	maxBodyBytes = n
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}

// debugRoutes gates the diagnostic surface (/debug, /test, catch-all echo).
// Off by default; enabled with --debug-routes for integration debugging only.
var debugRoutes bool

// SetDebugRoutes toggles the diagnostic routes.
func SetDebugRoutes(enabled bool) { debugRoutes = enabled }
