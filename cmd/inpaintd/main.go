package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"inpaintd/internal/common/fsutil"
	"inpaintd/internal/config"
	"inpaintd/internal/httpapi"
	"inpaintd/internal/pipeline"
)

func main() {
	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Optional config file (yaml/json/toml)")
	addr := flag.String("addr", "", "HTTP listen address, e.g. :8000 (default INPAINTD_ADDR or :8000)")
	modelID := flag.String("model-id", "", "Model identifier (default MODEL_ID)")
	cacheDir := flag.String("cache-dir", "", "Model cache directory (default HF_CACHE_DIR)")
	steps := flag.Int("steps", 0, "Inference step count (default INFERENCE_STEPS)")
	guidance := flag.Float64("guidance-scale", 0, "Guidance scale (default GUIDANCE_SCALE)")
	localFiles := flag.Bool("local-files", false, "Do not download missing model weights (default USE_LOCAL_FILES)")
	backendURL := flag.String("backend-url", "", "Stable Diffusion server base URL (default INPAINTD_BACKEND_URL)")
	stub := flag.Bool("stub", false, "Run with the echo adapter instead of a model backend")
	logLevel := flag.String("log-level", "", "Log level: debug|info|warn|error (default INPAINTD_LOG_LEVEL or info)")
	debugRoutes := flag.Bool("debug-routes", false, "Mount diagnostic routes (/debug, /test, catch-all echo)")
	corsEnabled := flag.Bool("cors-enabled", false, "Enable CORS middleware")
	corsOrigins := flag.String("cors-origins", "*", "Comma-separated allowed CORS origins")
	maxBody := flag.Int64("max-body-bytes", 0, "Maximum request body size in bytes")
	flag.Parse()

	// Resolution order: config file, then environment, then flags, then defaults.
	var cfg config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config file")
		}
		cfg = loaded
	}
	cfg.OverlayEnv()
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *modelID != "" {
		cfg.ModelID = *modelID
	}
	if *cacheDir != "" {
		cfg.CacheDir = *cacheDir
	}
	if *steps > 0 {
		cfg.Steps = *steps
	}
	if *guidance > 0 {
		cfg.GuidanceScale = *guidance
	}
	if *localFiles {
		cfg.LocalFilesOnly = true
	}
	if *backendURL != "" {
		cfg.BackendURL = *backendURL
	}
	if *stub {
		cfg.Stub = true
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *debugRoutes {
		cfg.DebugRoutes = true
	}
	if *corsEnabled {
		cfg.CORSEnabled = true
	}
	if *corsOrigins != "" && cfg.CORSOrigins == "" {
		cfg.CORSOrigins = *corsOrigins
	}
	if *maxBody > 0 {
		cfg.MaxBodyBytes = *maxBody
	}
	cfg.ApplyDefaults()

	setupLogging(cfg.LogLevel)

	// Cache directory must exist before the model loads.
	cache, err := fsutil.ExpandHome(cfg.CacheDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve cache dir")
	}
	if err := fsutil.EnsureDir(cache); err != nil {
		log.Fatal().Err(err).Str("dir", cache).Msg("failed to create cache dir")
	}
	cfg.CacheDir = cache

	pipe := pipeline.New(pipeline.Config{
		ModelID:        cfg.ModelID,
		CacheDir:       cfg.CacheDir,
		Steps:          cfg.Steps,
		GuidanceScale:  cfg.GuidanceScale,
		LocalFilesOnly: cfg.LocalFilesOnly,
		BackendURL:     cfg.BackendURL,
		Stub:           cfg.Stub,
	})
	loadCtx, loadCancel := context.WithTimeout(context.Background(), 60*time.Second)
	pipe.Load(loadCtx)
	loadCancel()

	httpapi.SetLogger(log.Logger)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetDebugRoutes(cfg.DebugRoutes)
	if cfg.CORSEnabled {
		httpapi.SetCORSOptions(true,
			strings.Split(cfg.CORSOrigins, ","),
			[]string{"GET", "POST", "OPTIONS"},
			[]string{"Content-Type", "X-Log-Level"},
		)
	}
	baseCtx, baseCancel := context.WithCancel(context.Background())
	httpapi.SetBaseContext(baseCtx)

	mux := httpapi.NewMux(pipe)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("model", cfg.ModelID).Bool("ready", pipe.Ready()).Msg("inpaintd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	baseCancel() // cancel in-flight inference work
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	if err := pipe.Close(); err != nil {
		log.Error().Err(err).Msg("pipeline close error")
	}
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
