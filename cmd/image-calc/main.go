package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/image-calc-server/internal/analysis"
	"github.com/ironsheep/image-calc-server/internal/config"
	"github.com/ironsheep/image-calc-server/internal/logging"
	"github.com/ironsheep/image-calc-server/internal/ratelimit"
	"github.com/ironsheep/image-calc-server/internal/server"
	"go.uber.org/zap"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("image-calc %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		default:
			fmt.Fprintf(os.Stderr, "unknown argument %q (try --help)\n", os.Args[1])
			os.Exit(2)
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "image-calc: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.IsDev(), cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("Starting image-calc",
		zap.String("version", Version),
		zap.String("commit", GitCommit),
		zap.String("backend", cfg.Analyzer.Backend),
		zap.String("env", cfg.Env))

	analyzer, err := analysis.FromConfig(cfg)
	if err != nil {
		return err
	}

	limiter := ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow)
	defer limiter.Close()

	srv, err := server.New(server.Options{
		Config:     cfg,
		Logger:     logger,
		Calculator: analysis.NewAdapter(analyzer, cfg.AnalysisTimeout, logger),
		Limiter:    limiter,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Error("Server error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func printHelp() {
	fmt.Println("image-calc - HTTP service that reads and solves maths from images")
	fmt.Println()
	fmt.Println("Usage: image-calc [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  SERVER_URL=0.0.0.0              Listen host")
	fmt.Println("  PORT=8900                       Listen port")
	fmt.Println("  ENV=dev                         dev for console logs, anything else for JSON")
	fmt.Println("  LOG_LEVEL=info                  debug, info, warn or error")
	fmt.Println("  ROUTE_PREFIX=/calculate         Path of the calculate endpoint")
	fmt.Println("  RATE_LIMIT_REQUESTS=10          Root endpoint quota per client")
	fmt.Println("  RATE_LIMIT_WINDOW=1m            Quota window")
	fmt.Println("  TRUST_PROXY_HEADERS=false       Key clients by X-Forwarded-For")
	fmt.Println("  ANALYSIS_TIMEOUT=60s            Deadline for one analysis")
	fmt.Println("  MAX_BODY_BYTES=20971520         Request body limit")
	fmt.Println("  MAX_IMAGE_PIXELS=89478485       Largest accepted width*height")
	fmt.Println("  SHUTDOWN_TIMEOUT=10s            Drain time on SIGINT/SIGTERM")
	fmt.Println("  ANALYZER_BACKEND=tesseract      tesseract, claude or openai")
	fmt.Println("  ANALYZER_MODEL=                 Model override for claude/openai")
	fmt.Println("  ANALYZER_MAX_TOKENS=1024        Reply length cap for claude/openai")
	fmt.Println("  ANALYZER_BASE_URL=              API endpoint override")
	fmt.Println("  ANALYZER_MAX_DIMENSION=1568     Longest image edge sent to a backend")
	fmt.Println("  ANALYZER_OCR_LANGUAGE=eng       Tesseract language")
	fmt.Println("  ANALYZER_TESSDATA_PREFIX=       Tesseract data directory")
	fmt.Println("  ANALYZER_OCR_CONCURRENCY=2      Parallel OCR jobs")
	fmt.Println("  ANALYZER_MIN_CONFIDENCE=0.2     OCR lines scored below this are returned raw")
	fmt.Println("  ANTHROPIC_API_KEY, OPENAI_API_KEY")
}
