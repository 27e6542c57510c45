package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ironsheep/image-calc-server/internal/analysis"
	"github.com/ironsheep/image-calc-server/internal/config"
	"github.com/ironsheep/image-calc-server/internal/imaging"
	"github.com/ironsheep/image-calc-server/internal/ratelimit"
	"go.uber.org/zap"
)

// Calculator turns a decoded image and its variables into result items.
// *analysis.Adapter implements it.
type Calculator interface {
	Analyze(ctx context.Context, req analysis.Request) ([]analysis.Item, error)
}

// Options holds the dependencies of a Server.
type Options struct {
	Config     *config.Config
	Logger     *zap.Logger
	Calculator Calculator

	// Limiter guards the root endpoint.
	Limiter ratelimit.Limiter
}

// Server is the HTTP front end of the calculator.
type Server struct {
	cfg     *config.Config
	log     *zap.Logger
	calc    Calculator
	limiter ratelimit.Limiter
	decoder imaging.Decoder
	handler http.Handler
}

// New creates a server instance. Config, Calculator and Limiter are required.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("server: config is required")
	}
	if opts.Calculator == nil {
		return nil, errors.New("server: calculator is required")
	}
	if opts.Limiter == nil {
		return nil, errors.New("server: limiter is required")
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		cfg:     opts.Config,
		log:     log,
		calc:    opts.Calculator,
		limiter: opts.Limiter,
		decoder: imaging.Decoder{MaxPixels: opts.Config.MaxImagePixels},
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// routes registers the endpoints and wraps them in the middleware chain,
// outermost first: request ID, access log, panic recovery, CORS.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET "+s.cfg.HealthPath(), s.handleHealth)
	mux.HandleFunc("POST "+s.cfg.RoutePrefix, s.handleCalculate)

	var h http.Handler = mux
	h = corsHandler().Handler(h)
	h = s.recoverer(h)
	h = s.accessLog(h)
	h = s.requestID(h)
	return h
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. In-flight requests
// get up to ShutdownTimeout to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          zap.NewStdLog(s.log.Named("http")),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server listening",
			zap.String("addr", ln.Addr().String()),
			zap.String("route", s.cfg.RoutePrefix))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("Shutting down", zap.Duration("timeout", s.cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
