package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
)

const readHeaderTimeout = 10 * time.Second

// Server is a static HTTPS file server. New loads the certificate and
// binds the listeners; Start serves until the context is cancelled or
// the process receives SIGINT or SIGTERM.
type Server struct {
	config  ServerConfig
	handler http.Handler
	metrics *Metrics
	log     logr.Logger
	stdout  io.Writer

	listener        net.Listener
	metricsListener net.Listener
}

type Option func(*Server)

// WithOutput redirects the startup announcement, stdout by default.
func WithOutput(w io.Writer) Option {
	return func(s *Server) {
		s.stdout = w
	}
}

// New validates cfg, loads the key pair and binds the listeners. The
// certificate is loaded before any port is bound, so a ConfigError never
// leaves a listener open. Bind failures are reported as BindError.
func New(cfg ServerConfig, log logr.Logger, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cert, err := loadCertificate(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:  cfg,
		metrics: NewMetrics(),
		log:     log,
		stdout:  os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}

	static, err := NewStaticHandler(cfg.Root, cfg.ListDirs, s.metrics, log)
	if err != nil {
		return nil, &ConfigError{Field: "root", Err: err}
	}
	s.handler = s.buildHandler(static)

	if s.listener, err = listen(cfg.Addr(), newTLSConfig(cert), log); err != nil {
		return nil, err
	}
	if cfg.MetricsAddress != "" {
		if s.metricsListener, err = listen(cfg.MetricsAddress, nil, log); err != nil {
			s.listener.Close()
			return nil, err
		}
	}

	return s, nil
}

// buildHandler wraps the static handler, outermost first: access log,
// metrics, rate limit.
func (s *Server) buildHandler(static http.Handler) http.Handler {
	h := withRateLimit(static, s.config.RateLimit, s.config.RateBurst, s.metrics, s.log)
	h = s.metrics.Instrument(h)
	return withAccessLog(h, s.log)
}

// Addr is the bound TLS listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// MetricsAddr is the bound metrics listener address, nil when disabled.
func (s *Server) MetricsAddr() net.Addr {
	if s.metricsListener == nil {
		return nil
	}
	return s.metricsListener.Addr()
}

// URL is the announced serving address: the configured bind address with
// the port actually bound.
func (s *Server) URL() string {
	_, port, err := net.SplitHostPort(s.listener.Addr().String())
	if err != nil {
		port = fmt.Sprint(s.config.Port)
	}
	return "https://" + net.JoinHostPort(s.config.BindAddress, port)
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Close releases the listeners of a server that was never started.
func (s *Server) Close() error {
	err := s.listener.Close()
	if s.metricsListener != nil {
		if merr := s.metricsListener.Close(); err == nil {
			err = merr
		}
	}
	return err
}

// Start blocks and serves. It returns nil after a graceful shutdown. When
// requests are still in flight after ShutdownGrace their connections are
// closed and the returned error wraps context.DeadlineExceeded.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(s.stdout, "serving server on: %s\n", s.URL())
	s.log.Info("serving HTTPS", "addr", s.listener.Addr().String(), "root", s.config.Root)

	g, groupCtx := errgroup.WithContext(ctx)

	srv := s.newHTTPServer(s.handler)
	servers := []*http.Server{srv}
	g.Go(func() error {
		return serve(srv, s.listener)
	})

	if s.metricsListener != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metrics.Handler())
		msrv := &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
		servers = append(servers, msrv)
		g.Go(func() error {
			return serve(msrv, s.metricsListener)
		})
		s.log.Info("serving metrics", "addr", s.metricsListener.Addr().String())
	}

	g.Go(func() error {
		<-groupCtx.Done()
		s.log.Info("shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownGrace.Duration)
		defer cancel()

		// Every server must stop, or its Serve goroutine keeps g.Wait
		// blocked. Whatever outlives the grace period is closed hard.
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.log.Info("grace period expired, closing connections", "err", err.Error())
				errs = append(errs, fmt.Errorf("shutdown error: %w", err))
				if err := srv.Close(); err != nil {
					errs = append(errs, fmt.Errorf("close error: %w", err))
				}
			}
		}
		s.log.Info("shutdown complete")
		return errors.Join(errs...)
	})

	return g.Wait()
}

func (s *Server) newHTTPServer(h http.Handler) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       s.config.ReadTimeout.Duration,
		WriteTimeout:      s.config.WriteTimeout.Duration,
		IdleTimeout:       s.config.IdleTimeout.Duration,
		ErrorLog:          stdlog.New(errorLogWriter{log: s.log, metrics: s.metrics}, "", 0),
	}
}

func serve(srv *http.Server, l net.Listener) error {
	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("could not start server: %w", err)
	}
	return nil
}
