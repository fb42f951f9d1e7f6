package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zoomscribe/zoomscribe/internal/instrumentation"
	"github.com/zoomscribe/zoomscribe/internal/logging"
	"github.com/zoomscribe/zoomscribe/internal/server"
)

const (
	defaultHTTPAddr        = ":8080"
	serverStartupTimeout   = 5 * time.Second
	serverShutdownTimeout  = 30 * time.Second
	serverReadHeaderLimit  = 10 * time.Second
	serverWriteTimeout     = 10 * time.Minute // downloads run synchronously
	serverIdleTimeout      = 60 * time.Second
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		flags          commonFlags
		httpAddr       string
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server for recording queries and downloads",
		Long: `Start the HTTP server exposing the recording listing and download API.

Endpoints:
  GET  /api/health       health payload for readiness polling
  GET  /api/recordings   recording summaries with from/to/host/meeting filters
  POST /api/download     synchronous download trigger for one meeting
  GET  /healthz, /readyz orchestrator probes

Prometheus metrics are served on a dedicated listener (default :9090) so
operational data never shares a port with the query API.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			metricsConfig := MetricsConfig{
				Enabled: metricsEnabled,
				Addr:    metricsAddr,
			}
			if addr := os.Getenv("METRICS_ADDR"); addr != "" && metricsAddr == server.DefaultMetricsAddr {
				metricsConfig.Addr = addr
			}
			return runServe(flags, httpAddr, metricsConfig)
		},
	}

	registerCommonFlags(&flags, cmd.Flags())
	cmd.Flags().StringVar(&httpAddr, "http-addr", defaultHTTPAddr, "HTTP server address")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(flags commonFlags, httpAddr string, metricsConfig MetricsConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, logger, _, err := loadApp(flags)
	if err != nil {
		return err
	}
	log := logging.WithService(logger, "serve")

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			log.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	metrics := provider.Metrics()
	audit := instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)

	// Start metrics server if enabled
	var metricsServer *server.MetricsServer
	if metricsConfig.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsConfig.Addr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if serr := metricsServer.StartWithReadySignal(metricsReady); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
				metricsErr <- serr
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			log.Info("metrics server started", "addr", metricsServer.Addr())
		case serr := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", serr)
		case <-time.After(serverStartupTimeout):
			return fmt.Errorf("metrics server startup timed out")
		}
	}

	serverContext, err := server.NewServerContext(shutdownCtx, *cfg)
	if err != nil {
		return err
	}
	defer func() { _ = serverContext.Shutdown() }()

	api, err := server.NewAPI(server.APIConfig{
		Client:    serverContext.Client(),
		Downloads: cfg.Downloader,
		Logger:    logger,
		Metrics:   metrics,
		Audit:     audit,
	})
	if err != nil {
		return err
	}

	health := server.NewHealthChecker(serverContext)
	mux := http.NewServeMux()
	health.RegisterHealthEndpoints(mux)
	api.RegisterEndpoints(mux)

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: serverReadHeaderLimit,
		WriteTimeout:      serverWriteTimeout,
		IdleTimeout:       serverIdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting http server", "addr", httpAddr)
		if serr := httpServer.ListenAndServe(); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			serveErr <- serr
		}
		close(serveErr)
	}()

	select {
	case serr := <-serveErr:
		return fmt.Errorf("http server failed: %w", serr)
	case <-shutdownCtx.Done():
	}

	// Stop readiness before draining connections so load balancers divert
	// traffic first.
	health.SetReady(false)
	log.Info("shutting down")

	drainCtx, drainCancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer drainCancel()

	var errs []error
	if err := httpServer.Shutdown(drainCtx); err != nil {
		errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(drainCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
