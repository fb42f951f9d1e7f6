package server

import (
	"context"
	"sync"

	"github.com/zoomscribe/zoomscribe/internal/config"
	"github.com/zoomscribe/zoomscribe/internal/zoom"
)

// ServerContext bundles the application config with the shared Zoom client
// and tracks shutdown state for the health endpoints.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    config.Config
	client *zoom.Client

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext builds the shared client from cfg. It fails fast on
// missing credentials so the process never serves traffic it cannot handle.
func NewServerContext(ctx context.Context, cfg config.Config) (*ServerContext, error) {
	tokens, err := zoom.NewTokenProvider(zoom.Credentials{
		AccountID:    cfg.Credentials.AccountID,
		ClientID:     cfg.Credentials.ClientID,
		ClientSecret: cfg.Credentials.ClientSecret,
	}, cfg.TokenURL)
	if err != nil {
		return nil, err
	}

	client, err := zoom.NewClient(zoom.Config{
		BaseURL: cfg.BaseURL,
		Tokens:  tokens,
		Scope:   zoom.ListScope(cfg.Scope),
	})
	if err != nil {
		return nil, err
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		cfg:    cfg,
		client: client,
	}, nil
}

// Context returns the server's lifetime context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Client returns the shared Zoom client.
func (sc *ServerContext) Client() *zoom.Client {
	return sc.client
}

// Config returns the application configuration the server was built with.
func (sc *ServerContext) Config() config.Config {
	return sc.cfg
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. Safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.cancel()
	return nil
}
