package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/alphabot-ai/confessional/internal/logging"
)

// HTTPServer is the part of *http.Server the HTTP service drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

type HTTPService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

func NewHTTPService(server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve runs the listener until it fails or ctx is done, then drains
// in-flight requests for up to the shutdown timeout.
func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPService) String() string { return "http-server" }

type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

type HubService struct {
	hub ContextHub
}

func NewHubService(hub ContextHub) *HubService {
	return &HubService{hub: hub}
}

func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

func (s *HubService) String() string { return "live-hub" }

type Loader interface {
	Load(ctx context.Context) error
}

// LoaderService loads the classifier model once. A failed load is not
// retried: the adapter stays unavailable and the fail policy decides what
// happens to uploads.
type LoaderService struct {
	loader Loader
}

func NewLoaderService(loader Loader) *LoaderService {
	return &LoaderService{loader: loader}
}

func (s *LoaderService) Serve(ctx context.Context) error {
	if err := s.loader.Load(ctx); err != nil {
		log := logging.WithComponent("supervisor")
		log.Warn().Err(err).Msg("classifier load finished with error")
	}
	return suture.ErrDoNotRestart
}

func (s *LoaderService) String() string { return "classifier-loader" }
