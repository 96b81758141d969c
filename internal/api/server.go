// Package api provides the HTTP REST API and WebSocket server for the
// afaudio daemon.
//
// It exposes monitor lifecycle operations, device state queries, volume and
// mute control, and real-time change events to user interfaces and
// automation clients.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/WebAFilippov/af-win-audio/internal/history"
	"github.com/WebAFilippov/af-win-audio/internal/infrastructure/config"
	"github.com/WebAFilippov/af-win-audio/internal/infrastructure/logging"
	"github.com/WebAFilippov/af-win-audio/internal/monitor"
	"github.com/WebAFilippov/af-win-audio/internal/protocol"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Controller is the monitor surface the API drives.
//
// *monitor.Monitor satisfies it; tests substitute a stub.
type Controller interface {
	Start(ctx context.Context) error
	Stop() error
	Stats() monitor.Stats
	LastSnapshot() (protocol.DeviceSnapshot, bool)

	UpVolume() error
	UpVolumeBy(step int) error
	DownVolume() error
	DownVolumeBy(step int) error
	SetVolume(level int) error
	SetDeviceVolume(deviceID string, level int) error
	Mute() error
	Unmute() error
	ToggleMute() error
	MuteDevice(deviceID string) error
	UnmuteDevice(deviceID string) error
	ToggleMuteDevice(deviceID string) error
	SetPollDelay(delayMs int) error
	SetVolumeStep(step int) error
}

// HistoryReader is the change-history query surface the API reads from.
type HistoryReader interface {
	Recent(ctx context.Context, deviceID string, limit int) ([]history.Entry, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Monitor     Controller
	History     HistoryReader // optional; history endpoints report 404 without it
	ExternalHub *Hub          // if set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server for the afaudio daemon.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	logger  *logging.Logger
	monitor Controller
	history HistoryReader
	version string
	server  *http.Server
	hub     *Hub
	cancel  context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, monitor)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Monitor == nil {
		return nil, fmt.Errorf("monitor is required")
	}

	s := &Server{
		cfg:     deps.Config,
		wsCfg:   deps.WS,
		logger:  deps.Logger,
		monitor: deps.Monitor,
		history: deps.History,
		version: deps.Version,
		hub:     deps.ExternalHub,
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	// Create the WebSocket hub unless one was injected externally.
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	go s.hub.Run(srvCtx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Hub returns the WebSocket hub used for event broadcasting.
// It is nil before Start() unless an external hub was injected.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
