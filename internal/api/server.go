package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/nerrad567/gray-logic-db/internal/governance"
	"github.com/nerrad567/gray-logic-db/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-db/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-db/internal/parity"
	"github.com/nerrad567/gray-logic-db/internal/pool"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// ParityFunc runs the parity battery and returns its report.
type ParityFunc func(ctx context.Context) (*parity.Report, error)

// GateListener is told about every gate evaluation served by the API.
type GateListener func(ctx context.Context, res governance.GateResult)

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Pool     *pool.Pool
	Registry *governance.Registry
	// Parity is optional; without it POST /parity/run returns 503.
	Parity ParityFunc
	// OnGate is optional.
	OnGate  GateListener
	Version string
}

// Server is the HTTP status and governance API.
//
// It is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	logger   *logging.Logger
	pool     *pool.Pool
	registry *governance.Registry
	runner   ParityFunc
	onGate   GateListener
	version  string

	startTime   time.Time
	httpMetrics *metrics.Set
	server      *http.Server
	listener    net.Listener

	runMu      sync.Mutex // serialises harness runs
	decideMu   sync.Mutex // serialises status decisions and their save
	parityMu   sync.Mutex // guards lastReport
	lastReport *parity.Report
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Logger, Pool and Registry are required
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("deviation registry is required")
	}

	return &Server{
		cfg:         deps.Config,
		logger:      deps.Logger.Component("api"),
		pool:        deps.Pool,
		registry:    deps.Registry,
		runner:      deps.Parity,
		onGate:      deps.OnGate,
		version:     deps.Version,
		startTime:   time.Now(),
		httpMetrics: metrics.NewSet(),
	}, nil
}

// Handler returns the router without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// SetParityReport records a report produced outside the API, such as the
// startup run.
func (s *Server) SetParityReport(r *parity.Report) {
	s.parityMu.Lock()
	s.lastReport = r
	s.parityMu.Unlock()
}

// Start binds the listener and serves in a background goroutine.
//
// Returns:
//   - error: If the address cannot be bound (port in use, etc.)
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("binding API listener: %w", err)
	}
	s.listener = ln

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", ln.Addr().String(), "cert", s.cfg.TLS.CertFile)
			err = s.server.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", ln.Addr().String())
			err = s.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server, waiting up to 10 seconds
// for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server has been started.
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
