package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cast"

	"github.com/nsls2-sst/ucal-export/internal/config"
	"github.com/nsls2-sst/ucal-export/internal/handlers"
	"github.com/nsls2-sst/ucal-export/internal/messages"
	"github.com/nsls2-sst/ucal-export/internal/metrics"
)

const (
	PATH_PARAMETER_RUN_ID = "uid"
	DefaultPort           = 8080
)

type Server struct {
	httpServer    *http.Server
	port          int
	logger        *slog.Logger
	serviceConfig *config.ServiceConfig
	handlers      *handlers.Handlers
	metrics       *metrics.Metrics
}

// NewServer creates the trigger server. Routing uses net/http.ServeMux and
// every route switches on the HTTP method itself.
func NewServer(logger *slog.Logger, serviceConfig *config.ServiceConfig, h *handlers.Handlers, m *metrics.Metrics) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for the server")
	}
	if serviceConfig == nil {
		return nil, fmt.Errorf("service config is required for the server")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required for the server")
	}
	if m == nil {
		return nil, fmt.Errorf("metrics are required for the server")
	}
	port := serviceConfig.Port
	if port == 0 {
		port = DefaultPort
	}
	return &Server{
		port:          port,
		logger:        logger,
		serviceConfig: serviceConfig,
		handlers:      h,
		metrics:       m,
	}, nil
}

func (s *Server) GetPort() int {
	return s.port
}

// loggerWithRequest adds the request id (X-Global-Transaction-Id, or a new
// UUID) and the request fields that are present.
func (s *Server) loggerWithRequest(r *http.Request) (string, *slog.Logger) {
	requestID := r.Header.Get("X-Global-Transaction-Id")
	if requestID == "" {
		requestID = uuid.New().String()
	}

	enhancedLogger := s.logger.With("request_id", requestID)
	if r.Method != "" {
		enhancedLogger = enhancedLogger.With("method", r.Method)
	}
	uri := ""
	if r.URL != nil {
		uri = r.URL.Path
	}
	if uri == "" {
		uri = r.RequestURI
	}
	if uri != "" {
		enhancedLogger = enhancedLogger.With("uri", uri)
	}
	if userAgent := r.Header.Get("User-Agent"); userAgent != "" {
		enhancedLogger = enhancedLogger.With("user_agent", userAgent)
	}
	if r.RemoteAddr != "" {
		enhancedLogger = enhancedLogger.With("remote_addr", r.RemoteAddr)
	}
	remoteUser := ""
	if r.URL != nil && r.URL.User != nil {
		remoteUser = r.URL.User.Username()
	}
	if remoteUser == "" {
		remoteUser = r.Header.Get("Remote-User")
	}
	if remoteUser != "" {
		enhancedLogger = enhancedLogger.With("remote_user", remoteUser)
	}
	return requestID, enhancedLogger
}

func (s *Server) newRequest(r *http.Request) *handlers.Request {
	requestID, logger := s.loggerWithRequest(r)
	uri := r.RequestURI
	if uri == "" && r.URL != nil {
		uri = r.URL.Path
	}
	return &handlers.Request{
		Ctx:       r.Context(),
		RequestID: requestID,
		Logger:    logger,
		Method:    r.Method,
		URI:       uri,
	}
}

func (s *Server) setupRoutes() (http.Handler, error) {
	router := http.NewServeMux()
	h := s.handlers

	router.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		req := s.newRequest(r)
		switch r.Method {
		case http.MethodGet:
			h.HandleHealth(req, w)
		default:
			h.ErrorWithMessageCode(req, w, messages.MethodNotAllowed, "Method", r.Method, "Api", req.URI)
		}
	})

	router.HandleFunc(fmt.Sprintf("/api/v1/runs/{%s}/export", PATH_PARAMETER_RUN_ID), func(w http.ResponseWriter, r *http.Request) {
		req := s.newRequest(r)
		switch r.Method {
		case http.MethodPost:
			h.HandleExport(req, w, r.PathValue(PATH_PARAMETER_RUN_ID))
		default:
			h.ErrorWithMessageCode(req, w, messages.MethodNotAllowed, "Method", r.Method, "Api", req.URI)
		}
	})

	router.HandleFunc(fmt.Sprintf("/api/v1/runs/{%s}/process", PATH_PARAMETER_RUN_ID), func(w http.ResponseWriter, r *http.Request) {
		req := s.newRequest(r)
		switch r.Method {
		case http.MethodPost:
			reprocess := cast.ToBool(r.URL.Query().Get("reprocess"))
			h.HandleProcess(req, w, r.PathValue(PATH_PARAMETER_RUN_ID), reprocess)
		default:
			h.ErrorWithMessageCode(req, w, messages.MethodNotAllowed, "Method", r.Method, "Api", req.URI)
		}
	})

	router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	return Middleware(router, s.metrics), nil
}

// SetupRoutes exposes the route setup for testing
func (s *Server) SetupRoutes() (http.Handler, error) {
	return s.setupRoutes()
}

// Start serves until Shutdown is called. An export can take minutes, so the
// write timeout is far longer than the read timeout.
func (s *Server) Start() error {
	handler, err := s.setupRoutes()
	if err != nil {
		return err
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	if s.serviceConfig.ReadyFile != "" {
		if err := SetReady(s.serviceConfig, s.port, s.logger); err != nil {
			return err
		}
		defer ClearReady(s.serviceConfig, s.logger)
	}

	s.logger.Info("Server starting", "port", s.port)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server gracefully...")
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
