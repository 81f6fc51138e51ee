// Package server provides the HTTP API of the fiscal gateway.
//
// # Account API
//
//   - POST   /api/v1/account/setup       - create an account from a certificate (multipart)
//   - GET    /api/v1/account/status      - certificate and account dates
//   - PUT    /api/v1/account/certificate - replace the certificate (multipart)
//   - DELETE /api/v1/account             - delete the account
//
// Multipart uploads carry the PKCS#12 container in the "certificado" part
// and its passphrase in the "senha" field. Setup is the only route that
// does not require an API key.
//
// # NF-e API
//
//   - POST /api/v1/nfe/emitir     - sign and submit an NF-e for authorization
//   - POST /api/v1/nfe/consultar  - query an NF-e by access key
//   - POST /api/v1/nfe/cancelar   - cancellation event
//   - POST /api/v1/nfe/inutilizar - inutilize a number range
//   - POST /api/v1/nfe/status     - SEFAZ service status
//
// # São Paulo NFS-e API
//
//   - POST /api/v1/nfse/sp/sao-paulo/envio-lote-rps        - send RPS (metodo assincrono or sincrono)
//   - POST /api/v1/nfse/sp/sao-paulo/teste-envio-lote-rps  - validate a lot without issuing
//   - POST /api/v1/nfse/sp/sao-paulo/consulta-situacao-lote - lot processing situation
//
// Fiscal routes accept includeSoap either in the body or as a query
// parameter.
//
// # Health
//
//   - GET /health - liveness and account store connectivity
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sirosfoundation/go-fiscal/internal/auth"
	"github.com/sirosfoundation/go-fiscal/internal/config"
	"github.com/sirosfoundation/go-fiscal/internal/logger"
	"github.com/sirosfoundation/go-fiscal/internal/server/middleware"
	"github.com/sirosfoundation/go-fiscal/internal/server/respond"
	"github.com/sirosfoundation/go-fiscal/internal/service"
	"github.com/sirosfoundation/go-fiscal/internal/storage"
	"github.com/sirosfoundation/go-fiscal/internal/tenant"
)

// healthTimeout bounds the account store ping of /health.
const healthTimeout = 3 * time.Second

// Server is the fiscal gateway HTTP server
type Server struct {
	config   *config.Config
	logger   *slog.Logger
	router   *chi.Mux
	store    storage.AccountStore
	accounts *tenant.Service
	fiscal   *service.Service
	auth     *auth.Authenticator
}

// New creates a new server
func New(cfg *config.Config, store storage.AccountStore, accounts *tenant.Service, fiscal *service.Service, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		config:   cfg,
		logger:   log,
		router:   chi.NewRouter(),
		store:    store,
		accounts: accounts,
		fiscal:   fiscal,
		auth:     auth.NewAuthenticator(accounts),
	}
	s.setupMiddleware()
	s.registerRoutes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.RequestLogger(s.logger))
	s.router.Use(chimw.Recoverer)
	s.router.Use(middleware.SecurityHeaders(s.config.Server.Environment))
	s.router.Use(middleware.RateLimit(s.config.Server.RateLimit.RPS, s.config.Server.RateLimit.Burst))
	s.router.Use(middleware.RequestSizeLimit(s.config.Server.MaxBodyBytes))
}

func (s *Server) registerRoutes() {
	s.router.NotFound(s.handleNotFound)
	s.router.MethodNotAllowed(s.handleMethodNotAllowed)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/account/setup", s.handleSetup)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAPIKey)

			r.Get("/account/status", s.handleAccountStatus)
			r.Put("/account/certificate", s.handleRotateCertificate)
			r.Delete("/account", s.handleDeleteAccount)

			r.Route("/nfe", func(r chi.Router) {
				r.Post("/emitir", handle(s, "nfe.emit", s.fiscal.Emit,
					func(req *service.EmitRequest) *bool { return &req.IncludeSoap }))
				r.Post("/consultar", handle(s, "nfe.query", s.fiscal.Query,
					func(req *service.QueryRequest) *bool { return &req.IncludeSoap }))
				r.Post("/cancelar", handle(s, "nfe.cancel", s.fiscal.Cancel,
					func(req *service.CancelRequest) *bool { return &req.IncludeSoap }))
				r.Post("/inutilizar", handle(s, "nfe.inutilize", s.fiscal.Inutilize,
					func(req *service.InutilizeRequest) *bool { return &req.IncludeSoap }))
				r.Post("/status", handle(s, "nfe.status", s.fiscal.ServiceStatus,
					func(req *service.StatusRequest) *bool { return &req.IncludeSoap }))
			})

			r.Route("/nfse/sp/sao-paulo", func(r chi.Router) {
				r.Post("/envio-lote-rps", handle(s, "nfse.sp.send", s.fiscal.Submit,
					func(req *service.BatchRequest) *bool { return &req.IncludeSoap }))
				r.Post("/teste-envio-lote-rps", handle(s, "nfse.sp.test", s.fiscal.TestBatch,
					func(req *service.BatchRequest) *bool { return &req.IncludeSoap }))
				r.Post("/consulta-situacao-lote", handle(s, "nfse.sp.lot_status", s.fiscal.LotStatus,
					func(req *service.LotStatusRequest) *bool { return &req.IncludeSoap }))
			})
		})
	})
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("Service listening",
			slog.String("environment", s.config.Server.Environment),
			slog.String("address", addr),
			slog.Bool("tls", s.config.Server.TLS.Enabled))

		var err error
		if s.config.Server.TLS.Enabled {
			err = httpServer.ListenAndServeTLS(s.config.Server.TLS.CertFile, s.config.Server.TLS.KeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		s.logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP server shutdown error", slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// requireAPIKey authenticates the X-API-Key header and stores the key in
// the request context.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey, err := s.auth.ValidateRequest(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}

		ctx := r.Context()
		keyID := slog.String("api_key_id", logger.KeyID(apiKey))
		logger.ContextWithLogAttrs(ctx, keyID)
		ctx = logger.ContextWithLogger(ctx, logger.ContextRequestLogger(ctx).With(keyID))
		ctx = auth.ContextWithAPIKey(ctx, apiKey)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// fail writes the error envelope of err. Diagnostic details are hidden in
// production.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	respond.Error(w, r, err, !s.config.IsProduction())
}

// HealthStatus is the body of /health
type HealthStatus struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Storage     string `json:"storage"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := HealthStatus{Status: "ok", Environment: s.config.Server.Environment, Storage: "ok"}
	code := http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		logger.ContextRequestLogger(r.Context()).Warn("Account store unreachable", slog.String("error", err.Error()))
		status.Status = "degraded"
		status.Storage = "unreachable"
		code = http.StatusServiceUnavailable
	}
	respond.JSON(w, code, status)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusNotFound, respond.Envelope{Error: &respond.ErrorBody{
		Code:    "ROUTE_NOT_FOUND",
		Message: "no route for " + r.Method + " " + r.URL.Path,
	}})
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusMethodNotAllowed, respond.Envelope{Error: &respond.ErrorBody{
		Code:    "METHOD_NOT_ALLOWED",
		Message: r.Method + " is not allowed on " + r.URL.Path,
	}})
}
