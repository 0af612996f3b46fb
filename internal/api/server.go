// Package api provides the HTTP gateway the mini-app talks to.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/signal-miniapp/internal/logging"
	"github.com/signal-miniapp/internal/metrics"
	"github.com/signal-miniapp/internal/models"
	"github.com/signal-miniapp/internal/mutation"
	"github.com/signal-miniapp/internal/navigation"
	"github.com/signal-miniapp/internal/session"
	"github.com/signal-miniapp/internal/storage"
	"github.com/signal-miniapp/internal/wizard"
	"github.com/signal-miniapp/internal/worker"
)

// Service interfaces for dependency injection and testing

// UserServiceInterface defines the user reads the gateway needs
type UserServiceInterface interface {
	Authenticate(ctx context.Context, token string) (*models.AuthSession, error)
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
}

// BalanceServiceInterface defines the balance reads the gateway needs
type BalanceServiceInterface interface {
	GetBalance(ctx context.Context, telegramID int64) (*models.Balance, error)
	Transactions(ctx context.Context, telegramID int64) ([]models.Transaction, error)
	Profits(ctx context.Context, telegramID int64) ([]models.Profit, error)
	Investments(ctx context.Context, telegramID int64) (*models.Investments, error)
}

// SignalServiceInterface lists joinable signals
type SignalServiceInterface interface {
	Active(ctx context.Context, telegramID int64) ([]models.Signal, error)
}

// ReferralServiceInterface reads and binds referrals
type ReferralServiceInterface interface {
	Tree(ctx context.Context, telegramID int64) (*models.Referral, error)
	Check(ctx context.Context, telegramID int64, link string) (*models.CheckReferralResult, error)
}

// Dependencies are the components the handlers call
type Dependencies struct {
	Users     UserServiceInterface
	Balances  BalanceServiceInterface
	Signals   SignalServiceInterface
	Referrals ReferralServiceInterface

	Flows     *mutation.Flows
	Committer *wizard.Committer
	Router    *navigation.Router

	Sessions *storage.SessionStore
	Caches   *storage.SessionCaches
	Cookies  *session.CookieManager
	Board    *worker.CountdownBoard
	Metrics  *metrics.Metrics // optional
}

// Server represents the HTTP API server.
type Server struct {
	router      *mux.Router
	httpServer  *http.Server
	deps        Dependencies
	rateLimiter *RateLimiter
	config      *ServerConfig
	logger      *logging.Logger
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host             string
	Port             string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	ActionsPerSecond float64
	ActionBurst      int
	ReferralBaseURL  string
	BotLink          string
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, deps Dependencies) (*Server, error) {
	if deps.Users == nil || deps.Balances == nil || deps.Signals == nil || deps.Referrals == nil {
		return nil, fmt.Errorf("all read services are required")
	}
	if deps.Flows == nil || deps.Committer == nil || deps.Router == nil {
		return nil, fmt.Errorf("flows, committer and router are required")
	}
	if deps.Sessions == nil || deps.Caches == nil || deps.Cookies == nil || deps.Board == nil {
		return nil, fmt.Errorf("session store, caches, cookies and countdown board are required")
	}

	s := &Server{
		router:      mux.NewRouter(),
		deps:        deps,
		rateLimiter: NewRateLimiter(config.ActionsPerSecond, config.ActionBurst),
		config:      config,
		logger:      logging.GetGlobalLogger().WithField("component", "api"),
	}

	s.setupRouter()

	return s, nil
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Set up middleware (order matters!)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	if s.deps.Metrics != nil {
		s.router.Use(s.deps.Metrics.Middleware)
	}
	s.router.Use(CORSMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	// Public
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.deps.Metrics != nil {
		s.router.Handle("/metrics", s.deps.Metrics.Handler()).Methods(http.MethodGet)
	}
	s.router.HandleFunc("/auth", s.handleAuth).Methods(http.MethodGet)
	s.router.HandleFunc("/authorize", s.handleAuthorize).Methods(http.MethodGet)
	s.router.HandleFunc(string(navigation.ScreenSuccess), s.handleOutcome(navigation.ScreenSuccess)).Methods(http.MethodGet)
	s.router.HandleFunc(string(navigation.ScreenFailed), s.handleOutcome(navigation.ScreenFailed)).Methods(http.MethodGet)

	// Everything else needs a session
	app := s.router.NewRoute().Subrouter()
	app.Use(s.SessionMiddleware)

	app.HandleFunc("/", s.handleProfile).Methods(http.MethodGet)
	app.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	app.HandleFunc("/ref/{owner:[0-9]+}-{code:[0-9]+}", s.handleReferral).Methods(http.MethodGet)

	api := app.PathPrefix("/api").Subrouter()
	api.HandleFunc("/profile", s.handleProfile).Methods(http.MethodGet)
	api.HandleFunc("/balance", s.handleBalance).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.handleTransactions).Methods(http.MethodGet)
	api.HandleFunc("/investments", s.handleInvestments).Methods(http.MethodGet)
	api.HandleFunc("/signals", s.handleSignals).Methods(http.MethodGet)
	api.HandleFunc("/referrals", s.handleReferrals).Methods(http.MethodGet)
	api.HandleFunc("/automod", s.handleAutomod).Methods(http.MethodGet)
	api.HandleFunc("/plan", s.handlePlan).Methods(http.MethodGet)

	actions := app.PathPrefix("/actions").Subrouter()
	actions.Use(RateLimitMiddleware(s.rateLimiter))
	actions.HandleFunc("/transfer-to-main", s.handleTransferToMain).Methods(http.MethodPost)
	actions.HandleFunc("/transfer-to-trading", s.handleTransferToTrading).Methods(http.MethodPost)
	actions.HandleFunc("/topup", s.handleTopup).Methods(http.MethodPost)
	actions.HandleFunc("/plan", s.handleUpdatePlan).Methods(http.MethodPost)
	actions.HandleFunc("/reinvest", s.handleUpdateReinvest).Methods(http.MethodPost)
	actions.HandleFunc("/automod", s.handleToggleAutomod).Methods(http.MethodPost)
	actions.HandleFunc("/signals/{id:[0-9]+}/join", s.handleJoinSignal).Methods(http.MethodPost)

	wiz := app.PathPrefix("/wizard").Subrouter()
	wiz.HandleFunc("", s.handleWizardView).Methods(http.MethodGet)
	wiz.HandleFunc("/plan", s.handleWizardSelectPlan).Methods(http.MethodPost)
	wiz.HandleFunc("/next", s.handleWizardNext).Methods(http.MethodPost)
	wiz.HandleFunc("/back", s.handleWizardBack).Methods(http.MethodPost)
	wiz.HandleFunc("/reinvest", s.handleWizardSelectReinvest).Methods(http.MethodPost)
	wiz.Handle("/commit", RateLimitMiddleware(s.rateLimiter)(http.HandlerFunc(s.handleWizardCommit))).Methods(http.MethodPost)
}

// Handler returns the routed handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.deps.Sessions.Ping(ctx); err != nil {
		logging.FromContext(r.Context()).WithError(err).Warn("session store unreachable")
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "degraded",
			"service": "signal-miniapp",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"service":  "signal-miniapp",
		"sessions": s.deps.Caches.Len(),
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}
