package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/signal-miniapp/internal/adapter"
	"github.com/signal-miniapp/internal/api"
	"github.com/signal-miniapp/internal/config"
	"github.com/signal-miniapp/internal/logging"
	"github.com/signal-miniapp/internal/metrics"
	"github.com/signal-miniapp/internal/mutation"
	"github.com/signal-miniapp/internal/navigation"
	"github.com/signal-miniapp/internal/service"
	"github.com/signal-miniapp/internal/session"
	"github.com/signal-miniapp/internal/storage"
	"github.com/signal-miniapp/internal/wizard"
	"github.com/signal-miniapp/internal/worker"
)

func main() {
	fmt.Println("Signal Mini-App Gateway")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	redisClient, err := storage.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	backend, err := adapter.NewBackendClient(adapter.BackendClientConfig{
		BaseURL:        cfg.Backend.BaseURL,
		Timeout:        cfg.Backend.Timeout,
		Logger:         logger.Slog().With("component", "backend"),
		LogMaxBodySize: cfg.Backend.LogMaxBodySize,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create backend client")
	}
	logger.WithField("backend", cfg.Backend.BaseURL).Info("Backend client initialized")

	users := service.NewUserService(backend)
	balances := service.NewBalanceService(backend)
	plans := service.NewPlanService(backend)
	reinvest := service.NewReinvestService(backend)
	signals := service.NewSignalService(backend)
	referrals := service.NewReferralService(backend)

	m := metrics.New()
	router := navigation.NewRouter(logger.WithField("component", "navigation"))
	ctrl := mutation.NewController(router, m)
	guard := mutation.NewGuard()
	flows := mutation.NewFlows(ctrl, guard, mutation.FlowServices{
		Balance:  balances,
		Plan:     plans,
		Reinvest: reinvest,
		Automod:  users,
		Signals:  signals,
	})

	caches := storage.NewSessionCaches(m)
	board := worker.NewCountdownBoard()

	cookies, err := session.NewCookieManager(session.CookieConfig{
		Secret: cfg.Session.Secret,
		TTL:    cfg.Session.TTL,
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.Secure,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create session cookie manager")
	}

	scheduler, err := worker.NewScheduler(worker.SchedulerConfig{
		CountdownInterval: cfg.Countdown.Interval,
		SessionIdle:       cfg.Session.TTL,
	}, board, caches)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create scheduler")
	}

	serverConfig := &api.ServerConfig{
		Host:             cfg.Server.Host,
		Port:             cfg.Server.Port,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		IdleTimeout:      60 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
		ActionsPerSecond: cfg.RateLimit.ActionsPerSecond,
		ActionBurst:      cfg.RateLimit.Burst,
		ReferralBaseURL:  cfg.Referral.BaseURL,
		BotLink:          cfg.Bot.Link,
	}

	server, err := api.NewServer(serverConfig, api.Dependencies{
		Users:     users,
		Balances:  balances,
		Signals:   signals,
		Referrals: referrals,
		Flows:     flows,
		Committer: wizard.NewCommitter(ctrl, flows, router, guard),
		Router:    router,
		Sessions:  storage.NewSessionStore(redisClient),
		Caches:    caches,
		Cookies:   cookies,
		Board:     board,
		Metrics:   m,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create server")
	}

	scheduler.Start()

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	if err := scheduler.Shutdown(); err != nil {
		logger.WithError(err).Error("Scheduler did not stop cleanly")
	}

	logger.Info("Server exited")
}
