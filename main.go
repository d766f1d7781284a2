package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Iqra-23/intrusion-backend/alerting"
	"github.com/Iqra-23/intrusion-backend/broadcast"
	"github.com/Iqra-23/intrusion-backend/classifier"
	"github.com/Iqra-23/intrusion-backend/config"
	"github.com/Iqra-23/intrusion-backend/database"
	"github.com/Iqra-23/intrusion-backend/detector"
	"github.com/Iqra-23/intrusion-backend/geo"
	"github.com/Iqra-23/intrusion-backend/handlers"
	"github.com/Iqra-23/intrusion-backend/kafka"
	"github.com/Iqra-23/intrusion-backend/mailer"
	"github.com/Iqra-23/intrusion-backend/middleware"
	"github.com/Iqra-23/intrusion-backend/proxy"
	"github.com/Iqra-23/intrusion-backend/repository"
	"github.com/Iqra-23/intrusion-backend/traffic"
)

func main() {
	cfg := config.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "intrusion-backend").Logger()

	db, err := database.New(cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		logger.Fatal().Err(err).Msg("schema initialization failed")
	}
	logger.Info().Msg("connected to postgres")

	logRepo := repository.NewLogRepository(db.Conn())
	trafficRepo := repository.NewTrafficEventRepository(db.Conn())
	alertRepo := repository.NewAlertRepository(db.Conn())
	userRepo := repository.NewUserRepository(db.Conn())
	apiKeyRepo := repository.NewAPIKeyRepository(db.Conn())

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()
	publisher := kafka.NewSecurityEventPublisher(producer)

	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	defer cancelConsumer()
	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, "security-monitors",
		&kafka.LoggingEventHandler{Logger: logger}, logger)
	consumer.Start(consumerCtx)
	defer consumer.Close()

	var window detector.Window
	if cfg.SpikeStore == "redis" {
		rw := detector.NewRedisWindow(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SpikeWindow, cfg.SpikeThreshold)
		if err := rw.Ping(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable, falling back to in-memory spike window")
			window = detector.NewMemoryWindow(cfg.SpikeWindow, cfg.SpikeThreshold, cfg.SpikeKeyCeiling)
		} else {
			window = rw
			defer rw.Close()
		}
	} else {
		window = detector.NewMemoryWindow(cfg.SpikeWindow, cfg.SpikeThreshold, cfg.SpikeKeyCeiling)
	}

	geoClient := geo.NewClient(cfg.GeoAPIURL, cfg.GeoTimeout)

	hub := broadcast.NewHub(logger)
	mail := mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, logger)
	dispatcher := alerting.NewDispatcher(hub, mail, publisher, cfg.AdminEmail, cfg.DashboardURL, logger)
	cls := classifier.New(alertRepo, dispatcher, logger)

	recorder := traffic.NewRecorder(traffic.RecorderOptions{
		Store:             trafficRepo,
		Window:            window,
		Geo:               geoClient,
		Spikes:            publisher,
		Logger:            logger,
		HighRiskCountries: cfg.HighRiskCountries,
	})

	logHandler := handlers.NewLogHandler(logRepo, cls, logger)
	trafficHandler := handlers.NewTrafficHandler(trafficRepo, logger)
	alertHandler := handlers.NewAlertHandler(alertRepo, logger)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret, apiKeyRepo, userRepo)
	loggingMiddleware := middleware.NewLoggingMiddleware(logger)

	mux := http.NewServeMux()

	mux.HandleFunc("/health", alertHandler.HealthCheck)
	mux.Handle("/events", hub)

	mux.HandleFunc("/api/logs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			logHandler.Create(w, r)
		case http.MethodGet:
			logHandler.List(w, r)
		default:
			http.Error(w, `{"error": "method not allowed"}`, http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/logs/stats", logHandler.Stats)
	mux.HandleFunc("/api/logs/archive", requirePost(logHandler.Archive))

	mux.HandleFunc("/api/traffic", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			trafficHandler.List(w, r)
		case http.MethodDelete:
			trafficHandler.Delete(w, r)
		default:
			http.Error(w, `{"error": "method not allowed"}`, http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/traffic/stats", trafficHandler.Stats)
	mux.HandleFunc("/api/traffic/alerts", trafficHandler.RecentSpikes)

	mux.HandleFunc("/api/alerts", alertHandler.List)
	mux.HandleFunc("/api/alerts/ack", requirePost(alertHandler.Acknowledge))
	mux.HandleFunc("/api/alerts/resolve", requirePost(alertHandler.Resolve))
	mux.HandleFunc("/api/alerts/delete", requirePost(alertHandler.Delete))

	if cfg.BackendURL != "" {
		reverseProxy, err := proxy.NewReverseProxy(cfg.BackendURL)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create reverse proxy")
		} else {
			mux.Handle("/app/", http.StripPrefix("/app", reverseProxy))
			logger.Info().Str("backend", cfg.BackendURL).Msg("monitor-in-front proxying enabled")
		}
	}

	var handler http.Handler = mux
	handler = recorder.Record(handler)
	handler = authMiddleware.OptionalAuth(handler)
	handler = middleware.CORS(handler)
	handler = loggingMiddleware.Log(handler)

	// No WriteTimeout: /events holds long-lived SSE streams.
	server := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.ServerPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}

func requirePost(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, `{"error": "method not allowed"}`, http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}
