package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/judgecore/engine/internal/boxpool"
	"github.com/judgecore/engine/internal/config"
	"github.com/judgecore/engine/internal/executor"
	"github.com/judgecore/engine/internal/handler"
	"github.com/judgecore/engine/internal/language"
	"github.com/judgecore/engine/internal/middleware"
	"github.com/judgecore/engine/internal/problem"
	"github.com/judgecore/engine/internal/sandbox"
	"github.com/judgecore/engine/internal/streamrun"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	logger := logrus.New()
	logger.SetLevel(cfg.GetLogLevel())
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	logger.Info("starting judge execution service")

	if err := os.MkdirAll(cfg.DataDirectory, 0755); err != nil {
		logger.WithError(err).Fatal("failed to create data directory")
	}

	registry := prometheus.NewRegistry()
	pool := boxpool.New(cfg.BoxIDMin, cfg.BoxIDMax, registry)
	driver := sandbox.New(cfg)
	langs := language.NewRegistry()
	exec := executor.New(pool, driver, langs, cfg)
	runner := streamrun.New(exec, cfg.BoxIDMax-cfg.BoxIDMin+1)
	problems := problem.NewHTTPClient(cfg.ProblemServiceURL)

	h := handler.NewHandler(langs, runner, problems, logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.BodyLimit(2 << 20)) // 2MB submissions

	r.Route("/api/v2", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.JSON)
			r.Group(func(r chi.Router) {
				r.Use(chiMiddleware.Timeout(60 * time.Second))
				r.Post("/execute", h.ExecuteCode)
			})
			r.Group(func(r chi.Router) {
				r.Use(chiMiddleware.Timeout(5 * time.Minute))
				r.Post("/submit", h.SubmitCode)
			})
		})
		r.Get("/runtimes", h.GetRuntimes)
	})

	r.Get("/", h.GetVersion)
	r.Get("/health", h.Health)

	server := &http.Server{
		Addr:              cfg.BindAddress,
		Handler:           r,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      6 * time.Minute,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsServer := &http.Server{
		Addr:    cfg.MetricsBind,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}

	go func() {
		logger.Infof("api server listening on %s", cfg.BindAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("api server failed")
		}
	}()

	go func() {
		logger.Infof("metrics server listening on %s", cfg.MetricsBind)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("metrics server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("api server forced to shutdown")
		os.Exit(1)
	}
	_ = metricsServer.Shutdown(ctx)

	logger.Info("server exited")
}
