package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/wp2line/app/api"
	"github.com/lysyi3m/wp2line/app/cfg"
	"github.com/lysyi3m/wp2line/app/feed"
	"github.com/lysyi3m/wp2line/app/health"
	"github.com/lysyi3m/wp2line/app/linetoday"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg.Debug)
	gin.SetMode(gin.ReleaseMode)

	slog.Info("Starting wp2line", "version", appCfg.Version, "feed_url", appCfg.FeedURL)

	profileCache := feed.NewProfileCache(appCfg.ProfilesDir)
	if err := profileCache.Run(); err != nil {
		slog.Error("Failed to load profiles", "dir", appCfg.ProfilesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Profiles loaded", "dir", appCfg.ProfilesDir, "count", profileCache.GetProfileCount())

	// Upstream requests are bounded by the inbound request context only
	httpClient := &http.Client{}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler := api.NewHandler(
		feed.NewFetcher(httpClient, feed.NewParser(), appCfg.UserAgent),
		feed.NewContentExtractor(httpClient, appCfg.UserAgent),
		linetoday.NewTransformer(),
		health.NewProber(httpClient, appCfg.UserAgent),
		profileCache,
		appCfg.DefaultProfile(),
		api.NewMetrics(registry),
	)

	httpServer := &http.Server{
		Addr:        appCfg.Addr(),
		Handler:     api.NewServer(handler, registry),
		IdleTimeout: 120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", appCfg.Addr(), "tls", appCfg.TLSEnabled())

		var err error
		if appCfg.TLSEnabled() {
			err = httpServer.ListenAndServeTLS(appCfg.CertFile, appCfg.KeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("wp2line shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
