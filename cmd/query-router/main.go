// cmd/query-router/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"product-query-router/internal/app"
	"product-query-router/internal/common/camunda"
	"product-query-router/internal/common/config"
	"product-query-router/internal/common/logger"
	"product-query-router/internal/common/observability"
	"product-query-router/internal/transport/telegram"
	agentmanager "product-query-router/internal/workers/product-query/agent-manager"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog, err := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting query router...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.Observability.ServiceName,
		observability.WithSampleRatio(cfg.Observability.TraceSampleRatio))
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := app.Build(ctx, cfg, app.DefaultConnectPolicy, obs, log)
	if err != nil {
		zapLog.Fatal("pipeline init failed", zap.Error(err))
	}
	defer pipeline.Close()

	// --- Zeebe job worker ---
	var (
		zeebe  *camunda.Client
		worker *camunda.Worker
	)
	if cfg.Camunda.Enabled {
		zeebe, err = camunda.NewClient(camunda.ConfigFromSettings(cfg.Camunda))
		if err != nil {
			zapLog.Fatal("zeebe client failed", zap.Error(err))
		}
		worker = camunda.NewWorker(zeebe.GetClient(), agentmanager.TaskType, cfg.Camunda.MaxJobsActive, pipeline.Jobs, log)
	}

	// --- Telegram transport ---
	var wg sync.WaitGroup
	if cfg.Transport.Telegram.Enabled {
		adapter, err := telegram.New(cfg.Transport.Telegram, cfg.Transport.MaxConcurrentQueries, pipeline.Manager, log)
		if err != nil {
			zapLog.Fatal("telegram init failed", zap.Error(err))
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := adapter.Run(ctx); err != nil {
				zapLog.Error("telegram adapter stopped", zap.Error(err))
				stop()
			}
		}()
	}

	// --- Health / metrics server ---
	server := &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           newServeMux(pipeline, zeebe),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", cfg.App.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if worker != nil {
		worker.Stop()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	wg.Wait()

	zapLog.Info("Query router stopped")
}

func newServeMux(pipeline *app.App, zeebe *camunda.Client) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		err := pipeline.Ready(ctx)
		if zeebe != nil {
			err = errors.Join(err, zeebe.HealthCheck(ctx))
		}
		if err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "not ready", err)
			return
		}
		writeStatus(w, http.StatusOK, "ready", nil)
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeStatus(w http.ResponseWriter, code int, status string, err error) {
	body := map[string]string{"status": status}
	if err != nil {
		body["error"] = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
