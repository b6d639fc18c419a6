package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spacekv/internal/common"
	"spacekv/internal/metrics"
	"spacekv/internal/server"
	"spacekv/internal/store"
)

var logger = common.NewLogger("server")

const defaultConfigPath = "./spacekv.conf"

func main() {
	settings, err := common.ReadSettings(defaultConfigPath, os.Args[1:])
	if err != nil {
		logger.Error("failed to parse settings: %v", err)
		os.Exit(1)
	}

	logger.Info("starting spacekv server")
	logger.Info("bind address: %s", settings.Addr())
	logger.Info("aof path:     %s", settings.AofPath)

	engine, err := store.NewEngine(settings.AofPath, common.NewLogger("engine"))
	if err != nil {
		logger.Error("failed to restore engine from %s: %v", settings.AofPath, err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	if settings.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			logger.Info("serving metrics on %s", settings.MetricsAddr)
			if err := http.ListenAndServe(settings.MetricsAddr, mux); err != nil {
				logger.Error("metrics listener stopped: %v", err)
			}
		}()
	}

	srv := server.New(engine, common.NewLogger("server"), m)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Warn("signal received, shutting down")
		if err := srv.Shutdown(); err != nil {
			logger.Error("shutdown error: %v", err)
		}
	}()

	if err := srv.Serve(settings.Addr()); err != nil {
		fmt.Fprintln(os.Stderr, "server error:", err)
		os.Exit(1)
	}

	logger.Warn("graceful shutdown complete")
}
