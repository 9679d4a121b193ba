// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nishisan-dev/uamp/internal/config"
	"github.com/nishisan-dev/uamp/internal/logging"
	"github.com/nishisan-dev/uamp/internal/uampserver"
)

func main() {
	configPath := flag.String("config", "/etc/uamp/server.yaml", "path to server config file")
	daemon := flag.Bool("daemon", false, "daemonise after the listener is ready")
	flag.Parse()

	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser := logging.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	defer logCloser.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	srv, err := uampserver.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("constructing server", "error", err)
		os.Exit(1)
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		logger.Error("listening", "address", cfg.Listen, "error", err)
		os.Exit(1)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", srv.Metrics().Handler())
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
				logger.Warn("metrics listener stopped", "error", err)
			}
		}()
		logger.Info("metrics listening", "address", cfg.Metrics.Listen)
	}

	addr := ln.Addr().(*net.TCPAddr)
	if *daemon {
		fmt.Printf("ready on port %d with PID %d\n", addr.Port, os.Getpid())
		devNull, _ := os.OpenFile(os.DevNull, os.O_RDWR, 0)
		if devNull != nil {
			os.Stdout = devNull
			os.Stderr = devNull
		}
	}

	if err := srv.Run(ctx, ln); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
