// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package uampserver assembles the server-role connection lifecycle:
// handshake, simulation-spec exchange, the request loop backed by a
// worker pool, and termination, wired to the ambient logging,
// metrics, archival, rate-limiting and housekeeping components.
package uampserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/nishisan-dev/uamp/internal/archive"
	"github.com/nishisan-dev/uamp/internal/config"
	"github.com/nishisan-dev/uamp/internal/housekeeping"
	"github.com/nishisan-dev/uamp/internal/metrics"
)

// Server holds the long-lived state shared by every connection.
type Server struct {
	cfg      *config.ServerConfig
	logger   *slog.Logger
	metrics  *metrics.Registry
	uploader *archive.Uploader
	reaper   *housekeeping.Reaper
}

// New builds a Server. ctx is used only to bootstrap the optional S3
// uploader's credential chain.
func New(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
	}

	if cfg.Archive.Enabled && cfg.Archive.S3Bucket != "" {
		uploader, err := archive.NewUploader(ctx, cfg.Archive.S3Region, cfg.Archive.S3Bucket, cfg.Archive.S3Prefix)
		if err != nil {
			return nil, fmt.Errorf("uampserver: configuring S3 uploader: %w", err)
		}
		s.uploader = uploader
	}

	if cfg.Housekeeping.Enabled {
		reaper, err := housekeeping.New(cfg.Housekeeping.Cron, logger, func() error {
			if cfg.Archive.Directory == "" {
				return nil
			}
			return archive.Rotate(cfg.Archive.Directory, cfg.Archive.RetentionCount)
		})
		if err != nil {
			return nil, fmt.Errorf("uampserver: configuring housekeeping: %w", err)
		}
		s.reaper = reaper
	}

	return s, nil
}

// Metrics exposes the server's Prometheus registry, e.g. for mounting
// its handler on a metrics HTTP listener.
func (s *Server) Metrics() *metrics.Registry { return s.metrics }

func workerCount(configured int) int {
	if configured > 0 {
		return configured
	}
	counts, err := cpu.Counts(true)
	if err != nil || counts < 1 {
		return 1
	}
	return counts
}

// Run accepts connections on ln until ctx is cancelled, handling each
// on its own goroutine. It blocks until shutdown is complete.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	s.logger.Info("server listening", "address", ln.Addr().String())

	if s.reaper != nil {
		s.reaper.Start()
		defer s.reaper.Stop()
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down server")
		ln.Close()
	}()

	workers := workerCount(s.cfg.Workers)
	s.logger.Info("worker pool sized", "workers", workers)

	consecutiveErrors := 0
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.logger.Info("server shutdown complete")
				return nil
			default:
				consecutiveErrors++
				s.logger.Error("accepting connection", "error", err, "consecutive_errors", consecutiveErrors)
				if consecutiveErrors > 5 {
					delay := time.Duration(consecutiveErrors) * 100 * time.Millisecond
					if delay > 5*time.Second {
						delay = 5 * time.Second
					}
					time.Sleep(delay)
				}
				continue
			}
		}

		consecutiveErrors = 0
		go s.handleConnection(ctx, conn, workers)
	}
}
