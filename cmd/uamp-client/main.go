// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/nishisan-dev/uamp/internal/config"
	"github.com/nishisan-dev/uamp/internal/logging"
	"github.com/nishisan-dev/uamp/internal/protoerr"
	"github.com/nishisan-dev/uamp/internal/protocol"
	"github.com/nishisan-dev/uamp/internal/uampclient"
)

func main() {
	configPath := flag.String("config", "/etc/uamp/client.yaml", "path to client config file")
	protocolOverride := flag.String("protocol", "", "override the config's protocol (uamp|mvisp)")
	agentsOverride := flag.Uint("agents", 0, "override the config's num_agents (UAMP only)")
	durationOverride := flag.Uint("duration", 0, "override the config's duration_ms (UAMP only)")
	seedOverride := flag.Uint("seed", 0, "override the config's seed (UAMP only)")
	flag.Parse()

	cfg, err := config.LoadClientConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *protocolOverride != "" {
		cfg.Protocol = *protocolOverride
	}
	if *agentsOverride != 0 {
		cfg.NumAgents = uint32(*agentsOverride)
	}
	if *durationOverride != 0 {
		cfg.DurationMS = uint32(*durationOverride)
	}
	if *seedOverride != 0 {
		cfg.Seed = uint32(*seedOverride)
	}

	logger, logCloser := logging.New("info", "json", "")
	defer logCloser.Close()

	tag := protocol.TagUAMP
	if cfg.Protocol == "mvisp" {
		tag = protocol.TagMVISP
	}

	opts := uampclient.Options{
		Tag: tag,
		Features: protocol.Features{
			ThreeD:          cfg.Features.ThreeD,
			AppearDisappear: cfg.Features.AppearDisappear,
		},
		QueueSize: cfg.QueueSize,
		Spec: protocol.SimSpec{
			NumAgents:   cfg.NumAgents,
			TimeLimitMS: cfg.DurationMS,
			Seed:        cfg.Seed,
		},
		States: cfg.States,
		Logger: logger,
	}

	client, err := uampclient.Dial(cfg.Server, opts)
	if err != nil {
		fail(err)
	}
	defer client.Terminate()

	logger.Info("connected", "server", cfg.Server, "protocol", cfg.Protocol, "agents", client.NumAgents())

	for {
		progressed := false
		for a := 0; a < client.NumAgents(); a++ {
			cmd := client.CurrentCommand(uint32(a))
			if cmd.ToTime*1000 >= float64(client.Duration()) {
				continue
			}
			if ok, err := client.Advance(uint32(a)); err != nil {
				fail(err)
			} else if ok {
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	logger.Info("simulation complete")
}

func fail(err error) {
	if k, ok := protoerr.KindOf(err); ok {
		fmt.Fprintln(os.Stderr, k.String())
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}
