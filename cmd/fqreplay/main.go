// Copyright 2024 The Co-Flow Scheduler Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command fqreplay drives a co-flow fair-queueing scheduler with an
// offline pcap trace, reporting drain throughput and the scheduler's
// final counters.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paulbellamy/ratecounter"
	"go.uber.org/zap"

	"github.com/bmkrutgers/co-flow-scheduler/internal/controlplane"
	"github.com/bmkrutgers/co-flow-scheduler/internal/pcapfeed"
	"github.com/bmkrutgers/co-flow-scheduler/pkg/fq"
)

func main() {
	pcapPath := flag.String("pcap", "", "offline pcap file to replay")
	configPath := flag.String("config", "", "optional config-blob file to watch for live updates")
	debug := flag.Bool("debug", false, "enable scheduler trace logging")
	flag.Parse()

	if *pcapPath == "" {
		fmt.Fprintln(os.Stderr, "fqreplay: -pcap is required")
		os.Exit(2)
	}

	zcfg := zap.NewProductionConfig()
	if *debug {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "fqreplay: logger init failed:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	if err := run(*pcapPath, *configPath, *debug, sugar); err != nil {
		sugar.Error(err)
		os.Exit(1)
	}
}

func run(pcapPath, configPath string, debug bool, logger *zap.SugaredLogger) error {
	cfg := fq.DefaultConfig()
	cfg.Debug = debug

	sched, err := fq.New(cfg, nil)
	if err != nil {
		return fmt.Errorf("fqreplay: scheduler init: %w", err)
	}
	sched.SetLogger(logger)
	defer sched.Destroy()

	if configPath != "" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		w, err := controlplane.New(configPath, configPath+".lock", sched, logger)
		if err != nil {
			return fmt.Errorf("fqreplay: control plane: %w", err)
		}
		go w.Run(ctx)
	}

	reader, err := pcapfeed.Open(pcapPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	counter := ratecounter.NewRateCounter(time.Second)
	var enqueued, sent, dropped int

feed:
	for {
		select {
		case <-sigCh:
			logger.Warn("fqreplay: interrupted, draining remaining queue")
			break feed
		default:
		}

		pkt, ok := reader.Next()
		if !ok {
			break feed
		}
		enqueued++

		res := sched.Enqueue(pkt)
		if !res.Accepted {
			dropped++
			logger.Debugw("fqreplay: drop", "reason", res.Reason.String())
			continue
		}

		for {
			out, ok := sched.Dequeue()
			if !ok {
				break
			}
			sent++
			counter.Incr(int64(out.Length()))
		}
	}

	for {
		out, ok := sched.Dequeue()
		if !ok {
			break
		}
		sent++
		counter.Incr(int64(out.Length()))
	}

	snap := sched.DumpStats()
	logger.Infow("fqreplay: finished",
		"enqueued", enqueued,
		"sent", sent,
		"dropped", dropped,
		"bytes_per_window", counter.Rate(),
	)
	fmt.Println(snap.JSON())
	return nil
}
