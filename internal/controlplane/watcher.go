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

// Package controlplane watches a config-blob file on disk and applies
// every write to a running scheduler, standing in for the external
// control plane the core scheduling package never parses on its own.
package controlplane

import (
	"context"
	"encoding/json"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
	sf "github.com/wissance/stringFormatter"
	"go.uber.org/zap"

	"github.com/bmkrutgers/co-flow-scheduler/pkg/fq"
)

// Blob is the on-disk shape of a config update: a flat JSON object with
// the same fields as fq.Config, minus its time.Duration fields.
type Blob struct {
	Plimit            uint32 `json:"plimit"`
	FlowPlimit        uint32 `json:"flow_plimit"`
	Quantum           uint32 `json:"quantum"`
	InitialQuantum    uint32 `json:"initial_quantum"`
	FlowMaxRate       uint64 `json:"flow_max_rate"`
	LowRateThreshold  uint32 `json:"low_rate_threshold"`
	BucketsLog        uint32 `json:"buckets_log"`
	OrphanMask        uint32 `json:"orphan_mask"`
	HorizonDrop       bool   `json:"horizon_drop"`
	RateEnable        bool   `json:"rate_enable"`
	F1Source          uint32 `json:"f1_source"`
	F2Source          uint32 `json:"f2_source"`
	F1Dest            uint32 `json:"f1_dest"`
	F2Dest            uint32 `json:"f2_dest"`
	CoFlowBreachCount int    `json:"co_flow_breach_count"`
	CoFlowReliefCount int    `json:"co_flow_relief_count"`
	Debug             bool   `json:"debug"`
}

// applyTo folds b into base, leaving durations (which the blob doesn't
// carry) at whatever base already has.
func (b Blob) applyTo(base fq.Config) fq.Config {
	base.Plimit = b.Plimit
	base.FlowPlimit = b.FlowPlimit
	base.Quantum = b.Quantum
	base.InitialQuantum = b.InitialQuantum
	base.FlowMaxRate = b.FlowMaxRate
	base.LowRateThreshold = b.LowRateThreshold
	base.BucketsLog = b.BucketsLog
	base.OrphanMask = b.OrphanMask
	base.HorizonDrop = b.HorizonDrop
	base.RateEnable = b.RateEnable
	base.F1Source = b.F1Source
	base.F2Source = b.F2Source
	base.F1Dest = b.F1Dest
	base.F2Dest = b.F2Dest
	base.CoFlowBreachCount = b.CoFlowBreachCount
	base.CoFlowReliefCount = b.CoFlowReliefCount
	base.Debug = b.Debug
	return base
}

// Watcher reloads a Scheduler's configuration whenever the blob at path
// changes on disk.
type Watcher struct {
	path      string
	lockPath  string
	scheduler *fq.Scheduler
	logger    *zap.SugaredLogger
	watcher   *fsnotify.Watcher
}

// New starts watching path for writes. lockPath names the advisory lock
// file taken while reading the blob, guarding against a writer that
// truncates-then-writes rather than renaming into place.
func New(path, lockPath string, scheduler *fq.Scheduler, logger *zap.SugaredLogger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		path:      path,
		lockPath:  lockPath,
		scheduler: scheduler,
		logger:    logger,
		watcher:   fsw,
	}, nil
}

// Run blocks, applying every write/create event on the watched path
// until ctx is canceled. Errors reading or parsing a blob are logged and
// skipped; a malformed update never brings the watcher down.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := w.reload(); err != nil {
				w.logger.Warn(sf.Format("controlplane: reload of {0} failed: {1}", w.path, err))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(sf.Format("controlplane: watch error on {0}: {1}", w.path, err))
		}
	}
}

func (w *Watcher) reload() error {
	fl := flock.New(w.lockPath)
	if err := fl.Lock(); err != nil {
		return err
	}
	defer fl.Unlock()

	raw, err := os.ReadFile(w.path)
	if err != nil {
		return err
	}

	var blob Blob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return err
	}

	next := blob.applyTo(w.scheduler.Dump())
	if err := w.scheduler.Change(next); err != nil {
		return err
	}
	w.logger.Info(sf.Format("controlplane: applied config update from {0}", w.path))
	return nil
}
