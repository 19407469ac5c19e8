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

// Package flowqueue implements a per-flow fair-queueing packet scheduler
// with rate pacing and co-flow interleaving, modeled on Linux's fq qdisc.
package flowqueue

import (
	"go.uber.org/zap"
)

// Scheduler is the top-level scheduling entity: one per egress path. It
// owns the flow table, the three round-robin lists, the throttle tree,
// the co-flow registry and the single watchdog timer that ties dequeue
// back-pressure together, the way a single fq_sched_data instance owns
// everything below it.
type Scheduler struct {
	cfg   Config
	clock clock

	table    *flowTable
	lists    *rrLists
	throttle *throttleTree
	coflows  *coFlowRegistry

	internalFlow *FlowEntry
	qlen         int

	stats  *stats
	logger *zap.SugaredLogger

	watchdog *watchdog
	ucounter int
	flipflag bool
}

// Init builds a Scheduler from cfg, validating it first (the Config(Invalid)
// path). onStall, if non-nil, is invoked whenever the
// watchdog fires and more work may now be eligible; callers typically
// have it call Dequeue again in a loop until it returns false.
func Init(cfg Config, onStall func()) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	q := &Scheduler{
		cfg:      cfg,
		table:    newFlowTable(uint(cfg.BucketsLog), nil),
		lists:    newRRLists(),
		throttle: newThrottleTree(),
		coflows:  newCoFlowRegistry(),
		stats:    &stats{},
		logger:   newNopLogger(),
	}
	q.internalFlow = newFlowEntry(syntheticKey(0), int64(cfg.InitialQuantum))
	q.internalFlow.internal = true
	q.watchdog = newWatchdog(onStall)
	return q, nil
}

// SetLogger swaps in a configured logger; Init starts every Scheduler
// with a no-op logger so trace() is always safe to call.
func (q *Scheduler) SetLogger(l *zap.SugaredLogger) {
	if l == nil {
		l = newNopLogger()
	}
	q.logger = l
}

// Change applies a new configuration in place, rejecting
// the whole update if any field is out of range, and leaving queued
// flows, lists and throttling untouched otherwise. BucketsLog changes
// trigger a rehash rather than a reset, preserving in-flight state.
func (q *Scheduler) Change(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.BucketsLog != q.cfg.BucketsLog {
		q.table.resize(uint(cfg.BucketsLog), q.clock.now())
	}
	q.cfg = cfg
	return nil
}

// Reset drops every flow, list, throttle entry and co-flow registration,
// returning the scheduler to the state Init would produce for the same
// Config, except that the statistics counters are kept.
func (q *Scheduler) Reset() {
	q.table.reset()
	q.lists = newRRLists()
	q.throttle = newThrottleTree()
	q.coflows = newCoFlowRegistry()
	q.internalFlow = newFlowEntry(syntheticKey(0), int64(q.cfg.InitialQuantum))
	q.internalFlow.internal = true
	q.qlen = 0
	q.ucounter = 0
	q.flipflag = false
	q.watchdog.cancel()
}

// Destroy tears the scheduler down; after Destroy the watchdog will never
// fire again and Enqueue/Dequeue should not be called.
func (q *Scheduler) Destroy() {
	q.watchdog.cancel()
}

// Dump returns the scheduler's active configuration, matching the
// dump() operation.
func (q *Scheduler) Dump() Config {
	return q.cfg
}

// DumpStats renders the current counters and gauges, matching the
// dump_stats() operation.
func (q *Scheduler) DumpStats() StatsSnapshot {
	snap := StatsSnapshot{
		GCFlows:             q.stats.gcFlows.Load(),
		HighprioPackets:     q.stats.highprioPackets.Load(),
		Throttled:           q.stats.throttled.Load(),
		FlowsPlimitDrops:    q.stats.flowsPlimitDrops.Load(),
		TailLimitDrops:      q.stats.tailLimitDrops.Load(),
		PktsTooLong:         q.stats.pktsTooLong.Load(),
		AllocationErrors:    q.stats.allocationErrors.Load(),
		CeMark:              q.stats.ceMark.Load(),
		HorizonDrops:        q.stats.horizonDrops.Load(),
		HorizonCaps:         q.stats.horizonCaps.Load(),
		UnthrottleLatencyNS: q.stats.unthrottleLatencyEWMA.Load(),
		TimeNextDelayedFlow: q.throttle.timeNextDelayedFlow(),
		InactiveFlows:       q.table.inactiveCount,
		Flows:               q.table.count,
		ThrottledFlows:      q.throttle.Len(),
	}
	return snap
}
