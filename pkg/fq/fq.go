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

// Package fq is the public entry point to the co-flow fair-queueing
// scheduler: it re-exports the types a host needs to plug in packets and
// endpoints, and wraps internal/flowqueue.Scheduler's lifecycle behind a
// small, stable surface.
package fq

import (
	"github.com/bmkrutgers/co-flow-scheduler/internal/flowqueue"
	"go.uber.org/zap"
)

type (
	// Config is every externally tunable scheduler parameter.
	Config = flowqueue.Config

	// Packet is the opaque unit of work the scheduler admits and emits.
	Packet = flowqueue.Packet

	// Endpoint is the owning socket of a Packet.
	Endpoint = flowqueue.Endpoint

	// Priority is a packet's scheduling class.
	Priority = flowqueue.Priority

	// CongestionMarkable lets a host Packet receive CE marks.
	CongestionMarkable = flowqueue.CongestionMarkable

	// PortedPacket lets a host Packet expose the source/destination
	// ports the co-flow classifier watches for.
	PortedPacket = flowqueue.PortedPacket

	// DropReason names why Enqueue refused a packet.
	DropReason = flowqueue.DropReason

	// EnqueueResult is the outcome of a call to Enqueue.
	EnqueueResult = flowqueue.EnqueueResult

	// StatsSnapshot is a read-back view of the scheduler's counters.
	StatsSnapshot = flowqueue.StatsSnapshot
)

const (
	PriorityNormal  = flowqueue.PriorityNormal
	PriorityControl = flowqueue.PriorityControl

	DropNone      = flowqueue.DropNone
	DropTailLimit = flowqueue.DropTailLimit
	DropFlowLimit = flowqueue.DropFlowLimit
	DropHorizon   = flowqueue.DropHorizon
)

// DefaultConfig returns the documented default tunables.
func DefaultConfig() Config { return flowqueue.DefaultConfig() }

// Scheduler is a per-flow fair-queueing scheduler instance. The zero
// value is not usable; construct one with New.
type Scheduler struct {
	inner *flowqueue.Scheduler
}

// New builds a Scheduler from cfg. onStall is invoked whenever the
// internal watchdog fires and previously-ineligible work may now be
// eligible; callers typically have it re-drive Dequeue from whatever
// loop or event source drives packet transmission.
func New(cfg Config, onStall func()) (*Scheduler, error) {
	inner, err := flowqueue.Init(cfg, onStall)
	if err != nil {
		return nil, err
	}
	return &Scheduler{inner: inner}, nil
}

// SetLogger attaches a zap logger; trace-level scheduler diagnostics are
// only emitted when Config.Debug is set, matching flowqueue's own gate.
func (s *Scheduler) SetLogger(l *zap.SugaredLogger) { s.inner.SetLogger(l) }

// Enqueue admits p for transmission.
func (s *Scheduler) Enqueue(p Packet) EnqueueResult { return s.inner.Enqueue(p) }

// Dequeue returns the next packet to transmit, or (nil, false) if
// nothing is eligible right now.
func (s *Scheduler) Dequeue() (Packet, bool) { return s.inner.Dequeue() }

// Peek non-destructively reports a candidate for the next Dequeue; it
// skips Dequeue's flip-flop, credit and pacing checks, so the two can
// differ.
func (s *Scheduler) Peek() (Packet, bool) { return s.inner.Peek() }

// Change applies a new configuration in place, rejecting the update
// entirely if it fails validation.
func (s *Scheduler) Change(cfg Config) error { return s.inner.Change(cfg) }

// Reset drops every flow, list and throttle entry, returning the
// scheduler to its freshly-initialized state for the current Config.
// Statistics counters are not cleared.
func (s *Scheduler) Reset() { s.inner.Reset() }

// Destroy tears the scheduler down; it must not be used afterward.
func (s *Scheduler) Destroy() { s.inner.Destroy() }

// Dump returns the scheduler's active configuration.
func (s *Scheduler) Dump() Config { return s.inner.Dump() }

// DumpStats renders the current counters and gauges.
func (s *Scheduler) DumpStats() StatsSnapshot { return s.inner.DumpStats() }
