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

package flowqueue

import (
	"sync/atomic"

	"github.com/Jeffail/gabs/v2"
)

// stats holds the counters dump_stats() exposes. They are updated on the
// single-threaded enqueue/dequeue path (GC included, since it runs inside
// flow lookup) and use atomics so dump_stats() never needs to take the
// scheduler lock.
type stats struct {
	gcFlows           atomic.Int64
	highprioPackets   atomic.Int64
	throttled         atomic.Int64
	flowsPlimitDrops  atomic.Int64
	tailLimitDrops    atomic.Int64
	pktsTooLong       atomic.Int64
	allocationErrors  atomic.Int64
	ceMark            atomic.Int64
	horizonDrops      atomic.Int64
	horizonCaps       atomic.Int64

	unthrottleLatencyEWMA atomic.Int64 // nanoseconds, alpha = 1/8, fixed point not needed: ns is integral enough
}

// observeUnthrottleLatency folds a new sample into the EWMA with alpha =
// 1/8, matching the documented unthrottle-latency EWMA.
func (s *stats) observeUnthrottleLatency(sampleNS int64) {
	for {
		old := s.unthrottleLatencyEWMA.Load()
		var next int64
		if old == 0 {
			next = sampleNS
		} else {
			next = old + (sampleNS-old)/8
		}
		if s.unthrottleLatencyEWMA.CompareAndSwap(old, next) {
			return
		}
	}
}

// StatsSnapshot is the read-back view of stats, including the
// point-in-time gauges the core tracks outside of the atomics above
// (flows, inactive_flows, throttled_flows, time_next_delayed_flow).
type StatsSnapshot struct {
	GCFlows              int64
	HighprioPackets      int64
	Throttled            int64
	FlowsPlimitDrops     int64
	TailLimitDrops       int64
	PktsTooLong          int64
	AllocationErrors     int64
	CeMark               int64
	HorizonDrops         int64
	HorizonCaps          int64
	UnthrottleLatencyNS  int64

	TimeNextDelayedFlow float64
	Flows               int
	InactiveFlows       int
	ThrottledFlows      int
}

// JSON renders the snapshot the way flow_mutex.go's debug logger builds
// its JSON lines: via gabs, one field at a time.
func (s StatsSnapshot) JSON() string {
	j := gabs.New()
	j.Set(s.GCFlows, "gc_flows")
	j.Set(s.HighprioPackets, "highprio_packets")
	j.Set(s.Throttled, "throttled")
	j.Set(s.FlowsPlimitDrops, "flows_plimit_drops")
	j.Set(s.TailLimitDrops, "tail_limit_drops")
	j.Set(s.PktsTooLong, "pkts_too_long")
	j.Set(s.AllocationErrors, "allocation_errors")
	j.Set(s.TimeNextDelayedFlow, "time_next_delayed_flow")
	j.Set(s.Flows, "flows")
	j.Set(s.InactiveFlows, "inactive_flows")
	j.Set(s.ThrottledFlows, "throttled_flows")
	j.Set(s.UnthrottleLatencyNS, "unthrottle_latency_ns")
	j.Set(s.CeMark, "ce_mark")
	j.Set(s.HorizonDrops, "horizon_drops")
	j.Set(s.HorizonCaps, "horizon_caps")
	return j.String()
}
