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

import "math"

// throttleTree is the ordered set of flows keyed by time_next_packet,
// built on the same ordered-skip-list primitive as a flow's EDT tree.
type throttleTree struct {
	set *orderedSet[*FlowEntry]
}

func newThrottleTree() *throttleTree {
	return &throttleTree{set: newOrderedSet[*FlowEntry]()}
}

func (t *throttleTree) Len() int { return t.set.Len() }

// insert parks f in the tree, marking it throttled.
func (t *throttleTree) insert(f *FlowEntry) {
	f.markThrottled()
	t.set.Insert(f.timeNextPacket, f)
}

// remove pulls f back out of the tree ahead of its time, used when an
// endpoint is re-used and its flow must be returned to service.
func (t *throttleTree) remove(f *FlowEntry) bool {
	return t.set.Remove(f.timeNextPacket, func(v *FlowEntry) bool { return v == f })
}

// removeDue pops every flow whose time_next_packet has arrived and
// appends it to old. onUnthrottle, if non-nil, is handed each flow's
// unthrottle latency (now minus its scheduled time_next_packet) so the
// caller can fold it into the stats EWMA.
func (t *throttleTree) removeDue(now int64, old *rrList, onUnthrottle func(latencyNS int64)) int {
	n := 0
	for {
		key, f, ok := t.set.PeekMin()
		if !ok || key > now {
			break
		}
		t.set.PopMin()
		old.PushTail(f)
		if onUnthrottle != nil {
			onUnthrottle(now - key)
		}
		n++
	}
	return n
}

// timeNextDelayedFlow is the minimum time_next_packet over the tree, or
// +Inf if the tree is empty (invariant 5).
func (t *throttleTree) timeNextDelayedFlow() float64 {
	key, ok := t.set.MinKey()
	if !ok {
		return math.Inf(1)
	}
	return float64(key)
}
