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
	"math"
	"testing"
)

func TestThrottleTreeTimeNextDelayedFlowEmpty(t *testing.T) {
	tree := newThrottleTree()
	if got := tree.timeNextDelayedFlow(); !math.IsInf(got, 1) {
		t.Fatalf("timeNextDelayedFlow() on empty tree = %v, want +Inf", got)
	}
}

func TestThrottleTreeRemoveDueOrdersByTime(t *testing.T) {
	tree := newThrottleTree()
	old := newRRList(listOld)

	a := newFlowEntry(endpointKey(1), 0)
	a.timeNextPacket = 100
	b := newFlowEntry(endpointKey(2), 0)
	b.timeNextPacket = 50
	c := newFlowEntry(endpointKey(3), 0)
	c.timeNextPacket = 200

	tree.insert(a)
	tree.insert(b)
	tree.insert(c)

	if a.state.kind != stateThrottled {
		t.Fatalf("insert should mark flow as throttled")
	}

	n := tree.removeDue(150, old, nil)
	if n != 2 {
		t.Fatalf("removeDue(150) reaped %d flows, want 2", n)
	}
	if old.Len() != 2 {
		t.Fatalf("old list has %d flows, want 2", old.Len())
	}
	if got := old.PopHead(); got != b {
		t.Fatalf("removeDue should hand back flows in time order: got %p, want b", got)
	}
	if got := old.PopHead(); got != a {
		t.Fatalf("removeDue should hand back flows in time order: got %p, want a", got)
	}

	if tree.Len() != 1 {
		t.Fatalf("tree should still hold the un-due flow c, Len() = %d", tree.Len())
	}
	if got := tree.timeNextDelayedFlow(); got != 200 {
		t.Fatalf("timeNextDelayedFlow() = %v, want 200", got)
	}
}

func TestThrottleTreeRemoveDueReportsUnthrottleLatency(t *testing.T) {
	tree := newThrottleTree()
	old := newRRList(listOld)

	a := newFlowEntry(endpointKey(1), 0)
	a.timeNextPacket = 100
	tree.insert(a)

	var latency int64 = -1
	tree.removeDue(130, old, func(l int64) { latency = l })

	if latency != 30 {
		t.Fatalf("onUnthrottle latency = %d, want 30", latency)
	}
}

func TestThrottleTreeRemove(t *testing.T) {
	tree := newThrottleTree()
	a := newFlowEntry(endpointKey(1), 0)
	a.timeNextPacket = 100
	tree.insert(a)

	if !tree.remove(a) {
		t.Fatalf("remove() should find a freshly-inserted flow")
	}
	if tree.Len() != 0 {
		t.Fatalf("tree should be empty after removing its only entry")
	}
	if tree.remove(a) {
		t.Fatalf("remove() should fail on an already-removed flow")
	}
}
