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

import "testing"

func TestInitRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Plimit = 0

	if _, err := Init(cfg, nil); err == nil {
		t.Fatalf("Init() with an invalid config should return an error")
	}
}

func TestChangeRejectsInvalidConfigWithoutMutatingState(t *testing.T) {
	q := newScheduler(t)
	before := q.Dump()

	bad := before
	bad.FlowPlimit = 0
	if err := q.Change(bad); err == nil {
		t.Fatalf("Change() with an invalid config should return an error")
	}
	if q.Dump() != before {
		t.Fatalf("a rejected Change() must not mutate the active configuration")
	}
}

func TestChangeAppliesValidConfig(t *testing.T) {
	q := newScheduler(t)

	next := q.Dump()
	next.Plimit = 42
	if err := q.Change(next); err != nil {
		t.Fatalf("Change() error = %v", err)
	}
	if q.Dump().Plimit != 42 {
		t.Fatalf("Dump().Plimit = %d, want 42", q.Dump().Plimit)
	}
}

func TestResetClearsQueuedFlows(t *testing.T) {
	q := newScheduler(t)
	ep := &fakeEndpoint{id: 1, hash: 1}
	q.Enqueue(&fakePacket{length: 100, endpoint: ep})

	q.Reset()

	if q.qlen != 0 {
		t.Fatalf("qlen = %d, want 0 after Reset()", q.qlen)
	}
	if !q.lists.newFlows.Empty() {
		t.Fatalf("new_flows should be empty after Reset()")
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatalf("Dequeue() after Reset() should return ok=false")
	}
}

func TestDumpStatsReflectsAllocationErrors(t *testing.T) {
	q := newScheduler(t)
	q.table.allocator = failingAllocator{}

	q.Enqueue(&fakePacket{length: 100, endpoint: &fakeEndpoint{id: 1, hash: 1}})

	snap := q.DumpStats()
	if snap.AllocationErrors != 1 {
		t.Fatalf("AllocationErrors = %d, want 1", snap.AllocationErrors)
	}
	if snap.JSON() == "" {
		t.Fatalf("JSON() should render a non-empty snapshot")
	}
}
