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

func TestClassifyControlPriorityGoesToInternalFlow(t *testing.T) {
	q := newScheduler(t)
	pkt := &fakePacket{priority: PriorityControl}

	flow, err := q.classify(0, pkt)
	if err != nil {
		t.Fatalf("classify() error = %v", err)
	}
	if flow != q.internalFlow {
		t.Fatalf("control packet should classify to the internal flow")
	}
}

func TestClassifyOrphanedPacketGetsSyntheticFlow(t *testing.T) {
	q := newScheduler(t)
	pkt := &fakePacket{headerHash: 0xABCD}

	flow, err := q.classify(0, pkt)
	if err != nil {
		t.Fatalf("classify() error = %v", err)
	}
	if !flow.key.synthetic {
		t.Fatalf("orphaned packet should classify to a synthetic flow key")
	}
}

func TestClassifySameEndpointReusesFlow(t *testing.T) {
	q := newScheduler(t)
	ep := &fakeEndpoint{id: 1, hash: 100}

	first, err := q.classify(0, &fakePacket{endpoint: ep})
	if err != nil {
		t.Fatalf("classify() error = %v", err)
	}
	second, err := q.classify(1, &fakePacket{endpoint: ep})
	if err != nil {
		t.Fatalf("classify() error = %v", err)
	}
	if first != second {
		t.Fatalf("same endpoint should classify to the same flow")
	}
}

func TestClassifyEndpointReuseResetsCredit(t *testing.T) {
	q := newScheduler(t)
	ep := &fakeEndpoint{id: 1, hash: 100}

	flow, err := q.classify(0, &fakePacket{endpoint: ep})
	if err != nil {
		t.Fatalf("classify() error = %v", err)
	}
	flow.credit = -999

	ep.hash = 200 // endpoint torn down and re-used
	reused, err := q.classify(0, &fakePacket{endpoint: ep})
	if err != nil {
		t.Fatalf("classify() error = %v", err)
	}
	if reused != flow {
		t.Fatalf("endpoint re-use should keep the same flow slot")
	}
	if flow.credit != int64(q.cfg.InitialQuantum) {
		t.Fatalf("credit = %d, want reset to InitialQuantum", flow.credit)
	}
}

func TestClassifyLearnsCoFlowBySourcePort(t *testing.T) {
	q := newScheduler(t)
	q.cfg.F1Source = 5000

	ep := &fakeEndpoint{id: 1, hash: 42}
	pkt := &fakePacket{endpoint: ep, srcPort: 5000, havePorts: true}

	flow, err := q.classify(0, pkt)
	if err != nil {
		t.Fatalf("classify() error = %v", err)
	}
	if !q.coflows.isCoFlow(flow.socketHash) {
		t.Fatalf("flow should be registered as a co-flow after seeing F1Source")
	}
}
