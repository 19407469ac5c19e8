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
	mapset "github.com/deckarep/golang-set/v2"
)

// PortedPacket is an optional capability a host Packet can implement to
// let the classifier learn co-flow identities by source port, per
// Packets that don't implement it simply never seed a
// co-flow slot.
type PortedPacket interface {
	Ports() (src, dst uint16, ok bool)
}

// coFlowRegistry tracks the small set of designated co-flows: the
// endpoint socket_hash learned for each of the two configured source
// ports. mapset gives O(1) "is this a co-flow" membership, mirroring
// translator_worker.go's skippedLayers set for the same kind of small,
// frequently-probed membership check.
type coFlowRegistry struct {
	pFlowID [2]uint64
	ids     mapset.Set[uint64]
}

func newCoFlowRegistry() *coFlowRegistry {
	return &coFlowRegistry{ids: mapset.NewThreadUnsafeSet[uint64]()}
}

func (r *coFlowRegistry) learn(slot int, socketHash uint64) {
	if socketHash == 0 {
		return
	}
	if old := r.pFlowID[slot]; old != 0 {
		r.ids.Remove(old)
	}
	r.pFlowID[slot] = socketHash
	r.ids.Add(socketHash)
}

func (r *coFlowRegistry) isCoFlow(socketHash uint64) bool {
	return socketHash != 0 && r.ids.Contains(socketHash)
}

// classify maps an incoming packet to its FlowEntry.
func (q *Scheduler) classify(now int64, pkt Packet) (*FlowEntry, error) {
	if pkt.PacketPriority() == PriorityControl {
		return q.internalFlow, nil
	}

	ep := pkt.SocketEndpoint()
	orphan := ep == nil || ep.IsListener() || ep.IsClosed()

	var key flowKey
	if orphan {
		hash := pkt.HeaderHash() & uint64(q.cfg.OrphanMask)
		key = syntheticKey(hash)
	} else {
		key = endpointKey(ep.ID())
	}

	flow, inserted, reaped, err := q.table.lookupOrInsert(key, now, int64(q.cfg.InitialQuantum))
	if reaped > 0 {
		q.stats.gcFlows.Add(int64(reaped))
	}
	if err != nil {
		q.stats.allocationErrors.Add(1)
		return q.internalFlow, err
	}

	if !orphan {
		if inserted {
			flow.endpoint = ep
			flow.socketHash = ep.Hash()
		} else if flow.socketHash != ep.Hash() {
			// endpoint re-used for a new connection: reset credit and
			// pull the flow out of throttling if it was parked there.
			flow.credit = int64(q.cfg.InitialQuantum)
			flow.socketHash = ep.Hash()
			flow.timeNextPacket = 0
			flow.endpoint = ep
			if flow.state.kind == stateThrottled {
				// A throttled flow is already counted active (Enqueue's
				// detached->onList transition called markActive for it),
				// so returning it to service here must not call it again.
				q.throttle.remove(flow)
				q.lists.oldFlows.PushTail(flow)
			}
		}

		if ported, ok := pkt.(PortedPacket); ok {
			if src, _, ok := ported.Ports(); ok {
				switch src {
				case uint16(q.cfg.F1Source):
					q.coflows.learn(0, flow.socketHash)
				case uint16(q.cfg.F2Source):
					q.coflows.learn(1, flow.socketHash)
				}
			}
		}
	}

	return flow, nil
}
