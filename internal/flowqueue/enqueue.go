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

// maxSanePacketLength is the sanity bound used to count pkts_too_long;
// the documented counter never pins an exact threshold, so this
// mirrors the maximum length an untagged IPv4/IPv6 payload can carry.
const maxSanePacketLength = 65535

// Enqueue admits p for transmission.
func (q *Scheduler) Enqueue(p Packet) EnqueueResult {
	if q.qlen >= int(q.cfg.Plimit) {
		q.stats.tailLimitDrops.Add(1)
		return dropped(DropTailLimit)
	}

	now := q.clock.now()

	ts := p.Tstamp()
	noTstamp := ts == 0
	if ts == 0 {
		ts = now
		p.SetTstamp(ts)
	} else if ts > now+int64(q.cfg.Horizon) {
		now = q.clock.now()
		if ts > now+int64(q.cfg.Horizon) {
			if q.cfg.HorizonDrop {
				q.stats.horizonDrops.Add(1)
				return dropped(DropHorizon)
			}
			ts = now + int64(q.cfg.Horizon)
			p.SetTstamp(ts)
			q.stats.horizonCaps.Add(1)
		}
	}

	if p.Length() > maxSanePacketLength {
		q.stats.pktsTooLong.Add(1)
	}

	flow, err := q.classify(now, p)
	if err != nil {
		// best-effort: packet still gets queued on the internal flow.
		q.trace("enqueue: classify failed, routing to internal flow: {0}", err)
	}

	if flow != q.internalFlow && flow.qlen >= int(q.cfg.FlowPlimit) {
		q.stats.flowsPlimitDrops.Add(1)
		return dropped(DropFlowLimit)
	}

	// The internal flow is never stored in the flow table and never
	// rides the round-robin lists; Dequeue drains it directly ahead of
	// everything else, so it must stay off of both.
	if flow != q.internalFlow && flow.isDetached() {
		if q.coflows.isCoFlow(flow.socketHash) {
			q.lists.coFlows.PushTail(flow)
		} else {
			q.lists.newFlows.PushTail(flow)
		}
		q.table.markActive()

		if flow.idleFor(now) > q.cfg.FlowRefillDelay {
			if want := int64(q.cfg.Quantum); flow.credit < want {
				flow.credit = want
			}
		}
	}

	flow.insert(&envelope{pkt: p, timeToSend: ts, noTstamp: noTstamp})
	q.qlen++

	return accepted()
}
