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
)

const oneSecondNS = int64(1_000_000_000)

// selectList implements the flip-flop policy: co_flows is
// preferred while flipflag is set, falling through to new_flows then
// old_flows whenever the preferred list is empty.
//
// The documented fallback chain never names co_flows as a
// fallback target, only as a possible starting point. A flow reaches
// co_flows either at enqueue (a detached flow already known as a co-flow)
// or via the promotion in step 6, so a starvation window is reachable —
// co_flows non-empty, new/old both empty, flipflag still false because
// breach hasn't been reached —
// where the literal chain would hand back an empty list. We resolve this
// open question (the promotion policy is documented as
// having been iterated on) by falling back to co_flows as a last resort,
// which only ever engages when it is the sole non-empty list.
func (q *Scheduler) selectList() *rrList {
	var first *rrList
	if q.flipflag {
		first = q.lists.coFlows
	} else {
		first = q.lists.newFlows
	}
	if !first.Empty() {
		return first
	}
	if !q.lists.newFlows.Empty() {
		return q.lists.newFlows
	}
	if !q.lists.oldFlows.Empty() {
		return q.lists.oldFlows
	}
	return q.lists.coFlows
}

// Dequeue returns the next packet to transmit, or (nil, false) if nothing
// is eligible right now — in which case the watchdog has been armed for
// the earliest moment something might become eligible.
func (q *Scheduler) Dequeue() (Packet, bool) {
	if env := q.internalFlow.peek(); env != nil {
		q.internalFlow.popFront()
		q.internalFlow.qlen--
		q.qlen--
		q.stats.highprioPackets.Add(1)
		return env.pkt, true
	}

	now := q.clock.now()
	q.throttle.removeDue(now, q.lists.oldFlows, q.stats.observeUnthrottleLatency)

	for {
		current := q.selectList()
		if q.lists.newFlows.Empty() && q.lists.oldFlows.Empty() && q.lists.coFlows.Empty() {
			q.armWatchdog(now)
			return nil, false
		}

		f := current.First()

		if q.coflows.isCoFlow(f.socketHash) && current.id != listCo {
			current.PopHead()
			q.lists.coFlows.PushTail(f)
			q.ucounter++
			continue
		}

		if !q.flipflag && q.ucounter == q.cfg.CoFlowBreachCount && current.id != listCo {
			q.flipflag = true
			continue
		}
		if q.flipflag && q.ucounter == q.cfg.CoFlowReliefCount && current.id == listCo {
			q.flipflag = false
			continue
		}

		if q.flipflag && current.id == listCo {
			q.ucounter--
		}

		if f.credit <= 0 {
			f.credit += int64(q.cfg.Quantum)
			current.PopHead()
			q.lists.oldFlows.PushTail(f)
			continue
		}

		env := f.peek()
		if env == nil {
			current.PopHead()
			if (current.id == listNew || current.id == listCo) && !q.lists.oldFlows.Empty() {
				q.lists.oldFlows.PushTail(f)
			} else {
				f.markDetached(now)
				q.table.markInactive()
			}
			continue
		}

		sendAt := env.timeToSend
		if f.timeNextPacket > sendAt {
			sendAt = f.timeNextPacket
		}
		if now < sendAt {
			current.PopHead()
			f.timeNextPacket = sendAt
			q.throttle.insert(f)
			q.stats.throttled.Add(1)
			continue
		}

		if q.cfg.CeThreshold > 0 && now-sendAt > int64(q.cfg.CeThreshold) {
			if marker, ok := env.pkt.(CongestionMarkable); ok {
				marker.MarkCongested()
			}
			q.stats.ceMark.Add(1)
		}

		f.popFront()
		f.qlen--
		q.qlen--

		effLen := env.pkt.Length()
		if effLen < int(q.cfg.Quantum) {
			effLen = int(q.cfg.Quantum)
		}
		f.credit -= int64(effLen)

		if q.cfg.RateEnable {
			q.applyPacing(f, env, now, effLen)
		}

		return env.pkt, true
	}
}

// applyPacing paces a flow's next departure time against its rate limit.
func (q *Scheduler) applyPacing(f *FlowEntry, env *envelope, now int64, effLen int) {
	rate := q.cfg.FlowMaxRate
	if rate == 0 {
		rate = math.MaxUint64
	}
	if env.noTstamp && f.endpoint != nil {
		if epRate := f.endpoint.PacingRate(); epRate > 0 && epRate < rate {
			rate = epRate
		}
	}

	// A flow at or below the low-rate threshold has its credit zeroed so
	// round-robin refill never lets it race ahead of its pacing rate, but
	// it still needs time_next_packet set below — otherwise nothing ever
	// throttles it again once round-robin credit alone would do the job.
	if rate <= uint64(q.cfg.LowRateThreshold) {
		f.credit = 0
	} else if f.credit > 0 {
		return
	}

	delay := int64(float64(effLen) * 1e9 / float64(rate))
	if delay > oneSecondNS {
		delay = oneSecondNS
	}

	if f.timeNextPacket > 0 {
		drift := now - f.timeNextPacket
		half := delay / 2
		sub := half
		if drift < half {
			sub = drift
		}
		if sub < 0 {
			sub = 0
		}
		delay -= sub
	}

	f.timeNextPacket = now + delay
}

// Peek non-destructively reports a candidate for the next Dequeue, without
// mutating credit, pacing or list state: the internal flow's head packet
// if any, else the head packet of the first non-empty list in co, new, old
// order. It does not apply the flip-flop, promotion, credit or pacing
// checks Dequeue makes, so Dequeue can return a different packet or none.
func (q *Scheduler) Peek() (Packet, bool) {
	if env := q.internalFlow.peek(); env != nil {
		return env.pkt, true
	}
	for _, l := range []*rrList{q.lists.coFlows, q.lists.newFlows, q.lists.oldFlows} {
		if f := l.First(); f != nil {
			if env := f.peek(); env != nil {
				return env.pkt, true
			}
		}
	}
	return nil, false
}

func (q *Scheduler) armWatchdog(now int64) {
	at := q.throttle.timeNextDelayedFlow()
	if math.IsInf(at, 1) {
		q.watchdog.cancel()
		return
	}
	q.watchdog.schedule(int64(at)+int64(q.cfg.TimerSlack), now)
}
