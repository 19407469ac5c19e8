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
	"time"
)

// listID names which of the three round-robin lists a flow sits on.
type listID uint8

const (
	listNone listID = iota
	listNew
	listOld
	listCo
)

// flowStateKind replaces pointer-tagging of list_next / THROTTLED / age
// with an explicit tagged variant: no correctness is lost and the tag-bit
// discipline on an aligned pointer is gone.
type flowStateKind uint8

const (
	stateDetached flowStateKind = iota
	stateOnList
	stateThrottled
)

type flowState struct {
	kind flowStateKind
	list listID // meaningful only when kind == stateOnList
}

// flowKey is a tagged key: either
// a real endpoint identity, or a synthetic key derived from a packet's
// header hash for orphaned/unowned traffic. encode() produces the single
// ordered uint64 the FlowTable's bucket trees compare on, with the
// synthetic flag folded into the low bit through an explicit helper
// rather than pointer-tag arithmetic.
type flowKey struct {
	synthetic bool
	id        uint64
}

func endpointKey(id uint64) flowKey    { return flowKey{synthetic: false, id: id} }
func syntheticKey(hash uint64) flowKey { return flowKey{synthetic: true, id: hash} }

func (k flowKey) encode() uint64 {
	v := k.id << 1
	if k.synthetic {
		v |= 1
	}
	return v
}

// FlowEntry is one scheduling entity: either a real endpoint's flow or a
// synthetic flow standing in for orphaned/hashed traffic.
type FlowEntry struct {
	key        flowKey
	endpoint   Endpoint // nil for synthetic flows
	socketHash uint64   // snapshot used to detect endpoint re-use

	head, tail *envelope      // FIFO fast path, non-decreasing time_to_send
	edt        *orderedSet[*envelope] // out-of-order packets

	qlen   int
	credit int64

	timeNextPacket int64 // earliest ns this flow may send again
	detachedAt     int64 // scheduler-clock ns of the last detach; valid iff state.kind == stateDetached

	state flowState

	listNext *FlowEntry // linkage for whichever RR list currently holds this flow

	internal bool // the unrated, unlimited control-plane bypass flow
}

func newFlowEntry(key flowKey, initialQuantum int64) *FlowEntry {
	return &FlowEntry{
		key:    key,
		edt:    newOrderedSet[*envelope](),
		credit: initialQuantum,
		state:  flowState{kind: stateDetached},
	}
}

// peek returns the next packet this flow would hand out, without removing
// it: the earlier of the FIFO head and the EDT tree's minimum, per
// invariant 2.
func (f *FlowEntry) peek() *envelope {
	head := f.head
	_, edtMin, hasEDT := f.edt.PeekMin()
	if !hasEDT {
		return head
	}
	if head == nil || edtMin.timeToSend < head.timeToSend {
		return edtMin
	}
	return head
}

// popFront removes and returns whichever envelope peek() would have
// returned.
func (f *FlowEntry) popFront() *envelope {
	head := f.head
	_, edtMin, hasEDT := f.edt.PeekMin()

	useEDT := hasEDT && (head == nil || edtMin.timeToSend < head.timeToSend)
	if useEDT {
		_, v, _ := f.edt.PopMin()
		return v
	}
	if head == nil {
		return nil
	}
	f.head = head.next
	if f.head == nil {
		f.tail = nil
	}
	head.next = nil
	return head
}

// insert places env into the flow in time_to_send order: append to the
// FIFO tail when it keeps the chain non-decreasing (the fast path), or
// into the EDT tree otherwise (invariant 2).
func (f *FlowEntry) insert(env *envelope) {
	if f.tail == nil || env.timeToSend >= f.tail.timeToSend {
		if f.tail == nil {
			f.head = env
		} else {
			f.tail.next = env
		}
		f.tail = env
	} else {
		f.edt.Insert(env.timeToSend, env)
	}
	f.qlen++
}

// isDetached reports whether the flow is parked off every list.
func (f *FlowEntry) isDetached() bool {
	return f.state.kind == stateDetached
}

func (f *FlowEntry) markDetached(now int64) {
	f.state = flowState{kind: stateDetached}
	f.detachedAt = now
}

func (f *FlowEntry) markOnList(l listID) {
	f.state = flowState{kind: stateOnList, list: l}
}

func (f *FlowEntry) markThrottled() {
	f.state = flowState{kind: stateThrottled}
}

// idleFor reports how long a detached flow has sat empty.
func (f *FlowEntry) idleFor(now int64) time.Duration {
	if f.state.kind != stateDetached {
		return 0
	}
	return time.Duration(now - f.detachedAt)
}
