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

// rrList is a singly-linked FIFO of flows: O(1) push-tail and pop-head,
// linked through each FlowEntry's own listNext field. A flow can only be
// linked into one list (or the ThrottleTree, or detached) at a time per
// invariant 1, so sharing the single listNext field across all three
// lists is safe.
type rrList struct {
	id         listID
	head, tail *FlowEntry
	n          int
}

func newRRList(id listID) *rrList {
	return &rrList{id: id}
}

func (l *rrList) Len() int { return l.n }

func (l *rrList) Empty() bool { return l.head == nil }

// PushTail appends f to the list. f must not already be linked anywhere.
func (l *rrList) PushTail(f *FlowEntry) {
	f.markOnList(l.id)
	f.listNext = nil
	if l.tail == nil {
		l.head = f
	} else {
		l.tail.listNext = f
	}
	l.tail = f
	l.n++
}

// PopHead removes and returns the flow at the head of the list, or nil.
func (l *rrList) PopHead() *FlowEntry {
	f := l.head
	if f == nil {
		return nil
	}
	l.head = f.listNext
	if l.head == nil {
		l.tail = nil
	}
	f.listNext = nil
	l.n--
	return f
}

// First returns the head flow without removing it.
func (l *rrList) First() *FlowEntry {
	return l.head
}

// rrLists bundles the three round-robin queues: new, old and co.
type rrLists struct {
	newFlows *rrList
	oldFlows *rrList
	coFlows  *rrList
}

func newRRLists() *rrLists {
	return &rrLists{
		newFlows: newRRList(listNew),
		oldFlows: newRRList(listOld),
		coFlows:  newRRList(listCo),
	}
}

func (r *rrLists) listByID(id listID) *rrList {
	switch id {
	case listNew:
		return r.newFlows
	case listOld:
		return r.oldFlows
	case listCo:
		return r.coFlows
	}
	return nil
}
