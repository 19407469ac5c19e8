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
	"github.com/zhangyunhao116/skipmap"
)

// chainNode holds every value inserted under the same int64 key, in
// insertion order. Exact timestamp collisions (two packets with the same
// time_to_send, or two flows reaching the same time_next_packet) are rare
// but legal, so the ordered trees below are ordered multisets, not maps.
type chainNode[T any] struct {
	items []T
}

// orderedSet is the ordered-tree building block shared by a flow's EDT
// tree and the scheduler's ThrottleTree: a skip-list keyed by an int64
// nanosecond value, each key chaining every value that landed on it.
// skipmap.Int64Map walks ascending, so the first entry Range visits is
// always the minimum key — that gives peek/pop-min in effectively O(1)
// on top of the skip-list's O(log n) insert/delete.
type orderedSet[T any] struct {
	sm *skipmap.Int64Map[*chainNode[T]]
	n  int
}

func newOrderedSet[T any]() *orderedSet[T] {
	return &orderedSet[T]{sm: skipmap.NewInt64[*chainNode[T]]()}
}

func (s *orderedSet[T]) Len() int {
	return s.n
}

func (s *orderedSet[T]) Insert(key int64, v T) {
	node, _ := s.sm.LoadOrStoreLazy(key, func() *chainNode[T] {
		return &chainNode[T]{}
	})
	node.items = append(node.items, v)
	s.n++
}

// PeekMin returns the value under the smallest key without removing it.
func (s *orderedSet[T]) PeekMin() (key int64, v T, ok bool) {
	s.sm.Range(func(k int64, node *chainNode[T]) bool {
		if len(node.items) == 0 {
			return true
		}
		key, v, ok = k, node.items[0], true
		return false
	})
	return
}

// PopMin removes and returns the value under the smallest key.
func (s *orderedSet[T]) PopMin() (key int64, v T, ok bool) {
	key, v, ok = s.PeekMin()
	if !ok {
		return
	}
	node, _ := s.sm.Load(key)
	node.items = node.items[1:]
	if len(node.items) == 0 {
		s.sm.Delete(key)
	}
	s.n--
	return
}

// MinKey reports the smallest key currently stored, if any.
func (s *orderedSet[T]) MinKey() (int64, bool) {
	key, _, ok := s.PeekMin()
	return key, ok
}

// Remove deletes one occurrence of v under key. The caller supplies an
// equality test since T may not be comparable (e.g. interface values
// wrapping non-comparable concrete types).
func (s *orderedSet[T]) Remove(key int64, eq func(T) bool) bool {
	node, ok := s.sm.Load(key)
	if !ok {
		return false
	}
	for i, it := range node.items {
		if eq(it) {
			node.items = append(node.items[:i], node.items[i+1:]...)
			s.n--
			if len(node.items) == 0 {
				s.sm.Delete(key)
			}
			return true
		}
	}
	return false
}

// Range walks entries in ascending key order until f returns false.
func (s *orderedSet[T]) Range(f func(key int64, v T) bool) {
	s.sm.Range(func(k int64, node *chainNode[T]) bool {
		for _, it := range node.items {
			if !f(k, it) {
				return false
			}
		}
		return true
	})
}
