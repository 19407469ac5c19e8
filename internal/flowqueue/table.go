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
	"errors"
	"time"

	"github.com/alphadose/haxmap"
	retry "github.com/avast/retry-go/v4"
	"github.com/zhangyunhao116/skipmap"
)

// ErrAlloc is returned when a FlowEntry cannot be allocated after retrying;
// the caller is expected to fall back to the internal sentinel flow.
var ErrAlloc = errors.New("flowqueue: flow allocation failed")

const (
	gcMax = 8
	gcAge = 3 * time.Second
)

// FlowAllocator is the slab allocator collaborator: host-provided,
// per-CPU, lock-free at the allocation site. The default
// implementation never fails; a host under memory pressure can supply one
// that does, exercising the AllocError path end to end.
type FlowAllocator interface {
	Allocate(key flowKey, initialQuantum int64) (*FlowEntry, error)
}

type defaultAllocator struct{}

func (defaultAllocator) Allocate(key flowKey, initialQuantum int64) (*FlowEntry, error) {
	return newFlowEntry(key, initialQuantum), nil
}

// FlowTable is the hash-bucketed array of ordered trees described in
// Each bucket is an ordered skip-list tree keyed by the
// encoded flowKey, giving amortized O(log n) lookup/insert/GC-walk and a
// well-defined ascending order for GC and rehash. A flat haxmap index is
// layered alongside the buckets (the same dual-map layering
// flow_mutex.go uses for its MutexMap + flowToStreamToSequenceMap) so
// resize() and forEach() can walk every flow in O(flows) without touching
// every bucket.
type flowTable struct {
	logBuckets uint
	buckets    []*skipmap.Uint64Map[*FlowEntry]
	flat       *haxmap.Map[uint64, *FlowEntry]
	allocator  FlowAllocator

	count         int
	inactiveCount int
}

func newFlowTable(logBuckets uint, alloc FlowAllocator) *flowTable {
	if alloc == nil {
		alloc = defaultAllocator{}
	}
	t := &flowTable{
		logBuckets: logBuckets,
		flat:       haxmap.New[uint64, *FlowEntry](),
		allocator:  alloc,
	}
	t.buckets = make([]*skipmap.Uint64Map[*FlowEntry], 1<<logBuckets)
	for i := range t.buckets {
		t.buckets[i] = skipmap.NewUint64[*FlowEntry]()
	}
	return t
}

// hashPtr is the multiplicative (Fibonacci) hash used to pick a bucket
// from an encoded key, truncated to logBuckets bits.
func hashPtr(key uint64, logBuckets uint) uint64 {
	const multiplier = 0x9E3779B97F4A7C15 // 2^64 / golden ratio
	return (key * multiplier) >> (64 - logBuckets)
}

func (t *flowTable) bucketFor(encoded uint64) *skipmap.Uint64Map[*FlowEntry] {
	return t.buckets[hashPtr(encoded, t.logBuckets)]
}

// lookupOrInsert returns the FlowEntry for key, creating (and detaching)
// one on miss. inserted reports whether a new entry was created; reaped
// is how many aged-out entries gc() collected from key's bucket along
// the way.
func (t *flowTable) lookupOrInsert(
	key flowKey, now, initialQuantum int64,
) (flow *FlowEntry, inserted bool, reaped int, err error) {
	encoded := key.encode()
	bucket := t.bucketFor(encoded)

	reaped = t.gc(bucket, encoded, now)

	if f, ok := bucket.Load(encoded); ok {
		return f, false, reaped, nil
	}

	var created *FlowEntry
	allocErr := retry.Do(
		func() error {
			f, aerr := t.allocator.Allocate(key, initialQuantum)
			if aerr != nil {
				return aerr
			}
			created = f
			return nil
		},
		retry.Attempts(3),
		retry.Delay(0),
		retry.LastErrorOnly(true),
	)
	if allocErr != nil || created == nil {
		return nil, false, reaped, ErrAlloc
	}

	created.markDetached(now)

	actual, loaded := bucket.LoadOrStore(encoded, created)
	if loaded {
		// another insert raced us onto the same key; use the winner.
		return actual, false, reaped, nil
	}
	t.flat.Set(encoded, created)
	t.count++
	t.inactiveCount++
	return created, true, reaped, nil
}

// gc opportunistically reaps detached, aged-out entries from bucket while
// a lookup is already walking it (GC rides along with a
// lookup that is already walking a bucket, never its own pass). It stops
// early if it encounters probeEncoded, since that lookup is the caller's
// real interest, and caps itself at gcMax reaps per call. This walk is
// bounded and synchronous within the single-threaded scheduling loop, so
// it needs no cancellation path of its own.
func (t *flowTable) gc(bucket *skipmap.Uint64Map[*FlowEntry], probeEncoded uint64, now int64) int {
	if t.count < 2*len(t.buckets) || t.inactiveCount*2 < t.count {
		return 0
	}

	var toReap []uint64
	bucket.Range(func(encoded uint64, f *FlowEntry) bool {
		if encoded == probeEncoded {
			return false
		}
		if len(toReap) >= gcMax {
			return false
		}
		if f.isDetached() && f.idleFor(now) > gcAge {
			toReap = append(toReap, encoded)
		}
		return true
	})

	for _, encoded := range toReap {
		bucket.Delete(encoded)
		t.flat.Del(encoded)
		t.count--
		t.inactiveCount--
	}
	return len(toReap)
}

// resize reallocates the bucket array to 2^newLog buckets and rehashes
// every flow into its new home, dropping any flow that is itself a GC
// candidate at the moment of rehash.
func (t *flowTable) resize(newLog uint, now int64) {
	newBuckets := make([]*skipmap.Uint64Map[*FlowEntry], 1<<newLog)
	for i := range newBuckets {
		newBuckets[i] = skipmap.NewUint64[*FlowEntry]()
	}

	kept := 0
	t.flat.ForEach(func(encoded uint64, f *FlowEntry) bool {
		if f.isDetached() && f.idleFor(now) > gcAge {
			t.flat.Del(encoded)
			t.inactiveCount--
			t.count--
			return true
		}
		b := newBuckets[hashPtr(encoded, newLog)]
		if _, dup := b.LoadOrStore(encoded, f); dup {
			panic("flowqueue: duplicate key on rehash")
		}
		kept++
		return true
	})

	t.logBuckets = newLog
	t.buckets = newBuckets
}

func (t *flowTable) markActive() { t.inactiveCount-- }
func (t *flowTable) markInactive() { t.inactiveCount++ }

func (t *flowTable) reset() {
	for i := range t.buckets {
		t.buckets[i] = skipmap.NewUint64[*FlowEntry]()
	}
	t.flat = haxmap.New[uint64, *FlowEntry]()
	t.count = 0
	t.inactiveCount = 0
}

func (t *flowTable) forEach(f func(*FlowEntry) bool) {
	t.flat.ForEach(func(_ uint64, flow *FlowEntry) bool {
		return f(flow)
	})
}
