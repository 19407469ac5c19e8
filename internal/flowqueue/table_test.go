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
	"testing"
)

func TestFlowTableLookupOrInsertCreatesOnce(t *testing.T) {
	table := newFlowTable(4, nil)

	key := endpointKey(7)
	first, inserted, _, err := table.lookupOrInsert(key, 1000, 500)
	if err != nil {
		t.Fatalf("lookupOrInsert() error = %v", err)
	}
	if !inserted {
		t.Fatalf("first lookupOrInsert() should report inserted=true")
	}

	second, inserted, _, err := table.lookupOrInsert(key, 2000, 500)
	if err != nil {
		t.Fatalf("lookupOrInsert() error = %v", err)
	}
	if inserted {
		t.Fatalf("second lookupOrInsert() should report inserted=false")
	}
	if first != second {
		t.Fatalf("lookupOrInsert() returned two different entries for the same key")
	}
	if table.count != 1 {
		t.Fatalf("table.count = %d, want 1", table.count)
	}
}

type failingAllocator struct{}

func (failingAllocator) Allocate(key flowKey, initialQuantum int64) (*FlowEntry, error) {
	return nil, errors.New("boom")
}

func TestFlowTableLookupOrInsertPropagatesAllocError(t *testing.T) {
	table := newFlowTable(4, failingAllocator{})

	_, _, _, err := table.lookupOrInsert(endpointKey(1), 0, 0)
	if !errors.Is(err, ErrAlloc) {
		t.Fatalf("lookupOrInsert() error = %v, want ErrAlloc", err)
	}
}

func TestFlowTableGCReapsAgedDetachedEntries(t *testing.T) {
	table := newFlowTable(1, nil) // two buckets: easy to force the density gate

	// push the table past the gc density gate (count >= 2*buckets, half inactive).
	for i := uint64(1); i <= 4; i++ {
		_, _, _, err := table.lookupOrInsert(endpointKey(i), 0, 0)
		if err != nil {
			t.Fatalf("lookupOrInsert(%d) error = %v", i, err)
		}
	}

	const noSuchKey = ^uint64(0)
	reaped := 0
	for _, bucket := range table.buckets {
		reaped += table.gc(bucket, noSuchKey, int64(gcAge)+1000)
	}
	if reaped == 0 {
		t.Fatalf("gc() should reap at least one aged-out detached flow")
	}
	if table.count != 4-reaped {
		t.Fatalf("table.count = %d, want %d", table.count, 4-reaped)
	}
}
