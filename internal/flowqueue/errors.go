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

// DropReason names why enqueue() refused a packet.
type DropReason uint8

const (
	DropNone DropReason = iota
	DropTailLimit
	DropFlowLimit
	DropHorizon
)

func (r DropReason) String() string {
	switch r {
	case DropTailLimit:
		return "tail-limit"
	case DropFlowLimit:
		return "flow-limit"
	case DropHorizon:
		return "horizon"
	default:
		return "none"
	}
}

// EnqueueResult is the outcome of a call to Enqueue.
type EnqueueResult struct {
	Accepted bool
	Reason   DropReason
}

func accepted() EnqueueResult                { return EnqueueResult{Accepted: true} }
func dropped(reason DropReason) EnqueueResult { return EnqueueResult{Accepted: false, Reason: reason} }
