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

func TestDropReasonString(t *testing.T) {
	cases := map[DropReason]string{
		DropNone:      "none",
		DropTailLimit: "tail-limit",
		DropFlowLimit: "flow-limit",
		DropHorizon:   "horizon",
	}
	for reason, want := range cases {
		if got := reason.String(); got != want {
			t.Fatalf("%v.String() = %q, want %q", reason, got, want)
		}
	}
}

func TestAcceptedAndDropped(t *testing.T) {
	if res := accepted(); !res.Accepted {
		t.Fatalf("accepted() = %+v, want Accepted=true", res)
	}
	res := dropped(DropTailLimit)
	if res.Accepted || res.Reason != DropTailLimit {
		t.Fatalf("dropped(DropTailLimit) = %+v", res)
	}
}
