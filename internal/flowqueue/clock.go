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
	"github.com/gavv/monotime"
)

// clock is the scheduler's time source: a monotonic nanosecond reading that
// is cached once per enqueue/dequeue batch rather than re-read on every
// comparison. The host never supplies timestamps directly; everything the
// core compares against "now" goes through this type.
type clock struct {
	cached int64
}

// now re-reads the monotonic clock and caches the result, returning it.
func (c *clock) now() int64 {
	c.cached = int64(monotime.Now())
	return c.cached
}

// peek returns the last cached reading without touching the clock.
func (c *clock) peek() int64 {
	return c.cached
}
