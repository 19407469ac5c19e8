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
	"sync"
	"time"
)

// watchdog is the single per-scheduler timer:
// schedule() replaces any prior pending wakeup, cancel() tears it down on
// destroy. Firing invokes the host-supplied callback, which is expected
// to call Dequeue again — the same time.AfterFunc idiom flow_mutex.go
// uses for its per-TracedFlow unblocker.
type watchdog struct {
	mu     sync.Mutex
	timer  *time.Timer
	onFire func()
}

func newWatchdog(onFire func()) *watchdog {
	return &watchdog{onFire: onFire}
}

// schedule arms the watchdog to fire at atNS (a clock.now()-comparable
// monotonic nanosecond value). A non-positive delay fires immediately.
func (w *watchdog) schedule(atNS, now int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delay := time.Duration(atNS - now)
	if delay < 0 {
		delay = 0
	}

	if w.timer == nil {
		w.timer = time.AfterFunc(delay, w.fire)
		return
	}
	w.timer.Stop()
	w.timer.Reset(delay)
}

func (w *watchdog) fire() {
	w.mu.Lock()
	onFire := w.onFire
	w.mu.Unlock()
	if onFire != nil {
		onFire()
	}
}

func (w *watchdog) cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
