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
	sf "github.com/wissance/stringFormatter"
	"go.uber.org/zap"
)

// trace mirrors flowMutex.log's debug gate: the scheduler stays silent
// unless Debug is set, and the formatted line is only built when it will
// actually be emitted.
func (q *Scheduler) trace(template string, args ...interface{}) {
	if !q.cfg.Debug || q.logger == nil {
		return
	}
	q.logger.Debug(sf.Format(template, args...))
}

func newNopLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
