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
	"fmt"
	"math"
	"time"
)

const mtu = 1500

// Config holds every externally observable scheduler tunable.
type Config struct {
	Plimit            uint32
	FlowPlimit        uint32
	Quantum           uint32
	InitialQuantum    uint32
	FlowMaxRate       uint64 // bytes/sec, 0 = unlimited
	LowRateThreshold  uint32
	BucketsLog        uint32 // 1..18
	FlowRefillDelay   time.Duration
	OrphanMask        uint32
	CeThreshold       time.Duration
	TimerSlack        time.Duration
	Horizon           time.Duration
	HorizonDrop       bool
	RateEnable        bool
	F1Source, F2Source uint32
	F1Dest, F2Dest     uint32

	// CoFlowBreachCount / CoFlowReliefCount expose the flip-flop
	// thresholds that would otherwise sit hard-coded as an open question
	// hard-coded in the source (ucounter == 2 / == 0). Defaults
	// reproduce the source's behavior exactly.
	CoFlowBreachCount int
	CoFlowReliefCount int

	Debug bool
}

// DefaultConfig returns the scheduler's documented defaults.
func DefaultConfig() Config {
	return Config{
		Plimit:            10000,
		FlowPlimit:        100,
		Quantum:           2 * mtu,
		InitialQuantum:    10 * mtu,
		FlowMaxRate:       0,
		LowRateThreshold:  68750,
		BucketsLog:        10,
		FlowRefillDelay:   40 * time.Millisecond,
		OrphanMask:        1023,
		CeThreshold:       time.Duration(math.MaxInt64),
		TimerSlack:        10 * time.Microsecond,
		Horizon:           10 * time.Second,
		HorizonDrop:       true,
		RateEnable:        true,
		CoFlowBreachCount: 2,
		CoFlowReliefCount: 0,
	}
}

// ErrInvalidConfig is returned by Init/Change when a parameter is out of
// the documented range; it is the Config(Invalid) error kind.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("flowqueue: invalid config field %q: %s", e.Field, e.Reason)
}

// Validate checks the documented ranges, returning the first violation.
func (c *Config) Validate() error {
	if c.BucketsLog < 1 || c.BucketsLog > 18 {
		return &ErrInvalidConfig{"BucketsLog", "must be in [1, 18]"}
	}
	if c.Plimit == 0 {
		return &ErrInvalidConfig{"Plimit", "must be > 0"}
	}
	if c.FlowPlimit == 0 {
		return &ErrInvalidConfig{"FlowPlimit", "must be > 0"}
	}
	if c.CoFlowBreachCount <= c.CoFlowReliefCount {
		return &ErrInvalidConfig{"CoFlowBreachCount", "must be greater than CoFlowReliefCount"}
	}
	return nil
}
