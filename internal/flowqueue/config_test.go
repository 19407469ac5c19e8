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

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestConfigValidateRejectsOutOfRangeFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"BucketsLog too low", func(c *Config) { c.BucketsLog = 0 }, "BucketsLog"},
		{"BucketsLog too high", func(c *Config) { c.BucketsLog = 19 }, "BucketsLog"},
		{"Plimit zero", func(c *Config) { c.Plimit = 0 }, "Plimit"},
		{"FlowPlimit zero", func(c *Config) { c.FlowPlimit = 0 }, "FlowPlimit"},
		{"breach not greater than relief", func(c *Config) { c.CoFlowBreachCount = c.CoFlowReliefCount }, "CoFlowBreachCount"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			var invalid *ErrInvalidConfig
			if !errors.As(err, &invalid) {
				t.Fatalf("Validate() = %v, want *ErrInvalidConfig", err)
			}
			if invalid.Field != tc.field {
				t.Fatalf("Validate() field = %q, want %q", invalid.Field, tc.field)
			}
		})
	}
}
