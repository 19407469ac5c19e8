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

// fakeEndpoint and fakePacket give the test files in this package a
// minimal, mutable stand-in for a host's socket/packet types.
type fakeEndpoint struct {
	id         uint64
	hash       uint64
	pacingRate uint64
	listener   bool
	closed     bool
}

func (e *fakeEndpoint) ID() uint64           { return e.id }
func (e *fakeEndpoint) Hash() uint64         { return e.hash }
func (e *fakeEndpoint) PacingRate() uint64   { return e.pacingRate }
func (e *fakeEndpoint) IsListener() bool     { return e.listener }
func (e *fakeEndpoint) IsClosed() bool       { return e.closed }

type fakePacket struct {
	length     int
	tstamp     int64
	priority   Priority
	endpoint   Endpoint
	headerHash uint64
	congested  bool

	srcPort, dstPort uint16
	havePorts        bool
}

func (p *fakePacket) Length() int                { return p.length }
func (p *fakePacket) Tstamp() int64              { return p.tstamp }
func (p *fakePacket) SetTstamp(ts int64)         { p.tstamp = ts }
func (p *fakePacket) PacketPriority() Priority   { return p.priority }
func (p *fakePacket) SocketEndpoint() Endpoint   { return p.endpoint }
func (p *fakePacket) HeaderHash() uint64         { return p.headerHash }
func (p *fakePacket) MarkCongested()             { p.congested = true }
func (p *fakePacket) Ports() (src, dst uint16, ok bool) {
	return p.srcPort, p.dstPort, p.havePorts
}

func newScheduler(t interface{ Fatalf(string, ...interface{}) }) *Scheduler {
	cfg := DefaultConfig()
	cfg.BucketsLog = 4
	q, err := Init(cfg, nil)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return q
}
