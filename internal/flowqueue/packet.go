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

// Priority is the packet's scheduling class. The only class the core
// special-cases is PriorityControl, which bypasses fair-queueing entirely.
type Priority uint8

const (
	PriorityNormal  Priority = 0
	PriorityControl Priority = 0xff
)

// Endpoint is the owning socket of a packet. The host implements this over
// whatever identity its stack uses; the core never inspects it beyond these
// methods.
type Endpoint interface {
	// ID is a stable numeric identity for this endpoint, reused across
	// packets belonging to the same socket. The core does not interpret
	// its bits; uniqueness (while the endpoint lives) is all it needs.
	ID() uint64

	// Hash changes whenever the endpoint is torn down and its slot reused
	// for a new socket ("endpoint re-use"); the core uses a change in
	// Hash to detect re-use and reset per-flow credit accordingly.
	Hash() uint64

	// PacingRate is the endpoint's configured pacing rate in bytes/sec,
	// or 0 if the endpoint has no rate of its own.
	PacingRate() uint64

	// IsListener reports whether the endpoint is a listening socket,
	// which never owns a flow of its own.
	IsListener() bool

	// IsClosed reports whether the endpoint has already been torn down.
	IsClosed() bool
}

// Packet is the opaque unit of work the core schedules. Beyond the fields
// below, the core never looks inside a packet; drop and free are the
// host's responsibility.
type Packet interface {
	// Length is the on-wire length in bytes.
	Length() int

	// Tstamp is the wall-clock earliest-departure time in nanoseconds, or
	// 0 to mean "as soon as possible".
	Tstamp() int64

	// SetTstamp lets the core cap a packet's timestamp when it exceeds
	// the configured horizon (see Config.Horizon / Config.HorizonDrop).
	SetTstamp(int64)

	// PacketPriority is the packet's scheduling class.
	PacketPriority() Priority

	// SocketEndpoint is the owning endpoint, or nil for orphaned /
	// unowned packets.
	SocketEndpoint() Endpoint

	// HeaderHash is a hash of the packet's header 4-tuple, used to
	// synthesize a flow key for orphaned packets. Co-flows are recognized
	// by source port instead (see PortedPacket).
	HeaderHash() uint64
}

// CongestionMarkable is an optional capability a host Packet can implement
// to receive the CE mark applied when a packet
// departs later than ce_threshold past its eligible send time.
type CongestionMarkable interface {
	MarkCongested()
}

// envelope is the scheduler-owned wrapper around a host Packet. It carries
// the time_to_send annotation assigned during enqueue, and the
// singly-linked pointer used by the flow's FIFO fast path.
type envelope struct {
	pkt        Packet
	timeToSend int64
	noTstamp   bool // true if the host supplied no wall-clock tstamp at enqueue time
	next       *envelope
}
