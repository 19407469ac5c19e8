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

// Package pcapfeed reads an offline pcap file and turns each captured
// packet into an fq.Packet, driving a scheduler with a real trace
// instead of synthetic traffic.
package pcapfeed

import (
	"fmt"
	"hash/fnv"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/bmkrutgers/co-flow-scheduler/pkg/fq"
)

// packet is the pcapfeed-owned fq.Packet: a captured frame plus the
// mutable tstamp field the scheduler is allowed to rewrite.
type packet struct {
	length     int
	tstamp     int64
	headerHash uint64
	srcPort    uint16
	dstPort    uint16
	havePorts  bool
	priority   fq.Priority
	congested  bool
}

func (p *packet) Length() int                   { return p.length }
func (p *packet) Tstamp() int64                 { return p.tstamp }
func (p *packet) SetTstamp(ts int64)             { p.tstamp = ts }
func (p *packet) PacketPriority() fq.Priority    { return p.priority }
func (p *packet) SocketEndpoint() fq.Endpoint    { return nil }
func (p *packet) HeaderHash() uint64             { return p.headerHash }
func (p *packet) MarkCongested()                 { p.congested = true }
func (p *packet) Ports() (src, dst uint16, ok bool) { return p.srcPort, p.dstPort, p.havePorts }

// Reader replays every packet in an offline pcap file.
type Reader struct {
	handle *pcap.Handle
	source *gopacket.PacketSource
}

// Open opens path for offline reading; Close releases the underlying
// pcap handle.
func Open(path string) (*Reader, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, fmt.Errorf("pcapfeed: open %s: %w", path, err)
	}
	return &Reader{
		handle: handle,
		source: gopacket.NewPacketSource(handle, handle.LinkType()),
	}, nil
}

// Close releases the pcap handle.
func (r *Reader) Close() { r.handle.Close() }

// Next decodes the next captured frame into an fq.Packet, or returns
// ok=false once the file is exhausted.
func (r *Reader) Next() (fq.Packet, bool) {
	raw, ok := <-r.source.Packets()
	if !ok {
		return nil, false
	}
	return fromCaptured(raw), true
}

func fromCaptured(raw gopacket.Packet) *packet {
	p := &packet{length: len(raw.Data())}

	if md := raw.Metadata(); md != nil {
		p.tstamp = md.Timestamp.UnixNano()
	}

	h := fnv.New64a()

	var srcAddr, dstAddr string
	if ip4, ok := raw.Layer(layers.LayerTypeIPv4).(*layers.IPv4); ok {
		srcAddr, dstAddr = ip4.SrcIP.String(), ip4.DstIP.String()
	} else if ip6, ok := raw.Layer(layers.LayerTypeIPv6).(*layers.IPv6); ok {
		srcAddr, dstAddr = ip6.SrcIP.String(), ip6.DstIP.String()
	}

	var proto string
	switch {
	case raw.Layer(layers.LayerTypeTCP) != nil:
		tcp := raw.Layer(layers.LayerTypeTCP).(*layers.TCP)
		p.srcPort, p.dstPort, p.havePorts = uint16(tcp.SrcPort), uint16(tcp.DstPort), true
		proto = "tcp"
	case raw.Layer(layers.LayerTypeUDP) != nil:
		udp := raw.Layer(layers.LayerTypeUDP).(*layers.UDP)
		p.srcPort, p.dstPort, p.havePorts = uint16(udp.SrcPort), uint16(udp.DstPort), true
		proto = "udp"
	}

	fmt.Fprintf(h, "%s|%s|%d|%d|%s", srcAddr, dstAddr, p.srcPort, p.dstPort, proto)
	p.headerHash = h.Sum64()

	return p
}
