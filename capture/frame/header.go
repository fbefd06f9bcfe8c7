/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package frame parses a raw Ethernet frame into a flat header record,
// strictly left to right, never failing on a short read.
package frame

import (
	"encoding/binary"
	"fmt"
	"net"
)

// EtherType codes used throughout the parser and classifier.
const (
	EtherTypeIPv4   = 0x0800
	EtherTypeARP    = 0x0806
	EtherTypeVLAN   = 0x8100
	EtherTypeQinQ   = 0x88A8
	EtherTypeIPv6   = 0x86DD
	EtherTypePTP    = 0x88F7
	EtherTypeGOOSE  = 0x88B8
	EtherTypeSV     = 0x88BA
	EtherTypeLLDP   = 0x88CC
	EtherTypeMACsec = 0x88E5
	EtherTypeSRP    = 0x22F0
	EtherTypePPPoED = 0x8863
	EtherTypePPPoES = 0x8864
	EtherTypeCFM    = 0x8902
	EtherTypeCDP    = 0x2000
	EtherTypeMVRP   = 0x88F5
	EtherTypeMRP    = 0x88E3
)

var etherTypeNames = map[uint16]string{
	EtherTypeIPv4:   "IPv4",
	EtherTypeARP:    "ARP",
	EtherTypeVLAN:   "VLAN",
	EtherTypeQinQ:   "QinQ",
	EtherTypeIPv6:   "IPv6",
	EtherTypePTP:    "PTP",
	EtherTypeGOOSE:  "GOOSE",
	EtherTypeSV:     "SV",
	EtherTypeLLDP:   "LLDP",
	EtherTypeMACsec: "MACsec",
	EtherTypeSRP:    "SRP",
	EtherTypePPPoED: "PPPoE-D",
	EtherTypePPPoES: "PPPoE-S",
	EtherTypeCFM:    "CFM",
	EtherTypeCDP:    "CDP",
	EtherTypeMVRP:   "MVRP",
	EtherTypeMRP:    "MRP",
}

// EtherTypeName resolves a symbolic name for an EtherType, falling back to a
// zero-padded hex rendering for anything not in the well-known table.
func EtherTypeName(et uint16) string {
	if name, ok := etherTypeNames[et]; ok {
		return name
	}
	return fmt.Sprintf("0x%04X", et)
}

// Headers is the flat field set produced by parsing a single frame.
// Optional fields use pointer types so "absent" is distinguishable from
// "zero" — truncated frames leave tail fields nil rather than failing.
type Headers struct {
	DstMAC         string
	SrcMAC         string
	EtherType      uint16
	EtherTypeName  string
	VLANID         *uint16
	VLANPCP        *uint8
	SrcIP          string
	DstIP          string
	Transport      string
	SrcPort        *uint16
	DstPort        *uint16
	TCPFlags       *TCPFlags
	TCPSeq         *uint32
	TCPAck         *uint32
	TCPWindow      *uint16
	ICMPType       *uint8
	ICMPCode       *uint8
	ARPOp          *uint16
	IPTTL          *uint8
	IPID           *uint16
	IsPTP          bool
	IsTSN          bool
}

// TCPFlags holds the eight standard TCP control bits.
type TCPFlags struct {
	FIN, SYN, RST, PSH, ACK, URG, ECE, CWR bool
}

func canonicalMAC(b []byte) string {
	return net.HardwareAddr(b).String()
}

// Parse decodes one Ethernet frame (no FCS) left-to-right. It never panics
// and never returns an error: a short read simply leaves the remaining
// fields absent, per the documented failure mode.
func Parse(data []byte) Headers {
	var h Headers
	if len(data) < 12 {
		return h
	}
	h.DstMAC = canonicalMAC(data[0:6])
	h.SrcMAC = canonicalMAC(data[6:12])

	if len(data) < 14 {
		return h
	}
	etOrLen := binary.BigEndian.Uint16(data[12:14])
	off := 14

	if etOrLen <= 1500 {
		parseLLC(&h, data, off)
		h.finalize()
		return h
	}
	h.EtherType = etOrLen

	if h.EtherType == EtherTypeVLAN || h.EtherType == EtherTypeQinQ {
		if len(data) < off+4 {
			h.EtherTypeName = EtherTypeName(h.EtherType)
			h.finalize()
			return h
		}
		tci := binary.BigEndian.Uint16(data[off : off+2])
		pcp := uint8(tci >> 13)
		vid := tci & 0x0FFF
		h.VLANPCP = &pcp
		h.VLANID = &vid
		off += 2
		if len(data) < off+2 {
			h.EtherTypeName = EtherTypeName(h.EtherType)
			h.finalize()
			return h
		}
		h.EtherType = binary.BigEndian.Uint16(data[off : off+2])
		off += 2
	}
	h.EtherTypeName = EtherTypeName(h.EtherType)

	switch h.EtherType {
	case EtherTypeIPv4:
		parseIPv4(&h, data, off)
	case EtherTypeIPv6:
		parseIPv6(&h, data, off)
	case EtherTypeARP:
		parseARP(&h, data, off)
	}

	h.finalize()
	return h
}

func parseLLC(h *Headers, data []byte, off int) {
	h.EtherTypeName = "802.3"
	if len(data) < off+3 {
		return
	}
	dsap, ssap := data[off], data[off+1]
	switch {
	case dsap == 0xAA && ssap == 0xAA:
		if len(data) >= off+8 {
			h.EtherType = binary.BigEndian.Uint16(data[off+6 : off+8])
			h.EtherTypeName = EtherTypeName(h.EtherType)
		}
	case dsap == 0x42 && ssap == 0x42:
		h.EtherTypeName = "STP"
	}
}

func parseIPv4(h *Headers, data []byte, off int) {
	if len(data) < off+20 {
		return
	}
	ihl := int(data[off]&0x0F) * 4
	ttl := data[off+8]
	id := binary.BigEndian.Uint16(data[off+4 : off+6])
	proto := data[off+9]
	h.SrcIP = net.IP(data[off+12 : off+16]).String()
	h.DstIP = net.IP(data[off+16 : off+20]).String()
	h.IPTTL = &ttl
	h.IPID = &id

	if ihl < 20 {
		ihl = 20
	}
	tOff := off + ihl
	parseTransport(h, data, tOff, proto)
}

func parseIPv6(h *Headers, data []byte, off int) {
	if len(data) < off+40 {
		return
	}
	nextHdr := data[off+6]
	hopLimit := data[off+7]
	h.SrcIP = net.IP(data[off+8 : off+24]).String()
	h.DstIP = net.IP(data[off+24 : off+40]).String()
	h.IPTTL = &hopLimit
	// Extension headers are not walked in this revision (TODO).
	parseTransport(h, data, off+40, nextHdr)
}

func parseTransport(h *Headers, data []byte, off int, proto uint8) {
	switch proto {
	case 6: // TCP
		h.Transport = "TCP"
		if len(data) < off+20 {
			return
		}
		srcPort := binary.BigEndian.Uint16(data[off : off+2])
		dstPort := binary.BigEndian.Uint16(data[off+2 : off+4])
		seq := binary.BigEndian.Uint32(data[off+4 : off+8])
		ack := binary.BigEndian.Uint32(data[off+8 : off+12])
		flagsByte := data[off+13]
		window := binary.BigEndian.Uint16(data[off+14 : off+16])
		h.SrcPort, h.DstPort = &srcPort, &dstPort
		h.TCPSeq, h.TCPAck, h.TCPWindow = &seq, &ack, &window
		h.TCPFlags = &TCPFlags{
			FIN: flagsByte&0x01 != 0,
			SYN: flagsByte&0x02 != 0,
			RST: flagsByte&0x04 != 0,
			PSH: flagsByte&0x08 != 0,
			ACK: flagsByte&0x10 != 0,
			URG: flagsByte&0x20 != 0,
			ECE: flagsByte&0x40 != 0,
			CWR: flagsByte&0x80 != 0,
		}
	case 17: // UDP
		h.Transport = "UDP"
		if len(data) < off+8 {
			return
		}
		srcPort := binary.BigEndian.Uint16(data[off : off+2])
		dstPort := binary.BigEndian.Uint16(data[off+2 : off+4])
		h.SrcPort, h.DstPort = &srcPort, &dstPort
		if srcPort == 319 || srcPort == 320 || dstPort == 319 || dstPort == 320 {
			h.IsPTP = true
		}
	case 1: // ICMP
		h.Transport = "ICMP"
		if len(data) < off+2 {
			return
		}
		typ, code := data[off], data[off+1]
		h.ICMPType, h.ICMPCode = &typ, &code
	}
}

func parseARP(h *Headers, data []byte, off int) {
	if len(data) < off+28 {
		return
	}
	op := binary.BigEndian.Uint16(data[off+6 : off+8])
	h.ARPOp = &op
	// Sender/target protocol addresses surface in src_ip/dst_ip for uniformity.
	h.SrcIP = net.IP(data[off+14 : off+18]).String()
	h.DstIP = net.IP(data[off+24 : off+28]).String()
}

func (h *Headers) finalize() {
	h.IsPTP = h.IsPTP || h.EtherType == EtherTypePTP
	h.IsTSN = h.IsPTP || h.VLANPCP != nil || h.EtherType == EtherTypeSRP
}
