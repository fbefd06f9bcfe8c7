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

// Package tsn classifies a parsed frame as TSN-relevant and, when so,
// produces the annotation carried alongside it. Classify assigns the PTP,
// CBS or Standard variant; TAS, FRER and SRP are declared but never
// assigned.
package tsn

import (
	"encoding/binary"
	"fmt"

	"github.com/hwkim3330/tsnobs/capture/frame"
)

// Variant is the tagged kind of a TSN annotation.
type Variant int

const (
	VariantStandard Variant = iota
	VariantPTP
	VariantCBS
	VariantTAS
	VariantFRER
	VariantSRP
)

func (v Variant) String() string {
	switch v {
	case VariantPTP:
		return "PTP"
	case VariantCBS:
		return "CBS"
	case VariantTAS:
		return "TAS"
	case VariantFRER:
		return "FRER"
	case VariantSRP:
		return "SRP"
	default:
		return "Standard"
	}
}

// MessageType is the PTP message type, decoded from the low nibble of the
// first header byte.
type MessageType int

const (
	MsgSync MessageType = iota
	MsgDelayReq
	MsgPdelayReq
	MsgPdelayResp
	MsgFollowUp
	MsgDelayResp
	MsgPdelayRespFollowUp
	MsgAnnounce
	MsgSignaling
	MsgManagement
	MsgUnknown
)

var messageTypeNames = [...]string{
	MsgSync: "Sync", MsgDelayReq: "Delay_Req", MsgPdelayReq: "Pdelay_Req",
	MsgPdelayResp: "Pdelay_Resp", MsgFollowUp: "Follow_Up", MsgDelayResp: "Delay_Resp",
	MsgPdelayRespFollowUp: "Pdelay_Resp_Follow_Up", MsgAnnounce: "Announce",
	MsgSignaling: "Signaling", MsgManagement: "Management",
}

func (m MessageType) String() string {
	if int(m) >= 0 && int(m) < len(messageTypeNames) && messageTypeNames[m] != "" {
		return messageTypeNames[m]
	}
	return "Unknown"
}

func messageTypeFromNibble(n uint8) MessageType {
	switch n {
	case 0x0:
		return MsgSync
	case 0x1:
		return MsgDelayReq
	case 0x2:
		return MsgPdelayReq
	case 0x3:
		return MsgPdelayResp
	case 0x8:
		return MsgFollowUp
	case 0x9:
		return MsgDelayResp
	case 0xA:
		return MsgPdelayRespFollowUp
	case 0xB:
		return MsgAnnounce
	case 0xC:
		return MsgSignaling
	case 0xD:
		return MsgManagement
	default:
		return MsgUnknown
	}
}

// PTPInfo is the variant-specific payload for PTP frames.
type PTPInfo struct {
	MessageType        MessageType
	Version             uint8
	Domain              uint8
	SequenceID          uint16
	CorrectionField     int64
	SourcePortIdentity  string
}

// CBSInfo is the variant-specific payload for CBS-shaped frames.
type CBSInfo struct {
	Priority uint8
}

// Annotation is produced when a frame is decided to be TSN-relevant.
type Annotation struct {
	StreamID       string
	SequenceNumber *uint32
	Priority       uint8
	Variant        Variant
	PTP            *PTPInfo
	CBS            *CBSInfo
}

// Classify runs the TSN classifier over a parsed frame and its raw bytes.
// Returns nil when the frame is not TSN-relevant, matching the spec's
// "runs after the parser when is_tsn ∨ is_ptp ∨ vlan_pcp.is_some()" gate.
func Classify(h frame.Headers, data []byte) *Annotation {
	hasPCP := h.VLANPCP != nil
	if !h.IsTSN && !h.IsPTP && !hasPCP {
		return nil
	}

	ann := &Annotation{Variant: VariantStandard}
	if hasPCP {
		ann.Priority = *h.VLANPCP
	}
	if h.VLANID != nil {
		ann.StreamID = fmt.Sprintf("%s:%d", h.SrcMAC, *h.VLANID)
	}

	switch {
	case h.IsPTP:
		ann.Variant = VariantPTP
		ann.PTP = parsePTPHeader(h, data)
		if ann.PTP != nil {
			seq := uint32(ann.PTP.SequenceID)
			ann.SequenceNumber = &seq
		}
	case hasPCP && (*h.VLANPCP == 6 || *h.VLANPCP == 7):
		ann.Variant = VariantCBS
		ann.CBS = &CBSInfo{Priority: *h.VLANPCP}
	case hasPCP && (*h.VLANPCP == 4 || *h.VLANPCP == 5):
		ann.Variant = VariantCBS
		ann.CBS = &CBSInfo{Priority: *h.VLANPCP}
	}

	return ann
}

// ptpHeaderOffset returns the offset of the PTP event-message header within
// the frame, per spec.md §4.B: 14 over plain Ethernet II, 18 with one VLAN
// tag, 42 over UDP/IPv4, 46 over VLAN-tagged UDP/IPv4.
func ptpHeaderOffset(h frame.Headers) int {
	vlan := h.VLANID != nil
	if h.Transport == "UDP" {
		if vlan {
			return 46
		}
		return 42
	}
	if vlan {
		return 18
	}
	return 14
}

// parsePTPHeader decodes the fixed PTP event-message header fields this
// engine cares about. It never fails: a too-short buffer yields nil.
func parsePTPHeader(h frame.Headers, data []byte) *PTPInfo {
	off := ptpHeaderOffset(h)
	if len(data) < off+34 {
		return nil
	}
	msgTypeByte := data[off]
	versionByte := data[off+1]
	domain := data[off+4]
	correctionRaw := int64(binary.BigEndian.Uint64(data[off+8 : off+16]))
	seqID := binary.BigEndian.Uint16(data[off+30 : off+32])
	clockID := data[off+20 : off+28]
	portNumber := binary.BigEndian.Uint16(data[off+28 : off+30])

	return &PTPInfo{
		MessageType:        messageTypeFromNibble(msgTypeByte & 0x0F),
		Version:            versionByte & 0x0F,
		Domain:             domain,
		SequenceID:         seqID,
		CorrectionField:    correctionRaw,
		SourcePortIdentity: fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x:%02x:%02x-%d", clockID[0], clockID[1], clockID[2], clockID[3], clockID[4], clockID[5], clockID[6], clockID[7], portNumber),
	}
}

// CorrectionNanos converts the fixed-point correction field (16 fractional
// bits) to nanoseconds.
func CorrectionNanos(correction int64) float64 {
	return float64(correction) / 65536.0
}
