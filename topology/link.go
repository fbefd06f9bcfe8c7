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

package topology

import "time"

// LinkKey identifies a directed edge by ordered MAC pair.
type LinkKey struct {
	Src, Dst string
}

// Link is a directed edge keyed by ordered MAC pair (src, dst).
type Link struct {
	Src, Dst      string
	Packets       uint64    `json:"packets"`
	Bytes         uint64    `json:"bytes"`
	BandwidthMbps float64   `json:"bandwidth_mbps"`
	VLANs         []uint16  `json:"vlans,omitempty"`
	PCPs          []uint8   `json:"pcps,omitempty"`
	IsTSNPath     bool      `json:"is_tsn_path"`
	FirstActive   time.Time `json:"first_active"`
	LastActive    time.Time `json:"last_active"`
}

func (l *Link) hasVLAN(vid uint16) bool {
	for _, v := range l.VLANs {
		if v == vid {
			return true
		}
	}
	return false
}

func (l *Link) addVLAN(vid uint16) {
	if !l.hasVLAN(vid) {
		l.VLANs = append(l.VLANs, vid)
	}
}

func (l *Link) hasPCP(pcp uint8) bool {
	for _, p := range l.PCPs {
		if p == pcp {
			return true
		}
	}
	return false
}

func (l *Link) addPCP(pcp uint8) {
	if !l.hasPCP(pcp) {
		l.PCPs = append(l.PCPs, pcp)
	}
}

// recalculateBandwidth derives Mbps from accumulated bytes over the
// link's own observation span. See DESIGN.md's Open Question decision:
// this uses the link's own first/last-seen span rather than a single
// capture-wide span.
func (l *Link) recalculateBandwidth() {
	spanSec := l.LastActive.Sub(l.FirstActive).Seconds()
	if spanSec <= 0 {
		l.BandwidthMbps = 0
		return
	}
	l.BandwidthMbps = float64(l.Bytes) * 8 / (spanSec * 1_000_000)
}
