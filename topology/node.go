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

// Package topology maintains the live Node/Link graph inferred from
// observed traffic: MAC-keyed maps rather than a pointer-graph, so nodes
// and links can be snapshotted and queried without lifetime headaches.
package topology

import "time"

// NodeType is a device-kind classification with a strict total order by
// confidence priority.
type NodeType int

const (
	NodeUnknown NodeType = iota
	NodeRepeater
	NodeEndStation
	NodeHost
	NodeAccessPoint
	NodeBridge
	NodeSwitch
	NodeGateway
	NodeRouter
	NodeTsnBridge
	NodePtpGrandmaster
)

var nodeTypeNames = map[NodeType]string{
	NodeUnknown:        "Unknown",
	NodeRepeater:       "Repeater",
	NodeEndStation:     "EndStation",
	NodeHost:           "Host",
	NodeAccessPoint:    "AccessPoint",
	NodeBridge:         "Bridge",
	NodeSwitch:         "Switch",
	NodeGateway:        "Gateway",
	NodeRouter:         "Router",
	NodeTsnBridge:      "TsnBridge",
	NodePtpGrandmaster: "PtpGrandmaster",
}

func (t NodeType) String() string {
	if name, ok := nodeTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Priority returns the type's rank in the monotonic promotion order; a
// node's type is replaced only by a strictly higher-priority type.
func (t NodeType) Priority() int { return int(t) }

// PTPRole is the inferred role of a node in the PTP hierarchy.
type PTPRole int

const (
	PTPRoleNone PTPRole = iota
	PTPRoleOrdinaryClock
	PTPRoleTransparentClock
	PTPRoleGrandmaster
)

func (r PTPRole) String() string {
	switch r {
	case PTPRoleOrdinaryClock:
		return "OrdinaryClock"
	case PTPRoleTransparentClock:
		return "TransparentClock"
	case PTPRoleGrandmaster:
		return "Grandmaster"
	default:
		return "None"
	}
}

// Node is a device in the fabric, keyed by MAC.
type Node struct {
	MAC         string      `json:"mac"`
	IPs         []string    `json:"ips"`
	Hostname    string      `json:"hostname,omitempty"`
	Type        NodeType    `json:"type"`
	Vendor      string      `json:"vendor,omitempty"`
	FirstSeen   time.Time   `json:"first_seen"`
	LastSeen    time.Time   `json:"last_seen"`
	PacketsTx   uint64      `json:"packets_tx"`
	PacketsRx   uint64      `json:"packets_rx"`
	BytesTx     uint64      `json:"bytes_tx"`
	BytesRx     uint64      `json:"bytes_rx"`
	TSNCapable  bool        `json:"tsn_capable"`
	PTPRole     PTPRole     `json:"ptp_role,omitempty"`
	VLANs       []uint16    `json:"vlans,omitempty"`

	// [EXPANSION] supplemented from original_source/src/topology/mod.rs,
	// fields the distilled spec's Data Model does not name.
	PortID               string   `json:"port_id,omitempty"`
	LLDPCapabilities     []string `json:"lldp_capabilities,omitempty"`
	ManagementAddresses  []string `json:"management_addresses,omitempty"`
}

func (n *Node) hasIP(ip string) bool {
	for _, existing := range n.IPs {
		if existing == ip {
			return true
		}
	}
	return false
}

func (n *Node) addIP(ip string) {
	if ip == "" || n.hasIP(ip) {
		return
	}
	n.IPs = append(n.IPs, ip)
}

func (n *Node) hasVLAN(vid uint16) bool {
	for _, existing := range n.VLANs {
		if existing == vid {
			return true
		}
	}
	return false
}

func (n *Node) addVLAN(vid uint16) {
	if n.hasVLAN(vid) {
		return
	}
	n.VLANs = append(n.VLANs, vid)
}

// promote sets the node's type to candidate only if candidate outranks
// the current type, preserving the monotone-non-decreasing invariant.
func (n *Node) promote(candidate NodeType) {
	if candidate.Priority() > n.Type.Priority() {
		n.Type = candidate
	}
}
