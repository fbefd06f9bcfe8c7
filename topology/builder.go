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

import (
	"strings"
	"sync"
	"time"

	"github.com/hwkim3330/tsnobs/capture/frame"
	"github.com/hwkim3330/tsnobs/capture/tsn"
)

// Stats are capture-wide topology aggregates.
type Stats struct {
	NodeCount      int
	LinkCount      int
	TSNNodeCount   int
	TotalPackets   uint64
	TotalBytes     uint64
}

// Builder maintains the live node/link graph and auxiliary lookups.
type Builder struct {
	mu sync.RWMutex

	nodes map[string]*Node
	links map[LinkKey]*Link

	macToIPs     map[string]map[string]struct{}
	ipToMAC      map[string]string
	ipToHostname map[string]string

	hostnameResolver func(ip string) (string, bool)

	grandmasterMAC string
	stats          Stats
}

// New creates an empty Builder. resolver is an optional, non-blocking
// reverse-DNS lookup; pass nil to disable hostname resolution.
func New(resolver func(ip string) (string, bool)) *Builder {
	return &Builder{
		nodes:            make(map[string]*Node),
		links:            make(map[LinkKey]*Link),
		macToIPs:         make(map[string]map[string]struct{}),
		ipToMAC:          make(map[string]string),
		ipToHostname:     make(map[string]string),
		hostnameResolver: resolver,
	}
}

func isMulticast(mac string) bool {
	lower := strings.ToLower(mac)
	switch {
	case strings.HasPrefix(lower, "01:"):
		return true
	case strings.HasPrefix(lower, "33:33:"):
		return true
	case lower == "ff:ff:ff:ff:ff:ff":
		return true
	default:
		return false
	}
}

// ProcessPacket updates nodes and links from one captured, already
// classified record. Satisfies the worker.Topology interface.
func (b *Builder) ProcessPacket(rec *frame.Record) {
	h := rec.Headers
	if h.SrcMAC == "" {
		return
	}

	var ann *tsn.Annotation
	if a, ok := rec.Annotation.(*tsn.Annotation); ok {
		ann = a
	}

	b.mu.Lock()

	b.stats.TotalPackets++
	b.stats.TotalBytes += uint64(rec.Length)

	b.updateNode(h.SrcMAC, h, ann, rec.Timestamp, true)
	b.nodes[h.SrcMAC].PacketsTx++
	b.nodes[h.SrcMAC].BytesTx += uint64(rec.Length)
	if h.DstMAC != "" && !isMulticast(h.DstMAC) {
		b.updateNode(h.DstMAC, h, ann, rec.Timestamp, false)
		b.nodes[h.DstMAC].PacketsRx++
		b.nodes[h.DstMAC].BytesRx += uint64(rec.Length)
	}
	if h.DstMAC != "" {
		b.updateLink(h.SrcMAC, h.DstMAC, h, ann, rec.Length, rec.Timestamp)
	}

	b.recountStats()
	b.mu.Unlock()

	if h.EtherType == frame.EtherTypeLLDP {
		b.ProcessLLDP(h.SrcMAC, rec.Data)
	}
}

func (b *Builder) updateNode(mac string, h frame.Headers, ann *tsn.Annotation, now time.Time, isSource bool) {
	n, exists := b.nodes[mac]
	if !exists {
		n = &Node{MAC: mac, Vendor: lookupVendor(mac), FirstSeen: now}
		n.Type = inferNodeType(mac, h, ann, b)
		b.nodes[mac] = n
	}
	n.LastSeen = now

	ip := h.SrcIP
	if !isSource {
		ip = h.DstIP
	}
	if ip != "" {
		n.addIP(ip)
		b.macToIPs[mac] = ensureSet(b.macToIPs[mac])
		b.macToIPs[mac][ip] = struct{}{}
		b.ipToMAC[ip] = mac
		b.resolveHostnameOnce(n, ip)
	}
	if h.VLANID != nil {
		n.addVLAN(*h.VLANID)
	}
	if ann != nil {
		n.TSNCapable = true
	}
	if h.IsTSN || h.IsPTP {
		n.TSNCapable = true
	}

	if isSource && ann != nil && ann.PTP != nil {
		b.updatePTPRole(n, ann.PTP)
	}

	candidate := inferNodeType(mac, h, ann, b)
	n.promote(candidate)
}

func ensureSet(m map[string]struct{}) map[string]struct{} {
	if m == nil {
		return make(map[string]struct{})
	}
	return m
}

func (b *Builder) updatePTPRole(n *Node, info *tsn.PTPInfo) {
	switch info.MessageType {
	case tsn.MsgAnnounce, tsn.MsgSync:
		n.PTPRole = PTPRoleGrandmaster
		if b.grandmasterMAC == "" {
			b.grandmasterMAC = n.MAC
		}
	case tsn.MsgDelayReq:
		if n.PTPRole == PTPRoleNone {
			n.PTPRole = PTPRoleOrdinaryClock
		}
	case tsn.MsgPdelayReq, tsn.MsgPdelayResp:
		if n.PTPRole == PTPRoleNone {
			n.PTPRole = PTPRoleTransparentClock
		}
	}
}

// inferNodeType implements the priority-ordered rules from spec.md §4.F.
func inferNodeType(mac string, h frame.Headers, ann *tsn.Annotation, b *Builder) NodeType {
	lower := strings.ToLower(mac)
	switch {
	case strings.HasPrefix(lower, "01:1b:19"):
		return NodePtpGrandmaster
	case strings.HasPrefix(lower, "01:80:c2"):
		return NodeTsnBridge
	case isMulticast(mac):
		return NodeUnknown
	}

	if ann != nil && ann.PTP != nil && (ann.PTP.MessageType == tsn.MsgAnnounce || ann.PTP.MessageType == tsn.MsgSync) {
		return NodePtpGrandmaster
	}

	vendor := strings.ToLower(lookupVendor(mac))
	switch {
	case containsAny(vendor, "microchip", "texas instruments", "nxp"):
		return NodeTsnBridge
	case containsAny(vendor, "cisco", "juniper", "arista", "hewlett"):
		return NodeSwitch
	case containsAny(vendor, "aruba"):
		return NodeAccessPoint
	case containsAny(vendor, "vmware", "hyper-v", "virtualbox"):
		// [EXPANSION] supplemented from original_source/src/topology/mod.rs:
		// virtualization vendor prefixes are classified as hosts.
		return NodeHost
	}

	if b.distinctIPCount(mac) > 3 {
		return NodeRouter
	}
	return NodeEndStation
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func (b *Builder) distinctIPCount(mac string) int {
	return len(b.macToIPs[mac])
}

func (b *Builder) resolveHostnameOnce(n *Node, ip string) {
	if n.Hostname != "" {
		return
	}
	if _, done := b.ipToHostname[ip]; done {
		n.Hostname = b.ipToHostname[ip]
		return
	}
	if b.hostnameResolver == nil {
		return
	}
	name, ok := b.hostnameResolver(ip)
	if ok {
		b.ipToHostname[ip] = name
		n.Hostname = name
	} else {
		b.ipToHostname[ip] = "" // cache negative result, looked up once
	}
}

func (b *Builder) updateLink(src, dst string, h frame.Headers, ann *tsn.Annotation, length int, now time.Time) {
	key := LinkKey{Src: src, Dst: dst}
	link, ok := b.links[key]
	if !ok {
		link = &Link{Src: src, Dst: dst, FirstActive: now}
		b.links[key] = link
	}
	link.Packets++
	link.Bytes += uint64(length)
	if h.VLANID != nil {
		link.addVLAN(*h.VLANID)
	}
	if h.VLANPCP != nil {
		link.addPCP(*h.VLANPCP)
	}
	if (ann != nil) || h.IsPTP {
		link.IsTSNPath = true
	}
	link.LastActive = now
	link.recalculateBandwidth()
}

func (b *Builder) recountStats() {
	tsnNodes := 0
	for _, n := range b.nodes {
		if n.TSNCapable {
			tsnNodes++
		}
	}
	b.stats.NodeCount = len(b.nodes)
	b.stats.LinkCount = len(b.links)
	b.stats.TSNNodeCount = tsnNodes
}

// Node returns a copy of a node by MAC.
func (b *Builder) Node(mac string) (Node, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, ok := b.nodes[mac]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns a snapshot of all nodes.
func (b *Builder) Nodes() []Node {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Node, 0, len(b.nodes))
	for _, n := range b.nodes {
		out = append(out, *n)
	}
	return out
}

// Links returns a snapshot of all links.
func (b *Builder) Links() []Link {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Link, 0, len(b.links))
	for _, l := range b.links {
		out = append(out, *l)
	}
	return out
}

// Neighbors returns the MACs reachable by a single outbound link from mac.
func (b *Builder) Neighbors(mac string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []string
	for key := range b.links {
		if key.Src == mac {
			out = append(out, key.Dst)
		}
	}
	return out
}

// TSNNodes returns nodes flagged tsn_capable.
func (b *Builder) TSNNodes() []Node {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Node
	for _, n := range b.nodes {
		if n.TSNCapable {
			out = append(out, *n)
		}
	}
	return out
}

// PTPNodes returns nodes with a non-empty PTP role.
func (b *Builder) PTPNodes() []Node {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Node
	for _, n := range b.nodes {
		if n.PTPRole != PTPRoleNone {
			out = append(out, *n)
		}
	}
	return out
}

// NodesByType filters nodes by inferred type.
func (b *Builder) NodesByType(t NodeType) []Node {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Node
	for _, n := range b.nodes {
		if n.Type == t {
			out = append(out, *n)
		}
	}
	return out
}

// GatewayNode returns the first Router/Gateway-typed node, falling back
// to the node with the most observed traffic.
func (b *Builder) GatewayNode() (Node, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, n := range b.nodes {
		if n.Type == NodeRouter || n.Type == NodeGateway {
			return *n, true
		}
	}
	var best *Node
	var bestBytes uint64
	for _, n := range b.nodes {
		total := n.BytesTx + n.BytesRx
		if best == nil || total > bestBytes {
			best, bestBytes = n, total
		}
	}
	if best == nil {
		return Node{}, false
	}
	return *best, true
}

// Clear discards all nodes, links, and lookup tables.
func (b *Builder) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nodes = make(map[string]*Node)
	b.links = make(map[LinkKey]*Link)
	b.macToIPs = make(map[string]map[string]struct{})
	b.ipToMAC = make(map[string]string)
	b.ipToHostname = make(map[string]string)
	b.grandmasterMAC = ""
	b.stats = Stats{}
}

// StatsSnapshot returns the current topology-wide counters.
func (b *Builder) StatsSnapshot() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stats
}
