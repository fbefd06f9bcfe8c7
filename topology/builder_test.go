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
	"encoding/binary"
	"testing"
	"time"

	"github.com/hwkim3330/tsnobs/capture/frame"
	"github.com/hwkim3330/tsnobs/capture/tsn"
	"github.com/stretchr/testify/require"
)

func TestTopologyPromotionScenario(t *testing.T) {
	b := New(nil)
	now := time.Now()

	mg, ms := "11:22:33:44:55:66", "aa:bb:cc:dd:ee:ff"

	syncAnn := &tsn.Annotation{Variant: tsn.VariantPTP, PTP: &tsn.PTPInfo{MessageType: tsn.MsgSync}}
	b.ProcessPacket(&frame.Record{
		Headers:    frame.Headers{SrcMAC: mg, DstMAC: "01:1b:19:00:00:00", IsPTP: true},
		Timestamp:  now,
		Annotation: syncAnn,
	})

	delayReqAnn := &tsn.Annotation{Variant: tsn.VariantPTP, PTP: &tsn.PTPInfo{MessageType: tsn.MsgDelayReq}}
	b.ProcessPacket(&frame.Record{
		Headers:    frame.Headers{SrcMAC: ms, DstMAC: mg, IsPTP: true},
		Timestamp:  now.Add(time.Millisecond),
		Annotation: delayReqAnn,
	})

	lldpData := buildLLDPBridgeFrame(t, ms, "eth0", "switch-1")
	b.ProcessLLDP(ms, lldpData)

	nodeG, ok := b.Node(mg)
	require.True(t, ok)
	require.Equal(t, NodePtpGrandmaster, nodeG.Type)

	nodeS, ok := b.Node(ms)
	require.True(t, ok)
	require.Equal(t, NodeSwitch, nodeS.Type)
	require.Equal(t, PTPRoleOrdinaryClock, nodeS.PTPRole)
}

func buildLLDPBridgeFrame(t *testing.T, srcMAC, portID, sysName string) []byte {
	t.Helper()
	data := make([]byte, 14)
	binary.BigEndian.PutUint16(data[12:14], etherTypeLLDP)

	appendTLV := func(typ uint16, value []byte) {
		hdr := typ<<9 | uint16(len(value))
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, hdr)
		data = append(data, b...)
		data = append(data, value...)
	}
	appendTLV(2, append([]byte{7}, []byte(portID)...))
	appendTLV(5, []byte(sysName))
	appendTLV(7, []byte{0, 0, byte(capBridge >> 8), byte(capBridge)})
	appendTLV(0, nil)
	return data
}

func TestProcessPacketDispatchesLLDP(t *testing.T) {
	b := New(nil)
	now := time.Now()
	src := "aa:bb:cc:00:11:22"

	b.ProcessPacket(&frame.Record{
		Headers:   frame.Headers{SrcMAC: src, DstMAC: "ff:ff:ff:ff:ff:ff"},
		Timestamp: now,
	})

	lldpData := buildLLDPBridgeFrame(t, src, "eth1", "switch-2")
	b.ProcessPacket(&frame.Record{
		Headers:   frame.Headers{SrcMAC: src, EtherType: frame.EtherTypeLLDP},
		Timestamp: now.Add(time.Millisecond),
		Data:      lldpData,
	})

	node, ok := b.Node(src)
	require.True(t, ok)
	require.Equal(t, NodeSwitch, node.Type)
	require.Equal(t, "eth1", node.PortID)
	require.Equal(t, "switch-2", node.Hostname)
}

func TestShortestPathFullReconstruction(t *testing.T) {
	b := New(nil)
	now := time.Now()
	hop := func(src, dst string) {
		b.ProcessPacket(&frame.Record{Headers: frame.Headers{SrcMAC: src, DstMAC: dst}, Timestamp: now})
	}
	hop("a", "b")
	hop("b", "c")
	hop("c", "d")

	path, ok := b.ShortestPath("a", "d")
	require.True(t, ok)
	require.Equal(t, []string{"a", "b", "c", "d"}, path)
}

func TestShortestPathDisconnected(t *testing.T) {
	b := New(nil)
	now := time.Now()
	b.ProcessPacket(&frame.Record{Headers: frame.Headers{SrcMAC: "a", DstMAC: "b"}, Timestamp: now})
	b.ProcessPacket(&frame.Record{Headers: frame.Headers{SrcMAC: "c", DstMAC: "d"}, Timestamp: now})

	_, ok := b.ShortestPath("a", "d")
	require.False(t, ok)
}

func TestNodeTypeMonotoneNonDecreasing(t *testing.T) {
	require.Less(t, NodeHost.Priority(), NodeSwitch.Priority())
	require.Less(t, NodeSwitch.Priority(), NodeRouter.Priority())
	require.Less(t, NodeRouter.Priority(), NodeTsnBridge.Priority())
	require.Less(t, NodeTsnBridge.Priority(), NodePtpGrandmaster.Priority())
}
