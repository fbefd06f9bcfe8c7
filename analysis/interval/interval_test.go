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

package interval

import (
	"testing"
	"time"

	"github.com/hwkim3330/tsnobs/capture/frame"
	"github.com/stretchr/testify/require"
)

func tcpHeaders(srcIP, dstIP string, srcPort, dstPort uint16, seq, ack uint32, ackFlag bool) frame.Headers {
	h := frame.Headers{
		Transport: "TCP",
		SrcIP:     srcIP,
		DstIP:     dstIP,
		SrcPort:   &srcPort,
		DstPort:   &dstPort,
		TCPSeq:    &seq,
		TCPAck:    &ack,
		TCPFlags:  &frame.TCPFlags{ACK: ackFlag},
	}
	return h
}

func TestTCPRTTPairingScenario(t *testing.T) {
	// Scenario 2 from the spec.
	tr := New()
	t0 := time.Unix(0, 0)

	// frame A: 10.0.0.1:40000 -> 10.0.0.2:80, seq=1000, payload=100 bytes.
	length := tcpHeaderApprox + 100
	hA := tcpHeaders("10.0.0.1", "10.0.0.2", 40000, 80, 1000, 0, false)
	tr.Process(hA, length, t0)

	// frame B, 10ms later: 10.0.0.2:80 -> 10.0.0.1:40000, ack=1100.
	t1 := t0.Add(10 * time.Millisecond)
	hB := tcpHeaders("10.0.0.2", "10.0.0.1", 80, 40000, 0, 1100, true)
	tr.Process(hB, tcpHeaderApprox, t1)

	stats := tr.RTTStats()
	require.Equal(t, 1, stats.Count)
	require.InDelta(t, 10000, stats.Mean, 10)

	data := tr.GetData(10)
	require.Len(t, data.RTTSamples, 1)
	require.Equal(t, "10.0.0.1:40000 -> 10.0.0.2:80", data.RTTSamples[0].Flow)
}

func TestSeqLEWraparound(t *testing.T) {
	var x uint32 = 0xFFFFFFF0
	for k := uint32(0); k < 0x80000000; k += 0x0FFFFFFF {
		require.True(t, seqLE(x, x+k))
	}
	require.True(t, seqLE(100, 100))
}

func TestFirstPacketDeltaZero(t *testing.T) {
	tr := New()
	tr.Process(frame.Headers{}, 60, time.Now())
	data := tr.GetData(1)
	require.Len(t, data.Intervals, 1)
	require.Equal(t, float64(0), data.Intervals[0].DeltaUs)
}

func TestEmptyStatsAllZero(t *testing.T) {
	tr := New()
	stats := tr.IntervalStats()
	require.Equal(t, Stats{}, stats)
}

func TestFlowReapedAfterIdle(t *testing.T) {
	tr := New()
	h := tcpHeaders("10.0.0.1", "10.0.0.2", 1, 2, 1, 0, false)
	now := time.Now()
	tr.Process(h, tcpHeaderApprox+10, now)
	require.Len(t, tr.flows, 1)

	later := now.Add(2 * flowIdleTimeout)
	for i := 0; i < flowReapEvery; i++ {
		tr.Process(frame.Headers{}, 60, later)
	}
	require.Empty(t, tr.flows)
}
