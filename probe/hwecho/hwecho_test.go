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

package hwecho

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildAndParsePacketRoundTrip(t *testing.T) {
	packet := buildPacket(42, opPing)
	seq, op, ok := parsePacket(packet)
	require.True(t, ok)
	require.Equal(t, uint32(42), seq)
	require.Equal(t, opPing, op)
}

func TestParsePacketRejectsBadMagic(t *testing.T) {
	packet := buildPacket(1, opPing)
	packet[0] = 'X'
	_, _, ok := parsePacket(packet)
	require.False(t, ok)
}

func TestParsePacketRejectsShort(t *testing.T) {
	_, _, ok := parsePacket([]byte{1, 2, 3})
	require.False(t, ok)
}

func TestCalculateStatsAllFailed(t *testing.T) {
	results := []Result{{Seq: 0, Success: false}, {Seq: 1, Success: false}}
	stats := CalculateStats(results)
	require.Equal(t, 0, stats.SuccessCount)
	require.Equal(t, 100.0, stats.LossPercent)
}

func TestCalculateStatsMixed(t *testing.T) {
	results := []Result{
		{Seq: 0, Success: true, RTT: 10 * time.Microsecond, Source: SourceHardware},
		{Seq: 1, Success: true, RTT: 30 * time.Microsecond, Source: SourceHardware},
		{Seq: 2, Success: false},
	}
	stats := CalculateStats(results)
	require.Equal(t, 3, stats.Count)
	require.Equal(t, 2, stats.SuccessCount)
	require.Equal(t, 2, stats.HWTimestampCount)
	require.InDelta(t, 33.33, stats.LossPercent, 0.1)
	require.Equal(t, 10*time.Microsecond, stats.Min)
	require.Equal(t, 30*time.Microsecond, stats.Max)
	require.Equal(t, 20*time.Microsecond, stats.Avg)
}
