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

package udpecho

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildAndParsePacketRoundTrip(t *testing.T) {
	packet := buildPacket(7, opPing)
	seq, op, ok := parsePacket(packet)
	require.True(t, ok)
	require.Equal(t, uint32(7), seq)
	require.Equal(t, byte(opPing), op)
}

func TestParsePacketRejectsShort(t *testing.T) {
	_, _, ok := parsePacket([]byte{'L', 'A', 'T', 'Y'})
	require.False(t, ok)
}

func TestCalculateStatsEmpty(t *testing.T) {
	stats := CalculateStats(nil)
	require.Equal(t, 0, stats.Count)
	require.Equal(t, 0.0, stats.LossPercent)
}

func TestCalculateStatsAllFailed(t *testing.T) {
	stats := CalculateStats([]Result{{Seq: 0}, {Seq: 1}})
	require.Equal(t, 100.0, stats.LossPercent)
}

func TestClientServerEndToEnd(t *testing.T) {
	srv, err := NewServer(&net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)
	defer srv.Close()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_, _ = srv.Run(stop)
		close(done)
	}()

	client, err := NewClient(srv.conn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer client.Close()

	result := client.Ping(1)
	require.True(t, result.Success)
	require.GreaterOrEqual(t, result.RTT, time.Duration(0))

	close(stop)
	<-done
}
