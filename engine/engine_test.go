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

package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hwkim3330/tsnobs/capture/frame"
	"github.com/hwkim3330/tsnobs/capture/tsn"
)

func TestNewAppliesDefaultsAndAlertExpr(t *testing.T) {
	cfg := DefaultConfig("eth0")
	cfg.CBSAlertExpr = "bandwidth_mbps >= 0"

	e, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, e.Store)
	require.NotNil(t, e.Topology)
}

func TestNewRejectsInvalidAlertExpr(t *testing.T) {
	cfg := DefaultConfig("eth0")
	cfg.CBSAlertExpr = "bandwidth_mbps >"

	_, err := New(cfg)
	require.Error(t, err)
}

func TestDispatchFeedsAnalyzers(t *testing.T) {
	e, err := New(DefaultConfig("eth0"))
	require.NoError(t, err)

	vid := uint16(10)
	pcp := uint8(6)
	seq := uint32(1)

	rec := &frame.Record{
		Headers: frame.Headers{
			SrcMAC:  "aa:bb:cc:dd:ee:ff",
			DstMAC:  "11:22:33:44:55:66",
			VLANID:  &vid,
			VLANPCP: &pcp,
		},
		Timestamp: time.Now(),
		Length:    128,
		Annotation: &tsn.Annotation{
			Priority:       pcp,
			SequenceNumber: &seq,
		},
	}

	e.dispatch(rec)

	cbsStats := e.CBS.StatsSnapshot()
	require.Equal(t, uint64(1), cbsStats.TotalPackets)

	frerStats := e.FRER.StatsSnapshot()
	require.Len(t, frerStats.Streams, 1)
}
