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

package frer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDuplicateSequenceCountedOnce(t *testing.T) {
	a := New()
	now := time.Now()
	a.Process("s1", 1, "aa:aa:aa:aa:aa:aa", now)
	a.Process("s1", 2, "bb:bb:bb:bb:bb:bb", now)
	a.Process("s1", 2, "aa:aa:aa:aa:aa:aa", now)

	stats := a.StatsSnapshot()
	require.Len(t, stats.Streams, 1)
	require.Equal(t, uint64(3), stats.Streams[0].Packets)
	require.Equal(t, uint64(1), stats.Streams[0].Duplicates)
	require.Equal(t, uint64(0), stats.Streams[0].SequenceErrors)
}

func TestDuplicateNeverAlsoCountsAsSequenceError(t *testing.T) {
	a := New()
	now := time.Now()
	a.Process("s1", 5, "a", now)
	a.Process("s1", 6, "a", now)
	// Repeat of 5, far from last (6): would look like a sequence error if
	// checked, but duplicates take precedence and skip that branch.
	a.Process("s1", 5, "a", now)

	stats := a.StatsSnapshot()
	require.Equal(t, uint64(1), stats.Streams[0].Duplicates)
	require.Equal(t, uint64(0), stats.Streams[0].SequenceErrors)
}

func TestSequenceErrorOnGap(t *testing.T) {
	a := New()
	now := time.Now()
	a.Process("s1", 1, "a", now)
	a.Process("s1", 5, "a", now)

	stats := a.StatsSnapshot()
	require.Equal(t, uint64(1), stats.Streams[0].SequenceErrors)
}

func TestReplicationFactorCountsDistinctPaths(t *testing.T) {
	a := New()
	now := time.Now()
	a.Process("s1", 1, "a", now)
	a.Process("s1", 2, "b", now)
	a.Process("s1", 3, "a", now)

	stats := a.StatsSnapshot()
	require.Equal(t, 2, stats.Streams[0].ReplicationFactor)
}

func TestEliminationRatePercent(t *testing.T) {
	a := New()
	now := time.Now()
	a.Process("s1", 1, "a", now)
	a.Process("s1", 1, "a", now)
	a.Process("s1", 1, "a", now)
	a.Process("s1", 2, "a", now)

	stats := a.StatsSnapshot()
	require.InDelta(t, 50.0, stats.Streams[0].EliminationRatePct, 0.01)
}

func TestStreamIDDefaultsVLANToZero(t *testing.T) {
	require.Equal(t, "aa:bb:cc:dd:ee:ff:0", StreamID("aa:bb:cc:dd:ee:ff", nil))
	vid := uint16(42)
	require.Equal(t, "aa:bb:cc:dd:ee:ff:42", StreamID("aa:bb:cc:dd:ee:ff", &vid))
}
