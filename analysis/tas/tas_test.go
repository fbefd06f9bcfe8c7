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

package tas

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCycleDetectedFromRegularArrivals(t *testing.T) {
	a := New()
	now := time.Now()
	cycle := 2 * time.Millisecond

	for i := 0; i < 150; i++ {
		a.Process(3, 200, now)
		now = now.Add(cycle)
	}

	stats := a.StatsSnapshot()
	require.Len(t, stats.Queues, 1)
	require.True(t, stats.Queues[0].CycleDetected)
	require.InDelta(t, 2000.0, stats.Queues[0].CycleTimeUs, 150)
}

func TestNoCycleBelowMinimumSamples(t *testing.T) {
	a := New()
	now := time.Now()
	for i := 0; i < 10; i++ {
		a.Process(3, 200, now)
		now = now.Add(time.Millisecond)
	}

	stats := a.StatsSnapshot()
	require.False(t, stats.Queues[0].CycleDetected)
}

func TestNoCycleUnderRandomJitter(t *testing.T) {
	a := New()
	now := time.Now()
	// Twelve distinct gaps, so no single 100us bin reaches modalFraction
	// of the 149 intervals.
	jitters := []time.Duration{
		time.Millisecond, 3 * time.Millisecond, 7 * time.Millisecond,
		2 * time.Millisecond, 9 * time.Millisecond, 4 * time.Millisecond,
		11 * time.Millisecond, 6 * time.Millisecond, 12 * time.Millisecond,
		5 * time.Millisecond, 10 * time.Millisecond, 8 * time.Millisecond,
	}
	for i := 0; i < 150; i++ {
		a.Process(3, 200, now)
		now = now.Add(jitters[i%len(jitters)])
	}

	stats := a.StatsSnapshot()
	require.False(t, stats.Queues[0].CycleDetected)
}

func TestQueuesSeparatedByPCP(t *testing.T) {
	a := New()
	now := time.Now()
	a.Process(3, 100, now)
	a.Process(5, 200, now)

	stats := a.StatsSnapshot()
	require.Len(t, stats.Queues, 2)
	require.Equal(t, uint8(3), stats.Queues[0].PCP)
	require.Equal(t, uint8(5), stats.Queues[1].PCP)
}
