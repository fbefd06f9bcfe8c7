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

// Package tas infers Time-Aware Shaper gate cycles from the inter-arrival
// pattern of per-queue traffic.
package tas

import (
	"sync"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	intervalCap      = 1000
	binWidth         = 100 * time.Microsecond
	minSamplesForFit = 100
	modalFraction    = 0.10
)

// Queue is one VLAN-PCP queue's observed gate-cycle behavior.
type Queue struct {
	PCP              uint8
	Packets          uint64
	Bytes            uint64
	CycleDetected    bool
	CycleTimeUs      float64
	IntervalSamples  int
}

// Stats are the TAS analyzer's published aggregates.
type Stats struct {
	Queues []Queue
}

type queueTracker struct {
	packets, bytes uint64
	lastTime       time.Time
	haveLast       bool
	intervals      []time.Duration
}

// Analyzer owns the per-queue TAS cycle trackers.
type Analyzer struct {
	mu       sync.Mutex
	trackers map[uint8]*queueTracker
}

// New creates an empty TAS Analyzer.
func New() *Analyzer {
	return &Analyzer{trackers: make(map[uint8]*queueTracker)}
}

// Process ingests one frame's VLAN PCP (0 when untagged) and length at
// capture time now.
func (a *Analyzer) Process(pcp uint8, length int, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tr, ok := a.trackers[pcp]
	if !ok {
		tr = &queueTracker{}
		a.trackers[pcp] = tr
	}
	tr.packets++
	tr.bytes += uint64(length)

	if tr.haveLast {
		delta := now.Sub(tr.lastTime)
		if delta > 0 {
			tr.intervals = append(tr.intervals, delta)
			if len(tr.intervals) > intervalCap {
				tr.intervals = tr.intervals[1:]
			}
		}
	}
	tr.lastTime = now
	tr.haveLast = true
}

// detectCycle quantizes inter-arrival intervals into 100us bins and
// reports the modal bin as the gate cycle once it covers at least
// modalFraction of the observed population, requiring at least
// minSamplesForFit samples before attempting a fit.
func detectCycle(intervals []time.Duration) (float64, bool) {
	if len(intervals) < minSamplesForFit {
		return 0, false
	}

	bins := make(map[int64]int)
	for _, d := range intervals {
		bin := int64(d / binWidth)
		bins[bin]++
	}

	var bestBin int64
	bestCount := 0
	for bin, count := range bins {
		if count > bestCount {
			bestCount = count
			bestBin = bin
		}
	}

	if float64(bestCount)/float64(len(intervals)) < modalFraction {
		return 0, false
	}

	cycleUs := float64(bestBin) * float64(binWidth.Microseconds())
	return cycleUs, true
}

// StatsSnapshot returns the analyzer's current aggregates, queues sorted
// by PCP.
func (a *Analyzer) StatsSnapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	pcps := maps.Keys(a.trackers)
	slices.Sort(pcps)

	var out Stats
	for _, pcp := range pcps {
		tr := a.trackers[pcp]
		q := Queue{
			PCP:             pcp,
			Packets:         tr.packets,
			Bytes:           tr.bytes,
			IntervalSamples: len(tr.intervals),
		}
		if cycleUs, ok := detectCycle(tr.intervals); ok {
			q.CycleDetected = true
			q.CycleTimeUs = cycleUs
		}
		out.Queues = append(out.Queues, q)
	}
	return out
}
