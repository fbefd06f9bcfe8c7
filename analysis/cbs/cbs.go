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

// Package cbs tracks per-traffic-class bandwidth and burst behavior for
// Credit-Based Shaper queues.
package cbs

import (
	"fmt"
	"sync"
	"time"

	"github.com/Knetic/govaluate"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	burstWindow      = time.Millisecond
	bandwidthWindow  = 100 * time.Millisecond
	packetSizeCap    = 1000
	bandwidthSampCap = 100
)

// TrafficClass is one PCP-mapped traffic class's running stats.
type TrafficClass struct {
	TC            uint8
	Packets       uint64
	Bytes         uint64
	BandwidthMbps float64
	AvgPacketSize float64
	MaxBurstSize  uint32
}

// Stats are the CBS analyzer's published aggregates.
type Stats struct {
	TotalPackets       uint64
	TotalBytes         uint64
	TrafficClasses     []TrafficClass
	PriorityDist       map[uint8]uint64
	AvgBandwidthMbps   float64
	PeakBandwidthMbps  float64
}

type tcTracker struct {
	packets, bytes       uint64
	firstTime, lastTime  time.Time
	burstBytes, maxBurst uint32
	packetSizes          []uint32
}

// Analyzer owns the per-traffic-class CBS aggregates.
type Analyzer struct {
	mu sync.Mutex

	totalPackets, totalBytes uint64
	priorityDist             map[uint8]uint64
	trackers                 map[uint8]*tcTracker

	bandwidthSamples []float64
	lastCalculation  time.Time
	haveLast         bool
	bytesInWindow    uint64
	peakBandwidth    float64

	// alertExpr is an optional user-configured govaluate expression
	// evaluated against each traffic class's bandwidth_mbps, grounded on
	// facebook/time/fbclock/daemon/math.go's govaluate.EvaluableExpression
	// usage. nil disables alerting.
	alertExpr *govaluate.EvaluableExpression
}

// New creates an empty CBS Analyzer.
func New() *Analyzer {
	return &Analyzer{
		priorityDist: make(map[uint8]uint64),
		trackers:     make(map[uint8]*tcTracker),
	}
}

// SetAlertExpression compiles a user-supplied formula (e.g.
// "bandwidth_mbps > 80") evaluated on every Process call against the
// affected traffic class's bandwidth.
func (a *Analyzer) SetAlertExpression(expr string) error {
	compiled, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return fmt.Errorf("cbs: invalid alert expression: %w", err)
	}
	a.mu.Lock()
	a.alertExpr = compiled
	a.mu.Unlock()
	return nil
}

// pcpToTC implements the PCP→traffic-class mapping from spec.md §4.G.
func pcpToTC(pcp uint8) uint8 {
	switch pcp {
	case 0:
		return 1
	case 1:
		return 0
	default:
		if pcp <= 7 {
			return pcp
		}
		return 0
	}
}

// Process ingests one frame's priority and length at capture time now.
// Returns the alert expression's result for the affected traffic class,
// when an alert expression is configured.
func (a *Analyzer) Process(priority uint8, length int, now time.Time) (alerted bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tc := pcpToTC(priority)
	a.totalPackets++
	a.totalBytes += uint64(length)
	a.priorityDist[priority]++

	tr, ok := a.trackers[tc]
	if !ok {
		tr = &tcTracker{firstTime: now, lastTime: now}
		a.trackers[tc] = tr
	}
	tr.packets++
	tr.bytes += uint64(length)

	gap := now.Sub(tr.lastTime)
	if gap < burstWindow {
		tr.burstBytes += uint32(length)
		if tr.burstBytes > tr.maxBurst {
			tr.maxBurst = tr.burstBytes
		}
	} else {
		tr.burstBytes = uint32(length)
	}
	tr.lastTime = now
	tr.packetSizes = append(tr.packetSizes, uint32(length))
	if len(tr.packetSizes) > packetSizeCap {
		tr.packetSizes = tr.packetSizes[1:]
	}

	a.bytesInWindow += uint64(length)
	if a.haveLast {
		elapsed := now.Sub(a.lastCalculation)
		if elapsed >= bandwidthWindow {
			bandwidth := float64(a.bytesInWindow) * 8 / (elapsed.Seconds() * 1_000_000)
			a.bandwidthSamples = append(a.bandwidthSamples, bandwidth)
			if len(a.bandwidthSamples) > bandwidthSampCap {
				a.bandwidthSamples = a.bandwidthSamples[1:]
			}
			a.bytesInWindow = 0
			a.lastCalculation = now
			if bandwidth > a.peakBandwidth {
				a.peakBandwidth = bandwidth
			}
		}
	} else {
		a.lastCalculation = now
		a.haveLast = true
	}

	if a.alertExpr != nil {
		tcBandwidth := tcBandwidthLocked(tr)
		result, err := a.alertExpr.Evaluate(map[string]any{"bandwidth_mbps": tcBandwidth})
		if err == nil {
			if b, ok := result.(bool); ok {
				alerted = b
			}
		}
	}
	return alerted
}

func tcBandwidthLocked(tr *tcTracker) float64 {
	span := tr.lastTime.Sub(tr.firstTime).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(tr.bytes) * 8 / (span * 1_000_000)
}

// StatsSnapshot returns the analyzer's current aggregates, traffic classes
// sorted by TC.
func (a *Analyzer) StatsSnapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := Stats{
		TotalPackets:      a.totalPackets,
		TotalBytes:        a.totalBytes,
		PeakBandwidthMbps: a.peakBandwidth,
		PriorityDist:      make(map[uint8]uint64, len(a.priorityDist)),
	}
	for k, v := range a.priorityDist {
		out.PriorityDist[k] = v
	}
	if len(a.bandwidthSamples) > 0 {
		var sum float64
		for _, v := range a.bandwidthSamples {
			sum += v
		}
		out.AvgBandwidthMbps = sum / float64(len(a.bandwidthSamples))
	}

	tcs := maps.Keys(a.trackers)
	slices.Sort(tcs)
	for _, tc := range tcs {
		tr := a.trackers[tc]
		avgSize := 0.0
		if len(tr.packetSizes) > 0 {
			var sum uint32
			for _, s := range tr.packetSizes {
				sum += s
			}
			avgSize = float64(sum) / float64(len(tr.packetSizes))
		}
		out.TrafficClasses = append(out.TrafficClasses, TrafficClass{
			TC:            tc,
			Packets:       tr.packets,
			Bytes:         tr.bytes,
			BandwidthMbps: tcBandwidthLocked(tr),
			AvgPacketSize: avgSize,
			MaxBurstSize:  tr.maxBurst,
		})
	}
	return out
}

// TCBandwidth returns the current bandwidth estimate for one traffic class.
func (a *Analyzer) TCBandwidth(tc uint8) (float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	tr, ok := a.trackers[tc]
	if !ok {
		return 0, false
	}
	return tcBandwidthLocked(tr), true
}
