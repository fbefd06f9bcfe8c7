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

// [EXPANSION] Package icmp implements an ICMP echo latency probe,
// supplementing the UDP/hardware echo probes with a reachability check
// that needs no echo responder on the target. Requires CAP_NET_RAW or root to open the raw
// socket.
package icmp

import (
	"fmt"
	"math"
	"net"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const defaultTimeout = 2 * time.Second

// Result is the outcome of one ICMP echo.
type Result struct {
	Seq     int
	Success bool
	RTT     time.Duration
}

// Stats summarizes a run of Results.
type Stats struct {
	Count        int
	SuccessCount int
	Min, Max, Avg time.Duration
	JitterUs     float64
	LossPercent  float64
}

// Pinger sends ICMP echo requests to a target IPv4 address.
type Pinger struct {
	conn   *icmp.PacketConn
	target *net.IPAddr
	id     int
}

// NewPinger opens a raw ICMPv4 socket and prepares to probe target.
func NewPinger(target net.IP) (*Pinger, error) {
	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return nil, fmt.Errorf("icmp: listen: %w", err)
	}
	return &Pinger{
		conn:   conn,
		target: &net.IPAddr{IP: target},
		id:     os.Getpid() & 0xffff,
	}, nil
}

// Close releases the underlying raw socket.
func (p *Pinger) Close() error { return p.conn.Close() }

// Ping sends one echo request carrying seq and waits up to timeout for
// the matching reply.
func (p *Pinger) Ping(seq int, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	res := Result{Seq: seq}

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   p.id,
			Seq:  seq,
			Data: []byte("tsnobs-icmp-probe"),
		},
	}
	wire, err := msg.Marshal(nil)
	if err != nil {
		return res
	}

	start := time.Now()
	if _, err := p.conn.WriteTo(wire, p.target); err != nil {
		return res
	}

	if err := p.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return res
	}

	reply := make([]byte, 1500)
	for {
		n, peer, err := p.conn.ReadFrom(reply)
		if err != nil {
			return res
		}
		if peer.String() != p.target.String() {
			continue
		}

		parsed, err := icmp.ParseMessage(1, reply[:n])
		if err != nil {
			continue
		}
		if parsed.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		echo, ok := parsed.Body.(*icmp.Echo)
		if !ok || echo.ID != p.id || echo.Seq != seq {
			continue
		}

		res.Success = true
		res.RTT = time.Since(start)
		return res
	}
}

// Run sends count pings spaced interval apart and returns every result.
func (p *Pinger) Run(count int, interval, timeout time.Duration) []Result {
	results := make([]Result, 0, count)
	for seq := 0; seq < count; seq++ {
		results = append(results, p.Ping(seq, timeout))
		if seq < count-1 {
			time.Sleep(interval)
		}
	}
	return results
}

// CalculateStats reduces a run of Results into summary Stats.
func CalculateStats(results []Result) Stats {
	stats := Stats{Count: len(results)}
	if len(results) == 0 {
		return stats
	}

	var rtts []time.Duration
	var sum time.Duration
	for _, r := range results {
		if !r.Success {
			continue
		}
		stats.SuccessCount++
		rtts = append(rtts, r.RTT)
		sum += r.RTT
	}

	stats.LossPercent = float64(len(results)-stats.SuccessCount) / float64(len(results)) * 100
	if stats.SuccessCount == 0 {
		stats.LossPercent = 100
		return stats
	}

	stats.Min, stats.Max = rtts[0], rtts[0]
	for _, r := range rtts {
		if r < stats.Min {
			stats.Min = r
		}
		if r > stats.Max {
			stats.Max = r
		}
	}
	stats.Avg = sum / time.Duration(stats.SuccessCount)

	avgUs := float64(stats.Avg.Microseconds())
	var variance float64
	for _, r := range rtts {
		diff := float64(r.Microseconds()) - avgUs
		variance += diff * diff
	}
	variance /= float64(len(rtts))
	stats.JitterUs = math.Sqrt(variance)

	return stats
}
