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

// Package throughput generates and measures application-layer UDP
// throughput. It measures userspace throughput, not network/PHY
// throughput; for accurate performance testing use a dedicated tool.
//
// Known limitations, carried as-is: packet loss is not tracked on the
// receive side (no sequence-gap accounting), and bandwidth limiting uses
// sleep() so it is inaccurate at high rates.
package throughput

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

const (
	magic      = "THPT"
	headerSize = 16
	opData     = 1

	// DefaultPort is the conventional UDP port for the throughput responder.
	DefaultPort = 7879

	minPacketSize = 64
	maxPacketSize = 65000

	serverHardTimeout = 60 * time.Second
	serverIdleTimeout = 5 * time.Second
)

// Result summarizes one throughput run.
type Result struct {
	DurationSecs      float64
	BytesSent         uint64
	BytesReceived     uint64
	PacketsSent       uint64
	PacketsReceived   uint64
	BandwidthBps      float64
	BandwidthMbps     float64
	PacketLossPercent float64
	AvgPacketSize     float64
}

func clampPacketSize(size int) int {
	if size < minPacketSize {
		return minPacketSize
	}
	if size > maxPacketSize {
		return maxPacketSize
	}
	return size
}

// Client generates throughput load toward a responder.
type Client struct {
	target          *net.UDPAddr
	packetSize      int
	bandwidthLimitBps uint64
}

// NewClient returns a throughput generator targeting addr, sending
// 1400-byte packets with no bandwidth cap until configured otherwise.
func NewClient(target *net.UDPAddr) *Client {
	return &Client{target: target, packetSize: 1400}
}

// WithPacketSize sets the UDP payload size, clamped to [64, 65000].
func (c *Client) WithPacketSize(size int) *Client {
	c.packetSize = clampPacketSize(size)
	return c
}

// WithBandwidthLimit caps the generator's sustained rate, approximated
// via a per-packet sleep.
func (c *Client) WithBandwidthLimit(bps uint64) *Client {
	c.bandwidthLimitBps = bps
	return c
}

// Run sends load for duration and reports what was actually sent. The
// client has no visibility into what the responder received, so
// BytesReceived/PacketsReceived mirror what was sent and
// PacketLossPercent is always 0.
func (c *Client) Run(duration time.Duration) (Result, error) {
	conn, err := net.DialUDP("udp", nil, c.target)
	if err != nil {
		return Result{}, fmt.Errorf("throughput: dial: %w", err)
	}
	defer conn.Close()
	_ = conn.SetWriteDeadline(time.Time{})

	packet := make([]byte, c.packetSize)
	copy(packet[0:4], magic)
	packet[4] = opData
	for i := headerSize; i < c.packetSize; i++ {
		packet[i] = byte(i & 0xFF)
	}

	var packetDelay time.Duration
	if c.bandwidthLimitBps > 0 {
		bitsPerPacket := float64(c.packetSize) * 8
		packetDelay = time.Duration(bitsPerPacket / float64(c.bandwidthLimitBps) * float64(time.Second))
	} else {
		packetDelay = 10 * time.Microsecond
	}

	start := time.Now()
	var seq uint64
	var bytesSent uint64

	for time.Since(start) < duration {
		binary.LittleEndian.PutUint64(packet[8:16], seq)

		n, err := conn.Write(packet)
		if err != nil {
			continue
		}
		bytesSent += uint64(n)
		seq++

		if packetDelay > 0 {
			time.Sleep(packetDelay)
		}
	}

	elapsed := time.Since(start)
	durationSecs := elapsed.Seconds()
	bandwidthBps := 0.0
	if durationSecs > 0 {
		bandwidthBps = float64(bytesSent) * 8 / durationSecs
	}

	avgSize := 0.0
	if seq > 0 {
		avgSize = float64(bytesSent) / float64(seq)
	}

	return Result{
		DurationSecs:      durationSecs,
		BytesSent:         bytesSent,
		BytesReceived:     bytesSent,
		PacketsSent:       seq,
		PacketsReceived:   seq,
		BandwidthBps:      bandwidthBps,
		BandwidthMbps:     bandwidthBps / 1_000_000,
		PacketLossPercent: 0,
		AvgPacketSize:     avgSize,
	}, nil
}

// Server receives and measures throughput load.
type Server struct {
	conn *net.UDPConn
}

// NewServer binds a UDP listener on addr.
func NewServer(addr *net.UDPAddr) (*Server, error) {
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("throughput: listen: %w", err)
	}
	return &Server{conn: conn}, nil
}

// Close releases the underlying socket.
func (s *Server) Close() error { return s.conn.Close() }

// Run measures incoming throughput until stop is closed, a hard 60s
// timeout elapses, or at least one packet has been seen and 5s passes
// with no further traffic. Packet loss cannot be determined without
// sequence tracking on the sender side and is always reported as 0.
func (s *Server) Run(stop <-chan struct{}) (Result, error) {
	buf := make([]byte, 65536)
	var bytesReceived, packetsReceived uint64
	start := time.Now()
	lastPacket := start

	for {
		select {
		case <-stop:
			return s.finish(start, bytesReceived, packetsReceived), nil
		default:
		}

		if time.Since(start) >= serverHardTimeout {
			return s.finish(start, bytesReceived, packetsReceived), nil
		}

		_ = s.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				if packetsReceived > 0 && time.Since(lastPacket) > serverIdleTimeout {
					return s.finish(start, bytesReceived, packetsReceived), nil
				}
				continue
			}
			return s.finish(start, bytesReceived, packetsReceived), err
		}

		if n >= headerSize && string(buf[0:4]) == magic {
			bytesReceived += uint64(n)
			packetsReceived++
			lastPacket = time.Now()
		}
	}
}

func (s *Server) finish(start time.Time, bytesReceived, packetsReceived uint64) Result {
	durationSecs := time.Since(start).Seconds()
	bandwidthBps := 0.0
	if durationSecs > 0 {
		bandwidthBps = float64(bytesReceived) * 8 / durationSecs
	}
	avgSize := 0.0
	if packetsReceived > 0 {
		avgSize = float64(bytesReceived) / float64(packetsReceived)
	}
	return Result{
		DurationSecs:      durationSecs,
		BytesReceived:     bytesReceived,
		PacketsReceived:   packetsReceived,
		BandwidthBps:      bandwidthBps,
		BandwidthMbps:     bandwidthBps / 1_000_000,
		PacketLossPercent: 0,
		AvgPacketSize:     avgSize,
	}
}
