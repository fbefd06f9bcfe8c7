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

// Package hwecho measures round-trip latency using kernel SO_TIMESTAMPING,
// preferring hardware TX/RX timestamps from the NIC and falling back to
// software timestamps when the interface does not support them.
package hwecho

import (
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/facebook/time/phc"
	"github.com/facebook/time/timestamp"
	"github.com/hwkim3330/tsnobs/dscp"
)

const (
	magic       = "HWTS"
	opPing byte = 0
	opPong byte = 1
	packetSize  = 64

	readTimeout  = 2 * time.Second
	writeTimeout = time.Second
)

// Source identifies which timestamping mechanism produced a sample's
// TX/RX timestamps.
type Source int

const (
	// SourceNone means no usable timestamp pair was obtained.
	SourceNone Source = iota
	// SourceSoftware means the kernel fell back to software timestamps.
	SourceSoftware
	// SourceHardware means both TX and RX timestamps came from the NIC.
	SourceHardware
)

func (s Source) String() string {
	switch s {
	case SourceHardware:
		return "hardware"
	case SourceSoftware:
		return "software"
	default:
		return "none"
	}
}

// Result is the outcome of one hardware-timestamped echo.
type Result struct {
	Seq       uint32
	Success   bool
	RTT       time.Duration
	TXTime    time.Time
	RXTime    time.Time
	Source    Source
}

// Stats summarizes a run of Results.
type Stats struct {
	Count            int
	SuccessCount     int
	Min, Max, Avg    time.Duration
	JitterNs         float64
	LossPercent      float64
	HWTimestampCount int
	SWTimestampCount int
}

// Client sends hardware-timestamped echo probes to a responder.
type Client struct {
	conn       *net.UDPConn
	fd         int
	hwEnabled  bool
	phcDevice  string
}

// NewClient dials target and enables HW timestamping on the socket,
// falling back to software timestamps if the interface or driver does
// not support it. When iface is non-nil, HW timestamping is requested on
// that interface; the socket itself is not bound to it.
func NewClient(target *net.UDPAddr, iface *net.Interface, dscpValue int) (*Client, error) {
	conn, err := net.DialUDP("udp", nil, target)
	if err != nil {
		return nil, fmt.Errorf("hwecho: dial: %w", err)
	}
	if err := conn.SetReadBuffer(1 << 20); err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		conn.Close()
		return nil, err
	}

	fd, err := timestamp.ConnFd(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("hwecho: conn fd: %w", err)
	}

	if dscpValue > 0 {
		if localAddr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			_ = dscp.Enable(fd, localAddr.IP, dscpValue)
		}
	}

	hwEnabled := false
	phcDevice := ""
	if iface != nil {
		if err := timestamp.EnableHWTimestamps(fd, iface); err == nil {
			hwEnabled = true
			if dev, err := phc.IfaceToPHCDevice(iface.Name); err == nil {
				phcDevice = dev
			}
		}
	}
	if !hwEnabled {
		if err := timestamp.EnableSWTimestamps(fd); err != nil {
			conn.Close()
			return nil, fmt.Errorf("hwecho: enable timestamps: %w", err)
		}
	}

	return &Client{conn: conn, fd: fd, hwEnabled: hwEnabled, phcDevice: phcDevice}, nil
}

// Close releases the underlying socket.
func (c *Client) Close() error { return c.conn.Close() }

// HWEnabled reports whether hardware TX/RX timestamping was successfully
// enabled on the client's socket.
func (c *Client) HWEnabled() bool { return c.hwEnabled }

// PHCDevice returns the PTP hardware clock device backing the probe
// interface's hardware timestamps (e.g. "/dev/ptp0"), or "" when the
// interface has none or timestamps are software-only.
func (c *Client) PHCDevice() string { return c.phcDevice }

func buildPacket(seq uint32, op byte) []byte {
	packet := make([]byte, packetSize)
	copy(packet[0:4], magic)
	binary.LittleEndian.PutUint32(packet[4:8], seq)
	packet[8] = op
	return packet
}

func parsePacket(data []byte) (seq uint32, op byte, ok bool) {
	if len(data) < 9 || string(data[0:4]) != magic {
		return 0, 0, false
	}
	return binary.LittleEndian.Uint32(data[4:8]), data[8], true
}

// Ping sends one echo request carrying seq and waits for the matching
// reply, reporting the RTT measured from the TX/RX socket-level
// timestamps rather than from userspace send/receive instants.
func (c *Client) Ping(seq uint32) Result {
	res := Result{Seq: seq}
	packet := buildPacket(seq, opPing)

	if _, err := c.conn.Write(packet); err != nil {
		return res
	}

	txTime, _, txErr := timestamp.ReadTXtimestamp(c.fd)

	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	buf, _, rxTime, rxErr := timestamp.ReadPacketWithRXTimestamp(c.fd)
	if rxErr != nil {
		return res
	}

	recvSeq, op, ok := parsePacket(buf)
	if !ok || op != opPong || recvSeq != seq {
		return res
	}

	res.RXTime = rxTime
	if txErr == nil {
		res.TXTime = txTime
		res.RTT = rxTime.Sub(txTime)
	}
	res.Success = true
	if c.hwEnabled && txErr == nil {
		res.Source = SourceHardware
	} else if txErr == nil {
		res.Source = SourceSoftware
	} else {
		res.Source = SourceNone
	}
	return res
}

// Run sends count pings spaced interval apart and returns every result.
func (c *Client) Run(count int, interval time.Duration) []Result {
	results := make([]Result, 0, count)
	for seq := 0; seq < count; seq++ {
		results = append(results, c.Ping(uint32(seq)))
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

	var sum time.Duration
	var rtts []time.Duration
	for _, r := range results {
		if !r.Success {
			continue
		}
		stats.SuccessCount++
		rtts = append(rtts, r.RTT)
		sum += r.RTT
		switch r.Source {
		case SourceHardware:
			stats.HWTimestampCount++
		case SourceSoftware:
			stats.SWTimestampCount++
		}
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

	var variance float64
	avgNs := float64(stats.Avg.Nanoseconds())
	for _, r := range rtts {
		diff := float64(r.Nanoseconds()) - avgNs
		variance += diff * diff
	}
	variance /= float64(len(rtts))
	stats.JitterNs = math.Sqrt(variance)

	return stats
}

// Server responds to hwecho ping packets with a matching pong.
type Server struct {
	conn *net.UDPConn
}

// NewServer binds a UDP listener on addr to respond to echo probes.
func NewServer(addr *net.UDPAddr) (*Server, error) {
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("hwecho: listen: %w", err)
	}
	if err := conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
		conn.Close()
		return nil, err
	}
	return &Server{conn: conn}, nil
}

// Close releases the underlying socket.
func (s *Server) Close() error { return s.conn.Close() }

// Run answers ping packets until stop is closed, returning the number of
// pongs sent.
func (s *Server) Run(stop <-chan struct{}) (uint64, error) {
	var count uint64
	buf := make([]byte, 128)
	for {
		select {
		case <-stop:
			return count, nil
		default:
		}

		_ = s.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, src, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return count, err
		}

		seq, op, ok := parsePacket(buf[:n])
		if !ok || op != opPing {
			continue
		}
		reply := buildPacket(seq, opPong)
		if _, err := s.conn.WriteToUDP(reply, src); err == nil {
			count++
		}
	}
}
