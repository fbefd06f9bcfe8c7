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

// Package pcapdump implements the classic pcap (not pcapng) file format
// described in spec.md §6: µs/ns magic variants, version 2.4, link type 1
// (Ethernet), with truncation-tolerant loading.
package pcapdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/hwkim3330/tsnobs/capture/frame"
)

const (
	magicMicros   = 0xa1b2c3d4
	magicNanos    = 0xa1b23c4d
	versionMajor  = 2
	versionMinor  = 4
	snapLen       = 65535
	linkTypeEther = 1
	globalHdrLen  = 24
	recordHdrLen  = 16
)

// Load parses a pcap byte stream into Captured Records, assigning ids via
// idFn in file order. Truncated input stops cleanly rather than failing.
func Load(data []byte, idFn func() uint64) ([]frame.Record, error) {
	if len(data) < globalHdrLen {
		return nil, fmt.Errorf("pcapdump: truncated global header")
	}
	magic := binary.LittleEndian.Uint32(data[0:4])
	var order binary.ByteOrder = binary.LittleEndian
	nanos := false
	switch magic {
	case magicMicros:
	case magicNanos:
		nanos = true
	default:
		// try big-endian swapped variants
		beMagic := binary.BigEndian.Uint32(data[0:4])
		switch beMagic {
		case magicMicros:
			order = binary.BigEndian
		case magicNanos:
			order = binary.BigEndian
			nanos = true
		default:
			return nil, fmt.Errorf("pcapdump: unrecognized magic 0x%x", magic)
		}
	}

	var records []frame.Record
	off := globalHdrLen
	for off+recordHdrLen <= len(data) {
		tsSec := order.Uint32(data[off : off+4])
		tsSub := order.Uint32(data[off+4 : off+8])
		inclLen := order.Uint32(data[off+8 : off+12])
		origLen := order.Uint32(data[off+12 : off+16])
		off += recordHdrLen

		if off+int(inclLen) > len(data) {
			break // truncated trailing record: stop cleanly
		}
		payload := make([]byte, inclLen)
		copy(payload, data[off:off+int(inclLen)])
		off += int(inclLen)

		var ts time.Time
		if nanos {
			ts = time.Unix(int64(tsSec), int64(tsSub)).UTC()
		} else {
			ts = time.Unix(int64(tsSec), int64(tsSub)*1000).UTC()
		}

		id := idFn()
		records = append(records, frame.NewRecord(id, ts, int(origLen), payload))
	}
	return records, nil
}

// Save renders records as a classic pcap byte stream. Writes always emit
// the microsecond magic, per spec.md §6, even if the source was loaded
// from a nanosecond-magic file.
func Save(records []frame.Record) []byte {
	var buf bytes.Buffer
	writeGlobalHeader(&buf)
	for _, rec := range records {
		writeRecord(&buf, rec)
	}
	return buf.Bytes()
}

func writeGlobalHeader(w io.Writer) {
	var hdr [globalHdrLen]byte
	binary.LittleEndian.PutUint32(hdr[0:4], magicMicros)
	binary.LittleEndian.PutUint16(hdr[4:6], versionMajor)
	binary.LittleEndian.PutUint16(hdr[6:8], versionMinor)
	// bytes 8-15: thiszone, sigfigs — left zero
	binary.LittleEndian.PutUint32(hdr[16:20], snapLen)
	binary.LittleEndian.PutUint32(hdr[20:24], linkTypeEther)
	w.Write(hdr[:])
}

func writeRecord(w io.Writer, rec frame.Record) {
	var hdr [recordHdrLen]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(rec.Timestamp.Unix()))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(rec.Timestamp.Nanosecond()/1000))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(rec.Data)))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(rec.Length))
	w.Write(hdr[:])
	w.Write(rec.Data)
}
