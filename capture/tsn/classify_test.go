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

package tsn

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/hwkim3330/tsnobs/capture/frame"
	"github.com/stretchr/testify/require"
)

func buildVLANPTPSync(t *testing.T) []byte {
	t.Helper()
	data := make([]byte, 18+34)
	dst, _ := net.ParseMAC("01:1b:19:00:00:00")
	src, _ := net.ParseMAC("aa:bb:cc:dd:ee:ff")
	copy(data[0:6], dst)
	copy(data[6:12], src)
	binary.BigEndian.PutUint16(data[12:14], frame.EtherTypeVLAN)
	tci := uint16(4)<<13 | uint16(10)
	binary.BigEndian.PutUint16(data[14:16], tci)
	binary.BigEndian.PutUint16(data[16:18], frame.EtherTypePTP)

	ptpOff := 18
	data[ptpOff] = 0x00   // messageType Sync
	data[ptpOff+1] = 0x02 // versionPTP 2
	data[ptpOff+4] = 0    // domain
	binary.BigEndian.PutUint16(data[ptpOff+30:ptpOff+32], 7)
	clockID := []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77}
	copy(data[ptpOff+20:ptpOff+28], clockID)
	binary.BigEndian.PutUint16(data[ptpOff+28:ptpOff+30], 1)
	return data
}

func TestClassifyVLANTaggedPTPSync(t *testing.T) {
	data := buildVLANPTPSync(t)
	h := frame.Parse(data)
	require.True(t, h.IsPTP)

	ann := Classify(h, data)
	require.NotNil(t, ann)
	require.Equal(t, VariantPTP, ann.Variant)
	require.Equal(t, "aa:bb:cc:dd:ee:ff:10", ann.StreamID)
	require.NotNil(t, ann.PTP)
	require.Equal(t, "Sync", ann.PTP.MessageType.String())
	require.Equal(t, uint8(2), ann.PTP.Version)
	require.Equal(t, uint16(7), ann.PTP.SequenceID)
	require.Equal(t, "00:11:22:33:44:55:66:77-1", ann.PTP.SourcePortIdentity)
}

func TestClassifyNonTSNFrame(t *testing.T) {
	data := make([]byte, 14)
	binary.BigEndian.PutUint16(data[12:14], frame.EtherTypeIPv4)
	h := frame.Parse(data)
	require.Nil(t, Classify(h, data))
}

func TestClassifyCBSPriority(t *testing.T) {
	data := make([]byte, 18)
	binary.BigEndian.PutUint16(data[12:14], frame.EtherTypeVLAN)
	tci := uint16(6) << 13
	binary.BigEndian.PutUint16(data[14:16], tci)
	binary.BigEndian.PutUint16(data[16:18], frame.EtherTypeIPv4)
	h := frame.Parse(data)
	ann := Classify(h, data)
	require.NotNil(t, ann)
	require.Equal(t, VariantCBS, ann.Variant)
	require.Equal(t, uint8(6), ann.CBS.Priority)
}

func TestCorrectionNanos(t *testing.T) {
	require.InDelta(t, 1.0, CorrectionNanos(65536), 0.0001)
	require.InDelta(t, -1.0, CorrectionNanos(-65536), 0.0001)
}
