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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hwkim3330/tsnobs/capture/frame"
	"github.com/hwkim3330/tsnobs/capture/tsn"
)

func TestWriteAndReadSnapshotRoundTrip(t *testing.T) {
	e, err := New(DefaultConfig("eth0"))
	require.NoError(t, err)

	seq := uint32(1)
	rec := &frame.Record{
		Headers: frame.Headers{
			SrcMAC: "aa:bb:cc:dd:ee:ff",
			DstMAC: "11:22:33:44:55:66",
		},
		Timestamp: time.Now(),
		Length:    64,
		Annotation: &tsn.Annotation{
			Priority:       3,
			SequenceNumber: &seq,
		},
	}
	e.dispatch(rec)

	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, e.WriteSnapshot(path))

	snap, err := ReadSnapshot(path)
	require.NoError(t, err)
	require.Equal(t, uint64(1), snap.CBS.TotalPackets)
	require.Len(t, snap.FRER.Streams, 1)
}

func TestReadSnapshotMissingFile(t *testing.T) {
	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
