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

package pcapdump

import (
	"testing"
	"time"

	"github.com/hwkim3330/tsnobs/capture/frame"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	original := []frame.Record{
		frame.NewRecord(0, time.Unix(1700000000, 123000).UTC(), 64, []byte{1, 2, 3, 4, 5, 6}),
		frame.NewRecord(1, time.Unix(1700000001, 456000).UTC(), 128, []byte{7, 8, 9, 10, 11, 12}),
	}

	data := Save(original)
	var next uint64
	loaded, err := Load(data, func() uint64 { id := next; next++; return id })
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	for i := range original {
		require.Equal(t, original[i].Length, loaded[i].Length)
		require.Equal(t, original[i].Data, loaded[i].Data)
		require.WithinDuration(t, original[i].Timestamp, loaded[i].Timestamp, time.Microsecond)
	}
}

func TestLoadTruncatedStopsCleanly(t *testing.T) {
	data := Save([]frame.Record{frame.NewRecord(0, time.Now(), 10, []byte{1, 2, 3})})
	truncated := data[:len(data)-2]
	var next uint64
	loaded, err := Load(truncated, func() uint64 { id := next; next++; return id })
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestLoadUnrecognizedMagic(t *testing.T) {
	_, err := Load(make([]byte, 24), func() uint64 { return 0 })
	require.Error(t, err)
}
