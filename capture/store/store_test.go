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

package store

import (
	"testing"
	"time"

	"github.com/hwkim3330/tsnobs/capture/frame"
	"github.com/stretchr/testify/require"
)

func TestAddAndSnapshot(t *testing.T) {
	s := New(4)
	for i := 0; i < 4; i++ {
		s.Add(frame.Record{ID: uint64(i), Timestamp: time.Now(), Length: 10})
	}
	require.Equal(t, 4, s.Count())

	// full ring: next admit evicts exactly one record.
	s.Add(frame.Record{ID: 4, Timestamp: time.Now(), Length: 10})
	require.Equal(t, 4, s.Count())

	snap := s.Snapshot(0, 4)
	require.Len(t, snap, 4)
	require.Equal(t, uint64(1), snap[0].ID)
	require.Equal(t, uint64(4), snap[3].ID)
}

func TestStatsPacketsRegardlessOfEviction(t *testing.T) {
	s := New(2)
	for i := 0; i < 10; i++ {
		s.Add(frame.Record{ID: uint64(i), Length: 5})
	}
	require.Equal(t, 2, s.Count())
	require.Equal(t, uint64(10), s.StatsSnapshot().Packets)
}

func TestSubscribePublishNonBlocking(t *testing.T) {
	s := New(10)
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	s.Add(frame.Record{ID: 1})
	select {
	case rec := <-ch:
		require.Equal(t, uint64(1), rec.ID)
	case <-time.After(time.Second):
		t.Fatal("expected a published record")
	}
}

func TestSetInterfaceRejectedWhileCapturing(t *testing.T) {
	s := New(10)
	s.SetCapturing(true)
	require.False(t, s.SetInterface("eth0"))
	s.SetCapturing(false)
	require.True(t, s.SetInterface("eth0"))
	require.Equal(t, "eth0", s.Interface())
}

func TestClearResetsCountNotIDCounter(t *testing.T) {
	s := New(10)
	s.NextID()
	s.NextID()
	s.Add(frame.Record{ID: 1})
	s.Clear()
	require.Equal(t, 0, s.Count())
	require.Equal(t, uint64(2), s.NextID())
}
