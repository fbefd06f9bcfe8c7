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

package frame

import "time"

// Record is one ingested frame: immutable once built, destroyed only by
// ring eviction or an explicit clear in the owning store.
type Record struct {
	ID         uint64
	Timestamp  time.Time
	Length     int
	Data       []byte
	Headers    Headers
	Annotation any // *tsn.Annotation; kept as any to avoid an import cycle
}

// NewRecord builds a Captured Record from a raw frame, parsing its headers.
// length is the original on-wire length, which may exceed len(data) when
// the capture snapshot truncated the frame.
func NewRecord(id uint64, ts time.Time, length int, data []byte) Record {
	return Record{
		ID:        id,
		Timestamp: ts,
		Length:    length,
		Data:      data,
		Headers:   Parse(data),
	}
}
