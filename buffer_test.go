// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package fory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteBufferFixedWidth(t *testing.T) {
	buf := NewByteBuffer(nil)
	buf.WriteBool(true)
	buf.WriteInt8(-100)
	buf.WriteInt16(0x7FFF)
	buf.WriteInt32(0x7FFFFFFF)
	buf.WriteInt64(0x7FFFFFFFFFFFFFFF)
	buf.WriteFloat32(-1.5)
	buf.WriteFloat64(2.25)
	buf.WriteBinary([]byte{1, 2, 3})

	require.True(t, buf.ReadBool())
	require.Equal(t, int8(-100), buf.ReadInt8())
	require.Equal(t, int16(0x7FFF), buf.ReadInt16())
	require.Equal(t, int32(0x7FFFFFFF), buf.ReadInt32())
	require.Equal(t, int64(0x7FFFFFFFFFFFFFFF), buf.ReadInt64())
	require.Equal(t, float32(-1.5), buf.ReadFloat32())
	require.Equal(t, 2.25, buf.ReadFloat64())
	require.Equal(t, []byte{1, 2, 3}, buf.ReadBinary(3))
	require.NoError(t, buf.Err())
	require.Equal(t, 0, buf.Remaining())
}

// TestByteBufferLittleEndianLayout pins the wire byte order regardless of the
// host.
func TestByteBufferLittleEndianLayout(t *testing.T) {
	buf := NewByteBuffer(nil)
	buf.WriteInt16(0x1234)
	buf.WriteInt32(0x04030201)
	require.Equal(t, []byte{0x34, 0x12, 0x01, 0x02, 0x03, 0x04}, buf.GetByteSlice(0, 6))
}

func checkVarUint32(t *testing.T, buf *ByteBuffer, value uint32, bytesWritten int8) {
	t.Helper()
	actualBytes := buf.WriteVarUint32(value)
	require.Equal(t, bytesWritten, actualBytes, "value %d", value)
	require.Equal(t, value, buf.ReadVarUint32(), "value %d", value)
	require.NoError(t, buf.Err())
}

func checkVarUint64(t *testing.T, buf *ByteBuffer, value uint64, bytesWritten int8) {
	t.Helper()
	actualBytes := buf.WriteVarUint64(value)
	require.Equal(t, bytesWritten, actualBytes, "value %d", value)
	require.Equal(t, value, buf.ReadVarUint64(), "value %d", value)
	require.NoError(t, buf.Err())
}

func checkVarint32(t *testing.T, buf *ByteBuffer, value int32, bytesWritten int8) {
	t.Helper()
	actualBytes := buf.WriteVarint32(value)
	require.Equal(t, bytesWritten, actualBytes, "value %d", value)
	require.Equal(t, value, buf.ReadVarint32(), "value %d", value)
	require.NoError(t, buf.Err())
}

func checkVarint64(t *testing.T, buf *ByteBuffer, value int64, bytesWritten int8) {
	t.Helper()
	actualBytes := buf.WriteVarint64(value)
	require.Equal(t, bytesWritten, actualBytes, "value %d", value)
	require.Equal(t, value, buf.ReadVarint64(), "value %d", value)
	require.NoError(t, buf.Err())
}

func TestWriteVarUint32(t *testing.T) {
	buf := NewByteBuffer(nil)
	checkVarUint32(t, buf, 0, 1)
	checkVarUint32(t, buf, 1, 1)
	checkVarUint32(t, buf, 127, 1)
	checkVarUint32(t, buf, 128, 2)
	checkVarUint32(t, buf, 16383, 2)
	checkVarUint32(t, buf, 16384, 3)
	checkVarUint32(t, buf, 2097151, 3)
	checkVarUint32(t, buf, 2097152, 4)
	checkVarUint32(t, buf, 268435455, 4)
	checkVarUint32(t, buf, 268435456, 5)
	checkVarUint32(t, buf, math.MaxUint32, 5)
}

// TestWriteVarUint64 checks the 7-bit group boundaries and the ninth byte,
// which carries bits 56-63 verbatim with no continuation bit.
func TestWriteVarUint64(t *testing.T) {
	buf := NewByteBuffer(nil)
	checkVarUint64(t, buf, 0, 1)
	checkVarUint64(t, buf, 127, 1)
	checkVarUint64(t, buf, 128, 2)
	checkVarUint64(t, buf, 1<<21-1, 3)
	checkVarUint64(t, buf, 1<<21, 4)
	checkVarUint64(t, buf, 1<<28-1, 4)
	checkVarUint64(t, buf, 1<<28, 5)
	checkVarUint64(t, buf, 1<<35-1, 5)
	checkVarUint64(t, buf, 1<<35, 6)
	checkVarUint64(t, buf, 1<<42-1, 6)
	checkVarUint64(t, buf, 1<<42, 7)
	checkVarUint64(t, buf, 1<<49-1, 7)
	checkVarUint64(t, buf, 1<<49, 8)
	checkVarUint64(t, buf, 1<<56-1, 8)
	checkVarUint64(t, buf, 1<<56, 9)
	checkVarUint64(t, buf, math.MaxUint64, 9)
}

// TestWriteVarint32 checks zigzag boundaries: value v occupies the width of
// unsigned 2|v|, so small-magnitude negatives stay one byte.
func TestWriteVarint32(t *testing.T) {
	buf := NewByteBuffer(nil)
	checkVarint32(t, buf, 0, 1)
	checkVarint32(t, buf, -1, 1)
	checkVarint32(t, buf, 63, 1)
	checkVarint32(t, buf, -64, 1)
	checkVarint32(t, buf, 64, 2)
	checkVarint32(t, buf, -65, 2)
	checkVarint32(t, buf, 8191, 2)
	checkVarint32(t, buf, 8192, 3)
	checkVarint32(t, buf, 1<<20-1, 3)
	checkVarint32(t, buf, 1<<20, 4)
	checkVarint32(t, buf, 1<<27-1, 4)
	checkVarint32(t, buf, 1<<27, 5)
	checkVarint32(t, buf, math.MaxInt32, 5)
	checkVarint32(t, buf, math.MinInt32, 5)
}

func TestWriteVarint64(t *testing.T) {
	buf := NewByteBuffer(nil)
	checkVarint64(t, buf, 0, 1)
	checkVarint64(t, buf, -1, 1)
	checkVarint64(t, buf, 63, 1)
	checkVarint64(t, buf, -64, 1)
	checkVarint64(t, buf, 64, 2)
	checkVarint64(t, buf, -65, 2)
	checkVarint64(t, buf, 1<<34-1, 5)
	checkVarint64(t, buf, 1<<34, 6)
	checkVarint64(t, buf, 1<<55-1, 8)
	checkVarint64(t, buf, 1<<55, 9)
	checkVarint64(t, buf, math.MaxInt64, 9)
	checkVarint64(t, buf, math.MinInt64, 9)
}

// TestVarUint32Small7 checks the fast path stays wire-compatible with the
// plain encoding.
func TestVarUint32Small7(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 300, math.MaxUint32} {
		a := NewByteBuffer(nil)
		a.WriteVarUint32Small7(v)
		b := NewByteBuffer(nil)
		b.WriteVarUint32(v)
		require.Equal(t, b.GetByteSlice(0, b.WriterIndex()), a.GetByteSlice(0, a.WriterIndex()), "value %d", v)
		require.Equal(t, v, a.ReadVarUint32Small7(), "value %d", v)
		require.NoError(t, a.Err())
	}
}

// TestVarUint36Small checks the five byte cap, with the fifth byte carrying
// bits 28-35 verbatim.
func TestVarUint36Small(t *testing.T) {
	buf := NewByteBuffer(nil)
	for _, tc := range []struct {
		value uint64
		bytes int8
	}{
		{0, 1}, {127, 1}, {128, 2}, {1 << 14, 3},
		{1<<28 - 1, 4}, {1 << 28, 5}, {1<<36 - 1, 5},
	} {
		actualBytes := buf.WriteVarUint36Small(tc.value)
		require.Equal(t, tc.bytes, actualBytes, "value %d", tc.value)
		require.Equal(t, tc.value, buf.ReadVarUint36Small(), "value %d", tc.value)
		require.NoError(t, buf.Err())
	}
}

func TestLengthRoundTrip(t *testing.T) {
	buf := NewByteBuffer(nil)
	for _, n := range []int{0, 1, 127, 128, 1 << 20, math.MaxInt32} {
		buf.WriteLength(n)
		require.Equal(t, n, buf.ReadLength())
	}
	require.NoError(t, buf.Err())
}

// TestStickyReadError checks that reads past the end record one failure,
// return zero values from then on, and never panic.
func TestStickyReadError(t *testing.T) {
	buf := NewByteBuffer(nil)
	buf.WriteInt16(7)

	require.Equal(t, int32(0), buf.ReadInt32())
	require.ErrorIs(t, buf.Err(), ErrInvalidData)

	// further reads keep returning zero without clobbering the first error
	firstErr := buf.Err()
	require.Equal(t, int64(0), buf.ReadInt64())
	require.Equal(t, uint32(0), buf.ReadVarUint32())
	require.Nil(t, buf.ReadBinary(1))
	require.Same(t, firstErr, buf.Err())
}

func TestVarUint32Truncated(t *testing.T) {
	full := NewByteBuffer(nil)
	full.WriteVarUint32(math.MaxUint32)
	data := full.GetByteSlice(0, full.WriterIndex())

	buf := NewByteBuffer(data[:2])
	buf.ReadVarUint32()
	require.ErrorIs(t, buf.Err(), ErrInvalidData)
}

func TestPutUint8Patches(t *testing.T) {
	buf := NewByteBuffer(nil)
	buf.WriteByte_(0)
	offset := buf.WriterIndex() - 1
	buf.WriteInt32(-1)
	buf.PutUint8(offset, 42)

	require.Equal(t, byte(42), buf.ReadByte_())
	require.Equal(t, int32(-1), buf.ReadInt32())
}

// TestBufferReset checks a full reuse cycle: cursors, data, and the sticky
// error all clear.
func TestBufferReset(t *testing.T) {
	buf := NewByteBuffer(nil)
	buf.WriteInt32(1)
	buf.ReadInt64()
	require.Error(t, buf.Err())

	buf.Reset()
	require.NoError(t, buf.Err())
	require.Equal(t, 0, buf.WriterIndex())
	buf.WriteInt32(9)
	require.Equal(t, int32(9), buf.ReadInt32())
	require.NoError(t, buf.Err())
}

func TestNewByteBufferReadsSeed(t *testing.T) {
	buf := NewByteBuffer([]byte{0x2A, 0x00, 0x00, 0x00})
	require.Equal(t, int32(42), buf.ReadInt32())
	require.NoError(t, buf.Err())

	// writes append after the seeded bytes
	buf.WriteByte_(0xFF)
	require.Equal(t, byte(0xFF), buf.ReadByte_())
}
