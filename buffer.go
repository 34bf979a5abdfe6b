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
	"encoding/binary"
	"io"
	"math"
	"unsafe"
)

const (
	MaxInt8  = math.MaxInt8
	MinInt8  = math.MinInt8
	MaxInt16 = math.MaxInt16
	MinInt16 = math.MinInt16
	MaxInt32 = math.MaxInt32
	MinInt32 = math.MinInt32
	MaxInt64 = math.MaxInt64
	MinInt64 = math.MinInt64
)

// nativeEndian is the byte order of the host. The protocol payload is always
// little-endian; the header bitmap records which order the writer ran on.
var nativeEndian binary.ByteOrder = func() binary.ByteOrder {
	var probe uint16 = 0xABCD
	if *(*byte)(unsafe.Pointer(&probe)) == 0xCD {
		return binary.LittleEndian
	}
	return binary.BigEndian
}()

// ByteBuffer is a growable byte store with separate read and write cursors.
// All multi-byte values are little-endian on the wire.
//
// Reads past the written region do not panic: they record the first failure,
// return zero values from then on, and the error surfaces through Err at the
// end of the pass. This keeps decode loops free of per-read error plumbing
// while still failing the whole pass on truncated input.
type ByteBuffer struct {
	data        []byte
	writerIndex int
	readerIndex int
	readErr     error
}

// NewByteBuffer creates a buffer. When data is non-nil the buffer reads from
// it and writes append after its end.
func NewByteBuffer(data []byte) *ByteBuffer {
	return &ByteBuffer{data: data, writerIndex: len(data)}
}

// Reset clears both cursors and the sticky read error. The backing array is
// kept for reuse.
func (b *ByteBuffer) Reset() {
	b.writerIndex = 0
	b.readerIndex = 0
	b.readErr = nil
}

// Err returns the first read failure recorded on this buffer, or nil.
func (b *ByteBuffer) Err() error {
	return b.readErr
}

// SetError records err as the buffer's failure if none is recorded yet.
func (b *ByteBuffer) SetError(err error) {
	if b.readErr == nil {
		b.readErr = err
	}
}

func (b *ByteBuffer) WriterIndex() int { return b.writerIndex }
func (b *ByteBuffer) ReaderIndex() int { return b.readerIndex }

func (b *ByteBuffer) SetWriterIndex(i int) { b.writerIndex = i }
func (b *ByteBuffer) SetReaderIndex(i int) { b.readerIndex = i }

// IncreaseReaderIndex advances the read cursor by n without touching the data.
func (b *ByteBuffer) IncreaseReaderIndex(n int) {
	if !b.checkRead(n) {
		return
	}
	b.readerIndex += n
}

// Remaining returns the number of unread bytes.
func (b *ByteBuffer) Remaining() int {
	return b.writerIndex - b.readerIndex
}

// grow ensures space for n more bytes after writerIndex.
func (b *ByteBuffer) grow(n int) {
	need := b.writerIndex + n
	if need <= cap(b.data) {
		b.data = b.data[:cap(b.data)]
		return
	}
	newCap := 2 * cap(b.data)
	if newCap < need {
		newCap = need
	}
	if newCap < 64 {
		newCap = 64
	}
	newData := make([]byte, newCap)
	copy(newData, b.data[:b.writerIndex])
	b.data = newData
}

// checkRead reports whether n more bytes can be read, recording ErrInvalidData
// when they cannot.
func (b *ByteBuffer) checkRead(n int) bool {
	if b.readErr != nil {
		return false
	}
	if n < 0 || b.readerIndex+n > b.writerIndex {
		b.readErr = invalidDataf("need %d bytes at offset %d, %d available",
			n, b.readerIndex, b.writerIndex-b.readerIndex)
		return false
	}
	return true
}

// GetByteSlice returns a copy of data[start:end]. Serialize hands this to the
// caller, so it must not alias the reusable backing array.
func (b *ByteBuffer) GetByteSlice(start, end int) []byte {
	out := make([]byte, end-start)
	copy(out, b.data[start:end])
	return out
}

// GetData returns the written bytes without copying. Only for internal use
// where the result does not outlive the buffer.
func (b *ByteBuffer) GetData() []byte {
	return b.data[:b.writerIndex]
}

// PutUint8 overwrites a single byte at an absolute offset. The chunked map
// writer uses this to patch a chunk's length byte after the run ends.
func (b *ByteBuffer) PutUint8(offset int, v uint8) {
	b.data[offset] = v
}

// ----------------------------------------------------------------------------
// Fixed-width writes/reads
// ----------------------------------------------------------------------------

func (b *ByteBuffer) WriteBool(v bool) {
	if v {
		b.WriteByte_(1)
	} else {
		b.WriteByte_(0)
	}
}

func (b *ByteBuffer) WriteByte_(v byte) {
	b.grow(1)
	b.data[b.writerIndex] = v
	b.writerIndex++
}

func (b *ByteBuffer) WriteInt8(v int8) {
	b.WriteByte_(byte(v))
}

func (b *ByteBuffer) WriteInt16(v int16) {
	b.grow(2)
	binary.LittleEndian.PutUint16(b.data[b.writerIndex:], uint16(v))
	b.writerIndex += 2
}

func (b *ByteBuffer) WriteInt32(v int32) {
	b.grow(4)
	binary.LittleEndian.PutUint32(b.data[b.writerIndex:], uint32(v))
	b.writerIndex += 4
}

func (b *ByteBuffer) WriteInt64(v int64) {
	b.grow(8)
	binary.LittleEndian.PutUint64(b.data[b.writerIndex:], uint64(v))
	b.writerIndex += 8
}

func (b *ByteBuffer) WriteFloat32(v float32) {
	b.grow(4)
	binary.LittleEndian.PutUint32(b.data[b.writerIndex:], math.Float32bits(v))
	b.writerIndex += 4
}

func (b *ByteBuffer) WriteFloat64(v float64) {
	b.grow(8)
	binary.LittleEndian.PutUint64(b.data[b.writerIndex:], math.Float64bits(v))
	b.writerIndex += 8
}

func (b *ByteBuffer) WriteBinary(v []byte) {
	b.grow(len(v))
	copy(b.data[b.writerIndex:], v)
	b.writerIndex += len(v)
}

func (b *ByteBuffer) ReadBool() bool {
	return b.ReadByte_() != 0
}

func (b *ByteBuffer) ReadByte_() byte {
	if !b.checkRead(1) {
		return 0
	}
	v := b.data[b.readerIndex]
	b.readerIndex++
	return v
}

func (b *ByteBuffer) ReadInt8() int8 {
	return int8(b.ReadByte_())
}

func (b *ByteBuffer) ReadInt16() int16 {
	if !b.checkRead(2) {
		return 0
	}
	v := int16(binary.LittleEndian.Uint16(b.data[b.readerIndex:]))
	b.readerIndex += 2
	return v
}

func (b *ByteBuffer) ReadInt32() int32 {
	if !b.checkRead(4) {
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(b.data[b.readerIndex:]))
	b.readerIndex += 4
	return v
}

func (b *ByteBuffer) ReadInt64() int64 {
	if !b.checkRead(8) {
		return 0
	}
	v := int64(binary.LittleEndian.Uint64(b.data[b.readerIndex:]))
	b.readerIndex += 8
	return v
}

func (b *ByteBuffer) ReadFloat32() float32 {
	if !b.checkRead(4) {
		return 0
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(b.data[b.readerIndex:]))
	b.readerIndex += 4
	return v
}

func (b *ByteBuffer) ReadFloat64() float64 {
	if !b.checkRead(8) {
		return 0
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(b.data[b.readerIndex:]))
	b.readerIndex += 8
	return v
}

// ReadBinary returns n bytes as a view into the buffer, valid until the next
// Reset. Returns nil after a truncation failure.
func (b *ByteBuffer) ReadBinary(n int) []byte {
	if !b.checkRead(n) {
		return nil
	}
	v := b.data[b.readerIndex : b.readerIndex+n]
	b.readerIndex += n
	return v
}

// ----------------------------------------------------------------------------
// Varints. Unsigned values use 7-bit little-endian continuation groups; the
// 64-bit form caps at 9 bytes with all 8 bits of the ninth byte used. Signed
// forms apply zigzag first so small-magnitude negatives stay short.
// ----------------------------------------------------------------------------

// WriteVarUint32 writes v in 1-5 bytes and returns the byte count.
func (b *ByteBuffer) WriteVarUint32(v uint32) int8 {
	count := int8(1)
	for v >= 0x80 {
		b.WriteByte_(byte(v) | 0x80)
		v >>= 7
		count++
	}
	b.WriteByte_(byte(v))
	return count
}

func (b *ByteBuffer) ReadVarUint32() uint32 {
	var result uint32
	var shift uint
	for i := 0; i < 5; i++ {
		bt := b.ReadByte_()
		result |= uint32(bt&0x7F) << shift
		if bt < 0x80 {
			return result
		}
		shift += 7
	}
	b.SetError(invalidDataf("varuint32 longer than 5 bytes at offset %d", b.readerIndex))
	return 0
}

// WriteVarUint64 writes v in 1-9 bytes and returns the byte count. The ninth
// byte, when present, holds bits 56-63 verbatim with no continuation bit.
func (b *ByteBuffer) WriteVarUint64(v uint64) int8 {
	count := int8(1)
	for i := 0; i < 8; i++ {
		if v < 0x80 {
			b.WriteByte_(byte(v))
			return count
		}
		b.WriteByte_(byte(v) | 0x80)
		v >>= 7
		count++
	}
	b.WriteByte_(byte(v))
	return count
}

func (b *ByteBuffer) ReadVarUint64() uint64 {
	var result uint64
	var shift uint
	for i := 0; i < 8; i++ {
		bt := b.ReadByte_()
		result |= uint64(bt&0x7F) << shift
		if bt < 0x80 {
			return result
		}
		shift += 7
	}
	return result | uint64(b.ReadByte_())<<56
}

// WriteVarint32 zigzag-encodes v and writes it as a varuint32, returning the
// byte count.
func (b *ByteBuffer) WriteVarint32(v int32) int8 {
	return b.WriteVarUint32(uint32((v << 1) ^ (v >> 31)))
}

func (b *ByteBuffer) ReadVarint32() int32 {
	u := b.ReadVarUint32()
	return int32(u>>1) ^ -int32(u&1)
}

// WriteVarint64 zigzag-encodes v and writes it as a varuint64, returning the
// byte count.
func (b *ByteBuffer) WriteVarint64(v int64) int8 {
	return b.WriteVarUint64(uint64((v << 1) ^ (v >> 63)))
}

func (b *ByteBuffer) ReadVarint64() int64 {
	u := b.ReadVarUint64()
	return int64(u>>1) ^ -int64(u&1)
}

// WriteVarUint32Small7 is WriteVarUint32 with a fast path for values below
// 0x80, the common case for type ids, ordinals and small counts. The wire
// format is identical.
func (b *ByteBuffer) WriteVarUint32Small7(v uint32) {
	if v < 0x80 {
		b.WriteByte_(byte(v))
		return
	}
	b.WriteVarUint32(v)
}

func (b *ByteBuffer) ReadVarUint32Small7() uint32 {
	if b.checkRead(1) && b.data[b.readerIndex] < 0x80 {
		v := uint32(b.data[b.readerIndex])
		b.readerIndex++
		return v
	}
	if b.readErr != nil {
		return 0
	}
	return b.ReadVarUint32()
}

// WriteVarUint36Small writes values below 1<<36 in at most 5 bytes: four
// 7-bit groups, then all 8 bits of the fifth byte.
func (b *ByteBuffer) WriteVarUint36Small(v uint64) int8 {
	count := int8(1)
	for i := 0; i < 4; i++ {
		if v < 0x80 {
			b.WriteByte_(byte(v))
			return count
		}
		b.WriteByte_(byte(v) | 0x80)
		v >>= 7
		count++
	}
	b.WriteByte_(byte(v))
	return count
}

func (b *ByteBuffer) ReadVarUint36Small() uint64 {
	var result uint64
	var shift uint
	for i := 0; i < 4; i++ {
		bt := b.ReadByte_()
		result |= uint64(bt&0x7F) << shift
		if bt < 0x80 {
			return result
		}
		shift += 7
	}
	return result | uint64(b.ReadByte_())<<28
}

// WriteLength writes a non-negative count as a varuint32.
func (b *ByteBuffer) WriteLength(n int) {
	b.WriteVarUint32(uint32(n))
}

// ReadLength reads a count written by WriteLength.
func (b *ByteBuffer) ReadLength() int {
	v := b.ReadVarUint32()
	if v > MaxInt32 {
		b.SetError(invalidDataf("length %d exceeds int32 range", v))
		return 0
	}
	return int(v)
}

// ----------------------------------------------------------------------------
// io compatibility
// ----------------------------------------------------------------------------

func (b *ByteBuffer) Write(p []byte) (int, error) {
	b.WriteBinary(p)
	return len(p), nil
}

func (b *ByteBuffer) Read(p []byte) (int, error) {
	if b.Remaining() == 0 {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.readerIndex:b.writerIndex])
	b.readerIndex += n
	return n, nil
}

func (b *ByteBuffer) WriteByte(v byte) error {
	b.WriteByte_(v)
	return nil
}

func (b *ByteBuffer) ReadByte() (byte, error) {
	if !b.checkRead(1) {
		return 0, b.readErr
	}
	v := b.data[b.readerIndex]
	b.readerIndex++
	return v, nil
}
