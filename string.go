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
	"reflect"
	"unicode/utf16"
	"unsafe"
)

// String encoding selectors, carried in the low 2 bits of the header.
const (
	encodingLatin1  = iota // one byte per code point, code points <= 0xFF
	encodingUTF16LE        // two bytes per code unit, little endian
	encodingUTF8           // standard UTF-8
)

// writeString writes the string header (byte count shifted left by 2, ored
// with the encoding selector) followed by the encoded bytes. Strings whose
// code points all fit in one byte use Latin1; everything else stays UTF-8.
func writeString(buf *ByteBuffer, value string) {
	if isASCII(value) {
		// ASCII bytes are valid Latin1 as-is, no conversion pass needed.
		buf.WriteVarUint36Small(uint64(len(value))<<2 | encodingLatin1)
		buf.WriteBinary(unsafeStringBytes(value))
		return
	}
	if isLatin1(value) {
		data := make([]byte, 0, len(value))
		for _, r := range value {
			data = append(data, byte(r))
		}
		buf.WriteVarUint36Small(uint64(len(data))<<2 | encodingLatin1)
		buf.WriteBinary(data)
		return
	}
	buf.WriteVarUint36Small(uint64(len(value))<<2 | encodingUTF8)
	buf.WriteBinary(unsafeStringBytes(value))
}

// readString parses the header and decodes any of the three encodings a
// writer may have chosen.
func readString(buf *ByteBuffer) (string, error) {
	header := buf.ReadVarUint36Small()
	if err := buf.Err(); err != nil {
		return "", err
	}
	size := int(header >> 2)
	switch header & 0b11 {
	case encodingLatin1:
		return readLatin1(buf, size), buf.Err()
	case encodingUTF16LE:
		if size%2 != 0 {
			return "", invalidDataf("utf16 string has odd byte count %d", size)
		}
		return readUTF16LE(buf, size), buf.Err()
	case encodingUTF8:
		return string(buf.ReadBinary(size)), buf.Err()
	default:
		return "", invalidDataf("string encoding %d", header&0b11)
	}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

// isLatin1 reports whether every code point fits in a single byte.
func isLatin1(s string) bool {
	for _, r := range s {
		if r > 0xFF {
			return false
		}
	}
	return true
}

func readLatin1(buf *ByteBuffer, size int) string {
	data := buf.ReadBinary(size)
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

func readUTF16LE(buf *ByteBuffer, byteCount int) string {
	data := buf.ReadBinary(byteCount)
	u16s := make([]uint16, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		u16s[i/2] = uint16(data[i]) | uint16(data[i+1])<<8
	}
	return string(utf16.Decode(u16s))
}

func unsafeStringBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// ============================================================================
// String Serializer - implements unified Serializer interface
// ============================================================================

// stringSerializer handles string type
type stringSerializer struct{}

func (s stringSerializer) TypeId() TypeId       { return STRING }
func (s stringSerializer) NeedToWriteRef() bool { return false }

func (s stringSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s stringSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	writeString(ctx.buffer, value.String())
	return nil
}

func (s stringSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s stringSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	str, err := readString(ctx.buffer)
	if err != nil {
		return err
	}
	value.SetString(str)
	return nil
}

func (s stringSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}
