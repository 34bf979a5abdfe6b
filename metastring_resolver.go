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
	"github.com/spaolacci/murmur3"

	"github.com/apache/fory-go/meta"
)

// MetaStringBytes is an interned encoded meta-string. Interning gives each
// distinct namespace/type name one allocation and one hash, so wire-level
// lookups can key on Hashcode instead of decoding.
type MetaStringBytes struct {
	Data     []byte
	Encoding meta.Encoding
	Hashcode int64
}

// ComputeMetaStringHash hashes encoded meta-string bytes. The low byte of
// the hash carries the encoding so equal bytes under different encodings
// never collide.
func ComputeMetaStringHash(data []byte, encoding meta.Encoding) int64 {
	if len(data) == 0 {
		return int64(encoding)
	}
	h1, _ := murmur3.Sum128WithSeed(data, metaStringHashSeed)
	hash := int64(h1)
	if hash == 0 {
		hash = 256
	}
	hash &= -0x100
	hash |= int64(encoding)
	return hash
}

const metaStringHashSeed = 47

type metaStrKey struct {
	input    string
	encoding meta.Encoding
}

// MetaStringResolver writes and reads meta-string bytes with per-pass
// dynamic ids: the first occurrence of a name in a serialization pass
// carries size, encoding and bytes, later occurrences carry only a
// back-reference id.
type MetaStringResolver struct {
	metaStrToBytes     map[metaStrKey]*MetaStringBytes
	hashToBytes        map[int64]*MetaStringBytes
	dynamicWriteIds    map[*MetaStringBytes]uint16
	dynamicReadStrings []*MetaStringBytes
}

func NewMetaStringResolver() *MetaStringResolver {
	return &MetaStringResolver{
		metaStrToBytes:  make(map[metaStrKey]*MetaStringBytes),
		hashToBytes:     make(map[int64]*MetaStringBytes),
		dynamicWriteIds: make(map[*MetaStringBytes]uint16),
	}
}

// GetMetaStrBytes interns the encoded form of ms.
func (r *MetaStringResolver) GetMetaStrBytes(ms *meta.MetaString) *MetaStringBytes {
	key := metaStrKey{input: ms.GetInputString(), encoding: ms.GetEncoding()}
	if cached, ok := r.metaStrToBytes[key]; ok {
		return cached
	}
	msb := &MetaStringBytes{
		Data:     ms.GetEncodedBytes(),
		Encoding: ms.GetEncoding(),
		Hashcode: ComputeMetaStringHash(ms.GetEncodedBytes(), ms.GetEncoding()),
	}
	r.metaStrToBytes[key] = msb
	r.hashToBytes[msb.Hashcode] = msb
	return msb
}

func (r *MetaStringResolver) WriteMetaStringBytes(buffer *ByteBuffer, msb *MetaStringBytes) {
	if id, ok := r.dynamicWriteIds[msb]; ok {
		buffer.WriteVarUint32((uint32(id)+1)<<1 | 1)
		return
	}
	r.dynamicWriteIds[msb] = uint16(len(r.dynamicWriteIds))
	buffer.WriteVarUint32(uint32(len(msb.Data)) << 1)
	buffer.WriteByte_(byte(msb.Encoding))
	buffer.WriteBinary(msb.Data)
}

func (r *MetaStringResolver) ReadMetaStringBytes(buffer *ByteBuffer) (*MetaStringBytes, error) {
	header := buffer.ReadVarUint32()
	if header&0b1 != 0 {
		id := int(header>>1) - 1
		if id < 0 || id >= len(r.dynamicReadStrings) {
			return nil, invalidDataf("meta string id %d out of range", id)
		}
		return r.dynamicReadStrings[id], nil
	}
	size := int(header >> 1)
	encoding := meta.Encoding(buffer.ReadByte_())
	view := buffer.ReadBinary(size)
	if err := buffer.Err(); err != nil {
		return nil, err
	}
	hash := ComputeMetaStringHash(view, encoding)
	msb, ok := r.hashToBytes[hash]
	if !ok {
		data := make([]byte, len(view))
		copy(data, view)
		msb = &MetaStringBytes{Data: data, Encoding: encoding, Hashcode: hash}
		r.hashToBytes[hash] = msb
	}
	r.dynamicReadStrings = append(r.dynamicReadStrings, msb)
	return msb, nil
}

func (r *MetaStringResolver) ResetWrite() {
	if len(r.dynamicWriteIds) > 0 {
		r.dynamicWriteIds = make(map[*MetaStringBytes]uint16)
	}
}

func (r *MetaStringResolver) ResetRead() {
	r.dynamicReadStrings = r.dynamicReadStrings[:0]
}
