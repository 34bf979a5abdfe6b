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
)

// Map entries are written in chunks: a header byte with the key flags in the
// low nibble and the value flags in the high nibble, a run length byte, the
// shared key and value type descriptors, then that many pairs. A run breaks
// when the key or value type changes or the length hits 255. An entry with a
// null key or value becomes its own chunk without a run length byte.
const (
	mapChunkTrackingRef = 0b001
	mapChunkHasNull     = 0b010
	mapChunkDeclType    = 0b100

	maxMapChunkLength = 255
)

// mapSerializer handles all map types. keyInfo and valueInfo pin the declared
// key and value types when known at build time; otherwise they resolve lazily
// from the declared map type, and interface keyed or valued maps describe
// each run's types on the wire.
type mapSerializer struct {
	declaredType reflect.Type
	keyInfo      TypeInfo
	valueInfo    TypeInfo
}

func (s mapSerializer) TypeId() TypeId       { return MAP }
func (s mapSerializer) NeedToWriteRef() bool { return true }

func (s mapSerializer) declaredInfos(resolver *TypeResolver) (*TypeInfo, *TypeInfo) {
	var keyInfo, valueInfo *TypeInfo
	if s.keyInfo.Serializer != nil {
		info := s.keyInfo
		keyInfo = &info
	}
	if s.valueInfo.Serializer != nil {
		info := s.valueInfo
		valueInfo = &info
	}
	if s.declaredType != nil && s.declaredType.Kind() == reflect.Map {
		if keyInfo == nil && s.declaredType.Key().Kind() != reflect.Interface {
			if info, err := resolver.getTypeInfoByType(s.declaredType.Key(), true); err == nil {
				keyInfo = &info
			}
		}
		if valueInfo == nil && s.declaredType.Elem().Kind() != reflect.Interface {
			if info, err := resolver.getTypeInfoByType(s.declaredType.Elem(), true); err == nil {
				valueInfo = &info
			}
		}
	}
	return keyInfo, valueInfo
}

func (s mapSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s mapSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	if err := ctx.enterDepth(); err != nil {
		return err
	}
	defer ctx.leaveDepth()
	length := value.Len()
	ctx.buffer.WriteVarUint32(uint32(length))
	if length == 0 {
		return nil
	}
	declKey, declValue := s.declaredInfos(ctx.typeResolver)

	var runKeyType, runValueType reflect.Type
	runCount := 0
	lenOffset := 0
	flush := func() {
		if runCount > 0 {
			ctx.buffer.PutUint8(lenOffset, uint8(runCount))
			runCount = 0
		}
	}

	iter := value.MapRange()
	for iter.Next() {
		key := UnwrapReflectValue(iter.Key())
		val := UnwrapReflectValue(iter.Value())
		keyNull, valueNull := isNull(key), isNull(val)
		if keyNull || valueNull {
			flush()
			if err := s.writeNullEntry(ctx, declKey, declValue, key, val, keyNull, valueNull); err != nil {
				return err
			}
			continue
		}
		keyInfo, err := sideInfo(ctx.typeResolver, declKey, key)
		if err != nil {
			return err
		}
		valueInfo, err := sideInfo(ctx.typeResolver, declValue, val)
		if err != nil {
			return err
		}
		if runCount > 0 && (key.Type() != runKeyType || val.Type() != runValueType) {
			flush()
		}
		if runCount == 0 {
			header := chunkNibble(ctx, keyInfo, declKey != nil) |
				chunkNibble(ctx, valueInfo, declValue != nil)<<4
			ctx.buffer.WriteByte_(header)
			lenOffset = ctx.buffer.WriterIndex()
			ctx.buffer.WriteByte_(0xFF)
			if declKey == nil {
				if err := ctx.typeResolver.writeTypeInfo(ctx.buffer, keyInfo, ctx.metaContext); err != nil {
					return err
				}
			}
			if declValue == nil {
				if err := ctx.typeResolver.writeTypeInfo(ctx.buffer, valueInfo, ctx.metaContext); err != nil {
					return err
				}
			}
			runKeyType, runValueType = key.Type(), val.Type()
		}
		if err := writeChunkElement(ctx, keyInfo, key); err != nil {
			return err
		}
		if err := writeChunkElement(ctx, valueInfo, val); err != nil {
			return err
		}
		runCount++
		if runCount == maxMapChunkLength {
			flush()
		}
	}
	flush()
	return nil
}

// writeNullEntry writes a single entry chunk for an entry with a null key or
// value. The null side contributes only its flag bit; the other side writes
// its type and data as in a normal run.
func (s mapSerializer) writeNullEntry(ctx *WriteContext, declKey, declValue *TypeInfo, key, val reflect.Value, keyNull, valueNull bool) error {
	var keyInfo, valueInfo TypeInfo
	var err error
	keyNibble, valueNibble := byte(mapChunkHasNull), byte(mapChunkHasNull)
	if !keyNull {
		if keyInfo, err = sideInfo(ctx.typeResolver, declKey, key); err != nil {
			return err
		}
		keyNibble = chunkNibble(ctx, keyInfo, declKey != nil)
	}
	if !valueNull {
		if valueInfo, err = sideInfo(ctx.typeResolver, declValue, val); err != nil {
			return err
		}
		valueNibble = chunkNibble(ctx, valueInfo, declValue != nil)
	}
	ctx.buffer.WriteByte_(keyNibble | valueNibble<<4)
	if !keyNull {
		if declKey == nil {
			if err := ctx.typeResolver.writeTypeInfo(ctx.buffer, keyInfo, ctx.metaContext); err != nil {
				return err
			}
		}
		if err := writeChunkElement(ctx, keyInfo, key); err != nil {
			return err
		}
	}
	if !valueNull {
		if declValue == nil {
			if err := ctx.typeResolver.writeTypeInfo(ctx.buffer, valueInfo, ctx.metaContext); err != nil {
				return err
			}
		}
		if err := writeChunkElement(ctx, valueInfo, val); err != nil {
			return err
		}
	}
	return nil
}

func (s mapSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s mapSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	if err := ctx.enterDepth(); err != nil {
		return err
	}
	defer ctx.leaveDepth()
	length := int(ctx.buffer.ReadVarUint32())
	if err := ctx.buffer.Err(); err != nil {
		return err
	}
	if type_.Kind() != reflect.Map {
		return invalidDataf("cannot read map into %v", type_)
	}
	if value.IsNil() {
		value.Set(reflect.MakeMapWithSize(type_, length))
	}
	ctx.refResolver.Reference(value)
	declKey, declValue := s.declaredInfos(ctx.typeResolver)

	remaining := length
	for remaining > 0 {
		header := ctx.buffer.ReadByte_()
		if err := ctx.buffer.Err(); err != nil {
			return err
		}
		keyNibble, valueNibble := header&0x0F, header>>4
		keyNull := keyNibble&mapChunkHasNull != 0
		valueNull := valueNibble&mapChunkHasNull != 0
		if keyNull || valueNull {
			key, err := readNullableSide(ctx, keyNibble, declKey, keyNull)
			if err != nil {
				return err
			}
			val, err := readNullableSide(ctx, valueNibble, declValue, valueNull)
			if err != nil {
				return err
			}
			if err := mapInsert(value, type_, key, val); err != nil {
				return err
			}
			remaining--
			continue
		}
		runLength := int(ctx.buffer.ReadByte_())
		if err := ctx.buffer.Err(); err != nil {
			return err
		}
		if runLength == 0 || runLength > remaining {
			return invalidDataf("map chunk length %d with %d entries remaining", runLength, remaining)
		}
		keyInfo, err := readSideInfo(ctx, keyNibble, declKey)
		if err != nil {
			return err
		}
		valueInfo, err := readSideInfo(ctx, valueNibble, declValue)
		if err != nil {
			return err
		}
		keyFlag := chunkReadFlag(keyNibble)
		valueFlag := chunkReadFlag(valueNibble)
		for j := 0; j < runLength; j++ {
			key, err := readCollectionElement(ctx, keyFlag, keyInfo)
			if err != nil {
				return err
			}
			val, err := readCollectionElement(ctx, valueFlag, valueInfo)
			if err != nil {
				return err
			}
			if err := mapInsert(value, type_, key, val); err != nil {
				return err
			}
		}
		remaining -= runLength
	}
	return ctx.Err()
}

func (s mapSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// sideInfo resolves the element info for one side of a map entry, preferring
// the declared info when present.
func sideInfo(resolver *TypeResolver, decl *TypeInfo, e reflect.Value) (TypeInfo, error) {
	if decl != nil {
		return *decl, nil
	}
	return resolver.getTypeInfo(e, true)
}

// chunkNibble builds the flag nibble for one side of a chunk header.
func chunkNibble(ctx *WriteContext, info TypeInfo, declared bool) byte {
	var nibble byte
	if declared {
		nibble |= mapChunkDeclType
	}
	if ctx.trackRef && (info.Serializer == nil || info.Serializer.NeedToWriteRef()) {
		nibble |= mapChunkTrackingRef
	}
	return nibble
}

// chunkReadFlag converts a chunk header nibble into a collection flag so run
// elements share the collection element reader.
func chunkReadFlag(nibble byte) int8 {
	flag := int8(CollectionIsSameType)
	if nibble&mapChunkTrackingRef != 0 {
		flag |= CollectionTrackingRef
	}
	return flag
}

// readSideInfo consumes the type descriptor for one side of a run, or uses
// the reader's declared info when the writer marked the side declared.
func readSideInfo(ctx *ReadContext, nibble byte, decl *TypeInfo) (TypeInfo, error) {
	if nibble&mapChunkDeclType != 0 {
		if decl == nil {
			return TypeInfo{}, invalidDataf("map chunk uses a declared type the reader does not know")
		}
		return *decl, nil
	}
	return ctx.typeResolver.readTypeInfo(ctx.buffer, ctx.metaContext)
}

// readNullableSide reads one side of a null carrying entry chunk.
func readNullableSide(ctx *ReadContext, nibble byte, decl *TypeInfo, null bool) (reflect.Value, error) {
	if null {
		return reflect.Value{}, nil
	}
	info, err := readSideInfo(ctx, nibble, decl)
	if err != nil {
		return reflect.Value{}, err
	}
	return readCollectionElement(ctx, chunkReadFlag(nibble), info)
}

// writeChunkElement writes one key or value. Tracked sides carry per element
// ref flags; untracked sides write raw data.
func writeChunkElement(ctx *WriteContext, info TypeInfo, e reflect.Value) error {
	if ctx.trackRef && (info.Serializer == nil || info.Serializer.NeedToWriteRef()) {
		return info.Serializer.Write(ctx, true, false, e)
	}
	return info.Serializer.WriteData(ctx, e)
}

// mapInsert adapts a decoded key and value to the map's declared types and
// stores the entry. Invalid values become the zero value, which for interface
// and pointer types is nil.
func mapInsert(value reflect.Value, type_ reflect.Type, key, val reflect.Value) error {
	keySlot := reflect.New(type_.Key()).Elem()
	if key.IsValid() {
		if err := assignValue(keySlot, key); err != nil {
			return err
		}
	}
	valueSlot := reflect.New(type_.Elem()).Elem()
	if val.IsValid() {
		if err := assignValue(valueSlot, val); err != nil {
			return err
		}
	}
	value.SetMapIndex(keySlot, valueSlot)
	return nil
}
