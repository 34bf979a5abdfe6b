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
	"math"
	"reflect"
	"unsafe"
)

var isLittleEndian = nativeEndian == binary.LittleEndian

// Primitive slices use the typed array format: total byte size as a
// varuint32, then the elements as raw little-endian data. On little-endian
// hosts the element memory is copied wholesale.

// setSliceResult stores a freshly built slice into value, converting when the
// target is a named slice type, and registers it for reference tracking.
func setSliceResult(ctx *ReadContext, type_ reflect.Type, value reflect.Value, result reflect.Value) {
	if result.Type() != type_ {
		result = result.Convert(type_)
	}
	value.Set(result)
	ctx.refResolver.Reference(value)
}

// byteSliceSerializer handles []byte as the BINARY type.
type byteSliceSerializer struct{}

func (s byteSliceSerializer) TypeId() TypeId       { return BINARY }
func (s byteSliceSerializer) NeedToWriteRef() bool { return true }

func (s byteSliceSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s byteSliceSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	data := value.Bytes()
	ctx.buffer.WriteLength(len(data))
	ctx.buffer.WriteBinary(data)
	return nil
}

func (s byteSliceSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s byteSliceSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	length := ctx.buffer.ReadLength()
	result := make([]byte, length)
	copy(result, ctx.buffer.ReadBinary(length))
	setSliceResult(ctx, type_, value, reflect.ValueOf(result))
	return ctx.Err()
}

func (s byteSliceSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// boolSliceSerializer handles []bool.
type boolSliceSerializer struct{}

func (s boolSliceSerializer) TypeId() TypeId       { return BOOL_ARRAY }
func (s boolSliceSerializer) NeedToWriteRef() bool { return true }

func (s boolSliceSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s boolSliceSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	v := value.Convert(boolSliceType).Interface().([]bool)
	ctx.buffer.WriteLength(len(v))
	if len(v) == 0 {
		return nil
	}
	// Go bools are single bytes, the memory can be copied directly.
	ctx.buffer.WriteBinary(unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)))
	return nil
}

func (s boolSliceSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s boolSliceSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	length := ctx.buffer.ReadLength()
	result := make([]bool, length)
	if length > 0 {
		raw := ctx.buffer.ReadBinary(length)
		if raw != nil {
			copy(unsafe.Slice((*byte)(unsafe.Pointer(&result[0])), length), raw)
		}
	}
	setSliceResult(ctx, type_, value, reflect.ValueOf(result))
	return ctx.Err()
}

func (s boolSliceSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// int8SliceSerializer handles []int8.
type int8SliceSerializer struct{}

func (s int8SliceSerializer) TypeId() TypeId       { return INT8_ARRAY }
func (s int8SliceSerializer) NeedToWriteRef() bool { return true }

func (s int8SliceSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s int8SliceSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	v := value.Convert(int8SliceType).Interface().([]int8)
	ctx.buffer.WriteLength(len(v))
	if len(v) == 0 {
		return nil
	}
	ctx.buffer.WriteBinary(unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)))
	return nil
}

func (s int8SliceSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s int8SliceSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	length := ctx.buffer.ReadLength()
	result := make([]int8, length)
	if length > 0 {
		raw := ctx.buffer.ReadBinary(length)
		if raw != nil {
			copy(unsafe.Slice((*byte)(unsafe.Pointer(&result[0])), length), raw)
		}
	}
	setSliceResult(ctx, type_, value, reflect.ValueOf(result))
	return ctx.Err()
}

func (s int8SliceSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// int16SliceSerializer handles []int16.
type int16SliceSerializer struct{}

func (s int16SliceSerializer) TypeId() TypeId       { return INT16_ARRAY }
func (s int16SliceSerializer) NeedToWriteRef() bool { return true }

func (s int16SliceSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s int16SliceSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	v := value.Convert(int16SliceType).Interface().([]int16)
	size := len(v) * 2
	ctx.buffer.WriteLength(size)
	if len(v) == 0 {
		return nil
	}
	if isLittleEndian {
		ctx.buffer.WriteBinary(unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), size))
	} else {
		for _, elem := range v {
			ctx.buffer.WriteInt16(elem)
		}
	}
	return nil
}

func (s int16SliceSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s int16SliceSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	size := ctx.buffer.ReadLength()
	if size%2 != 0 {
		return invalidDataf("int16 array size %d is not a multiple of 2", size)
	}
	length := size / 2
	result := make([]int16, length)
	if length > 0 {
		if isLittleEndian {
			raw := ctx.buffer.ReadBinary(size)
			if raw != nil {
				copy(unsafe.Slice((*byte)(unsafe.Pointer(&result[0])), size), raw)
			}
		} else {
			for i := 0; i < length; i++ {
				result[i] = ctx.buffer.ReadInt16()
			}
		}
	}
	setSliceResult(ctx, type_, value, reflect.ValueOf(result))
	return ctx.Err()
}

func (s int16SliceSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// int32SliceSerializer handles []int32.
type int32SliceSerializer struct{}

func (s int32SliceSerializer) TypeId() TypeId       { return INT32_ARRAY }
func (s int32SliceSerializer) NeedToWriteRef() bool { return true }

func (s int32SliceSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s int32SliceSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	v := value.Convert(int32SliceType).Interface().([]int32)
	size := len(v) * 4
	ctx.buffer.WriteLength(size)
	if len(v) == 0 {
		return nil
	}
	if isLittleEndian {
		ctx.buffer.WriteBinary(unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), size))
	} else {
		for _, elem := range v {
			ctx.buffer.WriteInt32(elem)
		}
	}
	return nil
}

func (s int32SliceSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s int32SliceSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	size := ctx.buffer.ReadLength()
	if size%4 != 0 {
		return invalidDataf("int32 array size %d is not a multiple of 4", size)
	}
	length := size / 4
	result := make([]int32, length)
	if length > 0 {
		if isLittleEndian {
			raw := ctx.buffer.ReadBinary(size)
			if raw != nil {
				copy(unsafe.Slice((*byte)(unsafe.Pointer(&result[0])), size), raw)
			}
		} else {
			for i := 0; i < length; i++ {
				result[i] = ctx.buffer.ReadInt32()
			}
		}
	}
	setSliceResult(ctx, type_, value, reflect.ValueOf(result))
	return ctx.Err()
}

func (s int32SliceSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// int64SliceSerializer handles []int64.
type int64SliceSerializer struct{}

func (s int64SliceSerializer) TypeId() TypeId       { return INT64_ARRAY }
func (s int64SliceSerializer) NeedToWriteRef() bool { return true }

func (s int64SliceSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s int64SliceSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	v := value.Convert(int64SliceType).Interface().([]int64)
	size := len(v) * 8
	ctx.buffer.WriteLength(size)
	if len(v) == 0 {
		return nil
	}
	if isLittleEndian {
		ctx.buffer.WriteBinary(unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), size))
	} else {
		for _, elem := range v {
			ctx.buffer.WriteInt64(elem)
		}
	}
	return nil
}

func (s int64SliceSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s int64SliceSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	size := ctx.buffer.ReadLength()
	if size%8 != 0 {
		return invalidDataf("int64 array size %d is not a multiple of 8", size)
	}
	length := size / 8
	result := make([]int64, length)
	if length > 0 {
		if isLittleEndian {
			raw := ctx.buffer.ReadBinary(size)
			if raw != nil {
				copy(unsafe.Slice((*byte)(unsafe.Pointer(&result[0])), size), raw)
			}
		} else {
			for i := 0; i < length; i++ {
				result[i] = ctx.buffer.ReadInt64()
			}
		}
	}
	setSliceResult(ctx, type_, value, reflect.ValueOf(result))
	return ctx.Err()
}

func (s int64SliceSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// intSliceSerializer handles []int. Elements always travel as 8 bytes so the
// encoding does not depend on the host word size.
type intSliceSerializer struct{}

func (s intSliceSerializer) TypeId() TypeId       { return INT64_ARRAY }
func (s intSliceSerializer) NeedToWriteRef() bool { return true }

func (s intSliceSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s intSliceSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	v := value.Convert(intSliceType).Interface().([]int)
	size := len(v) * 8
	ctx.buffer.WriteLength(size)
	for _, elem := range v {
		ctx.buffer.WriteInt64(int64(elem))
	}
	return nil
}

func (s intSliceSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s intSliceSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	size := ctx.buffer.ReadLength()
	if size%8 != 0 {
		return invalidDataf("int64 array size %d is not a multiple of 8", size)
	}
	length := size / 8
	result := make([]int, length)
	for i := 0; i < length; i++ {
		v := ctx.buffer.ReadInt64()
		if v > math.MaxInt || v < math.MinInt {
			return invalidDataf("value %d overflows int", v)
		}
		result[i] = int(v)
	}
	setSliceResult(ctx, type_, value, reflect.ValueOf(result))
	return ctx.Err()
}

func (s intSliceSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// float32SliceSerializer handles []float32.
type float32SliceSerializer struct{}

func (s float32SliceSerializer) TypeId() TypeId       { return FLOAT32_ARRAY }
func (s float32SliceSerializer) NeedToWriteRef() bool { return true }

func (s float32SliceSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s float32SliceSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	v := value.Convert(float32SliceType).Interface().([]float32)
	size := len(v) * 4
	ctx.buffer.WriteLength(size)
	if len(v) == 0 {
		return nil
	}
	if isLittleEndian {
		ctx.buffer.WriteBinary(unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), size))
	} else {
		for _, elem := range v {
			ctx.buffer.WriteFloat32(elem)
		}
	}
	return nil
}

func (s float32SliceSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s float32SliceSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	size := ctx.buffer.ReadLength()
	if size%4 != 0 {
		return invalidDataf("float32 array size %d is not a multiple of 4", size)
	}
	length := size / 4
	result := make([]float32, length)
	if length > 0 {
		if isLittleEndian {
			raw := ctx.buffer.ReadBinary(size)
			if raw != nil {
				copy(unsafe.Slice((*byte)(unsafe.Pointer(&result[0])), size), raw)
			}
		} else {
			for i := 0; i < length; i++ {
				result[i] = ctx.buffer.ReadFloat32()
			}
		}
	}
	setSliceResult(ctx, type_, value, reflect.ValueOf(result))
	return ctx.Err()
}

func (s float32SliceSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// float64SliceSerializer handles []float64.
type float64SliceSerializer struct{}

func (s float64SliceSerializer) TypeId() TypeId       { return FLOAT64_ARRAY }
func (s float64SliceSerializer) NeedToWriteRef() bool { return true }

func (s float64SliceSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s float64SliceSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	v := value.Convert(float64SliceType).Interface().([]float64)
	size := len(v) * 8
	ctx.buffer.WriteLength(size)
	if len(v) == 0 {
		return nil
	}
	if isLittleEndian {
		ctx.buffer.WriteBinary(unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), size))
	} else {
		for _, elem := range v {
			ctx.buffer.WriteFloat64(elem)
		}
	}
	return nil
}

func (s float64SliceSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s float64SliceSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	size := ctx.buffer.ReadLength()
	if size%8 != 0 {
		return invalidDataf("float64 array size %d is not a multiple of 8", size)
	}
	length := size / 8
	result := make([]float64, length)
	if length > 0 {
		if isLittleEndian {
			raw := ctx.buffer.ReadBinary(size)
			if raw != nil {
				copy(unsafe.Slice((*byte)(unsafe.Pointer(&result[0])), size), raw)
			}
		} else {
			for i := 0; i < length; i++ {
				result[i] = ctx.buffer.ReadFloat64()
			}
		}
	}
	setSliceResult(ctx, type_, value, reflect.ValueOf(result))
	return ctx.Err()
}

func (s float64SliceSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// stringSliceSerializer handles []string with the list format. Strings are
// never reference tracked, so elements are written back to back after a
// same-type flag and the shared element type.
type stringSliceSerializer struct{}

func (s stringSliceSerializer) TypeId() TypeId       { return LIST }
func (s stringSliceSerializer) NeedToWriteRef() bool { return true }

func (s stringSliceSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s stringSliceSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	v := value.Convert(stringSliceType).Interface().([]string)
	ctx.buffer.WriteVarUint32(uint32(len(v)))
	if len(v) == 0 {
		return nil
	}
	ctx.buffer.WriteInt8(CollectionIsSameType)
	ctx.buffer.WriteVarUint32Small7(uint32(STRING))
	for _, str := range v {
		writeString(ctx.buffer, str)
	}
	return nil
}

func (s stringSliceSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s stringSliceSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	length := int(ctx.buffer.ReadVarUint32())
	if length == 0 {
		setSliceResult(ctx, type_, value, reflect.ValueOf(make([]string, 0)))
		return ctx.Err()
	}
	collectFlag := ctx.buffer.ReadInt8()
	if collectFlag&CollectionIsSameType != 0 && collectFlag&CollectionIsDeclElementType == 0 {
		ctx.buffer.ReadVarUint32Small7()
	}
	// Peers may have written per element null or ref flags.
	perElemFlag := collectFlag&(CollectionTrackingRef|CollectionHasNull) != 0
	result := make([]string, length)
	for i := 0; i < length; i++ {
		if perElemFlag {
			switch flag := ctx.buffer.ReadInt8(); flag {
			case NullFlag:
				continue
			case RefFlag:
				ctx.buffer.ReadVarUint32()
				continue
			}
		}
		str, err := readString(ctx.buffer)
		if err != nil {
			return err
		}
		result[i] = str
	}
	setSliceResult(ctx, type_, value, reflect.ValueOf(result))
	return ctx.Err()
}

func (s stringSliceSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}
