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
	"reflect"
)

// ============================================================================
// Primitive Serializers - implement unified Serializer interface
// ============================================================================

// boolSerializer handles bool type
type boolSerializer struct{}

func (s boolSerializer) TypeId() TypeId       { return BOOL }
func (s boolSerializer) NeedToWriteRef() bool { return false }

func (s boolSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s boolSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	ctx.WriteBool(value.Bool())
	return nil
}

func (s boolSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s boolSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	value.SetBool(ctx.ReadBool())
	return ctx.Err()
}

func (s boolSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// int8Serializer handles int8 type
type int8Serializer struct{}

func (s int8Serializer) TypeId() TypeId       { return INT8 }
func (s int8Serializer) NeedToWriteRef() bool { return false }

func (s int8Serializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s int8Serializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	ctx.WriteInt8(int8(value.Int()))
	return nil
}

func (s int8Serializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s int8Serializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	value.SetInt(int64(ctx.ReadInt8()))
	return ctx.Err()
}

func (s int8Serializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// int16Serializer handles int16 type
type int16Serializer struct{}

func (s int16Serializer) TypeId() TypeId       { return INT16 }
func (s int16Serializer) NeedToWriteRef() bool { return false }

func (s int16Serializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s int16Serializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	ctx.WriteInt16(int16(value.Int()))
	return nil
}

func (s int16Serializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s int16Serializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	value.SetInt(int64(ctx.ReadInt16()))
	return ctx.Err()
}

func (s int16Serializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// int32Serializer handles int32 type, written zigzag compressed
type int32Serializer struct{}

func (s int32Serializer) TypeId() TypeId       { return VAR_INT32 }
func (s int32Serializer) NeedToWriteRef() bool { return false }

func (s int32Serializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s int32Serializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	ctx.WriteVarInt32(int32(value.Int()))
	return nil
}

func (s int32Serializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s int32Serializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	value.SetInt(int64(ctx.ReadVarInt32()))
	return ctx.Err()
}

func (s int32Serializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// int64Serializer handles int64 type, written zigzag compressed
type int64Serializer struct{}

func (s int64Serializer) TypeId() TypeId       { return VAR_INT64 }
func (s int64Serializer) NeedToWriteRef() bool { return false }

func (s int64Serializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s int64Serializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	ctx.WriteVarInt64(value.Int())
	return nil
}

func (s int64Serializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s int64Serializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	value.SetInt(ctx.ReadVarInt64())
	return ctx.Err()
}

func (s int64Serializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// intSerializer handles int type, written as int64 on the wire
type intSerializer struct{}

func (s intSerializer) TypeId() TypeId       { return VAR_INT64 }
func (s intSerializer) NeedToWriteRef() bool { return false }

func (s intSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s intSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	ctx.WriteVarInt64(value.Int())
	return nil
}

func (s intSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s intSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	v := ctx.ReadVarInt64()
	if v > math.MaxInt || v < math.MinInt {
		return invalidDataf("int64 %d exceeds int range", v)
	}
	value.SetInt(v)
	return ctx.Err()
}

func (s intSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// uint8Serializer handles byte/uint8 type
type uint8Serializer struct{}

func (s uint8Serializer) TypeId() TypeId       { return UINT8 }
func (s uint8Serializer) NeedToWriteRef() bool { return false }

func (s uint8Serializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s uint8Serializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	ctx.WriteByte(byte(value.Uint()))
	return nil
}

func (s uint8Serializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s uint8Serializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	value.SetUint(uint64(ctx.ReadByte()))
	return ctx.Err()
}

func (s uint8Serializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// uint16Serializer handles uint16 type
type uint16Serializer struct{}

func (s uint16Serializer) TypeId() TypeId       { return UINT16 }
func (s uint16Serializer) NeedToWriteRef() bool { return false }

func (s uint16Serializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s uint16Serializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	ctx.WriteInt16(int16(value.Uint()))
	return nil
}

func (s uint16Serializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s uint16Serializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	value.SetUint(uint64(uint16(ctx.ReadInt16())))
	return ctx.Err()
}

func (s uint16Serializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// uint32Serializer handles uint32 type, written as an unsigned varint
type uint32Serializer struct{}

func (s uint32Serializer) TypeId() TypeId       { return UINT32 }
func (s uint32Serializer) NeedToWriteRef() bool { return false }

func (s uint32Serializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s uint32Serializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	ctx.WriteVarUint32(uint32(value.Uint()))
	return nil
}

func (s uint32Serializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s uint32Serializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	value.SetUint(uint64(ctx.ReadVarUint32()))
	return ctx.Err()
}

func (s uint32Serializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// uint64Serializer handles uint64 type, written as an unsigned varint
type uint64Serializer struct{}

func (s uint64Serializer) TypeId() TypeId       { return UINT64 }
func (s uint64Serializer) NeedToWriteRef() bool { return false }

func (s uint64Serializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s uint64Serializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	ctx.WriteVarUint64(value.Uint())
	return nil
}

func (s uint64Serializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s uint64Serializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	value.SetUint(ctx.ReadVarUint64())
	return ctx.Err()
}

func (s uint64Serializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// uintSerializer handles uint type, written as uint64 on the wire
type uintSerializer struct{}

func (s uintSerializer) TypeId() TypeId       { return UINT64 }
func (s uintSerializer) NeedToWriteRef() bool { return false }

func (s uintSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s uintSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	ctx.WriteVarUint64(value.Uint())
	return nil
}

func (s uintSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s uintSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	v := ctx.ReadVarUint64()
	if v > math.MaxUint {
		return invalidDataf("uint64 %d exceeds uint range", v)
	}
	value.SetUint(v)
	return ctx.Err()
}

func (s uintSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// float32Serializer handles float32 type
type float32Serializer struct{}

func (s float32Serializer) TypeId() TypeId       { return FLOAT }
func (s float32Serializer) NeedToWriteRef() bool { return false }

func (s float32Serializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s float32Serializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	ctx.WriteFloat32(float32(value.Float()))
	return nil
}

func (s float32Serializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s float32Serializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	value.SetFloat(float64(ctx.ReadFloat32()))
	return ctx.Err()
}

func (s float32Serializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// float64Serializer handles float64 type
type float64Serializer struct{}

func (s float64Serializer) TypeId() TypeId       { return DOUBLE }
func (s float64Serializer) NeedToWriteRef() bool { return false }

func (s float64Serializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s float64Serializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	ctx.WriteFloat64(value.Float())
	return nil
}

func (s float64Serializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s float64Serializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	value.SetFloat(ctx.ReadFloat64())
	return ctx.Err()
}

func (s float64Serializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}
