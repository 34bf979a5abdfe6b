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

// ExtensionCodec converts a value of an extension-registered type to and from
// opaque bytes. The stream stores only the byte payload; its meaning is
// whatever the codec on both sides agrees on.
type ExtensionCodec interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte) (interface{}, error)
}

// extSerializer frames an extension payload as a length-prefixed byte block,
// so a reader without the codec can still skip over it.
type extSerializer struct {
	type_  reflect.Type
	typeID int32
	codec  ExtensionCodec
}

func newExtSerializer(type_ reflect.Type, typeID int32, codec ExtensionCodec) *extSerializer {
	return &extSerializer{type_: type_, typeID: typeID, codec: codec}
}

func (s *extSerializer) TypeId() TypeId       { return TypeId(s.typeID & 0xFF) }
func (s *extSerializer) NeedToWriteRef() bool { return false }

func (s *extSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s *extSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	data, err := s.codec.Marshal(value.Interface())
	if err != nil {
		return err
	}
	ctx.buffer.WriteLength(len(data))
	ctx.buffer.WriteBinary(data)
	return nil
}

func (s *extSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s *extSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	size := ctx.buffer.ReadLength()
	view := ctx.buffer.ReadBinary(size)
	if err := ctx.buffer.Err(); err != nil {
		return err
	}
	// The codec may retain the slice, so it gets a copy rather than a view
	// into the read buffer.
	data := make([]byte, len(view))
	copy(data, view)
	v, err := s.codec.Unmarshal(data)
	if err != nil {
		return err
	}
	if v == nil {
		value.Set(reflect.Zero(value.Type()))
		return nil
	}
	return assignValue(value, reflect.ValueOf(v))
}

func (s *extSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}
