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
	"fmt"
	"reflect"
)

// unionSerializer writes a closed interface value as a varint case tag
// followed by the case's type info and data. The ref flag of the union value
// itself covers reference semantics, so pointer payloads are tracked once,
// not once per layer.
type unionSerializer struct {
	typeID int32
	cases  []reflect.Type
}

func newUnionSerializer(typeID int32, cases []reflect.Type) *unionSerializer {
	return &unionSerializer{typeID: typeID, cases: append([]reflect.Type(nil), cases...)}
}

// caseIndex matches a concrete type against the case list. A pointer matches
// a case registered as its element type, since Go values often implement an
// interface through a pointer receiver.
func (s *unionSerializer) caseIndex(type_ reflect.Type) int {
	for i, c := range s.cases {
		if type_ == c {
			return i
		}
		if type_.Kind() == reflect.Ptr && type_.Elem() == c {
			return i
		}
	}
	return -1
}

func (s *unionSerializer) TypeId() TypeId       { return TypeId(s.typeID & 0xFF) }
func (s *unionSerializer) NeedToWriteRef() bool { return true }

func (s *unionSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s *unionSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	concrete := UnwrapReflectValue(value)
	if !concrete.IsValid() {
		return fmt.Errorf("fory: cannot encode a nil union value without a null flag")
	}
	tag := s.caseIndex(concrete.Type())
	if tag < 0 {
		return unknownTypef("union case %v", concrete.Type())
	}
	ctx.buffer.WriteVarUint32Small7(uint32(tag))
	info, err := ctx.typeResolver.getTypeInfo(concrete, true)
	if err != nil {
		return err
	}
	if info.Serializer == nil {
		return fmt.Errorf("%w: %v", ErrNoSerializer, concrete.Type())
	}
	if err := ctx.typeResolver.writeTypeInfo(ctx.buffer, info, ctx.metaContext); err != nil {
		return err
	}
	return info.Serializer.WriteData(ctx, concrete)
}

func (s *unionSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s *unionSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	tag := ctx.buffer.ReadVarUint32Small7()
	if err := ctx.buffer.Err(); err != nil {
		return err
	}
	if int(tag) >= len(s.cases) {
		return invalidDataf("union case %d outside the %d registered cases", tag, len(s.cases))
	}
	info, err := ctx.typeResolver.readTypeInfo(ctx.buffer, ctx.metaContext)
	if err != nil {
		return err
	}
	if info.Serializer == nil {
		return fmt.Errorf("%w: %v", ErrNoSerializer, info.Type)
	}
	// A pending ref id means the writer held a pointer to this payload, so
	// the struct is materialized behind one to keep aliases shared.
	if info.Type.Kind() == reflect.Struct && ctx.refResolver.PendingRefId() >= 0 {
		ptr := reflect.New(info.Type)
		ctx.refResolver.Reference(ptr)
		if err := info.Serializer.ReadData(ctx, info.Type, ptr.Elem()); err != nil {
			return err
		}
		return assignValue(value, ptr)
	}
	concrete := reflect.New(info.Type).Elem()
	if err := info.Serializer.ReadData(ctx, info.Type, concrete); err != nil {
		return err
	}
	return assignValue(value, concrete)
}

func (s *unionSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}
