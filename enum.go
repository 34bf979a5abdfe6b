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
	"math"
	"reflect"
)

// enumSerializer writes an enum as a varint ordinal. With a registered case
// list the ordinal is the zero based index into that list, so the wire value
// is stable even when the Go constants are not contiguous. Without a case
// list the integer value itself is the ordinal and must fit in a uint32.
type enumSerializer struct {
	type_    reflect.Type
	typeID   int32
	values   []reflect.Value
	ordinals map[int64]uint32
}

func newEnumSerializer(type_ reflect.Type, typeID int32, values []reflect.Value) (*enumSerializer, error) {
	if !isIntegerKind(type_.Kind()) {
		return nil, fmt.Errorf("fory: enum type %v must have an integer kind", type_)
	}
	s := &enumSerializer{type_: type_, typeID: typeID}
	if len(values) == 0 {
		return s, nil
	}
	s.values = make([]reflect.Value, len(values))
	s.ordinals = make(map[int64]uint32, len(values))
	for i, v := range values {
		if v.Type() != type_ {
			if !v.Type().ConvertibleTo(type_) {
				return nil, fmt.Errorf("fory: enum case %v is not a %v", v.Type(), type_)
			}
			v = v.Convert(type_)
		}
		raw := rawEnumValue(v)
		if _, ok := s.ordinals[raw]; ok {
			return nil, fmt.Errorf("fory: enum %v case %d listed twice", type_, raw)
		}
		s.values[i] = v
		s.ordinals[raw] = uint32(i)
	}
	return s, nil
}

func rawEnumValue(v reflect.Value) int64 {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint())
	}
	return v.Int()
}

func (s *enumSerializer) TypeId() TypeId       { return TypeId(s.typeID & 0xFF) }
func (s *enumSerializer) NeedToWriteRef() bool { return false }

func (s *enumSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s *enumSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	raw := rawEnumValue(value)
	if s.ordinals != nil {
		ordinal, ok := s.ordinals[raw]
		if !ok {
			return fmt.Errorf("%w: %d is not a case of %v", ErrInvalidEnumValue, raw, s.type_)
		}
		ctx.buffer.WriteVarUint32Small7(ordinal)
		return nil
	}
	if raw < 0 || raw > math.MaxUint32 {
		return fmt.Errorf("%w: %v value %d is not a valid ordinal", ErrInvalidEnumValue, s.type_, raw)
	}
	ctx.buffer.WriteVarUint32Small7(uint32(raw))
	return nil
}

func (s *enumSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s *enumSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	ordinal := ctx.buffer.ReadVarUint32Small7()
	if err := ctx.buffer.Err(); err != nil {
		return err
	}
	if s.values != nil {
		if int(ordinal) >= len(s.values) {
			return fmt.Errorf("%w: ordinal %d past the %d cases of %v",
				ErrInvalidEnumValue, ordinal, len(s.values), s.type_)
		}
		value.Set(s.values[ordinal])
		return nil
	}
	switch value.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		value.SetUint(uint64(ordinal))
	default:
		value.SetInt(int64(ordinal))
	}
	return nil
}

func (s *enumSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}
