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
	"strings"
)

const optionalPkgPath = "github.com/apache/fory-go/optional"

// optionalInfo locates the Value and Has fields of an Optional[T]
// instantiation.
type optionalInfo struct {
	valueType  reflect.Type
	valueIndex int
	hasIndex   int
}

func getOptionalInfo(type_ reflect.Type) (optionalInfo, bool) {
	if type_ == nil || type_.Kind() != reflect.Struct || type_.PkgPath() != optionalPkgPath {
		return optionalInfo{}, false
	}
	name := type_.Name()
	if name != "Optional" && !strings.HasPrefix(name, "Optional[") {
		return optionalInfo{}, false
	}
	valueField, ok := type_.FieldByName("Value")
	if !ok {
		return optionalInfo{}, false
	}
	hasField, ok := type_.FieldByName("Has")
	if !ok || hasField.Type.Kind() != reflect.Bool {
		return optionalInfo{}, false
	}
	return optionalInfo{
		valueType:  valueField.Type,
		valueIndex: valueField.Index[0],
		hasIndex:   hasField.Index[0],
	}, true
}

func isOptionalType(type_ reflect.Type) bool {
	_, ok := getOptionalInfo(type_)
	return ok
}

// createOptionalTypeInfo binds an Optional[T] instantiation to its element's
// wire id. Struct, slice and map elements are excluded; their nullability
// already has pointer forms, and an optional wrapper around them would be
// ambiguous on the wire.
func (r *TypeResolver) createOptionalTypeInfo(type_ reflect.Type, opt optionalInfo) (TypeInfo, error) {
	base := opt.valueType
	for base.Kind() == reflect.Ptr {
		base = base.Elem()
	}
	switch base.Kind() {
	case reflect.Struct, reflect.Slice, reflect.Map, reflect.Interface:
		return TypeInfo{}, fmt.Errorf("%w: %v, optional elements must be scalar", ErrNoSerializer, type_)
	}
	elemInfo, err := r.getTypeInfoByType(opt.valueType, true)
	if err != nil {
		return TypeInfo{}, err
	}
	info := TypeInfo{
		Type:   type_,
		TypeID: elemInfo.TypeID,
		Serializer: optionalSerializer{
			elemInfo:   elemInfo,
			valueIndex: opt.valueIndex,
			hasIndex:   opt.hasIndex,
		},
	}
	r.typeToTypeInfo[type_] = info
	return info, nil
}

// optionalSerializer encodes Optional[T] exactly as a nullable element: the
// caller's ref flag carries the None case and a present value is just the
// element's encoding, so peers see the same bytes a pointer field produces.
type optionalSerializer struct {
	elemInfo   TypeInfo
	valueIndex int
	hasIndex   int
}

func (s optionalSerializer) TypeId() TypeId       { return TypeId(s.elemInfo.TypeID & 0xFF) }
func (s optionalSerializer) NeedToWriteRef() bool { return true }

func (s optionalSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	value = UnwrapReflectValue(value)
	if !value.Field(s.hasIndex).Bool() {
		if !writeRef {
			return invalidDataf("empty optional %v has no null slot", value.Type())
		}
		ctx.buffer.WriteInt8(NullFlag)
		return ctx.Err()
	}
	return writeBySerializer(ctx, s.elemInfo.Serializer, writeRef, writeType, value.Field(s.valueIndex))
}

func (s optionalSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	value = UnwrapReflectValue(value)
	if !value.Field(s.hasIndex).Bool() {
		// No flag slot at this call site; keep the stream aligned with the
		// zero element.
		zero := reflect.New(s.elemInfo.Type).Elem()
		return s.elemInfo.Serializer.WriteData(ctx, zero)
	}
	return s.elemInfo.Serializer.WriteData(ctx, value.Field(s.valueIndex))
}

func (s optionalSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	refId := int32(NotNullValueFlag)
	if readRef {
		var err error
		refId, err = ctx.refResolver.TryPreserveRefId(ctx.buffer)
		if err != nil {
			return err
		}
		switch refId {
		case int32(NullFlag):
			if value.CanSet() {
				value.Set(reflect.Zero(value.Type()))
			}
			return nil
		case int32(RefFlag):
			value.Field(s.hasIndex).SetBool(true)
			return assignValue(value.Field(s.valueIndex), ctx.refResolver.GetReadObject(refId))
		}
	}
	if readType {
		if _, err := ctx.typeResolver.readTypeInfo(ctx.buffer, ctx.metaContext); err != nil {
			return err
		}
	}
	if err := s.ReadData(ctx, value.Type(), value); err != nil {
		return err
	}
	ctx.refResolver.SetReadObject(refId, value.Field(s.valueIndex))
	return nil
}

func (s optionalSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	value.Field(s.hasIndex).SetBool(true)
	return s.elemInfo.Serializer.ReadData(ctx, s.elemInfo.Type, value.Field(s.valueIndex))
}

func (s optionalSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return s.Read(ctx, readRef, false, value)
}
