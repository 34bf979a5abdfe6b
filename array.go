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

// arraySerializer handles fixed size arrays with the list format. Arrays are
// value types in Go, so they never take part in reference tracking; the
// element count on the wire must match the array length exactly.
type arraySerializer struct {
	declaredType reflect.Type
}

func (s arraySerializer) TypeId() TypeId       { return LIST }
func (s arraySerializer) NeedToWriteRef() bool { return false }

func (s arraySerializer) declaredElemInfo(resolver *TypeResolver) *TypeInfo {
	if s.declaredType != nil && s.declaredType.Kind() == reflect.Array {
		elem := s.declaredType.Elem()
		if elem.Kind() != reflect.Interface {
			if info, err := resolver.getTypeInfoByType(elem, true); err == nil {
				return &info
			}
		}
	}
	return nil
}

func (s arraySerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s arraySerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	if err := ctx.enterDepth(); err != nil {
		return err
	}
	defer ctx.leaveDepth()
	length := value.Len()
	ctx.buffer.WriteVarUint32(uint32(length))
	if length == 0 {
		return nil
	}
	elems := make([]reflect.Value, length)
	for i := range elems {
		elems[i] = value.Index(i)
	}
	return writeCollectionElements(ctx, elems, s.declaredElemInfo(ctx.typeResolver))
}

func (s arraySerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s arraySerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	if err := ctx.enterDepth(); err != nil {
		return err
	}
	defer ctx.leaveDepth()
	length := int(ctx.buffer.ReadVarUint32())
	if err := ctx.buffer.Err(); err != nil {
		return err
	}
	if type_.Kind() != reflect.Array {
		return invalidDataf("cannot read fixed array into %v", type_)
	}
	if length != type_.Len() {
		return invalidDataf("array length mismatch: wire %d, target %d", length, type_.Len())
	}
	if length == 0 {
		return ctx.Err()
	}
	flag, elemInfo, err := readCollectionHeader(ctx, s.declaredElemInfo(ctx.typeResolver))
	if err != nil {
		return err
	}
	for i := 0; i < length; i++ {
		elem, err := readCollectionElement(ctx, flag, elemInfo)
		if err != nil {
			return err
		}
		if !elem.IsValid() {
			continue
		}
		if err := assignValue(value.Index(i), elem); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (s arraySerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}
