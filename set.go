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

// GenericSet maps to the SET wire type. Only element presence travels on the
// wire; the bool payload is always true.
type GenericSet map[interface{}]bool

func NewGenericSet(values ...interface{}) GenericSet {
	s := make(GenericSet, len(values))
	s.Add(values...)
	return s
}

func (s GenericSet) Add(values ...interface{}) {
	for _, v := range values {
		s[v] = true
	}
}

func (s GenericSet) Contains(value interface{}) bool {
	return s[value]
}

// setSerializer writes set elements with the shared collection format.
// Iteration order of Go maps is random, so two encodings of the same set may
// differ byte for byte while decoding to the same value.
type setSerializer struct{}

func (s setSerializer) TypeId() TypeId       { return SET }
func (s setSerializer) NeedToWriteRef() bool { return true }

func (s setSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s setSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	if err := ctx.enterDepth(); err != nil {
		return err
	}
	defer ctx.leaveDepth()
	keys := value.MapKeys()
	ctx.buffer.WriteVarUint32(uint32(len(keys)))
	if len(keys) == 0 {
		return nil
	}
	return writeCollectionElements(ctx, keys, nil)
}

func (s setSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s setSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	if err := ctx.enterDepth(); err != nil {
		return err
	}
	defer ctx.leaveDepth()
	length := int(ctx.buffer.ReadVarUint32())
	if err := ctx.buffer.Err(); err != nil {
		return err
	}
	if type_.Kind() != reflect.Map {
		return invalidDataf("cannot read set into %v", type_)
	}
	if value.IsNil() {
		value.Set(reflect.MakeMapWithSize(type_, length))
	}
	ctx.refResolver.Reference(value)
	if length == 0 {
		return ctx.Err()
	}
	flag, elemInfo, err := readCollectionHeader(ctx, nil)
	if err != nil {
		return err
	}
	trueValue := reflect.ValueOf(true)
	for i := 0; i < length; i++ {
		elem, err := readCollectionElement(ctx, flag, elemInfo)
		if err != nil {
			return err
		}
		if !elem.IsValid() {
			// A null element becomes the nil interface key.
			elem = reflect.New(type_.Key()).Elem()
		}
		value.SetMapIndex(elem, trueValue)
	}
	return ctx.Err()
}

func (s setSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}
