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

// Collection flag bits, shared by lists, sets and fixed arrays. The flag byte
// follows the element count; an empty collection writes only the count.
const (
	CollectionDefaultFlag       = 0b0000
	CollectionTrackingRef       = 0b0001
	CollectionHasNull           = 0b0010
	CollectionIsDeclElementType = 0b0100
	CollectionIsSameType        = 0b1000
)

// writeCollectionElements writes the flag byte, the shared element type when
// one exists, and then the elements. The count must already be written and
// elems must be non-empty. declElem carries the container's declared element
// info when the declared element type is concrete; both sides then agree on
// the element serializer and the type descriptor is skipped.
func writeCollectionElements(ctx *WriteContext, elems []reflect.Value, declElem *TypeInfo) error {
	collectFlag := CollectionDefaultFlag
	var elemInfo TypeInfo
	hasNull := false
	sameType := true
	if declElem != nil {
		elemInfo = *declElem
		collectFlag |= CollectionIsDeclElementType | CollectionIsSameType
		for _, e := range elems {
			if isNull(UnwrapReflectValue(e)) {
				hasNull = true
				break
			}
		}
	} else {
		var firstType reflect.Type
		for _, e := range elems {
			e = UnwrapReflectValue(e)
			if isNull(e) {
				hasNull = true
				continue
			}
			if firstType == nil {
				firstType = e.Type()
			} else if e.Type() != firstType {
				sameType = false
			}
		}
		if firstType == nil {
			// All elements null: there is no shared type to name, fall back
			// to the per element path which writes null flags.
			sameType = false
		}
		if sameType {
			info, err := ctx.typeResolver.getTypeInfoByType(firstType, true)
			if err != nil {
				return err
			}
			elemInfo = info
			collectFlag |= CollectionIsSameType
		}
	}
	if hasNull {
		collectFlag |= CollectionHasNull
	}
	if ctx.trackRef && (elemInfo.Serializer == nil || elemInfo.Serializer.NeedToWriteRef()) {
		collectFlag |= CollectionTrackingRef
	}
	ctx.buffer.WriteInt8(int8(collectFlag))
	if collectFlag&CollectionIsSameType != 0 && collectFlag&CollectionIsDeclElementType == 0 {
		if err := ctx.typeResolver.writeTypeInfo(ctx.buffer, elemInfo, ctx.metaContext); err != nil {
			return err
		}
	}
	if collectFlag&CollectionIsSameType != 0 {
		return writeSameTypeElements(ctx, elems, elemInfo, int8(collectFlag))
	}
	return writeMixedElements(ctx, elems, int8(collectFlag))
}

// writeSameTypeElements writes elements that all share elemInfo. With ref
// tracking each element carries its own ref flag; without tracking a null
// capable collection marks every element with a null or not-null flag so the
// reader can resynchronize.
func writeSameTypeElements(ctx *WriteContext, elems []reflect.Value, elemInfo TypeInfo, flag int8) error {
	trackRefs := flag&CollectionTrackingRef != 0
	hasNull := flag&CollectionHasNull != 0
	for _, e := range elems {
		e = UnwrapReflectValue(e)
		if isNull(e) {
			ctx.buffer.WriteInt8(NullFlag)
			continue
		}
		switch {
		case trackRefs:
			if err := elemInfo.Serializer.Write(ctx, true, false, e); err != nil {
				return err
			}
		case hasNull:
			ctx.buffer.WriteInt8(NotNullValueFlag)
			if err := elemInfo.Serializer.WriteData(ctx, e); err != nil {
				return err
			}
		default:
			if err := elemInfo.Serializer.WriteData(ctx, e); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeMixedElements writes heterogeneous elements, each with its own type
// descriptor.
func writeMixedElements(ctx *WriteContext, elems []reflect.Value, flag int8) error {
	trackRefs := flag&CollectionTrackingRef != 0
	hasNull := flag&CollectionHasNull != 0
	for _, e := range elems {
		e = UnwrapReflectValue(e)
		if isNull(e) {
			ctx.buffer.WriteInt8(NullFlag)
			continue
		}
		info, err := ctx.typeResolver.getTypeInfo(e, true)
		if err != nil {
			return err
		}
		if trackRefs {
			written, err := ctx.refResolver.WriteRefOrNull(ctx.buffer, e)
			if err != nil {
				return err
			}
			if written {
				continue
			}
		} else if hasNull {
			ctx.buffer.WriteInt8(NotNullValueFlag)
		}
		if err := ctx.typeResolver.writeTypeInfo(ctx.buffer, info, ctx.metaContext); err != nil {
			return err
		}
		if err := info.Serializer.WriteData(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// readCollectionHeader consumes the flag byte and, for a homogeneous
// collection without the declared type flag, the shared element descriptor.
func readCollectionHeader(ctx *ReadContext, declElem *TypeInfo) (int8, TypeInfo, error) {
	flag := ctx.buffer.ReadInt8()
	if err := ctx.buffer.Err(); err != nil {
		return 0, TypeInfo{}, err
	}
	var elemInfo TypeInfo
	if declElem != nil {
		elemInfo = *declElem
	}
	if flag&CollectionIsSameType != 0 {
		if flag&CollectionIsDeclElementType == 0 {
			info, err := ctx.typeResolver.readTypeInfo(ctx.buffer, ctx.metaContext)
			if err != nil {
				return 0, TypeInfo{}, err
			}
			elemInfo = info
		} else if elemInfo.Serializer == nil {
			return 0, TypeInfo{}, invalidDataf("collection uses a declared element type the reader does not know")
		}
	}
	return flag, elemInfo, nil
}

// readCollectionElement decodes one element. A null element returns an
// invalid Value. Struct elements under ref tracking are materialized behind a
// pointer so later back references alias the same object.
func readCollectionElement(ctx *ReadContext, flag int8, elemInfo TypeInfo) (reflect.Value, error) {
	trackRefs := flag&CollectionTrackingRef != 0
	hasNull := flag&CollectionHasNull != 0
	sameType := flag&CollectionIsSameType != 0

	refId := int32(NotNullValueFlag)
	if trackRefs {
		id, err := ctx.refResolver.TryPreserveRefId(ctx.buffer)
		if err != nil {
			return reflect.Value{}, err
		}
		switch {
		case int8(id) == NullFlag:
			return reflect.Value{}, nil
		case int8(id) < NotNullValueFlag:
			obj := ctx.refResolver.GetReadObject(id)
			if !obj.IsValid() {
				return reflect.Value{}, ErrDanglingReference
			}
			return obj, nil
		}
		refId = id
	} else if hasNull {
		if ctx.buffer.ReadInt8() == NullFlag {
			return reflect.Value{}, nil
		}
	}

	info := elemInfo
	if !sameType {
		read, err := ctx.typeResolver.readTypeInfo(ctx.buffer, ctx.metaContext)
		if err != nil {
			return reflect.Value{}, err
		}
		info = read
	}
	if info.Serializer == nil {
		return reflect.Value{}, invalidDataf("no serializer for collection element type %v", info.Type)
	}

	if refId >= 0 && info.Type.Kind() == reflect.Struct {
		ptr := reflect.New(info.Type)
		ctx.refResolver.Reference(ptr)
		if err := info.Serializer.ReadData(ctx, info.Type, ptr.Elem()); err != nil {
			return reflect.Value{}, err
		}
		return ptr, nil
	}
	elem := reflect.New(info.Type).Elem()
	if err := info.Serializer.ReadData(ctx, info.Type, elem); err != nil {
		return reflect.Value{}, err
	}
	ctx.refResolver.SetReadObject(refId, elem)
	return elem, nil
}

// sliceSerializer handles every slice type without a specialized fast path.
// elemInfo pins the declared element when known at build time; otherwise the
// declared type's element is resolved lazily and slices of interfaces take
// the dynamic per element path.
type sliceSerializer struct {
	elemInfo     TypeInfo
	declaredType reflect.Type
}

func (s sliceSerializer) TypeId() TypeId       { return LIST }
func (s sliceSerializer) NeedToWriteRef() bool { return true }

func (s sliceSerializer) declaredElemInfo(resolver *TypeResolver) *TypeInfo {
	if s.elemInfo.Serializer != nil {
		info := s.elemInfo
		return &info
	}
	if s.declaredType != nil && s.declaredType.Kind() == reflect.Slice {
		elem := s.declaredType.Elem()
		if elem.Kind() != reflect.Interface {
			if info, err := resolver.getTypeInfoByType(elem, true); err == nil {
				return &info
			}
		}
	}
	return nil
}

func (s sliceSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s sliceSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
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

func (s sliceSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s sliceSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	if err := ctx.enterDepth(); err != nil {
		return err
	}
	defer ctx.leaveDepth()
	length := int(ctx.buffer.ReadVarUint32())
	if err := ctx.buffer.Err(); err != nil {
		return err
	}
	if type_.Kind() != reflect.Slice {
		return invalidDataf("cannot read list into %v", type_)
	}
	if value.Cap() < length {
		value.Set(reflect.MakeSlice(type_, length, length))
	} else {
		value.Set(value.Slice(0, length))
	}
	ctx.refResolver.Reference(value)
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

func (s sliceSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}
