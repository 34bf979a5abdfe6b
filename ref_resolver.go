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
	"unsafe"
)

// refKey identifies an object for reference tracking. Pointers are keyed by
// address; slices and maps additionally carry their length so two views of
// the same backing store are only shared when they really are the same value.
type refKey struct {
	pointer unsafe.Pointer
	length  int
}

// RefResolver tracks object identities within a single serialization or
// deserialization pass so shared and cyclic references are written once and
// reconstructed as the same object. Ids are assigned in write order on both
// sides, which keeps writer and reader tables aligned without transporting
// the table itself.
type RefResolver struct {
	refTracking    bool
	writtenObjects map[refKey]int32
	writeRefCount  int32
	readObjects    []reflect.Value
	readRefIds     []int32
	readObject     reflect.Value
}

func NewRefResolver(refTracking bool) *RefResolver {
	return &RefResolver{
		refTracking:    refTracking,
		writtenObjects: make(map[refKey]int32),
	}
}

// WriteRefOrNull writes the reference flag for value. It returns true when
// the flag alone fully encodes the value (null, or a back-reference to a
// previously written object) and no data should follow.
//
// Struct values have no address to key on, so they consume a ref id and get
// RefValueFlag like any tracked object but can never become the target of a
// back-reference. This keeps the id sequence identical to peers that track
// every object.
func (r *RefResolver) WriteRefOrNull(buffer *ByteBuffer, value reflect.Value) (bool, error) {
	var key refKey
	isNil, tracked, counted := false, false, false
	switch value.Kind() {
	case reflect.Ptr:
		isNil = value.IsNil()
		if !isNil {
			key = refKey{pointer: value.UnsafePointer()}
			tracked = true
		}
	case reflect.Map, reflect.Slice:
		isNil = value.IsNil()
		if !isNil {
			key = refKey{pointer: value.UnsafePointer(), length: value.Len()}
			tracked = true
		}
	case reflect.Interface:
		if value.IsNil() {
			isNil = true
		} else {
			return r.WriteRefOrNull(buffer, value.Elem())
		}
	case reflect.Struct:
		counted = true
	case reflect.Invalid:
		isNil = true
	}
	if isNil {
		buffer.WriteInt8(NullFlag)
		return true, nil
	}
	if !r.refTracking || (!tracked && !counted) {
		buffer.WriteInt8(NotNullValueFlag)
		return false, nil
	}
	if tracked {
		if refId, ok := r.writtenObjects[key]; ok {
			buffer.WriteInt8(RefFlag)
			buffer.WriteVarUint32(uint32(refId))
			return true, nil
		}
		r.writtenObjects[key] = r.writeRefCount
	}
	r.writeRefCount++
	buffer.WriteInt8(RefValueFlag)
	return false, nil
}

// TryPreserveRefId reads the reference flag for the next value. For a first
// occurrence it preserves a fresh ref id (>= NotNullValueFlag) that the
// caller fills in with SetReadObject once the value is constructed. For a
// back-reference it resolves the referenced object, stashes it for
// GetReadObject, and returns RefFlag; for null it returns NullFlag.
func (r *RefResolver) TryPreserveRefId(buffer *ByteBuffer) (int32, error) {
	headFlag := buffer.ReadInt8()
	if headFlag == RefFlag {
		refId := int32(buffer.ReadVarUint32())
		if refId < 0 || int(refId) >= len(r.readObjects) || !r.readObjects[refId].IsValid() {
			return 0, fmt.Errorf("%w: ref id %d", ErrDanglingReference, refId)
		}
		r.readObject = r.readObjects[refId]
		return int32(RefFlag), nil
	}
	r.readObject = reflect.Value{}
	if headFlag == RefValueFlag {
		return r.PreserveRefId(), nil
	}
	return int32(headFlag), nil
}

// PreserveRefId reserves the next read slot and returns its id. The slot is
// filled later via Reference or SetReadObject.
func (r *RefResolver) PreserveRefId() int32 {
	if !r.refTracking {
		return int32(NotNullValueFlag)
	}
	nextReadRefId := int32(len(r.readObjects))
	r.readObjects = append(r.readObjects, reflect.Value{})
	r.readRefIds = append(r.readRefIds, nextReadRefId)
	return nextReadRefId
}

// Reference binds value to the most recently preserved ref id. Container
// serializers call this before reading nested values so cyclic references
// back to the container resolve during construction.
func (r *RefResolver) Reference(value reflect.Value) {
	if !r.refTracking {
		return
	}
	n := len(r.readRefIds)
	if n == 0 {
		return
	}
	refId := r.readRefIds[n-1]
	r.readRefIds = r.readRefIds[:n-1]
	r.SetReadObject(refId, value)
}

// PendingRefId returns the most recently preserved id that no value has been
// bound to yet, or NotNullValueFlag when none is pending. A pending id means
// the writer consumed a ref id for the value being read, so the reader must
// fill a slot for it to keep both id sequences aligned.
func (r *RefResolver) PendingRefId() int32 {
	if n := len(r.readRefIds); n > 0 {
		return r.readRefIds[n-1]
	}
	return int32(NotNullValueFlag)
}

// GetReadObject returns the object recorded for refId. Negative ids return
// the object stashed by the last TryPreserveRefId that saw a back-reference.
func (r *RefResolver) GetReadObject(refId int32) reflect.Value {
	if !r.refTracking {
		return reflect.Value{}
	}
	if refId >= 0 {
		if int(refId) >= len(r.readObjects) {
			return reflect.Value{}
		}
		return r.readObjects[refId]
	}
	return r.readObject
}

// SetReadObject records the constructed value for refId so later
// back-references resolve to it. Ids below zero are stub flags and ignored.
// Interface wrappers are unwrapped so back-references always resolve to the
// concrete value they were written from. If refId is still pending, it is
// consumed here, so a value whose serializer never calls Reference cannot
// leave a stale pending id behind for the next container to claim.
func (r *RefResolver) SetReadObject(refId int32, value reflect.Value) {
	if !r.refTracking {
		return
	}
	if value.Kind() == reflect.Interface && !value.IsNil() {
		value = value.Elem()
	}
	if n := len(r.readRefIds); n > 0 && r.readRefIds[n-1] == refId {
		r.readRefIds = r.readRefIds[:n-1]
	}
	if refId >= 0 && int(refId) < len(r.readObjects) {
		r.readObjects[refId] = value
	}
}

func (r *RefResolver) resetWrite() {
	if len(r.writtenObjects) > 0 {
		r.writtenObjects = make(map[refKey]int32)
	}
	r.writeRefCount = 0
}

func (r *RefResolver) resetRead() {
	r.readObjects = r.readObjects[:0]
	r.readRefIds = r.readRefIds[:0]
	r.readObject = reflect.Value{}
}
