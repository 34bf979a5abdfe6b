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

// ============================================================================
// WriteContext - Holds all state needed during serialization
// ============================================================================

// WriteContext holds all state needed during serialization.
// It replaces passing multiple parameters to every method.
type WriteContext struct {
	buffer       *ByteBuffer
	trackRef     bool // Cached flag to avoid indirection
	compatible   bool // Schema evolution compatibility mode
	depth        int
	maxDepth     int
	typeResolver *TypeResolver
	refResolver  *RefResolver
	metaContext  *MetaContext // Non-nil only in compatible mode
}

// NewWriteContext creates a new write context
func NewWriteContext(trackRef bool, maxDepth int) *WriteContext {
	return &WriteContext{
		buffer:      NewByteBuffer(nil),
		refResolver: NewRefResolver(trackRef),
		trackRef:    trackRef,
		maxDepth:    maxDepth,
	}
}

// Reset clears state for reuse (called before each Serialize)
func (c *WriteContext) Reset() {
	c.buffer.Reset()
	c.depth = 0
	c.refResolver.resetWrite()
	if c.typeResolver != nil {
		c.typeResolver.resetWrite()
	}
	if c.metaContext != nil {
		c.metaContext.resetWrite()
	}
}

// Buffer returns the underlying buffer
func (c *WriteContext) Buffer() *ByteBuffer {
	return c.buffer
}

// TrackRef returns whether reference tracking is enabled
func (c *WriteContext) TrackRef() bool {
	return c.trackRef
}

// Compatible returns whether schema evolution compatibility mode is enabled
func (c *WriteContext) Compatible() bool {
	return c.compatible
}

// TypeResolver returns the type resolver
func (c *WriteContext) TypeResolver() *TypeResolver {
	return c.typeResolver
}

// RefResolver returns the reference resolver
func (c *WriteContext) RefResolver() *RefResolver {
	return c.refResolver
}

// Err returns the sticky buffer error, if any.
func (c *WriteContext) Err() error {
	return c.buffer.Err()
}

// enterDepth guards recursion through nested containers and structs.
func (c *WriteContext) enterDepth() error {
	c.depth++
	if c.maxDepth > 0 && c.depth > c.maxDepth {
		return fmt.Errorf("%w: depth %d", ErrDepthLimit, c.depth)
	}
	return nil
}

func (c *WriteContext) leaveDepth() {
	c.depth--
}

// Inline primitive writes (compiler will inline these)
func (c *WriteContext) WriteBool(v bool)        { c.buffer.WriteBool(v) }
func (c *WriteContext) WriteInt8(v int8)        { c.buffer.WriteInt8(v) }
func (c *WriteContext) WriteInt16(v int16)      { c.buffer.WriteInt16(v) }
func (c *WriteContext) WriteInt32(v int32)      { c.buffer.WriteInt32(v) }
func (c *WriteContext) WriteInt64(v int64)      { c.buffer.WriteInt64(v) }
func (c *WriteContext) WriteFloat32(v float32)  { c.buffer.WriteFloat32(v) }
func (c *WriteContext) WriteFloat64(v float64)  { c.buffer.WriteFloat64(v) }
func (c *WriteContext) WriteVarInt32(v int32)   { c.buffer.WriteVarint32(v) }
func (c *WriteContext) WriteVarInt64(v int64)   { c.buffer.WriteVarint64(v) }
func (c *WriteContext) WriteVarUint32(v uint32) { c.buffer.WriteVarUint32(v) }
func (c *WriteContext) WriteVarUint64(v uint64) { c.buffer.WriteVarUint64(v) }
func (c *WriteContext) WriteByte(v byte)        { c.buffer.WriteByte_(v) }
func (c *WriteContext) WriteBytes(v []byte)     { c.buffer.WriteBinary(v) }
func (c *WriteContext) WriteLength(n int)       { c.buffer.WriteLength(n) }

// WriteValue writes a value with ref flag, type info and data, resolving the
// serializer from the concrete type. Every polymorphic site goes through
// here: top level values, interface fields and mixed collection elements.
func (c *WriteContext) WriteValue(value reflect.Value) error {
	if !value.IsValid() || (value.Kind() == reflect.Interface && value.IsNil()) {
		c.buffer.WriteInt8(NullFlag)
		return nil
	}
	if value.Kind() == reflect.Interface {
		value = value.Elem()
	}
	typeInfo, err := c.typeResolver.getTypeInfo(value, true)
	if err != nil {
		return err
	}
	if typeInfo.Serializer == nil {
		return fmt.Errorf("%w: %v", ErrNoSerializer, value.Type())
	}
	return typeInfo.Serializer.Write(c, true, true, value)
}

// ============================================================================
// ReadContext - Holds all state needed during deserialization
// ============================================================================

// ReadContext holds all state needed during deserialization.
type ReadContext struct {
	buffer       *ByteBuffer
	trackRef     bool // Cached flag to avoid indirection
	compatible   bool // Schema evolution compatibility mode
	depth        int
	maxDepth     int
	typeResolver *TypeResolver
	refResolver  *RefResolver
	metaContext  *MetaContext // Non-nil only in compatible mode
}

// NewReadContext creates a new read context
func NewReadContext(trackRef bool, maxDepth int) *ReadContext {
	return &ReadContext{
		buffer:      NewByteBuffer(nil),
		refResolver: NewRefResolver(trackRef),
		trackRef:    trackRef,
		maxDepth:    maxDepth,
	}
}

// Reset clears state for reuse (called before each Deserialize)
func (c *ReadContext) Reset() {
	c.depth = 0
	c.refResolver.resetRead()
	if c.typeResolver != nil {
		c.typeResolver.resetRead()
	}
	if c.metaContext != nil {
		c.metaContext.resetRead()
	}
}

// SetData sets new input data (for buffer reuse)
func (c *ReadContext) SetData(data []byte) {
	c.buffer = NewByteBuffer(data)
}

// Buffer returns the underlying buffer
func (c *ReadContext) Buffer() *ByteBuffer {
	return c.buffer
}

// TrackRef returns whether reference tracking is enabled
func (c *ReadContext) TrackRef() bool {
	return c.trackRef
}

// Compatible returns whether schema evolution compatibility mode is enabled
func (c *ReadContext) Compatible() bool {
	return c.compatible
}

// TypeResolver returns the type resolver
func (c *ReadContext) TypeResolver() *TypeResolver {
	return c.typeResolver
}

// RefResolver returns the reference resolver
func (c *ReadContext) RefResolver() *RefResolver {
	return c.refResolver
}

// Err returns the sticky buffer error, if any.
func (c *ReadContext) Err() error {
	return c.buffer.Err()
}

func (c *ReadContext) enterDepth() error {
	c.depth++
	if c.maxDepth > 0 && c.depth > c.maxDepth {
		return fmt.Errorf("%w: depth %d", ErrDepthLimit, c.depth)
	}
	return nil
}

func (c *ReadContext) leaveDepth() {
	c.depth--
}

// Inline primitive reads
func (c *ReadContext) ReadBool() bool        { return c.buffer.ReadBool() }
func (c *ReadContext) ReadInt8() int8        { return c.buffer.ReadInt8() }
func (c *ReadContext) ReadInt16() int16      { return c.buffer.ReadInt16() }
func (c *ReadContext) ReadInt32() int32      { return c.buffer.ReadInt32() }
func (c *ReadContext) ReadInt64() int64      { return c.buffer.ReadInt64() }
func (c *ReadContext) ReadFloat32() float32  { return c.buffer.ReadFloat32() }
func (c *ReadContext) ReadFloat64() float64  { return c.buffer.ReadFloat64() }
func (c *ReadContext) ReadVarInt32() int32   { return c.buffer.ReadVarint32() }
func (c *ReadContext) ReadVarInt64() int64   { return c.buffer.ReadVarint64() }
func (c *ReadContext) ReadVarUint32() uint32 { return c.buffer.ReadVarUint32() }
func (c *ReadContext) ReadVarUint64() uint64 { return c.buffer.ReadVarUint64() }
func (c *ReadContext) ReadByte() byte        { return c.buffer.ReadByte_() }
func (c *ReadContext) ReadLength() int       { return c.buffer.ReadLength() }

// ReadValue reads a value written by WriteValue: ref flag, type info, then
// data. A concrete destination supplies its own serializer, so the stream's
// type descriptor is consumed without being dispatched on; interface
// destinations take the concrete type from the stream instead, as do struct
// destinations in compatible mode, whose descriptor carries the writer's
// field layout.
func (c *ReadContext) ReadValue(value reflect.Value) error {
	if value.Kind() != reflect.Interface {
		typeInfo, err := c.typeResolver.getTypeInfoByType(value.Type(), true)
		if err != nil {
			return err
		}
		if typeInfo.Serializer != nil &&
			!(c.compatible && isStructType(TypeId(typeInfo.TypeID&0xFF))) {
			return typeInfo.Serializer.Read(c, true, true, value)
		}
	}
	refId, err := c.refResolver.TryPreserveRefId(c.buffer)
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
		return assignValue(value, c.refResolver.GetReadObject(refId))
	}
	typeInfo, err := c.typeResolver.readTypeInfo(c.buffer, c.metaContext)
	if err != nil {
		return err
	}
	serializer := typeInfo.Serializer
	if serializer == nil {
		return fmt.Errorf("%w: %v", ErrNoSerializer, typeInfo.Type)
	}
	if refId >= 0 && typeInfo.Type.Kind() == reflect.Struct {
		// The writer consumed a ref id for this object, pointer or struct
		// value alike. Materialize through a pointer registered at that id
		// so cycles and shared references reconstruct as a single object.
		ptr := reflect.New(typeInfo.Type)
		c.refResolver.Reference(ptr)
		if err := serializer.ReadData(c, typeInfo.Type, ptr.Elem()); err != nil {
			return err
		}
		return assignValue(value, ptr)
	}
	concrete := reflect.New(typeInfo.Type).Elem()
	if err := serializer.ReadData(c, typeInfo.Type, concrete); err != nil {
		return err
	}
	c.refResolver.SetReadObject(refId, concrete)
	return assignValue(value, concrete)
}

// assignValue assigns src into dst, dereferencing or taking a pointer when
// the stream's concrete type and the destination disagree about indirection.
func assignValue(dst, src reflect.Value) error {
	if !src.IsValid() {
		return fmt.Errorf("%w: unresolved reference", ErrDanglingReference)
	}
	if !dst.CanSet() {
		return invalidDataf("cannot assign into unaddressable %v", dst.Type())
	}
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	if src.Kind() == reflect.Ptr && src.Type().Elem().AssignableTo(dst.Type()) {
		dst.Set(src.Elem())
		return nil
	}
	if dst.Kind() == reflect.Ptr && dst.Type().Elem() == src.Type() {
		ptr := reflect.New(src.Type())
		ptr.Elem().Set(src)
		dst.Set(ptr)
		return nil
	}
	return invalidDataf("cannot assign %v to %v", src.Type(), dst.Type())
}
