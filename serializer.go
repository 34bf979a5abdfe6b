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

// Serializer is the unified interface for all serialization.
// It provides reflect.Value-based API for efficient serialization.
type Serializer interface {
	// Write is the serialization entry point.
	//
	// It runs the complete sequence for one value: the reference flag, the
	// type descriptor, then the data, delegating to WriteData for the last.
	//
	// Parameters:
	//
	// * writeRef - When true, WRITES reference flag. When false, SKIPS writing ref flag.
	// * writeType - When true, WRITES type information. When false, SKIPS writing type info.
	//
	Write(ctx *WriteContext, writeRef bool, writeType bool, value reflect.Value) error

	// WriteData serializes using reflect.Value.
	// Does NOT write ref/type info - caller handles that.
	WriteData(ctx *WriteContext, value reflect.Value) error

	// Read is the deserialization entry point.
	//
	// It mirrors Write: the reference flag, the type descriptor, then the
	// data, delegating to ReadData for the last.
	//
	// Parameters:
	//
	// * readRef - When true, READS reference flag from buffer. When false, SKIPS reading ref flag.
	// * readType - When true, READS type information from buffer. When false, SKIPS reading type info.
	//
	Read(ctx *ReadContext, readRef bool, readType bool, value reflect.Value) error

	// ReadData deserializes directly into the provided reflect.Value.
	// Does NOT read ref/type info - caller handles that.
	// For non-trivial types (slices, maps), implementations should reuse existing capacity when possible.
	ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error

	// ReadWithTypeInfo deserializes with pre-read type information.
	//
	// This method is used when type information has already been read from the buffer
	// and needs to be passed to the deserialization logic. This is common in polymorphic
	// deserialization scenarios where the runtime type differs from the static type.
	//
	// Parameters:
	//
	// * readRef - When true, READS reference flag from buffer. When false, SKIPS reading ref flag.
	// * typeInfo - Type information that has already been read ahead. DO NOT read type info again from buffer.
	//
	// Important:
	//
	// DO NOT read type info from the buffer in this method. The typeInfo parameter
	// contains the already-read type metadata. Reading it again will cause buffer position errors.
	//
	ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error

	// TypeId returns the Fory protocol type ID
	TypeId() TypeId

	// NeedToWriteRef returns true if this type needs reference tracking
	NeedToWriteRef() bool
}

// Helper functions for serializer dispatch

// writeBySerializer is the shared Write implementation: reference flag, type
// descriptor, then data. A null or back-reference is fully encoded by its
// flag, so no data follows it.
func writeBySerializer(ctx *WriteContext, s Serializer, writeRef, writeType bool, value reflect.Value) error {
	if writeRef {
		written, err := ctx.refResolver.WriteRefOrNull(ctx.buffer, value)
		if err != nil {
			return err
		}
		if written {
			return nil
		}
	}
	if writeType {
		typeInfo, err := ctx.typeResolver.getTypeInfo(value, true)
		if err != nil {
			return err
		}
		if err := ctx.typeResolver.writeTypeInfo(ctx.buffer, typeInfo, ctx.metaContext); err != nil {
			return err
		}
	}
	return s.WriteData(ctx, value)
}

// readBySerializer is the shared Read implementation for sites whose
// serializer is known statically, so any type descriptor in the stream is
// consumed but not dispatched on. The fresh ref id, if one was preserved, is
// bound to the constructed value; container serializers additionally bind it
// earlier, during construction, for cycle support.
func readBySerializer(ctx *ReadContext, s Serializer, readRef, readType bool, value reflect.Value) error {
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
			return assignValue(value, ctx.refResolver.GetReadObject(refId))
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
	ctx.refResolver.SetReadObject(refId, value)
	return nil
}

// readDataWithTypeInfo is the shared ReadWithTypeInfo implementation: the
// type descriptor was consumed by the caller, so only the optional ref flag
// and the data remain. When the destination cannot hold the described type
// directly, the value is materialized separately and assigned across.
func readDataWithTypeInfo(ctx *ReadContext, s Serializer, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
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
			return assignValue(value, ctx.refResolver.GetReadObject(refId))
		}
	}
	if value.Kind() == reflect.Interface || value.Type() != typeInfo.Type {
		concrete := reflect.New(typeInfo.Type).Elem()
		if err := s.ReadData(ctx, typeInfo.Type, concrete); err != nil {
			return err
		}
		ctx.refResolver.SetReadObject(refId, concrete)
		return assignValue(value, concrete)
	}
	if err := s.ReadData(ctx, typeInfo.Type, value); err != nil {
		return err
	}
	ctx.refResolver.SetReadObject(refId, value)
	return nil
}

// checkSettable rejects read destinations that reflection cannot write to.
func checkSettable(value reflect.Value) error {
	if !value.CanSet() {
		return fmt.Errorf("fory: read target of type %v is not settable", value.Type())
	}
	return nil
}
