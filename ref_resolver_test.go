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
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteRefOrNull(t *testing.T) {
	t.Run("repeated pointer becomes back reference", func(t *testing.T) {
		resolver := NewRefResolver(true)
		buf := NewByteBuffer(nil)
		v := 42
		ptr := reflect.ValueOf(&v)

		done, err := resolver.WriteRefOrNull(buf, ptr)
		require.NoError(t, err)
		require.False(t, done)

		done, err = resolver.WriteRefOrNull(buf, ptr)
		require.NoError(t, err)
		require.True(t, done)

		require.Equal(t, RefValueFlag, buf.ReadInt8())
		require.Equal(t, RefFlag, buf.ReadInt8())
		require.Equal(t, uint32(0), buf.ReadVarUint32())
		require.NoError(t, buf.Err())
	})

	t.Run("nil writes null flag", func(t *testing.T) {
		resolver := NewRefResolver(true)
		buf := NewByteBuffer(nil)
		var p *int

		done, err := resolver.WriteRefOrNull(buf, reflect.ValueOf(p))
		require.NoError(t, err)
		require.True(t, done)
		require.Equal(t, NullFlag, buf.ReadInt8())
	})

	t.Run("tracking disabled writes not-null flag only", func(t *testing.T) {
		resolver := NewRefResolver(false)
		buf := NewByteBuffer(nil)
		v := 42
		ptr := reflect.ValueOf(&v)

		for i := 0; i < 2; i++ {
			done, err := resolver.WriteRefOrNull(buf, ptr)
			require.NoError(t, err)
			require.False(t, done)
		}
		require.Equal(t, NotNullValueFlag, buf.ReadInt8())
		require.Equal(t, NotNullValueFlag, buf.ReadInt8())
	})

	t.Run("struct value consumes an id without back references", func(t *testing.T) {
		resolver := NewRefResolver(true)
		buf := NewByteBuffer(nil)
		type point struct{ X int32 }

		for i := 0; i < 2; i++ {
			done, err := resolver.WriteRefOrNull(buf, reflect.ValueOf(point{X: 1}))
			require.NoError(t, err)
			require.False(t, done)
			require.Equal(t, RefValueFlag, buf.ReadInt8())
		}

		// both structs consumed ids, so the next tracked object gets id 2
		v := 5
		ptr := reflect.ValueOf(&v)
		done, err := resolver.WriteRefOrNull(buf, ptr)
		require.NoError(t, err)
		require.False(t, done)
		done, err = resolver.WriteRefOrNull(buf, ptr)
		require.NoError(t, err)
		require.True(t, done)
		require.Equal(t, RefValueFlag, buf.ReadInt8())
		require.Equal(t, RefFlag, buf.ReadInt8())
		require.Equal(t, uint32(2), buf.ReadVarUint32())
		require.NoError(t, buf.Err())
	})

	t.Run("same array different slice lengths are distinct", func(t *testing.T) {
		resolver := NewRefResolver(true)
		buf := NewByteBuffer(nil)
		backing := []int{1, 2, 3}

		done, err := resolver.WriteRefOrNull(buf, reflect.ValueOf(backing))
		require.NoError(t, err)
		require.False(t, done)

		done, err = resolver.WriteRefOrNull(buf, reflect.ValueOf(backing[:2]))
		require.NoError(t, err)
		require.False(t, done)

		require.Equal(t, RefValueFlag, buf.ReadInt8())
		require.Equal(t, RefValueFlag, buf.ReadInt8())
	})
}

func TestTryPreserveRefId(t *testing.T) {
	t.Run("first occurrence preserves fresh id", func(t *testing.T) {
		resolver := NewRefResolver(true)
		buf := NewByteBuffer(nil)
		buf.WriteInt8(RefValueFlag)
		buf.WriteInt8(RefValueFlag)

		refId, err := resolver.TryPreserveRefId(buf)
		require.NoError(t, err)
		require.Equal(t, int32(0), refId)

		refId, err = resolver.TryPreserveRefId(buf)
		require.NoError(t, err)
		require.Equal(t, int32(1), refId)
	})

	t.Run("back reference resolves recorded object", func(t *testing.T) {
		resolver := NewRefResolver(true)
		buf := NewByteBuffer(nil)
		buf.WriteInt8(RefValueFlag)
		buf.WriteInt8(RefFlag)
		buf.WriteVarUint32(0)

		refId, err := resolver.TryPreserveRefId(buf)
		require.NoError(t, err)
		v := 7
		resolver.SetReadObject(refId, reflect.ValueOf(&v))

		refId, err = resolver.TryPreserveRefId(buf)
		require.NoError(t, err)
		require.Less(t, refId, int32(NotNullValueFlag))
		got := resolver.GetReadObject(refId)
		require.Equal(t, 7, got.Elem().Interface())
	})

	t.Run("dangling ref id fails", func(t *testing.T) {
		resolver := NewRefResolver(true)
		buf := NewByteBuffer(nil)
		buf.WriteInt8(RefFlag)
		buf.WriteVarUint32(5)

		_, err := resolver.TryPreserveRefId(buf)
		require.True(t, errors.Is(err, ErrDanglingReference))
	})

	t.Run("null and not-null flags pass through", func(t *testing.T) {
		resolver := NewRefResolver(true)
		buf := NewByteBuffer(nil)
		buf.WriteInt8(NullFlag)
		buf.WriteInt8(NotNullValueFlag)

		refId, err := resolver.TryPreserveRefId(buf)
		require.NoError(t, err)
		require.Equal(t, int32(NullFlag), refId)

		refId, err = resolver.TryPreserveRefId(buf)
		require.NoError(t, err)
		require.Equal(t, int32(NotNullValueFlag), refId)
	})
}

func TestReferenceBindsPreservedId(t *testing.T) {
	resolver := NewRefResolver(true)
	buf := NewByteBuffer(nil)
	buf.WriteInt8(RefValueFlag)

	refId, err := resolver.TryPreserveRefId(buf)
	require.NoError(t, err)

	// containers register themselves before reading nested values so cycles
	// back to the container resolve mid construction
	v := []int{1}
	resolver.Reference(reflect.ValueOf(v))
	got := resolver.GetReadObject(refId)
	require.True(t, got.IsValid())
	require.Equal(t, v, got.Interface())
}

func TestRefResolverReset(t *testing.T) {
	resolver := NewRefResolver(true)
	buf := NewByteBuffer(nil)
	v := 42
	ptr := reflect.ValueOf(&v)

	done, err := resolver.WriteRefOrNull(buf, ptr)
	require.NoError(t, err)
	require.False(t, done)

	resolver.resetWrite()

	// after reset the same pointer is a first occurrence again
	done, err = resolver.WriteRefOrNull(buf, ptr)
	require.NoError(t, err)
	require.False(t, done)
}
