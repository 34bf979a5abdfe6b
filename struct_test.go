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
	"testing"

	"github.com/stretchr/testify/require"
)

type orderRecord struct {
	M    map[string]int32
	S    []string
	Name string
	B    bool
	D    float64
	I    int32
	L    int64
	P    *int32
	Q    *int64
}

type boxedOrderRecord struct {
	A *int32
	B int32
	C *int64
	D int64
}

type hashRecordA struct {
	Name  string
	Count int32
}

type hashRecordB struct {
	Count int32
	Name  string
}

type hashRecordC struct {
	Name  *string
	Count int32
}

type hashRecordD struct {
	Title string
	Count int32
}

type mismatchV1 struct {
	A int32
	B string
}

type mismatchV2 struct {
	A int32
}

type refItem struct {
	V int32
}

type refPair struct {
	L *refItem
	R *refItem
}

type cnode struct {
	Label string
	Next  *cnode
}

type evoV1 struct {
	Name string
}

type evoV2 struct {
	Name string
	Age  int32
}

type evoV2R struct {
	Age  int32
	Name string
}

type secretRecord struct {
	Code  int32
	Label string
}

// TestFieldWireOrder checks that struct fields serialize in the canonical
// order: non-nullable primitives (fixed width by descending size, then
// compressed), nullable primitives in the same internal order, then
// single-type values, then lists, then maps, with names breaking ties.
func TestFieldWireOrder(t *testing.T) {
	f := NewFory(WithRefTracking(true))
	fieldOrder := func(v interface{}) []string {
		defs, err := buildFieldDefs(f.TypeResolver(), reflect.TypeOf(v))
		require.NoError(t, err)
		names := make([]string, len(defs))
		for i, def := range defs {
			names[i] = def.name
		}
		return names
	}

	t.Run("AllGroups", func(t *testing.T) {
		require.Equal(t,
			[]string{"d", "b", "l", "i", "q", "p", "name", "s", "m"},
			fieldOrder(orderRecord{}))
	})

	t.Run("PointerPrimitivesAfterPlain", func(t *testing.T) {
		require.Equal(t, []string{"d", "b", "c", "a"}, fieldOrder(boxedOrderRecord{}))
	})
}

func TestStructHash(t *testing.T) {
	f := NewFory(WithRefTracking(true))
	resolver := f.TypeResolver()

	hashOf := func(v interface{}) int32 {
		defs, err := buildFieldDefs(resolver, reflect.TypeOf(v))
		require.NoError(t, err)
		return structHashFromDefs(defs)
	}

	t.Run("DeclarationOrderIrrelevant", func(t *testing.T) {
		require.Equal(t, hashOf(hashRecordA{}), hashOf(hashRecordB{}))
	})

	t.Run("NullabilityChangesHash", func(t *testing.T) {
		require.NotEqual(t, hashOf(hashRecordA{}), hashOf(hashRecordC{}))
	})

	t.Run("FieldNameChangesHash", func(t *testing.T) {
		require.NotEqual(t, hashOf(hashRecordA{}), hashOf(hashRecordD{}))
	})

	t.Run("NeverZero", func(t *testing.T) {
		require.NotZero(t, hashOf(hashRecordA{}))
		require.NotZero(t, hashOf(struct{}{}))
	})
}

func TestSchemaHashMismatch(t *testing.T) {
	writer := NewFory(WithRefTracking(true))
	require.NoError(t, writer.RegisterStruct(mismatchV1{}, 50))
	data, err := writer.Marshal(mismatchV1{A: 1, B: "x"})
	require.NoError(t, err)

	reader := NewFory(WithRefTracking(true))
	require.NoError(t, reader.RegisterStruct(mismatchV2{}, 50))
	var out mismatchV2
	err = reader.Unmarshal(data, &out)
	require.ErrorIs(t, err, ErrSchemaHashMismatch)
}

// TestSharedReferences checks that two pointers to the same object serialize
// as one object plus a back reference and come back aliased.
func TestSharedReferences(t *testing.T) {
	f := NewFory(WithRefTracking(true))
	require.NoError(t, f.RegisterStruct(refItem{}, 51))
	require.NoError(t, f.RegisterStruct(refPair{}, 52))

	item := &refItem{V: 7}
	data, err := f.Marshal(refPair{L: item, R: item})
	require.NoError(t, err)

	var got refPair
	require.NoError(t, f.Unmarshal(data, &got))
	require.NotNil(t, got.L)
	require.Same(t, got.L, got.R)
	require.Equal(t, int32(7), got.L.V)
}

func TestCyclicGraph(t *testing.T) {
	f := NewFory(WithRefTracking(true))
	require.NoError(t, f.RegisterStruct(cnode{}, 53))

	t.Run("SelfCycle", func(t *testing.T) {
		n := &cnode{Label: "a"}
		n.Next = n
		data, err := f.Marshal(n)
		require.NoError(t, err)

		var got *cnode
		require.NoError(t, f.Unmarshal(data, &got))
		require.Equal(t, "a", got.Label)
		require.Same(t, got, got.Next)
	})

	t.Run("TwoNodeCycle", func(t *testing.T) {
		a := &cnode{Label: "a"}
		b := &cnode{Label: "b"}
		a.Next, b.Next = b, a
		data, err := f.Marshal(a)
		require.NoError(t, err)

		var got *cnode
		require.NoError(t, f.Unmarshal(data, &got))
		require.Equal(t, "a", got.Label)
		require.Equal(t, "b", got.Next.Label)
		require.Same(t, got, got.Next.Next)
	})
}

// TestRefTrackingDisabledCopies checks that without tracking, shared pointers
// serialize as independent copies.
func TestRefTrackingDisabledCopies(t *testing.T) {
	f := NewFory(WithRefTracking(false))
	require.NoError(t, f.RegisterStruct(refItem{}, 51))
	require.NoError(t, f.RegisterStruct(refPair{}, 52))

	item := &refItem{V: 9}
	data, err := f.Marshal(refPair{L: item, R: item})
	require.NoError(t, err)

	var got refPair
	require.NoError(t, f.Unmarshal(data, &got))
	require.NotNil(t, got.L)
	require.NotNil(t, got.R)
	require.NotSame(t, got.L, got.R)
	require.Equal(t, *got.L, *got.R)
}

func TestDepthLimit(t *testing.T) {
	f := NewFory(WithRefTracking(false), WithMaxDepth(8))
	require.NoError(t, f.RegisterStruct(cnode{}, 53))

	head := &cnode{Label: "0"}
	cur := head
	for i := 0; i < 20; i++ {
		cur.Next = &cnode{}
		cur = cur.Next
	}
	_, err := f.Marshal(head)
	require.ErrorIs(t, err, ErrDepthLimit)
}

// TestCompatibleEvolution checks schema evolution in compatible mode: each
// side reads with the writer's transmitted field layout, matching fields by
// name rather than by position or hash.
func TestCompatibleEvolution(t *testing.T) {
	t.Run("ReaderGainsField", func(t *testing.T) {
		writer := NewFory(WithCompatible(true))
		require.NoError(t, writer.RegisterStruct(evoV1{}, 60))
		data, err := writer.Marshal(evoV1{Name: "ada"})
		require.NoError(t, err)

		reader := NewFory(WithCompatible(true))
		require.NoError(t, reader.RegisterStruct(evoV2{}, 60))
		var got evoV2
		require.NoError(t, reader.Unmarshal(data, &got))
		require.Equal(t, "ada", got.Name)
		require.Zero(t, got.Age)
	})

	t.Run("ReaderLosesField", func(t *testing.T) {
		writer := NewFory(WithCompatible(true))
		require.NoError(t, writer.RegisterStruct(evoV2{}, 60))
		data, err := writer.Marshal(evoV2{Name: "ada", Age: 36})
		require.NoError(t, err)

		reader := NewFory(WithCompatible(true))
		require.NoError(t, reader.RegisterStruct(evoV1{}, 60))
		var got evoV1
		require.NoError(t, reader.Unmarshal(data, &got))
		require.Equal(t, "ada", got.Name)
	})

	t.Run("DeclarationOrderIrrelevant", func(t *testing.T) {
		writer := NewFory(WithCompatible(true))
		require.NoError(t, writer.RegisterStruct(evoV2{}, 60))
		data, err := writer.Marshal(evoV2{Name: "ada", Age: 36})
		require.NoError(t, err)

		reader := NewFory(WithCompatible(true))
		require.NoError(t, reader.RegisterStruct(evoV2R{}, 60))
		var got evoV2R
		require.NoError(t, reader.Unmarshal(data, &got))
		require.Equal(t, "ada", got.Name)
		require.Equal(t, int32(36), got.Age)
	})

	t.Run("DefinitionsDedupAcrossPayloads", func(t *testing.T) {
		writer := NewFory(WithCompatible(true))
		require.NoError(t, writer.RegisterStruct(evoV1{}, 60))
		first, err := writer.Marshal(evoV1{Name: "a"})
		require.NoError(t, err)
		second, err := writer.Marshal(evoV1{Name: "a"})
		require.NoError(t, err)
		require.Equal(t, first, second)

		reader := NewFory(WithCompatible(true))
		require.NoError(t, reader.RegisterStruct(evoV1{}, 60))
		for _, data := range [][]byte{first, second} {
			var got evoV1
			require.NoError(t, reader.Unmarshal(data, &got))
			require.Equal(t, "a", got.Name)
		}
	})
}

// TestUnknownStructCapture checks that compatible mode decodes a payload of
// an unregistered type into an UnknownStruct placeholder keyed by wire field
// names, and refuses to write it back out.
func TestUnknownStructCapture(t *testing.T) {
	writer := NewFory(WithCompatible(true))
	require.NoError(t, writer.RegisterNamedStruct(secretRecord{}, "vault", "secret_record"))
	data, err := writer.Marshal(secretRecord{Code: 7, Label: "classified"})
	require.NoError(t, err)

	reader := NewFory(WithCompatible(true))
	got, err := DeserializeAny(reader, data)
	require.NoError(t, err)

	us, ok := got.(*UnknownStruct)
	require.True(t, ok, "expected *UnknownStruct, got %T", got)
	require.Equal(t, "vault", us.Namespace)
	require.Equal(t, "secret_record", us.TypeName)
	require.Equal(t, int32(7), us.Fields["code"])
	require.Equal(t, "classified", us.Fields["label"])

	_, err = SerializeAny(reader, got)
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestConsistentModeUnregisteredRead(t *testing.T) {
	writer := NewFory(WithRefTracking(true))
	require.NoError(t, writer.RegisterStruct(point{}, 100))
	data, err := writer.Marshal(point{X: 1, Y: 2})
	require.NoError(t, err)

	reader := NewFory(WithRefTracking(true))

	t.Run("TypedTarget", func(t *testing.T) {
		var out point
		err := reader.Unmarshal(data, &out)
		require.ErrorIs(t, err, ErrUnknownType)
	})

	t.Run("InterfaceTarget", func(t *testing.T) {
		_, err := DeserializeAny(reader, data)
		require.ErrorIs(t, err, ErrUnknownType)
	})
}
