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
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/apache/fory-go/optional"
	"github.com/stretchr/testify/require"
)

type suit int32

const (
	clubs suit = iota
	diamonds
	hearts
	spades
)

type measure interface {
	Area() float64
}

type square struct {
	Side float64
}

func (s square) Area() float64 { return s.Side * s.Side }

type rectangle struct {
	W float64
	H float64
}

func (r rectangle) Area() float64 { return r.W * r.H }

type measureHolder struct {
	M measure
}

type stamp struct {
	Id int32
}

type stampCodec struct{}

func (stampCodec) Marshal(v interface{}) ([]byte, error) {
	s, ok := v.(stamp)
	if !ok {
		return nil, fmt.Errorf("expected stamp, got %T", v)
	}
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(s.Id))
	return out, nil
}

func (stampCodec) Unmarshal(data []byte) (interface{}, error) {
	if len(data) != 4 {
		return nil, fmt.Errorf("expected 4 bytes, got %d", len(data))
	}
	return stamp{Id: int32(binary.LittleEndian.Uint32(data))}, nil
}

type stockItem struct {
	Qty int32
}

type profile struct {
	Age  optional.Optional[int32]
	Nick optional.Optional[string]
}

func newMeasureFory(t *testing.T) *Fory {
	t.Helper()
	f := New()
	require.NoError(t, f.RegisterUnion((*measure)(nil), 130, square{}, rectangle{}))
	require.NoError(t, f.RegisterStruct(measureHolder{}, 131))
	// case payloads carry their own type info, so cases register too
	require.NoError(t, f.RegisterStruct(square{}, 132))
	require.NoError(t, f.RegisterStruct(rectangle{}, 133))
	return f
}

func TestEnumSerializer(t *testing.T) {
	newSuitFory := func(cases []suit) *Fory {
		f := New()
		require.NoError(t, RegisterEnum(f, 70, cases))
		return f
	}
	all := []suit{clubs, diamonds, hearts, spades}

	t.Run("RoundTrip", func(t *testing.T) {
		f := newSuitFory(all)
		for _, v := range all {
			data, err := Serialize(f, v)
			require.NoError(t, err)
			got, err := Deserialize[suit](f, data)
			require.NoError(t, err)
			require.Equal(t, v, got)
		}
	})

	t.Run("UnknownValueOnWrite", func(t *testing.T) {
		f := newSuitFory(all)
		_, err := Serialize(f, suit(99))
		require.ErrorIs(t, err, ErrInvalidEnumValue)
	})

	t.Run("OrdinalPastReaderCases", func(t *testing.T) {
		writer := newSuitFory(all)
		data, err := Serialize(writer, spades)
		require.NoError(t, err)

		reader := newSuitFory([]suit{clubs, diamonds})
		_, err = Deserialize[suit](reader, data)
		require.ErrorIs(t, err, ErrInvalidEnumValue)
	})

	t.Run("ByName", func(t *testing.T) {
		f := New()
		require.NoError(t, RegisterNamedEnum(f, "cards", "suit", all))
		data, err := Serialize(f, hearts)
		require.NoError(t, err)
		got, err := Deserialize[suit](f, data)
		require.NoError(t, err)
		require.Equal(t, hearts, got)
	})
}

func TestUnionSerializer(t *testing.T) {
	t.Run("RoundTripCases", func(t *testing.T) {
		f := newMeasureFory(t)
		for _, v := range []measureHolder{
			{M: &square{Side: 3}},
			{M: &rectangle{W: 2, H: 5}},
			{M: nil},
		} {
			data, err := Serialize(f, v)
			require.NoError(t, err)
			got, err := Deserialize[measureHolder](f, data)
			require.NoError(t, err)
			require.Equal(t, v, got)
		}
	})

	t.Run("UnlistedCaseRejected", func(t *testing.T) {
		f := New()
		require.NoError(t, f.RegisterUnion((*measure)(nil), 130, square{}))
		require.NoError(t, f.RegisterStruct(measureHolder{}, 131))
		require.NoError(t, f.RegisterStruct(square{}, 132))
		require.NoError(t, f.RegisterStruct(rectangle{}, 133))
		_, err := Serialize(f, measureHolder{M: rectangle{W: 1, H: 1}})
		require.ErrorIs(t, err, ErrUnknownType)
	})

	t.Run("CaseMustImplement", func(t *testing.T) {
		f := New()
		err := f.RegisterUnion((*measure)(nil), 130, stockItem{})
		require.Error(t, err)
	})

	t.Run("ByName", func(t *testing.T) {
		f := New()
		require.NoError(t, f.RegisterNamedUnion((*measure)(nil), "geo", "measure", square{}))
		require.NoError(t, f.RegisterNamedStruct(square{}, "geo", "square"))
		require.NoError(t, f.RegisterNamedStruct(measureHolder{}, "geo", "holder"))
		v := measureHolder{M: &square{Side: 4}}
		data, err := Serialize(f, v)
		require.NoError(t, err)
		got, err := Deserialize[measureHolder](f, data)
		require.NoError(t, err)
		require.Equal(t, v, got)
	})
}

func TestExtensionSerializer(t *testing.T) {
	t.Run("ById", func(t *testing.T) {
		f := New()
		require.NoError(t, f.RegisterExtension(stamp{}, 134, stampCodec{}))
		data, err := Serialize(f, stamp{Id: 99})
		require.NoError(t, err)
		got, err := Deserialize[stamp](f, data)
		require.NoError(t, err)
		require.Equal(t, stamp{Id: 99}, got)
	})

	t.Run("ByName", func(t *testing.T) {
		f := New()
		require.NoError(t, f.RegisterNamedExtension(stamp{}, "post", "stamp", stampCodec{}))
		data, err := Serialize(f, stamp{Id: -1})
		require.NoError(t, err)
		got, err := Deserialize[stamp](f, data)
		require.NoError(t, err)
		require.Equal(t, stamp{Id: -1}, got)
	})
}

func TestGenericSetRoundTrip(t *testing.T) {
	f := New()
	s := NewGenericSet(int32(1), int32(2), "three")
	data, err := Serialize(f, s)
	require.NoError(t, err)
	got, err := Deserialize[GenericSet](f, data)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.True(t, got.Contains(int32(1)))
	require.True(t, got.Contains(int32(2)))
	require.True(t, got.Contains("three"))
}

func TestOptionalFields(t *testing.T) {
	f := New()
	require.NoError(t, f.RegisterStruct(profile{}, 135))

	t.Run("SomeAndNone", func(t *testing.T) {
		v := profile{Age: optional.Some(int32(30)), Nick: optional.None[string]()}
		data, err := Serialize(f, v)
		require.NoError(t, err)
		got, err := Deserialize[profile](f, data)
		require.NoError(t, err)
		require.Equal(t, v, got)
	})

	t.Run("AllNone", func(t *testing.T) {
		data, err := Serialize(f, profile{})
		require.NoError(t, err)
		got, err := Deserialize[profile](f, data)
		require.NoError(t, err)
		require.Equal(t, profile{}, got)
	})
}

func TestHeterogeneousCollections(t *testing.T) {
	f := New()

	t.Run("MixedList", func(t *testing.T) {
		v := []interface{}{int32(1), "two", 3.5, true, nil}
		data, err := Serialize(f, v)
		require.NoError(t, err)
		got, err := Deserialize[[]interface{}](f, data)
		require.NoError(t, err)
		require.Equal(t, v, got)
	})

	t.Run("HomogeneousInterfaceList", func(t *testing.T) {
		v := []interface{}{int32(1), int32(2), int32(3)}
		data, err := Serialize(f, v)
		require.NoError(t, err)
		got, err := Deserialize[[]interface{}](f, data)
		require.NoError(t, err)
		require.Equal(t, v, got)
	})

	t.Run("MixedValueMap", func(t *testing.T) {
		v := map[string]interface{}{"n": int64(1), "s": "x", "f": 2.5}
		data, err := Serialize(f, v)
		require.NoError(t, err)
		got, err := Deserialize[map[string]interface{}](f, data)
		require.NoError(t, err)
		require.Equal(t, v, got)
	})
}

func TestMapChunking(t *testing.T) {
	t.Run("RunLengthCap", func(t *testing.T) {
		// more entries than one 255-capped run can hold
		f := New()
		v := make(map[int32]int32, 600)
		for i := int32(0); i < 600; i++ {
			v[i] = -i
		}
		data, err := Serialize(f, v)
		require.NoError(t, err)
		got, err := Deserialize[map[int32]int32](f, data)
		require.NoError(t, err)
		require.Equal(t, v, got)
	})

	t.Run("NullValuesForceSingleEntryChunks", func(t *testing.T) {
		f := New()
		require.NoError(t, f.RegisterStruct(stockItem{}, 136))
		v := map[string]*stockItem{"a": {Qty: 1}, "b": nil, "c": {Qty: 3}}
		data, err := Serialize(f, v)
		require.NoError(t, err)
		got, err := Deserialize[map[string]*stockItem](f, data)
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Nil(t, got["b"])
	})

	// Uniform entries share one chunk header per run; per-entry type changes
	// break the run every time, so the same entry count costs more bytes.
	t.Run("UniformRunsSmallerThanAlternating", func(t *testing.T) {
		f := New()
		uniform := make(map[int64]interface{}, 1000)
		alternating := make(map[int64]interface{}, 1000)
		for i := int64(0); i < 1000; i++ {
			uniform[i] = i
			if i%2 == 0 {
				alternating[i] = i
			} else {
				alternating[i] = fmt.Sprintf("%03d", i)
			}
		}
		uniformData, err := Serialize(f, uniform)
		require.NoError(t, err)
		alternatingData, err := Serialize(f, alternating)
		require.NoError(t, err)
		require.Less(t, len(uniformData), len(alternatingData))

		got, err := Deserialize[map[int64]interface{}](f, uniformData)
		require.NoError(t, err)
		require.Equal(t, uniform, got)
	})
}
