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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type point struct {
	X int32
	Y int32
}

type line struct {
	A point
	B point
}

type gPoint struct {
	X int32
}

// TestSerializePrimitives tests Serialize[T]/Deserialize[T] with primitives.
func TestSerializePrimitives(t *testing.T) {
	f := NewFory(WithRefTracking(true))

	t.Run("Bool", func(t *testing.T) {
		data, err := Serialize(f, true)
		require.NoError(t, err)
		result, err := Deserialize[bool](f, data)
		require.NoError(t, err)
		require.True(t, result)

		data, err = Serialize(f, false)
		require.NoError(t, err)
		result, err = Deserialize[bool](f, data)
		require.NoError(t, err)
		require.False(t, result)
	})

	t.Run("Int8", func(t *testing.T) {
		data, err := Serialize(f, int8(-42))
		require.NoError(t, err)
		result, err := Deserialize[int8](f, data)
		require.NoError(t, err)
		require.Equal(t, int8(-42), result)
	})

	t.Run("Int16", func(t *testing.T) {
		data, err := Serialize(f, int16(1234))
		require.NoError(t, err)
		result, err := Deserialize[int16](f, data)
		require.NoError(t, err)
		require.Equal(t, int16(1234), result)
	})

	t.Run("Int32", func(t *testing.T) {
		data, err := Serialize(f, int32(42))
		require.NoError(t, err)
		result, err := Deserialize[int32](f, data)
		require.NoError(t, err)
		require.Equal(t, int32(42), result)

		// Test negative
		data, err = Serialize(f, int32(-12345))
		require.NoError(t, err)
		result, err = Deserialize[int32](f, data)
		require.NoError(t, err)
		require.Equal(t, int32(-12345), result)
	})

	t.Run("Int64", func(t *testing.T) {
		data, err := Serialize(f, int64(9876543210))
		require.NoError(t, err)
		result, err := Deserialize[int64](f, data)
		require.NoError(t, err)
		require.Equal(t, int64(9876543210), result)
	})

	t.Run("Int", func(t *testing.T) {
		data, err := Serialize(f, -987654321)
		require.NoError(t, err)
		result, err := Deserialize[int](f, data)
		require.NoError(t, err)
		require.Equal(t, -987654321, result)
	})

	t.Run("Uint8", func(t *testing.T) {
		data, err := Serialize(f, uint8(255))
		require.NoError(t, err)
		result, err := Deserialize[uint8](f, data)
		require.NoError(t, err)
		require.Equal(t, uint8(255), result)
	})

	t.Run("Uint64", func(t *testing.T) {
		data, err := Serialize(f, uint64(18446744073709551615))
		require.NoError(t, err)
		result, err := Deserialize[uint64](f, data)
		require.NoError(t, err)
		require.Equal(t, uint64(18446744073709551615), result)
	})

	t.Run("Float32", func(t *testing.T) {
		data, err := Serialize(f, float32(3.14))
		require.NoError(t, err)
		result, err := Deserialize[float32](f, data)
		require.NoError(t, err)
		require.InDelta(t, float32(3.14), result, 0.001)
	})

	t.Run("Float64", func(t *testing.T) {
		data, err := Serialize(f, 2.71828)
		require.NoError(t, err)
		result, err := Deserialize[float64](f, data)
		require.NoError(t, err)
		require.InDelta(t, 2.71828, result, 0.00001)
	})
}

// TestSerializeStrings covers the three header encodings: ASCII and accented
// text stay Latin-1, everything else goes UTF-8.
func TestSerializeStrings(t *testing.T) {
	f := New()
	cases := []struct {
		name  string
		value string
	}{
		{"Empty", ""},
		{"ASCII", "hello fory"},
		{"Latin1", "Çüéâäàåçêëèïî"},
		{"Cyrillic", "Привет"},
		{"CJK", "こんにちは"},
		{"Surrogates", "𝄞🎵🎶"},
		{"Mixed", "Hello, 世界"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Serialize(f, tc.value)
			require.NoError(t, err)
			result, err := Deserialize[string](f, data)
			require.NoError(t, err)
			require.Equal(t, tc.value, result)
		})
	}
}

func TestSerializeTime(t *testing.T) {
	f := New()

	t.Run("Timestamp", func(t *testing.T) {
		// Sub-microsecond precision does not survive the wire, so the input
		// carries none.
		original := time.Date(2024, 3, 15, 10, 30, 0, 123456000, time.UTC)
		data, err := Serialize(f, original)
		require.NoError(t, err)
		result, err := Deserialize[time.Time](f, data)
		require.NoError(t, err)
		require.True(t, result.Equal(original), "got %v, want %v", result, original)
	})

	t.Run("Duration", func(t *testing.T) {
		data, err := Serialize(f, 90*time.Minute+3*time.Nanosecond)
		require.NoError(t, err)
		result, err := Deserialize[time.Duration](f, data)
		require.NoError(t, err)
		require.Equal(t, 90*time.Minute+3*time.Nanosecond, result)
	})

	t.Run("Date", func(t *testing.T) {
		for _, original := range []Date{
			{Year: 2024, Month: time.March, Day: 15},
			{Year: 1970, Month: time.January, Day: 1},
			{Year: 1969, Month: time.December, Day: 31},
			{Year: 1903, Month: time.June, Day: 2},
		} {
			data, err := Serialize(f, original)
			require.NoError(t, err)
			result, err := Deserialize[Date](f, data)
			require.NoError(t, err)
			require.Equal(t, original, result)
		}
	})
}

func TestSerializeSlices(t *testing.T) {
	f := New()

	t.Run("Int32Slice", func(t *testing.T) {
		original := []int32{1, -2, 3, -4, 5}
		data, err := Serialize(f, original)
		require.NoError(t, err)
		result, err := Deserialize[[]int32](f, data)
		require.NoError(t, err)
		require.Equal(t, original, result)
	})

	t.Run("StringSlice", func(t *testing.T) {
		original := []string{"a", "bb", "ccc"}
		data, err := Serialize(f, original)
		require.NoError(t, err)
		result, err := Deserialize[[]string](f, data)
		require.NoError(t, err)
		require.Equal(t, original, result)
	})

	t.Run("ByteSlice", func(t *testing.T) {
		original := []byte{0x00, 0x7F, 0xFF}
		data, err := Serialize(f, original)
		require.NoError(t, err)
		result, err := Deserialize[[]byte](f, data)
		require.NoError(t, err)
		require.Equal(t, original, result)
	})

	t.Run("EmptySlice", func(t *testing.T) {
		data, err := Serialize(f, []int32{})
		require.NoError(t, err)
		result, err := Deserialize[[]int32](f, data)
		require.NoError(t, err)
		require.Len(t, result, 0)
	})

	t.Run("NilSlice", func(t *testing.T) {
		data, err := Serialize(f, []int32(nil))
		require.NoError(t, err)
		result, err := Deserialize[[]int32](f, data)
		require.NoError(t, err)
		require.Nil(t, result)
	})
}

func TestSerializeMaps(t *testing.T) {
	f := New()

	t.Run("StringInt32", func(t *testing.T) {
		original := map[string]int32{"a": 1, "b": 2, "c": 3}
		data, err := Serialize(f, original)
		require.NoError(t, err)
		result, err := Deserialize[map[string]int32](f, data)
		require.NoError(t, err)
		require.Equal(t, original, result)
	})

	t.Run("Int64String", func(t *testing.T) {
		original := map[int64]string{-1: "neg", 0: "zero", 1: "one"}
		data, err := Serialize(f, original)
		require.NoError(t, err)
		result, err := Deserialize[map[int64]string](f, data)
		require.NoError(t, err)
		require.Equal(t, original, result)
	})

	t.Run("EmptyMap", func(t *testing.T) {
		data, err := Serialize(f, map[string]int32{})
		require.NoError(t, err)
		result, err := Deserialize[map[string]int32](f, data)
		require.NoError(t, err)
		require.Len(t, result, 0)
	})

	t.Run("NilMap", func(t *testing.T) {
		data, err := Serialize(f, map[string]int32(nil))
		require.NoError(t, err)
		result, err := Deserialize[map[string]int32](f, data)
		require.NoError(t, err)
		require.Nil(t, result)
	})
}

func TestSerializeStructs(t *testing.T) {
	t.Run("ById", func(t *testing.T) {
		f := New()
		require.NoError(t, f.RegisterStruct(point{}, 100))

		original := point{X: 3, Y: 4}
		data, err := Serialize(f, original)
		require.NoError(t, err)
		result, err := Deserialize[point](f, data)
		require.NoError(t, err)
		require.Equal(t, original, result)
	})

	t.Run("ByName", func(t *testing.T) {
		f := New()
		require.NoError(t, f.RegisterNamedStruct(point{}, "geo", "point"))

		original := point{X: -7, Y: 9}
		data, err := Serialize(f, original)
		require.NoError(t, err)
		result, err := Deserialize[point](f, data)
		require.NoError(t, err)
		require.Equal(t, original, result)
	})

	t.Run("PointerRoot", func(t *testing.T) {
		f := New()
		require.NoError(t, f.RegisterStruct(point{}, 100))

		original := &point{X: 1, Y: 2}
		data, err := Serialize(f, original)
		require.NoError(t, err)
		result, err := Deserialize[*point](f, data)
		require.NoError(t, err)
		require.Equal(t, original, result)
	})

	t.Run("NilPointerRoot", func(t *testing.T) {
		f := New()
		require.NoError(t, f.RegisterStruct(point{}, 100))

		data, err := Serialize(f, (*point)(nil))
		require.NoError(t, err)
		result, err := Deserialize[*point](f, data)
		require.NoError(t, err)
		require.Nil(t, result)
	})

	t.Run("Nested", func(t *testing.T) {
		f := New()
		require.NoError(t, f.RegisterStruct(point{}, 100))
		require.NoError(t, f.RegisterStruct(line{}, 101))

		original := line{A: point{X: 0, Y: 0}, B: point{X: 10, Y: -10}}
		data, err := Serialize(f, original)
		require.NoError(t, err)
		result, err := Deserialize[line](f, data)
		require.NoError(t, err)
		require.Equal(t, original, result)
	})

	t.Run("Unregistered", func(t *testing.T) {
		f := New()
		_, err := f.Marshal(point{X: 1, Y: 2})
		require.ErrorIs(t, err, ErrUnknownType)
	})
}

// TestPointWireFormat pins the schema-consistent byte layout of a registered
// struct root: header, ref flag, type descriptor, structural hash, then the
// zigzag-encoded fields in wire order.
func TestPointWireFormat(t *testing.T) {
	f := New()
	require.NoError(t, f.RegisterStruct(point{}, 100))

	data, err := f.Marshal(point{X: 3, Y: 4})
	require.NoError(t, err)
	require.Len(t, data, 13)

	expectBitmap := byte(XLangFlag)
	if nativeEndian == binary.LittleEndian {
		expectBitmap |= LittleEndianFlag
	}
	require.Equal(t, []byte{0xD4, 0x62, expectBitmap, GO}, data[:4])
	require.Equal(t, RefValueFlag, int8(data[4]))
	require.Equal(t, byte(STRUCT), data[5])
	require.Equal(t, byte(100), data[6])
	hash := int32(binary.LittleEndian.Uint32(data[7:11]))
	require.NotZero(t, hash)
	require.Equal(t, byte(0x06), data[11])
	require.Equal(t, byte(0x08), data[12])

	// The hash depends only on the field layout, so a second instance
	// produces identical bytes.
	g := New()
	require.NoError(t, g.RegisterStruct(point{}, 100))
	again, err := g.Marshal(point{X: 3, Y: 4})
	require.NoError(t, err)
	require.Equal(t, data, again)

	result, err := Deserialize[point](f, data)
	require.NoError(t, err)
	require.Equal(t, point{X: 3, Y: 4}, result)

	t.Run("TrackingDisabled", func(t *testing.T) {
		h := New(WithRefTracking(false))
		require.NoError(t, h.RegisterStruct(point{}, 100))
		plain, err := h.Marshal(point{X: 3, Y: 4})
		require.NoError(t, err)
		require.Len(t, plain, 13)
		require.Equal(t, NotNullValueFlag, int8(plain[4]))
		require.Equal(t, data[5:], plain[5:])
	})
}

func TestNilRoot(t *testing.T) {
	f := New()
	data, err := SerializeAny(f, nil)
	require.NoError(t, err)
	result, err := DeserializeAny(f, data)
	require.NoError(t, err)
	require.Nil(t, result)
}

// TestDeserializeAny checks stream-driven decoding: the concrete type comes
// from the type descriptor, and struct payloads surface as pointers.
func TestDeserializeAny(t *testing.T) {
	f := New()
	require.NoError(t, f.RegisterStruct(point{}, 100))

	t.Run("Primitive", func(t *testing.T) {
		data, err := Serialize(f, int32(41))
		require.NoError(t, err)
		result, err := DeserializeAny(f, data)
		require.NoError(t, err)
		require.Equal(t, int32(41), result)
	})

	t.Run("String", func(t *testing.T) {
		data, err := Serialize(f, "any")
		require.NoError(t, err)
		result, err := DeserializeAny(f, data)
		require.NoError(t, err)
		require.Equal(t, "any", result)
	})

	t.Run("Struct", func(t *testing.T) {
		data, err := Serialize(f, point{X: 5, Y: 6})
		require.NoError(t, err)
		result, err := DeserializeAny(f, data)
		require.NoError(t, err)
		require.Equal(t, &point{X: 5, Y: 6}, result)
	})
}

func TestHeaderErrors(t *testing.T) {
	f := New()
	data, err := Serialize(f, "some payload long enough to truncate")
	require.NoError(t, err)

	t.Run("BadMagic", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[0] ^= 0xFF
		_, err := Deserialize[string](f, bad)
		require.ErrorIs(t, err, ErrMagicNumber)
	})

	t.Run("Truncated", func(t *testing.T) {
		_, err := Deserialize[string](f, data[:len(data)-5])
		require.ErrorIs(t, err, ErrInvalidData)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := Deserialize[string](f, nil)
		require.ErrorIs(t, err, ErrInvalidData)
	})
}

func TestDeserializeTargetValidation(t *testing.T) {
	f := New()
	data, err := Serialize(f, int32(1))
	require.NoError(t, err)

	require.ErrorContains(t, f.Unmarshal(data, nil), "non-nil pointer")
	require.ErrorContains(t, f.Unmarshal(data, int32(0)), "non-nil pointer")
	require.ErrorContains(t, f.Unmarshal(data, (*int32)(nil)), "non-nil pointer")
}

// TestInstanceReuse checks that per-stream state resets between calls: the
// same value encodes to the same bytes, and reads interleave with writes.
func TestInstanceReuse(t *testing.T) {
	f := New()
	require.NoError(t, f.RegisterStruct(point{}, 100))

	v := point{X: 8, Y: 16}
	first, err := f.Marshal(v)
	require.NoError(t, err)
	second, err := f.Marshal(v)
	require.NoError(t, err)
	require.Equal(t, first, second)

	var got point
	require.NoError(t, f.Unmarshal(first, &got))
	require.Equal(t, v, got)

	third, err := f.Marshal(point{X: -1, Y: -2})
	require.NoError(t, err)
	var other point
	require.NoError(t, f.Unmarshal(third, &other))
	require.Equal(t, point{X: -1, Y: -2}, other)
}

func TestThreadSafeFory(t *testing.T) {
	tsf := NewThreadSafe()
	require.NoError(t, tsf.RegisterStruct(point{}, 100))

	t.Run("RoundTrip", func(t *testing.T) {
		data, err := SerializeTS(tsf, point{X: 2, Y: 3})
		require.NoError(t, err)
		result, err := DeserializeTS[point](tsf, data)
		require.NoError(t, err)
		require.Equal(t, point{X: 2, Y: 3}, result)
	})

	// Registrations replay onto every pooled instance, so concurrent callers
	// never observe a pool entry without the type bound.
	t.Run("Concurrent", func(t *testing.T) {
		const workers = 8
		const rounds = 25
		errs := make(chan error, workers)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(seed int32) {
				defer wg.Done()
				for i := int32(0); i < rounds; i++ {
					v := point{X: seed, Y: i}
					data, err := tsf.Serialize(v)
					if err != nil {
						errs <- err
						return
					}
					var got point
					if err := tsf.Deserialize(data, &got); err != nil {
						errs <- err
						return
					}
					if got != v {
						errs <- fmt.Errorf("round trip changed %v to %v", v, got)
						return
					}
				}
			}(int32(w))
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
	})

	t.Run("DuplicateIdRejected", func(t *testing.T) {
		err := tsf.RegisterStruct(line{}, 100)
		require.ErrorIs(t, err, ErrDuplicateRegistration)

		// The failed registration must not poison later instances.
		data, err := tsf.Serialize(point{X: 1, Y: 1})
		require.NoError(t, err)
		var got point
		require.NoError(t, tsf.Deserialize(data, &got))
		require.Equal(t, point{X: 1, Y: 1}, got)
	})
}

func TestGlobalInstance(t *testing.T) {
	// Repeated runs in one process hit the duplicate check; only a fresh
	// registration must succeed.
	if err := Global().RegisterStruct(gPoint{}, 990); err != nil {
		require.ErrorIs(t, err, ErrDuplicateRegistration)
	}

	data, err := Marshal(gPoint{X: 12})
	require.NoError(t, err)
	result, err := Unmarshal[gPoint](data)
	require.NoError(t, err)
	require.Equal(t, gPoint{X: 12}, result)

	var target gPoint
	require.NoError(t, UnmarshalTo(data, &target))
	require.Equal(t, gPoint{X: 12}, target)
}
