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

package meta

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeEncoding(t *testing.T) {
	nsEncoder := NewEncoder('.', '_')
	typeEncoder := NewEncoder('$', '_')

	require.Equal(t, LOWER_SPECIAL, typeEncoder.ComputeEncoding("point"))
	require.Equal(t, LOWER_SPECIAL, nsEncoder.ComputeEncoding("example.test"))
	require.Equal(t, FIRST_TO_LOWER_SPECIAL, typeEncoder.ComputeEncoding("Point"))
	// one escape keeps 5 bits/char cheaper than 6 bits/char
	require.Equal(t, ALL_TO_LOWER_SPECIAL, typeEncoder.ComputeEncoding("fooBar"))
	// two or more escapes tip the cost over 6 bits/char
	require.Equal(t, LOWER_UPPER_DIGIT_SPECIAL, typeEncoder.ComputeEncoding("FooBar"))
	require.Equal(t, LOWER_UPPER_DIGIT_SPECIAL, typeEncoder.ComputeEncoding("HTTPServer"))
	require.Equal(t, LOWER_UPPER_DIGIT_SPECIAL, typeEncoder.ComputeEncoding("UserV2"))
	require.Equal(t, UTF_8, typeEncoder.ComputeEncoding("日本語"))
	require.Equal(t, UTF_8, typeEncoder.ComputeEncoding(""))
}

func TestComputeEncodingWithCandidates(t *testing.T) {
	typeEncoder := NewEncoder('$', '_')
	fieldCandidates := []Encoding{UTF_8, ALL_TO_LOWER_SPECIAL, LOWER_UPPER_DIGIT_SPECIAL}

	// LOWER_SPECIAL is not a candidate, ALL_TO_LOWER_SPECIAL covers the
	// same charset at the same width when no upper-case chars are present
	require.Equal(t, ALL_TO_LOWER_SPECIAL, typeEncoder.ComputeEncodingWith("foo_bar", fieldCandidates))
	require.Equal(t, LOWER_UPPER_DIGIT_SPECIAL, typeEncoder.ComputeEncodingWith("field1", fieldCandidates))
	require.Equal(t, UTF_8, typeEncoder.ComputeEncodingWith("champ-é", fieldCandidates))
}

func TestBitPackingLayout(t *testing.T) {
	encoder := NewEncoder('$', '_')

	t.Run("lower special exact fit", func(t *testing.T) {
		// 1 flag bit + 3*5 bits fill two bytes exactly, no strip flag
		encoded, err := encoder.EncodeLowerSpecial("abc")
		require.NoError(t, err)
		require.Equal(t, []byte{0x00, 0x22}, encoded)
	})

	t.Run("lower special with strip flag", func(t *testing.T) {
		// 1 flag bit + 2*5 bits leave 5 padding bits, strip flag set
		encoded, err := encoder.EncodeLowerSpecial("ab")
		require.NoError(t, err)
		require.Equal(t, []byte{0x80, 0x20}, encoded)
	})

	t.Run("lower upper digit special", func(t *testing.T) {
		encoded, err := encoder.EncodeLowerUpperDigitSpecial("A1")
		require.NoError(t, err)
		require.Equal(t, []byte{0x35, 0xA8}, encoded)
	})
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		encoder  *Encoder
		decoder  *Decoder
		input    string
		encoding Encoding
	}{
		{"lower special", NewEncoder('$', '_'), NewDecoder('$', '_'), "point", LOWER_SPECIAL},
		{"namespace dots", NewEncoder('.', '_'), NewDecoder('.', '_'), "example.deep.pkg", LOWER_SPECIAL},
		{"first to lower", NewEncoder('$', '_'), NewDecoder('$', '_'), "Point", FIRST_TO_LOWER_SPECIAL},
		{"all to lower", NewEncoder('$', '_'), NewDecoder('$', '_'), "fooBar", ALL_TO_LOWER_SPECIAL},
		{"digits", NewEncoder('$', '_'), NewDecoder('$', '_'), "UserV2", LOWER_UPPER_DIGIT_SPECIAL},
		{"special chars", NewEncoder('$', '_'), NewDecoder('$', '_'), "Outer$Inner_x9", LOWER_UPPER_DIGIT_SPECIAL},
		{"utf8 fallback", NewEncoder('$', '_'), NewDecoder('$', '_'), "héllo-wörld", UTF_8},
		{"single char", NewEncoder('$', '_'), NewDecoder('$', '_'), "a", LOWER_SPECIAL},
		{"empty", NewEncoder('$', '_'), NewDecoder('$', '_'), "", UTF_8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ms, err := tc.encoder.Encode(tc.input)
			require.NoError(t, err)
			require.Equal(t, tc.encoding, ms.GetEncoding())
			decoded, err := tc.decoder.Decode(ms.GetEncodedBytes(), ms.GetEncoding())
			require.NoError(t, err)
			require.Equal(t, tc.input, decoded)
		})
	}
}

func TestRoundTripAllLengths(t *testing.T) {
	// exercise every padding amount around the strip-last-char boundary
	encoder := NewEncoder('.', '_')
	decoder := NewDecoder('.', '_')
	input := ""
	for i := 0; i < 20; i++ {
		input += string(rune('a' + i%26))
		ms, err := encoder.EncodeWithEncoding(input, LOWER_SPECIAL)
		require.NoError(t, err)
		decoded, err := decoder.Decode(ms.GetEncodedBytes(), LOWER_SPECIAL)
		require.NoError(t, err)
		require.Equal(t, input, decoded)
	}
}

func TestEncodeErrors(t *testing.T) {
	encoder := NewEncoder('$', '_')

	_, err := encoder.EncodeLowerSpecial("Ab")
	require.Error(t, err)

	_, err = encoder.EncodeLowerUpperDigitSpecial("a-b")
	require.Error(t, err)

	_, err = encoder.EncodeFirstToLowerSpecial("point")
	require.Error(t, err)

	_, err = encoder.EncodeWithEncoding("abc", Encoding(0x7F))
	require.Error(t, err)
}

func TestDecodeErrors(t *testing.T) {
	decoder := NewDecoder('$', '_')

	_, err := decoder.Decode([]byte{0x01}, Encoding(0x7F))
	require.Error(t, err)

	// a single zero byte is the canonical one-byte encoding of "a"
	decoded, err := decoder.Decode([]byte{0x00}, LOWER_SPECIAL)
	require.NoError(t, err)
	require.Equal(t, "a", decoded)
}
