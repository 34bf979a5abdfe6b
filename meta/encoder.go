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
	"fmt"
)

// Encoder encodes strings into MetaString values. The two special chars
// parameterize the LOWER_UPPER_DIGIT_SPECIAL charset: namespaces use
// ('.', '_'), type names use ('$', '_').
type Encoder struct {
	specialChar1 byte
	specialChar2 byte
}

func NewEncoder(specialCh1 byte, specialCh2 byte) *Encoder {
	return &Encoder{
		specialChar1: specialCh1,
		specialChar2: specialCh2,
	}
}

var allEncodings = []Encoding{
	LOWER_SPECIAL,
	LOWER_UPPER_DIGIT_SPECIAL,
	FIRST_TO_LOWER_SPECIAL,
	ALL_TO_LOWER_SPECIAL,
	UTF_8,
}

// Encode picks the most compact encoding for input and encodes it.
func (e *Encoder) Encode(input string) (MetaString, error) {
	return e.EncodeWithEncoding(input, e.ComputeEncoding(input))
}

// EncodeWithEncoding encodes input using the given encoding.
func (e *Encoder) EncodeWithEncoding(input string, encoding Encoding) (MetaString, error) {
	if len(input) > 32767 {
		return MetaString{}, fmt.Errorf("long meta string is not allowed, length: %d", len(input))
	}
	if len(input) == 0 {
		return MetaString{
			inputString:  input,
			encoding:     encoding,
			specialChar1: e.specialChar1,
			specialChar2: e.specialChar2,
			encodedBytes: nil,
		}, nil
	}
	var encoded []byte
	var err error
	switch encoding {
	case LOWER_SPECIAL:
		encoded, err = e.EncodeLowerSpecial(input)
	case LOWER_UPPER_DIGIT_SPECIAL:
		encoded, err = e.EncodeLowerUpperDigitSpecial(input)
	case FIRST_TO_LOWER_SPECIAL:
		encoded, err = e.EncodeFirstToLowerSpecial(input)
	case ALL_TO_LOWER_SPECIAL:
		encoded, err = e.EncodeAllToLowerSpecial(input)
	case UTF_8:
		encoded = []byte(input)
	default:
		return MetaString{}, fmt.Errorf("unsupported encoding: %d", encoding)
	}
	if err != nil {
		return MetaString{}, err
	}
	return MetaString{
		inputString:  input,
		encoding:     encoding,
		specialChar1: e.specialChar1,
		specialChar2: e.specialChar2,
		encodedBytes: encoded,
	}, nil
}

// ComputeEncoding returns the most compact encoding able to represent input.
func (e *Encoder) ComputeEncoding(input string) Encoding {
	return e.ComputeEncodingWith(input, allEncodings)
}

// ComputeEncodingWith returns the most compact encoding able to represent
// input among the given candidates, falling back to UTF_8.
func (e *Encoder) ComputeEncodingWith(input string, candidates []Encoding) Encoding {
	allowed := func(enc Encoding) bool {
		for _, c := range candidates {
			if c == enc {
				return true
			}
		}
		return false
	}
	if len(input) == 0 {
		return UTF_8
	}
	stats := e.computeStatistics(input)
	if stats.canLowerSpecial && allowed(LOWER_SPECIAL) {
		return LOWER_SPECIAL
	}
	if stats.canAllToLower && stats.digitCount == 0 {
		if stats.upperCount == 1 && input[0] >= 'A' && input[0] <= 'Z' && allowed(FIRST_TO_LOWER_SPECIAL) {
			return FIRST_TO_LOWER_SPECIAL
		}
		if allowed(ALL_TO_LOWER_SPECIAL) {
			// "|x" escapes cost 10 bits per upper char, compare with 6 bits/char
			if !stats.canLowerUpperDigit || !allowed(LOWER_UPPER_DIGIT_SPECIAL) ||
				(len(input)+stats.upperCount)*5 <= len(input)*6 {
				return ALL_TO_LOWER_SPECIAL
			}
		}
	}
	if stats.canLowerUpperDigit && allowed(LOWER_UPPER_DIGIT_SPECIAL) {
		return LOWER_UPPER_DIGIT_SPECIAL
	}
	return UTF_8
}

// EncodeLowerSpecial encodes input at 5 bits/char from the a-z . _ $ | charset.
func (e *Encoder) EncodeLowerSpecial(input string) ([]byte, error) {
	return e.encodeGeneric([]byte(input), 5)
}

// EncodeLowerUpperDigitSpecial encodes input at 6 bits/char from the
// a-z A-Z 0-9 charset extended with the encoder's two special chars.
func (e *Encoder) EncodeLowerUpperDigitSpecial(input string) ([]byte, error) {
	return e.encodeGeneric([]byte(input), 6)
}

// EncodeFirstToLowerSpecial lowers the leading upper-case char and encodes
// the result as LOWER_SPECIAL.
func (e *Encoder) EncodeFirstToLowerSpecial(input string) ([]byte, error) {
	chars := []byte(input)
	if len(chars) == 0 || chars[0] < 'A' || chars[0] > 'Z' {
		return nil, fmt.Errorf("FIRST_TO_LOWER_SPECIAL requires a leading upper-case char: %q", input)
	}
	chars[0] = chars[0] - 'A' + 'a'
	return e.encodeGeneric(chars, 5)
}

// EncodeAllToLowerSpecial escapes each upper-case char as "|x" and encodes
// the result as LOWER_SPECIAL.
func (e *Encoder) EncodeAllToLowerSpecial(input string) ([]byte, error) {
	upperCount := 0
	for i := 0; i < len(input); i++ {
		if input[i] >= 'A' && input[i] <= 'Z' {
			upperCount++
		}
	}
	chars := make([]byte, 0, len(input)+upperCount)
	for i := 0; i < len(input); i++ {
		c := input[i]
		if c >= 'A' && c <= 'Z' {
			chars = append(chars, '|', c-'A'+'a')
		} else {
			chars = append(chars, c)
		}
	}
	return e.encodeGeneric(chars, 5)
}

// encodeGeneric bit-packs chars MSB-first after a leading strip-last-char
// flag bit. The flag is set when the trailing padding spans a full char,
// so the decoder drops the phantom char the padding would otherwise yield.
func (e *Encoder) encodeGeneric(chars []byte, bitsPerChar int) ([]byte, error) {
	totalBits := len(chars)*bitsPerChar + 1
	byteLength := (totalBits + 7) / 8
	result := make([]byte, byteLength)
	currentBit := 1
	for _, c := range chars {
		var value byte
		var err error
		if bitsPerChar == 5 {
			value, err = charToValueLowerSpecial(c)
		} else {
			value, err = e.charToValueLowerUpperDigitSpecial(c)
		}
		if err != nil {
			return nil, err
		}
		for i := bitsPerChar - 1; i >= 0; i-- {
			if value&(1<<i) != 0 {
				result[currentBit/8] |= 0x80 >> (currentBit % 8)
			}
			currentBit++
		}
	}
	if byteLength*8 >= totalBits+bitsPerChar {
		result[0] |= 0x80
	}
	return result, nil
}

type stringStatistics struct {
	digitCount         int
	upperCount         int
	canLowerSpecial    bool
	canLowerUpperDigit bool
	canAllToLower      bool
}

func (e *Encoder) computeStatistics(input string) stringStatistics {
	stats := stringStatistics{
		canLowerSpecial:    true,
		canLowerUpperDigit: true,
		canAllToLower:      true,
	}
	for i := 0; i < len(input); i++ {
		c := input[i]
		isLower := c >= 'a' && c <= 'z'
		isUpper := c >= 'A' && c <= 'Z'
		isDigit := c >= '0' && c <= '9'
		if isDigit {
			stats.digitCount++
		}
		if isUpper {
			stats.upperCount++
		}
		if stats.canLowerSpecial {
			if !isLower && c != '.' && c != '_' && c != '$' && c != '|' {
				stats.canLowerSpecial = false
			}
		}
		if stats.canLowerUpperDigit {
			if !isLower && !isUpper && !isDigit && c != e.specialChar1 && c != e.specialChar2 {
				stats.canLowerUpperDigit = false
			}
		}
		if stats.canAllToLower {
			if !isLower && !isUpper && c != '.' && c != '_' && c != '$' && c != '|' {
				stats.canAllToLower = false
			}
		}
	}
	return stats
}

func charToValueLowerSpecial(c byte) (byte, error) {
	switch {
	case c >= 'a' && c <= 'z':
		return c - 'a', nil
	case c == '.':
		return 26, nil
	case c == '_':
		return 27, nil
	case c == '$':
		return 28, nil
	case c == '|':
		return 29, nil
	default:
		return 0, fmt.Errorf("char %q not in LOWER_SPECIAL charset", c)
	}
}

func (e *Encoder) charToValueLowerUpperDigitSpecial(c byte) (byte, error) {
	switch {
	case c >= 'a' && c <= 'z':
		return c - 'a', nil
	case c >= 'A' && c <= 'Z':
		return c - 'A' + 26, nil
	case c >= '0' && c <= '9':
		return c - '0' + 52, nil
	case c == e.specialChar1:
		return 62, nil
	case c == e.specialChar2:
		return 63, nil
	default:
		return 0, fmt.Errorf("char %q not in LOWER_UPPER_DIGIT_SPECIAL charset", c)
	}
}
