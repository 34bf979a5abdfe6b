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

// Decoder decodes MetaString bytes back into strings. The special chars
// must match the ones the producing Encoder was built with.
type Decoder struct {
	specialChar1 byte
	specialChar2 byte
}

func NewDecoder(specialCh1 byte, specialCh2 byte) *Decoder {
	return &Decoder{
		specialChar1: specialCh1,
		specialChar2: specialCh2,
	}
}

// Decode decodes data encoded with the given encoding.
func (d *Decoder) Decode(data []byte, encoding Encoding) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	switch encoding {
	case LOWER_SPECIAL:
		return d.decodeGeneric(data, 5)
	case LOWER_UPPER_DIGIT_SPECIAL:
		return d.decodeGeneric(data, 6)
	case FIRST_TO_LOWER_SPECIAL:
		return d.decodeRepFirstLowerSpecial(data)
	case ALL_TO_LOWER_SPECIAL:
		return d.decodeRepAllToLowerSpecial(data)
	case UTF_8:
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported encoding: %d", encoding)
	}
}

// decodeGeneric unpacks chars written MSB-first after the leading
// strip-last-char flag bit.
func (d *Decoder) decodeGeneric(data []byte, bitsPerChar int) (string, error) {
	totalBits := len(data) * 8
	if data[0]&0x80 != 0 {
		totalBits -= bitsPerChar
	}
	chars := make([]byte, 0, (totalBits-1)/bitsPerChar)
	for i := 1; i+bitsPerChar <= totalBits; i += bitsPerChar {
		var value byte
		for j := 0; j < bitsPerChar; j++ {
			pos := i + j
			if data[pos/8]&(0x80>>(pos%8)) != 0 {
				value |= 1 << (bitsPerChar - 1 - j)
			}
		}
		var c byte
		var err error
		if bitsPerChar == 5 {
			c, err = valueToCharLowerSpecial(value)
		} else {
			c, err = d.valueToCharLowerUpperDigitSpecial(value)
		}
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}
	return string(chars), nil
}

func (d *Decoder) decodeRepFirstLowerSpecial(data []byte) (string, error) {
	decoded, err := d.decodeGeneric(data, 5)
	if err != nil {
		return "", err
	}
	chars := []byte(decoded)
	if len(chars) > 0 && chars[0] >= 'a' && chars[0] <= 'z' {
		chars[0] = chars[0] - 'a' + 'A'
	}
	return string(chars), nil
}

func (d *Decoder) decodeRepAllToLowerSpecial(data []byte) (string, error) {
	decoded, err := d.decodeGeneric(data, 5)
	if err != nil {
		return "", err
	}
	chars := make([]byte, 0, len(decoded))
	for i := 0; i < len(decoded); i++ {
		if decoded[i] == '|' && i+1 < len(decoded) {
			chars = append(chars, decoded[i+1]-'a'+'A')
			i++
		} else {
			chars = append(chars, decoded[i])
		}
	}
	return string(chars), nil
}

func valueToCharLowerSpecial(value byte) (byte, error) {
	switch {
	case value < 26:
		return value + 'a', nil
	case value == 26:
		return '.', nil
	case value == 27:
		return '_', nil
	case value == 28:
		return '$', nil
	case value == 29:
		return '|', nil
	default:
		return 0, fmt.Errorf("value %d out of LOWER_SPECIAL range", value)
	}
}

func (d *Decoder) valueToCharLowerUpperDigitSpecial(value byte) (byte, error) {
	switch {
	case value < 26:
		return value + 'a', nil
	case value < 52:
		return value - 26 + 'A', nil
	case value < 62:
		return value - 52 + '0', nil
	case value == 62:
		return d.specialChar1, nil
	case value == 63:
		return d.specialChar2, nil
	default:
		return 0, fmt.Errorf("value %d out of LOWER_UPPER_DIGIT_SPECIAL range", value)
	}
}
