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

// Package meta implements the compact meta-string encodings used for
// namespaces, type names and field names. Names drawn from identifier-like
// alphabets are bit-packed at 5 or 6 bits per char instead of UTF-8:
//   - LOWER_SPECIAL: a-z . _ $ | at 5 bits/char
//   - LOWER_UPPER_DIGIT_SPECIAL: a-z A-Z 0-9 plus two special chars at 6 bits/char
//   - FIRST_TO_LOWER_SPECIAL: leading upper-case char lowered, then LOWER_SPECIAL
//   - ALL_TO_LOWER_SPECIAL: each upper-case char escaped as "|x", then LOWER_SPECIAL
//
// The first bit of the encoded bytes is the strip-last-char flag: when the
// final byte has at least one full char of padding, the flag tells the
// decoder to drop the phantom trailing char.
package meta

// Encoding identifies one of the supported meta-string encodings.
// The numeric values are transported on the wire, so they must not change.
type Encoding byte

const (
	UTF_8                     Encoding = 0x00
	LOWER_SPECIAL             Encoding = 0x01
	LOWER_UPPER_DIGIT_SPECIAL Encoding = 0x02
	FIRST_TO_LOWER_SPECIAL    Encoding = 0x03
	ALL_TO_LOWER_SPECIAL      Encoding = 0x04
)

// MetaString holds a string together with its encoded form.
type MetaString struct {
	inputString  string
	encoding     Encoding
	specialChar1 byte
	specialChar2 byte
	encodedBytes []byte
}

func (ms *MetaString) GetInputString() string  { return ms.inputString }
func (ms *MetaString) GetEncoding() Encoding   { return ms.encoding }
func (ms *MetaString) GetSpecialChar1() byte   { return ms.specialChar1 }
func (ms *MetaString) GetSpecialChar2() byte   { return ms.specialChar2 }
func (ms *MetaString) GetEncodedBytes() []byte { return ms.encodedBytes }
