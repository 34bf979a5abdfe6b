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
	"fmt"
)

// Error kinds raised by serialization and deserialization. They are sentinel
// values so callers can classify failures with errors.Is; the wrapped message
// carries the type name, field name or byte offset where the failure happened.
// None of them are retryable: a malformed stream stays malformed.
var (
	// ErrInvalidData indicates malformed or truncated bytes: a read past the
	// end of the buffer, a bad varint, an unrecognized encoding selector or
	// type tag, or a union case tag outside the registered set.
	ErrInvalidData = errors.New("fory: invalid data")

	// ErrSchemaHashMismatch indicates the writer's struct definition and the
	// reader's differ in schema-consistent mode. The two schemas are
	// incompatible; there is no partial recovery.
	ErrSchemaHashMismatch = errors.New("fory: schema hash mismatch")

	// ErrUnknownType indicates wire type info that resolves to no registered
	// type. Fatal in schema-consistent mode; compatible mode degrades struct
	// kinds to an UnknownStruct placeholder instead of raising it.
	ErrUnknownType = errors.New("fory: unknown type")

	// ErrDanglingReference indicates a back-reference id that was never
	// registered during this pass: stream corruption, or a writer whose
	// id assignment order diverged from the read order.
	ErrDanglingReference = errors.New("fory: dangling reference")

	// ErrDuplicateRegistration is raised eagerly at registration time when an
	// id, name, or type is already bound in this resolver.
	ErrDuplicateRegistration = errors.New("fory: duplicate registration")

	// ErrInvalidEnumValue indicates an enum value outside the registered case
	// list (on write) or an ordinal past the case count (on read).
	ErrInvalidEnumValue = errors.New("fory: invalid enum value")

	// ErrMagicNumber indicates the stream does not start with the fory magic
	// number and was not produced by a fory writer.
	ErrMagicNumber = errors.New("fory: invalid magic number")

	// ErrNoSerializer indicates no serializer could be created or resolved
	// for a Go type.
	ErrNoSerializer = errors.New("fory: no serializer registered for type")

	// ErrDepthLimit indicates nesting beyond the configured maximum depth,
	// either a pathological object graph on write or hostile input on read.
	ErrDepthLimit = errors.New("fory: max depth exceeded")
)

// invalidDataf wraps ErrInvalidData with positional context.
func invalidDataf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidData, fmt.Sprintf(format, args...))
}

// unknownTypef wraps ErrUnknownType with the unresolved id or name.
func unknownTypef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnknownType, fmt.Sprintf(format, args...))
}

// duplicatef wraps ErrDuplicateRegistration with the colliding binding.
func duplicatef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDuplicateRegistration, fmt.Sprintf(format, args...))
}
