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

// Package optional provides a value-semantics alternative to pointer fields
// for nullable scalars. On the wire an Optional[T] encodes exactly like *T:
// None as the null flag, Some as the plain element.
package optional

// Optional represents an optional value without pointer indirection.
type Optional[T any] struct {
	Value T
	Has   bool
}

// Some returns an Optional containing a value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Has: true}
}

// None returns an empty Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// FromPtr converts a pointer to an Optional.
func FromPtr[T any](v *T) Optional[T] {
	if v == nil {
		return None[T]()
	}
	return Some(*v)
}

// Ptr returns a pointer to a copy of the contained value, or nil.
func (o Optional[T]) Ptr() *T {
	if !o.Has {
		return nil
	}
	v := o.Value
	return &v
}

// Get returns the contained value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Has
}

// IsSome reports whether the optional contains a value.
func (o Optional[T]) IsSome() bool { return o.Has }

// IsNone reports whether the optional is empty.
func (o Optional[T]) IsNone() bool { return !o.Has }

// UnwrapOr returns the contained value or a default.
func (o Optional[T]) UnwrapOr(defaultValue T) T {
	if o.Has {
		return o.Value
	}
	return defaultValue
}

// UnwrapOrDefault returns the contained value or the zero value.
func (o Optional[T]) UnwrapOrDefault() T {
	if o.Has {
		return o.Value
	}
	var zero T
	return zero
}

// Set sets the optional to a present value.
func (o *Optional[T]) Set(v T) {
	o.Value = v
	o.Has = true
}

// Clear empties the optional.
func (o *Optional[T]) Clear() {
	var zero T
	o.Value = zero
	o.Has = false
}

// Take returns the current state and leaves None in its place.
func (o *Optional[T]) Take() Optional[T] {
	taken := *o
	o.Clear()
	return taken
}

// Map applies f to the contained value, if any.
func Map[T, U any](o Optional[T], f func(T) U) Optional[U] {
	if !o.Has {
		return None[U]()
	}
	return Some(f(o.Value))
}
