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

// Package threadsafe exposes the pooled, concurrency-safe Fory wrapper
// under its own import path. Registrations made on a wrapper replay onto
// every pooled instance, so register all types before the first Serialize.
package threadsafe

import (
	fory "github.com/apache/fory-go"
)

// Fory is a pool-backed wrapper that is safe for concurrent use.
type Fory = fory.ThreadSafeFory

// New creates a new thread-safe Fory instance.
func New(opts ...fory.Option) *Fory {
	return fory.NewThreadSafe(opts...)
}

// Serialize serializes a value of type T using a pooled instance.
func Serialize[T any](f *Fory, value T) ([]byte, error) {
	return fory.SerializeTS(f, value)
}

// Deserialize decodes data into a fresh value of type T using a pooled
// instance.
func Deserialize[T any](f *Fory, data []byte) (T, error) {
	return fory.DeserializeTS[T](f, data)
}

// DeserializeTo decodes data directly into target using a pooled instance.
func DeserializeTo[T any](f *Fory, data []byte, target *T) error {
	return f.Deserialize(data, target)
}

// RegisterEnum binds an enum case list on every pooled instance.
func RegisterEnum[E any](f *Fory, id uint32, cases []E) error {
	return fory.RegisterEnumTS(f, id, cases)
}

// RegisterNamedEnum binds an enum case list to a namespace and type name on
// every pooled instance.
func RegisterNamedEnum[E any](f *Fory, namespace, typeName string, cases []E) error {
	return fory.RegisterNamedEnumTS(f, namespace, typeName, cases)
}

// Global thread-safe instance for package-level convenience functions.
var globalFory = New()

// Marshal serializes a value using the package's global instance.
func Marshal[T any](value T) ([]byte, error) {
	return Serialize(globalFory, value)
}

// Unmarshal deserializes data using the package's global instance.
func Unmarshal[T any](data []byte) (T, error) {
	return Deserialize[T](globalFory, data)
}

// UnmarshalTo deserializes data into the provided pointer using the
// package's global instance.
func UnmarshalTo(data []byte, target interface{}) error {
	return globalFory.Deserialize(data, target)
}
