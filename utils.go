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
	"unicode"
)

// SnakeCase converts CamelCase to snake_case, the form field names take on
// the wire so peers in other languages can match them.
func SnakeCase(s string) string {
	var result []rune
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '_')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// nullable reports whether values of the type can be nil on the wire.
// Optional wrappers count: their None case rides the same null flag.
func nullable(type_ reflect.Type) bool {
	switch type_.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
		return true
	default:
		return isOptionalType(type_)
	}
}

// isNull checks if a value is null/nil.
func isNull(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

// UnwrapReflectValue strips interface wrappers so callers see the concrete
// value.
func UnwrapReflectValue(value reflect.Value) reflect.Value {
	for value.Kind() == reflect.Interface && !value.IsNil() {
		value = value.Elem()
	}
	return value
}
