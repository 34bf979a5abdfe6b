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
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/spaolacci/murmur3"
)

// fieldInfo binds one wire field to the local struct layout. index is the
// local struct field index, or -1 when the local type has no field with that
// name and the payload bytes are skipped.
type fieldInfo struct {
	index int
	def   FieldDef
	info  TypeInfo
}

// selfDescribing reports whether the field value carries its own ref flag and
// type info. Interface fields always do. In compatible mode every user
// defined field does too, so a reader dispatches on the type definitions it
// received instead of its own registration for that field.
func (f *fieldInfo) selfDescribing(compatible bool) bool {
	if f.info.Serializer == nil || f.info.IsDynamic {
		return true
	}
	if !compatible {
		return false
	}
	_, dynamic := f.def.fieldType.(*DynamicFieldType)
	return dynamic
}

// writeFieldValue writes one field body. Fields that are neither nullable nor
// ref tracked write their data bytes with no flag at all.
func writeFieldValue(ctx *WriteContext, f *fieldInfo, value reflect.Value) error {
	if f.selfDescribing(ctx.compatible) {
		return ctx.WriteValue(value)
	}
	ser := f.info.Serializer
	if f.def.trackingRef || f.def.nullable {
		return ser.Write(ctx, true, false, value)
	}
	return ser.WriteData(ctx, value)
}

func readFieldValue(ctx *ReadContext, f *fieldInfo, value reflect.Value) error {
	if f.selfDescribing(ctx.compatible) {
		return ctx.ReadValue(value)
	}
	ser := f.info.Serializer
	if f.def.trackingRef || f.def.nullable {
		return ser.Read(ctx, true, false, value)
	}
	return ser.ReadData(ctx, f.info.Type, value)
}

// skipFieldValue consumes the bytes of a field the local type does not have.
func skipFieldValue(ctx *ReadContext, f *fieldInfo) error {
	if f.selfDescribing(ctx.compatible) {
		var discard interface{}
		return ctx.ReadValue(reflect.ValueOf(&discard).Elem())
	}
	return readFieldValue(ctx, f, reflect.New(f.info.Type).Elem())
}

// structSerializer writes struct fields in the sorted definition order. In
// schema consistent mode the body starts with the structural hash; in
// compatible mode the layout comes from the type definition instead, so a
// serializer built from a received definition reads payloads written by a
// different version of the struct.
type structSerializer struct {
	type_      reflect.Type
	typeID     int32
	fromDef    bool
	fieldDefs  []FieldDef
	fields     []*fieldInfo
	structHash int32
	initErr    error
}

func newStructSerializer(type_ reflect.Type, typeID int32) *structSerializer {
	return &structSerializer{type_: type_, typeID: typeID}
}

// newStructSerializerFromDef builds a serializer for a locally known type
// from a received definition. Fields the local type lacks are skipped, local
// fields the definition lacks keep their zero value.
func newStructSerializerFromDef(type_ reflect.Type, fieldDefs []FieldDef) *structSerializer {
	return &structSerializer{
		type_:     type_,
		typeID:    int32(COMPATIBLE_STRUCT),
		fromDef:   true,
		fieldDefs: fieldDefs,
	}
}

// initialize resolves field serializers on first use rather than at
// registration, so struct types can reference each other in any order.
func (s *structSerializer) initialize(resolver *TypeResolver) error {
	if s.fields != nil || s.initErr != nil {
		return s.initErr
	}
	defs := s.fieldDefs
	if !s.fromDef {
		built, err := buildFieldDefs(resolver, s.type_)
		if err != nil {
			s.initErr = err
			return err
		}
		defs = built
		s.fieldDefs = built
		s.structHash = structHashFromDefs(built)
	}
	localIndex := make(map[string]int)
	if s.type_ != nil {
		for i := 0; i < s.type_.NumField(); i++ {
			field := s.type_.Field(i)
			if field.PkgPath != "" {
				continue // unexported
			}
			localIndex[SnakeCase(field.Name)] = i
		}
	}
	fields := make([]*fieldInfo, 0, len(defs))
	for _, def := range defs {
		fi := &fieldInfo{index: -1, def: def}
		if idx, ok := localIndex[def.name]; ok {
			info, err := resolver.getTypeInfoByType(s.type_.Field(idx).Type, true)
			if err != nil {
				s.initErr = fmt.Errorf("field %s of %v: %w", def.name, s.type_, err)
				return s.initErr
			}
			fi.index = idx
			fi.info = info
		} else {
			info, err := def.fieldType.getTypeInfo(resolver)
			if err != nil {
				s.initErr = fmt.Errorf("field %s of definition for %v: %w", def.name, s.type_, err)
				return s.initErr
			}
			fi.info = info
		}
		fields = append(fields, fi)
	}
	s.fields = fields
	return nil
}

func (s *structSerializer) TypeId() TypeId {
	return TypeId(s.typeID & 0xFF)
}

func (s *structSerializer) NeedToWriteRef() bool { return false }

func (s *structSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s *structSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	for value.Kind() == reflect.Interface || value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return invalidDataf("nil %v cannot be written as struct data", value.Type())
		}
		value = value.Elem()
	}
	if err := s.initialize(ctx.typeResolver); err != nil {
		return err
	}
	if err := ctx.enterDepth(); err != nil {
		return err
	}
	defer ctx.leaveDepth()
	if !ctx.compatible {
		ctx.buffer.WriteInt32(s.structHash)
	}
	for _, f := range s.fields {
		if err := s.writeField(ctx, f, value); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (s *structSerializer) writeField(ctx *WriteContext, f *fieldInfo, value reflect.Value) error {
	if f.index < 0 {
		// The definition names a field the local type lacks; a reader of this
		// payload still expects its bytes.
		return writeFieldValue(ctx, f, reflect.New(f.info.Type).Elem())
	}
	return writeFieldValue(ctx, f, value.Field(f.index))
}

func (s *structSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s *structSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	if value.Kind() == reflect.Ptr {
		if value.IsNil() {
			value.Set(reflect.New(value.Type().Elem()))
		}
		value = value.Elem()
	}
	if err := s.initialize(ctx.typeResolver); err != nil {
		return err
	}
	if err := ctx.enterDepth(); err != nil {
		return err
	}
	defer ctx.leaveDepth()
	if !ctx.compatible {
		remote := ctx.buffer.ReadInt32()
		if err := ctx.Err(); err != nil {
			return err
		}
		if remote != s.structHash {
			return fmt.Errorf("%w: struct %v expects hash %d, payload has %d",
				ErrSchemaHashMismatch, s.type_, s.structHash, remote)
		}
	}
	for _, f := range s.fields {
		if err := s.readField(ctx, f, value); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (s *structSerializer) readField(ctx *ReadContext, f *fieldInfo, value reflect.Value) error {
	if f.index < 0 {
		return skipFieldValue(ctx, f)
	}
	return readFieldValue(ctx, f, value.Field(f.index))
}

func (s *structSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// structHashFromDefs hashes the field layout so schema consistent reads can
// reject a payload written with a different layout. Each field contributes
// its wire name, field type id, ref tracking bit and nullability bit; the
// entries are sorted before hashing, so declaration order does not change
// the hash.
func structHashFromDefs(fieldDefs []FieldDef) int32 {
	entries := make([]string, len(fieldDefs))
	for i, def := range fieldDefs {
		tracking, null := 0, 0
		if def.trackingRef {
			tracking = 1
		}
		if def.nullable {
			null = 1
		}
		entries[i] = fmt.Sprintf("%s,%d,%d,%d;", def.name, hashTypeId(def.fieldType.TypeId()), tracking, null)
	}
	sort.Strings(entries)
	h1, _ := murmur3.Sum128WithSeed([]byte(strings.Join(entries, "")), 47)
	hash := int32(uint32(h1))
	if hash == 0 {
		hash = 1
	}
	return hash
}

// hashTypeId folds the width-only integer encodings together so a peer that
// declares a plain fixed encoding hashes the same as one that compresses.
func hashTypeId(id uint32) uint32 {
	switch TypeId(id) {
	case INT32:
		return uint32(VAR_INT32)
	case INT64, SLI_INT64:
		return uint32(VAR_INT64)
	}
	return id
}

// UnknownStruct holds the decoded fields of a compatible mode struct whose
// type is not registered locally. Field values keep their wire names.
type UnknownStruct struct {
	Namespace string
	TypeName  string
	Fields    map[string]interface{}
}

// skipStructSerializer decodes payloads of unregistered struct types into
// UnknownStruct values using only the received type definition.
type skipStructSerializer struct {
	fieldDefs []FieldDef
	namespace string
	typeName  string
	fields    []*fieldInfo
	initErr   error
}

func newSkipStructSerializer(fieldDefs []FieldDef, namespace, typeName string) *skipStructSerializer {
	return &skipStructSerializer{fieldDefs: fieldDefs, namespace: namespace, typeName: typeName}
}

func (s *skipStructSerializer) TypeId() TypeId       { return COMPATIBLE_STRUCT }
func (s *skipStructSerializer) NeedToWriteRef() bool { return true }

func (s *skipStructSerializer) initialize(resolver *TypeResolver) error {
	if s.fields != nil || s.initErr != nil {
		return s.initErr
	}
	fields := make([]*fieldInfo, 0, len(s.fieldDefs))
	for _, def := range s.fieldDefs {
		info, err := def.fieldType.getTypeInfo(resolver)
		if err != nil {
			s.initErr = fmt.Errorf("field %s of unknown type %s.%s: %w", def.name, s.namespace, s.typeName, err)
			return s.initErr
		}
		fields = append(fields, &fieldInfo{index: -1, def: def, info: info})
	}
	s.fields = fields
	return nil
}

// Writing goes through registered types only: the placeholder carries no
// local registration to resolve a definition against.
func (s *skipStructSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return unknownTypef("%s.%s cannot be written: type is not registered", s.namespace, s.typeName)
}

func (s *skipStructSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	return unknownTypef("%s.%s cannot be written: type is not registered", s.namespace, s.typeName)
}

func (s *skipStructSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s *skipStructSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	if err := s.initialize(ctx.typeResolver); err != nil {
		return err
	}
	if err := ctx.enterDepth(); err != nil {
		return err
	}
	defer ctx.leaveDepth()
	us := &UnknownStruct{
		Namespace: s.namespace,
		TypeName:  s.typeName,
		Fields:    make(map[string]interface{}, len(s.fields)),
	}
	// A pending ref id means the writer tracked this value; bind it before
	// the fields decode so cycles through the unknown struct resolve.
	if ctx.refResolver.PendingRefId() >= 0 {
		ctx.refResolver.Reference(reflect.ValueOf(us))
	}
	for _, f := range s.fields {
		if f.selfDescribing(true) {
			var slot interface{}
			if err := ctx.ReadValue(reflect.ValueOf(&slot).Elem()); err != nil {
				return err
			}
			us.Fields[f.def.name] = slot
			continue
		}
		tmp := reflect.New(f.info.Type).Elem()
		if err := readFieldValue(ctx, f, tmp); err != nil {
			return err
		}
		us.Fields[f.def.name] = tmp.Interface()
	}
	return assignValue(value, reflect.ValueOf(us))
}

func (s *skipStructSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// ptrToStructSerializer wraps a registered value type's serializer for its
// pointer form. The pointer shares the value type's wire id; nullability and
// identity live in the ref flag the caller writes, so the body is just the
// element's data.
type ptrToStructSerializer struct {
	type_ reflect.Type
	inner Serializer
}

func newPtrToStructSerializer(type_ reflect.Type, inner Serializer) *ptrToStructSerializer {
	return &ptrToStructSerializer{type_: type_, inner: inner}
}

func (s *ptrToStructSerializer) TypeId() TypeId       { return s.inner.TypeId() }
func (s *ptrToStructSerializer) NeedToWriteRef() bool { return true }

func (s *ptrToStructSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s *ptrToStructSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	if value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return invalidDataf("nil %v reached the pointer body", value.Type())
		}
		value = value.Elem()
	}
	return s.inner.WriteData(ctx, value)
}

func (s *ptrToStructSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s *ptrToStructSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	if value.Kind() != reflect.Ptr {
		return s.inner.ReadData(ctx, s.type_, value)
	}
	if value.IsNil() {
		value.Set(reflect.New(s.type_))
	}
	// Bind before the fields decode so cycles back to this pointer resolve.
	ctx.refResolver.Reference(value)
	return s.inner.ReadData(ctx, s.type_, value.Elem())
}

func (s *ptrToStructSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// ptrSerializer handles pointers to non-struct elements. As with struct
// pointers, the caller's ref flag covers nullability and identity.
type ptrSerializer struct {
	elemInfo TypeInfo
}

func (s ptrSerializer) TypeId() TypeId       { return TypeId(s.elemInfo.TypeID & 0xFF) }
func (s ptrSerializer) NeedToWriteRef() bool { return true }

func (s ptrSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s ptrSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	if value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return invalidDataf("nil %v reached the pointer body", value.Type())
		}
		value = value.Elem()
	}
	return s.elemInfo.Serializer.WriteData(ctx, value)
}

func (s ptrSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s ptrSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	if value.Kind() != reflect.Ptr {
		return s.elemInfo.Serializer.ReadData(ctx, s.elemInfo.Type, value)
	}
	if value.IsNil() {
		value.Set(reflect.New(s.elemInfo.Type))
	}
	ctx.refResolver.Reference(value)
	return s.elemInfo.Serializer.ReadData(ctx, s.elemInfo.Type, value.Elem())
}

func (s ptrSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// triple pairs a field with its serializer for sorting.
type triple struct {
	typeID     TypeId
	name       string
	nullable   bool
	serializer Serializer
}

// sortPrimitives orders a primitive bucket: fixed width before compressed,
// wider before narrower, snake case name as the tiebreak.
func sortPrimitives(s []triple) {
	sort.Slice(s, func(i, j int) bool {
		a, b := s[i], s[j]
		ca, cb := isCompressedType(a.typeID), isCompressedType(b.typeID)
		if ca != cb {
			return !ca // fixed width before compressed
		}
		if sa, sb := primitiveSize(a.typeID), primitiveSize(b.typeID); sa != sb {
			return sa > sb
		}
		return a.name < b.name
	})
}

// sortFields puts fields into the canonical wire order: non-nullable
// primitives first (fixed width before compressed, widest first), then
// nullable primitives in the same internal order, strings and other builtin
// scalars, lists, sets, maps, user defined types and finally fields of
// unknown type. Ties break on the snake case field name, so the order
// depends only on the struct's shape, never on declaration order.
func sortFields(resolver *TypeResolver, fieldNames []string, serializers []Serializer, nullables []bool) ([]Serializer, []string) {
	entries := make([]triple, len(fieldNames))
	for i, name := range fieldNames {
		e := triple{name: name, serializer: serializers[i], typeID: UNKNOWN}
		if serializers[i] != nil {
			e.typeID = serializers[i].TypeId()
		}
		if nullables != nil {
			e.nullable = nullables[i]
		}
		entries[i] = e
	}

	var primitives, boxed, finals, lists, sets, maps, userDefined, unknowns []triple
	for _, e := range entries {
		switch {
		case e.serializer == nil || e.typeID == UNKNOWN:
			unknowns = append(unknowns, e)
		case isPrimitiveType(e.typeID):
			if e.nullable {
				boxed = append(boxed, e)
			} else {
				primitives = append(primitives, e)
			}
		case e.typeID == LIST || e.typeID == BINARY || isPrimitiveArrayType(e.typeID):
			lists = append(lists, e)
		case e.typeID == SET:
			sets = append(sets, e)
		case e.typeID == MAP:
			maps = append(maps, e)
		case isUserType(e.typeID) || IsNamespacedType(e.typeID):
			userDefined = append(userDefined, e)
		default:
			finals = append(finals, e)
		}
	}

	sortPrimitives(primitives)
	sortPrimitives(boxed)
	sort.Slice(finals, func(i, j int) bool {
		if finals[i].typeID != finals[j].typeID {
			return finals[i].typeID < finals[j].typeID
		}
		return finals[i].name < finals[j].name
	})
	byName := func(s []triple) {
		sort.Slice(s, func(i, j int) bool { return s[i].name < s[j].name })
	}
	byName(lists)
	byName(sets)
	byName(maps)
	byName(userDefined)
	byName(unknowns)

	ordered := make([]triple, 0, len(entries))
	for _, bucket := range [][]triple{primitives, boxed, finals, lists, sets, maps, userDefined, unknowns} {
		ordered = append(ordered, bucket...)
	}
	sortedSerializers := make([]Serializer, len(ordered))
	sortedNames := make([]string, len(ordered))
	for i, e := range ordered {
		sortedSerializers[i] = e.serializer
		sortedNames[i] = e.name
	}
	return sortedSerializers, sortedNames
}
