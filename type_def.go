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

	"github.com/spaolacci/murmur3"

	"github.com/apache/fory-go/meta"
)

const (
	META_SIZE_MASK       = 0xFFF
	COMPRESS_META_FLAG   = 0b1 << 13
	HAS_FIELDS_META_FLAG = 0b1 << 12
	NUM_HASH_BITS        = 50
)

/*
TypeDef is the transportable description of a struct type, written once per
type per stream in compatible mode. Layout:
  - first 8 bytes: global header (50 bits hash + compress flag + has fields
    meta flag + 12 bits meta size)
  - next 1 byte: meta header (2 bits reserved + register by name flag +
    5 bits field count)
  - next variable bytes: type id (varint) or namespace + type name
  - next variable bytes: field definitions
*/
type TypeDef struct {
	typeId         uint32 // composite id (userId << 8 | internal) or bare internal id
	nsName         *MetaStringBytes
	typeName       *MetaStringBytes
	compressed     bool
	registerByName bool
	fieldDefs      []FieldDef
	encoded        []byte
	type_          reflect.Type // nil when the writer's type is not registered here
}

func NewTypeDef(typeId uint32, nsName, typeName *MetaStringBytes, registerByName, compressed bool, fieldDefs []FieldDef) *TypeDef {
	return &TypeDef{
		typeId:         typeId,
		nsName:         nsName,
		typeName:       typeName,
		compressed:     compressed,
		registerByName: registerByName,
		fieldDefs:      fieldDefs,
	}
}

func (td *TypeDef) writeTypeDef(buffer *ByteBuffer) {
	buffer.WriteBinary(td.encoded)
}

// buildTypeInfo turns a decoded definition into a usable TypeInfo. A known
// local type reads with the writer's field layout; an unknown type falls back
// to a serializer that consumes the fields and yields an UnknownStruct.
func (td *TypeDef) buildTypeInfo(resolver *TypeResolver) (TypeInfo, error) {
	if td.type_ == nil {
		ns, name := td.decodeName(resolver)
		return TypeInfo{
			Type:         interfaceType,
			TypeID:       int32(td.typeId),
			Serializer:   newSkipStructSerializer(td.fieldDefs, ns, name),
			PkgPathBytes: td.nsName,
			NameBytes:    td.typeName,
			IsDynamic:    true,
		}, nil
	}
	return TypeInfo{
		Type:         td.type_,
		TypeID:       int32(td.typeId),
		Serializer:   newStructSerializerFromDef(td.type_, td.fieldDefs),
		PkgPathBytes: td.nsName,
		NameBytes:    td.typeName,
	}, nil
}

func (td *TypeDef) decodeName(resolver *TypeResolver) (string, string) {
	var ns, name string
	if td.nsName != nil {
		if s, err := resolver.namespaceDecoder.Decode(td.nsName.Data, td.nsName.Encoding); err == nil {
			ns = s
		}
	}
	if td.typeName != nil {
		if s, err := resolver.typeNameDecoder.Decode(td.typeName.Data, td.typeName.Encoding); err == nil {
			name = s
		}
	}
	return ns, name
}

func readTypeDef(resolver *TypeResolver, buffer *ByteBuffer, header int64) (*TypeDef, error) {
	return decodeTypeDef(resolver, buffer, header)
}

// skipTypeDef consumes the body of a definition whose header was already
// read and matched a cached entry.
func skipTypeDef(buffer *ByteBuffer, header int64) {
	sz := int(header & META_SIZE_MASK)
	if sz == META_SIZE_MASK {
		sz += int(buffer.ReadVarUint32())
	}
	buffer.IncreaseReaderIndex(sz)
}

// ============================================================================
// Namespace and type name encoding inside definitions
// ============================================================================

// Names inside a TypeDef use a compact 1 byte header (6 bits size + 2 bits
// encoding flag), not the dynamic-id meta string format: definitions are
// already deduplicated by their header hash.
const BIG_NAME_THRESHOLD = 0b111111

func namespaceEncodingFlag(encoding meta.Encoding) (byte, error) {
	switch encoding {
	case meta.UTF_8:
		return 0, nil
	case meta.ALL_TO_LOWER_SPECIAL:
		return 1, nil
	case meta.LOWER_UPPER_DIGIT_SPECIAL:
		return 2, nil
	default:
		return 0, fmt.Errorf("unsupported namespace encoding %d", encoding)
	}
}

func namespaceEncodingFromFlag(flag byte) (meta.Encoding, error) {
	switch flag {
	case 0:
		return meta.UTF_8, nil
	case 1:
		return meta.ALL_TO_LOWER_SPECIAL, nil
	case 2:
		return meta.LOWER_UPPER_DIGIT_SPECIAL, nil
	default:
		return 0, invalidDataf("namespace encoding flag %d", flag)
	}
}

func typeNameEncodingFlag(encoding meta.Encoding) (byte, error) {
	switch encoding {
	case meta.UTF_8:
		return 0, nil
	case meta.LOWER_UPPER_DIGIT_SPECIAL:
		return 1, nil
	case meta.FIRST_TO_LOWER_SPECIAL:
		return 2, nil
	case meta.ALL_TO_LOWER_SPECIAL:
		return 3, nil
	default:
		return 0, fmt.Errorf("unsupported type name encoding %d", encoding)
	}
}

func typeNameEncodingFromFlag(flag byte) (meta.Encoding, error) {
	switch flag {
	case 0:
		return meta.UTF_8, nil
	case 1:
		return meta.LOWER_UPPER_DIGIT_SPECIAL, nil
	case 2:
		return meta.FIRST_TO_LOWER_SPECIAL, nil
	case 3:
		return meta.ALL_TO_LOWER_SPECIAL, nil
	default:
		return 0, invalidDataf("type name encoding flag %d", flag)
	}
}

func writeNameBytes(buffer *ByteBuffer, metaBytes *MetaStringBytes, toFlag func(meta.Encoding) (byte, error)) error {
	if metaBytes == nil || len(metaBytes.Data) == 0 {
		buffer.WriteByte_(0)
		return nil
	}
	flag, err := toFlag(metaBytes.Encoding)
	if err != nil {
		return err
	}
	size := len(metaBytes.Data)
	if size >= BIG_NAME_THRESHOLD {
		buffer.WriteByte_(byte(BIG_NAME_THRESHOLD<<2) | flag)
		buffer.WriteVarUint32Small7(uint32(size - BIG_NAME_THRESHOLD))
	} else {
		buffer.WriteByte_(byte(size<<2) | flag)
	}
	buffer.WriteBinary(metaBytes.Data)
	return nil
}

func readNameBytes(buffer *ByteBuffer, fromFlag func(byte) (meta.Encoding, error)) (*MetaStringBytes, error) {
	header := int(buffer.ReadByte_())
	if err := buffer.Err(); err != nil {
		return nil, err
	}
	size := header >> 2
	if size == BIG_NAME_THRESHOLD {
		size = int(buffer.ReadVarUint32Small7()) + BIG_NAME_THRESHOLD
	}
	encoding, err := fromFlag(byte(header & 0b11))
	if err != nil {
		return nil, err
	}
	data := make([]byte, size)
	if _, err := buffer.Read(data); err != nil {
		return nil, err
	}
	return &MetaStringBytes{
		Data:     data,
		Encoding: encoding,
		Hashcode: ComputeMetaStringHash(data, encoding),
	}, nil
}

// ============================================================================
// Building definitions from local types
// ============================================================================

func buildTypeDef(resolver *TypeResolver, type_ reflect.Type) (*TypeDef, error) {
	fieldDefs, err := buildFieldDefs(resolver, type_)
	if err != nil {
		return nil, err
	}
	info, err := resolver.getTypeInfoByType(type_, true)
	if err != nil {
		return nil, err
	}
	typeId := uint32(info.TypeID)
	registerByName := IsNamespacedType(TypeId(typeId & 0xFF))
	typeDef := NewTypeDef(typeId, info.PkgPathBytes, info.NameBytes, registerByName, false, fieldDefs)
	typeDef.type_ = type_

	encoded, err := encodingTypeDef(resolver, typeDef)
	if err != nil {
		return nil, fmt.Errorf("failed to encode type definition for %v: %w", type_, err)
	}
	typeDef.encoded = encoded
	return typeDef, nil
}

/*
FieldDef describes one struct field inside a definition. Layout:
  - first 1 byte: header (2 bits name encoding + 4 bits name size +
    nullability flag + ref tracking flag)
  - next variable bytes: field type
  - next variable bytes: encoded field name
*/
type FieldDef struct {
	name         string
	nameEncoding meta.Encoding
	nullable     bool
	trackingRef  bool
	fieldType    FieldType
}

// buildFieldDefs collects the exported fields of a struct type in wire order.
// The trackingRef flag records whether ref flags actually appear for that
// field, so the read side of a definition never guesses.
func buildFieldDefs(resolver *TypeResolver, type_ reflect.Type) ([]FieldDef, error) {
	var fieldDefs []FieldDef
	for i := 0; i < type_.NumField(); i++ {
		field := type_.Field(i)
		if field.PkgPath != "" {
			continue // unexported
		}
		fieldName := SnakeCase(field.Name)
		nameEncoding := resolver.typeNameEncoder.ComputeEncodingWith(fieldName, fieldNameEncodings)

		ft, err := buildFieldType(resolver, field.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s of %v: %w", field.Name, type_, err)
		}
		ser, _ := getFieldTypeSerializer(resolver, ft)
		fieldDefs = append(fieldDefs, FieldDef{
			name:         fieldName,
			nameEncoding: nameEncoding,
			nullable:     nullable(field.Type),
			trackingRef:  resolver.config.RefTracking && ser != nil && ser.NeedToWriteRef(),
			fieldType:    ft,
		})
	}

	if len(fieldDefs) > 1 {
		serializers := make([]Serializer, len(fieldDefs))
		fieldNames := make([]string, len(fieldDefs))
		nullables := make([]bool, len(fieldDefs))
		byName := make(map[string]FieldDef, len(fieldDefs))
		for i, fd := range fieldDefs {
			serializers[i], _ = getFieldTypeSerializer(resolver, fd.fieldType)
			fieldNames[i] = fd.name
			nullables[i] = fd.nullable
			byName[fd.name] = fd
		}
		_, sortedNames := sortFields(resolver, fieldNames, serializers, nullables)
		sorted := make([]FieldDef, len(fieldDefs))
		for i, name := range sortedNames {
			sorted[i] = byName[name]
		}
		fieldDefs = sorted
	}
	return fieldDefs, nil
}

// ============================================================================
// Field types
// ============================================================================

// FieldType describes the wire type of one field, recursively for containers.
// Top-level field types write a bare varint id; nested ones shift the id left
// by two to leave room for the nullability and tracking bits other
// implementations embed there.
type FieldType interface {
	TypeId() uint32
	write(buffer *ByteBuffer)
	writeNested(buffer *ByteBuffer)
	getTypeInfo(resolver *TypeResolver) (TypeInfo, error)
}

type BaseFieldType struct {
	typeId uint32
}

func (b *BaseFieldType) TypeId() uint32 { return b.typeId }

func (b *BaseFieldType) write(buffer *ByteBuffer) {
	buffer.WriteVarUint32Small7(b.typeId)
}

// Nested flags are advisory; the collection and map payload headers carry the
// authoritative per-container decisions, so both bits are written as zero and
// ignored on read.
func (b *BaseFieldType) writeNested(buffer *ByteBuffer) {
	buffer.WriteVarUint32Small7(b.typeId << 2)
}

func (b *BaseFieldType) getTypeInfo(resolver *TypeResolver) (TypeInfo, error) {
	return resolver.getTypeInfoById(int32(b.typeId))
}

func getFieldTypeSerializer(resolver *TypeResolver, ft FieldType) (Serializer, error) {
	typeInfo, err := ft.getTypeInfo(resolver)
	if err != nil {
		return nil, err
	}
	return typeInfo.Serializer, nil
}

func fieldTypeFromId(raw uint32, buffer *ByteBuffer) (FieldType, error) {
	switch raw {
	case LIST, SET:
		elementType, err := readFieldTypeWithFlags(buffer)
		if err != nil {
			return nil, fmt.Errorf("element type: %w", err)
		}
		return NewCollectionFieldType(raw, elementType), nil
	case MAP:
		keyType, err := readFieldTypeWithFlags(buffer)
		if err != nil {
			return nil, fmt.Errorf("key type: %w", err)
		}
		valueType, err := readFieldTypeWithFlags(buffer)
		if err != nil {
			return nil, fmt.Errorf("value type: %w", err)
		}
		return NewMapFieldType(raw, keyType, valueType), nil
	}
	internal := TypeId(raw & 0xFF)
	if internal == UNKNOWN || isUserType(internal) || IsNamespacedType(internal) {
		return NewDynamicFieldType(raw), nil
	}
	return NewSimpleFieldType(raw), nil
}

func readFieldType(buffer *ByteBuffer) (FieldType, error) {
	raw := buffer.ReadVarUint32Small7()
	if err := buffer.Err(); err != nil {
		return nil, err
	}
	return fieldTypeFromId(raw, buffer)
}

func readFieldTypeWithFlags(buffer *ByteBuffer) (FieldType, error) {
	raw := buffer.ReadVarUint32Small7()
	if err := buffer.Err(); err != nil {
		return nil, err
	}
	return fieldTypeFromId(raw>>2, buffer)
}

// CollectionFieldType covers LIST and SET fields.
type CollectionFieldType struct {
	BaseFieldType
	elementType FieldType
}

func NewCollectionFieldType(typeId uint32, elementType FieldType) *CollectionFieldType {
	return &CollectionFieldType{
		BaseFieldType: BaseFieldType{typeId: typeId},
		elementType:   elementType,
	}
}

func (c *CollectionFieldType) write(buffer *ByteBuffer) {
	c.BaseFieldType.write(buffer)
	c.elementType.writeNested(buffer)
}

func (c *CollectionFieldType) writeNested(buffer *ByteBuffer) {
	c.BaseFieldType.writeNested(buffer)
	c.elementType.writeNested(buffer)
}

func (c *CollectionFieldType) getTypeInfo(resolver *TypeResolver) (TypeInfo, error) {
	if TypeId(c.typeId) == SET {
		return resolver.getTypeInfoByType(genericSetType, true)
	}
	elemInfo, err := c.elementType.getTypeInfo(resolver)
	if err != nil {
		return TypeInfo{}, err
	}
	sliceType := reflect.SliceOf(elemInfo.Type)
	return TypeInfo{
		Type:       sliceType,
		TypeID:     int32(LIST),
		Serializer: sliceSerializer{elemInfo: elemInfo, declaredType: sliceType},
	}, nil
}

// MapFieldType covers MAP fields.
type MapFieldType struct {
	BaseFieldType
	keyType   FieldType
	valueType FieldType
}

func NewMapFieldType(typeId uint32, keyType, valueType FieldType) *MapFieldType {
	return &MapFieldType{
		BaseFieldType: BaseFieldType{typeId: typeId},
		keyType:       keyType,
		valueType:     valueType,
	}
}

func (m *MapFieldType) write(buffer *ByteBuffer) {
	m.BaseFieldType.write(buffer)
	m.keyType.writeNested(buffer)
	m.valueType.writeNested(buffer)
}

func (m *MapFieldType) writeNested(buffer *ByteBuffer) {
	m.BaseFieldType.writeNested(buffer)
	m.keyType.writeNested(buffer)
	m.valueType.writeNested(buffer)
}

func (m *MapFieldType) getTypeInfo(resolver *TypeResolver) (TypeInfo, error) {
	keyInfo, err := m.keyType.getTypeInfo(resolver)
	if err != nil {
		return TypeInfo{}, err
	}
	valueInfo, err := m.valueType.getTypeInfo(resolver)
	if err != nil {
		return TypeInfo{}, err
	}
	mapType := reflect.MapOf(keyInfo.Type, valueInfo.Type)
	return TypeInfo{
		Type:       mapType,
		TypeID:     int32(MAP),
		Serializer: mapSerializer{declaredType: mapType, keyInfo: keyInfo, valueInfo: valueInfo},
	}, nil
}

// SimpleFieldType covers scalars, strings, time kinds and typed arrays.
type SimpleFieldType struct {
	BaseFieldType
}

func NewSimpleFieldType(typeId uint32) *SimpleFieldType {
	return &SimpleFieldType{BaseFieldType{typeId: typeId}}
}

// DynamicFieldType covers struct, enum, union, ext and interface fields whose
// concrete handling is resolved against the local registry at read time.
type DynamicFieldType struct {
	BaseFieldType
}

func NewDynamicFieldType(typeId uint32) *DynamicFieldType {
	return &DynamicFieldType{BaseFieldType{typeId: typeId}}
}

func (d *DynamicFieldType) getTypeInfo(resolver *TypeResolver) (TypeInfo, error) {
	if d.typeId != UNKNOWN {
		if info, err := resolver.getTypeInfoById(int32(d.typeId)); err == nil {
			return info, nil
		}
	}
	// Unknown here is fine: the field value carries its own type info.
	return TypeInfo{Type: interfaceType, TypeID: int32(UNKNOWN), IsDynamic: true}, nil
}

// buildFieldType maps a Go field type to its wire field type. The mapping
// must agree with the resolver's serializer choice for the same type, or the
// definition would promise a layout the payload does not use.
func buildFieldType(resolver *TypeResolver, type_ reflect.Type) (FieldType, error) {
	switch type_.Kind() {
	case reflect.Interface:
		return NewDynamicFieldType(UNKNOWN), nil
	case reflect.Ptr:
		// Nullability lives in the FieldDef header, not the field type.
		return buildFieldType(resolver, type_.Elem())
	case reflect.Map:
		if type_ == genericSetType {
			return NewCollectionFieldType(SET, NewDynamicFieldType(UNKNOWN)), nil
		}
		keyType, err := buildFieldType(resolver, type_.Key())
		if err != nil {
			return nil, err
		}
		valueType, err := buildFieldType(resolver, type_.Elem())
		if err != nil {
			return nil, err
		}
		return NewMapFieldType(MAP, keyType, valueType), nil
	case reflect.Slice, reflect.Array:
		if info, err := resolver.getTypeInfoByType(type_, true); err == nil {
			id := TypeId(info.TypeID & 0xFF)
			if id == BINARY || isPrimitiveArrayType(id) {
				return NewSimpleFieldType(uint32(id)), nil
			}
		}
		elementType, err := buildFieldType(resolver, type_.Elem())
		if err != nil {
			return nil, err
		}
		return NewCollectionFieldType(LIST, elementType), nil
	default:
		info, err := resolver.getTypeInfoByType(type_, true)
		if err != nil {
			return nil, err
		}
		internal := TypeId(info.TypeID & 0xFF)
		if isUserType(internal) || IsNamespacedType(internal) {
			return NewDynamicFieldType(uint32(info.TypeID)), nil
		}
		return NewSimpleFieldType(uint32(info.TypeID)), nil
	}
}

// ============================================================================
// Encoding
// ============================================================================

const (
	SmallNumFieldsThreshold = 31
	REGISTER_BY_NAME_FLAG   = 0b1 << 5
	FieldNameSizeThreshold  = 15
)

// Field name encodings, indexed by the 2 bit flag in the field header.
var fieldNameEncodings = []meta.Encoding{
	meta.UTF_8,
	meta.ALL_TO_LOWER_SPECIAL,
	meta.LOWER_UPPER_DIGIT_SPECIAL,
}

func getFieldNameEncodingIndex(encoding meta.Encoding) int {
	for i, enc := range fieldNameEncodings {
		if enc == encoding {
			return i
		}
	}
	return 0
}

func encodingTypeDef(resolver *TypeResolver, typeDef *TypeDef) ([]byte, error) {
	buffer := NewByteBuffer(nil)

	if err := writeMetaHeader(buffer, typeDef); err != nil {
		return nil, err
	}
	if typeDef.registerByName {
		if err := writeNameBytes(buffer, typeDef.nsName, namespaceEncodingFlag); err != nil {
			return nil, err
		}
		if err := writeNameBytes(buffer, typeDef.typeName, typeNameEncodingFlag); err != nil {
			return nil, err
		}
	} else {
		buffer.WriteVarUint32(typeDef.typeId)
	}
	if err := writeFieldDefs(resolver, buffer, typeDef.fieldDefs); err != nil {
		return nil, err
	}

	result := prependGlobalHeader(buffer, false, len(typeDef.fieldDefs) > 0)
	return result.GetByteSlice(0, result.WriterIndex()), nil
}

// prependGlobalHeader wraps the encoded body with the 8 byte header: 50 bits
// of body hash, the compress and fields-meta flags, and 12 bits of body size
// with a varint escape for oversized bodies.
func prependGlobalHeader(buffer *ByteBuffer, isCompressed bool, hasFieldsMeta bool) *ByteBuffer {
	var header uint64
	metaSize := buffer.WriterIndex()

	hashValue := murmur3.Sum64WithSeed(buffer.GetByteSlice(0, metaSize), 47)
	header |= hashValue << (64 - NUM_HASH_BITS)
	if hasFieldsMeta {
		header |= HAS_FIELDS_META_FLAG
	}
	if isCompressed {
		header |= COMPRESS_META_FLAG
	}
	if metaSize < META_SIZE_MASK {
		header |= uint64(metaSize) & META_SIZE_MASK
	} else {
		header |= META_SIZE_MASK
	}

	result := NewByteBuffer(nil)
	result.WriteInt64(int64(header))
	if metaSize >= META_SIZE_MASK {
		result.WriteVarUint32(uint32(metaSize - META_SIZE_MASK))
	}
	result.WriteBinary(buffer.GetByteSlice(0, metaSize))
	return result
}

// writeMetaHeader writes the 1 byte meta header: register-by-name flag and
// the field count, with a varint escape past 31 fields.
func writeMetaHeader(buffer *ByteBuffer, typeDef *TypeDef) error {
	offset := buffer.writerIndex
	buffer.WriteByte_(0xFF)
	header := len(typeDef.fieldDefs)
	if header > SmallNumFieldsThreshold {
		header = SmallNumFieldsThreshold
		buffer.WriteVarUint32(uint32(len(typeDef.fieldDefs) - SmallNumFieldsThreshold))
	}
	if typeDef.registerByName {
		header |= REGISTER_BY_NAME_FLAG
	}
	buffer.PutUint8(offset, uint8(header))
	return nil
}

func writeFieldDefs(resolver *TypeResolver, buffer *ByteBuffer, fieldDefs []FieldDef) error {
	for _, field := range fieldDefs {
		if err := writeFieldDef(resolver, buffer, field); err != nil {
			return fmt.Errorf("field %s: %w", field.name, err)
		}
	}
	return nil
}

// writeFieldDef writes one field: the packed header byte, the field type,
// then the encoded name. The name size is stored 1-based in 4 bits with a
// varint escape.
func writeFieldDef(resolver *TypeResolver, buffer *ByteBuffer, field FieldDef) error {
	offset := buffer.writerIndex
	buffer.WriteByte_(0xFF)
	var header uint8
	if field.trackingRef {
		header |= 0b1
	}
	if field.nullable {
		header |= 0b10
	}
	header |= byte(getFieldNameEncodingIndex(field.nameEncoding)) << 6

	metaString, err := resolver.typeNameEncoder.EncodeWithEncoding(field.name, field.nameEncoding)
	if err != nil {
		return err
	}
	nameLen := len(metaString.GetEncodedBytes())
	if nameLen < FieldNameSizeThreshold {
		header |= uint8((nameLen-1)&0x0F) << 2
	} else {
		header |= 0x0F << 2
		buffer.WriteVarUint32(uint32(nameLen - FieldNameSizeThreshold))
	}
	buffer.PutUint8(offset, header)

	field.fieldType.write(buffer)
	buffer.WriteBinary(metaString.GetEncodedBytes())
	return nil
}

// ============================================================================
// Decoding
// ============================================================================

// decodeTypeDef reads one definition body (the 8 byte header was read by the
// caller) and resolves it against the local registry. The encoded bytes are
// copied out of the stream because definitions are cached across calls.
func decodeTypeDef(resolver *TypeResolver, buffer *ByteBuffer, header int64) (*TypeDef, error) {
	hasFieldsMeta := (header & HAS_FIELDS_META_FLAG) != 0
	isCompressed := (header & COMPRESS_META_FLAG) != 0
	if isCompressed {
		return nil, invalidDataf("compressed type meta is not supported")
	}
	metaSize := int(header & META_SIZE_MASK)
	if metaSize == META_SIZE_MASK {
		metaSize += int(buffer.ReadVarUint32())
	}
	encoded := append([]byte(nil), buffer.ReadBinary(metaSize)...)
	if err := buffer.Err(); err != nil {
		return nil, err
	}
	metaBuffer := NewByteBuffer(encoded)

	metaHeaderByte := metaBuffer.ReadByte_()
	fieldCount := int(metaHeaderByte & SmallNumFieldsThreshold)
	if fieldCount == SmallNumFieldsThreshold {
		fieldCount += int(metaBuffer.ReadVarUint32())
	}
	registeredByName := (metaHeaderByte & REGISTER_BY_NAME_FLAG) != 0

	var typeId uint32
	var nsBytes, nameBytes *MetaStringBytes
	var type_ reflect.Type
	if registeredByName {
		var err error
		nsBytes, err = readNameBytes(metaBuffer, namespaceEncodingFromFlag)
		if err != nil {
			return nil, fmt.Errorf("namespace: %w", err)
		}
		nameBytes, err = readNameBytes(metaBuffer, typeNameEncodingFromFlag)
		if err != nil {
			return nil, fmt.Errorf("type name: %w", err)
		}

		key := nsTypeKey{nsBytes.Hashcode, nameBytes.Hashcode}
		info, exists := resolver.nsTypeToTypeInfo[key]
		if !exists {
			ns, _ := resolver.namespaceDecoder.Decode(nsBytes.Data, nsBytes.Encoding)
			name, _ := resolver.typeNameDecoder.Decode(nameBytes.Data, nameBytes.Encoding)
			if fallback, ok := resolver.namedTypeToTypeInfo[[2]string{ns, name}]; ok {
				info, exists = fallback, true
				resolver.nsTypeToTypeInfo[key] = info
			}
		}
		if exists {
			// Definitions always describe value types; normalize in case the
			// pointer entry was found.
			type_ = info.Type
			if type_.Kind() == reflect.Ptr {
				type_ = type_.Elem()
			}
			typeId = uint32(info.TypeID)
		} else {
			typeId = uint32(NAMED_STRUCT)
		}
	} else {
		typeId = metaBuffer.ReadVarUint32()
		if info, exists := resolver.typeIDToTypeInfo[int32(typeId)]; exists {
			type_ = info.Type
		}
	}

	fieldDefs := make([]FieldDef, fieldCount)
	if hasFieldsMeta {
		for i := 0; i < fieldCount; i++ {
			fieldDef, err := readFieldDef(resolver, metaBuffer)
			if err != nil {
				return nil, fmt.Errorf("field def %d: %w", i, err)
			}
			fieldDefs[i] = fieldDef
		}
	}
	if err := metaBuffer.Err(); err != nil {
		return nil, err
	}

	typeDef := NewTypeDef(typeId, nsBytes, nameBytes, registeredByName, false, fieldDefs)
	typeDef.encoded = encoded
	typeDef.type_ = type_
	return typeDef, nil
}

func readFieldDef(resolver *TypeResolver, buffer *ByteBuffer) (FieldDef, error) {
	headerByte := buffer.ReadByte_()
	if err := buffer.Err(); err != nil {
		return FieldDef{}, err
	}
	nameEncodingFlag := (headerByte >> 6) & 0b11
	nameEncoding := fieldNameEncodings[nameEncodingFlag]
	nameLen := int((headerByte >> 2) & 0x0F)
	trackingRef := (headerByte & 0b1) != 0
	isNullable := (headerByte & 0b10) != 0
	if nameLen == 0x0F {
		nameLen = FieldNameSizeThreshold + int(buffer.ReadVarUint32())
	} else {
		nameLen++
	}

	ft, err := readFieldType(buffer)
	if err != nil {
		return FieldDef{}, err
	}

	nameData := buffer.ReadBinary(nameLen)
	if err := buffer.Err(); err != nil {
		return FieldDef{}, err
	}
	fieldName, err := resolver.typeNameDecoder.Decode(nameData, nameEncoding)
	if err != nil {
		return FieldDef{}, fmt.Errorf("field name: %w", err)
	}

	return FieldDef{
		name:         fieldName,
		nameEncoding: nameEncoding,
		fieldType:    ft,
		nullable:     isNullable,
		trackingRef:  trackingRef,
	}, nil
}
