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
	"strings"
	"time"

	"github.com/apache/fory-go/meta"
)

// ============================================================================
// TypeInfo
// ============================================================================

// TypeInfo bundles everything the serialization path needs to know about one
// Go type: its wire type id, the serializer that handles it, and (for types
// registered by name) the encoded namespace and type name bytes.
//
// TypeID holds the composite id for types registered by numeric id
// (userTypeId<<8 | internalId) and the bare internal id for builtin and
// name-registered types.
type TypeInfo struct {
	Type         reflect.Type
	TypeID       int32
	Serializer   Serializer
	PkgPathBytes *MetaStringBytes
	NameBytes    *MetaStringBytes
	IsDynamic    bool
}

// nsTypeKey identifies a name-registered type by the hashes of its encoded
// namespace and type name, so wire lookups avoid decoding the meta strings.
type nsTypeKey struct {
	nsHash   int64
	nameHash int64
}

// ============================================================================
// Reflect type singletons
// ============================================================================

var (
	boolType      = reflect.TypeOf(false)
	int8Type      = reflect.TypeOf(int8(0))
	int16Type     = reflect.TypeOf(int16(0))
	int32Type     = reflect.TypeOf(int32(0))
	int64Type     = reflect.TypeOf(int64(0))
	intType       = reflect.TypeOf(int(0))
	uint8Type     = reflect.TypeOf(uint8(0))
	uint16Type    = reflect.TypeOf(uint16(0))
	uint32Type    = reflect.TypeOf(uint32(0))
	uint64Type    = reflect.TypeOf(uint64(0))
	uintType      = reflect.TypeOf(uint(0))
	float32Type   = reflect.TypeOf(float32(0))
	float64Type   = reflect.TypeOf(float64(0))
	stringType    = reflect.TypeOf("")
	timeType      = reflect.TypeOf(time.Time{})
	durationType  = reflect.TypeOf(time.Duration(0))
	dateType      = reflect.TypeOf(Date{})
	interfaceType = reflect.TypeOf((*interface{})(nil)).Elem()

	byteSliceType      = reflect.TypeOf([]byte(nil))
	boolSliceType      = reflect.TypeOf([]bool(nil))
	int8SliceType      = reflect.TypeOf([]int8(nil))
	int16SliceType     = reflect.TypeOf([]int16(nil))
	int32SliceType     = reflect.TypeOf([]int32(nil))
	int64SliceType     = reflect.TypeOf([]int64(nil))
	intSliceType       = reflect.TypeOf([]int(nil))
	float32SliceType   = reflect.TypeOf([]float32(nil))
	float64SliceType   = reflect.TypeOf([]float64(nil))
	stringSliceType    = reflect.TypeOf([]string(nil))
	interfaceSliceType = reflect.TypeOf([]interface{}(nil))
	interfaceMapType   = reflect.TypeOf(map[interface{}]interface{}(nil))
	genericSetType     = reflect.TypeOf(GenericSet(nil))
)

// namespace strings allow a-z, digits, '.' and '_'; type names additionally
// use '$' for nested type names produced by other languages.
var (
	namespaceEncodings = []meta.Encoding{
		meta.UTF_8, meta.ALL_TO_LOWER_SPECIAL, meta.LOWER_UPPER_DIGIT_SPECIAL,
	}
	typeNameEncodings = []meta.Encoding{
		meta.UTF_8, meta.LOWER_UPPER_DIGIT_SPECIAL,
		meta.FIRST_TO_LOWER_SPECIAL, meta.ALL_TO_LOWER_SPECIAL,
	}
)

// maxUserTypeId keeps userTypeId<<8|internalId inside int32.
const maxUserTypeId = 0x7FFFFF

// ============================================================================
// TypeResolver
// ============================================================================

// TypeResolver maps Go types to wire type ids and serializers in both
// directions. Builtin types are seeded at construction; struct, enum, union
// and extension types enter through the Register* methods. Lookups for
// unregistered types fall back to structural mapping by reflect.Kind, except
// for struct types, which always require registration.
//
// A resolver is not safe for concurrent use; ThreadSafeFory pools whole Fory
// instances instead of locking here.
type TypeResolver struct {
	config Config

	typeToTypeInfo      map[reflect.Type]TypeInfo
	typeIDToTypeInfo    map[int32]TypeInfo
	namedTypeToTypeInfo map[[2]string]TypeInfo
	nsTypeToTypeInfo    map[nsTypeKey]TypeInfo

	// registeredTypes separates explicit registrations from memoized
	// structural lookups, so a lazy lookup never blocks a later Register call.
	registeredTypes map[reflect.Type]bool

	metaStringResolver *MetaStringResolver

	namespaceEncoder *meta.Encoder
	namespaceDecoder *meta.Decoder
	typeNameEncoder  *meta.Encoder
	typeNameDecoder  *meta.Decoder

	// typeDefCache holds encoded definitions for local struct types;
	// defIdToTypeDef and defIdToTypeInfo cache decoded remote definitions
	// keyed by the 8 byte definition header. All three survive resets.
	typeDefCache   map[reflect.Type]*TypeDef
	defIdToTypeDef map[int64]*TypeDef
	defIdToTypeInfo map[int64]TypeInfo
}

func newTypeResolver(config Config) *TypeResolver {
	r := &TypeResolver{
		config:              config,
		typeToTypeInfo:      make(map[reflect.Type]TypeInfo),
		typeIDToTypeInfo:    make(map[int32]TypeInfo),
		namedTypeToTypeInfo: make(map[[2]string]TypeInfo),
		nsTypeToTypeInfo:    make(map[nsTypeKey]TypeInfo),
		registeredTypes:     make(map[reflect.Type]bool),
		metaStringResolver:  NewMetaStringResolver(),
		namespaceEncoder:    meta.NewEncoder('.', '_'),
		namespaceDecoder:    meta.NewDecoder('.', '_'),
		typeNameEncoder:     meta.NewEncoder('$', '_'),
		typeNameDecoder:     meta.NewDecoder('$', '_'),
		typeDefCache:        make(map[reflect.Type]*TypeDef),
		defIdToTypeDef:      make(map[int64]*TypeDef),
		defIdToTypeInfo:     make(map[int64]TypeInfo),
	}
	r.seedBuiltins()
	return r
}

// seed records a builtin type. The first type seeded for an id becomes the
// decode target for that id; []int shares INT64_ARRAY with []int64 but only
// []int64 is materialized when reading into an untyped slot.
func (r *TypeResolver) seed(type_ reflect.Type, id TypeId, s Serializer) {
	info := TypeInfo{Type: type_, TypeID: int32(id), Serializer: s}
	r.typeToTypeInfo[type_] = info
	if _, ok := r.typeIDToTypeInfo[int32(id)]; !ok {
		r.typeIDToTypeInfo[int32(id)] = info
	}
}

func (r *TypeResolver) seedBuiltins() {
	r.seed(boolType, BOOL, boolSerializer{})
	r.seed(int8Type, INT8, int8Serializer{})
	r.seed(int16Type, INT16, int16Serializer{})
	r.seed(int32Type, VAR_INT32, int32Serializer{})
	r.seed(int64Type, VAR_INT64, int64Serializer{})
	r.seed(intType, VAR_INT64, intSerializer{})
	r.seed(uint8Type, UINT8, uint8Serializer{})
	r.seed(uint16Type, UINT16, uint16Serializer{})
	r.seed(uint32Type, UINT32, uint32Serializer{})
	r.seed(uint64Type, UINT64, uint64Serializer{})
	r.seed(uintType, UINT64, uintSerializer{})
	r.seed(float32Type, FLOAT, float32Serializer{})
	r.seed(float64Type, DOUBLE, float64Serializer{})
	r.seed(stringType, STRING, stringSerializer{})
	r.seed(timeType, TIMESTAMP, timeSerializer{})
	r.seed(durationType, DURATION, durationSerializer{})
	r.seed(dateType, LOCAL_DATE, dateSerializer{})

	r.seed(byteSliceType, BINARY, byteSliceSerializer{})
	r.seed(boolSliceType, BOOL_ARRAY, boolSliceSerializer{})
	r.seed(int8SliceType, INT8_ARRAY, int8SliceSerializer{})
	r.seed(int16SliceType, INT16_ARRAY, int16SliceSerializer{})
	r.seed(int32SliceType, INT32_ARRAY, int32SliceSerializer{})
	r.seed(int64SliceType, INT64_ARRAY, int64SliceSerializer{})
	r.seed(intSliceType, INT64_ARRAY, intSliceSerializer{})
	r.seed(float32SliceType, FLOAT32_ARRAY, float32SliceSerializer{})
	r.seed(float64SliceType, FLOAT64_ARRAY, float64SliceSerializer{})

	// Untyped slots decode LIST, SET and MAP into the generic containers, so
	// those claim the id slots before the specialized slice types.
	r.seed(interfaceSliceType, LIST, sliceSerializer{declaredType: interfaceSliceType})
	r.seed(genericSetType, SET, setSerializer{})
	r.seed(interfaceMapType, MAP, mapSerializer{declaredType: interfaceMapType})
	r.seed(stringSliceType, LIST, stringSliceSerializer{})

	r.typeToTypeInfo[interfaceType] = TypeInfo{
		Type: interfaceType, TypeID: int32(UNKNOWN), IsDynamic: true,
	}
}

// ============================================================================
// Registration
// ============================================================================

// RegisterType binds a type to a numeric user type id. Struct types become
// STRUCT (or COMPATIBLE_STRUCT in compatible mode); integer kinds become
// enums whose wire ordinal is the integer value itself.
func (r *TypeResolver) RegisterType(type_ reflect.Type, id uint32) error {
	type_ = normalizeType(type_)
	switch {
	case type_.Kind() == reflect.Struct:
		return r.registerStruct(type_, id)
	case isIntegerKind(type_.Kind()):
		return r.registerEnum(type_, id, nil)
	case type_.Kind() == reflect.Interface:
		return fmt.Errorf("fory: interface type %v must be registered as a union", type_)
	default:
		return fmt.Errorf("fory: cannot register %v: kind %v has a builtin mapping", type_, type_.Kind())
	}
}

// RegisterNamedType binds a type to a namespace and type name instead of a
// numeric id. An empty namespace with a dotted typeName is split at the last
// dot, so "shop.Order" means namespace "shop", name "Order".
func (r *TypeResolver) RegisterNamedType(type_ reflect.Type, namespace, typeName string) error {
	type_ = normalizeType(type_)
	switch {
	case type_.Kind() == reflect.Struct:
		return r.registerNamedStruct(type_, namespace, typeName)
	case isIntegerKind(type_.Kind()):
		return r.registerNamedEnum(type_, namespace, typeName, nil)
	case type_.Kind() == reflect.Interface:
		return fmt.Errorf("fory: interface type %v must be registered as a union", type_)
	default:
		return fmt.Errorf("fory: cannot register %v by name: kind %v has a builtin mapping", type_, type_.Kind())
	}
}

func (r *TypeResolver) registerStruct(type_ reflect.Type, id uint32) error {
	internal := TypeId(STRUCT)
	if r.config.Compatible {
		internal = COMPATIBLE_STRUCT
	}
	typeID, err := r.composeTypeId(id, internal)
	if err != nil {
		return err
	}
	if err := r.checkIdRegistration(type_, typeID); err != nil {
		return err
	}
	ser := newStructSerializer(type_, typeID)
	info := TypeInfo{Type: type_, TypeID: typeID, Serializer: ser}
	r.bindTypeInfo(info)
	r.typeIDToTypeInfo[typeID] = info
	r.bindPointerInfo(info)
	return nil
}

func (r *TypeResolver) registerNamedStruct(type_ reflect.Type, namespace, typeName string) error {
	internal := TypeId(NAMED_STRUCT)
	if r.config.Compatible {
		internal = NAMED_COMPATIBLE_STRUCT
	}
	nsBytes, nameBytes, ns, name, err := r.encodeTypeName(namespace, typeName)
	if err != nil {
		return err
	}
	if err := r.checkNameRegistration(type_, ns, name); err != nil {
		return err
	}
	ser := newStructSerializer(type_, int32(internal))
	info := TypeInfo{
		Type: type_, TypeID: int32(internal), Serializer: ser,
		PkgPathBytes: nsBytes, NameBytes: nameBytes,
	}
	r.bindTypeInfo(info)
	r.bindNamedTypeInfo(info, ns, name)
	r.bindPointerInfo(info)
	return nil
}

// registerEnum binds an integer kind type as an enum. With an explicit value
// list the wire ordinal is the index into that list; without one the integer
// value itself is the ordinal and must be non-negative.
func (r *TypeResolver) registerEnum(type_ reflect.Type, id uint32, values []reflect.Value) error {
	typeID, err := r.composeTypeId(id, ENUM)
	if err != nil {
		return err
	}
	if err := r.checkIdRegistration(type_, typeID); err != nil {
		return err
	}
	ser, err := newEnumSerializer(type_, typeID, values)
	if err != nil {
		return err
	}
	info := TypeInfo{Type: type_, TypeID: typeID, Serializer: ser}
	r.bindTypeInfo(info)
	r.typeIDToTypeInfo[typeID] = info
	return nil
}

func (r *TypeResolver) registerNamedEnum(type_ reflect.Type, namespace, typeName string, values []reflect.Value) error {
	nsBytes, nameBytes, ns, name, err := r.encodeTypeName(namespace, typeName)
	if err != nil {
		return err
	}
	if err := r.checkNameRegistration(type_, ns, name); err != nil {
		return err
	}
	ser, err := newEnumSerializer(type_, int32(NAMED_ENUM), values)
	if err != nil {
		return err
	}
	info := TypeInfo{
		Type: type_, TypeID: int32(NAMED_ENUM), Serializer: ser,
		PkgPathBytes: nsBytes, NameBytes: nameBytes,
	}
	r.bindTypeInfo(info)
	r.bindNamedTypeInfo(info, ns, name)
	return nil
}

// registerUnion binds a closed interface type to an ordered case list. The
// wire payload carries the case index followed by the case value.
func (r *TypeResolver) registerUnion(ifaceType reflect.Type, id uint32, cases []reflect.Type) error {
	typeID, err := r.composeTypeId(id, UNION)
	if err != nil {
		return err
	}
	if err := r.validateUnion(ifaceType, cases); err != nil {
		return err
	}
	if err := r.checkIdRegistration(ifaceType, typeID); err != nil {
		return err
	}
	ser := newUnionSerializer(typeID, cases)
	info := TypeInfo{Type: ifaceType, TypeID: typeID, Serializer: ser}
	r.bindTypeInfo(info)
	r.typeIDToTypeInfo[typeID] = info
	return nil
}

func (r *TypeResolver) registerNamedUnion(ifaceType reflect.Type, namespace, typeName string, cases []reflect.Type) error {
	if err := r.validateUnion(ifaceType, cases); err != nil {
		return err
	}
	nsBytes, nameBytes, ns, name, err := r.encodeTypeName(namespace, typeName)
	if err != nil {
		return err
	}
	if err := r.checkNameRegistration(ifaceType, ns, name); err != nil {
		return err
	}
	ser := newUnionSerializer(int32(NAMED_UNION), cases)
	info := TypeInfo{
		Type: ifaceType, TypeID: int32(NAMED_UNION), Serializer: ser,
		PkgPathBytes: nsBytes, NameBytes: nameBytes,
	}
	r.bindTypeInfo(info)
	r.bindNamedTypeInfo(info, ns, name)
	return nil
}

func (r *TypeResolver) validateUnion(ifaceType reflect.Type, cases []reflect.Type) error {
	if ifaceType.Kind() != reflect.Interface {
		return fmt.Errorf("fory: union type %v is not an interface", ifaceType)
	}
	if len(cases) == 0 {
		return fmt.Errorf("fory: union %v needs at least one case", ifaceType)
	}
	for _, c := range cases {
		if !c.Implements(ifaceType) && !reflect.PtrTo(c).Implements(ifaceType) {
			return fmt.Errorf("fory: union case %v does not implement %v", c, ifaceType)
		}
	}
	return nil
}

// registerExtension binds a type to a user supplied codec that exchanges
// opaque bytes with the stream.
func (r *TypeResolver) registerExtension(type_ reflect.Type, id uint32, codec ExtensionCodec) error {
	type_ = normalizeType(type_)
	typeID, err := r.composeTypeId(id, EXT)
	if err != nil {
		return err
	}
	if err := r.checkIdRegistration(type_, typeID); err != nil {
		return err
	}
	ser := newExtSerializer(type_, typeID, codec)
	info := TypeInfo{Type: type_, TypeID: typeID, Serializer: ser}
	r.bindTypeInfo(info)
	r.typeIDToTypeInfo[typeID] = info
	if type_.Kind() == reflect.Struct {
		r.bindPointerInfo(info)
	}
	return nil
}

func (r *TypeResolver) registerNamedExtension(type_ reflect.Type, namespace, typeName string, codec ExtensionCodec) error {
	type_ = normalizeType(type_)
	nsBytes, nameBytes, ns, name, err := r.encodeTypeName(namespace, typeName)
	if err != nil {
		return err
	}
	if err := r.checkNameRegistration(type_, ns, name); err != nil {
		return err
	}
	ser := newExtSerializer(type_, int32(NAMED_EXT), codec)
	info := TypeInfo{
		Type: type_, TypeID: int32(NAMED_EXT), Serializer: ser,
		PkgPathBytes: nsBytes, NameBytes: nameBytes,
	}
	r.bindTypeInfo(info)
	r.bindNamedTypeInfo(info, ns, name)
	if type_.Kind() == reflect.Struct {
		r.bindPointerInfo(info)
	}
	return nil
}

// bindTypeInfo installs an explicit registration, replacing any structural
// mapping memoized by an earlier lookup.
func (r *TypeResolver) bindTypeInfo(info TypeInfo) {
	r.typeToTypeInfo[info.Type] = info
	r.registeredTypes[info.Type] = true
}

func (r *TypeResolver) bindNamedTypeInfo(info TypeInfo, ns, name string) {
	r.namedTypeToTypeInfo[[2]string{ns, name}] = info
	r.nsTypeToTypeInfo[nsTypeKey{info.PkgPathBytes.Hashcode, info.NameBytes.Hashcode}] = info
}

// bindPointerInfo registers *T alongside T so pointer fields and pointer
// roots resolve without a lookup miss. The pointer shares the value type's
// id; only the serializer differs.
func (r *TypeResolver) bindPointerInfo(info TypeInfo) {
	ptrType := reflect.PtrTo(info.Type)
	ptrInfo := info
	ptrInfo.Type = ptrType
	ptrInfo.Serializer = newPtrToStructSerializer(info.Type, info.Serializer)
	r.typeToTypeInfo[ptrType] = ptrInfo
	r.registeredTypes[ptrType] = true
}

func (r *TypeResolver) composeTypeId(id uint32, internal TypeId) (int32, error) {
	if id > maxUserTypeId {
		return 0, fmt.Errorf("fory: user type id %d exceeds %d", id, maxUserTypeId)
	}
	return int32(id)<<8 | int32(internal), nil
}

func (r *TypeResolver) checkIdRegistration(type_ reflect.Type, typeID int32) error {
	if r.registeredTypes[type_] {
		return duplicatef("type %v", type_)
	}
	if prev, ok := r.typeIDToTypeInfo[typeID]; ok && isUserType(TypeId(typeID&0xFF)) {
		return duplicatef("type id %d already bound to %v", typeID>>8, prev.Type)
	}
	return nil
}

func (r *TypeResolver) checkNameRegistration(type_ reflect.Type, ns, name string) error {
	if r.registeredTypes[type_] {
		return duplicatef("type %v", type_)
	}
	if prev, ok := r.namedTypeToTypeInfo[[2]string{ns, name}]; ok {
		return duplicatef("name %q.%q already bound to %v", ns, name, prev.Type)
	}
	return nil
}

// encodeTypeName encodes the namespace and type name meta strings with the
// restricted encoding sets shared by all fory implementations.
func (r *TypeResolver) encodeTypeName(namespace, typeName string) (*MetaStringBytes, *MetaStringBytes, string, string, error) {
	if namespace == "" {
		if idx := strings.LastIndexByte(typeName, '.'); idx >= 0 {
			namespace, typeName = typeName[:idx], typeName[idx+1:]
		}
	}
	if typeName == "" {
		return nil, nil, "", "", fmt.Errorf("fory: empty type name")
	}
	nsEncoding := r.namespaceEncoder.ComputeEncodingWith(namespace, namespaceEncodings)
	nsMs, err := r.namespaceEncoder.EncodeWithEncoding(namespace, nsEncoding)
	if err != nil {
		return nil, nil, "", "", err
	}
	nameEncoding := r.typeNameEncoder.ComputeEncodingWith(typeName, typeNameEncodings)
	nameMs, err := r.typeNameEncoder.EncodeWithEncoding(typeName, nameEncoding)
	if err != nil {
		return nil, nil, "", "", err
	}
	nsBytes := r.metaStringResolver.GetMetaStrBytes(&nsMs)
	nameBytes := r.metaStringResolver.GetMetaStrBytes(&nameMs)
	return nsBytes, nameBytes, namespace, typeName, nil
}

// ============================================================================
// Lookup
// ============================================================================

// getTypeInfo resolves the type info for a value, unwrapping interfaces to
// their concrete type first. Null interface values cannot be resolved; the
// caller's ref flag handling deals with them before reaching here.
func (r *TypeResolver) getTypeInfo(value reflect.Value, create bool) (TypeInfo, error) {
	if !value.IsValid() {
		return TypeInfo{}, invalidDataf("cannot resolve type of invalid value")
	}
	if value.Kind() == reflect.Interface {
		if value.IsNil() {
			return TypeInfo{}, invalidDataf("cannot resolve type of nil interface")
		}
		value = value.Elem()
	}
	return r.getTypeInfoByType(value.Type(), create)
}

func (r *TypeResolver) getTypeInfoByType(type_ reflect.Type, create bool) (TypeInfo, error) {
	if info, ok := r.typeToTypeInfo[type_]; ok {
		return info, nil
	}
	if !create {
		return TypeInfo{}, unknownTypef("no type info for %v", type_)
	}
	return r.createTypeInfo(type_)
}

func (r *TypeResolver) getTypeInfoById(id int32) (TypeInfo, error) {
	if info, ok := r.typeIDToTypeInfo[id]; ok {
		return info, nil
	}
	return TypeInfo{}, unknownTypef("type id %d", id)
}

func (r *TypeResolver) getSerializerByType(type_ reflect.Type, create bool) (Serializer, error) {
	info, err := r.getTypeInfoByType(type_, create)
	if err != nil {
		return nil, err
	}
	if info.Serializer == nil {
		if info.IsDynamic {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrNoSerializer, type_)
	}
	return info.Serializer, nil
}

// createTypeInfo maps an unregistered type structurally by kind and memoizes
// the result. Struct kinds stay registration-only.
func (r *TypeResolver) createTypeInfo(type_ reflect.Type) (TypeInfo, error) {
	var info TypeInfo
	switch type_.Kind() {
	case reflect.Bool:
		info = TypeInfo{Type: type_, TypeID: int32(BOOL), Serializer: boolSerializer{}}
	case reflect.Int8:
		info = TypeInfo{Type: type_, TypeID: int32(INT8), Serializer: int8Serializer{}}
	case reflect.Int16:
		info = TypeInfo{Type: type_, TypeID: int32(INT16), Serializer: int16Serializer{}}
	case reflect.Int32:
		info = TypeInfo{Type: type_, TypeID: int32(VAR_INT32), Serializer: int32Serializer{}}
	case reflect.Int64:
		info = TypeInfo{Type: type_, TypeID: int32(VAR_INT64), Serializer: int64Serializer{}}
	case reflect.Int:
		info = TypeInfo{Type: type_, TypeID: int32(VAR_INT64), Serializer: intSerializer{}}
	case reflect.Uint8:
		info = TypeInfo{Type: type_, TypeID: int32(UINT8), Serializer: uint8Serializer{}}
	case reflect.Uint16:
		info = TypeInfo{Type: type_, TypeID: int32(UINT16), Serializer: uint16Serializer{}}
	case reflect.Uint32:
		info = TypeInfo{Type: type_, TypeID: int32(UINT32), Serializer: uint32Serializer{}}
	case reflect.Uint64:
		info = TypeInfo{Type: type_, TypeID: int32(UINT64), Serializer: uint64Serializer{}}
	case reflect.Uint:
		info = TypeInfo{Type: type_, TypeID: int32(UINT64), Serializer: uintSerializer{}}
	case reflect.Float32:
		info = TypeInfo{Type: type_, TypeID: int32(FLOAT), Serializer: float32Serializer{}}
	case reflect.Float64:
		info = TypeInfo{Type: type_, TypeID: int32(DOUBLE), Serializer: float64Serializer{}}
	case reflect.String:
		info = TypeInfo{Type: type_, TypeID: int32(STRING), Serializer: stringSerializer{}}
	case reflect.Slice:
		info = r.createSliceTypeInfo(type_)
	case reflect.Array:
		info = TypeInfo{Type: type_, TypeID: int32(LIST), Serializer: arraySerializer{declaredType: type_}}
	case reflect.Map:
		info = TypeInfo{Type: type_, TypeID: int32(MAP), Serializer: mapSerializer{declaredType: type_}}
	case reflect.Ptr:
		return r.createPtrTypeInfo(type_)
	case reflect.Interface:
		info = TypeInfo{Type: type_, TypeID: int32(UNKNOWN), IsDynamic: true}
	case reflect.Struct:
		if opt, ok := getOptionalInfo(type_); ok {
			return r.createOptionalTypeInfo(type_, opt)
		}
		return TypeInfo{}, unknownTypef("struct %v is not registered", type_)
	default:
		return TypeInfo{}, fmt.Errorf("%w: kind %v of %v", ErrNoSerializer, type_.Kind(), type_)
	}
	r.typeToTypeInfo[type_] = info
	return info, nil
}

// createSliceTypeInfo gives the typed array fast path only to slices of the
// exact builtin element types. Named element types keep their own identity
// and go through the generic list path.
func (r *TypeResolver) createSliceTypeInfo(type_ reflect.Type) TypeInfo {
	switch type_.Elem() {
	case uint8Type:
		return TypeInfo{Type: type_, TypeID: int32(BINARY), Serializer: byteSliceSerializer{}}
	case boolType:
		return TypeInfo{Type: type_, TypeID: int32(BOOL_ARRAY), Serializer: boolSliceSerializer{}}
	case int8Type:
		return TypeInfo{Type: type_, TypeID: int32(INT8_ARRAY), Serializer: int8SliceSerializer{}}
	case int16Type:
		return TypeInfo{Type: type_, TypeID: int32(INT16_ARRAY), Serializer: int16SliceSerializer{}}
	case int32Type:
		return TypeInfo{Type: type_, TypeID: int32(INT32_ARRAY), Serializer: int32SliceSerializer{}}
	case int64Type:
		return TypeInfo{Type: type_, TypeID: int32(INT64_ARRAY), Serializer: int64SliceSerializer{}}
	case intType:
		return TypeInfo{Type: type_, TypeID: int32(INT64_ARRAY), Serializer: intSliceSerializer{}}
	case float32Type:
		return TypeInfo{Type: type_, TypeID: int32(FLOAT32_ARRAY), Serializer: float32SliceSerializer{}}
	case float64Type:
		return TypeInfo{Type: type_, TypeID: int32(FLOAT64_ARRAY), Serializer: float64SliceSerializer{}}
	case stringType:
		return TypeInfo{Type: type_, TypeID: int32(LIST), Serializer: stringSliceSerializer{}}
	default:
		return TypeInfo{Type: type_, TypeID: int32(LIST), Serializer: sliceSerializer{declaredType: type_}}
	}
}

// createPtrTypeInfo wraps the element's serializer with null handling. The
// pointer carries the element's wire id; registered struct pointers were
// bound at registration time and never reach here.
func (r *TypeResolver) createPtrTypeInfo(type_ reflect.Type) (TypeInfo, error) {
	elemInfo, err := r.getTypeInfoByType(type_.Elem(), true)
	if err != nil {
		return TypeInfo{}, err
	}
	info := elemInfo
	info.Type = type_
	if type_.Elem().Kind() == reflect.Struct && type_.Elem() != timeType && type_.Elem() != dateType {
		info.Serializer = newPtrToStructSerializer(type_.Elem(), elemInfo.Serializer)
	} else {
		info.Serializer = ptrSerializer{elemInfo: elemInfo}
	}
	r.typeToTypeInfo[type_] = info
	return info, nil
}

// ============================================================================
// Wire type info
// ============================================================================

// writeTypeInfo emits the type descriptor: one byte of internal type id, then
// the id dependent tail. Compatible struct kinds write an index into the meta
// context and queue their definition for the defs block; name-registered
// kinds write both meta strings; id-registered kinds write the user type id;
// builtin ids have no tail.
func (r *TypeResolver) writeTypeInfo(buffer *ByteBuffer, typeInfo TypeInfo, metaCtx *MetaContext) error {
	internalId := TypeId(typeInfo.TypeID & 0xFF)
	buffer.WriteByte_(byte(internalId))
	switch {
	case internalId == COMPATIBLE_STRUCT || internalId == NAMED_COMPATIBLE_STRUCT:
		if metaCtx == nil {
			return invalidDataf("compatible struct %v outside compatible mode", typeInfo.Type)
		}
		type_ := typeInfo.Type
		for type_.Kind() == reflect.Ptr {
			type_ = type_.Elem()
		}
		index, ok := metaCtx.typeIndex[type_]
		if !ok {
			typeDef, err := r.getTypeDef(type_, true)
			if err != nil {
				return err
			}
			index = uint32(len(metaCtx.writingTypeDefs))
			metaCtx.typeIndex[type_] = index
			metaCtx.writingTypeDefs = append(metaCtx.writingTypeDefs, typeDef)
		}
		buffer.WriteVarUint32(index)
	case IsNamespacedType(internalId):
		r.metaStringResolver.WriteMetaStringBytes(buffer, typeInfo.PkgPathBytes)
		r.metaStringResolver.WriteMetaStringBytes(buffer, typeInfo.NameBytes)
	case isUserType(internalId):
		buffer.WriteVarUint32(uint32(typeInfo.TypeID) >> 8)
	}
	return nil
}

// readTypeInfo mirrors writeTypeInfo. Named lookups try the encoded-bytes
// hash key first and fall back to decoding the strings once, memoizing the
// hash key for the rest of the stream.
func (r *TypeResolver) readTypeInfo(buffer *ByteBuffer, metaCtx *MetaContext) (TypeInfo, error) {
	internalId := TypeId(buffer.ReadByte_())
	if err := buffer.Err(); err != nil {
		return TypeInfo{}, err
	}
	switch {
	case internalId == COMPATIBLE_STRUCT || internalId == NAMED_COMPATIBLE_STRUCT:
		if metaCtx == nil {
			return TypeInfo{}, invalidDataf("compatible struct type info outside compatible mode")
		}
		index := buffer.ReadVarUint32()
		if err := buffer.Err(); err != nil {
			return TypeInfo{}, err
		}
		if int(index) >= len(metaCtx.readTypeInfos) {
			return TypeInfo{}, invalidDataf("type def index %d out of range %d", index, len(metaCtx.readTypeInfos))
		}
		return metaCtx.readTypeInfos[index], nil
	case IsNamespacedType(internalId):
		nsBytes, err := r.metaStringResolver.ReadMetaStringBytes(buffer)
		if err != nil {
			return TypeInfo{}, err
		}
		nameBytes, err := r.metaStringResolver.ReadMetaStringBytes(buffer)
		if err != nil {
			return TypeInfo{}, err
		}
		key := nsTypeKey{nsBytes.Hashcode, nameBytes.Hashcode}
		if info, ok := r.nsTypeToTypeInfo[key]; ok {
			return info, nil
		}
		ns, err := r.namespaceDecoder.Decode(nsBytes.Data, nsBytes.Encoding)
		if err != nil {
			return TypeInfo{}, err
		}
		name, err := r.typeNameDecoder.Decode(nameBytes.Data, nameBytes.Encoding)
		if err != nil {
			return TypeInfo{}, err
		}
		if info, ok := r.namedTypeToTypeInfo[[2]string{ns, name}]; ok {
			r.nsTypeToTypeInfo[key] = info
			return info, nil
		}
		return TypeInfo{}, unknownTypef("named type %s.%s", ns, name)
	case isUserType(internalId):
		userId := buffer.ReadVarUint32()
		if err := buffer.Err(); err != nil {
			return TypeInfo{}, err
		}
		info, ok := r.typeIDToTypeInfo[int32(userId)<<8|int32(internalId)]
		if !ok {
			return TypeInfo{}, unknownTypef("type id %d (internal %d)", userId, internalId)
		}
		return info, nil
	default:
		info, ok := r.typeIDToTypeInfo[int32(internalId)]
		if !ok {
			return TypeInfo{}, unknownTypef("builtin type id %d", internalId)
		}
		return info, nil
	}
}

// ============================================================================
// Type definitions (compatible mode)
// ============================================================================

func (r *TypeResolver) getTypeDef(type_ reflect.Type, create bool) (*TypeDef, error) {
	if td, ok := r.typeDefCache[type_]; ok {
		return td, nil
	}
	if !create {
		return nil, unknownTypef("no type def for %v", type_)
	}
	td, err := buildTypeDef(r, type_)
	if err != nil {
		return nil, err
	}
	r.typeDefCache[type_] = td
	return td, nil
}

// writeTypeDefs writes the definitions block: a count followed by each queued
// definition's encoded bytes.
func (r *TypeResolver) writeTypeDefs(buffer *ByteBuffer, metaCtx *MetaContext) {
	buffer.WriteVarUint32(uint32(len(metaCtx.writingTypeDefs)))
	for _, td := range metaCtx.writingTypeDefs {
		td.writeTypeDef(buffer)
	}
}

// readTypeDefs reads the definitions block and appends one TypeInfo per
// definition to the meta context, in index order. Definition bodies repeat
// across streams, so decoded defs and their built infos are cached by the
// 8 byte header.
func (r *TypeResolver) readTypeDefs(buffer *ByteBuffer, metaCtx *MetaContext) error {
	count := buffer.ReadVarUint32()
	if err := buffer.Err(); err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		header := buffer.ReadInt64()
		if err := buffer.Err(); err != nil {
			return err
		}
		td, ok := r.defIdToTypeDef[header]
		if ok {
			skipTypeDef(buffer, header)
		} else {
			var err error
			td, err = readTypeDef(r, buffer, header)
			if err != nil {
				return err
			}
			r.defIdToTypeDef[header] = td
		}
		info, ok := r.defIdToTypeInfo[header]
		if !ok {
			var err error
			info, err = td.buildTypeInfo(r)
			if err != nil {
				return err
			}
			r.defIdToTypeInfo[header] = info
		}
		metaCtx.readTypeInfos = append(metaCtx.readTypeInfos, info)
	}
	return nil
}

// ============================================================================
// Lifecycle
// ============================================================================

// resetWrite clears per-stream dynamic meta string ids. Registrations and the
// type def caches survive across calls.
func (r *TypeResolver) resetWrite() {
	r.metaStringResolver.ResetWrite()
}

func (r *TypeResolver) resetRead() {
	r.metaStringResolver.ResetRead()
}

// ============================================================================
// Helpers
// ============================================================================

func normalizeType(type_ reflect.Type) reflect.Type {
	for type_.Kind() == reflect.Ptr {
		type_ = type_.Elem()
	}
	return type_
}

func isIntegerKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return true
	}
	return false
}
