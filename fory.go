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
	"encoding/binary"
	"fmt"
	"reflect"
	"sync"
)

// ============================================================================
// Constants
// ============================================================================

// Language identifies the peer implementation that produced a stream.
type Language = uint8

const (
	XLANG Language = iota
	JAVA
	PYTHON
	CPP
	GO
	JAVASCRIPT
	RUST
	DART
)

// Protocol constants
const (
	MAGIC_NUMBER int16 = 0x62D4
)

// Bitmap flags for the protocol header
const (
	LittleEndianFlag = 2
	XLangFlag        = 4
)

// Reference flags
const (
	NullFlag         int8 = -3
	RefFlag          int8 = -2
	NotNullValueFlag int8 = -1
	RefValueFlag     int8 = 0
)

// ============================================================================
// Config
// ============================================================================

// Config holds configuration options for Fory instances
type Config struct {
	RefTracking bool
	MaxDepth    int
	Language    Language
	Compatible  bool // Schema evolution compatibility mode
}

// defaultConfig returns the default configuration
func defaultConfig() Config {
	return Config{
		RefTracking: true,
		MaxDepth:    100,
		Language:    XLANG,
	}
}

// Option is a function that configures a Fory instance
type Option func(*Fory)

// WithRefTracking sets reference tracking mode
func WithRefTracking(enabled bool) Option {
	return func(f *Fory) {
		f.config.RefTracking = enabled
	}
}

// WithMaxDepth sets the maximum serialization depth
func WithMaxDepth(depth int) Option {
	return func(f *Fory) {
		f.config.MaxDepth = depth
	}
}

// WithLanguage sets the language mode
func WithLanguage(lang Language) Option {
	return func(f *Fory) {
		f.config.Language = lang
	}
}

// WithCompatible sets schema evolution compatibility mode
func WithCompatible(enabled bool) Option {
	return func(f *Fory) {
		f.config.Compatible = enabled
	}
}

// ============================================================================
// Meta context
// ============================================================================

// MetaContext accumulates the type definitions one compatible-mode stream
// refers to. The write half queues each definition once and remembers its
// index; the read half holds the per-definition type infos decoded from the
// definitions block, in the same index order.
type MetaContext struct {
	typeIndex       map[reflect.Type]uint32
	writingTypeDefs []*TypeDef
	readTypeInfos   []TypeInfo
}

func newMetaContext() *MetaContext {
	return &MetaContext{typeIndex: make(map[reflect.Type]uint32)}
}

func (m *MetaContext) resetWrite() {
	for t := range m.typeIndex {
		delete(m.typeIndex, t)
	}
	m.writingTypeDefs = m.writingTypeDefs[:0]
}

func (m *MetaContext) resetRead() {
	m.readTypeInfos = m.readTypeInfos[:0]
}

// ============================================================================
// Fory - Main serialization instance
// ============================================================================

// Fory is the main serialization instance.
// Note: Fory is NOT thread-safe. Use ThreadSafeFory for concurrent use.
type Fory struct {
	config       Config
	typeResolver *TypeResolver
	metaContext  *MetaContext

	// Reusable contexts - avoid allocation on each Serialize/Deserialize call
	writeCtx *WriteContext
	readCtx  *ReadContext
}

// New creates a new Fory instance with the given options
func New(opts ...Option) *Fory {
	f := &Fory{config: defaultConfig()}
	for _, opt := range opts {
		opt(f)
	}

	f.typeResolver = newTypeResolver(f.config)
	if f.config.Compatible {
		f.metaContext = newMetaContext()
	}

	f.writeCtx = NewWriteContext(f.config.RefTracking, f.config.MaxDepth)
	f.writeCtx.typeResolver = f.typeResolver
	f.writeCtx.compatible = f.config.Compatible
	f.writeCtx.metaContext = f.metaContext

	f.readCtx = NewReadContext(f.config.RefTracking, f.config.MaxDepth)
	f.readCtx.typeResolver = f.typeResolver
	f.readCtx.compatible = f.config.Compatible
	f.readCtx.metaContext = f.metaContext

	return f
}

// NewFory is an alias for New
func NewFory(opts ...Option) *Fory {
	return New(opts...)
}

// Reset clears per-stream state for reuse. Registrations survive.
func (f *Fory) Reset() {
	f.writeCtx.Reset()
	f.readCtx.Reset()
}

// TypeResolver exposes the instance's type registry.
func (f *Fory) TypeResolver() *TypeResolver {
	return f.typeResolver
}

// ============================================================================
// Registration
// ============================================================================

// resolveType accepts either a reflect.Type or a value of the type to
// register. A nil pointer such as (*Shape)(nil) is the way to name an
// interface type; pointers are unwrapped one level either way.
func resolveType(value interface{}) (reflect.Type, error) {
	if t, ok := value.(reflect.Type); ok {
		return t, nil
	}
	t := reflect.TypeOf(value)
	if t == nil {
		return nil, fmt.Errorf("fory: cannot resolve the type of untyped nil")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t, nil
}

// RegisterStruct binds a struct type to a numeric id for cross-language
// serialization. value may be an instance, a pointer to one, or a
// reflect.Type.
func (f *Fory) RegisterStruct(value interface{}, id uint32) error {
	t, err := resolveType(value)
	if err != nil {
		return err
	}
	return f.typeResolver.RegisterType(t, id)
}

// RegisterNamedStruct binds a struct type to a namespace and type name.
func (f *Fory) RegisterNamedStruct(value interface{}, namespace, typeName string) error {
	t, err := resolveType(value)
	if err != nil {
		return err
	}
	return f.typeResolver.RegisterNamedType(t, namespace, typeName)
}

// RegisterUnion binds an interface type to a numeric id together with the
// ordered list of concrete case types its values may take. Pass the
// interface as a nil pointer, e.g. RegisterUnion((*Shape)(nil), 5, Circle{},
// Rect{}). The position of a case in the list is its wire tag.
func (f *Fory) RegisterUnion(iface interface{}, id uint32, cases ...interface{}) error {
	ifaceType, caseTypes, err := resolveUnionTypes(iface, cases)
	if err != nil {
		return err
	}
	return f.typeResolver.registerUnion(ifaceType, id, caseTypes)
}

// RegisterNamedUnion binds an interface type to a namespace and type name
// together with its ordered case types.
func (f *Fory) RegisterNamedUnion(iface interface{}, namespace, typeName string, cases ...interface{}) error {
	ifaceType, caseTypes, err := resolveUnionTypes(iface, cases)
	if err != nil {
		return err
	}
	return f.typeResolver.registerNamedUnion(ifaceType, namespace, typeName, caseTypes)
}

func resolveUnionTypes(iface interface{}, cases []interface{}) (reflect.Type, []reflect.Type, error) {
	ifaceType, err := resolveType(iface)
	if err != nil {
		return nil, nil, err
	}
	caseTypes := make([]reflect.Type, len(cases))
	for i, c := range cases {
		caseTypes[i], err = resolveType(c)
		if err != nil {
			return nil, nil, err
		}
	}
	return ifaceType, caseTypes, nil
}

// RegisterExtension binds a type to a numeric id with a custom codec that
// owns the body encoding.
func (f *Fory) RegisterExtension(value interface{}, id uint32, codec ExtensionCodec) error {
	t, err := resolveType(value)
	if err != nil {
		return err
	}
	return f.typeResolver.registerExtension(t, id, codec)
}

// RegisterNamedExtension binds a type to a namespace and type name with a
// custom codec.
func (f *Fory) RegisterNamedExtension(value interface{}, namespace, typeName string, codec ExtensionCodec) error {
	t, err := resolveType(value)
	if err != nil {
		return err
	}
	return f.typeResolver.registerNamedExtension(t, namespace, typeName, codec)
}

// RegisterEnum binds an integer kind type as an enum with an explicit case
// list. The wire ordinal of a value is its index in cases, so the list order
// must match across languages. An empty list falls back to encoding the
// value itself as the ordinal.
func RegisterEnum[E any](f *Fory, id uint32, cases []E) error {
	return f.typeResolver.registerEnum(reflect.TypeOf((*E)(nil)).Elem(), id, enumCaseValues(cases))
}

// RegisterNamedEnum binds an integer kind type as an enum under a namespace
// and type name.
func RegisterNamedEnum[E any](f *Fory, namespace, typeName string, cases []E) error {
	return f.typeResolver.registerNamedEnum(reflect.TypeOf((*E)(nil)).Elem(), namespace, typeName, enumCaseValues(cases))
}

func enumCaseValues[E any](cases []E) []reflect.Value {
	if len(cases) == 0 {
		return nil
	}
	values := make([]reflect.Value, len(cases))
	for i, c := range cases {
		values[i] = reflect.ValueOf(c)
	}
	return values
}

// ============================================================================
// Serialization API
// ============================================================================

// Marshal serializes a value to bytes.
//
// In compatible mode the payload is encoded first into the working buffer so
// that the type definitions it queues can be emitted between the header and
// the data, as the format requires.
func (f *Fory) Marshal(value interface{}) ([]byte, error) {
	ctx := f.writeCtx
	ctx.Reset()

	if !f.config.Compatible {
		writeHeader(ctx.buffer, f.config)
		if err := writeRoot(ctx, value); err != nil {
			return nil, err
		}
		return ctx.buffer.GetByteSlice(0, ctx.buffer.writerIndex), nil
	}

	if err := writeRoot(ctx, value); err != nil {
		return nil, err
	}
	payload := ctx.buffer.GetByteSlice(0, ctx.buffer.writerIndex)
	out := NewByteBuffer(make([]byte, 0, len(payload)+16))
	writeHeader(out, f.config)
	f.typeResolver.writeTypeDefs(out, f.metaContext)
	out.WriteBinary(payload)
	if err := out.Err(); err != nil {
		return nil, err
	}
	return out.GetByteSlice(0, out.writerIndex), nil
}

func writeRoot(ctx *WriteContext, value interface{}) error {
	if value == nil {
		ctx.buffer.WriteInt8(NullFlag)
		return ctx.Err()
	}
	return ctx.WriteValue(reflect.ValueOf(value))
}

// Unmarshal deserializes bytes into the value target points to. target must
// be a non-nil pointer.
func (f *Fory) Unmarshal(data []byte, target interface{}) error {
	ctx := f.readCtx
	ctx.Reset()
	ctx.SetData(data)

	if err := readHeader(ctx); err != nil {
		return err
	}
	if f.config.Compatible {
		if err := f.typeResolver.readTypeDefs(ctx.buffer, f.metaContext); err != nil {
			return err
		}
	}

	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("fory: deserialize target must be a non-nil pointer, got %T", target)
	}
	return ctx.ReadValue(rv.Elem())
}

// Serialize is an alias for Marshal
func (f *Fory) Serialize(value interface{}) ([]byte, error) {
	return f.Marshal(value)
}

// Deserialize is an alias for Unmarshal
func (f *Fory) Deserialize(data []byte, target interface{}) error {
	return f.Unmarshal(data, target)
}

// Serialize serializes a value of type T.
// Note: the Fory instance is NOT thread-safe. Use ThreadSafeFory for
// concurrent use.
func Serialize[T any](f *Fory, value T) ([]byte, error) {
	return f.Marshal(value)
}

// Deserialize decodes data into a fresh value of type T.
func Deserialize[T any](f *Fory, data []byte) (T, error) {
	var out T
	if err := f.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// DeserializeTo decodes data directly into target, reusing existing slice
// and map capacity where the codecs allow it.
func DeserializeTo[T any](f *Fory, data []byte, target *T) error {
	return f.Unmarshal(data, target)
}

// SerializeAny serializes polymorphic values where the concrete type is only
// known at runtime. A nil value encodes as a null root.
func SerializeAny(f *Fory, value any) ([]byte, error) {
	return f.Marshal(value)
}

// DeserializeAny deserializes a stream into whatever concrete type it
// describes, returned as any.
func DeserializeAny(f *Fory, data []byte) (any, error) {
	var result interface{}
	if err := f.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ============================================================================
// Protocol header
// ============================================================================

// writeHeader writes the stream header: magic number, feature bitmap, and
// the producing language.
func writeHeader(buffer *ByteBuffer, config Config) {
	buffer.WriteInt16(MAGIC_NUMBER)

	var bitmap byte
	if nativeEndian == binary.LittleEndian {
		bitmap |= LittleEndianFlag
	}
	if config.Language == XLANG {
		bitmap |= XLangFlag
	}
	buffer.WriteByte_(bitmap)
	buffer.WriteByte_(GO)
}

// readHeader validates the magic number and skips the bitmap and language
// bytes. The payload encoding is little-endian regardless of the bitmap.
func readHeader(ctx *ReadContext) error {
	magic := ctx.buffer.ReadInt16()
	if err := ctx.Err(); err != nil {
		return err
	}
	if magic != MAGIC_NUMBER {
		return fmt.Errorf("%w: got %#04x, want %#04x", ErrMagicNumber, uint16(magic), uint16(MAGIC_NUMBER))
	}
	_ = ctx.buffer.ReadByte_() // bitmap
	_ = ctx.buffer.ReadByte_() // language
	return ctx.Err()
}

// ============================================================================
// ThreadSafeFory - Thread-safe wrapper using sync.Pool
// ============================================================================

// ThreadSafeFory is a thread-safe wrapper around Fory using sync.Pool.
//
// Registrations are recorded and replayed onto every pooled instance when it
// is created, so all registration must complete before the wrapper is first
// used for serialization.
type ThreadSafeFory struct {
	opts []Option
	pool sync.Pool

	mu            sync.Mutex
	registrations []func(*Fory) error
}

// NewThreadSafe creates a new thread-safe Fory instance
func NewThreadSafe(opts ...Option) *ThreadSafeFory {
	tsf := &ThreadSafeFory{opts: opts}
	tsf.pool.New = func() any {
		f, err := tsf.newInstance()
		if err != nil {
			return err
		}
		return f
	}
	return tsf
}

func (tsf *ThreadSafeFory) newInstance() (*Fory, error) {
	f := New(tsf.opts...)
	tsf.mu.Lock()
	registrations := tsf.registrations
	tsf.mu.Unlock()
	for _, register := range registrations {
		if err := register(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (tsf *ThreadSafeFory) acquire() (*Fory, error) {
	switch v := tsf.pool.Get().(type) {
	case *Fory:
		return v, nil
	case error:
		return nil, v
	default:
		return nil, fmt.Errorf("fory: unexpected pool entry %T", v)
	}
}

func (tsf *ThreadSafeFory) release(f *Fory) {
	f.Reset()
	tsf.pool.Put(f)
}

// register validates the operation against a probe instance so errors
// surface at the call site, then records it for replay.
func (tsf *ThreadSafeFory) register(op func(*Fory) error) error {
	tsf.mu.Lock()
	defer tsf.mu.Unlock()
	probe := New(tsf.opts...)
	for _, recorded := range tsf.registrations {
		if err := recorded(probe); err != nil {
			return err
		}
	}
	if err := op(probe); err != nil {
		return err
	}
	tsf.registrations = append(tsf.registrations, op)
	return nil
}

// RegisterStruct binds a struct type to a numeric id on every pooled
// instance.
func (tsf *ThreadSafeFory) RegisterStruct(value interface{}, id uint32) error {
	return tsf.register(func(f *Fory) error { return f.RegisterStruct(value, id) })
}

// RegisterNamedStruct binds a struct type to a namespace and type name on
// every pooled instance.
func (tsf *ThreadSafeFory) RegisterNamedStruct(value interface{}, namespace, typeName string) error {
	return tsf.register(func(f *Fory) error { return f.RegisterNamedStruct(value, namespace, typeName) })
}

// RegisterUnion binds an interface type and its case list on every pooled
// instance.
func (tsf *ThreadSafeFory) RegisterUnion(iface interface{}, id uint32, cases ...interface{}) error {
	return tsf.register(func(f *Fory) error { return f.RegisterUnion(iface, id, cases...) })
}

// RegisterNamedUnion binds an interface type and its case list to a
// namespace and type name on every pooled instance.
func (tsf *ThreadSafeFory) RegisterNamedUnion(iface interface{}, namespace, typeName string, cases ...interface{}) error {
	return tsf.register(func(f *Fory) error { return f.RegisterNamedUnion(iface, namespace, typeName, cases...) })
}

// RegisterExtension binds a type to a custom codec on every pooled instance.
func (tsf *ThreadSafeFory) RegisterExtension(value interface{}, id uint32, codec ExtensionCodec) error {
	return tsf.register(func(f *Fory) error { return f.RegisterExtension(value, id, codec) })
}

// RegisterNamedExtension binds a type to a custom codec under a namespace
// and type name on every pooled instance.
func (tsf *ThreadSafeFory) RegisterNamedExtension(value interface{}, namespace, typeName string, codec ExtensionCodec) error {
	return tsf.register(func(f *Fory) error { return f.RegisterNamedExtension(value, namespace, typeName, codec) })
}

// RegisterEnumTS binds an enum case list on every pooled instance.
func RegisterEnumTS[E any](tsf *ThreadSafeFory, id uint32, cases []E) error {
	return tsf.register(func(f *Fory) error { return RegisterEnum(f, id, cases) })
}

// RegisterNamedEnumTS binds an enum case list to a namespace and type name
// on every pooled instance.
func RegisterNamedEnumTS[E any](tsf *ThreadSafeFory, namespace, typeName string, cases []E) error {
	return tsf.register(func(f *Fory) error { return RegisterNamedEnum(f, namespace, typeName, cases) })
}

// Serialize serializes a value using a pooled Fory instance
func (tsf *ThreadSafeFory) Serialize(value interface{}) ([]byte, error) {
	f, err := tsf.acquire()
	if err != nil {
		return nil, err
	}
	defer tsf.release(f)
	return f.Marshal(value)
}

// Deserialize deserializes data into the provided target using a pooled
// Fory instance
func (tsf *ThreadSafeFory) Deserialize(data []byte, target interface{}) error {
	f, err := tsf.acquire()
	if err != nil {
		return err
	}
	defer tsf.release(f)
	return f.Unmarshal(data, target)
}

// SerializeTS serializes a value of type T, thread-safe.
func SerializeTS[T any](tsf *ThreadSafeFory, value T) ([]byte, error) {
	return tsf.Serialize(value)
}

// DeserializeTS decodes data into a fresh value of type T, thread-safe.
func DeserializeTS[T any](tsf *ThreadSafeFory, data []byte) (T, error) {
	var out T
	if err := tsf.Deserialize(data, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// SerializeAnyTS serializes polymorphic values, thread-safe.
func SerializeAnyTS(tsf *ThreadSafeFory, value any) ([]byte, error) {
	return tsf.Serialize(value)
}

// DeserializeAnyTS deserializes polymorphic values, thread-safe.
func DeserializeAnyTS(tsf *ThreadSafeFory, data []byte) (any, error) {
	var result interface{}
	if err := tsf.Deserialize(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ============================================================================
// Convenience functions
// ============================================================================

// Global thread-safe Fory instance backing the package-level Marshal and
// Unmarshal functions.
var globalFory = NewThreadSafe()

// Global returns the process-wide thread-safe instance so callers can
// register types on it.
func Global() *ThreadSafeFory {
	return globalFory
}

// Marshal serializes a value using the global thread-safe instance
func Marshal[T any](value T) ([]byte, error) {
	return SerializeTS(globalFory, value)
}

// Unmarshal deserializes data using the global thread-safe instance
func Unmarshal[T any](data []byte) (T, error) {
	return DeserializeTS[T](globalFory, data)
}

// UnmarshalTo deserializes data into the provided pointer using the global
// thread-safe instance
func UnmarshalTo(data []byte, target interface{}) error {
	return globalFory.Deserialize(data, target)
}
