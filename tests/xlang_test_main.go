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

// Cross-language conformance harness. A peer implementation writes a payload
// to DATA_FILE, this binary reads it back, checks it, and overwrites the
// file with its own encoding of the same value for the peer to verify. When
// DATA_FILE does not exist the harness seeds it instead, so each case can
// also run standalone as a golden file generator.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"reflect"

	fory "github.com/apache/fory-go"
	"github.com/spaolacci/murmur3"
)

// ============================================================================
// Helper functions
// ============================================================================

func getDataFile() string {
	dataFile := os.Getenv("DATA_FILE")
	if dataFile == "" {
		panic("DATA_FILE environment variable not set")
	}
	return dataFile
}

func readFileIfPresent(path string) []byte {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		panic(fmt.Sprintf("Failed to read file %s: %v", path, err))
	}
	return data
}

func writeFile(path string, data []byte) {
	if err := os.WriteFile(path, data, 0644); err != nil {
		panic(fmt.Sprintf("Failed to write file %s: %v", path, err))
	}
}

func assertEqual(expected, actual interface{}, name string) {
	if !reflect.DeepEqual(expected, actual) {
		panic(fmt.Sprintf("%s: expected %v, got %v", name, expected, actual))
	}
}

// roundTrip reads the peer payload if one exists, checks it against want,
// then writes this side's encoding of want back.
func roundTrip[T any](f *fory.Fory, want T) {
	dataFile := getDataFile()
	if data := readFileIfPresent(dataFile); len(data) > 0 {
		got, err := fory.Deserialize[T](f, data)
		if err != nil {
			panic(fmt.Sprintf("Failed to deserialize: %v", err))
		}
		assertEqual(want, got, reflect.TypeOf(want).String())
	}
	serialized, err := fory.Serialize(f, want)
	if err != nil {
		panic(fmt.Sprintf("Failed to serialize: %v", err))
	}
	writeFile(dataFile, serialized)
}

// ============================================================================
// Test data structures
// ============================================================================

type Color int32

const (
	RED   Color = 0
	GREEN Color = 1
	BLUE  Color = 2
)

type Item struct {
	Name   string
	Amount int32
}

type IntWidths struct {
	A int8
	B int16
	C int32
	D int64
	E int
}

type SimpleStruct struct {
	Color Color
	Item  Item
}

type StructWithList struct {
	Items []string
}

type StructWithMap struct {
	Data map[string]int32
}

type Dog struct {
	Name string
	Age  int32
}

type Cat struct {
	Name  string
	Color string
}

type AnimalListHolder struct {
	Animals []interface{}
}

type AnimalMapHolder struct {
	Animals map[string]interface{}
}

type VersionCheckStruct struct {
	Field1 string
	Field2 int32
}

type VersionCheckStructV1 struct {
	Field1 string
}

type Shape interface {
	Area() float64
}

type Circle struct {
	Radius float64
}

func (c Circle) Area() float64 { return 3.141592653589793 * c.Radius * c.Radius }

type Rect struct {
	W float64
	H float64
}

func (r Rect) Area() float64 { return r.W * r.H }

type ShapeHolder struct {
	S Shape
}

type MyExt struct {
	Id int32
}

type myExtCodec struct{}

func (myExtCodec) Marshal(v interface{}) ([]byte, error) {
	ext, ok := v.(MyExt)
	if !ok {
		return nil, fmt.Errorf("expected MyExt, got %T", v)
	}
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(ext.Id))
	return out, nil
}

func (myExtCodec) Unmarshal(data []byte) (interface{}, error) {
	if len(data) != 4 {
		return nil, fmt.Errorf("expected 4 bytes, got %d", len(data))
	}
	return MyExt{Id: int32(binary.LittleEndian.Uint32(data))}, nil
}

// ============================================================================
// Instance setup
// ============================================================================

func newRegistered(opts ...fory.Option) *fory.Fory {
	f := fory.New(opts...)
	must(f.RegisterStruct(Item{}, 101))
	must(fory.RegisterEnum(f, 102, []Color{RED, GREEN, BLUE}))
	must(f.RegisterStruct(SimpleStruct{}, 103))
	must(f.RegisterStruct(StructWithList{}, 104))
	must(f.RegisterStruct(StructWithMap{}, 105))
	must(f.RegisterStruct(IntWidths{}, 106))
	must(f.RegisterStruct(Dog{}, 107))
	must(f.RegisterStruct(Cat{}, 108))
	must(f.RegisterStruct(AnimalListHolder{}, 109))
	must(f.RegisterStruct(AnimalMapHolder{}, 110))
	must(f.RegisterUnion((*Shape)(nil), 111, Circle{}, Rect{}))
	must(f.RegisterStruct(ShapeHolder{}, 112))
	must(f.RegisterExtension(MyExt{}, 113, myExtCodec{}))
	// union case payloads carry their own type info, so cases register too
	must(f.RegisterStruct(Circle{}, 114))
	must(f.RegisterStruct(Rect{}, 115))
	return f
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// ============================================================================
// Test cases
// ============================================================================

// testBuffer checks the raw buffer layout byte for byte against the fixture
// every peer writes: one value per primitive width, then a length-prefixed
// byte block.
func testBuffer() {
	dataFile := getDataFile()
	data := readFileIfPresent(dataFile)
	if len(data) > 0 {
		buf := fory.NewByteBuffer(data)
		assertEqual(true, buf.ReadBool(), "bool")
		b, _ := buf.ReadByte()
		assertEqual(byte(0x7F), b, "byte")
		assertEqual(int16(32767), buf.ReadInt16(), "int16")
		assertEqual(int32(2147483647), buf.ReadInt32(), "int32")
		assertEqual(int64(9223372036854775807), buf.ReadInt64(), "int64")
		assertEqual(float32(-1.1), buf.ReadFloat32(), "float32")
		assertEqual(float64(-1.1), buf.ReadFloat64(), "float64")
		assertEqual(uint32(100), buf.ReadVarUint32(), "varuint32")
		length := buf.ReadInt32()
		assertEqual("ab", string(buf.ReadBinary(int(length))), "binary")
		must(buf.Err())
	}

	out := fory.NewByteBuffer(make([]byte, 0, 64))
	out.WriteBool(true)
	out.WriteByte_(0x7F)
	out.WriteInt16(32767)
	out.WriteInt32(2147483647)
	out.WriteInt64(9223372036854775807)
	out.WriteFloat32(-1.1)
	out.WriteFloat64(-1.1)
	out.WriteVarUint32(100)
	out.WriteInt32(2)
	out.WriteBinary([]byte("ab"))
	writeFile(dataFile, out.GetByteSlice(0, out.WriterIndex()))
}

// testBufferVar exchanges the varint boundary grids in all four encodings.
func testBufferVar() {
	varInt32Values := []int32{
		-2147483648, -2147483647, -1000000, -1000, -128, -1, 0, 1,
		127, 128, 16383, 16384, 2097151, 2097152, 268435455, 268435456,
		2147483646, 2147483647,
	}
	varUint32Values := []uint32{
		0, 1, 127, 128, 16383, 16384, 2097151, 2097152,
		268435455, 268435456, 2147483646, 2147483647,
	}
	varUint64Values := []uint64{
		0, 1, 127, 128, 16383, 16384, 2097151, 2097152,
		268435455, 268435456, 34359738367, 34359738368,
		4398046511103, 4398046511104, 562949953421311, 562949953421312,
		72057594037927935, 72057594037927936, 9223372036854775807,
	}
	varInt64Values := []int64{
		-9223372036854775808, -9223372036854775807, -1000000000000,
		-1000000, -1000, -128, -1, 0, 1, 127, 1000, 1000000,
		1000000000000, 9223372036854775806, 9223372036854775807,
	}

	dataFile := getDataFile()
	data := readFileIfPresent(dataFile)
	if len(data) > 0 {
		buf := fory.NewByteBuffer(data)
		for _, expected := range varInt32Values {
			assertEqual(expected, buf.ReadVarint32(), fmt.Sprintf("varint32 %d", expected))
		}
		for _, expected := range varUint32Values {
			assertEqual(expected, buf.ReadVarUint32(), fmt.Sprintf("varuint32 %d", expected))
		}
		for _, expected := range varUint64Values {
			assertEqual(expected, buf.ReadVarUint64(), fmt.Sprintf("varuint64 %d", expected))
		}
		for _, expected := range varInt64Values {
			assertEqual(expected, buf.ReadVarint64(), fmt.Sprintf("varint64 %d", expected))
		}
		must(buf.Err())
	}

	out := fory.NewByteBuffer(make([]byte, 0, 512))
	for _, v := range varInt32Values {
		out.WriteVarint32(v)
	}
	for _, v := range varUint32Values {
		out.WriteVarUint32(v)
	}
	for _, v := range varUint64Values {
		out.WriteVarUint64(v)
	}
	for _, v := range varInt64Values {
		out.WriteVarint64(v)
	}
	writeFile(dataFile, out.GetByteSlice(0, out.WriterIndex()))
}

// testMurmurHash3 exchanges x64-128 digests of two probe inputs with seed 47
// so peers agree on the hash implementation the structural hash relies on.
func testMurmurHash3() {
	hash := func(data []byte) (uint64, uint64) {
		h := murmur3.New128WithSeed(47)
		h.Write(data)
		return h.Sum128()
	}
	h1a, h1b := hash([]byte{1, 2, 8})
	h2a, h2b := hash([]byte("01234567890123456789"))

	dataFile := getDataFile()
	data := readFileIfPresent(dataFile)
	if len(data) > 0 {
		buf := fory.NewByteBuffer(data)
		assertEqual(int64(h1a), buf.ReadInt64(), "hash1 h1")
		assertEqual(int64(h1b), buf.ReadInt64(), "hash1 h2")
		assertEqual(int64(h2a), buf.ReadInt64(), "hash2 h1")
		assertEqual(int64(h2b), buf.ReadInt64(), "hash2 h2")
		must(buf.Err())
	}

	out := fory.NewByteBuffer(make([]byte, 0, 32))
	out.WriteInt64(int64(h1a))
	out.WriteInt64(int64(h1b))
	out.WriteInt64(int64(h2a))
	out.WriteInt64(int64(h2b))
	writeFile(dataFile, out.GetByteSlice(0, out.WriterIndex()))
}

// testString covers the three string encodings in one list payload.
func testString() {
	roundTrip(fory.New(), []string{
		"ab",
		"Go123",
		"Çüéâäàåçêëèïî",
		"こんにちは",
		"Привет",
		"𝄞🎵🎶",
		"Hello, 世界",
	})
}

func testSimpleStruct() {
	roundTrip(newRegistered(), SimpleStruct{
		Color: GREEN,
		Item:  Item{Name: "apple", Amount: 42},
	})
}

func testNamedStruct() {
	f := fory.New()
	must(f.RegisterNamedStruct(Item{}, "demo", "item"))
	must(fory.RegisterNamedEnum(f, "demo", "color", []Color{RED, GREEN, BLUE}))
	must(f.RegisterNamedStruct(SimpleStruct{}, "demo", "simple_struct"))
	roundTrip(f, SimpleStruct{
		Color: BLUE,
		Item:  Item{Name: "pear", Amount: 7},
	})
}

func testInteger() {
	roundTrip(newRegistered(), IntWidths{
		A: -128,
		B: 32767,
		C: -2147483648,
		D: 9223372036854775807,
		E: 1234567890,
	})
}

func testEnum() {
	roundTrip(newRegistered(), BLUE)
}

func testList() {
	roundTrip(fory.New(), []int32{1, -2, 3, -4, 5})
}

func testMap() {
	roundTrip(fory.New(), map[string]int32{"one": 1, "two": 2, "three": 3})
}

func testStructWithList() {
	roundTrip(newRegistered(), StructWithList{Items: []string{"a", "b", "c"}})
}

func testStructWithMap() {
	roundTrip(newRegistered(), StructWithMap{Data: map[string]int32{"k1": 1, "k2": 2}})
}

// Interface slots hold pointers: decoded struct payloads materialize behind
// one so shared references stay shared, and the seeds match that.
func testPolymorphicList() {
	roundTrip(newRegistered(), AnimalListHolder{Animals: []interface{}{
		&Dog{Name: "Rex", Age: 3},
		&Cat{Name: "Whiskers", Color: "black"},
	}})
}

func testPolymorphicMap() {
	roundTrip(newRegistered(), AnimalMapHolder{Animals: map[string]interface{}{
		"dog": &Dog{Name: "Rex", Age: 3},
		"cat": &Cat{Name: "Whiskers", Color: "white"},
	}})
}

func testUnion() {
	roundTrip(newRegistered(), ShapeHolder{S: &Circle{Radius: 2.5}})
}

func testExtension() {
	roundTrip(newRegistered(), MyExt{Id: 99})
}

func testRefTracking() {
	shared := &Item{Name: "shared", Amount: 1}
	f := newRegistered()
	dataFile := getDataFile()
	serialized, err := fory.Serialize(f, []*Item{shared, shared})
	if err != nil {
		panic(fmt.Sprintf("Failed to serialize: %v", err))
	}
	got, err := fory.Deserialize[[]*Item](f, serialized)
	if err != nil {
		panic(fmt.Sprintf("Failed to deserialize: %v", err))
	}
	if got[0] != got[1] {
		panic("shared reference split during round trip")
	}
	writeFile(dataFile, serialized)
}

// testVersionCheck exchanges a schema-consistent payload whose structural
// hash both sides must agree on.
func testVersionCheck() {
	f := fory.New()
	must(f.RegisterStruct(VersionCheckStruct{}, 120))
	roundTrip(f, VersionCheckStruct{Field1: "check", Field2: 7})
}

// testSchemaEvolution writes with the two-field schema and reads with a
// one-field registration in compatible mode, exercising the skip path.
func testSchemaEvolution() {
	writer := fory.New(fory.WithCompatible(true))
	must(writer.RegisterStruct(VersionCheckStruct{}, 120))
	data, err := fory.Serialize(writer, VersionCheckStruct{Field1: "evolved", Field2: 9})
	if err != nil {
		panic(fmt.Sprintf("Failed to serialize: %v", err))
	}

	reader := fory.New(fory.WithCompatible(true))
	must(reader.RegisterStruct(VersionCheckStructV1{}, 120))
	got, err := fory.Deserialize[VersionCheckStructV1](reader, data)
	if err != nil {
		panic(fmt.Sprintf("Failed to deserialize: %v", err))
	}
	assertEqual("evolved", got.Field1, "evolved field1")
	writeFile(getDataFile(), data)
}

// ============================================================================
// Entry point
// ============================================================================

func main() {
	caseName := flag.String("case", "", "test case to run")
	flag.Parse()
	if *caseName == "" && flag.NArg() > 0 {
		*caseName = flag.Arg(0)
	}

	switch *caseName {
	case "test_buffer":
		testBuffer()
	case "test_buffer_var":
		testBufferVar()
	case "test_murmurhash3":
		testMurmurHash3()
	case "test_string":
		testString()
	case "test_simple_struct":
		testSimpleStruct()
	case "test_named_struct":
		testNamedStruct()
	case "test_integer":
		testInteger()
	case "test_enum":
		testEnum()
	case "test_list":
		testList()
	case "test_map":
		testMap()
	case "test_struct_with_list":
		testStructWithList()
	case "test_struct_with_map":
		testStructWithMap()
	case "test_polymorphic_list":
		testPolymorphicList()
	case "test_polymorphic_map":
		testPolymorphicMap()
	case "test_union":
		testUnion()
	case "test_extension":
		testExtension()
	case "test_ref_tracking":
		testRefTracking()
	case "test_version_check":
		testVersionCheck()
	case "test_schema_evolution":
		testSchemaEvolution()
	default:
		fmt.Fprintf(os.Stderr, "unknown test case %q\n", *caseName)
		os.Exit(1)
	}
	fmt.Printf("%s passed\n", *caseName)
}
