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
	"time"
)

// Date represents a naive calendar date without a time zone, exchanged
// cross-language as the number of days since the Unix epoch.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date from a time.Time, dropping the clock part.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time converts the date back to a time.Time at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// timeSerializer handles time.Time, encoded as microseconds since the
// Unix epoch. Sub-microsecond precision is truncated on write.
type timeSerializer struct{}

func (s timeSerializer) TypeId() TypeId       { return TIMESTAMP }
func (s timeSerializer) NeedToWriteRef() bool { return false }

func (s timeSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s timeSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	t := value.Interface().(time.Time)
	ctx.WriteInt64(t.Unix()*1_000_000 + int64(t.Nanosecond())/1_000)
	return nil
}

func (s timeSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s timeSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	micros := ctx.ReadInt64()
	value.Set(reflect.ValueOf(time.Unix(micros/1_000_000, micros%1_000_000*1_000)))
	return ctx.Err()
}

func (s timeSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// durationSerializer handles time.Duration, encoded as nanoseconds.
type durationSerializer struct{}

func (s durationSerializer) TypeId() TypeId       { return DURATION }
func (s durationSerializer) NeedToWriteRef() bool { return false }

func (s durationSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s durationSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	ctx.WriteInt64(value.Int())
	return nil
}

func (s durationSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s durationSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	value.SetInt(ctx.ReadInt64())
	return ctx.Err()
}

func (s durationSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}

// dateSerializer handles Date, encoded as days since the Unix epoch.
type dateSerializer struct{}

func (s dateSerializer) TypeId() TypeId       { return LOCAL_DATE }
func (s dateSerializer) NeedToWriteRef() bool { return false }

func (s dateSerializer) Write(ctx *WriteContext, writeRef, writeType bool, value reflect.Value) error {
	return writeBySerializer(ctx, s, writeRef, writeType, value)
}

func (s dateSerializer) WriteData(ctx *WriteContext, value reflect.Value) error {
	date := value.Interface().(Date)
	// Midnight UTC is always an exact multiple of 86400 seconds from the
	// epoch, so the division is exact for dates on either side of 1970.
	ctx.WriteInt32(int32(date.Time().Unix() / 86400))
	return nil
}

func (s dateSerializer) Read(ctx *ReadContext, readRef, readType bool, value reflect.Value) error {
	return readBySerializer(ctx, s, readRef, readType, value)
}

func (s dateSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) error {
	days := ctx.ReadInt32()
	t := time.Unix(int64(days)*24*3600, 0).UTC()
	value.Set(reflect.ValueOf(NewDate(t)))
	return ctx.Err()
}

func (s dateSerializer) ReadWithTypeInfo(ctx *ReadContext, readRef bool, typeInfo *TypeInfo, value reflect.Value) error {
	return readDataWithTypeInfo(ctx, s, readRef, typeInfo, value)
}
