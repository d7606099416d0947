// Package voxel defines the closed set of pixel element kinds an image can
// hold, and the little-endian byte representation used by the storage
// codecs. The kind is resolved from its string tag once, at image
// construction, so nothing downstream ever parses strings.
package voxel

import (
	"encoding/binary"
	"math"

	"github.com/zeebo/errs"
)

// Error is the class of errors returned by this package.
var Error = errs.Class("voxel")

// Type identifies the binary representation of one pixel element.
type Type uint8

const (
	Invalid Type = iota
	UInt8
	UInt16
	UInt32
	UInt64
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
)

var typeNames = map[Type]string{
	UInt8:   "uint8",
	UInt16:  "uint16",
	UInt32:  "uint32",
	UInt64:  "uint64",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Float32: "float32",
	Float64: "float64",
}

// Parse resolves a string tag to a Type. Unknown tags are a configuration
// error and fail fast.
func Parse(s string) (Type, error) {
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return Invalid, Error.New("unknown element type %q", s)
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "invalid"
}

// Valid reports whether t is one of the defined element kinds.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// Size returns the width of one element in bytes.
func (t Type) Size() int {
	switch t {
	case UInt8, Int8:
		return 1
	case UInt16, Int16:
		return 2
	case UInt32, Int32, Float32:
		return 4
	case UInt64, Int64, Float64:
		return 8
	}
	return 0
}

// Signed reports whether the element is a signed integer or a float.
func (t Type) Signed() bool {
	switch t {
	case Int8, Int16, Int32, Int64, Float32, Float64:
		return true
	}
	return false
}

// Float reports whether the element is a floating-point kind.
func (t Type) Float() bool {
	return t == Float32 || t == Float64
}

// Scalar is the set of Go types that can stand in for a pixel element.
type Scalar interface {
	uint8 | uint16 | uint32 | uint64 |
		int8 | int16 | int32 | int64 |
		float32 | float64
}

// TypeOf returns the element kind corresponding to the Go type T.
func TypeOf[T Scalar]() Type {
	var z T
	switch any(z).(type) {
	case uint8:
		return UInt8
	case uint16:
		return UInt16
	case uint32:
		return UInt32
	case uint64:
		return UInt64
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case float32:
		return Float32
	case float64:
		return Float64
	}
	return Invalid
}

// Encode serialises src into a fresh little-endian byte slice of
// len(src)*TypeOf[T]().Size() bytes, row-major order preserved.
func Encode[T Scalar](src []T) []byte {
	out := make([]byte, len(src)*TypeOf[T]().Size())
	switch s := any(src).(type) {
	case []uint8:
		copy(out, s)
	case []int8:
		for i, v := range s {
			out[i] = byte(v)
		}
	case []uint16:
		for i, v := range s {
			binary.LittleEndian.PutUint16(out[i*2:], v)
		}
	case []int16:
		for i, v := range s {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
		}
	case []uint32:
		for i, v := range s {
			binary.LittleEndian.PutUint32(out[i*4:], v)
		}
	case []int32:
		for i, v := range s {
			binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
		}
	case []uint64:
		for i, v := range s {
			binary.LittleEndian.PutUint64(out[i*8:], v)
		}
	case []int64:
		for i, v := range s {
			binary.LittleEndian.PutUint64(out[i*8:], uint64(v))
		}
	case []float32:
		for i, v := range s {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
		}
	case []float64:
		for i, v := range s {
			binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
		}
	}
	return out
}

// Decode deserialises little-endian raw bytes into dst. The byte length must
// match the destination exactly.
func Decode[T Scalar](raw []byte, dst []T) error {
	if want := len(dst) * TypeOf[T]().Size(); len(raw) != want {
		return Error.New("byte length %d does not match %d %s elements",
			len(raw), len(dst), TypeOf[T]())
	}
	switch d := any(dst).(type) {
	case []uint8:
		copy(d, raw)
	case []int8:
		for i := range d {
			d[i] = int8(raw[i])
		}
	case []uint16:
		for i := range d {
			d[i] = binary.LittleEndian.Uint16(raw[i*2:])
		}
	case []int16:
		for i := range d {
			d[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
		}
	case []uint32:
		for i := range d {
			d[i] = binary.LittleEndian.Uint32(raw[i*4:])
		}
	case []int32:
		for i := range d {
			d[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
		}
	case []uint64:
		for i := range d {
			d[i] = binary.LittleEndian.Uint64(raw[i*8:])
		}
	case []int64:
		for i := range d {
			d[i] = int64(binary.LittleEndian.Uint64(raw[i*8:]))
		}
	case []float32:
		for i := range d {
			d[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
	case []float64:
		for i := range d {
			d[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
		}
	}
	return nil
}
