// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the n-dimensional numeric arrays carried by
// fitted tidecast models (changepoint grids, coefficient vectors,
// posterior draws).
package tensor

// DataType represents runtime element-type information for arrays.
type DataType int

// Supported element types.
const (
	Float64 DataType = iota
	Float32
	Int64
	Int32
	Bool
)

// Size returns the byte size of one element of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float64, Int64:
		return 8
	case Float32, Int32:
		return 4
	case Bool:
		return 1
	default:
		panic("unknown data type")
	}
}

// String returns the canonical name used in serialized documents.
func (dt DataType) String() string {
	switch dt {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	case Int64:
		return "int64"
	case Int32:
		return "int32"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// IsFloat reports whether the data type is a floating-point type.
func (dt DataType) IsFloat() bool {
	return dt == Float64 || dt == Float32
}

// ParseDataType converts a serialized name back to a DataType.
func ParseDataType(s string) (DataType, bool) {
	switch s {
	case "float64":
		return Float64, true
	case "float32":
		return Float32, true
	case "int64":
		return Int64, true
	case "int32":
		return Int32, true
	case "bool":
		return Bool, true
	default:
		return 0, false
	}
}
