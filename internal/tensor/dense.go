// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "fmt"

// Dense is a contiguous, row-major n-dimensional array.
//
// Unlike device tensors in training frameworks there is no view or
// broadcasting machinery here: fitted-model arrays are small, live on the
// CPU, and exist to be serialized, compared, and evaluated.
type Dense struct {
	shape Shape
	dtype DataType
	f64   []float64
	f32   []float32
	i64   []int64
	i32   []int32
	b     []bool
}

// New creates a zero-initialized array with the given shape and type.
func New(shape Shape, dtype DataType) (*Dense, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	d := &Dense{shape: shape.Clone(), dtype: dtype}
	n := shape.NumElements()
	switch dtype {
	case Float64:
		d.f64 = make([]float64, n)
	case Float32:
		d.f32 = make([]float32, n)
	case Int64:
		d.i64 = make([]int64, n)
	case Int32:
		d.i32 = make([]int32, n)
	case Bool:
		d.b = make([]bool, n)
	default:
		return nil, fmt.Errorf("unsupported data type: %v", dtype)
	}
	return d, nil
}

// FromFloat64 wraps a flat float64 slice as an array of the given shape.
// The slice is not copied.
func FromFloat64(shape Shape, data []float64) (*Dense, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, shape.NumElements(), len(data))
	}
	return &Dense{shape: shape.Clone(), dtype: Float64, f64: data}, nil
}

// FromFloat32 wraps a flat float32 slice as an array of the given shape.
func FromFloat32(shape Shape, data []float32) (*Dense, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, shape.NumElements(), len(data))
	}
	return &Dense{shape: shape.Clone(), dtype: Float32, f32: data}, nil
}

// FromInt64 wraps a flat int64 slice as an array of the given shape.
func FromInt64(shape Shape, data []int64) (*Dense, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, shape.NumElements(), len(data))
	}
	return &Dense{shape: shape.Clone(), dtype: Int64, i64: data}, nil
}

// FromInt32 wraps a flat int32 slice as an array of the given shape.
func FromInt32(shape Shape, data []int32) (*Dense, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, shape.NumElements(), len(data))
	}
	return &Dense{shape: shape.Clone(), dtype: Int32, i32: data}, nil
}

// FromBool wraps a flat bool slice as an array of the given shape.
func FromBool(shape Shape, data []bool) (*Dense, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, shape.NumElements(), len(data))
	}
	return &Dense{shape: shape.Clone(), dtype: Bool, b: data}, nil
}

// Vector wraps a float64 slice as a 1-D float64 array. Panics on empty
// input; use FromFloat64 when the length is not known to be positive.
func Vector(data []float64) *Dense {
	d, err := FromFloat64(Shape{len(data)}, data)
	if err != nil {
		panic(err)
	}
	return d
}

// Shape returns the array's shape.
func (d *Dense) Shape() Shape {
	return d.shape
}

// DType returns the array's element type.
func (d *Dense) DType() DataType {
	return d.dtype
}

// NumElements returns the total number of elements.
func (d *Dense) NumElements() int {
	return d.shape.NumElements()
}

// Float64s returns the flat data as []float64.
// Panics if the array's dtype is not Float64.
func (d *Dense) Float64s() []float64 {
	if d.dtype != Float64 {
		panic(fmt.Sprintf("array dtype is %s, not float64", d.dtype))
	}
	return d.f64
}

// Float32s returns the flat data as []float32.
// Panics if the array's dtype is not Float32.
func (d *Dense) Float32s() []float32 {
	if d.dtype != Float32 {
		panic(fmt.Sprintf("array dtype is %s, not float32", d.dtype))
	}
	return d.f32
}

// Int64s returns the flat data as []int64.
// Panics if the array's dtype is not Int64.
func (d *Dense) Int64s() []int64 {
	if d.dtype != Int64 {
		panic(fmt.Sprintf("array dtype is %s, not int64", d.dtype))
	}
	return d.i64
}

// Int32s returns the flat data as []int32.
// Panics if the array's dtype is not Int32.
func (d *Dense) Int32s() []int32 {
	if d.dtype != Int32 {
		panic(fmt.Sprintf("array dtype is %s, not int32", d.dtype))
	}
	return d.i32
}

// Bools returns the flat data as []bool.
// Panics if the array's dtype is not Bool.
func (d *Dense) Bools() []bool {
	if d.dtype != Bool {
		panic(fmt.Sprintf("array dtype is %s, not bool", d.dtype))
	}
	return d.b
}

// Values returns the flat data as its native typed slice.
func (d *Dense) Values() any {
	switch d.dtype {
	case Float64:
		return d.f64
	case Float32:
		return d.f32
	case Int64:
		return d.i64
	case Int32:
		return d.i32
	case Bool:
		return d.b
	default:
		panic("unknown data type")
	}
}

// AsFloat64 converts numeric elements to a fresh []float64.
// Returns false for Bool arrays.
func (d *Dense) AsFloat64() ([]float64, bool) {
	switch d.dtype {
	case Float64:
		out := make([]float64, len(d.f64))
		copy(out, d.f64)
		return out, true
	case Float32:
		out := make([]float64, len(d.f32))
		for i, v := range d.f32 {
			out[i] = float64(v)
		}
		return out, true
	case Int64:
		out := make([]float64, len(d.i64))
		for i, v := range d.i64 {
			out[i] = float64(v)
		}
		return out, true
	case Int32:
		out := make([]float64, len(d.i32))
		for i, v := range d.i32 {
			out[i] = float64(v)
		}
		return out, true
	default:
		return nil, false
	}
}

// Clone returns a deep copy of the array.
func (d *Dense) Clone() *Dense {
	out := &Dense{shape: d.shape.Clone(), dtype: d.dtype}
	switch d.dtype {
	case Float64:
		out.f64 = append([]float64(nil), d.f64...)
	case Float32:
		out.f32 = append([]float32(nil), d.f32...)
	case Int64:
		out.i64 = append([]int64(nil), d.i64...)
	case Int32:
		out.i32 = append([]int32(nil), d.i32...)
	case Bool:
		out.b = append([]bool(nil), d.b...)
	}
	return out
}

// String returns a short description like "float64[3 2]".
func (d *Dense) String() string {
	return fmt.Sprintf("%s%v", d.dtype, []int(d.shape))
}
