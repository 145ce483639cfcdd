// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package frame provides the columnar tabular type attached to fitted
// models (training history, regressor tables).
//
// A Frame is a fixed set of equally sized, ordered, named columns. Each
// column carries a coarse element-type Kind; the serialization layer
// preserves the kind across round trips even though physical storage
// width is an implementation detail.
package frame

import (
	"fmt"
	"time"
)

// Kind is the coarse element-type category of a column.
type Kind int

// Supported column kinds.
const (
	Int Kind = iota
	Float
	Bool
	String
	Time
)

// String returns the canonical name used in serialized documents.
func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case String:
		return "string"
	case Time:
		return "time"
	default:
		return "unknown"
	}
}

// ParseKind converts a serialized name back to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "int":
		return Int, true
	case "float":
		return Float, true
	case "bool":
		return Bool, true
	case "string":
		return String, true
	case "time":
		return Time, true
	default:
		return 0, false
	}
}

// Series is a single named column.
type Series struct {
	name   string
	kind   Kind
	ints   []int64
	floats []float64
	bools  []bool
	strs   []string
	times  []time.Time
}

// NewInt creates an integer column. The slice is not copied.
func NewInt(name string, values []int64) *Series {
	return &Series{name: name, kind: Int, ints: values}
}

// NewFloat creates a floating-point column. The slice is not copied.
func NewFloat(name string, values []float64) *Series {
	return &Series{name: name, kind: Float, floats: values}
}

// NewBool creates a boolean column. The slice is not copied.
func NewBool(name string, values []bool) *Series {
	return &Series{name: name, kind: Bool, bools: values}
}

// NewString creates a text column. The slice is not copied.
func NewString(name string, values []string) *Series {
	return &Series{name: name, kind: String, strs: values}
}

// NewTime creates a datetime column. The slice is not copied.
func NewTime(name string, values []time.Time) *Series {
	return &Series{name: name, kind: Time, times: values}
}

// Name returns the column name.
func (s *Series) Name() string { return s.name }

// Kind returns the column's element-type kind.
func (s *Series) Kind() Kind { return s.kind }

// Len returns the number of rows.
func (s *Series) Len() int {
	switch s.kind {
	case Int:
		return len(s.ints)
	case Float:
		return len(s.floats)
	case Bool:
		return len(s.bools)
	case String:
		return len(s.strs)
	case Time:
		return len(s.times)
	default:
		return 0
	}
}

// Ints returns the column data. Panics if the kind is not Int.
func (s *Series) Ints() []int64 {
	if s.kind != Int {
		panic(fmt.Sprintf("column %q kind is %s, not int", s.name, s.kind))
	}
	return s.ints
}

// Floats returns the column data. Panics if the kind is not Float.
func (s *Series) Floats() []float64 {
	if s.kind != Float {
		panic(fmt.Sprintf("column %q kind is %s, not float", s.name, s.kind))
	}
	return s.floats
}

// Bools returns the column data. Panics if the kind is not Bool.
func (s *Series) Bools() []bool {
	if s.kind != Bool {
		panic(fmt.Sprintf("column %q kind is %s, not bool", s.name, s.kind))
	}
	return s.bools
}

// Strings returns the column data. Panics if the kind is not String.
func (s *Series) Strings() []string {
	if s.kind != String {
		panic(fmt.Sprintf("column %q kind is %s, not string", s.name, s.kind))
	}
	return s.strs
}

// Times returns the column data. Panics if the kind is not Time.
func (s *Series) Times() []time.Time {
	if s.kind != Time {
		panic(fmt.Sprintf("column %q kind is %s, not time", s.name, s.kind))
	}
	return s.times
}

// Frame is an ordered collection of equally sized columns.
type Frame struct {
	cols  []*Series
	index map[string]int
}

// New creates a frame from the given columns. Column names must be unique
// and all columns must have the same length.
func New(cols ...*Series) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(cols))}
	for _, col := range cols {
		if col == nil {
			return nil, fmt.Errorf("nil column")
		}
		if _, dup := f.index[col.name]; dup {
			return nil, fmt.Errorf("duplicate column %q", col.name)
		}
		if len(f.cols) > 0 && col.Len() != f.cols[0].Len() {
			return nil, fmt.Errorf("column %q has %d rows, want %d", col.name, col.Len(), f.cols[0].Len())
		}
		f.index[col.name] = len(f.cols)
		f.cols = append(f.cols, col)
	}
	return f, nil
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int {
	if len(f.cols) == 0 {
		return 0
	}
	return f.cols[0].Len()
}

// NumCols returns the number of columns.
func (f *Frame) NumCols() int { return len(f.cols) }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.cols))
	for i, col := range f.cols {
		names[i] = col.name
	}
	return names
}

// Column returns the named column, or false if it does not exist.
func (f *Frame) Column(name string) (*Series, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// At returns the column at position i.
func (f *Frame) At(i int) *Series { return f.cols[i] }

// String returns a short description like "frame[5x2: t, y]".
func (f *Frame) String() string {
	return fmt.Sprintf("frame[%dx%d]", f.NumRows(), f.NumCols())
}
