// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package serialize

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/tidecast-ml/tidecast/internal/frame"
	"github.com/tidecast-ml/tidecast/internal/model"
	"github.com/tidecast-ml/tidecast/internal/tensor"
)

// Encoded-form keys for array values.
const (
	arrayShapeKey = "shape"
	arrayDTypeKey = "dtype"
	arrayDataKey  = "data"
)

// Encoded-form keys for tabular values.
const (
	frameColumnsKey = "columns"
	frameKindsKey   = "kinds"
	frameDataKey    = "data"
)

// timeLayout is the wire format for datetime scalars and cells.
const timeLayout = time.RFC3339Nano

// encodeScalar encodes a plain scalar for the document. Times normalize
// to UTC RFC 3339, durations to their string form.
func encodeScalar(attr string, v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool, string, int, int32, int64, float32, float64:
		return x, nil
	case time.Time:
		return x.UTC().Format(timeLayout), nil
	case time.Duration:
		return x.String(), nil
	default:
		return nil, &TypeError{Attr: attr, Value: v}
	}
}

// encodeArray encodes an n-dimensional array as shape + dtype + flat data.
func encodeArray(a *tensor.Dense) any {
	if a == nil {
		return nil
	}
	return map[string]any{
		arrayShapeKey: []int(a.Shape()),
		arrayDTypeKey: a.DType().String(),
		arrayDataKey:  a.Values(),
	}
}

// decodeArray reverses encodeArray.
func decodeArray(attr string, raw any) (*tensor.Dense, error) {
	if raw == nil {
		return nil, nil
	}
	form, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: attribute %q: array form is %T, want object", ErrMalformedDocument, attr, raw)
	}
	shapeRaw, ok := anySlice(form[arrayShapeKey])
	if !ok {
		return nil, fmt.Errorf("%w: attribute %q: array form has no shape", ErrMalformedDocument, attr)
	}
	shape := make(tensor.Shape, len(shapeRaw))
	for i, d := range shapeRaw {
		n, err := asInt(d)
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %q: shape[%d]: %v", ErrMalformedDocument, attr, i, err)
		}
		shape[i] = int(n)
	}
	dtypeName, err := asString(form[arrayDTypeKey])
	if err != nil {
		return nil, fmt.Errorf("%w: attribute %q: array form has no dtype", ErrMalformedDocument, attr)
	}
	dtype, ok := tensor.ParseDataType(dtypeName)
	if !ok {
		return nil, fmt.Errorf("%w: attribute %q: unknown dtype %q", ErrMalformedDocument, attr, dtypeName)
	}
	data, ok := anySlice(form[arrayDataKey])
	if !ok {
		return nil, fmt.Errorf("%w: attribute %q: array form has no data", ErrMalformedDocument, attr)
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("%w: attribute %q: shape %v does not match %d data values",
			ErrMalformedDocument, attr, shape, len(data))
	}

	switch dtype {
	case tensor.Float64:
		vals, err := floatSlice(data)
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %q: %v", ErrMalformedDocument, attr, err)
		}
		return tensor.FromFloat64(shape, vals)
	case tensor.Float32:
		vals := make([]float32, len(data))
		for i, d := range data {
			f, err := asFloat(d)
			if err != nil {
				return nil, fmt.Errorf("%w: attribute %q: data[%d]: %v", ErrMalformedDocument, attr, i, err)
			}
			vals[i] = float32(f)
		}
		return tensor.FromFloat32(shape, vals)
	case tensor.Int64:
		vals := make([]int64, len(data))
		for i, d := range data {
			n, err := asInt(d)
			if err != nil {
				return nil, fmt.Errorf("%w: attribute %q: data[%d]: %v", ErrMalformedDocument, attr, i, err)
			}
			vals[i] = n
		}
		return tensor.FromInt64(shape, vals)
	case tensor.Int32:
		vals := make([]int32, len(data))
		for i, d := range data {
			n, err := asInt(d)
			if err != nil {
				return nil, fmt.Errorf("%w: attribute %q: data[%d]: %v", ErrMalformedDocument, attr, i, err)
			}
			vals[i] = int32(n)
		}
		return tensor.FromInt32(shape, vals)
	case tensor.Bool:
		vals := make([]bool, len(data))
		for i, d := range data {
			b, err := asBool(d)
			if err != nil {
				return nil, fmt.Errorf("%w: attribute %q: data[%d]: %v", ErrMalformedDocument, attr, i, err)
			}
			vals[i] = b
		}
		return tensor.FromBool(shape, vals)
	default:
		return nil, fmt.Errorf("%w: attribute %q: unknown dtype %q", ErrMalformedDocument, attr, dtypeName)
	}
}

// encodeFrame encodes tabular data column-major with per-column kinds.
func encodeFrame(f *frame.Frame) any {
	if f == nil {
		return nil
	}
	columns := f.Columns()
	kinds := make([]string, len(columns))
	data := make(map[string]any, len(columns))
	for i := range columns {
		col := f.At(i)
		kinds[i] = col.Kind().String()
		switch col.Kind() {
		case frame.Time:
			cells := make([]string, col.Len())
			for j, t := range col.Times() {
				cells[j] = t.UTC().Format(timeLayout)
			}
			data[col.Name()] = cells
		case frame.Int:
			data[col.Name()] = col.Ints()
		case frame.Float:
			data[col.Name()] = col.Floats()
		case frame.Bool:
			data[col.Name()] = col.Bools()
		case frame.String:
			data[col.Name()] = col.Strings()
		}
	}
	return map[string]any{
		frameColumnsKey: columns,
		frameKindsKey:   kinds,
		frameDataKey:    data,
	}
}

// decodeFrame reverses encodeFrame, reconstructing each column with its
// recorded kind.
func decodeFrame(attr string, raw any) (*frame.Frame, error) {
	if raw == nil {
		return nil, nil
	}
	form, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: attribute %q: tabular form is %T, want object", ErrMalformedDocument, attr, raw)
	}
	colsRaw, ok := anySlice(form[frameColumnsKey])
	if !ok {
		return nil, fmt.Errorf("%w: attribute %q: tabular form has no columns", ErrMalformedDocument, attr)
	}
	kindsRaw, ok := anySlice(form[frameKindsKey])
	if !ok || len(kindsRaw) != len(colsRaw) {
		return nil, fmt.Errorf("%w: attribute %q: tabular form has no per-column kinds", ErrMalformedDocument, attr)
	}
	data, ok := form[frameDataKey].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: attribute %q: tabular form has no data", ErrMalformedDocument, attr)
	}

	series := make([]*frame.Series, len(colsRaw))
	declared := make(map[string]bool, len(colsRaw))
	for i := range colsRaw {
		name, err := asString(colsRaw[i])
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %q: columns[%d]: %v", ErrMalformedDocument, attr, i, err)
		}
		declared[name] = true
		kindName, err := asString(kindsRaw[i])
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %q: kinds[%d]: %v", ErrMalformedDocument, attr, i, err)
		}
		kind, ok := frame.ParseKind(kindName)
		if !ok {
			return nil, fmt.Errorf("%w: attribute %q: unknown column kind %q", ErrMalformedDocument, attr, kindName)
		}
		cells, ok := anySlice(data[name])
		if !ok {
			return nil, fmt.Errorf("%w: attribute %q: no data for column %q", ErrMalformedDocument, attr, name)
		}
		col, err := decodeColumn(name, kind, cells)
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %q: column %q: %v", ErrMalformedDocument, attr, name, err)
		}
		series[i] = col
	}
	if len(data) > len(declared) {
		var surplus []string
		for name := range data {
			if !declared[name] {
				surplus = append(surplus, name)
			}
		}
		sort.Strings(surplus)
		return nil, fmt.Errorf("%w: attribute %q: data for undeclared columns %v", ErrMalformedDocument, attr, surplus)
	}
	return frame.New(series...)
}

func decodeColumn(name string, kind frame.Kind, cells []any) (*frame.Series, error) {
	switch kind {
	case frame.Time:
		vals := make([]time.Time, len(cells))
		for i, c := range cells {
			s, err := asString(c)
			if err != nil {
				return nil, fmt.Errorf("cell %d: %v", i, err)
			}
			t, err := time.Parse(timeLayout, s)
			if err != nil {
				return nil, fmt.Errorf("cell %d: %v", i, err)
			}
			vals[i] = t
		}
		return frame.NewTime(name, vals), nil
	case frame.Int:
		vals := make([]int64, len(cells))
		for i, c := range cells {
			n, err := asInt(c)
			if err != nil {
				return nil, fmt.Errorf("cell %d: %v", i, err)
			}
			vals[i] = n
		}
		return frame.NewInt(name, vals), nil
	case frame.Float:
		vals, err := floatSlice(cells)
		if err != nil {
			return nil, err
		}
		return frame.NewFloat(name, vals), nil
	case frame.Bool:
		vals := make([]bool, len(cells))
		for i, c := range cells {
			b, err := asBool(c)
			if err != nil {
				return nil, fmt.Errorf("cell %d: %v", i, err)
			}
			vals[i] = b
		}
		return frame.NewBool(name, vals), nil
	case frame.String:
		vals := make([]string, len(cells))
		for i, c := range cells {
			s, err := asString(c)
			if err != nil {
				return nil, fmt.Errorf("cell %d: %v", i, err)
			}
			vals[i] = s
		}
		return frame.NewString(name, vals), nil
	default:
		return nil, fmt.Errorf("unknown kind %v", kind)
	}
}

// encodeParamMap encodes a fit-parameter map, dispatching per value on
// scalar vs array.
func encodeParamMap(params map[string]model.Param) any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for name, p := range params {
		if p.IsArray() {
			out[name] = encodeArray(p.Array())
		} else {
			out[name] = p.Scalar()
		}
	}
	return out
}

// decodeParamMap reverses encodeParamMap, rebuilding arrays from their
// shape/dtype/data triples and leaving scalars as-is.
func decodeParamMap(attr string, raw any) (map[string]model.Param, error) {
	if raw == nil {
		return nil, nil
	}
	form, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: attribute %q: parameter map is %T, want object", ErrMalformedDocument, attr, raw)
	}
	out := make(map[string]model.Param, len(form))
	for name, v := range form {
		if isArrayForm(v) {
			a, err := decodeArray(attr+"."+name, v)
			if err != nil {
				return nil, err
			}
			out[name] = model.ArrayParam(a)
			continue
		}
		f, err := asFloat(v)
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %q: entry %q: %v", ErrMalformedDocument, attr, name, err)
		}
		out[name] = model.ScalarParam(f)
	}
	return out, nil
}

// encodeAuto encodes a dynamically attached value, dispatching on its
// runtime type in the same priority order as the declared kinds.
func encodeAuto(attr string, v any) (any, error) {
	switch x := v.(type) {
	case *tensor.Dense:
		return encodeArray(x), nil
	case *frame.Frame:
		return encodeFrame(x), nil
	case map[string]model.Param:
		return encodeParamMap(x), nil
	case []float64:
		return x, nil
	case []string:
		return x, nil
	default:
		return encodeScalar(attr, v)
	}
}

// decodeAuto reverses encodeAuto, re-detecting the value category from
// the encoded shape. Numeric sequences normalize to []float64 and text
// sequences to []string.
func decodeAuto(attr string, raw any) (any, error) {
	switch x := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		if isArrayForm(x) {
			return decodeArray(attr, x)
		}
		if isFrameForm(x) {
			return decodeFrame(attr, x)
		}
		return nil, fmt.Errorf("%w: attribute %q: unrecognized object form", ErrMalformedDocument, attr)
	case []float64:
		return x, nil
	case []string:
		return x, nil
	case []any:
		if len(x) == 0 {
			return []float64{}, nil
		}
		if _, err := asString(x[0]); err == nil {
			out := make([]string, len(x))
			for i, c := range x {
				s, err := asString(c)
				if err != nil {
					return nil, fmt.Errorf("%w: attribute %q: element %d: %v", ErrMalformedDocument, attr, i, err)
				}
				out[i] = s
			}
			return out, nil
		}
		return floatSlice(x)
	case bool, string:
		return x, nil
	default:
		f, err := asFloat(raw)
		if err != nil {
			return nil, &TypeError{Attr: attr, Value: raw}
		}
		return f, nil
	}
}

// anySlice normalizes a sequence to []any. Wire decoding always yields
// []any; documents built and parsed in memory keep the encoders' typed
// slices.
func anySlice(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []int:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, true
	case []int64:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, true
	case []int32:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, true
	case []float64:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, true
	case []float32:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, true
	case []bool:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, true
	case []string:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, true
	default:
		return nil, false
	}
}

// isArrayForm reports whether v looks like an encoded array.
func isArrayForm(v any) bool {
	form, ok := v.(map[string]any)
	if !ok {
		return false
	}
	_, hasShape := form[arrayShapeKey]
	_, hasDType := form[arrayDTypeKey]
	_, hasData := form[arrayDataKey]
	return hasShape && hasDType && hasData
}

// isFrameForm reports whether v looks like an encoded frame.
func isFrameForm(v any) bool {
	form, ok := v.(map[string]any)
	if !ok {
		return false
	}
	_, hasCols := form[frameColumnsKey]
	_, hasKinds := form[frameKindsKey]
	_, hasData := form[frameDataKey]
	return hasCols && hasKinds && hasData
}

// Scalar coercions. JSON parsing keeps numbers as json.Number and CBOR
// yields int64/uint64/float64; both funnel through here.

func asFloat(v any) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		return x.Float64()
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not a number", v, v)
	}
}

func asInt(v any) (int64, error) {
	switch x := v.(type) {
	case json.Number:
		return x.Int64()
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint64:
		return int64(x), nil
	case float64:
		if x != float64(int64(x)) {
			return 0, fmt.Errorf("value %v is not an integer", x)
		}
		return int64(x), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not an integer", v, v)
	}
}

func asString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("value %v (%T) is not a string", v, v)
	}
	return s, nil
}

func asBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("value %v (%T) is not a bool", v, v)
	}
	return b, nil
}

func asTime(v any) (time.Time, error) {
	s, err := asString(v)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(timeLayout, s)
}

func asDuration(v any) (time.Duration, error) {
	s, err := asString(v)
	if err != nil {
		return 0, err
	}
	return time.ParseDuration(s)
}

func floatSlice(cells []any) ([]float64, error) {
	out := make([]float64, len(cells))
	for i, c := range cells {
		f, err := asFloat(c)
		if err != nil {
			return nil, fmt.Errorf("element %d: %v", i, err)
		}
		out[i] = f
	}
	return out, nil
}
