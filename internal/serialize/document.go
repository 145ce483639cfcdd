// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package serialize persists fitted tidecast models and reconstructs
// them with full fidelity.
//
// The codec is registry-driven: each entity type (model, seasonality,
// backend kinds) has an immutable attribute table declaring how every
// attribute encodes, and documents are one self-describing mapping from
// attribute name to encoded form. The two live engine handles on a
// backend are excluded by policy: they never appear in documents and
// stay nil after decode.
//
// Encode and decode are pure in-memory transformations; reading and
// writing documents to storage goes through the transport helpers
// (ToJSON/FromJSON, ToCBOR/FromCBOR, Save/Load).
package serialize

import (
	"fmt"
	"sort"

	"github.com/tidecast-ml/tidecast/internal/frame"
	"github.com/tidecast-ml/tidecast/internal/model"
	"github.com/tidecast-ml/tidecast/internal/tensor"
)

// Document is the interchange representation of a model: attribute name
// to encoded form, plus the schema version.
type Document map[string]any

// SchemaVersion identifies the logical document schema produced by this
// build. Parse rejects any other version.
const SchemaVersion = 1

const (
	schemaVersionKey = "schema_version"
	backendKindKey   = "backend_kind"
)

// Build encodes a model into a document.
//
// Every dynamically attached extra must have a registry entry; an
// undeclared extra fails with ErrSchemaMismatch before any document is
// produced. (The full reflection-based registry check lives in
// VerifyModel; extras are the only attribute set that can drift at
// runtime.)
func Build(m *model.Model) (Document, error) {
	if m == nil {
		return nil, fmt.Errorf("cannot build a document from a nil model")
	}

	var undeclared []string
	for name := range m.Extra {
		if _, ok := modelRegistry.byName[name]; !ok {
			undeclared = append(undeclared, name)
		}
	}
	if len(undeclared) > 0 {
		sort.Strings(undeclared)
		return nil, &SchemaError{Entity: modelRegistry.entity, Undeclared: undeclared}
	}

	doc := Document{schemaVersionKey: SchemaVersion}
	for _, f := range modelRegistry.fields {
		v := f.Get(m)
		if f.Optional && v == nil {
			continue
		}
		enc, err := encodeField(f.Name, f.Kind, v)
		if err != nil {
			return nil, err
		}
		doc[f.Name] = enc
	}
	return doc, nil
}

// Parse decodes a document into a new model.
//
// Fixed attributes absent from the document fail with
// ErrMissingAttribute. Keys the registry does not declare are retained
// as extras: models are dynamically extensible; backends and
// seasonalities are not and reject unknown keys.
func Parse(doc Document) (*model.Model, error) {
	rawVer, ok := doc[schemaVersionKey]
	if !ok {
		return nil, fmt.Errorf("%w: document has no %s", ErrUnsupportedSchema, schemaVersionKey)
	}
	ver, err := asInt(rawVer)
	if err != nil || ver != SchemaVersion {
		return nil, fmt.Errorf("%w: document has version %v, this build supports %d",
			ErrUnsupportedSchema, rawVer, SchemaVersion)
	}

	m := &model.Model{Extra: make(map[string]any)}
	for _, f := range modelRegistry.fields {
		raw, present := doc[f.Name]
		if !present {
			if f.Optional {
				continue
			}
			return nil, &AttributeError{Entity: modelRegistry.entity, Attr: f.Name, Err: ErrMissingAttribute}
		}
		v, err := decodeField(f.Name, f.Kind, raw)
		if err != nil {
			return nil, err
		}
		if err := f.Set(m, v); err != nil {
			return nil, fmt.Errorf("%w: attribute %q: %v", ErrMalformedDocument, f.Name, err)
		}
	}

	for key, raw := range doc {
		if key == schemaVersionKey {
			continue
		}
		if _, ok := modelRegistry.byName[key]; ok {
			continue
		}
		v, err := decodeAuto(key, raw)
		if err != nil {
			return nil, err
		}
		m.SetExtra(key, v)
	}
	return m, nil
}

// encodeField dispatches one attribute value to its codec.
func encodeField(attr string, kind Kind, v any) (any, error) {
	switch kind {
	case KindScalar:
		return encodeScalar(attr, v)
	case KindArray:
		switch x := v.(type) {
		case nil:
			return nil, nil
		case *tensor.Dense:
			return encodeArray(x), nil
		default:
			return nil, &TypeError{Attr: attr, Value: v}
		}
	case KindTabular:
		switch x := v.(type) {
		case nil:
			return nil, nil
		case *frame.Frame:
			return encodeFrame(x), nil
		default:
			return nil, &TypeError{Attr: attr, Value: v}
		}
	case KindEntityMap:
		switch x := v.(type) {
		case nil:
			return nil, nil
		case map[string]*model.Seasonality:
			return encodeSeasonalities(x)
		default:
			return nil, &TypeError{Attr: attr, Value: v}
		}
	case KindEntity:
		switch x := v.(type) {
		case nil:
			return nil, nil
		case model.Backend:
			return encodeBackend(x)
		default:
			return nil, &TypeError{Attr: attr, Value: v}
		}
	case KindParamMap:
		switch x := v.(type) {
		case nil:
			return nil, nil
		case map[string]model.Param:
			return encodeParamMap(x), nil
		default:
			return nil, &TypeError{Attr: attr, Value: v}
		}
	case KindAuto:
		return encodeAuto(attr, v)
	default:
		return nil, &TypeError{Attr: attr, Value: v}
	}
}

// decodeField reverses encodeField for the declared kind.
func decodeField(attr string, kind Kind, raw any) (any, error) {
	switch kind {
	case KindScalar:
		return raw, nil // Set closures coerce scalars to the target type
	case KindArray:
		a, err := decodeArray(attr, raw)
		if err != nil || a == nil {
			return nil, err
		}
		return a, nil
	case KindTabular:
		f, err := decodeFrame(attr, raw)
		if err != nil || f == nil {
			return nil, err
		}
		return f, nil
	case KindEntityMap:
		return decodeSeasonalities(attr, raw)
	case KindEntity:
		return decodeBackend(attr, raw)
	case KindParamMap:
		p, err := decodeParamMap(attr, raw)
		if err != nil || p == nil {
			return nil, err
		}
		return p, nil
	case KindAuto:
		return decodeAuto(attr, raw)
	default:
		return nil, &TypeError{Attr: attr, Value: raw}
	}
}

// encodeSeasonalities encodes each nested seasonality through its own
// registry, keyed by name.
func encodeSeasonalities(seas map[string]*model.Seasonality) (any, error) {
	if seas == nil {
		return nil, nil
	}
	out := make(map[string]any, len(seas))
	for name, s := range seas {
		sub := make(map[string]any, len(seasonalityRegistry.fields))
		for _, f := range seasonalityRegistry.fields {
			enc, err := encodeField("seasonalities."+name+"."+f.Name, f.Kind, f.Get(s))
			if err != nil {
				return nil, err
			}
			sub[f.Name] = enc
		}
		out[name] = sub
	}
	return out, nil
}

func decodeSeasonalities(attr string, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	form, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: attribute %q: entity map is %T, want object", ErrMalformedDocument, attr, raw)
	}
	out := make(map[string]*model.Seasonality, len(form))
	for name, rawSub := range form {
		sub, ok := rawSub.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: attribute %q: entry %q is %T, want object", ErrMalformedDocument, attr, name, rawSub)
		}
		s := &model.Seasonality{}
		for _, f := range seasonalityRegistry.fields {
			cell, present := sub[f.Name]
			if !present {
				return nil, &AttributeError{Entity: seasonalityRegistry.entity, Attr: f.Name, Err: ErrMissingAttribute}
			}
			v, err := decodeField(attr+"."+name+"."+f.Name, f.Kind, cell)
			if err != nil {
				return nil, err
			}
			if err := f.Set(s, v); err != nil {
				return nil, fmt.Errorf("%w: attribute %q: %v", ErrMalformedDocument, attr+"."+name+"."+f.Name, err)
			}
		}
		for key := range sub {
			if _, ok := seasonalityRegistry.byName[key]; !ok {
				return nil, &AttributeError{Entity: seasonalityRegistry.entity, Attr: key, Err: ErrUnexpectedAttribute}
			}
		}
		out[name] = s
	}
	return out, nil
}

// encodeBackend encodes a backend as a sub-document carrying its kind
// discriminant. Excluded attributes (the engine handles) have no
// registry entries and therefore never reach the document.
func encodeBackend(b model.Backend) (any, error) {
	reg, ok := backendRegistries[b.Kind()]
	if !ok {
		return nil, &TypeError{Attr: "backend", Value: b}
	}
	sub := map[string]any{backendKindKey: b.Kind()}
	for _, f := range reg.fields {
		enc, err := encodeField("backend."+f.Name, f.Kind, f.Get(b))
		if err != nil {
			return nil, err
		}
		sub[f.Name] = enc
	}
	return sub, nil
}

// decodeBackend constructs the concrete backend named by the document's
// discriminant and populates it through that kind's registry.
func decodeBackend(attr string, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	form, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: attribute %q: entity form is %T, want object", ErrMalformedDocument, attr, raw)
	}
	rawKind, present := form[backendKindKey]
	if !present {
		return nil, &AttributeError{Entity: "backend", Attr: backendKindKey, Err: ErrMissingAttribute}
	}
	kind, err := asString(rawKind)
	if err != nil {
		return nil, fmt.Errorf("%w: attribute %q: %v", ErrMalformedDocument, attr, err)
	}
	b, err := model.NewBackend(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: attribute %q: %v", ErrMalformedDocument, attr, err)
	}
	reg := backendRegistries[kind]

	for _, f := range reg.fields {
		cell, present := form[f.Name]
		if !present {
			return nil, &AttributeError{Entity: reg.entity, Attr: f.Name, Err: ErrMissingAttribute}
		}
		v, err := decodeField(attr+"."+f.Name, f.Kind, cell)
		if err != nil {
			return nil, err
		}
		if err := f.Set(b, v); err != nil {
			return nil, fmt.Errorf("%w: attribute %q: %v", ErrMalformedDocument, attr+"."+f.Name, err)
		}
	}
	for key := range form {
		if key == backendKindKey {
			continue
		}
		if _, ok := reg.byName[key]; !ok {
			return nil, &AttributeError{Entity: reg.entity, Attr: key, Err: ErrUnexpectedAttribute}
		}
	}
	return b, nil
}
