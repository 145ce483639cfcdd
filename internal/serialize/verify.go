// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package serialize

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/tidecast-ml/tidecast/internal/model"
)

// verify asserts set-equality between the registry's declared attributes
// and a live instance's non-excluded attribute names. Optional entries
// (declared extras) are only required when actually present.
func (r *Registry[E]) verify(live []string) error {
	liveSet := make(map[string]struct{}, len(live))
	for _, name := range live {
		if !r.IsExcluded(name) {
			liveSet[name] = struct{}{}
		}
	}

	var undeclared, missing []string
	for name := range liveSet {
		if _, ok := r.byName[name]; !ok {
			undeclared = append(undeclared, name)
		}
	}
	for _, f := range r.fields {
		if f.Optional {
			continue
		}
		if _, ok := liveSet[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	if len(undeclared) == 0 && len(missing) == 0 {
		return nil
	}
	sort.Strings(undeclared)
	sort.Strings(missing)
	return &SchemaError{Entity: r.entity, Undeclared: undeclared, Missing: missing}
}

// VerifyModel checks the model registry against a live instance: every
// declared field and every dynamic extra must have a registry entry, and
// every required entry must exist on the instance.
//
// This is the only place the package reflects; the runtime codec works
// entirely off the explicit registries.
func VerifyModel(m *model.Model) error {
	live := structAttrs(m)
	for name := range m.Extra {
		live = append(live, name)
	}
	return modelRegistry.verify(live)
}

// VerifyBackend checks the registry for the backend's kind against a
// live instance. The engine-handle attributes are excluded on both
// sides.
func VerifyBackend(b model.Backend) error {
	reg, ok := backendRegistries[b.Kind()]
	if !ok {
		return fmt.Errorf("no registry for backend kind %q", b.Kind())
	}
	return reg.verify(structAttrs(b))
}

// VerifySeasonality checks the seasonality registry against a live
// instance.
func VerifySeasonality(s *model.Seasonality) error {
	return seasonalityRegistry.verify(structAttrs(s))
}

// Verify runs every applicable registry check for a model and its nested
// entities.
func Verify(m *model.Model) error {
	if err := VerifyModel(m); err != nil {
		return err
	}
	for _, s := range m.Seasonalities {
		if err := VerifySeasonality(s); err != nil {
			return err
		}
	}
	if m.Backend != nil {
		if err := VerifyBackend(m.Backend); err != nil {
			return err
		}
	}
	return nil
}

// structAttrs enumerates the attr-tagged field names of a struct,
// flattening embedded structs. Fields tagged "-" (the dynamic extras
// map) are enumerated by their map keys instead.
func structAttrs(v any) []string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return typeAttrs(t)
}

func typeAttrs(t reflect.Type) []string {
	var out []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			out = append(out, typeAttrs(f.Type)...)
			continue
		}
		tag := f.Tag.Get("attr")
		if tag == "" || tag == "-" {
			continue
		}
		out = append(out, tag)
	}
	return out
}
