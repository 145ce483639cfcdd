// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package serialize

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors.
var (
	ErrSchemaMismatch      = errors.New("registry and instance attribute sets disagree")
	ErrUnsupportedType     = errors.New("unsupported value type")
	ErrMissingAttribute    = errors.New("missing required attribute")
	ErrUnexpectedAttribute = errors.New("unexpected attribute")
	ErrMalformedDocument   = errors.New("malformed document")
	ErrUnsupportedSchema   = errors.New("unsupported document schema version")
)

// SchemaError reports the difference between a registry and a live
// instance's attribute set.
type SchemaError struct {
	Entity     string   // Entity name (e.g. "model", "backend[map]")
	Undeclared []string // Live attributes with no registry entry
	Missing    []string // Registry entries absent from the live instance
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Undeclared) > 0 {
		parts = append(parts, fmt.Sprintf("undeclared attributes [%s]", strings.Join(e.Undeclared, ", ")))
	}
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("declared attributes missing from instance [%s]", strings.Join(e.Missing, ", ")))
	}
	return fmt.Sprintf("%s: %s: %s", e.Entity, ErrSchemaMismatch, strings.Join(parts, "; "))
}

// Unwrap makes the error match ErrSchemaMismatch with errors.Is.
func (e *SchemaError) Unwrap() error { return ErrSchemaMismatch }

// TypeError reports a value the dispatcher has no codec for.
type TypeError struct {
	Attr  string // Offending attribute name
	Value any    // The value itself
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: attribute %q has type %T", ErrUnsupportedType, e.Attr, e.Value)
}

// Unwrap makes the error match ErrUnsupportedType with errors.Is.
func (e *TypeError) Unwrap() error { return ErrUnsupportedType }

// AttributeError reports a document that does not match the expected
// shape of the target entity type.
type AttributeError struct {
	Entity string // Entity name
	Attr   string // Offending attribute name
	Err    error  // ErrMissingAttribute or ErrUnexpectedAttribute
}

// Error implements the error interface.
func (e *AttributeError) Error() string {
	return fmt.Sprintf("%s: %s: %q", e.Entity, e.Err, e.Attr)
}

// Unwrap makes the error match its sentinel with errors.Is.
func (e *AttributeError) Unwrap() error { return e.Err }
