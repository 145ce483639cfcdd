// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package serialize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/gzip"

	"github.com/tidecast-ml/tidecast/internal/model"
)

// CBOR modes are fixed at init: canonical encoding keeps documents
// deterministic, and maps decode with string keys like JSON objects.
var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	cborDec, err = cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}.DecMode()
	if err != nil {
		panic(err)
	}
}

// ToJSON encodes a model into the default text transport.
func ToJSON(m *model.Model) ([]byte, error) {
	doc, err := Build(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// FromJSON decodes a model from its JSON document. Numbers are kept as
// json.Number during parsing so integer attributes round-trip exactly.
func FromJSON(data []byte) (*model.Model, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return Parse(doc)
}

// ToCBOR encodes a model into the binary transport.
func ToCBOR(m *model.Model) ([]byte, error) {
	doc, err := Build(m)
	if err != nil {
		return nil, err
	}
	return cborEnc.Marshal(doc)
}

// FromCBOR decodes a model from its CBOR document.
func FromCBOR(data []byte) (*model.Model, error) {
	var doc Document
	if err := cborDec.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return Parse(doc)
}

// Save writes a model's JSON document to path, gzip-compressed when the
// path ends in ".gz".
func Save(m *model.Model, path string) (err error) {
	data, err := ToJSON(m)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if strings.HasSuffix(path, ".gz") {
		zw := gzip.NewWriter(file)
		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("failed to write compressed document: %w", err)
		}
		return zw.Close()
	}
	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// Load reads a model from a file written by Save.
func Load(path string) (*model.Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open compressed document: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return FromJSON(data)
}
