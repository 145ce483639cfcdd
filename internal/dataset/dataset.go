// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dataset loads training series from CSV files into frames.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/tidecast-ml/tidecast/internal/frame"
)

// ReadCSV reads a CSV file with a header row and returns a two-column
// frame: timeCol (datetime kind, parsed with layout) and valueCol (float
// kind). Other columns are ignored.
func ReadCSV(path, timeCol, valueCol, layout string) (*frame.Frame, error) {
	if layout == "" {
		layout = time.RFC3339
	}

	//nolint:gosec // G304: data file path is caller-provided
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}

	timeIdx, valueIdx := -1, -1
	for i, name := range header {
		switch name {
		case timeCol:
			timeIdx = i
		case valueCol:
			valueIdx = i
		}
	}
	if timeIdx < 0 {
		return nil, fmt.Errorf("%s has no column %q", path, timeCol)
	}
	if valueIdx < 0 {
		return nil, fmt.Errorf("%s has no column %q", path, valueCol)
	}

	var (
		times  []time.Time
		values []float64
	)
	for row := 2; ; row++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, row, err)
		}
		t, err := time.Parse(layout, record[timeIdx])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, row, err)
		}
		v, err := strconv.ParseFloat(record[valueIdx], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, row, err)
		}
		times = append(times, t)
		values = append(values, v)
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("%s has no data rows", path)
	}

	return frame.New(frame.NewTime(timeCol, times), frame.NewFloat(valueCol, values))
}
