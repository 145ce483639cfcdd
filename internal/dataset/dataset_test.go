// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tidecast-ml/tidecast/internal/frame"
)

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "series.csv")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing csv: %v", err)
	}
	return path
}

func TestReadCSV(t *testing.T) {
	path := writeCSV(t, "ds,region,y\n2025-01-01,eu,10.5\n2025-01-02,eu,11.25\n")
	df, err := ReadCSV(path, "ds", "y", "2006-01-02")
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}

	if df.NumRows() != 2 || df.NumCols() != 2 {
		t.Fatalf("dimensions = %dx%d, want 2x2", df.NumRows(), df.NumCols())
	}
	tCol, _ := df.Column("ds")
	if tCol.Kind() != frame.Time {
		t.Errorf("ds kind = %v, want time", tCol.Kind())
	}
	want := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	if !tCol.Times()[1].Equal(want) {
		t.Errorf("ds[1] = %v, want %v", tCol.Times()[1], want)
	}
	yCol, _ := df.Column("y")
	if yCol.Floats()[1] != 11.25 {
		t.Errorf("y[1] = %v, want 11.25", yCol.Floats()[1])
	}
}

func TestReadCSVErrors(t *testing.T) {
	if _, err := ReadCSV(filepath.Join(t.TempDir(), "absent.csv"), "ds", "y", ""); err == nil {
		t.Error("missing file should fail")
	}

	path := writeCSV(t, "ds,y\n2025-01-01,10\n")
	if _, err := ReadCSV(path, "when", "y", "2006-01-02"); err == nil {
		t.Error("missing time column should fail")
	}
	if _, err := ReadCSV(path, "ds", "demand", "2006-01-02"); err == nil {
		t.Error("missing value column should fail")
	}

	bad := writeCSV(t, "ds,y\n2025-01-01,not-a-number\n")
	if _, err := ReadCSV(bad, "ds", "y", "2006-01-02"); err == nil {
		t.Error("unparseable value cell should fail")
	}

	empty := writeCSV(t, "ds,y\n")
	if _, err := ReadCSV(empty, "ds", "y", "2006-01-02"); err == nil {
		t.Error("csv without data rows should fail")
	}
}
