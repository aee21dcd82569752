// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store_test

import (
	"context"
	"testing"

	store "github.com/MatrixMike/csv-conduit/stores/sqlite"
	"github.com/spf13/afero"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore()
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func writeCSV(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
}

func TestImportCSV(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	fs := afero.NewMemMapFs()
	writeCSV(t, fs, "/people.csv", "name,age\nalice,30\nbob,31\n")

	result, err := s.ImportCSV(ctx, fs, nil, "/people.csv", "")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Duplicate {
		t.Fatalf("first import flagged duplicate")
	}
	if result.Table != "people" {
		t.Fatalf("table = %q, want people", result.Table)
	}
	if result.Rows != 2 {
		t.Fatalf("rows = %d, want 2", result.Rows)
	}

	n, err := s.CountRows(ctx, "people")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("table rows = %d, want 2", n)
	}
}

func TestImportCSV_DuplicateIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	fs := afero.NewMemMapFs()
	writeCSV(t, fs, "/people.csv", "name,age\nalice,30\n")

	first, err := s.ImportCSV(ctx, fs, nil, "/people.csv", "")
	if err != nil {
		t.Fatalf("first import: %v", err)
	}

	second, err := s.ImportCSV(ctx, fs, nil, "/people.csv", "")
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if !second.Duplicate {
		t.Fatalf("second import not flagged duplicate")
	}
	if second.ImportID != first.ImportID {
		t.Fatalf("duplicate import id = %d, want %d", second.ImportID, first.ImportID)
	}

	n, err := s.CountRows(ctx, "people")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("table rows = %d, want 1 (no double insert)", n)
	}
}

func TestImportCSV_SkipsMalformedLines(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	fs := afero.NewMemMapFs()
	writeCSV(t, fs, "/data.csv", "a,b\nbro\"ken\n1,2\n")

	result, err := s.ImportCSV(ctx, fs, nil, "/data.csv", "data")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Rows != 1 {
		t.Fatalf("rows = %d, want 1", result.Rows)
	}
	if result.Skipped != 1 {
		t.Fatalf("skipped = %d, want 1", result.Skipped)
	}
}

func TestImportCSV_ShortRowsPadded(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	fs := afero.NewMemMapFs()
	writeCSV(t, fs, "/data.csv", "a,b,c\n1,2\n1,2,3,4\n")

	result, err := s.ImportCSV(ctx, fs, nil, "/data.csv", "data")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Rows != 2 {
		t.Fatalf("rows = %d, want 2", result.Rows)
	}
}

func TestImportCSV_SanitizesColumnNames(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	fs := afero.NewMemMapFs()
	writeCSV(t, fs, "/weird.csv", "First Name,last-name,,First Name\nalice,a,x,y\n")

	result, err := s.ImportCSV(ctx, fs, nil, "/weird.csv", "weird")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Rows != 1 {
		t.Fatalf("rows = %d, want 1", result.Rows)
	}
}
