// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package csvconduit_test

import (
	"context"
	"errors"
	"testing"

	csvconduit "github.com/MatrixMike/csv-conduit"
	"github.com/spf13/afero"
)

func writeInput(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
		t.Fatalf("write input: %v", err)
	}
}

func readOutput(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	return string(data)
}

func TestMapFile_Identity(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	writeInput(t, fs, "/in.csv", "a,b\n1,2\n")

	count, err := csvconduit.MapFile(ctx, fs, nil, "/in.csv", "/out.csv", csvconduit.IdentityTransform())
	if err != nil {
		t.Fatalf("map file: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	if got, want := readOutput(t, fs, "/out.csv"), "\"a\",\"b\"\n\"1\",\"2\"\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestMapFile_ZeroRowsCreatesNoFile(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	writeInput(t, fs, "/in.csv", "a,b\n1,2\n")

	count, err := csvconduit.MapFile(ctx, fs, nil, "/in.csv", "/out.csv",
		func(csvconduit.Row) []csvconduit.Row { return nil })
	if err != nil {
		t.Fatalf("map file: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}

	exists, err := afero.Exists(fs, "/out.csv")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatalf("output file created for a zero-row transform")
	}
}

func TestMapFile_ExpandingTransform(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	writeInput(t, fs, "/in.csv", "x\n")

	count, err := csvconduit.MapFile(ctx, fs, nil, "/in.csv", "/out.csv",
		func(row csvconduit.Row) []csvconduit.Row { return []csvconduit.Row{row, row, row} })
	if err != nil {
		t.Fatalf("map file: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want rows written not rows read", count)
	}
}

func TestMapFile_SkipsMalformedLines(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	writeInput(t, fs, "/in.csv", "a,b\nbro\"ken\n1,2\n")

	count, err := csvconduit.MapFile(ctx, fs, nil, "/in.csv", "/out.csv", csvconduit.IdentityTransform())
	if err != nil {
		t.Fatalf("map file: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2 (malformed line dropped)", count)
	}
}

func TestMapFile_MissingInput(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	_, err := csvconduit.MapFile(ctx, fs, nil, "/missing.csv", "/out.csv", csvconduit.IdentityTransform())
	if err == nil {
		t.Fatalf("expected error for missing input")
	}
	var fileErr *csvconduit.FileError
	if !errors.As(err, &fileErr) || fileErr.Op != "open" {
		t.Fatalf("err = %v, want open FileError", err)
	}
}

func TestMapKeyedFile_WritesSortedHeader(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	writeInput(t, fs, "/in.csv", "b,a\n2,1\n4,3\n")

	count, err := csvconduit.MapKeyedFile(ctx, fs, nil, "/in.csv", "/out.csv",
		func(row csvconduit.KeyedRow) []csvconduit.KeyedRow { return []csvconduit.KeyedRow{row} })
	if err != nil {
		t.Fatalf("map keyed file: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2 data rows (header excluded)", count)
	}

	want := "\"a\",\"b\"\n\"1\",\"2\"\n\"3\",\"4\"\n"
	if got := readOutput(t, fs, "/out.csv"); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestMapKeyedFile_AllRowsDroppedCreatesNoFile(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	writeInput(t, fs, "/in.csv", "a,b\n1,2\n3,4\n")

	count, err := csvconduit.MapKeyedFile(ctx, fs, nil, "/in.csv", "/out.csv",
		func(csvconduit.KeyedRow) []csvconduit.KeyedRow { return nil })
	if err != nil {
		t.Fatalf("map keyed file: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}

	exists, err := afero.Exists(fs, "/out.csv")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatalf("no header or file should be written when every transform returns zero rows")
	}
}

func TestMapKeyedFile_DeferredHeader(t *testing.T) {
	// the first data row is dropped by the transform, so the header
	// decision is deferred to the second row
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	writeInput(t, fs, "/in.csv", "a,b\nskip,skip\n1,2\n")

	count, err := csvconduit.MapKeyedFile(ctx, fs, nil, "/in.csv", "/out.csv",
		func(row csvconduit.KeyedRow) []csvconduit.KeyedRow {
			if row["a"].String() == "skip" {
				return nil
			}
			return []csvconduit.KeyedRow{row}
		})
	if err != nil {
		t.Fatalf("map keyed file: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	want := "\"a\",\"b\"\n\"1\",\"2\"\n"
	if got := readOutput(t, fs, "/out.csv"); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestReadFile(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	writeInput(t, fs, "/in.csv", "a,b\n1,2\n")

	got, err := csvconduit.ReadFile(ctx, fs, nil, "/in.csv")
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}
	if !rowEqual(got[1].Strings(), []string{"1", "2"}) {
		t.Fatalf("row 1 = %q", got[1].Strings())
	}
}

func TestReadKeyedFile(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	writeInput(t, fs, "/in.csv", "a,b,c\n1,2,3\n")

	got, err := csvconduit.ReadKeyedFile(ctx, fs, nil, "/in.csv")
	if err != nil {
		t.Fatalf("read keyed file: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("keyed rows = %d, want 1", len(got))
	}
	for key, want := range map[string]string{"a": "1", "b": "2", "c": "3"} {
		if got[0][key].String() != want {
			t.Fatalf("row[%q] = %q, want %q", key, got[0][key], want)
		}
	}
}

func TestWriteFile_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	rows := []csvconduit.Row{
		{csvconduit.Field("a"), csvconduit.Field("b")},
		{csvconduit.Field("1"), csvconduit.Field("2")},
	}
	count, err := csvconduit.WriteFile(fs, nil, "/out.csv", rows)
	if err != nil {
		t.Fatalf("write file: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	got, err := csvconduit.ReadFile(ctx, fs, nil, "/out.csv")
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if len(got) != 2 || !rowEqual(got[0].Strings(), []string{"a", "b"}) || !rowEqual(got[1].Strings(), []string{"1", "2"}) {
		t.Fatalf("round trip rows = %v", got)
	}
}

func TestWriteKeyedFile_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	rows := []csvconduit.KeyedRow{
		{"a": csvconduit.Field("1"), "b": csvconduit.Field("2")},
	}
	count, err := csvconduit.WriteKeyedFile(fs, nil, "/out.csv", rows)
	if err != nil {
		t.Fatalf("write keyed file: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	got, err := csvconduit.ReadKeyedFile(ctx, fs, nil, "/out.csv")
	if err != nil {
		t.Fatalf("read keyed file: %v", err)
	}
	if len(got) != 1 || got[0]["a"].String() != "1" || got[0]["b"].String() != "2" {
		t.Fatalf("round trip keyed rows = %v", got)
	}
}
