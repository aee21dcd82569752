// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	csvconduit "github.com/MatrixMike/csv-conduit"
	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
)

var reIdent = regexp.MustCompile(`[^a-z0-9_]+`)

// ImportResult describes one ImportCSV run.
type ImportResult struct {
	ImportID  int64
	Table     string
	Rows      int64 // data rows inserted
	Skipped   int64 // malformed lines dropped by the parser
	Duplicate bool  // true if the file was already imported (idempotent no-op)
}

// ImportCSV loads the CSV file at path into a table. The first parsed
// row names the columns (all typed TEXT); every later row becomes one
// inserted row, padded or truncated to the header width. Malformed
// lines are skipped and counted, never fatal.
//
// The file's xxhash is recorded in the imports table; importing the
// same bytes twice returns Duplicate=true without touching the data
// table.
func (s *Store) ImportCSV(ctx context.Context, fs afero.Fs, settings *csvconduit.Settings, path, table string) (*ImportResult, error) {
	checksum, err := checksumFile(fs, path)
	if err != nil {
		return nil, err
	}

	if existing, err := s.getImportByChecksum(ctx, checksum); err != nil {
		return nil, err
	} else if existing != nil {
		existing.Duplicate = true
		return existing, nil
	}

	if table == "" {
		table = tableNameFromPath(path)
	}
	table = sanitizeIdent(table)
	if table == "" {
		return nil, fmt.Errorf("cannot derive a table name from %q", path)
	}

	in, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer in.Close()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &DatabaseError{Op: "begin", Err: err}
	}
	defer tx.Rollback()

	type loadState struct {
		columns []string
		insert  string
		rows    int64
		skipped int64
	}

	state, err := csvconduit.Fold(ctx, in, settings, &loadState{}, func(st *loadState, sig csvconduit.Signal) (*loadState, error) {
		switch sig.Kind {
		case csvconduit.SignalRow:
			if st.columns == nil {
				columns, err := columnNames(sig.Row)
				if err != nil {
					return st, err
				}
				st.columns = columns
				if _, err := tx.ExecContext(ctx, createTableSQL(table, columns)); err != nil {
					return st, &DatabaseError{Op: "create table " + table, Err: err}
				}
				st.insert = insertSQL(table, columns)
				return st, nil
			}
			args := make([]any, len(st.columns))
			for i := range st.columns {
				if i < len(sig.Row) {
					args[i] = string(sig.Row[i])
				} else {
					args[i] = "" // short row, pad to the header width
				}
			}
			if _, err := tx.ExecContext(ctx, st.insert, args...); err != nil {
				return st, &DatabaseError{Op: "insert into " + table, Err: err}
			}
			st.rows++
		case csvconduit.SignalSkip:
			st.skipped++
		}
		return st, nil
	})
	if err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO imports (file_name, table_name, checksum, row_count, skipped, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		filepath.Base(path), table, checksum, state.rows, state.skipped,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, &DatabaseError{Op: "insert import", Err: err}
	}
	importID, err := result.LastInsertId()
	if err != nil {
		return nil, &DatabaseError{Op: "insert import", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &DatabaseError{Op: "commit", Err: err}
	}

	return &ImportResult{
		ImportID: importID,
		Table:    table,
		Rows:     state.rows,
		Skipped:  state.skipped,
	}, nil
}

// getImportByChecksum returns the recorded import for checksum, or nil.
func (s *Store) getImportByChecksum(ctx context.Context, checksum string) (*ImportResult, error) {
	const query = `
		SELECT id, table_name, row_count, skipped
		FROM imports
		WHERE checksum = ?
	`
	var r ImportResult
	err := s.db.QueryRowContext(ctx, query, checksum).Scan(&r.ImportID, &r.Table, &r.Rows, &r.Skipped)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &DatabaseError{Op: "select import", Err: err}
	}
	return &r, nil
}

// CountRows returns the number of rows in an imported table.
func (s *Store) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %q`, sanitizeIdent(table))
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, &DatabaseError{Op: "count " + table, Err: err}
	}
	return n, nil
}

// checksumFile hashes the raw file bytes in one streaming pass.
func checksumFile(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// columnNames derives sane, unique column identifiers from a header
// row. Empty or duplicate names get positional suffixes.
func columnNames(header csvconduit.Row) ([]string, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("empty header row")
	}
	seen := map[string]bool{}
	columns := make([]string, len(header))
	for i, field := range header {
		name := sanitizeIdent(string(field))
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		for seen[name] {
			name = fmt.Sprintf("%s_%d", name, i+1)
		}
		seen[name] = true
		columns[i] = name
	}
	return columns, nil
}

func sanitizeIdent(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = reIdent.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}

func tableNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func createTableSQL(table string, columns []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %q (\n", table)
	for i, col := range columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "    %q TEXT", col)
	}
	b.WriteString("\n)")
	return b.String()
}

func insertSQL(table string, columns []string) string {
	quoted := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = fmt.Sprintf("%q", col)
		params[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		table, strings.Join(quoted, ", "), strings.Join(params, ", "))
}
