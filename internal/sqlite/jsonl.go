// This file provides JSONL read/write helpers with atomic persistence.
package sqlite

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// JSONL file names in DataDir.
const (
	patientsJSONL = "patients.jsonl"
	plansJSONL    = "plans.jsonl"
	mealsJSONL    = "meals.jsonl"
	foodsJSONL    = "foods.jsonl"
)

// jsonlTableMapping maps JSONL filenames to their SQLite tables and column
// lists. Parents load before children so a partial file set stays readable.
var jsonlTableMapping = []struct {
	file    string
	table   string
	columns []string
}{
	{plansJSONL, "plans", []string{"id", "name", "is_template"}},
	{mealsJSONL, "meals", []string{"id", "name", "plan_id"}},
	{foodsJSONL, "foods", []string{"id", "name", "amount", "unit", "meal_id"}},
	{patientsJSONL, "patients", []string{"id", "name", "plan_id", "email", "age", "sex", "height", "weight", "last_updated"}},
}

// jsonlFileFor returns the JSONL file and columns backing a table.
func jsonlFileFor(table string) (string, []string, bool) {
	for _, m := range jsonlTableMapping {
		if m.table == table {
			return m.file, m.columns, true
		}
	}
	return "", nil, false
}

// readJSONL reads a JSONL file and returns each non-empty, parseable line as
// a json.RawMessage. Malformed lines are skipped. A missing file reads as
// empty.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		line = bytes.TrimSpace(line)
		if len(line) > 0 && json.Valid(line) {
			records = append(records, json.RawMessage(line))
		}
		if err != nil {
			break
		}
	}
	return records, nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// persistTableJSONL snapshots every row of table into its JSONL file. Rows
// are written in id order with one JSON object per line keyed by column.
func persistTableJSONL(ctx context.Context, db *sql.DB, dataDir, table string) error {
	file, columns, ok := jsonlFileFor(table)
	if !ok {
		return fmt.Errorf("no JSONL file for table %s", table)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY id", strings.Join(columns, ", "), table,
	))
	if err != nil {
		return fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scanning %s row: %w", table, err)
		}
		obj := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				obj[col] = string(b)
				continue
			}
			obj[col] = values[i]
		}
		line, err := json.Marshal(obj)
		if err != nil {
			return fmt.Errorf("marshaling %s row: %w", table, err)
		}
		records = append(records, line)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating %s: %w", table, err)
	}

	return writeJSONL(filepath.Join(dataDir, file), records)
}

// initJSONLFiles creates empty JSONL files for any table that has none yet.
func initJSONLFiles(dataDir string) error {
	for _, m := range jsonlTableMapping {
		path := filepath.Join(dataDir, m.file)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("checking %s: %w", m.file, err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return fmt.Errorf("creating %s: %w", m.file, err)
		}
	}
	return nil
}
