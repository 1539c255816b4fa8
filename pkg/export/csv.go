// Package export writes record sets to delimited text files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/opencivic/crimefetch/pkg/soda"
)

// ErrNoRecords is returned when there is nothing to export; no file is
// created in that case.
var ErrNoRecords = errors.New("no records to export")

// Options configures CSV writing behavior.
type Options struct {
	// BOM prefixes the file with a UTF-8 byte order mark so spreadsheet
	// tools recognize the encoding.
	BOM bool
}

// Columns computes the header for a record set: the union of all keys
// across all records, sorted lexicographically for determinism. Records
// may have heterogeneous key sets (sparse schema).
func Columns(records soda.RecordSet) []string {
	keys := make(map[string]struct{})
	for _, record := range records {
		for key := range record {
			keys[key] = struct{}{}
		}
	}

	columns := make([]string, 0, len(keys))
	for key := range keys {
		columns = append(columns, key)
	}
	sort.Strings(columns)
	return columns
}

// WriteCSV writes the records to path with default options.
func WriteCSV(records soda.RecordSet, path string) error {
	return WriteCSVWith(records, path, Options{})
}

// WriteCSVWith writes a header row of the sorted key union followed by one
// row per record. A record missing a column yields an empty field in that
// position. Failures are logged and returned; a partially written file may
// remain on disk.
func WriteCSVWith(records soda.RecordSet, path string, opts Options) error {
	if len(records) == 0 {
		log.Warn().Str("path", path).Msg("No data to save")
		return ErrNoRecords
	}

	columns := Columns(records)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to create output directory")
			return fmt.Errorf("create directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to create output file")
		return fmt.Errorf("create %s: %w", path, err)
	}

	if opts.BOM {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			file.Close()
			return fmt.Errorf("write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)

	if err := writer.Write(columns); err != nil {
		file.Close()
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(columns))
	for _, record := range records {
		for i, column := range columns {
			row[i] = formatField(record[column])
		}
		if err := writer.Write(row); err != nil {
			file.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		log.Error().Err(err).Str("path", path).Msg("Failed to write CSV")
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := file.Close(); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to close CSV file")
		return fmt.Errorf("close %s: %w", path, err)
	}

	log.Info().
		Int("records", len(records)).
		Int("columns", len(columns)).
		Str("path", path).
		Msg("Saved records to CSV")

	return nil
}

// formatField renders a scalar field value. Missing keys and JSON nulls
// both become empty fields.
func formatField(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
