// Package cropinfo loads the crop reference table served by the crop details endpoint.
//
// The table is read once at startup. Every column of the CSV is kept, so adding a column
// to the file adds it to the API response without code changes.
package cropinfo

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"strconv"
	"strings"
)

// CropColumn is the header that holds the crop name.
const CropColumn = "crop"

// Record is one row of the table, keyed by column name. Empty cells are nil.
type Record map[string]any

// Table maps normalized crop names to their rows. It is read-only after Load.
type Table struct {
	columns []string
	rows    map[string]Record
}

// Normalize is the single normalization used for both table keys and lookups.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// LoadFile reads a crop table from disk.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open crop info %s: %w", path, err)
	}
	defer f.Close()

	t, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("crop info %s: %w", path, err)
	}
	return t, nil
}

// Load parses a crop table. Rows with the wrong number of fields are skipped, and when
// two rows normalize to the same crop the first one is kept.
func Load(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	cropIdx := indexOf(header, CropColumn)
	if cropIdx < 0 {
		return nil, fmt.Errorf("missing %q column", CropColumn)
	}
	header[cropIdx] = CropColumn

	var raw [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(rec) != len(header) {
			continue
		}
		raw = append(raw, rec)
	}

	kinds := make([]columnKind, len(header))
	for c := range header {
		kinds[c] = inferKind(raw, c)
	}
	kinds[cropIdx] = kindString

	t := &Table{columns: header, rows: make(map[string]Record, len(raw))}
	for _, rec := range raw {
		key := Normalize(rec[cropIdx])
		if key == "" {
			continue
		}
		if _, seen := t.rows[key]; seen {
			continue
		}
		row := make(Record, len(header))
		for c, col := range header {
			row[col] = kinds[c].convert(rec[c])
		}
		row[CropColumn] = key
		t.rows[key] = row
	}
	return t, nil
}

// Lookup returns a copy of the row for name, normalizing it first.
func (t *Table) Lookup(name string) (Record, bool) {
	row, ok := t.rows[Normalize(name)]
	if !ok {
		return nil, false
	}
	return maps.Clone(row), true
}

// Len returns the number of distinct crops.
func (t *Table) Len() int { return len(t.rows) }

// Columns returns the header in file order.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

type columnKind int

const (
	kindInt columnKind = iota
	kindFloat
	kindString
)

func inferKind(rows [][]string, col int) columnKind {
	kind := kindInt
	for _, rec := range rows {
		v := strings.TrimSpace(rec[col])
		if v == "" {
			continue
		}
		if kind == kindInt {
			if _, err := strconv.ParseInt(v, 10, 64); err == nil {
				continue
			}
			kind = kindFloat
		}
		// NaN and Inf parse but cannot be written as JSON numbers.
		if f, err := strconv.ParseFloat(v, 64); err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return kindString
		}
	}
	return kind
}

func (k columnKind) convert(cell string) any {
	v := strings.TrimSpace(cell)
	if v == "" {
		return nil
	}
	switch k {
	case kindInt:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case kindFloat:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return v
	}
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}
