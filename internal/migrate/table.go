package migrate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrEmptyTable is returned by ReadTable when the input has no header row.
var ErrEmptyTable = errors.New("migrate: csv has no header row")

// Table is a rectangular set of typed rows. A nil cell is a null.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// ReadTable parses CSV with a header row. Each column gets a single type: int64
// when every non-empty cell is an integer, else float64 when every one is a
// number, else bool when every one is True or False, else string. Empty cells
// are nulls. Repeated header names are suffixed ".1", ".2" and so on.
func ReadTable(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("migrate: read csv: %w", err)
	}
	if len(records) == 0 {
		return Table{}, ErrEmptyTable
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := Table{
		Columns: dedupeColumns(header),
		Rows:    make([][]any, len(records)-1),
	}

	for c := range t.Columns {
		kind := inferKind(records[1:], c)
		for i, rec := range records[1:] {
			if t.Rows[i] == nil {
				t.Rows[i] = make([]any, len(t.Columns))
			}
			t.Rows[i][c] = parseCell(rec[c], kind)
		}
	}

	return t, nil
}

func dedupeColumns(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, name := range header {
		n, dup := seen[name]
		seen[name] = n + 1
		if dup {
			name = name + "." + strconv.Itoa(n)
		}
		out[i] = name
	}
	return out
}

type kind int

const (
	kindNull kind = iota
	kindInt
	kindFloat
	kindBool
	kindString
)

func inferKind(rows [][]string, col int) kind {
	k := kindNull
	for _, rec := range rows {
		cell := rec[col]
		if cell == "" {
			continue
		}
		k = widen(k, cellKind(cell))
		if k == kindString {
			return k
		}
	}
	return k
}

func cellKind(cell string) kind {
	if _, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return kindInt
	}
	if _, err := strconv.ParseFloat(cell, 64); err == nil {
		return kindFloat
	}
	if _, ok := parseBool(cell); ok {
		return kindBool
	}
	return kindString
}

// widen merges two cell kinds: ints widen to floats, anything else mixed
// becomes a string column.
func widen(a, b kind) kind {
	switch {
	case a == kindNull:
		return b
	case a == b:
		return a
	case (a == kindInt && b == kindFloat) || (a == kindFloat && b == kindInt):
		return kindFloat
	default:
		return kindString
	}
}

func parseCell(cell string, k kind) any {
	if cell == "" {
		return nil
	}
	switch k {
	case kindInt:
		n, _ := strconv.ParseInt(cell, 10, 64)
		return n
	case kindFloat:
		f, _ := strconv.ParseFloat(cell, 64)
		if math.IsNaN(f) {
			return nil
		}
		return f
	case kindBool:
		b, _ := parseBool(cell)
		return b
	default:
		return cell
	}
}

func parseBool(s string) (bool, bool) {
	switch s {
	case "True", "TRUE", "true":
		return true, true
	case "False", "FALSE", "false":
		return false, true
	}
	return false, false
}

// Documents returns one document per row, keyed by column name in column
// order. Null cells are stored as BSON null.
func (t Table) Documents() []bson.D {
	docs := make([]bson.D, len(t.Rows))
	for i, row := range t.Rows {
		doc := make(bson.D, len(t.Columns))
		for c, name := range t.Columns {
			doc[c] = bson.E{Key: name, Value: row[c]}
		}
		docs[i] = doc
	}
	return docs
}

// TableFromDocuments builds a table from stored documents. _id is dropped,
// columns are the union of keys in first-seen order, and a key missing from a
// document is a null.
func TableFromDocuments(docs []bson.D) Table {
	var t Table
	index := make(map[string]int)

	for _, doc := range docs {
		for _, e := range doc {
			if e.Key == "_id" {
				continue
			}
			if _, ok := index[e.Key]; !ok {
				index[e.Key] = len(t.Columns)
				t.Columns = append(t.Columns, e.Key)
			}
		}
	}

	t.Rows = make([][]any, len(docs))
	for i, doc := range docs {
		row := make([]any, len(t.Columns))
		for _, e := range doc {
			if c, ok := index[e.Key]; ok {
				row[c] = normalize(e.Value)
			}
		}
		t.Rows[i] = row
	}
	return t
}

// normalize maps driver types onto the ones ReadTable produces.
func normalize(v any) any {
	switch x := v.(type) {
	case int32:
		return int64(x)
	case primitive.Null, primitive.Undefined:
		return nil
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return x
	default:
		return v
	}
}

// WriteCSV renders the table with a header row.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("migrate: write csv header: %w", err)
	}

	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for c, v := range row {
			record[c] = FormatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("migrate: write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// FormatValue renders a cell the way ReadTable reads it back: nulls are empty,
// bools are True/False and floats always carry a fractional part.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return formatFloat(x)
	case primitive.DateTime:
		return x.Time().UTC().Format(time.RFC3339)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case primitive.ObjectID:
		return x.Hex()
	default:
		return fmt.Sprint(x)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ""
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
