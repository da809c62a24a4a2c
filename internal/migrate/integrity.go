package migrate

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrRowCount   = errors.New("row count mismatch")
	ErrColumns    = errors.New("column mismatch")
	ErrNulls      = errors.New("null values present")
	ErrDuplicates = errors.New("duplicate rows present")
)

// CheckIntegrity compares a source CSV table with a collection snapshot. Row
// counts and column lists (in order) must match, and neither table may hold a
// null or a duplicate row. Every failed check is reported in the returned
// *multierror.Error.
func CheckIntegrity(source, stored Table) error {
	var result *multierror.Error

	if source.Len() != stored.Len() {
		result = multierror.Append(result,
			fmt.Errorf("%w: csv has %d rows, collection has %d", ErrRowCount, source.Len(), stored.Len()))
	}

	if !slices.Equal(source.Columns, stored.Columns) {
		result = multierror.Append(result,
			fmt.Errorf("%w: csv %q, collection %q", ErrColumns, source.Columns, stored.Columns))
	}

	for _, side := range []struct {
		name string
		t    Table
	}{
		{"csv", source},
		{"collection", stored},
	} {
		if n := side.t.NullCount(); n > 0 {
			result = multierror.Append(result, fmt.Errorf("%w: %s has %d", ErrNulls, side.name, n))
		}
		if n := side.t.DuplicateCount(); n > 0 {
			result = multierror.Append(result, fmt.Errorf("%w: %s has %d", ErrDuplicates, side.name, n))
		}
	}

	return result.ErrorOrNil()
}

// NullCount returns the number of null cells.
func (t Table) NullCount() int {
	var n int
	for _, row := range t.Rows {
		for _, v := range row {
			if v == nil {
				n++
			}
		}
	}
	return n
}

// DuplicateCount returns the number of rows equal to an earlier row.
func (t Table) DuplicateCount() int {
	seen := make(map[string]struct{}, len(t.Rows))
	var n int
	for _, row := range t.Rows {
		k := rowKey(row)
		if _, ok := seen[k]; ok {
			n++
			continue
		}
		seen[k] = struct{}{}
	}
	return n
}

func rowKey(row []any) string {
	var b strings.Builder
	for _, v := range row {
		fmt.Fprintf(&b, "%T\x1f%s\x1e", v, FormatValue(v))
	}
	return b.String()
}
