package etl

import (
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
)

// Frame is an in-memory table: named, ordered columns and ordered rows.
// Every row holds exactly one value per column.
type Frame struct {
	Columns []string
	Rows    [][]any
}

// nullValue marks an explicitly missing cell.
type nullValue struct{}

func (nullValue) String() string { return "NULL" }

// Null can be stored in a Frame cell to mark a missing value.
var Null any = nullValue{}

// NewFrame builds a frame and checks that every row matches the column count.
func NewFrame(columns []string, rows [][]any) (*Frame, error) {
	f := &Frame{Columns: columns, Rows: rows}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate reports structural problems: no columns, duplicate column names
// or ragged rows.
func (f *Frame) Validate() error {
	if f == nil || len(f.Columns) == 0 {
		return fmt.Errorf("%w: frame has no columns", ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(f.Columns))
	for _, c := range f.Columns {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("%w: duplicate column %q", ErrInvalidInput, c)
		}
		seen[c] = struct{}{}
	}
	for i, row := range f.Rows {
		if len(row) != len(f.Columns) {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrInvalidInput, i, len(row), len(f.Columns))
		}
	}
	return nil
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Column returns the values of column i in row order.
func (f *Frame) Column(i int) []any {
	out := make([]any, len(f.Rows))
	for r, row := range f.Rows {
		out[r] = row[i]
	}
	return out
}

// Normalized returns a copy of the frame rows with every null-like cell
// replaced by nil. The receiver is not modified.
func (f *Frame) Normalized() [][]any {
	out := make([][]any, len(f.Rows))
	for r, row := range f.Rows {
		nr := make([]any, len(row))
		for c, v := range row {
			if IsNull(v) {
				nr[c] = nil
			} else {
				nr[c] = v
			}
		}
		out[r] = nr
	}
	return out
}

// IsNull reports whether v is a null-like sentinel: nil, Null, a NaN float,
// a nil pointer/map/slice/interface, or a driver.Valuer whose value is nil.
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case nullValue:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case driver.Valuer:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return true
		}
		val, err := x.Value()
		return err == nil && val == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
