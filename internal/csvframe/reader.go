// Package csvframe reads CSV files into etl.Frame values.
//
// Missing values follow the pandas read_csv defaults ("", "NA", "NaN",
// "NULL", "None", ...) and become etl.Null. Each column is converted to
// the narrowest type every non-missing cell parses as: int64, float64,
// bool, time.Time, otherwise string.
package csvframe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/holos-company/etldrivers/pkg/etl"
)

// DefaultNATokens are the cell values treated as missing.
var DefaultNATokens = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

type options struct {
	comma    rune
	na       map[string]struct{}
	infer    bool
	location *time.Location
}

// Option customises Read.
type Option func(*options)

// WithDelimiter sets the field separator. The default is ','.
func WithDelimiter(r rune) Option {
	return func(o *options) { o.comma = r }
}

// WithNATokens replaces the missing-value tokens.
func WithNATokens(tokens ...string) Option {
	return func(o *options) {
		o.na = make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			o.na[t] = struct{}{}
		}
	}
}

// WithoutInference keeps every non-missing cell as a string.
func WithoutInference() Option {
	return func(o *options) { o.infer = false }
}

// WithLocation sets the zone for timestamps without an offset. The default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.location = loc }
}

// ReadFile reads the CSV file at path.
func ReadFile(path string, opts ...Option) (*etl.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", etl.ErrInvalidInput, err)
	}
	defer f.Close()
	return Read(f, opts...)
}

// Read parses r. The first record is the header.
func Read(r io.Reader, opts ...Option) (*etl.Frame, error) {
	o := options{comma: ',', infer: true, location: time.UTC}
	WithNATokens(DefaultNATokens...)(&o)
	for _, opt := range opts {
		opt(&o)
	}

	cr := csv.NewReader(r)
	cr.Comma = o.comma

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: csv has no header", etl.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read csv header: %w", etl.ErrInvalidInput, err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var raw [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read csv: %w", etl.ErrInvalidInput, err)
		}
		raw = append(raw, rec)
	}

	rows := make([][]any, len(raw))
	for i := range rows {
		rows[i] = make([]any, len(columns))
	}
	for c := range columns {
		convert := o.columnConverter(raw, c)
		for r, rec := range raw {
			cell := rec[c]
			if _, missing := o.na[cell]; missing {
				rows[r][c] = etl.Null
				continue
			}
			rows[r][c] = convert(cell)
		}
	}

	return etl.NewFrame(columns, rows)
}

// columnConverter picks the narrowest parser accepted by every non-missing
// cell of column c.
func (o *options) columnConverter(raw [][]string, c int) func(string) any {
	asString := func(s string) any { return s }
	if !o.infer {
		return asString
	}

	candidates := []func(string) (any, bool){
		parseInt,
		parseFloat,
		parseBool,
		o.parseTime,
	}
	alive := make([]bool, len(candidates))
	for i := range alive {
		alive[i] = true
	}

	seen := false
	for _, rec := range raw {
		cell := rec[c]
		if _, missing := o.na[cell]; missing {
			continue
		}
		seen = true
		for i, parse := range candidates {
			if alive[i] {
				_, alive[i] = parse(cell)
			}
		}
	}
	if !seen {
		return asString
	}

	for i, parse := range candidates {
		if alive[i] {
			return func(s string) any {
				v, _ := parse(s)
				return v
			}
		}
	}
	return asString
}

func parseInt(s string) (any, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return v, err == nil
}

func parseFloat(s string) (any, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v, err == nil
}

func parseBool(s string) (any, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return nil, false
}

func (o *options) parseTime(s string) (any, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, o.location); err == nil {
			return t, true
		}
	}
	return nil, false
}
