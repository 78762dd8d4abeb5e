package convert

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"transport_el/internal/pkg/pkgerror"
)

// Type is the inferred type of a column.
type Type int

const (
	String Type = iota
	Int64
	Double
	Boolean
)

func (t Type) String() string {
	switch t {
	case Int64:
		return "int64"
	case Double:
		return "double"
	case Boolean:
		return "bool"
	default:
		return "string"
	}
}

// tag returns the parquet-go schema tag fragment for the type.
func (t Type) tag() string {
	switch t {
	case Int64:
		return "type=INT64"
	case Double:
		return "type=DOUBLE"
	case Boolean:
		return "type=BOOLEAN"
	default:
		return "type=BYTE_ARRAY, convertedtype=UTF8"
	}
}

type Column struct {
	Name string
	Type Type
}

// Schema is the ordered column list of one source, frozen after the first
// batch.
type Schema []Column

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Metadata renders the schema as parquet-go CSV writer metadata. Every
// column is OPTIONAL so null fields survive the round trip.
func (s Schema) Metadata() []string {
	md := make([]string, len(s))
	for i, c := range s {
		md[i] = fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", c.Name, c.Type.tag())
	}
	return md
}

// nullValues are read as nulls, following the defaults of common CSV readers.
var nullValues = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"n/a":  true,
	"NaN":  true,
	"nan":  true,
	"NULL": true,
	"null": true,
	"None": true,
	"#N/A": true,
	"<NA>": true,
}

func isNull(v string) bool {
	return nullValues[strings.TrimSpace(v)]
}

var boolValues = map[string]bool{
	"true":  true,
	"True":  true,
	"TRUE":  true,
	"false": false,
	"False": false,
	"FALSE": false,
}

// InferSchema derives the schema from the header and the rows of the first
// batch. A column is int64 when every non-null value parses as an integer,
// double when every value parses as a float, bool when every value is a
// boolean literal, and string otherwise. A column with no non-null value is
// string.
func InferSchema(header []string, rows [][]string) Schema {
	names := normalizeHeader(header)
	schema := make(Schema, len(names))

	for i, name := range names {
		schema[i] = Column{Name: name, Type: inferColumn(rows, i)}
	}
	return schema
}

func inferColumn(rows [][]string, i int) Type {
	isInt, isFloat, isBool := true, true, true
	seen := false

	for _, row := range rows {
		if i >= len(row) || isNull(row[i]) {
			continue
		}
		seen = true
		v := strings.TrimSpace(row[i])

		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			if _, ok := boolValues[v]; !ok {
				isBool = false
			}
		}
		if !isInt && !isFloat && !isBool {
			return String
		}
	}

	switch {
	case !seen:
		return String
	case isInt:
		return Int64
	case isFloat:
		return Double
	case isBool:
		return Boolean
	default:
		return String
	}
}

// normalizeHeader makes header names usable as Parquet column names: blank
// names become column_<n>, separators used by the schema tag syntax are
// replaced, and duplicates get a numeric suffix.
func normalizeHeader(header []string) []string {
	replacer := strings.NewReplacer(",", "_", "=", "_", "\t", "_")
	seen := make(map[string]int, len(header))
	names := make([]string, len(header))

	for i, h := range header {
		name := replacer.Replace(strings.TrimSpace(h))
		if name == "" {
			name = fmt.Sprintf("column_%d", i)
		}
		base := name
		for seen[name] > 0 {
			name = fmt.Sprintf("%s_%d", base, seen[base])
			seen[base]++
		}
		seen[name]++
		names[i] = name
	}
	return names
}

// MismatchError reports a value that does not coerce to the frozen schema.
type MismatchError struct {
	Batch  int
	Row    int // row number in the source, 1-based, header excluded
	Column string
	Value  string
	Type   Type
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("batch %d row %d: column %q: value %q does not fit frozen type %s",
		e.Batch, e.Row, e.Column, e.Value, e.Type)
}

// Coerce converts one raw row into typed values under schema. Short rows are
// padded with nulls; a value that does not fit its column yields a
// *MismatchError.
func (s Schema) Coerce(row []string) ([]interface{}, error) {
	if len(row) > len(s) {
		return nil, pkgerror.NewMalformedInput(
			fmt.Errorf("row has %d fields, schema has %d columns", len(row), len(s)))
	}

	out := make([]interface{}, len(s))
	for i, col := range s {
		if i >= len(row) || isNull(row[i]) {
			continue
		}
		v, ok := coerceValue(strings.TrimSpace(row[i]), col.Type, row[i])
		if !ok {
			return nil, &MismatchError{Column: col.Name, Value: row[i], Type: col.Type}
		}
		out[i] = v
	}
	return out, nil
}

func coerceValue(v string, t Type, raw string) (interface{}, bool) {
	switch t {
	case Int64:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n, true
		}
		// Integral floats such as "3.0" are accepted for integer columns.
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
			return nil, false
		}
		return int64(f), true
	case Double:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, false
		}
		return f, true
	case Boolean:
		b, ok := boolValues[v]
		return b, ok
	default:
		return raw, true
	}
}
