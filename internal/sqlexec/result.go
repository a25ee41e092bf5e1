// Package sqlexec runs SQL against a benchmark database and normalizes the
// rows into a serializable column-to-values mapping.
package sqlexec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// ErrorKey is the single key of an error mapping.
const ErrorKey = "error"

const unknownError = "unknown error"

// ResultSet column name to column values, or a single error entry.
// Values are always nil, bool, int64, float64 or string.
type ResultSet struct {
	Columns []string
	Values  map[string][]interface{}
	Error   string
}

// ErrorResult builds the single-key error mapping. An empty message becomes
// "unknown error" so the result still reads as a failure.
func ErrorResult(msg string) ResultSet {
	if msg == "" {
		msg = unknownError
	}
	return ResultSet{Error: msg}
}

// IsError reports whether the query failed.
func (r ResultSet) IsError() bool {
	return r.Error != ""
}

// RowCount number of rows (0 for an error mapping).
func (r ResultSet) RowCount() int {
	if r.IsError() || len(r.Columns) == 0 {
		return 0
	}
	return len(r.Values[r.Columns[0]])
}

// Map returns the plain mapping form.
func (r ResultSet) Map() map[string]interface{} {
	if r.IsError() {
		return map[string]interface{}{ErrorKey: r.Error}
	}
	out := make(map[string]interface{}, len(r.Columns))
	for _, col := range r.Columns {
		out[col] = r.Values[col]
	}
	return out
}

// String renders the mapping as JSON with columns in result order.
func (r ResultSet) String() string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if r.IsError() {
		writeEntry(&buf, ErrorKey, r.Error)
	} else {
		for i, col := range r.Columns {
			if i > 0 {
				buf.WriteString(", ")
			}
			writeEntry(&buf, col, r.Values[col])
		}
	}
	buf.WriteByte('}')
	return buf.String()
}

func writeEntry(buf *bytes.Buffer, key string, value interface{}) {
	k, _ := json.Marshal(key)
	buf.Write(k)
	buf.WriteString(": ")
	v, err := json.Marshal(value)
	if err != nil {
		v, _ = json.Marshal(fmt.Sprint(value))
	}
	buf.Write(v)
}

// fromRows pivots row-major driver output into columns. Duplicate column
// names collapse onto the last occurrence, as a mapping keyed by name would.
func fromRows(columns []string, rows [][]interface{}) ResultSet {
	rs := ResultSet{Values: make(map[string][]interface{}, len(columns))}
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		if _, ok := index[col]; !ok {
			rs.Columns = append(rs.Columns, col)
		}
		index[col] = i
	}
	for _, col := range rs.Columns {
		values := make([]interface{}, 0, len(rows))
		for _, row := range rows {
			values = append(values, normalizeValue(row[index[col]]))
		}
		rs.Values[col] = values
	}
	return rs
}

// normalizeValue keeps primitives and coerces everything else to text.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil, bool, int64, string:
		return val
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case float32:
		return normalizeValue(float64(val))
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Sprint(val)
		}
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(val)
	}
}
