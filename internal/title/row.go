package title

import "math"

// RowSource is the capability a tabular data source needs to produce a
// Record: look a column up and report whether it holds a string or an
// integer. Any driver row, dataset line or test fixture can satisfy it.
type RowSource interface {
	OptString(column string) (string, bool)
	OptInt32(column string) (int32, bool)
}

// MapRow is an in-memory row keyed by column name, mainly for tests and
// line-oriented datasets. Integer columns are parsed from text best-effort.
type MapRow map[string]string

// OptString implements RowSource.
func (m MapRow) OptString(column string) (string, bool) {
	v, ok := m[column]
	return v, ok
}

// OptInt32 implements RowSource. Non-numeric text is absent.
func (m MapRow) OptInt32(column string) (int32, bool) {
	v, ok := m[column]
	if !ok {
		return 0, false
	}
	return ParseInt32(v)
}

// ValuesRow adapts a driver row collected into column → value (pgx.RowToMap,
// or database/sql scanned into []any). A column holding NULL or a value of the
// wrong type reads as absent, the same way a typed get on the driver row
// would fail.
type ValuesRow map[string]any

// OptString implements RowSource.
func (v ValuesRow) OptString(column string) (string, bool) {
	switch x := v[column].(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	default:
		return "", false
	}
}

// OptInt32 implements RowSource. Integer values outside the int32 range are
// absent; numeric text (SQLite keeps whatever was inserted) is parsed.
func (v ValuesRow) OptInt32(column string) (int32, bool) {
	switch x := v[column].(type) {
	case int32:
		return x, true
	case int16:
		return int32(x), true
	case int8:
		return int32(x), true
	case int:
		return narrow(int64(x))
	case int64:
		return narrow(x)
	case string:
		return ParseInt32(x)
	case []byte:
		return ParseInt32(string(x))
	default:
		return 0, false
	}
}

func narrow(n int64) (int32, bool) {
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, false
	}
	return int32(n), true
}

// compile-time checks
var (
	_ RowSource = MapRow(nil)
	_ RowSource = ValuesRow(nil)
)
