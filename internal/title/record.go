package title

import (
	"fmt"
	"strconv"
	"strings"

	"imdb-titles/internal/shared"
)

// ErrMissingID is returned (or panicked with) when a title has no identifier.
var ErrMissingID = fmt.Errorf("%w: title identifier is missing", shared.ErrValidation)

// Keys of the in-memory mapping representation.
const (
	KeyID           = "id"
	KeyTitleType    = "title_type"
	KeyPrimaryTitle = "primary_title"
	KeyStartYear    = "start_year"
)

// Columns of the title_basics row representation. They follow the IMDb
// dataset header lower-cased, which is also how Postgres folds the unquoted
// column names.
const (
	ColID           = "tconst"
	ColTitleType    = "titletype"
	ColPrimaryTitle = "primarytitle"
	ColStartYear    = "startyear"
)

// Record is one title_basics entry. The identifier is always set; every other
// attribute may be absent, which the comma-ok accessors report explicitly.
//
// A Record is a plain value owned by whoever built it. It is not safe for
// concurrent mutation.
type Record struct {
	id           string
	titleType    *string
	primaryTitle *string
	startYear    *int32
}

// FromMapping builds a Record from field name → text pairs.
//
// A missing "id" key is a broken precondition and panics with an error
// wrapping ErrMissingID. Use ParseMapping for input that is not trusted.
func FromMapping(fields map[string]string) Record {
	r, err := ParseMapping(fields)
	if err != nil {
		panic(err)
	}
	return r
}

// ParseMapping is FromMapping for untrusted input: a missing "id" key is
// reported as ErrMissingID instead of a panic.
func ParseMapping(fields map[string]string) (Record, error) {
	id, ok := fields[KeyID]
	if !ok {
		return Record{}, fmt.Errorf("mapping key %q: %w", KeyID, ErrMissingID)
	}

	r := Record{id: id}
	if v, ok := fields[KeyTitleType]; ok {
		r.titleType = &v
	}
	if v, ok := fields[KeyPrimaryTitle]; ok {
		r.primaryTitle = &v
	}
	if v, ok := fields[KeyStartYear]; ok {
		if y, ok := ParseInt32(v); ok {
			r.startYear = &y
		}
	}
	return r, nil
}

// FromRow builds a Record from a row source using the fixed column names.
//
// A row without a tconst value panics with an error wrapping ErrMissingID.
func FromRow(row RowSource) Record {
	r, err := ParseRow(row)
	if err != nil {
		panic(err)
	}
	return r
}

// ParseRow is FromRow reporting a missing tconst as ErrMissingID.
func ParseRow(row RowSource) (Record, error) {
	id, ok := row.OptString(ColID)
	if !ok {
		return Record{}, fmt.Errorf("row column %q: %w", ColID, ErrMissingID)
	}

	r := Record{id: id}
	if v, ok := row.OptString(ColTitleType); ok {
		r.titleType = &v
	}
	if v, ok := row.OptString(ColPrimaryTitle); ok {
		r.primaryTitle = &v
	}
	if v, ok := row.OptInt32(ColStartYear); ok {
		r.startYear = &v
	}
	return r, nil
}

// ID returns the title identifier (tconst).
func (r Record) ID() string { return r.id }

// TitleType returns the category, e.g. "movie" or "short".
func (r Record) TitleType() (string, bool) { return deref(r.titleType) }

// SetTitleType makes the category present with the given value.
func (r *Record) SetTitleType(v string) { r.titleType = &v }

// PrimaryTitle returns the display name.
func (r Record) PrimaryTitle() (string, bool) { return deref(r.primaryTitle) }

// SetPrimaryTitle makes the display name present with the given value.
func (r *Record) SetPrimaryTitle(v string) { r.primaryTitle = &v }

// StartYear returns the release year.
func (r Record) StartYear() (int32, bool) { return deref(r.startYear) }

// SetStartYear makes the release year present with the given value. There is
// no way back to absent through this setter.
func (r *Record) SetStartYear(year int32) { r.startYear = &year }

// Columns lists the row columns in the order Values returns them.
func Columns() []string {
	return []string{ColID, ColTitleType, ColPrimaryTitle, ColStartYear}
}

// Values returns the row values in Columns order. Absent attributes are nil so
// that drivers write SQL NULL.
func (r Record) Values() []any {
	return []any{r.id, nullable(r.titleType), nullable(r.primaryTitle), nullable(r.startYear)}
}

// String implements fmt.Stringer for log lines.
func (r Record) String() string {
	var b strings.Builder
	b.WriteString("Record{id=")
	b.WriteString(strconv.Quote(r.id))
	if v, ok := r.TitleType(); ok {
		b.WriteString(" title_type=" + strconv.Quote(v))
	}
	if v, ok := r.PrimaryTitle(); ok {
		b.WriteString(" primary_title=" + strconv.Quote(v))
	}
	if v, ok := r.StartYear(); ok {
		b.WriteString(" start_year=" + strconv.FormatInt(int64(v), 10))
	}
	b.WriteString("}")
	return b.String()
}

func deref[T any](p *T) (T, bool) {
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// parseInt32 is the best-effort year parser: anything that is not a base-10
// int32 is absent.
func ParseInt32(s string) (int32, bool) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(n), true
}
