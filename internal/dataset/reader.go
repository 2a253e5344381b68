package dataset

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"strings"

	"imdb-titles/internal/shared"
	"imdb-titles/internal/title"
)

// Null is the dataset's marker for a missing value.
const Null = `\N`

var gzipMagic = []byte{0x1f, 0x8b}

// ErrMalformedLine is returned by Reader.Next for a line whose field count
// does not match the header. The reader stays usable.
var ErrMalformedLine = fmt.Errorf("%w: malformed dataset line", shared.ErrValidation)

// Row is one dataset line. It implements title.RowSource.
type Row struct {
	index  map[string]int
	fields []string
}

// OptString returns the field under column; \N and unknown columns are absent.
func (r Row) OptString(column string) (string, bool) {
	i, ok := r.index[column]
	if !ok || r.fields[i] == Null {
		return "", false
	}
	return r.fields[i], true
}

// OptInt32 parses the field under column; non-numeric text is absent.
func (r Row) OptInt32(column string) (int32, bool) {
	s, ok := r.OptString(column)
	if !ok {
		return 0, false
	}
	return title.ParseInt32(s)
}

// Reader iterates over the lines of a title.basics dump.
type Reader struct {
	br      *bufio.Reader
	gz      *gzip.Reader
	index   map[string]int
	columns []string
	line    int
}

// NewReader reads the header line of r, decompressing gzip input.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(r, 64<<10)

	rd := &Reader{br: br}
	magic, err := br.Peek(len(gzipMagic))
	if err == nil && bytes.Equal(magic, gzipMagic) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, shared.MarkKind(fmt.Errorf("open gzip stream: %w", err), shared.KindValidation)
		}
		rd.gz = gz
		rd.br = bufio.NewReaderSize(gz, 64<<10)
	}

	header, err := rd.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, shared.MarkKind(errors.New("dataset is empty"), shared.KindValidation)
		}
		return nil, err
	}

	rd.columns = strings.Split(header, "\t")
	rd.index = make(map[string]int, len(rd.columns))
	for i, c := range rd.columns {
		rd.columns[i] = strings.ToLower(strings.TrimSpace(c))
		rd.index[rd.columns[i]] = i
	}
	return rd, nil
}

// Columns returns the lower-cased header names.
func (r *Reader) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Line returns the number of the line read last, the header being line 1.
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next row, io.EOF at the end of input, or an error wrapping
// ErrMalformedLine for a bad line. Blank lines are skipped.
func (r *Reader) Next() (Row, error) {
	for {
		line, err := r.readLine()
		if err != nil {
			return Row{}, err
		}
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != len(r.columns) {
			return Row{}, fmt.Errorf("line %d: %d fields, want %d: %w", r.line, len(fields), len(r.columns), ErrMalformedLine)
		}
		return Row{index: r.index, fields: fields}, nil
	}
}

// Close releases the gzip stream, if any. The underlying reader is not closed.
func (r *Reader) Close() error {
	if r.gz != nil {
		return r.gz.Close()
	}
	return nil
}

func (r *Reader) readLine() (string, error) {
	s, err := r.br.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			kind := shared.KindDependencyFailure
			if errors.Is(err, gzip.ErrChecksum) || errors.Is(err, gzip.ErrHeader) || errors.Is(err, io.ErrUnexpectedEOF) {
				kind = shared.KindValidation
			}
			return "", shared.MarkKind(fmt.Errorf("read line %d: %w", r.line+1, err), kind)
		}
		if s == "" {
			return "", io.EOF
		}
	}
	r.line++
	return strings.TrimRight(s, "\r\n"), nil
}
