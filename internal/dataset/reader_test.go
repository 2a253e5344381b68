package dataset_test

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imdb-titles/internal/dataset"
	"imdb-titles/internal/shared"
	"imdb-titles/internal/title"
)

const sample = "tconst\ttitleType\tprimaryTitle\toriginalTitle\tisAdult\tstartYear\tendYear\truntimeMinutes\tgenres\n" +
	"tt0000001\tshort\tCarmencita\tCarmencita\t0\t1894\t\\N\t1\tDocumentary,Short\n" +
	"tt0000002\tshort\tLe clown et ses chiens\tLe clown et ses chiens\t0\t\\N\t\\N\t5\tAnimation,Short\n"

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func readAll(t *testing.T, r io.Reader) []title.Record {
	t.Helper()
	rd, err := dataset.NewReader(r)
	require.NoError(t, err)
	defer rd.Close()

	var out []title.Record
	for {
		row, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, title.FromRow(row))
	}
}

func TestReader_Plain(t *testing.T) {
	recs := readAll(t, strings.NewReader(sample))
	require.Len(t, recs, 2)

	assert.Equal(t, "tt0000001", recs[0].ID())
	kind, ok := recs[0].TitleType()
	assert.True(t, ok)
	assert.Equal(t, "short", kind)
	name, _ := recs[0].PrimaryTitle()
	assert.Equal(t, "Carmencita", name)
	year, ok := recs[0].StartYear()
	assert.True(t, ok)
	assert.EqualValues(t, 1894, year)

	_, ok = recs[1].StartYear()
	assert.False(t, ok, `\N start year must be absent`)
}

func TestReader_Gzip(t *testing.T) {
	recs := readAll(t, bytes.NewReader(gzipped(t, sample)))
	require.Len(t, recs, 2)
	assert.Equal(t, "tt0000002", recs[1].ID())
}

func TestReader_ColumnsLowerCased(t *testing.T) {
	rd, err := dataset.NewReader(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, []string{"tconst", "titletype", "primarytitle", "originaltitle", "isadult", "startyear", "endyear", "runtimeminutes", "genres"}, rd.Columns())
}

func TestReader_CRLFAndBlankLines(t *testing.T) {
	in := "tconst\tstartYear\r\n\r\ntt1\t2001\r\n\ntt2\tabc\r\n"
	recs := readAll(t, strings.NewReader(in))
	require.Len(t, recs, 2)

	year, ok := recs[0].StartYear()
	assert.True(t, ok)
	assert.EqualValues(t, 2001, year)
	_, ok = recs[1].StartYear()
	assert.False(t, ok)
}

func TestReader_NoTrailingNewline(t *testing.T) {
	recs := readAll(t, strings.NewReader("tconst\ntt9"))
	require.Len(t, recs, 1)
	assert.Equal(t, "tt9", recs[0].ID())
}

func TestReader_MalformedLineIsRecoverable(t *testing.T) {
	in := "tconst\ttitleType\ntt1\tmovie\nbroken\ntt2\tshort\n"
	rd, err := dataset.NewReader(strings.NewReader(in))
	require.NoError(t, err)

	_, err = rd.Next()
	require.NoError(t, err)

	_, err = rd.Next()
	require.ErrorIs(t, err, dataset.ErrMalformedLine)
	assert.True(t, shared.IsValidation(err))
	assert.Contains(t, err.Error(), "line 3")

	row, err := rd.Next()
	require.NoError(t, err)
	id, _ := row.OptString(title.ColID)
	assert.Equal(t, "tt2", id)

	_, err = rd.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_Empty(t *testing.T) {
	_, err := dataset.NewReader(strings.NewReader(""))
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestReader_CorruptGzip(t *testing.T) {
	data := gzipped(t, sample)
	data = data[:len(data)-6]

	rd, err := dataset.NewReader(bytes.NewReader(data))
	if err != nil {
		assert.True(t, shared.IsValidation(err))
		return
	}
	for {
		_, err = rd.Next()
		if err != nil {
			break
		}
	}
	require.NotErrorIs(t, err, io.EOF)
	assert.True(t, shared.IsValidation(err))
}

func TestRow_NullAndMissingColumns(t *testing.T) {
	rd, err := dataset.NewReader(strings.NewReader("tconst\ttitleType\n\\N\t\\N\n"))
	require.NoError(t, err)
	row, err := rd.Next()
	require.NoError(t, err)

	_, ok := row.OptString(title.ColID)
	assert.False(t, ok)
	_, ok = row.OptString("nosuchcolumn")
	assert.False(t, ok)
	_, ok = row.OptInt32(title.ColStartYear)
	assert.False(t, ok)

	_, err = title.ParseRow(row)
	assert.ErrorIs(t, err, title.ErrMissingID)
}

func TestRow_StartYearMatchesMappingRule(t *testing.T) {
	for _, text := range []string{"1894", "-12", "", "nineteen", "1999.0", " 1999", "2147483648"} {
		t.Run(text, func(t *testing.T) {
			rd, err := dataset.NewReader(strings.NewReader("tconst\tstartYear\ntt1\t" + text + "\n"))
			require.NoError(t, err)
			row, err := rd.Next()
			require.NoError(t, err)

			got, gotOK := row.OptInt32(title.ColStartYear)
			want, wantOK := title.ParseInt32(text)
			assert.Equal(t, wantOK, gotOK)
			assert.Equal(t, want, got)
		})
	}
}
