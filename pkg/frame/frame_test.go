package frame

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/spotify-dataset/pkg/errors"
)

const tracksCSV = `track,artist,popularity,energy,explicit
Song A,Artist 1,71,0.5,False
Song B,,NA,0.25,True
Song C,Artist 3,12,,False
`

func TestReadCSVInfersKinds(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(tracksCSV), DefaultCSVOptions())
	require.NoError(t, err)

	rows, cols := f.Shape()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 5, cols)
	assert.Equal(t, []string{"track", "artist", "popularity", "energy", "explicit"}, f.ColumnNames())

	tests := []struct {
		column string
		kind   Kind
		nulls  int
	}{
		{"track", KindString, 0},
		{"artist", KindString, 1},
		{"popularity", KindInt, 1},
		{"energy", KindFloat, 1},
		{"explicit", KindBool, 0},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			col, ok := f.Column(tt.column)
			require.True(t, ok)
			assert.Equal(t, tt.kind, col.Kind)
			assert.Equal(t, tt.nulls, col.NullCount())
		})
	}

	pop, _ := f.Column("popularity")
	assert.Equal(t, []interface{}{int64(71), nil, int64(12)}, pop.Values)
	assert.Equal(t, []float64{71, 12}, pop.Floats())
}

func TestReadCSVPadsShortRowsAndRejectsLongRows(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("a,b\n1\n2,3\n"), DefaultCSVOptions())
	require.NoError(t, err)
	b, _ := f.Column("b")
	assert.Equal(t, []interface{}{nil, int64(3)}, b.Values)

	_, err = ReadCSV(strings.NewReader("a,b\n1,2,3\n"), DefaultCSVOptions())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestReadCSVAcceptsBareQuotes(t *testing.T) {
	const input = "artist,song\nAdele,He said \"hi\"\nBjörk,Army of Me\n"

	f, err := ReadCSV(strings.NewReader(input), DefaultCSVOptions())
	require.NoError(t, err)
	song, _ := f.Column("song")
	assert.Equal(t, []interface{}{`He said "hi"`, "Army of Me"}, song.Values)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, f))
	again, err := ReadCSV(&buf, DefaultCSVOptions())
	require.NoError(t, err)
	assert.True(t, f.Equal(again))

	path := filepath.Join(t.TempDir(), "quotes.csv")
	require.NoError(t, os.WriteFile(path, []byte(input), 0o600))
	fromFile, err := ReadCSVFile(path)
	require.NoError(t, err)
	assert.True(t, f.Equal(fromFile))

	strict := DefaultCSVOptions()
	strict.LazyQuotes = false
	_, err = ReadCSV(strings.NewReader(input), strict)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestReadCSVEmptyInput(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), DefaultCSVOptions())
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestReadCSVHeaderOnly(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("a,b\n"), DefaultCSVOptions())
	require.NoError(t, err)
	rows, cols := f.Shape()
	assert.Equal(t, 0, rows)
	assert.Equal(t, 2, cols)
}

func TestDedupeHeaders(t *testing.T) {
	assert.Equal(t, []string{"a", "a.1", "b", "a.2"}, dedupeHeaders([]string{"a", "a", "b", "a"}))
	assert.Equal(t, []string{"a", "a.1", "a.2"}, dedupeHeaders([]string{"a", "a.1", "a"}))
}

func TestReadCSVStripsBOM(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("\ufeffid\n1\n"), DefaultCSVOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, f.ColumnNames())
}

func TestCSVRoundTrip(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(tracksCSV), DefaultCSVOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, f))

	again, err := ReadCSV(&buf, DefaultCSVOptions())
	require.NoError(t, err)
	assert.True(t, f.Equal(again))
}

func TestWriteCSVKeepsIntegralFloats(t *testing.T) {
	col, err := NewColumn("x", KindFloat, []interface{}{1.0, 2.5, nil})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, MustNew(col)))
	assert.Equal(t, "x\n1.0\n2.5\n\"\"\n", buf.String())

	again, err := ReadCSV(&buf, DefaultCSVOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, again.NumRows())
}

func TestReadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.csv")
	require.NoError(t, os.WriteFile(path, []byte(tracksCSV), 0o600))

	f, err := ReadCSVFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, f.NumRows())

	_, err = ReadCSVFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestNewValidates(t *testing.T) {
	a, _ := NewColumn("a", KindInt, []interface{}{int64(1)})
	b, _ := NewColumn("b", KindInt, []interface{}{int64(1), int64(2)})

	_, err := New(a, b)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = New(a, a)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = NewColumn("c", KindInt, []interface{}{"1"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestHeadDoesNotAlias(t *testing.T) {
	col, _ := NewColumn("n", KindInt, []interface{}{int64(1), int64(2), int64(3)})
	f := MustNew(col)

	head := f.Head(2)
	assert.Equal(t, 2, head.NumRows())
	assert.Equal(t, 3, f.Head(10).NumRows())

	hc, _ := head.Column("n")
	hc.Values[0] = int64(99)
	assert.Equal(t, int64(1), f.Row(0)[0])
}
