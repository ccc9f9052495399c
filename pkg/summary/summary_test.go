package summary

import (
	"bytes"
	"math"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/spotify-dataset/pkg/frame"
	"github.com/ajitpratap0/spotify-dataset/pkg/testutil"
)

func load(t *testing.T, csv string) *frame.Frame {
	t.Helper()
	f, err := frame.ReadCSV(strings.NewReader(csv), frame.DefaultCSVOptions())
	require.NoError(t, err)
	return f
}

func TestSummarizeSampleTracks(t *testing.T) {
	f := load(t, testutil.SampleCSV)
	s := Summarize(f)

	assert.Equal(t, [2]int{6, 5}, s.Shape)
	assert.Equal(t, []string{"artist", "song", "popularity", "energy", "explicit"}, s.Columns)
	assert.Len(t, s.Columns, s.Shape[1])
	assert.Equal(t, 5, s.Head.NumRows())

	assert.Equal(t, []ColumnType{
		{Name: "artist", Kind: frame.KindString},
		{Name: "song", Kind: frame.KindString},
		{Name: "popularity", Kind: frame.KindInt},
		{Name: "energy", Kind: frame.KindFloat},
		{Name: "explicit", Kind: frame.KindBool},
	}, s.DTypes)

	assert.Equal(t, []MissingCount{
		{Name: "artist", Count: 1},
		{Name: "song", Count: 0},
		{Name: "popularity", Count: 1},
		{Name: "energy", Count: 1},
		{Name: "explicit", Count: 1},
	}, s.Missing)
	assert.Equal(t, 4, s.TotalMissing())

	require.Len(t, s.Stats, 2)
	assert.Equal(t, "popularity", s.Stats[0].Column)
	assert.Equal(t, "energy", s.Stats[1].Column)

	pop := s.Stats[0]
	assert.Equal(t, 5, pop.Count)
	assert.InDelta(t, 64.4, float64(pop.Mean), 1e-9)
	assert.InDelta(t, 12.0, float64(pop.Min), 1e-9)
	assert.InDelta(t, 61.0, float64(pop.P25), 1e-9)
	assert.InDelta(t, 77.0, float64(pop.P50), 1e-9)
	assert.InDelta(t, 82.0, float64(pop.P75), 1e-9)
	assert.InDelta(t, 90.0, float64(pop.Max), 1e-9)
	assert.InDelta(t, 31.1496, float64(pop.Std), 1e-4)
}

func TestSummarizeDoesNotModifyInput(t *testing.T) {
	f := load(t, testutil.SampleCSV)
	before := load(t, testutil.SampleCSV)
	_ = Summarize(f)
	assert.True(t, f.Equal(before))
}

func TestDescribeEdgeCases(t *testing.T) {
	empty := describe("x", nil)
	assert.Equal(t, 0, empty.Count)
	assert.True(t, math.IsNaN(float64(empty.Mean)))
	assert.True(t, math.IsNaN(float64(empty.Max)))

	single := describe("x", []float64{4})
	assert.Equal(t, 1, single.Count)
	assert.Equal(t, Float(4), single.Mean)
	assert.True(t, math.IsNaN(float64(single.Std)))
	assert.Equal(t, Float(4), single.P25)
	assert.Equal(t, Float(4), single.Max)
}

func TestQuantileInterpolates(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.75, Quantile(sorted, 0.25), 1e-12)
	assert.InDelta(t, 2.5, Quantile(sorted, 0.5), 1e-12)
	assert.InDelta(t, 3.25, Quantile(sorted, 0.75), 1e-12)
	assert.Equal(t, 1.0, Quantile(sorted, 0))
	assert.Equal(t, 4.0, Quantile(sorted, 1))
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestNoNumericColumns(t *testing.T) {
	s := Summarize(load(t, "name,mood\na,happy\nb,sad\n"))
	assert.Empty(t, s.Stats)

	var buf bytes.Buffer
	require.NoError(t, s.Print(&buf))
	assert.Contains(t, buf.String(), "(no numeric columns)")
}

func TestPrintSectionsInOrder(t *testing.T) {
	s := Summarize(load(t, testutil.SampleCSV))

	var buf bytes.Buffer
	require.NoError(t, s.Print(&buf))
	out := buf.String()

	sections := []string{
		"--- Dataset Overview ---",
		"Shape: (6, 5)",
		"First 5 rows:",
		"Columns:",
		"['artist', 'song', 'popularity', 'energy', 'explicit']",
		"Data types:",
		"Missing values:",
		"Basic statistics:",
	}
	last := -1
	for _, section := range sections {
		idx := strings.Index(out, section)
		require.GreaterOrEqual(t, idx, 0, "missing %q", section)
		assert.Greater(t, idx, last, "%q out of order", section)
		last = idx
	}

	assert.Contains(t, out, "Bohemian Rhapsody")
	assert.NotContains(t, out, "Army of Me", "head shows only five rows")
	assert.Contains(t, out, "64.400000")
	assert.Regexp(t, `popularity\s+int64`, out)
	assert.Regexp(t, `energy\s+1`, out)
}

func TestWriteJSONRendersNaNAsNull(t *testing.T) {
	s := Summarize(load(t, "a,b\n1,\n,\n"))

	var buf bytes.Buffer
	require.NoError(t, s.WriteJSON(&buf))

	var decoded struct {
		Shape [2]int `json:"shape"`
		Stats []struct {
			Column string   `json:"column"`
			Count  int      `json:"count"`
			Mean   *float64 `json:"mean"`
			Std    *float64 `json:"std"`
		} `json:"stats"`
		Head struct {
			Columns []string        `json:"columns"`
			Rows    [][]interface{} `json:"rows"`
		} `json:"head"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, [2]int{2, 2}, decoded.Shape)
	require.Len(t, decoded.Stats, 2)
	assert.Equal(t, "a", decoded.Stats[0].Column)
	require.NotNil(t, decoded.Stats[0].Mean)
	assert.Equal(t, 1.0, *decoded.Stats[0].Mean)
	assert.Nil(t, decoded.Stats[0].Std)
	assert.Equal(t, 0, decoded.Stats[1].Count)
	assert.Nil(t, decoded.Stats[1].Mean)
	assert.Equal(t, []string{"a", "b"}, decoded.Head.Columns)
	assert.Len(t, decoded.Head.Rows, 2)
}
