// Package summary computes a descriptive overview of a frame: its shape, a
// preview of the first rows, column names and kinds, missing counts and
// describe-style statistics of the numeric columns.
package summary

import (
	"math"
	"sort"

	"github.com/ajitpratap0/spotify-dataset/pkg/frame"
)

// HeadRows is the number of preview rows
const HeadRows = 5

// ColumnType is the inferred kind of one column
type ColumnType struct {
	Name string     `json:"name"`
	Kind frame.Kind `json:"kind"`
}

// MissingCount is the number of missing cells in one column
type MissingCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// NumericStats is the describe row set of one numeric column. Count is the
// number of non-missing cells; every other field is NaN when Count is zero.
type NumericStats struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
	Mean   Float  `json:"mean"`
	Std    Float  `json:"std"`
	Min    Float  `json:"min"`
	P25    Float  `json:"25%"`
	P50    Float  `json:"50%"`
	P75    Float  `json:"75%"`
	Max    Float  `json:"max"`
}

// Summary is the result of Summarize. It is not modified after creation.
type Summary struct {
	Shape   [2]int
	Head    *frame.Frame
	Columns []string
	DTypes  []ColumnType
	Missing []MissingCount
	Stats   []NumericStats
}

// Summarize computes the summary of f without modifying it
func Summarize(f *frame.Frame) *Summary {
	rows, cols := f.Shape()
	s := &Summary{
		Shape:   [2]int{rows, cols},
		Head:    f.Head(HeadRows),
		Columns: f.ColumnNames(),
		DTypes:  make([]ColumnType, 0, cols),
		Missing: make([]MissingCount, 0, cols),
		Stats:   []NumericStats{},
	}

	for _, c := range f.Columns() {
		s.DTypes = append(s.DTypes, ColumnType{Name: c.Name, Kind: c.Kind})
		s.Missing = append(s.Missing, MissingCount{Name: c.Name, Count: c.NullCount()})
		if c.Kind.IsNumeric() {
			s.Stats = append(s.Stats, describe(c.Name, c.Floats()))
		}
	}
	return s
}

// TotalMissing sums the missing counts over all columns
func (s *Summary) TotalMissing() int {
	n := 0
	for _, m := range s.Missing {
		n += m.Count
	}
	return n
}

func describe(name string, values []float64) NumericStats {
	st := NumericStats{Column: name, Count: len(values)}
	nan := Float(math.NaN())
	if len(values) == 0 {
		st.Mean, st.Std, st.Min, st.P25, st.P50, st.P75, st.Max = nan, nan, nan, nan, nan, nan, nan
		return st
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean := Mean(sorted)
	st.Mean = Float(mean)
	st.Std = Float(StdDev(sorted, mean))
	st.Min = Float(sorted[0])
	st.P25 = Float(Quantile(sorted, 0.25))
	st.P50 = Float(Quantile(sorted, 0.5))
	st.P75 = Float(Quantile(sorted, 0.75))
	st.Max = Float(sorted[len(sorted)-1])
	return st
}

// Mean is the arithmetic mean, NaN for no values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev is the sample standard deviation around mean, NaN below two values
func StdDev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

// Quantile interpolates linearly between the closest ranks of sorted
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}
