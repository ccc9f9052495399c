package summary

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"

	"github.com/ajitpratap0/spotify-dataset/pkg/errors"
	"github.com/ajitpratap0/spotify-dataset/pkg/frame"
)

// Float marshals NaN and infinities as JSON null
type Float float64

// MarshalJSON implements json.Marshaler
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// Print writes the human readable overview
func (s *Summary) Print(w io.Writer) error {
	p := &printer{w: w}

	p.line("\n--- Dataset Overview ---")
	p.line(fmt.Sprintf("Shape: (%d, %d)", s.Shape[0], s.Shape[1]))

	p.line("\nFirst 5 rows:")
	p.table(headTable(s.Head))

	p.line("\nColumns:")
	p.line(pyList(s.Columns))

	p.line("\nData types:")
	dtypes := make([][]string, 0, len(s.DTypes))
	for _, d := range s.DTypes {
		dtypes = append(dtypes, []string{d.Name, string(d.Kind)})
	}
	p.table(dtypes)

	p.line("\nMissing values:")
	missing := make([][]string, 0, len(s.Missing))
	for _, m := range s.Missing {
		missing = append(missing, []string{m.Name, strconv.Itoa(m.Count)})
	}
	p.table(missing)

	p.line("\nBasic statistics:")
	if len(s.Stats) == 0 {
		p.line("(no numeric columns)")
	} else {
		p.table(statsTable(s.Stats))
	}

	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(s string) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, s)
}

func (p *printer) table(rows [][]string) {
	if p.err != nil {
		return
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		if _, p.err = fmt.Fprintln(tw, strings.Join(r, "\t")); p.err != nil {
			return
		}
	}
	p.err = tw.Flush()
}

func headTable(f *frame.Frame) [][]string {
	rows := make([][]string, 0, f.NumRows()+1)
	rows = append(rows, append([]string{""}, f.ColumnNames()...))
	for i := 0; i < f.NumRows(); i++ {
		row := []string{strconv.Itoa(i)}
		for _, v := range f.Row(i) {
			row = append(row, displayCell(v))
		}
		rows = append(rows, row)
	}
	return rows
}

func statsTable(stats []NumericStats) [][]string {
	header := []string{""}
	for _, st := range stats {
		header = append(header, st.Column)
	}

	labels := []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}
	rows := [][]string{header}
	for i, label := range labels {
		row := []string{label}
		for _, st := range stats {
			var v float64
			switch i {
			case 0:
				v = float64(st.Count)
			case 1:
				v = float64(st.Mean)
			case 2:
				v = float64(st.Std)
			case 3:
				v = float64(st.Min)
			case 4:
				v = float64(st.P25)
			case 5:
				v = float64(st.P50)
			case 6:
				v = float64(st.P75)
			case 7:
				v = float64(st.Max)
			}
			row = append(row, statCell(v))
		}
		rows = append(rows, row)
	}
	return rows
}

func statCell(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func displayCell(v interface{}) string {
	if v == nil {
		return "NaN"
	}
	return frame.FormatCell(v)
}

func pyList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

type jsonHead struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

type jsonSummary struct {
	Shape   [2]int         `json:"shape"`
	Columns []string       `json:"columns"`
	DTypes  []ColumnType   `json:"dtypes"`
	Missing []MissingCount `json:"missing_values"`
	Stats   []NumericStats `json:"stats"`
	Head    jsonHead       `json:"head"`
}

// WriteJSON writes the summary as one indented JSON document
func (s *Summary) WriteJSON(w io.Writer) error {
	head := jsonHead{Columns: s.Head.ColumnNames(), Rows: make([][]interface{}, 0, s.Head.NumRows())}
	for i := 0; i < s.Head.NumRows(); i++ {
		row := s.Head.Row(i)
		for j, v := range row {
			if x, ok := v.(float64); ok {
				row[j] = Float(x)
			}
		}
		head.Rows = append(head.Rows, row)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	err := enc.Encode(jsonSummary{
		Shape:   s.Shape,
		Columns: s.Columns,
		DTypes:  s.DTypes,
		Missing: s.Missing,
		Stats:   s.Stats,
		Head:    head,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode summary")
	}
	return nil
}
