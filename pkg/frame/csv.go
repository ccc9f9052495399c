package frame

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ajitpratap0/spotify-dataset/pkg/errors"
)

// DefaultNAValues are the cell spellings read as missing
var DefaultNAValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None", "n/a", "nan", "null",
}

// CSVOptions controls delimited text parsing
type CSVOptions struct {
	Comma    rune
	NAValues []string
	// LazyQuotes accepts a bare " inside an unquoted field as a literal quote
	LazyQuotes bool
}

// DefaultCSVOptions returns comma delimited parsing with the default NA set
// and lenient quoting
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Comma: ',', NAValues: DefaultNAValues, LazyQuotes: true}
}

// ReadCSVFile loads a delimited text file with a header row
func ReadCSVFile(path string) (*Frame, error) {
	file, err := os.Open(path) //nolint:gosec // path is chosen by the caller
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open CSV file").WithDetail("path", path)
	}
	defer file.Close()

	f, err := ReadCSV(bufio.NewReaderSize(file, 1<<20), DefaultCSVOptions())
	if err != nil {
		var e *errors.Error
		if errors.As(err, &e) {
			e.WithDetail("path", path)
		}
		return nil, err
	}
	return f, nil
}

// ReadCSV parses a header row plus data rows and infers one kind per column
func ReadCSV(r io.Reader, opts CSVOptions) (*Frame, error) {
	reader := csv.NewReader(r)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = opts.LazyQuotes

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrorTypeData, "CSV has no header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read CSV headers")
	}
	headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	headers = dedupeHeaders(headers)

	raw := make([][]string, len(headers))
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read CSV row").WithDetail("line", line)
		}
		if len(row) > len(headers) {
			return nil, errors.Newf(errors.ErrorTypeData,
				"line %d has %d fields, header has %d", line, len(row), len(headers)).WithDetail("line", line)
		}
		for i := range headers {
			if i < len(row) {
				raw[i] = append(raw[i], row[i])
			} else {
				raw[i] = append(raw[i], "")
			}
		}
	}

	naValues := opts.NAValues
	if naValues == nil {
		naValues = DefaultNAValues
	}
	na := make(map[string]struct{}, len(naValues))
	for _, v := range naValues {
		na[v] = struct{}{}
	}

	cols := make([]*Column, len(headers))
	for i, name := range headers {
		cols[i] = inferColumn(name, raw[i], na)
	}
	return New(cols...)
}

// dedupeHeaders renames repeated names to name.1, name.2, ...
func dedupeHeaders(headers []string) []string {
	seen := make(map[string]int, len(headers))
	out := make([]string, len(headers))
	for i, h := range headers {
		name := h
		for {
			if _, dup := seen[name]; !dup {
				break
			}
			seen[h]++
			name = h + "." + strconv.Itoa(seen[h])
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

func inferColumn(name string, raw []string, na map[string]struct{}) *Column {
	missing := make([]bool, len(raw))
	present := 0
	for i, s := range raw {
		if _, ok := na[s]; ok {
			missing[i] = true
		} else {
			present++
		}
	}

	values := make([]interface{}, len(raw))
	if present == 0 {
		return &Column{Name: name, Kind: KindFloat, Values: values}
	}

	if parseAll(raw, missing, values, func(s string) (interface{}, bool) {
		v, err := strconv.ParseInt(s, 10, 64)
		return v, err == nil
	}) {
		return &Column{Name: name, Kind: KindInt, Values: values}
	}

	if parseAll(raw, missing, values, func(s string) (interface{}, bool) {
		v, err := strconv.ParseFloat(s, 64)
		return v, err == nil
	}) {
		return &Column{Name: name, Kind: KindFloat, Values: values}
	}

	if parseAll(raw, missing, values, parseBool) {
		return &Column{Name: name, Kind: KindBool, Values: values}
	}

	for i, s := range raw {
		if missing[i] {
			values[i] = nil
		} else {
			values[i] = s
		}
	}
	return &Column{Name: name, Kind: KindString, Values: values}
}

func parseAll(raw []string, missing []bool, values []interface{}, parse func(string) (interface{}, bool)) bool {
	for i, s := range raw {
		if missing[i] {
			values[i] = nil
			continue
		}
		v, ok := parse(s)
		if !ok {
			return false
		}
		values[i] = v
	}
	return true
}

func parseBool(s string) (interface{}, bool) {
	switch s {
	case "True", "TRUE", "true":
		return true, true
	case "False", "FALSE", "false":
		return false, true
	default:
		return nil, false
	}
}

// WriteCSV writes a header row and one line per row. Missing cells are empty.
func WriteCSV(w io.Writer, f *Frame) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(f.ColumnNames()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write CSV header")
	}

	cols := f.Columns()
	record := make([]string, len(cols))
	for r := 0; r < f.NumRows(); r++ {
		for i, c := range cols {
			record[i] = FormatCell(c.Values[r])
		}
		// A lone empty field would be an empty line, which readers skip
		if len(record) == 1 && record[0] == "" {
			writer.Flush()
			if _, err := io.WriteString(w, "\"\"\n"); err != nil {
				return errors.Wrap(err, errors.ErrorTypeFile, "failed to write CSV row").WithDetail("row", r)
			}
			continue
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write CSV row").WithDetail("row", r)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush CSV writer")
	}
	return nil
}

// FormatCell renders a cell the way WriteCSV does
func FormatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatFloat(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return x
	default:
		return ""
	}
}

// formatFloat keeps a decimal point on integral values so they reload as floats
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if strings.ContainsAny(s, ".eEnN") {
		return s
	}
	return s + ".0"
}
