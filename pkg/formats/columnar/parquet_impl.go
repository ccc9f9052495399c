//go:build !noparquet

package columnar

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/spotify-dataset/pkg/errors"
	"github.com/ajitpratap0/spotify-dataset/pkg/frame"
)

func init() {
	_ = Register(&Codec{
		Format:    Parquet,
		Extension: ".parquet",
		Write:     writeParquet,
		Read:      readParquet,
	})
}

// nopCloser hides Close so the parquet writer leaves the sink open for the caller
type nopCloser struct {
	io.Writer
}

func writeParquet(w io.Writer, f *frame.Frame, config *WriterConfig) error {
	if config == nil {
		config = DefaultWriterConfig()
	}
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultWriterConfig().BatchSize
	}

	arrowSchema, err := frameToArrowSchema(f)
	if err != nil {
		return err
	}

	codec, err := parquetCompression(config.Compression)
	if err != nil {
		return err
	}

	pool := memory.NewGoAllocator()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithAllocator(pool),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(pool),
	)

	fw, err := pqarrow.NewFileWriter(arrowSchema, nopCloser{w}, props, arrowProps)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create Parquet writer")
	}

	builder := array.NewRecordBuilder(pool, arrowSchema)
	defer builder.Release()

	cols := f.Columns()
	for start := 0; start < f.NumRows(); start += batchSize {
		end := start + batchSize
		if end > f.NumRows() {
			end = f.NumRows()
		}

		for i, col := range cols {
			if err := appendValues(builder.Field(i), col, start, end); err != nil {
				_ = fw.Close()
				return err
			}
		}

		record := builder.NewRecord()
		err := fw.Write(record)
		record.Release()
		if err != nil {
			_ = fw.Close()
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write record batch")
		}
	}

	if err := fw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close Parquet writer")
	}
	return nil
}

func appendValues(builder array.Builder, col *frame.Column, start, end int) error {
	for _, value := range col.Values[start:end] {
		if value == nil {
			builder.AppendNull()
			continue
		}

		switch b := builder.(type) {
		case *array.Int64Builder:
			b.Append(value.(int64))
		case *array.Float64Builder:
			b.Append(value.(float64))
		case *array.BooleanBuilder:
			b.Append(value.(bool))
		case *array.StringBuilder:
			b.Append(value.(string))
		default:
			return errors.Newf(errors.ErrorTypeData, "unsupported builder type: %T", builder).
				WithDetail("column", col.Name)
		}
	}
	return nil
}

func readParquet(r ReaderAtSeeker) (*frame.Frame, error) {
	pool := memory.NewGoAllocator()

	table, err := pqarrow.ReadTable(context.Background(), r, parquet.NewReaderProperties(pool),
		pqarrow.ArrowReadProperties{}, pool)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read Parquet file")
	}
	defer table.Release()

	schema := table.Schema()
	cols := make([]*frame.Column, 0, table.NumCols())
	for i := 0; i < int(table.NumCols()); i++ {
		field := schema.Field(i)
		kind, err := arrowToKind(field.Type)
		if err != nil {
			return nil, err
		}

		values := make([]interface{}, 0, table.NumRows())
		for _, chunk := range table.Column(i).Data().Chunks() {
			for row := 0; row < chunk.Len(); row++ {
				values = append(values, columnValue(chunk, row))
			}
		}

		col, err := frame.NewColumn(field.Name, kind, values)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}

	return frame.New(cols...)
}

func columnValue(col arrow.Array, row int) interface{} {
	if col.IsNull(row) {
		return nil
	}

	switch c := col.(type) {
	case *array.Int8:
		return int64(c.Value(row))
	case *array.Int16:
		return int64(c.Value(row))
	case *array.Int32:
		return int64(c.Value(row))
	case *array.Int64:
		return c.Value(row)
	case *array.Uint8:
		return int64(c.Value(row))
	case *array.Uint16:
		return int64(c.Value(row))
	case *array.Uint32:
		return int64(c.Value(row))
	case *array.Float32:
		return float64(c.Value(row))
	case *array.Float64:
		return c.Value(row)
	case *array.Boolean:
		return c.Value(row)
	case *array.String:
		return c.Value(row)
	case *array.LargeString:
		return c.Value(row)
	default:
		return nil
	}
}

// Schema conversion helpers

func frameToArrowSchema(f *frame.Frame) (*arrow.Schema, error) {
	cols := f.Columns()
	fields := make([]arrow.Field, 0, len(cols))

	for _, col := range cols {
		arrowType, err := kindToArrow(col.Kind)
		if err != nil {
			return nil, fmt.Errorf("failed to convert field %s: %w", col.Name, err)
		}
		fields = append(fields, arrow.Field{
			Name:     col.Name,
			Type:     arrowType,
			Nullable: true,
		})
	}

	return arrow.NewSchema(fields, nil), nil
}

func kindToArrow(kind frame.Kind) (arrow.DataType, error) {
	switch kind {
	case frame.KindInt:
		return arrow.PrimitiveTypes.Int64, nil
	case frame.KindFloat:
		return arrow.PrimitiveTypes.Float64, nil
	case frame.KindBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case frame.KindString:
		return arrow.BinaryTypes.String, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeData, "unsupported column kind: %s", kind)
	}
}

func arrowToKind(arrowType arrow.DataType) (frame.Kind, error) {
	switch arrowType.ID() {
	case arrow.BOOL:
		return frame.KindBool, nil
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32:
		return frame.KindInt, nil
	case arrow.FLOAT32, arrow.FLOAT64:
		return frame.KindFloat, nil
	case arrow.STRING, arrow.LARGE_STRING:
		return frame.KindString, nil
	default:
		return "", errors.Newf(errors.ErrorTypeData, "unsupported Parquet column type: %s", arrowType)
	}
}

func parquetCompression(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "none":
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed, errors.Newf(errors.ErrorTypeValidation, "unknown compression %q", name)
	}
}
