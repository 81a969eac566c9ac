package readers

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet/file"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/aaronlmathis/sitrep/core"
)

// ParquetReaderError provides structured error information for parquet reader operations
type ParquetReaderError struct {
	Op  string
	Err error
}

func (e *ParquetReaderError) Error() string {
	return fmt.Sprintf("parquet reader %s: %v", e.Op, e.Err)
}

func (e *ParquetReaderError) Unwrap() error {
	return e.Err
}

// ParquetReader implements core.DataSource for Parquet files, rendering every
// column value as a string.
type ParquetReader struct {
	fileHandle      *os.File
	recordReader    pqarrow.RecordReader
	currentBatch    arrow.Record
	currentBatchIdx int
	schema          *arrow.Schema
	headers         []string
	opts            *ParquetReaderOptions
	recordsRead     int64
}

// ParquetReaderOptions configures the Parquet reader.
type ParquetReaderOptions struct {
	BatchSize int64    // Rows per Arrow record batch
	Columns   []string // Column projection; empty reads every column
}

// ReaderOption represents a configuration function for ParquetReaderOptions.
type ReaderOption func(*ParquetReaderOptions)

func WithBatchSize(size int64) ReaderOption {
	return func(opts *ParquetReaderOptions) {
		opts.BatchSize = size
	}
}

func WithColumns(columns ...string) ReaderOption {
	return func(opts *ParquetReaderOptions) {
		opts.Columns = append([]string(nil), columns...)
	}
}

// NewParquetReader opens filename for reading.
func NewParquetReader(filename string, options ...ReaderOption) (*ParquetReader, error) {
	opts := &ParquetReaderOptions{BatchSize: 1000}
	for _, option := range options {
		option(opts)
	}

	f, err := os.Open(filename)
	if err != nil {
		return nil, &ParquetReaderError{Op: "open_file", Err: err}
	}

	parquetReader, err := file.NewParquetReader(f)
	if err != nil {
		f.Close()
		return nil, &ParquetReaderError{Op: "create_reader", Err: err}
	}

	arrowReader, err := pqarrow.NewFileReader(parquetReader, pqarrow.ArrowReadProperties{BatchSize: opts.BatchSize}, memory.NewGoAllocator())
	if err != nil {
		f.Close()
		return nil, &ParquetReaderError{Op: "create_arrow_reader", Err: err}
	}

	schema, err := arrowReader.Schema()
	if err != nil {
		f.Close()
		return nil, &ParquetReaderError{Op: "get_schema", Err: err}
	}

	var colIndices []int
	for _, name := range opts.Columns {
		indices := schema.FieldIndices(name)
		if len(indices) == 0 {
			f.Close()
			return nil, &ParquetReaderError{Op: "column_projection", Err: fmt.Errorf("column %q not found in schema", name)}
		}
		colIndices = append(colIndices, indices[0])
	}

	recordReader, err := arrowReader.GetRecordReader(context.Background(), colIndices, nil)
	if err != nil {
		f.Close()
		return nil, &ParquetReaderError{Op: "create_record_reader", Err: err}
	}

	headers := opts.Columns
	if len(headers) == 0 {
		for _, field := range schema.Fields() {
			headers = append(headers, field.Name)
		}
	}

	return &ParquetReader{
		fileHandle:   f,
		recordReader: recordReader,
		schema:       schema,
		headers:      headers,
		opts:         opts,
	}, nil
}

// Read reads the next row from the Parquet file, returning io.EOF at the end
func (p *ParquetReader) Read(ctx context.Context) (core.Row, error) {
	select {
	case <-ctx.Done():
		return nil, &ParquetReaderError{Op: "read", Err: ctx.Err()}
	default:
	}

	for p.currentBatch == nil || p.currentBatchIdx >= int(p.currentBatch.NumRows()) {
		if err := p.loadNextBatch(); err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, &ParquetReaderError{Op: "load_batch", Err: err}
		}
	}

	row := p.extractRow(p.currentBatch, p.currentBatchIdx)
	p.currentBatchIdx++
	p.recordsRead++
	return row, nil
}

// Headers returns the column names in schema order.
func (p *ParquetReader) Headers() []string {
	return append([]string(nil), p.headers...)
}

// Close releases resources and closes the underlying file
func (p *ParquetReader) Close() error {
	if p.currentBatch != nil {
		p.currentBatch.Release()
		p.currentBatch = nil
	}
	if p.recordReader != nil {
		p.recordReader.Release()
		p.recordReader = nil
	}
	if p.fileHandle != nil {
		err := p.fileHandle.Close()
		p.fileHandle = nil
		return err
	}
	return nil
}

func (p *ParquetReader) loadNextBatch() error {
	if p.currentBatch != nil {
		p.currentBatch.Release()
		p.currentBatch = nil
	}

	rec, err := p.recordReader.Read()
	if err != nil {
		return err
	}
	if rec == nil {
		return io.EOF
	}

	// the record reader releases its current batch on the next call
	rec.Retain()
	p.currentBatch = rec
	p.currentBatchIdx = 0
	return nil
}

func (p *ParquetReader) extractRow(record arrow.Record, pos int) core.Row {
	res := make(core.Row, record.NumCols())
	sch := record.Schema()
	for i := 0; i < int(record.NumCols()); i++ {
		res[sch.Field(i).Name] = columnString(record.Column(i), pos)
	}
	return res
}

// columnString renders one Arrow cell as text. Nulls become the empty string.
func columnString(col arrow.Array, rowIdx int) string {
	if col.IsNull(rowIdx) {
		return ""
	}

	switch arr := col.(type) {
	case *array.String:
		return arr.Value(rowIdx)
	case *array.LargeString:
		return arr.Value(rowIdx)
	case *array.Boolean:
		return strconv.FormatBool(arr.Value(rowIdx))
	case *array.Int32:
		return strconv.FormatInt(int64(arr.Value(rowIdx)), 10)
	case *array.Int64:
		return strconv.FormatInt(arr.Value(rowIdx), 10)
	case *array.Float32:
		return strconv.FormatFloat(float64(arr.Value(rowIdx)), 'f', -1, 32)
	case *array.Float64:
		return strconv.FormatFloat(arr.Value(rowIdx), 'f', -1, 64)
	case *array.Date32:
		return arr.Value(rowIdx).ToTime().Format("2006-01-02")
	case *array.Timestamp:
		unit := arr.DataType().(*arrow.TimestampType).Unit
		return arr.Value(rowIdx).ToTime(unit).UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", col.GetOneForMarshal(rowIdx))
	}
}
