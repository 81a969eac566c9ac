//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of Sitrep.
//
// Sitrep is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Sitrep is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Sitrep. If not, see https://www.gnu.org/licenses/.

package writers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/aaronlmathis/sitrep/core"
)

// ParquetWriterError wraps Parquet-specific write errors with context about the operation.
type ParquetWriterError struct {
	Op  string
	Err error
}

func (e *ParquetWriterError) Error() string {
	return fmt.Sprintf("parquet writer %s: %v", e.Op, e.Err)
}

func (e *ParquetWriterError) Unwrap() error {
	return e.Err
}

// ParquetWriterOptions configures the Parquet writer.
type ParquetWriterOptions struct {
	BatchSize    int64
	Compression  compress.Compression
	FieldOrder   []string
	RowGroupSize int64
	Metadata     map[string]string
}

// WriterStats holds statistics about the Parquet writer.
type WriterStats struct {
	RecordsWritten  int64
	BatchesWritten  int64
	FlushDuration   time.Duration
	NullValueCounts map[string]int64
}

// WriterOption configures a ParquetWriter.
type WriterOption func(*ParquetWriterOptions)

// WithBatchSize sets how many rows are buffered per record batch.
func WithBatchSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.BatchSize = size
	}
}

// WithCompression sets the Parquet compression codec.
func WithCompression(compression compress.Compression) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.Compression = compression
	}
}

// WithFieldOrder fixes the column order. Without it columns come from the first
// row, sorted.
func WithFieldOrder(fields []string) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.FieldOrder = append([]string(nil), fields...)
	}
}

// WithRowGroupSize caps the rows per row group.
func WithRowGroupSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.RowGroupSize = size
	}
}

// WithMetadata adds key/value metadata to the file schema.
func WithMetadata(metadata map[string]string) WriterOption {
	return func(opts *ParquetWriterOptions) {
		if opts.Metadata == nil {
			opts.Metadata = make(map[string]string, len(metadata))
		}
		for k, v := range metadata {
			opts.Metadata[k] = v
		}
	}
}

// ParquetWriter implements core.DataSink for Parquet files. Every column is a
// nullable string; a row without a field stores null.
type ParquetWriter struct {
	file       *os.File
	writer     *pqarrow.FileWriter
	schema     *arrow.Schema
	fieldOrder []string
	buffer     []core.Row
	allocator  memory.Allocator
	opts       *ParquetWriterOptions
	stats      WriterStats
	closed     bool
	errorState bool
}

// NewParquetWriter creates filename, including parent directories.
func NewParquetWriter(filename string, options ...WriterOption) (*ParquetWriter, error) {
	opts := &ParquetWriterOptions{
		BatchSize:    1000,
		Compression:  compress.Codecs.Snappy,
		RowGroupSize: 10000,
	}
	for _, option := range options {
		option(opts)
	}

	if dir := filepath.Dir(filename); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &ParquetWriterError{Op: "create_directory", Err: err}
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, &ParquetWriterError{Op: "open_file", Err: err}
	}

	return &ParquetWriter{
		file:       file,
		fieldOrder: opts.FieldOrder,
		buffer:     make([]core.Row, 0, opts.BatchSize),
		allocator:  memory.NewGoAllocator(),
		opts:       opts,
		stats:      WriterStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// Stats returns the writer statistics.
func (p *ParquetWriter) Stats() WriterStats {
	return p.stats
}

// Write implements core.DataSink.
func (p *ParquetWriter) Write(ctx context.Context, row core.Row) error {
	if p.closed {
		return &ParquetWriterError{Op: "write", Err: fmt.Errorf("parquet writer is closed")}
	}
	if p.errorState {
		return &ParquetWriterError{Op: "write", Err: fmt.Errorf("writer is in error state")}
	}

	if len(p.fieldOrder) == 0 {
		for name := range row {
			p.fieldOrder = append(p.fieldOrder, name)
		}
		sort.Strings(p.fieldOrder)
	}

	p.buffer = append(p.buffer, row)
	p.stats.RecordsWritten++

	if int64(len(p.buffer)) >= p.opts.BatchSize {
		if err := p.flushBatch(); err != nil {
			p.errorState = true
			return err
		}
	}
	return nil
}

// Flush implements core.DataSink.
func (p *ParquetWriter) Flush() error {
	return p.flushBatch()
}

// Close flushes buffered rows and closes the file.
func (p *ParquetWriter) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	if err := p.flushBatch(); err != nil {
		p.file.Close()
		return err
	}
	if p.writer == nil {
		if len(p.fieldOrder) == 0 {
			return p.file.Close()
		}
		if err := p.openWriter(); err != nil {
			p.file.Close()
			return err
		}
	}
	if err := p.writer.Close(); err != nil {
		return &ParquetWriterError{Op: "close_writer", Err: err}
	}
	return nil
}

func (p *ParquetWriter) openWriter() error {
	fields := make([]arrow.Field, len(p.fieldOrder))
	for i, name := range p.fieldOrder {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	}

	var md *arrow.Metadata
	if len(p.opts.Metadata) > 0 {
		keys := make([]string, 0, len(p.opts.Metadata))
		for k := range p.opts.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		values := make([]string, len(keys))
		for i, k := range keys {
			values[i] = p.opts.Metadata[k]
		}
		m := arrow.NewMetadata(keys, values)
		md = &m
	}
	p.schema = arrow.NewSchema(fields, md)

	props := parquet.NewWriterProperties(
		parquet.WithCompression(p.opts.Compression),
		parquet.WithMaxRowGroupLength(p.opts.RowGroupSize),
	)
	writer, err := pqarrow.NewFileWriter(p.schema, p.file, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return &ParquetWriterError{Op: "create_writer", Err: err}
	}
	p.writer = writer
	return nil
}

func (p *ParquetWriter) flushBatch() error {
	if len(p.buffer) == 0 {
		return nil
	}
	start := time.Now()

	if p.writer == nil {
		if err := p.openWriter(); err != nil {
			return err
		}
	}

	builders := make([]*array.StringBuilder, len(p.fieldOrder))
	for i := range builders {
		builders[i] = array.NewStringBuilder(p.allocator)
		defer builders[i].Release()
	}

	for _, row := range p.buffer {
		for i, name := range p.fieldOrder {
			if v, ok := row[name]; ok {
				builders[i].Append(v)
			} else {
				builders[i].AppendNull()
				p.stats.NullValueCounts[name]++
			}
		}
	}

	columns := make([]arrow.Array, len(builders))
	for i, b := range builders {
		columns[i] = b.NewArray()
		defer columns[i].Release()
	}

	record := array.NewRecord(p.schema, columns, int64(len(p.buffer)))
	defer record.Release()

	if err := p.writer.Write(record); err != nil {
		return &ParquetWriterError{Op: "write_batch", Err: err}
	}

	p.stats.BatchesWritten++
	p.stats.FlushDuration += time.Since(start)
	p.buffer = p.buffer[:0]
	return nil
}
