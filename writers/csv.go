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
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/aaronlmathis/sitrep/core"
)

// Package writers provides core.DataSink implementations for the published
// country datasets.

// CSVWriterError wraps CSV-specific write errors with context.
type CSVWriterError struct {
	Op  string
	Err error
}

func (e *CSVWriterError) Error() string {
	return fmt.Sprintf("csv writer %s: %v", e.Op, e.Err)
}

func (e *CSVWriterError) Unwrap() error {
	return e.Err
}

// CSVWriterStats holds CSV write statistics.
type CSVWriterStats struct {
	RecordsWritten int64
	FlushCount     int64
	FlushDuration  time.Duration
	// EmptyValueCounts counts, per column, rows that had no value for it.
	EmptyValueCounts map[string]int64
}

// CSVWriterOptions configures CSV output.
type CSVWriterOptions struct {
	Comma       rune
	UseCRLF     bool
	WriteHeader bool
	Headers     []string
	// TagRow, when set, is written right after the header row.
	TagRow []string
}

// WriterOptionCSV is a functional option.
type WriterOptionCSV func(*CSVWriterOptions)

// WithHeaders fixes the column order. Without it columns come from the first
// row, sorted.
func WithHeaders(headers []string) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		opts.Headers = append([]string(nil), headers...)
	}
}

func WithComma(delim rune) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		opts.Comma = delim
	}
}

func WithWriteHeader(write bool) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		opts.WriteHeader = write
	}
}

func WithUseCRLF(useCRLF bool) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		opts.UseCRLF = useCRLF
	}
}

// WithTagRow writes tags as a second header row, the layout HXL-aware tools expect.
func WithTagRow(tags []string) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		opts.TagRow = append([]string(nil), tags...)
	}
}

// CSVWriter implements core.DataSink for CSV output.
type CSVWriter struct {
	writer      *csv.Writer
	closer      io.Closer
	options     CSVWriterOptions
	headers     []string
	stats       CSVWriterStats
	wroteHeader bool
	errorState  bool
	mu          sync.Mutex
}

// NewCSVWriter creates a CSV writer on w. Close closes w.
func NewCSVWriter(w io.WriteCloser, opts ...WriterOptionCSV) (*CSVWriter, error) {
	options := CSVWriterOptions{
		Comma:       ',',
		WriteHeader: true,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.TagRow != nil && len(options.Headers) != len(options.TagRow) {
		return nil, &CSVWriterError{Op: "configure", Err: fmt.Errorf("%d tags for %d headers", len(options.TagRow), len(options.Headers))}
	}

	cw := csv.NewWriter(w)
	cw.Comma = options.Comma
	cw.UseCRLF = options.UseCRLF

	return &CSVWriter{
		writer:  cw,
		closer:  w,
		options: options,
		headers: options.Headers,
		stats:   CSVWriterStats{EmptyValueCounts: make(map[string]int64)},
	}, nil
}

// Write implements core.DataSink.
func (c *CSVWriter) Write(ctx context.Context, row core.Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.errorState {
		return &CSVWriterError{Op: "write", Err: fmt.Errorf("writer is in error state")}
	}
	if err := ctx.Err(); err != nil {
		return &CSVWriterError{Op: "write", Err: err}
	}

	if len(c.headers) == 0 {
		for key := range row {
			c.headers = append(c.headers, key)
		}
		sort.Strings(c.headers)
	}
	if err := c.writeHeaderUnsafe(); err != nil {
		return err
	}

	record := make([]string, len(c.headers))
	for i, key := range c.headers {
		v, ok := row[key]
		if !ok || v == "" {
			c.stats.EmptyValueCounts[key]++
		}
		record[i] = v
	}
	if err := c.writer.Write(record); err != nil {
		c.errorState = true
		return &CSVWriterError{Op: "write_row", Err: err}
	}
	c.stats.RecordsWritten++
	return nil
}

// Flush implements core.DataSink. A writer that saw no rows but has fixed
// headers still emits them, so empty tables keep their columns.
func (c *CSVWriter) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.headers) > 0 {
		if err := c.writeHeaderUnsafe(); err != nil {
			return err
		}
	}

	start := time.Now()
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return &CSVWriterError{Op: "flush", Err: err}
	}
	c.stats.FlushCount++
	c.stats.FlushDuration += time.Since(start)
	return nil
}

// Close implements core.DataSink.
func (c *CSVWriter) Close() error {
	if err := c.Flush(); err != nil {
		return err
	}
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// Stats returns a copy of the write statistics.
func (c *CSVWriter) Stats() CSVWriterStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.EmptyValueCounts = make(map[string]int64, len(c.stats.EmptyValueCounts))
	for k, v := range c.stats.EmptyValueCounts {
		stats.EmptyValueCounts[k] = v
	}
	return stats
}

func (c *CSVWriter) writeHeaderUnsafe() error {
	if c.wroteHeader || !c.options.WriteHeader {
		return nil
	}
	c.wroteHeader = true

	if err := c.writer.Write(c.headers); err != nil {
		c.errorState = true
		return &CSVWriterError{Op: "write_header", Err: err}
	}
	if c.options.TagRow != nil {
		if err := c.writer.Write(c.options.TagRow); err != nil {
			c.errorState = true
			return &CSVWriterError{Op: "write_tags", Err: err}
		}
	}
	return nil
}
