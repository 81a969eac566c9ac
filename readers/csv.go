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

package readers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aaronlmathis/sitrep/core"
)

// Package readers provides implementations of core.DataSource for reading situation
// report tables from various sources.
//
// Every reader hands out core.Row values: field name to string, exactly as the source
// spelled them. Nothing is parsed into numbers or dates.

// CSVReaderError provides structured error information for CSV reader operations.
type CSVReaderError struct {
	Op  string
	Err error
}

func (e *CSVReaderError) Error() string {
	return fmt.Sprintf("csv reader %s: %v", e.Op, e.Err)
}

func (e *CSVReaderError) Unwrap() error {
	return e.Err
}

// CSVReaderStats holds statistics about the CSV reader.
type CSVReaderStats struct {
	RecordsRead     int64
	ReadDuration    time.Duration
	LastReadTime    time.Time
	NullValueCounts map[string]int64
}

// CSVReaderOptions configures CSV parsing.
type CSVReaderOptions struct {
	Comma            rune
	Comment          rune
	FieldsPerRecord  int
	LazyQuotes       bool
	TrimLeadingSpace bool
	HasHeaders       bool
}

// ReaderOptionCSV is a functional option for CSVReaderOptions.
type ReaderOptionCSV func(*CSVReaderOptions)

func WithCSVComma(r rune) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.Comma = r }
}

func WithCSVHasHeaders(hasHeaders bool) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.HasHeaders = hasHeaders }
}

func WithCSVTrimSpace(trim bool) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.TrimLeadingSpace = trim }
}

func WithCSVLazyQuotes(lazy bool) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.LazyQuotes = lazy }
}

// CSVReader implements core.DataSource and core.HeaderSource for CSV input.
type CSVReader struct {
	reader  *csv.Reader
	headers []string
	closer  io.Closer
	stats   CSVReaderStats
	opts    CSVReaderOptions
}

// NewCSVReader creates a CSV reader. With headers enabled (the default) the first
// record is consumed as the header list.
func NewCSVReader(r io.ReadCloser, options ...ReaderOptionCSV) (*CSVReader, error) {
	opts := CSVReaderOptions{
		Comma:            ',',
		HasHeaders:       true,
		TrimLeadingSpace: true,
	}

	for _, opt := range options {
		opt(&opts)
	}

	csvReader := csv.NewReader(r)
	csvReader.Comma = opts.Comma
	csvReader.Comment = opts.Comment
	csvReader.FieldsPerRecord = opts.FieldsPerRecord
	csvReader.LazyQuotes = opts.LazyQuotes
	csvReader.TrimLeadingSpace = opts.TrimLeadingSpace

	reader := &CSVReader{
		reader: csvReader,
		closer: r,
		opts:   opts,
		stats:  CSVReaderStats{NullValueCounts: make(map[string]int64)},
	}

	if opts.HasHeaders {
		headers, err := csvReader.Read()
		if err != nil {
			return nil, &CSVReaderError{Op: "read_headers", Err: err}
		}
		if len(headers) > 0 {
			// SDMX exports lead with a UTF-8 byte order mark
			headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
		}
		reader.headers = headers
	}

	return reader, nil
}

// Read returns the next row, or io.EOF once the input is exhausted.
func (c *CSVReader) Read(ctx context.Context) (core.Row, error) {
	start := time.Now()

	select {
	case <-ctx.Done():
		return nil, &CSVReaderError{Op: "read", Err: ctx.Err()}
	default:
	}

	record, err := c.reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &CSVReaderError{Op: "read_record", Err: err}
	}

	res := make(core.Row, len(record))
	for i, val := range record {
		key := c.columnName(i)
		if strings.TrimSpace(val) == "" {
			c.stats.NullValueCounts[key]++
		}
		res[key] = val
	}

	c.stats.RecordsRead++
	c.stats.LastReadTime = time.Now()
	c.stats.ReadDuration += time.Since(start)

	return res, nil
}

// Headers returns the header record, or generated column names when the input has none.
func (c *CSVReader) Headers() []string {
	return append([]string(nil), c.headers...)
}

// Close closes the underlying reader.
func (c *CSVReader) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// Stats returns reader statistics.
func (c *CSVReader) Stats() CSVReaderStats {
	return c.stats
}

func (c *CSVReader) columnName(i int) string {
	if i < len(c.headers) {
		return c.headers[i]
	}
	name := "col_" + strconv.Itoa(i)
	if !c.opts.HasHeaders && i == len(c.headers) {
		c.headers = append(c.headers, name)
	}
	return name
}
