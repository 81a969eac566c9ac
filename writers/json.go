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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aaronlmathis/sitrep/core"
)

// JSONWriterError wraps JSON write errors with context.
type JSONWriterError struct {
	Op  string
	Err error
}

func (e *JSONWriterError) Error() string {
	return fmt.Sprintf("json writer %s: %v", e.Op, e.Err)
}

func (e *JSONWriterError) Unwrap() error {
	return e.Err
}

// JSONWriter implements core.DataSink for JSON lines output. With headers set,
// each object lists its keys in header order and skips absent fields.
type JSONWriter struct {
	writer  *bufio.Writer
	closer  io.Closer
	headers []string
	written int64
}

// NewJSONWriter creates a JSON lines writer on w.
func NewJSONWriter(w io.WriteCloser, headers ...string) *JSONWriter {
	return &JSONWriter{
		writer:  bufio.NewWriter(w),
		closer:  w,
		headers: headers,
	}
}

// Write implements core.DataSink.
func (j *JSONWriter) Write(ctx context.Context, row core.Row) error {
	data, err := j.encode(row)
	if err != nil {
		return &JSONWriterError{Op: "marshal", Err: err}
	}
	if _, err := j.writer.Write(append(data, '\n')); err != nil {
		return &JSONWriterError{Op: "write", Err: err}
	}
	j.written++
	return nil
}

// Flush implements core.DataSink.
func (j *JSONWriter) Flush() error {
	if err := j.writer.Flush(); err != nil {
		return &JSONWriterError{Op: "flush", Err: err}
	}
	return nil
}

// Close implements core.DataSink.
func (j *JSONWriter) Close() error {
	if err := j.Flush(); err != nil {
		return err
	}
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}

// RecordsWritten returns the number of rows written.
func (j *JSONWriter) RecordsWritten() int64 {
	return j.written
}

func (j *JSONWriter) encode(row core.Row) ([]byte, error) {
	if len(j.headers) == 0 {
		return json.Marshal(row)
	}

	buf := []byte{'{'}
	first := true
	for _, h := range j.headers {
		v, ok := row[h]
		if !ok {
			continue
		}
		if !first {
			buf = append(buf, ',')
		}
		first = false
		key, err := json.Marshal(h)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}
