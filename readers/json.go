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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aaronlmathis/sitrep/core"
)

// JSONReaderError provides structured error information for JSON reader operations.
type JSONReaderError struct {
	Op   string
	Line int
	Err  error
}

func (e *JSONReaderError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("json reader %s (line %d): %v", e.Op, e.Line, e.Err)
	}
	return fmt.Sprintf("json reader %s: %v", e.Op, e.Err)
}

func (e *JSONReaderError) Unwrap() error {
	return e.Err
}

// JSONReader implements core.DataSource for line-delimited JSON objects.
// Field order follows the order keys first appear in the input.
type JSONReader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	headers *headerSet
	line    int
}

// NewJSONReader creates a JSON lines reader.
func NewJSONReader(r io.ReadCloser) *JSONReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &JSONReader{
		scanner: scanner,
		closer:  r,
		headers: newHeaderSet(),
	}
}

// Read implements the core.DataSource interface. Blank lines are skipped.
func (j *JSONReader) Read(ctx context.Context) (core.Row, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, &JSONReaderError{Op: "read", Err: ctx.Err()}
		default:
		}

		if !j.scanner.Scan() {
			if err := j.scanner.Err(); err != nil {
				return nil, &JSONReaderError{Op: "scan", Line: j.line, Err: err}
			}
			return nil, io.EOF
		}
		j.line++

		line := bytes.TrimSpace(j.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		keys, row, err := decodeOrderedObject(json.NewDecoder(bytes.NewReader(line)))
		if err != nil {
			return nil, &JSONReaderError{Op: "decode", Line: j.line, Err: err}
		}
		j.headers.add(keys...)
		return row, nil
	}
}

// Headers returns every key seen so far in first-seen order.
func (j *JSONReader) Headers() []string {
	return j.headers.list()
}

// Close implements the core.DataSource interface.
func (j *JSONReader) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}

// decodeOrderedObject reads one JSON object from dec, keeping key order.
func decodeOrderedObject(dec *json.Decoder) ([]string, core.Row, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	row := make(core.Row)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected object key, got %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", key, err)
		}
		value, err := jsonValueString(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", key, err)
		}

		if _, seen := row[key]; !seen {
			keys = append(keys, key)
		}
		row[key] = value
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, row, nil
}

// jsonValueString renders a raw JSON value the way it would appear in a CSV cell.
// Strings are unquoted, null becomes empty, everything else keeps its JSON text.
func jsonValueString(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return "", nil
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	case trimmed[0] == '{' || trimmed[0] == '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return "", err
		}
		return buf.String(), nil
	default:
		return strings.TrimSpace(string(trimmed)), nil
	}
}

// headerSet is an insertion-ordered set of column names.
type headerSet struct {
	order []string
	seen  map[string]struct{}
}

func newHeaderSet(initial ...string) *headerSet {
	h := &headerSet{seen: make(map[string]struct{})}
	h.add(initial...)
	return h
}

func (h *headerSet) add(names ...string) {
	for _, name := range names {
		if _, ok := h.seen[name]; ok {
			continue
		}
		h.seen[name] = struct{}{}
		h.order = append(h.order, name)
	}
}

func (h *headerSet) list() []string {
	return append([]string(nil), h.order...)
}
