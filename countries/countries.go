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

package countries

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aaronlmathis/sitrep/readers"
)

// Package countries resolves ISO 3166-1 alpha-3 codes to display names.

//go:embed iso3.csv
var iso3CSV []byte

// Lookup resolves a three-letter country code to its display name.
type Lookup interface {
	NameFor(iso3 string) (string, bool)
}

// Table is a Lookup backed by an in-memory code to name map. Codes match
// case-insensitively.
type Table struct {
	names map[string]string
}

// NewTable builds a Table from code to name pairs.
func NewTable(names map[string]string) *Table {
	t := &Table{names: make(map[string]string, len(names))}
	for code, name := range names {
		t.names[strings.ToUpper(strings.TrimSpace(code))] = name
	}
	return t
}

// NameFor implements Lookup.
func (t *Table) NameFor(iso3 string) (string, bool) {
	name, ok := t.names[strings.ToUpper(strings.TrimSpace(iso3))]
	return name, ok
}

// Len returns the number of known codes.
func (t *Table) Len() int {
	return len(t.names)
}

// Load reads a two column CSV (iso3,name) with a header row.
func Load(ctx context.Context, r io.Reader) (*Table, error) {
	reader, err := readers.NewCSVReader(io.NopCloser(r), readers.WithCSVTrimSpace(true))
	if err != nil {
		return nil, fmt.Errorf("country table: %w", err)
	}
	defer reader.Close()

	names := make(map[string]string)
	for {
		row, err := reader.Read(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("country table: %w", err)
		}
		code, name := row["iso3"], row["name"]
		if len(code) != 3 || name == "" {
			return nil, fmt.Errorf("country table: bad entry %q,%q", code, name)
		}
		names[code] = name
	}
	return NewTable(names), nil
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the built-in ISO3 table. It panics if the embedded table is
// malformed.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Load(context.Background(), bytes.NewReader(iso3CSV))
		if err != nil {
			panic(err)
		}
		defaultTable = t
	})
	return defaultTable
}
