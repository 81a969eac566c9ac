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

package core

import (
	"context"
)

// Package core defines the core interfaces for Sitrep.
//
// This file contains the interfaces for row sources, sinks, transformation and filtering.

// DataSource defines the interface for row extraction.
// Implementations stream rows from a source (e.g., CSV, Parquet, HTTP).
type DataSource interface {
	// Read returns the next row or io.EOF when no more rows are available.
	Read(ctx context.Context) (Row, error)
	// Close releases any resources held by the data source.
	Close() error
}

// HeaderSource is implemented by data sources that know their column order.
// Headers may only be complete once the source has been read to io.EOF.
type HeaderSource interface {
	Headers() []string
}

// DataSink defines the interface for row loading.
// Implementations write rows to a destination (e.g., CSV, Parquet, PostgreSQL).
type DataSink interface {
	// Write outputs a single row to the sink.
	Write(ctx context.Context, row Row) error
	// Flush ensures all buffered data is written to the sink.
	Flush() error
	// Close releases any resources held by the data sink.
	Close() error
}

// Transformer modifies rows after they are fetched and before they are partitioned.
type Transformer interface {
	// Transform applies the transformation to a row and returns the result.
	Transform(ctx context.Context, row Row) (Row, error)
}

// Filter determines whether a fetched row takes part in partitioning at all.
type Filter interface {
	// ShouldInclude returns true if the row should be kept.
	ShouldInclude(ctx context.Context, row Row) (bool, error)
}
