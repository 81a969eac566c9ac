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

package sitrep

import (
	"context"

	"github.com/aaronlmathis/sitrep/core"
	"github.com/aaronlmathis/sitrep/hxl"
)

// Package sitrep wires the collection, join and emission stages into one run.
//
// This file contains the sink contract and the error handling types of the pipeline.

// CountryOutput is everything a sink needs to publish one country.
type CountryOutput struct {
	Country core.Country
	// Rows and Headers are the joined table. Headers start with the key fields.
	Rows    []core.Row
	Headers []string
	// ReportRows holds the rows each report contributed, in report order.
	ReportRows *core.ReportSet
	// ReportHeaders holds each report's column list as the source returned it.
	ReportHeaders map[string][]string
	// Tags maps joined columns to their HXL hashtags.
	Tags hxl.Tags
}

// Sink publishes joined country data.
type Sink interface {
	Emit(ctx context.Context, out CountryOutput) error
}

// SinkFunc is a function adapter for the Sink interface.
type SinkFunc func(ctx context.Context, out CountryOutput) error

// Emit implements the Sink interface for SinkFunc.
func (f SinkFunc) Emit(ctx context.Context, out CountryOutput) error {
	return f(ctx, out)
}

// ErrorStrategy defines how per-country join and emission errors are handled.
// Collection errors always stop the run.
type ErrorStrategy int

const (
	// FailFast stops processing on the first error encountered.
	FailFast ErrorStrategy = iota
	// SkipErrors continues with the next country.
	SkipErrors
	// CollectErrors continues and returns every error joined at the end.
	CollectErrors
)

// ErrorHandler is consulted for per-country errors under SkipErrors and CollectErrors.
// Returning a non-nil error stops the pipeline; returning nil continues.
type ErrorHandler interface {
	HandleError(ctx context.Context, country core.Country, err error) error
}

// ErrorHandlerFunc is a function adapter for the ErrorHandler interface.
type ErrorHandlerFunc func(ctx context.Context, country core.Country, err error) error

// HandleError implements the ErrorHandler interface for ErrorHandlerFunc.
func (f ErrorHandlerFunc) HandleError(ctx context.Context, country core.Country, err error) error {
	return f(ctx, country, err)
}

// CountryError records which country a join or emission failure belongs to.
type CountryError struct {
	Country string
	Op      string
	Err     error
}

func (e *CountryError) Error() string {
	return "sitrep: " + e.Op + " " + e.Country + ": " + e.Err.Error()
}

func (e *CountryError) Unwrap() error {
	return e.Err
}
