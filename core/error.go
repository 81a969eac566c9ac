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
	"errors"
	"fmt"
)

// Package core defines the error types for Sitrep.
//
// Failures propagate to the caller untouched: the pipeline never retries and never
// degrades to partial results.

// ErrLocatorNotFound is returned by sources that have nothing registered for a locator.
var ErrLocatorNotFound = errors.New("locator not found")

// SourceFetchError reports a transport, parse or missing-locator failure while
// fetching one report. It aborts the whole collection.
type SourceFetchError struct {
	Report  string // Report ID being fetched, if known
	Locator string // URL or path of the source
	Err     error  // Underlying error
}

func (e *SourceFetchError) Error() string {
	if e.Report != "" {
		return fmt.Sprintf("fetch report %s from %s: %v", e.Report, e.Locator, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Locator, e.Err)
}

func (e *SourceFetchError) Unwrap() error {
	return e.Err
}

// MissingFieldError reports a row without one of the fields required to place it.
type MissingFieldError struct {
	Field  string // Name of the absent field
	Report string // Report the row came from, if known
	Index  int    // Position of the row within its report
}

func (e *MissingFieldError) Error() string {
	if e.Report != "" {
		return fmt.Sprintf("row %d of report %s: missing field %q", e.Index, e.Report, e.Field)
	}
	return fmt.Sprintf("row %d: missing field %q", e.Index, e.Field)
}
