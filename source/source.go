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

package source

import (
	"context"

	"github.com/aaronlmathis/sitrep/core"
)

// Package source turns report locators into in-memory tables.

// Table is a fully loaded report table.
type Table struct {
	Headers []string
	Rows    []core.Row
}

// TabularSource fetches the table behind a locator. Implementations return the
// whole table or an error, never a partial set of rows.
type TabularSource interface {
	Fetch(ctx context.Context, locator string) (Table, error)
}
