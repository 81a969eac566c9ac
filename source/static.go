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

// Static serves tables from memory, keyed by locator. Fetch hands out copies so
// callers may modify the rows they receive.
type Static map[string]Table

// Fetch implements TabularSource.
func (s Static) Fetch(ctx context.Context, locator string) (Table, error) {
	if err := ctx.Err(); err != nil {
		return Table{}, &core.SourceFetchError{Locator: locator, Err: err}
	}

	table, ok := s[locator]
	if !ok {
		return Table{}, &core.SourceFetchError{Locator: locator, Err: core.ErrLocatorNotFound}
	}

	out := Table{
		Headers: append([]string(nil), table.Headers...),
		Rows:    make([]core.Row, len(table.Rows)),
	}
	for i, row := range table.Rows {
		out.Rows[i] = row.Clone()
	}
	return out, nil
}
