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
	"io"
	"sort"

	"github.com/aaronlmathis/sitrep/core"
)

// Drain reads src to EOF and closes it. Headers come from src when it reports
// them, otherwise from the fields of the rows in first-seen order.
func Drain(ctx context.Context, src core.DataSource) (Table, error) {
	defer src.Close()

	var table Table
	for {
		row, err := src.Read(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, err
		}
		table.Rows = append(table.Rows, row)
	}

	if hs, ok := src.(core.HeaderSource); ok {
		table.Headers = hs.Headers()
	}
	if len(table.Headers) == 0 {
		table.Headers = headersFromRows(table.Rows)
	}
	return table, nil
}

func headersFromRows(rows []core.Row) []string {
	seen := make(map[string]struct{})
	var headers []string
	for _, row := range rows {
		fields := make([]string, 0, len(row))
		for field := range row {
			if _, ok := seen[field]; !ok {
				fields = append(fields, field)
			}
		}
		sort.Strings(fields)
		for _, field := range fields {
			seen[field] = struct{}{}
			headers = append(headers, field)
		}
	}
	return headers
}
