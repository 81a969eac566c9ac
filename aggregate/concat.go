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

package aggregate

import (
	"sort"

	"github.com/aaronlmathis/sitrep/core"
)

// Concat stacks the rows of every report in report order, unchanged. Headers are
// the union of row fields in first-seen order; fields new to a row are taken in
// sorted order since rows carry no column order of their own.
func Concat(rows *core.ReportSet) ([]core.Row, []string) {
	headers := newOrderedSet()
	var out []core.Row

	for _, reportID := range rows.IDs() {
		for _, row := range rows.Rows(reportID) {
			var fresh []string
			for field := range row {
				if _, ok := headers.seen[field]; !ok {
					fresh = append(fresh, field)
				}
			}
			sort.Strings(fresh)
			headers.add(fresh...)
			out = append(out, row.Clone())
		}
	}
	return out, headers.list()
}

// ConcatWithHeaders is Concat with column order taken from each report's own
// header list, as returned by the source.
func ConcatWithHeaders(rows *core.ReportSet, reportHeaders map[string][]string) ([]core.Row, []string) {
	headers := newOrderedSet()
	for _, reportID := range rows.IDs() {
		if len(rows.Rows(reportID)) > 0 {
			headers.add(reportHeaders[reportID]...)
		}
	}

	out, derived := Concat(rows)
	headers.add(derived...)
	return out, headers.list()
}
