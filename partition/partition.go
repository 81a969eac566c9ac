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

package partition

import (
	"sort"

	"github.com/aaronlmathis/sitrep/core"
	"github.com/aaronlmathis/sitrep/countries"
)

// Package partition splits one report's rows by the country in their REF_AREA field.

// Result holds the rows of one report grouped by country code.
type Result struct {
	// Codes is every code that received a bucket, including core.WorldCode when
	// the world rollup was requested.
	Codes map[string]struct{}
	// Data holds each bucket's rows in arrival order.
	Data map[string][]core.Row
}

// Partition groups rows by REF_AREA. With includeWorld every row is also added to
// the core.WorldCode bucket, which exists even when rows is empty.
func Partition(rows []core.Row, includeWorld bool) (*Result, error) {
	result := &Result{
		Codes: make(map[string]struct{}),
		Data:  make(map[string][]core.Row),
	}
	if includeWorld {
		result.Codes[core.WorldCode] = struct{}{}
		result.Data[core.WorldCode] = []core.Row{}
	}

	for i, row := range rows {
		code, err := row.Require(core.FieldRefArea)
		if err != nil {
			return nil, &core.MissingFieldError{Field: core.FieldRefArea, Index: i}
		}

		result.Codes[code] = struct{}{}
		result.Data[code] = append(result.Data[code], row)
		if includeWorld {
			result.Data[core.WorldCode] = append(result.Data[core.WorldCode], row)
		}
	}

	return result, nil
}

// SortedCodes returns the codes in plain string order.
func (r *Result) SortedCodes() []string {
	codes := make([]string, 0, len(r.Codes))
	for code := range r.Codes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// CountriesFromISOList turns codes into countries sorted by code. Duplicates
// collapse, core.WorldCode becomes core.WorldName without a lookup, and codes
// the lookup does not know are left out.
func CountriesFromISOList(codes []string, lookup countries.Lookup) []core.Country {
	unique := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		unique[code] = struct{}{}
	}

	sorted := make([]string, 0, len(unique))
	for code := range unique {
		sorted = append(sorted, code)
	}
	sort.Strings(sorted)

	out := make([]core.Country, 0, len(sorted))
	for _, code := range sorted {
		if code == core.WorldCode {
			out = append(out, core.Country{ISO3: core.WorldCode, Name: core.WorldName})
			continue
		}
		name, ok := lookup.NameFor(code)
		if !ok {
			continue
		}
		out = append(out, core.Country{ISO3: code, Name: name})
	}
	return out
}
