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

package filter

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/aaronlmathis/sitrep/core"
)

// Package filter provides composable row filters applied to fetched report tables
// before they are partitioned.

// NotEmpty keeps rows where field is present and non-empty.
func NotEmpty(field string) core.Filter {
	return core.FilterFunc(func(ctx context.Context, row core.Row) (bool, error) {
		return row[field] != "", nil
	})
}

// Equals keeps rows where field equals value.
func Equals(field, value string) core.Filter {
	return core.FilterFunc(func(ctx context.Context, row core.Row) (bool, error) {
		v, ok := row[field]
		return ok && v == value, nil
	})
}

// In keeps rows whose field is one of values. Matching ignores case.
func In(field string, values ...string) core.Filter {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToUpper(v)] = struct{}{}
	}
	return core.FilterFunc(func(ctx context.Context, row core.Row) (bool, error) {
		v, ok := row[field]
		if !ok {
			return false, nil
		}
		_, hit := set[strings.ToUpper(v)]
		return hit, nil
	})
}

// StartsWith keeps rows where field starts with prefix.
func StartsWith(field, prefix string) core.Filter {
	return core.FilterFunc(func(ctx context.Context, row core.Row) (bool, error) {
		v, ok := row[field]
		return ok && strings.HasPrefix(v, prefix), nil
	})
}

// MatchesRegex keeps rows where field matches pattern. It panics on a bad pattern.
func MatchesRegex(field, pattern string) core.Filter {
	regex := regexp.MustCompile(pattern)
	return core.FilterFunc(func(ctx context.Context, row core.Row) (bool, error) {
		v, ok := row[field]
		return ok && regex.MatchString(v), nil
	})
}

// GreaterThan keeps rows where field parses as a number above threshold.
func GreaterThan(field string, threshold float64) core.Filter {
	return core.FilterFunc(func(ctx context.Context, row core.Row) (bool, error) {
		num, ok := number(row, field)
		return ok && num > threshold, nil
	})
}

// LessThan keeps rows where field parses as a number below threshold.
func LessThan(field string, threshold float64) core.Filter {
	return core.FilterFunc(func(ctx context.Context, row core.Row) (bool, error) {
		num, ok := number(row, field)
		return ok && num < threshold, nil
	})
}

// And requires every filter to pass.
func And(filters ...core.Filter) core.Filter {
	return core.FilterFunc(func(ctx context.Context, row core.Row) (bool, error) {
		for _, f := range filters {
			include, err := f.ShouldInclude(ctx, row)
			if err != nil || !include {
				return false, err
			}
		}
		return true, nil
	})
}

// Or requires at least one filter to pass.
func Or(filters ...core.Filter) core.Filter {
	return core.FilterFunc(func(ctx context.Context, row core.Row) (bool, error) {
		for _, f := range filters {
			include, err := f.ShouldInclude(ctx, row)
			if err != nil {
				return false, err
			}
			if include {
				return true, nil
			}
		}
		return false, nil
	})
}

// Not negates filter.
func Not(filter core.Filter) core.Filter {
	return core.FilterFunc(func(ctx context.Context, row core.Row) (bool, error) {
		include, err := filter.ShouldInclude(ctx, row)
		if err != nil {
			return false, err
		}
		return !include, nil
	})
}

// Custom wraps a plain predicate.
func Custom(predicate func(core.Row) bool) core.Filter {
	return core.FilterFunc(func(ctx context.Context, row core.Row) (bool, error) {
		return predicate(row), nil
	})
}

// Apply returns the rows filter keeps, in order.
func Apply(ctx context.Context, rows []core.Row, filter core.Filter) ([]core.Row, error) {
	kept := rows[:0:0]
	for _, row := range rows {
		include, err := filter.ShouldInclude(ctx, row)
		if err != nil {
			return nil, err
		}
		if include {
			kept = append(kept, row)
		}
	}
	return kept, nil
}

func number(row core.Row, field string) (float64, bool) {
	v, ok := row[field]
	if !ok {
		return 0, false
	}
	num, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return num, err == nil
}
