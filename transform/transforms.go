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

package transform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aaronlmathis/sitrep/core"
)

// Package transform provides composable row transformations applied to fetched
// report tables. Every transformer returns a new row and leaves its input alone.

// Select keeps only the listed fields.
func Select(fields ...string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, row core.Row) (core.Row, error) {
		result := make(core.Row, len(fields))
		for _, field := range fields {
			if v, ok := row[field]; ok {
				result[field] = v
			}
		}
		return result, nil
	})
}

// Rename renames fields; keys of mapping are the old names.
func Rename(mapping map[string]string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, row core.Row) (core.Row, error) {
		result := make(core.Row, len(row))
		for k, v := range row {
			if renamed, ok := mapping[k]; ok {
				k = renamed
			}
			result[k] = v
		}
		return result, nil
	})
}

// AddField sets field to the value fn computes from the row.
func AddField(field string, fn func(core.Row) string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, row core.Row) (core.Row, error) {
		result := row.Clone()
		result[field] = fn(row)
		return result, nil
	})
}

// TrimSpace trims whitespace from the listed fields.
func TrimSpace(fields ...string) core.Transformer {
	return mapFields(strings.TrimSpace, fields)
}

// ToUpper upper-cases the listed fields.
func ToUpper(fields ...string) core.Transformer {
	return mapFields(strings.ToUpper, fields)
}

// ToLower lower-cases the listed fields.
func ToLower(fields ...string) core.Transformer {
	return mapFields(strings.ToLower, fields)
}

// RemoveFields drops the listed fields.
func RemoveFields(fields ...string) core.Transformer {
	drop := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		drop[f] = struct{}{}
	}
	return core.TransformFunc(func(ctx context.Context, row core.Row) (core.Row, error) {
		result := make(core.Row, len(row))
		for k, v := range row {
			if _, ok := drop[k]; !ok {
				result[k] = v
			}
		}
		return result, nil
	})
}

var dateLayouts = []string{"2006-01-02", "2006-1-2", "2006/01/02", "2006/1/2", "02/01/2006"}

// NormalizeDate rewrites field into YYYY-MM-DD when it parses as a day. Month
// and year periods are left as they are; anything else is an error.
func NormalizeDate(field string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, row core.Row) (core.Row, error) {
		v, ok := row[field]
		if !ok || v == "" {
			return row.Clone(), nil
		}
		result := row.Clone()
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				result[field] = t.Format("2006-01-02")
				return result, nil
			}
		}
		for _, layout := range []string{"2006-01", "2006-1", "2006"} {
			if _, err := time.Parse(layout, v); err == nil {
				return result, nil
			}
		}
		return nil, fmt.Errorf("field %s: unrecognised date %q", field, v)
	})
}

// Chain applies transformers in order.
func Chain(transformers ...core.Transformer) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, row core.Row) (core.Row, error) {
		var err error
		for _, t := range transformers {
			if row, err = t.Transform(ctx, row); err != nil {
				return nil, err
			}
		}
		return row, nil
	})
}

// Apply transforms every row, stopping at the first error.
func Apply(ctx context.Context, rows []core.Row, t core.Transformer) ([]core.Row, error) {
	out := make([]core.Row, len(rows))
	for i, row := range rows {
		transformed, err := t.Transform(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = transformed
	}
	return out, nil
}

func mapFields(fn func(string) string, fields []string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, row core.Row) (core.Row, error) {
		result := row.Clone()
		for _, field := range fields {
			if v, ok := row[field]; ok {
				result[field] = fn(v)
			}
		}
		return result, nil
	})
}
