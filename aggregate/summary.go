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
	"context"
	"strconv"
	"time"

	"github.com/aaronlmathis/sitrep/core"
)

// Aggregator folds rows into a summary.
type Aggregator interface {
	// Add processes a row.
	Add(ctx context.Context, row core.Row) error
	// Result returns the summary as a row.
	Result() core.Row
	// Reset clears the aggregator state for reuse.
	Reset()
}

// Summarize feeds every row to each aggregator and merges their results.
func Summarize(ctx context.Context, rows []core.Row, aggregators ...Aggregator) (core.Row, error) {
	for _, row := range rows {
		for _, agg := range aggregators {
			if err := agg.Add(ctx, row); err != nil {
				return nil, err
			}
		}
	}

	out := make(core.Row)
	for _, agg := range aggregators {
		for k, v := range agg.Result() {
			out[k] = v
		}
	}
	return out, nil
}

// CountAggregator counts rows that have Field set to a non-empty value. An empty
// Field counts every row.
type CountAggregator struct {
	Field  string
	Output string
	count  int
}

func (c *CountAggregator) Add(ctx context.Context, row core.Row) error {
	if c.Field == "" || row[c.Field] != "" {
		c.count++
	}
	return nil
}

func (c *CountAggregator) Result() core.Row {
	return core.Row{outputName(c.Output, "count"): strconv.Itoa(c.count)}
}

func (c *CountAggregator) Reset() {
	c.count = 0
}

// MinAggregator keeps the smallest non-empty value of Field, comparing as dates
// when both sides parse as one.
type MinAggregator struct {
	Field  string
	Output string
	min    string
	set    bool
}

func (m *MinAggregator) Add(ctx context.Context, row core.Row) error {
	if v := row[m.Field]; v != "" && (!m.set || comparePeriods(v, m.min) < 0) {
		m.min = v
		m.set = true
	}
	return nil
}

func (m *MinAggregator) Result() core.Row {
	return core.Row{outputName(m.Output, "min"): m.min}
}

func (m *MinAggregator) Reset() {
	m.min = ""
	m.set = false
}

// MaxAggregator keeps the largest non-empty value of Field.
type MaxAggregator struct {
	Field  string
	Output string
	max    string
	set    bool
}

func (m *MaxAggregator) Add(ctx context.Context, row core.Row) error {
	if v := row[m.Field]; v != "" && (!m.set || comparePeriods(v, m.max) > 0) {
		m.max = v
		m.set = true
	}
	return nil
}

func (m *MaxAggregator) Result() core.Row {
	return core.Row{outputName(m.Output, "max"): m.max}
}

func (m *MaxAggregator) Reset() {
	m.max = ""
	m.set = false
}

// DateRange returns the earliest and latest TIME_PERIOD among rows. ok is false
// when no row has one.
func DateRange(rows []core.Row) (start, end string, ok bool) {
	lo := &MinAggregator{Field: core.FieldTimePeriod, Output: "start"}
	hi := &MaxAggregator{Field: core.FieldTimePeriod, Output: "end"}
	summary, _ := Summarize(context.Background(), rows, lo, hi)
	return summary["start"], summary["end"], lo.set
}

func outputName(output, fallback string) string {
	if output != "" {
		return output
	}
	return fallback
}

var periodLayouts = []string{"2006-01-02", "2006-1-2", "2006-01", "2006-1", "2006"}

func parsePeriod(s string) (time.Time, bool) {
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func comparePeriods(a, b string) int {
	ta, okA := parsePeriod(a)
	tb, okB := parsePeriod(b)
	if okA && okB {
		return ta.Compare(tb)
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
