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

package collect

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aaronlmathis/sitrep/config"
	"github.com/aaronlmathis/sitrep/core"
	"github.com/aaronlmathis/sitrep/countries"
	"github.com/aaronlmathis/sitrep/filter"
	"github.com/aaronlmathis/sitrep/partition"
	"github.com/aaronlmathis/sitrep/source"
	"github.com/aaronlmathis/sitrep/transform"
)

// Package collect fetches every configured report and regroups the rows by country.

// Result is the outcome of one collection run.
type Result struct {
	// Countries lists the resolvable countries, sorted by code.
	Countries []core.Country
	// Data holds, per country code, the rows each report contributed.
	Data core.CountriesData
	// Headers holds each report's column list as returned by the source.
	Headers map[string][]string
}

// CollectorOptions configures a Collector.
type CollectorOptions struct {
	Lookup       countries.Lookup
	IncludeWorld bool
	Parallelism  int
	Filter       core.Filter
	Transformer  core.Transformer
	Logger       zerolog.Logger
}

// CollectorOption is a functional option for Collector.
type CollectorOption func(*CollectorOptions)

// WithLookup sets the country name lookup.
func WithLookup(lookup countries.Lookup) CollectorOption {
	return func(o *CollectorOptions) {
		o.Lookup = lookup
	}
}

// WithIncludeWorld toggles the world rollup.
func WithIncludeWorld(include bool) CollectorOption {
	return func(o *CollectorOptions) {
		o.IncludeWorld = include
	}
}

// WithParallelism fetches up to n reports at once.
func WithParallelism(n int) CollectorOption {
	return func(o *CollectorOptions) {
		o.Parallelism = n
	}
}

// WithFilter drops fetched rows the filter rejects before partitioning.
func WithFilter(f core.Filter) CollectorOption {
	return func(o *CollectorOptions) {
		o.Filter = f
	}
}

// WithTransformer rewrites fetched rows before partitioning.
func WithTransformer(t core.Transformer) CollectorOption {
	return func(o *CollectorOptions) {
		o.Transformer = t
	}
}

// WithLogger sets the collector logger.
func WithLogger(logger zerolog.Logger) CollectorOption {
	return func(o *CollectorOptions) {
		o.Logger = logger
	}
}

// Collector gathers report tables from a TabularSource.
type Collector struct {
	source source.TabularSource
	opts   *CollectorOptions
}

// NewCollector creates a Collector reading from src. The world rollup is on by
// default and reports are fetched one at a time.
func NewCollector(src source.TabularSource, options ...CollectorOption) *Collector {
	opts := &CollectorOptions{
		IncludeWorld: true,
		Parallelism:  1,
		Logger:       zerolog.Nop(),
	}
	for _, option := range options {
		option(opts)
	}
	if opts.Lookup == nil {
		opts.Lookup = countries.Default()
	}
	return &Collector{source: src, opts: opts}
}

// CollectAll fetches every report, partitions each by country and merges the
// partitions. Any failure aborts the run and no partial result is returned.
// The result does not depend on the order in which parallel fetches finish.
func (c *Collector) CollectAll(ctx context.Context, reports config.Reports) (*Result, error) {
	tables, err := c.fetchAll(ctx, reports)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Data:    make(core.CountriesData),
		Headers: make(map[string][]string, len(reports)),
	}
	var codes []string
	seen := make(map[string]struct{})

	for i, report := range reports {
		rows, err := c.prepare(ctx, report, tables[i].Rows)
		if err != nil {
			return nil, err
		}

		parts, err := partition.Partition(rows, c.opts.IncludeWorld)
		if err != nil {
			var missing *core.MissingFieldError
			if errors.As(err, &missing) {
				missing.Report = report.ID
			}
			return nil, err
		}

		for _, code := range parts.SortedCodes() {
			set, ok := result.Data[code]
			if !ok {
				set = core.NewReportSet()
				result.Data[code] = set
			}
			set.Append(report.ID, parts.Data[code]...)

			if _, ok := seen[code]; !ok {
				seen[code] = struct{}{}
				codes = append(codes, code)
			}
		}
		result.Headers[report.ID] = tables[i].Headers

		c.opts.Logger.Info().
			Str("report", report.ID).
			Int("rows", len(rows)).
			Int("countries", len(parts.Codes)).
			Msg("collected report")
	}

	result.Countries = partition.CountriesFromISOList(codes, c.opts.Lookup)
	if dropped := len(codes) - len(result.Countries); dropped > 0 {
		c.opts.Logger.Debug().Int("dropped", dropped).Msg("country codes without a known name")
	}
	return result, nil
}

func (c *Collector) fetchAll(ctx context.Context, reports config.Reports) ([]source.Table, error) {
	tables := make([]source.Table, len(reports))

	if c.opts.Parallelism <= 1 {
		for i, report := range reports {
			table, err := c.fetch(ctx, report)
			if err != nil {
				return nil, err
			}
			tables[i] = table
		}
		return tables, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Parallelism)
	for i, report := range reports {
		i, report := i, report
		g.Go(func() error {
			table, err := c.fetch(gctx, report)
			if err != nil {
				return err
			}
			tables[i] = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

func (c *Collector) fetch(ctx context.Context, report config.ReportConfig) (source.Table, error) {
	c.opts.Logger.Debug().Str("report", report.ID).Str("locator", report.URL).Msg("fetching report")

	table, err := c.source.Fetch(ctx, report.URL)
	if err == nil {
		return table, nil
	}

	var fetchErr *core.SourceFetchError
	if errors.As(err, &fetchErr) {
		return source.Table{}, &core.SourceFetchError{Report: report.ID, Locator: report.URL, Err: fetchErr.Err}
	}
	return source.Table{}, &core.SourceFetchError{Report: report.ID, Locator: report.URL, Err: err}
}

func (c *Collector) prepare(ctx context.Context, report config.ReportConfig, rows []core.Row) ([]core.Row, error) {
	var err error
	if c.opts.Transformer != nil {
		if rows, err = transform.Apply(ctx, rows, c.opts.Transformer); err != nil {
			return nil, &core.SourceFetchError{Report: report.ID, Locator: report.URL, Err: err}
		}
	}
	if c.opts.Filter != nil {
		if rows, err = filter.Apply(ctx, rows, c.opts.Filter); err != nil {
			return nil, &core.SourceFetchError{Report: report.ID, Locator: report.URL, Err: err}
		}
	}
	return rows, nil
}
