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

package sitrep

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aaronlmathis/sitrep/aggregate"
	"github.com/aaronlmathis/sitrep/collect"
	"github.com/aaronlmathis/sitrep/config"
	"github.com/aaronlmathis/sitrep/core"
	"github.com/aaronlmathis/sitrep/hxl"
	"github.com/aaronlmathis/sitrep/source"
)

// Example usage:
//
//	p, err := sitrep.NewPipeline().
//		From(source.NewRouter()).
//		Reports(cfg.Reports).
//		To(emitter).
//		WithErrorStrategy(sitrep.SkipErrors).
//		Build()
//	if err != nil { log.Fatal(err) }
//	stats, err := p.Execute(ctx)

// PipelineBuilder provides a fluent API for constructing a Pipeline.
type PipelineBuilder struct {
	pipeline *Pipeline
}

// NewPipeline creates a new PipelineBuilder.
func NewPipeline() *PipelineBuilder {
	return &PipelineBuilder{
		pipeline: &Pipeline{
			strategy: FailFast,
			logger:   zerolog.Nop(),
		},
	}
}

// From sets the TabularSource reports are fetched from.
func (pb *PipelineBuilder) From(src source.TabularSource) *PipelineBuilder {
	pb.pipeline.source = src
	return pb
}

// Reports sets the reports to collect, in join order.
func (pb *PipelineBuilder) Reports(reports config.Reports) *PipelineBuilder {
	pb.pipeline.reports = reports
	return pb
}

// WithCollectorOptions passes options to the underlying collect.Collector.
func (pb *PipelineBuilder) WithCollectorOptions(opts ...collect.CollectorOption) *PipelineBuilder {
	pb.pipeline.collectorOpts = append(pb.pipeline.collectorOpts, opts...)
	return pb
}

// OnlyCountries restricts emission to the given codes. Matching ignores case.
func (pb *PipelineBuilder) OnlyCountries(codes ...string) *PipelineBuilder {
	if pb.pipeline.only == nil {
		pb.pipeline.only = make(map[string]struct{}, len(codes))
	}
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		pb.pipeline.only[strings.ToUpper(code)] = struct{}{}
	}
	return pb
}

// WithTags replaces the hashtag mapping. The default is hxl.Default merged
// with the tags the reports define.
func (pb *PipelineBuilder) WithTags(tags hxl.Tags) *PipelineBuilder {
	pb.pipeline.tags = &tags
	return pb
}

// To sets the Sink that receives each country.
func (pb *PipelineBuilder) To(sink Sink) *PipelineBuilder {
	pb.pipeline.sink = sink
	return pb
}

// WithErrorStrategy sets the per-country error strategy.
func (pb *PipelineBuilder) WithErrorStrategy(strategy ErrorStrategy) *PipelineBuilder {
	pb.pipeline.strategy = strategy
	return pb
}

// WithErrorHandler sets a custom handler for per-country errors.
func (pb *PipelineBuilder) WithErrorHandler(handler ErrorHandler) *PipelineBuilder {
	pb.pipeline.errorHandler = handler
	return pb
}

// WithLogger sets the pipeline logger. It is also handed to the collector.
func (pb *PipelineBuilder) WithLogger(logger zerolog.Logger) *PipelineBuilder {
	pb.pipeline.logger = logger
	return pb
}

// Build validates and constructs the Pipeline.
func (pb *PipelineBuilder) Build() (*Pipeline, error) {
	if pb.pipeline.source == nil {
		return nil, fmt.Errorf("pipeline requires a tabular source")
	}
	if pb.pipeline.sink == nil {
		return nil, fmt.Errorf("pipeline requires a sink")
	}
	if err := pb.pipeline.reports.Validate(); err != nil {
		return nil, err
	}
	return pb.pipeline, nil
}

// Stats summarizes one pipeline run.
type Stats struct {
	Reports          int
	Countries        int
	CountriesEmitted int
	CountriesSkipped int
	CountriesFailed  int
	RowsEmitted      int64
}

// Pipeline collects every report, joins each country and hands the result to a Sink.
type Pipeline struct {
	source        source.TabularSource
	reports       config.Reports
	collectorOpts []collect.CollectorOption
	only          map[string]struct{}
	tags          *hxl.Tags
	sink          Sink
	strategy      ErrorStrategy
	errorHandler  ErrorHandler
	logger        zerolog.Logger
}

// Execute runs the pipeline. A collection failure aborts before anything is
// emitted. Join and emission failures follow the configured ErrorStrategy.
func (p *Pipeline) Execute(ctx context.Context) (Stats, error) {
	stats := Stats{Reports: len(p.reports)}

	opts := append([]collect.CollectorOption{collect.WithLogger(p.logger)}, p.collectorOpts...)
	result, err := collect.NewCollector(p.source, opts...).CollectAll(ctx, p.reports)
	if err != nil {
		return stats, err
	}

	tags := hxl.Default.Merge(hxl.TagsFor(p.reports))
	if p.tags != nil {
		tags = *p.tags
	}

	var collected []error
	for _, country := range result.Countries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if !p.selected(country) {
			continue
		}
		stats.Countries++

		out, err := p.joinCountry(country, result, tags)
		if err == nil {
			err = p.sink.Emit(ctx, out)
			if err != nil {
				err = &CountryError{Country: country.ISO3, Op: "emit", Err: err}
			}
		}
		if err != nil {
			stats.CountriesFailed++
			if herr := p.handleError(ctx, country, err); herr != nil {
				return stats, herr
			}
			if p.strategy == CollectErrors {
				collected = append(collected, err)
			}
			continue
		}

		if len(out.Rows) == 0 {
			stats.CountriesSkipped++
		} else {
			stats.CountriesEmitted++
			stats.RowsEmitted += int64(len(out.Rows))
		}
		p.logger.Debug().Str("country", country.ISO3).Int("rows", len(out.Rows)).Msg("country emitted")
	}

	p.logger.Info().
		Int("countries", stats.Countries).
		Int("emitted", stats.CountriesEmitted).
		Int("failed", stats.CountriesFailed).
		Int64("rows", stats.RowsEmitted).
		Msg("pipeline finished")

	return stats, errors.Join(collected...)
}

func (p *Pipeline) selected(country core.Country) bool {
	if p.only == nil {
		return true
	}
	_, ok := p.only[strings.ToUpper(country.ISO3)]
	return ok
}

func (p *Pipeline) joinCountry(country core.Country, result *collect.Result, tags hxl.Tags) (CountryOutput, error) {
	set, ok := result.Data[country.ISO3]
	if !ok {
		set = core.NewReportSet()
	}
	rows, headers, err := aggregate.Join(set, p.reports)
	if err != nil {
		return CountryOutput{}, &CountryError{Country: country.ISO3, Op: "join", Err: err}
	}
	return CountryOutput{
		Country:       country,
		Rows:          rows,
		Headers:       headers,
		ReportRows:    set,
		ReportHeaders: result.Headers,
		Tags:          tags,
	}, nil
}

// handleError applies the error strategy to a per-country failure.
// Returns an error if processing should stop, or nil to continue.
func (p *Pipeline) handleError(ctx context.Context, country core.Country, err error) error {
	switch p.strategy {
	case SkipErrors, CollectErrors:
		p.logger.Warn().Err(err).Str("country", country.ISO3).Msg("country failed")
		if p.errorHandler != nil {
			return p.errorHandler.HandleError(ctx, country, err)
		}
		return nil
	default:
		return err
	}
}
