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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aaronlmathis/sitrep"
	"github.com/aaronlmathis/sitrep/collect"
	"github.com/aaronlmathis/sitrep/config"
	"github.com/aaronlmathis/sitrep/emit"
	"github.com/aaronlmathis/sitrep/readers"
	"github.com/aaronlmathis/sitrep/source"
	"github.com/aaronlmathis/sitrep/validators"
	"github.com/aaronlmathis/sitrep/writers"
)

type options struct {
	configPath      string
	outDir          string
	format          string
	parallel        int
	countries       string
	noWorld         bool
	concat          bool
	keepGoing       bool
	validate        bool
	requestInterval time.Duration
	s3Bucket        string
	s3Prefix        string
	s3Region        string
	s3Profile       string
	pgDSN           string
	pgTable         string
	logLevel        string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("sitrep", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "config/project_configuration.yml", "Path to the project configuration")
	fs.StringVar(&opts.outDir, "out", "out", "Directory datasets are written to")
	fs.StringVar(&opts.format, "format", "csv", "Resource format: csv|jsonl|parquet")
	fs.IntVar(&opts.parallel, "parallel", 1, "Number of reports fetched at once")
	fs.StringVar(&opts.countries, "countries", "", "Comma separated ISO3 codes to emit (default all)")
	fs.BoolVar(&opts.noWorld, "no-world", false, "Skip the world dataset")
	fs.BoolVar(&opts.concat, "concat", false, "Also write each country's reports stacked into one long table")
	fs.BoolVar(&opts.keepGoing, "keep-going", false, "Continue with the next country when one fails")
	fs.BoolVar(&opts.validate, "validate", false, "Reject countries whose joined rows fail data quality checks")
	fs.DurationVar(&opts.requestInterval, "request-interval", 0, "Minimum delay between HTTP requests")
	fs.StringVar(&opts.s3Bucket, "s3-bucket", "", "Upload emitted files to this bucket")
	fs.StringVar(&opts.s3Prefix, "s3-prefix", "", "Key prefix for uploaded files")
	fs.StringVar(&opts.s3Region, "s3-region", "", "AWS region override")
	fs.StringVar(&opts.s3Profile, "s3-profile", "", "AWS shared config profile")
	fs.StringVar(&opts.pgDSN, "pg-dsn", "", "Load joined rows into PostgreSQL")
	fs.StringVar(&opts.pgTable, "pg-table", "covid19sitrep", "PostgreSQL table name")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug|info|warn|error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.parallel < 1 {
		return nil, fmt.Errorf("-parallel must be at least 1")
	}
	if opts.s3Prefix != "" && opts.s3Bucket == "" {
		return nil, fmt.Errorf("-s3-prefix requires -s3-bucket")
	}
	return opts, nil
}

func (o *options) countryCodes() []string {
	if o.countries == "" {
		return nil
	}
	return strings.Split(o.countries, ",")
}

func newLogger(level string, runID string, out io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().
		Timestamp().
		Str("run_id", runID).
		Logger(), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "sitrep:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger, err := newLogger(opts.logLevel, runID, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	format, err := emit.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	emitOpts := []emit.EmitterOption{
		emit.WithFormat(format),
		emit.WithDataset(cfg.Dataset),
		emit.WithReports(cfg.Reports),
		emit.WithQCIndicators(cfg.QCIndicators),
		emit.WithConcat(opts.concat),
		emit.WithRunID(runID),
		emit.WithLogger(logger),
	}

	if opts.validate {
		var valueColumns []string
		for _, r := range cfg.Reports {
			valueColumns = append(valueColumns, r.Destinations()...)
		}
		emitOpts = append(emitOpts, emit.WithValidator(validators.SitrepValidator(valueColumns)))
	}

	if opts.s3Bucket != "" {
		awsCfg, err := readers.LoadAWSConfig(ctx, opts.s3Region, opts.s3Profile, aws.Credentials{})
		if err != nil {
			return fmt.Errorf("load aws config: %w", err)
		}
		uploader, err := writers.NewS3Uploader(s3.NewFromConfig(awsCfg), opts.s3Bucket, opts.s3Prefix)
		if err != nil {
			return err
		}
		emitOpts = append(emitOpts, emit.WithUploader(uploader))
	}

	if opts.pgDSN != "" {
		db, err := writers.NewPostgresWriter(
			writers.WithPostgresDSN(opts.pgDSN),
			writers.WithTableName(opts.pgTable),
			writers.WithColumns(emit.DatabaseColumns(cfg.Reports)),
			writers.WithCreateTable(true),
		)
		if err != nil {
			return err
		}
		emitOpts = append(emitOpts, emit.WithDatabase(db))
	}

	emitter, err := emit.NewEmitter(opts.outDir, emitOpts...)
	if err != nil {
		return err
	}

	router := source.NewRouter(
		source.WithRateLimit(opts.requestInterval),
		source.WithLogger(logger),
	)

	builder := sitrep.NewPipeline().
		From(router).
		Reports(cfg.Reports).
		WithCollectorOptions(
			collect.WithIncludeWorld(cfg.IncludeWorld && !opts.noWorld),
			collect.WithParallelism(opts.parallel),
		).
		To(emitter).
		WithLogger(logger)
	if codes := opts.countryCodes(); codes != nil {
		builder = builder.OnlyCountries(codes...)
	}
	if opts.keepGoing {
		builder = builder.WithErrorStrategy(sitrep.CollectErrors)
	}

	pipeline, err := builder.Build()
	if err != nil {
		emitter.Close()
		return err
	}

	logger.Info().Str("config", opts.configPath).Int("reports", len(cfg.Reports)).Msg("starting run")
	stats, runErr := pipeline.Execute(ctx)
	closeErr := emitter.Close()
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return closeErr
	}

	es := emitter.Stats()
	logger.Info().
		Int("countries", stats.Countries).
		Int("datasets", es.CountriesWritten).
		Int("skipped", es.CountriesSkipped).
		Int("files", es.FilesWritten).
		Int("uploaded", es.FilesUploaded).
		Int64("rows_loaded", es.RowsLoaded).
		Str("out", emitter.Root()).
		Msg("run complete")
	return nil
}
