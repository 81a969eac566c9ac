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

package emit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"

	"github.com/aaronlmathis/sitrep"
	"github.com/aaronlmathis/sitrep/aggregate"
	"github.com/aaronlmathis/sitrep/config"
	"github.com/aaronlmathis/sitrep/core"
	"github.com/aaronlmathis/sitrep/hxl"
	"github.com/aaronlmathis/sitrep/validators"
	"github.com/aaronlmathis/sitrep/writers"
)

// Package emit publishes joined country data as dataset files and manifests.

// Format selects the file format of emitted resources.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSONL   Format = "jsonl"
	FormatParquet Format = "parquet"
)

// ParseFormat validates a format name. Matching ignores case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSONL, FormatParquet:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q", s)
	}
}

// CountryColumn is added to every row loaded into the database.
const CountryColumn = "country"

// EmitError records which country and file an emission failure belongs to.
type EmitError struct {
	Op      string
	Country string
	Path    string
	Err     error
}

func (e *EmitError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("emit %s %s (%s): %v", e.Op, e.Country, e.Path, e.Err)
	}
	return fmt.Sprintf("emit %s %s: %v", e.Op, e.Country, e.Err)
}

func (e *EmitError) Unwrap() error {
	return e.Err
}

// Uploader publishes an emitted file under a name relative to the output root.
// writers.S3Uploader implements it.
type Uploader interface {
	UploadFile(ctx context.Context, localPath, rel string) (string, error)
}

// EmitterStats holds emission statistics.
type EmitterStats struct {
	CountriesWritten int
	CountriesSkipped int
	FilesWritten     int
	FilesUploaded    int
	RowsLoaded       int64
}

// EmitterOptions configures an Emitter.
type EmitterOptions struct {
	Format       Format
	Dataset      config.Dataset
	Reports      config.Reports
	QCIndicators interface{}
	Concat       bool
	Uploader     Uploader
	Database     core.DataSink
	Validator    *validators.DataQualityValidator
	RunID        string
	Logger       zerolog.Logger
	now          func() time.Time
}

// EmitterOption is a functional option for Emitter.
type EmitterOption func(*EmitterOptions)

// WithFormat sets the resource format. The default is CSV.
func WithFormat(format Format) EmitterOption {
	return func(o *EmitterOptions) {
		o.Format = format
	}
}

// WithDataset sets the dataset description.
func WithDataset(dataset config.Dataset) EmitterOption {
	return func(o *EmitterOptions) {
		o.Dataset = dataset
	}
}

// WithReports sets the report configuration used to name per-report resources.
func WithReports(reports config.Reports) EmitterOption {
	return func(o *EmitterOptions) {
		o.Reports = reports
	}
}

// WithQCIndicators sets the qc_indicators configuration. It is copied into every
// manifest along with which indicators have data for that country.
func WithQCIndicators(qc interface{}) EmitterOption {
	return func(o *EmitterOptions) {
		o.QCIndicators = qc
	}
}

// WithConcat also writes every report's rows stacked into one long table.
func WithConcat(concat bool) EmitterOption {
	return func(o *EmitterOptions) {
		o.Concat = concat
	}
}

// WithUploader publishes every emitted file after it is written.
func WithUploader(u Uploader) EmitterOption {
	return func(o *EmitterOptions) {
		o.Uploader = u
	}
}

// WithDatabase loads the joined rows of every country into sink, tagged with
// a country column. The Emitter closes the sink on Close.
func WithDatabase(sink core.DataSink) EmitterOption {
	return func(o *EmitterOptions) {
		o.Database = sink
	}
}

// WithValidator rejects a country whose joined rows fail v.
func WithValidator(v *validators.DataQualityValidator) EmitterOption {
	return func(o *EmitterOptions) {
		o.Validator = v
	}
}

// WithRunID sets the run identifier written to manifests. The default is a random UUID.
func WithRunID(id string) EmitterOption {
	return func(o *EmitterOptions) {
		o.RunID = id
	}
}

// WithLogger sets the emitter logger.
func WithLogger(logger zerolog.Logger) EmitterOption {
	return func(o *EmitterOptions) {
		o.Logger = logger
	}
}

// Emitter implements sitrep.Sink by writing one directory per country under
// its output root: the joined resource, one resource per report, an optional
// long table and a dataset manifest.
type Emitter struct {
	root       string
	opts       *EmitterOptions
	indicators []validators.Indicator
	stats      EmitterStats
	mu         sync.Mutex
}

var _ sitrep.Sink = (*Emitter)(nil)

// NewEmitter creates the output root and returns an Emitter writing into it.
func NewEmitter(root string, options ...EmitterOption) (*Emitter, error) {
	opts := &EmitterOptions{
		Format:  FormatCSV,
		Dataset: config.DefaultDataset(),
		Logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, option := range options {
		option(opts)
	}
	if _, err := ParseFormat(string(opts.Format)); err != nil {
		return nil, &EmitError{Op: "configure", Err: err}
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	indicators, err := validators.ParseIndicators(opts.QCIndicators)
	if err != nil {
		return nil, &EmitError{Op: "configure", Err: err}
	}

	expanded, err := homedir.Expand(root)
	if err != nil {
		return nil, &EmitError{Op: "configure", Path: root, Err: err}
	}
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return nil, &EmitError{Op: "create_directory", Path: expanded, Err: err}
	}
	return &Emitter{root: expanded, opts: opts, indicators: indicators}, nil
}

// Root returns the expanded output directory.
func (e *Emitter) Root() string {
	return e.root
}

// Stats returns a copy of the emission statistics.
func (e *Emitter) Stats() EmitterStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Emit implements sitrep.Sink. A country without joined rows is skipped.
func (e *Emitter) Emit(ctx context.Context, out sitrep.CountryOutput) error {
	iso := strings.ToLower(out.Country.ISO3)
	ds := e.opts.Dataset
	name := fmt.Sprintf(ds.NameTemplate, out.Country.Name)
	log := e.opts.Logger.With().Str("country", out.Country.ISO3).Logger()

	if len(out.Rows) == 0 {
		log.Warn().Msgf("%s has no data", name)
		e.mu.Lock()
		e.stats.CountriesSkipped++
		e.mu.Unlock()
		return nil
	}

	if e.opts.Validator != nil {
		if err := e.opts.Validator.Validate(out.Rows); err != nil {
			return &EmitError{Op: "validate", Country: out.Country.ISO3, Err: err}
		}
	}

	title := fmt.Sprintf(ds.TitleTemplate, out.Country.Name)
	log.Info().Str("title", title).Msg("creating dataset")

	dir := filepath.Join(e.root, iso)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &EmitError{Op: "create_directory", Country: out.Country.ISO3, Path: dir, Err: err}
	}

	slug := Slugify(name)
	manifest := &Manifest{
		Name:            slug,
		Title:           title,
		Country:         out.Country,
		Maintainer:      ds.Maintainer,
		Organization:    ds.Organization,
		Tags:            append([]string(nil), ds.Tags...),
		UpdateFrequency: ds.UpdateFrequency,
		Showcase:        Showcase{Name: slug + "-showcase", Title: name},
		QCIndicators:    e.opts.QCIndicators,
		QuickCharts:     validators.IndicatorCoverage(e.indicators, out.ReportRows),
		RunID:           e.opts.RunID,
		GeneratedAt:     e.opts.now().UTC(),
	}
	if start, end, ok := aggregate.DateRange(out.Rows); ok {
		manifest.DateRange = &DateRange{Start: start, End: end}
	}

	joined, err := e.writeResource(ctx, out.Country, dir, "covid19sitrep_"+iso, out.Headers, out.Tags, out.Rows)
	if err != nil {
		return err
	}
	joined.Name = fmt.Sprintf(ds.ResourceName, out.Country.Name)
	joined.Description = ds.ResourceDescription
	manifest.Resources = append(manifest.Resources, joined)

	if out.ReportRows != nil {
		for _, reportID := range out.ReportRows.IDs() {
			res, err := e.writeReport(ctx, out, dir, iso, reportID)
			if err != nil {
				return err
			}
			manifest.Resources = append(manifest.Resources, res)
		}

		if e.opts.Concat {
			rows, headers := aggregate.ConcatWithHeaders(out.ReportRows, out.ReportHeaders)
			res, err := e.writeResource(ctx, out.Country, dir, "covid19sitrep_long_"+iso, headers, out.Tags, rows)
			if err != nil {
				return err
			}
			res.Name = fmt.Sprintf("%s (long format)", joined.Name)
			manifest.Resources = append(manifest.Resources, res)
		}
	}

	if err := e.upload(ctx, out.Country, manifest.Resources); err != nil {
		return err
	}

	manifestPath := filepath.Join(dir, "dataset_"+iso+".json")
	if err := writeManifest(manifestPath, manifest); err != nil {
		return &EmitError{Op: "write_manifest", Country: out.Country.ISO3, Path: manifestPath, Err: err}
	}
	if e.opts.Uploader != nil {
		if _, err := e.opts.Uploader.UploadFile(ctx, manifestPath, e.rel(manifestPath)); err != nil {
			return &EmitError{Op: "upload", Country: out.Country.ISO3, Path: manifestPath, Err: err}
		}
	}

	if err := e.load(ctx, out); err != nil {
		return err
	}

	e.mu.Lock()
	e.stats.CountriesWritten++
	e.stats.FilesWritten += len(manifest.Resources) + 1
	if e.opts.Uploader != nil {
		e.stats.FilesUploaded += len(manifest.Resources) + 1
	}
	e.mu.Unlock()

	log.Info().Int("rows", len(out.Rows)).Int("resources", len(manifest.Resources)).Msg("dataset written")
	return nil
}

// Close flushes and closes the database sink, if any.
func (e *Emitter) Close() error {
	if e.opts.Database == nil {
		return nil
	}
	if err := e.opts.Database.Flush(); err != nil {
		e.opts.Database.Close()
		return &EmitError{Op: "load", Err: err}
	}
	if err := e.opts.Database.Close(); err != nil {
		return &EmitError{Op: "load", Err: err}
	}
	return nil
}

func (e *Emitter) writeReport(ctx context.Context, out sitrep.CountryOutput, dir, iso, reportID string) (Resource, error) {
	rows := out.ReportRows.Rows(reportID)
	headers := out.ReportHeaders[reportID]
	if len(headers) == 0 {
		single := core.NewReportSet()
		single.Append(reportID, rows...)
		_, headers = aggregate.Concat(single)
	}

	base := strings.ToLower(reportID)
	name := reportID
	if report, ok := e.opts.Reports.ByID(reportID); ok {
		base = report.Filename
		if report.Name != "" {
			name = report.Name
		}
	}

	res, err := e.writeResource(ctx, out.Country, dir, base+"_"+iso, headers, hxl.Default, rows)
	if err != nil {
		return Resource{}, err
	}
	res.Name = name
	res.Report = reportID
	if report, ok := e.opts.Reports.ByID(reportID); ok {
		res.Description = report.Description
	}
	return res, nil
}

// writeResource writes rows to dir/base.<ext> and describes the result.
func (e *Emitter) writeResource(ctx context.Context, country core.Country, dir, base string, headers []string, tags hxl.Tags, rows []core.Row) (Resource, error) {
	path := filepath.Join(dir, base+"."+string(e.opts.Format))
	fail := func(op string, err error) (Resource, error) {
		return Resource{}, &EmitError{Op: op, Country: country.ISO3, Path: path, Err: err}
	}

	sink, err := e.openSink(path, headers, tags)
	if err != nil {
		return fail("open", err)
	}
	for _, row := range rows {
		if err := sink.Write(ctx, row); err != nil {
			sink.Close()
			return fail("write", err)
		}
	}
	if err := sink.Close(); err != nil {
		return fail("close", err)
	}

	sum, err := FileChecksum(path)
	if err != nil {
		return fail("checksum", err)
	}
	return Resource{
		File:     e.rel(path),
		Format:   e.opts.Format,
		Rows:     len(rows),
		Checksum: sum,
	}, nil
}

func (e *Emitter) openSink(path string, headers []string, tags hxl.Tags) (core.DataSink, error) {
	if e.opts.Format == FormatParquet {
		meta := make(map[string]string)
		for _, h := range headers {
			if tag, ok := tags.Get(h); ok {
				meta["hxl:"+h] = tag
			}
		}
		return writers.NewParquetWriter(path, writers.WithFieldOrder(headers), writers.WithMetadata(meta))
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if e.opts.Format == FormatJSONL {
		return writers.NewJSONWriter(f, headers...), nil
	}
	w, err := writers.NewCSVWriter(f, writers.WithHeaders(headers), writers.WithTagRow(tags.Row(headers)))
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func (e *Emitter) upload(ctx context.Context, country core.Country, resources []Resource) error {
	if e.opts.Uploader == nil {
		return nil
	}
	for i := range resources {
		local := filepath.Join(e.root, filepath.FromSlash(resources[i].File))
		key, err := e.opts.Uploader.UploadFile(ctx, local, resources[i].File)
		if err != nil {
			return &EmitError{Op: "upload", Country: country.ISO3, Path: local, Err: err}
		}
		resources[i].Key = key
	}
	return nil
}

func (e *Emitter) load(ctx context.Context, out sitrep.CountryOutput) error {
	if e.opts.Database == nil {
		return nil
	}
	for _, row := range out.Rows {
		tagged := row.Clone()
		tagged[CountryColumn] = out.Country.ISO3
		if err := e.opts.Database.Write(ctx, tagged); err != nil {
			return &EmitError{Op: "load", Country: out.Country.ISO3, Err: err}
		}
	}
	e.mu.Lock()
	e.stats.RowsLoaded += int64(len(out.Rows))
	e.mu.Unlock()
	return nil
}

func (e *Emitter) rel(path string) string {
	rel, err := filepath.Rel(e.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// DatabaseColumns returns the table layout for loading joined rows of every
// country: the country column, the key fields, then each report's destinations.
func DatabaseColumns(reports config.Reports) []string {
	cols := append([]string{CountryColumn}, core.KeyFields()...)
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		seen[c] = struct{}{}
	}
	for _, r := range reports {
		for _, dest := range r.Destinations() {
			if _, ok := seen[dest]; ok {
				continue
			}
			seen[dest] = struct{}{}
			cols = append(cols, dest)
		}
	}
	return cols
}
