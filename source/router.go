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
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aaronlmathis/sitrep/core"
	"github.com/aaronlmathis/sitrep/readers"
)

// RouterOptions configures how a Router builds readers for each locator kind.
type RouterOptions struct {
	HTTPOptions  []readers.ReaderOptionHTTP
	S3Options    []readers.ReaderOptionS3
	MongoOptions []readers.ReaderOptionMongo
	CSVOptions   []readers.ReaderOptionCSV
	Parquet      []readers.ReaderOption
	Limiter      *rate.Limiter
	Logger       zerolog.Logger
}

// RouterOption is a functional option for Router.
type RouterOption func(*RouterOptions)

// WithHTTPOptions appends options passed to every HTTP reader.
func WithHTTPOptions(options ...readers.ReaderOptionHTTP) RouterOption {
	return func(o *RouterOptions) {
		o.HTTPOptions = append(o.HTTPOptions, options...)
	}
}

// WithS3Options appends options passed to every S3 reader.
func WithS3Options(options ...readers.ReaderOptionS3) RouterOption {
	return func(o *RouterOptions) {
		o.S3Options = append(o.S3Options, options...)
	}
}

// WithMongoOptions appends options passed to every MongoDB reader.
func WithMongoOptions(options ...readers.ReaderOptionMongo) RouterOption {
	return func(o *RouterOptions) {
		o.MongoOptions = append(o.MongoOptions, options...)
	}
}

// WithCSVOptions appends options used for local CSV files and CSV over HTTP.
func WithCSVOptions(options ...readers.ReaderOptionCSV) RouterOption {
	return func(o *RouterOptions) {
		o.CSVOptions = append(o.CSVOptions, options...)
	}
}

// WithParquetOptions appends options passed to every Parquet reader.
func WithParquetOptions(options ...readers.ReaderOption) RouterOption {
	return func(o *RouterOptions) {
		o.Parquet = append(o.Parquet, options...)
	}
}

// WithRateLimit spaces HTTP requests at least interval apart across all readers
// created by the router.
func WithRateLimit(interval time.Duration) RouterOption {
	return func(o *RouterOptions) {
		if interval > 0 {
			o.Limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}

// WithLogger sets the router logger.
func WithLogger(logger zerolog.Logger) RouterOption {
	return func(o *RouterOptions) {
		o.Logger = logger
	}
}

// Router is a TabularSource that picks a reader from the shape of the locator:
//
//	http://, https://            HTTP (CSV or JSON)
//	s3://bucket/key-or-prefix    S3
//	mongodb://host/db/collection MongoDB
//	*.parquet                    local Parquet file
//	*.json, *.jsonl, *.ndjson    local JSON lines file
//	anything else                local CSV file
type Router struct {
	opts *RouterOptions
}

// NewRouter creates a Router.
func NewRouter(options ...RouterOption) *Router {
	opts := &RouterOptions{Logger: zerolog.Nop()}
	for _, option := range options {
		option(opts)
	}
	return &Router{opts: opts}
}

// Fetch implements TabularSource.
func (r *Router) Fetch(ctx context.Context, locator string) (Table, error) {
	src, err := r.open(locator)
	if err != nil {
		return Table{}, &core.SourceFetchError{Locator: locator, Err: err}
	}

	start := time.Now()
	table, err := Drain(ctx, src)
	if err != nil {
		return Table{}, &core.SourceFetchError{Locator: locator, Err: err}
	}

	r.opts.Logger.Debug().
		Str("locator", locator).
		Int("rows", len(table.Rows)).
		Dur("elapsed", time.Since(start)).
		Msg("fetched table")
	return table, nil
}

func (r *Router) open(locator string) (core.DataSource, error) {
	scheme := ""
	if i := strings.Index(locator, "://"); i > 0 {
		scheme = strings.ToLower(locator[:i])
	}

	switch scheme {
	case "http", "https":
		options := append([]readers.ReaderOptionHTTP{readers.WithHTTPCSVOptions(r.opts.CSVOptions...)}, r.opts.HTTPOptions...)
		if r.opts.Limiter != nil {
			options = append(options, readers.WithHTTPLimiter(r.opts.Limiter))
		}
		return readers.NewHTTPReader(locator, options...)
	case "s3":
		bucket, key, err := parseS3Locator(locator)
		if err != nil {
			return nil, err
		}
		options := append([]readers.ReaderOptionS3{readers.WithS3Bucket(bucket), readers.WithS3Prefix(key)}, r.opts.S3Options...)
		return readers.NewS3Reader(options...)
	case "mongodb", "mongodb+srv":
		uri, database, collection, err := parseMongoLocator(locator)
		if err != nil {
			return nil, err
		}
		options := append([]readers.ReaderOptionMongo{
			readers.WithMongoURI(uri),
			readers.WithMongoDB(database),
			readers.WithMongoCollection(collection),
		}, r.opts.MongoOptions...)
		return readers.NewMongoReader(options...)
	case "", "file":
		return r.openFile(strings.TrimPrefix(locator, "file://"))
	default:
		return nil, fmt.Errorf("unsupported scheme %q: %w", scheme, core.ErrLocatorNotFound)
	}
}

func (r *Router) openFile(path string) (core.DataSource, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(expanded); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", expanded, core.ErrLocatorNotFound)
		}
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(expanded)) {
	case ".parquet":
		return readers.NewParquetReader(expanded, r.opts.Parquet...)
	case ".json", ".jsonl", ".ndjson":
		f, err := os.Open(expanded)
		if err != nil {
			return nil, err
		}
		return readers.NewJSONReader(f), nil
	default:
		f, err := os.Open(expanded)
		if err != nil {
			return nil, err
		}
		reader, err := readers.NewCSVReader(f, r.opts.CSVOptions...)
		if err != nil {
			f.Close()
			return nil, err
		}
		return reader, nil
	}
}

func parseS3Locator(locator string) (bucket, key string, err error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", "", err
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("s3 locator %q has no bucket", locator)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// parseMongoLocator splits mongodb://user@host:port/db/collection?opts into a
// connection URI and the database and collection names.
func parseMongoLocator(locator string) (uri, database, collection string, err error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", "", "", err
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("mongodb locator %q must name /database/collection", locator)
	}

	u.Path = "/"
	u.RawPath = ""
	return u.String(), parts[0], parts[1], nil
}
