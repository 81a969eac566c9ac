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

package readers

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/aaronlmathis/sitrep/core"
)

// This file implements an S3 reader. A locator such as s3://bucket/sitrep/cv_01.csv
// names one object; a prefix without an extension reads every matching object in key
// order, so report tables split over several files come back as one table.

// S3ReaderError provides structured error information for S3 reader operations
type S3ReaderError struct {
	Op  string // Operation that failed (e.g., "list_objects", "get_object", "read")
	Key string // Object key, if known
	Err error  // Underlying error
}

func (e *S3ReaderError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("s3 reader %s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("s3 reader %s: %v", e.Op, e.Err)
}

func (e *S3ReaderError) Unwrap() error {
	return e.Err
}

// S3API is the subset of the S3 client used by S3Reader.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3ReaderStats holds statistics about the S3 reader's performance
type S3ReaderStats struct {
	ObjectsListed  int64         // Total objects discovered
	ObjectsRead    int64         // Total objects opened
	RecordsRead    int64         // Total rows read across all objects
	ReadDuration   time.Duration // Total time spent reading
	ProcessedFiles []string      // Keys opened so far
}

// S3ReaderOptions configures the S3 reader behavior
type S3ReaderOptions struct {
	Bucket         string          // S3 bucket name
	Prefix         string          // Object key or key prefix
	Suffix         string          // Key suffix filter (e.g., ".csv")
	Region         string          // AWS region
	Profile        string          // AWS profile to use
	Credentials    aws.Credentials // Explicit credentials
	EndpointURL    string          // Custom S3 endpoint (for S3-compatible services)
	ForcePathStyle bool            // Use path-style addressing
	CSVOptions     []ReaderOptionCSV
	Client         S3API // Preconfigured client; skips AWS config loading
}

// ReaderOptionS3 represents a configuration function for S3Reader
type ReaderOptionS3 func(*S3ReaderOptions)

func WithS3Bucket(bucket string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Bucket = bucket
	}
}

func WithS3Prefix(prefix string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Prefix = prefix
	}
}

func WithS3Suffix(suffix string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Suffix = suffix
	}
}

func WithS3Region(region string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Region = region
	}
}

func WithS3Profile(profile string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Profile = profile
	}
}

func WithS3Credentials(creds aws.Credentials) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Credentials = creds
	}
}

func WithS3Endpoint(endpoint string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.EndpointURL = endpoint
	}
}

func WithS3PathStyle(pathStyle bool) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.ForcePathStyle = pathStyle
	}
}

func WithS3Client(client S3API) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Client = client
	}
}

// S3Reader implements core.DataSource for reading from Amazon S3
type S3Reader struct {
	client        S3API
	keys          []string
	listed        bool
	currentIndex  int
	currentReader core.DataSource
	headers       *headerSet
	stats         S3ReaderStats
	opts          S3ReaderOptions
}

// NewS3Reader creates a new S3 reader with the specified options
func NewS3Reader(options ...ReaderOptionS3) (*S3Reader, error) {
	var opts S3ReaderOptions
	for _, option := range options {
		option(&opts)
	}

	if opts.Bucket == "" {
		return nil, &S3ReaderError{Op: "validate_options", Err: fmt.Errorf("bucket is required")}
	}

	client := opts.Client
	if client == nil {
		cfg, err := LoadAWSConfig(context.Background(), opts.Region, opts.Profile, opts.Credentials)
		if err != nil {
			return nil, &S3ReaderError{Op: "create_aws_config", Err: err}
		}
		client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			if opts.EndpointURL != "" {
				o.BaseEndpoint = aws.String(opts.EndpointURL)
			}
			o.UsePathStyle = opts.ForcePathStyle
		})
	}

	return &S3Reader{
		client:  client,
		opts:    opts,
		headers: newHeaderSet(),
	}, nil
}

// Read implements the core.DataSource interface
func (s *S3Reader) Read(ctx context.Context) (core.Row, error) {
	start := time.Now()
	defer func() {
		s.stats.ReadDuration += time.Since(start)
	}()

	select {
	case <-ctx.Done():
		return nil, &S3ReaderError{Op: "read", Err: ctx.Err()}
	default:
	}

	if !s.listed {
		if err := s.listObjects(ctx); err != nil {
			return nil, &S3ReaderError{Op: "list_objects", Err: err}
		}
	}

	for {
		if s.currentReader == nil {
			if s.currentIndex >= len(s.keys) {
				return nil, io.EOF
			}
			if err := s.openNextObject(ctx); err != nil {
				return nil, err
			}
		}

		row, err := s.currentReader.Read(ctx)
		if err == io.EOF {
			if err := s.closeCurrentReader(); err != nil {
				return nil, &S3ReaderError{Op: "close_object", Err: err}
			}
			continue
		}
		if err != nil {
			return nil, &S3ReaderError{Op: "read_record", Key: s.keys[s.currentIndex], Err: err}
		}

		s.stats.RecordsRead++
		return row, nil
	}
}

// Headers returns the union of the object headers in first-seen order.
func (s *S3Reader) Headers() []string {
	return s.headers.list()
}

// Close implements the core.DataSource interface
func (s *S3Reader) Close() error {
	return s.closeCurrentReader()
}

// Stats returns S3 reader performance statistics
func (s *S3Reader) Stats() S3ReaderStats {
	return s.stats
}

// LoadAWSConfig builds an AWS configuration from the default chain with optional
// region, profile and static credential overrides.
func LoadAWSConfig(ctx context.Context, region, profile string, creds aws.Credentials) (aws.Config, error) {
	configOpts := []func(*config.LoadOptions) error{}

	if region != "" {
		configOpts = append(configOpts, config.WithRegion(region))
	}
	if profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return aws.Config{}, err
	}

	if creds.AccessKeyID != "" {
		cfg.Credentials = aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(
				creds.AccessKeyID,
				creds.SecretAccessKey,
				creds.SessionToken,
			),
		)
	}

	return cfg, nil
}

// listObjects resolves the keys to read. A prefix with a file extension is a single key.
func (s *S3Reader) listObjects(ctx context.Context) error {
	s.listed = true

	if filepath.Ext(s.opts.Prefix) != "" {
		s.keys = []string{s.opts.Prefix}
		s.stats.ObjectsListed = 1
		return nil
	}

	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.opts.Bucket)}
	if s.opts.Prefix != "" {
		input.Prefix = aws.String(s.opts.Prefix)
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			if s.opts.Suffix != "" && !strings.HasSuffix(key, s.opts.Suffix) {
				continue
			}
			keys = append(keys, key)
		}
	}

	if len(keys) == 0 {
		return fmt.Errorf("no objects under s3://%s/%s: %w", s.opts.Bucket, s.opts.Prefix, core.ErrLocatorNotFound)
	}

	sort.Strings(keys)
	s.keys = keys
	s.stats.ObjectsListed = int64(len(keys))
	return nil
}

// openNextObject opens the next S3 object for reading
func (s *S3Reader) openNextObject(ctx context.Context) error {
	key := s.keys[s.currentIndex]

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &S3ReaderError{Op: "get_object", Key: key, Err: err}
	}

	reader, err := s.createReaderForObject(result.Body, key)
	if err != nil {
		result.Body.Close()
		return &S3ReaderError{Op: "open_object", Key: key, Err: err}
	}

	if hs, ok := reader.(core.HeaderSource); ok {
		s.headers.add(hs.Headers()...)
	}

	s.currentReader = reader
	s.stats.ObjectsRead++
	s.stats.ProcessedFiles = append(s.stats.ProcessedFiles, key)
	return nil
}

// createReaderForObject creates the appropriate reader based on file extension
func (s *S3Reader) createReaderForObject(body io.ReadCloser, key string) (core.DataSource, error) {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".json", ".jsonl", ".ndjson":
		return &headerTrackingSource{DataSource: NewJSONReader(body), into: s.headers}, nil
	default:
		return NewCSVReader(body, s.opts.CSVOptions...)
	}
}

// closeCurrentReader closes the current object reader
func (s *S3Reader) closeCurrentReader() error {
	if s.currentReader == nil {
		return nil
	}
	err := s.currentReader.Close()
	s.currentReader = nil
	s.currentIndex++
	return err
}

// headerTrackingSource forwards headers discovered while reading into a shared set.
type headerTrackingSource struct {
	core.DataSource
	into *headerSet
}

func (h *headerTrackingSource) Read(ctx context.Context) (core.Row, error) {
	row, err := h.DataSource.Read(ctx)
	if err == nil {
		if hs, ok := h.DataSource.(core.HeaderSource); ok {
			h.into.add(hs.Headers()...)
		}
	}
	return row, err
}
