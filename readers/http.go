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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/aaronlmathis/sitrep/core"
)

// This file implements an HTTP reader for situation report endpoints.
// It supports authentication, retries with exponential backoff, rate limiting, and
// CSV, JSON and JSON lines responses.

// Response formats understood by HTTPReader.
const (
	FormatAuto  = "auto"
	FormatCSV   = "csv"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

// HTTPReaderError provides structured error information for HTTP reader operations
type HTTPReaderError struct {
	Op         string // Operation that failed (e.g., "request", "auth", "parse")
	StatusCode int    // HTTP status code if applicable
	URL        string // URL being accessed when error occurred
	Err        error  // Underlying error
}

func (e *HTTPReaderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("http reader %s [%d] %s: %v", e.Op, e.StatusCode, e.URL, e.Err)
	}
	return fmt.Sprintf("http reader %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *HTTPReaderError) Unwrap() error {
	return e.Err
}

// HTTPReaderStats holds statistics about the HTTP reader's performance
type HTTPReaderStats struct {
	RequestCount  int64         // Total HTTP requests made
	RecordsRead   int64         // Total rows read
	BytesRead     int64         // Total bytes read
	ReadDuration  time.Duration // Total time spent reading
	LastReadTime  time.Time     // Time of last read
	RetryCount    int64         // Number of retries performed
	RateLimitHits int64         // Number of 429 responses
}

// AuthConfig defines authentication configuration
type AuthConfig struct {
	Type        string // "bearer", "basic", "apikey"
	Token       string // Bearer token
	Username    string // For basic auth
	Password    string // For basic auth
	HeaderName  string // Header carrying the API key
	HeaderValue string // API key value
	QueryParam  string // Query parameter carrying the API key
}

// HTTPReaderOptions configures the HTTP reader
type HTTPReaderOptions struct {
	Method           string            // HTTP method (default: GET)
	Headers          map[string]string // Additional headers
	QueryParams      map[string]string // Query parameters
	Auth             *AuthConfig       // Authentication configuration
	Timeout          time.Duration     // Request timeout
	RetryAttempts    int               // Number of retry attempts
	RetryDelay       time.Duration     // Base delay between retries
	Limiter          *rate.Limiter     // Shared request rate limiter
	ResponseFormat   string            // "auto", "csv", "json", "jsonl"
	DataPath         string            // Dot separated path to the row array in JSON responses
	CSVOptions       []ReaderOptionCSV // Options for CSV responses
	MaxResponseSize  int64             // Maximum response size in bytes
	ValidStatusCodes []int             // Valid HTTP status codes
	UserAgent        string            // User agent string
	CustomClient     *http.Client      // Custom HTTP client
}

// ReaderOptionHTTP is a functional option for HTTPReaderOptions
type ReaderOptionHTTP func(*HTTPReaderOptions)

func WithHTTPHeaders(headers map[string]string) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		if opts.Headers == nil {
			opts.Headers = make(map[string]string)
		}
		for k, v := range headers {
			opts.Headers[k] = v
		}
	}
}

func WithHTTPQueryParams(params map[string]string) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		if opts.QueryParams == nil {
			opts.QueryParams = make(map[string]string)
		}
		for k, v := range params {
			opts.QueryParams[k] = v
		}
	}
}

func WithHTTPAuth(auth *AuthConfig) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		opts.Auth = auth
	}
}

func WithHTTPBearerToken(token string) ReaderOptionHTTP {
	return WithHTTPAuth(&AuthConfig{Type: "bearer", Token: token})
}

func WithHTTPTimeout(timeout time.Duration) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		opts.Timeout = timeout
	}
}

func WithHTTPRetries(attempts int, delay time.Duration) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		opts.RetryAttempts = attempts
		opts.RetryDelay = delay
	}
}

// WithHTTPRateLimit allows at most one request per interval for this reader.
func WithHTTPRateLimit(interval time.Duration) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		opts.Limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// WithHTTPLimiter shares limiter between several readers talking to the same host.
func WithHTTPLimiter(limiter *rate.Limiter) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		opts.Limiter = limiter
	}
}

func WithHTTPResponseFormat(format string) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		opts.ResponseFormat = format
	}
}

func WithHTTPDataPath(path string) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		opts.DataPath = path
	}
}

func WithHTTPCSVOptions(options ...ReaderOptionCSV) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		opts.CSVOptions = append(opts.CSVOptions, options...)
	}
}

func WithHTTPUserAgent(userAgent string) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		opts.UserAgent = userAgent
	}
}

func WithHTTPClient(client *http.Client) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		opts.CustomClient = client
	}
}

// HTTPReader implements core.DataSource for a single tabular HTTP resource.
// The whole response is fetched and parsed on the first Read.
type HTTPReader struct {
	url     string
	client  *http.Client
	opts    *HTTPReaderOptions
	stats   HTTPReaderStats
	rows    []core.Row
	headers []string
	index   int
	loaded  bool
}

// NewHTTPReader creates a new HTTP reader with configurable options
func NewHTTPReader(rawURL string, options ...ReaderOptionHTTP) (*HTTPReader, error) {
	opts := &HTTPReaderOptions{
		Method:           http.MethodGet,
		Headers:          make(map[string]string),
		QueryParams:      make(map[string]string),
		Timeout:          30 * time.Second,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
		ResponseFormat:   FormatAuto,
		MaxResponseSize:  100 * 1024 * 1024, // 100MB
		ValidStatusCodes: []int{http.StatusOK},
		UserAgent:        "Sitrep-HTTPReader/1.0",
	}

	for _, option := range options {
		option(opts)
	}

	if _, err := url.Parse(rawURL); err != nil {
		return nil, &HTTPReaderError{Op: "parse_url", URL: rawURL, Err: err}
	}

	client := opts.CustomClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &HTTPReader{
		url:    rawURL,
		client: client,
		opts:   opts,
	}, nil
}

// Read implements the core.DataSource interface
func (hr *HTTPReader) Read(ctx context.Context) (core.Row, error) {
	start := time.Now()
	defer func() {
		hr.stats.ReadDuration += time.Since(start)
		hr.stats.LastReadTime = time.Now()
	}()

	select {
	case <-ctx.Done():
		return nil, &HTTPReaderError{Op: "read", URL: hr.url, Err: ctx.Err()}
	default:
	}

	if !hr.loaded {
		if err := hr.load(ctx); err != nil {
			return nil, err
		}
	}

	if hr.index >= len(hr.rows) {
		return nil, io.EOF
	}

	row := hr.rows[hr.index]
	hr.index++
	hr.stats.RecordsRead++
	return row, nil
}

// Headers returns the column order of the response. It is empty before the first Read.
func (hr *HTTPReader) Headers() []string {
	return append([]string(nil), hr.headers...)
}

// Close implements the core.DataSource interface
func (hr *HTTPReader) Close() error {
	hr.rows = nil
	return nil
}

// Stats returns HTTP reader statistics
func (hr *HTTPReader) Stats() HTTPReaderStats {
	return hr.stats
}

func (hr *HTTPReader) load(ctx context.Context) error {
	requestURL, err := hr.requestURL()
	if err != nil {
		return &HTTPReaderError{Op: "build_url", URL: hr.url, Err: err}
	}

	data, contentType, err := hr.executeRequestWithRetry(ctx, requestURL)
	if err != nil {
		return err
	}

	format := resolveFormat(hr.opts.ResponseFormat, contentType, requestURL)
	headers, rows, err := hr.parseResponse(ctx, format, data)
	if err != nil {
		return &HTTPReaderError{Op: "parse", URL: requestURL, Err: err}
	}

	hr.headers = headers
	hr.rows = rows
	hr.loaded = true
	return nil
}

// requestURL merges configured query parameters into the base URL
func (hr *HTTPReader) requestURL() (string, error) {
	u, err := url.Parse(hr.url)
	if err != nil {
		return "", err
	}
	if len(hr.opts.QueryParams) == 0 {
		return u.String(), nil
	}
	q := u.Query()
	for k, v := range hr.opts.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// executeRequestWithRetry executes HTTP request with retry logic
func (hr *HTTPReader) executeRequestWithRetry(ctx context.Context, requestURL string) ([]byte, string, error) {
	var lastErr error

	for attempt := 0; attempt <= hr.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			delay := hr.opts.RetryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, "", &HTTPReaderError{Op: "retry", URL: requestURL, Err: ctx.Err()}
			}
			hr.stats.RetryCount++
		}

		if hr.opts.Limiter != nil {
			if err := hr.opts.Limiter.Wait(ctx); err != nil {
				return nil, "", &HTTPReaderError{Op: "rate_limit", URL: requestURL, Err: err}
			}
		}

		data, contentType, err := hr.executeRequest(ctx, requestURL)
		if err == nil {
			return data, contentType, nil
		}
		lastErr = err

		var httpErr *HTTPReaderError
		if errors.As(err, &httpErr) && httpErr.StatusCode > 0 {
			if httpErr.StatusCode == http.StatusTooManyRequests {
				hr.stats.RateLimitHits++
				continue
			}
			if httpErr.StatusCode >= 500 {
				continue
			}
			// Don't retry client errors (4xx except 429)
			break
		}
	}

	return nil, "", lastErr
}

// executeRequest executes a single HTTP request
func (hr *HTTPReader) executeRequest(ctx context.Context, requestURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, hr.opts.Method, requestURL, nil)
	if err != nil {
		return nil, "", &HTTPReaderError{Op: "create_request", URL: requestURL, Err: err}
	}

	req.Header.Set("User-Agent", hr.opts.UserAgent)
	for k, v := range hr.opts.Headers {
		req.Header.Set(k, v)
	}

	if err := hr.addAuthentication(req); err != nil {
		return nil, "", &HTTPReaderError{Op: "auth", URL: requestURL, Err: err}
	}

	hr.stats.RequestCount++
	resp, err := hr.client.Do(req)
	if err != nil {
		return nil, "", &HTTPReaderError{Op: "request", URL: requestURL, Err: err}
	}
	defer resp.Body.Close()

	if !hr.isValidStatusCode(resp.StatusCode) {
		return nil, "", &HTTPReaderError{
			Op:         "status_check",
			URL:        requestURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	// Read one byte past the limit so oversized bodies are detected, not truncated
	data, err := io.ReadAll(io.LimitReader(resp.Body, hr.opts.MaxResponseSize+1))
	if err != nil {
		return nil, "", &HTTPReaderError{Op: "read_response", URL: requestURL, Err: err}
	}
	if int64(len(data)) > hr.opts.MaxResponseSize {
		return nil, "", &HTTPReaderError{
			Op:  "read_response",
			URL: requestURL,
			Err: fmt.Errorf("response exceeds %d bytes", hr.opts.MaxResponseSize),
		}
	}

	hr.stats.BytesRead += int64(len(data))
	return data, resp.Header.Get("Content-Type"), nil
}

// addAuthentication adds authentication to the request
func (hr *HTTPReader) addAuthentication(req *http.Request) error {
	auth := hr.opts.Auth
	if auth == nil {
		return nil
	}

	switch auth.Type {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	case "basic":
		req.SetBasicAuth(auth.Username, auth.Password)
	case "apikey":
		if auth.HeaderName != "" {
			req.Header.Set(auth.HeaderName, auth.HeaderValue)
		}
		if auth.QueryParam != "" {
			q := req.URL.Query()
			q.Set(auth.QueryParam, auth.HeaderValue)
			req.URL.RawQuery = q.Encode()
		}
	default:
		return fmt.Errorf("unsupported auth type: %s", auth.Type)
	}
	return nil
}

func (hr *HTTPReader) isValidStatusCode(code int) bool {
	for _, valid := range hr.opts.ValidStatusCodes {
		if code == valid {
			return true
		}
	}
	return false
}

// parseResponse parses the body according to format
func (hr *HTTPReader) parseResponse(ctx context.Context, format string, data []byte) ([]string, []core.Row, error) {
	switch format {
	case FormatCSV:
		reader, err := NewCSVReader(io.NopCloser(bytes.NewReader(data)), hr.opts.CSVOptions...)
		if err != nil {
			return nil, nil, err
		}
		return drain(ctx, reader)
	case FormatJSONL:
		return drain(ctx, NewJSONReader(io.NopCloser(bytes.NewReader(data))))
	case FormatJSON:
		return parseJSONDocument(data, hr.opts.DataPath)
	default:
		return nil, nil, fmt.Errorf("unsupported response format: %s", format)
	}
}

// parseJSONDocument extracts rows from a JSON array (or single object), optionally
// nested under a dot separated path.
func parseJSONDocument(data []byte, dataPath string) ([]string, []core.Row, error) {
	if dataPath != "" {
		for _, segment := range strings.Split(dataPath, ".") {
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(data, &obj); err != nil {
				return nil, nil, fmt.Errorf("data path %q: %w", dataPath, err)
			}
			next, ok := obj[segment]
			if !ok {
				return nil, nil, fmt.Errorf("data path %q: segment %q not found", dataPath, segment)
			}
			data = next
		}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		keys, row, err := decodeOrderedObject(json.NewDecoder(bytes.NewReader(trimmed)))
		if err != nil {
			return nil, nil, err
		}
		return keys, []core.Row{row}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, nil, fmt.Errorf("expected array of objects, got %v", tok)
	}

	headers := newHeaderSet()
	var rows []core.Row
	for dec.More() {
		keys, row, err := decodeOrderedObject(dec)
		if err != nil {
			return nil, nil, fmt.Errorf("element %d: %w", len(rows), err)
		}
		headers.add(keys...)
		rows = append(rows, row)
	}
	return headers.list(), rows, nil
}

// resolveFormat picks the response format: an explicit option wins, then the
// "format" query parameter, then the content type, then the URL extension.
func resolveFormat(requested, contentType, rawURL string) string {
	if requested != "" && requested != FormatAuto {
		return requested
	}

	u, err := url.Parse(rawURL)
	if err == nil {
		switch strings.ToLower(u.Query().Get("format")) {
		case "csv", "sdmx-csv":
			return FormatCSV
		case "json", "sdmx-json":
			return FormatJSON
		}
	}

	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch {
		case strings.Contains(mediaType, "ndjson"), strings.Contains(mediaType, "jsonl"):
			return FormatJSONL
		case strings.Contains(mediaType, "json"):
			return FormatJSON
		case strings.Contains(mediaType, "csv"):
			return FormatCSV
		}
	}

	if err == nil {
		switch strings.ToLower(path.Ext(u.Path)) {
		case ".json":
			return FormatJSON
		case ".jsonl", ".ndjson":
			return FormatJSONL
		}
	}
	return FormatCSV
}

// drain reads src to io.EOF and closes it.
func drain(ctx context.Context, src core.DataSource) ([]string, []core.Row, error) {
	defer src.Close()

	var rows []core.Row
	for {
		row, err := src.Read(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)
	}

	var headers []string
	if hs, ok := src.(core.HeaderSource); ok {
		headers = hs.Headers()
	}
	return headers, rows, nil
}
