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
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPReader_CSVByQueryFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Sitrep-HTTPReader/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte(sitrepCSV))
	}))
	defer server.Close()

	reader, err := NewHTTPReader(server.URL + "/data/UNICEF.EMOPS,DF_SITREP_COVID19,1.0/.CV-01-01?format=csv")
	require.NoError(t, err)

	rows := readAll(t, reader)
	require.Len(t, rows, 2)
	assert.Equal(t, "AFG", rows[0]["REF_AREA"])
	assert.Equal(t, "REF_AREA", reader.Headers()[0])
	assert.Equal(t, int64(1), reader.Stats().RequestCount)
}

func TestHTTPReader_JSONByContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(`{"data":[{"REF_AREA":"AFG","OBS_VALUE":3}]}`))
	}))
	defer server.Close()

	reader, err := NewHTTPReader(server.URL, WithHTTPDataPath("data"))
	require.NoError(t, err)

	rows := readAll(t, reader)
	require.Len(t, rows, 1)
	assert.Equal(t, "3", rows[0]["OBS_VALUE"])
	assert.Equal(t, []string{"REF_AREA", "OBS_VALUE"}, reader.Headers())
}

func TestHTTPReader_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("REF_AREA\nAFG\n"))
	}))
	defer server.Close()

	reader, err := NewHTTPReader(server.URL, WithHTTPRetries(3, time.Millisecond))
	require.NoError(t, err)

	rows := readAll(t, reader)
	assert.Len(t, rows, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, int64(2), reader.Stats().RetryCount)
}

func TestHTTPReader_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	reader, err := NewHTTPReader(server.URL, WithHTTPRetries(3, time.Millisecond))
	require.NoError(t, err)

	_, err = reader.Read(context.Background())
	var httpErr *HTTPReaderError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPReader_BearerAuthAndQueryParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "2020", r.URL.Query().Get("startPeriod"))
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("REF_AREA\nAFG\n"))
	}))
	defer server.Close()

	reader, err := NewHTTPReader(server.URL,
		WithHTTPBearerToken("secret"),
		WithHTTPQueryParams(map[string]string{"startPeriod": "2020"}),
	)
	require.NoError(t, err)
	assert.Len(t, readAll(t, reader), 1)
}

func TestHTTPReader_ResponseTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sitrepCSV))
	}))
	defer server.Close()

	reader, err := NewHTTPReader(server.URL, func(o *HTTPReaderOptions) { o.MaxResponseSize = 10 })
	require.NoError(t, err)

	_, err = reader.Read(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "response exceeds 10 bytes")
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		requested   string
		contentType string
		url         string
		expected    string
	}{
		{FormatJSONL, "text/csv", "http://x/a.csv", FormatJSONL},
		{FormatAuto, "application/json", "http://x/a?format=csv", FormatCSV},
		{FormatAuto, "application/x-ndjson", "http://x/a", FormatJSONL},
		{FormatAuto, "application/vnd.sdmx.data+json", "http://x/a", FormatJSON},
		{FormatAuto, "text/csv; charset=utf-8", "http://x/a", FormatCSV},
		{FormatAuto, "", "http://x/a.json", FormatJSON},
		{FormatAuto, "", "http://x/a.ndjson", FormatJSONL},
		{"", "", "http://x/a", FormatCSV},
	}

	for _, tt := range tests {
		t.Run(tt.url+"|"+tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolveFormat(tt.requested, tt.contentType, tt.url))
		})
	}
}
