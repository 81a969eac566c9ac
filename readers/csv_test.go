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
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/sitrep/core"
)

const sitrepCSV = "\ufeffREF_AREA,Geographic area,SITREP_INDICATOR,TIME_PERIOD,OBS_VALUE,DATA_SOURCE,TARGET\n" +
	"AFG,Afghanistan,CV-01-01,2020-4-9,1,Source1,2\n" +
	"SYR,Syrian Arab Republic,CV-01-01,2020-4-9,,Source1,5\n"

func readAll(t *testing.T, src core.DataSource) []core.Row {
	t.Helper()
	var rows []core.Row
	for {
		row, err := src.Read(context.Background())
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestCSVReader_ReadsRowsAsStrings(t *testing.T) {
	reader, err := NewCSVReader(io.NopCloser(strings.NewReader(sitrepCSV)))
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, []string{"REF_AREA", "Geographic area", "SITREP_INDICATOR", "TIME_PERIOD", "OBS_VALUE", "DATA_SOURCE", "TARGET"}, reader.Headers())

	rows := readAll(t, reader)
	require.Len(t, rows, 2)
	assert.Equal(t, "AFG", rows[0]["REF_AREA"])
	assert.Equal(t, "1", rows[0]["OBS_VALUE"])
	assert.Equal(t, "2020-4-9", rows[0]["TIME_PERIOD"])

	// empty cells stay present as empty strings
	v, ok := rows[1]["OBS_VALUE"]
	assert.True(t, ok)
	assert.Equal(t, "", v)

	stats := reader.Stats()
	assert.Equal(t, int64(2), stats.RecordsRead)
	assert.Equal(t, int64(1), stats.NullValueCounts["OBS_VALUE"])
}

func TestCSVReader_NoHeaders(t *testing.T) {
	reader, err := NewCSVReader(io.NopCloser(strings.NewReader("a,b\nc,d\n")), WithCSVHasHeaders(false))
	require.NoError(t, err)

	rows := readAll(t, reader)
	require.Len(t, rows, 2)
	assert.Equal(t, core.Row{"col_0": "a", "col_1": "b"}, rows[0])
	assert.Equal(t, []string{"col_0", "col_1"}, reader.Headers())
}

func TestCSVReader_CustomDelimiter(t *testing.T) {
	reader, err := NewCSVReader(io.NopCloser(strings.NewReader("REF_AREA;OBS_VALUE\nAFG;3\n")), WithCSVComma(';'))
	require.NoError(t, err)

	rows := readAll(t, reader)
	require.Len(t, rows, 1)
	assert.Equal(t, "3", rows[0]["OBS_VALUE"])
}

func TestCSVReader_MalformedRecord(t *testing.T) {
	reader, err := NewCSVReader(io.NopCloser(strings.NewReader("a,b\n1,2,3\n")))
	require.NoError(t, err)

	_, err = reader.Read(context.Background())
	var csvErr *CSVReaderError
	require.ErrorAs(t, err, &csvErr)
	assert.Equal(t, "read_record", csvErr.Op)
}

func TestCSVReader_EmptyInput(t *testing.T) {
	_, err := NewCSVReader(io.NopCloser(strings.NewReader("")))
	var csvErr *CSVReaderError
	require.ErrorAs(t, err, &csvErr)
	assert.Equal(t, "read_headers", csvErr.Op)
}

func TestCSVReader_ContextCancelled(t *testing.T) {
	reader, err := NewCSVReader(io.NopCloser(strings.NewReader(sitrepCSV)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = reader.Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
