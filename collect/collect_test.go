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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/aaronlmathis/sitrep/config"
	"github.com/aaronlmathis/sitrep/core"
	"github.com/aaronlmathis/sitrep/countries"
	"github.com/aaronlmathis/sitrep/filter"
	"github.com/aaronlmathis/sitrep/source"
	"github.com/aaronlmathis/sitrep/transform"
)

func strPtr(s string) *string { return &s }

var (
	countrydata1 = []core.Row{{
		"REF_AREA":         "AFG",
		"Geographic area":  "Afghanistan",
		"SITREP_INDICATOR": "CV-01-01",
		"TIME_PERIOD":      "2020-4-9",
		"OBS_VALUE":        "1",
		"DATA_SOURCE":      "Source1",
		"TARGET":           "2",
	}}
	countrydata2 = []core.Row{{
		"REF_AREA":         "AFG",
		"Geographic area":  "Afghanistan",
		"SITREP_INDICATOR": "CV-01-02",
		"TIME_PERIOD":      "2020-4-9",
		"OBS_VALUE":        "3",
		"DATA_SOURCE":      "Source1",
		"TARGET":           "4",
	}}
	headers = []string{"DATA_SOURCE", "Geographic area", "OBS_VALUE", "REF_AREA", "SITREP_INDICATOR", "TARGET", "TIME_PERIOD"}
)

func stub() source.Static {
	return source.Static{
		"http://url1": {Headers: headers, Rows: countrydata1},
		"http://url2": {Headers: headers, Rows: countrydata2},
	}
}

func reports() config.Reports {
	return config.Reports{
		{ID: "CV_01_01", URL: "http://url1", ObservationField: strPtr("observation_field1"), TargetField: strPtr("target_field1")},
		{ID: "CV_01_02", URL: "http://url2", ObservationField: strPtr("observation_field2")},
	}
}

func TestCollectAll(t *testing.T) {
	result, err := NewCollector(stub()).CollectAll(context.Background(), reports())
	require.NoError(t, err)

	assert.Equal(t, []core.Country{
		{ISO3: "AFG", Name: "Afghanistan"},
		{ISO3: "world", Name: "World"},
	}, result.Countries)

	assert.Equal(t, countrydata1, result.Data.Rows("AFG", "CV_01_01"))
	assert.Equal(t, countrydata1, result.Data.Rows("world", "CV_01_01"))
	assert.Equal(t, countrydata2, result.Data.Rows("AFG", "CV_01_02"))
	assert.Equal(t, countrydata2, result.Data.Rows("world", "CV_01_02"))
	assert.Equal(t, []string{"CV_01_01", "CV_01_02"}, result.Data["AFG"].IDs())
	assert.Equal(t, headers, result.Headers["CV_01_01"])
}

func TestCollectAll_CountryAbsentFromReportHasNoEntry(t *testing.T) {
	syr := core.Row{"REF_AREA": "SYR", "Geographic area": "Syria", "TIME_PERIOD": "2020-4-9", "DATA_SOURCE": "S"}
	src := stub()
	src["http://url2"] = source.Table{Rows: []core.Row{syr}}

	result, err := NewCollector(src, WithIncludeWorld(false)).CollectAll(context.Background(), reports())
	require.NoError(t, err)

	assert.False(t, result.Data["AFG"].Has("CV_01_02"))
	assert.False(t, result.Data["SYR"].Has("CV_01_01"))
	assert.NotContains(t, result.Data, core.WorldCode)
	assert.Equal(t, []string{"AFG", "SYR"}, []string{result.Countries[0].ISO3, result.Countries[1].ISO3})
}

func TestCollectAll_MissingLocator(t *testing.T) {
	cfg := append(reports(), config.ReportConfig{ID: "CV_09", URL: "http://url9"})

	result, err := NewCollector(stub()).CollectAll(context.Background(), cfg)

	assert.Nil(t, result)
	var fetchErr *core.SourceFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "CV_09", fetchErr.Report)
	assert.Equal(t, "http://url9", fetchErr.Locator)
	assert.ErrorIs(t, err, core.ErrLocatorNotFound)
}

func TestCollectAll_WrapsPlainSourceErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := source.NewMockTabularSource(ctrl)
	boom := errors.New("connection reset")
	src.EXPECT().Fetch(gomock.Any(), "http://url1").Return(source.Table{}, boom)

	_, err := NewCollector(src).CollectAll(context.Background(), reports())

	var fetchErr *core.SourceFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "CV_01_01", fetchErr.Report)
	assert.ErrorIs(t, err, boom)
}

func TestCollectAll_MissingRefArea(t *testing.T) {
	src := stub()
	src["http://url2"] = source.Table{Rows: []core.Row{{"OBS_VALUE": "3"}}}

	_, err := NewCollector(src).CollectAll(context.Background(), reports())

	var missing *core.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "CV_01_02", missing.Report)
	assert.Equal(t, core.FieldRefArea, missing.Field)
}

func TestCollectAll_UnknownCountryKeepsRows(t *testing.T) {
	ctrl := gomock.NewController(t)
	lookup := countries.NewMockLookup(ctrl)
	lookup.EXPECT().NameFor("AFG").Return("", false)

	result, err := NewCollector(stub(), WithLookup(lookup)).CollectAll(context.Background(), reports())
	require.NoError(t, err)

	assert.Equal(t, []core.Country{{ISO3: "world", Name: "World"}}, result.Countries)
	assert.Equal(t, countrydata1, result.Data.Rows("AFG", "CV_01_01"))
}

type slowSource struct {
	source.Static
	delays   map[string]time.Duration
	inFlight int32
	peak     int32
}

func (s *slowSource) Fetch(ctx context.Context, locator string) (source.Table, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&s.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&s.peak, peak, n) {
			break
		}
	}
	time.Sleep(s.delays[locator])
	return s.Static.Fetch(ctx, locator)
}

func TestCollectAll_ParallelMatchesSequential(t *testing.T) {
	sequential, err := NewCollector(stub()).CollectAll(context.Background(), reports())
	require.NoError(t, err)

	src := &slowSource{
		Static: stub(),
		delays: map[string]time.Duration{"http://url1": 50 * time.Millisecond, "http://url2": 20 * time.Millisecond},
	}
	parallel, err := NewCollector(src, WithParallelism(2)).CollectAll(context.Background(), reports())
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
	assert.Equal(t, []string{"CV_01_01", "CV_01_02"}, parallel.Data["world"].IDs())
	assert.Equal(t, int32(2), atomic.LoadInt32(&src.peak))
}

func TestCollectAll_ParallelFailureReturnsNothing(t *testing.T) {
	cfg := config.Reports{
		{ID: "CV_01_01", URL: "http://url1"},
		{ID: "CV_09", URL: "http://url9"},
	}

	result, err := NewCollector(stub(), WithParallelism(4)).CollectAll(context.Background(), cfg)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, core.ErrLocatorNotFound)
}

func TestCollectAll_FilterAndTransform(t *testing.T) {
	src := stub()
	src["http://url2"] = source.Table{Rows: []core.Row{
		{"REF_AREA": " syr ", "OBS_VALUE": "3"},
		{"REF_AREA": "afg", "OBS_VALUE": "5"},
	}}

	collector := NewCollector(src,
		WithTransformer(transform.Chain(transform.TrimSpace("REF_AREA"), transform.ToUpper("REF_AREA"))),
		WithFilter(filter.In("REF_AREA", "AFG")),
	)
	result, err := collector.CollectAll(context.Background(), reports())
	require.NoError(t, err)

	assert.NotContains(t, result.Data, "SYR")
	require.Len(t, result.Data.Rows("AFG", "CV_01_02"), 1)
	assert.Equal(t, "5", result.Data.Rows("AFG", "CV_01_02")[0]["OBS_VALUE"])
}

func TestCollectAll_EmptyReportStillRegistersWorld(t *testing.T) {
	src := source.Static{"http://url1": {}}
	cfg := config.Reports{{ID: "CV_01_01", URL: "http://url1"}}

	result, err := NewCollector(src).CollectAll(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, []core.Country{{ISO3: "world", Name: "World"}}, result.Countries)
	assert.True(t, result.Data["world"].Has("CV_01_01"))
	assert.Empty(t, result.Data.Rows("world", "CV_01_01"))
}
