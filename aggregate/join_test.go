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

package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/sitrep/config"
	"github.com/aaronlmathis/sitrep/core"
)

func strPtr(s string) *string { return &s }

func afgRow(indicator, obs, target string) core.Row {
	return core.Row{
		core.FieldRefArea:    "AFG",
		core.FieldGeoArea:    "Afghanistan",
		core.FieldIndicator:  indicator,
		core.FieldTimePeriod: "2020-4-9",
		core.FieldObsValue:   obs,
		core.FieldDataSource: "Source1",
		core.FieldTarget:     target,
	}
}

func afgReports() config.Reports {
	return config.Reports{
		{ID: "CV_01_01", URL: "http://url1", ObservationField: strPtr("observation_field1"), TargetField: strPtr("target_field1")},
		{ID: "CV_01_02", URL: "http://url2", ObservationField: strPtr("observation_field2")},
	}
}

func afgSet() *core.ReportSet {
	set := core.NewReportSet()
	set.Append("CV_01_01", afgRow("CV-01-01", "1", "2"))
	set.Append("CV_01_02", afgRow("CV-01-02", "3", "4"))
	return set
}

func TestJoin_TwoReportsOneKey(t *testing.T) {
	rows, headers, err := Join(afgSet(), afgReports())
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, core.Row{
		core.FieldRefArea:    "AFG",
		core.FieldGeoArea:    "Afghanistan",
		core.FieldTimePeriod: "2020-4-9",
		core.FieldDataSource: "Source1",
		"observation_field1": "1",
		"target_field1":      "2",
		"observation_field2": "3",
	}, rows[0])
	assert.NotContains(t, rows[0], "target_field2")
	assert.Equal(t, []string{
		"REF_AREA", "Geographic area", "TIME_PERIOD", "DATA_SOURCE",
		"observation_field1", "target_field1", "observation_field2",
	}, headers)
}

func TestJoin_ContentIndependentOfReportOrder(t *testing.T) {
	forward, _, err := Join(afgSet(), afgReports())
	require.NoError(t, err)

	reversed := core.NewReportSet()
	reversed.Append("CV_01_02", afgRow("CV-01-02", "3", "4"))
	reversed.Append("CV_01_01", afgRow("CV-01-01", "1", "2"))
	backward, headers, err := Join(reversed, afgReports())
	require.NoError(t, err)

	assert.Equal(t, forward, backward)
	assert.Equal(t, "observation_field2", headers[4])
}

func TestJoin_ObservationOnlyRoundTrip(t *testing.T) {
	reports := config.Reports{{ID: "R", URL: "u", ObservationField: strPtr("x")}}
	set := core.NewReportSet()
	set.Append("R",
		core.Row{"REF_AREA": "AFG", "Geographic area": "Afghanistan", "TIME_PERIOD": "2020-04", "DATA_SOURCE": "S", "OBS_VALUE": "10", "TARGET": "99"},
		core.Row{"REF_AREA": "AFG", "Geographic area": "Afghanistan", "TIME_PERIOD": "2020-05", "DATA_SOURCE": "S", "OBS_VALUE": "11"},
	)

	rows, headers, err := Join(set, reports)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	for i, row := range rows {
		assert.Equal(t, set.Rows("R")[i]["OBS_VALUE"], row["x"])
		assert.Len(t, row, 5)
	}
	assert.Equal(t, []string{"REF_AREA", "Geographic area", "TIME_PERIOD", "DATA_SOURCE", "x"}, headers)
}

func TestJoin_LastWriteWins(t *testing.T) {
	reports := config.Reports{{ID: "R", URL: "u", ObservationField: strPtr("x")}}
	set := core.NewReportSet()
	set.Append("R", afgRow("A", "1", ""), afgRow("A", "2", ""))

	rows, _, err := Join(set, reports)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2", rows[0]["x"])
}

func TestJoin_RowWithoutSourceFieldContributesNothing(t *testing.T) {
	reports := config.Reports{{ID: "R", URL: "u", ObservationField: strPtr("x"), TargetField: strPtr("y")}}
	row := afgRow("A", "1", "")
	delete(row, core.FieldTarget)
	set := core.NewReportSet()
	set.Append("R", row)

	rows, headers, err := Join(set, reports)
	require.NoError(t, err)
	assert.NotContains(t, rows[0], "y")
	assert.NotContains(t, headers, "y")
}

func TestJoin_UnconfiguredReportAddsKeysOnly(t *testing.T) {
	set := core.NewReportSet()
	set.Append("CV_99", afgRow("X", "5", "6"))

	rows, headers, err := Join(set, afgReports())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], 4)
	assert.Equal(t, core.KeyFields(), headers)
}

func TestJoin_MissingKeyField(t *testing.T) {
	row := afgRow("A", "1", "2")
	delete(row, core.FieldDataSource)
	set := core.NewReportSet()
	set.Append("CV_01_01", afgRow("A", "1", "2"), row)

	_, _, err := Join(set, afgReports())

	var missing *core.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, core.FieldDataSource, missing.Field)
	assert.Equal(t, "CV_01_01", missing.Report)
	assert.Equal(t, 1, missing.Index)
}

func TestJoin_FirstOccurrenceOrderAndFreshRows(t *testing.T) {
	syr := afgRow("A", "7", "")
	syr[core.FieldRefArea] = "SYR"
	set := core.NewReportSet()
	set.Append("CV_01_01", syr, afgRow("A", "1", ""))

	rows, _, err := Join(set, afgReports())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "SYR", rows[0][core.FieldRefArea])
	assert.Equal(t, "AFG", rows[1][core.FieldRefArea])

	rows[0]["observation_field1"] = "changed"
	assert.Equal(t, "7", syr[core.FieldObsValue])
}

func TestJoin_EmptySet(t *testing.T) {
	rows, headers, err := Join(core.NewReportSet(), afgReports())
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, core.KeyFields(), headers)
}
