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

package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/aaronlmathis/sitrep/core"
	"github.com/aaronlmathis/sitrep/countries"
)

func rows(areas ...string) []core.Row {
	out := make([]core.Row, len(areas))
	for i, area := range areas {
		out[i] = core.Row{core.FieldRefArea: area, core.FieldObsValue: string(rune('0' + i))}
	}
	return out
}

func TestPartition_GroupsByCountryInArrivalOrder(t *testing.T) {
	input := rows("AFG", "SYR", "AFG")

	result, err := Partition(input, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"AFG", "SYR"}, result.SortedCodes())
	require.Len(t, result.Data["AFG"], 2)
	assert.Equal(t, "0", result.Data["AFG"][0][core.FieldObsValue])
	assert.Equal(t, "2", result.Data["AFG"][1][core.FieldObsValue])
	assert.NotContains(t, result.Data, core.WorldCode)
}

func TestPartition_WorldHoldsEveryRow(t *testing.T) {
	input := rows("AFG", "SYR", "AFG", "YEM")

	result, err := Partition(input, true)
	require.NoError(t, err)

	perCountry := 0
	for code, bucket := range result.Data {
		if code != core.WorldCode {
			perCountry += len(bucket)
		}
	}
	assert.Equal(t, len(input), len(result.Data[core.WorldCode]))
	assert.Equal(t, perCountry, len(result.Data[core.WorldCode]))
	assert.Equal(t, input, result.Data[core.WorldCode])
}

func TestPartition_WorldExistsWithoutRows(t *testing.T) {
	result, err := Partition(nil, true)
	require.NoError(t, err)

	assert.Equal(t, []string{core.WorldCode}, result.SortedCodes())
	assert.NotNil(t, result.Data[core.WorldCode])
	assert.Empty(t, result.Data[core.WorldCode])
}

func TestPartition_EmptyRefAreaIsACode(t *testing.T) {
	result, err := Partition([]core.Row{{core.FieldRefArea: ""}}, false)
	require.NoError(t, err)
	assert.Contains(t, result.Codes, "")
}

func TestPartition_MissingRefArea(t *testing.T) {
	input := []core.Row{{core.FieldRefArea: "AFG"}, {core.FieldObsValue: "3"}}

	_, err := Partition(input, true)

	var missing *core.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, core.FieldRefArea, missing.Field)
	assert.Equal(t, 1, missing.Index)
}

func TestCountriesFromISOList(t *testing.T) {
	lookup := countries.NewTable(map[string]string{
		"AFG": "Afghanistan",
		"SYR": "Syrian Arab Republic",
	})

	got := CountriesFromISOList([]string{"SYR", "world", "AFG", "XYZ", "AFG"}, lookup)

	assert.Equal(t, []core.Country{
		{ISO3: "AFG", Name: "Afghanistan"},
		{ISO3: "SYR", Name: "Syrian Arab Republic"},
		{ISO3: core.WorldCode, Name: core.WorldName},
	}, got)
}

func TestCountriesFromISOList_WorldSkipsLookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	lookup := countries.NewMockLookup(ctrl)
	lookup.EXPECT().NameFor("AFG").Return("Afghanistan", true).Times(1)

	got := CountriesFromISOList([]string{"world", "AFG", "world"}, lookup)

	assert.Equal(t, []core.Country{
		{ISO3: "AFG", Name: "Afghanistan"},
		{ISO3: core.WorldCode, Name: core.WorldName},
	}, got)
}

func TestCountriesFromISOList_Empty(t *testing.T) {
	assert.Empty(t, CountriesFromISOList(nil, countries.NewTable(nil)))
}
