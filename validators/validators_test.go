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

package validators

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/sitrep/core"
)

func floatPtr(f float64) *float64 { return &f }

func sitrepRows() []core.Row {
	return []core.Row{
		{"REF_AREA": "AFG", "Geographic area": "Afghanistan", "TIME_PERIOD": "2020-4-9", "DATA_SOURCE": "S", "observation_field1": "12", "target_field1": ""},
		{"REF_AREA": "AFG", "Geographic area": "Afghanistan", "TIME_PERIOD": "2020-05", "DATA_SOURCE": "S", "observation_field1": "3.5"},
	}
}

func TestDataQualityValidator(t *testing.T) {
	tests := []struct {
		name      string
		validator *DataQualityValidator
		rows      []core.Row
		wantField string
		wantIndex int
		wantMsg   string
	}{
		{
			name:      "valid sitrep table",
			validator: SitrepValidator([]string{"observation_field1", "target_field1"}),
			rows:      sitrepRows(),
		},
		{
			name:      "too few rows",
			validator: NewDataQualityValidator(3, nil),
			rows:      sitrepRows(),
			wantIndex: -1,
			wantMsg:   "validation: insufficient rows: got 2, need at least 3",
		},
		{
			name:      "too many rows",
			validator: NewDataQualityValidator(0, nil, WithMaxRows(1)),
			rows:      sitrepRows(),
			wantIndex: -1,
			wantMsg:   "validation: too many rows: got 2, maximum allowed 1",
		},
		{
			name:      "missing required field",
			validator: NewDataQualityValidator(1, []string{"target_field1"}),
			rows:      sitrepRows(),
			wantField: "target_field1",
			wantIndex: 1,
			wantMsg:   "validation: row 1 field target_field1: missing required field",
		},
		{
			name:      "bad date",
			validator: SitrepValidator(nil),
			rows:      []core.Row{{"REF_AREA": "AFG", "Geographic area": "A", "TIME_PERIOD": "April", "DATA_SOURCE": "S"}},
			wantField: "TIME_PERIOD",
			wantIndex: 0,
			wantMsg:   `validation: row 0 field TIME_PERIOD: value "April" is not a date`,
		},
		{
			name: "below minimum",
			validator: NewDataQualityValidator(0, nil,
				WithFieldValidator("observation_field1", FieldValidator{Kind: KindNumber, Min: floatPtr(5)})),
			rows:      sitrepRows(),
			wantField: "observation_field1",
			wantIndex: 1,
			wantMsg:   "validation: row 1 field observation_field1: value 3.5 below minimum 5",
		},
		{
			name: "pattern",
			validator: NewDataQualityValidator(0, nil,
				WithFieldValidator("REF_AREA", FieldValidator{Pattern: regexp.MustCompile(`^[A-Z]{2}$`)})),
			rows:      sitrepRows(),
			wantField: "REF_AREA",
			wantIndex: 0,
		},
		{
			name: "allowed values",
			validator: NewDataQualityValidator(0, nil,
				WithFieldValidator("DATA_SOURCE", FieldValidator{Allowed: []string{"S"}})),
			rows: sitrepRows(),
		},
		{
			name:      "empty rate",
			validator: NewDataQualityValidator(0, nil, WithMaxEmptyRate(0.4)),
			rows:      sitrepRows(),
			wantField: "target_field1",
			wantIndex: -1,
			wantMsg:   "validation: field target_field1: empty rate 1.00 exceeds maximum 0.40",
		},
		{
			name: "custom",
			validator: NewDataQualityValidator(0, nil, WithCustomValidator(func(rows []core.Row) error {
				return errors.New("duplicate period")
			})),
			rows:      sitrepRows(),
			wantIndex: -1,
			wantMsg:   "validation: custom validator 0: duplicate period",
		},
		{
			name:      "empty table passes when no minimum",
			validator: NewDataQualityValidator(0, []string{"REF_AREA"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validator.Validate(tt.rows)
			if tt.wantField == "" && tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
			assert.Equal(t, tt.wantIndex, vErr.Index)
			if tt.wantMsg != "" {
				assert.EqualError(t, err, tt.wantMsg)
			}
		})
	}
}

func TestSitrepValidator_NonNumericValue(t *testing.T) {
	rows := sitrepRows()
	rows[1]["observation_field1"] = "many"

	err := SitrepValidator([]string{"observation_field1"}).Validate(rows)
	assert.EqualError(t, err, `validation: row 1 field observation_field1: value "many" is not a number`)
}

func TestParseIndicators(t *testing.T) {
	got, err := ParseIndicators([]interface{}{
		map[string]interface{}{"code": "CV-01-01", "title": "WASH supplies"},
		map[string]interface{}{"code": "CV-01-02"},
	})
	require.NoError(t, err)
	assert.Equal(t, []Indicator{{Code: "CV-01-01", Title: "WASH supplies"}, {Code: "CV-01-02"}}, got)

	got, err = ParseIndicators(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseIndicators(map[string]interface{}{})
	assert.EqualError(t, err, "qc_indicators: expected a list, got map[string]interface {}")

	_, err = ParseIndicators([]interface{}{map[string]interface{}{"title": "x"}})
	assert.EqualError(t, err, "qc_indicators[0]: code is required")
}

func TestIndicatorCoverage(t *testing.T) {
	set := core.NewReportSet()
	set.Append("CV_01_01", core.Row{"SITREP_INDICATOR": "CV-01-01"})
	set.Append("CV_01_02")

	got := IndicatorCoverage([]Indicator{{Code: "CV-01-01"}, {Code: "CV-01-02"}}, set)
	assert.Equal(t, []Indicator{{Code: "CV-01-01"}, {Code: "CV-01-02", Disabled: true}}, got)

	assert.Equal(t, []Indicator{{Code: "X", Disabled: true}}, IndicatorCoverage([]Indicator{{Code: "X"}}, nil))
}
