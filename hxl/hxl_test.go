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

package hxl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aaronlmathis/sitrep/config"
)

func strPtr(s string) *string { return &s }

func TestTagsFor(t *testing.T) {
	reports := config.Reports{
		{ID: "CV_01_01", URL: "http://url1", ObservationField: strPtr("observation_field1"), TargetField: strPtr("target_field1")},
		{ID: "CV_01_02", URL: "http://url2", ObservationField: strPtr("observation_field2")},
		{ID: "CV_01_03", URL: "http://url3"},
	}

	tags := TagsFor(reports)

	assert.Equal(t, map[string]string{
		"observation_field1": "#observation_field1",
		"target_field1":      "#target_field1",
		"observation_field2": "#observation_field2",
	}, tags.Map())
}

func TestTagsFor_NoReports(t *testing.T) {
	assert.Equal(t, 0, TagsFor(nil).Len())
}

func TestDefault(t *testing.T) {
	assert.Equal(t, 14, Default.Len())
	tag, ok := Default.Get("TIME_PERIOD")
	assert.True(t, ok)
	assert.Equal(t, "#date", tag)
}

func TestMergeLeavesOperandsUntouched(t *testing.T) {
	extra := NewTags(map[string]string{"x": "#x", "OBS_VALUE": "#override"})

	merged := Default.Merge(extra)

	assert.Equal(t, 15, merged.Len())
	tag, _ := merged.Get("OBS_VALUE")
	assert.Equal(t, "#override", tag)

	tag, _ = Default.Get("OBS_VALUE")
	assert.Equal(t, "#indicator+value+num", tag)
	_, ok := Default.Get("x")
	assert.False(t, ok)
}

func TestMapReturnsCopy(t *testing.T) {
	m := Default.Map()
	m["REF_AREA"] = "#changed"

	tag, _ := Default.Get("REF_AREA")
	assert.Equal(t, "#country+code", tag)
}

func TestRow(t *testing.T) {
	row := Default.Row([]string{"REF_AREA", "unknown", "DATA_SOURCE"})
	assert.Equal(t, []string{"#country+code", "", "#meta+source"}, row)
}

func TestFieldsSorted(t *testing.T) {
	tags := NewTags(map[string]string{"b": "#b", "a": "#a"})
	assert.Equal(t, []string{"a", "b"}, tags.Fields())
}
