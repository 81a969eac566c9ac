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
	"sort"

	"github.com/aaronlmathis/sitrep/config"
)

// Package hxl maps column names to Humanitarian Exchange Language hashtags.

// Tags is a read-only field to hashtag mapping.
type Tags struct {
	tags map[string]string
}

// NewTags builds Tags from a map. The map is copied.
func NewTags(m map[string]string) Tags {
	t := Tags{tags: make(map[string]string, len(m))}
	for k, v := range m {
		t.tags[k] = v
	}
	return t
}

// Default maps the situation report vocabulary to its hashtags.
var Default = NewTags(map[string]string{
	"REF_AREA":                                "#country+code",
	"Geographic area":                         "#country+name",
	"Situation Report Indicator":              "#indicator+name",
	"SITREP_INDICATOR":                        "#indicator+code",
	"HAC_PILLAR":                              "#indicator+type+code",
	"Humanitarian Action for Children Pillar": "#indicator+type+name",
	"UNIT_MEASURE":                            "#indicator+unit+code",
	"Unit of measure":                         "#indicator+unit+name",
	"TIME_PERIOD":                             "#date",
	"OBS_VALUE":                               "#indicator+value+num",
	"DATA_SOURCE":                             "#meta+source",
	"TARGET":                                  "#indicator+target+num",
	"OBS_STATUS":                              "#indicator+status+code",
	"Observation status":                      "#indicator+status+name",
})

// TagsFor returns a hashtag for every observation and target destination the
// reports define: the column name prefixed with '#'.
func TagsFor(reports config.Reports) Tags {
	t := Tags{tags: make(map[string]string)}
	for _, r := range reports {
		for _, dest := range r.Destinations() {
			t.tags[dest] = "#" + dest
		}
	}
	return t
}

// Get returns the hashtag for field.
func (t Tags) Get(field string) (string, bool) {
	tag, ok := t.tags[field]
	return tag, ok
}

// Len returns the number of mapped fields.
func (t Tags) Len() int {
	return len(t.tags)
}

// Fields returns the mapped fields in sorted order.
func (t Tags) Fields() []string {
	fields := make([]string, 0, len(t.tags))
	for f := range t.tags {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Map returns a copy of the mapping.
func (t Tags) Map() map[string]string {
	out := make(map[string]string, len(t.tags))
	for k, v := range t.tags {
		out[k] = v
	}
	return out
}

// Merge returns a new Tags holding t overlaid with other.
func (t Tags) Merge(other Tags) Tags {
	out := NewTags(t.tags)
	for k, v := range other.tags {
		out.tags[k] = v
	}
	return out
}

// Row returns the hashtag row for headers; unmapped columns get an empty tag.
func (t Tags) Row(headers []string) []string {
	row := make([]string, len(headers))
	for i, h := range headers {
		row[i] = t.tags[h]
	}
	return row
}
