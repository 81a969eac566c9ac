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
	"fmt"

	"github.com/aaronlmathis/sitrep/core"
)

// Indicator is one quick chart indicator from the qc_indicators configuration.
type Indicator struct {
	Code     string `json:"code"`
	Title    string `json:"title,omitempty"`
	Disabled bool   `json:"disabled"`
}

// ParseIndicators reads the qc_indicators configuration: a list of mappings
// with at least a code. A nil value yields no indicators.
func ParseIndicators(qc interface{}) ([]Indicator, error) {
	if qc == nil {
		return nil, nil
	}
	list, ok := qc.([]interface{})
	if !ok {
		return nil, fmt.Errorf("qc_indicators: expected a list, got %T", qc)
	}

	out := make([]Indicator, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("qc_indicators[%d]: expected a mapping, got %T", i, item)
		}
		code, _ := m["code"].(string)
		if code == "" {
			return nil, fmt.Errorf("qc_indicators[%d]: code is required", i)
		}
		title, _ := m["title"].(string)
		out = append(out, Indicator{Code: code, Title: title})
	}
	return out, nil
}

// IndicatorCoverage marks every indicator without a row in reports as
// disabled. An indicator matches rows whose SITREP_INDICATOR equals its code.
func IndicatorCoverage(indicators []Indicator, reports *core.ReportSet) []Indicator {
	present := make(map[string]struct{})
	if reports != nil {
		for _, id := range reports.IDs() {
			for _, row := range reports.Rows(id) {
				present[row[core.FieldIndicator]] = struct{}{}
			}
		}
	}

	out := make([]Indicator, len(indicators))
	for i, ind := range indicators {
		_, ok := present[ind.Code]
		ind.Disabled = !ok
		out[i] = ind
	}
	return out
}
