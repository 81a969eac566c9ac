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
	"github.com/aaronlmathis/sitrep/config"
	"github.com/aaronlmathis/sitrep/core"
)

// JoinKey identifies one observation across reports.
type JoinKey struct {
	RefArea    string
	GeoArea    string
	TimePeriod string
	DataSource string
}

// joinKeyOf builds the key of row, or returns the name of the first key field it lacks.
func joinKeyOf(row core.Row) (JoinKey, string) {
	var key JoinKey
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{core.FieldRefArea, &key.RefArea},
		{core.FieldGeoArea, &key.GeoArea},
		{core.FieldTimePeriod, &key.TimePeriod},
		{core.FieldDataSource, &key.DataSource},
	} {
		v, ok := row[f.name]
		if !ok {
			return JoinKey{}, f.name
		}
		*f.dst = v
	}
	return key, ""
}

func (k JoinKey) row() core.Row {
	return core.Row{
		core.FieldRefArea:    k.RefArea,
		core.FieldGeoArea:    k.GeoArea,
		core.FieldTimePeriod: k.TimePeriod,
		core.FieldDataSource: k.DataSource,
	}
}

// Join merges the rows of every report in rows into one wide table with a row per
// JoinKey. Each report copies OBS_VALUE and TARGET into the columns its config
// names; a later value for the same key and column replaces an earlier one.
// Reports without a config entry add keys but no values. Rows come out in the
// order their key was first seen; headers are the key fields followed by the
// destination columns in first-seen order.
func Join(rows *core.ReportSet, reports config.Reports) ([]core.Row, []string, error) {
	headers := newOrderedSet(core.KeyFields()...)
	joined := make(map[JoinKey]core.Row)
	var order []JoinKey

	for _, reportID := range rows.IDs() {
		report, configured := reports.ByID(reportID)

		for i, row := range rows.Rows(reportID) {
			key, missing := joinKeyOf(row)
			if missing != "" {
				return nil, nil, &core.MissingFieldError{Field: missing, Report: reportID, Index: i}
			}

			out, ok := joined[key]
			if !ok {
				out = key.row()
				joined[key] = out
				order = append(order, key)
			}
			if !configured {
				continue
			}

			copyField(out, row, core.FieldObsValue, report.ObservationField, headers)
			copyField(out, row, core.FieldTarget, report.TargetField, headers)
		}
	}

	result := make([]core.Row, len(order))
	for i, key := range order {
		result[i] = joined[key]
	}
	return result, headers.list(), nil
}

func copyField(dst, src core.Row, field string, dest *string, headers *orderedSet) {
	if dest == nil {
		return
	}
	v, ok := src[field]
	if !ok {
		return
	}
	headers.add(*dest)
	dst[*dest] = v
}
