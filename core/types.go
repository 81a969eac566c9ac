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

package core

import "context"

// Package core defines the core types for Sitrep.
//
// Sitrep reshapes per-indicator COVID-19 situation report tables into per-country
// datasets: rows are partitioned by country, optionally rolled up into a synthetic
// "world" bucket, and joined across reports on a composite natural key.
//
// This file contains the row, country and report set types shared by every stage.

// Situation report field vocabulary.
const (
	FieldRefArea    = "REF_AREA"
	FieldGeoArea    = "Geographic area"
	FieldIndicator  = "SITREP_INDICATOR"
	FieldTimePeriod = "TIME_PERIOD"
	FieldObsValue   = "OBS_VALUE"
	FieldDataSource = "DATA_SOURCE"
	FieldTarget     = "TARGET"
	FieldObsStatus  = "OBS_STATUS"
)

// WorldCode is the code of the synthetic aggregate bucket that receives every row.
const WorldCode = "world"

// WorldName is the display name of the synthetic aggregate bucket.
const WorldName = "World"

// KeyFields returns the fields that identify one observation across reports,
// in the order they lead every joined header list.
func KeyFields() []string {
	return []string{FieldRefArea, FieldGeoArea, FieldTimePeriod, FieldDataSource}
}

// Row represents a single row of a situation report table.
// Values are kept as the strings the source produced; no coercion happens anywhere.
type Row map[string]string

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Require returns the value of field or a *MissingFieldError when the row lacks it.
// An empty value counts as present.
func (r Row) Require(field string) (string, error) {
	v, ok := r[field]
	if !ok {
		return "", &MissingFieldError{Field: field}
	}
	return v, nil
}

// Country identifies one output dataset.
type Country struct {
	ISO3 string `json:"iso3"`
	Name string `json:"name"`
}

// IsWorld reports whether c is the synthetic aggregate.
func (c Country) IsWorld() bool {
	return c.ISO3 == WorldCode
}

// ReportSet maps report IDs to their rows while remembering the order in which
// report IDs were first added. Joining depends on that order being stable.
type ReportSet struct {
	ids  []string
	rows map[string][]Row
}

// NewReportSet creates an empty ReportSet.
func NewReportSet() *ReportSet {
	return &ReportSet{rows: make(map[string][]Row)}
}

// Append adds rows under reportID. The ID is registered even when no rows are given.
func (s *ReportSet) Append(reportID string, rows ...Row) {
	existing, ok := s.rows[reportID]
	if !ok {
		s.ids = append(s.ids, reportID)
		existing = make([]Row, 0, len(rows))
	}
	s.rows[reportID] = append(existing, rows...)
}

// IDs returns the report IDs in insertion order.
func (s *ReportSet) IDs() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.ids...)
}

// Rows returns the rows stored for reportID, or nil when the report is absent.
func (s *ReportSet) Rows(reportID string) []Row {
	if s == nil {
		return nil
	}
	return s.rows[reportID]
}

// Has reports whether reportID was added.
func (s *ReportSet) Has(reportID string) bool {
	if s == nil {
		return false
	}
	_, ok := s.rows[reportID]
	return ok
}

// Len returns the number of reports.
func (s *ReportSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// RowCount returns the number of rows across all reports.
func (s *ReportSet) RowCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, rows := range s.rows {
		n += len(rows)
	}
	return n
}

// CountriesData maps a country code to the rows each report contributed for it.
type CountriesData map[string]*ReportSet

// Rows returns the rows of report for country. A missing country or report yields nil.
func (d CountriesData) Rows(country, report string) []Row {
	return d[country].Rows(report)
}

// TransformFunc is a function adapter for the Transformer interface.
type TransformFunc func(ctx context.Context, row Row) (Row, error)

// Transform implements the Transformer interface for TransformFunc.
func (f TransformFunc) Transform(ctx context.Context, row Row) (Row, error) {
	return f(ctx, row)
}

// FilterFunc is a function adapter for the Filter interface.
type FilterFunc func(ctx context.Context, row Row) (bool, error)

// ShouldInclude implements the Filter interface for FilterFunc.
func (f FilterFunc) ShouldInclude(ctx context.Context, row Row) (bool, error) {
	return f(ctx, row)
}
