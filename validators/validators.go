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

// validators.go - Data quality checks for joined country tables
package validators

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/aaronlmathis/sitrep/core"
)

// FieldKind is the expected shape of a field's string value.
type FieldKind string

const (
	KindAny    FieldKind = "any"
	KindString FieldKind = "string"
	KindNumber FieldKind = "number"
	KindDate   FieldKind = "date"
)

// ValidationError reports the first check a table failed.
type ValidationError struct {
	Field string
	Index int
	Err   error
}

func (e *ValidationError) Error() string {
	switch {
	case e.Field != "" && e.Index >= 0:
		return fmt.Sprintf("validation: row %d field %s: %v", e.Index, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("validation: field %s: %v", e.Field, e.Err)
	default:
		return fmt.Sprintf("validation: %v", e.Err)
	}
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// FieldValidator defines the rules for one field. Empty values are only
// subject to the empty-rate limit.
type FieldValidator struct {
	Kind     FieldKind      // Expected value shape
	Pattern  *regexp.Regexp // Pattern the value must match
	Min      *float64       // Minimum for number fields
	Max      *float64       // Maximum for number fields
	Allowed  []string       // Whitelist of values
	Optional bool           // Field may be absent from a row
}

// DataQualityValidator checks a table of rows before it is published.
type DataQualityValidator struct {
	MinRows         int                       // Minimum number of rows required
	MaxRows         int                       // Maximum number of rows allowed (0 = unlimited)
	MaxEmptyRate    float64                   // Maximum share of rows with an empty or missing value per field (0 = unchecked)
	RequiredFields  []string                  // Fields that must be present in every row
	FieldValidators map[string]FieldValidator // Per-field rules
	Custom          []func([]core.Row) error  // Table level checks
}

// DataQualityOption is a functional option for DataQualityValidator.
type DataQualityOption func(*DataQualityValidator)

// WithMaxRows sets the maximum row count.
func WithMaxRows(max int) DataQualityOption {
	return func(v *DataQualityValidator) {
		v.MaxRows = max
	}
}

// WithMaxEmptyRate sets the maximum empty value rate.
func WithMaxEmptyRate(rate float64) DataQualityOption {
	return func(v *DataQualityValidator) {
		v.MaxEmptyRate = rate
	}
}

// WithFieldValidator adds a field rule.
func WithFieldValidator(field string, fv FieldValidator) DataQualityOption {
	return func(v *DataQualityValidator) {
		v.FieldValidators[field] = fv
	}
}

// WithCustomValidator adds a table level check.
func WithCustomValidator(fn func([]core.Row) error) DataQualityOption {
	return func(v *DataQualityValidator) {
		v.Custom = append(v.Custom, fn)
	}
}

// NewDataQualityValidator creates a validator requiring minRows rows that all carry requiredFields.
func NewDataQualityValidator(minRows int, requiredFields []string, options ...DataQualityOption) *DataQualityValidator {
	v := &DataQualityValidator{
		MinRows:         minRows,
		RequiredFields:  requiredFields,
		FieldValidators: make(map[string]FieldValidator),
	}
	for _, option := range options {
		option(v)
	}
	return v
}

// Validate returns a *ValidationError for the first failed check.
func (v *DataQualityValidator) Validate(rows []core.Row) error {
	n := len(rows)
	if n < v.MinRows {
		return &ValidationError{Index: -1, Err: fmt.Errorf("insufficient rows: got %d, need at least %d", n, v.MinRows)}
	}
	if v.MaxRows > 0 && n > v.MaxRows {
		return &ValidationError{Index: -1, Err: fmt.Errorf("too many rows: got %d, maximum allowed %d", n, v.MaxRows)}
	}
	if n == 0 {
		return nil
	}

	for i, row := range rows {
		for _, field := range v.RequiredFields {
			if _, ok := row[field]; !ok {
				return &ValidationError{Field: field, Index: i, Err: fmt.Errorf("missing required field")}
			}
		}
		for field, fv := range v.FieldValidators {
			value, ok := row[field]
			if !ok {
				if fv.Optional {
					continue
				}
				return &ValidationError{Field: field, Index: i, Err: fmt.Errorf("missing field")}
			}
			if value == "" {
				continue
			}
			if err := checkValue(value, fv); err != nil {
				return &ValidationError{Field: field, Index: i, Err: err}
			}
		}
	}

	if err := v.checkEmptyRates(rows); err != nil {
		return err
	}

	for i, fn := range v.Custom {
		if err := fn(rows); err != nil {
			return &ValidationError{Index: -1, Err: fmt.Errorf("custom validator %d: %w", i, err)}
		}
	}
	return nil
}

func (v *DataQualityValidator) checkEmptyRates(rows []core.Row) error {
	if v.MaxEmptyRate <= 0 {
		return nil
	}

	fields := make(map[string]struct{})
	for _, row := range rows {
		for field := range row {
			fields[field] = struct{}{}
		}
	}
	for field := range fields {
		empty := 0
		for _, row := range rows {
			if row[field] == "" {
				empty++
			}
		}
		rate := float64(empty) / float64(len(rows))
		if rate > v.MaxEmptyRate {
			return &ValidationError{Field: field, Index: -1, Err: fmt.Errorf("empty rate %.2f exceeds maximum %.2f", rate, v.MaxEmptyRate)}
		}
	}
	return nil
}

func checkValue(value string, fv FieldValidator) error {
	switch fv.Kind {
	case KindNumber:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("value %q is not a number", value)
		}
		if fv.Min != nil && f < *fv.Min {
			return fmt.Errorf("value %v below minimum %v", f, *fv.Min)
		}
		if fv.Max != nil && f > *fv.Max {
			return fmt.Errorf("value %v above maximum %v", f, *fv.Max)
		}
	case KindDate:
		if !isDate(value) {
			return fmt.Errorf("value %q is not a date", value)
		}
	}

	if fv.Pattern != nil && !fv.Pattern.MatchString(value) {
		return fmt.Errorf("value %q does not match pattern", value)
	}
	if len(fv.Allowed) > 0 {
		for _, allowed := range fv.Allowed {
			if value == allowed {
				return nil
			}
		}
		return fmt.Errorf("value %q not in allowed values", value)
	}
	return nil
}

var dateLayouts = []string{"2006-01-02", "2006-1-2", "2006-01", "2006-1", "2006"}

func isDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// SitrepValidator checks a joined situation report table: key fields on every
// row, a parseable TIME_PERIOD and numeric values in the given columns.
func SitrepValidator(valueColumns []string, options ...DataQualityOption) *DataQualityValidator {
	v := NewDataQualityValidator(1, core.KeyFields(),
		WithFieldValidator(core.FieldTimePeriod, FieldValidator{Kind: KindDate}),
	)
	for _, col := range valueColumns {
		v.FieldValidators[col] = FieldValidator{Kind: KindNumber, Optional: true}
	}
	for _, option := range options {
		option(v)
	}
	return v
}
