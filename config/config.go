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

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/aaronlmathis/sitrep/core"
)

// Package config loads the project configuration: which reports to fetch, where
// their values land in the joined table, and how datasets are described.

// ReportPrefix marks top-level configuration keys that describe a report.
const ReportPrefix = "CV"

// ConfigError reports a problem loading or validating configuration.
type ConfigError struct {
	Op     string
	Report string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Report != "" {
		return fmt.Sprintf("config %s: report %s: %v", e.Op, e.Report, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ReportConfig describes one per-indicator report.
type ReportConfig struct {
	ID          string `yaml:"-"`
	URL         string `yaml:"url"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Filename    string `yaml:"filename"`

	// ObservationField names the joined column that receives OBS_VALUE. Nil means
	// the report's observations are not carried into the join.
	ObservationField *string `yaml:"observation_field"`
	// TargetField names the joined column that receives TARGET.
	TargetField *string `yaml:"target_field"`
}

// Destinations returns the joined column names this report writes to.
func (r ReportConfig) Destinations() []string {
	var out []string
	if r.ObservationField != nil {
		out = append(out, *r.ObservationField)
	}
	if r.TargetField != nil {
		out = append(out, *r.TargetField)
	}
	return out
}

// Reports is an ordered list of report configurations.
type Reports []ReportConfig

// ByID returns the report with the given ID.
func (rs Reports) ByID(id string) (ReportConfig, bool) {
	for _, r := range rs {
		if r.ID == id {
			return r, true
		}
	}
	return ReportConfig{}, false
}

// IDs returns the report IDs in order.
func (rs Reports) IDs() []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.ID
	}
	return ids
}

// Validate checks that IDs and locators are set and that destination columns are
// non-empty, unique across reports and distinct from the join key fields.
func (rs Reports) Validate() error {
	keyFields := make(map[string]struct{})
	for _, f := range core.KeyFields() {
		keyFields[f] = struct{}{}
	}

	ids := make(map[string]struct{}, len(rs))
	owners := make(map[string]string)
	for _, r := range rs {
		if r.ID == "" {
			return &ConfigError{Op: "validate", Err: fmt.Errorf("report without id")}
		}
		if _, dup := ids[r.ID]; dup {
			return &ConfigError{Op: "validate", Report: r.ID, Err: fmt.Errorf("duplicate report id")}
		}
		ids[r.ID] = struct{}{}

		if r.URL == "" {
			return &ConfigError{Op: "validate", Report: r.ID, Err: fmt.Errorf("url is required")}
		}

		for _, dest := range r.Destinations() {
			if dest == "" {
				return &ConfigError{Op: "validate", Report: r.ID, Err: fmt.Errorf("empty destination field")}
			}
			if _, ok := keyFields[dest]; ok {
				return &ConfigError{Op: "validate", Report: r.ID, Err: fmt.Errorf("destination %q collides with a key field", dest)}
			}
			if owner, ok := owners[dest]; ok {
				return &ConfigError{Op: "validate", Report: r.ID, Err: fmt.Errorf("destination %q already used by %s", dest, owner)}
			}
			owners[dest] = r.ID
		}
	}
	return nil
}

// Dataset describes the published dataset for each country.
type Dataset struct {
	Maintainer      string   `yaml:"maintainer"`
	Organization    string   `yaml:"organization"`
	Tags            []string `yaml:"tags"`
	UpdateFrequency string   `yaml:"update_frequency"`
	// NameTemplate and TitleTemplate take the country name through %s.
	NameTemplate  string `yaml:"name_template"`
	TitleTemplate string `yaml:"title_template"`
	// ResourceName and ResourceDescription describe the joined resource; ResourceName takes the country name.
	ResourceName        string `yaml:"resource_name"`
	ResourceDescription string `yaml:"resource_description"`
}

// DefaultDataset returns the dataset description used when the configuration has none.
func DefaultDataset() Dataset {
	return Dataset{
		Tags:                []string{"hxl", "children"},
		UpdateFrequency:     "Every month",
		NameTemplate:        "UNICEF SAM COVID-19 indicators for %s",
		TitleTemplate:       "%s - COVID-19 Situation Report",
		ResourceName:        "COVID-19 indicators for %s",
		ResourceDescription: "COVID-19 Situation Report",
	}
}

// merge returns d with every non-empty field of override applied.
func (d Dataset) merge(override Dataset) Dataset {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&d.Maintainer, override.Maintainer)
	set(&d.Organization, override.Organization)
	set(&d.UpdateFrequency, override.UpdateFrequency)
	set(&d.NameTemplate, override.NameTemplate)
	set(&d.TitleTemplate, override.TitleTemplate)
	set(&d.ResourceName, override.ResourceName)
	set(&d.ResourceDescription, override.ResourceDescription)
	if override.Tags != nil {
		d.Tags = override.Tags
	}
	return d
}

// Config is the whole project configuration.
type Config struct {
	Reports      Reports
	IncludeWorld bool
	Dataset      Dataset
	// QCIndicators is carried through to the dataset manifest untouched.
	QCIndicators interface{}
}

// Load reads and validates the YAML configuration at path.
func Load(path string) (*Config, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, &ConfigError{Op: "load", Err: err}
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, &ConfigError{Op: "load", Err: err}
	}
	return Parse(data)
}

// Parse decodes a YAML configuration. Report entries keep their document order.
func Parse(data []byte) (*Config, error) {
	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	cfg := &Config{IncludeWorld: true, Dataset: DefaultDataset()}
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, &ConfigError{Op: "parse", Err: err}
	}
	if len(doc.Content) == 0 {
		return cfg, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ConfigError{Op: "parse", Err: fmt.Errorf("top level must be a mapping, line %d", root.Line)}
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i].Value, root.Content[i+1]

		switch {
		case strings.HasPrefix(key, ReportPrefix):
			var report ReportConfig
			if err := value.Decode(&report); err != nil {
				return nil, &ConfigError{Op: "parse", Report: key, Err: err}
			}
			report.ID = key
			if report.Filename == "" {
				report.Filename = strings.ToLower(key)
			}
			cfg.Reports = append(cfg.Reports, report)
		case key == "include_world":
			if err := value.Decode(&cfg.IncludeWorld); err != nil {
				return nil, &ConfigError{Op: "parse", Err: fmt.Errorf("include_world: %w", err)}
			}
		case key == "dataset":
			var dataset Dataset
			if err := value.Decode(&dataset); err != nil {
				return nil, &ConfigError{Op: "parse", Err: fmt.Errorf("dataset: %w", err)}
			}
			cfg.Dataset = cfg.Dataset.merge(dataset)
		case key == "qc_indicators":
			if err := value.Decode(&cfg.QCIndicators); err != nil {
				return nil, &ConfigError{Op: "parse", Err: fmt.Errorf("qc_indicators: %w", err)}
			}
		}
	}

	if err := cfg.Reports.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
