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

package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/aaronlmathis/sitrep/core"
	"github.com/aaronlmathis/sitrep/validators"
)

// Manifest is the dataset description written next to each country's resources.
type Manifest struct {
	Name            string                 `json:"name"`
	Title           string                 `json:"title"`
	Country         core.Country           `json:"country"`
	Maintainer      string                 `json:"maintainer,omitempty"`
	Organization    string                 `json:"owner_org,omitempty"`
	Tags            []string               `json:"tags"`
	UpdateFrequency string                 `json:"data_update_frequency"`
	Subnational     bool                   `json:"subnational"`
	DateRange       *DateRange             `json:"dataset_date,omitempty"`
	Resources       []Resource             `json:"resources"`
	Showcase        Showcase               `json:"showcase"`
	QCIndicators    interface{}            `json:"qc_indicators,omitempty"`
	QuickCharts     []validators.Indicator `json:"quickcharts,omitempty"`
	RunID           string                 `json:"run_id"`
	GeneratedAt     time.Time              `json:"generated_at"`
}

// DateRange spans the TIME_PERIOD values of the joined rows.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Resource is one emitted file.
type Resource struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Report      string `json:"report,omitempty"`
	File        string `json:"file"`
	Format      Format `json:"format"`
	Rows        int    `json:"rows"`
	Checksum    string `json:"xxh3"`
	Key         string `json:"s3_key,omitempty"`
}

// Showcase links a dataset to its visualisation page.
type Showcase struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// FileChecksum returns the hex XXH3-64 digest of the file at path.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// ReadManifest loads a manifest written by an Emitter.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return &m, nil
}

func writeManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
