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

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/sitrep/emit"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-format", "parquet", "-parallel", "4", "-countries", "AFG,SYR", "-no-world"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "parquet", opts.format)
	assert.Equal(t, 4, opts.parallel)
	assert.True(t, opts.noWorld)
	assert.Equal(t, []string{"AFG", "SYR"}, opts.countryCodes())

	opts, err = parseFlags(nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "config/project_configuration.yml", opts.configPath)
	assert.Nil(t, opts.countryCodes())

	_, err = parseFlags([]string{"-parallel", "0"}, io.Discard)
	assert.EqualError(t, err, "-parallel must be at least 1")

	_, err = parseFlags([]string{"-s3-prefix", "x"}, io.Discard)
	assert.EqualError(t, err, "-s3-prefix requires -s3-bucket")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger("warn", "run-1", &buf)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "run-1")

	_, err = newLogger("loud", "run-1", &buf)
	assert.Error(t, err)
}

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	report1 := "REF_AREA,Geographic area,SITREP_INDICATOR,TIME_PERIOD,OBS_VALUE,DATA_SOURCE,TARGET\n" +
		"AFG,Afghanistan,CV-01-01,2020-4-9,1,Source1,2\n" +
		"SYR,Syrian Arab Republic,CV-01-01,2020-4-9,7,Source1,8\n"
	report2 := "REF_AREA,Geographic area,SITREP_INDICATOR,TIME_PERIOD,OBS_VALUE,DATA_SOURCE,TARGET\n" +
		"AFG,Afghanistan,CV-01-02,2020-4-9,3,Source1,4\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cv_01_01.csv"), []byte(report1), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cv_01_02.csv"), []byte(report2), 0o644))

	cfg := fmt.Sprintf(`CV_01_01:
  url: %s
  filename: wash_supplies
  observation_field: observation_field1
  target_field: target_field1
CV_01_02:
  url: %s
  observation_field: observation_field2
dataset:
  maintainer: 9957c0e9-cd38-40f1-900b-22c91276154b
`, filepath.Join(dir, "cv_01_01.csv"), filepath.Join(dir, "cv_01_02.csv"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(cfg), 0o644))
	return dir
}

func TestRun(t *testing.T) {
	dir := writeFixtures(t)
	out := filepath.Join(dir, "out")

	err := run(context.Background(), []string{
		"-config", filepath.Join(dir, "config.yml"),
		"-out", out,
		"-parallel", "2",
		"-countries", "afg,world",
		"-validate",
		"-log-level", "error",
	}, io.Discard)
	require.NoError(t, err)

	joined, err := os.ReadFile(filepath.Join(out, "afg", "covid19sitrep_afg.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		"REF_AREA,Geographic area,TIME_PERIOD,DATA_SOURCE,observation_field1,target_field1,observation_field2\n"+
			"#country+code,#country+name,#date,#meta+source,#observation_field1,#target_field1,#observation_field2\n"+
			"AFG,Afghanistan,2020-4-9,Source1,1,2,3\n",
		string(joined))

	m, err := emit.ReadManifest(filepath.Join(out, "world", "dataset_world.json"))
	require.NoError(t, err)
	assert.Equal(t, "unicef-sam-covid-19-indicators-for-world", m.Name)
	assert.Equal(t, "9957c0e9-cd38-40f1-900b-22c91276154b", m.Maintainer)
	assert.Equal(t, 2, m.Resources[0].Rows)

	_, err = os.Stat(filepath.Join(out, "syr"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(out, "afg", "wash_supplies_afg.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(out, "afg", "cv_01_02_afg.csv"))
	assert.NoError(t, err)
}

func TestRun_MissingConfig(t *testing.T) {
	err := run(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "nope.yml")}, io.Discard)
	assert.Error(t, err)
}

func TestRun_BadFormat(t *testing.T) {
	dir := writeFixtures(t)
	err := run(context.Background(), []string{
		"-config", filepath.Join(dir, "config.yml"),
		"-out", filepath.Join(dir, "out"),
		"-format", "xlsx",
	}, io.Discard)
	assert.EqualError(t, err, `unsupported format "xlsx"`)
}
