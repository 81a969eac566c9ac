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

package countries

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	table := Default()
	assert.Equal(t, 250, table.Len())

	tests := []struct {
		code string
		name string
		ok   bool
	}{
		{"AFG", "Afghanistan", true},
		{"syr", "Syrian Arab Republic", true},
		{" COD ", "Democratic Republic of the Congo", true},
		{"CIV", "Côte d'Ivoire", true},
		{"world", "", false},
		{"ZZZ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			name, ok := table.NameFor(tt.code)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestLoad_RejectsBadEntries(t *testing.T) {
	_, err := Load(context.Background(), strings.NewReader("iso3,name\nAF,Afghanistan\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad entry")
}

func TestNewTable(t *testing.T) {
	table := NewTable(map[string]string{"afg": "Afghanistan"})
	name, ok := table.NameFor("AFG")
	assert.True(t, ok)
	assert.Equal(t, "Afghanistan", name)
}
