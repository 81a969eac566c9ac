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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"UNICEF SAM COVID-19 indicators for Afghanistan", "unicef-sam-covid-19-indicators-for-afghanistan"},
		{"UNICEF SAM COVID-19 indicators for Côte d'Ivoire", "unicef-sam-covid-19-indicators-for-cote-d-ivoire"},
		{"UNICEF SAM COVID-19 indicators for Curaçao", "unicef-sam-covid-19-indicators-for-curacao"},
		{"Bolivia (Plurinational State of)", "bolivia-plurinational-state-of"},
		{"  World  ", "world"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}
