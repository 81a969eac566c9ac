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

package readers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBSONValueString(t *testing.T) {
	when := time.Date(2020, 4, 9, 0, 0, 0, 0, time.UTC)
	oid, err := primitive.ObjectIDFromHex("5f1b2c3d4e5f6a7b8c9d0e1f")
	require.NoError(t, err)

	tests := []struct {
		name     string
		value    interface{}
		expected string
	}{
		{"nil", nil, ""},
		{"string", "AFG", "AFG"},
		{"int32", int32(7), "7"},
		{"int64", int64(-3), "-3"},
		{"float", 1.25, "1.25"},
		{"bool", true, "true"},
		{"object id", oid, "5f1b2c3d4e5f6a7b8c9d0e1f"},
		{"datetime", primitive.NewDateTimeFromTime(when), "2020-04-09T00:00:00Z"},
		{"null", primitive.Null{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, bsonValueString(tt.value))
		})
	}
}

func TestNewMongoReader_Validation(t *testing.T) {
	_, err := NewMongoReader(WithMongoCollection("sitrep"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database name is required")

	_, err = NewMongoReader(WithMongoDB("unicef"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collection name is required")

	reader, err := NewMongoReader(WithMongoDB("unicef"), WithMongoCollection("cv_01"))
	require.NoError(t, err)
	assert.Empty(t, reader.Headers())
}
