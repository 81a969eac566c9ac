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
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aaronlmathis/sitrep/core"
)

// This file implements a MongoDB reader for report tables mirrored into a collection,
// one document per row. Documents are decoded as bson.D so field order survives.

// MongoReaderError provides structured error information for MongoDB reader operations
type MongoReaderError struct {
	Op         string
	Collection string
	Err        error
}

func (e *MongoReaderError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("mongo reader %s [%s]: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("mongo reader %s: %v", e.Op, e.Err)
}

func (e *MongoReaderError) Unwrap() error {
	return e.Err
}

// MongoReaderOptions configures the MongoDB reader
type MongoReaderOptions struct {
	URI        string        // Connection string without database/collection path
	Database   string        // Database name
	Collection string        // Collection name
	Filter     bson.M        // Query filter
	Sort       bson.D        // Sort order; defaults to natural order
	BatchSize  int32         // Cursor batch size
	Timeout    time.Duration // Connect and query timeout
	IncludeID  bool          // Keep the _id field in rows
}

// ReaderOptionMongo is a functional option for MongoReaderOptions
type ReaderOptionMongo func(*MongoReaderOptions)

func WithMongoURI(uri string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.URI = uri
	}
}

func WithMongoDB(database string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Database = database
	}
}

func WithMongoCollection(collection string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Collection = collection
	}
}

func WithMongoFilter(filter bson.M) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Filter = filter
	}
}

func WithMongoSort(sort bson.D) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Sort = sort
	}
}

func WithMongoTimeout(timeout time.Duration) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Timeout = timeout
	}
}

func WithMongoIncludeID(include bool) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.IncludeID = include
	}
}

// MongoReader implements core.DataSource for a MongoDB collection
type MongoReader struct {
	client  *mongo.Client
	cursor  *mongo.Cursor
	opts    *MongoReaderOptions
	headers *headerSet
	read    int64
}

// NewMongoReader creates a new MongoDB reader. The connection is opened on first Read.
func NewMongoReader(options ...ReaderOptionMongo) (*MongoReader, error) {
	opts := &MongoReaderOptions{
		URI:       "mongodb://localhost:27017",
		BatchSize: 1000,
		Timeout:   30 * time.Second,
	}
	for _, option := range options {
		option(opts)
	}

	if opts.Database == "" {
		return nil, &MongoReaderError{Op: "validate", Err: fmt.Errorf("database name is required")}
	}
	if opts.Collection == "" {
		return nil, &MongoReaderError{Op: "validate", Err: fmt.Errorf("collection name is required")}
	}

	return &MongoReader{opts: opts, headers: newHeaderSet()}, nil
}

// Read implements the core.DataSource interface
func (mr *MongoReader) Read(ctx context.Context) (core.Row, error) {
	if mr.cursor == nil {
		if err := mr.open(ctx); err != nil {
			return nil, err
		}
	}

	if !mr.cursor.Next(ctx) {
		if err := mr.cursor.Err(); err != nil {
			return nil, &MongoReaderError{Op: "cursor_next", Collection: mr.opts.Collection, Err: err}
		}
		return nil, io.EOF
	}

	var doc bson.D
	if err := mr.cursor.Decode(&doc); err != nil {
		return nil, &MongoReaderError{Op: "decode", Collection: mr.opts.Collection, Err: err}
	}

	row := make(core.Row, len(doc))
	for _, elem := range doc {
		if elem.Key == "_id" && !mr.opts.IncludeID {
			continue
		}
		mr.headers.add(elem.Key)
		row[elem.Key] = bsonValueString(elem.Value)
	}

	mr.read++
	return row, nil
}

// Headers returns field names in first-seen document order.
func (mr *MongoReader) Headers() []string {
	return mr.headers.list()
}

// Close implements the core.DataSource interface
func (mr *MongoReader) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mr.opts.Timeout)
	defer cancel()

	var firstErr error
	if mr.cursor != nil {
		firstErr = mr.cursor.Close(ctx)
		mr.cursor = nil
	}
	if mr.client != nil {
		if err := mr.client.Disconnect(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		mr.client = nil
	}
	return firstErr
}

func (mr *MongoReader) open(ctx context.Context) error {
	clientOpts := options.Client().
		ApplyURI(mr.opts.URI).
		SetConnectTimeout(mr.opts.Timeout).
		SetServerSelectionTimeout(mr.opts.Timeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return &MongoReaderError{Op: "connect", Err: err}
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return &MongoReaderError{Op: "ping", Err: err}
	}
	mr.client = client

	findOpts := options.Find().SetBatchSize(mr.opts.BatchSize)
	if len(mr.opts.Sort) > 0 {
		findOpts.SetSort(mr.opts.Sort)
	}

	filter := mr.opts.Filter
	if filter == nil {
		filter = bson.M{}
	}

	cursor, err := client.Database(mr.opts.Database).Collection(mr.opts.Collection).Find(ctx, filter, findOpts)
	if err != nil {
		return &MongoReaderError{Op: "find", Collection: mr.opts.Collection, Err: err}
	}
	mr.cursor = cursor
	return nil
}

// bsonValueString renders a BSON value as report text.
func bsonValueString(value interface{}) string {
	switch v := value.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case primitive.ObjectID:
		return v.Hex()
	case primitive.DateTime:
		return v.Time().UTC().Format(time.RFC3339)
	case primitive.Decimal128:
		return v.String()
	case primitive.Symbol:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
