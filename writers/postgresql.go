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

package writers

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/aaronlmathis/sitrep/core"
)

// PostgresWriterError wraps PostgreSQL-specific write errors with context about the operation.
type PostgresWriterError struct {
	Op  string
	Err error
}

func (e *PostgresWriterError) Error() string {
	return fmt.Sprintf("postgres writer %s: %v", e.Op, e.Err)
}

func (e *PostgresWriterError) Unwrap() error {
	return e.Err
}

// PostgresWriterStats holds PostgreSQL write statistics.
type PostgresWriterStats struct {
	RecordsWritten   int64
	BatchesWritten   int64
	TransactionCount int64
	WriteDuration    time.Duration
	ConnectionTime   time.Duration
	ConflictCount    int64
}

// ConflictResolution defines how INSERT conflicts are handled.
type ConflictResolution int

const (
	// ConflictError fails on conflict.
	ConflictError ConflictResolution = iota
	// ConflictIgnore skips conflicting rows (ON CONFLICT DO NOTHING).
	ConflictIgnore
	// ConflictUpdate overwrites conflicting rows (ON CONFLICT DO UPDATE).
	ConflictUpdate
)

// PostgresWriterOptions configures the PostgreSQL writer.
type PostgresWriterOptions struct {
	DSN                string
	TableName          string
	Columns            []string
	BatchSize          int
	CreateTable        bool
	ConflictResolution ConflictResolution
	ConflictColumns    []string
	UpdateColumns      []string
	QueryTimeout       time.Duration
	MaxOpenConns       int
}

// PostgresWriterOption configures a PostgresWriter.
type PostgresWriterOption func(*PostgresWriterOptions)

func WithPostgresDSN(dsn string) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.DSN = dsn
	}
}

func WithTableName(tableName string) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.TableName = tableName
	}
}

// WithColumns fixes the column list. Without it columns come from the first row, sorted.
func WithColumns(columns []string) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.Columns = append([]string(nil), columns...)
	}
}

func WithPostgresBatchSize(size int) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.BatchSize = size
	}
}

// WithCreateTable creates the table with TEXT columns when it does not exist.
func WithCreateTable(create bool) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.CreateTable = create
	}
}

// WithConflictResolution sets the ON CONFLICT behaviour.
func WithConflictResolution(resolution ConflictResolution, conflictCols, updateCols []string) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.ConflictResolution = resolution
		opts.ConflictColumns = conflictCols
		opts.UpdateColumns = updateCols
	}
}

func WithPostgresQueryTimeout(timeout time.Duration) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.QueryTimeout = timeout
	}
}

// PostgresWriter implements core.DataSink for PostgreSQL. Values are stored as
// TEXT; a row without a column stores NULL.
type PostgresWriter struct {
	db          *sql.DB
	options     PostgresWriterOptions
	columns     []string
	buffer      []core.Row
	stats       PostgresWriterStats
	initialized bool
	errorState  bool
	mu          sync.Mutex
}

// NewPostgresWriter validates the options and connects.
func NewPostgresWriter(opts ...PostgresWriterOption) (*PostgresWriter, error) {
	options := PostgresWriterOptions{
		BatchSize:    500,
		QueryTimeout: 30 * time.Second,
		MaxOpenConns: 4,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if err := validatePostgresOptions(&options); err != nil {
		return nil, &PostgresWriterError{Op: "validate", Err: err}
	}

	w := &PostgresWriter{
		options: options,
		columns: options.Columns,
		buffer:  make([]core.Row, 0, options.BatchSize),
	}
	if err := w.connect(); err != nil {
		return nil, &PostgresWriterError{Op: "connect", Err: err}
	}
	return w, nil
}

// Stats returns a copy of the write statistics.
func (w *PostgresWriter) Stats() PostgresWriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Write implements core.DataSink.
func (w *PostgresWriter) Write(ctx context.Context, row core.Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.errorState {
		return &PostgresWriterError{Op: "write", Err: fmt.Errorf("writer is in error state")}
	}

	if !w.initialized {
		if err := w.initializeUnsafe(ctx, row); err != nil {
			w.errorState = true
			return &PostgresWriterError{Op: "initialize", Err: err}
		}
	}

	w.buffer = append(w.buffer, row)
	w.stats.RecordsWritten++

	if len(w.buffer) >= w.options.BatchSize {
		if err := w.flushBufferUnsafe(ctx); err != nil {
			w.errorState = true
			return &PostgresWriterError{Op: "flush_batch", Err: err}
		}
	}
	return nil
}

// Flush implements core.DataSink.
func (w *PostgresWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), w.options.QueryTimeout)
	defer cancel()

	if err := w.flushBufferUnsafe(ctx); err != nil {
		return &PostgresWriterError{Op: "flush", Err: err}
	}
	return nil
}

// Close flushes and closes the connection pool.
func (w *PostgresWriter) Close() error {
	flushErr := w.Flush()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.db != nil {
		if err := w.db.Close(); err != nil && flushErr == nil {
			return err
		}
	}
	return flushErr
}

func validatePostgresOptions(opts *PostgresWriterOptions) error {
	if opts.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	if opts.TableName == "" {
		return fmt.Errorf("table name is required")
	}
	if opts.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if opts.ConflictResolution != ConflictError && len(opts.ConflictColumns) == 0 {
		return fmt.Errorf("conflict columns required for conflict resolution")
	}
	if opts.ConflictResolution == ConflictUpdate && len(opts.UpdateColumns) == 0 {
		return fmt.Errorf("update columns required for conflict update resolution")
	}
	return nil
}

func (w *PostgresWriter) connect() error {
	start := time.Now()

	db, err := sql.Open("postgres", w.options.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(w.options.MaxOpenConns)

	ctx, cancel := context.WithTimeout(context.Background(), w.options.QueryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	w.db = db
	w.stats.ConnectionTime = time.Since(start)
	return nil
}

func (w *PostgresWriter) initializeUnsafe(ctx context.Context, first core.Row) error {
	if len(w.columns) == 0 {
		for key := range first {
			w.columns = append(w.columns, key)
		}
		sort.Strings(w.columns)
	}

	if w.options.CreateTable {
		if _, err := w.db.ExecContext(ctx, createTableQuery(w.options.TableName, w.columns)); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	w.initialized = true
	return nil
}

func (w *PostgresWriter) flushBufferUnsafe(ctx context.Context) (err error) {
	if len(w.buffer) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertQuery(w.options, w.columns))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range w.buffer {
		values := make([]interface{}, len(w.columns))
		for i, col := range w.columns {
			if v, ok := row[col]; ok {
				values[i] = v
			}
		}
		result, execErr := stmt.ExecContext(ctx, values...)
		if execErr != nil {
			err = fmt.Errorf("failed to execute insert: %w", execErr)
			return err
		}
		if n, rerr := result.RowsAffected(); rerr == nil && n == 0 {
			w.stats.ConflictCount++
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.stats.TransactionCount++
	w.stats.BatchesWritten++
	w.stats.WriteDuration += time.Since(start)
	w.buffer = w.buffer[:0]
	return nil
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = pq.QuoteIdentifier(n)
	}
	return out
}

func createTableQuery(table string, columns []string) string {
	defs := make([]string, len(columns))
	for i, col := range quoteAll(columns) {
		defs[i] = col + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", pq.QuoteIdentifier(table), strings.Join(defs, ", "))
}

func insertQuery(opts PostgresWriterOptions, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(opts.TableName),
		strings.Join(quoteAll(columns), ", "),
		strings.Join(placeholders, ", "))

	switch opts.ConflictResolution {
	case ConflictIgnore:
		query += fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(quoteAll(opts.ConflictColumns), ", "))
	case ConflictUpdate:
		updates := make([]string, len(opts.UpdateColumns))
		for i, col := range quoteAll(opts.UpdateColumns) {
			updates[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
		}
		query += fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s",
			strings.Join(quoteAll(opts.ConflictColumns), ", "),
			strings.Join(updates, ", "))
	}
	return query
}
