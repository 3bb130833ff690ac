// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/offprint-labs/offprint/lib/gid"
	"github.com/offprint-labs/offprint/lib/record"
	"github.com/offprint-labs/offprint/lib/sqlitepool"
)

// Config holds the parameters for opening a catalog.
type Config struct {
	// Path is the filesystem path to the catalog database file. The
	// parent directory must exist. Required.
	Path string

	// DataDir is the root directory holding record files. Storage
	// paths in the catalog are relative to it. Required.
	DataDir string

	// PoolSize is the number of connections in the pool. Defaults to
	// 4 if zero or negative.
	PoolSize int

	// Logger receives operational messages. Defaults to a discard
	// logger.
	Logger *slog.Logger
}

// Catalog is the SQLite-backed record inventory. Writes run in
// immediate transactions; reads run on pooled connections without
// explicit transactions (WAL gives them a consistent snapshot).
type Catalog struct {
	pool    *sqlitepool.Pool
	dataDir string
	logger  *slog.Logger
}

// Open opens the catalog database, creating it and applying the schema
// if necessary.
func Open(cfg Config) (*Catalog, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("catalog: Path is required")
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("catalog: DataDir is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: poolSize,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	return &Catalog{pool: pool, dataDir: cfg.DataDir, logger: logger}, nil
}

// Close closes the underlying connection pool. Blocks until all
// borrowed connections are returned.
func (c *Catalog) Close() error {
	return c.pool.Close()
}

// InsertOperationGroup records a parameter sweep and returns its
// assigned id. Ranges is the sweep's parameter-range description,
// opaque to the catalog.
func (c *Catalog) InsertOperationGroup(ctx context.Context, name, ranges string) (id int64, err error) {
	if name == "" {
		return 0, fmt.Errorf("catalog: insert operation group: empty name")
	}

	conn, err := c.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("catalog: insert operation group: %w", err)
	}
	defer c.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, fmt.Errorf("catalog: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn,
		`INSERT INTO operation_groups (name, ranges) VALUES (?, ?)`,
		&sqlitex.ExecOptions{Args: []any{name, ranges}})
	if err != nil {
		return 0, fmt.Errorf("catalog: inserting operation group %q: %w", name, err)
	}
	return conn.LastInsertRowID(), nil
}

// InsertOperation records a provenance operation and returns its
// assigned id. The caller's ID field is ignored. A zero
// OperationGroupID means the operation ran outside any sweep; a zero
// Created defaults to now.
func (c *Catalog) InsertOperation(ctx context.Context, op record.Operation) (id int64, err error) {
	if !op.Status.Valid() {
		return 0, fmt.Errorf("catalog: insert operation: unknown status %q", op.Status)
	}

	conn, err := c.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("catalog: insert operation: %w", err)
	}
	defer c.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, fmt.Errorf("catalog: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	var operationGroup any
	if op.OperationGroupID != 0 {
		operationGroup = op.OperationGroupID
	}

	err = sqlitex.Execute(conn,
		`INSERT INTO operations (operation_group_id, configuration_gid, status, created_at)
		 VALUES (?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			operationGroup,
			gidText(op.ConfigurationGid),
			string(op.Status),
			timestamp(op.Created),
		}})
	if err != nil {
		return 0, fmt.Errorf("catalog: inserting operation: %w", err)
	}
	return conn.LastInsertRowID(), nil
}

// InsertRecord adds a record row. The record must pass Validate and
// name an existing operation. A zero Created defaults to now.
func (c *Catalog) InsertRecord(ctx context.Context, r record.Record) (err error) {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("catalog: insert record: %w", err)
	}

	conn, err := c.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("catalog: insert record: %w", err)
	}
	defer c.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("catalog: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn,
		`INSERT INTO records (gid, type_name, role, source_gid, operation_id, storage_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			r.Gid.String(),
			r.TypeName,
			r.Role.String(),
			gidText(r.SourceGid),
			r.OperationID,
			r.StoragePath,
			timestamp(r.Created),
		}})
	if err != nil {
		return fmt.Errorf("catalog: inserting record %s: %w", r.Gid, err)
	}
	return nil
}

// InsertGroup adds an ensemble row plus its ordered membership. Every
// member must already exist as a record and agree with the group on
// type and role. An empty member list is allowed: sweeps register
// their ensemble before the first member operation finishes.
func (c *Catalog) InsertGroup(ctx context.Context, g record.Group, members []gid.Gid) (err error) {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("catalog: insert group: %w", err)
	}

	conn, err := c.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("catalog: insert group: %w", err)
	}
	defer c.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("catalog: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	for i, memberGid := range members {
		member, loadErr := loadRecord(conn, memberGid)
		if loadErr != nil {
			return fmt.Errorf("catalog: insert group %s: member %d: %w", g.Gid, i, loadErr)
		}
		if member.TypeName != g.TypeName || member.Role != g.Role {
			return fmt.Errorf("catalog: insert group %s: member %s is %s/%s, group holds %s/%s",
				g.Gid, memberGid, member.TypeName, member.Role, g.TypeName, g.Role)
		}
	}

	err = sqlitex.Execute(conn,
		`INSERT INTO record_groups (gid, name, type_name, role, operation_group_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			g.Gid.String(),
			g.Name,
			g.TypeName,
			g.Role.String(),
			g.OperationGroupID,
			timestamp(g.Created),
		}})
	if err != nil {
		return fmt.Errorf("catalog: inserting group %s: %w", g.Gid, err)
	}

	for i, memberGid := range members {
		err = sqlitex.Execute(conn,
			`INSERT INTO record_group_members (group_gid, position, member_gid) VALUES (?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{g.Gid.String(), i, memberGid.String()}})
		if err != nil {
			return fmt.Errorf("catalog: inserting group %s member %d: %w", g.Gid, i, err)
		}
	}
	return nil
}

// DeleteRecord removes a record row. Membership rows naming the record
// are left in place: a flatten over the containing ensemble reports the
// member as dangling rather than silently shrinking. The record file is
// not touched.
func (c *Catalog) DeleteRecord(ctx context.Context, g gid.Gid) (err error) {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("catalog: delete record: %w", err)
	}
	defer c.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("catalog: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn,
		`DELETE FROM records WHERE gid = ?`,
		&sqlitex.ExecOptions{Args: []any{g.String()}})
	if err != nil {
		return fmt.Errorf("catalog: deleting record %s: %w", g, err)
	}
	if conn.Changes() == 0 {
		return &NotFoundError{Kind: "record", Gid: g}
	}
	return nil
}

// ListRecords returns records ordered by creation time, optionally
// filtered to one type name. An empty typeName lists everything.
func (c *Catalog) ListRecords(ctx context.Context, typeName string) ([]record.Record, error) {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list records: %w", err)
	}
	defer c.pool.Put(conn)

	query := `SELECT gid, type_name, role, source_gid, operation_id, storage_path, created_at
		FROM records ORDER BY created_at, gid`
	var args []any
	if typeName != "" {
		query = `SELECT gid, type_name, role, source_gid, operation_id, storage_path, created_at
			FROM records WHERE type_name = ? ORDER BY created_at, gid`
		args = []any{typeName}
	}

	var records []record.Record
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			r, scanErr := scanRecord(stmt)
			if scanErr != nil {
				return scanErr
			}
			records = append(records, *r)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: listing records: %w", err)
	}
	return records, nil
}

// gidText returns the stored text form of a gid: the empty string for
// the zero gid, the 32-hex form otherwise.
func gidText(g gid.Gid) string {
	if g.IsZero() {
		return ""
	}
	return g.String()
}

// parseGidText inverts gidText.
func parseGidText(s string) (gid.Gid, error) {
	if s == "" {
		return gid.Gid{}, nil
	}
	return gid.Parse(s)
}

// timestamp returns t as stored Unix nanoseconds, defaulting a zero
// time to now.
func timestamp(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UnixNano()
}
