// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/offprint-labs/offprint/lib/export"
	"github.com/offprint-labs/offprint/lib/gid"
	"github.com/offprint-labs/offprint/lib/record"
	"github.com/offprint-labs/offprint/lib/recordfile"
)

// The catalog is the production implementation of the export gateway.
var _ export.Gateway = (*Catalog)(nil)

// LoadRecord returns the record with the given gid, or a NotFoundError.
func (c *Catalog) LoadRecord(ctx context.Context, g gid.Gid) (*record.Record, error) {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: load record: %w", err)
	}
	defer c.pool.Put(conn)

	return loadRecord(conn, g)
}

// loadRecord is the connection-level lookup shared by LoadRecord and
// the member validation inside InsertGroup.
func loadRecord(conn *sqlite.Conn, g gid.Gid) (*record.Record, error) {
	var rec *record.Record
	err := sqlitex.Execute(conn,
		`SELECT gid, type_name, role, source_gid, operation_id, storage_path, created_at
		 FROM records WHERE gid = ?`,
		&sqlitex.ExecOptions{
			Args: []any{g.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				scanned, scanErr := scanRecord(stmt)
				if scanErr != nil {
					return scanErr
				}
				rec = scanned
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("catalog: loading record %s: %w", g, err)
	}
	if rec == nil {
		return nil, &NotFoundError{Kind: "record", Gid: g}
	}
	return rec, nil
}

// LoadGroup returns the ensemble with the given gid, or a
// NotFoundError.
func (c *Catalog) LoadGroup(ctx context.Context, g gid.Gid) (*record.Group, error) {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: load group: %w", err)
	}
	defer c.pool.Put(conn)

	var group *record.Group
	err = sqlitex.Execute(conn,
		`SELECT gid, name, type_name, role, operation_group_id, created_at
		 FROM record_groups WHERE gid = ?`,
		&sqlitex.ExecOptions{
			Args: []any{g.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				scanned, scanErr := scanGroup(stmt)
				if scanErr != nil {
					return scanErr
				}
				group = scanned
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("catalog: loading group %s: %w", g, err)
	}
	if group == nil {
		return nil, &NotFoundError{Kind: "group", Gid: g}
	}
	return group, nil
}

// ResolveTarget turns an identifier into an export target: a plain
// record if the gid names one, otherwise an ensemble. Returns a
// NotFoundError when the gid names neither.
func (c *Catalog) ResolveTarget(ctx context.Context, g gid.Gid) (export.Target, error) {
	rec, err := c.LoadRecord(ctx, g)
	if err == nil {
		return export.Target{Record: rec}, nil
	}
	if !IsNotFound(err) {
		return export.Target{}, err
	}

	group, err := c.LoadGroup(ctx, g)
	if err == nil {
		return export.Target{Group: group}, nil
	}
	if !IsNotFound(err) {
		return export.Target{}, err
	}
	return export.Target{}, &NotFoundError{Kind: "target", Gid: g}
}

// ListMembers returns an ensemble's membership in stored order. A
// member whose record row was deleted appears with an empty TypeName;
// an unknown group gid yields an empty listing.
func (c *Catalog) ListMembers(ctx context.Context, groupGid gid.Gid) ([]record.Member, error) {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list members: %w", err)
	}
	defer c.pool.Put(conn)

	var members []record.Member
	err = sqlitex.Execute(conn,
		`SELECT m.member_gid, COALESCE(r.type_name, '')
		 FROM record_group_members m
		 LEFT JOIN records r ON r.gid = m.member_gid
		 WHERE m.group_gid = ?
		 ORDER BY m.position`,
		&sqlitex.ExecOptions{
			Args: []any{groupGid.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				memberGid, parseErr := gid.Parse(stmt.ColumnText(0))
				if parseErr != nil {
					return fmt.Errorf("member gid: %w", parseErr)
				}
				members = append(members, record.Member{
					Gid:      memberGid,
					TypeName: stmt.ColumnText(1),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("catalog: listing members of %s: %w", groupGid, err)
	}
	return members, nil
}

// OperationForRecord returns the operation that produced r.
func (c *Catalog) OperationForRecord(ctx context.Context, r *record.Record) (*record.Operation, error) {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: load operation: %w", err)
	}
	defer c.pool.Put(conn)

	var op *record.Operation
	err = sqlitex.Execute(conn,
		`SELECT id, operation_group_id, configuration_gid, status, created_at
		 FROM operations WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{r.OperationID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				scanned, scanErr := scanOperation(stmt)
				if scanErr != nil {
					return scanErr
				}
				op = scanned
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("catalog: loading operation %d: %w", r.OperationID, err)
	}
	if op == nil {
		return nil, &NotFoundError{Kind: "operation for record", Gid: r.Gid}
	}
	return op, nil
}

// GroupForOperationGroup returns the ensemble with the given role
// produced by the given sweep, nil when the sweep produced none, and
// an error when more than one matches (the pairing between primary
// ensembles and their measures is one-to-one). A zero operation group
// id means no sweep and resolves to nil.
func (c *Catalog) GroupForOperationGroup(ctx context.Context, operationGroupID int64, role record.Role) (*record.Group, error) {
	if operationGroupID == 0 {
		return nil, nil
	}

	conn, err := c.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: ensemble lookup: %w", err)
	}
	defer c.pool.Put(conn)

	var groups []*record.Group
	err = sqlitex.Execute(conn,
		`SELECT gid, name, type_name, role, operation_group_id, created_at
		 FROM record_groups WHERE operation_group_id = ? AND role = ?`,
		&sqlitex.ExecOptions{
			Args: []any{operationGroupID, role.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				scanned, scanErr := scanGroup(stmt)
				if scanErr != nil {
					return scanErr
				}
				groups = append(groups, scanned)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("catalog: looking up %s ensemble for operation group %d: %w",
			role, operationGroupID, err)
	}

	switch len(groups) {
	case 0:
		return nil, nil
	case 1:
		return groups[0], nil
	default:
		return nil, fmt.Errorf("catalog: %d %s ensembles share operation group %d, want at most one",
			len(groups), role, operationGroupID)
	}
}

// StoragePath returns the absolute path of the record's file under the
// data directory.
func (c *Catalog) StoragePath(r *record.Record) string {
	return filepath.Join(c.dataDir, filepath.FromSlash(r.StoragePath))
}

// StripMetadata removes a metadata key from the record file at path,
// rewriting the file atomically. A key the file does not carry is a
// no-op.
func (c *Catalog) StripMetadata(path, key string) error {
	return recordfile.StripMetadata(path, key)
}

// References lists the outgoing record references of the file at path.
func (c *Catalog) References(path string) ([]recordfile.Reference, error) {
	return recordfile.ReadReferences(path)
}

func scanRecord(stmt *sqlite.Stmt) (*record.Record, error) {
	recordGid, err := gid.Parse(stmt.ColumnText(0))
	if err != nil {
		return nil, fmt.Errorf("record gid: %w", err)
	}
	role, err := record.ParseRole(stmt.ColumnText(2))
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", recordGid, err)
	}
	sourceGid, err := parseGidText(stmt.ColumnText(3))
	if err != nil {
		return nil, fmt.Errorf("record %s source gid: %w", recordGid, err)
	}
	return &record.Record{
		Gid:         recordGid,
		TypeName:    stmt.ColumnText(1),
		Role:        role,
		SourceGid:   sourceGid,
		OperationID: stmt.ColumnInt64(4),
		StoragePath: stmt.ColumnText(5),
		Created:     time.Unix(0, stmt.ColumnInt64(6)).UTC(),
	}, nil
}

func scanGroup(stmt *sqlite.Stmt) (*record.Group, error) {
	groupGid, err := gid.Parse(stmt.ColumnText(0))
	if err != nil {
		return nil, fmt.Errorf("group gid: %w", err)
	}
	role, err := record.ParseRole(stmt.ColumnText(3))
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", groupGid, err)
	}
	return &record.Group{
		Gid:              groupGid,
		Name:             stmt.ColumnText(1),
		TypeName:         stmt.ColumnText(2),
		Role:             role,
		OperationGroupID: stmt.ColumnInt64(4),
		Created:          time.Unix(0, stmt.ColumnInt64(5)).UTC(),
	}, nil
}

func scanOperation(stmt *sqlite.Stmt) (*record.Operation, error) {
	configurationGid, err := parseGidText(stmt.ColumnText(2))
	if err != nil {
		return nil, fmt.Errorf("operation %d configuration gid: %w", stmt.ColumnInt64(0), err)
	}
	return &record.Operation{
		ID:               stmt.ColumnInt64(0),
		OperationGroupID: stmt.ColumnInt64(1),
		ConfigurationGid: configurationGid,
		Status:           record.Status(stmt.ColumnText(3)),
		Created:          time.Unix(0, stmt.ColumnInt64(4)).UTC(),
	}, nil
}
