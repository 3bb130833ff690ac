// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

// schema is applied to every new pool connection. All statements are
// idempotent, so repeated application across connections and runs is
// harmless.
//
// Gid columns store the 32-hex text form; optional gids (source_gid,
// configuration_gid) store the empty string when unset. Roles store
// their text form ("primary", "derived-measure"). Timestamps store
// Unix nanoseconds.
const schema = `
CREATE TABLE IF NOT EXISTS operation_groups (
	id     INTEGER PRIMARY KEY,
	name   TEXT NOT NULL,
	ranges TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS operations (
	id                 INTEGER PRIMARY KEY,
	operation_group_id INTEGER REFERENCES operation_groups(id),
	configuration_gid  TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL,
	created_at         INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS operations_by_group
	ON operations(operation_group_id);

CREATE TABLE IF NOT EXISTS records (
	gid          TEXT PRIMARY KEY,
	type_name    TEXT NOT NULL,
	role         TEXT NOT NULL,
	source_gid   TEXT NOT NULL DEFAULT '',
	operation_id INTEGER NOT NULL REFERENCES operations(id),
	storage_path TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS records_by_type ON records(type_name);

CREATE TABLE IF NOT EXISTS record_groups (
	gid                TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	type_name          TEXT NOT NULL,
	role               TEXT NOT NULL,
	operation_group_id INTEGER NOT NULL REFERENCES operation_groups(id),
	created_at         INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS record_groups_by_operation_group
	ON record_groups(operation_group_id, role);

-- member_gid carries no foreign key: members may be deleted after
-- grouping, and the membership row must survive to report the dangle.
CREATE TABLE IF NOT EXISTS record_group_members (
	group_gid  TEXT NOT NULL REFERENCES record_groups(gid),
	position   INTEGER NOT NULL,
	member_gid TEXT NOT NULL,
	PRIMARY KEY (group_gid, position)
);
`
