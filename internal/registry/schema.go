package registry

// createTablesSQL is the canonical schema for a fresh registry database.
// Column lists are pinned by the wire format this module must stay
// byte-compatible with; the exact DDL text is this module's own
// reconstruction (not retrieved verbatim from any source) — see DESIGN.md.
const createTablesSQL = `
CREATE TABLE IF NOT EXISTS entries (
	id INTEGER PRIMARY KEY,
	remote TEXT NOT NULL,
	category TEXT NOT NULL,
	package TEXT NOT NULL,
	desc TEXT NOT NULL DEFAULT '',
	type INTEGER NOT NULL,
	version TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	flags INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY,
	entry INTEGER NOT NULL REFERENCES entries(id),
	path TEXT NOT NULL,
	main INTEGER NOT NULL DEFAULT -1,
	type INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS files_entry_idx ON files(entry);
`

// UserVersion is the (major, minor) compatibility version encoded into the
// SQLite user_version PRAGMA as (major << 16) | minor.
type UserVersion struct {
	Major int16
	Minor int16
}

// SupportedUserVersion is the schema version this module reads and writes.
var SupportedUserVersion = UserVersion{Major: 0, Minor: 6}

// Uninitialized is the zero value SQLite reports for a brand new database
// file (user_version defaults to 0).
var Uninitialized = UserVersion{Major: 0, Minor: 0}

// ToRaw packs the version into the encoding stored in PRAGMA user_version.
func (v UserVersion) ToRaw() int64 {
	return (int64(v.Major) << 16) | int64(uint16(v.Minor))
}

// FromRaw unpacks a PRAGMA user_version value.
func FromRaw(raw int64) UserVersion {
	return UserVersion{
		Major: int16(raw >> 16),
		Minor: int16(uint16(raw & 0xFFFF)),
	}
}

// Compare returns -1, 0, or 1 comparing v to other lexicographically by
// (Major, Minor).
func (v UserVersion) Compare(other UserVersion) int {
	if v.Major != other.Major {
		if v.Major < other.Major {
			return -1
		}
		return 1
	}
	if v.Minor != other.Minor {
		if v.Minor < other.Minor {
			return -1
		}
		return 1
	}
	return 0
}
