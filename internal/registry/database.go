// Package registry owns the on-disk SQLite registry database: create,
// open, migrate, read, and transactional write. The schema must stay
// byte-compatible with an external tool that reads and writes the same
// file, so nothing here may assume exclusive ownership of its shape beyond
// what the migration table describes.
package registry

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/dawkit/dawkit/internal/model"
)

// CompatibilityInfo classifies a database's user_version against
// SupportedUserVersion.
type CompatibilityInfo int

const (
	// CompatibleUpToDate means user_version == SupportedUserVersion.
	CompatibleUpToDate CompatibilityInfo = iota
	// CompatibleNewerMinor means major matches but minor is ahead; usable as-is.
	CompatibleNewerMinor
	// RequiresMigration means user_version is behind: Major is lower, or
	// Major == Supported.Major and Minor is lower.
	RequiresMigration
	// TooNew means user_version.Major > Supported.Major: abort, don't touch.
	TooNew
)

// ErrDatabaseTooNew is returned when the database's major version exceeds
// what this module understands.
type ErrDatabaseTooNew struct {
	Found UserVersion
}

func (e *ErrDatabaseTooNew) Error() string {
	return fmt.Sprintf("registry database schema version %d.%d is newer than this installer supports (%d.%d); update the installer",
		e.Found.Major, e.Found.Minor, SupportedUserVersion.Major, SupportedUserVersion.Minor)
}

// Database wraps a SQLite connection to one registry.db file.
type Database struct {
	conn *sql.DB
}

// Open opens (creating if absent) the registry database at path, applying
// any required migrations. The connection is reopened for every logical
// operation by callers that hold it across long pauses; Open itself does
// not start a transaction.
func Open(path string) (*Database, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open registry database %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers on one handle

	db := &Database{conn: conn}
	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *Database) Close() error {
	return db.conn.Close()
}

func (db *Database) init() error {
	var raw int64
	if err := db.conn.QueryRow(`PRAGMA user_version`).Scan(&raw); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	current := FromRaw(raw)

	// A file at user_version 0 that already holds the entries table is an
	// old registry to migrate, not a fresh one.
	var tables int
	if err := db.conn.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'entries'`).Scan(&tables); err != nil {
		return fmt.Errorf("inspect registry schema: %w", err)
	}

	if current == Uninitialized && tables == 0 {
		if _, err := db.conn.Exec(createTablesSQL); err != nil {
			return fmt.Errorf("create registry schema: %w", err)
		}
		tx, err := db.conn.Begin()
		if err != nil {
			return err
		}
		if err := setUserVersion(tx, SupportedUserVersion); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	}

	switch db.Compatibility(current) {
	case TooNew:
		return &ErrDatabaseTooNew{Found: current}
	case RequiresMigration:
		tx, err := db.conn.Begin()
		if err != nil {
			return err
		}
		if err := db.migrateFrom(tx, current); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate registry database: %w", err)
		}
		return tx.Commit()
	default:
		return nil
	}
}

// Compatibility classifies current against SupportedUserVersion.
func (db *Database) Compatibility(current UserVersion) CompatibilityInfo {
	if current.Major > SupportedUserVersion.Major {
		return TooNew
	}
	if current.Major < SupportedUserVersion.Major {
		return RequiresMigration
	}
	switch {
	case current.Minor < SupportedUserVersion.Minor:
		return RequiresMigration
	case current.Minor > SupportedUserVersion.Minor:
		return CompatibleNewerMinor
	default:
		return CompatibleUpToDate
	}
}

// InstalledPackages reads every entry, joined with its files.
func (db *Database) InstalledPackages() ([]model.InstalledPackage, error) {
	rows, err := db.conn.Query(`SELECT id, remote, category, package, desc, type, version, author FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	type entryRow struct {
		id int64
		model.InstalledPackage
		rawType int32
	}
	var entries []entryRow
	for rows.Next() {
		var e entryRow
		var rawVersion string
		if err := rows.Scan(&e.id, &e.Remote, &e.Category, &e.Package, &e.Desc, &e.rawType, &rawVersion, &e.Author); err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}
		e.Type = decodePackageType(e.rawType)
		e.Version = decodeVersionName(rawVersion)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.InstalledPackage, 0, len(entries))
	for _, e := range entries {
		files, err := db.filesForEntry(e.id)
		if err != nil {
			return nil, err
		}
		pkg := e.InstalledPackage
		pkg.Files = files
		out = append(out, pkg)
	}
	return out, nil
}

func (db *Database) filesForEntry(entryID int64) ([]model.InstalledFile, error) {
	rows, err := db.conn.Query(`SELECT path, main, type FROM files WHERE entry = ?`, entryID)
	if err != nil {
		return nil, fmt.Errorf("query files for entry %d: %w", entryID, err)
	}
	defer rows.Close()

	var out []model.InstalledFile
	for rows.Next() {
		var path string
		var main, rawType int32
		if err := rows.Scan(&path, &main, &rawType); err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		f := model.InstalledFile{Path: path}
		if main != -1 {
			set := model.SectionSetFromBits(main)
			f.Sections = &set
		}
		if rawType != 0 {
			t := decodePackageType(rawType)
			f.Type = &t
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Begin starts a transaction for one logical unit of work (one package =
// entry + its files).
func (db *Database) Begin() (*sql.Tx, error) {
	return db.conn.Begin()
}

// AddPackage inserts the entry and all of its files within tx.
func (db *Database) AddPackage(tx interface {
	Exec(query string, args ...any) (sql.Result, error)
}, pkg model.InstalledPackage) error {
	res, err := tx.Exec(
		`INSERT INTO entries (remote, category, package, desc, type, version, author) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pkg.Remote, pkg.Category, pkg.Package, pkg.Desc, encodeInstalledPackageType(pkg.Type), pkg.Version.String(), pkg.Author,
	)
	if err != nil {
		return fmt.Errorf("insert entry for %s/%s: %w", pkg.Category, pkg.Package, err)
	}
	entryID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read inserted entry id: %w", err)
	}

	for _, f := range pkg.Files {
		main := int32(-1)
		if f.Sections != nil {
			main = f.Sections.Bits()
		}
		var typeVal int32
		if f.Type != nil {
			typeVal = encodeInstalledPackageType(*f.Type)
		}
		if _, err := tx.Exec(`INSERT INTO files (entry, path, main, type) VALUES (?, ?, ?, ?)`, entryID, f.Path, main, typeVal); err != nil {
			return fmt.Errorf("insert file %s: %w", f.Path, err)
		}
	}
	return nil
}

// RemovePackage deletes the entry matching identity and its files.
// Foreign keys are enabled but do not cascade; files must be deleted
// explicitly before the entry.
func (db *Database) RemovePackage(tx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
}, identity model.PackageIdentity) error {
	rows, err := tx.Query(`SELECT id FROM entries WHERE remote = ? AND category = ? AND package = ?`,
		identity.Remote, identity.Category, identity.Package)
	if err != nil {
		return fmt.Errorf("look up entry for removal: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		if _, err := tx.Exec(`DELETE FROM files WHERE entry = ?`, id); err != nil {
			return fmt.Errorf("delete files for entry %d: %w", id, err)
		}
		if _, err := tx.Exec(`DELETE FROM entries WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete entry %d: %w", id, err)
		}
	}
	return nil
}

// encodeInstalledPackageType maps a known type to its registry integer code,
// or returns the original raw registry value for a type this module never
// recognized in the first place (round-tripping an Unknown(i32) unchanged).
func encodeInstalledPackageType(t model.InstalledPackageType) int32 {
	if !t.Known {
		return t.RawValue
	}
	if code, ok := packageTypeCode[t.Type.String()]; ok {
		return code
	}
	return 0
}

func decodePackageType(raw int32) model.InstalledPackageType {
	if name, ok := packageTypeName[raw]; ok {
		return model.InstalledPackageType{Known: true, Type: model.ParsePackageType(name)}
	}
	return model.InstalledPackageType{Known: false, RawValue: raw}
}

// packageTypeCode mirrors the external tool's integer encoding for the
// closed set of package types (PackageType repr i32 in the reference
// implementation this registry interoperates with).
var packageTypeCode = map[string]int32{
	"script": 1, "extension": 2, "effect": 3, "data": 4, "theme": 5,
	"langpack": 6, "webinterface": 7, "projecttpl": 8, "tracktpl": 9,
	"midinotenames": 10, "autoitem": 11,
}

var packageTypeName = func() map[int32]string {
	m := make(map[int32]string, len(packageTypeCode))
	for name, code := range packageTypeCode {
		m[code] = name
	}
	return m
}()

func decodeVersionName(raw string) model.InstalledVersionName {
	v, err := model.ParseVersionName(raw)
	if err != nil {
		return model.InstalledVersionName{Valid: false, Raw: raw}
	}
	return model.InstalledVersionName{Valid: true, Name: v}
}
