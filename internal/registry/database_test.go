package registry

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/dawkit/dawkit/internal/model"
)

func mustOpen(t *testing.T) (*Database, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, path
}

func TestOpenFreshDatabaseSetsSupportedVersion(t *testing.T) {
	db, _ := mustOpen(t)

	var raw int64
	if err := db.conn.QueryRow(`PRAGMA user_version`).Scan(&raw); err != nil {
		t.Fatalf("read user_version: %v", err)
	}
	if got := FromRaw(raw); got != SupportedUserVersion {
		t.Errorf("got version %+v, want %+v", got, SupportedUserVersion)
	}

	pkgs, err := db.InstalledPackages()
	if err != nil {
		t.Fatalf("InstalledPackages: %v", err)
	}
	if len(pkgs) != 0 {
		t.Errorf("expected empty fresh database, got %d packages", len(pkgs))
	}
}

func TestAddAndRemovePackageIsTransactional(t *testing.T) {
	db, _ := mustOpen(t)

	pkg := model.InstalledPackage{
		Remote: "Test Repo", Category: "Scripts", Package: "Foo", Desc: "a script",
		Type:    model.InstalledPackageType{Known: true, Type: model.PackageTypeScript},
		Version: model.InstalledVersionName{Valid: true, Name: mustParseVersion(t, "1.0.0")},
		Author:  "someone",
		Files: []model.InstalledFile{
			{Path: "Scripts/foo.lua"},
		},
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := db.AddPackage(tx, pkg); err != nil {
		t.Fatalf("AddPackage: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := db.InstalledPackages()
	if err != nil {
		t.Fatalf("InstalledPackages: %v", err)
	}
	if len(got) != 1 || len(got[0].Files) != 1 {
		t.Fatalf("expected one package with one file, got %+v", got)
	}
	if got[0].Files[0].Sections != nil {
		t.Errorf("expected implicit (-1) section to decode as nil")
	}

	tx2, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := db.RemovePackage(tx2, pkg.Identity()); err != nil {
		t.Fatalf("RemovePackage: %v", err)
	}
	if err := tx2.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err = db.InstalledPackages()
	if err != nil {
		t.Fatalf("InstalledPackages after remove: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected package removed, got %d remaining", len(got))
	}
}

func TestAddPackageRollbackLeavesNothing(t *testing.T) {
	db, _ := mustOpen(t)

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	pkg := model.InstalledPackage{
		Remote: "Repo", Category: "Scripts", Package: "Foo",
		Type:    model.InstalledPackageType{Known: true, Type: model.PackageTypeScript},
		Version: model.InstalledVersionName{Valid: true, Name: mustParseVersion(t, "1.0.0")},
		Files:   []model.InstalledFile{{Path: "Scripts/foo.lua"}},
	}
	if err := db.AddPackage(tx, pkg); err != nil {
		t.Fatalf("AddPackage: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	got, err := db.InstalledPackages()
	if err != nil {
		t.Fatalf("InstalledPackages: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected rollback to discard the insert, got %d packages", len(got))
	}
}

func TestUnknownPackageTypeRoundTrips(t *testing.T) {
	db, _ := mustOpen(t)

	pkg := model.InstalledPackage{
		Remote: "Repo", Category: "Scripts", Package: "Weird",
		Type:    model.InstalledPackageType{Known: false, RawValue: 999},
		Version: model.InstalledVersionName{Valid: true, Name: mustParseVersion(t, "1.0.0")},
	}
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := db.AddPackage(tx, pkg); err != nil {
		t.Fatalf("AddPackage: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := db.InstalledPackages()
	if err != nil {
		t.Fatalf("InstalledPackages: %v", err)
	}
	if len(got) != 1 || got[0].Type.Known || got[0].Type.RawValue != 999 {
		t.Fatalf("expected unknown type 999 preserved verbatim, got %+v", got)
	}
}

func TestSectionBitsetRoundTrip(t *testing.T) {
	db, _ := mustOpen(t)

	set := model.NewSectionSet([]string{"main", "midi_editor"})
	pkg := model.InstalledPackage{
		Remote: "Repo", Category: "Scripts", Package: "Foo",
		Type:    model.InstalledPackageType{Known: true, Type: model.PackageTypeScript},
		Version: model.InstalledVersionName{Valid: true, Name: mustParseVersion(t, "1.0.0")},
		Files:   []model.InstalledFile{{Path: "Scripts/foo.lua", Sections: &set}},
	}
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := db.AddPackage(tx, pkg); err != nil {
		t.Fatalf("AddPackage: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := db.InstalledPackages()
	if err != nil {
		t.Fatalf("InstalledPackages: %v", err)
	}
	if len(got) != 1 || len(got[0].Files) != 1 || got[0].Files[0].Sections == nil {
		t.Fatalf("expected a non-nil section set, got %+v", got)
	}
	if !got[0].Files[0].Sections.Has(model.SectionMain) || !got[0].Files[0].Sections.Has(model.SectionMidiEditor) {
		t.Errorf("expected both Main and MidiEditor bits set")
	}
}

func TestDatabaseTooNewAborts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	tx, err := db.conn.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := setUserVersion(tx, UserVersion{Major: 1, Minor: 0}); err != nil {
		t.Fatalf("setUserVersion: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	db.Close()

	_, err = Open(path)
	if err == nil {
		t.Fatal("expected Open to fail on a too-new database")
	}
	var tooNew *ErrDatabaseTooNew
	if !asTooNew(err, &tooNew) {
		t.Fatalf("expected *ErrDatabaseTooNew, got %v", err)
	}
}

func asTooNew(err error, target **ErrDatabaseTooNew) bool {
	if e, ok := err.(*ErrDatabaseTooNew); ok {
		*target = e
		return true
	}
	return false
}

func TestMigrationStepsThroughAllFiveSteps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")

	// Build a minimal pre-migration (0,0) schema directly, the way an
	// older release of the interoperating tool would have left it on disk:
	// no pinned/type/desc columns, and files.main already populated with
	// -1 sentinels for implicit sections under a "midi editor" category.
	raw, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := raw.Exec(`
		CREATE TABLE entries (id INTEGER PRIMARY KEY, remote TEXT NOT NULL, category TEXT NOT NULL, package TEXT NOT NULL, type INTEGER NOT NULL, version TEXT NOT NULL, author TEXT NOT NULL DEFAULT '');
		CREATE TABLE files (id INTEGER PRIMARY KEY, entry INTEGER NOT NULL REFERENCES entries(id), path TEXT NOT NULL, main INTEGER NOT NULL DEFAULT -1);
		INSERT INTO entries (id, remote, category, package, type, version, author) VALUES (1, 'Repo', 'midi editor', 'Foo', 1, '1.0.0', '');
		INSERT INTO files (entry, path, main) VALUES (1, 'Scripts/foo.lua', -1);
	`); err != nil {
		t.Fatalf("seed old schema: %v", err)
	}
	if err := raw.Close(); err != nil {
		t.Fatalf("close seed connection: %v", err)
	}

	db2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen through migration path: %v", err)
	}
	defer db2.Close()

	var rawVersion int64
	if err := db2.conn.QueryRow(`PRAGMA user_version`).Scan(&rawVersion); err != nil {
		t.Fatalf("read user_version: %v", err)
	}
	// Open Question decision: the post-migration user_version is pinned to
	// the database's version *before* migration, not SupportedUserVersion.
	if got := FromRaw(rawVersion); got != (UserVersion{Major: 0, Minor: 0}) {
		t.Errorf("expected pre-migration version preserved per documented quirk, got %+v", got)
	}

	if _, err := db2.conn.Exec(`SELECT pinned, desc FROM entries LIMIT 0`); err == nil {
		t.Error("expected RENAME COLUMN pinned TO flags to have run, leaving no 'pinned' column")
	}

	var mainBits int32
	if err := db2.conn.QueryRow(`SELECT main FROM files WHERE path = ?`, "Scripts/foo.lua").Scan(&mainBits); err != nil {
		t.Fatalf("read migrated main bitset: %v", err)
	}
	if mainBits != model.SectionMidiEditor.Bit() {
		t.Errorf("expected implicit section rewritten to MidiEditor bit for a 'midi editor' category, got %d", mainBits)
	}
}

func mustParseVersion(t *testing.T, s string) model.VersionName {
	t.Helper()
	v, err := model.ParseVersionName(s)
	if err != nil {
		t.Fatalf("parse version %q: %v", s, err)
	}
	return v
}
