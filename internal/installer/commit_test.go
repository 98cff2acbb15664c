package installer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dawkit/dawkit/internal/resourcedir"
)

func newResourceDir(t *testing.T, root string) resourcedir.ResourceDirectory {
	t.Helper()
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	rd, err := resourcedir.New(root)
	if err != nil {
		t.Fatal(err)
	}
	return rd
}

func TestCommitPkgMgrStateMovesConfigRegistryAndCache(t *testing.T) {
	in := &Installer{}

	tempRoot := t.TempDir()
	finalRoot := t.TempDir()
	temp := newResourceDir(t, tempRoot)
	final := newResourceDir(t, finalRoot)

	if err := os.MkdirAll(filepath.Dir(temp.PkgMgrConfigFile()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(temp.PkgMgrConfigFile(), []byte("[general]\nversion=1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(temp.PkgMgrRegistryFile()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(temp.PkgMgrRegistryFile(), []byte("registry-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(temp.PkgMgrCacheDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(temp.PkgMgrCacheDir(), "Example.xml"), []byte("<index/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := in.commitPkgMgrState(temp, final); err != nil {
		t.Fatalf("commitPkgMgrState: %v", err)
	}

	if data, err := os.ReadFile(final.PkgMgrConfigFile()); err != nil || string(data) != "[general]\nversion=1\n" {
		t.Errorf("config not committed correctly: data=%q err=%v", data, err)
	}
	if data, err := os.ReadFile(final.PkgMgrRegistryFile()); err != nil || string(data) != "registry-bytes" {
		t.Errorf("registry not committed correctly: data=%q err=%v", data, err)
	}
	if data, err := os.ReadFile(filepath.Join(final.PkgMgrCacheDir(), "Example.xml")); err != nil || string(data) != "<index/>" {
		t.Errorf("cached index not committed correctly: data=%q err=%v", data, err)
	}
}

func TestCommitPkgMgrStateIsNoopWhenTempHasNothing(t *testing.T) {
	in := &Installer{}
	temp := newResourceDir(t, t.TempDir())
	final := newResourceDir(t, t.TempDir())

	if err := in.commitPkgMgrState(temp, final); err != nil {
		t.Errorf("expected no error on an empty temp directory, got %v", err)
	}
}
