package installer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMoveFileRenamesWhenDestinationIsFree(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dest := filepath.Join(dir, "dest")
	if err := os.WriteFile(src, []byte("contents"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := moveFile(src, dest, false); err != nil {
		t.Fatalf("moveFile: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "contents" {
		t.Errorf("dest contents = %q, err=%v", data, err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("expected src to be gone after the move")
	}
}

func TestMoveFileFailsWithoutOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dest := filepath.Join(dir, "dest")
	os.WriteFile(src, []byte("new"), 0o644)
	os.WriteFile(dest, []byte("old"), 0o644)

	if err := moveFile(src, dest, false); err == nil {
		t.Error("expected an error when dest exists and overwrite is false")
	}
}

func TestMoveFileBacksUpExistingDestinationWhenOverwriting(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dest := filepath.Join(dir, "dest")
	os.WriteFile(src, []byte("new"), 0o644)
	os.WriteFile(dest, []byte("old"), 0o644)

	if err := moveFile(src, dest, true); err != nil {
		t.Fatalf("moveFile: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "new" {
		t.Errorf("dest contents = %q, err=%v", data, err)
	}
	backup, err := os.ReadFile(dest + ".bak")
	if err != nil || string(backup) != "old" {
		t.Errorf("backup contents = %q, err=%v", backup, err)
	}
}

func TestCopyFileLeavesSourceIntact(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dest := filepath.Join(dir, "dest")
	os.WriteFile(src, []byte("contents"), 0o644)

	if err := copyFile(src, dest); err != nil {
		t.Fatalf("copyFile: %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Error("expected src to still exist after copyFile")
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "contents" {
		t.Errorf("dest contents = %q, err=%v", data, err)
	}
}
