package installer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dawkit/dawkit/internal/model"
	"github.com/dawkit/dawkit/internal/planner"
)

func TestApplyPackageFilesMovesEachFileIntoFinalDirectory(t *testing.T) {
	in := &Installer{}

	stagingDir := t.TempDir()
	stagedPath := filepath.Join(stagingDir, "staged-a.jsfx")
	if err := os.WriteFile(stagedPath, []byte("jsfx-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	final := newResourceDir(t, t.TempDir())

	group := packageGroup{
		version: "1.0.0",
		files: []downloadedFile{
			{
				source: planner.QualifiedSource{
					Identity: model.PackageIdentity{Category: "Effects", Package: "example"},
					DestPath: filepath.Join("Effects", "a.jsfx"),
				},
				tempPath: stagedPath,
			},
		},
	}

	if err := in.applyPackageFiles(final, group); err != nil {
		t.Fatalf("applyPackageFiles: %v", err)
	}

	data, err := os.ReadFile(final.Join(filepath.Join("Effects", "a.jsfx")))
	if err != nil {
		t.Fatalf("reading applied file: %v", err)
	}
	if string(data) != "jsfx-bytes" {
		t.Errorf("applied file contents = %q, want jsfx-bytes", data)
	}
	if _, err := os.Stat(stagedPath); !os.IsNotExist(err) {
		t.Error("expected the staged file to be moved, not copied")
	}
}
