package installer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dawkit/dawkit/internal/resourcedir"
)

// applyPackageFiles moves one package's downloaded files from the
// temporary staging area into finalDir, after the package-manager state
// describing them has already been committed.
func (in *Installer) applyPackageFiles(finalDir resourcedir.ResourceDirectory, group packageGroup) error {
	for _, f := range group.files {
		dest := finalDir.Join(f.source.DestPath)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", f.source.DestPath, err)
		}
		if err := moveFile(f.tempPath, dest, true); err != nil {
			return fmt.Errorf("apply %s: %w", f.source.DestPath, err)
		}
	}
	return nil
}
