package installer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dawkit/dawkit/internal/resourcedir"
)

// commitPkgMgrState promotes the package-manager's INI config, registry
// database, and cached index documents from temp into finalDir. This must
// happen before any package file is moved: if it fails partway, the
// package-manager state already on disk still describes the intended
// world, and a retry can resume from there.
func (in *Installer) commitPkgMgrState(tempDir, finalDir resourcedir.ResourceDirectory) error {
	if _, err := os.Stat(tempDir.PkgMgrConfigFile()); err == nil {
		if err := os.MkdirAll(filepath.Dir(finalDir.PkgMgrConfigFile()), 0o755); err != nil {
			return fmt.Errorf("create package-manager config directory: %w", err)
		}
		if err := moveFile(tempDir.PkgMgrConfigFile(), finalDir.PkgMgrConfigFile(), true); err != nil {
			return fmt.Errorf("commit package-manager config: %w", err)
		}
	}

	if _, err := os.Stat(tempDir.PkgMgrRegistryFile()); err == nil {
		if err := os.MkdirAll(filepath.Dir(finalDir.PkgMgrRegistryFile()), 0o755); err != nil {
			return fmt.Errorf("create registry directory: %w", err)
		}
		if err := moveFile(tempDir.PkgMgrRegistryFile(), finalDir.PkgMgrRegistryFile(), true); err != nil {
			return fmt.Errorf("commit registry database: %w", err)
		}
	}

	entries, err := os.ReadDir(tempDir.PkgMgrCacheDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read temp cache directory: %w", err)
	}
	if err := os.MkdirAll(finalDir.PkgMgrCacheDir(), 0o755); err != nil {
		return fmt.Errorf("create final cache directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		src := filepath.Join(tempDir.PkgMgrCacheDir(), e.Name())
		dest := filepath.Join(finalDir.PkgMgrCacheDir(), e.Name())
		if err := moveFile(src, dest, true); err != nil {
			return fmt.Errorf("commit cached index %s: %w", e.Name(), err)
		}
	}
	return nil
}
