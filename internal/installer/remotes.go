package installer

import (
	"fmt"
	"os"

	"github.com/dawkit/dawkit/internal/pkgmgrconfig"
	"github.com/dawkit/dawkit/internal/resourcedir"
)

// registerRemotes upserts a [remotes] entry for every repository URL that
// produced a usable index, so the package manager's own config file lists
// them the same way it would if a user had added them by hand. It must run
// before commitPkgMgrState, since that call is what promotes the rewritten
// config from temp into finalDir.
func registerRemotes(tempDir resourcedir.ResourceDirectory, downloaded map[string]downloadedIndex) error {
	if len(downloaded) == 0 {
		return nil
	}

	path := tempDir.PkgMgrConfigFile()
	var cfg *pkgmgrconfig.Config
	if _, err := os.Stat(path); err == nil {
		c, _, loadErr := pkgmgrconfig.Load(path, pkgmgrconfig.DetectSystemEncoding())
		if loadErr != nil {
			return fmt.Errorf("load package-manager config: %w", loadErr)
		}
		cfg = c
	} else {
		cfg = &pkgmgrconfig.Config{Version: pkgmgrconfig.SupportedConfigVersion}
	}

	for url, di := range downloaded {
		cfg.AddRemote(pkgmgrconfig.Remote{
			Name:        di.index.Name,
			URL:         url,
			Enabled:     true,
			AutoInstall: pkgmgrconfig.AutoInstallUseGlobalDefault,
		})
	}

	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("save package-manager config: %w", err)
	}
	return nil
}
