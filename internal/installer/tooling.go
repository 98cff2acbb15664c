package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dawkit/dawkit/internal/daw"
	"github.com/dawkit/dawkit/internal/downloader"
	"github.com/dawkit/dawkit/internal/registry"
	"github.com/dawkit/dawkit/internal/report"
	"github.com/dawkit/dawkit/internal/resourcedir"
)

// errManualDawInstallRequired signals that the DAW was downloaded but, the
// target not being portable, cannot be extracted automatically: the run
// ends here with a report describing the download, not a hard failure.
type errManualDawInstallRequired struct {
	downloadPath string
}

func (e *errManualDawInstallRequired) Error() string {
	return fmt.Sprintf("DAW downloaded to %s; install manually (target is not a portable install)", e.downloadPath)
}

// ensureDaw downloads and extracts the DAW into finalDir if no DAW
// executable is already present there. On a non-portable target, the
// download is preserved but extraction is skipped and the run ends after
// recording the tooling change.
func (in *Installer) ensureDaw(ctx context.Context, finalDir resourcedir.ResourceDirectory, rep *report.Report) error {
	if in.opts.DawExecutableRelPath != "" {
		if _, err := os.Stat(finalDir.Join(in.opts.DawExecutableRelPath)); err == nil {
			in.emit(Stage{Kind: InstalledDaw})
			return nil
		}
	}

	in.emit(Stage{Kind: CheckingLatestDawVersion})
	info, err := in.resolver.Resolve(ctx, in.opts.DawRepo, in.opts.DawVersion, in.opts.Target)
	if err != nil {
		return fmt.Errorf("resolve DAW version: %w", err)
	}

	in.emit(Stage{Kind: DownloadingDaw, DawInfo: info})
	downloadPath := filepath.Join(os.TempDir(), info.AssetName)
	if err := in.dl.Download(ctx, downloader.Request{URL: info.URL, Destination: downloadPath}, nil); err != nil {
		return fmt.Errorf("download DAW: %w", err)
	}
	rep.ToolingChanges = append(rep.ToolingChanges, report.ToolingChange{Name: "daw", Info: info})

	if !in.opts.Portable {
		in.emit(Stage{Kind: InstallManuallyRequired, DownloadPath: downloadPath})
		return &errManualDawInstallRequired{downloadPath: downloadPath}
	}

	in.emit(Stage{Kind: ExtractingDaw})
	if err := daw.ExtractArchive(downloadPath, finalDir.Root()); err != nil {
		return fmt.Errorf("extract DAW: %w", err)
	}
	in.emit(Stage{Kind: InstalledDaw})
	return nil
}

// ensurePkgMgr downloads and extracts the package-manager shared library
// into finalDir's UserPluginsDir unless finalDir already has a registry
// file. An existing registry counts as present even when it fails to open
// (for example, a schema that is too new).
func (in *Installer) ensurePkgMgr(ctx context.Context, finalDir resourcedir.ResourceDirectory, rep *report.Report) error {
	if in.pkgMgrAlreadySupported(finalDir) {
		in.emit(Stage{Kind: InstalledPkgMgr})
		return nil
	}

	in.emit(Stage{Kind: CheckingLatestPkgMgrVersion})
	info, err := in.resolver.Resolve(ctx, in.opts.PkgMgrRepo, daw.VersionRequest{Kind: daw.VersionLatest}, in.opts.Target)
	if err != nil {
		return fmt.Errorf("resolve package-manager version: %w", err)
	}

	in.emit(Stage{Kind: DownloadingPkgMgr, PkgMgrInfo: info})
	downloadPath := filepath.Join(os.TempDir(), info.AssetName)
	if err := in.dl.Download(ctx, downloader.Request{URL: info.URL, Destination: downloadPath}, nil); err != nil {
		return fmt.Errorf("download package manager: %w", err)
	}
	rep.ToolingChanges = append(rep.ToolingChanges, report.ToolingChange{Name: "pkgmgr", Info: info})

	if err := os.MkdirAll(finalDir.UserPluginsDir(), 0o755); err != nil {
		return fmt.Errorf("create user plugins directory: %w", err)
	}
	if err := daw.ExtractArchive(downloadPath, finalDir.UserPluginsDir()); err != nil {
		return fmt.Errorf("extract package manager: %w", err)
	}
	in.emit(Stage{Kind: InstalledPkgMgr})
	return nil
}

func (in *Installer) pkgMgrAlreadySupported(finalDir resourcedir.ResourceDirectory) bool {
	path := finalDir.PkgMgrRegistryFile()
	if _, err := os.Stat(path); err != nil {
		return false
	}
	db, err := registry.Open(path)
	if err != nil {
		// A registry that fails to open (e.g. schema too new) is not
		// something ensurePkgMgr can fix by redownloading; treat as
		// already present and let the caller's own Open surface the error.
		return true
	}
	db.Close()
	return true
}
