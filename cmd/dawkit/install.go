package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/dawkit/dawkit/internal/daw"
	"github.com/dawkit/dawkit/internal/installer"
	"github.com/dawkit/dawkit/internal/log"
	"github.com/dawkit/dawkit/internal/model"
	"github.com/spf13/cobra"
)

var (
	installResourceDir    string
	installTempParent     string
	installKeepTempDir    bool
	installConcurrency    int
	installDryRun         bool
	installAcceptLicenses bool
	installNonInteractive bool
	installSkipFailed     bool
	installDawVersion     string
	installUpdateDaw      bool
	installPackageURLs    []string
	installPortable       bool
	installDawRepo        string
	installPkgMgrRepo     string
	installDawExecRelPath string
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Bootstrap the DAW, its package manager, and a set of packages",
	Long: `install brings a resource directory up to a target state in one
transactional pass: the DAW (if missing), its package manager (if
missing or outdated), and every package named by a --package-url flag.

Examples:
  dawkit install --resource-dir ~/.config/REAPER --daw-repo OWNER/DAW --pkgmgr-repo OWNER/PKGMGR --package-url "https://example.com/index.xml#p=Tools/SWS&v=latest"
  dawkit install --dry-run --resource-dir ~/.config/REAPER --daw-repo OWNER/DAW --pkgmgr-repo OWNER/PKGMGR --package-url "https://example.com/index.xml#p=Tools/SWS&v=latest"`,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installResourceDir, "resource-dir", "", "Final resource directory (required)")
	installCmd.Flags().StringVar(&installTempParent, "temp-parent", "", "Parent directory for the temporary resource directory (default: system temp)")
	installCmd.Flags().BoolVar(&installKeepTempDir, "keep-temp-dir", false, "Do not remove the temporary resource directory on exit")
	installCmd.Flags().IntVar(&installConcurrency, "concurrent-downloads", 5, "Maximum number of concurrent downloads")
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "Resolve and download, but do not commit anything")
	installCmd.Flags().BoolVar(&installAcceptLicenses, "accept-licenses", false, "Accept every package license without prompting")
	installCmd.Flags().BoolVar(&installNonInteractive, "non-interactive", false, "Never prompt; fail instead of asking")
	installCmd.Flags().BoolVar(&installSkipFailed, "skip-failed-packages", false, "Exit 0 even if some packages failed to install")
	installCmd.Flags().StringVar(&installDawVersion, "daw-version", "latest", `DAW version to install: "latest", "latest-pre", or an explicit tag`)
	installCmd.Flags().BoolVar(&installUpdateDaw, "update-daw", false, "Update the DAW even if already installed")
	installCmd.Flags().StringArrayVar(&installPackageURLs, "package-url", nil, "Package to install, as repository-url#p=category/package&v=version (repeatable)")
	installCmd.Flags().BoolVar(&installPortable, "portable", false, "Install a self-contained DAW colocated with the resource directory")
	installCmd.Flags().StringVar(&installDawRepo, "daw-repo", "", "GitHub owner/name hosting DAW releases (required)")
	installCmd.Flags().StringVar(&installPkgMgrRepo, "pkgmgr-repo", "", "GitHub owner/name hosting package-manager releases (required)")
	installCmd.Flags().StringVar(&installDawExecRelPath, "daw-executable", "", "Path, relative to the resource directory, whose presence means the DAW is already installed")
}

func runInstall(cmd *cobra.Command, args []string) error {
	if installResourceDir == "" {
		printError(fmt.Errorf("--resource-dir is required"))
		exitWithCode(ExitUsage)
	}
	if installDawRepo == "" || installPkgMgrRepo == "" {
		printError(fmt.Errorf("--daw-repo and --pkgmgr-repo are required"))
		exitWithCode(ExitUsage)
	}

	target, ok := model.TargetFor(runtime.GOOS, runtime.GOARCH)
	if !ok {
		printError(fmt.Errorf("unsupported platform %s/%s", runtime.GOOS, runtime.GOARCH))
		exitWithCode(ExitUsage)
	}

	if installNonInteractive && !installAcceptLicenses {
		printError(fmt.Errorf("--non-interactive requires --accept-licenses"))
		exitWithCode(ExitUsage)
	}

	urls := make([]model.PackageUrl, 0, len(installPackageURLs))
	for _, raw := range installPackageURLs {
		u, err := model.ParsePackageUrl(raw)
		if err != nil {
			printError(fmt.Errorf("invalid --package-url %q: %w", raw, err))
			exitWithCode(ExitUsage)
		}
		urls = append(urls, u)
	}

	in := installer.New(installer.Options{
		ResourceDir:          installResourceDir,
		TempParent:           installTempParent,
		KeepTempDir:          installKeepTempDir,
		Portable:             installPortable,
		DawExecutableRelPath: installDawExecRelPath,
		Concurrency:          installConcurrency,
		DryRun:               installDryRun,
		SkipFailedPackages:   installSkipFailed,
		DawRepo:              installDawRepo,
		PkgMgrRepo:           installPkgMgrRepo,
		DawVersion:           daw.ParseVersionRequest(installDawVersion),
		UpdateDaw:            installUpdateDaw,
		Target:               target,
		PackageURLs:          urls,
		Listener:             newTerminalListener(os.Stdout),
		Logger:               log.Default(),
	})

	rep, err := in.Run(globalCtx)
	if rep != nil {
		if md, mdErr := rep.Markdown(nil); mdErr == nil {
			fmt.Println(md)
		}
	}
	if err != nil {
		printError(err)
		if globalCtx.Err() != nil {
			exitWithCode(ExitCancelled)
		}
		if rep != nil && rep.HasFailures() {
			exitWithCode(ExitInstallFailed)
		}
		exitWithCode(ExitNetwork)
	}
	return nil
}

func printError(err error) {
	fmt.Fprintln(os.Stderr, err)
}
