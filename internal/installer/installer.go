package installer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/dawkit/dawkit/internal/daw"
	"github.com/dawkit/dawkit/internal/downloader"
	"github.com/dawkit/dawkit/internal/httputil"
	"github.com/dawkit/dawkit/internal/log"
	"github.com/dawkit/dawkit/internal/model"
	"github.com/dawkit/dawkit/internal/multidownloader"
	"github.com/dawkit/dawkit/internal/planner"
	"github.com/dawkit/dawkit/internal/registry"
	"github.com/dawkit/dawkit/internal/report"
	"github.com/dawkit/dawkit/internal/resourcedir"
)

// Options configures one install run.
type Options struct {
	// ResourceDir is the final resource directory's root path.
	ResourceDir string
	// TempParent, if set, is the parent directory new temp resource
	// directories are created under.
	TempParent  string
	KeepTempDir bool

	// Portable reports whether the target install is self-contained
	// (DAW colocated with the resource directory). A non-portable target
	// cannot have the DAW installed automatically.
	Portable bool
	// DawExecutableRelPath is the path, relative to the resource
	// directory, whose presence means the DAW is already installed.
	DawExecutableRelPath string

	Concurrency        int
	DryRun             bool
	SkipFailedPackages bool

	DawRepo      string // "owner/name" on GitHub
	PkgMgrRepo   string
	DawVersion   daw.VersionRequest
	UpdateDaw    bool
	Target       model.Target
	PackageURLs  []model.PackageUrl
	DonationURLs map[string]string

	Listener Listener
	Logger   log.Logger
	Client   *http.Client
}

// Installer sequences one full install run.
type Installer struct {
	opts     Options
	listener Listener
	logger   log.Logger
	client   *http.Client
	resolver *daw.Resolver
	dl       *downloader.Downloader
}

// New builds an Installer from opts, filling in defaults.
func New(opts Options) *Installer {
	if opts.Listener == nil {
		opts.Listener = NopListener{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Client == nil {
		opts.Client = httputil.NewSecureClient(httputil.DefaultOptions())
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = multidownloader.DefaultConcurrency
	}
	return &Installer{
		opts:     opts,
		listener: opts.Listener,
		logger:   opts.Logger,
		client:   opts.Client,
		resolver: daw.NewResolver(),
		dl:       downloader.New(downloader.Options{Client: opts.Client, Logger: opts.Logger}),
	}
}

func (in *Installer) emit(s Stage) {
	in.listener.StageChanged(s)
}

// Run executes the full pipeline and returns the final report.
func (in *Installer) Run(ctx context.Context) (*report.Report, error) {
	rep := &report.Report{}
	in.emit(Stage{Kind: NothingInstalled})

	finalDir, err := resourcedir.New(in.opts.ResourceDir)
	if err != nil {
		return nil, fmt.Errorf("resolve resource directory %s: %w", in.opts.ResourceDir, err)
	}

	if err := in.ensureDaw(ctx, finalDir, rep); err != nil {
		var manual *errManualDawInstallRequired
		if errors.As(err, &manual) {
			in.emit(Stage{Kind: Done})
			return rep, nil
		}
		return rep, err
	}

	if err := in.ensurePkgMgr(ctx, finalDir, rep); err != nil {
		return rep, err
	}

	in.emit(Stage{Kind: PreparingTempDirectory})
	temp, err := resourcedir.NewTemp(in.opts.TempParent)
	if err != nil {
		return rep, fmt.Errorf("create temporary resource directory: %w", err)
	}
	defer func() {
		if in.opts.KeepTempDir {
			temp.Keep()
		}
		temp.Close()
	}()
	if err := os.MkdirAll(temp.PkgMgrCacheDir(), 0o755); err != nil {
		return rep, fmt.Errorf("create temp cache directory: %w", err)
	}
	if err := seedTempDirectory(finalDir, temp.ResourceDirectory); err != nil {
		return rep, fmt.Errorf("seed temporary directory: %w", err)
	}

	in.emit(Stage{Kind: DownloadingRepositoryIndexes})
	downloaded, indexFailures := in.downloadIndexes(ctx, temp.ResourceDirectory)
	for url, kind := range indexFailures {
		in.listener.Warn(fmt.Sprintf("repository index unavailable: %s (%s)", url, kind))
	}

	in.emit(Stage{Kind: ParsingRepositoryIndexes})
	indexesByURL := make(map[string]model.Index, len(downloaded))
	for url, di := range downloaded {
		indexesByURL[url] = di.index
	}
	if err := registerRemotes(temp.ResourceDirectory, downloaded); err != nil {
		in.listener.Warn(fmt.Sprintf("could not update package-manager remotes: %v", err))
	}

	installed, installedErr := readInstalledPackages(temp.PkgMgrRegistryFile())
	if installedErr != nil {
		in.listener.Warn(fmt.Sprintf("could not read existing registry state: %v", installedErr))
	}
	toBeReplaced, toKeep := splitInstalled(installed, in.opts.PackageURLs)

	in.emit(Stage{Kind: PreparingPackageDownloading})
	plan := planner.Resolve(in.opts.PackageURLs, indexesByURL, toKeep, in.opts.Target)
	appendPlanFailures(rep, plan.Failures)

	in.emit(Stage{Kind: DownloadingPackageFiles})
	byIdentity, downloadFailed := in.downloadPlanFiles(ctx, temp.ResourceDirectory, plan.Files)
	for identity := range downloadFailed {
		rep.Outcomes = append(rep.Outcomes, report.PackagePreparationOutcome{Identity: identity, Kind: report.DownloadFailed, Err: downloadFailed[identity]})
	}

	if in.opts.DryRun {
		in.emit(Stage{Kind: Done})
		return rep, nil
	}

	in.emit(Stage{Kind: UpdatingPkgMgrState})
	db, err := registry.Open(temp.PkgMgrRegistryFile())
	if err != nil {
		return rep, fmt.Errorf("open temporary registry: %w", err)
	}

	applied, tempFailed := in.tempInstall(db, finalDir, byIdentity, toBeReplaced)
	db.Close()
	for identity, err := range tempFailed {
		rep.Outcomes = append(rep.Outcomes, report.PackagePreparationOutcome{Identity: identity, Kind: report.TempInstallFailed, Err: err})
	}

	for _, identity := range missingIdentities(toBeReplaced, applied) {
		rep.PackagesToBeRemoved = append(rep.PackagesToBeRemoved, identity)
	}
	for identity, group := range applied {
		outcome := report.PackagePreparationOutcome{Identity: identity, Kind: report.ToBeAdded, NewVersion: group.version}
		if old, ok := replacedVersion(toBeReplaced, identity); ok {
			outcome.Kind = report.ToBeReplaced
			outcome.OldVersion = old
		}
		rep.Outcomes = append(rep.Outcomes, outcome)
	}

	in.emit(Stage{Kind: ApplyingPkgMgrState})
	if err := in.commitPkgMgrState(temp.ResourceDirectory, finalDir); err != nil {
		return rep, fmt.Errorf("commit package-manager state: %w", err)
	}

	for identity, group := range applied {
		in.emit(Stage{Kind: ApplyingPackage, PackageName: identity.Package})
		if err := in.applyPackageFiles(finalDir, group); err != nil {
			in.logger.Error("applying package files failed", "package", identity.Package, "error", err)
		}
	}

	in.emit(Stage{Kind: Done})

	if rep.HasFailures() && !in.opts.SkipFailedPackages {
		return rep, fmt.Errorf("some packages failed to install")
	}
	return rep, nil
}

func appendPlanFailures(rep *report.Report, f planner.Failures) {
	for _, d := range f.NotFoundInRepo {
		rep.Outcomes = append(rep.Outcomes, report.PackagePreparationOutcome{
			Identity: model.PackageIdentity{Category: d.URL.Path.Category, Package: d.URL.Path.PackageName},
			Kind:     report.NotFoundInRepo,
		})
	}
	for _, vc := range f.VersionConflicts {
		var versions []string
		for _, v := range vc.Versions {
			versions = append(versions, v.String())
		}
		rep.Outcomes = append(rep.Outcomes, report.PackagePreparationOutcome{
			Identity:            vc.Identity,
			Kind:                report.VersionConflict,
			ConflictingVersions: versions,
		})
	}
	for _, inc := range f.Incompatible {
		rep.Outcomes = append(rep.Outcomes, report.PackagePreparationOutcome{Identity: inc.Identity, Kind: report.Incompatible})
	}
	for _, fc := range f.FileConflicts {
		for _, s := range fc.Sources {
			rep.Outcomes = append(rep.Outcomes, report.PackagePreparationOutcome{
				Identity: s.Identity, Kind: report.ConflictWithOtherPackagesToBeInstalled, Path: fc.Path,
			})
		}
	}
	for _, ac := range f.AlreadyInstalled {
		rep.Outcomes = append(rep.Outcomes, report.PackagePreparationOutcome{
			Identity: ac.Source.Identity, Kind: report.ConflictWithAlreadyInstalledFiles, Path: ac.Path, Owner: ac.Owner,
		})
	}
}

func splitInstalled(installed []model.InstalledPackage, urls []model.PackageUrl) (toBeReplaced, toKeep []model.InstalledPackage) {
	wanted := map[model.PackageIdentity]bool{}
	for _, u := range urls {
		wanted[model.PackageIdentity{Category: u.Path.Category, Package: u.Path.PackageName}] = true
	}
	for _, p := range installed {
		matched := false
		for identity := range wanted {
			if identity.Category == p.Category && identity.Package == p.Package {
				matched = true
				break
			}
		}
		if matched {
			toBeReplaced = append(toBeReplaced, p)
		} else {
			toKeep = append(toKeep, p)
		}
	}
	return toBeReplaced, toKeep
}

func replacedVersion(installed []model.InstalledPackage, identity model.PackageIdentity) (string, bool) {
	for _, p := range installed {
		if p.Identity() == identity {
			return p.Version.String(), true
		}
	}
	return "", false
}

func missingIdentities(toBeReplaced []model.InstalledPackage, applied map[model.PackageIdentity]packageGroup) []model.PackageIdentity {
	var out []model.PackageIdentity
	for _, p := range toBeReplaced {
		if _, ok := applied[p.Identity()]; !ok {
			out = append(out, p.Identity())
		}
	}
	return out
}
