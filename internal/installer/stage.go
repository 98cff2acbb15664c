// Package installer sequences the end-to-end install pipeline: fetching
// the DAW and package-manager tooling, downloading and parsing repository
// indexes, resolving package URLs to a download plan, downloading package
// files, staging package-manager state in a temporary resource directory,
// and atomically promoting that state into the final one.
package installer

import (
	"fmt"

	"github.com/dawkit/dawkit/internal/daw"
)

// StageKind names one step of the linear installation pipeline.
type StageKind int

const (
	NothingInstalled StageKind = iota
	CheckingLatestDawVersion
	DownloadingDaw
	// InstallManuallyRequired is reached instead of ExtractingDaw when the
	// target install is not portable: the DAW archive is downloaded and
	// preserved, but this module never writes outside a resource directory
	// it owns, so extraction is left to the user.
	InstallManuallyRequired
	ExtractingDaw
	InstalledDaw
	CheckingLatestPkgMgrVersion
	DownloadingPkgMgr
	InstalledPkgMgr
	PreparingTempDirectory
	DownloadingRepositoryIndexes
	ParsingRepositoryIndexes
	PreparingPackageDownloading
	DownloadingPackageFiles
	UpdatingPkgMgrState
	ApplyingPkgMgrState
	ApplyingPackage
	Done
)

func (k StageKind) String() string {
	switch k {
	case NothingInstalled:
		return "NothingInstalled"
	case CheckingLatestDawVersion:
		return "CheckingLatestDawVersion"
	case DownloadingDaw:
		return "DownloadingDaw"
	case InstallManuallyRequired:
		return "InstallManuallyRequired"
	case ExtractingDaw:
		return "ExtractingDaw"
	case InstalledDaw:
		return "InstalledDaw"
	case CheckingLatestPkgMgrVersion:
		return "CheckingLatestPkgMgrVersion"
	case DownloadingPkgMgr:
		return "DownloadingPkgMgr"
	case InstalledPkgMgr:
		return "InstalledPkgMgr"
	case PreparingTempDirectory:
		return "PreparingTempDirectory"
	case DownloadingRepositoryIndexes:
		return "DownloadingRepositoryIndexes"
	case ParsingRepositoryIndexes:
		return "ParsingRepositoryIndexes"
	case PreparingPackageDownloading:
		return "PreparingPackageDownloading"
	case DownloadingPackageFiles:
		return "DownloadingPackageFiles"
	case UpdatingPkgMgrState:
		return "UpdatingPkgMgrState"
	case ApplyingPkgMgrState:
		return "ApplyingPkgMgrState"
	case ApplyingPackage:
		return "ApplyingPackage"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// Stage is one transition of the pipeline: a kind plus whatever payload
// that kind carries (a resolved DownloadInfo for the two download stages,
// a package identity string for ApplyingPackage).
type Stage struct {
	Kind         StageKind
	DawInfo      daw.DownloadInfo
	PkgMgrInfo   daw.DownloadInfo
	PackageName  string
	DownloadPath string // set on InstallManuallyRequired
}

func (s Stage) String() string {
	switch s.Kind {
	case DownloadingDaw:
		return fmt.Sprintf("DownloadingDaw(%s)", s.DawInfo.AssetName)
	case DownloadingPkgMgr:
		return fmt.Sprintf("DownloadingPkgMgr(%s)", s.PkgMgrInfo.AssetName)
	case ApplyingPackage:
		return fmt.Sprintf("ApplyingPackage(%s)", s.PackageName)
	case InstallManuallyRequired:
		return fmt.Sprintf("InstallManuallyRequired(%s)", s.DownloadPath)
	default:
		return s.Kind.String()
	}
}

// Listener receives every event the orchestrator emits. Implementations
// must be cheap and non-blocking. Stage changes and log events come from the
// orchestrator's goroutine, but during downloads the task events and
// StageProgressed are forwarded from the download goroutines and may arrive
// concurrently, so implementations must be safe for concurrent use.
type Listener interface {
	StageChanged(Stage)
	StageProgressed(fraction float64)
	TaskStarted(id int, label string)
	TaskProgressed(id int, fraction float64)
	TaskFinished(id int)
	Warn(msg string)
	Info(msg string)
	Debug(msg string)
}

// NopListener discards every event.
type NopListener struct{}

func (NopListener) StageChanged(Stage)          {}
func (NopListener) StageProgressed(float64)     {}
func (NopListener) TaskStarted(int, string)     {}
func (NopListener) TaskProgressed(int, float64) {}
func (NopListener) TaskFinished(int)            {}
func (NopListener) Warn(string)                 {}
func (NopListener) Info(string)                 {}
func (NopListener) Debug(string)                {}
