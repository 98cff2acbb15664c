// Package report folds every per-package outcome and tooling change from
// one install run into a single renderable summary.
package report

import (
	"github.com/dawkit/dawkit/internal/daw"
	"github.com/dawkit/dawkit/internal/model"
)

// OutcomeKind is one of the nine terminal states a package can reach while
// passing through the pipeline.
type OutcomeKind int

const (
	NotFoundInRepo OutcomeKind = iota
	VersionConflict
	Incompatible
	ConflictWithOtherPackagesToBeInstalled
	ConflictWithAlreadyInstalledFiles
	DownloadFailed
	TempInstallFailed
	ToBeAdded
	ToBeReplaced
)

func (k OutcomeKind) String() string {
	switch k {
	case NotFoundInRepo:
		return "NotFoundInRepo"
	case VersionConflict:
		return "VersionConflict"
	case Incompatible:
		return "Incompatible"
	case ConflictWithOtherPackagesToBeInstalled:
		return "ConflictWithOtherPackagesToBeInstalled"
	case ConflictWithAlreadyInstalledFiles:
		return "ConflictWithAlreadyInstalledFiles"
	case DownloadFailed:
		return "DownloadFailed"
	case TempInstallFailed:
		return "TempInstallFailed"
	case ToBeAdded:
		return "ToBeAdded"
	case ToBeReplaced:
		return "ToBeReplaced"
	default:
		return "Unknown"
	}
}

// Category groups an OutcomeKind for rendering purposes.
type Category int

const (
	Failure Category = iota
	Replacement
	Addition
)

func (c Category) String() string {
	switch c {
	case Failure:
		return "Failure"
	case Replacement:
		return "Replacement"
	case Addition:
		return "Addition"
	default:
		return "Unknown"
	}
}

// Category classifies the outcome kind into the three rendered sections.
func (k OutcomeKind) Category() Category {
	switch k {
	case ToBeAdded:
		return Addition
	case ToBeReplaced:
		return Replacement
	default:
		return Failure
	}
}

// PackagePreparationOutcome is the single status one package reached.
type PackagePreparationOutcome struct {
	Identity model.PackageIdentity
	Kind     OutcomeKind

	// Conflict payloads.
	ConflictingVersions []string // VersionConflict
	Path                string   // ConflictWith* kinds
	Owner               model.PackageIdentity // ConflictWithAlreadyInstalledFiles

	// Failure payloads.
	Err error // DownloadFailed, TempInstallFailed

	// Success payloads.
	NewVersion string // ToBeAdded, ToBeReplaced
	OldVersion string // ToBeReplaced
}

// Detail renders a short one-line description of the outcome, used as the
// third column of the Markdown table.
func (o PackagePreparationOutcome) Detail() string {
	switch o.Kind {
	case NotFoundInRepo:
		return "not found in any repository"
	case VersionConflict:
		return "conflicting pinned versions requested: " + joinStrings(o.ConflictingVersions)
	case Incompatible:
		return "no source compatible with this platform"
	case ConflictWithOtherPackagesToBeInstalled:
		return "file conflict at " + o.Path
	case ConflictWithAlreadyInstalledFiles:
		return "file " + o.Path + " already belongs to " + o.Owner.Package
	case DownloadFailed:
		if o.Err != nil {
			return "download failed: " + o.Err.Error()
		}
		return "download failed"
	case TempInstallFailed:
		if o.Err != nil {
			return "staging failed: " + o.Err.Error()
		}
		return "staging failed"
	case ToBeAdded:
		return "new package"
	case ToBeReplaced:
		return "replaces " + o.OldVersion
	default:
		return ""
	}
}

func joinStrings(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

// ToolingChange records a DAW or package-manager download performed during
// the run (distinct from package downloads, which appear as outcomes).
type ToolingChange struct {
	Name string // "daw" or "pkgmgr"
	Info daw.DownloadInfo
}

// Report is the complete folded outcome of one install run.
type Report struct {
	ToolingChanges      []ToolingChange
	Outcomes            []PackagePreparationOutcome
	PackagesToBeRemoved []model.PackageIdentity
}

// ByCategory groups outcomes by their rendered section.
func (r Report) ByCategory(c Category) []PackagePreparationOutcome {
	var out []PackagePreparationOutcome
	for _, o := range r.Outcomes {
		if o.Kind.Category() == c {
			out = append(out, o)
		}
	}
	return out
}

// HasFailures reports whether at least one package failed to install.
func (r Report) HasFailures() bool {
	return len(r.ByCategory(Failure)) > 0
}
