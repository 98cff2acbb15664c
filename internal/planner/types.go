// Package planner implements the resolution pipeline: package URLs ×
// indexes × installed state × platform → a download plan plus classified
// failure buckets. The pipeline is a fixed sequence of pure
// transformations; no I/O happens here.
package planner

import "github.com/dawkit/dawkit/internal/model"

// DescFailureKind classifies why a single PackageUrl could not be resolved
// to a concrete version at all (bucket 1: "missing in repo" and its
// siblings).
type DescFailureKind int

const (
	RepositoryIndexUnavailable DescFailureKind = iota
	PackageCategoryNotFound
	PackageNotFound
	PackageHasUnknownType
	PackageHasNoStableVersion
	PackageHasNoVersionsAtAll
	PackageVersionNotFound
)

func (k DescFailureKind) String() string {
	switch k {
	case RepositoryIndexUnavailable:
		return "RepositoryIndexUnavailable"
	case PackageCategoryNotFound:
		return "PackageCategoryNotFound"
	case PackageNotFound:
		return "PackageNotFound"
	case PackageHasUnknownType:
		return "PackageHasUnknownType"
	case PackageHasNoStableVersion:
		return "PackageHasNoStableVersion"
	case PackageHasNoVersionsAtAll:
		return "PackageHasNoVersionsAtAll"
	case PackageVersionNotFound:
		return "PackageVersionNotFound"
	default:
		return "Unknown"
	}
}

// DescFailure pairs one input PackageUrl with why it could not be resolved
// to a version at all.
type DescFailure struct {
	URL  model.PackageUrl
	Kind DescFailureKind
}

// VersionConflict reports that two or more input URLs resolved to the same
// package identity but different pinned versions; all candidates for that
// identity are dropped.
type VersionConflict struct {
	Identity model.PackageIdentity
	Versions []model.VersionName
}

// IncompatibleVersion reports a resolved package version with zero
// platform-compatible sources; nothing from it is installed.
type IncompatibleVersion struct {
	Identity model.PackageIdentity
	Version  model.VersionName
}

// QualifiedSource is one concrete file to install.
type QualifiedSource struct {
	Identity    model.PackageIdentity
	Version     model.VersionName
	PackageType model.PackageType
	Package     model.Package
	Source      model.Source
	DestPath    string
}

// RecipeFileConflict reports two or more surviving sources that would be
// installed to the same destination path.
type RecipeFileConflict struct {
	Path    string
	Sources []QualifiedSource
}

// AlreadyInstalledConflict reports a surviving source colliding with a
// file belonging to a package the caller asked to keep.
type AlreadyInstalledConflict struct {
	Path   string
	Source QualifiedSource
	Owner  model.PackageIdentity
}

// Failures is the full set of classified failure buckets from a Resolve call.
type Failures struct {
	NotFoundInRepo   []DescFailure
	VersionConflicts []VersionConflict
	Incompatible     []IncompatibleVersion
	FileConflicts    []RecipeFileConflict
	AlreadyInstalled []AlreadyInstalledConflict
}

// Plan is the output of the resolution pipeline: the final files to
// download, plus every reason something didn't make it in.
type Plan struct {
	Files    []QualifiedSource
	Failures Failures
}
