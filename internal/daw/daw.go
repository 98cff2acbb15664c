// Package daw resolves and fetches the two pieces of software the
// installer bootstraps before it can manage packages at all: the DAW
// itself and the package manager's own shared library, plus the archive
// extraction needed to unpack whichever of those ships as a tarball/zip.
package daw

import (
	"fmt"
	"strings"

	"github.com/dawkit/dawkit/internal/model"
)

// VersionRequestKind mirrors the CLI's DAW-version string encoding
// ("latest" | "latest-pre" | an explicit version).
type VersionRequestKind int

const (
	VersionLatest VersionRequestKind = iota
	VersionLatestPre
	VersionSpecific
)

// VersionRequest is what the orchestrator asks this package to resolve.
type VersionRequest struct {
	Kind     VersionRequestKind
	Specific string // only meaningful when Kind == VersionSpecific
}

// ParseVersionRequest maps the CLI's DAW-version string to a VersionRequest.
func ParseVersionRequest(s string) VersionRequest {
	switch s {
	case "", "latest":
		return VersionRequest{Kind: VersionLatest}
	case "latest-pre":
		return VersionRequest{Kind: VersionLatestPre}
	default:
		return VersionRequest{Kind: VersionSpecific, Specific: s}
	}
}

// DownloadInfo names a single resolved, downloadable release asset.
type DownloadInfo struct {
	Version   string
	Tag       string
	AssetName string
	URL       string
}

// assetMatcher returns a predicate selecting the one release asset that
// targets t, by the same convention release asset names in this
// ecosystem use: the target's own platform tag appears somewhere in the
// asset's filename (e.g. "thing-linux64.tar.xz", "thing_win64.zip").
func assetMatcher(t model.Target) func(name string) bool {
	tag := strings.ToLower(t.String())
	alt := strings.ReplaceAll(tag, "-", "_")
	return func(name string) bool {
		lower := strings.ToLower(name)
		return strings.Contains(lower, tag) || strings.Contains(lower, alt)
	}
}

// ErrNoMatchingAsset is returned when a release has no asset matching the target.
type ErrNoMatchingAsset struct {
	Tag    string
	Target model.Target
}

func (e *ErrNoMatchingAsset) Error() string {
	return fmt.Sprintf("release %s has no asset matching target %s", e.Tag, e.Target)
}
