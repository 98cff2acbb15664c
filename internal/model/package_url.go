package model

import (
	"fmt"
	"net/url"
	"strings"
)

// VersionRefKind distinguishes the three forms a PackageUrl's version
// fragment can take.
type VersionRefKind int

const (
	// VersionRefLatest selects the newest stable version.
	VersionRefLatest VersionRefKind = iota
	// VersionRefLatestPre selects the newest version including pre-releases.
	VersionRefLatestPre
	// VersionRefSpecific pins an exact VersionName.
	VersionRefSpecific
)

// VersionRef is one of Latest, LatestPre, or Specific(VersionName).
type VersionRef struct {
	Kind     VersionRefKind
	Specific VersionName
}

// String renders the fragment form used in PackageUrl encoding.
func (r VersionRef) String() string {
	switch r.Kind {
	case VersionRefLatest:
		return "latest"
	case VersionRefLatestPre:
		return "latest-pre"
	case VersionRefSpecific:
		return r.Specific.String()
	default:
		return "latest"
	}
}

// ParseVersionRef parses "latest", "latest-pre", or an exact version string.
func ParseVersionRef(s string) (VersionRef, error) {
	switch s {
	case "", "latest":
		return VersionRef{Kind: VersionRefLatest}, nil
	case "latest-pre":
		return VersionRef{Kind: VersionRefLatestPre}, nil
	default:
		v, err := ParseVersionName(s)
		if err != nil {
			return VersionRef{}, fmt.Errorf("invalid version_ref %q: %w", s, err)
		}
		return VersionRef{Kind: VersionRefSpecific, Specific: v}, nil
	}
}

// PackagePath is a (category, package_name) pair. Category may contain '/';
// package_name must not.
type PackagePath struct {
	Category    string
	PackageName string
}

// String renders as "category/package_name".
func (p PackagePath) String() string {
	return p.Category + "/" + p.PackageName
}

// ParsePackagePath splits on the last '/': everything before is the
// category (which may itself contain slashes), everything after is the
// package name.
func ParsePackagePath(s string) (PackagePath, error) {
	idx := strings.LastIndex(s, "/")
	if idx < 0 {
		return PackagePath{}, fmt.Errorf("invalid package path %q: missing '/' separator", s)
	}
	category := s[:idx]
	name := s[idx+1:]
	if category == "" || name == "" {
		return PackagePath{}, fmt.Errorf("invalid package path %q: empty category or package name", s)
	}
	if strings.Contains(name, "/") {
		return PackagePath{}, fmt.Errorf("invalid package path %q: package name must not contain '/'", s)
	}
	return PackagePath{Category: category, PackageName: name}, nil
}

// PackageUrl is the immutable identifier (repository_url, package_path,
// version_ref). Two PackageUrls are equal iff all three fields are equal.
type PackageUrl struct {
	RepositoryURL *url.URL
	Path          PackagePath
	VersionRef    VersionRef
}

// ParsePackageUrl parses a URL whose fragment follows "p={category/package}&v={version}".
func ParsePackageUrl(raw string) (PackageUrl, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return PackageUrl{}, fmt.Errorf("invalid package url %q: %w", raw, err)
	}
	frag := u.Fragment
	u.Fragment = ""
	u.RawFragment = ""
	if frag == "" {
		return PackageUrl{}, fmt.Errorf("package url %q is missing its fragment identifier", raw)
	}

	values, err := url.ParseQuery(frag)
	if err != nil {
		return PackageUrl{}, fmt.Errorf("package url %q has an invalid fragment: %w", raw, err)
	}
	p := values.Get("p")
	if p == "" {
		return PackageUrl{}, fmt.Errorf("package url %q is missing the package path (p=)", raw)
	}
	path, err := ParsePackagePath(p)
	if err != nil {
		return PackageUrl{}, fmt.Errorf("package url %q: %w", raw, err)
	}

	vref, err := ParseVersionRef(values.Get("v"))
	if err != nil {
		return PackageUrl{}, fmt.Errorf("package url %q: %w", raw, err)
	}

	return PackageUrl{RepositoryURL: u, Path: path, VersionRef: vref}, nil
}

// String re-serializes the PackageUrl to its canonical form.
func (p PackageUrl) String() string {
	values := url.Values{}
	values.Set("p", p.Path.String())
	values.Set("v", p.VersionRef.String())
	return p.RepositoryURL.String() + "#" + values.Encode()
}

// Equal reports field-wise equality (not string equality of the serialized form).
func (p PackageUrl) Equal(other PackageUrl) bool {
	if p.RepositoryURL.String() != other.RepositoryURL.String() {
		return false
	}
	if p.Path != other.Path {
		return false
	}
	if p.VersionRef.Kind != other.VersionRef.Kind {
		return false
	}
	if p.VersionRef.Kind == VersionRefSpecific {
		return p.VersionRef.Specific.Equal(other.VersionRef.Specific)
	}
	return true
}
