package model

import "time"

// Index is a parsed repository index document: a display name and a list
// of categories. Name is required for the index to be usable; callers that
// parse an Index with an empty Name must discard it.
type Index struct {
	Name       string
	Categories []Category
	Metadata   []MetadataEntry
}

// FindCategory returns the category with the given name, if present.
func (idx Index) FindCategory(name string) (Category, bool) {
	for _, c := range idx.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// FindPackage looks up a package by category and package name.
func (idx Index) FindPackage(category, name string) (Package, bool) {
	c, ok := idx.FindCategory(category)
	if !ok {
		return Package{}, false
	}
	for _, p := range c.Packages {
		if p.Name == name {
			return p, true
		}
	}
	return Package{}, false
}

// Category groups packages under a display name (e.g. "MIDI Editor").
type Category struct {
	Name     string
	Packages []Package
}

// Package is one named unit with a type and a history of versions.
type Package struct {
	Name        string
	Type        PackageType
	Description string
	Versions    []Version
}

// LatestVersion returns the highest Version, preferring stable releases
// unless includePre is true.
func (p Package) LatestVersion(includePre bool) (Version, bool) {
	var best *Version
	for i := range p.Versions {
		v := &p.Versions[i]
		if !includePre && !v.Name.Stable() {
			continue
		}
		if best == nil || best.Name.Less(v.Name) {
			best = v
		}
	}
	if best == nil {
		return Version{}, false
	}
	return *best, true
}

// StableVersions returns only the versions with no letter segment.
func (p Package) StableVersions() []Version {
	var out []Version
	for _, v := range p.Versions {
		if v.Name.Stable() {
			out = append(out, v)
		}
	}
	return out
}

// FindVersion looks up an exact VersionName match.
func (p Package) FindVersion(name VersionName) (Version, bool) {
	for _, v := range p.Versions {
		if v.Name.Equal(name) {
			return v, true
		}
	}
	return Version{}, false
}

// Version is one release of a Package.
type Version struct {
	Name      VersionName
	Author    string
	Time      *time.Time
	Sources   []Source
	Changelog string
}

// Source is one downloadable file belonging to one Version of one Package.
type Source struct {
	// File is the destination filename override, if present in the index.
	File string
	// Platform is the source's platform tag; absent means PlatformAll.
	Platform Platform
	// Type overrides the package's default type for this source, if present.
	Type *PackageType
	// Main is the set of action-list sections this source registers into.
	// An empty, explicitly-absent "main" attribute is represented as the
	// implicit sentinel (see internal/registry's -1 encoding).
	Main    SectionSet
	Implicit bool
	Hash    string
	URL     string
}

// MetadataEntry is either a free-text description or a link.
type MetadataEntry struct {
	Description string
	Link        *Link
}

// Link is one metadata link with an optional relation.
type Link struct {
	Rel  LinkRel
	Href string
	Text string
}
