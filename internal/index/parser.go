// Package index parses a repository index document (XML) into the
// model.Index tree. Parsing is permissive: unknown enum string values
// surface as the model package's Unknown variants rather than rejecting
// the document.
package index

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/dawkit/dawkit/internal/model"
)

// ErrUnsupportedVersion is returned when the document's version attribute
// is not "1".
type ErrUnsupportedVersion struct {
	Got string
}

func (e *ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("unsupported index version %q, only \"1\" is supported", e.Got)
}

// ErrMissingName is returned when the document has no name attribute; the
// index is unusable without one.
var ErrMissingName = fmt.Errorf("index document is missing its name attribute")

type xmlIndex struct {
	XMLName    xml.Name       `xml:"index"`
	Version    string         `xml:"version,attr"`
	Name       string         `xml:"name,attr"`
	Categories []xmlCategory  `xml:"category"`
	Metadata   *xmlMetadata   `xml:"metadata"`
}

type xmlCategory struct {
	Name     string       `xml:"name,attr"`
	Packages []xmlPackage `xml:"reapack"`
}

type xmlPackage struct {
	Name     string       `xml:"name,attr"`
	Type     string       `xml:"type,attr"`
	Desc     string       `xml:"desc,attr"`
	Versions []xmlVersion `xml:"version"`
	Metadata *xmlMetadata `xml:"metadata"`
}

type xmlVersion struct {
	Name      string      `xml:"name,attr"`
	Author    string      `xml:"author,attr"`
	Time      string      `xml:"time,attr"`
	Sources   []xmlSource `xml:"source"`
	Changelog string      `xml:"changelog"`
}

type xmlSource struct {
	File     string `xml:"file,attr"`
	Platform string `xml:"platform,attr"`
	Type     string `xml:"type,attr"`
	Main     string `xml:"main,attr"`
	Hash     string `xml:"hash,attr"`
	URL      string `xml:",chardata"`
}

type xmlMetadata struct {
	Description string    `xml:"description"`
	Links       []xmlLink `xml:"link"`
}

type xmlLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
	Text string `xml:",chardata"`
}

// Parse reads a repository index document and builds the model.Index tree.
// Malformed per-version data does not fail the whole parse (a version whose
// name does not parse is kept with an empty name); XML that is not
// well-formed, a wrong version attribute or a missing index name is fatal.
func Parse(data []byte) (model.Index, error) {
	var doc xmlIndex
	if err := xml.Unmarshal(data, &doc); err != nil {
		return model.Index{}, fmt.Errorf("parse index document: %w", err)
	}
	if doc.Version != "1" {
		return model.Index{}, &ErrUnsupportedVersion{Got: doc.Version}
	}
	if doc.Name == "" {
		return model.Index{}, ErrMissingName
	}

	idx := model.Index{Name: doc.Name}
	if doc.Metadata != nil {
		idx.Metadata = parseMetadata(*doc.Metadata)
	}

	for _, c := range doc.Categories {
		cat := model.Category{Name: c.Name}
		for _, p := range c.Packages {
			cat.Packages = append(cat.Packages, buildPackage(p))
		}
		idx.Categories = append(idx.Categories, cat)
	}

	return idx, nil
}

func buildPackage(p xmlPackage) model.Package {
	pkg := model.Package{
		Name:        p.Name,
		Type:        model.ParsePackageType(p.Type),
		Description: p.Desc,
	}
	for _, v := range p.Versions {
		pkg.Versions = append(pkg.Versions, buildVersion(v))
	}
	return pkg
}

func buildVersion(v xmlVersion) model.Version {
	name, err := model.ParseVersionName(v.Name)
	if err != nil {
		// Keep the version under an empty name rather than failing the
		// document; an empty name is never stable, so Latest never picks it.
		name = model.VersionName{}
	}
	out := model.Version{Name: name, Author: v.Author, Changelog: v.Changelog}
	if v.Time != "" {
		if t, err := time.Parse(time.RFC3339, v.Time); err == nil {
			out.Time = &t
		}
	}
	for _, s := range v.Sources {
		out.Sources = append(out.Sources, buildSource(s))
	}
	return out
}

func buildSource(s xmlSource) model.Source {
	src := model.Source{
		File: s.File,
		Hash: s.Hash,
		URL:  strings.TrimSpace(s.URL),
	}
	if s.Platform == "" {
		src.Platform = model.PlatformAll
	} else {
		src.Platform = model.ParsePlatform(s.Platform)
	}
	if s.Type != "" {
		t := model.ParsePackageType(s.Type)
		src.Type = &t
	}
	if s.Main == "" {
		src.Implicit = true
	} else {
		src.Main = model.NewSectionSet(strings.Fields(s.Main))
	}
	return src
}

func parseMetadata(m xmlMetadata) []model.MetadataEntry {
	var out []model.MetadataEntry
	if m.Description != "" {
		out = append(out, model.MetadataEntry{Description: m.Description})
	}
	for _, l := range m.Links {
		link := model.Link{Rel: model.ParseLinkRel(l.Rel), Href: l.Href, Text: strings.TrimSpace(l.Text)}
		out = append(out, model.MetadataEntry{Link: &link})
	}
	return out
}
