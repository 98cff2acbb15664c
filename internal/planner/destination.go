package planner

import (
	"path"

	"github.com/dawkit/dawkit/internal/model"
)

// defaultSubdir maps a package type to the subdirectory its files are
// installed under, rooted at the resource directory. Not specified
// byte-for-byte anywhere in the retrieved source; reconstructed from the
// type names themselves and documented in DESIGN.md as an authored
// decision rather than a grounded one.
func defaultSubdir(t model.PackageType) string {
	switch {
	case t.Equal(model.PackageTypeScript):
		return "Scripts"
	case t.Equal(model.PackageTypeExtension):
		return "UserPlugins"
	case t.Equal(model.PackageTypeEffect):
		return "Effects"
	case t.Equal(model.PackageTypeData):
		return "Data"
	case t.Equal(model.PackageTypeTheme):
		return "ColorThemes"
	case t.Equal(model.PackageTypeLangPack):
		return "LangPack"
	case t.Equal(model.PackageTypeWebInterface):
		return "reaper_www_root"
	case t.Equal(model.PackageTypeProjectTemplate):
		return "ProjectTemplates"
	case t.Equal(model.PackageTypeTrackTemplate):
		return "TrackTemplates"
	case t.Equal(model.PackageTypeMidiNoteNames):
		return "MIDINoteNames"
	case t.Equal(model.PackageTypeAutomationItem):
		return "Data/Track Templates"
	default:
		return "Data"
	}
}

// destinationPath computes the file's destination relative path: the
// source's file override if present, else the package name, joined under
// the effective type's default subdirectory.
func destinationPath(pkgName string, effectiveType model.PackageType, source model.Source) string {
	name := source.File
	if name == "" {
		name = pkgName
	}
	return path.Join(defaultSubdir(effectiveType), name)
}
