package planner

import (
	"testing"

	"github.com/dawkit/dawkit/internal/model"
)

func mustVersion(t *testing.T, s string) model.VersionName {
	t.Helper()
	v, err := model.ParseVersionName(s)
	if err != nil {
		t.Fatalf("parse version %q: %v", s, err)
	}
	return v
}

func mustURL(t *testing.T, raw string) model.PackageUrl {
	t.Helper()
	u, err := model.ParsePackageUrl(raw)
	if err != nil {
		t.Fatalf("parse url %q: %v", raw, err)
	}
	return u
}

func simpleIndex(t *testing.T, pkgName string, pkgType model.PackageType, versions ...string) model.Index {
	t.Helper()
	pkg := model.Package{Name: pkgName, Type: pkgType}
	for _, v := range versions {
		pkg.Versions = append(pkg.Versions, model.Version{
			Name: mustVersion(t, v),
			Sources: []model.Source{
				{Platform: model.PlatformAll, URL: "https://example.com/" + pkgName + "/" + v},
			},
		})
	}
	return model.Index{
		Name:       "Test Repo",
		Categories: []model.Category{{Name: "Scripts", Packages: []model.Package{pkg}}},
	}
}

func TestResolveMinimalInstallProducesNoFiles(t *testing.T) {
	plan := Resolve(nil, map[string]model.Index{}, nil, model.TargetLinux64)
	if len(plan.Files) != 0 {
		t.Errorf("expected zero files, got %d", len(plan.Files))
	}
}

func TestResolveVersionConflict(t *testing.T) {
	idx := simpleIndex(t, "Foo", model.PackageTypeScript, "1.0", "2.0")
	repo := "https://repo.example.com/index.xml"

	u1 := mustURL(t, repo+"#p=Scripts/Foo&v=1.0")
	u2 := mustURL(t, repo+"#p=Scripts/Foo&v=2.0")

	plan := Resolve([]model.PackageUrl{u1, u2}, map[string]model.Index{repo: idx}, nil, model.TargetLinux64)

	if len(plan.Files) != 0 {
		t.Errorf("expected zero files downloaded on version conflict, got %d", len(plan.Files))
	}
	if len(plan.Failures.VersionConflicts) != 1 {
		t.Fatalf("expected exactly one VersionConflict, got %d", len(plan.Failures.VersionConflicts))
	}
	if len(plan.Failures.VersionConflicts[0].Versions) != 2 {
		t.Errorf("expected both versions listed in the conflict")
	}
}

func TestResolvePlatformIncompatible(t *testing.T) {
	pkg := model.Package{
		Name: "WinOnly",
		Type: model.PackageTypeExtension,
		Versions: []model.Version{{
			Name:    mustVersion(t, "1.0"),
			Sources: []model.Source{{Platform: model.PlatformWindows, URL: "https://example.com/f"}},
		}},
	}
	idx := model.Index{Name: "Repo", Categories: []model.Category{{Name: "Extensions", Packages: []model.Package{pkg}}}}
	repo := "https://repo.example.com/index.xml"
	u := mustURL(t, repo+"#p=Extensions/WinOnly&v=1.0")

	plan := Resolve([]model.PackageUrl{u}, map[string]model.Index{repo: idx}, nil, model.TargetLinux64)
	if len(plan.Files) != 0 {
		t.Errorf("expected zero files for platform-incompatible package")
	}
	if len(plan.Failures.Incompatible) != 1 {
		t.Fatalf("expected one Incompatible outcome, got %d", len(plan.Failures.Incompatible))
	}
}

func TestResolvePinnedVersionYieldsItsSource(t *testing.T) {
	idx := simpleIndex(t, "Foo", model.PackageTypeScript, "2.0")
	repo := "https://repo.example.com/index.xml"
	u := mustURL(t, repo+"#p=Scripts/Foo&v=2.0")

	plan := Resolve([]model.PackageUrl{u}, map[string]model.Index{repo: idx}, nil, model.TargetLinux64)
	if len(plan.Files) != 1 {
		t.Fatalf("expected one file in plan, got %d", len(plan.Files))
	}
}

func TestPlanDisjointness(t *testing.T) {
	pkgA := model.Package{Name: "A", Type: model.PackageTypeScript, Versions: []model.Version{{
		Name:    mustVersion(t, "1.0"),
		Sources: []model.Source{{Platform: model.PlatformAll, File: "same.lua", URL: "https://x/a"}},
	}}}
	pkgB := model.Package{Name: "B", Type: model.PackageTypeScript, Versions: []model.Version{{
		Name:    mustVersion(t, "1.0"),
		Sources: []model.Source{{Platform: model.PlatformAll, File: "same.lua", URL: "https://x/b"}},
	}}}
	idx := model.Index{Name: "Repo", Categories: []model.Category{{Name: "Scripts", Packages: []model.Package{pkgA, pkgB}}}}
	repo := "https://repo.example.com/index.xml"

	uA := mustURL(t, repo+"#p=Scripts/A&v=1.0")
	uB := mustURL(t, repo+"#p=Scripts/B&v=1.0")

	plan := Resolve([]model.PackageUrl{uA, uB}, map[string]model.Index{repo: idx}, nil, model.TargetLinux64)

	if len(plan.Files) != 0 {
		t.Errorf("expected all-or-nothing removal of conflicting destination, got %d files", len(plan.Files))
	}
	if len(plan.Failures.FileConflicts) != 1 {
		t.Fatalf("expected one file conflict, got %d", len(plan.Failures.FileConflicts))
	}
}

func TestResolveConflictsWithAlreadyInstalled(t *testing.T) {
	pkg := model.Package{Name: "Foo", Type: model.PackageTypeScript, Versions: []model.Version{{
		Name:    mustVersion(t, "1.0"),
		Sources: []model.Source{{Platform: model.PlatformAll, File: "foo.lua", URL: "https://x/foo"}},
	}}}
	idx := model.Index{Name: "Repo", Categories: []model.Category{{Name: "Scripts", Packages: []model.Package{pkg}}}}
	repo := "https://repo.example.com/index.xml"
	u := mustURL(t, repo+"#p=Scripts/Foo&v=1.0")

	installed := []model.InstalledPackage{{
		Remote: "Other Repo", Category: "Scripts", Package: "Bar",
		Files: []model.InstalledFile{{Path: "Scripts/foo.lua"}},
	}}

	plan := Resolve([]model.PackageUrl{u}, map[string]model.Index{repo: idx}, installed, model.TargetLinux64)
	if len(plan.Files) != 0 {
		t.Errorf("expected zero files due to collision with installed file, got %d", len(plan.Files))
	}
	if len(plan.Failures.AlreadyInstalled) != 1 {
		t.Fatalf("expected one already-installed conflict, got %d", len(plan.Failures.AlreadyInstalled))
	}
}

func TestResolveUnknownPackageTypeRejected(t *testing.T) {
	pkg := model.Package{Name: "Weird", Type: model.ParsePackageType("frobnicator"), Versions: []model.Version{{
		Name: mustVersion(t, "1.0"),
	}}}
	idx := model.Index{Name: "Repo", Categories: []model.Category{{Name: "Scripts", Packages: []model.Package{pkg}}}}
	repo := "https://repo.example.com/index.xml"
	u := mustURL(t, repo+"#p=Scripts/Weird&v=1.0")

	plan := Resolve([]model.PackageUrl{u}, map[string]model.Index{repo: idx}, nil, model.TargetLinux64)
	if len(plan.Failures.NotFoundInRepo) != 1 || plan.Failures.NotFoundInRepo[0].Kind != PackageHasUnknownType {
		t.Errorf("expected PackageHasUnknownType failure, got %+v", plan.Failures.NotFoundInRepo)
	}
}

func TestResolveRepositoryIndexUnavailable(t *testing.T) {
	u := mustURL(t, "https://missing.example.com/index.xml#p=Scripts/Foo&v=1.0")
	plan := Resolve([]model.PackageUrl{u}, map[string]model.Index{}, nil, model.TargetLinux64)
	if len(plan.Failures.NotFoundInRepo) != 1 || plan.Failures.NotFoundInRepo[0].Kind != RepositoryIndexUnavailable {
		t.Errorf("expected RepositoryIndexUnavailable, got %+v", plan.Failures.NotFoundInRepo)
	}
}
