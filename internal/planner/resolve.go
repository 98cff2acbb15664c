package planner

import "github.com/dawkit/dawkit/internal/model"

// resolvedCandidate is an input URL resolved to a concrete package + version,
// prior to platform/conflict filtering.
type resolvedCandidate struct {
	url      model.PackageUrl
	indexName string
	identity model.PackageIdentity
	pkg      model.Package
	version  model.Version
}

// Resolve runs the five-step pipeline described for the resolution
// component: deduplicate, resolve versions, enumerate platform-compatible
// sources, detect internal file conflicts, detect conflicts with already
// installed files.
func Resolve(
	urls []model.PackageUrl,
	indexesByURL map[string]model.Index,
	installedToKeep []model.InstalledPackage,
	target model.Target,
) Plan {
	var failures Failures

	// Step 1: deduplicate URLs (set equality on the full triple).
	dedupedURLs := dedupeURLs(urls)

	// Step 2: resolve versions, detect version conflicts.
	candidatesByIdentity := map[model.PackageIdentity][]resolvedCandidate{}
	for _, u := range dedupedURLs {
		cand, failure, ok := resolveOne(u, indexesByURL)
		if !ok {
			failures.NotFoundInRepo = append(failures.NotFoundInRepo, failure)
			continue
		}
		candidatesByIdentity[cand.identity] = append(candidatesByIdentity[cand.identity], cand)
	}

	var resolved []resolvedCandidate
	for identity, cands := range candidatesByIdentity {
		if len(cands) == 1 {
			resolved = append(resolved, cands[0])
			continue
		}
		// Multiple URLs resolved to the same identity: fine iff every
		// candidate names the same version.
		allSame := true
		for _, c := range cands[1:] {
			if !c.version.Name.Equal(cands[0].version.Name) {
				allSame = false
				break
			}
		}
		if allSame {
			resolved = append(resolved, cands[0])
			continue
		}
		var versions []model.VersionName
		for _, c := range cands {
			versions = append(versions, c.version.Name)
		}
		failures.VersionConflicts = append(failures.VersionConflicts, VersionConflict{
			Identity: identity,
			Versions: versions,
		})
	}

	// Step 3: enumerate platform-compatible sources.
	var surviving []QualifiedSource
	for _, cand := range resolved {
		var kept []QualifiedSource
		for _, src := range cand.version.Sources {
			if !target.CompatibleWith(src.Platform) {
				continue
			}
			effectiveType := cand.pkg.Type
			if src.Type != nil {
				if !src.Type.IsKnown() {
					continue // unknown type override silently dropped
				}
				effectiveType = *src.Type
			}
			kept = append(kept, QualifiedSource{
				Identity:    cand.identity,
				Version:     cand.version.Name,
				PackageType: effectiveType,
				Package:     cand.pkg,
				Source:      src,
				DestPath:    destinationPath(cand.pkg.Name, effectiveType, src),
			})
		}
		if len(kept) == 0 {
			failures.Incompatible = append(failures.Incompatible, IncompatibleVersion{
				Identity: cand.identity,
				Version:  cand.version.Name,
			})
			continue
		}
		surviving = append(surviving, kept...)
	}

	// Step 4: detect internal file conflicts; all-or-nothing per version.
	surviving, fileConflicts := weedOutFileConflicts(surviving)
	failures.FileConflicts = fileConflicts

	// Step 5: detect conflicts with already-installed files.
	surviving, alreadyInstalled := weedOutAlreadyInstalled(surviving, installedToKeep)
	failures.AlreadyInstalled = alreadyInstalled

	return Plan{Files: surviving, Failures: failures}
}

func dedupeURLs(urls []model.PackageUrl) []model.PackageUrl {
	var out []model.PackageUrl
	for _, u := range urls {
		dup := false
		for _, seen := range out {
			if seen.Equal(u) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, u)
		}
	}
	return out
}

func resolveOne(u model.PackageUrl, indexesByURL map[string]model.Index) (resolvedCandidate, DescFailure, bool) {
	fail := func(kind DescFailureKind) (resolvedCandidate, DescFailure, bool) {
		return resolvedCandidate{}, DescFailure{URL: u, Kind: kind}, false
	}

	idx, ok := indexesByURL[u.RepositoryURL.String()]
	if !ok {
		return fail(RepositoryIndexUnavailable)
	}
	cat, ok := idx.FindCategory(u.Path.Category)
	if !ok {
		return fail(PackageCategoryNotFound)
	}
	var pkg model.Package
	found := false
	for _, p := range cat.Packages {
		if p.Name == u.Path.PackageName {
			pkg = p
			found = true
			break
		}
	}
	if !found {
		return fail(PackageNotFound)
	}
	if !pkg.Type.IsKnown() {
		return fail(PackageHasUnknownType)
	}

	var version model.Version
	switch u.VersionRef.Kind {
	case model.VersionRefLatest:
		v, ok := pkg.LatestVersion(false)
		if !ok {
			return fail(PackageHasNoStableVersion)
		}
		version = v
	case model.VersionRefLatestPre:
		v, ok := pkg.LatestVersion(true)
		if !ok {
			return fail(PackageHasNoVersionsAtAll)
		}
		version = v
	default:
		v, ok := pkg.FindVersion(u.VersionRef.Specific)
		if !ok {
			return fail(PackageVersionNotFound)
		}
		version = v
	}

	return resolvedCandidate{
		url:       u,
		indexName: idx.Name,
		identity:  model.PackageIdentity{Remote: idx.Name, Category: u.Path.Category, Package: u.Path.PackageName},
		pkg:       pkg,
		version:   version,
	}, DescFailure{}, true
}

// weedOutFileConflicts groups sources by destination path; any group with
// two or more members becomes a RecipeFileConflict, and every *version*
// that owned any source in a conflicting group loses all of its other
// sources too (all-or-nothing per version, not just per file).
func weedOutFileConflicts(sources []QualifiedSource) ([]QualifiedSource, []RecipeFileConflict) {
	byPath := map[string][]QualifiedSource{}
	for _, s := range sources {
		byPath[s.DestPath] = append(byPath[s.DestPath], s)
	}

	conflictedIdentityVersion := map[model.PackageIdentity]map[string]bool{}
	var conflicts []RecipeFileConflict
	for p, group := range byPath {
		if len(group) < 2 {
			continue
		}
		conflicts = append(conflicts, RecipeFileConflict{Path: p, Sources: group})
		for _, s := range group {
			if conflictedIdentityVersion[s.Identity] == nil {
				conflictedIdentityVersion[s.Identity] = map[string]bool{}
			}
			conflictedIdentityVersion[s.Identity][s.Version.String()] = true
		}
	}

	var out []QualifiedSource
	for _, s := range sources {
		if versions, ok := conflictedIdentityVersion[s.Identity]; ok && versions[s.Version.String()] {
			continue
		}
		out = append(out, s)
	}
	return out, conflicts
}

func weedOutAlreadyInstalled(sources []QualifiedSource, installed []model.InstalledPackage) ([]QualifiedSource, []AlreadyInstalledConflict) {
	installedPaths := map[string]model.PackageIdentity{}
	for _, p := range installed {
		for _, f := range p.Files {
			installedPaths[f.Path] = p.Identity()
		}
	}

	var out []QualifiedSource
	var conflicts []AlreadyInstalledConflict
	for _, s := range sources {
		if owner, ok := installedPaths[s.DestPath]; ok {
			conflicts = append(conflicts, AlreadyInstalledConflict{Path: s.DestPath, Source: s, Owner: owner})
			continue
		}
		out = append(out, s)
	}
	return out, conflicts
}
