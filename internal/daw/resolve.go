package daw

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/dawkit/dawkit/internal/model"
	"github.com/dawkit/dawkit/internal/version"
)

// Resolver resolves DAW/package-manager releases from GitHub and picks the
// one release asset matching the running platform.
type Resolver struct {
	versions *version.Resolver
	gh       *github.Client
}

// NewResolver builds a Resolver, authenticating against the GitHub API with
// GITHUB_TOKEN when present (same convention as internal/version.New()).
func NewResolver() *Resolver {
	gh := github.NewClient(nil)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		gh = github.NewClient(oauth2.NewClient(context.Background(), ts))
	}
	return &Resolver{versions: version.New(), gh: gh}
}

// Resolve finds the release tag satisfying req against repo ("owner/name"),
// then returns the DownloadInfo for the one release asset matching target.
func (r *Resolver) Resolve(ctx context.Context, repo string, req VersionRequest, target model.Target) (DownloadInfo, error) {
	tag, resolvedVersion, err := r.resolveTag(ctx, repo, req)
	if err != nil {
		return DownloadInfo{}, err
	}

	owner, name, err := splitRepo(repo)
	if err != nil {
		return DownloadInfo{}, err
	}
	release, _, err := r.gh.Repositories.GetReleaseByTag(ctx, owner, name, tag)
	if err != nil {
		return DownloadInfo{}, fmt.Errorf("fetch release %s/%s@%s: %w", owner, name, tag, err)
	}

	match := assetMatcher(target)
	for _, asset := range release.Assets {
		if match(asset.GetName()) {
			return DownloadInfo{
				Version:   resolvedVersion,
				Tag:       tag,
				AssetName: asset.GetName(),
				URL:       asset.GetBrowserDownloadURL(),
			}, nil
		}
	}
	return DownloadInfo{}, &ErrNoMatchingAsset{Tag: tag, Target: target}
}

func (r *Resolver) resolveTag(ctx context.Context, repo string, req VersionRequest) (tag, resolvedVersion string, err error) {
	provider := version.NewGitHubProvider(r.versions, repo)

	switch req.Kind {
	case VersionSpecific:
		info, err := provider.ResolveVersion(ctx, req.Specific)
		if err != nil {
			return "", "", fmt.Errorf("resolve version %s for %s: %w", req.Specific, repo, err)
		}
		return info.Tag, info.Version, nil

	case VersionLatest:
		info, err := provider.ResolveLatest(ctx)
		if err != nil {
			return "", "", fmt.Errorf("resolve latest stable version for %s: %w", repo, err)
		}
		return info.Tag, info.Version, nil

	case VersionLatestPre:
		tags, err := provider.ListVersions(ctx)
		if err != nil {
			return "", "", fmt.Errorf("list versions for %s: %w", repo, err)
		}
		tag, v, ok := highestSemver(tags)
		if !ok {
			return "", "", fmt.Errorf("no semver-parseable tags found for %s", repo)
		}
		return tag, v, nil

	default:
		return "", "", fmt.Errorf("unrecognized version request kind %d", req.Kind)
	}
}

// highestSemver parses every tag as a semver version (tolerating a leading
// "v"), including pre-releases, and returns the highest one — used for
// "latest-pre" where the ordinary stable-only resolution path doesn't apply.
func highestSemver(tags []string) (tag, normalized string, ok bool) {
	type candidate struct {
		tag string
		v   *semver.Version
	}
	var candidates []candidate
	for _, t := range tags {
		v, err := semver.NewVersion(strings.TrimPrefix(t, "v"))
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{tag: t, v: v})
	}
	if len(candidates) == 0 {
		return "", "", false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].v.GreaterThan(candidates[j].v)
	})
	best := candidates[0]
	return best.tag, best.v.String(), true
}

func splitRepo(repo string) (owner, name string, err error) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid repo %q, expected owner/name", repo)
	}
	return parts[0], parts[1], nil
}
