package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dawkit/dawkit/internal/downloader"
	"github.com/dawkit/dawkit/internal/index"
	"github.com/dawkit/dawkit/internal/model"
	"github.com/dawkit/dawkit/internal/multidownloader"
	"github.com/dawkit/dawkit/internal/registry"
	"github.com/dawkit/dawkit/internal/resourcedir"
)

// seedTempDirectory copies the existing INI and registry DB from final to
// temp, if present, so mutations up to commit happen on the temp copies.
func seedTempDirectory(finalDir, tempDir resourcedir.ResourceDirectory) error {
	for _, rel := range []func(resourcedir.ResourceDirectory) string{
		func(r resourcedir.ResourceDirectory) string { return r.PkgMgrConfigFile() },
		func(r resourcedir.ResourceDirectory) string { return r.PkgMgrRegistryFile() },
	} {
		src := rel(finalDir)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dest := rel(tempDir)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := copyFile(src, dest); err != nil {
			return err
		}
	}
	return nil
}

// downloadedIndex wraps one successfully parsed and cached repository index.
type downloadedIndex struct {
	index model.Index
}

// downloadIndexes fetches every distinct repository URL referenced by the
// input package URLs into the temp cache directory, parsing each. Indexes
// that are malformed or missing a name are dropped and reported, keyed by
// URL, in the returned failure map (as are download failures). If two URLs
// resolve to indexes with the same name, the first wins.
func (in *Installer) downloadIndexes(ctx context.Context, tempDir resourcedir.ResourceDirectory) (map[string]downloadedIndex, map[string]string) {
	urls := distinctRepositoryURLs(in.opts.PackageURLs)

	downloadItems := make([]multidownloader.Item[string], len(urls))
	for i, u := range urls {
		dest := filepath.Join(tempDir.PkgMgrCacheDir(), fmt.Sprintf("index-%d.xml.tmp", i))
		downloadItems[i] = multidownloader.Item[string]{
			Request: downloader.Request{URL: u, Destination: dest},
			Label:   u,
			Payload: u,
		}
	}

	results := multidownloader.Run(ctx, in.dl, downloadItems, multidownloader.Options{
		Concurrency: in.opts.Concurrency,
		Listener:    trackerListener{in.listener},
	})

	byURL := map[string]downloadedIndex{}
	failures := map[string]string{}
	usedNames := map[string]bool{}

	for i, res := range results {
		u := urls[i]
		if res.Err != nil {
			failures[u] = "download failed: " + res.Err.Error()
			continue
		}
		tmpPath := filepath.Join(tempDir.PkgMgrCacheDir(), fmt.Sprintf("index-%d.xml.tmp", i))
		data, err := os.ReadFile(tmpPath)
		if err != nil {
			failures[u] = "could not read downloaded index: " + err.Error()
			continue
		}
		idx, err := index.Parse(data)
		if err != nil || idx.Name == "" {
			failures[u] = "malformed or nameless index"
			os.Remove(tmpPath)
			continue
		}
		if usedNames[idx.Name] {
			in.listener.Warn(fmt.Sprintf("duplicate index name %q from %s ignored", idx.Name, u))
			os.Remove(tmpPath)
			continue
		}
		usedNames[idx.Name] = true

		finalCachePath := filepath.Join(tempDir.PkgMgrCacheDir(), idx.Name+".xml")
		if err := os.Rename(tmpPath, finalCachePath); err != nil {
			failures[u] = "could not cache index: " + err.Error()
			continue
		}
		byURL[u] = downloadedIndex{index: idx}
	}

	return byURL, failures
}

func distinctRepositoryURLs(urls []model.PackageUrl) []string {
	seen := map[string]bool{}
	var out []string
	for _, u := range urls {
		s := u.RepositoryURL.String()
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// readInstalledPackages reads every installed package from the registry
// at path, if it exists.
func readInstalledPackages(path string) ([]model.InstalledPackage, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	db, err := registry.Open(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.InstalledPackages()
}
