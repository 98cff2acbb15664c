package installer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dawkit/dawkit/internal/downloader"
	"github.com/dawkit/dawkit/internal/model"
	"github.com/dawkit/dawkit/internal/multidownloader"
	"github.com/dawkit/dawkit/internal/planner"
	"github.com/dawkit/dawkit/internal/resourcedir"
)

// downloadedFile is one successfully downloaded QualifiedSource, staged at
// a path inside the temp resource directory's package-files area.
type downloadedFile struct {
	source   planner.QualifiedSource
	tempPath string
}

// packageGroup is every downloaded file belonging to one package identity,
// plus the version being installed.
type packageGroup struct {
	version string
	files   []downloadedFile
}

const packageFilesStagingDirRel = "staged-files"

// downloadPlanFiles fetches every file in files, applying all-or-nothing
// weeding: if any file belonging to a package identity fails to download,
// every other file of that same package is dropped from the result too.
func (in *Installer) downloadPlanFiles(ctx context.Context, tempDir resourcedir.ResourceDirectory, files []planner.QualifiedSource) (map[model.PackageIdentity]packageGroup, map[model.PackageIdentity]error) {
	stagingDir := tempDir.Join(packageFilesStagingDirRel)

	items := make([]multidownloader.Item[planner.QualifiedSource], len(files))
	for i, f := range files {
		dest := filepath.Join(stagingDir, fmt.Sprintf("%d-%s", i, filepath.Base(f.DestPath)))
		items[i] = multidownloader.Item[planner.QualifiedSource]{
			Request: downloader.Request{URL: f.Source.URL, Destination: dest, ExpectedMultihash: f.Source.Hash},
			Label:   f.DestPath,
			Payload: f,
		}
	}

	results := multidownloader.Run(ctx, in.dl, items, multidownloader.Options{
		Concurrency: in.opts.Concurrency,
		Listener:    trackerListener{in.listener},
	})

	groups := map[model.PackageIdentity]packageGroup{}
	failed := map[model.PackageIdentity]error{}

	for i, res := range results {
		identity := files[i].Identity
		if res.Err != nil {
			failed[identity] = res.Err
			continue
		}
		if _, alreadyFailed := failed[identity]; alreadyFailed {
			continue
		}
		g := groups[identity]
		g.version = files[i].Version.String()
		g.files = append(g.files, downloadedFile{source: files[i], tempPath: items[i].Request.Destination})
		groups[identity] = g
	}

	for identity := range failed {
		delete(groups, identity)
	}

	return groups, failed
}
