package installer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dawkit/dawkit/internal/model"
	"github.com/dawkit/dawkit/internal/registry"
	"github.com/dawkit/dawkit/internal/resourcedir"
)

// tempInstall handles each package group on its own, in one registry
// transaction: delete any prior entry for the same identity, insert the new
// entry and its files, then verify every new file's eventual destination in
// finalDir is clear and its ancestor directory writable before committing.
// Any failure rolls the transaction back, leaving that package's registry
// rows unchanged; other packages proceed independently.
func (in *Installer) tempInstall(db *registry.Database, finalDir resourcedir.ResourceDirectory, groups map[model.PackageIdentity]packageGroup, toBeReplaced []model.InstalledPackage) (map[model.PackageIdentity]packageGroup, map[model.PackageIdentity]error) {
	applied := map[model.PackageIdentity]packageGroup{}
	failed := map[model.PackageIdentity]error{}

	replacedByIdentity := map[model.PackageIdentity]model.InstalledPackage{}
	for _, p := range toBeReplaced {
		replacedByIdentity[p.Identity()] = p
	}

	for identity, group := range groups {
		if err := in.tempInstallOne(db, finalDir, identity, group, replacedByIdentity[identity]); err != nil {
			failed[identity] = err
			continue
		}
		applied[identity] = group
	}
	return applied, failed
}

func (in *Installer) tempInstallOne(db *registry.Database, finalDir resourcedir.ResourceDirectory, identity model.PackageIdentity, group packageGroup, replaced model.InstalledPackage) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin temp-install transaction: %w", err)
	}

	if replaced.Package != "" {
		if err := db.RemovePackage(tx, identity); err != nil {
			tx.Rollback()
			return fmt.Errorf("remove prior entry: %w", err)
		}
	}

	if err := db.AddPackage(tx, newInstalledPackage(identity, group)); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert new entry: %w", err)
	}

	for _, f := range group.files {
		if err := dryMoveCheck(finalDir.Join(f.source.DestPath)); err != nil {
			tx.Rollback()
			return fmt.Errorf("destination for %s: %w", f.source.DestPath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit temp-install transaction: %w", err)
	}
	return nil
}

// dryMoveCheck verifies a later moveFile(tempPath, dest, true) call is
// likely to succeed, without writing anything: dest must not already
// exist, and its nearest existing ancestor directory must in fact be a
// directory with the owner write bit set.
func dryMoveCheck(dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("%s already exists", dest)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", dest, err)
	}

	cur := filepath.Dir(dest)
	for {
		info, err := os.Stat(cur)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", cur)
			}
			if info.Mode().Perm()&0o200 == 0 {
				return fmt.Errorf("%s is not writable", cur)
			}
			return nil
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("stat %s: %w", cur, err)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return fmt.Errorf("no existing ancestor directory found for %s", dest)
		}
		cur = parent
	}
}

func newInstalledPackage(identity model.PackageIdentity, group packageGroup) model.InstalledPackage {
	pkg := model.InstalledPackage{
		Remote:   identity.Remote,
		Category: identity.Category,
		Package:  identity.Package,
		Version:  model.InstalledVersionName{Valid: true, Name: mustParseVersionName(group.version)},
	}
	if len(group.files) > 0 {
		pkg.Desc = group.files[0].source.Package.Description
		pkg.Type = model.InstalledPackageType{Known: true, Type: group.files[0].source.PackageType}
	}
	for _, f := range group.files {
		main := f.source.Source.Main
		file := model.InstalledFile{Path: f.source.DestPath, Sections: &main}
		if f.source.Source.Type != nil {
			t := model.InstalledPackageType{Known: true, Type: *f.source.Source.Type}
			file.Type = &t
		}
		pkg.Files = append(pkg.Files, file)
	}
	return pkg
}

func mustParseVersionName(s string) model.VersionName {
	v, err := model.ParseVersionName(s)
	if err != nil {
		return model.VersionName{}
	}
	return v
}
