package daw

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	lzip "github.com/sorairolake/lzip-go"
	"github.com/ulikunitz/xz"
)

// ExtractArchive unpacks archivePath into destDir, auto-detecting the format
// from the file extension. destDir is created if it doesn't already exist.
func ExtractArchive(archivePath, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	switch format := detectFormat(archivePath); format {
	case "tar.gz":
		return extractTarGz(archivePath, destDir)
	case "tar.xz":
		return extractTarXz(archivePath, destDir)
	case "tar.bz2":
		return extractTarBz2(archivePath, destDir)
	case "tar.zst":
		return extractTarZst(archivePath, destDir)
	case "tar.lz":
		return extractTarLz(archivePath, destDir)
	case "tar":
		return extractTarPlain(archivePath, destDir)
	case "zip":
		return extractZip(archivePath, destDir)
	default:
		return fmt.Errorf("unrecognized archive format for %q", archivePath)
	}
}

func detectFormat(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return "tar.gz"
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return "tar.xz"
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"), strings.HasSuffix(lower, ".tbz"):
		return "tar.bz2"
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return "tar.zst"
	case strings.HasSuffix(lower, ".tar.lz"), strings.HasSuffix(lower, ".tlz"):
		return "tar.lz"
	case strings.HasSuffix(lower, ".tar"):
		return "tar"
	case strings.HasSuffix(lower, ".zip"):
		return "zip"
	default:
		return "unknown"
	}
}

func extractTarGz(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzr.Close()

	return extractTarReader(tar.NewReader(gzr), destDir)
}

func extractTarXz(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	xzr, err := xz.NewReader(f)
	if err != nil {
		return fmt.Errorf("create xz reader: %w", err)
	}
	return extractTarReader(tar.NewReader(xzr), destDir)
}

func extractTarBz2(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	return extractTarReader(tar.NewReader(bzip2.NewReader(f)), destDir)
}

func extractTarZst(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()

	return extractTarReader(tar.NewReader(zr), destDir)
}

func extractTarLz(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	lr, err := lzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("create lzip reader: %w", err)
	}
	return extractTarReader(tar.NewReader(lr), destDir)
}

func extractTarPlain(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	return extractTarReader(tar.NewReader(f), destDir)
}

// extractTarReader walks every entry of tr, rejecting path traversal and
// symlink-escape attempts for each entry before writing that entry to
// destDir. Entries written before a rejected one stay on disk.
func extractTarReader(tr *tar.Reader, destDir string) error {
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		relativePath := filepath.Join(strings.Split(strings.TrimPrefix(header.Name, "./"), "/")...)
		target := filepath.Join(destDir, relativePath)
		if !isPathWithinDirectory(target, destDir) {
			return fmt.Errorf("archive entry escapes destination directory: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent directory: %w", err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return fmt.Errorf("create file: %w", err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("write file: %w", err)
			}
			out.Close()

		case tar.TypeSymlink:
			if err := validateSymlinkTarget(header.Linkname, target, destDir); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent directory: %w", err)
			}
			if err := atomicSymlink(header.Linkname, target); err != nil {
				return fmt.Errorf("create symlink: %w", err)
			}
		}
	}
	return nil
}

func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		relativePath := filepath.Join(strings.Split(strings.TrimPrefix(f.Name, "./"), "/")...)
		target := filepath.Join(destDir, relativePath)
		if !isPathWithinDirectory(target, destDir) {
			return fmt.Errorf("zip entry escapes destination directory: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create parent directory: %w", err)
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open file in zip: %w", err)
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, f.Mode())
		if err != nil {
			rc.Close()
			return fmt.Errorf("create file: %w", err)
		}
		if _, err := io.Copy(out, rc); err != nil {
			out.Close()
			rc.Close()
			return fmt.Errorf("write file: %w", err)
		}
		out.Close()
		rc.Close()
	}
	return nil
}

// isPathWithinDirectory reports whether targetPath resolves inside basePath.
func isPathWithinDirectory(targetPath, basePath string) bool {
	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return false
	}
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return false
	}
	return absTarget == absBase || strings.HasPrefix(absTarget, absBase+string(os.PathSeparator))
}

// validateSymlinkTarget rejects absolute symlink targets and ones that
// resolve outside destPath.
func validateSymlinkTarget(linkTarget, linkLocation, destPath string) error {
	if filepath.IsAbs(linkTarget) {
		return fmt.Errorf("absolute symlink targets are not allowed: %s -> %s", linkLocation, linkTarget)
	}
	resolved := filepath.Join(filepath.Dir(linkLocation), linkTarget)
	if !isPathWithinDirectory(resolved, destPath) {
		return fmt.Errorf("symlink target escapes destination directory: %s -> %s (resolves to %s)",
			linkLocation, linkTarget, resolved)
	}
	return nil
}

// atomicSymlink creates linkPath -> target via a temp symlink plus rename,
// avoiding a TOCTOU window where an attacker could swap the target.
func atomicSymlink(target, linkPath string) error {
	tmp := linkPath + ".tmp"
	os.Remove(tmp)
	if err := os.Symlink(target, tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, linkPath); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
