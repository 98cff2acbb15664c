package installer

import (
	"fmt"
	"io"
	"os"
)

// moveFile moves src to dest. If dest already exists: when overwrite is
// true the existing file is first renamed to "{dest}.bak"; otherwise the
// move fails. The move itself tries rename() first, falling back to a
// copy-then-remove on failure (e.g. a cross-device move).
func moveFile(src, dest string, overwrite bool) error {
	if _, err := os.Stat(dest); err == nil {
		if !overwrite {
			return fmt.Errorf("destination %s already exists", dest)
		}
		if err := os.Rename(dest, dest+".bak"); err != nil {
			return fmt.Errorf("back up existing %s: %w", dest, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", dest, err)
	}

	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	return copyThenRemove(src, dest)
}

func copyThenRemove(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s for copy: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s for copy: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s to %s: %w", src, dest, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s after copy: %w", dest, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source %s after copy: %w", src, err)
	}
	return nil
}

// copyFile copies src to dest without removing src, used to seed the
// temporary resource directory from the final one before an install.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s for copy: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s for copy: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dest, err)
	}
	return nil
}
