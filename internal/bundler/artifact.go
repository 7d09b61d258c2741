// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/inspiration-station/packager/pkg/platform"
)

// Artifact is a produced standalone executable or application bundle.
type Artifact struct {
	// Path is the artifact location in the output directory.
	Path string
	// Name is the logical artifact name (without suffix).
	Name string
	// Format is the host artifact format.
	Format platform.ArtifactFormat
	// Size is the total size in bytes (summed over the tree for bundles).
	Size int64
	// Digest is the hex sha256 of the file, or of the sorted tree for bundles.
	Digest string
}

// Inspect describes the artifact at path.
func Inspect(path, name string, format platform.ArtifactFormat) (*Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() != format.IsBundle {
		return nil, fmt.Errorf("%s: expected %s", path, format.Kind())
	}

	size, digest, err := digestPath(path, info)
	if err != nil {
		return nil, err
	}
	return &Artifact{Path: path, Name: name, Format: format, Size: size, Digest: digest}, nil
}

func digestPath(path string, info fs.FileInfo) (int64, string, error) {
	h := sha256.New()
	if !info.IsDir() {
		n, err := hashFile(h, path)
		if err != nil {
			return 0, "", err
		}
		return n, hex.EncodeToString(h.Sum(nil)), nil
	}

	// WalkDir visits entries in lexical order, which keeps the digest stable.
	var total int64
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(h, "%s\x00%s\x00", filepath.ToSlash(rel), d.Type().String())
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(p)
			if err != nil {
				return err
			}
			io.WriteString(h, target)
		case d.Type().IsRegular():
			n, err := hashFile(h, p)
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, "", err
	}
	return total, hex.EncodeToString(h.Sum(nil)), nil
}

func hashFile(w io.Writer, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(w, f)
}

// rename is swapped out in tests.
var rename = os.Rename

// Promote moves the staged artifact to dst, replacing whatever is there.
//
// The previous artifact is first moved into backupDir. If the final move
// fails it is moved back, so dst holds either the old or the new artifact.
// Moves across filesystems fall back to copying into a temporary sibling of
// the target and renaming that into place.
func Promote(staged, dst, backupDir string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	backup := ""
	if _, err := os.Lstat(dst); err == nil {
		if err := os.MkdirAll(backupDir, 0o755); err != nil {
			return fmt.Errorf("failed to create backup directory: %w", err)
		}
		backup = filepath.Join(backupDir, filepath.Base(dst))
		if err := os.RemoveAll(backup); err != nil {
			return fmt.Errorf("failed to clear stale backup: %w", err)
		}
		if err := move(dst, backup); err != nil {
			return fmt.Errorf("failed to move previous artifact aside: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := move(staged, dst); err != nil {
		if backup != "" {
			_ = move(backup, dst)
		}
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}

	if backup != "" {
		// A leftover backup only costs disk space; the next build clears it.
		_ = os.RemoveAll(backup)
	}
	return nil
}

// move renames src to dst, copying when they live on different filesystems.
func move(src, dst string) error {
	err := rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}

	tmp := dst + ".partial"
	if err := os.RemoveAll(tmp); err != nil {
		return err
	}
	if err := copyTree(src, tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("copy across filesystems: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.RemoveAll(tmp)
		return err
	}
	return os.RemoveAll(src)
}

// copyTree copies a file or directory tree, keeping modes and symlinks.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(p)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return copyFile(p, target, info.Mode().Perm())
		}
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
