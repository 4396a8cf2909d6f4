package fs

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/zerr"
)

// CopyPath copies src to dst. Files are overwritten in place. Directories
// replace whatever is at dst, so files that vanished from src do not linger.
// Symbolic links are recreated, not followed.
func CopyPath(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return copyErr(err, src, dst)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return copyErr(err, src, dst)
	}
	if !info.IsDir() {
		return copyEntry(src, dst, info)
	}

	if err := os.RemoveAll(dst); err != nil {
		return copyErr(err, src, dst)
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return copyErr(walkErr, path, dst)
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return copyErr(err, path, dst)
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			if err := os.MkdirAll(target, 0o750); err != nil {
				return copyErr(err, path, target)
			}
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return copyErr(err, path, target)
		}
		return copyEntry(path, target, fi)
	})
}

func copyEntry(src, dst string, info fs.FileInfo) error {
	if info.Mode()&fs.ModeSymlink != 0 {
		link, err := os.Readlink(src)
		if err != nil {
			return copyErr(err, src, dst)
		}
		_ = os.Remove(dst)
		if err := os.Symlink(link, dst); err != nil {
			return copyErr(err, src, dst)
		}
		return nil
	}

	in, err := os.Open(src) //nolint:gosec // paths come from the build plan
	if err != nil {
		return copyErr(err, src, dst)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm()) //nolint:gosec // see above
	if err != nil {
		return copyErr(err, src, dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return copyErr(err, src, dst)
	}
	if err := out.Close(); err != nil {
		return copyErr(err, src, dst)
	}
	return nil
}

func copyErr(err error, src, dst string) error {
	wrapped := zerr.With(zerr.Wrap(err, domain.ErrFileCopyFailed.Error()), "source", src)
	return zerr.With(wrapped, "destination", dst)
}
