package cmakedist

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/ulikunitz/xz"
)

// extract unpacks archivePath into dest. name selects the format.
func extract(archivePath, name, dest string) error {
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return withFile(archivePath, func(r io.Reader) error {
			gz, err := gzip.NewReader(r)
			if err != nil {
				return fmt.Errorf("failed to create gzip reader: %w", err)
			}
			defer gz.Close()
			return extractTar(tar.NewReader(gz), dest)
		})
	case strings.HasSuffix(name, ".tar.xz"):
		return withFile(archivePath, func(r io.Reader) error {
			xr, err := xz.NewReader(r)
			if err != nil {
				return fmt.Errorf("failed to create xz reader: %w", err)
			}
			return extractTar(tar.NewReader(xr), dest)
		})
	case strings.HasSuffix(name, ".zip"):
		return extractZip(archivePath, dest)
	}
	return fmt.Errorf("unsupported archive format: %s", name)
}

func withFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(f)
}

// withinDir reports whether target is dir or below it.
func withinDir(target, dir string) bool {
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	return absTarget == absDir || strings.HasPrefix(absTarget, absDir+string(os.PathSeparator))
}

// entryPath maps an archive member name to its destination. Entries may
// not be written through a symlink created by an earlier entry, since the
// link could point anywhere once chained with others.
func entryPath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(strings.TrimPrefix(name, "./")))
	if !withinDir(target, dest) {
		return "", fmt.Errorf("archive entry escapes destination directory: %s", name)
	}
	rel, err := filepath.Rel(dest, filepath.Dir(target))
	if err != nil || rel == "." {
		return target, err
	}
	cur := dest
	for _, part := range strings.Split(rel, string(os.PathSeparator)) {
		cur = filepath.Join(cur, part)
		fi, err := os.Lstat(cur)
		if os.IsNotExist(err) {
			break
		}
		if err != nil {
			return "", err
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			return "", fmt.Errorf("archive entry is written through a symlink: %s", name)
		}
	}
	return target, nil
}

func extractTar(tr *tar.Reader, dest string) error {
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		target, err := entryPath(dest, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, os.FileMode(header.Mode).Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(header.Linkname) {
				return fmt.Errorf("absolute symlink targets are not allowed: %s -> %s", header.Name, header.Linkname)
			}
			if !withinDir(filepath.Join(filepath.Dir(target), header.Linkname), dest) {
				return fmt.Errorf("symlink target escapes destination directory: %s -> %s", header.Name, header.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create parent directory: %w", err)
			}
			_ = os.Remove(target)
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("failed to create symlink: %w", err)
			}
		}
	}
}

func extractZip(archivePath, dest string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		target, err := entryPath(dest, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s in zip: %w", f.Name, err)
		}
		err = writeFile(target, rc, f.Mode().Perm())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	if perm == 0 {
		perm = 0644
	}
	// Replace a symlink left by an earlier entry instead of writing through it.
	if fi, err := os.Lstat(target); err == nil && fi.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(target); err != nil {
			return fmt.Errorf("failed to replace symlink %s: %w", target, err)
		}
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return out.Close()
}
