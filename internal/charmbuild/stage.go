// Package charmbuild stages a charm directory into a clean build
// output directory before it is archived by cmd/lucky-charm-build.
package charmbuild

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/katharostech/lucky/internal/charmmeta"
)

// excludedDirs are directories that never belong in a shipped charm
// archive: VCS metadata and dependency/build caches a charm author's
// working tree accumulates but the daemon never reads. Unlike static
// site output, a charm directory is a source tree, not a build
// artifact, so it tends to carry exactly this kind of cruft.
var excludedDirs = map[string]bool{
	".git":         true,
	".github":      true,
	".idea":        true,
	"node_modules": true,
	"__pycache__":  true,
}

// Stage recursively copies charmDir into outDir. outDir is removed and
// recreated first so a stale file from a previous build never survives
// into the new archive. Symlinks and non-regular files are rejected: a
// symlink in a charm directory could point outside charmDir and pull
// arbitrary host files into the archive.
//
// Before copying anything, Stage loads the charm's metadata.yaml and
// lucky.yaml through internal/charmmeta, the same loader the daemon
// itself uses at startup. A charm whose manifest doesn't parse would
// fail the instant it's deployed, so the build tool refuses to produce
// an archive for it at all.
func Stage(charmDir, outDir string) error {
	srcInfo, err := os.Stat(charmDir)
	if err != nil {
		return fmt.Errorf("stat charm dir %q: %w", charmDir, err)
	}
	if !srcInfo.IsDir() {
		return fmt.Errorf("charm dir %q is not a directory", charmDir)
	}

	if _, _, err := charmmeta.Load(charmDir); err != nil {
		return fmt.Errorf("charm metadata: %w", err)
	}

	if err := os.RemoveAll(outDir); err != nil {
		return fmt.Errorf("remove stale build output %q: %w", outDir, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create build output %q: %w", outDir, err)
	}

	return filepath.WalkDir(charmDir, func(srcPath string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if entry.IsDir() && srcPath != charmDir && excludedDirs[entry.Name()] {
			return filepath.SkipDir
		}

		relPath, err := filepath.Rel(charmDir, srcPath)
		if err != nil {
			return fmt.Errorf("relative path for %q: %w", srcPath, err)
		}
		destPath := filepath.Join(outDir, relPath)

		if entry.Type()&os.ModeSymlink != 0 {
			return fmt.Errorf("symlink not allowed in charm directory: %q", srcPath)
		}
		if entry.IsDir() {
			return os.MkdirAll(destPath, 0o755)
		}
		if !entry.Type().IsRegular() {
			return fmt.Errorf("unsupported file type in charm directory: %q (%v)", srcPath, entry.Type())
		}
		return copyFile(srcPath, destPath)
	})
}

func copyFile(src, dest string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %q: %w", src, err)
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("stat %q: %w", src, err)
	}

	destFile, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %q: %w", dest, err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, srcFile); err != nil {
		return fmt.Errorf("copy %q to %q: %w", src, dest, err)
	}
	return nil
}
