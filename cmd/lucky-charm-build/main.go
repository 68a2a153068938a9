// Command lucky-charm-build packages a charm directory into a
// deployable charm archive. It is a one-shot packaging tool, not part
// of the daemon's runtime surface, so it carries no dependency
// injection or test harness of its own.
package main

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/katharostech/lucky/internal/charmbuild"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: lucky-charm-build <charm-dir> <output.zip>")
		os.Exit(2)
	}
	charmDir, out := os.Args[1], os.Args[2]

	if err := build(charmDir, out); err != nil {
		fmt.Fprintf(os.Stderr, "lucky-charm-build: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote", out)
}

func build(charmDir, out string) error {
	stageDir, err := os.MkdirTemp("", "lucky-charm-build-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(stageDir)

	if err := charmbuild.Stage(charmDir, stageDir); err != nil {
		return fmt.Errorf("stage charm: %w", err)
	}

	return archive(stageDir, out)
}

func archive(stageDir, out string) error {
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	return filepath.Walk(stageDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(stageDir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(rel)
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
}
