package upstream

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// maxArchiveMember bounds a single extracted file.
const maxArchiveMember = 32 << 20

var gzipMagic = []byte{0x1f, 0x8b}

// ExtractArchive writes the regular *.xml members of a tar archive, plain or
// gzip-compressed, into dir and returns their paths in archive order. Member
// directories are flattened so nothing is written outside dir.
func ExtractArchive(data []byte, dir string) ([]string, error) {
	var r io.Reader = bytes.NewReader(data)
	if bytes.HasPrefix(data, gzipMagic) {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	tr := tar.NewReader(r)
	var paths []string
	used := make(map[string]bool)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return paths, fmt.Errorf("read tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := filepath.Base(hdr.Name)
		if !strings.EqualFold(filepath.Ext(name), ".xml") {
			continue
		}
		name = uniqueName(used, name)

		dest := filepath.Join(dir, name)
		if err := writeMember(dest, tr); err != nil {
			return paths, err
		}
		paths = append(paths, dest)
	}
	return paths, nil
}

// uniqueName returns base, or base prefixed with the smallest counter that no
// earlier member already took, and marks the result as used.
func uniqueName(used map[string]bool, base string) string {
	name := base
	for n := 1; used[name]; n++ {
		name = fmt.Sprintf("%d_%s", n, base)
	}
	used[name] = true
	return name
}

func writeMember(dest string, r io.Reader) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(dest), err)
	}
	if _, err := io.Copy(f, io.LimitReader(r, maxArchiveMember)); err != nil {
		f.Close()
		return fmt.Errorf("extract %s: %w", filepath.Base(dest), err)
	}
	return f.Close()
}
