// Package archive packs release files into a flat zip and unpacks them
// again.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mazen160/go-random"
)

// tempPath returns a name next to path for a file that is renamed into
// place once complete.
func tempPath(path string) (string, error) {
	suffix, err := random.String(8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s.tmp", path, suffix), nil
}

// writeAtomic writes the output of fill to path, leaving nothing behind if
// it fails.
func writeAtomic(path string, fill func(w io.Writer) error) error {
	tmp, err := tempPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	err = fill(f)
	if err != nil {
		f.Close()
		return err
	}
	err = f.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func addFile(w *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	entry, err := w.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, f)
	return err
}

// Create zips files into archivePath under their base names.
func Create(archivePath string, files ...string) error {
	if len(files) == 0 {
		return fmt.Errorf("create %s: no files to archive", archivePath)
	}
	seen := map[string]string{}
	for _, path := range files {
		name := filepath.Base(path)
		if other, ok := seen[name]; ok {
			return fmt.Errorf("create %s: %s and %s share the name %s", archivePath, other, path, name)
		}
		seen[name] = path
	}

	err := os.MkdirAll(filepath.Dir(archivePath), 0755)
	if err != nil {
		return fmt.Errorf("create %s: %w", archivePath, err)
	}
	err = writeAtomic(archivePath, func(out io.Writer) error {
		w := zip.NewWriter(out)
		for _, path := range files {
			err := addFile(w, path)
			if err != nil {
				return fmt.Errorf("add %s: %w", path, err)
			}
		}
		return w.Close()
	})
	if err != nil {
		return fmt.Errorf("create %s: %w", archivePath, err)
	}
	slog.Debug("created archive", "path", archivePath, "files", len(files))
	return nil
}

var ErrUnsafePath = errors.New("unsafe path in archive")

func extractFile(entry *zip.File, path string) error {
	in, err := entry.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	return writeAtomic(path, func(out io.Writer) error {
		_, err := io.Copy(out, in)
		return err
	})
}

// Extract unpacks every file of an archive into dir and returns the paths
// written. Directory entries are skipped, entries that would land outside of
// dir fail with ErrUnsafePath before anything is written.
func Extract(archivePath, dir string) ([]string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", archivePath, err)
	}
	defer r.Close()

	for _, entry := range r.File {
		if !filepath.IsLocal(entry.Name) {
			return nil, fmt.Errorf("extract %s: %w: %s", archivePath, ErrUnsafePath, entry.Name)
		}
	}

	written := []string{}
	for _, entry := range r.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		path := filepath.Join(dir, filepath.FromSlash(entry.Name))
		err = os.MkdirAll(filepath.Dir(path), 0755)
		if err != nil {
			return written, fmt.Errorf("extract %s: %w", archivePath, err)
		}
		err = extractFile(entry, path)
		if err != nil {
			return written, fmt.Errorf("extract %s: %s: %w", archivePath, entry.Name, err)
		}
		written = append(written, path)
	}
	slog.Debug("extracted archive", "path", archivePath, "files", len(written))
	return written, nil
}
