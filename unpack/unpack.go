// Package unpack writes downloaded update archives to disk, extracts them
// and repairs file names that were packed in the DOS Cyrillic code page.
package unpack

import (
	"archive/tar"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/ulikunitz/xz"
	"golang.org/x/text/encoding/charmap"

	"jonnyzzz.com/v8fetch/logging"
)

var (
	magicZip  = []byte("PK\x03\x04")
	magicGzip = []byte{0x1f, 0x8b}
	magicXz   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

var errUnknownFormat = errors.New("unknown archive format")

// ExtractError reports a failed extraction of an archive
type ExtractError struct {
	Path string
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("failed to extract %s: %v", e.Path, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// Materializer puts archives on disk
type Materializer struct {
	log *logging.Logger
}

func NewMaterializer(log *logging.Logger) *Materializer {
	if log == nil {
		log = logging.Discard()
	}
	return &Materializer{log: log}
}

// WriteArchive stores data at path, creating parent directories. The file
// appears under its final name only once it is completely written.
func (m *Materializer) WriteArchive(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpName, 0644)
	}
	if err == nil {
		err = os.Rename(tmpName, path)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	m.log.Debug("Записан файл %s (%d байт).", path, len(data))
	return nil
}

// Extract unpacks a zip, tar.gz or tar.xz archive into targetDir (the
// archive's own directory when empty), repairs the extracted names and
// optionally removes the archive.
func (m *Materializer) Extract(archivePath, targetDir string, removeAfter bool) error {
	if targetDir == "" {
		targetDir = filepath.Dir(archivePath)
	}

	count, err := extract(archivePath, targetDir)
	if err != nil {
		return &ExtractError{Path: archivePath, Err: err}
	}
	m.log.Debug("Извлечено файлов: %d в %s.", count, targetDir)

	exclude := map[string]bool{filepath.Base(archivePath): true}
	if err := RepairNames(targetDir, exclude); err != nil {
		return &ExtractError{Path: archivePath, Err: err}
	}

	if removeAfter {
		if err := os.Remove(archivePath); err != nil {
			return &ExtractError{Path: archivePath, Err: fmt.Errorf("failed to remove archive: %w", err)}
		}
	}
	return nil
}

func extract(archivePath, targetDir string) (int, error) {
	format, err := sniff(archivePath)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create target directory %s: %w", targetDir, err)
	}

	switch format {
	case "zip":
		return extractZip(archivePath, targetDir)
	case "gzip", "xz":
		return extractTar(archivePath, format, targetDir)
	}
	return 0, errUnknownFormat
}

func sniff(archivePath string) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	header := make([]byte, len(magicXz))
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read archive header: %w", err)
	}
	header = header[:n]

	switch {
	case bytes.HasPrefix(header, magicZip):
		return "zip", nil
	case bytes.HasPrefix(header, magicGzip):
		return "gzip", nil
	case bytes.HasPrefix(header, magicXz):
		return "xz", nil
	}
	return "", errUnknownFormat
}

func extractZip(archivePath, targetDir string) (int, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open zip: %w", err)
	}
	defer func() {
		_ = r.Close()
	}()

	decoder := charmap.CodePage437.NewDecoder()

	count := 0
	for _, f := range r.File {
		name := f.Name
		if f.NonUTF8 {
			if decoded, err := decoder.String(name); err == nil {
				name = decoded
			}
		}

		target, err := safeJoin(targetDir, name)
		if err != nil {
			return count, err
		}

		if f.FileInfo().IsDir() || strings.HasSuffix(name, "/") {
			if err := os.MkdirAll(target, 0755); err != nil {
				return count, fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return count, fmt.Errorf("failed to open %s in zip: %w", name, err)
		}
		err = writeFile(target, rc, f.Mode().Perm())
		_ = rc.Close()
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func extractTar(archivePath, format, targetDir string) (int, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var stream io.Reader
	switch format {
	case "gzip":
		gz, err := gzip.NewReader(bufio.NewReader(f))
		if err != nil {
			return 0, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer func() {
			_ = gz.Close()
		}()
		stream = gz
	case "xz":
		xzReader, err := xz.NewReader(bufio.NewReader(f))
		if err != nil {
			return 0, fmt.Errorf("failed to create xz reader: %w", err)
		}
		stream = xzReader
	default:
		return 0, errUnknownFormat
	}

	tr := tar.NewReader(stream)
	count := 0
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, fmt.Errorf("failed to read tar: %w", err)
		}

		target, err := safeJoin(targetDir, hdr.Name)
		if err != nil {
			return count, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return count, fmt.Errorf("failed to create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, os.FileMode(hdr.Mode).Perm()); err != nil {
				return count, err
			}
			count++
		default:
			// links and devices are not part of update distributions
		}
	}
	return count, nil
}

// safeJoin resolves an entry name below targetDir and rejects names that
// would land outside of it
func safeJoin(targetDir, name string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))
	if rel == "." {
		return targetDir, nil
	}
	if filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" || strings.HasPrefix(rel, string(filepath.Separator)) ||
		rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("illegal entry path %q", name)
	}
	return filepath.Join(targetDir, rel), nil
}

func writeFile(target string, src io.Reader, perm os.FileMode) error {
	if perm == 0 {
		perm = 0644
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create parent directories for %s: %w", target, err)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", target, err)
	}

	_, err = io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", target, err)
	}
	return nil
}
