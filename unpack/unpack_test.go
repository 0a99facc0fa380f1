package unpack

import (
	"archive/tar"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/ulikunitz/xz"
	"golang.org/x/text/encoding/charmap"
)

type archiveEntry struct {
	name    string
	content string
}

// helper function to encode a name the way old 1C archivers stored it
func cp866(t *testing.T, name string) string {
	t.Helper()
	raw, err := charmap.CodePage866.NewEncoder().String(name)
	if err != nil {
		t.Fatalf("failed to encode %q: %v", name, err)
	}
	return raw
}

// helper function to build a zip archive with names stored without the UTF-8 flag
func createZip(t *testing.T, path string, entries []archiveEntry) {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for _, e := range entries {
		f, err := w.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate, NonUTF8: true})
		if err != nil {
			t.Fatalf("failed to create zip entry: %v", err)
		}
		if strings.HasSuffix(e.name, "/") {
			continue
		}
		if _, err := f.Write([]byte(e.content)); err != nil {
			t.Fatalf("failed to write zip entry: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write zip: %v", err)
	}
}

// helper function to build a tar stream
func createTar(t *testing.T, entries []archiveEntry) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	tw := tar.NewWriter(buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0644, Size: int64(len(e.content)), Typeflag: tar.TypeReg}
		if strings.HasSuffix(e.name, "/") {
			hdr = &tar.Header{Name: e.name, Mode: 0755, Typeflag: tar.TypeDir}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("failed to write tar header: %v", err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.content)); err != nil {
				t.Fatalf("failed to write tar entry: %v", err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar: %v", err)
	}
	return buf.Bytes()
}

func assertFile(t *testing.T, path, content string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected file %s: %v", path, err)
	}
	if string(data) != content {
		t.Errorf("%s = %q, want %q", path, data, content)
	}
}

func TestReinterpret(t *testing.T) {
	mojibake, err := charmap.CodePage437.NewDecoder().String(cp866(t, "Пример"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "mojibake repaired", in: mojibake, want: "Пример"},
		{name: "repaired name stable", in: "Пример", want: "Пример"},
		{name: "ascii unchanged", in: "1cv8.cfu", want: "1cv8.cfu"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reinterpret(tt.in, charmap.CodePage437, charmap.CodePage866); got != tt.want {
				t.Errorf("Reinterpret(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractZipRepairsNames(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "1cv8.zip")
	createZip(t, archive, []archiveEntry{
		{name: cp866(t, "Шаблоны") + "/"},
		{name: cp866(t, "Шаблоны/Описание.txt"), content: "описание"},
		{name: "1cv8.cfu", content: "cfu"},
	})

	m := NewMaterializer(nil)
	if err := m.Extract(archive, "", true); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	assertFile(t, filepath.Join(dir, "Шаблоны", "Описание.txt"), "описание")
	assertFile(t, filepath.Join(dir, "1cv8.cfu"), "cfu")

	if _, err := os.Stat(archive); !os.IsNotExist(err) {
		t.Errorf("archive should be removed, stat error = %v", err)
	}

	// a second pass must not rename anything
	if err := RepairNames(dir, nil); err != nil {
		t.Fatalf("RepairNames() error = %v", err)
	}
	assertFile(t, filepath.Join(dir, "Шаблоны", "Описание.txt"), "описание")
}

func TestExtractKeepsArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "8.3.11.2867.zip")
	createZip(t, archive, []archiveEntry{{name: "setup.exe", content: "exe"}})

	target := filepath.Join(dir, "out")
	if err := NewMaterializer(nil).Extract(archive, target, false); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	assertFile(t, filepath.Join(target, "setup.exe"), "exe")
	if _, err := os.Stat(archive); err != nil {
		t.Errorf("archive should be kept: %v", err)
	}
}

func TestExtractTarGz(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "platform.tar.gz")

	buf := new(bytes.Buffer)
	gw := gzip.NewWriter(buf)
	if _, err := gw.Write(createTar(t, []archiveEntry{
		{name: "bin/"},
		{name: "bin/1cv8", content: "binary"},
	})); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(archive, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	if err := NewMaterializer(nil).Extract(archive, "", false); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	assertFile(t, filepath.Join(dir, "bin", "1cv8"), "binary")
}

func TestExtractTarXz(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "platform.tar.xz")

	buf := new(bytes.Buffer)
	xw, err := xz.NewWriter(buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := xw.Write(createTar(t, []archiveEntry{{name: "readme.txt", content: "xz"}})); err != nil {
		t.Fatal(err)
	}
	if err := xw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(archive, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	if err := NewMaterializer(nil).Extract(archive, "", true); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	assertFile(t, filepath.Join(dir, "readme.txt"), "xz")
}

func TestExtractRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	archive := filepath.Join(dir, "evil.zip")
	createZip(t, archive, []archiveEntry{{name: "../evil.txt", content: "evil"}})

	err := NewMaterializer(nil).Extract(archive, target, true)
	var extractErr *ExtractError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected ExtractError, got %v", err)
	}
	if extractErr.Path != archive {
		t.Errorf("ExtractError.Path = %q, want %q", extractErr.Path, archive)
	}

	if _, err := os.Stat(filepath.Join(dir, "evil.txt")); !os.IsNotExist(err) {
		t.Error("entry escaped the target directory")
	}
	if _, err := os.Stat(archive); err != nil {
		t.Errorf("archive must be kept after a failed extraction: %v", err)
	}
}

func TestExtractUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "1cv8.zip")
	if err := os.WriteFile(archive, []byte("not an archive"), 0644); err != nil {
		t.Fatal(err)
	}

	err := NewMaterializer(nil).Extract(archive, "", false)
	var extractErr *ExtractError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected ExtractError, got %v", err)
	}
	if !errors.Is(err, errUnknownFormat) {
		t.Errorf("expected unknown format error, got %v", err)
	}
}

func TestRepairNamesSkipsExcluded(t *testing.T) {
	dir := t.TempDir()
	mojibake, err := charmap.CodePage437.NewDecoder().String(cp866(t, "Архив.zip"))
	if err != nil {
		t.Fatal(err)
	}
	other, err := charmap.CodePage437.NewDecoder().String(cp866(t, "Файл.txt"))
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{mojibake, other} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
	}

	if err := RepairNames(dir, map[string]bool{mojibake: true}); err != nil {
		t.Fatalf("RepairNames() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, mojibake)); err != nil {
		t.Errorf("excluded name should stay: %v", err)
	}
	assertFile(t, filepath.Join(dir, "Файл.txt"), other)
}

func TestWriteArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1c", "HRM", "3_1_3_274", "1cv8.zip")

	m := NewMaterializer(nil)
	if err := m.WriteArchive(path, []byte("payload")); err != nil {
		t.Fatalf("WriteArchive() error = %v", err)
	}
	assertFile(t, path, "payload")

	if err := m.WriteArchive(path, []byte("second")); err != nil {
		t.Fatalf("WriteArchive() overwrite error = %v", err)
	}
	assertFile(t, path, "second")

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the archive, found %d entries", len(entries))
	}
}
