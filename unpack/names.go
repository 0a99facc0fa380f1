package unpack

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/charmap"
)

// Reinterpret re-reads the bytes of name in the from code page as text in
// the to code page. A name that cannot be encoded in from is returned as is,
// so applying it to an already repaired name changes nothing.
func Reinterpret(name string, from, to *charmap.Charmap) string {
	raw, err := from.NewEncoder().String(name)
	if err != nil {
		return name
	}
	decoded, err := to.NewDecoder().String(raw)
	if err != nil {
		return name
	}
	return decoded
}

// RepairNames renames every entry under dir whose name was decoded as CP437
// while actually being CP866. Names listed in exclude are left alone.
func RepairNames(dir string, exclude map[string]bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)

		// children first, the directory path changes once it is renamed
		if entry.IsDir() {
			if err := RepairNames(path, exclude); err != nil {
				return err
			}
		}

		if exclude[name] {
			continue
		}

		repaired := Reinterpret(name, charmap.CodePage437, charmap.CodePage866)
		if repaired == name {
			continue
		}

		if err := os.Rename(path, filepath.Join(dir, repaired)); err != nil {
			return fmt.Errorf("failed to rename %s to %s: %w", path, repaired, err)
		}
	}
	return nil
}
