package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// FindSettingsFile searches for settings.json starting from the given directory
// and moving up the directory tree until it finds the file or reaches the root.
func FindSettingsFile(startDir string) (string, error) {
	dir := startDir
	visitedDirs := make(map[string]bool) // Track visited directories for symlink safety

	for {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return "", fmt.Errorf("failed to resolve directory %s: %w", dir, err)
		}

		absDir, err = filepath.EvalSymlinks(absDir)
		if err != nil {
			return "", fmt.Errorf("failed to resolve symlink in directory %s: %w", dir, err)
		}

		if visitedDirs[absDir] {
			return "", fmt.Errorf("potential symlink loop detected in directory %s", absDir)
		}
		visitedDirs[absDir] = true

		settingsPath := filepath.Join(absDir, DefaultFileName)
		if info, err := os.Stat(settingsPath); err == nil && !info.IsDir() {
			return settingsPath, nil
		}

		parent := filepath.Dir(absDir)
		if parent == absDir {
			return "", fmt.Errorf("settings file %s not found in any parent directory of %s", DefaultFileName, startDir)
		}

		dir = parent
	}
}

// ResolveSettingsPath returns the explicit path if one is given, otherwise
// looks the settings file up from the current directory.
func ResolveSettingsPath(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Abs(explicit)
	}
	path, err := FindSettingsFile(".")
	if err != nil {
		return "", &ConfigError{Path: DefaultFileName, Err: err}
	}
	return path, nil
}
