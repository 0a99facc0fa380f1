package layout

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ConfigurationArchiveName is the file name every configuration chain step is stored under
const ConfigurationArchiveName = "1cv8.zip"

// sanitizeFileName sanitizes a single filename component
// to avoid invalid or unsafe characters.
func sanitizeFileName(input string) string {
	// Define allowed characters: alphanumeric, underscore (_), dash (-), and dot (.)
	// Replace any sequence of disallowed characters with an underscore (_)
	re := regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
	sanitized := re.ReplaceAllString(input, "_")

	// Prevent filenames with dots like ".." or empty paths
	return strings.Trim(sanitized, ".")
}

// ResolvePlatformArchive returns <platformPath>/<version>.zip
func ResolvePlatformArchive(platformPath, version string) (string, error) {
	name := sanitizeFileName(version)
	if name == "" {
		return "", fmt.Errorf("invalid platform version %q", version)
	}
	return filepath.Join(platformPath, name+".zip"), nil
}

// ResolveConfigurationDir returns the directory of a configuration chain step.
// The vendor reports template paths with Windows separators, for example
// "1c\\Accounting\\3_0_52_32"; they are converted to the local separator and
// must stay below templatePath.
func ResolveConfigurationDir(templatePath, templateSubpath string) (string, error) {
	parts := strings.FieldsFunc(templateSubpath, func(r rune) bool {
		return r == '\\' || r == '/'
	})

	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case ".":
			continue
		case "..":
			return "", fmt.Errorf("template path %q escapes the template directory", templateSubpath)
		}
		if strings.Contains(part, ":") {
			return "", fmt.Errorf("template path %q must be relative", templateSubpath)
		}
		clean = append(clean, part)
	}

	if len(clean) == 0 {
		return "", fmt.Errorf("empty template path %q", templateSubpath)
	}

	return filepath.Join(append([]string{templatePath}, clean...)...), nil
}

// ResolveConfigurationArchive returns <templatePath>/<templateSubpath>/1cv8.zip
func ResolveConfigurationArchive(templatePath, templateSubpath string) (string, error) {
	dir, err := ResolveConfigurationDir(templatePath, templateSubpath)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigurationArchiveName), nil
}
