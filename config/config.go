package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// DefaultFileName is the settings file looked up when no path is given
const DefaultFileName = "settings.json"

// Settings is the persisted state of the tool: what is tracked, where
// downloads go and the last version downloaded for every tracked item.
type Settings struct {
	Login          string          `json:"itsUsername" yaml:"itsUsername"`
	Password       string          `json:"itsPassword" yaml:"itsPassword"`
	Proxy          *ProxySettings  `json:"proxySettings,omitempty" yaml:"proxySettings,omitempty"`
	Platform       Platform        `json:"platform" yaml:"platform"`
	PlatformPath   string          `json:"platformPath" yaml:"platformPath"`
	TemplatePath   string          `json:"templatePath" yaml:"templatePath"`
	UnzipFiles     bool            `json:"unzipFiles" yaml:"unzipFiles"`
	Configurations []Configuration `json:"configurations" yaml:"configurations"`

	// InsecureSkipVerify disables TLS certificate verification for the
	// update service. Nil means true: the vendor chain is not trusted by
	// default on the target systems.
	InsecureSkipVerify *bool `json:"insecureSkipVerify,omitempty" yaml:"insecureSkipVerify,omitempty"`
	// APITimeoutSeconds bounds every JSON API call, 0 means no timeout
	APITimeoutSeconds int `json:"apiTimeoutSeconds,omitempty" yaml:"apiTimeoutSeconds,omitempty"`
}

// ProxySettings describes an optional HTTP proxy
type ProxySettings struct {
	Host     string `json:"host" yaml:"host"`
	Port     Port   `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// Platform is the tracked 1C:Enterprise platform
type Platform struct {
	StartVersion   string `json:"startVersion" yaml:"startVersion"`
	LastDownloaded string `json:"lastDownloaded" yaml:"lastDownloaded"`
}

// Configuration is one tracked 1C configuration
type Configuration struct {
	ProgramName    string `json:"programName" yaml:"programName"`
	HumanName      string `json:"humanName" yaml:"humanName"`
	StartVersion   string `json:"startVersion" yaml:"startVersion"`
	LastDownloaded string `json:"lastDownloaded" yaml:"lastDownloaded"`
}

// EffectiveVersion is the version to check updates against: the checkpoint
// if one was recorded, the start version otherwise.
func (p *Platform) EffectiveVersion() string {
	return effectiveVersion(p.StartVersion, p.LastDownloaded)
}

// EffectiveVersion is the version to check updates against: the checkpoint
// if one was recorded, the start version otherwise.
func (c *Configuration) EffectiveVersion() string {
	return effectiveVersion(c.StartVersion, c.LastDownloaded)
}

func effectiveVersion(start, last string) string {
	if last != "" {
		return last
	}
	return start
}

// SkipTLSVerify reports whether certificate verification is disabled
func (s *Settings) SkipTLSVerify() bool {
	return s.InsecureSkipVerify == nil || *s.InsecureSkipVerify
}

// ConfigError reports a settings file that is missing, unreadable or malformed
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("settings %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// requiredKeys must be present in every settings document
var requiredKeys = []string{"platform", "configurations"}

var errNotSettings = errors.New("not a v8fetch settings document, missing key")

// Store reads and writes the settings document at a fixed path. Files with a
// .yaml or .yml extension are stored as YAML, everything else as JSON.
type Store struct {
	path string
}

// NewStore creates a Store for the given settings file path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the settings file path
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings document
func (s *Store) Load() (*Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigError{Path: s.path, Err: fmt.Errorf("file not found: %w", err)}
		}
		return nil, &ConfigError{Path: s.path, Err: fmt.Errorf("failed to read file: %w", err)}
	}

	var settings Settings
	if err := s.unmarshal(data, &settings); err != nil {
		return nil, &ConfigError{Path: s.path, Err: fmt.Errorf("failed to parse file: %w", err)}
	}

	// a settings.json of another tool must never be taken over and rewritten
	var keys map[string]interface{}
	if err := s.unmarshal(data, &keys); err != nil {
		return nil, &ConfigError{Path: s.path, Err: fmt.Errorf("failed to parse file: %w", err)}
	}
	for _, key := range requiredKeys {
		if _, ok := keys[key]; !ok {
			return nil, &ConfigError{Path: s.path, Err: fmt.Errorf("%w: %q", errNotSettings, key)}
		}
	}

	if settings.Configurations == nil {
		settings.Configurations = []Configuration{}
	}
	return &settings, nil
}

func (s *Store) unmarshal(data []byte, target interface{}) error {
	if s.isYAML() {
		return yaml.Unmarshal(data, target)
	}
	return json.Unmarshal(data, target)
}

// Save overwrites the settings file with the given document. Non-ASCII text
// is written verbatim so the file stays human-readable.
func (s *Store) Save(settings *Settings) error {
	data, err := s.marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to serialize settings: %w", err)
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to write settings %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) marshal(settings *Settings) ([]byte, error) {
	if s.isYAML() {
		return yaml.Marshal(settings)
	}

	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(settings); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Store) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(s.path))
	return ext == ".yaml" || ext == ".yml"
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
