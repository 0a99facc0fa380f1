package updates

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jonnyzzz.com/v8fetch/logging"
)

const (
	// DefaultBaseURL is the 1C update service
	DefaultBaseURL = "https://update-api.1c.ru/update-platform/programs"

	infoEndpoint   = "/update/info"
	updateEndpoint = "/update/"
)

// Options configures a Client
type Options struct {
	// BaseURL defaults to DefaultBaseURL
	BaseURL  string
	Login    string
	Password string
	Proxy    Proxy

	// InsecureSkipVerify disables TLS certificate verification. The update
	// service chain is not trusted by default on the target systems, so the
	// command enables this unless the settings say otherwise.
	InsecureSkipVerify bool

	// APITimeout bounds every JSON API call, zero means no timeout.
	// Downloads are bounded only by the context.
	APITimeout time.Duration

	// Progress receives a progress bar for downloads, nil disables it
	Progress io.Writer

	Log *logging.Logger
}

// Client talks to the update service. Every public method is fail-soft:
// failures are logged and reported as an absent result.
type Client struct {
	baseURL        string
	login          string
	password       string
	apiClient      *http.Client
	downloadClient *http.Client
	progress       io.Writer
	log            *logging.Logger
}

// NewClient creates a new update service client
func NewClient(opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}

	if opts.InsecureSkipVerify {
		log.Warn("Проверка TLS-сертификатов сервиса обновлений отключена (insecureSkipVerify).")
	}

	transport := newTransport(opts.Proxy, opts.InsecureSkipVerify)

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		login:    opts.Login,
		password: opts.Password,
		apiClient: &http.Client{
			Transport: transport,
			Timeout:   opts.APITimeout,
		},
		downloadClient: &http.Client{
			Transport: transport,
		},
		progress: opts.Progress,
		log:      log,
	}
}

// CheckPlatformUpdate asks for a platform newer than currentVersion.
// Returns nil when there is none or the call failed.
func (c *Client) CheckPlatformUpdate(ctx context.Context, currentVersion string) *PlatformUpdate {
	update, err := c.checkPlatformUpdate(ctx, currentVersion)
	if err != nil {
		c.log.Error("Ошибка при проверке обновлений платформы 1С. %v", err)
		return nil
	}
	return update
}

func (c *Client) checkPlatformUpdate(ctx context.Context, currentVersion string) (*PlatformUpdate, error) {
	body, err := c.post(ctx, infoEndpoint, infoRequest{
		ProgramName:     platformCheckProgram,
		VersionNumber:   platformCheckVersion,
		PlatformVersion: currentVersion,
		UpdateType:      updateTypePlatform,
	})
	if err != nil {
		return nil, err
	}

	var update *PlatformUpdate
	if err := decodeField(infoEndpoint, body, fieldPlatformUpdate, &update); err != nil {
		return nil, err
	}
	return update, nil
}

// CheckConfigurationUpdate asks for a configuration newer than version.
// Returns nil when there is none or the call failed.
func (c *Client) CheckConfigurationUpdate(ctx context.Context, programName, version string) *ConfigurationUpdate {
	update, err := c.checkConfigurationUpdate(ctx, programName, version)
	if err != nil {
		c.log.Error("Ошибка при проверке обновлений конфигурации 1С. %v", err)
		return nil
	}
	return update
}

func (c *Client) checkConfigurationUpdate(ctx context.Context, programName, version string) (*ConfigurationUpdate, error) {
	body, err := c.post(ctx, infoEndpoint, infoRequest{
		ProgramName:     programName,
		VersionNumber:   version,
		PlatformVersion: "",
		UpdateType:      updateTypeConfiguration,
	})
	if err != nil {
		return nil, err
	}

	var update *ConfigurationUpdate
	if err := decodeField(infoEndpoint, body, fieldConfigurationUpdate, &update); err != nil {
		return nil, err
	}
	return update, nil
}

// PlatformDownloadURL resolves the direct download link of a platform
// distribution. Returns "" on failure.
func (c *Client) PlatformDownloadURL(ctx context.Context, distributionUin string) string {
	url, err := c.platformDownloadURL(ctx, distributionUin)
	if err != nil {
		c.log.Error("Ошибка при получении ссылки на скачивание платформы 1С. %v", err)
		return ""
	}
	return url
}

func (c *Client) platformDownloadURL(ctx context.Context, distributionUin string) (string, error) {
	body, err := c.post(ctx, updateEndpoint, updateRequest{
		UpgradeSequence:         nil,
		ProgramVersionUin:       nil,
		PlatformDistributionUin: &distributionUin,
		Login:                   c.login,
		Password:                c.password,
	})
	if err != nil {
		return "", err
	}

	var url *string
	if err := decodeField(updateEndpoint, body, fieldPlatformURL, &url); err != nil {
		return "", err
	}
	if url == nil {
		return "", nil
	}
	return *url, nil
}

// ConfigurationDownloadData resolves one step of a configuration upgrade
// chain. The step identifies the increment, programUin the upgrade path.
// Returns nil when the step cannot be resolved.
func (c *Client) ConfigurationDownloadData(ctx context.Context, stepUin, programUin string) *DownloadData {
	data, err := c.configurationDownloadData(ctx, stepUin, programUin)
	if err != nil {
		c.log.Error("Ошибка при получении ссылки на скачивание конфигурации 1С. %v", err)
		return nil
	}
	return data
}

func (c *Client) configurationDownloadData(ctx context.Context, stepUin, programUin string) (*DownloadData, error) {
	body, err := c.post(ctx, updateEndpoint, updateRequest{
		UpgradeSequence:         []string{stepUin},
		ProgramVersionUin:       &programUin,
		PlatformDistributionUin: nil,
		Login:                   c.login,
		Password:                c.password,
	})
	if err != nil {
		return nil, err
	}

	var list []DownloadData
	if err := decodeField(updateEndpoint, body, fieldConfigurationData, &list); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (c *Client) post(ctx context.Context, endpoint string, request interface{}) ([]byte, error) {
	url := c.baseURL + endpoint

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, &RemoteProtocolError{Op: "POST " + url, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Op: "POST " + url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.apiClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "POST " + url, Err: err}
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "POST " + url, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteProtocolError{Op: "POST " + url, Err: fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, snippet(body))}
	}

	return body, nil
}

var errMissingField = errors.New("missing field")

// decodeField extracts one top-level field of a JSON object into target.
// A missing field is an error, an explicit null leaves target untouched.
func decodeField(endpoint string, body []byte, field string, target interface{}) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return &RemoteProtocolError{Op: endpoint, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	raw, ok := fields[field]
	if !ok {
		return &RemoteProtocolError{Op: endpoint, Err: fmt.Errorf("%w %q", errMissingField, field)}
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return &RemoteProtocolError{Op: endpoint, Err: fmt.Errorf("failed to parse %q: %w", field, err)}
	}
	return nil
}

func snippet(body []byte) string {
	const limit = 256
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}
