package updates

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/schollz/progressbar/v3"
)

// UserAgent identifies the requests as coming from the 1C:Enterprise updater
const UserAgent = "1C+Enterprise/8.3"

const downloadChunkSize = 32 * 1024

// Download fetches a file from the update site with the account credentials.
// Returns nil on any failure; an empty body is a failure too.
func (c *Client) Download(ctx context.Context, url string) []byte {
	data, err := c.download(ctx, url)
	if err != nil {
		c.log.Error("Ошибка при скачивании файла обновления. %v", err)
		return nil
	}
	return data
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, &TransportError{Op: "GET", Err: fmt.Errorf("empty download url")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{Op: "GET " + url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", UserAgent)
	req.SetBasicAuth(c.login, c.password)

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "GET " + url, Err: err}
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "GET " + url, Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}

	buf := new(bytes.Buffer)
	if resp.ContentLength > 0 {
		buf.Grow(int(resp.ContentLength))
	}

	var dst io.Writer = buf
	if c.progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(c.progress),
			progressbar.OptionSetDescription("Скачивание"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprintln(c.progress)
			}),
		)
		defer func() {
			_ = bar.Finish()
		}()
		dst = io.MultiWriter(buf, bar)
	}

	if _, err := io.CopyBuffer(dst, resp.Body, make([]byte, downloadChunkSize)); err != nil {
		return nil, &TransportError{Op: "GET " + url, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	if resp.ContentLength >= 0 && int64(buf.Len()) != resp.ContentLength {
		return nil, &TransportError{Op: "GET " + url, Err: fmt.Errorf("received %d bytes, expected %d", buf.Len(), resp.ContentLength)}
	}
	if buf.Len() == 0 {
		return nil, &TransportError{Op: "GET " + url, Err: fmt.Errorf("empty response body")}
	}

	return buf.Bytes(), nil
}
