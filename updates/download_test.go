package updates

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"strconv"
	"testing"
)

func TestDownload(t *testing.T) {
	payload := bytes.Repeat([]byte("1cv8"), 64*1024)

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		if ua := r.Header.Get("User-Agent"); ua != "1C+Enterprise/8.3" {
			t.Errorf("User-Agent = %q", ua)
		}
		wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("operator:secret"))
		if auth := r.Header.Get("Authorization"); auth != wantAuth {
			t.Errorf("Authorization = %q, want %q", auth, wantAuth)
		}

		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	})

	progress := new(bytes.Buffer)
	client.progress = progress

	data := client.Download(context.Background(), client.baseURL+"/tmplts/1cv8.zip")
	if !bytes.Equal(data, payload) {
		t.Fatalf("downloaded %d bytes, want %d", len(data), len(payload))
	}
	if progress.Len() == 0 {
		t.Error("expected progress output")
	}
}

func TestDownloadNotFound(t *testing.T) {
	client, logs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	if data := client.Download(context.Background(), client.baseURL+"/missing.zip"); data != nil {
		t.Errorf("expected nil, got %d bytes", len(data))
	}
	if !bytes.Contains(logs.Bytes(), []byte("Ошибка при скачивании файла обновления.")) {
		t.Errorf("expected operator error message in log, got %s", logs.String())
	}
}

func TestDownloadEmptyBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if data := client.Download(context.Background(), client.baseURL+"/empty.zip"); data != nil {
		t.Errorf("expected nil for an empty body, got %d bytes", len(data))
	}
}

func TestDownloadEmptyURL(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	if data := client.Download(context.Background(), ""); data != nil {
		t.Errorf("expected nil, got %d bytes", len(data))
	}
}
