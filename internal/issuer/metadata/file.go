package metadata

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FilePublisher writes documents under a local directory. BaseURL, when
// set, is where that directory is served from.
type FilePublisher struct {
	dir     string
	baseURL string
}

func NewFilePublisher(dir, baseURL string) (*FilePublisher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("metadata: create dir: %w", err)
	}
	return &FilePublisher{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (p *FilePublisher) Publish(ctx context.Context, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &PublishError{Backend: "file", Retryable: true, Err: err}
	}

	data, err := doc.Canonical()
	if err != nil {
		return "", &PublishError{Backend: "file", Err: err}
	}
	key := ObjectKey("", data)
	path := filepath.Join(p.dir, key)

	// Write then rename so readers never see a partial file.
	tmp, err := os.CreateTemp(p.dir, ".upload-*")
	if err != nil {
		return "", &PublishError{Backend: "file", Retryable: true, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", &PublishError{Backend: "file", Retryable: true, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", &PublishError{Backend: "file", Retryable: true, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", &PublishError{Backend: "file", Retryable: true, Err: err}
	}

	if p.baseURL != "" {
		return p.baseURL + "/" + key, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}
