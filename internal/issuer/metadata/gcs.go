//go:build gcp

package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

type GCSConfig struct {
	Bucket    string
	Prefix    string
	PublicURL string
}

type GCSPublisher struct {
	client *storage.Client
	cfg    GCSConfig
}

// NewGCSPublisher uses application default credentials.
func NewGCSPublisher(ctx context.Context, cfg GCSConfig) (Publisher, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("metadata: GCS bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("metadata: create GCS client: %w", err)
	}
	return &GCSPublisher{client: client, cfg: cfg}, nil
}

func (p *GCSPublisher) Publish(ctx context.Context, doc Document) (string, error) {
	data, err := doc.Canonical()
	if err != nil {
		return "", &PublishError{Backend: "gcs", Err: err}
	}
	key := ObjectKey(p.cfg.Prefix, data)

	w := p.client.Bucket(p.cfg.Bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", &PublishError{Backend: "gcs", Retryable: gcsRetryable(err), Err: err}
	}
	if err := w.Close(); err != nil {
		return "", &PublishError{Backend: "gcs", Retryable: gcsRetryable(err), Err: err}
	}

	if p.cfg.PublicURL != "" {
		return strings.TrimRight(p.cfg.PublicURL, "/") + "/" + key, nil
	}
	return "gs://" + p.cfg.Bucket + "/" + key, nil
}

func gcsRetryable(err error) bool {
	if contextRetryable(err) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == 429 || gerr.Code >= 500
	}
	return false
}
