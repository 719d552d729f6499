package metadata

import (
	"context"
	"fmt"
)

type Backend string

const (
	BackendFile Backend = "file"
	BackendS3   Backend = "s3"
	BackendGCS  Backend = "gcs"
)

type Config struct {
	Backend   Backend
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	Dir       string
	PublicURL string
}

// New builds the configured publisher. An empty backend means file.
func New(ctx context.Context, cfg Config) (Publisher, error) {
	switch cfg.Backend {
	case "", BackendFile:
		dir := cfg.Dir
		if dir == "" {
			dir = "data/metadata"
		}
		return NewFilePublisher(dir, cfg.PublicURL)
	case BackendS3:
		return NewS3Publisher(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			Prefix:    cfg.Prefix,
			PublicURL: cfg.PublicURL,
		})
	case BackendGCS:
		return NewGCSPublisher(ctx, GCSConfig{
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			PublicURL: cfg.PublicURL,
		})
	default:
		return nil, fmt.Errorf("metadata: unsupported backend %q", cfg.Backend)
	}
}
