//go:build !gcp

package metadata

import (
	"context"
	"errors"
)

type GCSConfig struct {
	Bucket    string
	Prefix    string
	PublicURL string
}

func NewGCSPublisher(ctx context.Context, cfg GCSConfig) (Publisher, error) {
	return nil, errors.New("metadata: GCS is not enabled in this build (use -tags gcp)")
}
