package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ObjectOpener opens one object for reading
type ObjectOpener func(ctx context.Context, bucket, object string) (io.ReadCloser, error)

// GCSConfig configures the gs:// fetcher
type GCSConfig struct {
	CredentialsFile string
	MaxBytes        int64
}

// GCSFetcher reads gs://bucket/object targets
type GCSFetcher struct {
	open     ObjectOpener
	maxBytes int64
}

// NewGCS wraps an opener, normally backed by a storage.Client
func NewGCS(open ObjectOpener, maxBytes int64) *GCSFetcher {
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	return &GCSFetcher{open: open, maxBytes: maxBytes}
}

// GCSFactory builds a storage.Client with application default credentials,
// or the given credentials file.
func GCSFactory(cfg GCSConfig) Factory {
	return func(ctx context.Context) (Fetcher, error) {
		var opts []option.ClientOption
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}

		client, err := storage.NewClient(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}

		open := func(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
			r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
			if err != nil {
				return nil, err
			}
			return r, nil
		}

		return NewGCS(open, cfg.MaxBytes), nil
	}
}

// Fetch implements Fetcher
func (f *GCSFetcher) Fetch(ctx context.Context, target string) ([]byte, error) {
	bucket, object, err := splitObjectURL(target)
	if err != nil {
		return nil, err
	}

	r, err := f.open(ctx, bucket, object)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, fmt.Errorf("gcs get %s/%s: not found: %w", bucket, object, err)
		}
		return nil, fmt.Errorf("gcs get %s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	body, err := readLimited(r, f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read gcs object: %w", err)
	}

	return body, nil
}
