package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

// AzureConfig configures the azblob:// fetcher. AccountKey is only used for
// targets in AccountName; every other account is read anonymously.
type AzureConfig struct {
	AccountName string
	AccountKey  string
	MaxBytes    int64
}

// AzureBlobFetcher reads azblob://account/container/blob targets
type AzureBlobFetcher struct {
	open     ObjectOpener
	maxBytes int64
}

// NewAzureBlob wraps an opener keyed by account and "container/blob"
func NewAzureBlob(open ObjectOpener, maxBytes int64) *AzureBlobFetcher {
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	return &AzureBlobFetcher{open: open, maxBytes: maxBytes}
}

// AzureBlobFactory builds an AzureBlobFetcher downloading from
// https://<account>.blob.core.windows.net
func AzureBlobFactory(cfg AzureConfig) Factory {
	return func(ctx context.Context) (Fetcher, error) {
		var shared *azblob.SharedKeyCredential
		if cfg.AccountName != "" && cfg.AccountKey != "" {
			cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
			if err != nil {
				return nil, fmt.Errorf("azure shared key: %w", err)
			}
			shared = cred
		}

		open := func(ctx context.Context, account, path string) (io.ReadCloser, error) {
			var cred azblob.Credential = azblob.NewAnonymousCredential()
			if shared != nil && account == cfg.AccountName {
				cred = shared
			}

			u, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net/%s", account, path))
			if err != nil {
				return nil, err
			}

			blobURL := azblob.NewBlobURL(*u, azblob.NewPipeline(cred, azblob.PipelineOptions{}))
			resp, err := blobURL.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
			if err != nil {
				return nil, err
			}
			return resp.Body(azblob.RetryReaderOptions{}), nil
		}

		return NewAzureBlob(open, cfg.MaxBytes), nil
	}
}

// Fetch implements Fetcher
func (f *AzureBlobFetcher) Fetch(ctx context.Context, target string) ([]byte, error) {
	account, path, err := splitObjectURL(target)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(path, "/") {
		return nil, fmt.Errorf("target %q needs a container and a blob name", target)
	}

	r, err := f.open(ctx, account, path)
	if err != nil {
		var stgErr azblob.StorageError
		if errors.As(err, &stgErr) {
			return nil, fmt.Errorf("azure get %s/%s: %s: %w", account, path, stgErr.ServiceCode(), err)
		}
		return nil, fmt.Errorf("azure get %s/%s: %w", account, path, err)
	}
	defer r.Close()

	body, err := readLimited(r, f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read azure blob: %w", err)
	}

	return body, nil
}
