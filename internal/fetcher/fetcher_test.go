package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestHTTPFetcher_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Write([]byte("<html>v1</html>"))
	}))
	defer server.Close()

	f := NewHTTP(HTTPConfig{UserAgent: "test-agent"})
	body, err := f.Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "<html>v1</html>", string(body))
}

func TestHTTPFetcher_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := NewHTTP(HTTPConfig{})
	_, err := f.Fetch(context.Background(), server.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 503")
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	f := NewHTTP(HTTPConfig{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, server.URL)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestHTTPFetcher_MaxBytes(t *testing.T) {
	pages := []string{strings.Repeat("x", 16) + "v1", strings.Repeat("x", 16) + "v2"}
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pages[calls%len(pages)]))
		calls++
	}))
	defer server.Close()

	f := NewHTTP(HTTPConfig{MaxBytes: 16})

	// a change past the cap must not look like an unchanged page
	for range pages {
		body, err := f.Fetch(context.Background(), server.URL)
		require.Error(t, err)
		assert.Nil(t, body)
		assert.ErrorIs(t, err, ErrTooLarge)
		assert.Contains(t, err.Error(), "response exceeds 16 bytes")
	}
}

func TestHTTPFetcher_ExactlyMaxBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 16)))
	}))
	defer server.Close()

	body, err := NewHTTP(HTTPConfig{MaxBytes: 16}).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Len(t, body, 16)
}

func TestObjectFetchers_MaxBytes(t *testing.T) {
	open := func(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(strings.Repeat("y", 32))), nil
	}

	_, err := NewGCS(open, 8).Fetch(context.Background(), "gs://b/o.txt")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = NewAzureBlob(open, 8).Fetch(context.Background(), "azblob://acct/c/o.txt")
	assert.ErrorIs(t, err, ErrTooLarge)

	client := &fakeS3{objects: map[string]string{"b/o.txt": strings.Repeat("y", 32)}}
	_, err = NewS3(client, 8).Fetch(context.Background(), "s3://b/o.txt")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestHTTPFetcher_KeepsCookies(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			return
		}
		c, err := r.Cookie("session")
		if assert.NoError(t, err) {
			assert.Equal(t, "abc", c.Value)
		}
	}))
	defer server.Close()

	f := NewHTTP(HTTPConfig{})
	_, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRouter_DispatchesOnScheme(t *testing.T) {
	r := NewRouter()
	r.Handle(Func(func(ctx context.Context, target string) ([]byte, error) {
		return []byte("web"), nil
	}), "http", "https")

	built := 0
	r.HandleLazy("s3", func(ctx context.Context) (Fetcher, error) {
		built++
		return Func(func(ctx context.Context, target string) ([]byte, error) {
			return []byte("bucket"), nil
		}), nil
	})

	body, err := r.Fetch(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, "web", string(body))
	assert.Equal(t, 0, built, "lazy backend must not be built before use")

	for i := 0; i < 2; i++ {
		body, err = r.Fetch(context.Background(), "s3://b/k")
		require.NoError(t, err)
		assert.Equal(t, "bucket", string(body))
	}
	assert.Equal(t, 1, built)

	_, err = r.Fetch(context.Background(), "ftp://example.com/")
	assert.ErrorContains(t, err, "no fetcher for scheme")
}

func TestRouter_FactoryErrorRetried(t *testing.T) {
	r := NewRouter()
	attempts := 0
	r.HandleLazy("gs", func(ctx context.Context) (Fetcher, error) {
		attempts++
		return nil, errors.New("no credentials")
	})

	_, err := r.Fetch(context.Background(), "gs://b/o")
	assert.ErrorContains(t, err, "init gs fetcher")
	_, _ = r.Fetch(context.Background(), "gs://b/o")
	assert.Equal(t, 2, attempts)
}

type fakeS3 struct {
	objects map[string]string
	input   *s3.GetObjectInput
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.input = params
	body, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "missing"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3Fetcher(t *testing.T) {
	client := &fakeS3{objects: map[string]string{"bucket/dir/page.json": `{"slots":3}`}}
	f := NewS3(client, 0)

	body, err := f.Fetch(context.Background(), "s3://bucket/dir/page.json")
	require.NoError(t, err)
	assert.Equal(t, `{"slots":3}`, string(body))
	assert.Equal(t, "dir/page.json", aws.ToString(client.input.Key))

	_, err = f.Fetch(context.Background(), "s3://bucket/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NoSuchKey")

	_, err = f.Fetch(context.Background(), "s3://bucket/")
	assert.ErrorContains(t, err, "no object key")
}

func TestGCSFetcher(t *testing.T) {
	f := NewGCS(func(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
		if bucket == "b" && object == "o.txt" {
			return io.NopCloser(strings.NewReader("content")), nil
		}
		return nil, storage.ErrObjectNotExist
	}, 0)

	body, err := f.Fetch(context.Background(), "gs://b/o.txt")
	require.NoError(t, err)
	assert.Equal(t, "content", string(body))

	_, err = f.Fetch(context.Background(), "gs://b/other.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrObjectNotExist))
	assert.Contains(t, err.Error(), "not found")
}

func TestAzureBlobFetcher(t *testing.T) {
	f := NewAzureBlob(func(ctx context.Context, account, path string) (io.ReadCloser, error) {
		if account == "acct" && path == "site/index.html" {
			return io.NopCloser(strings.NewReader("blob")), nil
		}
		return nil, errors.New("404 BlobNotFound")
	}, 0)

	body, err := f.Fetch(context.Background(), "azblob://acct/site/index.html")
	require.NoError(t, err)
	assert.Equal(t, "blob", string(body))

	_, err = f.Fetch(context.Background(), "azblob://acct/site/missing.html")
	assert.ErrorContains(t, err, "BlobNotFound")

	_, err = f.Fetch(context.Background(), "azblob://acct/onlycontainer")
	assert.ErrorContains(t, err, "container and a blob name")
}

func TestAzureBlobFactory_InvalidKey(t *testing.T) {
	_, err := AzureBlobFactory(AzureConfig{AccountName: "acct", AccountKey: "not base64!"})(context.Background())
	assert.ErrorContains(t, err, "azure shared key")

	f, err := AzureBlobFactory(AzureConfig{})(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, f)
}

func TestKubernetesFetcher(t *testing.T) {
	clientset := fake.NewClientset(&corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "site", Namespace: "web"},
		Data:       map[string]string{"b.txt": "two", "a.txt": "one"},
	})
	f := NewKubernetes(clientset, 0)

	body, err := f.Fetch(context.Background(), "k8s://web/configmap/site/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "one", string(body))

	whole, err := f.Fetch(context.Background(), "k8s://web/configmap/site")
	require.NoError(t, err)
	assert.Equal(t, "data:\n    a.txt: one\n    b.txt: two\n", string(whole))

	again, err := f.Fetch(context.Background(), "k8s://web/configmap/site")
	require.NoError(t, err)
	assert.Equal(t, whole, again, "rendering is stable across polls")

	_, err = f.Fetch(context.Background(), "k8s://web/configmap/site/missing")
	assert.ErrorContains(t, err, `no key "missing"`)

	_, err = f.Fetch(context.Background(), "k8s://web/configmap/absent")
	assert.ErrorContains(t, err, "not found")

	_, err = f.Fetch(context.Background(), "k8s://web/secret/site")
	assert.ErrorContains(t, err, "must look like")
}

func TestKubernetesFetcher_MaxBytes(t *testing.T) {
	clientset := fake.NewClientset(&corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "big", Namespace: "web"},
		Data:       map[string]string{"page": strings.Repeat("z", 64)},
	})

	_, err := NewKubernetes(clientset, 16).Fetch(context.Background(), "k8s://web/configmap/big/page")
	assert.ErrorIs(t, err, ErrTooLarge)
}

type fakeSTS struct {
	out *sts.GetCallerIdentityOutput
	err error
}

func (f *fakeSTS) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return f.out, f.err
}

func TestCallerIdentity(t *testing.T) {
	arn, err := CallerIdentity(context.Background(), &fakeSTS{out: &sts.GetCallerIdentityOutput{
		Account: aws.String("123456789012"),
		Arn:     aws.String("arn:aws:iam::123456789012:user/watcher"),
	}})
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:iam::123456789012:user/watcher", arn)

	_, err = CallerIdentity(context.Background(), &fakeSTS{err: &smithy.GenericAPIError{Code: "ExpiredToken"}})
	assert.ErrorContains(t, err, "failed to validate AWS credentials")
	assert.ErrorContains(t, err, "ExpiredToken")

	_, err = CallerIdentity(context.Background(), &fakeSTS{out: &sts.GetCallerIdentityOutput{}})
	assert.ErrorContains(t, err, "invalid identity")
}
