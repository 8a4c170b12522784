package fetcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

// S3API is the subset of the S3 client the fetcher needs
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config selects region and shared-config profile. Empty values defer to
// the SDK's default resolution chain.
type S3Config struct {
	Region   string
	Profile  string
	MaxBytes int64
}

// S3Fetcher reads s3://bucket/key targets
type S3Fetcher struct {
	client   S3API
	maxBytes int64
}

// NewS3 wraps an existing client
func NewS3(client S3API, maxBytes int64) *S3Fetcher {
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	return &S3Fetcher{client: client, maxBytes: maxBytes}
}

// STSAPI is the subset of the STS client used to verify credentials
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// S3Factory resolves AWS credentials and builds an S3Fetcher
func S3Factory(cfg S3Config) Factory {
	return func(ctx context.Context) (Fetcher, error) {
		awsCfg, err := loadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewS3(s3.NewFromConfig(awsCfg), cfg.MaxBytes), nil
	}
}

// AWSIdentity resolves the same credentials S3Factory uses and returns the
// ARN STS reports for them.
func AWSIdentity(ctx context.Context, cfg S3Config) (string, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return "", err
	}
	return CallerIdentity(ctx, sts.NewFromConfig(awsCfg))
}

// CallerIdentity asks STS who the client's credentials belong to
func CallerIdentity(ctx context.Context, client STSAPI) (string, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to validate AWS credentials: %w", err)
	}
	if out.Account == nil || out.Arn == nil {
		return "", fmt.Errorf("received invalid identity information from AWS")
	}
	return aws.ToString(out.Arn), nil
}

func loadAWSConfig(ctx context.Context, cfg S3Config) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// Fetch implements Fetcher
func (f *S3Fetcher) Fetch(ctx context.Context, target string) ([]byte, error) {
	bucket, key, err := splitObjectURL(target)
	if err != nil {
		return nil, err
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("s3 get %s/%s: %s: %w", bucket, key, apiErr.ErrorCode(), err)
		}
		return nil, fmt.Errorf("s3 get %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	body, err := readLimited(out.Body, f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read s3 object: %w", err)
	}

	return body, nil
}
