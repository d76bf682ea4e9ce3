package packages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/openpmca/webinstaller/internal/common"
	sc "github.com/openpmca/webinstaller/internal/server/config"
)

// S3Storage keeps packages in an S3-compatible object store (MinIO in
// development). Handles are the generated object keys. Keys stay free of
// slashes so they can travel as a single URL path segment.
type S3Storage struct {
	client *s3.Client
	bucket string
}

func NewS3Storage(ctx context.Context, config *sc.Config) (*S3Storage, error) {

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			config.S3RootUser,
			config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("s3 config error: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Storage{client: client, bucket: config.S3Bucket}, nil
}

func storageKey() string {
	d := time.Now()
	return fmt.Sprintf("packages-%d%02d%02d-%v", d.Year(), int(d.Month()), d.Day(), uuid.New())
}

func (s *S3Storage) Save(ctx context.Context, data []byte) (string, error) {

	key := storageKey()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put error: %w", err)
	}

	return key, nil
}

func (s *S3Storage) Open(ctx context.Context, handle string) ([]byte, error) {

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &handle,
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("s3 get error: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read error: %w", err)
	}

	return data, nil
}

func (s *S3Storage) Exists(ctx context.Context, handle string) (bool, error) {

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    &handle,
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("s3 head error: %w", err)
	}

	return true, nil
}
