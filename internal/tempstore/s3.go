package tempstore

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultURLTTL is how long presigned media URLs stay valid. The platform
// fetches media during container processing, so the URL only needs to
// outlive the poll loop.
const DefaultURLTTL = 24 * time.Hour

// S3Store keeps temporary media in an S3 bucket. Objects are private; the
// platform fetches them through presigned GET URLs.
type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	keyPrefix string
	urlTTL    time.Duration
}

// NewS3Store builds an S3-backed store using the ambient AWS credential
// chain. urlTTL <= 0 selects DefaultURLTTL.
func NewS3Store(ctx context.Context, bucket, keyPrefix string, urlTTL time.Duration) (*S3Store, error) {
	if bucket == "" {
		return nil, ErrMissingCredentials
	}
	if urlTTL <= 0 {
		urlTTL = DefaultURLTTL
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		keyPrefix: keyPrefix,
		urlTTL:    urlTTL,
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, data []byte, contentType string) (*Handle, error) {
	key := path.Join(s.keyPrefix, uuid.New().String()+"."+extensionForMIME(contentType))

	log.Debug().
		Str("bucket", s.bucket).
		Str("key", key).
		Int("sizeBytes", len(data)).
		Msg("Uploading temporary media to S3")

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload media to S3: %w", err)
	}

	presigned, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket, Key: &key,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.urlTTL
	})
	if err != nil {
		return nil, fmt.Errorf("presign media URL: %w", err)
	}

	return &Handle{PublicURL: presigned.URL, Key: key}, nil
}

func (s *S3Store) Delete(ctx context.Context, h *Handle) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &h.Key,
	})
	if err != nil {
		return fmt.Errorf("delete %s from S3: %w", h.Key, err)
	}
	return nil
}
