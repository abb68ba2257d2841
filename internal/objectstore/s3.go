// Package objectstore implements media.Store on an S3-compatible bucket.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"lms/internal/blob"
	"lms/internal/config"
	"lms/internal/media"
	"lms/internal/models"
)

var ErrMissingBucket = errors.New("s3 bucket is required")

// objectAPI is the subset of *s3.Client the store needs.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Store struct {
	client         objectAPI
	bucket         string
	publicBaseURL  string
	maxUploadBytes int64
}

// New builds an S3 client from cfg. Static credentials are used when an
// access key is configured; otherwise the SDK default chain applies.
func New(ctx context.Context, cfg config.S3Config, maxUploadBytes int64) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, ErrMissingBucket
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newWithClient(client, cfg, maxUploadBytes), nil
}

func newWithClient(client objectAPI, cfg config.S3Config, maxUploadBytes int64) *S3Store {
	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		base = defaultPublicBaseURL(cfg)
	}
	return &S3Store{
		client:         client,
		bucket:         cfg.Bucket,
		publicBaseURL:  base,
		maxUploadBytes: maxUploadBytes,
	}
}

// Upload stores the file as a single object. Video chunking is left to the
// SDK transport.
func (s *S3Store) Upload(ctx context.Context, localPath string, opts media.UploadOptions) (models.MediaRef, error) {
	prepared, err := blob.Prepare(localPath, opts, s.maxUploadBytes)
	if err != nil {
		return models.MediaRef{}, err
	}

	key := objectKey(opts, prepared.Extension)

	body, err := prepared.Open()
	if err != nil {
		return models.MediaRef{}, err
	}
	defer body.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(prepared.MimeType),
		ContentLength: aws.Int64(prepared.Size),
	})
	if err != nil {
		return models.MediaRef{}, fmt.Errorf("putting object %s: %w", key, err)
	}

	return models.MediaRef{
		ID:  key,
		URL: s.publicBaseURL + "/" + key,
	}, nil
}

func (s *S3Store) Destroy(ctx context.Context, publicID string, _ media.DestroyOptions) error {
	if publicID == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("deleting object %s: %w", publicID, err)
	}
	return nil
}

func objectKey(opts media.UploadOptions, ext string) string {
	resource := string(opts.ResourceType)
	if resource == "" {
		resource = string(media.ResourceImage)
	}
	folder := strings.Trim(path.Clean("/"+opts.Folder), "/")
	return path.Join(folder, resource, uuid.NewString()+ext)
}

func defaultPublicBaseURL(cfg config.S3Config) string {
	if cfg.Endpoint != "" {
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}
