package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/oggyb/matchbot/internal/config"
	svcErr "github.com/oggyb/matchbot/internal/errors"
)

const (
	// MaxPhotoSize is the upload ceiling.
	MaxPhotoSize = 5 << 20

	keyPrefix    = "profile-photos/"
	cacheControl = "public, max-age=31536000"
)

var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// objectAPI is the part of *s3.Client the photo store needs.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// PhotoStore keeps profile photos in an S3-compatible bucket (Cloudflare R2 by default)
// and hands out their public URLs.
type PhotoStore struct {
	client    objectAPI
	bucket    string
	publicURL string
	now       func() time.Time
}

// New builds a PhotoStore from config. The endpoint is R2 unless S3_ENDPOINT overrides it.
func New(ctx context.Context, cfg *config.Config) (*PhotoStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Storage.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Storage.AccessKeyID, cfg.Storage.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
		o.UsePathStyle = true
	})
	return NewWithClient(client, cfg.Storage.Bucket, cfg.Storage.PublicURL), nil
}

// NewWithClient wires a PhotoStore to an already configured object API.
func NewWithClient(client objectAPI, bucket, publicURL string) *PhotoStore {
	return &PhotoStore{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}
}

// Upload validates and stores one image, returning its public URL.
//
// Behavior:
//   - mime must be image/jpeg, image/png or image/webp
//   - payload must not exceed MaxPhotoSize
//   - the object key is random and its extension follows mime, never the file name
func (s *PhotoStore) Upload(ctx context.Context, data []byte, _, mime string) (string, error) {
	ext, ok := allowedTypes[mime]
	if !ok {
		return "", svcErr.Validation("Invalid file type. Allowed types: image/jpeg, image/png, image/webp")
	}
	if len(data) > MaxPhotoSize {
		return "", svcErr.Validation(fmt.Sprintf("File size exceeds %dMB limit", MaxPhotoSize>>20))
	}

	key := s.newKey(ext)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(mime),
		ContentLength: aws.Int64(int64(len(data))),
		CacheControl:  aws.String(cacheControl),
	})
	if err != nil {
		return "", svcErr.External("upload photo", err)
	}
	return s.publicURL + "/" + key, nil
}

// Delete removes the object behind a URL previously returned by Upload.
// URLs that do not point into this store are rejected.
func (s *PhotoStore) Delete(ctx context.Context, publicURL string) error {
	key, ok := strings.CutPrefix(publicURL, s.publicURL+"/")
	if !ok || key == "" {
		return svcErr.Invariant("photo url outside the photo store: " + publicURL)
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return svcErr.External("delete photo", err)
	}
	return nil
}

// newKey returns profile-photos/<unix millis>-<16 hex>.<ext>.
func (s *PhotoStore) newKey(ext string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	return fmt.Sprintf("%s%d-%s.%s", keyPrefix, s.now().UnixMilli(), random, ext)
}
