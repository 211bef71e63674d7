package s3

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/werent/review-platform/internal/config"
	"github.com/werent/review-platform/internal/domain"
	"github.com/werent/review-platform/internal/pkg/logger"
)

// Store persists media blobs in an S3-compatible bucket and hands back a
// public URL plus the object key as the deletion handle. It implements
// domain.MediaStore.
type Store struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	logger        *logger.Logger

	bucketInitOnce sync.Once
	bucketInitErr  error
}

// NewStore configures a media store from the MEDIA_* settings
func NewStore(cfg *config.Config, log *logger.Logger) (*Store, error) {
	endpoint := strings.TrimSpace(cfg.Media.Endpoint)
	if endpoint == "" {
		return nil, errors.New("media store: endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Media.Bucket)
	if bucket == "" {
		return nil, errors.New("media store: bucket is required")
	}

	client, err := minio.New(hostOf(endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Media.AccessKey, cfg.Media.SecretKey, ""),
		Secure: cfg.Media.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("media store: create client: %w", err)
	}

	base := strings.TrimSpace(cfg.Media.PublicBaseURL)
	if base == "" {
		base = endpoint
	}

	return &Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(base, "/"),
		logger:        log,
	}, nil
}

// Store uploads the blob under a fresh object key. The key doubles as the
// deletion handle.
func (s *Store) Store(ctx context.Context, blob domain.MediaBlob) (*domain.StoredMedia, error) {
	if blob.Reader == nil {
		return nil, errors.New("media store: reader is required")
	}

	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}

	contentType := blob.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := objectKey(blob)
	_, err := s.client.PutObject(ctx, s.bucket, key, blob.Reader, blob.Size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("media store: put object: %w", err)
	}

	stored := &domain.StoredMedia{
		URL:          fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, key),
		DeleteHandle: key,
	}

	s.logger.WithFields(map[string]interface{}{
		"bucket": s.bucket,
		"key":    key,
		"url":    stored.URL,
	}).Debug("Media upload completed")

	return stored, nil
}

// Delete removes a previously stored blob by its deletion handle
func (s *Store) Delete(ctx context.Context, deleteHandle string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, deleteHandle, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("media store: remove object: %w", err)
	}
	return nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	s.bucketInitOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.bucketInitErr = fmt.Errorf("media store: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			s.bucketInitErr = fmt.Errorf("media store: create bucket: %w", err)
		}
	})
	return s.bucketInitErr
}

func objectKey(blob domain.MediaBlob) string {
	ext := path.Ext(blob.Filename)
	return fmt.Sprintf("reviews/%s%s", uuid.New().String(), ext)
}

func hostOf(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var _ domain.MediaStore = (*Store)(nil)
