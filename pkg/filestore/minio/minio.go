package minio

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/darioluanne770968-prog/suno-clone/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

type Store struct {
	client *minio.Client
	bucket string
	debug  bool
	log    *zap.Logger
}

// New connects to a MinIO server and creates the bucket if it doesn't
// exist.
func New(ctx context.Context, endpoint, key, secret, bucket string, secure, debug bool, log *zap.Logger) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(key, secret, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: couldn't create client: %w", err)
	}
	s := &Store{
		client: client,
		bucket: bucket,
		debug:  debug,
		log:    logger.OrNop(log).Named("minio"),
	}
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio: couldn't check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio: couldn't create bucket %s: %w", bucket, err)
		}
		s.log.Info("bucket created", zap.String("bucket", bucket))
	}
	return s, nil
}

func (s *Store) Upload(ctx context.Context, path, name string) error {
	opts := minio.PutObjectOptions{}
	switch filepath.Ext(path) {
	case ".jpg", ".jpeg":
		opts.ContentType = "image/jpeg"
	case ".png":
		opts.ContentType = "image/png"
	case ".mp3":
		opts.ContentType = "audio/mpeg"
	case ".wav":
		opts.ContentType = "audio/wav"
	default:
		return fmt.Errorf("minio: unknown content type for extension %s", filepath.Ext(path))
	}
	info, err := s.client.FPutObject(ctx, s.bucket, name, path, opts)
	if err != nil {
		return fmt.Errorf("minio: couldn't put object %s: %w", name, err)
	}
	if s.debug {
		s.log.Debug("put object", zap.String("name", name), zap.Int64("size", info.Size), zap.String("etag", info.ETag))
	}
	return nil
}

func (s *Store) Download(ctx context.Context, path, name string) error {
	if err := s.client.FGetObject(ctx, s.bucket, name, path, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("minio: couldn't get object %s: %w", name, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio: couldn't remove object %s: %w", name, err)
	}
	return nil
}
