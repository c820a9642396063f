package s3

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/ec2rolecreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/darioluanne770968-prog/suno-clone/pkg/logger"
	"go.uber.org/zap"
)

type Config struct {
	Key    string
	Secret string
	Region string
	Bucket string
	// Endpoint is set for S3 compatible providers.
	Endpoint string
	Debug    bool
	Logger   *zap.Logger
}

type Store struct {
	bucket string
	region string
	debug  bool
	client *s3.Client
	log    *zap.Logger
}

// New returns a new S3 file store and checks that the bucket exists.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	var provider aws.CredentialsProvider
	if cfg.Key == "" && cfg.Secret == "" {
		// Load credentials from EC2 Instance Role
		provider = ec2rolecreds.New()
	} else {
		provider = credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, "")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(provider),
		config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("s3: couldn't load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	// Check if bucket exists
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	}); err != nil {
		return nil, fmt.Errorf("s3: couldn't head bucket %s: %w", cfg.Bucket, err)
	}
	return &Store{
		bucket: cfg.Bucket,
		region: cfg.Region,
		debug:  cfg.Debug,
		client: client,
		log:    logger.OrNop(cfg.Logger).Named("s3"),
	}, nil
}

func (s *Store) PublicURL(name string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, name)
}

// URL returns a presigned download url valid for a day.
func (s *Store) URL(ctx context.Context, name string) (string, error) {
	client := s3.NewPresignClient(s.client)
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	}
	presignedURL, err := client.PresignGetObject(ctx, input, s3.WithPresignExpires(24*time.Hour))
	if err != nil {
		return "", fmt.Errorf("s3: couldn't presign object %s: %w", name, err)
	}
	return presignedURL.URL, nil
}

func (s *Store) Upload(ctx context.Context, path, name string) error {
	var contentType string
	ext := filepath.Ext(path)
	switch ext {
	case ".jpg", ".jpeg":
		contentType = "image/jpeg"
	case ".png":
		contentType = "image/png"
	case ".mp3":
		contentType = "audio/mpeg"
	case ".wav":
		contentType = "audio/wav"
	default:
		return fmt.Errorf("s3: unknown content type for extension %s", ext)
	}
	reader, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("s3: couldn't open file %s: %w", path, err)
	}
	defer reader.Close()
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(name),
		Body:        reader,
		ContentType: aws.String(contentType),
	}
	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		return fmt.Errorf("s3: couldn't put object %s: %w", name, err)
	}
	if s.debug {
		s.log.Debug("put object", zap.String("name", name), zap.Stringp("etag", out.ETag))
	}
	return nil
}

func (s *Store) Download(ctx context.Context, path, name string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("s3: couldn't get object %s: %w", name, err)
	}
	defer out.Body.Close()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("s3: couldn't create %s: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, out.Body); err != nil {
		return fmt.Errorf("s3: couldn't write %s: %w", path, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	}); err != nil {
		return fmt.Errorf("s3: couldn't delete object %s: %w", name, err)
	}
	if s.debug {
		s.log.Debug("delete object", zap.String("name", name))
	}
	return nil
}
