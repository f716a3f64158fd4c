package filestore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"opsbridge/internal/platform/config"
	"opsbridge/pkg/platform/sentinel"
)

// DefaultURLExpiry is how long a presigned document link stays valid.
const DefaultURLExpiry = 7 * 24 * time.Hour

// maxTemplateSize bounds how much of a template object is read.
const maxTemplateSize = 4 << 20

// MinioStore keeps folders as key prefixes and documents as objects in one
// bucket of an S3-compatible store.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	urlExpiry time.Duration
	logger    *slog.Logger
}

// NewMinio connects to the configured endpoint and creates the bucket when
// it does not exist.
func NewMinio(ctx context.Context, cfg config.FileStore, logger *slog.Logger) (*MinioStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("filestore endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("filestore bucket created", "bucket", cfg.Bucket)
	}

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = DefaultURLExpiry
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, urlExpiry: expiry, logger: logger}, nil
}

func (s *MinioStore) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	if parentID != "" {
		if err := s.folderExists(ctx, parentID); err != nil {
			return "", err
		}
	}
	id := join(parentID, objectName(name))
	if _, err := s.client.PutObject(ctx, s.bucket, join(id, markerName), strings.NewReader(""), 0,
		minio.PutObjectOptions{ContentType: "application/x-directory"}); err != nil {
		return "", fmt.Errorf("create folder %s: %w", id, err)
	}
	return id, nil
}

func (s *MinioStore) ReadTemplate(ctx context.Context, templateID string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, strings.Trim(templateID, "/"), minio.GetObjectOptions{})
	if err != nil {
		return "", s.translate(err, "template "+templateID)
	}
	defer obj.Close()

	b, err := io.ReadAll(io.LimitReader(obj, maxTemplateSize))
	if err != nil {
		return "", s.translate(err, "read template "+templateID)
	}
	return string(b), nil
}

func (s *MinioStore) CreateDocument(ctx context.Context, folderID, name, content string) (*Document, error) {
	if folderID != "" {
		if err := s.folderExists(ctx, folderID); err != nil {
			return nil, err
		}
	}
	id := join(folderID, objectName(name))
	if _, err := s.client.PutObject(ctx, s.bucket, id, strings.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"}); err != nil {
		return nil, fmt.Errorf("store document %s: %w", id, err)
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, id, s.urlExpiry, nil)
	if err != nil {
		return nil, fmt.Errorf("presign document %s: %w", id, err)
	}
	return &Document{ID: id, URL: u.String()}, nil
}

func (s *MinioStore) folderExists(ctx context.Context, folderID string) error {
	_, err := s.client.StatObject(ctx, s.bucket, join(folderID, markerName), minio.StatObjectOptions{})
	if err != nil {
		return s.translate(err, "folder "+folderID)
	}
	return nil
}

func (s *MinioStore) translate(err error, what string) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%s: %w", what, sentinel.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

var _ Store = (*MinioStore)(nil)
