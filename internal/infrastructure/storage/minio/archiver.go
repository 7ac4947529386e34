// Package minio archives assembled release files to object storage so each
// release is retrievable after the local cache directory is recycled.
package minio

import (
	"context"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/xtalforge/ccmodel/internal/config"
	"github.com/xtalforge/ccmodel/internal/infrastructure/monitoring/logging"
	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
)

// Archiver uploads assembled release artifacts to a MinIO bucket.
type Archiver struct {
	client *minio.Client
	bucket string
	logger logging.Logger
}

// NewArchiver constructs an Archiver and ensures the target bucket exists.
func NewArchiver(ctx context.Context, cfg config.MinIOConfig, logger logging.Logger) (*Archiver, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "create object storage client")
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "check release bucket").WithDetail(cfg.Bucket)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "create release bucket").WithDetail(cfg.Bucket)
		}
	}

	return &Archiver{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// ArchiveRelease uploads the assembled file at localPath under its base name
// and returns the object name.
func (a *Archiver) ArchiveRelease(ctx context.Context, localPath string) (string, error) {
	objectName := filepath.Base(localPath)

	info, err := os.Stat(localPath)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeStorageError, "stat release artifact").WithDetail(localPath)
	}

	if _, err := a.client.FPutObject(ctx, a.bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: "application/json",
	}); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodePublishError, "upload release artifact").WithDetail(objectName)
	}

	a.logger.Info("release archived",
		logging.String("bucket", a.bucket),
		logging.String("object", objectName),
		logging.Int64("bytes", info.Size()))
	return objectName, nil
}
