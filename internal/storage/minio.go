package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

type MinIOStorage struct {
	Client     *minio.Client
	BucketName string
	logger     *zap.Logger
}

// NewMinIOStorage initializes and returns a new MinIOStorage instance,
// creating the bucket if it does not exist yet.
func NewMinIOStorage(ctx context.Context, endpoint, accessKey, secretKey, bucketName string, useSSL bool, logger *zap.Logger) (*MinIOStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("minio")

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := minioClient.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("error checking bucket existence: %w", err)
	}
	if !exists {
		if err := minioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Info("bucket created", zap.String("bucket", bucketName))
	} else {
		logger.Debug("bucket already exists", zap.String("bucket", bucketName))
	}

	return &MinIOStorage{
		Client:     minioClient,
		BucketName: bucketName,
		logger:     logger,
	}, nil
}

// UploadFile uploads a JSON document to the bucket. A MinIO put is
// atomic: the object is visible only once fully written.
func (m *MinIOStorage) UploadFile(ctx context.Context, objectName string, data io.Reader) error {
	m.logger.Info("uploading object", zap.String("object", objectName), zap.String("bucket", m.BucketName))
	_, err := m.Client.PutObject(ctx, m.BucketName, objectName, data, -1, minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload file '%s' to MinIO: %w", objectName, err)
	}
	return nil
}

func (m *MinIOStorage) DownloadFile(ctx context.Context, objectName string) (io.ReadCloser, error) {
	exists, err := m.Exists(ctx, objectName)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, objectName)
	}
	obj, err := m.Client.GetObject(ctx, m.BucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to download '%s' from MinIO: %w", objectName, err)
	}
	return obj, nil
}

func (m *MinIOStorage) Exists(ctx context.Context, objectName string) (bool, error) {
	_, err := m.Client.StatObject(ctx, m.BucketName, objectName, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat '%s' in MinIO: %w", objectName, err)
}
