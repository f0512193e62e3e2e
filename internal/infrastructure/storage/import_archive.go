package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sangkips/brokerdesk-api/internal/config"
)

// NewMinioClient initializes a MinIO client and verifies the connection
func NewMinioClient(cfg config.MinioConfig) (*minio.Client, error) {
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := client.ListBuckets(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO server: %w", err)
	}

	slog.Info("connected to MinIO", "endpoint", endpoint)
	return client, nil
}

// ImportArchive keeps a copy of every uploaded payment import file so a
// reconciliation run can be replayed or audited later.
type ImportArchive struct {
	client *minio.Client
	bucket string
}

// NewImportArchive ensures bucket exists and returns an archive writing to it
func NewImportArchive(ctx context.Context, client *minio.Client, bucket string) (*ImportArchive, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
		slog.Info("created MinIO bucket", "bucket", bucket)
	}
	return &ImportArchive{client: client, bucket: bucket}, nil
}

// Store uploads content and returns the object key
func (a *ImportArchive) Store(ctx context.Context, filename string, content []byte, uploadedBy uuid.UUID) (string, error) {
	key := ObjectKey(time.Now().UTC(), filename)
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{
			ContentType: contentType(filename),
			UserMetadata: map[string]string{
				"uploaded-by": uploadedBy.String(),
			},
		})
	if err != nil {
		return "", fmt.Errorf("failed to archive import file: %w", err)
	}
	return key, nil
}

// ObjectKey lays archived files out by upload day
func ObjectKey(at time.Time, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "import.csv"
	}
	return fmt.Sprintf("imports/%s/%s-%s", at.Format("2006/01/02"), uuid.NewString()[:8], name)
}

func contentType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	default:
		return "text/plain"
	}
}
