package s3

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/EgorLis/my-assets/internal/domain"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PathStyle bool
}

// Storage хранит сжатые payload'ы в S3/MinIO: объект assets/<blobId>.
type Storage struct {
	cl     *minio.Client
	bucket string
	log    *log.Logger
}

func New(ctx context.Context, cfg Config, logger *log.Logger) (*Storage, error) {
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	cl, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, err
	}

	exists, err := cl.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("bucket exists: %w", err)
	}
	if !exists {
		logger.Printf("bucket %q not found, creating", cfg.Bucket)
		if err := cl.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("make bucket: %w", err)
		}
	}
	return &Storage{cl: cl, bucket: cfg.Bucket, log: logger}, nil
}

func objectKey(id domain.BlobID) string { return "assets/" + id.String() }

// Put пишет объект одним PutObject: читатели видят либо старую версию, либо новую.
func (s *Storage) Put(ctx context.Context, id domain.BlobID, r io.Reader, size int64) error {
	info, err := s.cl.PutObject(ctx, s.bucket, objectKey(id), r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
		UserMetadata: map[string]string{
			"codec": "avc1",
		},
	})
	if err != nil {
		s.log.Printf("PUT %s failed: %v", objectKey(id), err)
		return err
	}
	s.log.Printf("PUT %s ok (%d bytes)", objectKey(id), info.Size)
	return nil
}

func (s *Storage) Get(ctx context.Context, id domain.BlobID) (io.ReadCloser, error) {
	obj, err := s.cl.GetObject(ctx, s.bucket, objectKey(id), minio.GetObjectOptions{})
	if err != nil {
		return nil, mapErr(err)
	}
	// GetObject ленивый: отсутствие объекта всплывает только на Stat/Read
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapErr(err)
	}
	return obj, nil
}

// Delete сообщает ErrNotFound, если объекта не было: RemoveObject сам об этом молчит.
func (s *Storage) Delete(ctx context.Context, id domain.BlobID) error {
	if _, err := s.cl.StatObject(ctx, s.bucket, objectKey(id), minio.StatObjectOptions{}); err != nil {
		return mapErr(err)
	}
	if err := s.cl.RemoveObject(ctx, s.bucket, objectKey(id), minio.RemoveObjectOptions{}); err != nil {
		s.log.Printf("DELETE %s failed: %v", objectKey(id), err)
		return err
	}
	s.log.Printf("DELETE %s ok", objectKey(id))
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	ok, err := s.cl.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %q is gone", s.bucket)
	}
	return nil
}

func mapErr(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return err
}
