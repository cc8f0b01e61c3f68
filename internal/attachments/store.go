// Package attachments keeps article attachment files in an S3-compatible
// bucket.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"sopdesk/api/internal/content"
)

const presignExpiry = 7 * 24 * time.Hour

var (
	ErrUnsupportedType = errors.New("unsupported attachment type")
	ErrInvalidName     = errors.New("attachment name is required")
	ErrDisabled        = errors.New("attachment storage not configured")
)

// objectStore is the part of *minio.Client the store uses.
type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base that object keys are appended to. Empty means
	// presigned links.
	PublicURL string
}

type Store struct {
	client    objectStore
	bucket    string
	publicURL string
}

func New(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return newStore(client, cfg.Bucket, cfg.PublicURL), nil
}

func newStore(client objectStore, bucket, publicURL string) *Store {
	return &Store{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// Upload stores r under <id>/<name> and returns the attachment record to put
// on an article.
func (s *Store) Upload(ctx context.Context, name string, r io.Reader, size int64, contentType string) (content.Attachment, error) {
	name = path.Base(strings.TrimSpace(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return content.Attachment{}, ErrInvalidName
	}
	kind, err := InferType(name)
	if err != nil {
		return content.Attachment{}, err
	}

	id := uuid.NewString()
	key := ObjectKey(id, name)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return content.Attachment{}, fmt.Errorf("upload attachment: %w", err)
	}

	link, err := s.URL(ctx, key)
	if err != nil {
		return content.Attachment{}, err
	}
	return content.Attachment{ID: id, Name: name, Type: kind, URL: link}, nil
}

func (s *Store) URL(ctx context.Context, key string) (string, error) {
	if s.publicURL != "" {
		segments := strings.Split(key, "/")
		for i, segment := range segments {
			segments[i] = url.PathEscape(segment)
		}
		return s.publicURL + "/" + strings.Join(segments, "/"), nil
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, presignExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign attachment: %w", err)
	}
	return u.String(), nil
}

func (s *Store) Delete(ctx context.Context, id, name string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, ObjectKey(id, name), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}

func ObjectKey(id, name string) string {
	return id + "/" + name
}

var extensionTypes = map[string]content.AttachmentType{
	".pdf":  content.AttachmentPDF,
	".doc":  content.AttachmentDOCX,
	".docx": content.AttachmentDOCX,
	".xls":  content.AttachmentXLSX,
	".xlsx": content.AttachmentXLSX,
	".csv":  content.AttachmentXLSX,
	".png":  content.AttachmentImage,
	".jpg":  content.AttachmentImage,
	".jpeg": content.AttachmentImage,
	".gif":  content.AttachmentImage,
	".webp": content.AttachmentImage,
	".svg":  content.AttachmentImage,
}

// InferType maps a file name to its attachment type tag by extension.
func InferType(name string) (content.AttachmentType, error) {
	if kind, ok := extensionTypes[strings.ToLower(path.Ext(name))]; ok {
		return kind, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, path.Ext(name))
}
