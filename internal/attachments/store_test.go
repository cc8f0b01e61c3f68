package attachments

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sopdesk/api/internal/content"
)

type fakeObjects struct {
	buckets map[string]bool
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{buckets: map[string]bool{}, objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjects) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeObjects) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.buckets[bucket] = true
	return nil
}

func (f *fakeObjects) PutObject(_ context.Context, bucket, key string, r io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[bucket+"/"+key] = data
	f.types[bucket+"/"+key] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: int64(len(data))}, nil
}

func (f *fakeObjects) RemoveObject(_ context.Context, bucket, key string, _ minio.RemoveObjectOptions) error {
	delete(f.objects, bucket+"/"+key)
	return nil
}

func (f *fakeObjects) PresignedGetObject(_ context.Context, bucket, key string, _ time.Duration, _ url.Values) (*url.URL, error) {
	return url.Parse("https://minio.local/" + bucket + "/" + key + "?X-Amz-Signature=abc")
}

func TestEnsureBucket(t *testing.T) {
	objects := newFakeObjects()
	s := newStore(objects, "kb", "")
	require.NoError(t, s.EnsureBucket(context.Background()))
	assert.True(t, objects.buckets["kb"])
	require.NoError(t, s.EnsureBucket(context.Background()))
}

func TestUploadWithPublicURL(t *testing.T) {
	objects := newFakeObjects()
	s := newStore(objects, "kb", "https://files.example.com/kb/")

	att, err := s.Upload(context.Background(), "Refund Policy.PDF", bytes.NewReader([]byte("%PDF")), 4, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, content.AttachmentPDF, att.Type)
	assert.Equal(t, "Refund Policy.PDF", att.Name)
	assert.Equal(t, "https://files.example.com/kb/"+att.ID+"/Refund%20Policy.PDF", att.URL)
	assert.Equal(t, []byte("%PDF"), objects.objects["kb/"+ObjectKey(att.ID, att.Name)])
	assert.Equal(t, "application/pdf", objects.types["kb/"+ObjectKey(att.ID, att.Name)])

	require.NoError(t, s.Delete(context.Background(), att.ID, att.Name))
	assert.Empty(t, objects.objects)
}

func TestUploadPresignsWithoutPublicURL(t *testing.T) {
	s := newStore(newFakeObjects(), "kb", "")
	att, err := s.Upload(context.Background(), "../../etc/sheet.xlsx", strings.NewReader("x"), 1, "")
	require.NoError(t, err)
	assert.Equal(t, "sheet.xlsx", att.Name)
	assert.Equal(t, content.AttachmentXLSX, att.Type)
	assert.True(t, strings.HasPrefix(att.URL, "https://minio.local/kb/"+att.ID+"/sheet.xlsx?"))
}

func TestUploadRejects(t *testing.T) {
	objects := newFakeObjects()
	s := newStore(objects, "kb", "")

	_, err := s.Upload(context.Background(), "run.exe", strings.NewReader("x"), 1, "")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = s.Upload(context.Background(), "  ", strings.NewReader("x"), 1, "")
	assert.ErrorIs(t, err, ErrInvalidName)

	objects.putErr = errors.New("bucket gone")
	_, err = s.Upload(context.Background(), "a.png", strings.NewReader("x"), 1, "")
	assert.Error(t, err)
}

func TestInferType(t *testing.T) {
	tests := map[string]content.AttachmentType{
		"a.pdf":  content.AttachmentPDF,
		"b.DOCX": content.AttachmentDOCX,
		"c.csv":  content.AttachmentXLSX,
		"d.jpeg": content.AttachmentImage,
		"e.webp": content.AttachmentImage,
		"f.xls":  content.AttachmentXLSX,
		"g.doc":  content.AttachmentDOCX,
		"h.svg":  content.AttachmentImage,
	}
	for name, want := range tests {
		got, err := InferType(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := InferType("noext")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}
