package repositories

import (
	"context"
	"fmt"
	"io"
	"net/url"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// MediaStore stores uploaded blobs and hands back a download URL.
type MediaStore interface {
	Upload(ctx context.Context, path, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, path string) error
}

// FirebaseMediaStore implements MediaStore on the project's default storage bucket.
type FirebaseMediaStore struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

// NewFirebaseMediaStore creates a new FirebaseMediaStore
func NewFirebaseMediaStore(bucket *gcs.BucketHandle, bucketName string) *FirebaseMediaStore {
	return &FirebaseMediaStore{bucket: bucket, bucketName: bucketName}
}

// Upload writes the object with a download token so the returned URL works like one
// minted by the Firebase client SDK.
func (s *FirebaseMediaStore) Upload(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	token := uuid.NewString()
	w := s.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{"firebaseStorageDownloadTokens": token}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	return DownloadURL(s.bucketName, path, token), nil
}

// Delete removes an object.
func (s *FirebaseMediaStore) Delete(ctx context.Context, path string) error {
	return s.bucket.Object(path).Delete(ctx)
}

// DownloadURL builds the token-authorised Firebase Storage URL of an object.
func DownloadURL(bucket, path, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s", bucket, url.PathEscape(path), token)
}
