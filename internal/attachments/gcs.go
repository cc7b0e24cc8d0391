package attachments

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore keeps receipts in a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore creates a storage client for bucket. An empty credentialsFile
// falls back to application default credentials.
func NewGCSStore(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Upload writes data under its content-addressed key.
func (s *GCSStore) Upload(ctx context.Context, owner, transactionID, filename, contentType string, data []byte) (Attachment, error) {
	if len(data) == 0 {
		return Attachment{}, ErrEmptyFile
	}

	key := ObjectKey(owner, transactionID, filename, data)
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{"owner": owner, "transaction_id": transactionID, "filename": filename}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return Attachment{}, fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return Attachment{}, fmt.Errorf("close writer for %s: %w", key, err)
	}

	return Attachment{Key: key, URL: s.publicURL(key)}, nil
}

// Delete removes the object. A missing object is not an error.
func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) publicURL(key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}
