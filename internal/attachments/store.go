// Package attachments stores transaction receipts in object storage.
package attachments

import (
	"context"
	"encoding/hex"
	"errors"
	"path"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// ErrEmptyFile is returned when an upload carries no bytes.
var ErrEmptyFile = errors.New("attachment is empty")

// Attachment identifies a stored object.
type Attachment struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Store uploads and removes receipt objects.
type Store interface {
	Upload(ctx context.Context, owner, transactionID, filename, contentType string, data []byte) (Attachment, error)
	Delete(ctx context.Context, key string) error
}

// ObjectKey derives the key for a receipt of one transaction. Within a
// transaction the key is content-addressed, so re-uploading the same bytes
// keeps the object; two transactions never share one, so deleting either
// leaves the other's receipt in place.
func ObjectKey(owner, transactionID, filename string, data []byte) string {
	sum := blake2b.Sum256(data)
	return path.Join("receipts", owner, transactionID, hex.EncodeToString(sum[:])+extension(filename))
}

func extension(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 10 || strings.ContainsAny(ext, " /\\") {
		return ""
	}
	return ext
}
