// Package archive persists raw fetched page bodies for audit and
// later re-extraction.
package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// DefaultPrefix is the object path prefix used when none is set.
const DefaultPrefix = "pages"

// Archiver stores page snapshots content-addressed by body hash, so
// identical bodies collapse onto one object.
type Archiver struct {
	store  BlobStore
	prefix string
}

// New creates an Archiver over the given blob store.
func New(store BlobStore) (*Archiver, error) {
	return NewWithPrefix(store, DefaultPrefix)
}

// NewWithPrefix creates an Archiver whose object paths start with the
// given prefix.
func NewWithPrefix(store BlobStore, prefix string) (*Archiver, error) {
	if store == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Archiver{store: store, prefix: prefix}, nil
}

// Archive writes the body and returns the stored URI.
func (a *Archiver) Archive(ctx context.Context, productKey string, fetchedAt time.Time, body []byte) (string, error) {
	if len(body) == 0 {
		return "", fmt.Errorf("empty body")
	}
	uri, err := a.store.PutObject(ctx, ObjectPath(a.prefix, fetchedAt, body), "text/html", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("archive page for %s: %w", productKey, err)
	}
	return uri, nil
}

// ObjectPath builds the storage path: <prefix>/<date>/<sha256-prefix>/<full-hash>.html.
func ObjectPath(prefix string, fetchedAt time.Time, body []byte) string {
	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])
	return fmt.Sprintf("%s/%s/%s/%s.html", prefix, fetchedAt.UTC().Format("2006-01-02"), hash[:2], hash)
}
