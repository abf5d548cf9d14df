package storage

import (
	"context"
	"io"
	"time"
)

// Uploader persists rendered transcripts as immutable objects. The returned
// path identifies the object for later signed access.
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

// Signer mints short-lived read URLs for archived transcripts. Objects are
// private; the UI never gets a durable link.
type Signer interface {
	SignedGetURL(ctx context.Context, objectName string, ttl time.Duration) (string, error)
}
