// Package storage provides the object-storage clients an upload is handed
// to. S3 is the production backend; GCS and a local directory satisfy the
// same interface for alternative deployments and for testing.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Putter writes a single object to a bucket in one request.
type Putter interface {
	Put(ctx context.Context, req *PutRequest) (*PutResult, error)
}

type PutRequest struct {
	// Bucket is the destination bucket name.
	Bucket string

	// Key is the object key within Bucket.
	Key string

	// Body is the object content.
	Body io.Reader

	// ContentLength is the size of Body in bytes, or -1 if unknown.
	ContentLength int64

	// ContentType is the MIME type of the content, e.g. "text/plain".
	ContentType string
}

// PutResult is the outcome of a completed put.
type PutResult struct {
	Bucket string
	Key    string

	// StatusCode is the HTTP status the backend answered with. Backends
	// without an HTTP transport report 200.
	StatusCode int

	// ETag is the entity tag of the stored object, if the backend returns one.
	ETag string
}

// OK reports whether the put was acknowledged with a 2xx status.
func (r *PutResult) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *PutResult) String() string {
	s := fmt.Sprintf("%d %s", r.StatusCode, http.StatusText(r.StatusCode))
	if r.ETag != "" {
		s += " etag=" + r.ETag
	}
	return s
}
