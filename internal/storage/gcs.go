package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCSPutter uploads objects to Google Cloud Storage.
type GCSPutter struct {
	client *storage.Client
}

// NewGCSPutter creates a GCSPutter. opts are passed through to the
// underlying GCS client, allowing credential injection.
func NewGCSPutter(ctx context.Context, opts ...option.ClientOption) (*GCSPutter, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create GCS client: %w", err)
	}
	return &GCSPutter{client: client}, nil
}

// Put writes content to bucket/key. The object is committed when the writer
// closes; a failed close means nothing was stored.
func (p *GCSPutter) Put(ctx context.Context, req *PutRequest) (*PutResult, error) {
	obj := p.client.Bucket(req.Bucket).Object(req.Key)
	w := obj.NewWriter(ctx)
	w.ContentType = req.ContentType

	// A single chunk keeps the upload to one request.
	w.ChunkSize = 0

	if _, err := io.Copy(w, req.Body); err != nil {
		_ = w.Close()
		return nil, newObjectError("put", req, gcsStatus(err), err)
	}
	if err := w.Close(); err != nil {
		return nil, newObjectError("put", req, gcsStatus(err), err)
	}

	var etag string
	if attrs := w.Attrs(); attrs != nil {
		etag = attrs.Etag
	}
	return &PutResult{
		Bucket:     req.Bucket,
		Key:        req.Key,
		StatusCode: http.StatusOK,
		ETag:       etag,
	}, nil
}

// Close releases the underlying client.
func (p *GCSPutter) Close() error {
	return p.client.Close()
}

func gcsStatus(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
