package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DiskPutter writes objects to a directory on the local filesystem, laid out
// as <root>/<bucket>/<key>.
type DiskPutter struct {
	baseDir string
}

// NewDiskPutter creates a DiskPutter rooted at baseDir. The directory is
// created if it does not already exist.
func NewDiskPutter(baseDir string) (*DiskPutter, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create local base directory %q: %w", baseDir, err)
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to resolve absolute path for %q: %w", baseDir, err)
	}
	return &DiskPutter{baseDir: abs}, nil
}

// Put writes content to baseDir/bucket/key, creating any intermediate
// directories as needed. Keys that would escape the bucket directory are
// rejected with a 400 status.
func (p *DiskPutter) Put(ctx context.Context, req *PutRequest) (*PutResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, newObjectError("put", req, 0, err)
	}

	bucketDir := filepath.Join(p.baseDir, filepath.FromSlash(req.Bucket))
	dest := filepath.Join(bucketDir, filepath.FromSlash(req.Key))
	if !strings.HasPrefix(dest, bucketDir+string(filepath.Separator)) {
		return nil, newObjectError("put", req, http.StatusBadRequest, errors.New("key escapes bucket"))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, newObjectError("put", req, 0, fmt.Errorf("create directory: %w", err))
	}

	// Write to a sibling temporary file so a failed copy never leaves a
	// truncated object behind.
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".put-*")
	if err != nil {
		return nil, newObjectError("put", req, 0, fmt.Errorf("create file: %w", err))
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, req.Body); err != nil {
		_ = tmp.Close()
		return nil, newObjectError("put", req, 0, fmt.Errorf("write file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return nil, newObjectError("put", req, 0, fmt.Errorf("close file: %w", err))
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return nil, newObjectError("put", req, 0, fmt.Errorf("commit file: %w", err))
	}

	return &PutResult{
		Bucket:     req.Bucket,
		Key:        req.Key,
		StatusCode: http.StatusOK,
	}, nil
}

// Path returns where bucket/key is stored.
func (p *DiskPutter) Path(bucket, key string) string {
	return filepath.Join(p.baseDir, filepath.FromSlash(bucket), filepath.FromSlash(key))
}
