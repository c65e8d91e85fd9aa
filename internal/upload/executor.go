package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/tomasbasham/s3put/internal/config"
	"github.com/tomasbasham/s3put/internal/metrics"
	"github.com/tomasbasham/s3put/internal/storage"
)

// OpenFunc opens a storage client for a single upload. It is called once per
// execution so credentials are derived afresh every time.
type OpenFunc func(ctx context.Context) (storage.Putter, error)

// OpenFromConfig returns an OpenFunc that loads configuration and
// credentials through lookup each time it is called.
func OpenFromConfig(lookup config.LookupFunc) OpenFunc {
	return func(ctx context.Context) (storage.Putter, error) {
		cfg, err := config.Load(lookup)
		if err != nil {
			return nil, err
		}
		return storage.Open(ctx, cfg, lookup)
	}
}

// Executor performs one upload and classifies the result.
type Executor struct {
	Open        OpenFunc
	ContentType string
	Logger      *zap.Logger

	// Fault is raised when the storage client cannot be opened for lack of
	// credentials, a deployment defect rather than an upload failure.
	Fault FaultFunc
}

// Execute uploads req and returns its outcome. A non-2xx status or any
// error other than missing credentials is a Failure.
func (e *Executor) Execute(ctx context.Context, req Request) Outcome {
	logger := e.logger().With(zap.String("bucket", req.Bucket), zap.String("key", req.Key))
	begin := time.Now()

	result, err := e.put(ctx, req)
	elapsed := time.Since(begin)
	metrics.UploadDuration.Observe(elapsed.Seconds())

	if err != nil {
		if errors.Is(err, storage.ErrMissingCredentials) {
			e.fault().Raise("credentials unavailable", zap.Error(err))
		}
		metrics.Outcomes.WithLabelValues(Failure.String()).Inc()
		logger.Warn("upload failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return Failure
	}

	metrics.Outcomes.WithLabelValues(Success.String()).Inc()
	logger.Info("upload succeeded", zap.Duration("elapsed", elapsed), zap.Stringer("result", result))
	return Success
}

// ExecuteFrom reads the body from r and uploads it. A body that cannot be
// read is a Failure.
func (e *Executor) ExecuteFrom(ctx context.Context, bucket, key string, r io.Reader) Outcome {
	body, err := io.ReadAll(r)
	if err != nil {
		e.logger().Warn("upload failed", zap.String("bucket", bucket), zap.String("key", key),
			zap.Error(fmt.Errorf("upload: read body: %w", err)))
		return Failure
	}
	return e.Execute(ctx, Request{Bucket: bucket, Key: key, Body: body})
}

func (e *Executor) put(ctx context.Context, req Request) (*storage.PutResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	client, err := e.Open(ctx)
	if err != nil {
		return nil, err
	}
	if c, ok := client.(io.Closer); ok {
		defer c.Close()
	}

	contentType := e.ContentType
	if contentType == "" {
		contentType = config.DefaultContentType
	}

	result, err := client.Put(ctx, &storage.PutRequest{
		Bucket:        req.Bucket,
		Key:           req.Key,
		Body:          bytes.NewReader(req.Body),
		ContentLength: int64(len(req.Body)),
		ContentType:   contentType,
	})
	if err != nil {
		return nil, err
	}

	// Backends are not required to turn a non-2xx answer into an error.
	if result == nil || !result.OK() {
		status := 0
		if result != nil {
			status = result.StatusCode
		}
		return nil, &storage.ObjectError{
			Op:         "put",
			Bucket:     req.Bucket,
			Key:        req.Key,
			StatusCode: status,
			Err:        storage.ErrUnexpectedStatus,
		}
	}
	return result, nil
}

func (e *Executor) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Executor) fault() FaultFunc {
	if e.Fault == nil {
		return FatalFault(e.logger())
	}
	return e.Fault
}
