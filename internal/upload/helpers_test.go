package upload

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tomasbasham/s3put/internal/storage"
)

// stubPutter answers every put with a fixed status, optionally blocking
// until release is closed. Like a bare HTTP client it reports a non-2xx
// status as a result rather than an error.
type stubPutter struct {
	status  int
	err     error
	release chan struct{}

	mu   sync.Mutex
	reqs []storage.PutRequest
	body [][]byte
}

func (s *stubPutter) Put(ctx context.Context, req *storage.PutRequest) (*storage.PutResult, error) {
	b, _ := io.ReadAll(req.Body)

	s.mu.Lock()
	s.reqs = append(s.reqs, *req)
	s.body = append(s.body, b)
	s.mu.Unlock()

	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// Guarantees a measurable elapsed time on coarse clocks.
	time.Sleep(time.Millisecond)

	if s.err != nil {
		return nil, &storage.ObjectError{Op: "put", Bucket: req.Bucket, Key: req.Key, Err: s.err}
	}
	return &storage.PutResult{Bucket: req.Bucket, Key: req.Key, StatusCode: s.status}, nil
}

func (s *stubPutter) lastBody() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.body) == 0 {
		return nil
	}
	return bytes.Clone(s.body[len(s.body)-1])
}

func openStub(p storage.Putter) OpenFunc {
	return func(context.Context) (storage.Putter, error) { return p, nil }
}

func helloRequest() Request {
	return Request{Bucket: "test-bucket", Key: "hello.txt", Body: []byte("hello world")}
}

// catchFault runs fn and returns the *Fault it raised, or nil.
func catchFault(fn func()) (f *Fault) {
	defer func() {
		if r := recover(); r != nil {
			var ok bool
			if f, ok = r.(*Fault); !ok {
				panic(r)
			}
		}
	}()
	fn()
	return nil
}

// pollUntilTerminal polls h until it is terminal or a fault is raised,
// asserting every poll returns promptly.
func pollUntilTerminal(t *testing.T, r Reporter, h Handle) (Status, *Fault) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		var status Status
		start := time.Now()
		f := catchFault(func() { status = r.Poll(h) })
		require.Less(t, time.Since(start), 100*time.Millisecond, "poll blocked")

		if f != nil {
			return 0, f
		}
		if status.Terminal() {
			return status, nil
		}
		require.Equal(t, StatusRunning, status)
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("handle %d did not reach a terminal status", h)
	return 0, nil
}
