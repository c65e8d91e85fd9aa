package operation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasbasham/s3put/internal/upload"
)

// scriptedReporter returns queued statuses per handle and fails the test if
// a handle is polled after its terminal status.
type scriptedReporter struct {
	t *testing.T

	mu     sync.Mutex
	script map[upload.Handle][]upload.Status
	reaped map[upload.Handle]bool
	polls  int
}

func newScriptedReporter(t *testing.T) *scriptedReporter {
	return &scriptedReporter{
		t:      t,
		script: make(map[upload.Handle][]upload.Status),
		reaped: make(map[upload.Handle]bool),
	}
}

func (r *scriptedReporter) Poll(h upload.Handle) upload.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.polls++
	if r.reaped[h] {
		r.t.Errorf("handle %d polled after terminal status", h)
		return upload.StatusRunning
	}
	queue := r.script[h]
	if len(queue) == 0 {
		return upload.StatusRunning
	}
	s := queue[0]
	r.script[h] = queue[1:]
	if s.Terminal() {
		r.reaped[h] = true
	}
	return s
}

type fakeLauncher struct {
	next upload.Handle
	err  error
}

func (l *fakeLauncher) Launch(_ context.Context, req upload.Request) (upload.Handle, error) {
	if l.err != nil {
		return 0, l.err
	}
	if err := req.Validate(); err != nil {
		return 0, err
	}
	l.next++
	return l.next, nil
}

func request() upload.Request {
	return upload.Request{Bucket: "test-bucket", Key: "hello.txt", Body: []byte("hello world")}
}

func TestMemoryStoreCreateGet(t *testing.T) {
	s := NewMemoryStore()

	op, err := s.Create(7, request())
	require.NoError(t, err)
	assert.NotEmpty(t, op.ID)
	assert.Equal(t, StatusRunning, op.Status)
	assert.Equal(t, upload.Handle(7), op.Handle)
	assert.Equal(t, 11, op.Size)

	got, err := s.Get(op.ID)
	require.NoError(t, err)
	assert.Equal(t, op.ID, got.ID)

	got.Status = StatusFailed
	again, err := s.Get(op.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, again.Status)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreRefresh(t *testing.T) {
	s := NewMemoryStore()
	r := newScriptedReporter(t)
	r.script[1] = []upload.Status{upload.StatusRunning, upload.StatusRunning, upload.StatusSuccess}
	r.script[2] = []upload.Status{upload.StatusFailure}

	ok, err := s.Create(1, request())
	require.NoError(t, err)
	bad, err := s.Create(2, request())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		op, err := s.Refresh(ok.ID, r)
		require.NoError(t, err)
		assert.Equal(t, StatusRunning, op.Status)
		assert.Nil(t, op.CompletedAt)
	}

	op, err := s.Refresh(ok.ID, r)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, op.Status)
	assert.NotNil(t, op.CompletedAt)

	op, err = s.Refresh(bad.ID, r)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, op.Status)

	// Terminal results are served from the store without polling.
	before := r.polls
	for i := 0; i < 3; i++ {
		op, err = s.Refresh(ok.ID, r)
		require.NoError(t, err)
		assert.Equal(t, StatusSucceeded, op.Status)
	}
	assert.Equal(t, before, r.polls)

	_, err = s.Refresh("missing", r)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreConcurrentRefresh(t *testing.T) {
	s := NewMemoryStore()
	r := newScriptedReporter(t)
	r.script[1] = []upload.Status{upload.StatusSuccess}

	op, err := s.Create(1, request())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.Refresh(op.ID, r)
			assert.NoError(t, err)
			assert.Equal(t, StatusSucceeded, got.Status)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, r.polls)
}

func TestTracker(t *testing.T) {
	r := newScriptedReporter(t)
	r.script[1] = []upload.Status{upload.StatusRunning, upload.StatusFailure}

	tr := &Tracker{Launcher: &fakeLauncher{}, Reporter: r, Store: NewMemoryStore()}

	op, err := tr.Start(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "test-bucket", op.Bucket)
	assert.Equal(t, "hello.txt", op.Key)

	got, err := tr.Status(op.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)

	got, err = tr.Status(op.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
}

func TestTrackerLaunchError(t *testing.T) {
	cause := errors.New("no such file or directory")
	tr := &Tracker{Launcher: &fakeLauncher{err: cause}, Reporter: newScriptedReporter(t), Store: NewMemoryStore()}

	_, err := tr.Start(context.Background(), request())
	assert.ErrorIs(t, err, cause)

	tr.Launcher = &fakeLauncher{}
	_, err = tr.Start(context.Background(), upload.Request{Key: "k"})
	assert.ErrorIs(t, err, upload.ErrInvalidRequest)
}
