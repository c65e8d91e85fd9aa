package upload

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/tomasbasham/s3put/internal/metrics"
)

// TaskLauncher runs each upload on a goroutine inside the calling process
// and tracks it in a handle table. It is both the Launcher and the Reporter
// for the handles it issues.
type TaskLauncher struct {
	executor Executor
	fault    FaultFunc
	logger   *zap.Logger

	mu    sync.Mutex
	next  Handle
	tasks map[Handle]chan taskResult
}

type taskResult struct {
	outcome Outcome

	// crash holds the recovered panic value if the task did not finish.
	crash any
}

// NewTaskLauncher returns a TaskLauncher running uploads with exec. Faults
// raised inside a task are recovered and re-raised through fault when the
// handle is next polled.
func NewTaskLauncher(exec Executor, fault FaultFunc, logger *zap.Logger) *TaskLauncher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fault == nil {
		fault = FatalFault(logger)
	}
	exec.Fault = PanicFault

	return &TaskLauncher{
		executor: exec,
		fault:    fault,
		logger:   logger,
		tasks:    make(map[Handle]chan taskResult),
	}
}

// Launch copies req and starts the upload on a new goroutine. The context is
// detached from ctx: once launched an upload runs to completion.
func (l *TaskLauncher) Launch(ctx context.Context, req Request) (Handle, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	// The caller may reuse its buffer as soon as Launch returns.
	req.Body = append([]byte(nil), req.Body...)

	done := make(chan taskResult, 1)

	l.mu.Lock()
	l.next++
	h := l.next
	l.tasks[h] = done
	l.mu.Unlock()

	go l.run(context.WithoutCancel(ctx), req, done)

	metrics.Launches.WithLabelValues("task").Inc()
	l.logger.Debug("upload launched",
		zap.Int("handle", int(h)),
		zap.String("bucket", req.Bucket),
		zap.String("key", req.Key),
		zap.Int("size", len(req.Body)))

	return h, nil
}

func (l *TaskLauncher) run(ctx context.Context, req Request, done chan<- taskResult) {
	defer func() {
		if r := recover(); r != nil {
			done <- taskResult{crash: r}
		}
	}()
	done <- taskResult{outcome: l.executor.Execute(ctx, req)}
}

// Poll checks h without blocking. A terminal result removes h from the
// table; polling it again, or polling a handle this launcher never issued,
// is a fault.
func (l *TaskLauncher) Poll(h Handle) Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	done, ok := l.tasks[h]
	if !ok {
		l.fault.Raise("poll of unknown upload handle", zap.Int("handle", int(h)))
	}

	select {
	case r := <-done:
		delete(l.tasks, h)
		if r.crash != nil {
			fields := []zap.Field{zap.Int("handle", int(h)), zap.Any("panic", r.crash)}
			if f, ok := r.crash.(*Fault); ok {
				fields = append(fields, f.Fields...)
			}
			l.fault.Raise("upload task crashed", fields...)
		}
		status := r.outcome.Status()
		metrics.Polls.WithLabelValues(status.String()).Inc()
		return status
	default:
		metrics.Polls.WithLabelValues(StatusRunning.String()).Inc()
		return StatusRunning
	}
}

// Pending returns the number of handles not yet observed as terminal.
func (l *TaskLauncher) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}
