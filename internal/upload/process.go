package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/tomasbasham/s3put/internal/metrics"
)

// ProcessLauncher runs each upload in a new OS process. The child is the
// helper binary invoked with Args followed by --bucket and --key; it reads
// the body from stdin and exits with ExitSuccess or ExitFailure.
//
// The Go runtime cannot fork safely, so the child is a fresh exec of the
// helper rather than a copy of the caller. Only bucket, key and body cross
// into it; credentials are read from the child's own environment.
type ProcessLauncher struct {
	// Path is the helper executable.
	Path string

	// Args are inserted between the executable and the upload flags, e.g.
	// the name of the child subcommand.
	Args []string

	// Env is the child's environment. Nil inherits the caller's.
	Env []string

	// SpoolDir holds the body while it is handed to the child. Defaults to
	// os.TempDir().
	SpoolDir string

	Logger *zap.Logger
}

// NewProcessLauncher resolves path against PATH and returns a launcher for it.
func NewProcessLauncher(path string, args ...string) (*ProcessLauncher, error) {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("upload: helper %q not found: %w", path, err)
	}
	return &ProcessLauncher{Path: resolved, Args: args}, nil
}

// Launch starts the child and returns its PID without waiting for it. The
// body is spooled to an unlinked temporary file that becomes the child's
// stdin, so Launch never blocks on the child reading it.
func (l *ProcessLauncher) Launch(ctx context.Context, req Request) (Handle, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	spool, err := l.spool(req.Body)
	if err != nil {
		return 0, err
	}
	defer spool.Close()

	argv := append([]string{l.Path}, l.Args...)
	argv = append(argv, "--bucket="+req.Bucket, "--key="+req.Key)

	env := l.Env
	if env == nil {
		env = os.Environ()
	}

	proc, err := os.StartProcess(l.Path, argv, &os.ProcAttr{
		Env:   env,
		Files: []*os.File{spool, os.Stdout, os.Stderr},
		// A process group of its own keeps terminal interrupts aimed at
		// the caller from reaching the upload.
		Sys: &syscall.SysProcAttr{Setpgid: true},
	})
	if err != nil {
		return 0, fmt.Errorf("upload: failed to start %q: %w", l.Path, err)
	}

	pid := proc.Pid
	// The child is reaped by pid in ProcessReporter; the os.Process handle
	// is not needed beyond this point.
	_ = proc.Release()

	metrics.Launches.WithLabelValues("process").Inc()
	l.logger().Debug("upload launched",
		zap.Int("handle", pid),
		zap.String("bucket", req.Bucket),
		zap.String("key", req.Key),
		zap.Int("size", len(req.Body)))

	return Handle(pid), nil
}

func (l *ProcessLauncher) spool(body []byte) (*os.File, error) {
	f, err := os.CreateTemp(l.SpoolDir, "s3put-*.body")
	if err != nil {
		return nil, fmt.Errorf("upload: failed to create spool file: %w", err)
	}
	// Unlinked immediately; the open descriptor keeps the data alive until
	// the child has consumed it.
	_ = os.Remove(f.Name())

	if _, err := f.Write(body); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("upload: failed to spool body: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("upload: failed to rewind spool file: %w", err)
	}
	return f, nil
}

func (l *ProcessLauncher) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

// ProcessReporter polls child processes started by ProcessLauncher.
type ProcessReporter struct {
	Fault  FaultFunc
	Logger *zap.Logger
}

// Poll performs one wait4 with WNOHANG on h. An exited child is reaped and
// its exit code decoded; every state other than "still running", "exited
// 60" and "exited 61" is a fault.
func (r *ProcessReporter) Poll(h Handle) Status {
	var ws unix.WaitStatus

	pid, err := wait4(int(h), &ws)
	if err != nil {
		r.fault().Raise("waitpid failed", zap.Int("handle", int(h)), zap.Error(err))
	}

	if pid == 0 {
		metrics.Polls.WithLabelValues(StatusRunning.String()).Inc()
		return StatusRunning
	}
	if pid != int(h) {
		r.fault().Raise("waitpid returned a different process",
			zap.Int("handle", int(h)), zap.Int("pid", pid))
	}

	if !ws.Exited() {
		r.fault().Raise("bad status of upload process",
			zap.Int("handle", int(h)), zap.String("status", describe(ws)))
	}

	outcome, ok := OutcomeFromExitCode(ws.ExitStatus())
	if !ok {
		r.fault().Raise("unknown termination of upload process",
			zap.Int("handle", int(h)), zap.Int("exit_code", ws.ExitStatus()))
	}

	status := outcome.Status()
	metrics.Polls.WithLabelValues(status.String()).Inc()
	r.logger().Debug("upload reaped", zap.Int("handle", int(h)), zap.Stringer("status", status))
	return status
}

func (r *ProcessReporter) fault() FaultFunc {
	if r.Fault == nil {
		return FatalFault(r.logger())
	}
	return r.Fault
}

func (r *ProcessReporter) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func wait4(pid int, ws *unix.WaitStatus) (int, error) {
	for {
		wpid, err := unix.Wait4(pid, ws, unix.WNOHANG, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return wpid, err
	}
}

func describe(ws unix.WaitStatus) string {
	switch {
	case ws.Signaled():
		return fmt.Sprintf("signaled %s", ws.Signal())
	case ws.Stopped():
		return fmt.Sprintf("stopped %s", ws.StopSignal())
	case ws.Continued():
		return "continued"
	default:
		return fmt.Sprintf("raw %#x", uint32(ws))
	}
}
