package upload

import (
	"context"
	"time"
)

// Handle identifies a launched upload. For process launches it is the
// child's PID. A handle is valid until the first terminal poll result.
type Handle int

// Launcher starts an upload and returns without waiting for it.
type Launcher interface {
	Launch(ctx context.Context, req Request) (Handle, error)
}

// Reporter performs a single non-blocking completion check. Polling a
// handle after it has reported a terminal status is a fault.
type Reporter interface {
	Poll(h Handle) Status
}

// Await polls h every interval until it reports a terminal status or ctx is
// done. On ctx expiry the upload keeps running; the returned status is
// StatusRunning along with ctx's error.
func Await(ctx context.Context, r Reporter, h Handle, interval time.Duration) (Status, error) {
	if s := r.Poll(h); s.Terminal() {
		return s, nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return StatusRunning, ctx.Err()
		case <-ticker.C:
			if s := r.Poll(h); s.Terminal() {
				return s, nil
			}
		}
	}
}
