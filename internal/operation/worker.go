package operation

import (
	"context"
	"fmt"

	"github.com/tomasbasham/s3put/internal/upload"
)

// Tracker launches uploads and records them in a Store so their status can
// be queried any number of times.
type Tracker struct {
	Launcher upload.Launcher
	Reporter upload.Reporter
	Store    Store
}

// Start launches req and records the new operation. It returns as soon as
// the upload has been handed off.
func (t *Tracker) Start(ctx context.Context, req upload.Request) (*Operation, error) {
	h, err := t.Launcher.Launch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("launch: %w", err)
	}

	op, err := t.Store.Create(h, req)
	if err != nil {
		return nil, fmt.Errorf("record operation: %w", err)
	}
	return op, nil
}

// Status returns the current state of operation id, polling its handle if
// the upload has not yet been observed to finish.
func (t *Tracker) Status(id string) (*Operation, error) {
	return t.Store.Refresh(id, t.Reporter)
}
