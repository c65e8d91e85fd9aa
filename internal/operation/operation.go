// Package operation tracks launched uploads for hosts that answer status
// queries repeatedly. An Operation moves through a linear lifecycle:
//
//	running → succeeded | failed.
//
// The underlying upload handle is polled only while the operation is
// running; the first terminal result is recorded and served from the store
// from then on, so a reaped handle is never polled again.
package operation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomasbasham/s3put/internal/upload"
)

// ErrNotFound is returned for an unknown operation id.
var ErrNotFound = errors.New("operation not found")

// Status represents the lifecycle state of an operation.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Operation represents a single tracked upload.
type Operation struct {
	ID        string        `json:"operation_id"`
	Handle    upload.Handle `json:"handle"`
	Status    Status        `json:"status"`
	Bucket    string        `json:"bucket"`
	Key       string        `json:"key"`
	Size      int           `json:"size"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	// CompletedAt is set once the operation reaches a terminal status.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether op will not change again.
func (op *Operation) Terminal() bool {
	return op.Status == StatusSucceeded || op.Status == StatusFailed
}

// Store is the interface for persisting and retrieving operations.
type Store interface {
	Create(h upload.Handle, req upload.Request) (*Operation, error)
	Get(id string) (*Operation, error)

	// Refresh polls a running operation's handle through r and records a
	// terminal result. Terminal operations are returned without polling.
	Refresh(id string, r upload.Reporter) (*Operation, error)
}

// MemoryStore is a concurrency-safe in-memory Store implementation.
type MemoryStore struct {
	mu  sync.Mutex
	ops map[string]*Operation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ops: make(map[string]*Operation)}
}

func (s *MemoryStore) Create(h upload.Handle, req upload.Request) (*Operation, error) {
	now := time.Now()
	op := &Operation{
		ID:        uuid.New().String(),
		Handle:    h,
		Status:    StatusRunning,
		Bucket:    req.Bucket,
		Key:       req.Key,
		Size:      len(req.Body),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.ops[op.ID] = op
	s.mu.Unlock()

	return op.clone(), nil
}

func (s *MemoryStore) Get(id string) (*Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.ops[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return op.clone(), nil
}

// Refresh holds the store lock across the poll. The poll never blocks, and
// holding the lock guarantees two concurrent refreshes cannot both observe
// the same handle's terminal result.
func (s *MemoryStore) Refresh(id string, r upload.Reporter) (*Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.ops[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if op.Terminal() {
		return op.clone(), nil
	}

	switch r.Poll(op.Handle) {
	case upload.StatusSuccess:
		op.complete(StatusSucceeded)
	case upload.StatusFailure:
		op.complete(StatusFailed)
	}
	return op.clone(), nil
}

func (op *Operation) complete(status Status) {
	now := time.Now()
	op.Status = status
	op.UpdatedAt = now
	op.CompletedAt = &now
}

// clone returns a copy to prevent callers from mutating internal state.
func (op *Operation) clone() *Operation {
	c := *op
	if op.CompletedAt != nil {
		t := *op.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
