package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials is returned when a required credential variable
	// is absent from the configuration source.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrUnexpectedStatus is wrapped when a backend answers with a non-2xx
	// status without raising an error of its own.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// ObjectError records a failed operation against a single object.
type ObjectError struct {
	// Op is the operation that failed, e.g. "put".
	Op     string
	Bucket string
	Key    string

	// StatusCode is the HTTP status returned by the backend, or 0 when the
	// request never produced a response.
	StatusCode int

	Err error
}

func (e *ObjectError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("storage: %s %s/%s (status %d): %v", e.Op, e.Bucket, e.Key, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("storage: %s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}

func newObjectError(op string, req *PutRequest, status int, err error) *ObjectError {
	return &ObjectError{
		Op:         op,
		Bucket:     req.Bucket,
		Key:        req.Key,
		StatusCode: status,
		Err:        err,
	}
}
