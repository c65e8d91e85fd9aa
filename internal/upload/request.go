package upload

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidRequest is wrapped by every validation failure.
var ErrInvalidRequest = errors.New("invalid upload request")

// Request describes one object to upload. It is consumed by a single launch
// and never persisted.
type Request struct {
	Bucket string
	Key    string
	Body   []byte
}

// Validate checks that bucket and key are well-formed text.
func (r *Request) Validate() error {
	if err := validateName("bucket", r.Bucket); err != nil {
		return err
	}
	return validateName("key", r.Key)
}

func validateName(field, v string) error {
	switch {
	case v == "":
		return fmt.Errorf("upload: %w: %s is empty", ErrInvalidRequest, field)
	case !utf8.ValidString(v):
		return fmt.Errorf("upload: %w: %s is not valid UTF-8", ErrInvalidRequest, field)
	case strings.ContainsRune(v, 0):
		return fmt.Errorf("upload: %w: %s contains a NUL byte", ErrInvalidRequest, field)
	}
	return nil
}
