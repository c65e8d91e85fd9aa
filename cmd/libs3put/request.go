package main

import (
	"errors"
	"fmt"
	"math"
	"unsafe"

	"github.com/tomasbasham/s3put/internal/upload"
)

var errNullArgument = errors.New("null argument")

// newRequest copies the caller's arguments into Go memory. bucket and key
// are NUL-terminated strings; body points to n bytes and may be nil only
// when n is zero.
func newRequest(bucket, key, body *byte, n uint64) (upload.Request, error) {
	if bucket == nil {
		return upload.Request{}, fmt.Errorf("%w: bucket", errNullArgument)
	}
	if key == nil {
		return upload.Request{}, fmt.Errorf("%w: key", errNullArgument)
	}
	if body == nil && n > 0 {
		return upload.Request{}, fmt.Errorf("%w: body with length %d", errNullArgument, n)
	}
	if n > math.MaxInt {
		return upload.Request{}, fmt.Errorf("body length %d out of range", n)
	}

	req := upload.Request{
		Bucket: cString(bucket),
		Key:    cString(key),
		Body:   []byte{},
	}
	if n > 0 {
		req.Body = append([]byte(nil), unsafe.Slice(body, int(n))...)
	}

	if err := req.Validate(); err != nil {
		return upload.Request{}, err
	}
	return req, nil
}

func cString(p *byte) string {
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}
