// Command libs3put builds the C ABI for launching and polling uploads:
//
//	go build -buildmode=c-shared -o libs3put.so ./cmd/libs3put
//
// It exports
//
//	pid_t    s3_put(const char *bucket, const char *key, const uint8_t *body, uint64_t body_len);
//	uint64_t s3_put_poll(pid_t handle);
//
// s3_put starts the s3put helper (S3PUT_HELPER, or s3put on PATH) as a child
// process and returns its pid. s3_put_poll never blocks and returns 0 once
// the upload succeeded, 1 once it failed and 2 while it is still running.
// After 0 or 1 the handle is reaped and must not be polled again. Malformed
// arguments and unmodeled child states terminate the host process.
package main

/*
#include <stdint.h>
#include <sys/types.h>
*/
import "C"

import (
	"context"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/tomasbasham/s3put/internal/config"
	"github.com/tomasbasham/s3put/internal/logging"
	"github.com/tomasbasham/s3put/internal/upload"
)

const defaultHelper = "s3put"

var (
	setupOnce sync.Once
	launcher  *upload.ProcessLauncher
	reporter  *upload.ProcessReporter
	fault     upload.FaultFunc
)

func setup() {
	setupOnce.Do(func() {
		cfg, err := config.Load(config.Env)
		if err != nil {
			upload.FatalFault(logging.New("info")).Raise("invalid configuration", zap.Error(err))
		}

		logger := logging.New(cfg.LogLevel)
		fault = upload.FatalFault(logger)

		helper := cfg.Helper
		if helper == "" {
			helper = defaultHelper
		}
		l, err := upload.NewProcessLauncher(helper, "exec")
		if err != nil {
			fault.Raise("upload helper unavailable", zap.Error(err))
		}
		l.SpoolDir = cfg.SpoolDir
		l.Logger = logger

		launcher = l
		reporter = &upload.ProcessReporter{Fault: fault, Logger: logger}
	})
}

//export s3_put
func s3_put(bucket *C.char, key *C.char, body *C.uint8_t, bodyLen C.uint64_t) C.pid_t {
	setup()

	req, err := newRequest(
		(*byte)(unsafe.Pointer(bucket)),
		(*byte)(unsafe.Pointer(key)),
		(*byte)(unsafe.Pointer(body)),
		uint64(bodyLen),
	)
	if err != nil {
		fault.Raise("invalid upload arguments", zap.Error(err))
	}

	h, err := launcher.Launch(context.Background(), req)
	if err != nil {
		fault.Raise("launch failed", zap.Error(err))
	}
	return C.pid_t(h)
}

//export s3_put_poll
func s3_put_poll(handle C.pid_t) C.uint64_t {
	setup()
	return C.uint64_t(reporter.Poll(upload.Handle(handle)))
}

func main() {}
