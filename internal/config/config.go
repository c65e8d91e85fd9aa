// Package config resolves runtime configuration from the environment. Values
// are read through a LookupFunc so each unit of work can be handed its own
// source rather than consulting process-wide state.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Backend names a storage backend.
type Backend string

const (
	BackendS3   Backend = "s3"
	BackendGCS  Backend = "gcs"
	BackendDisk Backend = "disk"
)

const (
	// DefaultRegion is the region uploads are addressed to unless overridden.
	DefaultRegion = "us-east-1"

	// DefaultContentType is attached to every object written.
	DefaultContentType = "text/plain"
)

// LookupFunc retrieves the value of a configuration variable. It has the
// same contract as os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Env is the LookupFunc backed by the process environment.
var Env LookupFunc = os.LookupEnv

// Config holds everything needed to open a storage client and launch uploads.
type Config struct {
	Backend     Backend
	Region      string
	Endpoint    string
	PathStyle   bool
	DiskRoot    string
	SpoolDir    string
	Helper      string
	ContentType string
	LogLevel    string
}

// Load builds a Config from lookup, applying defaults for unset variables.
func Load(lookup LookupFunc) (*Config, error) {
	if lookup == nil {
		lookup = Env
	}

	cfg := &Config{
		Backend:     Backend(strings.ToLower(get(lookup, "S3PUT_BACKEND", string(BackendS3)))),
		Region:      get(lookup, "S3PUT_REGION", DefaultRegion),
		Endpoint:    get(lookup, "AWS_ENDPOINT_URL_S3", ""),
		PathStyle:   strings.EqualFold(get(lookup, "AWS_S3_FORCE_PATH_STYLE", ""), "true"),
		DiskRoot:    get(lookup, "S3PUT_DISK_ROOT", ""),
		SpoolDir:    get(lookup, "S3PUT_SPOOL_DIR", os.TempDir()),
		Helper:      get(lookup, "S3PUT_HELPER", ""),
		ContentType: get(lookup, "S3PUT_CONTENT_TYPE", DefaultContentType),
		LogLevel:    get(lookup, "LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports whether the configuration can be used to open a backend.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendS3, BackendGCS:
	case BackendDisk:
		if c.DiskRoot == "" {
			return fmt.Errorf("config: S3PUT_DISK_ROOT is required for the %q backend", c.Backend)
		}
	default:
		return fmt.Errorf("config: unsupported backend %q", c.Backend)
	}
	if c.Region == "" {
		return fmt.Errorf("config: region must not be empty")
	}
	return nil
}

// MapLookup adapts a map to a LookupFunc.
func MapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func get(lookup LookupFunc, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}
