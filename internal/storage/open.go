package storage

import (
	"context"
	"fmt"

	"github.com/tomasbasham/s3put/internal/config"
)

// Open constructs the Putter selected by cfg. Credentials for the S3
// backend are read through lookup at call time; a missing variable yields
// an error wrapping ErrMissingCredentials.
func Open(ctx context.Context, cfg *config.Config, lookup config.LookupFunc) (Putter, error) {
	switch cfg.Backend {
	case config.BackendS3:
		creds, err := CredentialsFromEnv(lookup)
		if err != nil {
			return nil, err
		}
		return NewS3Putter(ctx, cfg, creds)
	case config.BackendGCS:
		return NewGCSPutter(ctx)
	case config.BackendDisk:
		return NewDiskPutter(cfg.DiskRoot)
	default:
		return nil, fmt.Errorf("storage: unsupported backend %q", cfg.Backend)
	}
}
