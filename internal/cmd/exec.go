package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/iooption"

	"github.com/tomasbasham/s3put/internal/config"
	"github.com/tomasbasham/s3put/internal/logging"
	"github.com/tomasbasham/s3put/internal/upload"
)

// ExecOptions configures the child side of a process launch.
type ExecOptions struct {
	Bucket string
	Key    string

	// exit terminates the process; replaced in tests.
	exit func(code int)

	iooption.IOStreams
}

func NewExecOptions(streams iooption.IOStreams) *ExecOptions {
	return &ExecOptions{
		IOStreams: streams,
		exit:      os.Exit,
	}
}

// NewExecCommand creates the hidden command a launched upload process runs.
// It reads the body from stdin and exits 60 on success or 61 on failure.
func NewExecCommand(o *ExecOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:    childCommand,
		Short:  "Run a single upload as a child process",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Validate(); err != nil {
				return err
			}
			return o.Run()
		},
	}

	cmd.Flags().StringVar(&o.Bucket, "bucket", "", "Destination bucket")
	cmd.Flags().StringVar(&o.Key, "key", "", "Destination object key")

	return cmd
}

func (o *ExecOptions) Validate() error {
	if o.Bucket == "" || o.Key == "" {
		return fmt.Errorf("--bucket and --key are required")
	}
	return nil
}

// Run never returns on a completed upload; the outcome is the exit code.
// Configuration and credentials are resolved here, inside the child.
func (o *ExecOptions) Run() error {
	cfg, err := config.Load(config.Env)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel)

	exec := &upload.Executor{
		Open:        upload.OpenFromConfig(config.Env),
		ContentType: cfg.ContentType,
		Logger:      logger,
		Fault:       upload.FatalFault(logger),
	}

	outcome := exec.ExecuteFrom(context.Background(), o.Bucket, o.Key, o.In)
	_ = logger.Sync()

	o.exit(outcome.ExitCode())
	return nil
}
