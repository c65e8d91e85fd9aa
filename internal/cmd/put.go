package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/s3put/internal/config"
	"github.com/tomasbasham/s3put/internal/logging"
	"github.com/tomasbasham/s3put/internal/upload"
)

type PutOptions struct {
	body []byte

	Bucket   string
	Key      string
	File     string
	Mode     string
	Interval time.Duration
	Timeout  time.Duration

	iooption.IOStreams
}

var (
	putLong = templates.LongDesc(`
		Upload a single object and poll until the upload finishes.

		The upload runs in a separate process; the command only polls it. If
		--timeout expires first the command gives up waiting, but the upload
		itself carries on to completion.`)

	putExample = templates.Examples(`
		# Upload a file
		s3put put my-bucket hello.txt -f hello.txt

		# Upload from stdin, giving up after a minute
		echo "hello world" | s3put put my-bucket hello.txt --timeout 1m`)
)

func NewPutOptions(streams iooption.IOStreams) *PutOptions {
	return &PutOptions{
		IOStreams: streams,
	}
}

func NewPutCommand(o *PutOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "put BUCKET KEY [-f FILE]",
		DisableFlagsInUseLine: true,
		Short:                 "Upload an object and wait for completion",
		Long:                  putLong,
		Example:               putExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return err
			}
			if err := o.Run(); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&o.File, "file", "f", "", "File to upload (default: stdin)")
	cmd.Flags().StringVarP(&o.Mode, "mode", "m", modeProcess, "Launch mode: process or task")
	cmd.Flags().DurationVarP(&o.Interval, "interval", "i", 100*time.Millisecond, "Interval between completion polls")
	cmd.Flags().DurationVarP(&o.Timeout, "timeout", "t", 0, "Stop waiting after this long (0 waits indefinitely)")

	return cmd
}

func (o *PutOptions) Complete(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("BUCKET and KEY are required")
	}
	o.Bucket = args[0]
	o.Key = args[1]

	var in io.Reader = o.In
	if o.File != "" && o.File != "-" {
		f, err := os.Open(o.File)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close()
		in = f
	}

	body, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	o.body = body
	return nil
}

func (o *PutOptions) Validate() error {
	req := upload.Request{Bucket: o.Bucket, Key: o.Key}
	if err := req.Validate(); err != nil {
		return err
	}
	if o.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if o.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return validateMode(o.Mode)
}

func (o *PutOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.Env)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel)
	defer logger.Sync()

	launcher, reporter, err := newLauncher(o.Mode, cfg, logger)
	if err != nil {
		return err
	}

	h, err := launcher.Launch(ctx, upload.Request{Bucket: o.Bucket, Key: o.Key, Body: o.body})
	if err != nil {
		return fmt.Errorf("launch failed: %w", err)
	}
	fmt.Fprintf(o.Out, "Uploading %d bytes to %s/%s (handle %d)...\n", len(o.body), o.Bucket, o.Key, h)

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	begin := time.Now()
	status, err := upload.Await(ctx, reporter, h, o.Interval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			fmt.Fprintf(o.ErrOut, "Stopped waiting after %s; the upload continues in the background\n", o.Timeout)
		}
		return fmt.Errorf("upload %d still running: %w", h, err)
	}

	if status != upload.StatusSuccess {
		return fmt.Errorf("upload of %s/%s failed", o.Bucket, o.Key)
	}
	fmt.Fprintf(o.Out, "Upload complete after %s\n", time.Since(begin).Round(time.Millisecond))
	return nil
}
