package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/s3put/internal/config"
	"github.com/tomasbasham/s3put/internal/logging"
	"github.com/tomasbasham/s3put/internal/metrics"
	"github.com/tomasbasham/s3put/internal/operation"
	"github.com/tomasbasham/s3put/internal/server"
)

type ServeOptions struct {
	Port        int
	Mode        string
	MaxBodySize int64
}

var (
	serveLong = templates.LongDesc(`Start the upload HTTP server.`)

	serveExample = templates.Examples(`
		# Start on the default port
		s3put serve

		# Start on a custom port, running uploads in-process
		s3put serve --port 9090 --mode task

		# Launch an upload and poll it
		curl -X PUT --data-binary @hello.txt localhost:8080/uploads/my-bucket/hello.txt
		curl localhost:8080/uploads/<operation-id>`)
)

func NewServeOptions() *ServeOptions {
	return &ServeOptions{}
}

func NewServeCommand(o *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Start the upload HTTP server",
		Long:    serveLong,
		Example: serveExample,
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

	cmd.Flags().IntVarP(&o.Port, "port", "p", 8080, "Port to listen on")
	cmd.Flags().StringVarP(&o.Mode, "mode", "m", modeProcess, "Launch mode: process or task")
	cmd.Flags().Int64Var(&o.MaxBodySize, "max-body-size", server.DefaultMaxBodySize, "Largest object accepted, in bytes")

	return cmd
}

func (o *ServeOptions) Complete(cmd *cobra.Command, args []string) error {
	return nil
}

func (o *ServeOptions) Validate() error {
	if o.Port <= 0 || o.Port > 65535 {
		return fmt.Errorf("invalid port %d", o.Port)
	}
	if o.MaxBodySize <= 0 {
		return fmt.Errorf("max-body-size must be positive")
	}
	return validateMode(o.Mode)
}

func (o *ServeOptions) Run() error {
	cfg, err := config.Load(config.Env)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel)
	defer logger.Sync()

	metrics.Init()

	launcher, reporter, err := newLauncher(o.Mode, cfg, logger)
	if err != nil {
		return err
	}

	tracker := &operation.Tracker{
		Launcher: launcher,
		Reporter: reporter,
		Store:    operation.NewMemoryStore(),
	}

	srv := server.New(tracker, logger)
	srv.SetMaxBodySize(o.MaxBodySize)

	addr := fmt.Sprintf(":%d", o.Port)
	logger.Info("starting upload server", zap.String("addr", addr), zap.String("mode", o.Mode), zap.String("backend", string(cfg.Backend)))
	return srv.ListenAndServe(addr)
}
