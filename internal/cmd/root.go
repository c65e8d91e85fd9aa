package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cliflag "github.com/tomasbasham/cli-runtime/flag"
	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/printer"
	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/s3put/internal/logging"
)

var (
	rootLong = templates.LongDesc(`
		Upload objects to S3-compatible storage in the background and poll
		for their completion.`)

	rootExamples = templates.Examples(`
		# Upload a file and wait for it to finish
		s3put put my-bucket reports/today.txt -f today.txt

		# Serve the upload API on port 8080
		s3put serve --port 8080`)

	// Injected at build time using ldflags.
	version = ""
	commit  = ""
)

// S3PutOptions defines the options for the `s3put` command.
type S3PutOptions struct {
	// LogLevel overrides $LOG_LEVEL for this process and every upload
	// process it launches.
	LogLevel string

	iooption.IOStreams
}

// NewS3PutOptions provides an initialised S3PutOptions instance.
func NewS3PutOptions(streams iooption.IOStreams) *S3PutOptions {
	return &S3PutOptions{
		IOStreams: streams,
	}
}

// NewRootCommand creates the `s3put` command with default arguments.
func NewRootCommand() *cobra.Command {
	options := NewS3PutOptions(iooption.IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	})

	return NewRootCommandWithArgs(options)
}

// NewRootCommandWithArgs creates the `s3put` command and its nested
// children.
func NewRootCommandWithArgs(o *S3PutOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "s3put [command]",
		Version:               versionInfo(),
		DisableFlagsInUseLine: true,
		Short:                 "Asynchronous single-object uploader",
		Long:                  rootLong,
		Example:               rootExamples,
		SilenceErrors:         true,
		SilenceUsage:          true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.exportLogLevel()
		},
	}

	cmd.PersistentFlags().StringVar(&o.LogLevel, "log-level", "", "Log level: debug, info, warn or error (default: $LOG_LEVEL or info)")

	printerOpts := printer.WarningPrinterOptions{Color: true}
	printer := printer.NewWarningPrinter(o.ErrOut, printerOpts)
	cmd.SetGlobalNormalizationFunc(cliflag.WarnWordSepNormalizeFunc(printer))

	cmd.AddCommand(NewPutCommand(NewPutOptions(o.IOStreams)))
	cmd.AddCommand(NewServeCommand(NewServeOptions()))
	cmd.AddCommand(NewExecCommand(NewExecOptions(o.IOStreams)))

	// The globlal normalisation function ensures that all flags specified meet
	// the desired format, changing users' input if necessary.
	cmd.SetGlobalNormalizationFunc(cliflag.WordSepNormalizeFunc())

	return cmd
}

func (o *S3PutOptions) exportLogLevel() error {
	if o.LogLevel == "" {
		return nil
	}
	if _, err := logging.ParseLevel(o.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return os.Setenv("LOG_LEVEL", o.LogLevel)
}

func versionInfo() string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s (commit: %s)", version, commit)
}
