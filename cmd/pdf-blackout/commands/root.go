package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spherical/pdf-blackout/cmd/pdf-blackout/ui"
	"github.com/spherical/pdf-blackout/internal/domain"
	"github.com/spherical/pdf-blackout/pkg/blackout"
)

// Version is set at build time.
var Version = "1.0.0"

// ErrBatchFailed is returned when at least one document failed. Failures have
// already been printed.
var ErrBatchFailed = errors.New("batch failed")

type options struct {
	inputPath    string
	outputPath   string
	password     string
	filterPrefix string
	exportImages bool
	cfgFile      string
	verbose      bool
	noProgress   bool
	noColor      bool
}

// NewRootCommand builds the pdf-blackout command writing to stdout and stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "pdf-blackout",
		Short: "Black out every non-white pixel of PDF pages",
		Long: `pdf-blackout rasterizes every page of one PDF or a directory of PDFs, keeps
pure white pixels and turns everything else black, then writes the pages
back as PDF documents or JPEG images.

An output path with a file extension concatenates all inputs into that one
document. Any other output path is a directory receiving one document per
input (or one JPEG per page with --export-images).`,
		Example: `  pdf-blackout -i scan.pdf -o out/
  pdf-blackout -i reports/ -f report_ -o merged/all.pdf
  pdf-blackout -i locked.pdf -p secret -o pages/ --export-images`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, stdout, stderr)
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVarP(&opts.inputPath, "input-path", "i", "", "input PDF file or directory (required)")
	flags.StringVarP(&opts.outputPath, "output-path", "o", "", "output directory, or a .pdf file to concatenate all inputs (required)")
	flags.StringVarP(&opts.password, "password", "p", "", "password for encrypted inputs (default $BLACKOUT_PASSWORD)")
	flags.StringVarP(&opts.filterPrefix, "filter-prefix", "f", "", "only process files whose name starts with this prefix (directory input)")
	flags.BoolVarP(&opts.exportImages, "export-images", "e", false, "write every page as a JPEG file instead of a PDF")
	flags.StringVarP(&opts.cfgFile, "config", "c", "", "config file path")
	flags.BoolVar(&opts.verbose, "verbose", false, "enable verbose output")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "disable progress bars")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	_ = cmd.MarkFlagRequired("input-path")
	_ = cmd.MarkFlagRequired("output-path")

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	cmd := NewRootCommand(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, ErrBatchFailed) {
			ui.Errorf(os.Stderr, "Error: %v", err)
		}
		return 1
	}
	return 0
}

func run(ctx context.Context, opts *options, stdout, stderr io.Writer) error {
	ui.InitUI(opts.noColor)

	cfg, err := blackout.LoadConfig(opts.cfgFile)
	if err != nil {
		return err
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	if opts.noProgress {
		cfg.Progress.Enabled = false
	}

	logger := domain.NewLoggerWithConfig(domain.LogConfig{
		Level:  domain.ParseLogLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: stderr,
	})

	client, err := blackout.NewClientWithConfig(cfg,
		blackout.WithLogger(logger),
		blackout.WithReporter(ui.NewReporter(stderr, cfg.Progress.Enabled)),
	)
	if err != nil {
		return err
	}

	result, err := client.Run(ctx, blackout.Request{
		InputPath:    opts.inputPath,
		OutputPath:   opts.outputPath,
		Password:     opts.password,
		FilterPrefix: opts.filterPrefix,
		ExportImages: opts.exportImages,
	})
	if err != nil {
		return err
	}

	ui.Summary(stdout, result, opts.verbose)

	if result.ExitCode() != 0 {
		return ErrBatchFailed
	}
	return nil
}
