package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"geniereport/internal/config"
	"geniereport/internal/httpx"
	"geniereport/internal/integrations/opsgenie"
	slackbot "geniereport/internal/integrations/slack"
	"geniereport/internal/report"
)

// nowFn is swapped in tests.
var nowFn = time.Now

type rootOptions struct {
	configPath   string
	output       string
	verbose      bool
	slack        bool
	onFetchError string
	outputDir    string
}

// Main runs the CLI and exits non-zero on failure.
func Main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := Execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// Execute runs one command line against the given streams.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "geniereport",
		Short: "Opsgenie alert and on-call reports",
		Long: `geniereport builds reports from Opsgenie alerts and on-call schedules.

Examples:
  # Toil accrued over the last week
  geniereport toil --days 7

  # Alert statistics for last month as JSON
  geniereport stats --last-month -o json

  # Who gets paid what for the current billing period
  geniereport payment

  # Post the weekly on-call digest to Slack
  geniereport oncall --slack`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				log.SetOutput(cmd.ErrOrStderr())
				return
			}
			log.SetOutput(io.Discard)
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default $CONFIG_PATH or ./config.yaml)")
	flags.StringVarP(&opts.output, "output", "o", "text", "output format (text, json)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log diagnostics to stderr")
	flags.BoolVar(&opts.slack, "slack", false, "also post the text report to the configured Slack channel")
	flags.StringVar(&opts.onFetchError, "on-fetch-error", "", "what to do when fetching alerts fails (abort, skip)")
	flags.StringVar(&opts.outputDir, "output-dir", "", "also write the report to a dated file in this directory")

	root.AddCommand(
		newToilCmd(opts),
		newStatsCmd(opts),
		newPaymentCmd(opts),
		newOnCallCmd(opts),
		newNextOnCallCmd(opts),
		newSchedulesCmd(opts),
		newTagCmd(opts),
		newServeCmd(opts),
		newHistoryCmd(opts),
	)
	return root
}

// runEnv is what a command needs once flags and configuration are resolved.
type runEnv struct {
	cfg       config.Config
	format    report.Format
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	postSlack bool
	outputDir string

	client *opsgenie.Client
	poster *slackbot.Poster
}

func (o *rootOptions) env(cmd *cobra.Command) (*runEnv, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.onFetchError != "" {
		switch policy := config.FetchErrorPolicy(o.onFetchError); policy {
		case config.FetchErrorAbort, config.FetchErrorSkip:
			cfg.OnFetchError = policy
		default:
			return nil, fmt.Errorf("--on-fetch-error must be 'abort' or 'skip', got '%s'", o.onFetchError)
		}
	}
	format, err := report.ParseFormat(o.output)
	if err != nil {
		return nil, err
	}
	if o.slack {
		if err := cfg.RequireSlack(); err != nil {
			return nil, err
		}
	}

	timeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf("config ready timezone=%s on_fetch_error=%s http_timeout=%s", cfg.Location, cfg.OnFetchError, timeout)

	outputDir := cfg.ReportOutputDir
	if o.outputDir != "" {
		outputDir = o.outputDir
	}
	return &runEnv{
		cfg:       cfg,
		format:    format,
		stdin:     cmd.InOrStdin(),
		stdout:    cmd.OutOrStdout(),
		stderr:    cmd.ErrOrStderr(),
		postSlack: o.slack,
		outputDir: outputDir,
	}, nil
}

func (e *runEnv) opsgenieClient() *opsgenie.Client {
	if e.client == nil {
		e.client = opsgenie.NewClientFromConfig(e.cfg)
	}
	return e.client
}

func (e *runEnv) slackPoster() (*slackbot.Poster, error) {
	if e.poster == nil {
		p, err := slackbot.NewPosterFromConfig(e.cfg)
		if err != nil {
			return nil, err
		}
		e.poster = p
	}
	return e.poster, nil
}

// now returns the current time in the configured zone.
func (e *runEnv) now() time.Time {
	return nowFn().In(e.cfg.Location)
}
