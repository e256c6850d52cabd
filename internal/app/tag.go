package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"geniereport/internal/domain"
	"geniereport/internal/integrations/llm"
	"geniereport/internal/integrations/opsgenie"
	"geniereport/internal/report"
	"geniereport/internal/tagging"
)

// stdinIsTerminal is swapped in tests.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

type tagOptions struct {
	days    int
	tags    []string
	suggest bool
	dryRun  bool
}

func newTagCmd(root *rootOptions) *cobra.Command {
	opts := &tagOptions{}
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Add a business unit tag to untagged alerts",
		Long: `Walks the recent alerts that carry none of the business unit tags and adds
the chosen one to each. By default the choice is asked for on the terminal;
--suggest asks the language model instead and skips alerts it is unsure of.

Examples:
  geniereport tag
  geniereport tag --suggest --dry-run
  geniereport tag --days 7 --tags deliveryplus,govpress`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := root.env(cmd)
			if err != nil {
				return err
			}
			if err := env.cfg.RequireAPIKey(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				opts.days = env.cfg.TagLookbackDays
			}
			if !cmd.Flags().Changed("tags") {
				opts.tags = env.cfg.TagsToExclude
				if len(opts.tags) == 0 {
					opts.tags = env.cfg.BusinessUnitTags
				}
			}
			if len(opts.tags) == 0 {
				return domain.NewConfigurationError("tags_to_exclude", "no tags to choose from")
			}

			var decide tagging.DecideFunc
			var suggester *llm.Suggester
			if opts.suggest {
				if err := env.cfg.RequireLLM(); err != nil {
					return err
				}
				suggester = llm.NewSuggester(env.cfg)
				decide = suggester.Decide
			} else {
				if !stdinIsTerminal() {
					return fmt.Errorf("tag prompts need an interactive terminal; use --suggest to tag unattended")
				}
				decide = tagging.PromptDecider(env.stdin, env.stderr)
			}

			err = env.tag(cmd.Context(), *opts, decide)
			if suggester != nil {
				u := suggester.Usage()
				log.Printf("llm usage input_tokens=%d output_tokens=%d", u.InputTokens, u.OutputTokens)
			}
			return err
		},
	}
	cmd.Flags().IntVar(&opts.days, "days", 30, "alerts created this many days back; overrides tag_lookback_days")
	cmd.Flags().StringSliceVar(&opts.tags, "tags", nil, "tags to choose from, alerts carrying any are left alone; overrides tags_to_exclude")
	cmd.Flags().BoolVar(&opts.suggest, "suggest", false, "let the language model choose")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "show what would be tagged without changing any alert")
	return cmd
}

func (e *runEnv) tag(ctx context.Context, opts tagOptions, decide tagging.DecideFunc) error {
	client := e.opsgenieClient()
	q := opsgenie.AlertQuery{CreatedFrom: domain.SinceDaysAgo(e.now(), opts.days).From, ExcludeTags: opts.tags}

	alerts, fetchErr := opsgenie.Collect(client.Alerts(ctx, q))
	if fetchErr != nil {
		log.Printf("tag fetch stopped alerts=%d err=%v", len(alerts), fetchErr)
	}
	log.Printf("tag run start alerts=%d dry_run=%t", len(alerts), opts.dryRun)

	results, runErr := tagging.Run(ctx, alerts, opts.tags, decide, client, opts.dryRun)
	if errors.Is(runErr, io.EOF) {
		log.Printf("tag run stopped, input closed after %d alerts", len(results))
		runErr = nil
	}

	err := e.deliver(ctx, outcome{
		kind: "tag",
		date: e.now(),
		render: func(w io.Writer, f report.Format) error {
			return report.WriteTagging(w, f, results)
		},
		partial:  fetchErr != nil,
		fetchErr: fetchErr,
	})
	if runErr != nil {
		return runErr
	}
	return err
}
