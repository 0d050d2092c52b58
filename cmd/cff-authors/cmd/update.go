package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/willynilly/action-update-cff-authors/internal/config"
	"github.com/willynilly/action-update-cff-authors/internal/github"
	"github.com/willynilly/action-update-cff-authors/internal/orcid"
	"github.com/willynilly/action-update-cff-authors/pkg/cff"
	"github.com/willynilly/action-update-cff-authors/pkg/errors"
	"github.com/willynilly/action-update-cff-authors/pkg/events"
	"github.com/willynilly/action-update-cff-authors/pkg/logging"
	"github.com/willynilly/action-update-cff-authors/pkg/match"
	"github.com/willynilly/action-update-cff-authors/pkg/reconcile"
	"github.com/willynilly/action-update-cff-authors/pkg/report"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Reconcile pull-request contributors into the citation file",
	Long: `Update collects the pull request's contribution events, matches every
contributor against the citation file's authors, appends the missing ones,
writes the updated file and the GitHub Actions outputs, and optionally posts
a summary comment on the pull request.

The command exits non-zero when MISSING_AUTHOR_INVALIDATES_PR is set and a
contributor could neither be matched nor added.`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logging.Default()

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	doc, err := cff.LoadFile(cfg.CFFPath)
	if err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	client := github.NewClient(cfg.Token)
	collector := github.NewCollector(client, log)

	evts, err := collector.Collect(ctx, github.CollectOptions{
		Repo:             cfg.Repo,
		CompareRepo:      cfg.CompareRepo,
		BaseBranch:       cfg.BaseBranch,
		HeadBranch:       cfg.HeadBranch,
		PRNumber:         cfg.PRNumber,
		Commits:          cfg.Commits,
		IncludeCoAuthors: cfg.IncludeCoAuthors,
		Reviews:          cfg.Reviews,
		Issues:           cfg.Issues,
		IssueComments:    cfg.IssueComments,
		PRComments:       cfg.PRComments,
		EnrichProfiles:   true,
	})
	if err != nil {
		return err
	}

	engineOpts := []reconcile.Option{
		reconcile.WithConcurrency(cfg.LookupConcurrency),
		reconcile.WithLogger(log),
	}
	if cfg.LookupORCID {
		engineOpts = append(engineOpts,
			reconcile.WithResolver(orcid.New(orcid.WithRetries(cfg.LookupRetries))))
	}

	result, err := reconcile.New(engineOpts...).Run(ctx, evts, doc, reconcile.Config{
		Enabled: map[events.Kind]bool{
			events.KindCommit:       cfg.Commits,
			events.KindCoAuthor:     cfg.Commits && cfg.IncludeCoAuthors,
			events.KindReview:       cfg.Reviews,
			events.KindIssue:        cfg.Issues,
			events.KindIssueComment: cfg.IssueComments,
			events.KindPRComment:    cfg.PRComments,
		},
		Bots:            cfg.BotBlacklist,
		MinimumMetadata: match.MinimumMetadata(cfg.MinimumMetadata),
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(cfg.CFFPath, result.UpdatedCFF, 0o644); err != nil {
		return errors.WrapIO("write", cfg.CFFPath, err)
	}

	if cfg.OutputPath != "" {
		if err := writeOutputs(cfg.OutputPath, result); err != nil {
			return err
		}
	}

	if cfg.PostComment && cfg.PRNumber > 0 {
		body := report.Comment(result, cfg.CFFPath, cfg.CommitSHA, time.Now())
		if err := client.UpsertComment(ctx, cfg.Repo, cfg.PRNumber, report.Marker, body); err != nil {
			// The reconciliation already happened; a comment failure
			// should not fail the workflow.
			log.Warn().Err(err).Msg("posting the pull-request comment failed")
		}
	}

	log.Info().
		Int("new_authors", len(result.NewAuthors)).
		Int("unmatched", len(result.Unmatched)).
		Str("file", cfg.CFFPath).
		Msg("citation file updated")

	verdict := result.Verdict(cfg.MissingAuthorInvalidatesPR)
	if !verdict.Passed {
		return fmt.Errorf("contributors without sufficient author metadata: %s",
			strings.Join(verdict.Blocking, ", "))
	}
	return nil
}

// writeOutputs appends the run's results to the GitHub Actions output file.
func writeOutputs(path string, result *reconcile.Result) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.WrapIO("open", path, err)
	}
	defer f.Close() //nolint:errcheck

	if err := report.WriteOutputs(f, result); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
