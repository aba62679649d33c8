// Command pr-stats fetches pull request activity from an Azure DevOps
// project, computes per-PR and team-level review metrics, flags statistical
// outliers, and writes a JSON report for downstream renderers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesbondev/pr-stats/internal/adapter/driven/azdo"
	"github.com/jamesbondev/pr-stats/internal/adapter/driven/filecache"
	"github.com/jamesbondev/pr-stats/internal/adapter/driven/reportfile"
	"github.com/jamesbondev/pr-stats/internal/application"
	"github.com/jamesbondev/pr-stats/internal/config"
	"github.com/jamesbondev/pr-stats/internal/domain/model"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var verbose bool

	cmd := &cobra.Command{
		Use:          "pr-stats",
		Short:        "Pull request analytics for Azure DevOps projects",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(verbose)

			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("org", "", "organization URL, e.g. https://dev.azure.com/myorg")
	flags.String("project", "", "project name")
	flags.StringSlice("repos", nil, "restrict to these repositories")
	flags.Int("days", 90, "lookback window in days for closed pull requests")
	flags.String("output", "pr-report.json", "report output path")
	flags.String("pat", "", "personal access token (prefer PRSTATS_PAT or AZDO_PAT)")
	flags.StringSlice("bots", nil, "bot display names to exclude from human metrics")
	flags.StringSlice("bot-ids", nil, "bot identity ids to exclude from human metrics")
	flags.StringSlice("authors", nil, "restrict to pull requests by these authors")
	flags.StringSlice("author-ids", nil, "restrict to pull requests by these author ids")
	flags.Int("max-prs", 0, "cap on pull requests to process (0 = no cap)")
	flags.Bool("no-cache", false, "bypass the local cache and re-enrich everything")
	flags.Bool("clear-cache", false, "delete the local cache for this project and exit")
	flags.Bool("include-builds", false, "fetch CI build runs and include build metrics")
	flags.Int("concurrency", 5, "maximum pull requests enriched simultaneously")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	for flagName, key := range map[string]string{
		"org":            "organization",
		"project":        "project",
		"repos":          "repositories",
		"days":           "days",
		"output":         "output",
		"pat":            "pat",
		"bots":           "bot_names",
		"bot-ids":        "bot_ids",
		"authors":        "authors",
		"author-ids":     "author_ids",
		"max-prs":        "max_prs",
		"no-cache":       "no_cache",
		"clear-cache":    "clear_cache",
		"include-builds": "include_builds",
		"concurrency":    "concurrency",
	} {
		cobra.CheckErr(v.BindPFlag(key, flags.Lookup(flagName)))
	}

	return cmd
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func run(ctx context.Context, cfg *config.Settings) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, err := filecache.New()
	if err != nil {
		return err
	}

	if cfg.ClearCache {
		if err := cache.Delete(cfg.Organization, cfg.Project); err != nil {
			return err
		}
		slog.Info("cache cleared", "organization", cfg.Organization, "project", cfg.Project)
		return nil
	}

	client := azdo.NewClient(cfg.Organization, cfg.Project, cfg.PAT)
	bots := application.NewBotFilter(cfg.BotNames, cfg.BotIDs)

	progress := func(ev application.ProgressEvent) {
		if ev.Total > 0 {
			fmt.Fprintf(os.Stderr, "\r%s: %d/%d", ev.Stage, ev.Done, ev.Total)
			if ev.Done == ev.Total {
				fmt.Fprintln(os.Stderr)
			}
		}
	}

	fetcher := application.NewFetchService(client, cache, bots, application.FetchOptions{
		Organization: cfg.Organization,
		Project:      cfg.Project,
		Days:         cfg.Days,
		Repositories: cfg.Repositories,
		Authors:      cfg.Authors,
		AuthorIDs:    cfg.AuthorIDs,
		MaxPRs:       cfg.MaxPRs,
		NoCache:      cfg.NoCache,
		Concurrency:  cfg.Concurrency,
	}, progress)

	slog.Info("starting run",
		"organization", cfg.Organization,
		"project", cfg.Project,
		"days", cfg.Days,
		"repositories", cfg.RepositoryDisplayName(),
	)

	prs, err := fetcher.Fetch(ctx)
	if err != nil {
		return err
	}
	slog.Info("fetch complete", "pull_requests", len(prs))

	builds := map[int][]model.BuildRun{}
	if cfg.IncludeBuilds {
		buildSvc := application.NewBuildService(client, cfg.Concurrency, progress)
		builds, err = buildSvc.FetchAll(ctx, prs)
		if err != nil {
			return err
		}
		slog.Info("builds fetched", "pull_requests_with_builds", len(builds))
	}

	metrics := make([]model.PRMetrics, 0, len(prs))
	for _, pr := range prs {
		metrics = append(metrics, application.CalculatePRMetrics(pr, builds[pr.ID]))
	}

	team := application.AggregateTeam(metrics, prs)

	outliers := application.DetectOutliers(metrics)
	for _, o := range outliers {
		attrs := []any{
			"pr", o.Metrics.PullRequestID,
			"title", o.Metrics.Title,
			"score", fmt.Sprintf("%.2f", o.CompositeScore),
		}
		for _, f := range o.Flags {
			attrs = append(attrs, f.Label, fmt.Sprintf("%s z=%.2f", f.Severity, f.ZScore))
		}
		slog.Info("outlier", attrs...)
	}

	report := model.Report{
		SchemaVersion:         model.ReportSchemaVersion,
		GeneratedAtUTC:        time.Now().UTC(),
		Organization:          cfg.Organization,
		Project:               cfg.Project,
		RepositoryDisplayName: cfg.RepositoryDisplayName(),
		Days:                  cfg.Days,
		PullRequests:          prs,
		Metrics:               metrics,
		TeamMetrics:           team,
	}

	if err := reportfile.New().Save(cfg.Output, report); err != nil {
		return err
	}

	slog.Info("report written",
		"path", cfg.Output,
		"pull_requests", len(prs),
		"outliers", len(outliers),
	)
	return nil
}
