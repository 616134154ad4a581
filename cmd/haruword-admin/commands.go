package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sangukO/haru-word/internal/domain"
	"github.com/sangukO/haru-word/internal/usecase"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the usage log and visit tables if they don't exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeFn, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeFn()

			ensurer, ok := store.(schemaEnsurer)
			if !ok {
				return fmt.Errorf("store %q has no schema to migrate", opts.store)
			}
			if err := ensurer.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", opts.store)
			return nil
		},
	}
}

func newUsageCmd(opts *rootOptions) *cobra.Command {
	var (
		userID string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show how many AI generations a user has made today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := opts.location()
			if err != nil {
				return fmt.Errorf("invalid --timezone: %w", err)
			}
			store, closeFn, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeFn()

			since, resetsAt := usecase.QuotaWindow(time.Now(), loc)
			used, err := store.CountUsageSince(cmd.Context(), userID, since)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s: %d/%d used since %s (remaining %d, resets %s)\n",
				userID, used, limit, since.Format(time.RFC3339), max(0, limit-used), resetsAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.Flags().IntVar(&limit, "limit", getEnvIntOrDefault("AI_DAILY_LIMIT", usecase.DefaultDailyLimit), "Daily generation limit (env AI_DAILY_LIMIT)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newLogsCmd(opts *rootOptions) *cobra.Command {
	var (
		userID string
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List a user's AI usage log entries, newest first",
		Long: `List one user's AI usage log entries, newest first.

Entries are always read for a single --user. The DynamoDB table is keyed by
USER#<id>, so a listing across all users would be a full table scan; run such
reports against the postgres store instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := domain.UsageQuery{Limit: limit}
			switch s := domain.UsageStatus(strings.ToUpper(status)); s {
			case "":
			case domain.UsageSuccess, domain.UsageFailure:
				q.Status = s
			default:
				return fmt.Errorf("invalid --status %q (want SUCCESS or FAILURE)", status)
			}
			loc, err := opts.location()
			if err != nil {
				return fmt.Errorf("invalid --timezone: %w", err)
			}
			store, closeFn, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeFn()

			entries, err := store.ListUsageLogs(cmd.Context(), userID, q)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CREATED\tSTATUS\tWORDS\tDETAIL")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					e.CreatedAt.In(loc).Format("2006-01-02 15:04:05"),
					e.Status,
					formatIDs(e.TargetWordIDs),
					entryDetail(e),
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.Flags().StringVar(&status, "status", "", "Only SUCCESS or FAILURE entries")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newVisitsCmd(opts *rootOptions) *cobra.Command {
	var (
		userID string
		year   int
	)
	cmd := &cobra.Command{
		Use:   "visits",
		Short: "List the days a user visited in a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeFn, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeFn()

			visits, err := store.ListVisits(cmd.Context(), userID, fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, v := range visits {
				fmt.Fprintln(out, v.VisitDate)
			}
			fmt.Fprintf(out, "%d day(s) in %d\n", len(visits), year)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "Calendar year")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func formatIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprint(id))
	}
	return strings.Join(parts, ",")
}

func entryDetail(e domain.UsageLogEntry) string {
	switch {
	case e.GeneratedSentence != nil:
		return *e.GeneratedSentence
	case e.ErrorMessage != nil:
		return *e.ErrorMessage
	default:
		return ""
	}
}
