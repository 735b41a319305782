package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dustin/go-humanize"
	"github.com/knzhou-cli/knzhou/internal/handouts"
	"github.com/knzhou-cli/knzhou/internal/remote"
	"github.com/spf13/cobra"
)

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [handout...]",
		Short: "Download new or changed handouts",
		Long: `Without arguments, lists the handouts published on the site and downloads
every one that is missing or changed since the last run. With arguments, downloads
just the named handouts (for example "E1" or "M2").`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			client, err := remote.New(cfg.RemoteConfig())
			if err != nil {
				return err
			}
			defer client.Close()

			syncer := handouts.NewSyncer(client.Tree, client.Handouts, handouts.Options{
				Root:        cfg.Root(),
				Output:      cfg.OutputPath,
				Workers:     cfg.Workers,
				ProcessLock: true,
			})

			if len(args) > 0 {
				return updateNamed(cmd, syncer, uniqueArgs(args))
			}

			start := time.Now()
			report, err := syncer.SyncAll(cmd.Context())
			if err != nil {
				return err
			}
			stats := client.Stats()
			slog.Debug("remote", "bytes_recv", stats.BytesRecvTotal, "last_error", stats.LastError)
			printReport(cmd.OutOrStdout(), report, stats, time.Since(start))
			return nil
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringP("output-dir", "o", "", "directory handouts are written to")
	cmd.Flags().IntP("workers", "w", 0, "parallel downloads (0 = number of CPUs)")
	return cmd
}

// uniqueArgs drops repeated identifiers, keeping first-seen order.
func uniqueArgs(args []string) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	out := make([]string, 0, len(args))
	for _, a := range args {
		if seen.Add(a) {
			out = append(out, a)
		}
	}
	return out
}

func updateNamed(cmd *cobra.Command, syncer *handouts.Syncer, ids []string) error {
	w := cmd.OutOrStdout()

	var errs []error
	for _, id := range ids {
		output, err := syncer.SyncOne(cmd.Context(), id)
		if err != nil {
			fmt.Fprintf(w, "%s %s %s\n", red.Render("✗"), id, gray.Render(err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		fmt.Fprintf(w, "%s %s %s\n", green.Render("✓"), id, gray.Render(output))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d handouts failed: %w", len(errs), len(ids), errors.Join(errs...))
	}
	return nil
}

func printReport(w io.Writer, report *handouts.Report, stats remote.HTTPStatsSnapshot, elapsed time.Duration) {
	for _, res := range report.Succeeded() {
		fmt.Fprintf(w, "%s %s %s\n", green.Render("✓"), res.Candidate.Identifier, gray.Render(res.Output))
	}
	for _, res := range report.Failed() {
		fmt.Fprintf(w, "%s %s %s\n", red.Render("✗"), res.Candidate.Identifier, gray.Render(res.Err.Error()))
	}

	parts := []string{
		fmt.Sprintf("%d handouts", report.Considered),
		fmt.Sprintf("%d downloaded", len(report.Succeeded())),
		fmt.Sprintf("%d up to date", report.Skipped()),
	}
	if n := len(report.Failed()); n > 0 {
		parts = append(parts, red.Render(fmt.Sprintf("%d failed", n)))
	}
	parts = append(parts, humanize.Bytes(uint64(stats.BytesRecvTotal)), elapsed.Round(time.Millisecond).String())

	rev := report.Revision
	if len(rev) > 7 {
		rev = rev[:7]
	}
	fmt.Fprintf(w, "%s %s %s\n", bold.Render("revision"), cyan.Render(rev), strings.Join(parts, gray.Render(" · ")))

	if report.LoadErr != nil {
		fmt.Fprintf(w, "%s lockfile unreadable, every handout was checked again: %v\n", red.Render("!"), report.LoadErr)
	}
	if report.SaveErr != nil {
		fmt.Fprintf(w, "%s lockfile not saved, the next run will download these again: %v\n", red.Render("!"), report.SaveErr)
	}
}
