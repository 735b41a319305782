package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/knzhou-cli/knzhou/internal/hours"
	"github.com/spf13/cobra"
)

func newHoursCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "hours",
		Aliases: []string{"h"},
		Short:   "Track hours spent studying handouts",
	}
	cmd.AddCommand(
		newHoursLogCmd(),
		newHoursTotalCmd(),
		newHoursListCmd(),
		newHoursDeleteCmd(),
	)
	return cmd
}

func openHoursStore(cmd *cobra.Command) (*hours.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	path, err := cfg.HoursDB()
	if err != nil {
		return nil, fmt.Errorf("locate hours db: %w", err)
	}
	return hours.NewStore(path)
}

func newHoursLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log <focused> [unfocused]",
		Short: "Record a study session",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := hours.ParseHours(args)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			store, err := openHoursStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			id, err := store.Add(session)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s logged %s focused, %s unfocused %s\n",
				green.Render("✓"), formatHours(session.Focused), formatHours(session.Unfocused), gray.Render("#"+strconv.FormatInt(id, 10)))
			return nil
		},
	}
}

func newHoursTotalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "total",
		Short: "Print total hours logged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			store, err := openHoursStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			focused, unfocused, err := store.Total()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "focused   %s\nunfocused %s\n%s     %s\n",
				formatHours(focused), formatHours(unfocused), bold.Render("total"), formatHours(focused+unfocused))
			return nil
		},
	}
}

func newHoursListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List logged sessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			store, err := openHoursStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			sessions, err := store.List()
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), gray.Render("no sessions logged"))
				return nil
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(gray).
				Headers("ID", "DAY", "", "FOCUSED", "UNFOCUSED")
			for _, s := range sessions {
				t.Row(
					strconv.FormatInt(s.ID, 10),
					s.Day.Local().Format("2006-01-02 15:04"),
					humanize.Time(s.Day),
					formatHours(s.Focused),
					formatHours(s.Unfocused),
				)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return err
		},
	}
}

func newHoursDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a logged session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid session id %q", args[0])
			}
			cmd.SilenceUsage = true

			store, err := openHoursStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s deleted #%d\n", green.Render("✓"), id)
			return nil
		},
	}
}

func formatHours(h float64) string {
	return humanize.FtoaWithDigits(h, 2) + "h"
}
