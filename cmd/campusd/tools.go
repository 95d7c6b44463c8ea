package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"campus-facility-backend/config"
	"campus-facility-backend/internal/auth"
	"campus-facility-backend/internal/clock"
	"campus-facility-backend/internal/db"
	"campus-facility-backend/internal/notify"
	"campus-facility-backend/internal/seed"
	"campus-facility-backend/internal/store"
)

func newSeedCmd() *cobra.Command {
	var (
		fixture string
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the seed fixture into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if fixture == "" {
				fixture = cfg.SeedPath
			}
			if fixture == "" {
				return errors.New("no fixture given: pass --file or set seed_path")
			}
			f, err := seed.Load(fixture)
			if err != nil {
				return err
			}

			gormDB, err := db.Init(&cfg.Database)
			if err != nil {
				return err
			}
			ctx := context.Background()
			svc, err := openService(ctx, cfg, store.NewGormStore(gormDB), notify.NewBus())
			if err != nil {
				return err
			}
			applied, err := seed.Apply(ctx, svc, f, force)
			if err != nil {
				return err
			}
			if !applied {
				fmt.Fprintln(cmd.OutOrStdout(), "database already holds data; rerun with --force to replace the inventory")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fixture, "file", "", "fixture path (defaults to seed_path)")
	cmd.Flags().BoolVar(&force, "force", false, "seed even when data exists; inventory and loans are replaced")
	return cmd
}

func newWindowsCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "Show the configured meal windows and gate hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			opts, err := cfg.FacilityOptions()
			if err != nil {
				return err
			}

			now := time.Now().In(opts.Location)
			if at != "" {
				m, err := clock.ParseHHMM(at)
				if err != nil {
					return err
				}
				now = time.Date(now.Year(), now.Month(), now.Day(), m/60, m%60, 0, 0, opts.Location)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "timezone %s, now %s\n", opts.Location, now.Format("2006-01-02 15:04"))
			for _, w := range opts.MealWindows {
				fmt.Fprintf(out, "  %-10s %s-%s\n", w.Label, clock.FormatMinute(w.Start), clock.FormatMinute(w.End))
			}
			open := "closed"
			if clock.IsWithinOperatingHours(now, opts.GateHours) {
				open = "open"
			}
			fmt.Fprintf(out, "gate %s (%s)\n", opts.GateHours, open)

			res := clock.Resolve(now, opts.MealWindows)
			switch {
			case res.Active != nil:
				fmt.Fprintf(out, "serving %s\n", res.Active.Label)
			case res.Next != nil:
				fmt.Fprintf(out, "next meal %s in %d minutes\n", res.Next.Label, res.MinutesUntilNext)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "resolve at HH:MM today instead of now")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for a staff account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := ""
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("empty password")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
