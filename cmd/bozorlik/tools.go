package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"bozorlik/internal/amount"
	"bozorlik/internal/database"
	"bozorlik/internal/metrics"
	"bozorlik/internal/shared"

	"github.com/spf13/cobra"
)

func parseAmountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "parse-amount <text>",
		Short:   "Read a spend amount from free text, e.g. \"150 тысяч\" or \"1.2 mln\"",
		Args:    cobra.MinimumNArgs(1),
		Example: "  bozorlik parse-amount 45к\n  bozorlik parse-amount --lang uz 120 ming so'm",
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, _ := cmd.Flags().GetString("lang")
			if !shared.IsSupportedLanguage(lang) {
				return fmt.Errorf("unsupported language %q", lang)
			}
			text := strings.Join(args, " ")
			value := amount.Parse(text)
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"text":      text,
				"amount":    value,
				"formatted": amount.Format(value, lang),
			})
		},
	}
	cmd.Flags().String("lang", shared.LangRU, "currency language (ru, uz)")
	return cmd
}

func metricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "LLM usage metrics",
	}

	report := &cobra.Command{
		Use:   "report",
		Short: "Print daily and per-agent token usage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			days, _ := cmd.Flags().GetInt("days")
			db, err := database.NewDB(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			store := metrics.NewStore(db.SQL)
			daily, err := store.GetDailyUsage(cmd.Context(), days)
			if err != nil {
				return err
			}
			agents, err := store.GetUsageByAgent(cmd.Context(), days)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"daily":  daily,
				"agents": agents,
				"system": metrics.GetSysHealth(filepath.Dir(cfg.Database.Path)),
			})
		},
	}
	report.Flags().Int("days", 7, "days to include")

	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete metrics older than the retention period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			retention, _ := cmd.Flags().GetDuration("retention")
			if retention <= 0 {
				retention = cfg.Metrics.Retention
			}
			db, err := database.NewDB(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := metrics.NewStore(db.SQL).Cleanup(cmd.Context(), retention)
			if err != nil {
				return err
			}
			slog.Info("✅ Metrics cleanup finished", "deleted", n, "retention", retention)
			return nil
		},
	}
	cleanup.Flags().Duration("retention", 0, "keep metrics younger than this (default: metrics.retention)")

	cmd.AddCommand(report, cleanup)
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Apply, roll back or inspect the embedded schema migrations of the
SQLite database at database.path.`,
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			slog.Info("🗄️  Running database migrations...", "database", cfg.Database.Path)
			if err := database.RunMigrations(cfg.Database.Path); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			slog.Info("✅ Database migrations completed successfully!")
			return nil
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			if err := database.RollbackMigrations(cfg.Database.Path, steps); err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			slog.Info("Rolled back migrations", "steps", steps)
			return nil
		},
	}
	down.Flags().Int("steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ver, dirty, err := database.MigrationVersion(cfg.Database.Path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", ver, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}
