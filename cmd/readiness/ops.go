package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/readiness/internal/api"
	"github.com/readiness/internal/config"
	"github.com/readiness/internal/fixtures"
	"github.com/readiness/internal/report"
)

var importCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Load schedules, exceptions, check-ins and plans from YAML",
	Long: `Validate a YAML fixture file and write every record in one transaction.
Nothing is written if any record is invalid or conflicts with stored data.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		batch, err := fixtures.Load(args[0])
		if err != nil {
			return err
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if dryRun {
			fmt.Printf("[DRY RUN] %d record(s) valid: %d schedule(s), %d exception(s), %d check-in(s), %d plan(s), %d completion(s)\n",
				batch.Len(), len(batch.Schedules), len(batch.Exceptions), len(batch.CheckIns), len(batch.Plans), len(batch.Completions))
			return nil
		}
		if err := db.Import(cmd.Context(), batch); err != nil {
			logger.Errorf("import %s: %v", args[0], err)
			return err
		}
		logger.Infof("imported %d record(s) from %s", batch.Len(), args[0])
		fmt.Printf("Imported %d record(s) from %s\n", batch.Len(), args[0])
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a worker's readiness report",
	Long: `Export obligations, streak and plan progress over a date range.

Formats: md, json, xlsx, svg, html. Files are written as
<worker>_<from>_<to>.<format> in the export directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = filepath.Join(filepath.Dir(cfg.DatabasePath), "exports")
		}
		exporter := report.NewExporter(trackerService, dir)

		if list, _ := cmd.Flags().GetBool("list"); list {
			names, err := exporter.ListExports()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("No exports found.")
				return nil
			}
			fmt.Printf("Exports in %s:\n", dir)
			for _, name := range names {
				fmt.Printf("  %s\n", name)
			}
			return nil
		}

		worker, err := workerFlag(cmd)
		if err != nil {
			return err
		}
		today := trackerService.Today()
		to, err := dateFlag(cmd, "to", today)
		if err != nil {
			return err
		}
		from, err := dateFlag(cmd, "from", to.AddDays(-27))
		if err != nil {
			return err
		}
		if to.Before(from) {
			return fmt.Errorf("--to %s is before --from %s", to, from)
		}

		formatStrs, _ := cmd.Flags().GetStringSlice("format")
		for _, s := range formatStrs {
			format, err := report.ParseFormat(s)
			if err != nil {
				return err
			}
			path, err := exporter.Export(cmd.Context(), worker, from, to, format)
			if err != nil {
				return err
			}
			fmt.Printf("Exported %s\n", path)
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve readiness over HTTP",
	Long:  `Start a read-only JSON API for day, streak, plan, schedule and exception lookups.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port := cfg.ServerPort
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server := api.NewServer(port, trackerService, logger)
		server.OnShutdown(func() {
			logger.Infof("API on port %d shutting down", port)
		})
		fmt.Printf("Serving on http://localhost:%d (Ctrl+C to stop)\n", port)
		return server.Start(ctx)
	},
}

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Show current configuration",
	Long:        `Display the current configuration settings and readiness rules.`,
	Annotations: map[string]string{skipStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Config: DB=%s | Log=%s | Port=%d\n", cfg.DatabasePath, cfg.LogPath, cfg.ServerPort)
		zone := cfg.TimeZone
		if zone == "" {
			zone = "local"
		}
		fmt.Printf("Rules: Zone: %s | Check-in: %dmin before to %dmin after shift start | Streak lookback: %d days\n",
			zone, cfg.CheckInLeadMinutes, cfg.CheckInLagMinutes, cfg.StreakLookbackDays)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:         "validate",
	Short:       "Check the configuration for errors",
	Annotations: map[string]string{skipStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		fmt.Println("Configuration OK")
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write the current configuration to the config file",
	Annotations: map[string]string{skipStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if tz, _ := cmd.Flags().GetString("timezone"); tz != "" {
			cfg.TimeZone = tz
		}
		if cmd.Flags().Changed("port") {
			cfg.ServerPort, _ = cmd.Flags().GetInt("port")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Println("Configuration saved.")
		return nil
	},
}

func init() {
	importCmd.Flags().Bool("dry-run", false, "Validate without writing")

	exportCmd.Flags().String("from", "", "First date (YYYY-MM-DD, default four weeks before --to)")
	exportCmd.Flags().String("to", "", "Last date (YYYY-MM-DD, default today)")
	exportCmd.Flags().StringSliceP("format", "f", []string{"md"}, "Output formats: md, json, xlsx, svg, html")
	exportCmd.Flags().String("dir", "", "Export directory (default next to the database)")
	exportCmd.Flags().BoolP("list", "l", false, "List existing exports instead")

	serveCmd.Flags().IntP("port", "p", 0, "Port (default from config)")

	configInitCmd.Flags().String("timezone", "", "IANA time zone, e.g. Europe/Berlin")
	configInitCmd.Flags().Int("port", 0, "API port")

	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configInitCmd)
}
