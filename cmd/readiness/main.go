package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/readiness/internal/config"
	"github.com/readiness/internal/logging"
	"github.com/readiness/internal/readiness"
	"github.com/readiness/internal/storage"
	"github.com/readiness/internal/tracker"
)

var (
	cfg            *config.Config
	db             *storage.Database
	logger         *logging.Logger
	trackerService *tracker.Tracker
)

// skipStore marks commands that only need the config.
const skipStore = "skip-store"

var rootCmd = &cobra.Command{
	Use:          "readiness",
	Short:        "Worker readiness check-ins, streaks and rehabilitation plans",
	Long:         `Readiness tracks daily check-ins against shift schedules, readiness streaks and warm-up progress through rehabilitation plans.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if cmd.Annotations[skipStore] == "true" {
			return nil
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger, err = logging.New(cfg.LogPath)
		if err != nil {
			return err
		}
		db, err = storage.New(cfg.DatabasePath)
		if err != nil {
			logger.Errorf("open database %s: %v", cfg.DatabasePath, err)
			return err
		}
		engine := readiness.New(readiness.Policy{
			CheckInLead: cfg.CheckInLead(),
			CheckInLag:  cfg.CheckInLag(),
			Location:    cfg.GetLocation(),
		})
		trackerService = tracker.New(db, engine, tracker.Options{
			StreakLookbackDays: cfg.StreakLookbackDays,
			Now:                cfg.Now,
			Logger:             logger,
		})
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Close()
		if db != nil {
			return db.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("worker", "w", "", "Worker ID")

	rootCmd.AddCommand(dayCmd)
	rootCmd.AddCommand(streakCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(exceptionCmd)
	rootCmd.AddCommand(checkinCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
