// Package main is the FocusPlay entry point: the tray application plus a few
// read-only subcommands over the same data directory.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"focusplay/internal/config"
	"focusplay/internal/storage"
)

const appName = "FocusPlay"

var (
	configPath string
	dataDir    string
	logLevel   string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "focusplay",
		Short:         "Focus timer with work and break music",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTrayCmd,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "path to config.toml")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", config.DefaultDataDir(), "directory for settings, profiles and history")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newProfilesCmd())
	rootCmd.AddCommand(newResumeInfoCmd())
	return rootCmd
}

// loadConfig reads config.toml and lets explicitly set flags win over it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringFlag(cmd, "data-dir", dataDir, &fileCfg.DataDir)
	applyStringFlag(cmd, "log-level", logLevel, &fileCfg.LogLevel)
	return fileCfg.Resolve()
}

func applyStringFlag(cmd *cobra.Command, name, value string, target **string) {
	if cmd.Flags().Changed(name) {
		v := value
		*target = &v
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print sessions completed today and the current streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			history, err := storage.OpenHistory(cfg.DataDir, clockwork.NewRealClock())
			if err != nil {
				return err
			}
			defer func() {
				_ = history.Close()
			}()
			stats, err := history.Stats(context.Background())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Sessions today: %d\n", stats.SessionsToday)
			fmt.Fprintf(out, "Streak: %d\n", stats.Streak)
			return nil
		},
	}
}

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List session profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			profiles, err := storage.NewProfileStore(cfg.DataDir).List()
			if err != nil {
				return err
			}
			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tNAME\tWORK\tBREAK\tMUSIC\tDEFAULT")
			for _, profile := range profiles {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
					profile.ID,
					profile.Name,
					minutes(profile.WorkSec),
					minutes(profile.BreakSec),
					orDash(profile.MusicPath),
					yesNo(profile.IsDefault),
				)
			}
			return writer.Flush()
		},
	}
}

func newResumeInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume-info",
		Short: "Print the session that can be resumed, if any",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store := storage.NewSnapshotStore(cfg.DataDir, clockwork.NewRealClock(), cfg.SnapshotMaxAge)
			snapshot, err := store.LoadSnapshot()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if snapshot == nil {
				fmt.Fprintln(out, "No resumable session.")
				return nil
			}
			state := "running"
			if snapshot.Paused {
				state = "paused"
			}
			fmt.Fprintf(out, "Session: %s (%s, %s)\n", snapshot.SessionID, snapshot.Kind, state)
			fmt.Fprintf(out, "Remaining: %s of %s\n", clockText(snapshot.RemainingSec), clockText(snapshot.TotalSec))
			return nil
		},
	}
}

func minutes(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	if seconds%60 == 0 {
		return fmt.Sprintf("%dm", seconds/60)
	}
	return fmt.Sprintf("%dm%02ds", seconds/60, seconds%60)
}

func clockText(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return ""
}

func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
