package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"session_tracker/internal/config"
	"session_tracker/internal/idle"
	"session_tracker/internal/session"
	"session_tracker/internal/store"
	"session_tracker/internal/tui"
)

// shutdownTimeout bounds how long background loops get to finish on exit
const shutdownTimeout = 5 * time.Second

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	logFile    string
	storage    string
	logLevel   string
}

func (f *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "Path to config file")
	fs.StringVar(&f.logFile, "log-file", "", "Session record file (overrides log_file)")
	fs.StringVar(&f.storage, "storage", "", "Storage backend: csv or sqlite")
	fs.StringVar(&f.logLevel, "log-level", "", "Diagnostic log level (trace, debug, info, warn, error)")
}

// loadConfig loads the config file and applies flag overrides on top
func (f *globalFlags) loadConfig() (*config.Config, string, error) {
	path := f.configPath
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}

	if f.logFile != "" {
		cfg.LogFile = f.logFile
	}
	if f.storage != "" {
		cfg.Storage = f.storage
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, path, nil
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           config.AppName,
		Short:         "Track active work sessions from keyboard and mouse idle time",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runTracker(&flags)
		},
	}
	flags.register(root.PersistentFlags())

	root.AddCommand(newSummaryCmd(&flags))
	root.AddCommand(newLogCmd(&flags))
	root.AddCommand(newIdleCmd())
	return root
}

// newLogger writes diagnostics to a file so they never corrupt the TUI
func newLogger(cfg *config.Config) (hclog.Logger, io.Closer, error) {
	path := cfg.DiagnosticsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // path from config
	if err != nil {
		return nil, nil, err
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   config.AppName,
		Level:  hclog.LevelFromString(cfg.Logging.Level),
		Output: f,
	})
	return logger, f, nil
}

// loadLog opens the configured store and reads the whole log, logging any
// unreadable lines.
func loadLog(cfg *config.Config, logger hclog.Logger) (store.Store, []session.Record, error) {
	st, err := store.Open(cfg.Storage, cfg.LogFile, logger)
	if err != nil {
		return nil, nil, err
	}

	log, warnings, err := st.Load()
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	for _, w := range warnings {
		logger.Warn("skipping unreadable record", "error", w)
	}
	return st, log, nil
}

func runTracker(flags *globalFlags) error {
	cfg, cfgPath, err := flags.loadConfig()
	if err != nil {
		return err
	}

	logger, logCloser, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("open diagnostic log: %w", err)
	}
	defer logCloser.Close()

	st, log, err := loadLog(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("session log loaded", "path", st.Path(), "records", len(log), "storage", cfg.Storage)

	writer := store.NewWriter(st, store.WriterOptions{Logger: logger.Named("writer")})
	writer.Start()

	ctrl := session.NewController(session.Options{
		Threshold: cfg.IdleThreshold(),
		Interval:  cfg.CheckInterval(),
		Log:       log,
		Sampler:   idle.NewSampler(),
		Persister: writer,
		Logger:    logger.Named("session"),
	})

	var changes <-chan *config.Config
	watcher, err := config.NewWatcher(cfgPath, logger.Named("config"))
	if err != nil {
		logger.Warn("config hot reload disabled", "path", cfgPath, "error", err)
	} else {
		watcher.Start()
		changes = watcher.Changes
		defer watcher.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctrl.Start(ctx)

	model := tui.NewModel(tui.Options{
		Controller:    ctrl,
		Theme:         cfg.Theme,
		StartHidden:   cfg.UI.StartHidden,
		LogHeight:     cfg.UI.LogHeight,
		SummaryHeight: cfg.UI.SummaryHeight,
		ConfigChanges: changes,
		PersistErrors: writer.Errors,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, runErr := p.Run()

	// An active session is closed as a manual end before the writer flushes
	if err := ctrl.Shutdown(shutdownTimeout); err != nil {
		logger.Error("controller shutdown", "error", err)
	}
	if err := writer.Close(shutdownTimeout); err != nil {
		logger.Error("final save failed", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	logger.Info("session tracker stopped")

	if runErr != nil {
		return fmt.Errorf("error running program: %w", runErr)
	}
	return nil
}

func newSummaryCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print daily totals, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := flags.loadConfig()
			if err != nil {
				return err
			}
			st, log, err := loadLog(cfg, hclog.NewNullLogger())
			if err != nil {
				return err
			}
			defer st.Close()

			printSummary(cmd.OutOrStdout(), session.SortedDays(session.Summarize(log)))
			return nil
		},
	}
}

func printSummary(w io.Writer, days []session.DailySummary) {
	if len(days) == 0 {
		_, _ = fmt.Fprintln(w, "no sessions")
		return
	}
	_, _ = fmt.Fprintf(w, "%-10s  %-9s  %10s  %8s\n", "Date", "Weekday", "Total Time", "Sessions")
	for _, d := range days {
		_, _ = fmt.Fprintf(w, "%-10s  %-9s  %10s  %8d\n", d.Date, d.Weekday, session.FormatDuration(d.Total()), d.SessionCount)
	}
}

func newLogCmd(flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print recorded sessions, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := flags.loadConfig()
			if err != nil {
				return err
			}
			st, log, err := loadLog(cfg, hclog.NewNullLogger())
			if err != nil {
				return err
			}
			defer st.Close()

			printLog(cmd.OutOrStdout(), log, limit)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Only print the newest N sessions (0 for all)")
	return cmd
}

func printLog(w io.Writer, log []session.Record, limit int) {
	if len(log) == 0 {
		_, _ = fmt.Fprintln(w, "no sessions")
		return
	}
	for i, rec := range log {
		if limit > 0 && i >= limit {
			break
		}
		_, _ = fmt.Fprintln(w, session.FormatLogLine(rec))
	}
}

func newIdleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "idle",
		Short: "Print the current idle time reported by the platform",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), session.DefaultSampleTimeout)
			defer cancel()

			d, err := idle.NewSampler().Sample(ctx)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", d.Truncate(time.Second))
			return nil
		},
	}
}
