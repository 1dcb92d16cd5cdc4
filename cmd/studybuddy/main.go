package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/studybuddy/internal/app"
	"github.com/ayusman/studybuddy/internal/capture"
	"github.com/ayusman/studybuddy/internal/config"
	"github.com/ayusman/studybuddy/internal/focus"
	"github.com/ayusman/studybuddy/internal/hook"
	"github.com/ayusman/studybuddy/internal/progress"
	"github.com/ayusman/studybuddy/internal/server"
	"github.com/ayusman/studybuddy/internal/snapshot"
	"github.com/ayusman/studybuddy/internal/tray"
	"github.com/ayusman/studybuddy/internal/tui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "studybuddy",
		Short:         "Camera-based focus streak tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $STUDYBUDDY_CONFIG)")

	root.AddCommand(newRunCmd(&configPath))
	root.AddCommand(newProgressCmd(&configPath))
	root.AddCommand(newSnapshotCmd(&configPath))
	root.AddCommand(newHooksCmd(&configPath))
	return root
}

func newRunCmd(configPath *string) *cobra.Command {
	var ui string
	var addr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Track focus until quit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath, func(c *config.Config) {
				if cmd.Flags().Changed("ui") {
					c.UI.Mode = ui
				}
				if cmd.Flags().Changed("addr") {
					c.Server.Addr = addr
					c.Server.Enabled = true
				}
			})
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			return run(cfg)
		},
	}
	cmd.Flags().StringVar(&ui, "ui", config.UITray, "frontend: tray, tui or headless")
	cmd.Flags().StringVar(&addr, "addr", "", "serve the local HTTP API on this address")
	return cmd
}

func run(cfg config.Config) error {
	logger, closeLog, err := newLogger(cfg.Log, cfg.UI.Mode == config.UITUI)
	if err != nil {
		return err
	}
	defer closeLog()

	a, err := app.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("shutdown incomplete", "error", err)
		}
	}()

	if err := a.Open(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Server.Enabled {
		srv := server.New(server.Config{
			Tracker:      a,
			StaticDir:    cfg.Server.StaticDir,
			PushInterval: cfg.Loop.Tick,
			Logger:       logger,
		})
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
				logger.Error("http server failed", "error", err)
			}
		}()
	}

	logger.Info("studybuddy running", "ui", cfg.UI.Mode)

	switch cfg.UI.Mode {
	case config.UITUI:
		a.Submit(app.IntentStart)
		return tui.Run(ctx, a, cfg.Snapshot.Label)

	case config.UIHeadless:
		a.Submit(app.IntentStart)
		return a.Run(ctx)

	default:
		return runTray(ctx, cancel, a, cfg.Loop.Tick)
	}
}

// runTray blocks in the tray loop, which must own the main goroutine.
func runTray(ctx context.Context, cancel context.CancelFunc, a *app.App, interval time.Duration) error {
	t := tray.New()
	t.OnIntent(func(i app.Intent) { a.Submit(i) })
	t.OnQuit(cancel)

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	go t.Watch(ctx, a, interval)
	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
	cancel()
	return <-done
}

func newProgressCmd(configPath *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Print stored points and best streak",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			p, err := loadProgress(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return printProgress(cmd.OutOrStdout(), p, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func loadProgress(ctx context.Context, cfg config.Config) (progress.Progress, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)}))
	st, err := app.OpenStore(cfg.Store, logger)
	if err != nil {
		return progress.Progress{}, err
	}
	if c, ok := st.(io.Closer); ok {
		defer c.Close()
	}
	return st.Load(ctx), nil
}

func printProgress(w io.Writer, p progress.Progress, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	lastSaved := "never"
	if t := p.LastSavedTime(); !t.IsZero() {
		lastSaved = t.Format(time.RFC3339)
	}
	_, err := fmt.Fprintf(w, "Total points: %d\nBest streak:  %s\nLast saved:   %s\n",
		p.TotalPoints, focus.FormatSeconds(p.BestStreakSeconds), lastSaved)
	return err
}

func newHooksCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "hooks [name]",
		Short: "List installed event hooks, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			m := hook.NewManager(cfg.Hooks.Dir, slog.New(slog.DiscardHandler))
			if err := m.Discover(); err != nil {
				return fmt.Errorf("discover hooks: %w", err)
			}
			if len(args) == 1 {
				h, err := m.Get(args[0])
				if err != nil {
					return fmt.Errorf("%w: %s in %s", err, args[0], m.Dir())
				}
				return printHook(cmd.OutOrStdout(), h)
			}
			return printHooks(cmd.OutOrStdout(), m, cfg.Hooks.Enabled)
		},
	}
}

func printHooks(w io.Writer, m *hook.Manager, enabled bool) error {
	hooks := m.List()
	if len(hooks) == 0 {
		_, err := fmt.Fprintf(w, "No hooks installed in %s\n", m.Dir())
		return err
	}
	if !enabled {
		if _, err := fmt.Fprintln(w, "Hooks are disabled (hooks.enabled: false)"); err != nil {
			return err
		}
	}
	for _, h := range hooks {
		if _, err := fmt.Fprintf(w, "%s %s  events=%s  %s\n",
			h.Manifest.Name, h.Manifest.Version, strings.Join(h.Manifest.Events, ","), h.Manifest.Description); err != nil {
			return err
		}
	}
	return nil
}

func printHook(w io.Writer, h *hook.Hook) error {
	_, err := fmt.Fprintf(w, "Name:        %s\nVersion:     %s\nDescription: %s\nEvents:      %s\nExecutable:  %s\n",
		h.Manifest.Name, h.Manifest.Version, h.Manifest.Description,
		strings.Join(h.Manifest.Events, ","), h.Executable)
	return err
}

func newSnapshotCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Capture one frame with your stored stats and save it as PNG",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			p, err := loadProgress(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			cam := app.NewCamera(cfg.Camera)
			if err := cam.Open(); err != nil {
				return fmt.Errorf("%w: %w", app.ErrCameraUnavailable, err)
			}
			defer cam.Close()

			frame, err := capture.ReadWithRetry(cam, 10, 50*time.Millisecond)
			if err != nil {
				return fmt.Errorf("snapshot failed: %w", err)
			}
			defer frame.Close()

			path, err := snapshot.NewExporter(cfg.Snapshot.Dir).Export(*frame, snapshot.Overlay{
				Label:             cfg.Snapshot.Label,
				TotalPoints:       p.TotalPoints,
				BestStreakSeconds: p.BestStreakSeconds,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
