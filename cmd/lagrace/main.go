package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lagrace/internal/app"
	"lagrace/internal/audio"
	"lagrace/internal/config"
	"lagrace/internal/doctor"
	"lagrace/internal/logging"
)

type options struct {
	test       bool
	check      bool
	quiet      bool
	configPath string
}

func main() {
	var opts options
	root := &cobra.Command{
		Use:           "lagrace",
		Short:         "LaGrace, offline French voice assistant for the La Grâce POS",
		Version:       config.AssistantVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	root.Flags().BoolVar(&opts.test, "test", false, "run the self-test without wake word")
	root.Flags().BoolVar(&opts.check, "check", false, "check dependencies and exit")
	root.Flags().BoolVar(&opts.quiet, "quiet", false, "no banner, log to file only")
	root.Flags().StringVar(&opts.configPath, "config", "", "config file (default lagrace.yaml)")

	if err := root.ExecuteContext(context.Background()); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "lagrace: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	if !opts.quiet {
		printBanner(out)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	// Diagnostic modes keep stdout for their report.
	logger, closer := logging.New(cfg.Log, opts.quiet || opts.check || opts.test)
	defer closer.Close()

	if err := audio.Init(); err != nil {
		logger.Warn("audio init failed", "error", err)
	} else {
		defer audio.Terminate()
	}

	switch {
	case opts.check:
		report := doctor.Check(ctx, cfg, audio.Probe)
		report.Write(out)
		if !report.OK() {
			return fmt.Errorf("required dependencies missing")
		}
		return nil
	case opts.test:
		return selfTest(ctx, cfg, out, logger)
	default:
		return serve(ctx, cfg, logger)
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	hw := openHardware(cfg, logger)
	defer hw.Close()

	a, err := app.New(ctx, cfg, hw.collaborators(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}
	logger.Info("assistant ready", "wake_word", cfg.Wake.Word)

	<-ctx.Done()
	logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	a.Stop(shutdownCtx)
	return nil
}

func selfTest(ctx context.Context, cfg config.Config, out io.Writer, logger *slog.Logger) error {
	cfg.Bus.Transport = "none"
	hw := openHardware(cfg, logger)
	defer hw.Close()

	a, err := app.New(ctx, cfg, hw.collaborators(), logger)
	if err != nil {
		return err
	}
	speechCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.Speech().Start(speechCtx)

	t := doctor.SelfTest{
		Speaker:    a.Speech(),
		Classifier: a.Classifier(),
		Dialogue:   a.Session(),
		Out:        out,
	}
	if s := a.Store(); s != nil {
		t.Database = s
		defer s.Close()
	}
	if hw.recognizer != nil {
		t.Recognizer = hw.recognizer
	}
	if !t.Run(ctx).OK() {
		return fmt.Errorf("self-test failed")
	}
	color.New(color.FgGreen).Fprintln(out, "Tests terminés.")
	return nil
}

func printBanner(w io.Writer) {
	cyan := color.New(color.FgCyan)
	cyan.Fprintln(w, "============================================================")
	color.New(color.FgGreen, color.Bold).Fprintln(w, "    AI LAGRACE")
	color.New(color.FgYellow).Fprintln(w, "    Assistant vocal intelligent pour La Grâce POS")
	color.New(color.FgMagenta).Fprintf(w, "    Version %s - 100%% offline\n", config.AssistantVersion)
	cyan.Fprintln(w, "============================================================")
	fmt.Fprintf(w, "    Démarrage: %s (%s/%s)\n\n", time.Now().Format("2006-01-02 15:04:05"), runtime.GOOS, runtime.GOARCH)
}
