package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dawkit/dawkit/internal/buildinfo"
	"github.com/dawkit/dawkit/internal/log"
	"github.com/spf13/cobra"
)

var (
	quietFlag   bool
	verboseFlag bool
	debugFlag   bool
)

// globalCtx is the application-level context that is canceled on SIGINT/SIGTERM.
// Commands should use this context for cancellable operations.
var globalCtx context.Context
var globalCancel context.CancelFunc

var rootCmd = &cobra.Command{
	Use:   "dawkit",
	Short: "An offline-capable package installer for plugin-extensible DAWs",
	Long: `dawkit bootstraps a DAW and its package manager from a resource
directory, then resolves and installs packages from one or more
repository indexes in a single atomic run.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Show errors only")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show verbose output (INFO level)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Show debug output (includes source locations)")

	rootCmd.PersistentPreRun = initLogger
	rootCmd.Version = buildinfo.Version()

	rootCmd.AddCommand(installCmd)
}

func main() {
	globalCtx, globalCancel = context.WithCancel(context.Background())
	defer globalCancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "\nReceived %s, canceling operation...\n", sig)
		globalCancel()

		<-sigChan
		fmt.Fprintln(os.Stderr, "Forced exit")
		exitWithCode(ExitCancelled)
	}()

	if err := rootCmd.Execute(); err != nil {
		if globalCtx.Err() == context.Canceled {
			exitWithCode(ExitCancelled)
		}
		fmt.Fprintln(os.Stderr, err)
		exitWithCode(ExitGeneral)
	}
}

// initLogger initializes the global logger based on flags and environment variables.
func initLogger(cmd *cobra.Command, args []string) {
	level := determineLogLevel()
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})
	log.SetDefault(log.New(handler))

	if level == slog.LevelDebug {
		fmt.Fprintln(os.Stderr, "[DEBUG MODE] Output may contain file paths and URLs. Do not share publicly.")
	}
}

// determineLogLevel returns the appropriate slog.Level based on flags and
// environment variables. Priority: flags > environment variables > default (WARN).
func determineLogLevel() slog.Level {
	if debugFlag {
		return slog.LevelDebug
	}
	if verboseFlag {
		return slog.LevelInfo
	}
	if quietFlag {
		return slog.LevelError
	}

	if isTruthy(os.Getenv("DAWKIT_DEBUG")) {
		return slog.LevelDebug
	}
	if isTruthy(os.Getenv("DAWKIT_VERBOSE")) {
		return slog.LevelInfo
	}
	if isTruthy(os.Getenv("DAWKIT_QUIET")) {
		return slog.LevelError
	}

	return slog.LevelWarn
}

func isTruthy(s string) bool {
	s = strings.ToLower(s)
	return s == "1" || s == "true" || s == "yes" || s == "on"
}
