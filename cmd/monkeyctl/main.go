// Command monkeyctl is the controller: it launches a target application
// linked against the agent library, accepts its wire connection, and
// drives scripts supplied via --script or stdin "run script" commands.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ehrlich-b/deskmonkey/internal/config"
	"github.com/ehrlich-b/deskmonkey/internal/controller"
	"github.com/ehrlich-b/deskmonkey/internal/history"
	"github.com/ehrlich-b/deskmonkey/internal/logging"
	"github.com/ehrlich-b/deskmonkey/internal/observer"
	"github.com/ehrlich-b/deskmonkey/internal/protocol"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		userApp           string
		userAppArgs       []string
		scripts           []string
		exitOnScriptError bool
		logLevel          string
		logFile           string
		historyDB         string
		observerAddr      string
	)

	root := &cobra.Command{
		Use:   "monkeyctl --user-app <path> [--script <file>]...",
		Short: "drive a GUI application through recorded or hand-written scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userApp == "" {
				return fmt.Errorf("--user-app is required")
			}
			cfg := &config.Config{
				UserApp:           userApp,
				UserAppArgs:       userAppArgs,
				ExitOnScriptError: exitOnScriptError,
				LogLevel:          logLevel,
				LogFile:           logFile,
				HistoryDB:         historyDB,
				ObserverAddr:      observerAddr,
			}
			return run(cfg, scripts)
		},
	}

	root.Flags().StringVar(&userApp, "user-app", "", "path to the target application binary")
	root.Flags().StringSliceVar(&userAppArgs, "user-app-arg", nil, "argument to pass through to the target application (repeatable)")
	root.Flags().StringArrayVar(&scripts, "script", nil, "script file to queue before launch (repeatable)")
	root.Flags().BoolVar(&exitOnScriptError, "exit-on-script-error", false, "abort the run as soon as a script reports an error")
	root.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")
	root.Flags().StringVar(&logFile, "log-file", "", "append structured logs to this file in addition to stdout")
	root.Flags().StringVar(&historyDB, "history-db", "", "SQLite file recording this run (defaults to deskmonkey-history.sqlite)")
	root.Flags().StringVar(&observerAddr, "observer-addr", "", "serve a live GET /v1/observe WebSocket on this address (disabled if empty)")

	return root
}

func run(cfg *config.Config, scriptFiles []string) error {
	if err := logging.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	if cfg.HistoryDB == "" {
		cfg.HistoryDB = "deskmonkey-history.sqlite"
	}
	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	sessionID := uuid.NewString()
	startedAt := time.Now()
	if err := store.StartSession(history.Session{
		ID: sessionID, StartedAt: startedAt, UserAppPath: cfg.UserApp, UserAppArgs: cfg.UserAppArgs,
	}); err != nil {
		logging.Warn("monkeyctl: could not record session", "err", err)
	}

	var hub *observer.Hub
	if cfg.ObserverAddr != "" {
		hub = observer.NewHub()
		go func() {
			if err := http.ListenAndServe(cfg.ObserverAddr, withObservePath(hub)); err != nil {
				logging.Error("monkeyctl: observer server exited", "err", err)
			}
		}()
	}

	observe := func(kind, payload string) {
		if hub != nil {
			hub.Broadcast(kind, payload)
		}
		if err := store.RecordEvent(history.EventRecord{SessionID: sessionID, Kind: history.EventKind(kind), Payload: payload, At: time.Now()}); err != nil {
			logging.Debug("monkeyctl: record event failed", "err", err)
		}
	}

	// The target's stdout/stderr must not be piped straight to os.Stdout:
	// that stream already carries the controller's own JSON-lines protocol
	// output, and raw child bytes would break the one-value-per-line
	// contract. Each line is wrapped as {"app output":...}/{"app errors":...}
	// instead, and fanned out through the same observe hook as every other
	// packet-derived event.
	stdoutRelay := protocol.NewLineRelay(protocol.EncodeAppOutput, func(encoded, raw string) {
		fmt.Fprintln(os.Stdout, encoded)
		observe("output", raw)
	})
	stderrRelay := protocol.NewLineRelay(protocol.EncodeAppErrors, func(encoded, raw string) {
		fmt.Fprintln(os.Stdout, encoded)
		observe("error", raw)
	})

	ctrl := controller.New(controller.Config{
		Launcher: &controller.ExecLauncher{
			Path:   cfg.UserApp,
			Args:   cfg.UserAppArgs,
			Stdout: stdoutRelay,
			Stderr: stderrRelay,
		},
		ExitOnScriptError: cfg.ExitOnScriptError,
		Stdout:            os.Stdout,
		Exit:              os.Exit,
		Observe:           observe,
		OnDispatch: func(fileName string, beginLine int, runAfterAppStart bool) {
			err := store.RecordFragment(history.FragmentRecord{
				SessionID: sessionID, FileName: fileName, BeginLine: beginLine,
				RunAfterAppStart: runAfterAppStart, DispatchedAt: time.Now(),
			})
			if err != nil {
				logging.Debug("monkeyctl: record fragment failed", "err", err)
			}
		},
	})

	for _, path := range scriptFiles {
		code, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read script %s: %w", path, err)
		}
		ctrl.EnqueueScript(path, string(code))
	}

	_, err = ctrl.Run(os.Stdin)
	return err
}

func withObservePath(hub *observer.Hub) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /v1/observe", hub.Handler())
	return mux
}
