package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rendis/bioconnect/internal/app"
	"github.com/rendis/bioconnect/internal/config"
	"github.com/rendis/bioconnect/internal/tui"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 {
		var run func([]string) error
		switch os.Args[1] {
		case "search":
			run = runSearch
		case "favorites":
			run = runFavorites
		case "prefs":
			run = runPrefs
		case "export":
			run = runExport
		case "version":
			fmt.Println("bioconnect " + version)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
		if run != nil {
			if err := run(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	// No subcommand → launch TUI
	if err := runTUI(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `bioconnect - annuaire des opérateurs bio (Agence Bio)

Usage:
  bioconnect [flags]              Launch interactive TUI
  bioconnect search [flags]       Search operators
  bioconnect favorites [cmd]      List or remove favorites
  bioconnect prefs [set]          Show or change preferences
  bioconnect export [flags]       Export favorites or search results
  bioconnect version              Show version

Global flags (accepted by every command):
  -config -db -log -base-url -proxy -chrome-tls -page-size -lat -lng

Run 'bioconnect <command> -h' for command flags.
`)
}

func runTUI(args []string) error {
	fs := flag.NewFlagSet("bioconnect", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	fs.Usage = printUsage
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, closeApp, err := openApp(context.Background(), fs, flags)
	if err != nil {
		return err
	}
	defer closeApp()

	return tui.Run(a, version)
}

// openApp resolves the configuration, opens the log file and the application.
// The returned func closes both.
func openApp(ctx context.Context, fs *flag.FlagSet, flags *config.Flags) (*app.App, func(), error) {
	cfg, err := flags.Resolve(fs)
	if err != nil {
		return nil, nil, err
	}

	var out io.Writer = io.Discard
	var logFile *os.File
	if cfg.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0755); err != nil {
			return nil, nil, fmt.Errorf("creating log dir: %w", err)
		}
		logFile, err = os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log: %w", err)
		}
		out = logFile
	}
	logger := log.New(out, "", log.LstdFlags)
	logger.Printf("=== Session start: version=%s command=%s db=%s ===", version, fs.Name(), cfg.DBPath)

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, nil, err
	}

	return a, func() {
		if err := a.Close(); err != nil {
			logger.Printf("APP close err=%v", err)
		}
		if logFile != nil {
			logFile.Close()
		}
	}, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
