package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rendis/bioconnect/internal/config"
	"github.com/rendis/bioconnect/internal/export"
)

func runExport(args []string) error {
	var sf searchFlags
	var source, outputPath, format string

	fs := flag.NewFlagSet("export", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	fs.StringVar(&source, "source", "favorites", "What to export: favorites, search")
	fs.StringVar(&outputPath, "output", "", "Output file path (default: data dir, timestamped)")
	fs.StringVar(&format, "format", "csv", "Export format: csv, json, geojson (search only)")
	sf.register(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bioconnect export [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  bioconnect export -output favoris.csv\n")
		fmt.Fprintf(os.Stderr, "  bioconnect export -source search -q fromage -all -format geojson\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	if source != "favorites" && source != "search" {
		return fmt.Errorf("unsupported source: %s (favorites, search)", source)
	}
	if source == "favorites" && f == export.GeoJSON {
		return fmt.Errorf("favorites have no coordinates; use csv or json")
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, closeApp, err := openApp(ctx, fs, flags)
	if err != nil {
		return err
	}
	defer closeApp()

	// Default output path
	if outputPath == "" {
		ts := time.Now().Format("20060102_150405")
		outputPath = filepath.Join(filepath.Dir(a.Config.DBPath), fmt.Sprintf("bioconnect_%s_%s.%s", source, ts, f.Ext()))
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer out.Close()

	var n int
	switch source {
	case "favorites":
		recs := a.Favorites.List()
		n = len(recs)
		err = export.Favorites(out, f, recs)
	case "search":
		ops, _, _, cerr := collect(ctx, a, sf)
		if cerr != nil {
			return fmt.Errorf("searching: %w", cerr)
		}
		n = len(ops)
		err = export.Operators(out, f, ops, a.Favorites)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}

	fmt.Fprintf(os.Stderr, "Exported %d %s to %s\n", n, source, outputPath)
	return nil
}
