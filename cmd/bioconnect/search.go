package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/rendis/bioconnect/internal/app"
	"github.com/rendis/bioconnect/internal/config"
	"github.com/rendis/bioconnect/internal/engine/agencebio"
	"github.com/rendis/bioconnect/internal/engine/geo"
	"github.com/rendis/bioconnect/internal/export"
	"github.com/rendis/bioconnect/internal/model"
)

// searchFlags are shared by search and export -source search.
type searchFlags struct {
	query   string
	filters string
	pages   int
	all     bool
	near    bool
	radius  float64
}

func (sf *searchFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&sf.query, "q", "", "Search text (name, product, city)")
	fs.StringVar(&sf.filters, "filters", "", "Comma-separated filters, or \"none\" (default: saved preferences)")
	fs.IntVar(&sf.pages, "pages", 1, "Pages to fetch")
	fs.BoolVar(&sf.all, "all", false, "Fetch every page")
	fs.BoolVar(&sf.near, "near", false, "Search around your position (config lat/lng or default address)")
	fs.Float64Var(&sf.radius, "radius", 0, "With -near, keep only operators within this many km")
}

func (sf *searchFlags) filterSet() (model.FilterSet, error) {
	switch strings.TrimSpace(sf.filters) {
	case "":
		return nil, nil
	case "none":
		return model.NewFilterSet(), nil
	}
	fs := model.NewFilterSet()
	for _, s := range strings.Split(sf.filters, ",") {
		f, err := model.ParseFilter(s)
		if err != nil {
			return nil, err
		}
		fs[f] = struct{}{}
	}
	return fs, nil
}

func filterHelp() string {
	var b strings.Builder
	b.WriteString("\nFilters:\n")
	for _, f := range model.AllFilters {
		fmt.Fprintf(&b, "  %-30s %s\n", f, f.Label())
	}
	return b.String()
}

// firstPageURL is the request a session would start with.
func firstPageURL(ctx context.Context, a *app.App, sf searchFlags) (string, error) {
	filters, err := sf.filterSet()
	if err != nil {
		return "", err
	}
	if filters == nil {
		filters = a.Prefs.Current().Filters()
	}
	req := agencebio.Request{
		Query:   sf.query,
		Filters: filters,
		Limit:   a.Config.PageSize,
	}
	if sf.near {
		req.Origin, _ = a.Origin(ctx)
	}
	return a.Client.URL(req), nil
}

// collect drives the search controller through the requested pages.
func collect(ctx context.Context, a *app.App, sf searchFlags) ([]model.Operator, *model.Coordinates, int, error) {
	filters, err := sf.filterSet()
	if err != nil {
		return nil, nil, 0, err
	}

	var origin *model.Coordinates
	if sf.near {
		origin, err = a.Locate(ctx)
		if origin == nil {
			fmt.Fprintf(os.Stderr, "Position unavailable (%v), searching without location\n", err)
		}
	}

	t, err := a.Search.StartSession(ctx, sf.query, filters, origin)
	if err != nil {
		return nil, nil, 0, err
	}
	for page := 1; ; page++ {
		out, err := t.Wait(ctx)
		if err != nil {
			return nil, nil, 0, err
		}
		if out.Err != nil {
			st := a.Search.State()
			if len(st.Results) == 0 {
				return nil, nil, 0, out.Err
			}
			fmt.Fprintf(os.Stderr, "Page %d failed: %v (keeping %d results)\n", page, out.Err, len(st.Results))
			break
		}
		if !sf.all && page >= sf.pages {
			break
		}
		next, ok := a.Search.LoadNextPage(ctx)
		if !ok {
			break
		}
		t = next
	}

	st := a.Search.State()
	ops := st.Results
	if st.Origin != nil && sf.radius > 0 {
		kept := ops[:0]
		for _, op := range ops {
			if c, ok := op.Coordinates(); ok && geo.DistanceKm(*st.Origin, c) <= sf.radius {
				kept = append(kept, op)
			}
		}
		ops = kept
	}
	return ops, st.Origin, st.Total, nil
}

func runSearch(args []string) error {
	var sf searchFlags
	var format, outputPath string
	var dryRun bool

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	sf.register(fs)
	fs.StringVar(&format, "format", "table", "Output format: table, csv, json, geojson")
	fs.StringVar(&outputPath, "output", "", "Write to file instead of stdout")
	fs.BoolVar(&dryRun, "dry-run", false, "Print the first request URL and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bioconnect search [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprint(os.Stderr, filterHelp())
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  bioconnect search -q miel -filters filtrerVenteDetail\n")
		fmt.Fprintf(os.Stderr, "  bioconnect search -q pain -near -radius 10 -all -format csv -output pain.csv\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if sf.pages < 1 {
		return fmt.Errorf("-pages must be at least 1")
	}
	var f export.Format
	if format != "table" {
		var err error
		if f, err = export.ParseFormat(format); err != nil {
			return err
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, closeApp, err := openApp(ctx, fs, flags)
	if err != nil {
		return err
	}
	defer closeApp()

	if dryRun {
		u, err := firstPageURL(ctx, a, sf)
		if err != nil {
			return err
		}
		fmt.Println(u)
		return nil
	}

	ops, origin, total, err := collect(ctx, a, sf)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	w, closeOut, err := output(outputPath)
	if err != nil {
		return err
	}
	defer closeOut()

	if f == "" {
		printOperators(w, ops, origin, a.Favorites)
	} else {
		if err := export.Operators(w, f, ops, a.Favorites); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}
	}

	fmt.Fprintf(os.Stderr, "%d shown, %d matching\n", len(ops), total)
	return nil
}

// output returns stdout or the created file.
func output(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// terminalWidth is the stdout width, or 120 when stdout is not a terminal.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 120
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w < 60 {
		return 120
	}
	return w
}

// column pads or truncates s to exactly width cells.
func column(s string, width int) string {
	s = runewidth.Truncate(s, width, "…")
	return runewidth.FillRight(s, width)
}

func printOperators(w io.Writer, ops []model.Operator, origin *model.Coordinates, favs geo.FavoriteChecker) {
	width := terminalWidth()
	distW := 0
	if origin != nil {
		distW = 9
	}
	rest := width - 2 - 7 - 6 - distW - 4
	nameW := rest * 4 / 10
	cityW := rest * 2 / 10
	actW := rest - nameW - cityW

	header := "  " + column("ID", 7) + column("Nom", nameW) + " " + column("Ville", cityW) + " " + column("CP", 6) + column("Activités", actW)
	if distW > 0 {
		header += " " + column("Distance", distW)
	}
	fmt.Fprintln(w, header)

	for _, op := range ops {
		addr, _ := op.PrimaryAddress()
		mark := "  "
		if favs != nil && favs.IsFavorite(op.ID) {
			mark = "★ "
		}
		line := mark + column(fmt.Sprint(op.ID), 7) + column(op.DisplayName(), nameW) + " " +
			column(addr.Ville, cityW) + " " + column(addr.CodePostal, 6) + column(op.ActivitiesText(), actW)
		if distW > 0 {
			d := ""
			if c, ok := op.Coordinates(); ok {
				d = fmt.Sprintf("%.1f km", geo.DistanceKm(*origin, c))
			}
			line += " " + column(d, distW)
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}
