package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rendis/bioconnect/internal/app"
	"github.com/rendis/bioconnect/internal/config"
	"github.com/rendis/bioconnect/internal/model"
)

func runFavorites(args []string) error {
	sub := "list"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		sub, args = args[0], args[1:]
	}

	var sf searchFlags
	fs := flag.NewFlagSet("favorites", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	sf.register(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bioconnect favorites [list|add <id>...|remove <id>...] [flags]\n\n")
		fmt.Fprintf(os.Stderr, "list filters the saved favorites with -q. add runs a search with the\n")
		fmt.Fprintf(os.Stderr, "search flags and pins the operators with the given ids.\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  bioconnect favorites -q nantes\n")
		fmt.Fprintf(os.Stderr, "  bioconnect favorites add -q \"ferme du pré\" -all 1234\n")
		fmt.Fprintf(os.Stderr, "  bioconnect favorites remove 1234 5678\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	var ids []int
	switch sub {
	case "list":
	case "add", "remove", "rm":
		if fs.NArg() == 0 {
			return fmt.Errorf("%s needs at least one operator id", sub)
		}
		for _, s := range fs.Args() {
			id, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("invalid operator id %q", s)
			}
			ids = append(ids, id)
		}
	default:
		fs.Usage()
		return fmt.Errorf("unknown favorites command %q", sub)
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, closeApp, err := openApp(ctx, fs, flags)
	if err != nil {
		return err
	}
	defer closeApp()

	switch sub {
	case "list":
		printFavorites(os.Stdout, a.Favorites.Search(sf.query))
		return nil
	case "add":
		if err := addFavorites(ctx, a, sf, ids); err != nil {
			return err
		}
	default:
		for _, id := range ids {
			if a.Favorites.Remove(id) {
				fmt.Fprintf(os.Stderr, "Removed %d\n", id)
			} else {
				fmt.Fprintf(os.Stderr, "%d is not a favorite\n", id)
			}
		}
	}
	if err := a.Favorites.Flush(ctx); err != nil {
		return err
	}
	if n := a.Favorites.Failures(); n > 0 {
		return fmt.Errorf("%d favorite write(s) failed, see the log", n)
	}
	return nil
}

// addFavorites finds the ids among the search results and pins them.
func addFavorites(ctx context.Context, a *app.App, sf searchFlags, ids []int) error {
	ops, _, _, err := collect(ctx, a, sf)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}
	byID := make(map[int]model.Operator, len(ops))
	for _, op := range ops {
		byID[op.ID] = op
	}

	var missing []string
	for _, id := range ids {
		op, ok := byID[id]
		switch {
		case !ok:
			missing = append(missing, strconv.Itoa(id))
		case a.Favorites.Add(op):
			fmt.Fprintf(os.Stderr, "Added %d %s\n", id, op.DisplayName())
		default:
			fmt.Fprintf(os.Stderr, "%d is already a favorite\n", id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("not found in %d results: %s (refine -q or use -all)", len(ops), strings.Join(missing, ", "))
	}
	return nil
}

func printFavorites(w io.Writer, recs []model.FavoriteRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(os.Stderr, "No favorites")
		return
	}

	rest := terminalWidth() - 7 - 6 - 11 - 3
	nameW := rest * 4 / 10
	cityW := rest * 2 / 10
	actW := rest - nameW - cityW

	fmt.Fprintln(w, column("ID", 7)+column("Nom", nameW)+" "+column("Ville", cityW)+" "+
		column("CP", 6)+column("Activités", actW)+" "+"Ajouté le")
	for _, r := range recs {
		fmt.Fprintln(w, column(strconv.Itoa(r.ID), 7)+column(r.RaisonSociale, nameW)+" "+
			column(r.Ville, cityW)+" "+column(r.CodePostal, 6)+column(r.Activites, actW)+" "+
			r.DateAdded.Local().Format("2006-01-02"))
	}
}
