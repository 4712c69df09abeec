package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rendis/bioconnect/internal/config"
	"github.com/rendis/bioconnect/internal/model"
)

func runPrefs(args []string) error {
	sub := "show"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		sub, args = args[0], args[1:]
	}

	var address, filters string
	var radius int
	var geoloc bool

	fs := flag.NewFlagSet("prefs", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	fs.StringVar(&address, "address", "", "Default address (set)")
	fs.IntVar(&radius, "radius", model.DefaultRadiusKm, "Default radius in km (set)")
	fs.StringVar(&filters, "filters", "", "Default filters, comma-separated or \"none\" (set)")
	fs.BoolVar(&geoloc, "geolocation", false, "Locate from the default address (set)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bioconnect prefs [show|set|reset] [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprint(os.Stderr, filterHelp())
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  bioconnect prefs set -address \"Place Royale, Nantes\" -geolocation -radius 15\n")
		fmt.Fprintf(os.Stderr, "  bioconnect prefs set -filters filtrerVenteDetail,filtrerRestaurants\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if sub != "show" && sub != "set" && sub != "reset" {
		fs.Usage()
		return fmt.Errorf("unknown prefs command %q", sub)
	}

	set := map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	var fset model.FilterSet
	if set["filters"] {
		if strings.TrimSpace(filters) != "none" {
			sf := searchFlags{filters: filters}
			var err error
			if fset, err = sf.filterSet(); err != nil {
				return err
			}
		}
		if fset == nil {
			fset = model.NewFilterSet()
		}
	}
	if set["radius"] && radius < 1 {
		return fmt.Errorf("-radius must be at least 1")
	}

	ctx := context.Background()
	a, closeApp, err := openApp(ctx, fs, flags)
	if err != nil {
		return err
	}
	defer closeApp()

	switch sub {
	case "set":
		err = a.Prefs.Update(ctx, func(p *model.Preferences) {
			if set["address"] {
				p.DefaultAddress = strings.TrimSpace(address)
			}
			if set["radius"] {
				p.DefaultRadius = radius
			}
			if set["geolocation"] {
				p.UseGeolocation = geoloc
			}
			if fset != nil {
				p.DefaultFilters = fset.Toggles()
			}
		})
	case "reset":
		err = a.Prefs.Save(ctx, model.DefaultPreferences())
	}
	if err != nil {
		return err
	}

	printPrefs(a.Prefs.Current())
	return nil
}

func printPrefs(p model.Preferences) {
	address := p.DefaultAddress
	if address == "" {
		address = "(none)"
	}
	fmt.Printf("Address:      %s\n", address)
	fmt.Printf("Radius:       %d km\n", p.DefaultRadius)
	fmt.Printf("Geolocation:  %t\n", p.UseGeolocation)
	fmt.Println("Filters:")
	for _, f := range model.AllFilters {
		mark := "[ ]"
		if p.DefaultFilters[f] {
			mark = "[x]"
		}
		fmt.Printf("  %s %s\n", mark, f.Label())
	}
}
