package model

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Filter is an activity filter understood by the directory API. Its value
// is the query parameter name.
type Filter string

const (
	FilterDirectSale      Filter = "filtrerVenteDetail"
	FilterRestaurants     Filter = "filtrerRestaurants"
	FilterWholesalers     Filter = "filtrerGrossistes"
	FilterSupermarkets    Filter = "filtrerGrandeSurface"
	FilterShopsArtisans   Filter = "filtrerCommercantsEtArtisans"
	FilterSpecialistShops Filter = "filtrerMagasinSpec"
)

// AllFilters lists the filters in display order.
var AllFilters = []Filter{
	FilterDirectSale,
	FilterRestaurants,
	FilterWholesalers,
	FilterSupermarkets,
	FilterShopsArtisans,
	FilterSpecialistShops,
}

var filterLabels = map[Filter]string{
	FilterDirectSale:      "Vente directe aux consommateurs",
	FilterRestaurants:     "Restaurants",
	FilterWholesalers:     "Grossistes",
	FilterSupermarkets:    "Grandes surfaces",
	FilterShopsArtisans:   "Commerçants et artisans",
	FilterSpecialistShops: "Magasins spécialisés",
}

func (f Filter) Label() string {
	if l, ok := filterLabels[f]; ok {
		return l
	}
	return string(f)
}

func (f Filter) Valid() bool {
	_, ok := filterLabels[f]
	return ok
}

// ParseFilter accepts a wire key, case-insensitively.
func ParseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	for _, f := range AllFilters {
		if strings.EqualFold(string(f), s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// FilterSet is the set of active filters. The zero value is an empty set.
type FilterSet map[Filter]struct{}

// NewFilterSet builds a set from the given filters, ignoring unknown ones.
func NewFilterSet(filters ...Filter) FilterSet {
	fs := make(FilterSet, len(filters))
	for _, f := range filters {
		if f.Valid() {
			fs[f] = struct{}{}
		}
	}
	return fs
}

// FilterSetFromToggles keeps only the toggles that are on.
func FilterSetFromToggles(toggles map[Filter]bool) FilterSet {
	fs := make(FilterSet, len(toggles))
	for f, on := range toggles {
		if on && f.Valid() {
			fs[f] = struct{}{}
		}
	}
	return fs
}

func (fs FilterSet) Has(f Filter) bool {
	_, ok := fs[f]
	return ok
}

func (fs FilterSet) Len() int {
	return len(fs)
}

// Toggles returns one entry per known filter, true when active.
func (fs FilterSet) Toggles() map[Filter]bool {
	t := make(map[Filter]bool, len(AllFilters))
	for _, f := range AllFilters {
		t[f] = fs.Has(f)
	}
	return t
}

// Sorted returns the active filters in display order.
func (fs FilterSet) Sorted() []Filter {
	out := make([]Filter, 0, len(fs))
	for _, f := range AllFilters {
		if fs.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (fs FilterSet) Clone() FilterSet {
	c := make(FilterSet, len(fs))
	for f := range fs {
		c[f] = struct{}{}
	}
	return c
}

// Encode adds one key=1 pair per active filter. Inactive filters are never
// written, so the API (which tests presence, not value) sees only active ones.
func (fs FilterSet) Encode(v url.Values) {
	for _, f := range fs.Sorted() {
		v.Set(string(f), "1")
	}
}

func (fs FilterSet) String() string {
	keys := make([]string, 0, len(fs))
	for f := range fs {
		keys = append(keys, string(f))
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}
