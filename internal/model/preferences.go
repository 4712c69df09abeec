package model

// Preferences seed the search defaults. They are stored as one record and
// overwritten wholesale.
type Preferences struct {
	DefaultAddress string          `json:"defaultAddress"`
	DefaultRadius  int             `json:"defaultRadius"`
	DefaultFilters map[Filter]bool `json:"defaultFilters"`
	UseGeolocation bool            `json:"useGeolocation"`
}

const DefaultRadiusKm = 20

func DefaultPreferences() Preferences {
	return Preferences{
		DefaultRadius:  DefaultRadiusKm,
		DefaultFilters: NewFilterSet().Toggles(),
	}
}

// Normalized fills missing filter toggles, drops unknown ones and resets a
// non-positive radius to the default.
func (p Preferences) Normalized() Preferences {
	filters := make(map[Filter]bool, len(AllFilters))
	for _, f := range AllFilters {
		filters[f] = p.DefaultFilters[f]
	}
	p.DefaultFilters = filters
	if p.DefaultRadius <= 0 {
		p.DefaultRadius = DefaultRadiusKm
	}
	return p
}

// Filters returns the default filters as a set.
func (p Preferences) Filters() FilterSet {
	return FilterSetFromToggles(p.DefaultFilters)
}

func (p Preferences) Clone() Preferences {
	c := p
	c.DefaultFilters = make(map[Filter]bool, len(p.DefaultFilters))
	for f, on := range p.DefaultFilters {
		c.DefaultFilters[f] = on
	}
	return c
}
