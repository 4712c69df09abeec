package geo

import (
	olc "github.com/google/open-location-code/go"
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"github.com/rendis/bioconnect/internal/model"
)

// FavoriteChecker reports favorite membership.
type FavoriteChecker interface {
	IsFavorite(id int) bool
}

// Marker is one operator placed on the map.
type Marker struct {
	ID       int
	Title    string
	City     string
	Address  string
	Position model.Coordinates
	PlusCode string
	Favorite bool
}

// Markers places every operator whose primary address has usable
// coordinates. Operators without them are left off the map.
func Markers(ops []model.Operator, favs FavoriteChecker) []Marker {
	markers := make([]Marker, 0, len(ops))
	for _, op := range ops {
		pos, ok := op.Coordinates()
		if !ok {
			continue
		}
		addr, _ := op.PrimaryAddress()
		markers = append(markers, Marker{
			ID:       op.ID,
			Title:    op.DisplayName(),
			City:     addr.Ville,
			Address:  addr.Line(),
			Position: pos,
			PlusCode: PlusCode(pos),
			Favorite: favs != nil && favs.IsFavorite(op.ID),
		})
	}
	return markers
}

const plusCodeLength = 10

// PlusCode is the Open Location Code of c, about 14 m across.
func PlusCode(c model.Coordinates) string {
	return olc.Encode(c.Lat, c.Lng, plusCodeLength)
}

// DistanceKm is the great-circle distance between a and b.
func DistanceKm(a, b model.Coordinates) float64 {
	return orbgeo.DistanceHaversine(a.Point(), b.Point()) / 1000
}

// WithinRadius keeps the markers no farther than radiusKm from origin.
func WithinRadius(markers []Marker, origin model.Coordinates, radiusKm float64) []Marker {
	var out []Marker
	for _, m := range markers {
		if DistanceKm(origin, m.Position) <= radiusKm {
			out = append(out, m)
		}
	}
	return out
}

// Bound is the map viewport: the box around origin of radiusKm when an
// origin is known, extended to every marker.
func Bound(markers []Marker, origin *model.Coordinates, radiusKm float64) (orb.Bound, bool) {
	var (
		b   orb.Bound
		set bool
	)
	if origin != nil {
		if radiusKm <= 0 {
			radiusKm = model.DefaultRadiusKm
		}
		b = orbgeo.NewBoundAroundPoint(origin.Point(), radiusKm*1000)
		set = true
	}
	for _, m := range markers {
		p := m.Position.Point()
		if !set {
			b = p.Bound()
			set = true
			continue
		}
		b = b.Extend(p)
	}
	return b, set
}

// RadiusRing returns n points on the circle of radiusKm around origin.
func RadiusRing(origin model.Coordinates, radiusKm float64, n int) []model.Coordinates {
	if n < 3 {
		n = 3
	}
	ring := make([]model.Coordinates, n)
	for i := range ring {
		p := orbgeo.PointAtBearingAndDistance(origin.Point(), 360*float64(i)/float64(n), radiusKm*1000)
		ring[i] = model.Coordinates{Lat: p.Lat(), Lng: p.Lon()}
	}
	return ring
}

// FeatureCollection renders markers as GeoJSON points.
func FeatureCollection(markers []Marker) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, m := range markers {
		f := geojson.NewFeature(m.Position.Point())
		f.ID = m.ID
		f.Properties["id"] = m.ID
		f.Properties["name"] = m.Title
		f.Properties["city"] = m.City
		f.Properties["address"] = m.Address
		f.Properties["plus_code"] = m.PlusCode
		f.Properties["favorite"] = m.Favorite
		fc.Append(f)
	}
	return fc
}
