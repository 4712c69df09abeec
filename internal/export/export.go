package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rendis/bioconnect/internal/engine/geo"
	"github.com/rendis/bioconnect/internal/model"
)

type Format string

const (
	CSV     Format = "csv"
	GeoJSON Format = "geojson"
	JSON    Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, GeoJSON, JSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format: %s (csv, geojson, json)", s)
}

// Ext is the file extension for f, without the dot.
func (f Format) Ext() string {
	return string(f)
}

var operatorHeader = []string{
	"id", "name", "activities", "address", "postal_code", "city",
	"lat", "lng", "plus_code", "phone", "email", "website", "numero_bio", "siret", "favorite",
}

// Operators writes search results. GeoJSON keeps only placeable operators.
func Operators(w io.Writer, f Format, ops []model.Operator, favs geo.FavoriteChecker) error {
	switch f {
	case CSV:
		cw := csv.NewWriter(w)
		cw.Write(operatorHeader)
		for _, op := range ops {
			addr, _ := op.PrimaryAddress()
			lat, lng, code := "", "", ""
			if c, ok := op.Coordinates(); ok {
				lat = strconv.FormatFloat(c.Lat, 'f', 6, 64)
				lng = strconv.FormatFloat(c.Lng, 'f', 6, 64)
				code = geo.PlusCode(c)
			}
			email, _ := op.ContactEmail()
			cw.Write([]string{
				strconv.Itoa(op.ID),
				op.DisplayName(),
				op.ActivitiesText(),
				addr.Lieu,
				addr.CodePostal,
				addr.Ville,
				lat,
				lng,
				code,
				op.Telephone,
				email,
				op.Website(),
				op.NumeroBio.String(),
				op.Siret,
				strconv.FormatBool(favs != nil && favs.IsFavorite(op.ID)),
			})
		}
		cw.Flush()
		return cw.Error()
	case GeoJSON:
		return writeJSON(w, geo.FeatureCollection(geo.Markers(ops, favs)))
	case JSON:
		return writeJSON(w, ops)
	}
	return fmt.Errorf("unsupported format: %s", f)
}

var favoriteHeader = []string{
	"id", "raisonSociale", "ville", "codePostal", "activites",
	"telephone", "email", "adresse", "dateAdded",
}

// Favorites writes the favorites list. They carry no coordinates, so GeoJSON is refused.
func Favorites(w io.Writer, f Format, recs []model.FavoriteRecord) error {
	switch f {
	case CSV:
		cw := csv.NewWriter(w)
		cw.Write(favoriteHeader)
		for _, r := range recs {
			cw.Write([]string{
				strconv.Itoa(r.ID),
				r.RaisonSociale,
				r.Ville,
				r.CodePostal,
				r.Activites,
				r.Telephone,
				r.Email,
				r.Adresse,
				model.FormatTimestamp(r.DateAdded),
			})
		}
		cw.Flush()
		return cw.Error()
	case JSON:
		return writeJSON(w, recs)
	}
	return fmt.Errorf("format %s is not available for favorites", f)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
