package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/mcnijman/go-emailaddress"
	"github.com/paulmach/orb"
)

// Operator is an organic-certified business returned by the Agence Bio directory.
type Operator struct {
	ID                   int             `json:"id"`
	RaisonSociale        string          `json:"raisonSociale"`
	DenominationCourante string          `json:"denominationcourante"`
	NumeroBio            NumericString   `json:"numeroBio,omitempty"`
	Siret                string          `json:"siret,omitempty"`
	CodeNAF              string          `json:"codeNAF,omitempty"`
	DateMaj              string          `json:"dateMaj,omitempty"`
	Telephone            string          `json:"telephone,omitempty"`
	Email                string          `json:"email,omitempty"`
	SiteWeb              string          `json:"siteWeb,omitempty"`
	SitesWeb             []Website       `json:"sitesWeb,omitempty"`
	Addresses            []Address       `json:"adressesOperateurs,omitempty"`
	Activities           []Activity      `json:"activites,omitempty"`
	Productions          json.RawMessage `json:"productions,omitempty"`
	Certificates         json.RawMessage `json:"certificats,omitempty"`
	Certifications       json.RawMessage `json:"certifications,omitempty"`
}

// Address is one postal address of an operator. Lat and Long arrive as
// numeric strings (sometimes as bare numbers) and may be empty.
type Address struct {
	Lieu       string        `json:"lieu,omitempty"`
	CodePostal string        `json:"codePostal,omitempty"`
	Ville      string        `json:"ville,omitempty"`
	Lat        NumericString `json:"lat,omitempty"`
	Long       NumericString `json:"long,omitempty"`
}

type Activity struct {
	ID  int    `json:"id,omitempty"`
	Nom string `json:"nom"`
}

type Website struct {
	URL string `json:"url"`
}

// Coordinates is a WGS84 position.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point returns the position as an orb.Point ([lng, lat]).
func (c Coordinates) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

const fallbackName = "Opérateur bio"

// DisplayName returns the first non-empty of raisonSociale and denominationcourante.
func (o Operator) DisplayName() string {
	if n := strings.TrimSpace(o.RaisonSociale); n != "" {
		return n
	}
	if n := strings.TrimSpace(o.DenominationCourante); n != "" {
		return n
	}
	return fallbackName
}

// PrimaryAddress returns the first address. Only this one is displayed or mapped.
func (o Operator) PrimaryAddress() (Address, bool) {
	if len(o.Addresses) == 0 {
		return Address{}, false
	}
	return o.Addresses[0], true
}

// Coordinates returns the parsed coordinates of the primary address.
func (o Operator) Coordinates() (Coordinates, bool) {
	addr, ok := o.PrimaryAddress()
	if !ok {
		return Coordinates{}, false
	}
	return addr.Coordinates()
}

// ContactEmail returns the normalized email when it parses as an address.
func (o Operator) ContactEmail() (string, bool) {
	e := strings.TrimSpace(o.Email)
	if e == "" {
		return "", false
	}
	addr, err := emailaddress.Parse(e)
	if err != nil {
		return e, false
	}
	return addr.String(), true
}

// Website returns siteWeb, or the first sitesWeb entry.
func (o Operator) Website() string {
	if o.SiteWeb != "" {
		return o.SiteWeb
	}
	for _, w := range o.SitesWeb {
		if w.URL != "" {
			return w.URL
		}
	}
	return ""
}

func (o Operator) ActivityLabels() []string {
	labels := make([]string, 0, len(o.Activities))
	for _, a := range o.Activities {
		if a.Nom != "" {
			labels = append(labels, a.Nom)
		}
	}
	return labels
}

// ActivitiesText is the flattened form stored with favorites.
func (o Operator) ActivitiesText() string {
	return strings.Join(o.ActivityLabels(), ", ")
}

func (a Address) Coordinates() (Coordinates, bool) {
	lat, ok := a.Lat.Float()
	if !ok {
		return Coordinates{}, false
	}
	lng, ok := a.Long.Float()
	if !ok {
		return Coordinates{}, false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Coordinates{}, false
	}
	return Coordinates{Lat: lat, Lng: lng}, true
}

// Line renders "lieu, codePostal ville".
func (a Address) Line() string {
	tail := strings.TrimSpace(a.CodePostal + " " + a.Ville)
	if a.Lieu == "" {
		return tail
	}
	if tail == "" {
		return a.Lieu
	}
	return a.Lieu + ", " + tail
}

// NumericString holds a JSON value that is a number encoded either as a
// string or as a bare number.
type NumericString string

func (n *NumericString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NumericString(strings.TrimSpace(s))
		return nil
	}
	*n = NumericString(data)
	return nil
}

// Float parses the value; false when empty or not a finite number.
func (n NumericString) Float() (float64, bool) {
	s := strings.TrimSpace(string(n))
	if s == "" {
		return 0, false
	}
	s = strings.Replace(s, ",", ".", 1)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (n NumericString) String() string {
	return string(n)
}
