package model

import (
	"strings"
	"time"
)

// FavoriteRecord is the persisted projection of a pinned Operator.
type FavoriteRecord struct {
	ID            int       `json:"id"`
	RaisonSociale string    `json:"raisonSociale"`
	Ville         string    `json:"ville"`
	CodePostal    string    `json:"codePostal"`
	Activites     string    `json:"activites"`
	Telephone     string    `json:"telephone"`
	Email         string    `json:"email"`
	Adresse       string    `json:"adresse"`
	DateAdded     time.Time `json:"dateAdded"`
}

// NewFavoriteRecord flattens an operator for storage.
func NewFavoriteRecord(op Operator, added time.Time) FavoriteRecord {
	addr, _ := op.PrimaryAddress()
	return FavoriteRecord{
		ID:            op.ID,
		RaisonSociale: op.DisplayName(),
		Ville:         addr.Ville,
		CodePostal:    addr.CodePostal,
		Activites:     op.ActivitiesText(),
		Telephone:     op.Telephone,
		Email:         op.Email,
		Adresse:       addr.Lieu,
		DateAdded:     added.UTC(),
	}
}

// Operator rebuilds the operator fields a favorite keeps, for display.
func (f FavoriteRecord) Operator() Operator {
	op := Operator{
		ID:            f.ID,
		RaisonSociale: f.RaisonSociale,
		Telephone:     f.Telephone,
		Email:         f.Email,
	}
	if f.Adresse != "" || f.Ville != "" || f.CodePostal != "" {
		op.Addresses = []Address{{Lieu: f.Adresse, CodePostal: f.CodePostal, Ville: f.Ville}}
	}
	for _, nom := range strings.Split(f.Activites, ", ") {
		if nom = strings.TrimSpace(nom); nom != "" {
			op.Activities = append(op.Activities, Activity{Nom: nom})
		}
	}
	return op
}

// TimestampLayout matches JavaScript's Date.toISOString, which earlier
// versions of the database were written with.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts any RFC 3339 form.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
