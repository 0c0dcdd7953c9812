package backend

import (
	"github.com/petmvp/passportview/internal/format"
	"github.com/petmvp/passportview/internal/passport"
)

// Doctor is the veterinarian record referenced by passport entries
type Doctor struct {
	ID          string               `json:"-"`
	FirstName   string               `json:"first_name"`
	LastName    string               `json:"last_name"`
	Address     string               `json:"address"`
	Email       string               `json:"email"`
	Translation passport.Translation `json:"translation,omitempty"`
}

// Name returns "Dr. First Last"
func (d *Doctor) Name() string {
	return format.DoctorName(d.FirstName, d.LastName)
}

// Entry exposes the doctor as a payload entry so it can be rendered with the section helpers
func (d *Doctor) Entry() passport.Entry {
	tr := make(map[string]any, len(d.Translation))
	for k, v := range d.Translation {
		tr[k] = v
	}
	return passport.Entry{
		"first_name":  d.FirstName,
		"last_name":   d.LastName,
		"address":     d.Address,
		"email":       d.Email,
		"translation": tr,
	}
}

// Country is one entry of the backend's country choices
type Country struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Countries is the ordered list of country choices in one language
type Countries []Country

// Label returns the display name of a country code
func (c Countries) Label(code string) (string, bool) {
	for _, country := range c {
		if country.Value == code {
			return country.Label, true
		}
	}
	return "", false
}

// LabelOr returns the display name of a country code, or the code itself when unknown
func (c Countries) LabelOr(code string) string {
	if label, ok := c.Label(code); ok {
		return label
	}
	return code
}
