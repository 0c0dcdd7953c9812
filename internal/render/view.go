// Package render fills the booklet skeleton from a passport record.
package render

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/petmvp/passportview/internal/backend"
	"github.com/petmvp/passportview/internal/booklet"
	"github.com/petmvp/passportview/internal/dom"
	"github.com/petmvp/passportview/internal/i18n"
	"github.com/petmvp/passportview/internal/passport"
)

// Backend is the part of the backend API the renderer needs
type Backend interface {
	GetPassport(ctx context.Context, lang, number string) (*passport.Record, error)
	GetDoctor(ctx context.Context, lang, id string) (*backend.Doctor, error)
	GetCountryChoices(ctx context.Context, lang string) (backend.Countries, error)
}

// View holds everything one passport view needs. A View is owned by a single
// render and is never shared between renders.
type View struct {
	Record *passport.Record
	Doc    *dom.Document
	// Lang is the national language of the booklet
	Lang string
	// InternationalLang is the language of the international half of each page
	InternationalLang string
	// Countries are the country names in Lang
	Countries backend.Countries

	backend    Backend
	tr         *i18n.Translator
	doctors    *doctorResolver
	maxLookups int
	log        *zap.Logger
}

// IsInternational reports whether the national language is the international one
func (v *View) IsInternational() bool {
	return v.Lang == v.InternationalLang
}

// T translates a booklet string into the national language
func (v *View) T(key string) string {
	return v.tr.T(v.Lang, key)
}

func (v *View) query(sel string) (*html.Node, error) {
	n := v.Doc.Query(sel)
	if n == nil {
		return nil, fmt.Errorf("skeleton has no %q", sel)
	}
	return n, nil
}

// page returns the outer page element and the page body of a section
func (v *View) page(name string) (page, main *html.Node, err error) {
	if page, err = v.query(booklet.PageSelector(name)); err != nil {
		return nil, nil, err
	}
	if main, err = v.query(booklet.MainSelector(name)); err != nil {
		return nil, nil, err
	}
	return page, main, nil
}

// section returns the record sub-document of a page
func (v *View) section(schema passport.Schema) (*passport.Section, error) {
	return v.Record.Section(schema.RecordKey)
}

// value renders a field of an entry for display
func (v *View) value(e passport.Entry, f passport.Field) string {
	raw := e.Text(f.Name)
	if f.Kind == passport.KindCountry && raw != "" {
		return v.Countries.LabelOr(raw)
	}
	return raw
}

// writeHeader sets the national and international page titles.
// Notes titles are printed as sent, without a section number.
func (v *View) writeHeader(schema passport.Schema, sec *passport.Section) error {
	national, err := v.query(booklet.HeaderSelector(schema.Name, "national"))
	if err != nil {
		return err
	}
	inter, err := v.query(booklet.HeaderSelector(schema.Name, "inter"))
	if err != nil {
		return err
	}

	if schema.Layout == passport.LayoutNotes {
		dom.SetText(national, sec.LocalizedTitle())
		dom.SetText(inter, sec.Title)
		return nil
	}
	dom.SetText(national, fmt.Sprintf("%d. %s", sec.Number, v.tr.Upper(v.Lang, sec.LocalizedTitle())))
	dom.SetText(inter, v.tr.Upper(v.InternationalLang, sec.Title))
	return nil
}
