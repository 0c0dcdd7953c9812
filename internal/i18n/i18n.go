// Package i18n provides the national-language strings printed on the booklet
// that do not come from the backend.
package i18n

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. The key is also the international (English) text.
const (
	EuropeanUnion          = "European Union"
	PictureOfTheAnimal     = "PICTURE OF THE ANIMAL (optional)"
	AuthorizedVeterinarian = "Name of authorized veterinarian"
	PetPassport            = "PET PASSPORT"
	FillAllCells           = "Please fill all cells with valid numbers."
	InvalidAccessCode      = "Invalid access code."
)

var translations = map[language.Tag]map[string]string{
	language.Bulgarian: {
		EuropeanUnion:          "Европейски съюз",
		PictureOfTheAnimal:     "СНИМКА НА ЖИВОТНОТО (по избор)",
		AuthorizedVeterinarian: "Име на упълномощения ветеринарен лекар",
		PetPassport:            "ПАСПОРТ НА ДОМАШЕН ЛЮБИМЕЦ",
		FillAllCells:           "Моля, попълнете всички полета с валидни цифри.",
		InvalidAccessCode:      "Невалиден код за достъп.",
	},
}

// Translator looks up booklet strings for a language
type Translator struct {
	cat       *catalog.Builder
	supported []language.Tag
	matcher   language.Matcher
}

// supported languages; the first one is the fallback
var supported = []language.Tag{language.English, language.Bulgarian}

// New builds a translator over the built-in catalog
func New() (*Translator, error) {
	cat := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range translations {
		for key, msg := range msgs {
			if err := cat.SetString(tag, key, msg); err != nil {
				return nil, err
			}
		}
	}
	// English messages are the keys themselves
	for key := range translations[language.Bulgarian] {
		if err := cat.SetString(language.English, key, key); err != nil {
			return nil, err
		}
	}

	return &Translator{
		cat:       cat,
		supported: supported,
		matcher:   language.NewMatcher(supported),
	}, nil
}

// MustNew is New for package-level initialization
func MustNew() *Translator {
	t, err := New()
	if err != nil {
		panic(err)
	}
	return t
}

// Tag resolves a language code to the closest supported language
func (t *Translator) Tag(lang string) language.Tag {
	_, idx, _ := t.matcher.Match(language.Make(lang))
	return t.supported[idx]
}

// T returns the message for key in lang, or key itself when no translation exists
func (t *Translator) T(lang, key string) string {
	p := message.NewPrinter(t.Tag(lang), message.Catalog(t.cat))
	return p.Sprintf(key)
}

// Upper upper-cases s with the casing rules of lang
func (t *Translator) Upper(lang, s string) string {
	return cases.Upper(language.Make(lang)).String(s)
}

// Languages lists the languages the catalog knows
func (t *Translator) Languages() []language.Tag {
	return append([]language.Tag(nil), t.supported...)
}
