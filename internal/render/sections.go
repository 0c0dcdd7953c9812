package render

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/petmvp/passportview/internal/backend"
	"github.com/petmvp/passportview/internal/dom"
	"github.com/petmvp/passportview/internal/format"
	"github.com/petmvp/passportview/internal/i18n"
	"github.com/petmvp/passportview/internal/passport"
)

// Populator fills one booklet page from the view's record
type Populator func(ctx context.Context, v *View, schema passport.Schema) error

// PopulatorFor returns the populator that renders schema
func PopulatorFor(schema passport.Schema) (Populator, error) {
	switch schema.Layout {
	case passport.LayoutCover:
		return PopulateCover, nil
	case passport.LayoutNotes:
		return PopulateNotes, nil
	case passport.LayoutTable:
		return RenderTable, nil
	case passport.LayoutRecords:
		return PopulateRecords, nil
	case passport.LayoutGroups:
		switch schema.Name {
		case passport.Owner.Name:
			return PopulateOwners, nil
		case passport.Animal.Name:
			return PopulateAnimal, nil
		case passport.Issuing.Name:
			return PopulateIssuing, nil
		default:
			return PopulateGroups, nil
		}
	}
	return nil, fmt.Errorf("no populator for %s", schema.Name)
}

// infoGroup renders "<div.<sec>-info-group><span.<sec>-label/><span.<sec>-value/></div>".
// An empty label leaves the label span out.
func infoGroup(section, label, value string) *html.Node {
	group := dom.Element("div", section+"-info-group")
	if label != "" {
		dom.Append(group, dom.TextElement("span", label, section+"-label"))
	}
	dom.Append(group, dom.TextElement("span", value, section+"-value"))
	return group
}

// fieldGroups renders the info groups of fields. Labels come from the entry's
// own translation, then from the section's.
func (v *View) fieldGroups(section string, sec *passport.Section, e passport.Entry, fields []passport.Field) []*html.Node {
	var sectionLabels passport.Translation
	if sec != nil {
		sectionLabels = sec.Translation
	}
	translation := e.Labels(sectionLabels)
	groups := make([]*html.Node, 0, len(fields))
	for _, f := range fields {
		groups = append(groups, infoGroup(section, format.BilingualLabel(translation, f.Name), v.value(e, f)))
	}
	return groups
}

// PopulateCover writes the issuing country in both languages. The international
// country list is fetched before any cover text is written.
func PopulateCover(ctx context.Context, v *View, schema passport.Schema) error {
	national, err := v.query("#national-country-cover")
	if err != nil {
		return err
	}
	inter, err := v.query("#inter-country-cover")
	if err != nil {
		return err
	}
	owner, err := v.Record.FirstOwner()
	if err != nil {
		return err
	}
	code := owner.Text("country")

	intlCountries := v.Countries
	if !v.IsInternational() {
		intlCountries, err = v.backend.GetCountryChoices(ctx, v.InternationalLang)
		if err != nil {
			v.log.Warn("International country list unavailable, printing country code",
				zap.String("country", code),
				zap.Error(err),
			)
			intlCountries = nil
		}
	}

	dom.SetText(national, v.T(i18n.EuropeanUnion)+"\n"+v.Countries.LabelOr(code))
	dom.SetText(inter, i18n.EuropeanUnion+" \n"+intlCountries.LabelOr(code))
	return nil
}

// PopulateNotes writes the notes as a list of national/international pairs.
// Segments are separated by "**" in both languages.
func PopulateNotes(_ context.Context, v *View, schema passport.Schema) error {
	_, main, err := v.page(schema.Name)
	if err != nil {
		return err
	}
	pre := dom.Find(main, "pre")
	if pre == nil {
		return fmt.Errorf("notes page has no pre")
	}
	sec, err := v.section(schema)
	if err != nil {
		return err
	}
	content, err := sec.Text(schema.Payload)
	if err != nil {
		return err
	}
	if err := v.writeHeader(schema, sec); err != nil {
		return err
	}

	national := splitNotes(sec.Translation[schema.Payload])
	international := splitNotes(content)
	if len(national) != len(international) {
		v.log.Warn("Notes translation does not match the original",
			zap.Int("national_segments", len(national)),
			zap.Int("international_segments", len(international)),
		)
		national, international = padNotes(national, international)
	}

	list := dom.Element("ul")
	for i := range international {
		dom.Append(list,
			dom.TextElement("li", national[i]),
			dom.TextElement("li", international[i]),
			dom.Element("br"),
		)
	}
	dom.Clear(pre)
	dom.Append(pre, list)
	return nil
}

func splitNotes(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, "**")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// padNotes extends the shorter list with empty segments
func padNotes(a, b []string) ([]string, []string) {
	for len(a) < len(b) {
		a = append(a, "")
	}
	for len(b) < len(a) {
		b = append(b, "")
	}
	return a, b
}

// PopulateGroups renders a single-object section as label/value groups
func PopulateGroups(_ context.Context, v *View, schema passport.Schema) error {
	_, main, err := v.page(schema.Name)
	if err != nil {
		return err
	}
	sec, err := v.section(schema)
	if err != nil {
		return err
	}
	entry, err := sec.Object(schema.Payload)
	if err != nil {
		return err
	}
	if err := v.writeHeader(schema, sec); err != nil {
		return err
	}

	dom.Clear(main)
	dom.Append(main, v.fieldGroups(schema.Name, sec, entry, schema.Primary)...)
	return nil
}

// PopulateOwners renders every listed owner
func PopulateOwners(_ context.Context, v *View, schema passport.Schema) error {
	_, main, err := v.page(schema.Name)
	if err != nil {
		return err
	}
	sec, err := v.section(schema)
	if err != nil {
		return err
	}
	owners, err := sec.List(schema.Payload)
	if err != nil {
		return err
	}
	if err := v.writeHeader(schema, sec); err != nil {
		return err
	}

	dom.Clear(main)
	for _, owner := range owners {
		dom.Append(main, v.fieldGroups(schema.Name, sec, owner, schema.Primary)...)
	}
	return nil
}

// PopulateAnimal renders the animal description, preceded by its photo or
// the photo placeholder.
func PopulateAnimal(_ context.Context, v *View, schema passport.Schema) error {
	_, main, err := v.page(schema.Name)
	if err != nil {
		return err
	}
	sec, err := v.section(schema)
	if err != nil {
		return err
	}
	pet, err := sec.Object(schema.Payload)
	if err != nil {
		return err
	}
	if err := v.writeHeader(schema, sec); err != nil {
		return err
	}

	photo := dom.Element("div", "pet-photo")
	if src := pet.Text("photo"); src != "" {
		img := dom.Element("img")
		dom.SetAttr(img, "src", src)
		dom.Append(photo, img)
	} else {
		dom.Append(photo,
			dom.TextElement("h6", v.T(i18n.PictureOfTheAnimal)),
			dom.TextElement("h6", i18n.PictureOfTheAnimal),
		)
	}

	dom.Clear(main)
	dom.Append(main, photo)
	dom.Append(main, v.fieldGroups(schema.Name, sec, pet, schema.Primary)...)
	return nil
}

// PopulateIssuing renders the issuing veterinarian: name, contact details, then the issue date
func PopulateIssuing(_ context.Context, v *View, schema passport.Schema) error {
	_, main, err := v.page(schema.Name)
	if err != nil {
		return err
	}
	sec, err := v.section(schema)
	if err != nil {
		return err
	}
	doctor, err := sec.Object(schema.Payload)
	if err != nil {
		return err
	}
	if err := v.writeHeader(schema, sec); err != nil {
		return err
	}

	dom.Clear(main)
	dom.Append(main, v.doctorNameGroup(schema.Name, doctor.Text("first_name"), doctor.Text("last_name")))
	dom.Append(main, v.fieldGroups(schema.Name, sec, doctor, schema.Primary)...)
	dom.Append(main, v.fieldGroups(schema.Name, sec, doctor, []passport.Field{{Name: "date_of_issue", Kind: passport.KindText}})...)
	return nil
}

func (v *View) doctorNameGroup(section, first, last string) *html.Node {
	label := v.T(i18n.AuthorizedVeterinarian) + " / " + i18n.AuthorizedVeterinarian + ": "
	return infoGroup(section, label, format.DoctorName(first, last))
}

var recordDoctorFields = []passport.Field{
	{Name: "address", Kind: passport.KindText},
	{Name: "email", Kind: passport.KindText},
}

// PopulateRecords renders each entry as its declaration, its fields and its
// veterinarian. Doctor lookups finish before the page is cleared.
func PopulateRecords(ctx context.Context, v *View, schema passport.Schema) error {
	_, main, err := v.page(schema.Name)
	if err != nil {
		return err
	}
	sec, err := v.section(schema)
	if err != nil {
		return err
	}
	records, err := sec.List(schema.Payload)
	if err != nil {
		return err
	}
	if err := v.writeHeader(schema, sec); err != nil {
		return err
	}

	var lookups []DoctorLookup
	if schema.Doctor {
		lookups = v.lookupDoctors(ctx, schema.Name, records)
	}

	dom.Clear(main)
	for i, record := range records {
		dom.Append(main, infoGroup(schema.Name, "", record.Translation()["declaration"]))
		dom.Append(main, v.fieldGroups(schema.Name, sec, record, schema.Primary)...)
		if lookups != nil && lookups[i].State == RowResolved {
			dom.Append(main, v.doctorGroups(schema.Name, sec, lookups[i].Doctor)...)
		}
	}
	return nil
}

func (v *View) doctorGroups(section string, sec *passport.Section, d *backend.Doctor) []*html.Node {
	groups := []*html.Node{v.doctorNameGroup(section, d.FirstName, d.LastName)}
	return append(groups, v.fieldGroups(section, sec, d.Entry(), recordDoctorFields)...)
}
