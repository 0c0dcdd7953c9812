package passport

import (
	"fmt"
)

// Kind tells a populator how to display a field value
type Kind int

const (
	// KindText is displayed verbatim
	KindText Kind = iota + 1
	// KindCountry holds a country code resolved to a display name
	KindCountry
	// KindLongText is free text that may span lines
	KindLongText
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindCountry:
		return "country"
	case KindLongText:
		return "long_text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field is one rendered field of a section
type Field struct {
	Name string
	Kind Kind
}

// Layout selects how a section's payload is laid out on its page
type Layout int

const (
	// LayoutCover is the bespoke cover page
	LayoutCover Layout = iota + 1
	// LayoutNotes is the bilingual notes list
	LayoutNotes
	// LayoutGroups renders label/value groups per entry
	LayoutGroups
	// LayoutTable renders one table row per entry
	LayoutTable
	// LayoutRecords renders label/value groups per entry plus the entry's doctor
	LayoutRecords
)

// Schema describes how one booklet page is filled from the record
type Schema struct {
	// Name is the page name used in the skeleton's class names (e.g. "rabies-vaccination")
	Name string
	// RecordKey is the record sub-document holding the section (e.g. "rabies_vaccination_section")
	RecordKey string
	// Payload is the key of the section's data inside the sub-document
	Payload string
	Layout  Layout
	// Primary fields render as label/value groups or as one table cell each
	Primary []Field
	// Nested fields share a single compound table cell
	Nested []Field
	// Doctor marks sections whose entries name the issuing veterinarian
	Doctor bool
}

// Validate checks field names and kinds
func (s Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema has no name")
	}
	if s.Layout < LayoutCover || s.Layout > LayoutRecords {
		return fmt.Errorf("schema %s: unknown layout %d", s.Name, s.Layout)
	}
	if s.Layout != LayoutCover && (s.RecordKey == "" || s.Payload == "") {
		return fmt.Errorf("schema %s: record key and payload are required", s.Name)
	}
	if (s.Layout == LayoutGroups || s.Layout == LayoutTable || s.Layout == LayoutRecords) && len(s.Primary) == 0 {
		return fmt.Errorf("schema %s: no primary fields", s.Name)
	}
	if s.Layout != LayoutTable && len(s.Nested) > 0 {
		return fmt.Errorf("schema %s: nested fields are only valid for tables", s.Name)
	}

	seen := make(map[string]bool)
	for _, f := range append(append([]Field(nil), s.Primary...), s.Nested...) {
		if f.Name == "" {
			return fmt.Errorf("schema %s: empty field name", s.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("schema %s: duplicate field %q", s.Name, f.Name)
		}
		seen[f.Name] = true
		if f.Kind < KindText || f.Kind > KindLongText {
			return fmt.Errorf("schema %s: field %q has unknown kind %d", s.Name, f.Name, f.Kind)
		}
	}
	return nil
}

// MustSchema panics if the schema is invalid
func MustSchema(s Schema) Schema {
	if err := s.Validate(); err != nil {
		panic(err)
	}
	return s
}

func text(names ...string) []Field {
	fields := make([]Field, len(names))
	for i, n := range names {
		fields[i] = Field{Name: n, Kind: KindText}
	}
	return fields
}

// Page schemas in booklet order
var (
	Cover = MustSchema(Schema{Name: "cover", Layout: LayoutCover})

	Notes = MustSchema(Schema{
		Name: "notes", RecordKey: "notes_section", Payload: "content", Layout: LayoutNotes,
	})

	Owner = MustSchema(Schema{
		Name: "owner", RecordKey: "owners_section", Payload: "owners", Layout: LayoutGroups,
		Primary: []Field{
			{"first_name", KindText},
			{"last_name", KindText},
			{"address", KindText},
			{"postal_code", KindText},
			{"city", KindText},
			{"country", KindCountry},
			{"phone_number", KindText},
		},
	})

	Animal = MustSchema(Schema{
		Name: "pet", RecordKey: "animal_section", Payload: "pet", Layout: LayoutGroups,
		Primary: append(text("name", "species", "breed", "sex", "date_of_birth", "color"),
			Field{"features", KindLongText}),
	})

	Marking = MustSchema(Schema{
		Name: "marking", RecordKey: "marking_section", Payload: "marking", Layout: LayoutGroups,
		Primary: text("code", "date_of_application", "location"),
	})

	Issuing = MustSchema(Schema{
		Name: "issuing", RecordKey: "issuing_section", Payload: "doctor", Layout: LayoutGroups,
		Primary: []Field{
			{"address", KindText},
			{"postal_code", KindText},
			{"city", KindText},
			{"country", KindCountry},
			{"phone_number", KindText},
			{"email", KindText},
		},
		Doctor: true,
	})

	RabiesVaccination = MustSchema(Schema{
		Name: "rabies-vaccination", RecordKey: "rabies_vaccination_section", Payload: "rabies_vaccines",
		Layout:  LayoutTable,
		Primary: text("manufacturer_and_name", "batch_number"),
		Nested:  text("date_of_vaccination", "valid_until", "valid_from"),
		Doctor:  true,
	})

	RabiesAntibodyTest = MustSchema(Schema{
		Name: "rabies-antibody-test", RecordKey: "rabies_antibody_test_section", Payload: "rabies_antibody_tests",
		Layout:  LayoutRecords,
		Primary: text("sample_collected_on", "date_of_entry"),
		Doctor:  true,
	})

	Echinococcus = MustSchema(Schema{
		Name: "antiechinococcus-treatment", RecordKey: "antiechinococcus_treatment_section", Payload: "echinococcus_treatment",
		Layout:  LayoutTable,
		Primary: text("manufacturer_and_name"),
		Nested:  text("date", "time"),
		Doctor:  true,
	})

	ParasiteTreatment = MustSchema(Schema{
		Name: "other-parasites-treatment", RecordKey: "other_parasites_treatment_section", Payload: "anti_parasite_treatment",
		Layout:  LayoutTable,
		Primary: text("manufacturer_and_name"),
		Nested:  text("date", "time"),
		Doctor:  true,
	})

	OtherVaccination = MustSchema(Schema{
		Name: "other-vaccination", RecordKey: "other_vaccination_section", Payload: "other_vaccines",
		Layout:  LayoutTable,
		Primary: text("manufacturer_and_name", "batch_number"),
		Nested:  text("date_of_vaccination", "valid_until"),
		Doctor:  true,
	})

	ClinicalExamination = MustSchema(Schema{
		Name: "clinical-examination", RecordKey: "clinical_examination_section", Payload: "clinical_examinations",
		Layout:  LayoutTable,
		Primary: []Field{{"declaration", KindLongText}, {"date_of_entry", KindText}},
		Doctor:  true,
	})

	Legalisation = MustSchema(Schema{
		Name: "legalisation", RecordKey: "legalisation_section", Payload: "legalisation",
		Layout:  LayoutTable,
		Primary: text("legalising_body", "date_of_entry"),
		Doctor:  true,
	})

	Other = MustSchema(Schema{
		Name: "other", RecordKey: "other_section", Payload: "other_records",
		Layout:  LayoutTable,
		Primary: []Field{{"text_field", KindLongText}},
	})
)

var booklet = []Schema{
	Cover,
	Notes,
	Owner,
	Animal,
	Marking,
	Issuing,
	RabiesVaccination,
	RabiesAntibodyTest,
	Echinococcus,
	ParasiteTreatment,
	OtherVaccination,
	ClinicalExamination,
	Legalisation,
	Other,
}

// Booklet returns the page schemas in the fixed booklet order
func Booklet() []Schema {
	return append([]Schema(nil), booklet...)
}

// Lookup returns the schema of the named page
func Lookup(name string) (Schema, bool) {
	for _, s := range booklet {
		if s.Name == name {
			return s, true
		}
	}
	return Schema{}, false
}
