// Package passport models the passport record returned by the backend and the
// typed per-section schemas used to render it.
package passport

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Translation maps field names to localized labels. Non-string values sent by
// the backend are kept in their textual form.
type Translation map[string]string

// UnmarshalJSON accepts any scalar values and stores them as strings
func (t *Translation) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Translation, len(raw))
	for k, v := range raw {
		out[k] = scalarText(v)
	}
	*t = out
	return nil
}

// Entry is one object of a section payload: a pet, an owner, a doctor or a record row.
type Entry map[string]any

// Text returns the display text of a scalar field; missing and null fields are empty.
func (e Entry) Text(field string) string {
	return scalarText(e[field])
}

// Translation returns the entry's own localized labels
func (e Entry) Translation() Translation {
	switch v := e["translation"].(type) {
	case map[string]any:
		out := make(Translation, len(v))
		for k, val := range v {
			out[k] = scalarText(val)
		}
		return out
	case Translation:
		return v
	case map[string]string:
		return Translation(v)
	}
	return Translation{}
}

// Labels returns the entry's own labels with section-level labels filling
// the fields the entry does not translate
func (e Entry) Labels(section Translation) Translation {
	own := e.Translation()
	if len(section) == 0 {
		return own
	}
	out := make(Translation, len(own)+len(section))
	for k, v := range section {
		out[k] = v
	}
	for k, v := range own {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out
}

// DoctorID returns the identifier of the doctor attached to the entry, if any
func (e Entry) DoctorID() (string, bool) {
	switch v := e["doctor"].(type) {
	case nil:
		return "", false
	case map[string]any:
		id := scalarText(v["id"])
		return id, id != ""
	default:
		id := scalarText(v)
		return id, id != ""
	}
}

func scalarText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// Section is the generic sub-document of the record for one booklet page
type Section struct {
	Number      int         `json:"section_number"`
	Title       string      `json:"section_title"`
	Translation Translation `json:"translation"`

	payload map[string]json.RawMessage
}

// UnmarshalJSON decodes the common header and keeps the remaining keys as payload
func (s *Section) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	type header Section
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	*s = Section(h)
	delete(raw, "section_number")
	delete(raw, "section_title")
	delete(raw, "translation")
	s.payload = raw
	return nil
}

// MarshalJSON writes the header and payload back as a single object
func (s Section) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.payload)+3)
	for k, v := range s.payload {
		out[k] = v
	}
	out["section_number"] = s.Number
	out["section_title"] = s.Title
	out["translation"] = s.Translation
	return json.Marshal(out)
}

// Object decodes a single-object payload
func (s *Section) Object(key string) (Entry, error) {
	raw, ok := s.payload[key]
	if !ok {
		return nil, fmt.Errorf("payload %q missing", key)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("payload %q is not an object: %w", key, err)
	}
	if e == nil {
		return nil, fmt.Errorf("payload %q is null", key)
	}
	return e, nil
}

// List decodes a list payload; null decodes to an empty list
func (s *Section) List(key string) ([]Entry, error) {
	raw, ok := s.payload[key]
	if !ok {
		return nil, fmt.Errorf("payload %q missing", key)
	}
	var list []Entry
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("payload %q is not a list: %w", key, err)
	}
	return list, nil
}

// Text decodes a string payload
func (s *Section) Text(key string) (string, error) {
	raw, ok := s.payload[key]
	if !ok {
		return "", fmt.Errorf("payload %q missing", key)
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", fmt.Errorf("payload %q is not a string: %w", key, err)
	}
	return text, nil
}

// LocalizedTitle returns the national section title, falling back to the international one
func (s *Section) LocalizedTitle() string {
	if t := strings.TrimSpace(s.Translation["section_title"]); t != "" {
		return t
	}
	return s.Title
}

// Record is the passport document returned by the backend for one passport number
type Record struct {
	PassportNumber string
	Sections       map[string]*Section

	raw json.RawMessage
}

// Decode parses a backend passport document
func Decode(data []byte) (*Record, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode passport: %w", err)
	}

	rec := &Record{
		Sections: make(map[string]*Section),
		raw:      append(json.RawMessage(nil), data...),
	}
	if num, ok := raw["passport_number"]; ok {
		if err := json.Unmarshal(num, &rec.PassportNumber); err != nil {
			return nil, fmt.Errorf("decode passport_number: %w", err)
		}
	}
	if rec.PassportNumber == "" {
		return nil, fmt.Errorf("decode passport: passport_number missing")
	}

	for key, val := range raw {
		if !strings.HasSuffix(key, "_section") {
			continue
		}
		var sec Section
		if err := json.Unmarshal(val, &sec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		rec.Sections[key] = &sec
	}
	return rec, nil
}

// Section returns the sub-document stored under key (e.g. "animal_section")
func (r *Record) Section(key string) (*Section, error) {
	sec, ok := r.Sections[key]
	if !ok || sec == nil {
		return nil, fmt.Errorf("section %q missing from passport %s", key, r.PassportNumber)
	}
	return sec, nil
}

// Raw returns the document exactly as the backend sent it
func (r *Record) Raw() json.RawMessage {
	return r.raw
}

// FirstOwner returns the first listed owner, used for the cover page
func (r *Record) FirstOwner() (Entry, error) {
	sec, err := r.Section(Owner.RecordKey)
	if err != nil {
		return nil, err
	}
	owners, err := sec.List(Owner.Payload)
	if err != nil {
		return nil, err
	}
	if len(owners) == 0 {
		return nil, fmt.Errorf("passport %s has no owners", r.PassportNumber)
	}
	return owners[0], nil
}

// Validate reports section numbers that are missing, duplicated or out of booklet order.
// The result is advisory; rendering always follows the booklet order.
func (r *Record) Validate() []string {
	var problems []string
	seen := make(map[int]string)
	prev, prevName := 0, ""
	for _, schema := range Booklet() {
		if schema.RecordKey == "" {
			continue
		}
		sec, ok := r.Sections[schema.RecordKey]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: section missing", schema.Name))
			continue
		}
		// Notes is unnumbered in the booklet
		if schema.Name == Notes.Name {
			continue
		}
		if other, dup := seen[sec.Number]; dup {
			problems = append(problems, fmt.Sprintf("%s: section_number %d already used by %s", schema.Name, sec.Number, other))
		}
		seen[sec.Number] = schema.Name
		if prevName != "" && sec.Number <= prev {
			problems = append(problems, fmt.Sprintf("%s: section_number %d does not follow %s (%d)", schema.Name, sec.Number, prevName, prev))
		}
		prev, prevName = sec.Number, schema.Name
	}
	return problems
}
