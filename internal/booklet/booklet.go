// Package booklet provides the passport booklet skeleton: one fixed page per
// passport section, a table of contents and the access code form.
package booklet

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/petmvp/passportview/internal/dom"
	"github.com/petmvp/passportview/internal/passport"
	"github.com/petmvp/passportview/pkg/errors"
)

//go:embed skeleton.html
var skeleton []byte

// Skeleton loads booklet skeletons. Each view gets its own freshly parsed document.
type Skeleton struct {
	source []byte
	path   string
}

// New returns the embedded skeleton, or the file at path when path is not empty.
// The file is read once and checked for every page the renderer fills.
func New(path string) (*Skeleton, error) {
	src := skeleton
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeSkeleton, "failed to read booklet skeleton", err)
		}
		src = data
	}

	s := &Skeleton{source: src, path: path}
	doc, err := s.Document()
	if err != nil {
		return nil, err
	}
	if err := Check(doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSkeleton, "booklet skeleton is incomplete", err)
	}
	return s, nil
}

// Document parses a fresh copy of the skeleton
func (s *Skeleton) Document() (*dom.Document, error) {
	doc, err := dom.Parse(bytes.NewReader(s.source))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSkeleton, "failed to parse booklet skeleton", err)
	}
	return doc, nil
}

// Source returns the path the skeleton was loaded from, or "embedded"
func (s *Skeleton) Source() string {
	if s.path == "" {
		return "embedded"
	}
	return s.path
}

// PageSelector selects the outer page element of a section
func PageSelector(section string) string {
	return fmt.Sprintf("div.%s.page:not(.header):not(.main)", section)
}

// MainSelector selects the body of a section's page
func MainSelector(section string) string {
	return fmt.Sprintf(".main.%s.page", section)
}

// HeaderSelector selects one of the page titles: "national" or "inter"
func HeaderSelector(section, which string) string {
	return fmt.Sprintf(".header.%s.page h6#%s", section, which)
}

// Check verifies that the document has every element the renderer writes to
func Check(doc *dom.Document) error {
	required := []string{
		".container",
		".section",
		"ul.passport-contents",
		"#national-country-cover",
		"#inter-country-cover",
		".main.notes.page pre",
	}
	for _, s := range passport.Booklet() {
		required = append(required,
			".section > ."+s.Name+"-section",
			"ul.passport-contents #"+s.Name,
			PageSelector(s.Name),
			MainSelector(s.Name),
		)
		if s.Layout != passport.LayoutCover {
			required = append(required, HeaderSelector(s.Name, "national"), HeaderSelector(s.Name, "inter"))
		}
		if s.Layout == passport.LayoutTable {
			required = append(required, MainSelector(s.Name)+" tbody")
		}
	}

	for _, sel := range required {
		if doc.Query(sel) == nil {
			return fmt.Errorf("missing element %q", sel)
		}
	}
	return nil
}
