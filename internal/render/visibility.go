package render

import (
	"fmt"

	"github.com/petmvp/passportview/internal/dom"
)

const (
	hiddenClass    = "hidden"
	highlightClass = "highlight"
)

// DisplayElement shows the "<target>-<group>" child of the ".<group>" element
// and hides its siblings.
func DisplayElement(doc *dom.Document, group, target string) error {
	parent := doc.Query("." + group)
	if parent == nil {
		return fmt.Errorf("no %q element", group)
	}

	want := target + "-" + group
	found := false
	for _, child := range dom.ElementChildren(parent) {
		if dom.HasClass(child, want) {
			dom.RemoveClass(child, hiddenClass)
			found = true
			continue
		}
		dom.AddClass(child, hiddenClass)
	}
	if !found {
		return fmt.Errorf("no %q in %q", want, group)
	}
	return nil
}

// HighlightContents marks the table-of-contents entry of target as current
func HighlightContents(doc *dom.Document, target string) error {
	contents := doc.Query("ul.passport-contents")
	if contents == nil {
		return fmt.Errorf("no table of contents")
	}
	for _, item := range dom.ElementChildren(contents) {
		dom.RemoveClass(item, highlightClass)
	}

	link := dom.Find(contents, "#"+target)
	if link == nil || link.Parent == nil {
		return fmt.Errorf("no contents entry %q", target)
	}
	dom.AddClass(link.Parent, highlightClass)
	return nil
}
