package render

import (
	"golang.org/x/net/html"

	"github.com/petmvp/passportview/internal/dom"
	"github.com/petmvp/passportview/internal/format"
)

const footerClass = "page-footer"

// AppendFooterOnce appends the passport number footer to a page unless the
// page already ends with one. It reports whether a footer was added.
func AppendFooterOnce(page *html.Node, passportNumber string) bool {
	if last := dom.LastElementChild(page); last != nil && dom.HasClass(last, footerClass) {
		return false
	}

	number := dom.TextElement("h5", format.SplitPassportNumber(passportNumber), "passport-number")
	dom.SetAttr(number, "id", "passport-number")
	footer := dom.Element("section", footerClass)
	dom.Append(footer, number)
	dom.Append(page, footer)
	return true
}
