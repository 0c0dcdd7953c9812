package render

import (
	"golang.org/x/net/html"

	"github.com/petmvp/passportview/internal/dom"
)

func domText(n *html.Node) string {
	return dom.Text(n)
}

func hasClass(n *html.Node, c string) bool {
	return dom.HasClass(n, c)
}
