package render

import (
	"context"
	"fmt"

	"golang.org/x/net/html"

	"github.com/petmvp/passportview/internal/dom"
	"github.com/petmvp/passportview/internal/passport"
)

// RenderTable fills a table section: one <tr> per payload entry, in payload order.
// Doctor lookups for all rows finish before the table body is touched, so a
// failed lookup only drops that row's doctor cell.
func RenderTable(ctx context.Context, v *View, schema passport.Schema) error {
	if schema.Layout != passport.LayoutTable {
		return fmt.Errorf("%s is not a table section", schema.Name)
	}
	_, main, err := v.page(schema.Name)
	if err != nil {
		return err
	}
	tbody := dom.Find(main, "tbody")
	if tbody == nil {
		return fmt.Errorf("%s table has no tbody", schema.Name)
	}

	sec, err := v.section(schema)
	if err != nil {
		return err
	}
	rows, err := sec.List(schema.Payload)
	if err != nil {
		return err
	}
	if err := v.writeHeader(schema, sec); err != nil {
		return err
	}

	var lookups []DoctorLookup
	if schema.Doctor {
		lookups = v.lookupDoctors(ctx, schema.Name, rows)
	}

	dom.Clear(tbody)
	for i, row := range rows {
		tr := v.tableRow(schema, row)
		if lookups != nil && lookups[i].State == RowResolved {
			dom.Append(tr, dom.TextElement("td", lookups[i].Doctor.Name()))
		}
		dom.Append(tbody, tr)
	}
	return nil
}

func (v *View) tableRow(schema passport.Schema, row passport.Entry) *html.Node {
	tr := dom.Element("tr")
	for _, f := range schema.Primary {
		dom.Append(tr, dom.TextElement("td", v.value(row, f)))
	}
	if len(schema.Nested) == 0 {
		return tr
	}

	wrapper := dom.Element("div", "multi-row-header")
	for _, f := range schema.Nested {
		cell := dom.Element("div")
		dom.Append(cell, dom.TextElement("span", v.value(row, f)))
		dom.Append(wrapper, cell)
	}
	td := dom.Element("td")
	dom.Append(td, wrapper)
	dom.Append(tr, td)
	return tr
}
