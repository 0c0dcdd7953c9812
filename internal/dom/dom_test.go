package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!DOCTYPE html><html><body>
<div class="pet page">
  <div class="header pet page"><h6 id="national">old</h6><h6 id="inter"></h6></div>
  <div class="main pet page"><span>keep?</span></div>
</div>
<div class="owner page"><div class="header owner page"><h6 id="national"></h6></div></div>
</body></html>`

func TestQuery(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)

	wrapper := doc.Query("div.pet.page")
	require.NotNil(t, wrapper)
	assert.Equal(t, []string{"pet", "page"}, Classes(wrapper), "first match in document order is the wrapper")

	h := doc.Query(".header.pet.page h6#national")
	require.NotNil(t, h)
	assert.Equal(t, "old", Text(h))

	assert.Len(t, doc.QueryAll("h6#national"), 2)
	assert.Nil(t, doc.Query(".missing"))
	assert.Nil(t, Find(nil, "div"))
}

func TestMutation(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)

	main := doc.Query(".main.pet.page")
	Clear(main)
	assert.Empty(t, ElementChildren(main))

	group := Element("div", "pet-info-group")
	Append(group, TextElement("span", "Име / Name: ", "pet-label"), TextElement("span", "<b>Rex</b>", "pet-value"))
	Append(main, group)
	Prepend(main, TextElement("p", "first"))

	children := ElementChildren(main)
	require.Len(t, children, 2)
	assert.Equal(t, "p", children[0].Data)
	assert.Same(t, group, LastElementChild(main))

	out := doc.String()
	assert.Contains(t, out, `<span class="pet-value">&lt;b&gt;Rex&lt;/b&gt;</span>`)
	assert.NotContains(t, out, "keep?")
}

func TestClasses(t *testing.T) {
	n := Element("li", "a")
	AddClass(n, "highlight")
	AddClass(n, "highlight")
	assert.Equal(t, []string{"a", "highlight"}, Classes(n))

	RemoveClass(n, "a")
	assert.True(t, HasClass(n, "highlight"))
	assert.False(t, HasClass(n, "a"))
	assert.False(t, HasClass(nil, "a"))

	SetAttr(n, "id", "x")
	SetAttr(n, "id", "y")
	v, ok := Attr(n, "id")
	assert.True(t, ok)
	assert.Equal(t, "y", v)
}

func TestSetTextReplacesChildren(t *testing.T) {
	n := Element("h6")
	Append(n, Element("b"), Element("i"))
	SetText(n, "1. PET")
	assert.Empty(t, ElementChildren(n))
	assert.Equal(t, "1. PET", Text(n))
}

func TestAppendMovesNode(t *testing.T) {
	a, b := Element("div"), Element("div")
	child := Element("span")
	Append(a, child)
	Append(b, child)
	assert.Nil(t, a.FirstChild)
	assert.Same(t, b, child.Parent)
}

func TestRender(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)
	var sb strings.Builder
	require.NoError(t, doc.Render(&sb))
	assert.True(t, strings.HasPrefix(sb.String(), "<!DOCTYPE html>"))
}
