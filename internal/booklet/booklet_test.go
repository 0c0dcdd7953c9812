package booklet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petmvp/passportview/internal/dom"
	"github.com/petmvp/passportview/pkg/errors"
)

func TestEmbeddedSkeleton(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)
	assert.Equal(t, "embedded", s.Source())

	doc, err := s.Document()
	require.NoError(t, err)
	require.NoError(t, Check(doc))

	page := doc.Query(PageSelector("pet"))
	require.NotNil(t, page)
	assert.Equal(t, []string{"pet", "page"}, dom.Classes(page))
}

func TestDocumentsAreIndependent(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)

	a, err := s.Document()
	require.NoError(t, err)
	b, err := s.Document()
	require.NoError(t, err)

	dom.SetText(a.Query(HeaderSelector("pet", "national")), "2. ОПИСАНИЕ")
	assert.Equal(t, "", dom.Text(b.Query(HeaderSelector("pet", "national"))))
}

func TestSkeletonFromFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.html")
	require.NoError(t, os.WriteFile(good, skeleton, 0644))
	s, err := New(good)
	require.NoError(t, err)
	assert.Equal(t, good, s.Source())

	bad := filepath.Join(dir, "bad.html")
	require.NoError(t, os.WriteFile(bad, []byte(`<html><body><div class="container"></div></body></html>`), 0644))
	_, err = New(bad)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSkeleton))

	_, err = New(filepath.Join(dir, "missing.html"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeSkeleton))
}
