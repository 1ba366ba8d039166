package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLookup(t *testing.T, node map[string]any, path string) map[string]any {
	t.Helper()
	n, err := Lookup(node, path)
	require.NoError(t, err, path)
	return n
}

func TestAugmentPropertyOrder(t *testing.T) {
	s, err := Augment(Base())
	require.NoError(t, err)

	props := Properties(s)
	for i, name := range SectionOrder {
		assert.Equal(t, i, mustLookup(t, props, name)["propertyOrder"], name)
	}
	for i, name := range BasicsOrder {
		assert.Equal(t, i, mustLookup(t, props, "basics.properties."+name)["propertyOrder"], name)
	}
}

func TestAugmentHeaderTemplates(t *testing.T) {
	s, err := Augment(Base())
	require.NoError(t, err)
	props := Properties(s)

	cases := map[string]string{
		"skills.items":                       "skill {{i1}}",
		"references.items":                   "reference {{i1}}",
		"interests.items":                    "interest {{i1}}",
		"work.items":                         "work {{i1}}",
		"sideProjects.items":                 "sideProject {{i1}}",
		"basics.properties.profiles.items":   "profile {{i1}}",
		"work.items.properties.highlights.items": "highlight {{i1}}",
	}
	for path, want := range cases {
		assert.Equal(t, want, mustLookup(t, props, path)["headerTemplate"], path)
	}
}

func TestHeaderTemplate(t *testing.T) {
	assert.Equal(t, "skill {{i1}}", HeaderTemplate("skills"))
	assert.Equal(t, "reference {{i1}}", HeaderTemplate("references"))
	assert.Equal(t, "interest {{i1}}", HeaderTemplate("interests"))
	// Only one trailing s is removed.
	assert.Equal(t, "addres {{i1}}", HeaderTemplate("address"))
	assert.Equal(t, "work {{i1}}", HeaderTemplate("work"))
}

func TestAugmentFormatsAndOverrides(t *testing.T) {
	s, err := Augment(Base())
	require.NoError(t, err)
	props := Properties(s)

	for path, format := range FieldFormats {
		assert.Equal(t, format, mustLookup(t, props, path)["format"], path)
	}
	assert.Equal(t, "text", mustLookup(t, s, "definitions.iso8601")["format"])
	assert.Equal(t, "CV Schema", s["title"])
	assert.Equal(t,
		"Using ISO 8601 with YYYY-MM-DDThh:mm:ss. This will be automatically updated when downloading.",
		mustLookup(t, props, "meta.properties.lastModified")["description"])
}

func TestAugmentIsPure(t *testing.T) {
	base := Base()
	before := base.Clone()

	first, err := Augment(base)
	require.NoError(t, err)
	second, err := Augment(base)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, before, base, "base schema must not be modified")
	_, hasOrder := mustLookup(t, Properties(base), "basics")["propertyOrder"]
	assert.False(t, hasOrder)
}

func TestAugmentFailsOnMissingPath(t *testing.T) {
	base := Base()
	delete(Properties(base), "sideProjects")

	_, err := Augment(base)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPathNotFound))
}

func TestSkeleton(t *testing.T) {
	sk := Skeleton(Properties(Base()))

	assert.Equal(t, []any{}, sk["work"])
	basics, ok := sk["basics"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "", basics["name"])
	assert.Equal(t, []any{}, basics["profiles"])
	meta, ok := sk["meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{}, meta["hiddenSections"])
}
