package cv

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleParses(t *testing.T) {
	doc := Sample()
	assert.Equal(t, "Richard Hendriks", doc.Basics.Name)
	assert.Equal(t, "Richard Hendriks CV", doc.Meta.Name)
	assert.Len(t, doc.Skills, 2)
	assert.NotNil(t, doc.Meta.HiddenSections)
	assert.Empty(t, doc.Meta.HiddenSections)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Jane Doe", Title(Document{Meta: Meta{Name: "Jane Doe"}}))
	assert.Equal(t, "John", Title(Document{Basics: Basics{Name: " John "}}))
	assert.Equal(t, "CV", Title(Document{}))
}

func TestMetaKeepsUnknownFields(t *testing.T) {
	in := `{"meta":{"name":"x","theme":"classic","custom":{"a":1},"hiddenSections":["work"]}}`
	doc, err := Parse([]byte(in))
	require.NoError(t, err)

	assert.Equal(t, "classic", doc.Meta.Theme)
	assert.Equal(t, []string{"work"}, doc.Meta.HiddenSections)
	assert.Equal(t, map[string]any{"a": float64(1)}, doc.Meta.Extra["custom"])

	out, err := json.Marshal(doc.Meta)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"x","theme":"classic","custom":{"a":1},"hiddenSections":["work"]}`, string(out))
}

func TestEmptyHiddenSectionsSurvivesClone(t *testing.T) {
	doc := Document{Meta: Meta{HiddenSections: []string{}}}
	clone := doc.Clone()
	assert.NotNil(t, clone.Meta.HiddenSections)

	doc.Meta.HiddenSections = nil
	assert.Nil(t, doc.Clone().Meta.HiddenSections)
}

func TestCloneIsDeep(t *testing.T) {
	doc := Sample()
	clone := doc.Clone()
	clone.Work[0].Highlights[0] = "changed"
	clone.Meta.HiddenSections = append(clone.Meta.HiddenSections, "work")

	assert.NotEqual(t, "changed", doc.Work[0].Highlights[0])
	assert.False(t, doc.Meta.IsHidden("work"))
}

func TestMarshalIndentWritesEmptyLists(t *testing.T) {
	out, err := MarshalIndent(Document{})
	require.NoError(t, err)
	assert.Contains(t, string(out), "\n  \"work\": []")
}
