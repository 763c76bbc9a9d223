package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narravox/sentinel/pkg/types"
)

func doc(name, content string) types.Document {
	return types.Document{
		DocumentRef: types.DocumentRef{ID: "docs/" + name, Name: name, Path: "docs/" + name},
		Content:     content,
	}
}

func TestClassifyFrontMatterAnchor(t *testing.T) {
	d := doc("thomas.md", `---
name: Thomas
type: persona
---

Thomas vive en el castillo.`)

	found := Classify(d)
	require.Len(t, found, 1)
	assert.Equal(t, "Thomas", found[0].Name)
	assert.Equal(t, types.TierAnchor, found[0].Tier)
	assert.Equal(t, types.CategoryPerson, found[0].Category)
	assert.Equal(t, "docs/thomas.md", found[0].AnchorDocID)
}

func TestClassifyFrontMatterCategoryVocabulary(t *testing.T) {
	cases := []struct {
		hint string
		want types.EntityCategory
	}{
		{"criatura del bosque", types.CategoryCreature},
		{"beast", types.CategoryCreature},
		{"planta medicinal", types.CategoryFlora},
		{"ciudad portuaria", types.CategoryLocation},
		{"artefacto antiguo", types.CategoryObject},
		{"protagonista", types.CategoryPerson},
	}
	for _, tc := range cases {
		d := doc("x.md", "---\nname: Sombra\ntype: "+tc.hint+"\n---\n\nbody")
		found := Classify(d)
		require.Len(t, found, 1, "hint %q", tc.hint)
		assert.Equal(t, tc.want, found[0].Category, "hint %q", tc.hint)
	}
}

func TestClassifyHeaderWithMetadataKeys(t *testing.T) {
	d := doc("aria.md", `# Aria

Edad: 23
Rol: exploradora

Aria creció junto al río.`)

	found := Classify(d)
	require.Len(t, found, 1)
	assert.Equal(t, "Aria", found[0].Name)
	assert.Equal(t, types.TierAnchor, found[0].Tier)
}

// A bare heading is narrative structure, not an entity declaration.
func TestClassifyBareHeadingYieldsNothing(t *testing.T) {
	d := doc("tavern.md", `# The Tavern

The room smelled of smoke and old ale.`)

	assert.Nil(t, Classify(d))
}

func TestClassifyChapterHeadingRejected(t *testing.T) {
	d := doc("cap1.md", `# Capítulo 1

Edad: no aplica

Comienza la historia.`)

	assert.Nil(t, Classify(d))
}

func TestClassifyExplicitNameLine(t *testing.T) {
	d := doc("sheet.md", `Nombre: Mira
Ocupacion: herrera

Notas sueltas sobre Mira.`)

	found := Classify(d)
	require.Len(t, found, 1)
	assert.Equal(t, "Mira", found[0].Name)
	assert.Equal(t, types.TierAnchor, found[0].Tier)
}

func TestClassifyContainerRoster(t *testing.T) {
	d := doc("personajes.md", `# Personajes

## Elena
Edad: 20
Gustos: leer

## Bruno
Edad: 31
`)

	found := Classify(d)
	require.Len(t, found, 2)
	assert.Equal(t, "Elena", found[0].Name)
	assert.Equal(t, types.TierLimbo, found[0].Tier)
	assert.Contains(t, found[0].RawContent, "Edad: 20")
	assert.NotContains(t, found[0].RawContent, "leer", "content cuts off at likes/dislikes markers")
	assert.Equal(t, "Bruno", found[1].Name)
}

func TestClassifyLimboFilename(t *testing.T) {
	d := doc("idea-bosque.md", `Apuntes sueltos.

Umbral: una criatura que vive entre dos mundos.`)

	found := Classify(d)
	require.Len(t, found, 1)
	assert.Equal(t, "Umbral", found[0].Name)
	assert.Equal(t, types.TierLimbo, found[0].Tier)
	assert.Contains(t, found[0].RawContent, "entre dos mundos")
}

func TestClassifyLimboFilenameSkipsGenericTerms(t *testing.T) {
	d := doc("notas.md", `Nota: comprar pan
Fecha: ayer`)

	assert.Nil(t, Classify(d))
}

func TestClassifyPlainNarrativeYieldsNothing(t *testing.T) {
	d := doc("chapter-02.md", `La lluvia caía sobre el tejado mientras Elena esperaba.`)
	assert.Nil(t, Classify(d))
}

func TestSplitFrontMatter(t *testing.T) {
	meta, body := splitFrontMatter("---\nname: Thomas\nedad: 40\n---\n\nEl cuerpo.")
	require.NotNil(t, meta)
	assert.Equal(t, "Thomas", meta["name"])
	assert.Contains(t, body, "El cuerpo.")

	meta, body = splitFrontMatter("Sin metadatos.")
	assert.Nil(t, meta)
	assert.Equal(t, "Sin metadatos.", body)
}

// Files exported by some editors start with a byte-order mark; the block
// must still be recognized.
func TestSplitFrontMatterSkipsByteOrderMark(t *testing.T) {
	meta, body := splitFrontMatter("\uFEFF---\nname: Mira\n---\n\nFicha.")
	require.NotNil(t, meta)
	assert.Equal(t, "Mira", meta["name"])
	assert.Contains(t, body, "Ficha.")
}
