package citation

import (
	"strings"
	"testing"

	"github.com/daniss/Raggy-sub000/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSources() []model.Source {
	return []model.Source{
		{Index: 1, DocumentID: "doc-1", Filename: "contrat.pdf", Excerpt: "extrait un", Relevance: 0.91},
		{Index: 2, DocumentID: "doc-2", Filename: "guide.pdf", Excerpt: "extrait deux", Relevance: 0.44},
	}
}

func TestSplitResolvesMarkerToSource(t *testing.T) {
	segments := Split("Voir [1] pour le détail.", sampleSources())

	require.Len(t, segments, 3)
	assert.Equal(t, "Voir ", segments[0].Text)
	assert.Nil(t, segments[0].Source)

	assert.Equal(t, "[1]", segments[1].Text)
	assert.Equal(t, 1, segments[1].Index)
	require.NotNil(t, segments[1].Source)
	assert.Equal(t, "doc-1", segments[1].Source.DocumentID)

	assert.Equal(t, " pour le détail.", segments[2].Text)
}

func TestSplitMarkerIsOneBased(t *testing.T) {
	segments := Split("[2]", sampleSources())

	require.Len(t, segments, 1)
	require.NotNil(t, segments[0].Source)
	assert.Equal(t, "doc-2", segments[0].Source.DocumentID)
}

func TestSplitOutOfRangeMarkersStayLiteral(t *testing.T) {
	for _, marker := range []string{"[0]", "[3]", "[99]"} {
		segments := Split(marker, sampleSources())

		require.Len(t, segments, 1, marker)
		assert.Nil(t, segments[0].Source, marker)
		assert.Equal(t, marker, segments[0].Text)
	}
}

func TestSplitAdjacentMarkersResolveIndependently(t *testing.T) {
	segments := Split("Preuves [1][2].", sampleSources())

	require.Len(t, segments, 4)
	require.NotNil(t, segments[1].Source)
	require.NotNil(t, segments[2].Source)
	assert.Equal(t, "doc-1", segments[1].Source.DocumentID)
	assert.Equal(t, "doc-2", segments[2].Source.DocumentID)
}

func TestSplitSameSourceCitedTwice(t *testing.T) {
	refs := References("Avant [1], puis encore [1].", sampleSources())

	require.Len(t, refs, 2)
	assert.Equal(t, refs[0].Source, refs[1].Source)
}

func TestSplitNeverDropsSurroundingText(t *testing.T) {
	text := "début [1] milieu [7] fin [2]"

	var rebuilt strings.Builder
	for _, seg := range Split(text, sampleSources()) {
		rebuilt.WriteString(seg.Text)
	}

	assert.Equal(t, text, rebuilt.String())
}

func TestSplitNoSources(t *testing.T) {
	segments := Split("Texte avec [1] marqueur.", nil)

	for _, seg := range segments {
		assert.Nil(t, seg.Source)
	}
}

func TestSplitEmptyText(t *testing.T) {
	assert.Nil(t, Split("", sampleSources()))
}

func TestSplitPlainTextOnly(t *testing.T) {
	segments := Split("aucun marqueur ici", sampleSources())

	require.Len(t, segments, 1)
	assert.Equal(t, "aucun marqueur ici", segments[0].Text)
}

func TestReferencesCarryExcerptAndRelevance(t *testing.T) {
	refs := References("[2]", sampleSources())

	require.Len(t, refs, 1)
	assert.Equal(t, 2, refs[0].Index)
	assert.Equal(t, "extrait deux", refs[0].Excerpt)
	assert.InDelta(t, 0.44, refs[0].Relevance, 1e-9)
}

func TestReferencesIdempotent(t *testing.T) {
	text := "D'abord [1], ensuite [2], hors liste [5]."
	sources := sampleSources()

	first := References(text, sources)
	second := References(text, sources)

	assert.Equal(t, first, second)
}

func TestSplitIgnoresNonNumericBrackets(t *testing.T) {
	segments := Split("[note] et [1a]", sampleSources())

	for _, seg := range segments {
		assert.Nil(t, seg.Source)
	}
}
