package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kosmos-go/internal/model"
)

func newTestProcessor() *PostProcessor {
	return NewPostProcessor(testPromptConfig())
}

func TestCleanResponse(t *testing.T) {
	p := newTestProcessor()
	assert.Equal(t, "bone loss", p.CleanResponse("<b>bone</b> loss"))
	assert.Equal(t, "a\n\nb", p.CleanResponse("a\n\n\n\n\nb"))
	assert.Equal(t, "trimmed", p.CleanResponse("  trimmed \n"))
}

func TestCleanResponseIdempotent(t *testing.T) {
	p := newTestProcessor()
	raw := "<div>As K-OSMOS,</div>\n\n\n\nfindings follow.  "
	once := p.CleanResponse(raw)
	assert.Equal(t, once, p.CleanResponse(once))
}

func TestEnsurePersona(t *testing.T) {
	p := newTestProcessor()

	withMarker := "As K-OSMOS, here is the answer."
	assert.Equal(t, withMarker, p.EnsurePersona(withMarker))

	without := "Bone loss occurs in microgravity."
	fixed := p.EnsurePersona(without)
	assert.Contains(t, fixed, "Greetings! As K-OSMOS")
	assert.Contains(t, fixed, without)

	assert.Equal(t, "", p.EnsurePersona(""))
}

func TestEnsurePersonaOnlyChecksHead(t *testing.T) {
	p := newTestProcessor()
	// 身份标识出现在 300 字符之后不算保持人设
	tail := make([]byte, 400)
	for i := range tail {
		tail[i] = 'x'
	}
	response := string(tail) + " K-OSMOS"
	assert.Contains(t, p.EnsurePersona(response), "Greetings! As K-OSMOS")
}

func TestExtractSources(t *testing.T) {
	p := newTestProcessor()
	hits := []model.SearchHit{
		hitWithTitle("a_0", "Study X", 0.9),
		{ID: "b_0", Score: 0.5, Metadata: map[string]interface{}{"title": "Study Y"}},
	}

	sources := p.ExtractSources(hits)
	require.Len(t, sources, 2)
	assert.Equal(t, "Smith J., Lee K.", sources[0].Authors)
	assert.Equal(t, "2021", sources[0].Year)
	// 缺失作者时使用占位文本
	assert.Equal(t, "Unknown Authors", sources[1].Authors)
}

func TestDedupeSources(t *testing.T) {
	p := newTestProcessor()
	sources := []model.Source{
		{Title: "Study X", Score: 0.77, Authors: "first"},
		{Title: "study x", Score: 0.91, Authors: "second"},
		{Title: "Study X ", Score: 0.77, Authors: "third"},
		{Title: "Study Y", Score: 0.80},
	}

	deduped := p.DedupeSources(sources)
	require.Len(t, deduped, 2)
	// 同名保留最高分
	assert.Equal(t, 0.91, deduped[0].Score)
	assert.Equal(t, "second", deduped[0].Authors)
	assert.Equal(t, "Study Y", deduped[1].Title)
}

func TestDedupeSourcesDropsUnknown(t *testing.T) {
	p := newTestProcessor()
	sources := []model.Source{
		{Title: "", Score: 0.9},
		{Title: "unknown title", Score: 0.9},
		{Title: "Unknown Title", Score: 0.9},
		{Title: "Real Study", Score: 0.5},
	}

	deduped := p.DedupeSources(sources)
	require.Len(t, deduped, 1)
	assert.Equal(t, "Real Study", deduped[0].Title)
}

func TestDedupeSourcesTieKeepsFirst(t *testing.T) {
	p := newTestProcessor()
	sources := []model.Source{
		{Title: "Study X", Score: 0.77, Authors: "first"},
		{Title: "STUDY X", Score: 0.77, Authors: "second"},
	}

	deduped := p.DedupeSources(sources)
	require.Len(t, deduped, 1)
	assert.Equal(t, "first", deduped[0].Authors)
}
