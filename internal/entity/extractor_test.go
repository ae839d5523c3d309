package entity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kosmos-go/internal/model"
)

func TestPatternExtractorBasic(t *testing.T) {
	e := NewPatternExtractor()
	text := "Mice aboard the ISS showed bone loss under microgravity. CDKN1A expression increased during the experiment."

	entities, err := e.Extract(context.Background(), text)
	require.NoError(t, err)

	assert.Contains(t, entities.Organisms, "mice")
	assert.Contains(t, entities.Tissues, "bone")
	assert.Contains(t, entities.Missions, "iss")
	assert.Contains(t, entities.Genes, "CDKN1A")
	assert.Equal(t, model.GravityMicro, entities.GravityCondition)
	assert.Equal(t, model.StudyExperimental, entities.StudyType)
}

func TestPatternExtractorFiltersNonGenes(t *testing.T) {
	e := NewPatternExtractor()
	entities, err := e.Extract(context.Background(), "NASA ran PCR on DNA and RNA samples; TP53 was upregulated.")
	require.NoError(t, err)

	assert.Equal(t, []string{"TP53"}, entities.Genes)
}

func TestPatternExtractorEmptyAndDeterministic(t *testing.T) {
	e := NewPatternExtractor()
	empty, err := e.Extract(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, model.Entities{}, empty)

	text := "rats and mice in a centrifuge review of muscle and bone"
	first, err := e.Extract(context.Background(), text)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.Extract(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, model.GravityHyper, first.GravityCondition)
}

type fakeNER struct {
	entities map[string][]string
	err      error
}

func (f *fakeNER) ExtractEntities(_ context.Context, _ string) (map[string][]string, error) {
	return f.entities, f.err
}

func TestModelExtractor(t *testing.T) {
	e := NewModelExtractor(&fakeNER{entities: map[string][]string{
		"organisms":         {"Mus musculus", "Mus musculus"},
		"proteins":          {"collagen"},
		"gravity_condition": {model.GravityPartial},
	}})

	entities, err := e.Extract(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, []string{"Mus musculus"}, entities.Organisms)
	assert.Equal(t, []string{"collagen"}, entities.Proteins)
	assert.Equal(t, model.GravityPartial, entities.GravityCondition)
}

func TestModelExtractorError(t *testing.T) {
	e := NewModelExtractor(&fakeNER{err: errors.New("connection refused")})
	_, err := e.Extract(context.Background(), "some text")
	assert.Error(t, err)
}

func TestCompositeExtractorMerges(t *testing.T) {
	modelSide := NewModelExtractor(&fakeNER{entities: map[string][]string{
		"organisms":  {"arabidopsis thaliana"},
		"proteins":   {"osteocalcin"},
		"study_type": {model.StudyReview},
	}})
	e := NewCompositeExtractor(NewPatternExtractor(), modelSide)

	entities, err := e.Extract(context.Background(), "Mice experiment under microgravity.")
	require.NoError(t, err)

	// 模式与模型结果取并集
	assert.Contains(t, entities.Organisms, "mice")
	assert.Contains(t, entities.Organisms, "arabidopsis thaliana")
	assert.Equal(t, []string{"osteocalcin"}, entities.Proteins)
	// 单值类别以模型结果优先
	assert.Equal(t, model.StudyReview, entities.StudyType)
	assert.Equal(t, model.GravityMicro, entities.GravityCondition)
}

func TestCompositeExtractorFallback(t *testing.T) {
	modelSide := NewModelExtractor(&fakeNER{err: errors.New("timeout")})
	e := NewCompositeExtractor(NewPatternExtractor(), modelSide)

	entities, err := e.Extract(context.Background(), "Mice under microgravity.")
	require.NoError(t, err)
	assert.Contains(t, entities.Organisms, "mice")
	assert.Equal(t, model.GravityMicro, entities.GravityCondition)
}

func TestCompositeExtractorWithoutModel(t *testing.T) {
	e := NewCompositeExtractor(NewPatternExtractor(), nil)
	entities, err := e.Extract(context.Background(), "zebrafish in orbital flight")
	require.NoError(t, err)
	assert.Contains(t, entities.Organisms, "zebrafish")
}
