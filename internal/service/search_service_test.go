package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kosmos-go/internal/model"
)

type fakePublicationRepo struct {
	records map[string]*model.Publication
	err     error
}

func (f *fakePublicationRepo) Upsert(*model.Publication) error                 { return nil }
func (f *fakePublicationRepo) UpdateStatus(string, int, int) error             { return nil }
func (f *fakePublicationRepo) DeleteByDocID(string) error                      { return nil }
func (f *fakePublicationRepo) FindByDocID(string) (*model.Publication, error)  { return nil, nil }
func (f *fakePublicationRepo) ListByCollection(string, int, int) ([]*model.Publication, error) {
	return nil, nil
}

func (f *fakePublicationRepo) FindBatchByDocIDs(docIDs []string) ([]*model.Publication, error) {
	if f.err != nil {
		return nil, f.err
	}
	var records []*model.Publication
	for _, id := range docIDs {
		if record, ok := f.records[id]; ok {
			records = append(records, record)
		}
	}
	return records, nil
}

func TestSearchDocumentsEnrichesFromRegistry(t *testing.T) {
	searcher := &fakeSearcher{hits: []model.SearchHit{
		{ID: "pub42_3", Score: 0.9, Content: "chunk text", Metadata: map[string]interface{}{"collection": "publications"}},
	}}
	repo := &fakePublicationRepo{records: map[string]*model.Publication{
		"pub42": {DocID: "pub42", Title: "Bone Loss in Mice", Authors: "Smith J.", Journal: "npj Microgravity", Year: "2021", URL: "https://example.org/pub42"},
	}}
	svc := NewSearchService(&fakeEmbedder{vector: []float32{0.1}}, searcher, repo, testRetrievalConfig())

	results, err := svc.SearchDocuments(context.Background(), "bone loss", nil, 0, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "pub42_3", results[0].DocID)
	assert.Equal(t, "Bone Loss in Mice", results[0].Title)
	assert.Equal(t, "Smith J.", results[0].Authors)
	assert.Equal(t, "npj Microgravity", results[0].Journal)
	assert.Equal(t, "publications", results[0].Collection)
}

func TestSearchDocumentsMetadataWins(t *testing.T) {
	searcher := &fakeSearcher{hits: []model.SearchHit{
		hitWithTitle("pub42_0", "Metadata Title", 0.9),
	}}
	repo := &fakePublicationRepo{records: map[string]*model.Publication{
		"pub42": {DocID: "pub42", Title: "Registry Title"},
	}}
	svc := NewSearchService(&fakeEmbedder{vector: []float32{0.1}}, searcher, repo, testRetrievalConfig())

	results, err := svc.SearchDocuments(context.Background(), "bone", nil, 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Metadata Title", results[0].Title)
}

func TestSearchDocumentsRegistryFailureTolerated(t *testing.T) {
	searcher := &fakeSearcher{hits: []model.SearchHit{
		{ID: "pub42_0", Score: 0.9, Content: "text", Metadata: map[string]interface{}{}},
	}}
	repo := &fakePublicationRepo{err: errors.New("mysql down")}
	svc := NewSearchService(&fakeEmbedder{vector: []float32{0.1}}, searcher, repo, testRetrievalConfig())

	results, err := svc.SearchDocuments(context.Background(), "bone", nil, 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Unknown Title", results[0].Title)
}

func TestSearchDocumentsEmptyQuery(t *testing.T) {
	svc := NewSearchService(&fakeEmbedder{}, &fakeSearcher{}, &fakePublicationRepo{}, testRetrievalConfig())
	results, err := svc.SearchDocuments(context.Background(), "  ", nil, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchDocumentsEmbeddingFailure(t *testing.T) {
	svc := NewSearchService(&fakeEmbedder{vector: nil}, &fakeSearcher{}, &fakePublicationRepo{}, testRetrievalConfig())
	results, err := svc.SearchDocuments(context.Background(), "bone", nil, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDocIDStem(t *testing.T) {
	assert.Equal(t, "pub42", docIDStem("pub42_3"))
	assert.Equal(t, "GLDS-242", docIDStem("GLDS-242_10"))
	assert.Equal(t, "plain", docIDStem("plain"))
	assert.Equal(t, "a_b", docIDStem("a_b_2"))
}
