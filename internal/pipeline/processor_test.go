package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"kosmos-go/internal/config"
	"kosmos-go/internal/model"
)

type fakePublicationRepo struct {
	existing *model.Publication

	upserted     *model.Publication
	statusDocID  string
	statusValue  int
	statusChunks int
	updateCalled bool
	upsertCalled bool
}

func (f *fakePublicationRepo) Upsert(record *model.Publication) error {
	f.upsertCalled = true
	f.upserted = record
	return nil
}

func (f *fakePublicationRepo) FindByDocID(docID string) (*model.Publication, error) {
	if f.existing != nil && f.existing.DocID == docID {
		return f.existing, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePublicationRepo) FindBatchByDocIDs(_ []string) ([]*model.Publication, error) {
	return nil, nil
}

func (f *fakePublicationRepo) UpdateStatus(docID string, status int, chunkCount int) error {
	f.updateCalled = true
	f.statusDocID = docID
	f.statusValue = status
	f.statusChunks = chunkCount
	return nil
}

func (f *fakePublicationRepo) ListByCollection(_ string, _, _ int) ([]*model.Publication, error) {
	return nil, nil
}

func (f *fakePublicationRepo) DeleteByDocID(_ string) error {
	return nil
}

func newTestProcessor(repo *fakePublicationRepo) *Processor {
	return NewProcessor(nil, nil, nil, nil, repo, config.ProcessingConfig{})
}

func TestMarkFailedUpdatesExistingRecord(t *testing.T) {
	repo := &fakePublicationRepo{existing: &model.Publication{
		DocID:      "doc1",
		Collection: "publications",
		Title:      "Bone Loss in Mice",
		ChunkCount: 12,
		Status:     model.IngestStatusIndexed,
	}}
	p := newTestProcessor(repo)

	p.markFailed(model.DocumentIngestTask{DocID: "doc1", Collection: "publications"})

	// 已登记的文档只更新状态，不覆盖登记信息
	assert.True(t, repo.updateCalled)
	assert.False(t, repo.upsertCalled)
	assert.Equal(t, "doc1", repo.statusDocID)
	assert.Equal(t, model.IngestStatusFailed, repo.statusValue)
}

func TestMarkFailedRegistersUnknownDocument(t *testing.T) {
	repo := &fakePublicationRepo{}
	p := newTestProcessor(repo)

	p.markFailed(model.DocumentIngestTask{
		DocID:      "doc2",
		Collection: "publications",
		Title:      "Muscle Atrophy Study",
	})

	assert.False(t, repo.updateCalled)
	require.True(t, repo.upsertCalled)
	assert.Equal(t, "doc2", repo.upserted.DocID)
	assert.Equal(t, "Muscle Atrophy Study", repo.upserted.Title)
	assert.Equal(t, model.IngestStatusFailed, repo.upserted.Status)
}

func TestBuildMetadataKeepsEntityLists(t *testing.T) {
	p := newTestProcessor(&fakePublicationRepo{})
	task := model.DocumentIngestTask{
		DocID:   "doc3",
		Title:   "ISS Bone Study",
		Authors: "Smith J., Lee K.",
		Year:    "2021",
	}
	entities := model.Entities{
		Organisms: []string{"mus musculus"},
		Missions:  []string{"international space station", "iss"},
	}

	metadata := p.buildMetadata(task, 2, entities)

	assert.Equal(t, "ISS Bone Study", metadata["title"])
	assert.Equal(t, "2", metadata["chunk_index"])
	// 实体列表保留为数组，写入 keyword 字段后可按成员过滤
	assert.Equal(t, []string{"mus musculus"}, metadata["organisms"])
	assert.Equal(t, []string{"international space station", "iss"}, metadata["missions"])
}
