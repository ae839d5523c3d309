package vectordb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kosmos-go/internal/model"
)

func TestFlattenMetadata(t *testing.T) {
	flat := FlattenMetadata(map[string]interface{}{
		"title":   "Bone Loss in Mice",
		"year":    2021,
		"authors": []string{"a", "b", "c", "d", "e", "f", "g"},
		"nil":     nil,
		"tags":    []interface{}{"x", "y"},
	})

	assert.Equal(t, "Bone Loss in Mice", flat["title"])
	assert.Equal(t, "2021", flat["year"])
	// 列表保留为字符串数组，最多 5 项
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, flat["authors"])
	assert.Equal(t, []string{"x", "y"}, flat["tags"])
	_, ok := flat["nil"]
	assert.False(t, ok)
}

func TestFlattenMetadataKeepsListsFilterable(t *testing.T) {
	// 多值字段写入 keyword 数组后，term 过滤按成员匹配单个值
	flat := FlattenMetadata(map[string]interface{}{
		"missions": []string{"international space station", "iss"},
	})
	missions, ok := flat["missions"].([]string)
	require.True(t, ok)
	assert.Contains(t, missions, "iss")

	clauses := buildFilterClauses(map[string]interface{}{
		"missions": map[string]interface{}{"$eq": "iss"},
	})
	require.Len(t, clauses, 1)
	term := clauses[0]["term"].(map[string]interface{})
	assert.Contains(t, missions, term["metadata.missions"])
}

func TestFlattenMetadataTruncates(t *testing.T) {
	long := strings.Repeat("x", 2000)
	flat := FlattenMetadata(map[string]interface{}{"abstract": long})
	assert.Len(t, flat["abstract"], 1000)
}

func TestFlattenMetadataEmpty(t *testing.T) {
	assert.Nil(t, FlattenMetadata(nil))
	assert.Nil(t, FlattenMetadata(map[string]interface{}{}))
}

func TestBuildFilterClauses(t *testing.T) {
	clauses := buildFilterClauses(map[string]interface{}{
		"year":     map[string]interface{}{"$eq": 2021},
		"organism": map[string]interface{}{"$in": []string{"mice", "rats"}},
		"journal":  "Nature",
	})
	require.Len(t, clauses, 3)

	// 键按字典序排列：journal, organism, year
	assert.Equal(t, map[string]interface{}{
		"term": map[string]interface{}{"metadata.journal": "Nature"},
	}, clauses[0])
	assert.Equal(t, map[string]interface{}{
		"terms": map[string]interface{}{"metadata.organism": []string{"mice", "rats"}},
	}, clauses[1])
	assert.Equal(t, map[string]interface{}{
		"term": map[string]interface{}{"metadata.year": "2021"},
	}, clauses[2])
}

func TestBuildFilterClausesEmpty(t *testing.T) {
	assert.Nil(t, buildFilterClauses(nil))
	assert.Nil(t, buildFilterClauses(map[string]interface{}{}))
}

func TestMergeHits(t *testing.T) {
	slots := [][]model.SearchHit{
		{{ID: "a", Score: 0.77}, {ID: "b", Score: 0.5}},
		{{ID: "c", Score: 0.91}, {ID: "d", Score: 0.77}},
	}
	merged := mergeHits(slots, 3)
	require.Len(t, merged, 3)

	assert.Equal(t, "c", merged[0].ID)
	// 同分时保持槽位顺序：a 在 d 之前
	assert.Equal(t, "a", merged[1].ID)
	assert.Equal(t, "d", merged[2].ID)
}

func TestMergeHitsDeterministic(t *testing.T) {
	slots := [][]model.SearchHit{
		{{ID: "a", Score: 0.5}},
		{{ID: "b", Score: 0.5}},
		{{ID: "c", Score: 0.5}},
	}
	first := mergeHits(slots, 10)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, mergeHits(slots, 10))
	}
	assert.Equal(t, "a", first[0].ID)
	assert.Equal(t, "b", first[1].ID)
	assert.Equal(t, "c", first[2].ID)
}

func TestIndexNameRoundTrip(t *testing.T) {
	s := &Store{prefix: "kosmos"}
	assert.Equal(t, "kosmos-publications", s.indexName("publications"))
	assert.Equal(t, "publications", s.collectionName("kosmos-publications"))
}
