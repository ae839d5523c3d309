package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kosmos-go/internal/model"
)

func newTestEnhancer() *QueryEnhancer {
	return NewQueryEnhancer(testRetrievalConfig())
}

func TestEnhanceAddsContextTerms(t *testing.T) {
	e := newTestEnhancer()
	history := []model.ConversationMessage{
		{Role: model.RoleUser, Content: "Tell me about microgravity effects on bone"},
		{Role: model.RoleAssistant, Content: "Bone density decreases."},
	}

	enhanced := e.Enhance("What about rodents?", history)
	assert.Equal(t, "What about rodents? (related to: microgravity, bone)", enhanced)
}

func TestEnhanceSkipsTermsAlreadyInQuery(t *testing.T) {
	e := newTestEnhancer()
	history := []model.ConversationMessage{
		{Role: model.RoleUser, Content: "microgravity and bone studies"},
	}

	enhanced := e.Enhance("bone density in space?", history)
	assert.Equal(t, "bone density in space? (related to: microgravity)", enhanced)
}

func TestEnhanceIgnoresAssistantMessages(t *testing.T) {
	e := newTestEnhancer()
	history := []model.ConversationMessage{
		{Role: model.RoleAssistant, Content: "microgravity causes bone loss"},
	}
	assert.Equal(t, "next question", e.Enhance("next question", history))
}

func TestEnhanceNoHistoryOrEmptyQuery(t *testing.T) {
	e := newTestEnhancer()
	assert.Equal(t, "query", e.Enhance("query", nil))
	assert.Equal(t, "", e.Enhance("", []model.ConversationMessage{{Role: model.RoleUser, Content: "bone"}}))
}

func TestEnhanceCapsTerms(t *testing.T) {
	e := newTestEnhancer()
	history := []model.ConversationMessage{
		{Role: model.RoleUser, Content: "microgravity bone muscle radiation studies"},
	}

	enhanced := e.Enhance("what next?", history)
	// 上限 3 个补充词，按词表顺序选取
	assert.Equal(t, "what next? (related to: microgravity, bone, muscle)", enhanced)
}

func TestEnhanceWindowLimit(t *testing.T) {
	e := newTestEnhancer()
	history := []model.ConversationMessage{
		{Role: model.RoleUser, Content: "radiation exposure"},
	}
	for i := 0; i < 6; i++ {
		history = append(history, model.ConversationMessage{Role: model.RoleUser, Content: "unrelated"})
	}

	// 提到 radiation 的消息已滑出窗口
	assert.Equal(t, "question", e.Enhance("question", history))
}

func TestEnhanceDeterministic(t *testing.T) {
	e := newTestEnhancer()
	history := []model.ConversationMessage{
		{Role: model.RoleUser, Content: "bone muscle radiation microgravity"},
	}

	first := e.Enhance("question", history)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Enhance("question", history))
	}
}
