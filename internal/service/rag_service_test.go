package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kosmos-go/internal/config"
	"kosmos-go/internal/model"
	"kosmos-go/pkg/llm"
)

type fakeEmbedder struct {
	vector []float32
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) []float32 {
	return f.vector
}

type fakeSearcher struct {
	hits    []model.SearchHit
	err     error
	gotTopK int
}

func (f *fakeSearcher) HybridSearch(_ context.Context, _ []string, _ []float32, topK int, _ map[string]interface{}) ([]model.SearchHit, error) {
	f.gotTopK = topK
	return f.hits, f.err
}

type fakeLLM struct {
	answer string
	err    error
	chunks []string
}

func (f *fakeLLM) Generate(_ context.Context, _ []llm.Message, _ *llm.GenerationParams) (string, error) {
	return f.answer, f.err
}

func (f *fakeLLM) StreamChatMessages(_ context.Context, _ []llm.Message, _ *llm.GenerationParams, writer llm.MessageWriter) error {
	if f.err != nil {
		return f.err
	}
	for _, chunk := range f.chunks {
		if err := writer.WriteMessage(1, []byte(chunk)); err != nil {
			return err
		}
	}
	return nil
}

type captureWriter struct {
	parts []string
}

func (w *captureWriter) WriteMessage(_ int, data []byte) error {
	w.parts = append(w.parts, string(data))
	return nil
}

func testPromptConfig() config.PromptConfig {
	return config.PromptConfig{
		Persona:        "You are K-OSMOS, a space biology research assistant.",
		IdentityMarker: "K-OSMOS",
		Preamble:       "Greetings! As K-OSMOS, your space research assistant, here is what I found.",
		Guidelines:     "Cite sources in the format: According to Document X (Reference ID: DOC-XXX).",
		NoResultText:   "No relevant documents found.",
		ApologyText:    "I apologize, but I encountered an issue while processing your question. Please try again.",
	}
}

func testRetrievalConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		Collections:     []string{"publications", "datasets"},
		TopK:            15,
		MaxSources:      10,
		SnippetLen:      1000,
		HistoryWindow:   6,
		HistoryCharCap:  300,
		ContextTermsMax: 3,
		Keywords:        []string{"microgravity", "bone", "muscle", "radiation"},
	}
}

func newTestRAGService(embedder EmbeddingProvider, searcher VectorSearcher, generator llm.Client) RAGService {
	prompt := testPromptConfig()
	retrieval := testRetrievalConfig()
	return NewRAGService(
		NewQueryEnhancer(retrieval),
		NewPromptBuilder(prompt, retrieval),
		NewPostProcessor(prompt),
		embedder, searcher, generator,
		retrieval, prompt,
	)
}

func hitWithTitle(id, title string, score float64) model.SearchHit {
	return model.SearchHit{
		ID:    id,
		Score: score,
		Metadata: map[string]interface{}{
			"title":   title,
			"authors": "Smith J., Lee K.",
			"year":    "2021",
		},
		Content: "study content",
	}
}

func TestChatSuccess(t *testing.T) {
	searcher := &fakeSearcher{hits: []model.SearchHit{
		hitWithTitle("doc1_0", "Bone Loss in Mice", 0.9),
	}}
	generator := &fakeLLM{answer: "As K-OSMOS, I found that bone loss occurs in microgravity."}
	svc := newTestRAGService(&fakeEmbedder{vector: []float32{0.1}}, searcher, generator)

	result := svc.Chat(context.Background(), "What happens to bones in space?", nil, 0)

	assert.True(t, result.Success)
	assert.Equal(t, "What happens to bones in space?", result.Query)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, result.NumSources, len(result.Sources))
	assert.Equal(t, "Bone Loss in Mice", result.Sources[0].Title)
}

func TestChatEmptyQuery(t *testing.T) {
	svc := newTestRAGService(&fakeEmbedder{}, &fakeSearcher{}, &fakeLLM{})

	result := svc.Chat(context.Background(), "   ", nil, 0)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Response)
	assert.NotNil(t, result.Sources)
	assert.Empty(t, result.Sources)
	assert.Zero(t, result.NumSources)
}

func TestChatGenerationFailureShape(t *testing.T) {
	svc := newTestRAGService(
		&fakeEmbedder{vector: []float32{0.1}},
		&fakeSearcher{hits: []model.SearchHit{hitWithTitle("doc1_0", "Study X", 0.9)}},
		&fakeLLM{err: errors.New("api down")},
	)

	result := svc.Chat(context.Background(), "question", nil, 0)
	assert.False(t, result.Success)
	assert.Equal(t, testPromptConfig().ApologyText, result.Response)
	assert.Equal(t, "question", result.Query)
	assert.NotNil(t, result.Sources)
	assert.Empty(t, result.Sources)
	assert.Zero(t, result.NumSources)
}

func TestChatSearchFailureDegradesGracefully(t *testing.T) {
	svc := newTestRAGService(
		&fakeEmbedder{vector: []float32{0.1}},
		&fakeSearcher{err: errors.New("es down")},
		&fakeLLM{answer: "As K-OSMOS, I could not find documents on this topic."},
	)

	result := svc.Chat(context.Background(), "question", nil, 0)
	assert.True(t, result.Success)
	assert.Empty(t, result.Sources)
}

func TestChatEmbeddingFailureDegradesGracefully(t *testing.T) {
	svc := newTestRAGService(
		&fakeEmbedder{vector: nil},
		&fakeSearcher{hits: []model.SearchHit{hitWithTitle("doc1_0", "Study X", 0.9)}},
		&fakeLLM{answer: "As K-OSMOS, I could not find documents on this topic."},
	)

	result := svc.Chat(context.Background(), "question", nil, 0)
	assert.True(t, result.Success)
	// 向量化失败时不应使用检索结果
	assert.Empty(t, result.Sources)
}

func TestChatDedupesSourcesByTitle(t *testing.T) {
	searcher := &fakeSearcher{hits: []model.SearchHit{
		hitWithTitle("a_0", "Study X", 0.91),
		hitWithTitle("a_1", "Study X", 0.77),
		hitWithTitle("b_0", "study x", 0.77),
		hitWithTitle("c_0", "Study Y", 0.80),
	}}
	svc := newTestRAGService(&fakeEmbedder{vector: []float32{0.1}}, searcher, &fakeLLM{answer: "As K-OSMOS, here are the findings."})

	result := svc.Chat(context.Background(), "question", nil, 0)
	require.Len(t, result.Sources, 2)
	// Study X 保留最高分 0.91，排在 Study Y 之前
	assert.Equal(t, "Study X", result.Sources[0].Title)
	assert.Equal(t, 0.91, result.Sources[0].Score)
	assert.Equal(t, "Study Y", result.Sources[1].Title)
}

func TestChatCapsSources(t *testing.T) {
	var hits []model.SearchHit
	for i := 0; i < 15; i++ {
		hits = append(hits, hitWithTitle(
			string(rune('a'+i))+"_0",
			"Study "+string(rune('A'+i)),
			1.0-float64(i)*0.01,
		))
	}
	svc := newTestRAGService(&fakeEmbedder{vector: []float32{0.1}}, &fakeSearcher{hits: hits}, &fakeLLM{answer: "As K-OSMOS, here are the findings."})

	result := svc.Chat(context.Background(), "question", nil, 0)
	assert.Len(t, result.Sources, 10)
}

func TestChatHonorsRequestTopK(t *testing.T) {
	searcher := &fakeSearcher{hits: []model.SearchHit{
		hitWithTitle("doc1_0", "Bone Loss in Mice", 0.9),
	}}
	svc := newTestRAGService(&fakeEmbedder{vector: []float32{0.1}}, searcher, &fakeLLM{answer: "As K-OSMOS, here are the findings."})

	svc.Chat(context.Background(), "question", nil, 5)
	assert.Equal(t, 5, searcher.gotTopK)

	// 非正值回退到配置默认
	svc.Chat(context.Background(), "question", nil, 0)
	assert.Equal(t, testRetrievalConfig().TopK, searcher.gotTopK)
}

func TestStreamChat(t *testing.T) {
	searcher := &fakeSearcher{hits: []model.SearchHit{hitWithTitle("doc1_0", "Study X", 0.9)}}
	generator := &fakeLLM{chunks: []string{"Bone ", "loss ", "occurs."}}
	svc := newTestRAGService(&fakeEmbedder{vector: []float32{0.1}}, searcher, generator)

	writer := &captureWriter{}
	sources, err := svc.StreamChat(context.Background(), "question", nil, writer, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bone loss occurs.", strings.Join(writer.parts, ""))
	require.Len(t, sources, 1)
	assert.Equal(t, "Study X", sources[0].Title)
}

func TestStreamChatStopFlag(t *testing.T) {
	generator := &fakeLLM{chunks: []string{"a", "b", "c"}}
	svc := newTestRAGService(&fakeEmbedder{vector: []float32{0.1}}, &fakeSearcher{}, generator)

	writer := &captureWriter{}
	stopped := false
	_, err := svc.StreamChat(context.Background(), "question", nil, writer, func() bool {
		if len(writer.parts) >= 1 {
			stopped = true
		}
		return stopped
	})
	require.NoError(t, err)
	assert.Less(t, len(writer.parts), 3)
}

func TestMissionStudies(t *testing.T) {
	searcher := &fakeSearcher{hits: []model.SearchHit{hitWithTitle("doc1_0", "ISS Bone Study", 0.9)}}
	svc := newTestRAGService(&fakeEmbedder{vector: []float32{0.1}}, searcher, &fakeLLM{answer: "As K-OSMOS, the ISS hosted several bone studies."})

	result := svc.MissionStudies(context.Background(), "ISS")
	assert.True(t, result.Success)
	assert.Contains(t, result.Query, "ISS")
	require.Len(t, result.Sources, 1)
}

func TestResearchSummaryAndCompare(t *testing.T) {
	svc := newTestRAGService(&fakeEmbedder{vector: []float32{0.1}}, &fakeSearcher{}, &fakeLLM{answer: "As K-OSMOS, summary follows."})

	summary := svc.ResearchSummary(context.Background(), "bone loss")
	assert.True(t, summary.Success)
	assert.Contains(t, summary.Query, "bone loss")

	compare := svc.CompareStudies(context.Background(), []string{"mice", "rats"})
	assert.True(t, compare.Success)
	assert.Contains(t, compare.Query, "mice versus rats")
}
