package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/passage/internal/config"
	"github.com/xxxsen/passage/internal/model"
	appErr "github.com/xxxsen/passage/internal/pkg/errors"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeEmbedder) ModelName() string { return "fake-embed" }

type fakeSearcher struct {
	hits []model.SearchHit
	err  error
}

func (f *fakeSearcher) SearchSimilar(ctx context.Context, vector []float32, topK int) ([]model.SearchHit, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > topK {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

type fakeResolver struct {
	infos map[string]*model.ChunkInfo
}

func (f *fakeResolver) GetChunkInfo(ctx context.Context, chunkID string) (*model.ChunkInfo, error) {
	info, ok := f.infos[chunkID]
	if !ok {
		return nil, fmt.Errorf("chunk %s, %w", chunkID, appErr.ErrNotFound)
	}
	return info, nil
}

func testRetrievalConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		CandidatePoolSize:  60,
		SemanticWeight:     0.7,
		BM25Weight:         0.3,
		BM25K1:             1.2,
		BM25B:              0.75,
		RerankTopN:         40,
		DiversityThreshold: 0.5,
		AdjacencyWindow:    2,
		FinalTopK:          6,
		SearchTimeoutMs:    5000,
	}
}

func chunkInfo(id, filename string, index int, text string) *model.ChunkInfo {
	return &model.ChunkInfo{
		ChunkID:    id,
		DocumentID: "doc-" + filename,
		Filename:   filename,
		ChunkIndex: index,
		Text:       text,
		CharLength: len([]rune(text)),
	}
}

func TestSearchCrossLingualFallsBackToSemantic(t *testing.T) {
	// a Dutch query shares no tokens with an English corpus, so every
	// keyword score is zero and ordering follows similarity alone
	searcher := &fakeSearcher{hits: []model.SearchHit{
		{ChunkID: "c1", Similarity: 0.91},
		{ChunkID: "c2", Similarity: 0.55},
		{ChunkID: "c3", Similarity: 0.34},
	}}
	resolver := &fakeResolver{infos: map[string]*model.ChunkInfo{
		"c1": chunkInfo("c1", "handbook.md", 0, "payroll is processed at the end of each month"),
		"c2": chunkInfo("c2", "handbook.md", 7, "expense reports require a manager signature"),
		"c3": chunkInfo("c3", "faq.md", 2, "the office closes early on fridays"),
	}}
	svc := NewRetrievalService(&fakeEmbedder{vec: []float32{0.1, 0.2}}, searcher, resolver, testRetrievalConfig())

	res, err := svc.Search(context.Background(), "wanneer wordt het salaris uitbetaald")
	require.NoError(t, err)
	require.Len(t, res.Candidates, 3)
	require.Equal(t, "c1", res.Candidates[0].ChunkID)
	for _, c := range res.Candidates {
		require.Equal(t, 0.0, c.BM25Score)
	}
}

func TestSearchDeterministicForSameInputs(t *testing.T) {
	searcher := &fakeSearcher{hits: []model.SearchHit{
		{ChunkID: "c1", Similarity: 0.8},
		{ChunkID: "c2", Similarity: 0.8},
		{ChunkID: "c3", Similarity: 0.6},
	}}
	resolver := &fakeResolver{infos: map[string]*model.ChunkInfo{
		"c1": chunkInfo("c1", "b.md", 3, "onboarding checklist for new engineers"),
		"c2": chunkInfo("c2", "a.md", 1, "onboarding checklist for new designers"),
		"c3": chunkInfo("c3", "c.md", 0, "quarterly planning template"),
	}}
	svc := NewRetrievalService(&fakeEmbedder{vec: []float32{1}}, searcher, resolver, testRetrievalConfig())

	first, err := svc.Search(context.Background(), "onboarding checklist")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := svc.Search(context.Background(), "onboarding checklist")
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
	// equal similarity breaks ties by filename then chunk index
	require.Equal(t, "c2", first.Candidates[0].ChunkID)
}

func TestSearchEmbedFailureIsFatal(t *testing.T) {
	svc := NewRetrievalService(&fakeEmbedder{err: errors.New("provider down")},
		&fakeSearcher{}, &fakeResolver{}, testRetrievalConfig())

	res, err := svc.Search(context.Background(), "anything")
	require.Nil(t, res)
	se := &appErr.SearchError{}
	require.ErrorAs(t, err, &se)
	require.Equal(t, appErr.KindEmbeddingUnavailable, se.Kind)
}

func TestSearchVectorStoreFailureIsFatal(t *testing.T) {
	svc := NewRetrievalService(&fakeEmbedder{vec: []float32{1}},
		&fakeSearcher{err: errors.New("connection refused")}, &fakeResolver{}, testRetrievalConfig())

	res, err := svc.Search(context.Background(), "anything")
	require.Nil(t, res)
	se := &appErr.SearchError{}
	require.ErrorAs(t, err, &se)
	require.Equal(t, appErr.KindVectorStoreUnavailable, se.Kind)
}

func TestSearchTimeoutReturnsNoPartialResults(t *testing.T) {
	svc := NewRetrievalService(&fakeEmbedder{err: context.DeadlineExceeded},
		&fakeSearcher{}, &fakeResolver{}, testRetrievalConfig())

	res, err := svc.Search(context.Background(), "anything")
	require.Nil(t, res)
	require.True(t, appErr.IsSearchTimeout(err))
}

func TestSearchDropsUnresolvableCandidates(t *testing.T) {
	searcher := &fakeSearcher{hits: []model.SearchHit{
		{ChunkID: "gone", Similarity: 0.95},
		{ChunkID: "empty", Similarity: 0.9},
		{ChunkID: "ok", Similarity: 0.5},
	}}
	resolver := &fakeResolver{infos: map[string]*model.ChunkInfo{
		"empty": chunkInfo("empty", "a.md", 0, ""),
		"ok":    chunkInfo("ok", "a.md", 1, "vacation policy details"),
	}}
	svc := NewRetrievalService(&fakeEmbedder{vec: []float32{1}}, searcher, resolver, testRetrievalConfig())

	res, err := svc.Search(context.Background(), "vacation policy")
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	require.Equal(t, "ok", res.Candidates[0].ChunkID)
}

func TestSearchSimilarityClampedToUnitRange(t *testing.T) {
	searcher := &fakeSearcher{hits: []model.SearchHit{
		{ChunkID: "hi", Similarity: 1.2},
		{ChunkID: "lo", Similarity: -0.1},
	}}
	resolver := &fakeResolver{infos: map[string]*model.ChunkInfo{
		"hi": chunkInfo("hi", "a.md", 0, "first passage text"),
		"lo": chunkInfo("lo", "b.md", 0, "second passage text"),
	}}
	cfg := testRetrievalConfig()
	cfg.MinSimilarity = 0
	svc := NewRetrievalService(&fakeEmbedder{vec: []float32{1}}, searcher, resolver, cfg)

	res, err := svc.Search(context.Background(), "passage")
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	for _, c := range res.Candidates {
		require.GreaterOrEqual(t, c.SimilarityScore, 0.0)
		require.LessOrEqual(t, c.SimilarityScore, 1.0)
	}
}

func TestSearchEmptyQueryRejected(t *testing.T) {
	svc := NewRetrievalService(&fakeEmbedder{vec: []float32{1}}, &fakeSearcher{}, &fakeResolver{}, testRetrievalConfig())
	_, err := svc.Search(context.Background(), "")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}
