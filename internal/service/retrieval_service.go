package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/passage/internal/ai"
	"github.com/xxxsen/passage/internal/bm25"
	"github.com/xxxsen/passage/internal/cache"
	"github.com/xxxsen/passage/internal/config"
	"github.com/xxxsen/passage/internal/model"
	appErr "github.com/xxxsen/passage/internal/pkg/errors"
	"github.com/xxxsen/passage/internal/rank"
)

// RetrievalService runs the query pipeline: embed the query, pull a
// candidate pool from the vector store, merge semantic and keyword
// scores, rerank the head and diversify the final slate. Failures on
// the embed or vector-search legs are fatal; a candidate that cannot
// be hydrated is dropped with a warning and the pipeline continues.
type RetrievalService struct {
	embedder    ai.IEmbedder
	searcher    VectorSearcher
	resolver    ChunkResolver
	cfg         config.RetrievalConfig
	resultCache *cache.Manager
	resultTTL   time.Duration
}

func NewRetrievalService(embedder ai.IEmbedder, searcher VectorSearcher, resolver ChunkResolver, cfg config.RetrievalConfig) *RetrievalService {
	return &RetrievalService{
		embedder: embedder,
		searcher: searcher,
		resolver: resolver,
		cfg:      cfg,
	}
}

// EnableResultCache caches whole result slates keyed by query and
// ranking parameters. Entries age out with the tier TTLs; nothing
// invalidates them on ingest.
func (s *RetrievalService) EnableResultCache(mgr *cache.Manager, ttl time.Duration) {
	s.resultCache = mgr
	s.resultTTL = ttl
}

func (s *RetrievalService) Search(ctx context.Context, query string) (*model.RetrievalResult, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("empty query, %w", appErr.ErrInvalid)
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.SearchTimeoutMs)*time.Millisecond)
	defer cancel()

	cacheKey := s.resultCacheKey(query)
	if s.resultCache != nil {
		if raw, ok := s.resultCache.Get(ctx, cacheKey); ok {
			res := &model.RetrievalResult{}
			if err := json.Unmarshal(raw, res); err == nil {
				return res, nil
			}
			logutil.GetLogger(ctx).Warn("discard undecodable cached result", zap.String("key", cacheKey))
		}
	}

	res, err := s.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if s.resultCache != nil {
		if raw, err := json.Marshal(res); err == nil {
			s.resultCache.Set(ctx, cache.Entry{Key: cacheKey, Label: query, Value: raw, TTL: s.resultTTL})
		}
	}
	return res, nil
}

func (s *RetrievalService) search(ctx context.Context, query string) (*model.RetrievalResult, error) {
	vector, err := s.embedder.Embed(ctx, query, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, classify(err, appErr.KindEmbeddingUnavailable)
	}
	hits, err := s.searcher.SearchSimilar(ctx, vector, s.cfg.CandidatePoolSize)
	if err != nil {
		return nil, classify(err, appErr.KindVectorStoreUnavailable)
	}

	cands := s.hydrate(ctx, hits)
	if len(cands) == 0 {
		return &model.RetrievalResult{Query: query, Candidates: []model.RetrievalCandidate{}}, nil
	}

	texts := make([]string, 0, len(cands))
	for _, c := range cands {
		texts = append(texts, c.Text)
	}
	corpus := bm25.NewCorpus(texts, s.cfg.BM25K1, s.cfg.BM25B)
	for i := range cands {
		cands[i].BM25Score = corpus.Score(query, i)
	}

	cands = rank.Combine(cands, rank.HybridConfig{
		SemanticWeight: s.cfg.SemanticWeight,
		BM25Weight:     s.cfg.BM25Weight,
		MinSimilarity:  s.cfg.MinSimilarity,
	})
	cands = rank.Rerank(query, cands, rank.RerankConfig{TopN: s.cfg.RerankTopN})
	cands = rank.Diversify(cands, rank.DiversityConfig{
		Threshold:       s.cfg.DiversityThreshold,
		AdjacencyWindow: s.cfg.AdjacencyWindow,
		FinalTopK:       s.cfg.FinalTopK,
	})
	return &model.RetrievalResult{Query: query, Candidates: cands}, nil
}

// hydrate resolves raw hits into scored candidates. A hit whose chunk
// cannot be loaded, or that comes back without text, is skipped.
func (s *RetrievalService) hydrate(ctx context.Context, hits []model.SearchHit) []model.RetrievalCandidate {
	cands := make([]model.RetrievalCandidate, 0, len(hits))
	for _, hit := range hits {
		info, err := s.resolver.GetChunkInfo(ctx, hit.ChunkID)
		if err != nil || len(info.Text) == 0 {
			if err == nil {
				err = appErr.ErrMalformedCandidate
			}
			logutil.GetLogger(ctx).Warn("drop candidate",
				zap.String("chunk_id", hit.ChunkID),
				zap.Error(err),
			)
			continue
		}
		cands = append(cands, model.RetrievalCandidate{
			ChunkID:         info.ChunkID,
			DocumentID:      info.DocumentID,
			Filename:        info.Filename,
			ChunkIndex:      info.ChunkIndex,
			Text:            info.Text,
			SimilarityScore: clamp01(hit.Similarity),
		})
	}
	return cands
}

func (s *RetrievalService) TopQueries(ctx context.Context, limit int) ([]model.TopQuery, error) {
	if s.resultCache == nil {
		return nil, fmt.Errorf("result cache disabled, %w", appErr.ErrInvalid)
	}
	return s.resultCache.TopQueries(ctx, limit)
}

// resultCacheKey covers every knob that changes the slate, so a config
// change never replays stale results.
func (s *RetrievalService) resultCacheKey(query string) string {
	material := fmt.Sprintf("%s|%d|%f|%f|%f|%f|%f|%d|%f|%d|%d",
		query,
		s.cfg.CandidatePoolSize, s.cfg.MinSimilarity,
		s.cfg.SemanticWeight, s.cfg.BM25Weight,
		s.cfg.BM25K1, s.cfg.BM25B,
		s.cfg.RerankTopN, s.cfg.DiversityThreshold,
		s.cfg.AdjacencyWindow, s.cfg.FinalTopK,
	)
	sum := sha256.Sum256([]byte(material))
	return "result:" + hex.EncodeToString(sum[:])
}

func classify(err error, kind appErr.SearchErrorKind) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return appErr.NewSearchError(appErr.KindSearchTimeout, err)
	}
	return appErr.NewSearchError(kind, err)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
