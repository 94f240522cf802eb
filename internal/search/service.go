package search

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ngochieu276/slack-clone/internal/metrics"
)

// RecordLoader returns every record that belongs in the index.
type RecordLoader interface {
	LoadAllRecords(ctx context.Context) ([]MessageRecord, error)
}

// Fallback is a searcher that can also feed a full reindex.
type Fallback interface {
	Searcher
	RecordLoader
}

// Service tries the engine first and falls back to Postgres full-text search.
type Service struct {
	engine   Engine
	fallback Fallback
	log      zerolog.Logger
	async    bool
}

// NewService creates a search service. engine may be nil when Meilisearch is
// not configured.
func NewService(engine Engine, fallback Fallback, log zerolog.Logger) *Service {
	return &Service{engine: engine, fallback: fallback, log: log.With().Str("component", "search").Logger(), async: true}
}

func (s *Service) engineReady() bool {
	return s.engine != nil && s.engine.Healthy()
}

func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.engineReady() {
		results, total, err := s.engine.Search(ctx, q)
		if err == nil {
			metrics.SearchQueries.WithLabelValues("meilisearch").Inc()
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.log.Warn().Err(err).Msg("engine search failed, falling back to pgfts")
	}

	if s.fallback == nil {
		metrics.SearchQueries.WithLabelValues("none").Inc()
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.log.Error().Err(err).Msg("pgfts search failed")
		metrics.SearchQueries.WithLabelValues("error").Inc()
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	metrics.SearchQueries.WithLabelValues("pgfts").Inc()
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexMessage pushes a channel message to the engine without blocking the caller.
func (s *Service) IndexMessage(record MessageRecord) {
	if !s.engineReady() || record.ChannelID == "" {
		return
	}
	s.run(func() {
		if err := s.engine.IndexMessages([]MessageRecord{record}); err != nil {
			s.log.Error().Err(err).Str("message_id", record.ID).Msg("index message")
		}
	})
}

// DeleteMessages drops messages from the engine without blocking the caller.
func (s *Service) DeleteMessages(ids ...string) {
	if !s.engineReady() || len(ids) == 0 {
		return
	}
	s.run(func() {
		for _, id := range ids {
			if err := s.engine.DeleteMessage(id); err != nil {
				s.log.Error().Err(err).Str("message_id", id).Msg("delete message from index")
			}
		}
	})
}

// ReindexAll reads every channel message from Postgres and pushes it to the engine.
func (s *Service) ReindexAll(ctx context.Context) {
	if !s.engineReady() || s.fallback == nil {
		return
	}
	records, err := s.fallback.LoadAllRecords(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("reindex load failed")
		return
	}
	if err := s.engine.IndexMessages(records); err != nil {
		s.log.Error().Err(err).Msg("reindex messages")
		return
	}
	s.log.Info().Int("count", len(records)).Msg("reindexed messages")
}

func (s *Service) run(fn func()) {
	if s.async {
		go fn()
		return
	}
	fn()
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
