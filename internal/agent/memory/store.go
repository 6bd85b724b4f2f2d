package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dinewise-core/server/internal/agent/model"
	errx "github.com/dinewise-core/server/internal/core/error"
	logx "github.com/dinewise-core/server/pkg/logger"
)

const (
	// maxRecordsPerNamespace bounds how many items a namespace keeps.
	maxRecordsPerNamespace = 200
	maxSummaryChars        = 600
)

// Namespace returns the storage path for a memory type.
//
//	preferences -> /users/{actor}/preferences
//	facts       -> /conversations/{actor}/facts
//	summaries   -> /conversations/{session}/summaries
func Namespace(memoryType, actorID, sessionID string) (string, error) {
	switch memoryType {
	case model.MemoryPreferences:
		return fmt.Sprintf("/users/%s/preferences", actorID), nil
	case model.MemoryFacts:
		return fmt.Sprintf("/conversations/%s/facts", actorID), nil
	case model.MemorySummaries:
		return fmt.Sprintf("/conversations/%s/summaries", sessionID), nil
	}
	return "", fmt.Errorf("unknown memory type %q", memoryType)
}

// Service is the long-term memory collaborator backed by Redis lists, one
// per namespace, with completed turns fanned out to a TurnSink.
type Service struct {
	rdb  redis.Cmdable
	sink TurnSink
}

func NewService(rdb redis.Cmdable, sink TurnSink) *Service {
	return &Service{rdb: rdb, sink: sink}
}

func (s *Service) key(namespace string) string {
	return "memory:" + namespace
}

// Retrieve fetches every requested type in parallel. A failing type
// degrades to an empty list instead of failing the call.
func (s *Service) Retrieve(ctx context.Context, req model.RetrieveRequest) (map[string][]model.MemoryRecord, error) {
	types := req.Types
	if len(types) == 0 {
		types = model.AllMemoryTypes
	}
	topK := req.TopK
	if topK <= 0 {
		topK = 5
	}

	results := make([][]model.MemoryRecord, len(types))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range types {
		g.Go(func() error {
			recs, err := s.fetch(gctx, t, req, topK)
			if err != nil {
				logx.Warn().Err(err).Str("memory_type", t).Str("actor_id", req.ActorID).Msg("Memory namespace fetch failed")
				recs = []model.MemoryRecord{}
			}
			results[i] = recs
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string][]model.MemoryRecord, len(types))
	for i, t := range types {
		out[t] = results[i]
	}
	return out, nil
}

func (s *Service) fetch(ctx context.Context, memoryType string, req model.RetrieveRequest, topK int) ([]model.MemoryRecord, error) {
	ns, err := Namespace(memoryType, req.ActorID, req.SessionID)
	if err != nil {
		return nil, err
	}
	rows, err := s.rdb.LRange(ctx, s.key(ns), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, errx.WrapRedis(err)
	}

	recs := make([]model.MemoryRecord, 0, len(rows))
	for _, row := range rows {
		var r model.MemoryRecord
		if err := json.Unmarshal([]byte(row), &r); err != nil {
			continue
		}
		r.Score = relevance(req.Query, r.Content)
		recs = append(recs, r)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	if len(recs) > topK {
		recs = recs[:topK]
	}
	return recs, nil
}

// Remember appends a record to a namespace, trimming the oldest entries.
func (s *Service) Remember(ctx context.Context, namespace, content string) error {
	b, err := json.Marshal(model.MemoryRecord{Content: content, CreatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal memory record: %w", err)
	}
	key := s.key(namespace)
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, b)
	pipe.LTrim(ctx, key, -maxRecordsPerNamespace, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

// ProcessTurn stores a short exchange summary for the session and hands the
// turn to the sink, where preference and fact extraction happen.
func (s *Service) ProcessTurn(ctx context.Context, rec model.TurnRecord) model.ProcessResult {
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	ns, _ := Namespace(model.MemorySummaries, rec.ActorID, rec.SessionID)
	if err := s.Remember(ctx, ns, summarize(rec)); err != nil {
		return model.ProcessResult{Success: false, Error: err.Error()}
	}
	if s.sink != nil {
		if err := s.sink.Publish(ctx, rec); err != nil {
			return model.ProcessResult{Success: false, Error: err.Error()}
		}
	}
	return model.ProcessResult{Success: true}
}

func summarize(rec model.TurnRecord) string {
	s := fmt.Sprintf("User asked: %s | Assistant answered: %s", oneLine(rec.UserInput), oneLine(rec.AgentResponse))
	if r := []rune(s); len(r) > maxSummaryChars {
		s = string(r[:maxSummaryChars])
	}
	return s
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// relevance is the share of query terms present in content.
func relevance(query, content string) float64 {
	terms := tokenize(query)
	if len(terms) == 0 {
		return 0
	}
	have := map[string]bool{}
	for _, t := range tokenize(content) {
		have[t] = true
	}
	hits := 0
	for _, t := range terms {
		if have[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Disabled is used when no memory store is configured: retrieval returns
// empty lists and turns are dropped.
type Disabled struct{}

func (Disabled) Retrieve(_ context.Context, req model.RetrieveRequest) (map[string][]model.MemoryRecord, error) {
	out := map[string][]model.MemoryRecord{}
	types := req.Types
	if len(types) == 0 {
		types = model.AllMemoryTypes
	}
	for _, t := range types {
		out[t] = []model.MemoryRecord{}
	}
	return out, nil
}

// ProcessTurn drops the turn. Nothing was asked of a store, so nothing failed.
func (Disabled) ProcessTurn(context.Context, model.TurnRecord) model.ProcessResult {
	return model.ProcessResult{Success: true}
}

var (
	_ model.MemoryRetriever = (*Service)(nil)
	_ model.MemoryProcessor = (*Service)(nil)
	_ model.MemoryRetriever = Disabled{}
	_ model.MemoryProcessor = Disabled{}
)
