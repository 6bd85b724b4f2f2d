package model

import (
	"context"
	"time"
)

// Checkpointer persists ThreadState keyed by thread identifier.
type Checkpointer interface {
	// Load returns the stored state, or a fresh one when the thread is new.
	Load(ctx context.Context, threadID string) (*ThreadState, error)
	// Save overwrites the stored state for s.ThreadID.
	Save(ctx context.Context, s *ThreadState) error
}

// Searcher is the structured restaurant search backend.
type Searcher interface {
	Search(ctx context.Context, q SearchQuery) (*SearchResult, error)
}

// Explorer is the web-exploration search backend. sessionKey isolates
// concurrent browsing sessions.
type Explorer interface {
	Explore(ctx context.Context, query, sessionKey string) (*SearchResult, error)
}

// Researcher returns free-form findings about one restaurant.
type Researcher interface {
	Research(ctx context.Context, q ResearchQuery, sessionKey string) (map[string]any, error)
}

// Memory types understood by the long-term memory collaborator.
const (
	MemoryPreferences = "preferences"
	MemoryFacts       = "facts"
	MemorySummaries   = "summaries"
)

// AllMemoryTypes lists the memory namespaces in retrieval order.
var AllMemoryTypes = []string{MemoryPreferences, MemoryFacts, MemorySummaries}

// MemoryRecord is a single item stored in a memory namespace.
type MemoryRecord struct {
	Content   string    `json:"content"`
	Score     float64   `json:"score,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RetrieveRequest selects which memories to fetch for an actor/session.
type RetrieveRequest struct {
	Query     string
	ActorID   string
	SessionID string
	Types     []string
	TopK      int
}

// TurnRecord is the exchange handed to the memory collaborator after a turn.
type TurnRecord struct {
	ActorID       string    `json:"actor_id"`
	SessionID     string    `json:"session_id"`
	UserInput     string    `json:"user_input"`
	AgentResponse string    `json:"agent_response"`
	At            time.Time `json:"at"`
}

// ProcessResult mirrors the memory collaborator's {success, error} reply.
type ProcessResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// MemoryRetriever fetches long-term memories, one list per type.
type MemoryRetriever interface {
	Retrieve(ctx context.Context, req RetrieveRequest) (map[string][]MemoryRecord, error)
}

// MemoryProcessor receives completed turns for asynchronous strategy processing.
type MemoryProcessor interface {
	ProcessTurn(ctx context.Context, rec TurnRecord) ProcessResult
}
