package model

import (
	"github.com/cloudwego/eino/schema"
)

const (
	// MaxToolCallsPerTurn bounds the reason/act loop of a single turn.
	MaxToolCallsPerTurn = 4
	// MaxReflectionIterations bounds the critique/refine loop of a single turn.
	MaxReflectionIterations = 2
)

// Intent is the Router's classification of a turn.
type Intent string

const (
	IntentSearch   Intent = "search"
	IntentSimple   Intent = "simple"
	IntentOffTopic Intent = "off_topic"
)

// Valid reports whether i is one of the fixed labels.
func (i Intent) Valid() bool {
	switch i {
	case IntentSearch, IntentSimple, IntentOffTopic:
		return true
	}
	return false
}

// ThreadState stores the per-thread record threaded through every graph node.
// Concurrency model:
//   - Registered as Graph Local State via compose.WithGenLocalState; one
//     instance per graph invocation (turn).
//   - All reads/writes happen inside Eino state handlers or compose.ProcessState,
//     which serialise access, so no extra locking is needed.
//   - The intake node hydrates it from the Checkpointer; a post-handler on
//     every node writes it back.
type ThreadState struct {
	ThreadID     string            `json:"thread_id"`
	ActorID      string            `json:"actor_id"`
	CustomerName string            `json:"customer_name,omitempty"`
	Messages     []*schema.Message `json:"messages"`

	// TurnStart is the index in Messages of the current turn's human message.
	TurnStart int `json:"turn_start"`

	Intent        Intent `json:"intent,omitempty"`
	ToolCallCount int    `json:"tool_call_count"`
	MadeToolCalls bool   `json:"made_tool_calls"`
	ToolCallIDSeq int    `json:"tool_call_id_seq"`

	ReflectionCount    int    `json:"reflection_count"`
	ReflectionFeedback string `json:"reflection_feedback,omitempty"`
	IsSatisfactory     bool   `json:"is_satisfactory"`

	// Accumulated total LLM cost (USD) for the current turn
	TotalCostUSD float64 `json:"total_cost_usd"`
}

// AppendMessages is the reducer for Messages: it concatenates in order and
// never replaces.
func (s *ThreadState) AppendMessages(msgs ...*schema.Message) {
	for _, m := range msgs {
		if m != nil {
			s.Messages = append(s.Messages, m)
		}
	}
}

// LastMessage returns the newest message or nil.
func (s *ThreadState) LastMessage() *schema.Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// TurnMessages returns the messages appended since the current turn began.
func (s *ThreadState) TurnMessages() []*schema.Message {
	if s.TurnStart < 0 || s.TurnStart > len(s.Messages) {
		return s.Messages
	}
	return s.Messages[s.TurnStart:]
}

// BeginTurn resets every per-turn field. Messages and identity survive.
func (s *ThreadState) BeginTurn() {
	s.Intent = ""
	s.ToolCallCount = 0
	s.MadeToolCalls = false
	s.ToolCallIDSeq = 0
	s.ReflectionCount = 0
	s.ReflectionFeedback = ""
	s.IsSatisfactory = false
	s.TotalCostUSD = 0
	s.TurnStart = len(s.Messages)
}

// TurnInput is the graph input for one user turn.
type TurnInput struct {
	ThreadID     string `json:"thread_id"`
	CustomerName string `json:"customer_name,omitempty"`
	Prompt       string `json:"prompt"`
}

// Topology selects which optional nodes the assembled graph carries.
type Topology string

const (
	TopologyReAct      Topology = "react"
	TopologyReflection Topology = "reflection"
	TopologyRouter     Topology = "router"
)

// ParseTopology normalises v; unknown values fall back to the router topology.
func ParseTopology(v string) Topology {
	switch Topology(v) {
	case TopologyReAct:
		return TopologyReAct
	case TopologyReflection:
		return TopologyReflection
	default:
		return TopologyRouter
	}
}

// HasRouter reports whether the topology classifies intent first.
func (t Topology) HasRouter() bool { return t == TopologyRouter }

// HasReflector reports whether the topology critiques drafts.
func (t Topology) HasReflector() bool { return t == TopologyReflection }

// Role names the purpose a model is invoked for.
type Role string

const (
	RoleRouter       Role = "router"
	RoleOrchestrator Role = "orchestrator"
	RoleExtractor    Role = "extractor"
	RoleReflector    Role = "reflector"
)

// ReflectionVerdict is the fixed schema the Reflector's model answers with.
type ReflectionVerdict struct {
	IsSatisfactory bool     `json:"is_satisfactory"`
	Score          int      `json:"score"`
	Issues         []string `json:"issues"`
	Feedback       string   `json:"feedback"`
}
