// Package newsroom implements the two-phase newsroom simulation: concurrent
// persona research sessions, an optional debate phase, and the streaming
// event contract consumed by the UI.
package newsroom

import (
	"github.com/ashureev/newsroom/internal/claude"
	"github.com/ashureev/newsroom/internal/domain"
)

// Sink receives named events with JSON-serializable payloads. One Sink is
// shared by every concurrent session; implementations must tolerate
// concurrent publishers. Publishing is fire-and-forget.
type Sink interface {
	Publish(event string, payload any)
}

// NopSink discards all events.
type NopSink struct{}

// Publish implements Sink.
func (NopSink) Publish(string, any) {}

// Event names. Progress events (agent:thinking, agent:progress, agent:reading,
// agent:debating) describe one coarse status per persona at a time; activity
// events (agent:activity) are the fine-grained append-only log.
const (
	EventSimulationStart    = "simulation:start"
	EventPhaseChange        = "phase:change"
	EventPhaseSkip          = "phase:skip"
	EventAgentThinking      = "agent:thinking"
	EventAgentProgress      = "agent:progress"
	EventAgentActivity      = "agent:activity"
	EventAgentReading       = "agent:reading"
	EventAgentDebating      = "agent:debating"
	EventAgentDebateDone    = "agent:debate-complete"
	EventAgentComplete      = "agent:complete"
	EventSimulationComplete = "simulation:complete"
	EventSimulationError    = "simulation:error"
)

// ActivityType tags one agent:activity event.
type ActivityType string

// Activity type tags, one per classified stream unit.
const (
	ActivityPrompt     ActivityType = "prompt"
	ActivityInput      ActivityType = "input"
	ActivityTurnStart  ActivityType = "turn_start"
	ActivityThinking   ActivityType = "thinking"
	ActivityToolUse    ActivityType = "tool_use"
	ActivityWebSearch  ActivityType = "web_search"
	ActivityToolResult ActivityType = "tool_result"
	ActivityResponse   ActivityType = "response"
	ActivitySummary    ActivityType = "conversation_summary"
	ActivityError      ActivityType = "error"
)

// SimulationStart is the payload for simulation:start.
type SimulationStart struct {
	Topic string `json:"topic"`
}

// PhaseChange is the payload for phase:change.
type PhaseChange struct {
	Phase       int    `json:"phase"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PhaseSkip is the payload for phase:skip.
type PhaseSkip struct {
	Phase  int    `json:"phase"`
	Reason string `json:"reason"`
}

// AgentStatus is the payload for agent:thinking, agent:reading and
// agent:debating.
type AgentStatus struct {
	Agent     string `json:"agent"`
	Newspaper string `json:"newspaper"`
	Message   string `json:"message"`
}

// AgentProgress is the payload for agent:progress. Heartbeat marks synthetic
// liveness updates so listeners can give them lower display priority.
type AgentProgress struct {
	Agent     string `json:"agent"`
	Newspaper string `json:"newspaper"`
	Action    string `json:"action"`
	Message   string `json:"message"`
	Tool      string `json:"tool,omitempty"`
	Details   string `json:"details,omitempty"`
	Preview   string `json:"preview,omitempty"`
	Heartbeat bool   `json:"heartbeat,omitempty"`
}

// SearchHit is one parsed web-search result.
type SearchHit struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ConversationSummary reports session totals on the conversation_summary
// activity.
type ConversationSummary struct {
	TotalTurns    int               `json:"totalTurns"`
	TotalMessages int               `json:"totalMessages"`
	Duration      int64             `json:"duration"`
	HitMaxTurns   bool              `json:"hitMaxTurns"`
	HasErrors     bool              `json:"hasErrors"`
	Cost          float64           `json:"cost"`
	TokenUsage    claude.TokenUsage `json:"tokenUsage"`
}

// Activity is the payload for agent:activity. Type selects which optional
// fields are populated. Activities for one persona are emitted in the exact
// order the underlying conversation produced them.
type Activity struct {
	Agent         string               `json:"agent"`
	Newspaper     string               `json:"newspaper"`
	Type          ActivityType         `json:"type"`
	Message       string               `json:"message"`
	Prompt        string               `json:"prompt,omitempty"`
	Content       string               `json:"content,omitempty"`
	Response      string               `json:"response,omitempty"`
	Tool          string               `json:"tool,omitempty"`
	ToolID        string               `json:"toolId,omitempty"`
	ToolInput     map[string]any       `json:"toolInput,omitempty"`
	ToolOutput    string               `json:"toolOutput,omitempty"`
	SearchQuery   string               `json:"searchQuery,omitempty"`
	SearchResults []SearchHit          `json:"searchResults,omitempty"`
	Turn          int                  `json:"turnNumber,omitempty"`
	Cost          float64              `json:"cost,omitempty"`
	TokenUsage    *claude.TokenUsage   `json:"tokenUsage,omitempty"`
	Duration      int64                `json:"duration,omitempty"`
	TotalTurns    int                  `json:"totalTurns,omitempty"`
	HitMaxTurns   bool                 `json:"hitMaxTurns,omitempty"`
	Errors        []string             `json:"errors,omitempty"`
	Error         string               `json:"error,omitempty"`
	Summary       *ConversationSummary `json:"summary,omitempty"`
	Timestamp     int64                `json:"timestamp"`
}

// AgentDebateComplete is the payload for agent:debate-complete.
type AgentDebateComplete struct {
	Agent     string `json:"agent"`
	Newspaper string `json:"newspaper"`
	Rebuttal  string `json:"rebuttal"`
	Target    string `json:"target"`
}

// AgentComplete is the payload for agent:complete, emitted once per persona
// when its research result is finalized, including error and refusal
// outcomes.
type AgentComplete struct {
	Agent string `json:"agent"`
	domain.AgentRunResult
	Phase int `json:"phase"`
}

// SimulationError is the payload for simulation:error.
type SimulationError struct {
	Error string `json:"error"`
}
