package newsroom

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/newsroom/internal/claude"
	"github.com/ashureev/newsroom/internal/domain"
)

// sessionState accumulates per-session progress across the stream-consumption
// loop: turn counter, token usage, provisional final text and the input dedup
// set all live here rather than in scattered closures.
type sessionState struct {
	started     time.Time
	turns       int
	messages    int
	finalText   string
	cost        float64
	usage       claude.TokenUsage
	hitMaxTurns bool
	errors      []string
	seenInputs  map[string]struct{}
}

func newSessionState() *sessionState {
	return &sessionState{
		started:    time.Now(),
		seenInputs: make(map[string]struct{}),
	}
}

func (s *sessionState) duration() int64 {
	return time.Since(s.started).Milliseconds()
}

// researchPrompt assembles the full prompt for one persona's research
// session: editorial identity, research process and the required JSON output
// shape.
func researchPrompt(p domain.Persona, topic string) string {
	system := fmt.Sprintf(
		`You are the editor of %s, a newspaper with a distinct editorial voice. Your editorial stance: %s. Your writing style: %s. Your tone: %s. RESEARCH PROCESS: 1) Use WebSearch to find recent articles and information about %q on web sources you identify with 2) Analyze findings through your editorial lens but without changing facts  3) Write from your unique perspective. IMPORTANT: take a bold stance, challenge mainstream narratives and ai-slop, be provocative but professional. Provide ONLY: 1) A compelling headline (max 80 characters), 2) A lead paragraph (2-3 sentences), 3) List of source URLs you used. Format your response as JSON: {"headline": "Your headline here", "story": "Your lead paragraph here", "sources": ["url1", "url2"]}`,
		p.Name, p.Stance, p.Style, p.Tone, topic,
	)
	return fmt.Sprintf("%s\n\nWrite a news article about: %s\n\nRemember to format your response as JSON with \"headline\", \"story\", and \"sources\" fields.", system, topic)
}

// runResearchSession drives one persona's research conversation and distills
// it into an AgentRunResult. It raises only for a missing capability, a fatal
// stream error, or a stream that produced no output; every other fault is
// reported on the activity log and absorbed.
func (e *Engine) runResearchSession(ctx context.Context, p domain.Persona, topic string) (domain.AgentRunResult, error) {
	e.logger.Info("agent session starting", "agent", p.ID, "topic", topic)

	e.sink.Publish(EventAgentThinking, AgentStatus{
		Agent:     p.ID,
		Newspaper: p.Name,
		Message:   p.Name + " is analyzing the story...",
	})

	if e.client == nil || !e.client.Configured() {
		return domain.AgentRunResult{}, ErrNotConfigured
	}

	stopHeartbeat := e.startHeartbeat(p, p.Name+" is researching")
	defer stopHeartbeat()

	prompt := researchPrompt(p, topic)
	e.activity(p, Activity{
		Type:    ActivityPrompt,
		Prompt:  prompt,
		Message: "Sending prompt to " + p.Name,
	})

	opts := claude.QueryOptions{
		Model:        e.cfg.Model,
		MaxTurns:     e.cfg.MaxTurns,
		AllowedTools: []string{webSearchTool},
	}

	st := newSessionState()
	for unit, err := range e.client.Query(ctx, prompt, opts) {
		if err != nil {
			return domain.AgentRunResult{}, fmt.Errorf("research session for %s: %w", p.Name, err)
		}
		e.consumeUnit(p, unit, st)
	}

	if st.finalText == "" {
		return domain.AgentRunResult{}, ErrNoResult
	}

	result := e.distillResult(p, st)

	e.logger.Info("agent session completed",
		"agent", p.ID,
		"cost_usd", st.cost,
		"turns", st.turns,
		"refused", result.Refused,
	)
	return result, nil
}

// consumeUnit classifies one stream unit and emits the corresponding events.
// The switch is exhaustive over the closed claude.Unit set.
func (e *Engine) consumeUnit(p domain.Persona, unit claude.Unit, st *sessionState) {
	st.messages++

	switch u := unit.(type) {
	case claude.SystemInit:
		// Initialization is log-only; no externally visible event.
		e.logger.Debug("session initialized", "agent", p.ID, "tools", len(u.Tools))

	case claude.UserTurn:
		key := u.ID
		if key == "" {
			key = u.Content
		}
		if _, seen := st.seenInputs[key]; seen {
			return
		}
		st.seenInputs[key] = struct{}{}
		e.activity(p, Activity{
			Type:    ActivityInput,
			Message: "User input to " + p.Name,
			Content: u.Content,
			Turn:    st.turns + 1,
		})

	case claude.AssistantTurn:
		st.turns++
		e.activity(p, Activity{
			Type:    ActivityTurnStart,
			Message: fmt.Sprintf("%s - Turn %d starting", p.Name, st.turns),
			Turn:    st.turns,
		})
		for _, block := range u.Blocks {
			e.consumeBlock(p, block, st)
		}

	case claude.ToolResult:
		e.activity(p, Activity{
			Type:          ActivityToolResult,
			ToolOutput:    u.Output,
			ToolID:        u.ToolUseID,
			SearchResults: parseSearchHits(u.Output),
			Message:       "Received tool results",
			Turn:          st.turns,
		})
		e.progress(p, AgentProgress{
			Action:  "tool_result",
			Message: p.Name + " received research results...",
		})

	case claude.FinalResult:
		if u.Text != "" {
			st.finalText = u.Text
		}
		st.cost = u.CostUSD
		st.usage = u.Usage
		st.hitMaxTurns = u.MaxTurnsHit
		st.errors = u.Errors

		message := "Completed generation"
		if u.MaxTurnsHit {
			message = fmt.Sprintf("Max turns reached (%d)", st.turns)
		}
		usage := st.usage
		e.activity(p, Activity{
			Type:        ActivityResponse,
			Response:    st.finalText,
			Cost:        st.cost,
			TokenUsage:  &usage,
			Duration:    st.duration(),
			TotalTurns:  st.turns,
			HitMaxTurns: st.hitMaxTurns,
			Errors:      st.errors,
			Message:     message,
		})
		e.activity(p, Activity{
			Type:    ActivitySummary,
			Message: fmt.Sprintf("Conversation completed - %d turns, %d messages", st.turns, st.messages),
			Summary: &ConversationSummary{
				TotalTurns:    st.turns,
				TotalMessages: st.messages,
				Duration:      st.duration(),
				HitMaxTurns:   st.hitMaxTurns,
				HasErrors:     len(st.errors) > 0,
				Cost:          st.cost,
				TokenUsage:    st.usage,
			},
		})
		e.progress(p, AgentProgress{
			Action:  "finalizing",
			Message: p.Name + " is finalizing the article...",
		})

	case claude.Fault:
		e.activity(p, Activity{
			Type:    ActivityError,
			Error:   u.Message,
			Message: "Error occurred: " + u.Message,
		})
	}
}

// consumeBlock handles one content block of an assistant turn.
func (e *Engine) consumeBlock(p domain.Persona, block claude.Block, st *sessionState) {
	switch b := block.(type) {
	case claude.TextBlock:
		st.finalText = b.Text
		e.activity(p, Activity{
			Type:     ActivityThinking,
			Message:  fmt.Sprintf("%s is formulating response (Turn %d)", p.Name, st.turns),
			Response: b.Text,
			Turn:     st.turns,
		})
		e.progress(p, AgentProgress{
			Action:  "writing",
			Message: p.Name + " is writing the article...",
			Preview: truncate(b.Text, previewLimit),
		})

	case claude.ToolUseBlock:
		name := b.Name
		if name == "" {
			name = "unknown"
		}
		if name == webSearchTool {
			query, _ := b.Input["query"].(string)
			e.activity(p, Activity{
				Type:        ActivityWebSearch,
				Tool:        name,
				SearchQuery: query,
				Message:     fmt.Sprintf("Searching for: %q", query),
			})
		}
		e.activity(p, Activity{
			Type:      ActivityToolUse,
			Tool:      name,
			ToolInput: b.Input,
			ToolID:    b.ID,
			Message:   "Using tool: " + name,
			Turn:      st.turns,
		})
		e.progress(p, AgentProgress{
			Action:  "tool_use",
			Tool:    name,
			Message: fmt.Sprintf("%s is using %s...", p.Name, name),
			Details: truncate(marshalCompact(b.Input), previewLimit),
		})
	}
}

// distillResult parses the final text into a structured result, downgrading
// missing or invalid JSON to a refusal that preserves the raw output.
func (e *Engine) distillResult(p domain.Persona, st *sessionState) domain.AgentRunResult {
	raw := strings.TrimSpace(st.finalText)

	obj, found := extractJSON(raw)
	if !found {
		e.logger.Info("non-JSON response, treating as refusal", "agent", p.ID, "preview", truncate(raw, 200))
		return domain.AgentRunResult{
			Headline: p.Name + " Declined",
			Story:    raw,
			Sources:  []string{},
			Cost:     st.cost,
			Refused:  true,
		}
	}

	var parsed struct {
		Headline string   `json:"headline"`
		Story    string   `json:"story"`
		Sources  []string `json:"sources"`
	}
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		e.logger.Info("JSON parse failed, keeping raw response", "agent", p.ID, "error", err)
		return domain.AgentRunResult{
			Headline: p.Name + " Response",
			Story:    raw,
			Sources:  []string{},
			Cost:     st.cost,
			Refused:  true,
		}
	}

	sources := parsed.Sources
	if sources == nil {
		sources = []string{}
	}
	return domain.AgentRunResult{
		Headline: parsed.Headline,
		Story:    parsed.Story,
		Sources:  sources,
		Cost:     st.cost,
	}
}

func marshalCompact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
