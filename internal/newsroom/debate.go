package newsroom

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashureev/newsroom/internal/claude"
	"github.com/ashureev/newsroom/internal/domain"
)

// debatePrompt asks a persona for a short rebuttal to the listed peer
// headlines, as a JSON object.
func debatePrompt(p domain.Persona, topic, peerPerspectives string) string {
	return fmt.Sprintf(
		"You are the editor of %s. You just published your headline about %q. Now you've read what the other newspapers wrote:\n\n%s\n\nWrite a SHORT rebuttal (2-3 sentences max) responding to ONE specific point from the other headlines that you strongly disagree with. Be provocative and defend your perspective. Format as JSON: {\"rebuttal\": \"Your 2-3 sentence response here\", \"targetNewspaper\": \"name of newspaper you're responding to\"}",
		p.Name, topic, peerPerspectives,
	)
}

// runDebateSession runs one persona's rebuttal conversation. Debate is
// best-effort: every failure path returns nil, never an error.
func (e *Engine) runDebateSession(ctx context.Context, p domain.Persona, topic string, peers map[string]domain.AgentRunResult) *domain.DebateResult {
	e.logger.Info("debate session starting", "agent", p.ID)

	e.sink.Publish(EventAgentReading, AgentStatus{
		Agent:     p.ID,
		Newspaper: p.Name,
		Message:   p.Name + " is reading the other perspectives...",
	})

	if e.client == nil || !e.client.Configured() {
		return nil
	}

	perspectives := e.peerPerspectives(peers)
	if perspectives == "" {
		// Nothing valid to rebut.
		return nil
	}

	prompt := debatePrompt(p, topic, perspectives)
	e.activity(p, Activity{
		Type:    ActivityPrompt,
		Prompt:  prompt,
		Message: "Sending debate prompt to " + p.Name,
	})

	opts := claude.QueryOptions{
		Model:    e.cfg.Model,
		MaxTurns: e.cfg.DebateMaxTurns,
	}

	var finalText string
	var cost float64
	for unit, err := range e.client.Query(ctx, prompt, opts) {
		if err != nil {
			e.logger.Error("debate session failed", "agent", p.ID, "error", err)
			return nil
		}

		switch u := unit.(type) {
		case claude.AssistantTurn:
			for _, block := range u.Blocks {
				text, ok := block.(claude.TextBlock)
				if !ok {
					continue
				}
				finalText = text.Text
				e.sink.Publish(EventAgentDebating, AgentStatus{
					Agent:     p.ID,
					Newspaper: p.Name,
					Message:   p.Name + " is writing a rebuttal...",
				})
				e.activity(p, Activity{
					Type:     ActivityThinking,
					Response: text.Text,
					Message:  p.Name + " formulating rebuttal",
				})
			}

		case claude.FinalResult:
			if u.Text != "" {
				finalText = u.Text
			}
			cost = u.CostUSD
			e.activity(p, Activity{
				Type:     ActivityResponse,
				Response: finalText,
				Cost:     cost,
				Message:  "Debate response completed",
			})

		case claude.Fault:
			e.logger.Warn("debate stream fault", "agent", p.ID, "error", u.Message)

		case claude.SystemInit, claude.UserTurn, claude.ToolResult:
			// Debate sessions have no tools; nothing to report.
		}
	}

	if finalText == "" {
		return nil
	}

	obj, found := extractJSON(finalText)
	if !found {
		return nil
	}
	var parsed struct {
		Rebuttal        string `json:"rebuttal"`
		TargetNewspaper string `json:"targetNewspaper"`
	}
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		e.logger.Info("debate JSON parse failed", "agent", p.ID, "error", err)
		return nil
	}

	e.logger.Info("debate session completed", "agent", p.ID, "cost_usd", cost)

	e.sink.Publish(EventAgentDebateDone, AgentDebateComplete{
		Agent:     p.ID,
		Newspaper: p.Name,
		Rebuttal:  parsed.Rebuttal,
		Target:    parsed.TargetNewspaper,
	})

	return &domain.DebateResult{
		Rebuttal: parsed.Rebuttal,
		Target:   parsed.TargetNewspaper,
		Cost:     cost,
	}
}

// peerPerspectives renders every peer result that is neither errored nor
// refused as one "Name: headline" line per peer.
func (e *Engine) peerPerspectives(peers map[string]domain.AgentRunResult) string {
	var lines []string
	for _, peer := range e.cfg.Personas {
		result, ok := peers[peer.ID]
		if !ok || result.Error || result.Refused {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %q", peer.Name, result.Headline))
	}
	return strings.Join(lines, "\n")
}
