// Package claude provides a streaming client for the Claude Code CLI.
//
// The CLI emits newline-delimited JSON messages of heterogeneous shapes.
// This package decodes them at the boundary into a closed set of Unit
// variants so downstream consumers can type-switch exhaustively instead of
// probing for field presence.
package claude

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Unit is one decoded message from a session's event stream.
// The set of implementations is closed: SystemInit, UserTurn, AssistantTurn,
// ToolResult, FinalResult and Fault.
type Unit interface {
	isUnit()
}

// SystemInit is the session initialization message. Log-only; it produces no
// externally visible event.
type SystemInit struct {
	Model string
	Tools []string
}

// UserTurn echoes a user/input message back into the stream. The same logical
// turn can be reported twice; ID is stable so consumers can deduplicate.
type UserTurn struct {
	ID      string
	Content string
}

// AssistantTurn is one assistant-authored turn, carrying one or more content
// blocks.
type AssistantTurn struct {
	Blocks []Block
}

// Block is one content block inside an assistant turn: TextBlock or
// ToolUseBlock.
type Block interface {
	isBlock()
}

// TextBlock carries assistant prose.
type TextBlock struct {
	Text string
}

// ToolUseBlock is an assistant tool invocation.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input map[string]any
}

// ToolResult carries the raw output of a completed tool invocation.
type ToolResult struct {
	ToolUseID string
	Output    string
}

// TokenUsage reports cumulative token counts for a session.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// FinalResult terminates a session stream with the final text, cumulative
// cost and usage. MaxTurnsHit is set when the turn budget was exhausted.
type FinalResult struct {
	Text        string
	CostUSD     float64
	Usage       TokenUsage
	MaxTurnsHit bool
	Errors      []string
}

// Fault is a malformed or error unit. A Fault never aborts the stream.
type Fault struct {
	Message string
}

func (SystemInit) isUnit()    {}
func (UserTurn) isUnit()      {}
func (AssistantTurn) isUnit() {}
func (ToolResult) isUnit()    {}
func (FinalResult) isUnit()   {}
func (Fault) isUnit()         {}

func (TextBlock) isBlock()    {}
func (ToolUseBlock) isBlock() {}

// wireMessage is the superset of fields the CLI emits across message types.
type wireMessage struct {
	Type         string          `json:"type"`
	Subtype      string          `json:"subtype"`
	UUID         string          `json:"uuid"`
	Model        string          `json:"model"`
	Tools        []string        `json:"tools"`
	Message      *wirePayload    `json:"message"`
	Result       string          `json:"result"`
	TotalCostUSD float64         `json:"total_cost_usd"`
	Usage        *wireUsage      `json:"usage"`
	Errors       []string        `json:"errors"`
	ToolUseID    string          `json:"tool_use_id"`
	Output       json.RawMessage `json:"output"`
	Content      json.RawMessage `json:"content"`
	Error        string          `json:"error"`
}

type wirePayload struct {
	Content json.RawMessage `json:"content"`
}

type wireBlock struct {
	Type  string         `json:"type"`
	Text  string         `json:"text"`
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// DecodeUnit decodes one NDJSON line into a Unit. Malformed lines yield a
// Fault rather than an error so one bad message cannot abort the stream.
// Lines of types this package does not model (partial stream events,
// keepalives) return nil and should be skipped.
func DecodeUnit(line []byte) Unit {
	if len(strings.TrimSpace(string(line))) == 0 {
		return nil
	}

	var msg wireMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return Fault{Message: fmt.Sprintf("malformed stream message: %v", err)}
	}

	switch msg.Type {
	case "system":
		return SystemInit{Model: msg.Model, Tools: msg.Tools}

	case "user":
		return UserTurn{ID: msg.UUID, Content: flattenContent(messageContent(msg))}

	case "assistant":
		if msg.Message == nil {
			return nil
		}
		blocks := decodeBlocks(msg.Message.Content)
		if len(blocks) == 0 {
			return nil
		}
		return AssistantTurn{Blocks: blocks}

	case "tool_result":
		return ToolResult{ToolUseID: msg.ToolUseID, Output: rawToString(firstNonEmpty(msg.Output, msg.Content))}

	case "result":
		text := msg.Result
		if text == "" {
			text = rawToString(msg.Content)
		}
		var usage TokenUsage
		if msg.Usage != nil {
			usage = TokenUsage{Input: msg.Usage.InputTokens, Output: msg.Usage.OutputTokens}
		}
		return FinalResult{
			Text:        text,
			CostUSD:     msg.TotalCostUSD,
			Usage:       usage,
			MaxTurnsHit: msg.Subtype == "error_max_turns",
			Errors:      msg.Errors,
		}

	case "error":
		message := msg.Error
		if message == "" {
			message = "unknown error"
		}
		return Fault{Message: message}

	default:
		// Partial stream events and other unmodeled message types.
		return nil
	}
}

func messageContent(msg wireMessage) json.RawMessage {
	if msg.Message != nil && len(msg.Message.Content) > 0 {
		return msg.Message.Content
	}
	return msg.Content
}

func decodeBlocks(raw json.RawMessage) []Block {
	var wire []wireBlock
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil
	}

	var blocks []Block
	for _, b := range wire {
		switch b.Type {
		case "text":
			blocks = append(blocks, TextBlock{Text: b.Text})
		case "tool_use":
			blocks = append(blocks, ToolUseBlock{ID: b.ID, Name: b.Name, Input: b.Input})
		}
	}
	return blocks
}

// flattenContent renders message content as plain text regardless of whether
// the wire carried a string or a block list.
func flattenContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var sb strings.Builder
	for _, b := range decodeBlocks(raw) {
		if t, ok := b.(TextBlock); ok {
			sb.WriteString(t.Text)
		}
	}
	if sb.Len() > 0 {
		return sb.String()
	}
	return string(raw)
}

// rawToString unwraps a JSON string, or returns the raw JSON text verbatim
// for non-string payloads.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func firstNonEmpty(candidates ...json.RawMessage) json.RawMessage {
	for _, c := range candidates {
		if len(c) > 0 {
			return c
		}
	}
	return nil
}
