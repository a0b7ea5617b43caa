package domain

import "time"

// AgentRunResult is the outcome of one persona's research session.
// Exactly one of {normal result, Refused, Error} describes the outcome.
// Immutable once created.
type AgentRunResult struct {
	Headline string   `json:"headline"`
	Story    string   `json:"story"`
	Sources  []string `json:"sources"`
	Cost     float64  `json:"cost"`
	Refused  bool     `json:"refused"`
	Error    bool     `json:"error"`
}

// Succeeded reports whether the session completed without a hard error.
// Refusals count as soft successes for quorum purposes.
func (r AgentRunResult) Succeeded() bool {
	return !r.Error
}

// DebateResult is one persona's rebuttal from the debate phase.
// Absent (nil) when the phase was skipped or this persona's debate failed.
type DebateResult struct {
	Rebuttal string  `json:"rebuttal"`
	Target   string  `json:"targetNewspaper"`
	Cost     float64 `json:"cost"`
}

// Edition combines a persona's identity with its research and debate output,
// as rendered to clients and persisted.
type Edition struct {
	Name     string        `json:"name"`
	Tagline  string        `json:"tagline"`
	Headline string        `json:"headline"`
	Story    string        `json:"story"`
	Sources  []string      `json:"sources"`
	Refused  bool          `json:"refused"`
	Error    bool          `json:"error"`
	Debate   *DebateResult `json:"debate"`
}

// SimulationResult is the immutable aggregate of one completed run.
// Editions is keyed by persona ID and holds exactly one entry per persona.
// Cost is the exact sum of every individual session's reported cost,
// including zero-cost placeholders for errored sessions.
type SimulationResult struct {
	Topic    string             `json:"topic"`
	Editions map[string]Edition `json:"editions"`
	Cost     float64            `json:"cost"`
}

// SimulationRecord is the persisted row for one completed run.
type SimulationRecord struct {
	ID              string             `json:"id"`
	Topic           string             `json:"topic"`
	Headlines       map[string]Article `json:"headlines"`
	Cost            float64            `json:"cost"`
	FingerprintHash string             `json:"-"`
	CreatedAt       time.Time          `json:"created_at"`
}

// Article is the persisted headline/story pair for one persona.
type Article struct {
	Headline string `json:"headline"`
	Story    string `json:"story"`
}

// BudgetStatus reports spend against the daily budget.
type BudgetStatus struct {
	Date            string  `json:"date"`
	TotalCost       float64 `json:"totalCost"`
	SimulationCount int     `json:"simulationCount"`
	Remaining       float64 `json:"remaining"`
}

// RateLimitStatus is the result of a rate-limit check for one fingerprint.
type RateLimitStatus struct {
	Allowed          bool
	RemainingSeconds int64
	Message          string
}
