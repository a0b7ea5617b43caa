package newsroom

import (
	"context"
	"fmt"

	"github.com/ashureev/newsroom/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Run executes one full simulation: concurrent research, an optional debate
// phase gated on quorum, and deterministic aggregation. Per-persona failures
// degrade that persona's slot only; Run returns an error solely for
// coordinator-level faults (context cancellation between phases), emitting
// simulation:error in that case.
func (e *Engine) Run(ctx context.Context, topic string) (*domain.SimulationResult, error) {
	e.logger.Info("simulation starting", "topic", topic)
	e.sink.Publish(EventSimulationStart, SimulationStart{Topic: topic})

	result, err := e.run(ctx, topic)
	if err != nil {
		e.logger.Error("simulation failed", "topic", topic, "error", err)
		e.sink.Publish(EventSimulationError, SimulationError{Error: err.Error()})
		return nil, err
	}

	e.logger.Info("simulation completed", "topic", topic, "cost_usd", result.Cost)
	e.sink.Publish(EventSimulationComplete, result)
	return result, nil
}

func (e *Engine) run(ctx context.Context, topic string) (*domain.SimulationResult, error) {
	personas := e.cfg.Personas

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("simulation aborted: %w", err)
	}

	// Phase 1: independent research, all personas in parallel. Each runner is
	// individually wrapped so one failure never aborts the others.
	e.sink.Publish(EventPhaseChange, PhaseChange{
		Phase:       1,
		Title:       "Phase 1: Independent Research",
		Description: "Each newsroom researches the topic independently",
	})

	results := make([]domain.AgentRunResult, len(personas))
	var research errgroup.Group
	for i, p := range personas {
		research.Go(func() error {
			results[i] = e.researchWithIsolation(ctx, p, topic)
			return nil
		})
	}
	// Wrappers never return an error; Wait is purely a settle barrier.
	_ = research.Wait()

	e.logger.Info("research phase completed", "topic", topic)

	for i, p := range personas {
		e.sink.Publish(EventAgentComplete, AgentComplete{
			Agent:          p.ID,
			AgentRunResult: results[i],
			Phase:          1,
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("simulation aborted after research phase: %w", err)
	}

	// Phase gate: at least N-1 of N personas must have succeeded.
	succeeded := 0
	for _, r := range results {
		if r.Succeeded() {
			succeeded++
		}
	}
	quorum := len(personas) - 1

	debates := make([]*domain.DebateResult, len(personas))
	if succeeded >= quorum {
		e.sink.Publish(EventPhaseChange, PhaseChange{
			Phase:       2,
			Title:       "Phase 2: Agent Debate",
			Description: "Each newsroom reads and responds to the others",
		})

		var debate errgroup.Group
		for i, p := range personas {
			peers := make(map[string]domain.AgentRunResult, len(personas)-1)
			for j, other := range personas {
				if other.ID != p.ID {
					peers[other.ID] = results[j]
				}
			}
			debate.Go(func() error {
				debates[i] = e.runDebateSession(ctx, p, topic, peers)
				return nil
			})
		}
		_ = debate.Wait()

		e.logger.Info("debate phase completed", "topic", topic)
	} else {
		e.logger.Info("skipping debate phase",
			"topic", topic,
			"succeeded", succeeded,
			"quorum", quorum,
		)
		e.sink.Publish(EventPhaseSkip, PhaseSkip{
			Phase:  2,
			Reason: "Too many errors in initial research",
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("simulation aborted after debate phase: %w", err)
	}

	// Aggregate: total cost is the exact sum of every reported cost,
	// including zero-cost placeholders for errored sessions.
	total := 0.0
	editions := make(map[string]domain.Edition, len(personas))
	for i, p := range personas {
		total += results[i].Cost
		if debates[i] != nil {
			total += debates[i].Cost
		}
		editions[p.ID] = domain.Edition{
			Name:     p.Name,
			Tagline:  p.Tagline,
			Headline: results[i].Headline,
			Story:    results[i].Story,
			Sources:  results[i].Sources,
			Refused:  results[i].Refused,
			Error:    results[i].Error,
			Debate:   debates[i],
		}
	}

	return &domain.SimulationResult{
		Topic:    topic,
		Editions: editions,
		Cost:     total,
	}, nil
}

// researchWithIsolation converts any raised session error into an
// error-flagged placeholder result so sibling sessions are unaffected.
func (e *Engine) researchWithIsolation(ctx context.Context, p domain.Persona, topic string) domain.AgentRunResult {
	result, err := e.runResearchSession(ctx, p, topic)
	if err != nil {
		e.logger.Error("agent session failed", "agent", p.ID, "error", err)
		return domain.AgentRunResult{
			Headline: p.Name + " - Error",
			Story:    "Agent encountered an error: " + err.Error(),
			Sources:  []string{},
			Cost:     0,
			Error:    true,
		}
	}
	return result
}
