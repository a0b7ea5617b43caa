// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/newsroom/internal/domain"
)

// Repository persists completed simulations, per-fingerprint rate limits and
// daily budget bookkeeping.
type Repository interface {
	// SaveSimulation stores one completed run.
	SaveSimulation(ctx context.Context, record *domain.SimulationRecord) error

	// ListSimulations returns the most recent runs, newest first.
	ListSimulations(ctx context.Context, limit int) ([]*domain.SimulationRecord, error)

	// GetSimulation retrieves one run by ID. Returns nil when not found.
	GetSimulation(ctx context.Context, id string) (*domain.SimulationRecord, error)

	// CheckRateLimit reports whether the fingerprint may run another
	// simulation inside the given window.
	CheckRateLimit(ctx context.Context, fingerprintHash string, window time.Duration) (domain.RateLimitStatus, error)

	// RecordRun registers one completed run against the fingerprint.
	RecordRun(ctx context.Context, fingerprintHash string) error

	// DailyBudget reports spend for the given date against the daily limit.
	DailyBudget(ctx context.Context, date string, dailyLimit float64) (domain.BudgetStatus, error)

	// AddCost accumulates one simulation's cost into the date's budget row.
	AddCost(ctx context.Context, date string, cost float64) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
