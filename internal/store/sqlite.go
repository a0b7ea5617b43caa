package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/newsroom/internal/domain"
	"github.com/ashureev/newsroom/internal/shared"
	_ "modernc.org/sqlite"
)

// writeRetries bounds retry attempts when a write hits a SQLite concurrency
// conflict despite the busy timeout.
const writeRetries = 3

// personaColumns maps persona IDs to their headline/story column prefixes.
// The simulations table keeps one column pair per canonical persona.
var personaColumns = []string{"progressive", "conservative", "tech"}

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS simulations (
		id TEXT PRIMARY KEY,
		created_at INTEGER DEFAULT (strftime('%s', 'now')),
		topic TEXT NOT NULL,
		progressive_headline TEXT,
		progressive_story TEXT,
		conservative_headline TEXT,
		conservative_story TEXT,
		tech_headline TEXT,
		tech_story TEXT,
		cost REAL DEFAULT 0,
		fingerprint_hash TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_simulations_created ON simulations(created_at);

	CREATE TABLE IF NOT EXISTS rate_limits (
		fingerprint_hash TEXT PRIMARY KEY,
		last_run_at INTEGER,
		run_count INTEGER DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS budget_tracking (
		date TEXT PRIMARY KEY,
		total_cost REAL DEFAULT 0,
		simulation_count INTEGER DEFAULT 0
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// execWithRetry runs a write statement, retrying with backoff on SQLite
// concurrency conflicts.
func (s *SQLiteStore) execWithRetry(ctx context.Context, query string, args ...any) error {
	var err error
	for attempt := 0; attempt < writeRetries; attempt++ {
		_, err = s.db.ExecContext(ctx, query, args...)
		if !shared.IsSQLiteConflictError(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		}
	}
	return err
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSimulation stores one completed run.
func (s *SQLiteStore) SaveSimulation(ctx context.Context, record *domain.SimulationRecord) error {
	query := `
	INSERT INTO simulations (
		id, topic, progressive_headline, progressive_story,
		conservative_headline, conservative_story,
		tech_headline, tech_story, cost, fingerprint_hash
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	args := []any{record.ID, record.Topic}
	for _, persona := range personaColumns {
		article := record.Headlines[persona]
		args = append(args, article.Headline, article.Story)
	}
	args = append(args, record.Cost, record.FingerprintHash)

	if err := s.execWithRetry(ctx, query, args...); err != nil {
		return fmt.Errorf("save simulation: %w", err)
	}
	return nil
}

const simulationColumns = `
	id, topic, created_at,
	progressive_headline, progressive_story,
	conservative_headline, conservative_story,
	tech_headline, tech_story, cost, fingerprint_hash`

func scanSimulation(scan func(dest ...any) error) (*domain.SimulationRecord, error) {
	var record domain.SimulationRecord
	var createdAt int64
	var fingerprint sql.NullString
	articles := make([]sql.NullString, 2*len(personaColumns))

	dest := []any{&record.ID, &record.Topic, &createdAt}
	for i := range articles {
		dest = append(dest, &articles[i])
	}
	dest = append(dest, &record.Cost, &fingerprint)

	if err := scan(dest...); err != nil {
		return nil, err
	}

	record.CreatedAt = time.Unix(createdAt, 0)
	record.FingerprintHash = fingerprint.String
	record.Headlines = make(map[string]domain.Article, len(personaColumns))
	for i, persona := range personaColumns {
		record.Headlines[persona] = domain.Article{
			Headline: articles[2*i].String,
			Story:    articles[2*i+1].String,
		}
	}
	return &record, nil
}

// ListSimulations returns the most recent runs, newest first.
func (s *SQLiteStore) ListSimulations(ctx context.Context, limit int) ([]*domain.SimulationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + simulationColumns + ` FROM simulations ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query simulations: %w", err)
	}
	defer rows.Close()

	var records []*domain.SimulationRecord
	for rows.Next() {
		record, err := scanSimulation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan simulation row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulation rows: %w", err)
	}
	return records, nil
}

// GetSimulation retrieves one run by ID. Returns nil when not found.
func (s *SQLiteStore) GetSimulation(ctx context.Context, id string) (*domain.SimulationRecord, error) {
	query := `SELECT ` + simulationColumns + ` FROM simulations WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)
	record, err := scanSimulation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan simulation: %w", err)
	}
	return record, nil
}

// CheckRateLimit reports whether the fingerprint may run another simulation
// inside the given window.
func (s *SQLiteStore) CheckRateLimit(ctx context.Context, fingerprintHash string, window time.Duration) (domain.RateLimitStatus, error) {
	var lastRunAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_run_at FROM rate_limits WHERE fingerprint_hash = ?`,
		fingerprintHash,
	).Scan(&lastRunAt)
	if err == sql.ErrNoRows {
		return domain.RateLimitStatus{Allowed: true}, nil
	}
	if err != nil {
		return domain.RateLimitStatus{}, fmt.Errorf("query rate limit: %w", err)
	}

	elapsed := time.Now().Unix() - lastRunAt
	windowSeconds := int64(window.Seconds())
	if elapsed < windowSeconds {
		remaining := windowSeconds - elapsed
		hours := int64(math.Ceil(float64(remaining) / 3600))
		return domain.RateLimitStatus{
			Allowed:          false,
			RemainingSeconds: remaining,
			Message:          fmt.Sprintf("You can run another simulation in %d hours", hours),
		}, nil
	}
	return domain.RateLimitStatus{Allowed: true}, nil
}

// RecordRun registers one completed run against the fingerprint.
func (s *SQLiteStore) RecordRun(ctx context.Context, fingerprintHash string) error {
	query := `
	INSERT INTO rate_limits (fingerprint_hash, last_run_at, run_count)
	VALUES (?, ?, 1)
	ON CONFLICT(fingerprint_hash) DO UPDATE SET
		last_run_at = excluded.last_run_at,
		run_count = run_count + 1`

	if err := s.execWithRetry(ctx, query, fingerprintHash, time.Now().Unix()); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// DailyBudget reports spend for the given date against the daily limit.
func (s *SQLiteStore) DailyBudget(ctx context.Context, date string, dailyLimit float64) (domain.BudgetStatus, error) {
	status := domain.BudgetStatus{Date: date, Remaining: dailyLimit}

	var totalCost float64
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT total_cost, simulation_count FROM budget_tracking WHERE date = ?`,
		date,
	).Scan(&totalCost, &count)
	if err == sql.ErrNoRows {
		return status, nil
	}
	if err != nil {
		return domain.BudgetStatus{}, fmt.Errorf("query budget: %w", err)
	}

	status.TotalCost = totalCost
	status.SimulationCount = count
	status.Remaining = dailyLimit - totalCost
	return status, nil
}

// AddCost accumulates one simulation's cost into the date's budget row.
func (s *SQLiteStore) AddCost(ctx context.Context, date string, cost float64) error {
	query := `
	INSERT INTO budget_tracking (date, total_cost, simulation_count)
	VALUES (?, ?, 1)
	ON CONFLICT(date) DO UPDATE SET
		total_cost = total_cost + excluded.total_cost,
		simulation_count = simulation_count + 1`

	if err := s.execWithRetry(ctx, query, date, cost); err != nil {
		return fmt.Errorf("add cost: %w", err)
	}
	return nil
}
